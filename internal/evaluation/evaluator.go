// Package evaluation scores a finished interview transcript.
package evaluation

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/yoockh/yoointerview/internal/models"
	"github.com/yoockh/yoointerview/internal/utils"
)

var (
	//go:embed prompts/evaluation.md
	evaluationPrompt string

	//go:embed prompts/fit.md
	fitPrompt string
)

var ErrNoProvider = errors.New("no llm provider configured")

type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

type Request struct {
	Transcript     []models.QAPair
	JobDescription string
	ResumeText     string
}

type Evaluator struct {
	llm     Completer
	analyst Completer
	log     *logrus.Logger
	timeout time.Duration
}

// NewEvaluator takes an optional analyst used for CV/JD fit analysis; llm is used when it is nil.
func NewEvaluator(llm, analyst Completer, log *logrus.Logger, timeout time.Duration) *Evaluator {
	if log == nil {
		log = logrus.New()
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	if analyst == nil {
		analyst = llm
	}
	return &Evaluator{llm: llm, analyst: analyst, log: log, timeout: timeout}
}

// Evaluate never returns nil; failures yield Fallback().
func (e *Evaluator) Evaluate(ctx context.Context, req Request) *models.Evaluation {
	ev, err := e.TryEvaluate(ctx, req)
	if err != nil {
		e.log.WithError(err).WithField("answers", len(req.Transcript)).Warn("evaluation failed, using fallback")
		return Fallback()
	}
	return ev
}

// TryEvaluate reports upstream and parse failures instead of substituting the fallback.
func (e *Evaluator) TryEvaluate(ctx context.Context, req Request) (*models.Evaluation, error) {
	if e.llm == nil {
		return nil, ErrNoProvider
	}

	cctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	out, err := e.llm.Complete(cctx, BuildPrompt(req))
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(out) == "" {
		return nil, errors.New("empty evaluation from model")
	}

	ev, err := Parse(out)
	if err != nil {
		e.log.WithField("raw", utils.TruncateForLog(out, 300)).Debug("unparseable evaluation")
		return nil, err
	}
	return ev, nil
}

func BuildPrompt(req Request) string {
	var b strings.Builder
	for i, qa := range req.Transcript {
		fmt.Fprintf(&b, "\nQuestion %d: %s\nAnswer %d: %s\n", i+1, qa.Question, i+1, qa.Answer)
	}
	resume := req.ResumeText
	if strings.TrimSpace(resume) == "" {
		resume = "No resume available."
	}
	r := strings.NewReplacer(
		"{{RESUME}}", resume,
		"{{JOB_DESCRIPTION}}", req.JobDescription,
		"{{TRANSCRIPT}}", strings.TrimSpace(b.String()),
	)
	return strings.TrimSpace(r.Replace(evaluationPrompt))
}

// AnalyzeFit compares a résumé with a job description ahead of the interview.
func (e *Evaluator) AnalyzeFit(ctx context.Context, resume, jd string) (string, error) {
	if e.analyst == nil {
		return "", ErrNoProvider
	}

	cctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	prompt := strings.NewReplacer("{{RESUME}}", resume, "{{JOB_DESCRIPTION}}", jd).Replace(fitPrompt)
	out, err := e.analyst.Complete(cctx, strings.TrimSpace(prompt))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}
