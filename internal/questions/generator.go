// Package questions produces the next interview question from résumé context.
package questions

import (
	"context"
	_ "embed"
	"encoding/json"
	"regexp"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/yoockh/yoointerview/internal/utils"
)

// MinQuestionLength is the shortest model output accepted as a question.
const MinQuestionLength = 5

var (
	//go:embed prompts/question.md
	questionPrompt string

	//go:embed prompts/followups.md
	followUpsPrompt string
)

// Completer is the slice of an LLM provider the generator needs.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

type Request struct {
	ResumeText     string
	JobDescription string
	History        []string
	LastAnswer     string
	Mode           Mode
}

type FollowUpRequest struct {
	ResumeText       string
	PreviousQuestion string
	LastAnswer       string
}

type Generator struct {
	llm     Completer
	log     *logrus.Logger
	timeout time.Duration
}

// NewGenerator accepts a nil Completer; every call then returns a fallback.
func NewGenerator(llm Completer, log *logrus.Logger, timeout time.Duration) *Generator {
	if log == nil {
		log = logrus.New()
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Generator{llm: llm, log: log, timeout: timeout}
}

// Generate always returns a non-empty question.
func (g *Generator) Generate(ctx context.Context, req Request) string {
	mode := req.Mode
	if mode == "" {
		mode = ModeFollowUp
	}
	log := g.log.WithFields(logrus.Fields{"mode": mode, "asked": len(req.History)})

	if g.llm == nil {
		log.Warn("no llm provider configured, using fallback question")
		return Fallback(mode, len(req.History))
	}

	cctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	out, err := g.llm.Complete(cctx, BuildPrompt(req))
	if err != nil {
		log.WithError(err).Warn("question generation failed, using fallback")
		return Fallback(mode, len(req.History))
	}

	q := CleanQuestion(out)
	if len([]rune(q)) < MinQuestionLength {
		log.WithField("raw", utils.TruncateForLog(out, 200)).Warn("unusable question output, using fallback")
		return Fallback(mode, len(req.History))
	}
	return q
}

// NextQuestion reports ctx cancellation so a flow being torn down can stop.
func (g *Generator) NextQuestion(ctx context.Context, req Request) (string, error) {
	q := g.Generate(ctx, req)
	return q, ctx.Err()
}

func BuildPrompt(req Request) string {
	history := "none"
	if len(req.History) > 0 {
		history = strings.Join(req.History, ", ")
	}
	mode := req.Mode
	if mode == "" {
		mode = ModeFollowUp
	}
	return fill(questionPrompt,
		"RESUME", orDefault(req.ResumeText, "No resume provided"),
		"JOB_DESCRIPTION", orDefault(req.JobDescription, "No job description provided"),
		"HISTORY", history,
		"LAST_ANSWER", orDefault(req.LastAnswer, "none"),
		"MODE_INSTRUCTIONS", mode.instructions(),
	)
}

// FollowUps returns exactly three short follow-up questions.
func (g *Generator) FollowUps(ctx context.Context, req FollowUpRequest) []string {
	if g.llm == nil {
		return append([]string(nil), failedFollowUpsFallback...)
	}

	cctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	prompt := fill(followUpsPrompt,
		"PREVIOUS_QUESTION", orDefault(req.PreviousQuestion, "N/A"),
		"LAST_ANSWER", req.LastAnswer,
		"RESUME", req.ResumeText,
	)
	out, err := g.llm.Complete(cctx, prompt)
	if err != nil {
		g.log.WithError(err).Warn("follow-up generation failed")
		return append([]string(nil), failedFollowUpsFallback...)
	}

	var parsed struct {
		FollowUps []string `json:"followups"`
	}
	if err := json.Unmarshal([]byte(utils.ExtractJSONObject(out)), &parsed); err != nil {
		g.log.WithField("raw", utils.TruncateForLog(out, 200)).Warn("follow-up output is not json")
		return append([]string(nil), parsedFollowUpsFallback...)
	}

	res := make([]string, 0, 3)
	for _, q := range parsed.FollowUps {
		if q = CleanQuestion(q); len([]rune(q)) >= MinQuestionLength {
			res = append(res, q)
		}
		if len(res) == 3 {
			break
		}
	}
	for i := 0; len(res) < 3; i++ {
		res = append(res, parsedFollowUpsFallback[i])
	}
	return res
}

var (
	metaPrefixRe = regexp.MustCompile(`(?i)^(?:.*?\bhere(?:'s| is) (?:your|the|my|a) (?:next |first |opening |follow-up )?question|(?:next |follow-up |opening )?question(?: \d+)?|interviewer)\s*[:\-–]\s*`)
	leadInRe     = regexp.MustCompile(`(?i)\bhere(?:'s| is)\b.*\bquestions?\b`)
	numberingRe  = regexp.MustCompile(`^(?:\d+[.)]|[-*•])\s+`)
)

// CleanQuestion strips fences, numbering, quotes and "Here's your question:" style
// lead-ins. Chatter lines before the question are skipped: a line ending in a
// colon, a lead-in without a question mark, or any line when a later one asks
// something.
func CleanQuestion(s string) string {
	s = strings.ReplaceAll(s, "```json", "\n")
	s = strings.ReplaceAll(s, "```", "\n")

	var first string
	for _, line := range strings.Split(s, "\n") {
		line = strings.TrimSpace(line)
		line = strings.Trim(line, "*_")
		line = numberingRe.ReplaceAllString(line, "")
		line = metaPrefixRe.ReplaceAllString(line, "")
		line = strings.TrimSpace(strings.Trim(line, `"'“”*_ `))

		asks := strings.Contains(line, "?")
		switch {
		case line == "", strings.HasSuffix(line, ":"):
			continue
		case !asks && leadInRe.MatchString(line):
			continue
		case asks:
			return line
		case first == "":
			first = line
		}
	}
	return first
}

// fill substitutes {{KEY}} placeholders in one pass, so placeholder text
// inside the values is left alone.
func fill(tpl string, pairs ...string) string {
	for i := 0; i+1 < len(pairs); i += 2 {
		pairs[i] = "{{" + pairs[i] + "}}"
	}
	return strings.TrimSpace(strings.NewReplacer(pairs...).Replace(tpl))
}

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}
