package services

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/yoockh/yoointerview/internal/evaluation"
	"github.com/yoockh/yoointerview/internal/models"
	"github.com/yoockh/yoointerview/internal/repositories"
	"github.com/yoockh/yoointerview/internal/utils"
	"gorm.io/datatypes"
)

type SubmitInput struct {
	Token          string
	Transcript     []models.QAPair
	JobDescription string // overrides the session's JD when set
}

type EvaluationService interface {
	Submit(ctx context.Context, in SubmitInput) (*models.Evaluation, error)
	// EvaluateSession lets the flow controller evaluate a session it already holds.
	EvaluateSession(ctx context.Context, sess *models.Session, transcript []models.QAPair) (*models.Evaluation, error)
	Latest(ctx context.Context, token string) (*models.EvaluationRecord, error)
	AnalyzeFit(ctx context.Context, token string) (string, error)
}

type evaluationService struct {
	sessions    SessionService
	evaluator   *evaluation.Evaluator
	evaluations repositories.EvaluationRepository // optional
	log         *logrus.Logger
}

func NewEvaluationService(sessions SessionService, ev *evaluation.Evaluator, evaluations repositories.EvaluationRepository, log *logrus.Logger) EvaluationService {
	return &evaluationService{sessions: sessions, evaluator: ev, evaluations: evaluations, log: log}
}

func (s *evaluationService) Submit(ctx context.Context, in SubmitInput) (*models.Evaluation, error) {
	const op = "EvaluationService.Submit"

	if len(in.Transcript) == 0 {
		return nil, utils.E(utils.CodeInvalidArgument, op, "answers are required", nil)
	}

	// an unknown token still gets evaluated, just without résumé context
	var sess *models.Session
	if in.Token != "" {
		got, err := s.sessions.Get(ctx, in.Token)
		switch {
		case err == nil:
			sess = got
		case utils.IsCode(err, utils.CodeNotFound):
			s.log.WithField("token", in.Token).Info("evaluating without session")
		default:
			return nil, err
		}
	}

	req := evaluation.Request{Transcript: in.Transcript, JobDescription: in.JobDescription}
	if sess != nil {
		req.ResumeText = sess.ResumeText
		if strings.TrimSpace(req.JobDescription) == "" {
			req.JobDescription = sess.JobDescription
		}
	}

	ev := s.evaluator.Evaluate(ctx, req)
	if sess != nil {
		s.record(ctx, sess.Token, in.Transcript, ev)
	}
	return ev, nil
}

func (s *evaluationService) EvaluateSession(ctx context.Context, sess *models.Session, transcript []models.QAPair) (*models.Evaluation, error) {
	const op = "EvaluationService.EvaluateSession"

	if sess == nil {
		return nil, utils.E(utils.CodeInvalidArgument, op, "session is required", nil)
	}
	ev, err := s.evaluator.TryEvaluate(ctx, evaluation.Request{
		Transcript:     transcript,
		JobDescription: sess.JobDescription,
		ResumeText:     sess.ResumeText,
	})
	if err != nil {
		// the controller substitutes the fallback; store that instead
		s.record(ctx, sess.Token, transcript, evaluation.Fallback())
		return nil, utils.E(utils.CodeUnavailable, op, "evaluation failed", err)
	}
	s.record(ctx, sess.Token, transcript, ev)
	return ev, nil
}

// record persists the outcome and closes the session. Failures are logged only;
// the candidate already has the evaluation.
func (s *evaluationService) record(ctx context.Context, token string, transcript []models.QAPair, ev *models.Evaluation) {
	l := s.log.WithField("token", token)

	if s.evaluations != nil {
		if err := s.evaluations.SaveResult(ctx, token, transcriptRows(token, transcript), evaluationRow(token, ev)); err != nil {
			l.WithError(err).Warn("evaluation persist failed")
		}
	}
	if err := s.sessions.MarkStatus(ctx, token, models.SessionCompleted); err != nil && !utils.IsCode(err, utils.CodeNotFound) {
		l.WithError(err).Warn("mark session completed failed")
	}
	l.WithFields(logrus.Fields{"score": ev.FinalScore, "decision": ev.HiringDecision, "fallback": ev.IsFallback}).Info("interview evaluated")
}

func (s *evaluationService) Latest(ctx context.Context, token string) (*models.EvaluationRecord, error) {
	const op = "EvaluationService.Latest"

	if s.evaluations == nil {
		return nil, utils.E(utils.CodeUnavailable, op, "evaluation storage is not configured", nil)
	}
	if !utils.ValidSessionToken(token) {
		return nil, utils.E(utils.CodeNotFound, op, "evaluation not found", utils.ErrNotFound)
	}
	row, err := s.evaluations.LatestByToken(ctx, token)
	if err != nil {
		if errors.Is(err, utils.ErrNotFound) {
			return nil, utils.E(utils.CodeNotFound, op, "evaluation not found", err)
		}
		return nil, utils.E(utils.CodeInternal, op, "failed to load evaluation", err)
	}
	return row, nil
}

func (s *evaluationService) AnalyzeFit(ctx context.Context, token string) (string, error) {
	const op = "EvaluationService.AnalyzeFit"

	sess, err := s.sessions.Get(ctx, token)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(sess.ResumeText) == "" || strings.TrimSpace(sess.JobDescription) == "" {
		return "", utils.E(utils.CodeInvalidArgument, op, "Missing CV or JD", nil)
	}

	out, err := s.evaluator.AnalyzeFit(ctx, sess.ResumeText, sess.JobDescription)
	if err != nil {
		if errors.Is(err, evaluation.ErrNoProvider) {
			return "", utils.E(utils.CodeUnavailable, op, "no language model configured", err)
		}
		return "", utils.E(utils.CodeUnavailable, op, "Error analyzing CV/JD", err)
	}
	return out, nil
}

func transcriptRows(token string, transcript []models.QAPair) []models.TranscriptEntry {
	now := time.Now().UTC()
	rows := make([]models.TranscriptEntry, 0, len(transcript))
	for i, qa := range transcript {
		rows = append(rows, models.TranscriptEntry{
			ID:       uuid.NewString(),
			Token:    token,
			Position: i + 1,
			Question: qa.Question,
			Answer:   qa.Answer,
			Created:  now,
		})
	}
	return rows
}

func evaluationRow(token string, ev *models.Evaluation) *models.EvaluationRecord {
	payload, _ := json.Marshal(ev)
	return &models.EvaluationRecord{
		ID:             uuid.NewString(),
		Token:          token,
		FinalScore:     ev.FinalScore,
		HiringDecision: ev.HiringDecision,
		Verdict:        ev.Verdict,
		Strengths:      ev.Strengths,
		Improvements:   ev.Improvements,
		Payload:        datatypes.JSON(payload),
		IsFallback:     ev.IsFallback,
		CreatedAt:      time.Now().UTC(),
	}
}
