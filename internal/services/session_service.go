package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/yoockh/yoointerview/internal/cache"
	"github.com/yoockh/yoointerview/internal/models"
	"github.com/yoockh/yoointerview/internal/repositories"
	"github.com/yoockh/yoointerview/internal/utils"
)

const tokenAttempts = 3

type CreateSessionInput struct {
	ResumeText     string
	JobDescription string
	Email          string
	NumQuestions   int
	ResumeFile     *models.ResumeRef
}

type SessionService interface {
	Create(ctx context.Context, in CreateSessionInput) (*models.Session, error)
	Get(ctx context.Context, token string) (*models.Session, error)
	Touch(ctx context.Context, token string) error
	MarkStatus(ctx context.Context, token string, status models.SessionStatus) error
	Delete(ctx context.Context, token string) error
}

type SessionOptions struct {
	TTL      time.Duration // session retention
	CacheTTL time.Duration
	Now      func() time.Time
}

type sessionService struct {
	sessions repositories.SessionRepository
	cache    cache.Cache
	log      *logrus.Logger
	opts     SessionOptions
}

func NewSessionService(sessions repositories.SessionRepository, c cache.Cache, log *logrus.Logger, opts SessionOptions) SessionService {
	if c == nil {
		c = cache.Noop{}
	}
	if opts.TTL <= 0 {
		opts.TTL = 7 * 24 * time.Hour
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &sessionService{sessions: sessions, cache: c, log: log, opts: opts}
}

func (s *sessionService) Create(ctx context.Context, in CreateSessionInput) (*models.Session, error) {
	const op = "SessionService.Create"

	if strings.TrimSpace(in.ResumeText) == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "resume text is required", nil)
	}
	if in.NumQuestions <= 0 {
		in.NumQuestions = models.DefaultNumQuestions
	}

	now := s.opts.Now().UTC()
	sess := &models.Session{
		ResumeText:     in.ResumeText,
		JobDescription: in.JobDescription,
		Email:          strings.TrimSpace(in.Email),
		NumQuestions:   in.NumQuestions,
		ResumeFile:     in.ResumeFile,
		Status:         models.SessionPending,
		CreatedAt:      now,
		UpdatedAt:      now,
		ExpiresAt:      now.Add(s.opts.TTL),
	}

	// duplicate tokens are retried
	var err error
	for i := 0; i < tokenAttempts; i++ {
		if sess.Token, err = utils.NewSessionToken(); err != nil {
			return nil, utils.E(utils.CodeInternal, op, "failed to generate token", err)
		}
		if err = s.sessions.Create(ctx, sess); !errors.Is(err, utils.ErrConflict) {
			break
		}
	}
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to store session", err)
	}
	return sess, nil
}

func (s *sessionService) Get(ctx context.Context, token string) (*models.Session, error) {
	const op = "SessionService.Get"

	token = strings.TrimSpace(token)
	if token == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "Missing token", nil)
	}
	if !utils.ValidSessionToken(token) {
		return nil, utils.E(utils.CodeNotFound, op, "Interview not found", utils.ErrNotFound)
	}

	var cached models.Session
	hit, err := s.cache.GetJSON(ctx, cache.SessionKey(token), &cached)
	if err != nil {
		s.log.WithError(err).Warn("session cache read failed")
	}
	if hit && !cached.Expired(s.opts.Now()) {
		return &cached, nil
	}

	out, err := s.sessions.GetByToken(ctx, token)
	if err != nil {
		if errors.Is(err, utils.ErrNotFound) {
			return nil, utils.E(utils.CodeNotFound, op, "Interview not found", err)
		}
		return nil, utils.E(utils.CodeInternal, op, "failed to get session", err)
	}

	ttl := s.opts.CacheTTL
	if left := out.ExpiresAt.Sub(s.opts.Now()); !out.ExpiresAt.IsZero() && left < ttl {
		ttl = left
	}
	if err := s.cache.SetJSON(ctx, cache.SessionKey(token), out, ttl); err != nil {
		s.log.WithError(err).Warn("session cache write failed")
	}
	return out, nil
}

func (s *sessionService) Touch(ctx context.Context, token string) error {
	const op = "SessionService.Touch"

	if err := s.sessions.Touch(ctx, token, s.opts.Now().UTC()); err != nil {
		return s.wrap(op, "failed to touch session", err)
	}
	return nil
}

func (s *sessionService) MarkStatus(ctx context.Context, token string, status models.SessionStatus) error {
	const op = "SessionService.MarkStatus"

	switch status {
	case models.SessionPending, models.SessionInProgress, models.SessionCompleted:
	default:
		return utils.E(utils.CodeInvalidArgument, op, "unknown status", nil)
	}
	if err := s.sessions.SetStatus(ctx, token, status); err != nil {
		return s.wrap(op, "failed to set status", err)
	}
	s.invalidate(ctx, token)
	return nil
}

func (s *sessionService) Delete(ctx context.Context, token string) error {
	const op = "SessionService.Delete"

	if !utils.ValidSessionToken(token) {
		return utils.E(utils.CodeNotFound, op, "Interview not found", utils.ErrNotFound)
	}
	if err := s.sessions.Delete(ctx, token); err != nil {
		return s.wrap(op, "failed to delete session", err)
	}
	s.invalidate(ctx, token)
	return nil
}

func (s *sessionService) invalidate(ctx context.Context, token string) {
	if err := s.cache.Del(ctx, cache.SessionKey(token)); err != nil {
		s.log.WithError(err).WithField("token", token).Warn("session cache invalidation failed")
	}
}

func (s *sessionService) wrap(op, msg string, err error) error {
	if errors.Is(err, utils.ErrNotFound) {
		return utils.E(utils.CodeNotFound, op, "Interview not found", err)
	}
	return utils.E(utils.CodeInternal, op, msg, err)
}
