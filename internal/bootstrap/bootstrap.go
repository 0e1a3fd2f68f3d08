// Package bootstrap wires configuration into stores, providers and services.
// The HTTP server and the interviewctl CLI share it.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/yoockh/yoointerview/config"
	"github.com/yoockh/yoointerview/internal/cache"
	"github.com/yoockh/yoointerview/internal/evaluation"
	"github.com/yoockh/yoointerview/internal/extract"
	"github.com/yoockh/yoointerview/internal/logger"
	"github.com/yoockh/yoointerview/internal/models"
	"github.com/yoockh/yoointerview/internal/providers/llm"
	"github.com/yoockh/yoointerview/internal/providers/notify"
	"github.com/yoockh/yoointerview/internal/providers/stt"
	"github.com/yoockh/yoointerview/internal/questions"
	"github.com/yoockh/yoointerview/internal/repositories"
	"github.com/yoockh/yoointerview/internal/repositories/memory"
	mongorepo "github.com/yoockh/yoointerview/internal/repositories/mongo"
	pgrepo "github.com/yoockh/yoointerview/internal/repositories/postgres"
	"github.com/yoockh/yoointerview/internal/services"
	"github.com/yoockh/yoointerview/internal/storage"
	"github.com/yoockh/yoointerview/internal/workers"
)

type Container struct {
	Config *config.AppConfig
	Log    *logrus.Logger
	Redis  *redis.Client // nil when REDIS_ADDR is unset

	Questions     *questions.Generator
	Sessions      services.SessionService
	Invitations   services.InvitationService
	Evaluations   services.EvaluationService
	Transcription services.TranscriptionService // nil when STT is disabled

	memSessions *memory.SessionRepo
	closers     []func() error
}

// Build connects every configured backend. Optional backends left unset
// degrade to in-process fallbacks.
func Build(ctx context.Context, cfg *config.AppConfig, log *logrus.Logger) (*Container, error) {
	c := &Container{Config: cfg, Log: log}
	ok := false
	defer func() {
		if !ok {
			c.Close()
		}
	}()

	if err := extract.SetLicense(cfg.UnidocLicenseKey); err != nil {
		log.WithError(err).Warn("unidoc license rejected, pdf extraction may fall back to printable text")
	}

	// Redis
	var sessionCache cache.Cache = cache.Noop{}
	if cfg.RedisAddr != "" {
		if err := config.InitRedis(cfg.RedisAddr); err != nil {
			return nil, fmt.Errorf("redis: %w", err)
		}
		c.Redis = config.RedisClient
		c.closers = append(c.closers, c.Redis.Close)
		sessionCache = cache.NewRedisCache(c.Redis)
		log.Info("redis connected")
	}

	// Mongo
	var (
		sessionRepo repositories.SessionRepository
		chunkRepo   repositories.AudioChunkRepository
	)
	if cfg.MongoURI != "" {
		if err := config.InitMongo(cfg.MongoURI); err != nil {
			return nil, fmt.Errorf("mongo: %w", err)
		}
		client := config.MongoClient
		c.closers = append(c.closers, func() error { return client.Disconnect(context.Background()) })

		db := client.Database(cfg.MongoDB)
		if err := config.EnsureMongoIndexes(ctx, db, mongorepo.SessionsCollection, mongorepo.AudioChunksCollection); err != nil {
			return nil, fmt.Errorf("mongo indexes: %w", err)
		}
		chunkRepo = mongorepo.NewAudioChunkRepo(db)
		if cfg.SessionStore == "mongo" {
			sessionRepo = mongorepo.NewSessionRepo(db)
		}
		log.Info("mongodb connected")
	}
	if sessionRepo == nil {
		c.memSessions = memory.NewSessionRepo()
		sessionRepo = c.memSessions
	}

	// Postgres
	var (
		evalRepo   repositories.EvaluationRepository
		resumeRepo repositories.ResumeFileRepository
	)
	if cfg.PostgresURI != "" {
		if err := config.InitPostgres(cfg.PostgresURI, logger.NewGormLogger(log)); err != nil {
			return nil, fmt.Errorf("postgres: %w", err)
		}
		evalRepo = pgrepo.NewEvaluationRepo(config.PostgresDB)
		resumeRepo = pgrepo.NewResumeFileRepo(config.PostgresDB)
		if sqlDB, err := config.PostgresDB.DB(); err == nil {
			c.closers = append(c.closers, sqlDB.Close)
		}
		log.Info("postgresql connected")
	}

	// LLM
	provider, err := llm.New(ctx, llm.Config{
		Provider:       cfg.LLMProvider,
		Model:          cfg.LLMModel,
		Timeout:        cfg.LLMTimeout,
		GeminiAPIKey:   cfg.GeminiAPIKey,
		VertexProject:  cfg.VertexProject,
		VertexLocation: cfg.VertexLocation,
		OpenAIAPIKey:   cfg.OpenAIAPIKey,
		OpenAIBaseURL:  cfg.OpenAIBaseURL,
		OpenAIModel:    cfg.OpenAIModel,
	})
	if err != nil {
		return nil, fmt.Errorf("llm: %w", err)
	}
	var (
		questionLLM questions.Completer
		evalLLM     evaluation.Completer
	)
	if provider != nil {
		questionLLM, evalLLM = provider, provider
		c.closers = append(c.closers, provider.Close)
		log.WithField("provider", provider.Name()).Info("llm ready")
	} else {
		log.Warn("no llm provider configured, questions and evaluations use fallbacks")
	}

	notifier, err := newNotifier(cfg, log)
	if err != nil {
		return nil, fmt.Errorf("notify: %w", err)
	}
	if cl, isCloser := notifier.(interface{ Close() error }); isCloser {
		c.closers = append(c.closers, cl.Close)
	}

	var uploader storage.Uploader
	if cfg.GCSBucket != "" {
		u, err := storage.NewGCSUploader(ctx, cfg.GCSBucket)
		if err != nil {
			return nil, fmt.Errorf("gcs: %w", err)
		}
		uploader = u
		c.closers = append(c.closers, u.Close)
	}

	c.Questions = questions.NewGenerator(questionLLM, log, cfg.LLMTimeout)
	c.Sessions = services.NewSessionService(sessionRepo, sessionCache, log, services.SessionOptions{
		TTL:      cfg.SessionTTL,
		CacheTTL: cfg.SessionCacheTTL,
	})
	c.Invitations = services.NewInvitationService(services.InvitationDeps{
		Sessions:    c.Sessions,
		Extractor:   extract.New(log),
		Notifier:    notifier,
		Uploader:    uploader,
		ResumeFiles: resumeRepo,
		Link:        cfg.InterviewLink,
		Questions:   cfg.NumQuestions,
	}, log)
	c.Evaluations = services.NewEvaluationService(c.Sessions,
		evaluation.NewEvaluator(evalLLM, nil, log, cfg.LLMTimeout), evalRepo, log)

	if cfg.STTEnabled {
		sp, err := stt.NewGoogleSpeech(ctx)
		if err != nil {
			return nil, fmt.Errorf("speech-to-text: %w", err)
		}
		c.closers = append(c.closers, sp.Close)

		var queue services.AudioQueue
		if c.Redis != nil {
			queue = &workers.RedisAudioQueue{Redis: c.Redis}
		}
		c.Transcription = services.NewTranscriptionService(c.Sessions, sp, chunkRepo, queue, log)
	}

	ok = true
	return c, nil
}

func newNotifier(cfg *config.AppConfig, log *logrus.Logger) (notify.Notifier, error) {
	switch strings.ToLower(cfg.NotifyTransport) {
	case "smtp":
		return notify.NewSMTPNotifier(notify.SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUser,
			Password: cfg.SMTPPass,
			From:     cfg.SMTPFrom,
			SSL:      cfg.SMTPSSL,
		})
	case "amqp":
		return notify.NewAMQPNotifier(cfg.RabbitMQURL, cfg.RabbitMQQueue)
	case "log", "":
		return notify.NewLogNotifier(log), nil
	default:
		return nil, fmt.Errorf("unknown notify transport %q", cfg.NotifyTransport)
	}
}

// Start runs the background work: the in-memory janitor and, with Redis and
// STT both configured, the transcription consumers.
func (c *Container) Start(ctx context.Context) error {
	if c.memSessions != nil {
		c.memSessions.StartJanitor(ctx, 0, func(n int) {
			c.Log.WithField("removed", n).Info("expired sessions swept")
		})
	}
	if c.Redis != nil && c.Transcription != nil {
		// replicas must not share consumer names within the group
		host, _ := os.Hostname()
		pool := &workers.TranscriptionWorkerPool{
			Redis:          c.Redis,
			Transcription:  c.Transcription,
			NumWorkers:     c.Config.STTWorkers,
			Logger:         c.Log,
			ConsumerPrefix: host,
		}
		if err := pool.Start(ctx); err != nil {
			return err
		}
	}
	return nil
}

func (c *Container) Admin() models.Admin {
	return models.Admin{Username: c.Config.AdminUsername, PasswordHash: c.Config.AdminPasswordHash}
}

// Close releases connections in reverse order of acquisition.
func (c *Container) Close() error {
	var errs []error
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	c.closers = nil
	return errors.Join(errs...)
}
