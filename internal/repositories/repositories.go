// Package repositories declares the storage ports shared by the backends.
package repositories

import (
	"context"
	"time"

	"github.com/yoockh/yoointerview/internal/models"
)

// SessionRepository returns utils.ErrNotFound for unknown or expired tokens
// and utils.ErrConflict when a token is inserted twice.
type SessionRepository interface {
	Create(ctx context.Context, s *models.Session) error
	GetByToken(ctx context.Context, token string) (*models.Session, error)
	Touch(ctx context.Context, token string, at time.Time) error
	SetStatus(ctx context.Context, token string, status models.SessionStatus) error
	Delete(ctx context.Context, token string) error
}

type AudioChunkRepository interface {
	InsertChunk(ctx context.Context, c *models.AudioChunk) error
	UpdateSTT(ctx context.Context, token string, opID, chunkIndex int64, transcript string, confidence float64, status string, processingMS int64) error
	ListByOp(ctx context.Context, token string, opID int64) ([]models.AudioChunk, error)
}

type ResumeFileRepository interface {
	Insert(ctx context.Context, f *models.ResumeFile) error
	LatestByToken(ctx context.Context, token string) (*models.ResumeFile, error)
}

type EvaluationRepository interface {
	SaveResult(ctx context.Context, token string, transcript []models.TranscriptEntry, ev *models.EvaluationRecord) error
	LatestByToken(ctx context.Context, token string) (*models.EvaluationRecord, error)
	TranscriptByToken(ctx context.Context, token string) ([]models.TranscriptEntry, error)
}
