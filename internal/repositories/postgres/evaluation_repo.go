package postgres

import (
	"context"
	"errors"

	"github.com/yoockh/yoointerview/internal/models"
	"github.com/yoockh/yoointerview/internal/repositories"
	"github.com/yoockh/yoointerview/internal/utils"
	"gorm.io/gorm"
)

type evaluationRepo struct {
	db *gorm.DB
}

func NewEvaluationRepo(db *gorm.DB) repositories.EvaluationRepository {
	return &evaluationRepo{db: db}
}

// SaveResult replaces any earlier transcript for the token and appends the evaluation.
func (r *evaluationRepo) SaveResult(ctx context.Context, token string, transcript []models.TranscriptEntry, ev *models.EvaluationRecord) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := clearTranscript(tx, token).Error; err != nil {
			return err
		}
		if len(transcript) > 0 {
			if err := tx.Create(&transcript).Error; err != nil {
				return err
			}
		}
		return tx.Create(ev).Error
	})
}

func (r *evaluationRepo) LatestByToken(ctx context.Context, token string) (*models.EvaluationRecord, error) {
	var row models.EvaluationRecord
	err := latestEvaluation(r.db.WithContext(ctx), token, &row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, utils.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *evaluationRepo) TranscriptByToken(ctx context.Context, token string) ([]models.TranscriptEntry, error) {
	var rows []models.TranscriptEntry
	err := transcriptInOrder(r.db.WithContext(ctx), token, &rows).Error
	return rows, err
}

func clearTranscript(tx *gorm.DB, token string) *gorm.DB {
	return tx.Where("token = ?", token).Delete(&models.TranscriptEntry{})
}

func latestEvaluation(tx *gorm.DB, token string, dst *models.EvaluationRecord) *gorm.DB {
	return tx.Where("token = ?", token).Order("created_at DESC").Take(dst)
}

func transcriptInOrder(tx *gorm.DB, token string, dst *[]models.TranscriptEntry) *gorm.DB {
	return tx.Where("token = ?", token).Order("position ASC").Find(dst)
}
