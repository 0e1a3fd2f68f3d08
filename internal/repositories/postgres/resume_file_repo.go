package postgres

import (
	"context"
	"errors"

	"github.com/yoockh/yoointerview/internal/models"
	"github.com/yoockh/yoointerview/internal/repositories"
	"github.com/yoockh/yoointerview/internal/utils"
	"gorm.io/gorm"
)

type resumeFileRepo struct {
	db *gorm.DB
}

func NewResumeFileRepo(db *gorm.DB) repositories.ResumeFileRepository {
	return &resumeFileRepo{db: db}
}

func (r *resumeFileRepo) Insert(ctx context.Context, f *models.ResumeFile) error {
	return r.db.WithContext(ctx).Create(f).Error
}

func (r *resumeFileRepo) LatestByToken(ctx context.Context, token string) (*models.ResumeFile, error) {
	var row models.ResumeFile
	err := latestResumeFile(r.db.WithContext(ctx), token, &row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, utils.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func latestResumeFile(tx *gorm.DB, token string, dst *models.ResumeFile) *gorm.DB {
	return tx.Where("token = ?", token).Order("upload_at DESC").Take(dst)
}
