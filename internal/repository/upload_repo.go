package repository

import (
	"context"

	"gorm.io/gorm"

	"go-inventory-sales/internal/model"
)

type UploadRepository interface {
	Create(ctx context.Context, record *model.UploadHistory) error
	FindRecent(ctx context.Context, limit int) ([]model.UploadHistory, error)
}

type uploadRepo struct {
	db *gorm.DB
}

func NewUploadRepo(db *gorm.DB) UploadRepository {
	return &uploadRepo{db}
}

func (r *uploadRepo) Create(ctx context.Context, record *model.UploadHistory) error {
	return r.db.WithContext(ctx).Create(record).Error
}

func (r *uploadRepo) FindRecent(ctx context.Context, limit int) ([]model.UploadHistory, error) {
	records := []model.UploadHistory{}
	err := r.db.WithContext(ctx).Order("created_at DESC").Limit(limit).Find(&records).Error
	return records, err
}
