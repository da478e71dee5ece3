package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/d60-Lab/travel-tales/internal/apperr"
	"github.com/d60-Lab/travel-tales/internal/model"
)

type APIKeyRepository interface {
	Create(ctx context.Context, k *model.APIKey) error
	IsActive(ctx context.Context, key string) (bool, error)
	List(ctx context.Context) ([]model.APIKey, error)
	Deactivate(ctx context.Context, id uint) error
}

type apiKeyRepository struct {
	db *gorm.DB
}

func NewAPIKeyRepository(db *gorm.DB) APIKeyRepository { return &apiKeyRepository{db: db} }

func (r *apiKeyRepository) Create(ctx context.Context, k *model.APIKey) error {
	return r.db.WithContext(ctx).Create(k).Error
}

func (r *apiKeyRepository) IsActive(ctx context.Context, key string) (bool, error) {
	var cnt int64
	if err := r.db.WithContext(ctx).
		Model(&model.APIKey{}).
		Where("api_key = ? AND active = ?", key, true).
		Count(&cnt).Error; err != nil {
		return false, err
	}
	return cnt > 0, nil
}

func (r *apiKeyRepository) List(ctx context.Context) ([]model.APIKey, error) {
	res := make([]model.APIKey, 0)
	err := r.db.WithContext(ctx).Order("id ASC").Find(&res).Error
	return res, err
}

func (r *apiKeyRepository) Deactivate(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Model(&model.APIKey{}).Where("id = ?", id).Update("active", false)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("api key %d: %w", id, apperr.ErrNotFound)
	}
	return nil
}
