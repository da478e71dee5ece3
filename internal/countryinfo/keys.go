package countryinfo

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/d60-Lab/travel-tales/internal/apperr"
	"github.com/d60-Lab/travel-tales/internal/model"
	"github.com/d60-Lab/travel-tales/internal/repository"
)

// KeyService 管理 API key；demoKey 非空时总是有效
type KeyService struct {
	repo    repository.APIKeyRepository
	demoKey string
}

func NewKeyService(repo repository.APIKeyRepository, demoKey string) *KeyService {
	return &KeyService{repo: repo, demoKey: demoKey}
}

func (s *KeyService) Valid(ctx context.Context, key string) (bool, error) {
	if key == "" {
		return false, nil
	}
	if s.demoKey != "" && key == s.demoKey {
		return true, nil
	}
	return s.repo.IsActive(ctx, key)
}

// Issue creates a new active key for owner.
func (s *KeyService) Issue(ctx context.Context, owner string) (*model.APIKey, error) {
	owner = strings.TrimSpace(owner)
	if owner == "" {
		return nil, fmt.Errorf("%w: owner is required", apperr.ErrInvalidInput)
	}
	k := &model.APIKey{Key: uuid.NewString(), Owner: owner, Active: true}
	if err := s.repo.Create(ctx, k); err != nil {
		return nil, err
	}
	return k, nil
}

func (s *KeyService) List(ctx context.Context) ([]model.APIKey, error) {
	return s.repo.List(ctx)
}

func (s *KeyService) Deactivate(ctx context.Context, id uint) error {
	return s.repo.Deactivate(ctx, id)
}
