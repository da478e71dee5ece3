package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/d60-Lab/travel-tales/internal/apperr"
	"github.com/d60-Lab/travel-tales/internal/model"
	"github.com/d60-Lab/travel-tales/internal/repository"
	"github.com/d60-Lab/travel-tales/pkg/logger"
	"github.com/d60-Lab/travel-tales/pkg/metrics"
)

// FollowResult distinguishes a new edge from an existing one. Both are success.
type FollowResult int

const (
	FollowCreated FollowResult = iota + 1
	AlreadyFollowing
)

func (r FollowResult) String() string {
	if r == AlreadyFollowing {
		return "already_following"
	}
	return "followed"
}

// FollowingCache is an optional read-through cache for FollowingSet.
type FollowingCache interface {
	Load(ctx context.Context, viewerID uint) ([]uint, bool, error)
	Store(ctx context.Context, viewerID uint, ids []uint) error
	Add(ctx context.Context, viewerID, followedID uint) error
}

// SocialGraph 关注关系；没有取消关注
type SocialGraph interface {
	Follow(ctx context.Context, followerID, followedID uint) (FollowResult, error)
	Followers(ctx context.Context, userID uint) ([]model.UserSummary, error)
	Following(ctx context.Context, userID uint) ([]model.UserSummary, error)
	IsFollowing(ctx context.Context, followerID, followedID uint) (bool, error)
	// FollowingSet returns the ids viewerID follows, for O(1) annotation.
	FollowingSet(ctx context.Context, viewerID uint) (map[uint]bool, error)
}

type socialGraph struct {
	follows repository.FollowRepository
	users   repository.UserRepository
	cache   FollowingCache
}

// NewSocialGraph builds the graph service; cache may be nil.
func NewSocialGraph(follows repository.FollowRepository, users repository.UserRepository, cache FollowingCache) SocialGraph {
	return &socialGraph{follows: follows, users: users, cache: cache}
}

func (s *socialGraph) Follow(ctx context.Context, followerID, followedID uint) (FollowResult, error) {
	if followerID == followedID {
		return 0, apperr.ErrSelfFollow
	}
	if err := s.mustExist(ctx, followedID); err != nil {
		return 0, err
	}
	created, err := s.follows.Create(ctx, followerID, followedID)
	if err != nil {
		return 0, fmt.Errorf("follow %d->%d: %w", followerID, followedID, err)
	}
	if !created {
		return AlreadyFollowing, nil
	}
	if s.cache != nil {
		if err := s.cache.Add(ctx, followerID, followedID); err != nil {
			logger.Warn("following cache add failed", zap.Uint("user", followerID), zap.Error(err))
		}
	}
	return FollowCreated, nil
}

func (s *socialGraph) Followers(ctx context.Context, userID uint) ([]model.UserSummary, error) {
	if err := s.mustExist(ctx, userID); err != nil {
		return nil, err
	}
	return s.follows.ListFollowers(ctx, userID)
}

func (s *socialGraph) Following(ctx context.Context, userID uint) ([]model.UserSummary, error) {
	if err := s.mustExist(ctx, userID); err != nil {
		return nil, err
	}
	return s.follows.ListFollowing(ctx, userID)
}

func (s *socialGraph) IsFollowing(ctx context.Context, followerID, followedID uint) (bool, error) {
	return s.follows.Exists(ctx, followerID, followedID)
}

func (s *socialGraph) FollowingSet(ctx context.Context, viewerID uint) (map[uint]bool, error) {
	if s.cache != nil {
		ids, ok, err := s.cache.Load(ctx, viewerID)
		switch {
		case err != nil:
			metrics.RecordCacheLookup("error")
			logger.Warn("following cache load failed", zap.Uint("user", viewerID), zap.Error(err))
		case ok:
			metrics.RecordCacheLookup("hit")
			return toSet(ids), nil
		default:
			metrics.RecordCacheLookup("miss")
		}
	}

	ids, err := s.follows.FollowedIDs(ctx, viewerID)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		if err := s.cache.Store(ctx, viewerID, ids); err != nil {
			logger.Warn("following cache store failed", zap.Uint("user", viewerID), zap.Error(err))
		}
	}
	return toSet(ids), nil
}

func (s *socialGraph) mustExist(ctx context.Context, userID uint) error {
	ok, err := s.users.Exists(ctx, userID)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("user %d: %w", userID, apperr.ErrNotFound)
	}
	return nil
}

func toSet(ids []uint) map[uint]bool {
	set := make(map[uint]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}
