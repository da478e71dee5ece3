package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/d60-Lab/travel-tales/internal/model"
)

type FollowRepository interface {
	// Create reports whether a new edge was written; false means it already existed.
	Create(ctx context.Context, followerID, followedID uint) (bool, error)
	Exists(ctx context.Context, followerID, followedID uint) (bool, error)
	ListFollowers(ctx context.Context, userID uint) ([]model.UserSummary, error)
	ListFollowing(ctx context.Context, userID uint) ([]model.UserSummary, error)
	FollowedIDs(ctx context.Context, followerID uint) ([]uint, error)
}

type followRepository struct {
	db *gorm.DB
}

func NewFollowRepository(db *gorm.DB) FollowRepository { return &followRepository{db: db} }

func (r *followRepository) Create(ctx context.Context, followerID, followedID uint) (bool, error) {
	f := &model.Follow{FollowerID: followerID, FollowedID: followedID}
	// 幂等：重复关注不报错，RowsAffected=0 表示已关注
	res := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(f)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *followRepository) Exists(ctx context.Context, followerID, followedID uint) (bool, error) {
	var cnt int64
	if err := r.db.WithContext(ctx).
		Model(&model.Follow{}).
		Where("follower_id = ? AND followed_id = ?", followerID, followedID).
		Count(&cnt).Error; err != nil {
		return false, err
	}
	return cnt > 0, nil
}

// ListFollowers 关注 userID 的人
func (r *followRepository) ListFollowers(ctx context.Context, userID uint) ([]model.UserSummary, error) {
	return r.listJoined(ctx, "f.follower_id", "f.followed_id = ?", userID)
}

// ListFollowing userID 关注的人
func (r *followRepository) ListFollowing(ctx context.Context, userID uint) ([]model.UserSummary, error) {
	return r.listJoined(ctx, "f.followed_id", "f.follower_id = ?", userID)
}

func (r *followRepository) listJoined(ctx context.Context, joinCol, where string, userID uint) ([]model.UserSummary, error) {
	res := make([]model.UserSummary, 0)
	err := r.db.WithContext(ctx).
		Table("follows AS f").
		Select("u.id, u.name, u.surname, u.email").
		Joins("JOIN users AS u ON u.id = "+joinCol).
		Where(where, userID).
		Order("f.id DESC").
		Scan(&res).Error
	return res, err
}

func (r *followRepository) FollowedIDs(ctx context.Context, followerID uint) ([]uint, error) {
	var ids []uint
	err := r.db.WithContext(ctx).
		Model(&model.Follow{}).
		Where("follower_id = ?", followerID).
		Pluck("followed_id", &ids).Error
	return ids, err
}
