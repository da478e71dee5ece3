package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/d60-Lab/travel-tales/internal/model"
)

type LikeRepository interface {
	// Upsert 一条语句完成写入或覆盖，后写者生效
	Upsert(ctx context.Context, userID, postID uint, isLike bool) error
	Get(ctx context.Context, userID, postID uint) (*model.Like, error)
}

type likeRepository struct {
	db *gorm.DB
}

func NewLikeRepository(db *gorm.DB) LikeRepository { return &likeRepository{db: db} }

func (r *likeRepository) Upsert(ctx context.Context, userID, postID uint, isLike bool) error {
	now := time.Now()
	l := &model.Like{UserID: userID, PostID: postID, IsLike: isLike, CreatedAt: now, UpdatedAt: now}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "post_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"is_like", "updated_at"}),
	}).Create(l).Error
}

func (r *likeRepository) Get(ctx context.Context, userID, postID uint) (*model.Like, error) {
	var l model.Like
	if err := r.db.WithContext(ctx).Where("user_id = ? AND post_id = ?", userID, postID).First(&l).Error; err != nil {
		return nil, notFound(err, "like %d/%d", userID, postID)
	}
	return &l, nil
}
