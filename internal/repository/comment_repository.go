package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/d60-Lab/travel-tales/internal/model"
)

type CommentRepository interface {
	Create(ctx context.Context, c *model.Comment) error
	OwnerID(ctx context.Context, id uint) (uint, error)
	ListByPost(ctx context.Context, postID uint, offset, limit int) ([]model.CommentView, error)
	CountByPost(ctx context.Context, postID uint) (int64, error)
}

type commentRepository struct {
	db *gorm.DB
}

func NewCommentRepository(db *gorm.DB) CommentRepository { return &commentRepository{db: db} }

func (r *commentRepository) Create(ctx context.Context, c *model.Comment) error {
	return r.db.WithContext(ctx).Create(c).Error
}

func (r *commentRepository) OwnerID(ctx context.Context, id uint) (uint, error) {
	var c model.Comment
	if err := r.db.WithContext(ctx).Select("id", "user_id").First(&c, id).Error; err != nil {
		return 0, notFound(err, "comment %d", id)
	}
	return c.UserID, nil
}

// ListByPost 最新的评论在前
func (r *commentRepository) ListByPost(ctx context.Context, postID uint, offset, limit int) ([]model.CommentView, error) {
	res := make([]model.CommentView, 0, limit)
	err := r.db.WithContext(ctx).
		Table("comments AS c").
		Select("c.*, u.name AS user_name, u.surname AS user_surname").
		Joins("JOIN users AS u ON u.id = c.user_id").
		Where("c.post_id = ?", postID).
		Order("c.created_at DESC, c.id DESC").
		Offset(offset).
		Limit(limit).
		Scan(&res).Error
	return res, err
}

func (r *commentRepository) CountByPost(ctx context.Context, postID uint) (int64, error) {
	var cnt int64
	err := r.db.WithContext(ctx).Model(&model.Comment{}).Where("post_id = ?", postID).Count(&cnt).Error
	return cnt, err
}
