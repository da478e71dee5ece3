package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/d60-Lab/travel-tales/internal/apperr"
	"github.com/d60-Lab/travel-tales/internal/model"
)

// PostOrder 首页排序方式
type PostOrder string

const (
	OrderNewest        PostOrder = "newest"
	OrderMostLiked     PostOrder = "most_liked"
	OrderMostCommented PostOrder = "most_commented"
)

// 计数每次读取时用关联子查询实时计算，不做缓存
const postViewColumns = `p.*, u.name AS author_name, u.surname AS author_surname,
	(SELECT COUNT(*) FROM liked_posts l WHERE l.post_id = p.id AND l.is_like) AS likes,
	(SELECT COUNT(*) FROM liked_posts l WHERE l.post_id = p.id AND NOT l.is_like) AS dislikes,
	(SELECT COUNT(*) FROM comments c WHERE c.post_id = p.id) AS comment_count`

// PostFields 可编辑字段，作者不在其中
type PostFields struct {
	Title       string
	Content     string
	DateOfVisit string
	CountryName string
}

type PostRepository interface {
	Create(ctx context.Context, p *model.Post) error
	GetView(ctx context.Context, id uint) (*model.PostView, error)
	Update(ctx context.Context, id uint, f PostFields) error
	Delete(ctx context.Context, id uint) error
	OwnerID(ctx context.Context, id uint) (uint, error)
	Exists(ctx context.Context, id uint) (bool, error)
	ListRanked(ctx context.Context, order PostOrder, offset, limit int) ([]model.PostView, error)
	ListByAuthor(ctx context.Context, authorID uint) ([]model.PostView, error)
	Count(ctx context.Context) (int64, error)
}

type postRepository struct {
	db *gorm.DB
}

func NewPostRepository(db *gorm.DB) PostRepository { return &postRepository{db: db} }

func (r *postRepository) views(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Table("posts AS p").
		Select(postViewColumns).
		Joins("JOIN users AS u ON u.id = p.user_id")
}

func (r *postRepository) Create(ctx context.Context, p *model.Post) error {
	return r.db.WithContext(ctx).Create(p).Error
}

func (r *postRepository) GetView(ctx context.Context, id uint) (*model.PostView, error) {
	var v []model.PostView
	if err := r.views(ctx).Where("p.id = ?", id).Limit(1).Scan(&v).Error; err != nil {
		return nil, err
	}
	if len(v) == 0 {
		return nil, fmt.Errorf("post %d: %w", id, apperr.ErrNotFound)
	}
	return &v[0], nil
}

func (r *postRepository) Update(ctx context.Context, id uint, f PostFields) error {
	res := r.db.WithContext(ctx).
		Model(&model.Post{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"title":         f.Title,
			"content":       f.Content,
			"date_of_visit": f.DateOfVisit,
			"country_name":  f.CountryName,
			"updated_at":    time.Now(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("post %d: %w", id, apperr.ErrNotFound)
	}
	return nil
}

// Delete 在同一事务中删除帖子及其点赞、评论
func (r *postRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("post_id = ?", id).Delete(&model.Like{}).Error; err != nil {
			return err
		}
		if err := tx.Where("post_id = ?", id).Delete(&model.Comment{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&model.Post{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("post %d: %w", id, apperr.ErrNotFound)
		}
		return nil
	})
}

func (r *postRepository) OwnerID(ctx context.Context, id uint) (uint, error) {
	var p model.Post
	if err := r.db.WithContext(ctx).Select("id", "user_id").First(&p, id).Error; err != nil {
		return 0, notFound(err, "post %d", id)
	}
	return p.UserID, nil
}

func (r *postRepository) Exists(ctx context.Context, id uint) (bool, error) {
	var cnt int64
	if err := r.db.WithContext(ctx).Model(&model.Post{}).Where("id = ?", id).Count(&cnt).Error; err != nil {
		return false, err
	}
	return cnt > 0, nil
}

// ListRanked 排序分页；同值时按存储顺序（newest 以 id 倒序兜底）
func (r *postRepository) ListRanked(ctx context.Context, order PostOrder, offset, limit int) ([]model.PostView, error) {
	res := make([]model.PostView, 0, limit)
	err := r.views(ctx).
		Order(orderClause(order)).
		Offset(offset).
		Limit(limit).
		Scan(&res).Error
	return res, err
}

func (r *postRepository) ListByAuthor(ctx context.Context, authorID uint) ([]model.PostView, error) {
	res := make([]model.PostView, 0)
	err := r.views(ctx).
		Where("p.user_id = ?", authorID).
		Order(orderClause(OrderNewest)).
		Scan(&res).Error
	return res, err
}

func (r *postRepository) Count(ctx context.Context) (int64, error) {
	var cnt int64
	err := r.db.WithContext(ctx).Model(&model.Post{}).Count(&cnt).Error
	return cnt, err
}

func orderClause(order PostOrder) string {
	switch order {
	case OrderMostLiked:
		return "likes DESC, p.id ASC"
	case OrderMostCommented:
		return "comment_count DESC, p.id ASC"
	default:
		return "p.created_at DESC, p.id DESC"
	}
}
