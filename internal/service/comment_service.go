package service

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/d60-Lab/travel-tales/internal/apperr"
	"github.com/d60-Lab/travel-tales/internal/model"
	"github.com/d60-Lab/travel-tales/internal/repository"
)

const maxCommentRunes = 1000

type CommentPage struct {
	Comments   []model.CommentView `json:"comments"`
	Pagination Pagination          `json:"pagination"`
}

type CommentService interface {
	Create(ctx context.Context, userID, postID uint, content string) (*model.Comment, error)
	ListByPost(ctx context.Context, postID uint, page, limit int) (*CommentPage, error)
}

type commentService struct {
	comments repository.CommentRepository
	posts    repository.PostRepository
}

func NewCommentService(comments repository.CommentRepository, posts repository.PostRepository) CommentService {
	return &commentService{comments: comments, posts: posts}
}

func (s *commentService) Create(ctx context.Context, userID, postID uint, content string) (*model.Comment, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, fmt.Errorf("%w: content is required", apperr.ErrInvalidInput)
	}
	if utf8.RuneCountInString(content) > maxCommentRunes {
		return nil, fmt.Errorf("%w: content must be at most %d characters", apperr.ErrInvalidInput, maxCommentRunes)
	}
	if err := s.postExists(ctx, postID); err != nil {
		return nil, err
	}
	c := &model.Comment{PostID: postID, UserID: userID, Content: content}
	if err := s.comments.Create(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// ListByPost 最新评论在前，分页规则同首页
func (s *commentService) ListByPost(ctx context.Context, postID uint, page, limit int) (*CommentPage, error) {
	if err := s.postExists(ctx, postID); err != nil {
		return nil, err
	}
	page, limit = NormalizePage(page, limit)
	items, err := s.comments.ListByPost(ctx, postID, (page-1)*limit, limit)
	if err != nil {
		return nil, err
	}
	total, err := s.comments.CountByPost(ctx, postID)
	if err != nil {
		return nil, err
	}
	return &CommentPage{
		Comments:   items,
		Pagination: Pagination{Total: total, Page: page, Limit: limit, TotalPages: TotalPages(total, limit)},
	}, nil
}

func (s *commentService) postExists(ctx context.Context, postID uint) error {
	ok, err := s.posts.Exists(ctx, postID)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("post %d: %w", postID, apperr.ErrNotFound)
	}
	return nil
}
