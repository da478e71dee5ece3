package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/d60-Lab/travel-tales/internal/apperr"
	"github.com/d60-Lab/travel-tales/internal/model"
	"github.com/d60-Lab/travel-tales/internal/repository"
	"github.com/d60-Lab/travel-tales/pkg/validation"
)

// PostInput 游记可编辑字段
type PostInput struct {
	Title       string `validate:"notblank,max=256"`
	Content     string `validate:"notblank,max=5000"`
	DateOfVisit string `validate:"notblank,max=32"`
	CountryName string `validate:"notblank,max=128"`
}

func (in *PostInput) normalize() error {
	in.Title = strings.TrimSpace(in.Title)
	in.Content = strings.TrimSpace(in.Content)
	in.DateOfVisit = strings.TrimSpace(in.DateOfVisit)
	in.CountryName = strings.TrimSpace(in.CountryName)
	if err := validation.Struct(in); err != nil {
		return fmt.Errorf("%w: %v", apperr.ErrInvalidInput, err)
	}
	return nil
}

// Vote 当前用户对游记的投票
type Vote string

const (
	NoVote      Vote = ""
	VoteLike    Vote = "like"
	VoteDislike Vote = "dislike"
)

// PostService 游记增删改查与点赞；所有权由调用方先行校验
type PostService interface {
	Create(ctx context.Context, authorID uint, in PostInput) (*model.Post, error)
	Get(ctx context.Context, id uint) (*model.PostView, error)
	ListByAuthor(ctx context.Context, authorID uint) ([]model.PostView, error)
	Update(ctx context.Context, id uint, in PostInput) error
	Delete(ctx context.Context, id uint) error
	Like(ctx context.Context, userID, postID uint) error
	Dislike(ctx context.Context, userID, postID uint) error
	ViewerVote(ctx context.Context, userID, postID uint) (Vote, error)
}

type postService struct {
	posts repository.PostRepository
	likes repository.LikeRepository
}

func NewPostService(posts repository.PostRepository, likes repository.LikeRepository) PostService {
	return &postService{posts: posts, likes: likes}
}

func (s *postService) Create(ctx context.Context, authorID uint, in PostInput) (*model.Post, error) {
	if err := in.normalize(); err != nil {
		return nil, err
	}
	p := &model.Post{
		UserID:      authorID,
		Title:       in.Title,
		Content:     in.Content,
		DateOfVisit: in.DateOfVisit,
		CountryName: in.CountryName,
	}
	if err := s.posts.Create(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *postService) Get(ctx context.Context, id uint) (*model.PostView, error) {
	return s.posts.GetView(ctx, id)
}

func (s *postService) ListByAuthor(ctx context.Context, authorID uint) ([]model.PostView, error) {
	return s.posts.ListByAuthor(ctx, authorID)
}

func (s *postService) Update(ctx context.Context, id uint, in PostInput) error {
	if err := in.normalize(); err != nil {
		return err
	}
	return s.posts.Update(ctx, id, repository.PostFields{
		Title:       in.Title,
		Content:     in.Content,
		DateOfVisit: in.DateOfVisit,
		CountryName: in.CountryName,
	})
}

func (s *postService) Delete(ctx context.Context, id uint) error {
	return s.posts.Delete(ctx, id)
}

func (s *postService) Like(ctx context.Context, userID, postID uint) error {
	return s.vote(ctx, userID, postID, true)
}

func (s *postService) Dislike(ctx context.Context, userID, postID uint) error {
	return s.vote(ctx, userID, postID, false)
}

func (s *postService) vote(ctx context.Context, userID, postID uint, isLike bool) error {
	ok, err := s.posts.Exists(ctx, postID)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("post %d: %w", postID, apperr.ErrNotFound)
	}
	return s.likes.Upsert(ctx, userID, postID, isLike)
}

func (s *postService) ViewerVote(ctx context.Context, userID, postID uint) (Vote, error) {
	l, err := s.likes.Get(ctx, userID, postID)
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		return NoVote, nil
	case err != nil:
		return NoVote, err
	case l.IsLike:
		return VoteLike, nil
	default:
		return VoteDislike, nil
	}
}
