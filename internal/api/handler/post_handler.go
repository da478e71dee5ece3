package handler

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/d60-Lab/travel-tales/internal/api/middleware"
	"github.com/d60-Lab/travel-tales/internal/api/view"
	"github.com/d60-Lab/travel-tales/internal/apperr"
	"github.com/d60-Lab/travel-tales/internal/client/country"
	"github.com/d60-Lab/travel-tales/internal/model"
	"github.com/d60-Lab/travel-tales/internal/service"
	"github.com/d60-Lab/travel-tales/pkg/logger"
	"github.com/d60-Lab/travel-tales/pkg/response"
)

type postRequest struct {
	Title       string `form:"title" json:"title"`
	Content     string `form:"content" json:"content"`
	DateOfVisit string `form:"date_of_visit" json:"date_of_visit"`
	CountryName string `form:"country_name" json:"country_name"`
}

func (r postRequest) input() service.PostInput {
	return service.PostInput{
		Title:       r.Title,
		Content:     r.Content,
		DateOfVisit: r.DateOfVisit,
		CountryName: r.CountryName,
	}
}

type commentRequest struct {
	Content string `form:"content" json:"content" binding:"notblank"`
}

// postForm 表单页回填的数据
type postForm struct {
	ID          uint
	Title       string
	Content     string
	DateOfVisit string
	CountryName string
}

func formOf(id uint, r postRequest) postForm {
	return postForm{ID: id, Title: r.Title, Content: r.Content, DateOfVisit: r.DateOfVisit, CountryName: r.CountryName}
}

// PostDetail 单篇游记页的 JSON 结构
type PostDetail struct {
	Post           *model.PostView         `json:"post"`
	Comments       *service.CommentPage    `json:"comments"`
	CountryDetails *country.CountryDetails `json:"countryDetails"`
	ViewerVote     service.Vote            `json:"viewerVote,omitempty"`
}

func (h *Handler) NewPostPage(c *gin.Context) {
	view.Page(c, http.StatusOK, "post_form", gin.H{"Post": postForm{}, "Action": "/post"})
}

// CreatePost 发布游记
// @Summary 发布游记
// @Tags posts
// @Accept json,x-www-form-urlencoded
// @Produce json
// @Security BearerAuth
// @Param request body postRequest true "post"
// @Success 201 {object} response.Response{data=model.Post}
// @Failure 400 {object} response.Response
// @Failure 401 {object} response.Response
// @Router /post [post]
func (h *Handler) CreatePost(c *gin.Context) {
	var req postRequest
	if err := c.ShouldBind(&req); err != nil {
		h.authn.Deny(c, bindError(err))
		return
	}
	viewer := middleware.IdentityFrom(c)
	p, err := h.posts.Create(c.Request.Context(), viewer.ID, req.input())
	if err != nil {
		h.formFailed(c, formOf(0, req), "/post", err)
		return
	}
	logger.Info("post created", zap.Uint("post_id", p.ID), zap.Uint("user_id", viewer.ID))
	done(c, true, p, fmt.Sprintf("/post/%d", p.ID))
}

// formFailed re-renders the form for browsers on validation errors.
func (h *Handler) formFailed(c *gin.Context, form postForm, action string, err error) {
	if middleware.WantsJSON(c) || !errors.Is(err, apperr.ErrInvalidInput) {
		h.authn.Deny(c, err)
		return
	}
	view.Page(c, http.StatusBadRequest, "post_form", gin.H{
		"Post":   form,
		"Action": action,
		"Error":  apperr.PublicMessage(err),
	})
}

// GetPost 游记详情：计数、评论分页、国家信息
// @Summary 游记详情
// @Tags posts
// @Produce json
// @Param id path int true "post id"
// @Param page query int false "评论页码" default(1)
// @Param commentsLimit query int false "每页评论数" default(10)
// @Success 200 {object} response.Response{data=PostDetail}
// @Failure 404 {object} response.Response
// @Router /post/{id} [get]
func (h *Handler) GetPost(c *gin.Context) {
	id, ok := h.idParam(c, "id")
	if !ok {
		return
	}
	ctx := c.Request.Context()
	post, err := h.posts.Get(ctx, id)
	if err != nil {
		h.authn.Deny(c, err)
		return
	}
	comments, err := h.comments.ListByPost(ctx, id, queryInt(c, "page"), queryInt(c, "commentsLimit"))
	if err != nil {
		h.authn.Deny(c, err)
		return
	}
	details := h.countryDetails(c, post.CountryName)

	viewer := middleware.IdentityFrom(c)
	var vote service.Vote
	if viewer != nil {
		if vote, err = h.posts.ViewerVote(ctx, viewer.ID, id); err != nil {
			logger.Warn("viewer vote unavailable", zap.Uint("post_id", id), zap.Error(err))
		}
	}

	if middleware.WantsJSON(c) {
		response.Success(c, PostDetail{Post: post, Comments: comments, CountryDetails: details, ViewerVote: vote})
		return
	}
	view.Page(c, http.StatusOK, "post", gin.H{
		"Post":       post,
		"Comments":   comments,
		"Country":    details,
		"ViewerVote": string(vote),
		"IsAuthor":   viewer != nil && viewer.ID == post.UserID,
	})
}

// countryDetails is best effort; the post renders without it.
func (h *Handler) countryDetails(c *gin.Context, name string) *country.CountryDetails {
	if h.countries == nil || name == "" {
		return nil
	}
	d, err := h.countries.Details(c.Request.Context(), name)
	if err != nil {
		logger.Warn("country details unavailable",
			zap.String("country", name),
			zap.Error(err),
			zap.String("request_id", middleware.RequestIDFrom(c)))
		return nil
	}
	return d
}

func (h *Handler) EditPostPage(c *gin.Context) {
	id, ok := h.idParam(c, "id")
	if !ok {
		return
	}
	p, err := h.posts.Get(c.Request.Context(), id)
	if err != nil {
		h.authn.Deny(c, err)
		return
	}
	view.Page(c, http.StatusOK, "post_form", gin.H{
		"Post": postForm{
			ID:          p.ID,
			Title:       p.Title,
			Content:     p.Content,
			DateOfVisit: p.DateOfVisit,
			CountryName: p.CountryName,
		},
		"Action": fmt.Sprintf("/post/%d", p.ID),
	})
}

// UpdatePost 修改游记，仅作者
// @Summary 修改游记
// @Tags posts
// @Accept json,x-www-form-urlencoded
// @Produce json
// @Security BearerAuth
// @Param id path int true "post id"
// @Param request body postRequest true "post"
// @Success 200 {object} response.Response
// @Failure 403 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /post/{id} [put]
func (h *Handler) UpdatePost(c *gin.Context) {
	id, ok := h.idParam(c, "id")
	if !ok {
		return
	}
	var req postRequest
	if err := c.ShouldBind(&req); err != nil {
		h.authn.Deny(c, bindError(err))
		return
	}
	action := fmt.Sprintf("/post/%d", id)
	if err := h.posts.Update(c.Request.Context(), id, req.input()); err != nil {
		h.formFailed(c, formOf(id, req), action, err)
		return
	}
	done(c, false, gin.H{"id": id}, action)
}

// DeletePost 删除游记及其点赞、评论
// @Summary 删除游记
// @Tags posts
// @Security BearerAuth
// @Param id path int true "post id"
// @Success 200 {object} response.Response
// @Failure 403 {object} response.Response
// @Router /post/{id} [delete]
func (h *Handler) DeletePost(c *gin.Context) {
	id, ok := h.idParam(c, "id")
	if !ok {
		return
	}
	if err := h.posts.Delete(c.Request.Context(), id); err != nil {
		h.authn.Deny(c, err)
		return
	}
	logger.Info("post deleted", zap.Uint("post_id", id), zap.Uint("user_id", middleware.IdentityFrom(c).ID))
	done(c, false, gin.H{"message": "Blog post deleted successfully"}, "/")
}

// LikePost 点赞；同一用户再次投票覆盖上一次
// @Summary 点赞
// @Tags posts
// @Security BearerAuth
// @Param id path int true "post id"
// @Success 200 {object} response.Response
// @Router /post/{id}/like [post]
func (h *Handler) LikePost(c *gin.Context) { h.vote(c, true) }

// DislikePost 点踩
// @Summary 点踩
// @Tags posts
// @Security BearerAuth
// @Param id path int true "post id"
// @Success 200 {object} response.Response
// @Router /post/{id}/dislike [post]
func (h *Handler) DislikePost(c *gin.Context) { h.vote(c, false) }

func (h *Handler) vote(c *gin.Context, like bool) {
	id, ok := h.idParam(c, "id")
	if !ok {
		return
	}
	viewer := middleware.IdentityFrom(c)
	vote := h.posts.Dislike
	if like {
		vote = h.posts.Like
	}
	if err := vote(c.Request.Context(), viewer.ID, id); err != nil {
		h.authn.Deny(c, err)
		return
	}
	done(c, false, gin.H{"post_id": id, "is_like": like}, fmt.Sprintf("/post/%d", id))
}

// AddComment 发表评论
// @Summary 发表评论
// @Tags posts
// @Accept json,x-www-form-urlencoded
// @Security BearerAuth
// @Param id path int true "post id"
// @Param request body commentRequest true "comment"
// @Success 201 {object} response.Response{data=model.Comment}
// @Failure 400 {object} response.Response
// @Router /post/{id}/comment [post]
func (h *Handler) AddComment(c *gin.Context) {
	id, ok := h.idParam(c, "id")
	if !ok {
		return
	}
	var req commentRequest
	if err := c.ShouldBind(&req); err != nil {
		h.authn.Deny(c, bindError(err))
		return
	}
	cm, err := h.comments.Create(c.Request.Context(), middleware.IdentityFrom(c).ID, id, req.Content)
	if err != nil {
		h.authn.Deny(c, err)
		return
	}
	done(c, true, cm, fmt.Sprintf("/post/%d", id))
}
