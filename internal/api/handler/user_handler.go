package handler

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/d60-Lab/travel-tales/internal/api/middleware"
	"github.com/d60-Lab/travel-tales/internal/api/view"
	"github.com/d60-Lab/travel-tales/internal/auth"
	"github.com/d60-Lab/travel-tales/internal/model"
	"github.com/d60-Lab/travel-tales/pkg/logger"
	"github.com/d60-Lab/travel-tales/pkg/response"
)

// Profile 用户主页数据
type Profile struct {
	User          *model.User         `json:"user"`
	Posts         []model.PostView    `json:"posts"`
	Followers     []model.UserSummary `json:"followers"`
	Following     []model.UserSummary `json:"following"`
	IsFollowing   bool                `json:"isFollowing"`
	IsCurrentUser bool                `json:"isCurrentUser"`
}

func (h *Handler) loadProfile(ctx context.Context, userID uint, viewer *auth.Identity) (*Profile, error) {
	u, err := h.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	p := &Profile{User: u, IsCurrentUser: viewer != nil && viewer.ID == userID}
	if p.Posts, err = h.posts.ListByAuthor(ctx, userID); err != nil {
		return nil, err
	}
	if p.Followers, err = h.graph.Followers(ctx, userID); err != nil {
		return nil, err
	}
	if p.Following, err = h.graph.Following(ctx, userID); err != nil {
		return nil, err
	}
	if viewer != nil && !p.IsCurrentUser {
		if p.IsFollowing, err = h.graph.IsFollowing(ctx, viewer.ID, userID); err != nil {
			return nil, err
		}
	}
	return p, nil
}

func (h *Handler) renderProfile(c *gin.Context, userID uint) {
	p, err := h.loadProfile(c.Request.Context(), userID, middleware.IdentityFrom(c))
	if err != nil {
		h.authn.Deny(c, err)
		return
	}
	if middleware.WantsJSON(c) {
		response.Success(c, p)
		return
	}
	view.Page(c, http.StatusOK, "profile", gin.H{
		"Profile":       p.User,
		"Posts":         p.Posts,
		"Followers":     p.Followers,
		"Following":     p.Following,
		"IsFollowing":   p.IsFollowing,
		"IsCurrentUser": p.IsCurrentUser,
	})
}

// MyProfile 当前会话用户的主页
func (h *Handler) MyProfile(c *gin.Context) {
	h.renderProfile(c, middleware.IdentityFrom(c).ID)
}

// UserPage 用户主页
// @Summary 用户主页
// @Tags users
// @Produce json
// @Param id path int true "user id"
// @Success 200 {object} response.Response{data=Profile}
// @Failure 404 {object} response.Response
// @Router /user/{id} [get]
func (h *Handler) UserPage(c *gin.Context) {
	id, ok := h.idParam(c, "id")
	if !ok {
		return
	}
	h.renderProfile(c, id)
}

// Followers 粉丝列表
// @Summary 粉丝列表
// @Tags users
// @Produce json
// @Param id path int true "user id"
// @Success 200 {object} response.Response{data=[]model.UserSummary}
// @Router /user/{id}/followers [get]
func (h *Handler) Followers(c *gin.Context) {
	h.userList(c, "Followers", h.graph.Followers)
}

// Following 关注列表
// @Summary 关注列表
// @Tags users
// @Produce json
// @Param id path int true "user id"
// @Success 200 {object} response.Response{data=[]model.UserSummary}
// @Router /user/{id}/following [get]
func (h *Handler) Following(c *gin.Context) {
	h.userList(c, "Following", h.graph.Following)
}

func (h *Handler) userList(c *gin.Context, heading string, list func(context.Context, uint) ([]model.UserSummary, error)) {
	id, ok := h.idParam(c, "id")
	if !ok {
		return
	}
	ctx := c.Request.Context()
	u, err := h.users.GetByID(ctx, id)
	if err != nil {
		h.authn.Deny(c, err)
		return
	}
	users, err := list(ctx, id)
	if err != nil {
		h.authn.Deny(c, err)
		return
	}
	if middleware.WantsJSON(c) {
		response.Success(c, users)
		return
	}
	view.Page(c, http.StatusOK, "users", gin.H{"Heading": heading, "Profile": u, "Users": users})
}

// Follow 关注用户，重复关注视为成功
// @Summary 关注用户
// @Tags users
// @Produce json
// @Security BearerAuth
// @Param id path int true "被关注的 user id"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /user/{id}/follow [post]
func (h *Handler) Follow(c *gin.Context) {
	id, ok := h.idParam(c, "id")
	if !ok {
		return
	}
	viewer := middleware.IdentityFrom(c)
	res, err := h.graph.Follow(c.Request.Context(), viewer.ID, id)
	if err != nil {
		h.authn.Deny(c, err)
		return
	}
	logger.Debug("follow", zap.Uint("follower", viewer.ID), zap.Uint("followed", id), zap.Stringer("result", res))
	done(c, false, gin.H{"followed_id": id, "result": res.String()}, fmt.Sprintf("/user/%d", id))
}
