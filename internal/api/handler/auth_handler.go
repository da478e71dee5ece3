package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/d60-Lab/travel-tales/internal/api/middleware"
	"github.com/d60-Lab/travel-tales/internal/api/view"
	"github.com/d60-Lab/travel-tales/internal/apperr"
	"github.com/d60-Lab/travel-tales/internal/auth"
	"github.com/d60-Lab/travel-tales/internal/service"
	"github.com/d60-Lab/travel-tales/pkg/logger"
	"github.com/d60-Lab/travel-tales/pkg/response"
)

type loginRequest struct {
	Email    string `form:"email" json:"email" binding:"required"`
	Password string `form:"password" json:"password" binding:"required"`
}

type registerRequest struct {
	Name     string `form:"name" json:"name"`
	Surname  string `form:"surname" json:"surname"`
	Email    string `form:"email" json:"email"`
	Password string `form:"password" json:"password"`
}

// loginResult 登录/注册成功的返回；API 客户端带 token
type loginResult struct {
	User  auth.Identity `json:"user"`
	Token string        `json:"token,omitempty"`
}

func (h *Handler) LoginPage(c *gin.Context) {
	view.Page(c, http.StatusOK, "login", gin.H{"Email": ""})
}

// Login 邮箱密码登录：API 客户端拿 token，浏览器建立会话
// @Summary 登录
// @Tags auth
// @Accept json,x-www-form-urlencoded
// @Produce json
// @Param X-API-Client header string false "set to receive a bearer token"
// @Param request body loginRequest true "credentials"
// @Success 200 {object} response.Response{data=loginResult}
// @Failure 401 {object} response.Response
// @Router /login [post]
func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBind(&req); err != nil {
		h.loginFailed(c, req.Email, bindError(err))
		return
	}
	u, err := h.users.Authenticate(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		h.loginFailed(c, req.Email, err)
		return
	}
	logger.Info("login", zap.Uint("user_id", u.ID), zap.Bool("api_client", middleware.IsAPIClient(c)))
	h.signIn(c, http.StatusOK, service.IdentityOf(u))
}

func (h *Handler) loginFailed(c *gin.Context, email string, err error) {
	status := apperr.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		h.authn.Deny(c, err)
		return
	}
	if middleware.WantsJSON(c) {
		response.Fail(c, status, apperr.PublicMessage(err))
		return
	}
	view.Page(c, status, "login", gin.H{"Email": email, "Error": apperr.PublicMessage(err)})
}

func (h *Handler) RegisterPage(c *gin.Context) {
	view.Page(c, http.StatusOK, "register", gin.H{"Form": registerRequest{}})
}

// Register 注册并直接登录
// @Summary 注册
// @Tags auth
// @Accept json,x-www-form-urlencoded
// @Produce json
// @Param request body registerRequest true "new account"
// @Success 201 {object} response.Response{data=loginResult}
// @Failure 400 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /register [post]
func (h *Handler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBind(&req); err != nil {
		h.registerFailed(c, req, bindError(err))
		return
	}
	u, err := h.users.Register(c.Request.Context(), service.RegisterInput{
		Name:     req.Name,
		Surname:  req.Surname,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		h.registerFailed(c, req, err)
		return
	}
	logger.Info("user registered", zap.Uint("user_id", u.ID))
	h.signIn(c, http.StatusCreated, service.IdentityOf(u))
}

func (h *Handler) registerFailed(c *gin.Context, req registerRequest, err error) {
	status := apperr.HTTPStatus(err)
	if status >= http.StatusInternalServerError || middleware.WantsJSON(c) {
		h.authn.Deny(c, err)
		return
	}
	req.Password = ""
	view.Page(c, status, "register", gin.H{"Form": req, "Error": apperr.PublicMessage(err)})
}

// signIn issues a token to API clients and a session to everyone else.
func (h *Handler) signIn(c *gin.Context, status int, id auth.Identity) {
	if middleware.IsAPIClient(c) {
		tok, err := h.tokens.Sign(id)
		if err != nil {
			response.InternalError(c, err)
			return
		}
		id.Provenance = auth.ProvenanceToken
		c.JSON(status, response.Response{Success: true, Data: loginResult{User: id, Token: tok}})
		return
	}

	// 登录前的旧会话作废
	if middleware.SessionFrom(c) != nil {
		if err := h.authn.EndSession(c); err != nil {
			logger.Warn("destroy previous session", zap.Error(err))
		}
	}
	s, err := h.authn.StartSession(c, id)
	if err != nil {
		h.authn.Deny(c, err)
		return
	}
	if middleware.WantsJSON(c) {
		c.JSON(status, response.Response{Success: true, Data: loginResult{User: *s.Identity()}})
		return
	}
	c.Redirect(http.StatusFound, "/")
}

// Logout 销毁会话；令牌是无状态的，客户端自行丢弃
// @Summary 登出
// @Tags auth
// @Success 200 {object} response.Response
// @Router /logout [post]
func (h *Handler) Logout(c *gin.Context) {
	if err := h.authn.EndSession(c); err != nil && !errors.Is(err, auth.ErrSessionNotFound) {
		logger.Warn("destroy session", zap.Error(err))
	}
	if middleware.WantsJSON(c) {
		response.Success(c, gin.H{"message": "logged out"})
		return
	}
	c.Redirect(http.StatusFound, middleware.LoginPath)
}
