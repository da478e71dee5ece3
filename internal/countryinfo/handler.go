package countryinfo

import (
	"context"
	"crypto/subtle"
	"errors"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/d60-Lab/travel-tales/internal/apperr"
	"github.com/d60-Lab/travel-tales/pkg/logger"
	"github.com/d60-Lab/travel-tales/pkg/response"
)

// CountrySource is satisfied by *Upstream.
type CountrySource interface {
	All(ctx context.Context) ([]Summary, error)
	ByName(ctx context.Context, name string) (*Details, error)
}

type Handler struct {
	countries  CountrySource
	keys       *KeyService
	adminToken string
}

func NewHandler(countries CountrySource, keys *KeyService, adminToken string) *Handler {
	return &Handler{countries: countries, keys: keys, adminToken: adminToken}
}

// RequireAPIKey 校验 Authorization: Bearer <api key>
func (h *Handler) RequireAPIKey() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			response.Unauthorized(c, `API key is required. Add an Authorization header with "Bearer YOUR_API_KEY"`)
			return
		}
		key := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
		ok, err := h.keys.Valid(c.Request.Context(), key)
		if err != nil {
			response.InternalError(c, err)
			return
		}
		if !ok {
			logger.Info("rejected api key", zap.String("key", mask(key)), zap.String("path", c.Request.URL.Path))
			response.Unauthorized(c, "Invalid or inactive API key")
			return
		}
		c.Next()
	}
}

// RequireAdmin guards key management with a static token; an empty token
// disables the admin routes.
func (h *Handler) RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")
		if h.adminToken == "" || subtle.ConstantTimeCompare([]byte(token), []byte(h.adminToken)) != 1 {
			response.Forbidden(c, "admin access required")
			return
		}
		c.Next()
	}
}

// AllCountries 全部国家，按名称排序
// @Summary 国家列表
// @Tags countryinfo
// @Produce json
// @Security ApiKey
// @Success 200 {object} response.Response{data=[]Summary}
// @Failure 401 {object} response.Response
// @Failure 502 {object} response.Response
// @Router /api/v3.1/all [get]
func (h *Handler) AllCountries(c *gin.Context) {
	list, err := h.countries.All(c.Request.Context())
	if err != nil {
		h.upstreamError(c, err, "Failed to fetch countries")
		return
	}
	response.Success(c, list)
}

// CountryByName 单个国家详情
// @Summary 国家详情
// @Tags countryinfo
// @Produce json
// @Security ApiKey
// @Param name path string true "国家名称"
// @Success 200 {object} response.Response{data=Details}
// @Failure 404 {object} response.Response
// @Failure 502 {object} response.Response
// @Router /api/v3.1/name/{name} [get]
func (h *Handler) CountryByName(c *gin.Context) {
	name := strings.TrimSpace(c.Param("name"))
	if name == "" {
		response.BadRequest(c, "country name is required")
		return
	}
	d, err := h.countries.ByName(c.Request.Context(), name)
	if err != nil {
		h.upstreamError(c, err, "Failed to fetch data")
		return
	}
	response.Success(c, d)
}

func (h *Handler) upstreamError(c *gin.Context, err error, msg string) {
	if errors.Is(err, apperr.ErrNotFound) {
		response.NotFound(c, "Country not found")
		return
	}
	logger.Error("upstream request failed", zap.Error(err), zap.String("path", c.Request.URL.Path))
	_ = c.Error(err)
	response.Fail(c, apperr.HTTPStatus(err), msg)
}

type issueKeyRequest struct {
	Owner string `json:"owner" binding:"required"`
}

// IssueKey 生成新的 API key
// @Summary 生成 API key
// @Tags countryinfo-admin
// @Accept json
// @Produce json
// @Param request body issueKeyRequest true "owner"
// @Success 201 {object} response.Response{data=model.APIKey}
// @Failure 403 {object} response.Response
// @Router /admin/keys [post]
func (h *Handler) IssueKey(c *gin.Context) {
	var req issueKeyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	k, err := h.keys.Issue(c.Request.Context(), req.Owner)
	if err != nil {
		response.Error(c, err)
		return
	}
	logger.Info("api key issued", zap.Uint("id", k.ID), zap.String("owner", k.Owner))
	response.Created(c, k)
}

// ListKeys 列出全部 key
// @Summary API key 列表
// @Tags countryinfo-admin
// @Produce json
// @Success 200 {object} response.Response{data=[]model.APIKey}
// @Router /admin/keys [get]
func (h *Handler) ListKeys(c *gin.Context) {
	keys, err := h.keys.List(c.Request.Context())
	if err != nil {
		response.InternalError(c, err)
		return
	}
	for i := range keys {
		keys[i].Key = mask(keys[i].Key)
	}
	response.Success(c, keys)
}

// DeactivateKey 停用 key
// @Summary 停用 API key
// @Tags countryinfo-admin
// @Param id path int true "key id"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /admin/keys/{id}/deactivate [post]
func (h *Handler) DeactivateKey(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		response.BadRequest(c, "invalid key id")
		return
	}
	if err := h.keys.Deactivate(c.Request.Context(), uint(id)); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, gin.H{"id": id, "active": false})
}

func mask(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}
