package countryinfo

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/d60-Lab/travel-tales/internal/api/middleware"
	"github.com/d60-Lab/travel-tales/pkg/metrics"
)

// NewRouter 组装 countryinfo 服务的路由
func NewRouter(h *Handler, limiter *middleware.IPRateLimiter) *gin.Engine {
	r := gin.New()
	r.Use(middleware.RequestID(), middleware.Logger(), middleware.Recovery(), metrics.Middleware())

	r.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	r.GET("/metrics", metrics.Handler())

	api := r.Group("/api")
	if limiter != nil {
		api.Use(limiter.Middleware())
	}
	api.Use(h.RequireAPIKey())
	{
		api.GET("/v3.1/all", h.AllCountries)
		api.GET("/v3.1/name/:name", h.CountryByName)
	}

	admin := r.Group("/admin", h.RequireAdmin())
	{
		admin.POST("/keys", h.IssueKey)
		admin.GET("/keys", h.ListKeys)
		admin.POST("/keys/:id/deactivate", h.DeactivateKey)
	}
	return r
}
