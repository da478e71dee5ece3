// Package router assembles the gin engine of the blog service.
package router

import (
	"net/http"
	"time"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	_ "github.com/d60-Lab/travel-tales/docs"
	"github.com/d60-Lab/travel-tales/internal/api/handler"
	"github.com/d60-Lab/travel-tales/internal/api/middleware"
	"github.com/d60-Lab/travel-tales/internal/api/view"
	"github.com/d60-Lab/travel-tales/internal/auth"
	"github.com/d60-Lab/travel-tales/pkg/metrics"
	"github.com/d60-Lab/travel-tales/pkg/response"
	"github.com/d60-Lab/travel-tales/pkg/validation"
)

type Options struct {
	RequestTimeout time.Duration
	// TracingService 非空时启用 otelgin
	TracingService string
	Limiter        *middleware.IPRateLimiter
	Swagger        bool
}

// Setup wires middleware and routes. The returned handler must still be
// wrapped with middleware.MethodOverride by the caller.
func Setup(h *handler.Handler, authn *middleware.Authenticator, guard *auth.OwnershipGuard, renderer *view.Renderer, opts Options) *gin.Engine {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		_ = validation.Register(v)
	}

	r := gin.New()
	r.HTMLRender = renderer
	r.Use(
		middleware.RequestID(),
		middleware.Logger(),
		middleware.Recovery(),
		middleware.ReportErrors(),
		metrics.Middleware(),
		middleware.SecureHeaders(),
	)
	if opts.TracingService != "" {
		r.Use(otelgin.Middleware(opts.TracingService))
	}
	r.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/metrics"})))

	r.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	r.GET("/metrics", metrics.Handler())
	if opts.Swagger {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	app := r.Group("/")
	if opts.Limiter != nil {
		app.Use(opts.Limiter.Middleware())
	}
	app.Use(middleware.Timeout(opts.RequestTimeout), authn.Authenticate())

	identity := authn.RequireIdentity()
	session := authn.RequireSession()
	ownsPost := authn.RequireOwner(guard, auth.ResourcePost, "id")

	// feed & auth
	app.GET("/", h.Home)
	app.GET("/login", h.LoginPage)
	app.POST("/login", h.Login)
	app.GET("/register", h.RegisterPage)
	app.POST("/register", h.Register)
	app.GET("/logout", h.Logout)
	app.POST("/logout", h.Logout)

	// users
	app.GET("/profile", session, h.MyProfile)
	app.GET("/user/:id", h.UserPage)
	app.GET("/user/:id/followers", h.Followers)
	app.GET("/user/:id/following", h.Following)
	app.POST("/user/:id/follow", identity, h.Follow)

	// posts
	app.GET("/post/create", session, h.NewPostPage)
	app.POST("/post", identity, h.CreatePost)
	app.GET("/post/:id", h.GetPost)
	app.GET("/post/:id/edit", session, ownsPost, h.EditPostPage)
	app.PUT("/post/:id", identity, ownsPost, h.UpdatePost)
	app.DELETE("/post/:id", identity, ownsPost, h.DeletePost)
	app.POST("/post/:id/like", identity, h.LikePost)
	app.POST("/post/:id/dislike", identity, h.DislikePost)
	app.POST("/post/:id/comment", identity, h.AddComment)

	// countries
	app.GET("/api/countries", h.Countries)
	app.GET("/api/country-details", h.CountryDetails)
	app.GET("/country/:name", h.CountryPage)

	r.NoRoute(func(c *gin.Context) {
		if middleware.WantsJSON(c) {
			response.NotFound(c, "Page not found")
			return
		}
		view.Error(c, http.StatusNotFound, "Page not found")
	})
	return r
}
