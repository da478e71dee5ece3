package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/d60-Lab/travel-tales/config"
	"github.com/d60-Lab/travel-tales/internal/api/handler"
	"github.com/d60-Lab/travel-tales/internal/api/middleware"
	"github.com/d60-Lab/travel-tales/internal/api/view"
	"github.com/d60-Lab/travel-tales/internal/auth"
	"github.com/d60-Lab/travel-tales/internal/cache"
	"github.com/d60-Lab/travel-tales/internal/client/country"
	"github.com/d60-Lab/travel-tales/internal/repository"
	"github.com/d60-Lab/travel-tales/internal/router"
	"github.com/d60-Lab/travel-tales/internal/service"
	"github.com/d60-Lab/travel-tales/pkg/database"
	"github.com/d60-Lab/travel-tales/pkg/logger"
	"github.com/d60-Lab/travel-tales/pkg/tracing"
)

// @title Travel Tales API
// @version 1.0
// @description Travel blog backend: posts, likes, comments, follows and country info.
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	if err := logger.Init(cfg.Log.Level, cfg.Log.Format); err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()
	gin.SetMode(cfg.Server.Mode)

	if cfg.UsesDevSecret() {
		logger.Warn("using the development JWT secret, set TRAVEL_JWT_SECRET")
	}

	if cfg.Sentry.DSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:         cfg.Sentry.DSN,
			Environment: cfg.Sentry.Environment,
		}); err != nil {
			logger.Warn("sentry disabled", zap.Error(err))
		} else {
			defer sentry.Flush(2 * time.Second)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := tracing.Init(ctx, cfg.Tracing)
	if err != nil {
		logger.Fatal("init tracing", zap.Error(err))
	}

	db, err := database.InitDB(cfg)
	if err != nil {
		logger.Fatal("init database", zap.Error(err))
	}
	defer database.Close(db)

	// 会话存储与关注集合缓存
	var (
		store     auth.SessionStore
		following service.FollowingCache
	)
	switch cfg.Session.Store {
	case "redis":
		rdb := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Fatal("connect redis", zap.String("addr", cfg.Redis.Addr), zap.Error(err))
		}
		defer rdb.Close()
		store = auth.NewRedisStore(rdb)
		following = cache.NewFollowingCache(rdb, 10*time.Minute)
	default:
		mem := auth.NewMemoryStore()
		go mem.RunSweeper(ctx, 5*time.Minute)
		store = mem
	}

	tokens, err := auth.NewTokenIssuer(cfg.JWT.Secret, cfg.JWT.Expiry)
	if err != nil {
		logger.Fatal("token issuer", zap.Error(err))
	}
	sessions := auth.NewSessionManager(store, cfg.Session.TTL)
	authn := middleware.NewAuthenticator(auth.NewGateway(tokens), sessions,
		middleware.CookieOptions{Name: cfg.Session.CookieName, Secure: cfg.Session.Secure}, view.Error)

	users := repository.NewUserRepository(db)
	posts := repository.NewPostRepository(db)
	comments := repository.NewCommentRepository(db)
	graph := service.NewSocialGraph(repository.NewFollowRepository(db), users, following)

	h := handler.New(handler.Deps{
		Users:     service.NewUserService(users),
		Posts:     service.NewPostService(posts, repository.NewLikeRepository(db)),
		Comments:  service.NewCommentService(comments, posts),
		Graph:     graph,
		Feed:      service.NewFeedEngine(posts, graph),
		Tokens:    tokens,
		Authn:     authn,
		Countries: country.New(cfg.Country.BaseURL, cfg.Country.APIKey, cfg.Country.Timeout),
	})

	renderer, err := view.New()
	if err != nil {
		logger.Fatal("parse templates", zap.Error(err))
	}

	opts := router.Options{
		RequestTimeout: cfg.Server.RequestTimeout,
		Swagger:        cfg.Server.Mode != gin.ReleaseMode,
	}
	if cfg.Tracing.Enabled {
		opts.TracingService = cfg.Tracing.ServiceName
	}
	if cfg.RateLimit.Enabled {
		opts.Limiter = middleware.NewIPRateLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst)
		go opts.Limiter.Cleanup(ctx, time.Minute)
	}
	engine := router.Setup(h, authn, auth.NewOwnershipGuard(posts, comments), renderer, opts)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           middleware.MethodOverride(engine),
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.Info("server listening", zap.String("addr", srv.Addr), zap.String("session_store", cfg.Session.Store))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("listen", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		logger.Warn("tracing shutdown", zap.Error(err))
	}
}
