// countryinfo 服务：API key 保护的 restcountries 代理
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

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/d60-Lab/travel-tales/config"
	"github.com/d60-Lab/travel-tales/internal/api/middleware"
	"github.com/d60-Lab/travel-tales/internal/countryinfo"
	"github.com/d60-Lab/travel-tales/internal/repository"
	"github.com/d60-Lab/travel-tales/pkg/database"
	"github.com/d60-Lab/travel-tales/pkg/logger"
)

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

	db, err := database.InitDB(cfg)
	if err != nil {
		logger.Fatal("init database", zap.Error(err))
	}
	defer database.Close(db)

	ci := cfg.CountryInfo
	if ci.DemoKey != "" {
		logger.Warn("demo api key enabled", zap.String("hint", "set TRAVEL_COUNTRYINFO_DEMO_KEY to empty in production"))
	}
	keys := countryinfo.NewKeyService(repository.NewAPIKeyRepository(db), ci.DemoKey)
	h := countryinfo.NewHandler(countryinfo.NewUpstream(ci.UpstreamURL, ci.Timeout), keys, ci.AdminToken)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var limiter *middleware.IPRateLimiter
	if cfg.RateLimit.Enabled {
		limiter = middleware.NewIPRateLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst)
		go limiter.Cleanup(ctx, time.Minute)
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", ci.Port),
		Handler:      countryinfo.NewRouter(h, limiter),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		logger.Info("countryinfo listening", zap.String("addr", srv.Addr), zap.String("upstream", ci.UpstreamURL))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("listen", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down countryinfo")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown", zap.Error(err))
	}
}
