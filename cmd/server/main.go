package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"log/slog"

	"github.com/Vinodh-Projects/dxp-component-builder/internal/httpx"
	"github.com/Vinodh-Projects/dxp-component-builder/internal/service/deploy"
	"github.com/Vinodh-Projects/dxp-component-builder/internal/store"
	"github.com/Vinodh-Projects/dxp-component-builder/internal/ws"
	"github.com/Vinodh-Projects/dxp-component-builder/pkg/config"
	"github.com/Vinodh-Projects/dxp-component-builder/pkg/logger"
)

func main() {
	cfg, err := config.LoadServerConfig()
	log := logger.New("deploy-api", slog.LevelInfo)
	if err != nil {
		log.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st := store.New()
	hub := ws.NewHub()
	deploySvc := deploy.New(st, deploy.NewExecRunner(), hub, log, cfg)

	limiter := httpx.NewMemoryRateLimiter()
	if addr := strings.TrimSpace(cfg.RateLimitRedisAddr); addr != "" {
		redisLimiter, err := httpx.NewRedisRateLimiter(addr, cfg.RateLimitRedisPass, cfg.RateLimitRedisDB, log)
		if err != nil {
			log.Warn("redis rate limiter unavailable, using in-memory limiter", "error", err)
		} else {
			limiter = redisLimiter
		}
	}

	router := httpx.NewRouter(log, deploySvc, st, hub, limiter)
	defer router.Close()

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errorCh := make(chan error, 1)
	go func() {
		log.Info("deploy api starting",
			"addr", cfg.Addr,
			"project_path", cfg.ProjectPath,
			"aem_server_url", cfg.AEMServerURL,
			"mock_mode", cfg.MockMode,
		)
		errorCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("graceful shutdown failed", "error", err)
		}
		log.Info("deploy api stopped")
	case err := <-errorCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}
}
