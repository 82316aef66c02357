package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"voxelhunt/internal/chain"
	"voxelhunt/internal/config"
	"voxelhunt/internal/db"
	httpServer "voxelhunt/internal/http"
	"voxelhunt/internal/http/handlers"
	"voxelhunt/internal/http/middleware"
	"voxelhunt/internal/logger"
	"voxelhunt/internal/match"
	"voxelhunt/internal/repository"
	"voxelhunt/internal/service"
	"voxelhunt/internal/store"
	"voxelhunt/internal/ws"

	"github.com/gin-gonic/gin"
)

var version = "dev"

func main() {
	cfg := config.Load()
	logger.Init(cfg.LogLevel, cfg.LogJSON)

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	sessions := store.NewMemoryStore(match.Options{
		PhaseDuration: cfg.PhaseDuration,
		StrictRoles:   cfg.StrictRoles,
		DedupeFinds:   cfg.DedupeFinds,
	}, cfg.SessionTTL)
	if cfg.SessionTTL > 0 {
		sessions.StartCleanup(ctx, cfg.ReapInterval)
	}

	checks := map[string]handlers.Pinger{}

	// match history is optional
	var history *repository.MatchHistoryRepository
	if cfg.DatabaseURL != "" {
		pool, err := db.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Fatal("database unavailable", "error", err)
		}
		defer pool.Close()
		history = repository.NewMatchHistoryRepository(pool)
		checks["database"] = pool.Ping
	} else {
		logger.Warn("DATABASE_URL not set, match history disabled")
	}

	if middleware.InitRedisRateLimiter(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB) {
		checks["redis"] = middleware.RedisPing
	}

	var escrow chain.Escrow
	if cfg.ChainRPCURL != "" {
		e, err := chain.Dial(ctx, cfg.ChainRPCURL, cfg.EscrowContract)
		if err != nil {
			logger.Warn("escrow lookups disabled", "error", err)
		} else {
			escrow = e
		}
	}

	// keep interfaces nil (not typed-nil) when history is off
	var recorder service.HistoryRecorder
	var reader handlers.HistoryReader
	if history != nil {
		recorder, reader = history, history
	}
	svc := service.NewMatchService(sessions, recorder)
	feed := ws.NewHub(svc, cfg.FeedInterval)

	h := handlers.NewHandler(svc, reader, escrow)
	h.InviteBaseURL = cfg.InviteBaseURL

	r := gin.Default()
	httpServer.RegisterRoutes(r, httpServer.Deps{
		Handler:       h,
		Health:        handlers.NewHealthHandler(sessions, version, checks),
		Feed:          feed,
		AllowedOrigin: cfg.AllowedOrigin,
		RateLimit:     cfg.APIRateLimit,
		RateWindow:    cfg.APIRateWindow,
	})

	srv := &http.Server{
		Addr:    ":" + cfg.AppPort,
		Handler: r,
	}

	go func() {
		logger.Info("server started", "port", cfg.AppPort, "version", version)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("listen", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	feed.Close()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
	}
	stop()
	svc.Wait()

	logger.Info("server exited")
}
