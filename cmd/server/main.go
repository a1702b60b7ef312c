package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/mmynk/nbbang/internal/analyzer"
	"github.com/mmynk/nbbang/internal/auth"
	"github.com/mmynk/nbbang/internal/config"
	"github.com/mmynk/nbbang/internal/live"
	"github.com/mmynk/nbbang/internal/metrics"
	"github.com/mmynk/nbbang/internal/quota"
	"github.com/mmynk/nbbang/internal/server"
	"github.com/mmynk/nbbang/internal/service"
	"github.com/mmynk/nbbang/internal/storage/sqlite"
	"github.com/mmynk/nbbang/pkg/logging"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}
	logger := logging.Setup(cfg.LogLevel)

	store, err := sqlite.New(cfg.DBPath)
	if err != nil {
		logger.Error("Failed to initialize storage", "error", err)
		os.Exit(1)
	}
	defer store.Close()
	logger.Info("Storage initialized", "database", cfg.DBPath)

	m := metrics.New()
	hub := live.NewHub(logger.With("component", "live"))
	hub.OnCountChange = m.SetLiveSubscribers

	ai := analyzer.NewClient(analyzer.Config{URL: cfg.AnalyzerURL})
	if !ai.Enabled() {
		logger.Warn("AI_ANALYZER_URL not set, AI settlement routes will answer 503")
	}

	meetings := service.NewMeetingService(store, hub, m, logger)
	aiService := service.NewAIService(store, ai,
		quota.NewDaily(store, cfg.AIDailyLimit, cfg.Location),
		quota.NewCapacity(cfg.AICapacity),
		meetings, m, logger)

	srv := server.New(server.Deps{
		Authenticator: auth.NewPasswordAuthenticator(store),
		Users:         store,
		Tokens:        auth.NewTokenManager(cfg.JWTSecret, cfg.TokenTTL),
		Meetings:      meetings,
		AI:            aiService,
		Hub:           hub,
		Metrics:       m,
		CORSOrigin:    cfg.CORSOrigin,
		Logger:        logger,
	})

	// Long AI analyses and live websockets rule out a write timeout.
	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           h2c.NewHandler(srv.Router(), &http2.Server{}),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		logger.Info("Server starting", "address", httpServer.Addr,
			"ai_daily_limit", cfg.AIDailyLimit, "ai_capacity", cfg.AICapacity, "timezone", cfg.Location.String())
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error("Shutdown failed", "error", err)
	}
}
