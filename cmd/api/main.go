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

	"github.com/joho/godotenv"

	httpadapter "github.com/kirillkom/document-qa/internal/adapters/http"
	"github.com/kirillkom/document-qa/internal/bootstrap"
	"github.com/kirillkom/document-qa/internal/config"
	"github.com/kirillkom/document-qa/internal/observability/logging"
	"github.com/kirillkom/document-qa/internal/observability/metrics"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config_load_failed", "error", err)
		os.Exit(1)
	}
	logger := logging.NewJSONLogger("docqa-api", cfg.LogLevel)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(cfg, logger)
	if err != nil {
		logger.Error("bootstrap_failed", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	serverMetrics := metrics.NewServerMetrics("docqa-api")
	sessions := httpadapter.NewSessionRegistry(app.NewSession, httpadapter.SessionRegistryOptions{
		MaxSessions: cfg.SessionMaxCount,
		IdleTTL:     time.Duration(cfg.SessionIdleTTLSecs) * time.Second,
		Logger:      logger,
		OnResize:    serverMetrics.SetActiveSessions,
	})
	defer sessions.Close()
	go sessions.RunJanitor(ctx, time.Minute)

	router := httpadapter.NewRouter(sessions, app.Extractor, serverMetrics, logger, httpadapter.RouterOptions{
		APIKey:         cfg.APIAuthKey,
		MaxUploadBytes: cfg.MaxUploadBytes,
		RateLimitRPS:   cfg.RateLimitRPS,
		RateLimitBurst: cfg.RateLimitBurst,
		MaxInFlight:    cfg.MaxInFlight,
	}).Handler()
	server := &http.Server{
		Addr:              ":" + cfg.APIPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      time.Duration(cfg.BackendTimeoutSecs)*time.Second + 30*time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.Info("api_listening", "port", cfg.APIPort, "config", cfg)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("api_server_failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("api_shutdown_failed", "error", err)
	}
}
