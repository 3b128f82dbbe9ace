package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpadapter "github.com/kirillkom/docintel/internal/adapters/http"
	"github.com/kirillkom/docintel/internal/bootstrap"
	"github.com/kirillkom/docintel/internal/config"
	"github.com/kirillkom/docintel/internal/observability/logging"
	"github.com/kirillkom/docintel/internal/observability/metrics"
)

const service = "docintel-api"

func main() {
	cfg := config.Load()
	logger := logging.NewJSONLogger(service, cfg.LogLevel)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	httpMetrics := metrics.NewHTTPServerMetrics(service)
	app, err := bootstrap.New(ctx, cfg, bootstrap.Options{
		Role:       bootstrap.RoleAPI,
		Logger:     logger,
		Registerer: httpMetrics.Registry(),
		Service:    service,
	})
	if err != nil {
		logger.Error("bootstrap_failed", "error", err.Error())
		os.Exit(1)
	}
	defer app.Close()

	uploadMode := "inline"
	if app.Queue != nil {
		uploadMode = "queued"
		go func() {
			if err := app.Queue.SubscribeProgress(ctx, app.Hub); err != nil {
				logger.Error("progress_subscription_failed", "error", err.Error())
			}
		}()
	}

	deps := httpadapter.Dependencies{
		Analyzer: app.Analyzer,
		Uploader: app.Ingest,
		Results:  app.Results,
		Progress: app.Hub,
		Metrics:  httpMetrics,
		Logger:   logger,
	}
	if app.Search != nil {
		deps.Search = app.Search
	}
	router := httpadapter.NewRouter(deps, httpadapter.Options{
		Service:        service,
		UploadMode:     uploadMode,
		MaxUploadBytes: cfg.MaxUploadBytes,
		RateLimitRPS:   cfg.APIRateLimitRPS,
		RateLimitBurst: cfg.APIRateLimitBurst,
	}).Handler()

	// No WriteTimeout: progress streams stay open for the whole run.
	server := &http.Server{
		Addr:              ":" + cfg.APIPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.Info("api_listening", "port", cfg.APIPort, "upload_mode", uploadMode)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("api_server_failed", "error", err.Error())
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("api_shutdown_failed", "error", err.Error())
	}
}
