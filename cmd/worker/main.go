package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kirillkom/docintel/internal/bootstrap"
	"github.com/kirillkom/docintel/internal/config"
	"github.com/kirillkom/docintel/internal/core/ports"
	"github.com/kirillkom/docintel/internal/core/usecase"
	"github.com/kirillkom/docintel/internal/observability/logging"
	"github.com/kirillkom/docintel/internal/observability/metrics"
)

const (
	service        = "docintel-worker"
	processTimeout = 5 * time.Minute
)

func main() {
	cfg := config.Load()
	logger := logging.NewJSONLogger(service, cfg.LogLevel)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	workerMetrics := metrics.NewWorkerMetrics(service)
	app, err := bootstrap.New(ctx, cfg, bootstrap.Options{
		Role:       bootstrap.RoleWorker,
		Logger:     logger,
		Registerer: workerMetrics.Registry(),
		Service:    service,
	})
	if err != nil {
		logger.Error("bootstrap_failed", "error", err.Error())
		os.Exit(1)
	}
	defer app.Close()
	if app.Queue == nil {
		logger.Error("worker_requires_nats", "hint", "set NATS_URL")
		os.Exit(1)
	}

	metricsServer := &http.Server{
		Addr:              ":" + cfg.WorkerMetricsPort,
		Handler:           workerMetrics.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logger.Info("worker_metrics_listening", "port", cfg.WorkerMetricsPort)
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("worker_metrics_server_failed", "error", err.Error())
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}()

	logger.Info("worker_subscribed", "subject", cfg.NATSIngestSubject)
	err = app.Queue.SubscribeJobs(ctx, func(handlerCtx context.Context, job ports.IngestJob) error {
		return handleJob(handlerCtx, app, workerMetrics, job)
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker_subscribe_failed", "error", err.Error())
		os.Exit(1)
	}
}

func handleJob(ctx context.Context, app *bootstrap.App, m *metrics.WorkerMetrics, job ports.IngestJob) error {
	if !job.EnqueuedAt.IsZero() {
		m.ObserveQueueLag(service, time.Since(job.EnqueuedAt))
	}
	m.StartDocument()
	start := time.Now()

	processCtx, cancel := context.WithTimeout(ctx, processTimeout)
	defer cancel()

	result, err := usecase.ProcessStoredJob(processCtx, app.Storage, app.Processor, job)
	if err != nil {
		m.FinishDocument(service, time.Since(start), "error")
		app.Logger.Error("job_failed", "document_id", job.DocumentID, "error", err.Error())
		return err
	}
	m.FinishDocument(service, time.Since(start), string(result.Status))

	if app.Archive != nil {
		if err := app.Archive.SaveResult(processCtx, result); err != nil {
			app.Logger.Error("result_archive_failed", "document_id", job.DocumentID, "error", err.Error())
			return err
		}
	}
	return nil
}
