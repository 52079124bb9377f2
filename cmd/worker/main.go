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

	"github.com/kirillkom/bpx-import-service/internal/bootstrap"
	"github.com/kirillkom/bpx-import-service/internal/config"
	"github.com/kirillkom/bpx-import-service/internal/core/domain"
	"github.com/kirillkom/bpx-import-service/internal/observability/logging"
	"github.com/kirillkom/bpx-import-service/internal/observability/metrics"
)

const (
	serviceName   = "worker"
	importTimeout = 10 * time.Minute
)

func main() {
	cfg := config.Load()
	slog.SetDefault(logging.NewJSONLogger(serviceName, cfg.LogLevel))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// The worker only exists to drain the queue.
	cfg.AsyncImportsEnabled = true
	app, err := bootstrap.New(ctx, cfg)
	if err != nil {
		slog.Error("bootstrap_failed", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	workerMetrics := metrics.NewWorkerMetrics(serviceName)
	metricsServer := &http.Server{
		Addr:              ":" + cfg.WorkerMetricsPort,
		Handler:           workerMetrics.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("worker_metrics_server_failed", "error", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}()

	slog.Info("worker_subscribed", "subject", cfg.NATSSubject, "metrics_port", cfg.WorkerMetricsPort)
	err = app.Queue.SubscribeImportRequested(ctx, func(handlerCtx context.Context, job domain.ImportJob) error {
		if !job.RequestedAt.IsZero() {
			workerMetrics.ObserveQueueLag(serviceName, time.Since(job.RequestedAt))
		}

		importCtx, cancel := context.WithTimeout(handlerCtx, importTimeout)
		defer cancel()

		workerMetrics.StartImport()
		start := time.Now()
		summary, err := app.ImportUC.Import(importCtx, job)
		workerMetrics.FinishImport(serviceName, time.Since(start), summary, err)
		return err
	})
	if err != nil {
		slog.Error("worker_subscribe_failed", "error", err)
		os.Exit(1)
	}
}
