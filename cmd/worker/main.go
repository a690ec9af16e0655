package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/odyssey-erp/odyssey-iam/cmd/worker/cli"
	"github.com/odyssey-erp/odyssey-iam/internal/app"
	"github.com/odyssey-erp/odyssey-iam/internal/observability"
	"github.com/odyssey-erp/odyssey-iam/internal/rbac"
	"github.com/odyssey-erp/odyssey-iam/jobs"
)

func main() {
	pruneNow := flag.Bool("prune-now", false, "enqueue a dangling reference prune and exit")
	queueStats := flag.Bool("queue-stats", false, "print default queue statistics and exit")
	flag.Parse()

	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	if *pruneNow || *queueStats {
		if err := runOnce(ctx, cfg.RedisAddr, *pruneNow, logger); err != nil {
			logger.Error("jobs cli", slog.Any("error", err))
			os.Exit(1)
		}
		return
	}

	if cfg.StorageDriver == app.StorageMemory {
		logger.Error("worker needs shared storage; memory driver is process local")
		os.Exit(1)
	}
	storage, err := app.OpenStorage(ctx, cfg)
	if err != nil {
		logger.Error("open storage", slog.Any("error", err))
		os.Exit(1)
	}
	defer storage.Close()

	metrics := observability.NewMetrics()
	catalog := rbac.NewService(storage.Store, logger)
	pruneJob := jobs.NewPruneDanglingJob(catalog, logger, metrics)

	pruneTask, err := jobs.NewPruneDanglingTask("nightly", time.Time{})
	if err != nil {
		logger.Error("build prune task", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskPruneDangling, Handler: pruneJob.Handle},
		},
		Cron: []jobs.CronRegistration{
			{Spec: "0 3 * * *", Task: pruneTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	metricsServer := &http.Server{Addr: cfg.WorkerMetricsAddr, Handler: metrics.Handler(), ReadHeaderTimeout: 5 * time.Second}
	go func() {
		logger.Info("serving worker metrics", slog.String("addr", cfg.WorkerMetricsAddr))
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("worker metrics server", slog.Any("error", err))
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}()

	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}

func runOnce(ctx context.Context, redisAddr string, prune bool, logger *slog.Logger) error {
	c, err := cli.NewJobsCLI(redisAddr)
	if err != nil {
		return err
	}
	defer func() {
		if err := c.Close(); err != nil {
			logger.Warn("jobs cli close", slog.Any("error", err))
		}
	}()
	if prune {
		info, err := c.Trigger(ctx, jobs.TaskPruneDangling)
		if err != nil {
			return err
		}
		logger.Info("prune enqueued", slog.String("task_id", info.ID))
	}
	stats, err := c.InspectQueue(ctx)
	if err != nil {
		return err
	}
	return cli.WriteStats(os.Stdout, stats)
}
