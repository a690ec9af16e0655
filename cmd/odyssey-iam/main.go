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

	"github.com/hibiken/asynq"

	"github.com/odyssey-erp/odyssey-iam/internal/app"
	"github.com/odyssey-erp/odyssey-iam/internal/auth"
	"github.com/odyssey-erp/odyssey-iam/internal/observability"
	"github.com/odyssey-erp/odyssey-iam/internal/platform/cache"
	"github.com/odyssey-erp/odyssey-iam/internal/rbac"
	"github.com/odyssey-erp/odyssey-iam/jobs"
)

// inlinePruner prunes in process for the memory driver, which has no worker.
type inlinePruner struct {
	catalog *rbac.Service
	logger  *slog.Logger
}

func (p inlinePruner) SchedulePrune(ctx context.Context) error {
	report, err := p.catalog.PruneDangling(ctx)
	if err != nil {
		return err
	}
	p.logger.Debug("pruned dangling references", slog.Int("roles", report.Roles), slog.Int("users", report.Users))
	return nil
}

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
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
	memory := cfg.StorageDriver == app.StorageMemory

	storage, err := app.OpenStorage(ctx, cfg)
	if err != nil {
		logger.Error("open storage", slog.Any("error", err))
		os.Exit(1)
	}
	defer storage.Close()

	deps := app.APIDeps{
		Logger:  logger,
		Config:  cfg,
		Store:   storage.Store,
		Metrics: observability.NewMetrics(),
	}

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	switch {
	case err == nil:
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.Warn("redis close", slog.Any("error", err))
			}
		}()
		deps.Revocations = auth.NewRedisRevocations(redisClient)

		redisOpts := asynq.RedisClientOpt{Addr: cfg.RedisAddr}
		if !memory {
			jobClient, err := jobs.NewClient(redisOpts, logger)
			if err != nil {
				logger.Error("init job client", slog.Any("error", err))
				os.Exit(1)
			}
			defer func() {
				if err := jobClient.Close(); err != nil {
					logger.Warn("job client close", slog.Any("error", err))
				}
			}()
			deps.Pruner = jobClient
		}

		inspector := asynq.NewInspector(redisOpts)
		defer func() {
			if err := inspector.Close(); err != nil {
				logger.Warn("inspector close", slog.Any("error", err))
			}
		}()
		deps.JobHandler = jobs.NewHandler(inspector, logger)
	case memory:
		logger.Warn("redis unavailable, logout will not revoke tokens", slog.Any("error", err))
	default:
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}

	api, err := app.NewAPI(deps)
	if err != nil {
		logger.Error("wire api", slog.Any("error", err))
		os.Exit(1)
	}

	if memory {
		api.Catalog.SetPruneScheduler(inlinePruner{catalog: api.Catalog, logger: logger})
		if _, err := app.Seed(ctx, api.Catalog, storage.Store, api.Hasher, app.SeedParams{
			AdminEmail:    cfg.SeedAdminEmail,
			AdminPassword: cfg.SeedAdminPassword,
		}, logger); err != nil {
			logger.Error("seed memory store", slog.Any("error", err))
			os.Exit(1)
		}
	}

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      api.Router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr), slog.String("storage", cfg.StorageDriver))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
