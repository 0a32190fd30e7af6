package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/chloe-belle/chloe-belle/internal/access"
	"github.com/chloe-belle/chloe-belle/internal/app"
	"github.com/chloe-belle/chloe-belle/internal/platform/db"
	"github.com/chloe-belle/chloe-belle/internal/roles"
	"github.com/chloe-belle/chloe-belle/internal/users"
	"github.com/chloe-belle/chloe-belle/jobs"
)

func main() {
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

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	rolesService := roles.NewService(roles.NewRepository(pool), logger)
	usersService := users.NewService(users.NewRepository(pool), rolesService, logger)
	quotaRepo := access.NewQuotaRepository(pool)

	pruneTask, err := jobs.NewFreeViewPruneTask(jobs.FreeViewPrunePayload{Retention: jobs.DefaultFreeViewRetention})
	if err != nil {
		logger.Error("build prune task", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskSubscriptionSweep, Handler: jobs.NewSubscriptionSweepHandler(usersService, logger)},
			{Type: jobs.TaskFreeViewPrune, Handler: jobs.NewFreeViewPruneHandler(quotaRepo, logger)},
		},
		Cron: []jobs.CronRegistration{
			{Spec: "10 * * * *", Task: jobs.NewSubscriptionSweepTask(), Options: []asynq.Option{asynq.MaxRetry(3)}},
			{Spec: "45 3 * * *", Task: pruneTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	if err := worker.Run(ctx); err != nil && err != context.Canceled {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
