package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/ftwrp/companion/internal/app"
	"github.com/ftwrp/companion/internal/audit"
	"github.com/ftwrp/companion/internal/leaderboard"
	"github.com/ftwrp/companion/internal/platform/cache"
	"github.com/ftwrp/companion/internal/platform/db"
	"github.com/ftwrp/companion/jobs"
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

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	leaderboardCache := leaderboard.NewCache(redisClient, cfg.LeaderboardCacheTTL)
	leaderboardService := leaderboard.NewService(leaderboard.NewRepository(pool), leaderboardCache)
	refreshJob := jobs.NewLeaderboardRefreshJob(leaderboardService, logger)

	sessionCleanup := jobs.NewSessionCleanupJob(pool, logger)
	auditPurge := jobs.NewAuditPurgeJob(audit.NewRepository(pool), logger)

	refreshTask, err := jobs.NewLeaderboardRefreshTask("scheduled")
	if err != nil {
		logger.Error("build refresh task", slog.Any("error", err))
		os.Exit(1)
	}
	cleanupTask, err := jobs.NewSessionCleanupTask()
	if err != nil {
		logger.Error("build cleanup task", slog.Any("error", err))
		os.Exit(1)
	}
	purgeTask, err := jobs.NewAuditPurgeTask(0)
	if err != nil {
		logger.Error("build purge task", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Metrics:   jobs.NewMetrics(nil),
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskLeaderboardRefresh, Handler: refreshJob.Handle},
			{Type: jobs.TaskSessionCleanup, Handler: sessionCleanup.Handle},
			{Type: jobs.TaskAuditPurge, Handler: auditPurge.Handle},
		},
		Cron: []jobs.CronRegistration{
			{Spec: "*/5 * * * *", Task: refreshTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
			{Spec: "0 4 * * *", Task: cleanupTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
			{Spec: "30 4 * * *", Task: purgeTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
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
