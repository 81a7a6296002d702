package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/ftwrp/companion/internal/app"
	"github.com/ftwrp/companion/internal/applications"
	"github.com/ftwrp/companion/internal/audit"
	"github.com/ftwrp/companion/internal/auth"
	"github.com/ftwrp/companion/internal/gameserver"
	"github.com/ftwrp/companion/internal/leaderboard"
	"github.com/ftwrp/companion/internal/news"
	"github.com/ftwrp/companion/internal/observability"
	"github.com/ftwrp/companion/internal/platform/cache"
	"github.com/ftwrp/companion/internal/platform/db"
	"github.com/ftwrp/companion/internal/players"
	"github.com/ftwrp/companion/internal/rbac"
	"github.com/ftwrp/companion/internal/reports"
	"github.com/ftwrp/companion/internal/shared"
	"github.com/ftwrp/companion/jobs"
)

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

	dbpool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

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

	sessionManager := shared.NewSessionManager(redisClient, "companion_session", cfg.SessionSecret, cfg.SessionTTL, cfg.IsProduction())
	csrfManager := shared.NewCSRFManager(cfg.CSRFSecret)
	auditLogger := shared.NewAuditLogger(dbpool)
	metrics := observability.NewMetrics()

	rbacRepo := rbac.NewRepository(dbpool)
	resolver := rbac.NewResolver(rbac.ResolverConfig{
		Source:  rbacRepo,
		Logger:  logger,
		TTL:     cfg.PermissionCacheTTL,
		Metrics: metrics,
	})
	rbacMiddleware := rbac.Middleware{Resolver: resolver, Logger: logger}
	rbacService := rbac.NewService(rbacRepo, resolver)
	rbacHandler := rbac.NewHandler(logger, rbacService, auditLogger, rbacMiddleware)

	authRepo := auth.NewRepository(dbpool)
	authService := auth.NewService(authRepo)
	authHandler := auth.NewHandler(logger, authService, sessionManager, csrfManager, resolver)

	reportsService := reports.NewService(reports.NewRepository(dbpool))
	reportsHandler := reports.NewHandler(logger, reportsService, auditLogger, rbacMiddleware)

	applicationsService := applications.NewService(applications.NewRepository(dbpool))
	applicationsHandler := applications.NewHandler(logger, applicationsService, auditLogger, rbacMiddleware)

	playersService := players.NewService(players.NewRepository(dbpool))
	playersHandler := players.NewHandler(logger, playersService, auditLogger, rbacMiddleware)

	newsService := news.NewService(news.NewRepository(dbpool))
	newsHandler := news.NewHandler(logger, newsService, auditLogger, rbacMiddleware)

	auditService := audit.NewService(audit.NewRepository(dbpool))
	auditHandler := audit.NewHandler(logger, auditService, rbacMiddleware)

	leaderboardCache := leaderboard.NewCache(redisClient, cfg.LeaderboardCacheTTL)
	leaderboardService := leaderboard.NewService(leaderboard.NewRepository(dbpool), leaderboardCache)
	leaderboardHandler := leaderboard.NewHandler(logger, leaderboardService)
	if err := leaderboardCache.ListenForInvalidation(ctx, ""); err != nil {
		logger.Warn("leaderboard invalidation listener", slog.Any("error", err))
	}

	statusClient, err := gameserver.NewClient(cfg.GameServerURL, 5*time.Second)
	if err != nil {
		logger.Error("game server client", slog.Any("error", err))
		os.Exit(1)
	}
	gameServerService := gameserver.NewService(logger, statusClient, gameserver.NewRepository(dbpool), redisClient, cfg.GameServerStatusTTL)
	gameServerHandler := gameserver.NewHandler(logger, gameServerService, auditLogger, rbacMiddleware)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:              logger,
		Config:              cfg,
		SessionManager:      sessionManager,
		CSRFManager:         csrfManager,
		AuthHandler:         authHandler,
		RBACHandler:         rbacHandler,
		ReportsHandler:      reportsHandler,
		ApplicationsHandler: applicationsHandler,
		PlayersHandler:      playersHandler,
		NewsHandler:         newsHandler,
		AuditHandler:        auditHandler,
		LeaderboardHandler:  leaderboardHandler,
		GameServerHandler:   gameServerHandler,
		JobHandler:          jobHandler,
		Metrics:             metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
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
