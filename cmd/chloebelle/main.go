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

	"github.com/chloe-belle/chloe-belle/internal/access"
	"github.com/chloe-belle/chloe-belle/internal/app"
	"github.com/chloe-belle/chloe-belle/internal/auth"
	"github.com/chloe-belle/chloe-belle/internal/comments"
	"github.com/chloe-belle/chloe-belle/internal/observability"
	"github.com/chloe-belle/chloe-belle/internal/platform/cache"
	"github.com/chloe-belle/chloe-belle/internal/platform/db"
	"github.com/chloe-belle/chloe-belle/internal/posts"
	"github.com/chloe-belle/chloe-belle/internal/roles"
	"github.com/chloe-belle/chloe-belle/internal/settings"
	"github.com/chloe-belle/chloe-belle/internal/shared"
	"github.com/chloe-belle/chloe-belle/internal/users"
	"github.com/chloe-belle/chloe-belle/jobs"
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

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
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

	sessionManager := shared.NewSessionManager(redisClient, "chloe_session", cfg.SessionSecret, cfg.SessionTTL, cfg.IsProduction())
	csrfManager := shared.NewCSRFManager(cfg.CSRFSecret)
	metrics := observability.NewMetrics()

	settingsStore := settings.NewStore(settings.NewRepository(pool), cfg.SettingsCacheTTL, logger)
	settingsHandler := settings.NewHandler(logger, settingsStore)

	rolesService := roles.NewService(roles.NewRepository(pool), logger)
	if err := rolesService.EnsureSeedRoles(ctx); err != nil {
		logger.Error("seed roles", slog.Any("error", err))
		os.Exit(1)
	}
	rolesHandler := roles.NewHandler(logger, rolesService)

	authService := auth.NewService(auth.NewRepository(pool))
	authHandler := auth.NewHandler(logger, authService, sessionManager, csrfManager)
	actorResolver := auth.NewActorResolver(authService, rolesService, logger)

	usersService := users.NewService(users.NewRepository(pool), rolesService, logger)
	usersHandler := users.NewHandler(logger, usersService)

	quotaCounter := access.NewCounter(access.NewQuotaRepository(pool), settingsStore)
	gate := access.NewGate(settingsStore, quotaCounter, logger, metrics)

	postsRepo := posts.NewRepository(pool)
	postsService := posts.NewService(postsRepo, gate)
	postsHandler := posts.NewHandler(logger, postsService)

	commentsService := comments.NewService(comments.NewRepository(pool), postsRepo, logger)
	commentsHandler := comments.NewHandler(logger, commentsService)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:          logger,
		Config:          cfg,
		SessionManager:  sessionManager,
		CSRFManager:     csrfManager,
		SettingsStore:   settingsStore,
		ActorResolver:   actorResolver,
		AuthHandler:     authHandler,
		SettingsHandler: settingsHandler,
		RolesHandler:    rolesHandler,
		UsersHandler:    usersHandler,
		PostsHandler:    postsHandler,
		CommentsHandler: commentsHandler,
		JobHandler:      jobHandler,
		Metrics:         metrics,
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
