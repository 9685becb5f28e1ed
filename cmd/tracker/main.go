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
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/apslhvsl/jira-clone/internal/activity"
	"github.com/apslhvsl/jira-clone/internal/app"
	"github.com/apslhvsl/jira-clone/internal/auth"
	"github.com/apslhvsl/jira-clone/internal/boards"
	"github.com/apslhvsl/jira-clone/internal/items"
	"github.com/apslhvsl/jira-clone/internal/members"
	"github.com/apslhvsl/jira-clone/internal/notify"
	"github.com/apslhvsl/jira-clone/internal/observability"
	"github.com/apslhvsl/jira-clone/internal/platform/db"
	"github.com/apslhvsl/jira-clone/internal/projects"
	"github.com/apslhvsl/jira-clone/internal/rbac"
	"github.com/apslhvsl/jira-clone/internal/users"
	"github.com/apslhvsl/jira-clone/jobs"
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

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Warn("redis ping", slog.Any("error", err))
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	jobClient, err := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	if err != nil {
		logger.Error("init job client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := jobClient.Close(); err != nil {
			logger.Warn("job client close", slog.Any("error", err))
		}
	}()

	metrics := observability.NewMetrics()

	notifyRepo := notify.NewRepository(pool)
	notifyCache := notify.NewCache(redisClient)
	notifyService := notify.NewService(notifyRepo, notifyCache, jobClient, logger)
	notifyHandler := notify.NewHandler(logger, notifyService)

	rbacStore := rbac.NewStore(pool)
	engine := rbac.NewEngine(rbacStore)

	itemsRepo := items.NewRepository(pool)
	guard := rbac.Guard{Engine: engine, Items: itemsRepo, Logger: logger, Denials: metrics}

	usersRepo := users.NewRepository(pool)

	activityRepo := activity.NewRepository(pool)
	activityHandler := activity.NewHandler(logger, activityRepo)

	projectsRepo := projects.NewRepository(pool)
	projectsService := projects.NewService(projectsRepo)
	projectsHandler := projects.NewHandler(logger, projectsService, guard)

	membersRepo := members.NewRepository(pool)
	membersService := members.NewService(membersRepo, rbacStore, usersRepo, notifyService, logger)
	membersHandler := members.NewHandler(logger, membersService, guard)

	itemsService := items.NewService(itemsRepo, notifyService, activityRepo, engine, logger)
	itemsHandler := items.NewHandler(logger, itemsService, guard)

	boardsRepo := boards.NewRepository(pool)
	boardsService := boards.NewService(boardsRepo)
	boardsHandler := boards.NewHandler(logger, boardsService, guard)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, logger)

	verifier := auth.NewJWTVerifier(cfg.JWTSecret)
	authMiddleware := auth.Middleware{Verifier: verifier, Logger: logger}

	router := app.NewRouter(app.RouterParams{
		Logger:          logger,
		Config:          cfg,
		AuthMiddleware:  authMiddleware,
		ProjectsHandler: projectsHandler,
		MembersHandler:  membersHandler,
		ItemsHandler:    itemsHandler,
		BoardsHandler:   boardsHandler,
		ActivityHandler: activityHandler,
		NotifyHandler:   notifyHandler,
		JobHandler:      jobHandler,
		Metrics:         metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("server exited", slog.Any("error", err))
		os.Exit(1)
	}
}
