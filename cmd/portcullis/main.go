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
	"golang.org/x/sync/errgroup"

	"github.com/portcullis-iam/portcullis/internal/api"
	"github.com/portcullis-iam/portcullis/internal/app"
	"github.com/portcullis-iam/portcullis/internal/appperms"
	"github.com/portcullis-iam/portcullis/internal/catalog"
	"github.com/portcullis-iam/portcullis/internal/decision"
	"github.com/portcullis-iam/portcullis/internal/endpointsets"
	"github.com/portcullis-iam/portcullis/internal/events"
	"github.com/portcullis-iam/portcullis/internal/pipeline"
	"github.com/portcullis-iam/portcullis/internal/platform/cache"
	"github.com/portcullis-iam/portcullis/internal/platform/db"
	"github.com/portcullis-iam/portcullis/internal/roles"
	"github.com/portcullis-iam/portcullis/internal/shared"
	"github.com/portcullis-iam/portcullis/internal/users"
	"github.com/portcullis-iam/portcullis/jobs"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	cat := catalog.Default()
	if cfg.CatalogPath != "" {
		cat, err = catalog.Load(cfg.CatalogPath)
		if err != nil {
			logger.Error("load catalog", slog.Any("error", err))
			os.Exit(1)
		}
	}

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

	asynqClient := asynq.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := asynqClient.Close(); err != nil {
			logger.Warn("asynq close", slog.Any("error", err))
		}
	}()

	roleRepo := roles.NewRepository(pool)
	setRepo := endpointsets.NewRepository(pool)
	permRepo := appperms.NewRepository(pool)
	userRepo := users.NewRepository(pool)

	publisher := events.NewRedisPublisher(redisClient)
	republisher := jobs.NewEnqueuer(asynqClient)
	locker := shared.NewKeyedLock(redisClient, cfg.CommandLockTTL)

	pipe := pipeline.New(cat, roleRepo, setRepo, permRepo, userRepo, publisher, republisher, locker, logger)
	decider := decision.NewDecider(cat, roleRepo, setRepo, permRepo)

	handler := api.NewHandler(logger, cat, pipe, decider, roleRepo, setRepo)

	router := app.NewRouter(app.RouterParams{
		Logger:  logger,
		Config:  cfg,
		Handler: handler,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		logger.Info("http server listening", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("server error", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("shutdown complete")
}
