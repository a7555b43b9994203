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

	"github.com/tickethub/tickethub-web/internal/apiclient"
	"github.com/tickethub/tickethub-web/internal/app"
	"github.com/tickethub/tickethub-web/internal/events"
	jobmetrics "github.com/tickethub/tickethub-web/internal/jobs"
	"github.com/tickethub/tickethub-web/internal/observability"
	"github.com/tickethub/tickethub-web/internal/platform/cache"
	"github.com/tickethub/tickethub-web/jobs"
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

	redisClient, err := cache.New(ctx, cfg.Redis())
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	metrics := observability.NewMetrics()
	api := apiclient.New(cfg.APIBaseURL, cfg.APITimeout,
		apiclient.WithLogger(logger),
		apiclient.WithObserver(metrics))
	eventsService := events.NewService(api, events.NewCache(redisClient, cfg.EventsCacheTTL), logger)
	warmupJob := jobs.NewEventsWarmupJob(eventsService, logger, jobmetrics.NewMetrics(metrics.Registerer()))

	warmupTask, err := jobs.NewEventsWarmTask(jobs.EventsWarmPayload{Pages: cfg.EventsWarmPages, Limit: cfg.EventsPageSize})
	if err != nil {
		logger.Error("build warmup task", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: cfg.Redis().AsynqOpt(),
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskEventsWarm, Handler: warmupJob.Handle},
		},
		Cron: []jobs.CronRegistration{
			{Spec: cfg.EventsWarmCron, Task: warmupTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	inspector := asynq.NewInspector(cfg.Redis().AsynqOpt())
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	status := &http.Server{
		Addr:              cfg.WorkerStatusAddr,
		Handler:           jobs.NewStatusRouter(metrics.Handler(), inspector, logger),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := status.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("worker status server", slog.Any("error", err))
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := status.Shutdown(shutdownCtx); err != nil {
			logger.Warn("worker status shutdown", slog.Any("error", err))
		}
	}()

	logger.Info("starting worker", slog.String("cron", cfg.EventsWarmCron), slog.String("status_addr", cfg.WorkerStatusAddr))
	if err := worker.Run(ctx); err != nil && err != context.Canceled {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
