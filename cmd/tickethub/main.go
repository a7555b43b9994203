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

	"github.com/tickethub/tickethub-web/internal/access"
	"github.com/tickethub/tickethub-web/internal/admin"
	"github.com/tickethub/tickethub-web/internal/apiclient"
	"github.com/tickethub/tickethub-web/internal/app"
	"github.com/tickethub/tickethub-web/internal/auth"
	"github.com/tickethub/tickethub-web/internal/cart"
	"github.com/tickethub/tickethub-web/internal/categories"
	"github.com/tickethub/tickethub-web/internal/events"
	"github.com/tickethub/tickethub-web/internal/observability"
	"github.com/tickethub/tickethub-web/internal/organizer"
	"github.com/tickethub/tickethub-web/internal/platform/cache"
	"github.com/tickethub/tickethub-web/internal/shared"
	"github.com/tickethub/tickethub-web/internal/store"
	"github.com/tickethub/tickethub-web/internal/tickets"
	"github.com/tickethub/tickethub-web/internal/users"
	"github.com/tickethub/tickethub-web/internal/venues"
	"github.com/tickethub/tickethub-web/internal/view"
	"github.com/tickethub/tickethub-web/jobs"
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

	sessionManager := shared.NewSessionManager(redisClient, "tickethub_session", cfg.SessionTTL, cfg.IsProduction())
	csrfManager := shared.NewCSRFManager(cfg.CSRFSecret)

	templates, err := view.NewEngine()
	if err != nil {
		logger.Error("parse templates", slog.Any("error", err))
		os.Exit(1)
	}

	authService := auth.NewService(api)
	guard := access.Middleware{
		Resolver:  auth.NewResolver(authService, logger),
		Logger:    logger,
		LoginPath: "/auth/login",
		Recorder:  metrics,
	}

	eventsService := events.NewService(api, events.NewCache(redisClient, cfg.EventsCacheTTL), logger)
	venueService := venues.NewService(api)
	categoryService := categories.NewService(api)
	userService := users.NewService(api)
	organizerService := organizer.NewService(eventsService, venueService, categoryService)
	cartService := cart.NewService(cart.NewRedisRepository(redisClient, cfg.SessionTTL), eventsService, metrics)

	eventStores := store.NewRegistry(cfg.StoreIdleTTL, func(context.Context, string) (*store.Collection[events.Event, events.Filter], error) {
		return events.NewStore(eventsService, metrics), nil
	})
	venueStores := store.NewRegistry(cfg.StoreIdleTTL, func(context.Context, string) (*store.Collection[venues.Venue, struct{}], error) {
		return venues.NewStore(venueService, metrics), nil
	})
	categoryStores := store.NewRegistry(cfg.StoreIdleTTL, func(context.Context, string) (*store.Collection[categories.Category, struct{}], error) {
		return categories.NewStore(categoryService, metrics), nil
	})
	userStores := store.NewRegistry(cfg.StoreIdleTTL, func(context.Context, string) (*store.Collection[users.User, struct{}], error) {
		return users.NewStore(userService, metrics), nil
	})
	organizerStores := store.NewRegistry(cfg.StoreIdleTTL, func(context.Context, string) (*store.Collection[events.Event, struct{}], error) {
		return organizerService.NewStore(metrics), nil
	})
	carts := store.NewRegistry(cfg.StoreIdleTTL, cartService.Open)

	go eventStores.Run(ctx, cfg.StoreSweepPeriod)
	go venueStores.Run(ctx, cfg.StoreSweepPeriod)
	go categoryStores.Run(ctx, cfg.StoreSweepPeriod)
	go userStores.Run(ctx, cfg.StoreSweepPeriod)
	go organizerStores.Run(ctx, cfg.StoreSweepPeriod)
	go carts.Run(ctx, cfg.StoreSweepPeriod)

	reaper := app.StoreReaper{
		BySession: []app.Dropper{eventStores, venueStores, categoryStores, userStores, organizerStores},
		ByUser:    []app.Dropper{carts},
	}

	redisOpts := cfg.Redis().AsynqOpt()
	jobClient := jobs.NewClient(redisOpts)
	defer func() {
		if err := jobClient.Close(); err != nil {
			logger.Warn("job client close", slog.Any("error", err))
		}
	}()
	inspector := asynq.NewInspector(redisOpts)
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()

	warm := func(ctx context.Context) error {
		return jobClient.EnqueueEventsWarm(ctx, jobs.EventsWarmPayload{Pages: cfg.EventsWarmPages, Limit: cfg.EventsPageSize})
	}
	counters := admin.Counters{
		Venues:     venueService.Count,
		Categories: categoryService.Count,
		ActiveEvents: func(ctx context.Context) (int, error) {
			return eventsService.Count(ctx, events.StatusActive)
		},
	}

	organizerHandler := organizer.NewHandler(logger, organizerService, organizerStores, templates, csrfManager, guard)
	organizerHandler.SetLocation(cfg.Location())

	router := app.NewRouter(app.RouterParams{
		Logger:            logger,
		Config:            cfg,
		Templates:         templates,
		SessionManager:    sessionManager,
		CSRFManager:       csrfManager,
		Guard:             guard,
		Metrics:           metrics,
		AuthHandler:       auth.NewHandler(logger, authService, templates, sessionManager, csrfManager, guard, reaper),
		EventsHandler:     events.NewHandler(logger, eventsService, eventStores, templates, csrfManager, cfg.EventsPageSize),
		CartHandler:       cart.NewHandler(logger, carts, templates, csrfManager, guard),
		TicketsHandler:    tickets.NewHandler(logger, tickets.NewService(api), templates, csrfManager, guard),
		AdminHandler:      admin.NewHandler(logger, counters, templates, csrfManager, guard, warm),
		VenuesHandler:     venues.NewHandler(logger, venueService, venueStores, templates, csrfManager, guard),
		CategoriesHandler: categories.NewHandler(logger, categoryService, categoryStores, templates, csrfManager, guard),
		UsersHandler:      users.NewHandler(logger, userService, userStores, templates, csrfManager, guard),
		OrganizerHandler:  organizerHandler,
		JobHandler:        jobs.NewHandler(inspector, logger),
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr), slog.String("api", cfg.APIBaseURL))
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
