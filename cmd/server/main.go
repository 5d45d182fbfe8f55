package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"golang.org/x/sync/errgroup"

	"dreamclerk/internal/auth"
	"dreamclerk/internal/config"
	"dreamclerk/internal/content"
	"dreamclerk/internal/handler"
	"dreamclerk/internal/middleware"
	"dreamclerk/internal/publisher"
	"dreamclerk/internal/scheduler"
	"dreamclerk/internal/server"
	"dreamclerk/internal/service"
	"dreamclerk/internal/source/openrouter"
	"dreamclerk/internal/storage/postgres"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	logger := setupLogger("info")

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger = setupLogger(cfg.LogLevel)

	db, err := sqlx.Connect("postgres", cfg.Database.DSN())
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	logger.Info("connected to database")

	var events service.Publisher
	if cfg.RabbitMQ.Enabled {
		rabbitMQ, err := publisher.NewRabbitMQ(publisher.Config{
			URL:        cfg.RabbitMQ.URL,
			Exchange:   cfg.RabbitMQ.Exchange,
			QueueName:  cfg.RabbitMQ.QueueName,
			PostsKey:   cfg.RabbitMQ.PostsKey,
			SignupsKey: cfg.RabbitMQ.SignupsKey,
		}, logger)
		if err != nil {
			logger.Error("failed to connect to rabbitmq", "error", err)
			os.Exit(1)
		}
		defer rabbitMQ.Close()
		events = rabbitMQ
	}

	articleStore := postgres.NewArticleStore(db)
	counterStore := postgres.NewCounterStore(db)
	registrationStore := postgres.NewRegistrationStore(db)
	txManager := postgres.NewTransactionManager(db)

	llm := openrouter.New(openrouter.Config{
		APIKey:         cfg.LLM.APIKey,
		BaseURL:        cfg.LLM.BaseURL,
		Model:          cfg.LLM.Model,
		Temperature:    cfg.LLM.Temperature,
		MaxTokens:      cfg.LLM.MaxTokens,
		Timeout:        cfg.LLM.Timeout,
		SiteURL:        cfg.LLM.SiteURL,
		AppName:        cfg.LLM.AppName,
		MaxAttempts:    cfg.LLM.Retry.MaxAttempts,
		InitialBackoff: cfg.LLM.Retry.InitialBackoff,
		MaxBackoff:     cfg.LLM.Retry.MaxBackoff,
	}, logger)
	if !llm.Configured() {
		logger.Warn("OPENROUTER_API_KEY is not set, blog generation is disabled")
	}

	generator := content.NewGenerator(llm, logger)
	batchService := service.NewBatchService(generator, articleStore, events, logger, cfg.Blog)
	blogService := service.NewBlogService(articleStore)
	counterService := service.NewCounterService(registrationStore, counterStore, txManager, logger)

	var (
		tokens    *auth.TokenService
		validator middleware.TokenValidator
	)
	if cfg.Auth.JWTSecret != "" {
		tokens, err = auth.NewTokenService(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
		if err != nil {
			logger.Error("invalid JWT secret", "error", err)
			os.Exit(1)
		}
		validator = tokens
	} else {
		logger.Warn("JWT_SECRET is not set, login and profile routes are disabled")
	}

	registrationService := service.NewRegistrationService(service.RegistrationDeps{
		Users:         postgres.NewAuthUserStore(db),
		Profiles:      postgres.NewProfileStore(db),
		Registrations: registrationStore,
		Settings:      postgres.NewSettingsStore(db),
		Attempts:      postgres.NewSignupAttemptStore(db),
		TxManager:     txManager,
		Publisher:     events,
		Counter:       counterService,
		Passwords:     auth.NewPasswordService(cfg.Auth.BcryptCost),
		Tokens:        tokens,
	}, cfg.Secrets.AdminInit, cfg.Schedule.SignupStaleAfter, logger)

	migrate := func(ctx context.Context) (int, error) {
		return postgres.Migrate(ctx, db)
	}

	srv := server.New(cfg.Server, server.Handlers{
		Blog:    handler.NewBlogHandler(batchService, blogService, llm, cfg.Secrets, logger),
		Account: handler.NewAccountHandler(registrationService, logger),
		Counter: handler.NewCounterHandler(counterService, logger),
		Admin:   handler.NewAdminHandler(migrate, counterService, db, cfg.Secrets.AdminInit, logger),
	}, validator, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return srv.Run(gctx)
	})

	if cfg.Schedule.Enabled {
		reconcile := scheduler.NewScheduler(scheduler.Job{
			Name: "counter_reconcile",
			Run: func(ctx context.Context) error {
				_, err := counterService.Reconcile(ctx)
				return err
			},
		}, cfg.Schedule.ReconcileInterval, cfg.Schedule.JobTimeout, logger)

		sweep := scheduler.NewScheduler(scheduler.Job{
			Name: "signup_sweep",
			Run: func(ctx context.Context) error {
				_, err := registrationService.SweepStaleAttempts(ctx)
				return err
			},
		}, cfg.Schedule.SignupSweepInterval, cfg.Schedule.JobTimeout, logger)

		for _, sched := range []*scheduler.Scheduler{reconcile, sweep} {
			g.Go(func() error {
				if err := sched.Start(gctx); !errors.Is(err, context.Canceled) {
					return err
				}
				return nil
			})
		}
	}

	logger.Info("starting dreamclerk",
		"port", cfg.Server.Port,
		"posts_per_batch", cfg.Blog.PostsPerBatch,
		"schedule_enabled", cfg.Schedule.Enabled,
		"events_enabled", events != nil,
	)

	if err := g.Wait(); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
	logger.Info("shutdown complete")
}

func setupLogger(level string) *slog.Logger {
	var logLevel slog.Level
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: logLevel}
	return slog.New(slog.NewJSONHandler(os.Stdout, opts))
}
