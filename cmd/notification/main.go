package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/pzaytsev/remindd/internal/api"
	"github.com/pzaytsev/remindd/internal/circuitbreaker"
	"github.com/pzaytsev/remindd/internal/client"
	"github.com/pzaytsev/remindd/internal/config"
	"github.com/pzaytsev/remindd/internal/db"
	"github.com/pzaytsev/remindd/internal/delivery"
	"github.com/pzaytsev/remindd/internal/metrics"
	"github.com/pzaytsev/remindd/internal/notifier"
	"github.com/pzaytsev/remindd/internal/observ"
	"github.com/pzaytsev/remindd/internal/redis"
	"github.com/pzaytsev/remindd/internal/scheduler"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Load config
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Setup logger
	logger, err := observ.NewLogger(cfg.Env, cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("starting remindd notification service",
		zap.String("env", cfg.Env),
		zap.Int("port", cfg.NotificationPort),
	)

	// Initialize database connection
	ctx := context.Background()
	dbConfig := db.Config{
		Host:     cfg.DBHost,
		Port:     cfg.DBPort,
		User:     cfg.DBUser,
		Password: cfg.DBPassword,
		Database: cfg.DBName,
		SSLMode:  cfg.DBSSLMode,
	}

	database, err := db.New(ctx, dbConfig, logger)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer database.Close()

	logger.Info("database connection established",
		zap.String("host", cfg.DBHost),
		zap.Int("port", cfg.DBPort),
		zap.String("database", cfg.DBName),
	)

	// Initialize repository
	repo := db.NewNotificationRepository(database, logger)

	// Redis backs the durable job store; the service cannot run without it.
	redisClient, err := redis.New(ctx, redis.Config{
		Host:     cfg.RedisHost,
		Port:     cfg.RedisPort,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}, logger)
	if err != nil {
		return fmt.Errorf("failed to connect to redis: %w", err)
	}
	defer redisClient.Close()

	// Build the delivery senders. SES for email, SNS for push, each behind
	// its own circuit breaker. Falls back to log-only delivery in
	// development when AWS is unreachable.
	var senders []delivery.Sender

	sesSender, err := delivery.NewSESSender(ctx, delivery.SESConfig{
		Region:    cfg.AWSRegion,
		FromEmail: cfg.SESFromEmail,
	}, logger)
	if err != nil {
		logger.Warn("SES sender unavailable, email delivery disabled",
			zap.Error(err),
		)
	} else {
		sesBreaker := circuitbreaker.New(circuitbreaker.DefaultConfig("ses"), logger)
		senders = append(senders, circuitbreaker.NewProtectedSender(sesSender, sesBreaker, logger))
	}

	snsSender, err := delivery.NewSNSSender(ctx, delivery.SNSConfig{
		Region: cfg.SNSRegion,
	}, logger)
	if err != nil {
		logger.Warn("SNS sender unavailable, push delivery disabled",
			zap.Error(err),
		)
	} else {
		snsBreaker := circuitbreaker.New(circuitbreaker.DefaultConfig("sns"), logger)
		senders = append(senders, circuitbreaker.NewProtectedSender(snsSender, snsBreaker, logger))
	}

	var sender delivery.Sender
	if len(senders) > 0 {
		sender = delivery.NewMultiSender(logger, senders...)
	} else {
		if cfg.Env != "development" {
			return fmt.Errorf("no delivery channel available")
		}
		logger.Warn("no AWS delivery channel available, using log sender")
		sender = delivery.NewLogSender(logger)
	}

	// Client for reporting delivery outcomes back to the storage service
	storageClient := client.NewStorageClient(cfg.StorageServiceURL, cfg.ClientTimeout, logger)

	// Wire the orchestrator and the scheduler together. The scheduler needs
	// the callback at construction time, so the service gets the scheduler
	// injected afterwards via the small indirection below.
	var service *notifier.Service

	sched := scheduler.New(redisClient.Raw(), func(ctx context.Context, p scheduler.Payload) {
		service.OnFire(ctx, p)
	}, scheduler.Config{
		PollInterval: cfg.SchedulerPollInterval,
	}, logger)

	service = notifier.New(repo, sched, sender, storageClient, logger)

	schedCtx, schedCancel := context.WithCancel(context.Background())
	defer schedCancel()

	schedDone := make(chan struct{})
	go func() {
		sched.Start(schedCtx)
		close(schedDone)
	}()

	logger.Info("delivery scheduler started",
		zap.Duration("poll_interval", cfg.SchedulerPollInterval),
	)

	handler := api.NewNotificationHandler(logger, service)

	// Setup router
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(metrics.Middleware)

	// Custom logging middleware
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			logger.Info("request completed",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("duration_ms", time.Since(start)),
				zap.String("request_id", middleware.GetReqID(r.Context())),
			)
		})
	})

	// API routes
	r.Route("/v1", func(r chi.Router) {
		r.Post("/notifications", handler.CreateNotification)
		r.Get("/notifications/{reminder_id}", handler.GetNotification)
		r.Delete("/notifications/{reminder_id}", handler.CancelNotification)
	})

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		if err := database.Health(r.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("DB DOWN"))
			return
		}
		if err := redisClient.Ping(r.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("REDIS DOWN"))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	// Prometheus metrics endpoint
	r.Handle("/metrics", metrics.Handler())

	// Setup HTTP server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.NotificationPort),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("server listening", zap.String("addr", srv.Addr))
		serverErrors <- srv.ListenAndServe()
	}()

	// Listen for shutdown signals
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	// Block until we receive a signal or server error
	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)
	case sig := <-shutdown:
		logger.Info("shutdown signal received", zap.String("signal", sig.String()))

		// Stop the poll loop before draining requests so no new fire
		// starts mid-shutdown.
		schedCancel()

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			srv.Close()
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}

		// Claimed jobs are gone from the queue; let their deliveries
		// finish before the process exits.
		<-schedDone

		logger.Info("server stopped gracefully")
	}

	return nil
}
