package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"krewup/internal/billing"
	stripegw "krewup/internal/billing/gateway/stripe"
	"krewup/internal/config"
	"krewup/internal/logger"
	"krewup/internal/notify"
	"krewup/internal/scheduler"
	"krewup/internal/server"
	"krewup/internal/storage/postgres"
	"krewup/internal/storage/redis"

	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	log.Info("starting crewup service",
		zap.String("log_level", cfg.LogLevel),
		zap.Duration("alert_lookback", cfg.AlertLookback),
		zap.Bool("cron_enabled", cfg.CronEnabled),
	)

	log.Info("connecting to PostgreSQL...")
	store, err := postgres.New(cfg.PostgresDSN, log)
	if err != nil {
		log.Fatal("failed to connect to PostgreSQL", zap.Error(err))
	}
	defer store.Close()

	migrateCtx, migrateCancel := context.WithTimeout(context.Background(), 10*time.Second)
	err = store.Migrate(migrateCtx)
	migrateCancel()
	if err != nil {
		log.Fatal("failed to migrate", zap.Error(err))
	}

	log.Info("PostgreSQL connected successfully")

	health := map[string]server.Pinger{"postgres": store}

	// Redis only carries the cursor, the run lock and rate limits, so the
	// service keeps running without it.
	var (
		runState scheduler.RunState
		counter  server.RateCounter
	)
	log.Info("connecting to Redis...")
	cache, err := redis.New(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, log)
	if err != nil {
		log.Warn("Redis unavailable, running with fixed alert window and no rate limit", zap.Error(err))
	} else {
		defer cache.Close()
		runState = cache
		counter = cache
		health["redis"] = cache
		log.Info("Redis connected successfully")
	}

	var pusher scheduler.Pusher
	if cfg.TelegramEnabled() {
		tg, err := notify.NewTelegram(cfg.TelegramToken, cfg.AppBaseURL, log)
		if err != nil {
			log.Fatal("failed to create telegram notifier", zap.Error(err))
		}
		pusher = tg
	}

	stripegw.SetKey(cfg.StripeSecretKey)

	checker := scheduler.NewProximityChecker(store, runState, pusher, cfg.AlertLookback, cfg.AlertMaxCatchup, log)
	maintenance := scheduler.NewMaintenanceJob(store, log)
	reconciler := billing.NewReconciler(
		store,
		store,
		stripegw.New(),
		billing.Plans{
			MonthlyPriceID: cfg.StripePriceMonthly,
			AnnualPriceID:  cfg.StripePriceAnnual,
		},
		cfg.BoostDuration,
		log,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		log.Info("received shutdown signal", zap.String("signal", sig.String()))
		cancel()
	}()

	if cfg.CronEnabled {
		c := scheduler.NewCron(log)

		err := c.Add(ctx, "proximity-alerts", cfg.CronSpec, func(ctx context.Context) {
			if _, err := checker.Run(ctx, time.Now()); err != nil {
				log.Error("scheduled proximity check failed", zap.Error(err))
			}
		})
		if err != nil {
			log.Fatal("failed to schedule proximity check", zap.Error(err))
		}

		err = c.Add(ctx, "maintenance", cfg.MaintenanceSpec, func(ctx context.Context) {
			_, _ = maintenance.Run(ctx, time.Now())
		})
		if err != nil {
			log.Fatal("failed to schedule maintenance", zap.Error(err))
		}

		c.Start()
		defer c.Stop()
	}

	srv := &http.Server{
		Addr: ":" + cfg.HTTPPort,
		Handler: server.New(server.Deps{
			Checker:       checker,
			Reconciler:    reconciler,
			RateCounter:   counter,
			CronSecret:    cfg.CronSecret,
			WebhookSecret: cfg.StripeWebhookSecret,
			Health:        health,
			Logger:        log,
		}).Router(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      5 * time.Minute,
		IdleTimeout:       60 * time.Second,
	}

	shutdownDone := make(chan struct{})
	go func() {
		defer close(shutdownDone)
		<-ctx.Done()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("http server shutdown failed", zap.Error(err))
		}
	}()

	log.Info("http server listening", zap.String("addr", srv.Addr))

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error("http server stopped with error", zap.Error(err))
	}

	log.Info("shutting down gracefully...")
	cancel()
	<-shutdownDone

	log.Info("service stopped")
}
