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

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"slotbook/internal/api"
	"slotbook/internal/audit"
	"slotbook/internal/backend"
	"slotbook/internal/booking"
	"slotbook/internal/config"
	"slotbook/internal/database"
	"slotbook/internal/events"
	"slotbook/internal/metrics"
	"slotbook/internal/payments"
	"slotbook/internal/repository"
)

func main() {
	output := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	logger := zerolog.New(output).With().Timestamp().Logger()

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		logger.Warn().Err(err).Msg("failed to load .env")
	}

	cfg, err := config.Load(config.Path())
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.NewDB(cfg.Database.Path, &logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("open db error")
	}
	defer db.Close()

	var rdb *redis.Client
	if cfg.Redis.Address != "" {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.Redis.Address, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		defer rdb.Close()
	}

	store, closeStore, err := openStore(ctx, cfg, &logger)
	if err != nil {
		logger.Fatal().Err(err).Str("driver", cfg.Backend.Driver).Msg("open backend error")
	}
	defer closeStore()
	cached := repository.NewCachedStore(store, rdb, cfg.CacheTTL())

	memory := booking.NewMemoryStore(cfg.SessionTimeout())
	var sessions booking.SessionStore = memory
	if rdb != nil {
		sessions = repository.NewFailoverSessionStore(
			repository.NewRedisSessionStore(rdb, cfg.SessionTimeout()), memory, &logger)
	}
	go cleanupSessions(ctx, memory, &logger)

	bus := events.NewEventBus(&logger)
	bus.Subscribe(booking.EventChainCompleted, db.HandleChainEvent)
	bus.Subscribe(booking.EventChainFailed, db.HandleChainEvent)

	submitter := booking.NewSubmitter(cached, bus, booking.SubmitterConfig{
		Relief:          cfg.Relief(),
		PendingStatusID: cfg.PendingStatusID(),
		Compensate:      cfg.Compensate(),
	}, &logger)

	var gateway payments.Gateway
	if cfg.Stripe.SecretKey != "" {
		gateway = payments.NewStripeGateway(cfg.Stripe.SecretKey, cfg.Stripe.Currency, nil, &logger)
	}

	registry := config.NewRegistry(cfg)
	if err := config.WatchBusinesses(ctx, cfg.BusinessesFile(), 30*time.Second, &logger, registry.Update); err != nil {
		logger.Warn().Err(err).Str("path", cfg.BusinessesFile()).Msg("per-business config not loaded; using defaults")
	}

	backups := database.NewBackupService(db, cfg.Backup, &logger)
	go backups.Start(ctx)

	auditSvc := audit.NewService(db, db, cfg.Audit.ExportDir, cfg.AuditRetention(), &logger)
	if cfg.Audit.ExportDir != "" {
		auditSvc.Start()
		defer auditSvc.Stop()
	}

	if cfg.Monitoring.HealthCheckPort == 0 {
		cfg.Monitoring.HealthCheckPort = 8090
	}
	go startHealthServer(ctx, cfg.Monitoring.HealthCheckPort, db, rdb, &logger)

	if cfg.Monitoring.PrometheusEnabled {
		if cfg.Monitoring.PrometheusPort == 0 {
			cfg.Monitoring.PrometheusPort = 9090
		}
		metrics.Register()
		go startMetricsServer(ctx, cfg.Monitoring.PrometheusPort, &logger)
	}

	server := api.NewServer(api.Deps{
		Store:     cached,
		Sessions:  sessions,
		Submitter: submitter,
		Payments:  gateway,
		Audit:     db,
		Registry:  registry,
		Config:    cfg,
		Logger:    &logger,
	})

	srv := &http.Server{
		Addr:              cfg.ServerAddress(),
		Handler:           server.Routes(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()

	logger.Info().Str("addr", srv.Addr).Str("driver", cfg.Backend.Driver).Msg("Booking API started")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error().Err(err).Msg("api server error")
	}
	logger.Info().Msg("Booking API stopped")
}

// openStore connects the configured backend driver.
func openStore(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) (backend.Store, func(), error) {
	switch cfg.Backend.Driver {
	case "postgres":
		pool, err := backend.OpenPostgres(ctx, cfg.Backend.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		store := backend.NewPostgresStore(pool, cfg.Backend.CancelledStatusID, logger)
		return store, store.Close, nil
	default:
		store, err := backend.NewSupabaseStore(cfg.Backend.URL, cfg.Backend.Key, cfg.Backend.CancelledStatusID, logger)
		if err != nil {
			return nil, nil, err
		}
		return store, func() {}, nil
	}
}

func cleanupSessions(ctx context.Context, store *booking.MemoryStore, logger *zerolog.Logger) {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := store.Cleanup(); n > 0 {
				logger.Debug().Int("removed", n).Msg("expired wizard sessions removed")
			}
		}
	}
}

func startHealthServer(ctx context.Context, port int, db *database.DB, rdb *redis.Client, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/readyz", func(w http.ResponseWriter, _ *http.Request) {
		ctxPing, cancel := context.WithTimeout(ctx, time.Second)
		defer cancel()
		if err := db.PingContext(ctxPing); err != nil {
			http.Error(w, "db not ready", http.StatusServiceUnavailable)
			return
		}
		if rdb != nil {
			if err := rdb.Ping(ctxPing).Err(); err != nil {
				http.Error(w, "redis not ready", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error().Err(err).Msg("health server error")
	}
}

func startMetricsServer(ctx context.Context, port int, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error().Err(err).Msg("metrics server error")
	}
}
