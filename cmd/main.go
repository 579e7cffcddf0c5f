// cmd/main.go is the application entry point.
// It wires together all layers and starts the HTTP server.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/pflag"

	"github.com/Shivanand-hulikatti/resource-booking/internal/clock"
	"github.com/Shivanand-hulikatti/resource-booking/internal/config"
	"github.com/Shivanand-hulikatti/resource-booking/internal/database"
	"github.com/Shivanand-hulikatti/resource-booking/internal/handler"
	"github.com/Shivanand-hulikatti/resource-booking/internal/notify"
	"github.com/Shivanand-hulikatti/resource-booking/internal/presence"
	"github.com/Shivanand-hulikatti/resource-booking/internal/repository"
	"github.com/Shivanand-hulikatti/resource-booking/internal/service"
)

func main() {
	configPath := pflag.StringP("config", "c", "", "path to a YAML config file")
	addr := pflag.String("addr", "", "listen address, overrides http.addr")
	store := pflag.String("store", "", "booking store backend: postgres or memory")
	migrate := pflag.Bool("migrate", true, "apply the embedded schema on startup (postgres only)")
	pflag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	if *addr != "" {
		cfg.HTTP.Addr = *addr
	}
	if *store != "" {
		cfg.Store = *store
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	log := newLogger(cfg.Environment)
	if err := run(cfg, *migrate, log); err != nil {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func newLogger(env config.Environment) *slog.Logger {
	if env == config.Production {
		return slog.New(slog.NewJSONHandler(os.Stdout, nil))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func run(cfg *config.Config, migrate bool, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── 1. Booking store ──────────────────────────────────────────────────
	var bookingStore repository.Store
	switch cfg.Store {
	case config.BackendPostgres:
		pool, err := database.NewPool(ctx, cfg.Database, log)
		if err != nil {
			return fmt.Errorf("database: %w", err)
		}
		defer pool.Close()
		if migrate {
			if err := database.Migrate(ctx, pool); err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
			log.Info("schema applied")
		}
		bookingStore = repository.NewPostgresStore(pool, log)
		log.Info("connected to PostgreSQL", "host", cfg.Database.Host, "database", cfg.Database.DBName)
	default:
		bookingStore = repository.NewMemoryStore()
		log.Warn("using in-memory booking store; data is lost on restart")
	}

	// ── 2. Redis (presence and notifications) ─────────────────────────────
	var rdb *redis.Client
	if cfg.Redis.Addr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err := rdb.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			return fmt.Errorf("redis ping: %w", err)
		}
		log.Info("connected to Redis", "addr", cfg.Redis.Addr)
	}

	var presenceStore presence.Store = presence.NewMemoryStore()
	if cfg.Presence.Backend == config.BackendRedis {
		presenceStore = presence.NewRedisStore(rdb, cfg.Redis.Prefix)
	}

	var notifier notify.Dispatcher = notify.NewLogDispatcher(log)
	if rdb != nil {
		notifier = notify.NewRedisPublisher(rdb, cfg.Redis.Channel)
	}

	// ── 3. Wire up layers ─────────────────────────────────────────────────
	clk := clock.Real()
	hub := handler.NewHub(log)
	defer hub.Close()
	engine := presence.NewEngine(presenceStore, presence.Options{
		Clock:       clk,
		Timeout:     cfg.Presence.Timeout,
		Logger:      log,
		Broadcaster: hub,
	})

	bookingOpts := service.BookingOptions{
		Clock:    clk,
		Logger:   log,
		Notifier: notifier,
		TokenTTL: cfg.Booking.TokenTTL,
	}
	if cfg.Booking.PresenceGuard {
		bookingOpts.Holds = engine
	}

	h := handler.New(handler.Deps{
		Availability:  service.NewAvailabilityService(bookingStore, clk, cfg.Booking.Window()),
		Bookings:      service.NewBookingService(bookingStore, bookingOpts),
		Registry:      service.NewRegistryService(bookingStore, clk, log),
		Presence:      engine,
		Hub:           hub,
		PublicBaseURL: cfg.PublicBaseURL,
		Logger:        log,
	})
	if cfg.Auth.JWTSecret == "" {
		log.Warn("no JWT secret configured; every request runs as a local admin")
	}

	// ── 4. Build the router ───────────────────────────────────────────────
	router := h.Routes(handler.RouterOptions{
		Logger:      log,
		CORSOrigins: cfg.HTTP.CORSOrigins,
		Auth:        handler.NewAuthenticator(cfg.Auth.JWTSecret, cfg.Auth.Issuer),
		Limiter:     handler.NewRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst),
	})

	// ── 5. Start server with graceful shutdown ────────────────────────────
	srv := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      router,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}
	srv.RegisterOnShutdown(hub.Close)

	errCh := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", cfg.HTTP.Addr, "store", cfg.Store, "presence", cfg.Presence.Backend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}
	log.Info("server stopped")
	return nil
}
