// Package app wires configuration, logging, storage and the HTTP server for
// each service binary.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/giftcard-platform/internal/api/http"
	"github.com/spec-kit/giftcard-platform/internal/api/http/handlers"
	"github.com/spec-kit/giftcard-platform/internal/auth"
	"github.com/spec-kit/giftcard-platform/internal/config"
	"github.com/spec-kit/giftcard-platform/internal/events"
	"github.com/spec-kit/giftcard-platform/internal/observability"
	"github.com/spec-kit/giftcard-platform/internal/persistence"
	"github.com/spec-kit/giftcard-platform/internal/repository"
	"github.com/spec-kit/giftcard-platform/internal/worker"
)

const shutdownTimeout = 10 * time.Second

// Runtime holds the process-wide collaborators shared by every service.
type Runtime struct {
	Config     *config.Config
	Logger     *zap.Logger
	Metrics    *observability.Metrics
	App        *fiber.App
	Dispatcher events.Dispatcher

	postgres *persistence.Postgres
	redis    *persistence.Redis
	badger   *persistence.Badger

	forwarder  *worker.LogForwarder
	health     map[string]handlers.Pinger
	background []func(context.Context)
	closers    []func()
}

// New loads configuration and builds the logger, metrics and fiber app.
func New(service config.Service) (*Runtime, error) {
	cfg, err := config.Load(service)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logger, err := observability.NewLogger(cfg.Logger, cfg.App.Name)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	metrics := observability.NewMetrics(cfg.App.Name)
	dispatcher := events.NewInMemoryDispatcher(events.WithErrorHook(func(e events.Event, err error) {
		logger.Warn("event handler failed", zap.String("event", string(e.Type)), zap.Error(err))
	}))

	app := fiber.New(fiber.Config{
		AppName:               cfg.App.Name,
		DisableStartupMessage: true,
	})
	httptransport.RegisterMiddlewares(app, httptransport.MiddlewareConfig{
		Logger:         logger,
		Metrics:        metrics,
		Timeout:        cfg.App.RequestTimeout(),
		AllowedOrigins: cfg.CORS.AllowedOrigins,
	})

	return &Runtime{
		Config:     cfg,
		Logger:     logger,
		Metrics:    metrics,
		App:        app,
		Dispatcher: dispatcher,
		health:     map[string]handlers.Pinger{},
	}, nil
}

// OpenStore connects the backend selected by STORE_DRIVER and registers it
// with the readiness probe.
func (r *Runtime) OpenStore(ctx context.Context) error {
	switch r.Config.Store.Driver {
	case config.StoreMemory:
		r.Logger.Warn("using in-memory store; data is lost on restart and not shared between services")
		return nil

	case config.StorePostgres:
		if r.Config.Postgres.DSN == "" {
			return errors.New("POSTGRES_DSN is required for the postgres store")
		}
		pg, err := persistence.NewPostgres(ctx, r.Config.Postgres, r.Logger)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		r.postgres = pg
		r.closers = append(r.closers, pg.Close)
		r.health["postgres"] = pg
		if r.Config.Postgres.RunMigrations {
			if err := persistence.RunMigrations(ctx, pg.PoolHandle(), r.Config.Postgres.MigrationsDir, r.Logger); err != nil {
				return fmt.Errorf("run migrations: %w", err)
			}
		}
		return nil

	case config.StoreRedis:
		rd := persistence.NewRedis(r.Config.Redis, r.Logger)
		r.redis = rd
		r.closers = append(r.closers, rd.Close)
		r.health["redis"] = rd
		return nil

	case config.StoreBadger:
		bg, err := persistence.NewBadger(r.Config.Badger, r.Logger)
		if err != nil {
			return err
		}
		r.badger = bg
		r.closers = append(r.closers, bg.Close)
		r.health["badger"] = bg
		r.Metrics.RegisterBadger(bg.DB)
		return nil
	}
	return fmt.Errorf("unsupported store driver %q", r.Config.Store.Driver)
}

// AccountRepository returns the credential store for the open backend.
func (r *Runtime) AccountRepository() repository.AccountRepository {
	switch {
	case r.postgres != nil:
		return repository.NewAccountRepository(r.postgres.PoolHandle())
	case r.redis != nil:
		return repository.NewRedisAccountRepository(r.redis.Client, r.Config.Redis.KeyPrefix)
	case r.badger != nil:
		return repository.NewBadgerAccountRepository(r.badger.DB)
	default:
		return repository.NewMemoryAccountRepository()
	}
}

// GiftCardRepository returns the card store. Cards live in Postgres or memory.
func (r *Runtime) GiftCardRepository() (repository.GiftCardRepository, error) {
	switch r.Config.Store.Driver {
	case config.StorePostgres:
		return repository.NewGiftCardRepository(r.postgres.PoolHandle()), nil
	case config.StoreMemory:
		return repository.NewMemoryGiftCardRepository(), nil
	}
	return nil, fmt.Errorf("gift cards need STORE_DRIVER=postgres or memory, got %q", r.Config.Store.Driver)
}

// LogRepository returns the log entry store. Entries live in Postgres or memory.
func (r *Runtime) LogRepository() (repository.LogRepository, error) {
	switch r.Config.Store.Driver {
	case config.StorePostgres:
		return repository.NewLogRepository(r.postgres.PoolHandle()), nil
	case config.StoreMemory:
		return repository.NewMemoryLogRepository(), nil
	}
	return nil, fmt.Errorf("log entries need STORE_DRIVER=postgres or memory, got %q", r.Config.Store.Driver)
}

// TokenManager builds the token codec from the configured keyring and, when
// the keyring comes from a file, keeps it reloaded.
func (r *Runtime) TokenManager() (*auth.TokenManager, error) {
	keys, err := auth.KeyringFromConfig(r.Config.Auth)
	if err != nil {
		return nil, fmt.Errorf("load keyring: %w", err)
	}
	tokens, err := auth.NewTokenManager(keys, r.Config.Auth.AccessTokenTTL())
	if err != nil {
		return nil, err
	}
	if r.Config.Auth.KeyringFile != "" {
		watcher, err := auth.WatchKeyring(r.Config.Auth.KeyringFile, tokens, r.Logger)
		if err != nil {
			return nil, fmt.Errorf("watch keyring: %w", err)
		}
		r.closers = append(r.closers, func() { _ = watcher.Close() })
	}
	r.Logger.Info("token keyring loaded", zap.String("active_kid", keys.ActiveID))
	return tokens, nil
}

// ForwardEvents ships published events to the log service when LOG_SERVICE_URL is set.
func (r *Runtime) ForwardEvents() {
	r.forwarder = worker.NewLogForwarder(r.Config.App.Name, r.Config.LogSink, r.Logger, r.Metrics)
	r.forwarder.RegisterHandlers(r.Dispatcher)
}

// Go runs fn for the lifetime of the server; ctx is cancelled on shutdown.
func (r *Runtime) Go(fn func(ctx context.Context)) {
	r.background = append(r.background, fn)
}

// Serve registers the common routes, listens, and blocks until ctx is done,
// then shuts down gracefully.
func (r *Runtime) Serve(ctx context.Context) error {
	httptransport.RegisterCommonRoutes(r.App, httptransport.CommonRoutes{
		Health:  handlers.NewHealthHandler(r.Config.App.Name, r.Config.App.Version, r.health),
		Metrics: r.Metrics,
	})

	if r.forwarder != nil {
		r.forwarder.Start()
	}
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	for _, fn := range r.background {
		go fn(runCtx)
	}

	errCh := make(chan error, 1)
	go func() {
		r.Logger.Info("listening", zap.String("addr", r.Config.App.Addr()))
		errCh <- r.App.Listen(r.Config.App.Addr())
	}()

	var listenErr error
	select {
	case <-ctx.Done():
		r.Logger.Info("shutting down")
	case listenErr = <-errCh:
		if listenErr != nil {
			r.Logger.Error("fiber listen", zap.Error(listenErr))
		}
	}

	if err := r.App.ShutdownWithTimeout(shutdownTimeout); err != nil {
		r.Logger.Warn("http shutdown", zap.Error(err))
	}
	if r.forwarder != nil {
		stopCtx, stop := context.WithTimeout(context.Background(), shutdownTimeout)
		r.forwarder.Stop(stopCtx)
		stop()
	}
	return listenErr
}

// Close releases backends in reverse order of opening and flushes the logger.
func (r *Runtime) Close() {
	for i := len(r.closers) - 1; i >= 0; i-- {
		r.closers[i]()
	}
	_ = r.Logger.Sync()
}
