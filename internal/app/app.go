// Package app wires the mateauth server runtime: config, logging, Redis,
// Postgres, the auth engine and the HTTP routes.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/mateforge/mateauth"
	"github.com/mateforge/mateauth/internal/config"
	"github.com/mateforge/mateauth/internal/httpapi"
	promexport "github.com/mateforge/mateauth/metrics/export/prometheus"
	"github.com/mateforge/mateauth/notify"
	"github.com/mateforge/mateauth/users"
)

// App owns the server and every resource it closes on shutdown.
type App struct {
	cfg config.Config
	log *slog.Logger

	rdb    *redis.Client
	pool   *pgxpool.Pool
	engine *mateauth.Engine

	handler http.Handler
}

// New connects to Redis and Postgres, applies migrations when enabled and
// builds the HTTP handler. Resources opened before a failure are released.
func New(ctx context.Context, cfg config.Config, log *slog.Logger) (a *App, err error) {
	engineCfg, err := cfg.Engine()
	if err != nil {
		return nil, err
	}

	a = &App{cfg: cfg, log: log}
	defer func() {
		if err != nil {
			a.close()
			a = nil
		}
	}()

	a.rdb, err = NewRedis(ctx, cfg.RedisURL)
	if err != nil {
		return a, err
	}
	log.Info("redis.connected")

	a.pool, err = NewDBPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return a, err
	}
	log.Info("db.connected")

	if cfg.Migrate {
		if err = users.MigratePool(ctx, a.pool); err != nil {
			return a, err
		}
		log.Info("db.migrated")
	}

	repo := users.NewRepository(a.pool)

	b := mateauth.New().
		WithConfig(engineCfg).
		WithRedis(a.rdb).
		WithCredentialStore(repo).
		WithNotifier(notify.NewLogSender(log, cfg.VerifyURL)).
		WithLogger(log)
	if cfg.AuditEnabled {
		b = b.WithAuditSink(mateauth.NewSlogSink(log))
	}
	a.engine, err = b.Build()
	if err != nil {
		return a, fmt.Errorf("build engine: %w", err)
	}

	opts := []httpapi.Option{
		httpapi.WithDatabase(repo),
		httpapi.WithLogger(log),
	}
	if cfg.MetricsEnabled {
		metrics, err := promexport.Handler(promexport.NewCollector(a.engine))
		if err != nil {
			return a, fmt.Errorf("metrics: %w", err)
		}
		opts = append(opts, httpapi.WithMetrics(metrics))
	}

	svc := users.NewService(repo, a.engine, log)
	a.handler = httpapi.NewHandler(a.engine, svc, opts...).Routes()

	return a, nil
}

// Handler returns the root HTTP handler.
func (a *App) Handler() http.Handler {
	return a.handler
}

// Run serves HTTP until ctx is cancelled or the listener fails, then shuts
// down within the configured timeout and releases every resource.
func (a *App) Run(ctx context.Context) error {
	defer a.close()

	srv := &http.Server{
		Addr:              a.cfg.HTTPAddr,
		Handler:           a.handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       nonZeroDuration(a.cfg.ReadTimeout, 10*time.Second),
		WriteTimeout:      nonZeroDuration(a.cfg.WriteTimeout, 15*time.Second),
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	a.log.Info("server.start", "addr", a.cfg.HTTPAddr)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		a.log.Info("server.stop", "reason", "context_done")
	case err := <-errCh:
		a.log.Error("server.fail", "err", err)
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), nonZeroDuration(a.cfg.ShutdownTimeout, 10*time.Second))
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.log.Error("server.shutdown.fail", "err", err)
		return err
	}

	a.log.Info("server.stopped")
	return nil
}

// close drains the engine before the connections it uses.
func (a *App) close() {
	if a.engine != nil {
		a.engine.Close()
	}
	if a.pool != nil {
		a.pool.Close()
	}
	if a.rdb != nil {
		if err := a.rdb.Close(); err != nil {
			a.log.Error("redis.close.fail", "err", err)
		}
	}
}

func nonZeroDuration(v, def time.Duration) time.Duration {
	if v <= 0 {
		return def
	}
	return v
}
