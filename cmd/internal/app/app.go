// Package app wires the newsletter server runtime: config, logging, stores,
// the email backend, HTTP routes and graceful shutdown.
package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"newsletter/cmd/domain"
	"newsletter/cmd/identity"
	"newsletter/cmd/internal/email"
	"newsletter/cmd/internal/metrics"
	"newsletter/cmd/internal/newsletter"
	"newsletter/cmd/internal/subscription"
	"newsletter/cmd/internal/web"
	"newsletter/cmd/security/password"
)

// subscriberStore is what both the workflows and the dispatcher need.
type subscriberStore interface {
	subscription.Store
	newsletter.SubscriberLister
}

// App is the newsletter server runtime: it owns the DB pool and HTTP wiring.
type App struct {
	cfg Config
	log Logger

	dbPool    *pgxpool.Pool
	dbEnabled bool

	metrics *metrics.Metrics
	handler http.Handler
}

// New constructs a fully wired App instance from config and logger.
func New(cfg Config, log Logger) (*App, error) {
	if log == nil {
		log = NewLogger(cfg.LogLevel, cfg.LogFormat)
	}
	ctx := context.Background()

	key, err := LoadHMACKey(cfg, log)
	if err != nil {
		return nil, err
	}

	pwCfg, err := password.FromEnv()
	if err != nil {
		return nil, err
	}

	subs, creds, dbPool, err := newStores(ctx, cfg, log)
	if err != nil {
		return nil, err
	}
	closeOnErr := func() {
		if dbPool != nil {
			dbPool.Close()
		}
	}

	sender, err := newSender(ctx, cfg.Email, log)
	if err != nil {
		closeOnErr()
		return nil, err
	}

	m := metrics.New()

	verifier, err := identity.NewVerifier(creds, password.NewPool(pwCfg, cfg.PasswordWorkers, password.WithObserver(m.ObservePasswordVerify)))
	if err != nil {
		closeOnErr()
		return nil, err
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = runtimeBaseURL(cfg.HTTPAddr)
	}
	svc, err := subscription.NewService(subs, sender, baseURL, subscription.WithLogger(log))
	if err != nil {
		closeOnErr()
		return nil, err
	}
	dispatcher, err := newsletter.NewDispatcher(subs, sender, log)
	if err != nil {
		closeOnErr()
		return nil, err
	}

	h, err := web.NewHandler(svc, dispatcher, verifier, key,
		web.WithLogger(log),
		web.WithMetrics(m),
		web.WithMaxBodyBytes(cfg.MaxBodyBytes),
	)
	if err != nil {
		closeOnErr()
		return nil, err
	}

	a := &App{
		cfg:       cfg,
		log:       log,
		dbPool:    dbPool,
		dbEnabled: dbPool != nil,
		metrics:   m,
	}
	a.handler = newRouter(a, h)
	return a, nil
}

// Handler returns the root HTTP handler.
func (a *App) Handler() http.Handler { return a.handler }

// Run starts the HTTP server and blocks until context cancellation or fatal server error.
func (a *App) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              a.cfg.HTTPAddr,
		Handler:           a.handler,
		ReadHeaderTimeout: nonZeroDuration(a.cfg.ReadHeaderTimeout, 5*time.Second),
		ReadTimeout:       nonZeroDuration(a.cfg.ReadTimeout, 15*time.Second),
		WriteTimeout:      nonZeroDuration(a.cfg.WriteTimeout, 15*time.Second),
		IdleTimeout:       nonZeroDuration(a.cfg.IdleTimeout, 60*time.Second),
		MaxHeaderBytes:    nonZeroInt(a.cfg.MaxHeaderBytes, 1<<20),
	}

	a.log.Info("server.start", "addr", a.cfg.HTTPAddr, "db_enabled", a.dbEnabled, "email_backend", a.cfg.Email.Backend)

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
		a.Close()
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.log.Error("server.shutdown.fail", "err", err)
		a.Close()
		return err
	}

	a.Close()
	a.log.Info("server.stopped")
	return nil
}

// Close releases the DB pool, if any.
func (a *App) Close() {
	if a.dbPool != nil {
		a.dbPool.Close()
	}
}

func nonZeroDuration(v, def time.Duration) time.Duration {
	if v <= 0 {
		return def
	}
	return v
}

func nonZeroInt(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

// newStores decides between Postgres-backed persistence and in-memory dev stores.
func newStores(ctx context.Context, cfg Config, log Logger) (subscriberStore, identity.Store, *pgxpool.Pool, error) {
	if cfg.DatabaseURL == "" {
		log.Info("db.disabled.inmemory_store")
		return subscription.NewMemoryStore(), identity.NewMemoryStore(), nil, nil
	}

	pool, err := NewDBPool(ctx, cfg, log)
	if err != nil {
		return nil, nil, nil, err
	}

	log.Info("db.enabled.postgres_store", "schema", cfg.DBSchema)

	// Ownership model:
	// - app owns pool lifecycle
	// - stores never close it
	subs, err := subscription.NewPostgresStore(pool,
		subscription.WithSchema(cfg.DBSchema),
		subscription.WithAcquireTimeout(cfg.DBAcquireTimeout),
	)
	if err != nil {
		pool.Close()
		return nil, nil, nil, err
	}
	creds, err := identity.NewPostgresStore(pool,
		identity.WithSchema(cfg.DBSchema),
		identity.WithAcquireTimeout(cfg.DBAcquireTimeout),
	)
	if err != nil {
		pool.Close()
		return nil, nil, nil, err
	}
	return subs, creds, pool, nil
}

// newSender builds the configured email backend.
func newSender(ctx context.Context, cfg EmailConfig, log Logger) (email.Sender, error) {
	from, err := domain.ParseSubscriberEmail(cfg.Sender)
	if err != nil {
		return nil, fmt.Errorf("config: %sEMAIL_SENDER: %w", EnvPrefix, err)
	}

	switch cfg.Backend {
	case EmailBackendHTTP:
		return email.NewClient(email.ClientConfig{
			BaseURL:   cfg.BaseURL,
			From:      from,
			APIKey:    cfg.APIKey,
			SecretKey: cfg.SecretKey,
			Timeout:   cfg.Timeout,
		})
	case EmailBackendSES:
		return email.NewSESSender(ctx, email.SESConfig{
			Region:    cfg.SESRegion,
			AccessKey: cfg.SESAccessKey,
			SecretKey: cfg.SESSecretKey,
			From:      from,
		})
	case EmailBackendLog, "":
		log.Warn("email.backend.log_only")
		return email.NewLogSender(log), nil
	default:
		return nil, fmt.Errorf("config: unknown %sEMAIL_BACKEND %q", EnvPrefix, cfg.Backend)
	}
}

// runtimeBaseURL derives a reachable base URL from a listen address.
// Wildcard binds map to loopback.
func runtimeBaseURL(addr string) string {
	host, port, err := net.SplitHostPort(strings.TrimSpace(addr))
	if err != nil {
		return "http://" + strings.TrimSpace(addr)
	}
	switch host {
	case "", "0.0.0.0", "::":
		host = "127.0.0.1"
	}
	return "http://" + net.JoinHostPort(host, port)
}
