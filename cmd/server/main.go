package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/p-n-ai/pathshala/internal/account"
	"github.com/p-n-ai/pathshala/internal/api"
	"github.com/p-n-ai/pathshala/internal/catalog"
	"github.com/p-n-ai/pathshala/internal/certificate"
	"github.com/p-n-ai/pathshala/internal/events"
	"github.com/p-n-ai/pathshala/internal/learning"
	"github.com/p-n-ai/pathshala/internal/platform/cache"
	"github.com/p-n-ai/pathshala/internal/platform/config"
	"github.com/p-n-ai/pathshala/internal/platform/database"
	"github.com/p-n-ai/pathshala/internal/platform/logger"
	"github.com/p-n-ai/pathshala/internal/progress"
)

var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	slog.SetDefault(logger.New(os.Stdout, cfg.Log.Level, cfg.Log.Format))

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	// Graceful shutdown on SIGTERM/SIGINT.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	a, err := newApp(ctx, cfg)
	if err != nil {
		slog.Error("failed to start", "error", err)
		os.Exit(1)
	}
	defer a.close()

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      a.handler,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("server starting", "addr", srv.Addr, "version", version)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "error", err)
	}
}

// app is the wired service with the resources that must be released on exit.
type app struct {
	handler http.Handler
	closers []func()
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

// stores groups the persistence backends chosen by configuration.
type stores struct {
	users    account.Store
	progress progress.Store
	certs    certificate.Store
	events   events.Logger
	history  api.EventHistory
}

// newApp wires every component. Without a database URL all state lives in memory;
// without a cache URL sessions and login throttling do too.
func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	a := &app{}
	checks := map[string]api.Check{}

	st, err := openStores(ctx, cfg, a, checks)
	if err != nil {
		a.close()
		return nil, err
	}

	sessions, throttle, err := openSessions(ctx, cfg, a, checks)
	if err != nil {
		a.close()
		return nil, err
	}

	courses, err := catalog.NewLoader(cfg.CatalogPath, catalog.Defaults{
		PassPercent: cfg.Quiz.PassPercent,
		MaxAttempts: cfg.Quiz.MaxAttempts,
	})
	if err != nil {
		a.close()
		return nil, fmt.Errorf("loading catalog: %w", err)
	}
	slog.Info("catalog loaded", "path", cfg.CatalogPath, "courses", len(courses.Courses()))

	accounts := account.NewService(st.users, cfg.Auth.BcryptCost, cfg.Auth.AdminEmail)
	accounts.SetThrottle(throttle)
	issuer := certificate.NewIssuer(st.certs, cfg.Certificate.Issuer)
	hub := events.NewHub()

	svc, err := learning.NewService(learning.Config{
		Catalog:      courses,
		Users:        accounts,
		Progress:     st.progress,
		Certificates: issuer,
		Events:       events.Tee(st.events, hub),
	})
	if err != nil {
		a.close()
		return nil, err
	}

	server, err := api.NewServer(api.Config{
		Accounts:     accounts,
		Sessions:     sessions,
		Learning:     svc,
		Catalog:      courses,
		Certificates: issuer,
		Hub:          hub,
		History:      st.history,
		Checks:       checks,
		Version:      version,
	})
	if err != nil {
		a.close()
		return nil, err
	}
	a.handler = server.Handler()
	return a, nil
}

func openStores(ctx context.Context, cfg *config.Config, a *app, checks map[string]api.Check) (stores, error) {
	if !cfg.UsesDatabase() {
		slog.Warn("no database configured, state is kept in memory")
		mem := events.NewMemoryLogger()
		return stores{
			users:    account.NewMemoryStore(),
			progress: progress.NewMemoryStore(),
			certs:    certificate.NewMemoryStore(),
			events:   mem,
			history:  mem,
		}, nil
	}

	db, err := database.New(ctx, cfg.Database.URL, cfg.Database.MaxConns, cfg.Database.MinConns)
	if err != nil {
		return stores{}, err
	}
	a.closers = append(a.closers, db.Close)
	checks["database"] = db.HealthCheck

	if cfg.Database.Migrate {
		if err := db.Migrate(ctx); err != nil {
			return stores{}, fmt.Errorf("migrating database: %w", err)
		}
	}

	users, err := account.NewPostgresStore(db.Pool)
	if err != nil {
		return stores{}, err
	}
	records, err := progress.NewPostgresStore(db.Pool)
	if err != nil {
		return stores{}, err
	}
	certs, err := certificate.NewPostgresStore(db.Pool)
	if err != nil {
		return stores{}, err
	}
	log := events.NewPostgresLogger(db.Pool)
	slog.Info("using postgres stores")
	return stores{users: users, progress: records, certs: certs, events: log, history: log}, nil
}

func openSessions(ctx context.Context, cfg *config.Config, a *app, checks map[string]api.Check) (account.SessionStore, account.LoginThrottle, error) {
	var throttle account.LoginThrottle = account.NoThrottle{}

	if !cfg.UsesCache() {
		if cfg.Auth.MaxLoginFailures > 0 {
			throttle = account.NewMemoryThrottle(cfg.Auth.MaxLoginFailures, cfg.Auth.LoginLockout)
		}
		return account.NewMemorySessionStore(cfg.Auth.SessionTTL), throttle, nil
	}

	c, err := cache.New(ctx, cfg.Cache.URL)
	if err != nil {
		return nil, nil, err
	}
	a.closers = append(a.closers, func() {
		if err := c.Close(); err != nil {
			slog.Warn("closing cache", "error", err)
		}
	})
	checks["cache"] = c.HealthCheck

	sessions, err := account.NewRedisSessionStore(c, cfg.Auth.SessionTTL)
	if err != nil {
		return nil, nil, err
	}
	if cfg.Auth.MaxLoginFailures > 0 {
		throttle, err = account.NewRedisThrottle(c, cfg.Auth.MaxLoginFailures, cfg.Auth.LoginLockout)
		if err != nil {
			return nil, nil, err
		}
	}
	slog.Info("using redis sessions")
	return sessions, throttle, nil
}
