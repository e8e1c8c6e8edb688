// Package server wires the authkeeper components together: storage,
// revocation registry, token issuer and verifier, the session service and
// the HTTP and gRPC listeners.
package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/authkeeper/internal/logging"
	"github.com/dmitrijs2005/authkeeper/internal/server/auth"
	"github.com/dmitrijs2005/authkeeper/internal/server/config"
	"github.com/dmitrijs2005/authkeeper/internal/server/password"
	"github.com/dmitrijs2005/authkeeper/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/authkeeper/internal/server/rest"
	"github.com/dmitrijs2005/authkeeper/internal/server/revocation"
	"github.com/dmitrijs2005/authkeeper/internal/server/services"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	gs "github.com/dmitrijs2005/authkeeper/internal/server/grpc"
)

// sweepInterval is how often the in-process registry and the rate limiter
// drop expired entries.
const sweepInterval = time.Minute

type App struct {
	config   *config.Config
	logger   logging.Logger
	db       *sql.DB
	redis    redis.UniversalClient
	memory   *revocation.MemoryRegistry
	limiter  *rest.RateLimiter
	sessions *services.SessionService
	http     *rest.Server
	grpc     *gs.GRPCServer
}

func NewApp(ctx context.Context, c *config.Config, logger logging.Logger) (*App, error) {
	app := &App{config: c, logger: logger}

	m, err := repomanager.NewRepositoryManager(c.StorageDriver)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}
	if app.db, err = repomanager.Open(ctx, c.StorageDriver, c.DatabaseDSN); err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}
	if err := m.RunMigrations(ctx, app.db); err != nil {
		app.Close()
		return nil, fmt.Errorf("db init error: %w", err)
	}

	var registry revocation.Registry
	if c.RedisAddr != "" {
		app.redis = redis.NewClient(&redis.Options{
			Addr:     c.RedisAddr,
			Password: c.RedisPassword,
			DB:       c.RedisDB,
		})
		r := revocation.NewRedisRegistry(app.redis, c.RegistryTimeout)
		if err := r.Ping(ctx); err != nil {
			// Not fatal: the verifier reports the outage per request.
			logger.Warn(ctx, "revocation registry unreachable", "addr", c.RedisAddr, "error", err.Error())
		}
		registry = r
	} else {
		logger.Warn(ctx, "no redis address configured, using in-process revocation registry")
		app.memory = revocation.NewMemoryRegistry()
		registry = app.memory
	}

	secret := []byte(c.SecretKey)
	issuer, err := auth.NewIssuer(secret, c.SigningAlgorithm, c.AccessTokenValidityDuration)
	if err != nil {
		app.Close()
		return nil, err
	}
	verifier, err := auth.NewVerifier(secret, c.SigningAlgorithm, registry,
		auth.WithFailOpen(c.RevocationFailOpen),
		auth.WithVerifierLogger(logger),
	)
	if err != nil {
		app.Close()
		return nil, err
	}

	app.sessions, err = services.NewSessionService(app.db, m, issuer, verifier, registry, password.NewMulti(),
		services.WithRefreshTTL(c.RefreshTokenValidityDuration),
		services.WithStoreTimeout(c.StoreTimeout),
		services.WithLogger(logger),
	)
	if err != nil {
		app.Close()
		return nil, err
	}

	if c.BootstrapLogin != "" {
		created, err := app.sessions.EnsureAccount(ctx, c.BootstrapLogin, c.BootstrapPassword)
		if err != nil {
			app.Close()
			return nil, fmt.Errorf("bootstrap account: %w", err)
		}
		if created {
			logger.Info(ctx, "bootstrap account created", "login", c.BootstrapLogin)
		}
	}

	app.limiter = rest.NewRateLimiter(c.LoginRateLimitRPM)
	router, err := rest.NewRouter(app.sessions, logger, app.limiter, c.TrustedProxies)
	if err != nil {
		app.Close()
		return nil, err
	}
	app.http = rest.NewServer(c.EndpointAddrHTTP, router, logger)
	if c.EndpointAddrGRPC != "" {
		app.grpc = gs.NewGRPCServer(c.EndpointAddrGRPC, logger, app.sessions)
	}

	return app, nil
}

// Sessions exposes the session service, mainly for tests.
func (app *App) Sessions() *services.SessionService {
	return app.sessions
}

// Run serves until ctx is cancelled or one of the listeners fails.
func (app *App) Run(ctx context.Context) error {
	app.logger.Info(ctx, "Starting app...")

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error { return app.http.Run(ctx) })
	if app.grpc != nil {
		g.Go(func() error { return app.grpc.Run(ctx) })
	}
	g.Go(func() error { return app.sessions.RunJanitor(ctx, app.config.JanitorInterval) })
	g.Go(func() error { return app.sweep(ctx, sweepInterval) })

	err := g.Wait()
	app.logger.Info(context.Background(), "App stopped")
	return err
}

func (app *App) sweep(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			app.sweepOnce()
		}
	}
}

func (app *App) sweepOnce() {
	if app.memory != nil {
		app.memory.Sweep()
	}
	app.limiter.Sweep()
}

// Close releases the database and redis handles.
func (app *App) Close() error {
	var errs []error
	if app.redis != nil {
		errs = append(errs, app.redis.Close())
	}
	if app.db != nil {
		errs = append(errs, app.db.Close())
	}
	return errors.Join(errs...)
}
