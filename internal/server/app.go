// Package server assembles the auth service: it opens the selected store,
// builds the rotation engine and the services on top of it, and runs the
// HTTP API, the gRPC session admin API and the expired token sweeper until
// a termination signal arrives.
package server

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/dmitrijs2005/blogauth/internal/logging"
	"github.com/dmitrijs2005/blogauth/internal/server/auth"
	"github.com/dmitrijs2005/blogauth/internal/server/config"
	"github.com/dmitrijs2005/blogauth/internal/server/incidents"
	"github.com/dmitrijs2005/blogauth/internal/server/metrics"
	"github.com/dmitrijs2005/blogauth/internal/server/ratelimit"
	"github.com/dmitrijs2005/blogauth/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/blogauth/internal/server/services"
	"golang.org/x/crypto/bcrypt"

	gs "github.com/dmitrijs2005/blogauth/internal/server/grpc"
	hs "github.com/dmitrijs2005/blogauth/internal/server/http"
)

type App struct {
	config       *config.Config
	logger       logging.Logger
	manager      repomanager.RepositoryManager
	limiter      ratelimit.Limiter
	limiterClose func() error
	httpServer   *hs.Server
	grpcServer   *gs.GRPCServer
	sweeper      *services.Sweeper
}

// NewApp connects every backing service named in c and wires the servers.
// The store is migrated before NewApp returns.
func NewApp(ctx context.Context, c *config.Config, logger logging.Logger) (*App, error) {
	manager, err := repomanager.Open(ctx, c)
	if err != nil {
		return nil, fmt.Errorf("store init error: %w", err)
	}

	if err := manager.RunMigrations(ctx); err != nil {
		_ = manager.Close(ctx)
		return nil, fmt.Errorf("migration error: %w", err)
	}

	reporter, err := incidents.New(ctx, c)
	if err != nil {
		_ = manager.Close(ctx)
		return nil, fmt.Errorf("incident reporter init error: %w", err)
	}

	limiter, limiterClose, err := ratelimit.New(c.RedisAddr, c.RateLimitPerMinute)
	if err != nil {
		_ = manager.Close(ctx)
		return nil, fmt.Errorf("rate limiter init error: %w", err)
	}

	trusted, err := c.TrustedProxyPrefixes()
	if err != nil {
		_ = manager.Close(ctx)
		_ = limiterClose()
		return nil, err
	}

	mtr := metrics.New()
	issuer := auth.NewIssuer([]byte(c.SecretKey), c.AccessTokenValidityDuration)
	hasher := auth.NewPasswordHasher(bcrypt.DefaultCost)

	rotation := services.NewRotationEngine(manager, c.RefreshTokenValidityDuration, logger, mtr, reporter)
	sessions := services.NewSessionDirectory(manager, logger, mtr)
	authService := services.NewAuthService(manager, issuer, hasher, rotation, sessions, logger, mtr)

	handler := hs.NewAuthHandler(authService, sessions, hs.CookieConfig{
		Secure: c.CookieSecure,
		MaxAge: c.RefreshTokenValidityDuration,
	}, logger)

	router := hs.NewRouter(hs.Deps{
		Handler:  handler,
		Verifier: issuer,
		Limiter:  limiter,
		Pinger:   manager,
		Metrics:  mtr,
		Logger:   logger,

		TrustedProxies: trusted,
	})

	return &App{
		config:       c,
		logger:       logger,
		manager:      manager,
		limiter:      limiter,
		limiterClose: limiterClose,
		httpServer:   hs.NewServer(c.EndpointAddrHTTP, router, logger),
		grpcServer:   gs.NewGRPCServer(c.EndpointAddrGRPC, logger, sessions, issuer),
		sweeper:      services.NewSweeper(manager, c.CleanupInterval, logger, mtr),
	}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

// runServer runs fn and cancels the whole app if it fails.
func (app *App) runServer(ctx context.Context, cancelFunc context.CancelFunc, name string, fn func(context.Context) error) {
	if err := fn(ctx); err != nil {
		app.logger.Error(ctx, "server stopped with error", "server", name, "error", err)
		cancelFunc()
	}
}

// Run blocks until a signal arrives or one of the servers fails.
func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...", "store", app.config.StoreBackend)

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(3)
	go func() {
		defer wg.Done()
		app.runServer(ctx, cancelFunc, "http", app.httpServer.Run)
	}()
	go func() {
		defer wg.Done()
		app.runServer(ctx, cancelFunc, "grpc", app.grpcServer.Run)
	}()
	go func() {
		defer wg.Done()
		app.sweeper.Run(ctx)
	}()

	if local, ok := app.limiter.(*ratelimit.LocalLimiter); ok {
		wg.Add(1)
		go func() {
			defer wg.Done()
			local.RunCleanup(ctx, time.Minute)
		}()
	}

	wg.Wait()

	app.close()
}

func (app *App) close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.limiterClose(); err != nil {
		app.logger.Error(ctx, "rate limiter close error", "error", err)
	}
	if err := app.manager.Close(ctx); err != nil {
		app.logger.Error(ctx, "store close error", "error", err)
	}
	app.logger.Info(ctx, "App stopped")
}
