package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/shaibs3/geoadmin/internal/auth"
	"github.com/shaibs3/geoadmin/internal/config"
	"github.com/shaibs3/geoadmin/internal/gate"
	"github.com/shaibs3/geoadmin/internal/geo"
	"github.com/shaibs3/geoadmin/internal/handlers"
	"github.com/shaibs3/geoadmin/internal/inbox"
	"github.com/shaibs3/geoadmin/internal/router"
	"github.com/shaibs3/geoadmin/internal/session"
	"github.com/shaibs3/geoadmin/internal/store"
	"github.com/shaibs3/geoadmin/internal/store/provider"
	"github.com/shaibs3/geoadmin/internal/telemetry"
	"github.com/shaibs3/geoadmin/internal/view"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const shutdownTimeout = 30 * time.Second

// App represents the main application
type App struct {
	config    *config.Config
	logger    *zap.Logger
	telemetry *telemetry.Telemetry
	store     store.Provider
	server    *http.Server
}

func NewApp(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	tel, err := telemetry.NewTelemetry(logger)
	if err != nil {
		return nil, err
	}

	// An empty DB_CONFIG selects the in-memory provider
	factory := provider.NewDbProviderFactory(logger, tel)
	dbProvider, err := factory.CreateProvider(ctx, cfg.DBConfig)
	if err != nil {
		return nil, err
	}

	authService, err := auth.NewService(dbProvider, auth.NewBcryptHasher(cfg.BcryptCost), logger)
	if err != nil {
		_ = dbProvider.Close()
		return nil, err
	}
	if cfg.AdminEmail != "" && cfg.AdminPassword != "" {
		if err := authService.EnsureAdmin(ctx, cfg.AdminName, cfg.AdminEmail, cfg.AdminPassword); err != nil {
			_ = dbProvider.Close()
			return nil, fmt.Errorf("failed to seed admin account: %w", err)
		}
	}

	renderer, err := view.New(logger)
	if err != nil {
		_ = dbProvider.Close()
		return nil, err
	}

	sessions := session.NewManager(cfg.SessionSecret, cfg.SessionIdle, cfg.SecureCookies, logger)
	deps := handlers.Deps{
		Sessions: sessions,
		View:     renderer,
		Gate:     gate.New(sessions, logger),
	}
	geoService := geo.NewService(dbProvider, logger)

	handlerList := []router.Handler{
		handlers.NewHomeHandler(deps, dbProvider),
		handlers.NewAuthHandler(deps, authService),
		handlers.NewContactHandler(deps, inbox.NewService(dbProvider, logger)),
		handlers.NewReportHandler(deps, geoService),
		handlers.NewAdminHandler(deps, geoService),
	}

	limiter := rate.NewLimiter(rate.Limit(cfg.RPSLimit), cfg.RPSBurst)
	appRouter := router.NewRouter(limiter, tel, logger, handlerList, sessions.Middleware)
	server := appRouter.CreateServer(":" + cfg.Port)

	return &App{
		config:    cfg,
		logger:    logger,
		telemetry: tel,
		store:     dbProvider,
		server:    server,
	}, nil
}

// Handler exposes the HTTP handler, mainly for tests
func (app *App) Handler() http.Handler {
	return app.server.Handler
}

func (app *App) start(errc chan<- error) {
	app.logger.Info("starting server", zap.String("port", app.config.Port))

	go func() {
		if err := app.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
	}()
}

// Stop gracefully shuts down the server, then flushes telemetry and
// closes the store
func (app *App) Stop() error {
	app.logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	var errs []error
	if err := app.server.Shutdown(shutdownCtx); err != nil {
		app.logger.Error("server forced to shutdown", zap.Error(err))
		errs = append(errs, err)
	}
	if err := app.telemetry.Shutdown(shutdownCtx); err != nil {
		app.logger.Warn("telemetry shutdown failed", zap.Error(err))
		errs = append(errs, err)
	}
	if err := app.store.Close(); err != nil {
		app.logger.Warn("store close failed", zap.Error(err))
		errs = append(errs, err)
	}

	app.logger.Info("server exited")
	return errors.Join(errs...)
}

// Run starts the application and waits for a shutdown signal or a
// server failure
func (app *App) Run() error {
	errc := make(chan error, 1)
	app.start(errc)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	select {
	case <-ctx.Done():
	case err := <-errc:
		app.logger.Error("server failed", zap.Error(err))
		_ = app.Stop()
		return err
	}
	return app.Stop()
}
