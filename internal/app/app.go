// Package app wires the application together: configuration, logging,
// ingestion services, router and HTTP server lifecycle.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"

	"nfcli/internal/cache"
	"nfcli/internal/config"
	nfenc "nfcli/internal/encoding"
	"nfcli/internal/exporter"
	"nfcli/internal/infrastructure"
	"nfcli/internal/ingest"
	customMiddleware "nfcli/internal/middleware"
	"nfcli/internal/services"
	handlers "nfcli/internal/transport/http"
)

// Version is set at compile time via -ldflags.
var Version = "dev"

// Application is the main application container.
type Application struct {
	Config       *config.Config
	Router       *chi.Mux
	Server       *http.Server
	Store        *cache.Store
	TableService *services.TableService
	Logger       *slog.Logger

	closeLogger func() error
}

// NewApplication creates an application instance with all dependencies wired.
func NewApplication(cfg *config.Config) (*Application, error) {
	logger, closeLogger, err := infrastructure.NewLogger(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	logger.Info("application starting",
		slog.String("version", Version),
		slog.Int("port", cfg.Server.Port),
		slog.String("data_dir", cfg.Paths.DataDir),
		slog.String("export_dir", cfg.Paths.ExportDir))

	app := &Application{
		Config:      cfg,
		Logger:      logger,
		closeLogger: closeLogger,
	}

	app.initializeServices()
	app.setupRouter()
	app.createServer()

	return app, nil
}

// initializeServices builds the ingestion stack bottom-up.
func (a *Application) initializeServices() {
	resolver := nfenc.NewResolver()
	resolver.ConfidenceThreshold = a.Config.Ingest.ConfidenceThreshold
	resolver.ControlRatioCeiling = a.Config.Ingest.ControlRatioCeiling

	loader := ingest.NewLoaderWithResolver(resolver, a.Logger)
	a.Store = cache.NewStore(loader, a.Logger)

	exp := exporter.New(a.Config.Paths.ExportDir, a.Logger)
	a.TableService = services.NewTableServiceWithLogger(a.Store, exp, a.Logger)
}

// setupRouter configures the HTTP router with the middleware chain and all
// API routes.
func (a *Application) setupRouter() {
	r := chi.NewRouter()

	r.Use(customMiddleware.RequestID)
	r.Use(customMiddleware.RealIP)
	r.Use(customMiddleware.StructuredLogger(a.Logger))
	r.Use(customMiddleware.Recoverer(a.Logger))
	r.Use(customMiddleware.Compress(5))
	r.Use(customMiddleware.NewRateLimiter(
		a.Config.Server.RateLimitRPS,
		a.Config.Server.RateLimitBurst,
		a.Logger,
	).Handler)

	r.Route("/api/v1", func(r chi.Router) {
		tableHandler := handlers.NewTableHandler(a.TableService, a.Config.Ingest.PreviewRows, a.Logger)
		r.Mount("/tables", tableHandler.Routes())

		healthHandler := handlers.NewHealthHandler(Version)
		r.Mount("/health", healthHandler.Routes())
	})

	a.Router = r
}

// createServer creates the HTTP server.
func (a *Application) createServer() {
	a.Server = &http.Server{
		Addr:         fmt.Sprintf(":%d", a.Config.Server.Port),
		Handler:      a.Router,
		ReadTimeout:  a.Config.Server.ReadTimeout,
		WriteTimeout: a.Config.Server.WriteTimeout,
		IdleTimeout:  a.Config.Server.IdleTimeout,
	}
}

// Run starts the server and blocks until interrupted, then shuts down
// gracefully.
func (a *Application) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	errChan := make(chan error, 1)
	go func() {
		a.Logger.InfoContext(ctx, "server listening", slog.String("addr", a.Server.Addr))
		if err := a.Server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	select {
	case err := <-errChan:
		return fmt.Errorf("server error: %w", err)
	case <-sigChan:
		a.Logger.InfoContext(ctx, "received interrupt signal")
	}

	return a.Stop(ctx)
}

// Stop gracefully stops the application.
func (a *Application) Stop(ctx context.Context) error {
	a.Logger.InfoContext(ctx, "shutting down application")

	shutdownCtx, cancel := context.WithTimeout(ctx, a.Config.Server.ShutdownTimeout)
	defer cancel()

	if err := a.Server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}

	a.Logger.InfoContext(ctx, "application shutdown complete")
	if a.closeLogger != nil {
		return a.closeLogger()
	}
	return nil
}
