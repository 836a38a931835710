// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"
	"golang.org/x/sync/errgroup"

	"github.com/starford/dagaz/internal/api"
	"github.com/starford/dagaz/internal/docservice"
	"github.com/starford/dagaz/internal/index"
	"github.com/starford/dagaz/internal/mcpserver"
	"github.com/starford/dagaz/internal/sse"
	"github.com/starford/dagaz/internal/storage"
	"github.com/starford/dagaz/internal/versions"
)

// VersionsDirName is the snapshot archive directory inside the
// documents directory. Dot-prefixed so the index never sees it.
const VersionsDirName = ".versions"

func buildService(cfg *Config, logger *slog.Logger) (*docservice.Service, *index.Engine, error) {
	store, err := storage.NewFS(cfg.Docs.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("init storage: %w", err)
	}

	manifest := index.NewManifest(filepath.Join(store.Root(), index.ManifestFilename))
	engine := index.NewEngine(store, manifest, index.DefaultRules(), cfg.Docs.DefaultIcon, logger)
	vstore := versions.NewStore(
		filepath.Join(store.Root(), VersionsDirName),
		cfg.Versions.MaxPerDocument,
		cfg.Versions.PreviewLength,
		logger,
	)

	svc := docservice.New(store, manifest, engine, vstore, cfg.Docs.DefaultIcon)
	return svc, engine, nil
}

// Run starts the application with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app := &application{}

	for _, opt := range opts {
		opt(app)
	}

	if app.config == nil {
		return fmt.Errorf("config is required")
	}

	cfg := app.config

	// Initialize structured JSON logger.
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("docs_path", cfg.Docs.Path),
		slog.Duration("sync_interval", cfg.Sync.Interval),
		slog.String("log_level", cfg.App.LogLevel.String()))

	svc, engine, err := buildService(cfg, logger)
	if err != nil {
		return err
	}

	// Run initial reconciliation so the index matches the directory
	// before the first request lands.
	if _, err := engine.Reconcile(); err != nil {
		logger.Warn("initial reconciliation failed", slog.String("error", err.Error()))
	}

	// SSE broker.
	broker := sse.NewBroker(2 * time.Second)

	// Build the API router.
	apiRouter := api.NewRouter(svc, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker)

	// Build chi router.
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check endpoints (unauthenticated).
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/health/ready", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// Mount API routes under /api.
	r.Mount("/api", apiRouter)

	// Allow the dashboard frontend to call from another origin.
	c := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
	})

	httpServer := &http.Server{
		Addr:    cfg.App.HTTP.Address(),
		Handler: c.Handler(r),
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	// Start the file watcher with the SSE callback. The watcher also
	// owns the periodic reconciliation pass.
	g.Go(func() error {
		return index.Watch(gCtx, engine, cfg.Docs.Path, cfg.Sync.Interval, logger, func(kind, filename string) {
			broker.PublishDocumentEvent(kind, filename)
		})
	})

	// Start HTTP server.
	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	// Handle shutdown signals.
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		logger.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}

		broker.Close()
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// RunMCP starts the MCP stdio server instead of the HTTP server.
// Logs go to stderr because stdout carries the protocol stream.
func RunMCP(_ context.Context, opts ...Option) error {
	app := &application{}

	for _, opt := range opts {
		opt(app)
	}

	if app.config == nil {
		return fmt.Errorf("config is required")
	}

	cfg := app.config

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	svc, engine, err := buildService(cfg, logger)
	if err != nil {
		return err
	}
	if _, err := engine.Reconcile(); err != nil {
		logger.Warn("initial reconciliation failed", slog.String("error", err.Error()))
	}

	logger.Info("MCP server starting on stdio", slog.String("docs_path", cfg.Docs.Path))
	return mcpserver.New(svc, cfg.Docs.AgentName).ServeStdio()
}
