// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/maxwell/internal/api"
	"github.com/starford/maxwell/internal/index"
	"github.com/starford/maxwell/internal/mcpserver"
)

// NewLogger returns the structured JSON logger used by every entry point.
func NewLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
}

func (a *application) setup() (*Config, *slog.Logger, error) {
	if a.config == nil {
		return nil, nil, fmt.Errorf("config is required")
	}
	out := a.logOutput
	if out == nil {
		out = os.Stdout
	}
	logger := NewLogger(out, a.config.App.LogLevel)
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", a.config.App.HTTP.Address()),
		slog.String("notes_root", a.config.Notes.Root),
		slog.String("sqlite_path", a.config.SQLite.Path),
		slog.Bool("fts5", index.FTSEnabled),
		slog.String("log_level", a.config.App.LogLevel.String()))
	return a.config, logger, nil
}

func initialIndex(eng *Engine, logger *slog.Logger) {
	if _, err := eng.Service.IndexAll(); err != nil {
		logger.Warn("initial index failed", slog.String("error", err.Error()))
	}
}

func watchNotes(ctx context.Context, eng *Engine, root string, logger *slog.Logger) error {
	err := index.Watch(ctx, eng.Indexer, root, logger, func(kind, path string) {
		logger.Debug("watcher: note event", slog.String("kind", kind), slog.String("path", path))
	})
	if err != nil {
		logger.Error("watcher stopped", slog.String("root", root), slog.String("error", err.Error()))
	}
	return nil
}

// startWatcher runs watchNotes in the background. The returned stop func
// cancels the watcher and waits for it to exit.
func startWatcher(ctx context.Context, eng *Engine, root string, logger *slog.Logger) (stop func()) {
	ctx, cancel := context.WithCancel(ctx)
	var g errgroup.Group
	g.Go(func() error {
		return watchNotes(ctx, eng, root, logger)
	})
	return func() {
		cancel()
		_ = g.Wait()
	}
}

func writeStatus(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

// NewHTTPHandler builds the root chi router: health checks plus the memory
// API under /api.
func NewHTTPHandler(cfg *Config, eng *Engine) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check endpoints (unauthenticated).
	r.Get("/health/live", writeStatus)
	r.Get("/health/ready", func(w http.ResponseWriter, req *http.Request) {
		if _, err := eng.Service.Stats(); err != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"unavailable"}`))
			return
		}
		writeStatus(w, req)
	})

	r.Mount("/api", api.NewRouter(eng.Service, api.RouterConfig{
		AuthEnabled: cfg.Auth.AuthEnabled(),
		Token:       cfg.Auth.Token,
		Recency:     cfg.Search.Recency,
	}))
	return r
}

// Run starts the HTTP server and the notes watcher with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app := &application{}
	for _, opt := range opts {
		opt(app)
	}
	cfg, logger, err := app.setup()
	if err != nil {
		return err
	}

	eng, err := OpenEngine(cfg, logger)
	if err != nil {
		return err
	}
	defer eng.Close()

	initialIndex(eng, logger)

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           NewHTTPHandler(cfg, eng),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gCtx := errgroup.WithContext(ctx)

	// Re-index notes as they change.
	g.Go(func() error {
		return watchNotes(gCtx, eng, cfg.Notes.Root, logger)
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
		defer signal.Stop(quit)

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
		return context.Canceled
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// RunMCP serves the memory tools over stdio while the watcher keeps the
// store current. Logs go to stderr unless WithLogOutput says otherwise.
func RunMCP(ctx context.Context, opts ...Option) error {
	app := &application{logOutput: os.Stderr}
	for _, opt := range opts {
		opt(app)
	}
	cfg, logger, err := app.setup()
	if err != nil {
		return err
	}

	eng, err := OpenEngine(cfg, logger)
	if err != nil {
		return err
	}
	defer eng.Close()

	initialIndex(eng, logger)

	stopWatcher := startWatcher(ctx, eng, cfg.Notes.Root, logger)
	defer stopWatcher()

	srv := mcpserver.New(eng.Service, cfg.Search.Recency)
	logger.Info("Starting MCP server on stdio")
	return srv.ServeStdio()
}
