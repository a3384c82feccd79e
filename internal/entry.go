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
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/laguz/internal/api"
	"github.com/starford/laguz/internal/backup"
	"github.com/starford/laguz/internal/kvstore"
	"github.com/starford/laguz/internal/mcpserver"
	"github.com/starford/laguz/internal/models"
	"github.com/starford/laguz/internal/repository"
	"github.com/starford/laguz/internal/sse"
	"github.com/starford/laguz/internal/validate"
)

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
		slog.String("store_driver", cfg.Store.Driver),
		slog.String("store_path", cfg.Store.Path),
		slog.String("log_level", cfg.App.LogLevel.String()))

	// Initialize the durable key-value store.
	store, fsStore, err := openStore(cfg)
	if err != nil {
		return fmt.Errorf("init store: %w", err)
	}
	defer store.Close()

	limits := validate.Limits{
		MaxTitleLength: cfg.Limits.MaxTitleLength,
		MaxNoteLength:  cfg.Limits.MaxNoteLength,
		MaxTagsPerNote: cfg.Limits.MaxTagsPerNote,
		MaxTagLength:   cfg.Limits.MaxTagLength,
		MaxCategoryLen: cfg.Limits.MaxCategoryLength,
	}
	repo := repository.New(store, limits, cfg.Limits.MaxNotes, logger)
	engine := backup.New(store, repo, Version, cfg.Backup.MaxFiles, cfg.Backup.AutoInterval, logger)

	if app.mcpStdio {
		logger.Info("Serving MCP on stdio")
		return mcpserver.New(repo, engine).ServeStdio()
	}

	// SSE broker.
	broker := sse.NewBroker(2 * time.Second)
	defer broker.Close()

	// Build API router.
	apiRouter := api.NewRouter(repo, engine, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker)

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

	httpServer := &http.Server{
		Addr:    cfg.App.HTTP.Address(),
		Handler: r,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	// Watch the file store for external edits (file driver only).
	if fsStore != nil {
		g.Go(func() error {
			if err := repo.Watch(gCtx, fsStore, logger, func(kind string) {
				broker.Publish(sse.Event{Type: kind, Data: map[string]string{}})
			}); err != nil {
				logger.Warn("watcher failed", slog.String("error", err.Error()))
			}
			return nil
		})
	}

	// Auto-backup loop.
	g.Go(func() error {
		runAutoBackup(gCtx, repo, engine, broker, cfg.Backup.AutoInterval, logger)
		return nil
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

		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// openStore builds the configured Provider. The second return value is
// non-nil only for the file driver, which supports watching.
func openStore(cfg *Config) (kvstore.Provider, *kvstore.FS, error) {
	switch cfg.Store.Driver {
	case StoreDriverSQLite:
		s, err := kvstore.OpenSQLite(cfg.Store.Path)
		return s, nil, err
	default:
		if err := os.MkdirAll(cfg.Store.Path, 0o755); err != nil {
			return nil, nil, fmt.Errorf("create data dir: %w", err)
		}
		fs, err := kvstore.NewFS(cfg.Store.Path)
		return fs, fs, err
	}
}

// runAutoBackup periodically creates an automatic backup when the
// configured interval has elapsed and settings allow it.
func runAutoBackup(ctx context.Context, repo *repository.Repository, engine *backup.Engine, broker *sse.Broker, interval time.Duration, logger *slog.Logger) {
	tick := interval / 4
	if tick < time.Minute {
		tick = time.Minute
	}
	if tick > time.Hour {
		tick = time.Hour
	}

	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			settings, err := repo.LoadSettings()
			if err != nil {
				logger.Warn("auto-backup: settings load failed", slog.String("error", err.Error()))
				continue
			}
			if !settings.AutoBackupEnabled {
				continue
			}
			needed, err := engine.NeedsAutoBackup()
			if err != nil {
				logger.Warn("auto-backup: check failed", slog.String("error", err.Error()))
				continue
			}
			if !needed {
				continue
			}
			meta, err := engine.Create(models.BackupSourceAuto)
			if err != nil {
				logger.Warn("auto-backup: create failed", slog.String("error", err.Error()))
				continue
			}
			logger.Info("auto-backup created", slog.String("id", meta.ID))
			broker.PublishBackupEvent("created", meta.ID)
		}
	}
}
