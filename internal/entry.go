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

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/notekeep/internal/api"
	"github.com/starford/notekeep/internal/mcpserver"
	"github.com/starford/notekeep/internal/notestore"
	"github.com/starford/notekeep/internal/noteservice"
	"github.com/starford/notekeep/internal/sse"
	"github.com/starford/notekeep/internal/storage"
)

// Version is reported by the MCP server. Overridden at build time.
var Version = "dev"

// TopicStoreChanged is published when the fs backend sees an external edit.
const TopicStoreChanged = "store.changed"

func newApplication(opts []Option, logOut io.Writer) (*application, error) {
	app := &application{}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}
	if app.logger == nil {
		// Initialize structured JSON logger.
		app.logger = slog.New(slog.NewJSONHandler(logOut, &slog.HandlerOptions{
			Level: app.config.App.LogLevel,
		}))
	}
	slog.SetDefault(app.logger)
	return app, nil
}

// openStore opens the configured backend and wraps it in a note store.
// The returned func releases the backend.
func (a *application) openStore(ctx context.Context) (storage.Backend, *notestore.Store, func(), error) {
	cfg := a.config.Storage
	backend, err := storage.Open(ctx, cfg.Options())
	if err != nil {
		return nil, nil, nil, fmt.Errorf("init storage: %w", err)
	}
	release := func() {
		if c, ok := backend.(storage.Closer); ok {
			if err := c.Close(); err != nil {
				a.logger.Warn("close storage failed", slog.String("error", err.Error()))
			}
		}
	}
	a.logger.Info("Storage opened", slog.String("driver", cfg.Driver))
	return backend, notestore.New(backend, notestore.WithLogger(a.logger)), release, nil
}

// Run starts the HTTP server with the given options and blocks until ctx is
// cancelled or a shutdown signal arrives.
func Run(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts, os.Stdout)
	if err != nil {
		return err
	}
	cfg, logger := app.config, app.logger

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("storage_driver", cfg.Storage.Driver),
		slog.String("auth_mode", cfg.Auth.Mode),
		slog.String("log_level", cfg.App.LogLevel.String()))

	backend, store, release, err := app.openStore(ctx)
	if err != nil {
		return err
	}
	defer release()

	// SSE broker.
	broker := sse.NewBroker(cfg.Events.RefreshThrottle)
	defer broker.Close()

	svc := noteservice.NewService(store, broker, logger)
	apiRouter := api.NewRouter(svc, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check endpoints (unauthenticated).
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		writeStatus(w, http.StatusOK, "ok")
	})
	r.Get("/health/ready", func(w http.ResponseWriter, req *http.Request) {
		if _, _, err := backend.Get(req.Context(), notestore.UsersKey); err != nil {
			logger.Warn("readiness check failed", slog.String("error", err.Error()))
			writeStatus(w, http.StatusServiceUnavailable, "unavailable")
			return
		}
		writeStatus(w, http.StatusOK, "ok")
	})

	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:    cfg.App.HTTP.Address(),
		Handler: r,
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gCtx := errgroup.WithContext(ctx)

	// Watch the data directory for edits made by other processes.
	if fs, ok := backend.(*storage.FS); ok && cfg.Storage.FS.Watch {
		g.Go(func() error {
			return fs.Watch(gCtx, logger, func(kind, key string) {
				broker.PublishChange(TopicStoreChanged, map[string]string{"key": key, "kind": kind})
			})
		})
	}

	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gCtx.Done()
		logger.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.App.HTTP.ShutdownTimeout)
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

func writeStatus(w http.ResponseWriter, code int, status string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = fmt.Fprintf(w, `{"status":%q}`, status)
}

// RunMCP serves the MCP tools on stdin/stdout. Logs go to stderr so they do
// not corrupt the protocol stream.
func RunMCP(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts, os.Stderr)
	if err != nil {
		return err
	}

	_, store, release, err := app.openStore(ctx)
	if err != nil {
		return err
	}
	defer release()

	svc := noteservice.NewService(store, nil, app.logger)
	app.logger.Info("MCP server starting", slog.String("version", Version))
	return mcpserver.New(svc, Version).ServeStdio()
}

// RunImport imports the Markdown files under dir for the logged-in user.
func RunImport(ctx context.Context, dir string, opts ...Option) (noteservice.ImportReport, error) {
	app, err := newApplication(opts, os.Stderr)
	if err != nil {
		return noteservice.ImportReport{}, err
	}

	_, store, release, err := app.openStore(ctx)
	if err != nil {
		return noteservice.ImportReport{}, err
	}
	defer release()

	svc := noteservice.NewService(store, nil, app.logger)
	u, err := svc.CurrentUser(ctx)
	if err != nil {
		return noteservice.ImportReport{}, fmt.Errorf("import needs a logged-in user: %w", err)
	}
	return svc.ImportMarkdown(ctx, u.ID, dir)
}
