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

	"github.com/starford/naarad/internal/api"
	"github.com/starford/naarad/internal/backend"
	"github.com/starford/naarad/internal/clientservice"
	"github.com/starford/naarad/internal/inbox"
	"github.com/starford/naarad/internal/mcpserver"
	"github.com/starford/naarad/internal/web"
)

const shutdownTimeout = 10 * time.Second

func newApplication(opts []Option) (*application, error) {
	app := &application{version: "dev", logOutput: os.Stdout}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}
	return app, nil
}

// NewLogger builds the structured JSON logger and installs it as the default.
func NewLogger(w io.Writer, level slog.Level) *slog.Logger {
	logger := slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)
	return logger
}

// NewClientService connects a client service to the configured backend.
// The client list is not loaded yet.
func NewClientService(cfg *Config, logger *slog.Logger) *clientservice.Service {
	remote := backend.NewClient(cfg.Backend.BaseURL, cfg.Backend.Timeout, logger)
	return clientservice.NewService(remote, clientservice.Options{
		HistoryTTL:       cfg.Backend.HistoryCacheTTL,
		ActivityCapacity: cfg.Activity.Capacity,
		Logger:           logger,
	})
}

// NewHandler assembles the HTTP surface: health checks, the JSON API under
// /api/v1 and the web shell on everything else.
func NewHandler(cfg *Config, svc *clientservice.Service, logger *slog.Logger) (http.Handler, error) {
	webRouter, err := web.NewRouter(svc, web.Config{
		MaxUploadBytes: cfg.Upload.MaxBytes,
		SuccessDelay:   cfg.Upload.SuccessDelay,
		Logger:         logger,
	})
	if err != nil {
		return nil, fmt.Errorf("init web: %w", err)
	}
	apiRouter := api.NewRouter(svc, cfg.Auth.Credentials(), cfg.Upload.MaxBytes)

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
		_, _ = fmt.Fprintf(w, `{"status":"ok","clients":%d}`, len(svc.Clients()))
	})

	// The API answers auth failures in JSON itself.
	r.Mount("/api/v1", apiRouter)

	r.Group(func(r chi.Router) {
		if cfg.Auth.AuthEnabled() {
			r.Use(middleware.BasicAuth("naarad", cfg.Auth.Credentials()))
		}
		r.Mount("/", webRouter)
	})

	return r, nil
}

// Run starts the application with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config

	logger := NewLogger(app.logOutput, cfg.App.LogLevel)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("backend_url", cfg.Backend.BaseURL),
		slog.String("auth_mode", cfg.Auth.Mode),
		slog.String("inbox_dir", cfg.Upload.InboxDir),
		slog.String("log_level", cfg.App.LogLevel.String()))

	svc := NewClientService(cfg, logger)
	// An unreachable backend is not fatal; the dashboard starts empty and
	// can be refreshed.
	_ = svc.Load(ctx)

	handler, err := NewHandler(cfg, svc, logger)
	if err != nil {
		return err
	}

	var in *inbox.Inbox
	if cfg.Upload.InboxEnabled() {
		in, err = inbox.New(cfg.Upload.InboxDir, svc, cfg.Upload.InboxDebounce, logger)
		if err != nil {
			return fmt.Errorf("init inbox: %w", err)
		}
	}

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	sigCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	g, gCtx := errgroup.WithContext(sigCtx)

	if in != nil {
		g.Go(func() error {
			if err := in.Run(gCtx); err != nil {
				logger.Error("inbox stopped", slog.String("error", err.Error()))
			}
			return nil
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
		if ctx.Err() == nil && sigCtx.Err() != nil {
			logger.Info("Received shutdown signal")
		} else {
			logger.Info("Context cancelled, initiating shutdown")
		}

		logger.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
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

// RunMCP serves the MCP tools on stdin/stdout until the client disconnects.
// Logs go to the configured log output, which must not be stdout.
func RunMCP(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	if app.logOutput == os.Stdout {
		app.logOutput = os.Stderr
	}
	logger := NewLogger(app.logOutput, app.config.App.LogLevel)

	svc := NewClientService(app.config, logger)
	_ = svc.Load(ctx)

	logger.Info("MCP server starting", slog.String("backend_url", app.config.Backend.BaseURL))
	return mcpserver.New(svc, app.version).ServeStdio()
}
