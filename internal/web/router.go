// Package web serves the dashboard pages.
package web

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/starford/naarad/internal/clientservice"
	"github.com/starford/naarad/internal/views"
)

// Defaults for Config fields left zero.
const (
	DefaultMaxUploadBytes = 5 << 20
	DefaultSuccessDelay   = 1500 * time.Millisecond
)

// Config tunes the page handlers.
type Config struct {
	MaxUploadBytes int64
	SuccessDelay   time.Duration
	Logger         *slog.Logger
}

type handler struct {
	svc      *clientservice.Service
	renderer *renderer
	cfg      Config
	logger   *slog.Logger
	now      func() time.Time
}

// NewRouter returns the page routes. Unknown paths render the not-found page.
func NewRouter(svc *clientservice.Service, cfg Config) (http.Handler, error) {
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = DefaultMaxUploadBytes
	}
	if cfg.SuccessDelay <= 0 {
		cfg.SuccessDelay = DefaultSuccessDelay
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	rnd, err := newRenderer(views.NewMarkdown())
	if err != nil {
		return nil, err
	}
	h := &handler{svc: svc, renderer: rnd, cfg: cfg, logger: cfg.Logger, now: time.Now}

	r := chi.NewRouter()
	r.Get("/", h.uploadPage)
	r.Post("/upload", h.upload)
	r.Post("/upload/sample", h.uploadSample)

	r.Get("/dashboard", h.dashboard)
	r.Post("/dashboard/refresh", h.refresh)
	r.Post("/clients/{id}/auto", h.dashboardToggle)

	r.Route("/client/{id}", func(r chi.Router) {
		r.Get("/", h.detail)
		r.Post("/auto", h.detailToggle)
		r.Post("/settings", h.saveSettings)
		r.Post("/reply", h.reply)
		r.Post("/response", h.logResponse)
	})

	r.Get("/activity", h.activity)

	r.NotFound(h.notFound)
	r.MethodNotAllowed(h.notFound)
	return r, nil
}
