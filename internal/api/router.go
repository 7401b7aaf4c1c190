package api

import (
	"github.com/go-chi/chi/v5"

	"github.com/starford/naarad/internal/clientservice"
)

// NewRouter creates a chi router with all API routes mounted.
// credentials, if non-empty, enables HTTP basic auth on every route.
// maxUploadBytes bounds the CSV upload body.
func NewRouter(svc *clientservice.Service, credentials map[string]string, maxUploadBytes int64) chi.Router {
	h := NewHandler(svc, maxUploadBytes)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(credentials))

	r.Get("/clients", h.ListClients)
	r.Post("/clients/upload", h.UploadClients)
	r.Get("/clients/{id}", h.GetClient)
	r.Patch("/clients/{id}/auto", h.SetAuto)
	r.Get("/clients/{id}/history", h.History)
	r.Post("/clients/{id}/reply", h.Reply)
	r.Post("/clients/{id}/response", h.LogResponse)

	r.Get("/activity", h.Activity)

	r.NotFound(h.notFound)
	r.MethodNotAllowed(h.methodNotAllowed)

	return r
}
