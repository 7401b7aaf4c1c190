package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/naarad/internal/clientservice"
	"github.com/starford/naarad/internal/csvimport"
	"github.com/starford/naarad/internal/models"
	"github.com/starford/naarad/internal/views"
)

// Handler holds API route handlers.
type Handler struct {
	svc            *clientservice.Service
	maxUploadBytes int64
}

// NewHandler creates a new Handler.
func NewHandler(svc *clientservice.Service, maxUploadBytes int64) *Handler {
	if maxUploadBytes <= 0 {
		maxUploadBytes = 5 << 20
	}
	return &Handler{svc: svc, maxUploadBytes: maxUploadBytes}
}

// ListClients handles GET /api/v1/clients.
//
//	@Summary		List clients with optional search and status filter
//	@Tags			clients
//	@Produce		json
//	@Param			q		query		string	false	"Case-insensitive match on name or company"
//	@Param			status	query		string	false	"Status filter"	Enums(all, active, pending, overdue, responded)
//	@Success		200		{object}	ClientListResponse
//	@Router			/clients [get]
func (h *Handler) ListClients(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	all := h.svc.Clients()
	filtered := views.Filter(all, q.Get("q"), views.ParseStatusFilter(q.Get("status")))

	counts := make(map[string]int)
	for k, v := range views.StatusCounts(all) {
		counts[string(k)] = v
	}
	writeJSON(w, http.StatusOK, ClientListResponse{
		Clients: filtered,
		Total:   len(filtered),
		Counts:  counts,
	})
}

// GetClient handles GET /api/v1/clients/{id}.
//
//	@Summary		Get a single client
//	@Tags			clients
//	@Produce		json
//	@Param			id	path		string	true	"Client ID"
//	@Success		200	{object}	models.Client
//	@Failure		404	{object}	errResponse
//	@Router			/clients/{id} [get]
func (h *Handler) GetClient(w http.ResponseWriter, r *http.Request) {
	c, err := h.svc.Get(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, "get client", err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// SetAuto handles PATCH /api/v1/clients/{id}/auto.
//
//	@Summary		Enable or disable automated follow-ups
//	@Tags			clients
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string			true	"Client ID"
//	@Param			body	body		SetAutoRequest	true	"Desired flag"
//	@Success		200		{object}	models.Client
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Failure		502		{object}	errResponse
//	@Router			/clients/{id}/auto [patch]
func (h *Handler) SetAuto(w http.ResponseWriter, r *http.Request) {
	var req SetAutoRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if req.Auto == nil {
		writeJSON(w, http.StatusBadRequest, errorBody("auto is required"))
		return
	}
	c, err := h.svc.SetAuto(r.Context(), chi.URLParam(r, "id"), *req.Auto)
	if err != nil {
		writeError(w, "set auto", err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// History handles GET /api/v1/clients/{id}/history.
//
//	@Summary		Get a client's interaction history, oldest first
//	@Tags			clients
//	@Produce		json
//	@Param			id	path		string	true	"Client ID"
//	@Success		200	{object}	HistoryResponse
//	@Failure		404	{object}	errResponse
//	@Failure		502	{object}	errResponse
//	@Router			/clients/{id}/history [get]
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := h.svc.Get(id); err != nil {
		writeError(w, "history", err)
		return
	}
	entries, err := h.svc.History(r.Context(), id)
	if err != nil {
		writeError(w, "history", err)
		return
	}
	if entries == nil {
		entries = []models.HistoryEntry{}
	}
	resp := HistoryResponse{Entries: entries}
	if e, ok := views.SelectInitialFollowup(entries); ok {
		resp.Initial = &e
	}
	writeJSON(w, http.StatusOK, resp)
}

// Reply handles POST /api/v1/clients/{id}/reply.
//
//	@Summary		Send a manual reply to a client
//	@Tags			clients
//	@Accept			json
//	@Produce		json
//	@Param			id		path	string			true	"Client ID"
//	@Param			body	body	ReplyRequest	true	"Reply text"
//	@Success		204		"Reply sent"
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Failure		502		{object}	errResponse
//	@Router			/clients/{id}/reply [post]
func (h *Handler) Reply(w http.ResponseWriter, r *http.Request) {
	var req ReplyRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	h.send(w, r, "reply", req.Reply, h.svc.Reply)
}

// LogResponse handles POST /api/v1/clients/{id}/response.
//
//	@Summary		Record a response received from a client
//	@Tags			clients
//	@Accept			json
//	@Produce		json
//	@Param			id		path	string			true	"Client ID"
//	@Param			body	body	ResponseRequest	true	"Response text"
//	@Success		204		"Response logged"
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Failure		502		{object}	errResponse
//	@Router			/clients/{id}/response [post]
func (h *Handler) LogResponse(w http.ResponseWriter, r *http.Request) {
	var req ResponseRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	h.send(w, r, "log response", req.Response, h.svc.LogResponse)
}

func (h *Handler) send(w http.ResponseWriter, r *http.Request, op, text string,
	fn func(ctx context.Context, id, text string) error,
) {
	id := chi.URLParam(r, "id")
	if _, err := h.svc.Get(id); err != nil {
		writeError(w, op, err)
		return
	}
	if err := fn(r.Context(), id, text); err != nil {
		writeError(w, op, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// UploadClients handles POST /api/v1/clients/upload.
//
//	@Summary		Replace the client list from a CSV document
//	@Tags			clients
//	@Accept			text/csv
//	@Produce		json
//	@Success		201	{object}	UploadResponse
//	@Failure		400	{object}	errResponse
//	@Failure		502	{object}	errResponse
//	@Router			/clients/upload [post]
func (h *Handler) UploadClients(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	clients, err := csvimport.Parse(r.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, errorBody("file too large"))
			return
		}
		writeError(w, "upload", err)
		return
	}
	res, err := h.svc.Upload(r.Context(), clients)
	if err != nil {
		writeError(w, "upload", err)
		return
	}
	slog.Info("csv uploaded via api", slog.Int("count", res.Count))
	writeJSON(w, http.StatusCreated, UploadResponse{Count: res.Count})
}

// Activity handles GET /api/v1/activity.
//
//	@Summary		Recent activity, newest first
//	@Tags			activity
//	@Produce		json
//	@Success		200	{object}	ActivityResponse
//	@Router			/activity [get]
func (h *Handler) Activity(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, ActivityResponse{Activities: h.svc.Activities()})
}

func (h *Handler) notFound(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusNotFound, errorBody("not found"))
}

func (h *Handler) methodNotAllowed(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusMethodNotAllowed, errorBody("method not allowed"))
}
