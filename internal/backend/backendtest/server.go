// Package backendtest provides an in-process stand-in for the follow-up
// backend, for use in tests.
package backendtest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/starford/naarad/internal/models"
)

// Server keeps clients and per-client logs in memory, the way the real
// backend does.
type Server struct {
	*httptest.Server

	mu       sync.Mutex
	clients  []models.Client
	logs     map[string][]models.HistoryEntry
	failures map[string]int
	calls    map[string]int
	hold     chan struct{}
}

// New starts a server that is closed when the test ends.
func New(t *testing.T) *Server {
	t.Helper()
	s := &Server{
		logs:     make(map[string][]models.HistoryEntry),
		failures: make(map[string]int),
		calls:    make(map[string]int),
	}

	r := chi.NewRouter()
	r.Use(s.count)
	r.Get("/api/clients", s.listClients)
	r.Post("/api/clients/upload", s.upload)
	r.Get("/api/clients/{id}/history", s.history)
	r.Post("/api/clients/{id}/reply", s.reply)
	r.Patch("/api/clients/{id}/auto-toggle", s.toggle)
	r.Post("/api/clients/{id}/log", s.log)

	s.Server = httptest.NewServer(r)
	t.Cleanup(s.Close)
	return s
}

// SetClients replaces the stored client list.
func (s *Server) SetClients(clients []models.Client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clients = append([]models.Client(nil), clients...)
}

// Clients returns a copy of the stored client list.
func (s *Server) Clients() []models.Client {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Client(nil), s.clients...)
}

// SetHistory replaces the stored history of one client.
func (s *Server) SetHistory(clientID string, entries []models.HistoryEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logs[clientID] = append([]models.HistoryEntry(nil), entries...)
}

// History returns a copy of the stored history of one client.
func (s *Server) History(clientID string) []models.HistoryEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.HistoryEntry(nil), s.logs[clientID]...)
}

// Fail makes every request to "METHOD /path" answer with status.
// A status of zero clears the failure.
func (s *Server) Fail(method, path string, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := method + " " + path
	if status == 0 {
		delete(s.failures, key)
		return
	}
	s.failures[key] = status
}

// Calls returns how many requests "METHOD /path" has received.
func (s *Server) Calls(method, path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[method+" "+path]
}

// HoldHistory blocks history requests until the returned func is called.
func (s *Server) HoldHistory() (release func()) {
	ch := make(chan struct{})
	s.mu.Lock()
	s.hold = ch
	s.mu.Unlock()
	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			s.hold = nil
			s.mu.Unlock()
			close(ch)
		})
	}
}

func (s *Server) count(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Method + " " + r.URL.Path
		s.mu.Lock()
		s.calls[key]++
		status := s.failures[key]
		s.mu.Unlock()
		if status != 0 {
			http.Error(w, fmt.Sprintf("injected failure %d", status), status)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) listClients(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.Clients())
}

func (s *Server) upload(w http.ResponseWriter, r *http.Request) {
	var clients []models.Client
	if err := json.NewDecoder(r.Body).Decode(&clients); err != nil {
		http.Error(w, "invalid body: "+err.Error(), http.StatusUnprocessableEntity)
		return
	}
	s.mu.Lock()
	s.clients = clients
	for _, c := range clients {
		if !c.Auto {
			continue
		}
		s.logs[c.ID] = append(s.logs[c.ID], models.HistoryEntry{
			Type:      models.EntryTypeNaarad,
			Content:   fmt.Sprintf("Hi %s, following up on your %s at %s.", c.Name, c.Type, c.Company),
			Timestamp: time.Now().Format("2006-01-02T15:04:05.000000"),
			Rationale: "Automated initial follow-up after upload",
			Status:    "email_sent",
		})
	}
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "count": len(clients)})
}

func (s *Server) history(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	hold := s.hold
	s.mu.Unlock()
	if hold != nil {
		select {
		case <-hold:
		case <-r.Context().Done():
			return
		}
	}
	entries := s.History(chi.URLParam(r, "id"))
	if entries == nil {
		entries = []models.HistoryEntry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

func (s *Server) reply(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Reply string `json:"reply"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid body", http.StatusUnprocessableEntity)
		return
	}
	id := chi.URLParam(r, "id")
	s.mu.Lock()
	s.logs[id] = append(s.logs[id], models.HistoryEntry{
		Type:      models.EntryTypeReply,
		Content:   req.Reply,
		Timestamp: time.Now().Format("2006-01-02T15:04:05.000000"),
		Rationale: "Manual reply from UI",
	})
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]string{"status": "Reply recorded"})
}

func (s *Server) toggle(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Auto bool `json:"auto"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid body", http.StatusUnprocessableEntity)
		return
	}
	id := chi.URLParam(r, "id")
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.clients {
		if s.clients[i].ID != id {
			continue
		}
		s.clients[i].Auto = req.Auto
		if req.Auto {
			s.logs[id] = append(s.logs[id], models.HistoryEntry{
				Type:      models.EntryTypeNaarad,
				Content:   "Following up now that automation is on.",
				Timestamp: time.Now().Format("2006-01-02T15:04:05.000000"),
				Rationale: "Automated follow-up (auto mode ON)",
				Status:    "email_sent",
			})
		}
		writeJSON(w, http.StatusOK, map[string]any{"status": "updated", "auto": req.Auto})
		return
	}
	writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Client not found"})
}

func (s *Server) log(w http.ResponseWriter, r *http.Request) {
	var entry models.HistoryEntry
	if err := json.NewDecoder(r.Body).Decode(&entry); err != nil {
		http.Error(w, "invalid body", http.StatusUnprocessableEntity)
		return
	}
	id := chi.URLParam(r, "id")
	s.mu.Lock()
	s.logs[id] = append(s.logs[id], entry)
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]string{"status": "logged"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
