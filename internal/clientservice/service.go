// Package clientservice owns the dashboard's canonical client list and
// coordinates every change to it with the backend.
package clientservice

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/starford/naarad/internal/apperr"
	"github.com/starford/naarad/internal/backend"
	"github.com/starford/naarad/internal/csvimport"
	"github.com/starford/naarad/internal/models"
	"github.com/starford/naarad/internal/views"
)

// Backend is the subset of the REST client the service depends on.
type Backend interface {
	FetchClients(ctx context.Context) ([]models.Client, error)
	UploadClients(ctx context.Context, clients []models.Client) (*backend.UploadResult, error)
	SendReply(ctx context.Context, clientID, reply string) (*backend.StatusResponse, error)
	ToggleAuto(ctx context.Context, clientID string, auto bool) (*backend.ToggleResult, error)
	ClientHistory(ctx context.Context, clientID string) ([]models.HistoryEntry, error)
	LogInteraction(ctx context.Context, clientID string, entry models.HistoryEntry) (*backend.StatusResponse, error)
}

// Options tunes a Service. Zero values select the defaults.
type Options struct {
	HistoryTTL       time.Duration
	ActivityCapacity int
	Logger           *slog.Logger
}

// Service is safe for concurrent use by HTTP handlers.
type Service struct {
	api      Backend
	history  *backend.HistoryCache
	activity *ActivityLog
	logger   *slog.Logger
	now      func() time.Time

	mu      sync.RWMutex
	clients []models.Client
}

// NewService creates a service with an empty client list.
func NewService(api Backend, opts Options) *Service {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		api:      api,
		history:  backend.NewHistoryCache(api, opts.HistoryTTL),
		activity: NewActivityLog(opts.ActivityCapacity),
		logger:   logger,
		now:      time.Now,
		clients:  []models.Client{},
	}
}

// Load fetches the client list once at startup. On failure the list stays
// empty and the error is returned for the caller to report.
func (s *Service) Load(ctx context.Context) error {
	if err := s.Refresh(ctx); err != nil {
		s.logger.Warn("initial client fetch failed", slog.String("error", err.Error()))
		return err
	}
	return nil
}

// Refresh replaces the list with the backend's. On failure the current list
// is kept.
func (s *Service) Refresh(ctx context.Context) error {
	clients, err := s.api.FetchClients(ctx)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.clients = clients
	s.mu.Unlock()
	s.history.InvalidateAll()
	s.logger.Info("clients loaded", slog.Int("count", len(clients)))
	return nil
}

// Clients returns a snapshot of the list in stored order.
func (s *Service) Clients() []models.Client {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Client, len(s.clients))
	copy(out, s.clients)
	return out
}

// Get returns the client with id, or apperr.ErrNotFound.
func (s *Service) Get(id string) (models.Client, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := s.indexOf(id); i >= 0 {
		return s.clients[i], nil
	}
	return models.Client{}, fmt.Errorf("client %q: %w", id, apperr.ErrNotFound)
}

// Upload posts the batch and, once the backend accepts it, makes it the
// current list. Nothing changes locally when the upload fails.
func (s *Service) Upload(ctx context.Context, clients []models.Client) (*backend.UploadResult, error) {
	res, err := s.api.UploadClients(ctx, clients)
	if err != nil {
		return nil, err
	}
	batch := make([]models.Client, len(clients))
	copy(batch, clients)

	s.mu.Lock()
	s.clients = batch
	s.mu.Unlock()
	s.history.InvalidateAll()

	for _, c := range batch {
		if c.Auto {
			s.record(c, models.ActivityFollowUpSent, "Initial follow-up scheduled for "+displayName(c))
		}
	}
	s.logger.Info("clients uploaded", slog.Int("count", len(batch)))
	return res, nil
}

// UploadSample uploads the built-in demo batch.
func (s *Service) UploadSample(ctx context.Context) (*backend.UploadResult, error) {
	return s.Upload(ctx, csvimport.SampleClients(s.now()))
}

// SetAuto stores value as the client's automation flag. The local list is
// only updated after the backend confirms the change.
func (s *Service) SetAuto(ctx context.Context, id string, value bool) (models.Client, error) {
	c, err := s.Get(id)
	if err != nil {
		return models.Client{}, err
	}
	if _, err := s.api.ToggleAuto(ctx, id, value); err != nil {
		return models.Client{}, err
	}
	s.history.Invalidate(id)

	updated, err := s.replace(id, func(cur models.Client) models.Client { return cur.WithAuto(value) })
	if err != nil {
		return models.Client{}, err
	}
	state := "disabled"
	if value {
		state = "enabled"
	}
	s.record(c, models.ActivityStatusChanged, "Auto follow-up "+state+" for "+displayName(c))
	return updated, nil
}

// FlipAuto inverts the current flag and reloads the client's history so the
// detail view shows whatever the backend sent in response.
func (s *Service) FlipAuto(ctx context.Context, id string) (models.Client, error) {
	c, err := s.Get(id)
	if err != nil {
		return models.Client{}, err
	}
	updated, err := s.SetAuto(ctx, id, !c.Auto)
	if err != nil {
		return models.Client{}, err
	}
	if _, err := s.history.Get(ctx, id); err != nil {
		s.logger.Warn("history reload after toggle failed",
			slog.String("client_id", id),
			slog.String("error", err.Error()))
	}
	return updated, nil
}

// UpdateClient replaces the stored client with the edited copy. Edits stay in
// this process; the automation flag is always kept from the stored client.
func (s *Service) UpdateClient(edited models.Client) (models.Client, error) {
	return s.replace(edited.ID, func(cur models.Client) models.Client {
		edited.Auto = cur.Auto
		return edited
	})
}

// History returns the client's history in stored order.
func (s *Service) History(ctx context.Context, id string) ([]models.HistoryEntry, error) {
	return s.history.Get(ctx, id)
}

// InitialFollowup returns the entry the initial follow-up widget shows.
// ok is false when the history is empty.
func (s *Service) InitialFollowup(ctx context.Context, id string) (entry models.HistoryEntry, ok bool, err error) {
	entries, err := s.history.Get(ctx, id)
	if err != nil {
		return models.HistoryEntry{}, false, err
	}
	entry, ok = views.SelectInitialFollowup(entries)
	return entry, ok, nil
}

// Reply sends a manual reply to the client.
func (s *Service) Reply(ctx context.Context, id, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return fmt.Errorf("reply: %w: empty message", apperr.ErrInvalidInput)
	}
	if _, err := s.api.SendReply(ctx, id, text); err != nil {
		return err
	}
	s.history.Invalidate(id)
	c := s.lookup(id)
	s.record(c, models.ActivityFollowUpSent, "Reply sent to "+displayName(c))
	return nil
}

// LogResponse records a message received from the client and marks the
// client as responded.
func (s *Service) LogResponse(ctx context.Context, id, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return fmt.Errorf("log response: %w: empty message", apperr.ErrInvalidInput)
	}
	now := s.now()
	entry := models.HistoryEntry{
		Type:      string(models.InteractionResponse),
		Content:   text,
		Status:    string(models.InteractionResponded),
		Timestamp: models.FormatISO(now),
	}
	if _, err := s.api.LogInteraction(ctx, id, entry); err != nil {
		return err
	}
	s.history.Invalidate(id)

	if _, err := s.replace(id, func(cur models.Client) models.Client {
		cur.Status = models.StatusResponded
		cur.LastInteraction = now.UTC()
		return cur
	}); err != nil {
		s.logger.Debug("response logged for client outside the current list", slog.String("client_id", id))
	}
	c := s.lookup(id)
	s.record(c, models.ActivityClientResponded, displayName(c)+" responded")
	return nil
}

// Activities returns the session's activity feed, newest first.
func (s *Service) Activities() []models.Activity {
	return s.activity.List()
}

func (s *Service) replace(id string, fn func(models.Client) models.Client) (models.Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(id)
	if i < 0 {
		return models.Client{}, fmt.Errorf("client %q: %w", id, apperr.ErrNotFound)
	}
	// Copy on write so snapshots handed out by Clients stay untouched.
	next := make([]models.Client, len(s.clients))
	copy(next, s.clients)
	next[i] = fn(next[i])
	s.clients = next
	return next[i], nil
}

// lookup returns the client or a stub carrying only the id.
func (s *Service) lookup(id string) models.Client {
	c, err := s.Get(id)
	if err != nil {
		return models.Client{ID: id}
	}
	return c
}

func (s *Service) indexOf(id string) int {
	for i := range s.clients {
		if s.clients[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *Service) record(c models.Client, typ models.ActivityType, msg string) {
	s.activity.Record(models.Activity{
		ClientID:   c.ID,
		ClientName: displayName(c),
		Type:       typ,
		Message:    msg,
		Timestamp:  s.now(),
	})
}

func displayName(c models.Client) string {
	if c.Name != "" {
		return c.Name
	}
	return c.ID
}
