// Package testutil provides shared test helpers for wiring a service to an
// in-process backend.
package testutil

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/starford/naarad/internal/backend"
	"github.com/starford/naarad/internal/backend/backendtest"
	"github.com/starford/naarad/internal/clientservice"
	"github.com/starford/naarad/internal/models"
)

// Logger discards everything.
func Logger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// Backend starts a fake backend and a client pointed at it.
func Backend(t *testing.T) (*backendtest.Server, *backend.Client) {
	t.Helper()
	srv := backendtest.New(t)
	return srv, backend.NewClient(srv.URL, 5*time.Second, Logger())
}

// Service returns a service loaded with clients, which are also stored in
// the fake backend. History is never cached so tests see backend changes.
func Service(t *testing.T, clients ...models.Client) (*clientservice.Service, *backendtest.Server) {
	t.Helper()
	srv, api := Backend(t)
	srv.SetClients(clients)
	svc := clientservice.NewService(api, clientservice.Options{Logger: Logger()})
	if err := svc.Load(context.Background()); err != nil {
		t.Fatalf("load clients: %v", err)
	}
	return svc, srv
}

// Clients returns a small fixed client list.
func Clients() []models.Client {
	last := time.Now().Add(-48 * time.Hour)
	return []models.Client{
		{ID: "c1", Name: "Acme Corp", Company: "Acme", Email: "ops@acme.test",
			Status: models.StatusActive, Priority: models.PriorityHigh, LastInteraction: last, Auto: true},
		{ID: "c2", Name: "Beta", Company: "Beta LLC", Email: "hi@beta.test",
			Status: models.StatusPending, Priority: models.PriorityLow, LastInteraction: last},
	}
}
