package internal

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/starford/naarad/internal/backend/backendtest"
	"github.com/starford/naarad/internal/models"
	"github.com/starford/naarad/internal/testutil"
)

func testHandler(t *testing.T, mutate func(*Config)) (http.Handler, *backendtest.Server) {
	t.Helper()
	srv := backendtest.New(t)
	srv.SetClients(testutil.Clients())

	cfg := NewDefaultConfig()
	cfg.Backend.BaseURL = srv.URL
	if mutate != nil {
		mutate(cfg)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("config: %v", err)
	}

	svc := NewClientService(cfg, testutil.Logger())
	if err := svc.Load(context.Background()); err != nil {
		t.Fatal(err)
	}
	h, err := NewHandler(cfg, svc, testutil.Logger())
	if err != nil {
		t.Fatalf("NewHandler: %v", err)
	}
	return h, srv
}

func get(h http.Handler, target string, auth ...string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	if len(auth) == 2 {
		req.SetBasicAuth(auth[0], auth[1])
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestHandler_Health(t *testing.T) {
	h, _ := testHandler(t, nil)
	if w := get(h, "/health/live"); w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"ok"`) {
		t.Errorf("live = %d %s", w.Code, w.Body.String())
	}
	if w := get(h, "/health/ready"); !strings.Contains(w.Body.String(), `"clients":2`) {
		t.Errorf("ready = %s", w.Body.String())
	}
}

func TestHandler_RoutesWebAndAPI(t *testing.T) {
	h, _ := testHandler(t, nil)

	if w := get(h, "/"); w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "<form") {
		t.Errorf("upload page = %d", w.Code)
	}
	if w := get(h, "/dashboard"); !strings.Contains(w.Body.String(), `data-client-id="c1"`) {
		t.Error("dashboard missing loaded clients")
	}
	w := get(h, "/api/v1/clients")
	if w.Code != http.StatusOK || !strings.Contains(w.Header().Get("Content-Type"), "application/json") {
		t.Errorf("api = %d %q", w.Code, w.Header().Get("Content-Type"))
	}
	if w := get(h, "/no/such/page"); w.Code != http.StatusNotFound {
		t.Errorf("unknown path = %d", w.Code)
	}
}

func TestHandler_BasicAuth(t *testing.T) {
	h, _ := testHandler(t, func(c *Config) {
		c.Auth = AuthConfig{Mode: AuthModeBasic, Username: "ops", Password: "pw"}
	})

	if w := get(h, "/dashboard"); w.Code != http.StatusUnauthorized {
		t.Errorf("web without credentials = %d", w.Code)
	}
	if w := get(h, "/dashboard", "ops", "pw"); w.Code != http.StatusOK {
		t.Errorf("web with credentials = %d", w.Code)
	}

	w := get(h, "/api/v1/clients")
	if w.Code != http.StatusUnauthorized || !strings.Contains(w.Body.String(), `"error"`) {
		t.Errorf("api without credentials = %d %s", w.Code, w.Body.String())
	}
	if w := get(h, "/api/v1/clients", "ops", "pw"); w.Code != http.StatusOK {
		t.Errorf("api with credentials = %d", w.Code)
	}

	if w := get(h, "/health/live"); w.Code != http.StatusOK {
		t.Errorf("health must stay open, got %d", w.Code)
	}
}

func TestNewClientService_BackendFailureIsNotFatal(t *testing.T) {
	h, srv := testHandler(t, nil)
	srv.Fail(http.MethodGet, "/api/clients/c1/history", http.StatusInternalServerError)
	if w := get(h, "/client/c1"); w.Code != http.StatusOK {
		t.Errorf("detail = %d", w.Code)
	}
}

func TestNewClientService_DefaultSeesBackendHistoryWrites(t *testing.T) {
	srv := backendtest.New(t)
	srv.SetClients(testutil.Clients())
	cfg := NewDefaultConfig()
	cfg.Backend.BaseURL = srv.URL

	svc := NewClientService(cfg, testutil.Logger())
	if err := svc.Load(context.Background()); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.FlipAuto(context.Background(), "c2"); err != nil {
		t.Fatal(err)
	}
	srv.SetHistory("c2", []models.HistoryEntry{
		{Type: "naarad", Content: "one"},
		{Type: "response", Content: "two"},
		{Type: "naarad", Content: "three"},
	})

	entries, err := svc.History(context.Background(), "c2")
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 3 {
		t.Errorf("history = %d entries, want the 3 the backend holds", len(entries))
	}
}

func TestRun_RequiresConfig(t *testing.T) {
	if err := Run(context.Background()); err == nil {
		t.Error("expected error without config")
	}
}
