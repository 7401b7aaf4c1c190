package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/starford/naarad/internal/backend/backendtest"
	"github.com/starford/naarad/internal/clientservice"
	"github.com/starford/naarad/internal/models"
	"github.com/starford/naarad/internal/testutil"
)

// testEnv wires the API router to a service backed by a fake backend that
// holds the standard test clients. A non-nil credentials map enables auth.
func testEnv(t *testing.T, credentials map[string]string) (*clientservice.Service, *backendtest.Server, http.Handler) {
	t.Helper()
	svc, srv := testutil.Service(t, testutil.Clients()...)
	return svc, srv, NewRouter(svc, credentials, 1<<10)
}

func serve(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %s: %v", w.Body.String(), err)
	}
	return v
}

func TestListClients(t *testing.T) {
	_, _, router := testEnv(t, nil)

	w := serve(t, router, http.MethodGet, "/clients", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	resp := decode[ClientListResponse](t, w)
	if resp.Total != 2 || len(resp.Clients) != 2 {
		t.Errorf("total = %d, clients = %d", resp.Total, len(resp.Clients))
	}
	if resp.Counts["all"] != 2 || resp.Counts["active"] != 1 || resp.Counts["pending"] != 1 {
		t.Errorf("counts = %v", resp.Counts)
	}
}

func TestListClients_Filtered(t *testing.T) {
	_, _, router := testEnv(t, nil)

	resp := decode[ClientListResponse](t, serve(t, router, http.MethodGet, "/clients?q=BETA", ""))
	if resp.Total != 1 || resp.Clients[0].ID != "c2" {
		t.Errorf("search = %+v", resp.Clients)
	}
	resp = decode[ClientListResponse](t, serve(t, router, http.MethodGet, "/clients?status=active", ""))
	if resp.Total != 1 || resp.Clients[0].ID != "c1" {
		t.Errorf("status filter = %+v", resp.Clients)
	}
	if resp.Counts["all"] != 2 {
		t.Error("counts must describe the unfiltered list")
	}
}

func TestListClients_EmitsBothAutoKeys(t *testing.T) {
	_, _, router := testEnv(t, nil)
	w := serve(t, router, http.MethodGet, "/clients/c1", "")
	body := w.Body.String()
	if !strings.Contains(body, `"auto":true`) || !strings.Contains(body, `"autoManage":true`) {
		t.Errorf("body = %s", body)
	}
}

func TestGetClient_NotFound(t *testing.T) {
	_, _, router := testEnv(t, nil)
	w := serve(t, router, http.MethodGet, "/clients/ghost", "")
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d", w.Code)
	}
	if resp := decode[errResponse](t, w); resp.Error == "" {
		t.Error("missing error message")
	}
}

func TestSetAuto(t *testing.T) {
	svc, srv, router := testEnv(t, nil)

	w := serve(t, router, http.MethodPatch, "/clients/c2/auto", `{"auto":true}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	if c := decode[models.Client](t, w); !c.Auto {
		t.Error("response should carry the new flag")
	}
	if c, _ := svc.Get("c2"); !c.Auto {
		t.Error("service not updated")
	}
	if !srv.Clients()[1].Auto {
		t.Error("backend not updated")
	}
}

func TestSetAuto_BadRequests(t *testing.T) {
	_, _, router := testEnv(t, nil)
	for _, body := range []string{`{}`, `not json`} {
		if w := serve(t, router, http.MethodPatch, "/clients/c2/auto", body); w.Code != http.StatusBadRequest {
			t.Errorf("body %q: status = %d", body, w.Code)
		}
	}
	if w := serve(t, router, http.MethodPatch, "/clients/ghost/auto", `{"auto":true}`); w.Code != http.StatusNotFound {
		t.Errorf("unknown client: status = %d", w.Code)
	}
}

func TestSetAuto_BackendFailure(t *testing.T) {
	_, srv, router := testEnv(t, nil)
	srv.Fail(http.MethodPatch, "/api/clients/c2/auto-toggle", http.StatusInternalServerError)
	if w := serve(t, router, http.MethodPatch, "/clients/c2/auto", `{"auto":true}`); w.Code != http.StatusBadGateway {
		t.Errorf("status = %d", w.Code)
	}
}

func TestHistory(t *testing.T) {
	_, srv, router := testEnv(t, nil)
	srv.SetHistory("c1", []models.HistoryEntry{
		{Type: "response", Content: "first"},
		{Type: "naarad", Content: "second"},
	})

	w := serve(t, router, http.MethodGet, "/clients/c1/history", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	resp := decode[HistoryResponse](t, w)
	if len(resp.Entries) != 2 || resp.Entries[0].Content != "first" {
		t.Errorf("entries = %+v", resp.Entries)
	}
	if resp.Initial == nil || resp.Initial.Content != "second" {
		t.Errorf("initial = %+v", resp.Initial)
	}

	resp = decode[HistoryResponse](t, serve(t, router, http.MethodGet, "/clients/c2/history", ""))
	if resp.Entries == nil || len(resp.Entries) != 0 || resp.Initial != nil {
		t.Errorf("empty history = %+v", resp)
	}
}

func TestHistory_BackendFailure(t *testing.T) {
	_, srv, router := testEnv(t, nil)
	srv.Fail(http.MethodGet, "/api/clients/c1/history", http.StatusServiceUnavailable)
	if w := serve(t, router, http.MethodGet, "/clients/c1/history", ""); w.Code != http.StatusBadGateway {
		t.Errorf("status = %d", w.Code)
	}
}

func TestReply(t *testing.T) {
	_, srv, router := testEnv(t, nil)

	w := serve(t, router, http.MethodPost, "/clients/c1/reply", `{"reply":"See you Monday"}`)
	if w.Code != http.StatusNoContent {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	if h := srv.History("c1"); len(h) != 1 || h[0].Content != "See you Monday" {
		t.Errorf("history = %+v", h)
	}

	if w := serve(t, router, http.MethodPost, "/clients/c1/reply", `{"reply":"  "}`); w.Code != http.StatusBadRequest {
		t.Errorf("blank reply: status = %d", w.Code)
	}
	if w := serve(t, router, http.MethodPost, "/clients/ghost/reply", `{"reply":"hi"}`); w.Code != http.StatusNotFound {
		t.Errorf("unknown client: status = %d", w.Code)
	}
}

func TestLogResponse(t *testing.T) {
	svc, _, router := testEnv(t, nil)
	w := serve(t, router, http.MethodPost, "/clients/c2/response", `{"response":"Works for me"}`)
	if w.Code != http.StatusNoContent {
		t.Fatalf("status = %d", w.Code)
	}
	if c, _ := svc.Get("c2"); c.Status != models.StatusResponded {
		t.Errorf("status = %s", c.Status)
	}
}

func TestUploadClients(t *testing.T) {
	svc, srv, router := testEnv(t, nil)
	csv := "id,name,auto\nx1,Xavier,true\nx2,Yolanda,\n"

	w := serve(t, router, http.MethodPost, "/clients/upload", csv)
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	if resp := decode[UploadResponse](t, w); resp.Count != 2 {
		t.Errorf("count = %d", resp.Count)
	}
	if len(svc.Clients()) != 2 || len(srv.Clients()) != 2 {
		t.Error("list not replaced")
	}

	acts := decode[ActivityResponse](t, serve(t, router, http.MethodGet, "/activity", ""))
	if len(acts.Activities) != 1 || acts.Activities[0].ClientID != "x1" {
		t.Errorf("activities = %+v", acts.Activities)
	}
}

func TestUploadClients_Errors(t *testing.T) {
	_, srv, router := testEnv(t, nil)

	if w := serve(t, router, http.MethodPost, "/clients/upload", "name,dueDate\nA,not-a-date\n"); w.Code != http.StatusBadRequest {
		t.Errorf("invalid csv: status = %d", w.Code)
	}
	if w := serve(t, router, http.MethodPost, "/clients/upload", "name\n"+strings.Repeat("x", 2<<10)+"\n"); w.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("oversized body: status = %d", w.Code)
	}

	srv.Fail(http.MethodPost, "/api/clients/upload", http.StatusInternalServerError)
	if w := serve(t, router, http.MethodPost, "/clients/upload", "name\nA\n"); w.Code != http.StatusBadGateway {
		t.Errorf("backend failure: status = %d", w.Code)
	}
}

func TestActivity_Empty(t *testing.T) {
	_, _, router := testEnv(t, nil)
	w := serve(t, router, http.MethodGet, "/activity", "")
	if !strings.Contains(w.Body.String(), `"activities":[]`) {
		t.Errorf("body = %s", w.Body.String())
	}
}

func TestUnknownRoute(t *testing.T) {
	_, _, router := testEnv(t, nil)
	w := serve(t, router, http.MethodGet, "/nope", "")
	if w.Code != http.StatusNotFound || !strings.Contains(w.Header().Get("Content-Type"), "application/json") {
		t.Errorf("status = %d, content-type = %q", w.Code, w.Header().Get("Content-Type"))
	}
}

func TestAuthMiddleware_ValidCredentials(t *testing.T) {
	_, _, router := testEnv(t, map[string]string{"admin": "secret"})
	req := httptest.NewRequest(http.MethodGet, "/clients", nil)
	req.SetBasicAuth("admin", "secret")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("status = %d", w.Code)
	}
}

func TestAuthMiddleware_MissingCredentials(t *testing.T) {
	_, _, router := testEnv(t, map[string]string{"admin": "secret"})
	w := serve(t, router, http.MethodGet, "/clients", "")
	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d", w.Code)
	}
	if w.Header().Get("WWW-Authenticate") == "" {
		t.Error("missing challenge header")
	}
}

func TestAuthMiddleware_WrongPassword(t *testing.T) {
	_, _, router := testEnv(t, map[string]string{"admin": "secret"})
	req := httptest.NewRequest(http.MethodGet, "/clients", nil)
	req.SetBasicAuth("admin", "guess")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d", w.Code)
	}
}
