package clientservice_test

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/starford/naarad/internal/apperr"
	"github.com/starford/naarad/internal/clientservice"
	"github.com/starford/naarad/internal/models"
	"github.com/starford/naarad/internal/testutil"
)

func TestLoad_FailureLeavesEmptyList(t *testing.T) {
	srv, api := testutil.Backend(t)
	srv.Fail(http.MethodGet, "/api/clients", http.StatusInternalServerError)

	svc := clientservice.NewService(api, clientservice.Options{Logger: testutil.Logger()})
	if err := svc.Load(context.Background()); err == nil {
		t.Fatal("expected load error")
	}
	if got := svc.Clients(); len(got) != 0 {
		t.Errorf("clients = %v, want empty", got)
	}
}

func TestRefresh_FailureKeepsList(t *testing.T) {
	svc, srv := testutil.Service(t, testutil.Clients()...)
	srv.Fail(http.MethodGet, "/api/clients", http.StatusBadGateway)
	if err := svc.Refresh(context.Background()); err == nil {
		t.Fatal("expected refresh error")
	}
	if len(svc.Clients()) != 2 {
		t.Error("failed refresh must keep the current list")
	}
}

func TestGet_NotFound(t *testing.T) {
	svc, _ := testutil.Service(t)
	if _, err := svc.Get("nope"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestUpload_ReplacesListAndRecordsActivity(t *testing.T) {
	svc, srv := testutil.Service(t, testutil.Clients()...)
	batch := []models.Client{
		{ID: "n1", Name: "New One", Auto: true},
		{ID: "n2", Name: "New Two"},
		{ID: "n3", Name: "New Three", Auto: true},
	}
	res, err := svc.Upload(context.Background(), batch)
	if err != nil {
		t.Fatal(err)
	}
	if res.Count != 3 {
		t.Errorf("count = %d", res.Count)
	}
	if got := svc.Clients(); len(got) != 3 || got[0].ID != "n1" {
		t.Errorf("clients = %+v", got)
	}
	if len(srv.Clients()) != 3 {
		t.Error("backend did not receive the batch")
	}

	acts := svc.Activities()
	if len(acts) != 2 {
		t.Fatalf("activities = %d, want one per auto client", len(acts))
	}
	if acts[0].ClientID != "n3" || acts[0].Type != models.ActivityFollowUpSent {
		t.Errorf("newest activity = %+v", acts[0])
	}
}

func TestUpload_FailureChangesNothing(t *testing.T) {
	svc, srv := testutil.Service(t, testutil.Clients()...)
	srv.Fail(http.MethodPost, "/api/clients/upload", http.StatusInternalServerError)

	_, err := svc.Upload(context.Background(), []models.Client{{ID: "x"}})
	if !errors.Is(err, apperr.ErrUploadFailed) {
		t.Fatalf("expected ErrUploadFailed, got %v", err)
	}
	if got := svc.Clients(); len(got) != 2 || got[0].ID != "c1" {
		t.Errorf("list changed after failed upload: %+v", got)
	}
	if len(svc.Activities()) != 0 {
		t.Error("failed upload recorded activity")
	}
}

func TestUploadSample(t *testing.T) {
	svc, _ := testutil.Service(t)
	res, err := svc.UploadSample(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if res.Count == 0 || len(svc.Clients()) != res.Count {
		t.Errorf("count = %d, clients = %d", res.Count, len(svc.Clients()))
	}
}

func TestSetAuto_KeepsAliasesInSync(t *testing.T) {
	svc, srv := testutil.Service(t, testutil.Clients()...)

	for _, v := range []bool{true, false, true} {
		c, err := svc.SetAuto(context.Background(), "c2", v)
		if err != nil {
			t.Fatalf("SetAuto(%v): %v", v, err)
		}
		if c.Auto != v {
			t.Errorf("returned auto = %v, want %v", c.Auto, v)
		}
		stored, _ := svc.Get("c2")
		if stored.Auto != v {
			t.Errorf("stored auto = %v, want %v", stored.Auto, v)
		}
	}
	if !srv.Clients()[1].Auto {
		t.Error("backend flag not updated")
	}
}

func TestSetAuto_MissingClientIsNoop(t *testing.T) {
	svc, srv := testutil.Service(t, testutil.Clients()...)
	_, err := svc.SetAuto(context.Background(), "ghost", true)
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if srv.Calls(http.MethodPatch, "/api/clients/ghost/auto-toggle") != 0 {
		t.Error("backend should not be called for a missing client")
	}
}

func TestSetAuto_BackendFailureLeavesListUnchanged(t *testing.T) {
	svc, srv := testutil.Service(t, testutil.Clients()...)
	srv.Fail(http.MethodPatch, "/api/clients/c2/auto-toggle", http.StatusInternalServerError)

	if _, err := svc.SetAuto(context.Background(), "c2", true); err == nil {
		t.Fatal("expected error")
	}
	c, _ := svc.Get("c2")
	if c.Auto {
		t.Error("flag changed despite backend failure")
	}
	if len(svc.Activities()) != 0 {
		t.Error("failed toggle recorded activity")
	}
}

func TestFlipAuto_RefetchesHistory(t *testing.T) {
	svc, srv := testutil.Service(t, testutil.Clients()...)

	c, err := svc.FlipAuto(context.Background(), "c2")
	if err != nil {
		t.Fatal(err)
	}
	if !c.Auto {
		t.Error("flip should turn automation on")
	}
	if n := srv.Calls(http.MethodGet, "/api/clients/c2/history"); n != 1 {
		t.Errorf("history fetched %d times, want 1", n)
	}

	c, err = svc.FlipAuto(context.Background(), "c2")
	if err != nil || c.Auto {
		t.Errorf("second flip = %v, %v", c.Auto, err)
	}
}

func TestUpdateClient_KeepsStoredAutoFlag(t *testing.T) {
	svc, _ := testutil.Service(t, testutil.Clients()...)
	edited, _ := svc.Get("c1")
	edited.Name = "Acme Renamed"
	edited.Auto = false

	got, err := svc.UpdateClient(edited)
	if err != nil {
		t.Fatal(err)
	}
	if got.Name != "Acme Renamed" || !got.Auto {
		t.Errorf("updated = %+v", got)
	}

	if _, err := svc.UpdateClient(models.Client{ID: "ghost"}); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestUpdateClient_SnapshotsAreStable(t *testing.T) {
	svc, _ := testutil.Service(t, testutil.Clients()...)
	before := svc.Clients()
	edited := before[0]
	edited.Name = "Changed"
	if _, err := svc.UpdateClient(edited); err != nil {
		t.Fatal(err)
	}
	if before[0].Name != "Acme Corp" {
		t.Error("earlier snapshot was mutated")
	}
}

func TestHistoryAndInitialFollowup(t *testing.T) {
	svc, srv := testutil.Service(t, testutil.Clients()...)
	srv.SetHistory("c1", []models.HistoryEntry{
		{Type: "response", Content: "hello?"},
		{Type: "naarad", Content: "Following up"},
	})

	entries, err := svc.History(context.Background(), "c1")
	if err != nil || len(entries) != 2 {
		t.Fatalf("history = %v, %v", entries, err)
	}
	e, ok, err := svc.InitialFollowup(context.Background(), "c1")
	if err != nil || !ok || e.Content != "Following up" {
		t.Errorf("initial followup = %+v, %v, %v", e, ok, err)
	}

	_, ok, err = svc.InitialFollowup(context.Background(), "c2")
	if err != nil || ok {
		t.Errorf("empty history: ok=%v err=%v", ok, err)
	}
}

func TestHistory_FailureSurfaces(t *testing.T) {
	svc, srv := testutil.Service(t, testutil.Clients()...)
	srv.Fail(http.MethodGet, "/api/clients/c1/history", http.StatusInternalServerError)
	if _, err := svc.History(context.Background(), "c1"); err == nil {
		t.Fatal("expected error")
	}
}

func TestHistory_CachedResultExpires(t *testing.T) {
	srv, api := testutil.Backend(t)
	srv.SetClients(testutil.Clients())
	svc := clientservice.NewService(api, clientservice.Options{HistoryTTL: 20 * time.Millisecond, Logger: testutil.Logger()})
	if err := svc.Load(context.Background()); err != nil {
		t.Fatal(err)
	}

	if _, err := svc.History(context.Background(), "c1"); err != nil {
		t.Fatal(err)
	}
	srv.SetHistory("c1", []models.HistoryEntry{{Type: "naarad", Content: "a"}, {Type: "naarad", Content: "b"}})
	time.Sleep(40 * time.Millisecond)

	entries, err := svc.History(context.Background(), "c1")
	if err != nil || len(entries) != 2 {
		t.Errorf("history after ttl = %v, %v; want the backend's 2 entries", entries, err)
	}
}

func TestReply(t *testing.T) {
	svc, srv := testutil.Service(t, testutil.Clients()...)

	if err := svc.Reply(context.Background(), "c1", "   "); !errors.Is(err, apperr.ErrInvalidInput) {
		t.Errorf("blank reply: %v", err)
	}
	if err := svc.Reply(context.Background(), "c1", " Thanks! "); err != nil {
		t.Fatal(err)
	}
	h := srv.History("c1")
	if len(h) != 1 || h[0].Content != "Thanks!" {
		t.Errorf("history = %+v", h)
	}

	srv.Fail(http.MethodPost, "/api/clients/c1/reply", http.StatusInternalServerError)
	if err := svc.Reply(context.Background(), "c1", "again"); err == nil {
		t.Error("reply failure must be reported")
	}
}

func TestLogResponse(t *testing.T) {
	svc, srv := testutil.Service(t, testutil.Clients()...)
	if err := svc.LogResponse(context.Background(), "c2", "Call me tomorrow"); err != nil {
		t.Fatal(err)
	}
	h := srv.History("c2")
	if len(h) != 1 || h[0].Type != "response" || h[0].Status != "responded" || h[0].Timestamp == "" {
		t.Errorf("logged entry = %+v", h)
	}
	c, _ := svc.Get("c2")
	if c.Status != models.StatusResponded {
		t.Errorf("status = %s, want responded", c.Status)
	}
	acts := svc.Activities()
	if len(acts) != 1 || acts[0].Type != models.ActivityClientResponded || acts[0].ClientName != "Beta" {
		t.Errorf("activities = %+v", acts)
	}
}

func TestHistory_ReflectsWritesImmediately(t *testing.T) {
	srv, api := testutil.Backend(t)
	srv.SetClients(testutil.Clients())
	svc := clientservice.NewService(api, clientservice.Options{HistoryTTL: 1 << 40, Logger: testutil.Logger()})
	if err := svc.Load(context.Background()); err != nil {
		t.Fatal(err)
	}

	if _, err := svc.History(context.Background(), "c1"); err != nil {
		t.Fatal(err)
	}
	if err := svc.Reply(context.Background(), "c1", "hi"); err != nil {
		t.Fatal(err)
	}
	entries, err := svc.History(context.Background(), "c1")
	if err != nil || len(entries) != 1 {
		t.Errorf("history after reply = %v, %v", entries, err)
	}
}
