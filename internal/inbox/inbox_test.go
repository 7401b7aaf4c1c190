package inbox

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/starford/naarad/internal/apperr"
	"github.com/starford/naarad/internal/backend"
	"github.com/starford/naarad/internal/models"
)

type stubUploader struct {
	mu      sync.Mutex
	batches [][]models.Client
	err     error
}

func (s *stubUploader) Upload(_ context.Context, clients []models.Client) (*backend.UploadResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	s.batches = append(s.batches, clients)
	return &backend.UploadResult{Status: "ok", Count: len(clients)}, nil
}

func (s *stubUploader) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.batches)
}

func testInbox(t *testing.T) (*Inbox, *stubUploader, string) {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "inbox")
	up := &stubUploader{}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	in, err := New(dir, up, 50*time.Millisecond, logger)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return in, up, in.Dir()
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// eventually polls fn every tick until it returns true or timeout elapses.
func eventually(t *testing.T, timeout, tick time.Duration, fn func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if fn() {
			return
		}
		time.Sleep(tick)
	}
	t.Error(msg)
}

func TestScan_ImportsAndArchives(t *testing.T) {
	in, up, dir := testInbox(t)
	writeFile(t, filepath.Join(dir, "a.csv"), "id,name\nc1,Acme\nc2,Beta\n")
	writeFile(t, filepath.Join(dir, "notes.txt"), "ignored")

	results, err := in.Scan(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 || results[0].Outcome != Imported || results[0].Count != 2 {
		t.Fatalf("results = %+v", results)
	}
	if up.count() != 1 || len(up.batches[0]) != 2 {
		t.Errorf("batches = %+v", up.batches)
	}
	if exists(filepath.Join(dir, "a.csv")) || !exists(filepath.Join(dir, ProcessedDir, "a.csv")) {
		t.Error("file not moved to processed")
	}
	if !exists(filepath.Join(dir, "notes.txt")) {
		t.Error("non-csv file should be left alone")
	}
}

func TestProcess_InvalidFileIsRejected(t *testing.T) {
	in, up, dir := testInbox(t)
	writeFile(t, filepath.Join(dir, "bad.csv"), "name,dueDate\nA,not-a-date\n")

	res := in.Process(context.Background(), "bad.csv")
	if res.Outcome != Rejected || !errors.Is(res.Err, apperr.ErrInvalidCSV) {
		t.Fatalf("result = %+v", res)
	}
	if up.count() != 0 {
		t.Error("invalid file must not be uploaded")
	}
	if !exists(filepath.Join(dir, FailedDir, "bad.csv")) {
		t.Error("file not moved to failed")
	}
	report, err := os.ReadFile(filepath.Join(dir, FailedDir, "bad.csv.error.txt"))
	if err != nil || !strings.Contains(string(report), "line 2") {
		t.Errorf("report = %q, %v", report, err)
	}
}

func TestProcess_UploadFailureIsRejected(t *testing.T) {
	in, up, dir := testInbox(t)
	up.err = apperr.ErrUploadFailed
	writeFile(t, filepath.Join(dir, "a.csv"), "name\nA\n")

	if res := in.Process(context.Background(), "a.csv"); res.Outcome != Rejected {
		t.Fatalf("result = %+v", res)
	}
	if !exists(filepath.Join(dir, FailedDir, "a.csv")) {
		t.Error("file not moved to failed")
	}

	// A failed upload is not remembered, so the same content can be retried.
	up.err = nil
	writeFile(t, filepath.Join(dir, "a.csv"), "name\nA\n")
	if res := in.Process(context.Background(), "a.csv"); res.Outcome != Imported {
		t.Errorf("retry = %+v", res)
	}
}

func TestProcess_DuplicateContentSkipped(t *testing.T) {
	in, up, dir := testInbox(t)
	writeFile(t, filepath.Join(dir, "one.csv"), "id,name\nc1,Acme\n")
	writeFile(t, filepath.Join(dir, "two.csv"), "id,name\nc1,Acme\n")

	results, err := in.Scan(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if results[0].Outcome != Imported || results[1].Outcome != Duplicate {
		t.Errorf("results = %+v", results)
	}
	if up.count() != 1 {
		t.Errorf("uploads = %d, want 1", up.count())
	}
	if !exists(filepath.Join(dir, ProcessedDir, "two.csv")) {
		t.Error("duplicate should still leave the inbox")
	}
}

func TestProcess_NameCollisionInArchive(t *testing.T) {
	in, _, dir := testInbox(t)
	in.now = func() time.Time { return time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC) }

	writeFile(t, filepath.Join(dir, "a.csv"), "name\nFirst\n")
	in.Process(context.Background(), "a.csv")
	writeFile(t, filepath.Join(dir, "a.csv"), "name\nSecond\n")
	in.Process(context.Background(), "a.csv")

	if !exists(filepath.Join(dir, ProcessedDir, "a.csv")) ||
		!exists(filepath.Join(dir, ProcessedDir, "20240501-093000.000-a.csv")) {
		t.Error("second file should be archived under a timestamped name")
	}
}

func TestProcess_MissingFile(t *testing.T) {
	in, _, _ := testInbox(t)
	if res := in.Process(context.Background(), "ghost.csv"); res.Outcome != Rejected || res.Err == nil {
		t.Errorf("result = %+v", res)
	}
}

func TestRun_ImportsExistingAndNewFiles(t *testing.T) {
	in, up, dir := testInbox(t)
	writeFile(t, filepath.Join(dir, "early.csv"), "name\nEarly\n")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- in.Run(ctx) }()

	eventually(t, 5*time.Second, 20*time.Millisecond, func() bool {
		return up.count() == 1
	}, "existing file not imported on start")

	writeFile(t, filepath.Join(dir, "late.csv"), "name\nLate\nLater\n")
	writeFile(t, filepath.Join(dir, "skip.txt"), "x")

	eventually(t, 5*time.Second, 20*time.Millisecond, func() bool {
		return exists(filepath.Join(dir, ProcessedDir, "late.csv"))
	}, "new file not imported by watcher")

	if up.count() != 2 {
		t.Errorf("uploads = %d, want 2", up.count())
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Error("Run did not stop after cancel")
	}
}

func TestCandidate(t *testing.T) {
	in, _, dir := testInbox(t)
	cases := map[string]bool{
		filepath.Join(dir, "a.csv"):               true,
		filepath.Join(dir, "A.CSV"):               true,
		filepath.Join(dir, ".a.csv"):              false,
		filepath.Join(dir, "a.txt"):               false,
		filepath.Join(dir, ProcessedDir, "a.csv"): false,
	}
	for path, want := range cases {
		if _, got := in.candidate(path); got != want {
			t.Errorf("candidate(%s) = %v, want %v", path, got, want)
		}
	}
}
