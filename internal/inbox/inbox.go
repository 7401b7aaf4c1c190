// Package inbox imports client CSV files dropped into a watched folder.
//
// Files placed directly in the inbox directory are parsed and uploaded one at
// a time. Imported files move to processed/, rejected ones to failed/ next to
// a short error report. Content already imported by this process is not sent
// again.
package inbox

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/naarad/internal/backend"
	"github.com/starford/naarad/internal/checksum"
	"github.com/starford/naarad/internal/csvimport"
	"github.com/starford/naarad/internal/models"
	"github.com/starford/naarad/internal/storage"
)

const (
	ProcessedDir = "processed"
	FailedDir    = "failed"

	// DefaultDebounce is how long a file must stay quiet before it is imported.
	DefaultDebounce = 500 * time.Millisecond

	csvExt = ".csv"
)

// Uploader replaces the client list. clientservice.Service satisfies it.
type Uploader interface {
	Upload(ctx context.Context, clients []models.Client) (*backend.UploadResult, error)
}

// Outcome is what happened to one inbox file.
type Outcome string

const (
	Imported  Outcome = "imported"
	Duplicate Outcome = "duplicate"
	Rejected  Outcome = "rejected"
)

// Result reports the handling of one file.
type Result struct {
	File    string
	Outcome Outcome
	Count   int
	Err     error
}

// Inbox watches a directory for CSV uploads.
type Inbox struct {
	store    storage.Provider
	root     string
	up       Uploader
	logger   *slog.Logger
	debounce time.Duration
	now      func() time.Time

	mu   sync.Mutex
	seen map[string]struct{}
}

// New creates the inbox directory if needed and returns an Inbox over it.
// debounce <= 0 selects DefaultDebounce.
func New(dir string, up Uploader, debounce time.Duration, logger *slog.Logger) (*Inbox, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("inbox: create dir: %w", err)
	}
	store, err := storage.NewFS(dir)
	if err != nil {
		return nil, fmt.Errorf("inbox: %w", err)
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Inbox{
		store:    store,
		root:     store.Root(),
		up:       up,
		logger:   logger,
		debounce: debounce,
		now:      time.Now,
		seen:     make(map[string]struct{}),
	}, nil
}

// Dir returns the absolute inbox directory.
func (in *Inbox) Dir() string { return in.root }

// Scan imports every CSV file currently in the inbox, in name order.
func (in *Inbox) Scan(ctx context.Context) ([]Result, error) {
	files, err := in.store.List("", csvExt)
	if err != nil {
		return nil, fmt.Errorf("inbox: scan: %w", err)
	}
	out := make([]Result, 0, len(files))
	for _, f := range files {
		if ctx.Err() != nil {
			return out, ctx.Err()
		}
		out = append(out, in.Process(ctx, f.Path))
	}
	return out, nil
}

// Process imports a single file, given relative to the inbox, and moves it
// out of the inbox.
func (in *Inbox) Process(ctx context.Context, name string) Result {
	res := Result{File: name}
	data, err := in.store.Read(name)
	if err != nil {
		res.Outcome, res.Err = Rejected, err
		return res
	}

	sum := checksum.Sum(data)
	in.mu.Lock()
	_, dup := in.seen[sum]
	in.mu.Unlock()
	if dup {
		res.Outcome = Duplicate
		in.logger.Info("inbox: duplicate skipped", slog.String("file", name), slog.String("checksum", sum))
		in.archive(name, ProcessedDir)
		return res
	}

	clients, err := csvimport.Parse(bytes.NewReader(data))
	if err == nil {
		var up *backend.UploadResult
		up, err = in.up.Upload(ctx, clients)
		if err == nil {
			res.Count = up.Count
		}
	}
	if err != nil {
		res.Outcome, res.Err = Rejected, err
		in.logger.Warn("inbox: import failed", slog.String("file", name), slog.String("error", err.Error()))
		dest := in.archive(name, FailedDir)
		if dest != "" {
			if werr := in.store.Write(dest+".error.txt", []byte(err.Error()+"\n")); werr != nil {
				in.logger.Warn("inbox: write error report", slog.String("file", dest), slog.String("error", werr.Error()))
			}
		}
		return res
	}

	in.mu.Lock()
	in.seen[sum] = struct{}{}
	in.mu.Unlock()
	res.Outcome = Imported
	in.logger.Info("inbox: imported", slog.String("file", name), slog.Int("count", res.Count))
	in.archive(name, ProcessedDir)
	return res
}

// archive moves name into dir and returns its new relative path, or "" if
// the move failed.
func (in *Inbox) archive(name, dir string) string {
	base := filepath.Base(name)
	dest := filepath.Join(dir, base)
	err := in.store.Move(name, dest)
	if errors.Is(err, os.ErrExist) {
		dest = filepath.Join(dir, in.now().Format("20060102-150405.000")+"-"+base)
		err = in.store.Move(name, dest)
	}
	if err != nil {
		in.logger.Warn("inbox: archive failed", slog.String("file", name), slog.String("error", err.Error()))
		return ""
	}
	return dest
}

// Run imports what is already in the inbox and then watches it until ctx is
// cancelled. Files are imported once no event has touched them for the
// debounce interval, so partially written files are not read.
func (in *Inbox) Run(ctx context.Context) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := w.Add(in.root); err != nil {
		return fmt.Errorf("inbox: watch %s: %w", in.root, err)
	}
	in.logger.Info("inbox: started", slog.String("dir", in.root))

	if _, err := in.Scan(ctx); err != nil && ctx.Err() == nil {
		in.logger.Warn("inbox: initial scan failed", slog.String("error", err.Error()))
	}

	pending := make(map[string]struct{})
	var timer *time.Timer
	var fire <-chan time.Time

	schedule := func() {
		if timer == nil {
			timer = time.NewTimer(in.debounce)
			fire = timer.C
		} else {
			timer.Reset(in.debounce)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			in.logger.Info("inbox: stopped")
			return nil

		case <-fire:
			for name := range pending {
				delete(pending, name)
				if _, statErr := os.Stat(filepath.Join(in.root, name)); statErr != nil {
					continue
				}
				in.Process(ctx, name)
			}

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			name, ok := in.candidate(ev.Name)
			if !ok {
				continue
			}
			pending[name] = struct{}{}
			schedule()

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			in.logger.Error("inbox: watcher error", slog.String("error", watchErr.Error()))
		}
	}
}

// candidate reports whether an event path names a CSV file directly in the
// inbox and returns it relative to the root.
func (in *Inbox) candidate(abs string) (string, bool) {
	if filepath.Dir(abs) != in.root {
		return "", false
	}
	base := filepath.Base(abs)
	if strings.HasPrefix(base, ".") || !strings.EqualFold(filepath.Ext(base), csvExt) {
		return "", false
	}
	return base, true
}
