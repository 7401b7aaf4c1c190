package clientservice

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/starford/naarad/internal/models"
)

// DefaultActivityCapacity is used when no capacity is configured.
const DefaultActivityCapacity = 200

// ActivityLog keeps the most recent activities in a fixed-size ring.
type ActivityLog struct {
	mu    sync.Mutex
	buf   []models.Activity
	next  int
	full  bool
	now   func() time.Time
	newID func() string
}

// NewActivityLog returns a log holding at most capacity entries.
func NewActivityLog(capacity int) *ActivityLog {
	if capacity <= 0 {
		capacity = DefaultActivityCapacity
	}
	return &ActivityLog{
		buf:   make([]models.Activity, capacity),
		now:   time.Now,
		newID: uuid.NewString,
	}
}

// Record stamps a and appends it, evicting the oldest entry when full.
func (l *ActivityLog) Record(a models.Activity) models.Activity {
	l.mu.Lock()
	defer l.mu.Unlock()
	if a.ID == "" {
		a.ID = l.newID()
	}
	if a.Timestamp.IsZero() {
		a.Timestamp = l.now()
	}
	l.buf[l.next] = a
	l.next = (l.next + 1) % len(l.buf)
	if l.next == 0 {
		l.full = true
	}
	return a
}

// List returns the stored activities, newest first.
func (l *ActivityLog) List() []models.Activity {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := l.next
	if l.full {
		n = len(l.buf)
	}
	out := make([]models.Activity, 0, n)
	for i := 1; i <= n; i++ {
		out = append(out, l.buf[(l.next-i+len(l.buf))%len(l.buf)])
	}
	return out
}
