package backend

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/starford/naarad/internal/models"
)

// HistoryFetcher loads a client's history from the backend.
type HistoryFetcher interface {
	ClientHistory(ctx context.Context, clientID string) ([]models.HistoryEntry, error)
}

type historyItem struct {
	entries []models.HistoryEntry
	fetched time.Time
}

// HistoryCache shares history fetches between views. Concurrent requests for
// the same client collapse into one call, and results are reused for ttl.
// Errors are never cached.
type HistoryCache struct {
	fetcher HistoryFetcher
	ttl     time.Duration
	now     func() time.Time

	group singleflight.Group

	mu       sync.Mutex
	items    map[string]historyItem
	gen      map[string]uint64
	inflight map[string]int
	epoch    uint64
}

// NewHistoryCache wraps fetcher. A ttl of zero only deduplicates in-flight calls.
func NewHistoryCache(fetcher HistoryFetcher, ttl time.Duration) *HistoryCache {
	return &HistoryCache{
		fetcher:  fetcher,
		ttl:      ttl,
		now:      time.Now,
		items:    make(map[string]historyItem),
		gen:      make(map[string]uint64),
		inflight: make(map[string]int),
	}
}

// Get returns the history for clientID. The returned slice must not be modified.
func (c *HistoryCache) Get(ctx context.Context, clientID string) ([]models.HistoryEntry, error) {
	c.mu.Lock()
	if it, ok := c.items[clientID]; ok && c.ttl > 0 && c.now().Sub(it.fetched) < c.ttl {
		c.mu.Unlock()
		return it.entries, nil
	}
	gen, epoch := c.gen[clientID], c.epoch
	c.mu.Unlock()

	// The shared call outlives any single caller; the http client timeout bounds it.
	ch := c.group.DoChan(clientID, func() (any, error) {
		c.mu.Lock()
		c.inflight[clientID]++
		c.mu.Unlock()

		entries, err := c.fetcher.ClientHistory(context.WithoutCancel(ctx), clientID)

		c.mu.Lock()
		defer c.mu.Unlock()
		c.inflight[clientID]--
		if c.inflight[clientID] <= 0 {
			delete(c.inflight, clientID)
		}
		if err != nil {
			return nil, err
		}
		if c.gen[clientID] == gen && c.epoch == epoch {
			c.items[clientID] = historyItem{entries: entries, fetched: c.now()}
		}
		return entries, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]models.HistoryEntry), nil
	}
}

// Invalidate drops the cached history for clientID. A fetch already in flight
// is allowed to finish but its result is not stored.
func (c *HistoryCache) Invalidate(clientID string) {
	c.mu.Lock()
	delete(c.items, clientID)
	c.gen[clientID]++
	c.mu.Unlock()
	c.group.Forget(clientID)
}

// InvalidateAll drops every cached history. Callers arriving afterwards do
// not join fetches that started before the call.
func (c *HistoryCache) InvalidateAll() {
	c.mu.Lock()
	c.epoch++
	c.items = make(map[string]historyItem)
	keys := make([]string, 0, len(c.inflight))
	for k := range c.inflight {
		keys = append(keys, k)
	}
	c.mu.Unlock()
	for _, k := range keys {
		c.group.Forget(k)
	}
}
