package lexicon

import (
	"context"
	"sync"
	"time"

	"transcribeapi/internal/repository"

	"golang.org/x/sync/singleflight"
)

// Cache maps lexicon id to its compiled view, with TTL expiry and
// singleflight-protected reloads so concurrent readers on a miss collapse
// into a single DB compile. Cache unavailability is non-fatal: on any
// reload error the caller falls back to a direct compile that bypasses
// the cache entirely.
type Cache struct {
	repo  repository.LexiconRepository
	ttl   time.Duration
	group singleflight.Group

	mu      sync.RWMutex
	entries map[string]cacheEntry
}

type cacheEntry struct {
	compiled  *Compiled
	expiresAt time.Time
}

// NewCache constructs a Cache backed by repo with the given entry TTL.
func NewCache(repo repository.LexiconRepository, ttl time.Duration) *Cache {
	return &Cache{
		repo:    repo,
		ttl:     ttl,
		entries: make(map[string]cacheEntry),
	}
}

// Get returns the compiled lexicon for lexiconID, reloading from the
// database on a miss or expiry. Concurrent misses for the same lexicon id
// share one reload via singleflight.
func (c *Cache) Get(ctx context.Context, lexiconID string) (*Compiled, error) {
	c.mu.RLock()
	entry, ok := c.entries[lexiconID]
	c.mu.RUnlock()
	if ok && time.Now().Before(entry.expiresAt) {
		return entry.compiled, nil
	}

	result, err, _ := c.group.Do(lexiconID, func() (interface{}, error) {
		c.mu.RLock()
		entry, ok := c.entries[lexiconID]
		c.mu.RUnlock()
		if ok && time.Now().Before(entry.expiresAt) {
			return entry.compiled, nil
		}

		compiled, err := c.reload(ctx, lexiconID)
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		c.entries[lexiconID] = cacheEntry{compiled: compiled, expiresAt: time.Now().Add(c.ttl)}
		c.mu.Unlock()

		return compiled, nil
	})
	if err != nil {
		// Cache is unavailable or the DB read failed transiently; fall
		// back to a direct, uncached compile rather than surfacing the
		// failure to pipeline callers.
		return c.reload(ctx, lexiconID)
	}
	return result.(*Compiled), nil
}

func (c *Cache) reload(ctx context.Context, lexiconID string) (*Compiled, error) {
	active, err := c.repo.ListActiveByLexicon(ctx, lexiconID)
	if err != nil {
		return nil, err
	}
	return Compile(lexiconID, active), nil
}

// Invalidate deletes the cached entry for lexiconID. It must be called
// before any successful mutation returns, so that the next Get always
// observes the mutation rather than racing a concurrent reload that
// started before the mutation committed.
func (c *Cache) Invalidate(lexiconID string) {
	c.mu.Lock()
	delete(c.entries, lexiconID)
	c.mu.Unlock()
}
