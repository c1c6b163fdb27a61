package notify

import (
	"sync"
	"time"
)

// firedCache remembers which same_day and time_to_start events were already
// dispatched so repeated polls inside a window stay silent. Only day_before
// has a persisted guard; these two tiers are suppressed caller-side.
type firedCache struct {
	mu         sync.Mutex
	now        func() time.Time
	maxEntries int
	entries    map[firedKey]time.Time
}

type firedKey struct {
	sessionID string
	kind      Kind
}

func newFiredCache(maxEntries int, now func() time.Time) *firedCache {
	if maxEntries <= 0 {
		maxEntries = 512
	}
	if now == nil {
		now = time.Now
	}
	return &firedCache{
		now:        now,
		maxEntries: maxEntries,
		entries:    make(map[firedKey]time.Time),
	}
}

// Fired reports whether an event of this kind for this session is still
// inside its suppression window.
func (c *firedCache) Fired(sessionID string, kind Kind) bool {
	if c == nil {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	expiresAt, ok := c.entries[firedKey{sessionID: sessionID, kind: kind}]
	if !ok {
		return false
	}
	if c.now().After(expiresAt) {
		delete(c.entries, firedKey{sessionID: sessionID, kind: kind})
		return false
	}
	return true
}

// Mark records a dispatched event. The entry expires when the window it
// suppresses has passed, so a session rescheduled into a new window fires
// again.
func (c *firedCache) Mark(sessionID string, kind Kind) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	c.cleanupLocked()
	if len(c.entries) >= c.maxEntries {
		c.evictOneLocked()
	}
	c.entries[firedKey{sessionID: sessionID, kind: kind}] = c.now().Add(suppressionTTL(kind))
}

func suppressionTTL(kind Kind) time.Duration {
	switch kind {
	case KindSameDay:
		return sameDayWindow
	case KindTimeToStart:
		return startWindow + startGracePeriod
	default:
		return 24 * time.Hour
	}
}

func (c *firedCache) cleanupLocked() {
	now := c.now()
	for key, expiresAt := range c.entries {
		if now.After(expiresAt) {
			delete(c.entries, key)
		}
	}
}

func (c *firedCache) evictOneLocked() {
	for key := range c.entries {
		delete(c.entries, key)
		return
	}
}
