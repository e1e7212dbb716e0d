package cache

import (
	"context"
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

type memoryKey struct {
	userID int64
	name   string
}

type memoryEntry struct {
	payload   []byte
	writtenAt time.Time
}

// Memory is the in-memory cache implementation. Entry count is bounded by an
// LRU; freshness is checked lazily on read against the write timestamp, so no
// background sweep is required (Sweep only bounds memory between reads and
// does not change observable behavior).
type Memory struct {
	entries *lru.Cache[memoryKey, memoryEntry]
	ttl     time.Duration
	now     func() time.Time

	hits   atomic.Int64
	misses atomic.Int64
}

// NewMemory creates a memory cache holding at most maxEntries entries, each
// fresh for ttl after its write.
func NewMemory(maxEntries int, ttl time.Duration) (*Memory, error) {
	if maxEntries < 1 {
		maxEntries = 1
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	entries, err := lru.New[memoryKey, memoryEntry](maxEntries)
	if err != nil {
		return nil, err
	}
	return &Memory{
		entries: entries,
		ttl:     ttl,
		now:     time.Now,
	}, nil
}

// Get implements Cache. A stale entry is removed and reported absent.
func (c *Memory) Get(_ context.Context, userID int64, name string) ([]byte, bool, error) {
	key := memoryKey{userID: userID, name: name}
	entry, ok := c.entries.Get(key)
	if !ok {
		c.misses.Add(1)
		return nil, false, nil
	}
	if c.now().Sub(entry.writtenAt) >= c.ttl {
		c.entries.Remove(key)
		c.misses.Add(1)
		return nil, false, nil
	}
	c.hits.Add(1)
	return entry.payload, true, nil
}

// Set implements Cache. Last writer wins.
func (c *Memory) Set(_ context.Context, userID int64, name string, payload []byte) error {
	c.entries.Add(memoryKey{userID: userID, name: name}, memoryEntry{
		payload:   payload,
		writtenAt: c.now(),
	})
	return nil
}

// InvalidateUser implements Cache.
func (c *Memory) InvalidateUser(_ context.Context, userID int64) error {
	for _, key := range c.entries.Keys() {
		if key.userID == userID {
			c.entries.Remove(key)
		}
	}
	return nil
}

// InvalidateAll implements Cache.
func (c *Memory) InvalidateAll(_ context.Context) error {
	c.entries.Purge()
	return nil
}

// Stats implements Cache.
func (c *Memory) Stats(_ context.Context) (Stats, error) {
	return Stats{
		Hits:    c.hits.Load(),
		Misses:  c.misses.Load(),
		Entries: int64(c.entries.Len()),
	}, nil
}

// Sweep evicts every stale entry. Called periodically to bound memory between
// reads; reads never observe swept entries differently from lazily expired
// ones.
func (c *Memory) Sweep() int {
	removed := 0
	now := c.now()
	for _, key := range c.entries.Keys() {
		entry, ok := c.entries.Peek(key)
		if !ok {
			continue
		}
		if now.Sub(entry.writtenAt) >= c.ttl {
			c.entries.Remove(key)
			removed++
		}
	}
	return removed
}
