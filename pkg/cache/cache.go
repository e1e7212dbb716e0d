// Package cache implements the per-user dashboard cache: a short-TTL
// memoization layer in front of expensive aggregate queries. Entries are
// keyed by (user id, logical name) and are never returned across user
// boundaries. Two implementations exist: an in-memory LRU-bounded store and a
// Redis-backed store for multi-instance deployments. The memory store is
// process-local; in a multi-instance deployment its staleness across
// instances is a known, accepted limitation.
package cache

import (
	"context"
	"time"
)

// Logical entry names. The key space is deliberately small and fixed.
const (
	KeyMetrics   = "metrics"
	KeyPlants    = "plants"
	KeyDashboard = "full-dashboard"
)

// DefaultTTL is the freshness window measured from write time.
const DefaultTTL = 5 * time.Minute

// Cache is the dashboard cache contract. Payloads are opaque serialized
// aggregates; writes are last-writer-wins.
type Cache interface {
	// Get returns the payload for (userID, name) if present and fresh.
	Get(ctx context.Context, userID int64, name string) ([]byte, bool, error)

	// Set stores the payload, overwriting any existing entry.
	Set(ctx context.Context, userID int64, name string, payload []byte) error

	// InvalidateUser removes every entry belonging to the user.
	InvalidateUser(ctx context.Context, userID int64) error

	// InvalidateAll clears the entire store.
	InvalidateAll(ctx context.Context) error

	// Stats reports hit/miss counters and the current entry count.
	Stats(ctx context.Context) (Stats, error)
}

// Stats describes cache effectiveness.
type Stats struct {
	Hits    int64 `json:"hits"`
	Misses  int64 `json:"misses"`
	Entries int64 `json:"entries"`
}
