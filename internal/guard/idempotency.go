package guard

import (
	"sync"
	"time"

	"github.com/maydaypets/platform/internal/clock"
)

// SyncStatus is the stored outcome of a previously processed action.
type SyncStatus string

const (
	StatusSynced   SyncStatus = "SYNCED"
	StatusConflict SyncStatus = "CONFLICT"
	StatusFailed   SyncStatus = "FAILED"
)

// SyncRecord is one remembered sync result, keyed by idempotency key.
type SyncRecord struct {
	Key       string     `json:"key"`
	Status    SyncStatus `json:"status"`
	EntityID  string     `json:"entity_id,omitempty"`
	Err       string     `json:"error,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// DefaultSyncTTL is how long a stored result keeps answering retries.
// Past it, a retried key is legitimately reprocessed as new work.
const DefaultSyncTTL = 24 * time.Hour

// IdempotencyStore remembers sync results so a retried action returns
// its original outcome instead of recomputing. The map is mutex-guarded
// so concurrent set/get on the same key cannot race.
type IdempotencyStore struct {
	mu      sync.Mutex
	records map[string]SyncRecord
	ttl     time.Duration
	clock   clock.Clock
}

// NewIdempotencyStore creates a store with the given TTL; ttl <= 0
// falls back to DefaultSyncTTL.
func NewIdempotencyStore(ttl time.Duration, clk clock.Clock) *IdempotencyStore {
	if ttl <= 0 {
		ttl = DefaultSyncTTL
	}
	return &IdempotencyStore{
		records: make(map[string]SyncRecord),
		ttl:     ttl,
		clock:   clk,
	}
}

// Set upserts a record under its key. A zero CreatedAt is stamped with
// the current clock reading.
func (s *IdempotencyStore) Set(rec SyncRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = s.clock.Now()
	}
	s.records[rec.Key] = rec
}

// Get returns the stored record if present and younger than the TTL.
// An expired entry is evicted as a side effect of the read; expiry is
// not an error, just "not found".
func (s *IdempotencyStore) Get(key string) (SyncRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[key]
	if !ok {
		return SyncRecord{}, false
	}
	if s.clock.Now().Sub(rec.CreatedAt) > s.ttl {
		delete(s.records, key)
		return SyncRecord{}, false
	}
	return rec, true
}

// CleanupExpired proactively evicts all entries older than the TTL and
// returns how many were removed. Intended to run periodically.
func (s *IdempotencyStore) CleanupExpired() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.clock.Now()
	removed := 0
	for key, rec := range s.records {
		if now.Sub(rec.CreatedAt) > s.ttl {
			delete(s.records, key)
			removed++
		}
	}
	return removed
}
