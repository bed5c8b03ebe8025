package projection

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/maydaypets/platform/internal/clock"
)

// Store is the interface for snapshot caching (Redis-backed in a larger
// deployment).
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// InMemoryStore is the in-memory snapshot cache. Expiry is judged
// against the injected clock so TTL behavior is testable.
type InMemoryStore struct {
	mu    sync.Mutex
	data  map[string]entry
	clock clock.Clock
}

type entry struct {
	value     []byte
	expiresAt time.Time
}

// NewInMemoryStore creates an in-memory snapshot store.
func NewInMemoryStore(clk clock.Clock) *InMemoryStore {
	return &InMemoryStore{data: make(map[string]entry), clock: clk}
}

func (s *InMemoryStore) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.data[key]
	if !ok {
		return nil, fmt.Errorf("key not found: %s", key)
	}
	if !e.expiresAt.IsZero() && s.clock.Now().After(e.expiresAt) {
		delete(s.data, key)
		return nil, fmt.Errorf("key expired: %s", key)
	}
	return e.value, nil
}

func (s *InMemoryStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var exp time.Time
	if ttl > 0 {
		exp = s.clock.Now().Add(ttl)
	}
	s.data[key] = entry{value: value, expiresAt: exp}
	return nil
}

func (s *InMemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
	return nil
}

const snapshotTTL = 5 * time.Minute

func snapshotKey(subjectID string) string {
	return fmt.Sprintf("projection:alert:%s", subjectID)
}

// CacheSnapshot stores a subject's derived projection.
func CacheSnapshot(ctx context.Context, store Store, subjectID string, p Projection) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal projection: %w", err)
	}
	return store.Set(ctx, snapshotKey(subjectID), data, snapshotTTL)
}

// CachedSnapshot retrieves a subject's cached projection, if present
// and fresh.
func CachedSnapshot(ctx context.Context, store Store, subjectID string) (*Projection, error) {
	data, err := store.Get(ctx, snapshotKey(subjectID))
	if err != nil {
		return nil, err
	}
	var p Projection
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("unmarshal projection: %w", err)
	}
	return &p, nil
}

// InvalidateSnapshot drops a subject's cached projection. Called on
// every append so reads never see a stale snapshot.
func InvalidateSnapshot(ctx context.Context, store Store, subjectID string) error {
	return store.Delete(ctx, snapshotKey(subjectID))
}
