package guard

import (
	"testing"
	"time"

	"github.com/maydaypets/platform/internal/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2026, 2, 14, 9, 0, 0, 0, time.UTC)

func TestIdempotencyStore_ReturnsOriginalResultOnRetry(t *testing.T) {
	clk := clock.NewManual(t0)
	store := NewIdempotencyStore(DefaultSyncTTL, clk)

	store.Set(SyncRecord{Key: "act-1", Status: StatusSynced, EntityID: "evt-9"})

	rec, ok := store.Get("act-1")
	require.True(t, ok)
	assert.Equal(t, StatusSynced, rec.Status)
	assert.Equal(t, "evt-9", rec.EntityID)
	assert.Equal(t, t0, rec.CreatedAt)
}

func TestIdempotencyStore_TTLBoundary(t *testing.T) {
	clk := clock.NewManual(t0)
	store := NewIdempotencyStore(DefaultSyncTTL, clk)
	store.Set(SyncRecord{Key: "act-1", Status: StatusSynced, EntityID: "evt-9"})

	// 23 hours later the original record still answers.
	clk.Advance(23 * time.Hour)
	rec, ok := store.Get("act-1")
	require.True(t, ok)
	assert.Equal(t, "evt-9", rec.EntityID)

	// 25 hours after creation it is gone, evicted by the read.
	clk.Advance(2 * time.Hour)
	_, ok = store.Get("act-1")
	assert.False(t, ok)

	// And stays gone even if time rolls on.
	_, ok = store.Get("act-1")
	assert.False(t, ok)
}

func TestIdempotencyStore_CleanupExpired(t *testing.T) {
	clk := clock.NewManual(t0)
	store := NewIdempotencyStore(time.Hour, clk)

	store.Set(SyncRecord{Key: "old", Status: StatusFailed, Err: "boom"})
	clk.Advance(50 * time.Minute)
	store.Set(SyncRecord{Key: "fresh", Status: StatusSynced})
	clk.Advance(30 * time.Minute)

	removed := store.CleanupExpired()
	assert.Equal(t, 1, removed)

	_, ok := store.Get("old")
	assert.False(t, ok)
	_, ok = store.Get("fresh")
	assert.True(t, ok)
}

func TestRateLimiter_AllowsWithinWindow(t *testing.T) {
	clk := clock.NewManual(t0)
	rl := NewRateLimiter(3, time.Minute, clk)

	for i := 0; i < 3; i++ {
		ok, _ := rl.Allow("sms::local")
		assert.True(t, ok)
	}
}

func TestRateLimiter_TripsAndReportsBlockedUntil(t *testing.T) {
	clk := clock.NewManual(t0)
	rl := NewRateLimiter(2, time.Minute, clk)

	_, _ = rl.Allow("sms::local")
	clk.Advance(10 * time.Second)
	_, _ = rl.Allow("sms::local")

	ok, until := rl.Allow("sms::local")
	require.False(t, ok)
	// Unblocks when the first hit (at t0) slides out of the window.
	assert.True(t, until.Equal(t0.Add(time.Minute)))
}

func TestRateLimiter_WindowSlides(t *testing.T) {
	clk := clock.NewManual(t0)
	rl := NewRateLimiter(2, time.Minute, clk)

	_, _ = rl.Allow("k")
	_, _ = rl.Allow("k")
	ok, _ := rl.Allow("k")
	require.False(t, ok)

	clk.Advance(61 * time.Second)
	ok, _ = rl.Allow("k")
	assert.True(t, ok)
}

func TestRateLimiter_KeysIndependent(t *testing.T) {
	clk := clock.NewManual(t0)
	rl := NewRateLimiter(1, time.Minute, clk)

	_, _ = rl.Allow("sms::local")
	ok, _ := rl.Allow("sms::regional")
	assert.True(t, ok)
}

func TestCircuitBreaker_OpensAfterThreshold(t *testing.T) {
	clk := clock.NewManual(t0)
	cb := NewCircuitBreaker(3, time.Minute, clk)

	for i := 0; i < 3; i++ {
		require.True(t, cb.Allow())
		cb.RecordFailure()
	}

	assert.Equal(t, CircuitOpen, cb.State())
	assert.False(t, cb.Allow())
}

func TestCircuitBreaker_HalfOpenProbeThenCloses(t *testing.T) {
	clk := clock.NewManual(t0)
	cb := NewCircuitBreaker(1, time.Minute, clk)

	cb.RecordFailure()
	require.False(t, cb.Allow())

	clk.Advance(2 * time.Minute)
	require.True(t, cb.Allow(), "cooldown elapsed, one probe allowed")
	assert.False(t, cb.Allow(), "only one probe in flight")

	cb.RecordSuccess()
	assert.Equal(t, CircuitClosed, cb.State())
	assert.True(t, cb.Allow())
}

func TestCircuitBreaker_FailedProbeReopens(t *testing.T) {
	clk := clock.NewManual(t0)
	cb := NewCircuitBreaker(1, time.Minute, clk)

	cb.RecordFailure()
	clk.Advance(2 * time.Minute)
	require.True(t, cb.Allow())
	cb.RecordFailure()

	assert.Equal(t, CircuitOpen, cb.State())
	assert.False(t, cb.Allow())
}
