package alert

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/maydaypets/platform/internal/clock"
	"github.com/maydaypets/platform/internal/domain"
	"github.com/maydaypets/platform/internal/gate"
	"github.com/maydaypets/platform/internal/guard"
	"github.com/maydaypets/platform/internal/projection"
	"github.com/maydaypets/platform/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2026, 2, 14, 9, 0, 0, 0, time.UTC)

type fixture struct {
	svc   *Service
	queue *SyncQueue
	log   *repository.MemoryEventLog
	clk   *clock.Manual
}

func newFixture(t *testing.T, evaluateLimit int) *fixture {
	t.Helper()
	clk := clock.NewManual(t0)
	log := repository.NewMemoryEventLog(clk)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := NewService(
		log,
		projection.NewInMemoryStore(clk),
		guard.NewRateLimiter(evaluateLimit, time.Hour, clk),
		gate.NewEvaluator(gate.DefaultTierPolicy(), clk),
		clk,
		logger,
	)
	store := guard.NewIdempotencyStore(guard.DefaultSyncTTL, clk)
	return &fixture{
		svc:   svc,
		queue: NewSyncQueue(svc, store, logger),
		log:   log,
		clk:   clk,
	}
}

func TestService_AppendAndProjection(t *testing.T) {
	f := newFixture(t, 100)
	ctx := context.Background()
	subject := uuid.New()

	_, err := f.svc.Append(ctx, subject, domain.ConsentSet{
		Channel: domain.ChannelSMS, Segment: domain.SegmentLocal, Granted: true,
	}, nil)
	require.NoError(t, err)

	proj, err := f.svc.Projection(ctx, subject)
	require.NoError(t, err)
	assert.True(t, proj.Consent["sms::local"])
}

func TestService_ProjectionCacheInvalidatedByAppend(t *testing.T) {
	f := newFixture(t, 100)
	ctx := context.Background()
	subject := uuid.New()

	// Prime the cache with the empty-log projection.
	proj, err := f.svc.Projection(ctx, subject)
	require.NoError(t, err)
	assert.False(t, proj.FraudSignal)

	_, err = f.svc.Append(ctx, subject, domain.FraudSignal{}, nil)
	require.NoError(t, err)

	proj, err = f.svc.Projection(ctx, subject)
	require.NoError(t, err)
	assert.True(t, proj.FraudSignal, "append must not serve a stale snapshot")
}

func TestService_EvaluateLeavesAuditMarker(t *testing.T) {
	f := newFixture(t, 100)
	ctx := context.Background()
	subject := uuid.New()

	_, err := f.svc.Append(ctx, subject, domain.ConsentSet{
		Channel: domain.ChannelSMS, Segment: domain.SegmentLocal, Granted: true,
	}, nil)
	require.NoError(t, err)

	decision, err := f.svc.Evaluate(ctx, subject, gate.SendRequest{
		Channel: domain.ChannelSMS, Segment: domain.SegmentLocal, Kind: domain.SendStandard,
	})
	require.NoError(t, err)
	assert.True(t, decision.Allowed)

	records, err := f.svc.Events(ctx, subject)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, domain.EventEvaluateRequested, records[1].EventType)
}

func TestService_TrippedLimiterRecordsRateLimitFact(t *testing.T) {
	f := newFixture(t, 2)
	ctx := context.Background()
	subject := uuid.New()

	_, err := f.svc.Append(ctx, subject, domain.ConsentSet{
		Channel: domain.ChannelSMS, Segment: domain.SegmentLocal, Granted: true,
	}, nil)
	require.NoError(t, err)

	req := gate.SendRequest{Channel: domain.ChannelSMS, Segment: domain.SegmentLocal, Kind: domain.SendStandard}

	for i := 0; i < 2; i++ {
		decision, err := f.svc.Evaluate(ctx, subject, req)
		require.NoError(t, err)
		assert.True(t, decision.Allowed)
	}

	// Third evaluation trips the window: the block is recorded as a
	// log fact and the decision comes back RATE_LIMITED.
	decision, err := f.svc.Evaluate(ctx, subject, req)
	require.NoError(t, err)
	assert.False(t, decision.Allowed)
	assert.Equal(t, gate.ReasonRateLimited, decision.Reason)
	require.NotNil(t, decision.RetryAfter)
	assert.True(t, decision.RetryAfter.Equal(t0.Add(time.Hour)))

	records, err := f.svc.Events(ctx, subject)
	require.NoError(t, err)
	var types []domain.EventType
	for _, rec := range records {
		types = append(types, rec.EventType)
	}
	assert.Contains(t, types, domain.EventRateLimitExceeded)

	// Once the window expires the same send is allowed again.
	f.clk.Advance(61 * time.Minute)
	decision, err = f.svc.Evaluate(ctx, subject, req)
	require.NoError(t, err)
	assert.True(t, decision.Allowed)
}

func TestService_AppendRawRejectsUnknownKind(t *testing.T) {
	f := newFixture(t, 100)
	_, err := f.svc.AppendRaw(context.Background(), uuid.New(), "pet.renamed", json.RawMessage(`{}`), nil)
	require.Error(t, err)

	var appErr *domain.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "VALIDATION_ERROR", appErr.Code)
}

func TestSyncQueue_ProcessesInOrderAndDeduplicates(t *testing.T) {
	f := newFixture(t, 100)
	ctx := context.Background()
	subject := uuid.New()

	batch := []SyncAction{
		{
			IdempotencyKey: "a-1",
			SubjectID:      subject,
			EventType:      domain.EventConsentSet,
			Payload:        json.RawMessage(`{"channel":"sms","segment":"local","granted":true}`),
		},
		{
			IdempotencyKey: "a-2",
			SubjectID:      subject,
			EventType:      domain.EventUserPauseSet,
			Payload:        json.RawMessage(`{"paused":true}`),
		},
	}

	outcomes := f.queue.Process(ctx, batch)
	require.Len(t, outcomes, 2)
	assert.Equal(t, guard.StatusSynced, outcomes[0].Status)
	assert.Equal(t, guard.StatusSynced, outcomes[1].Status)
	assert.False(t, outcomes[0].Duplicate)

	records, err := f.svc.Events(ctx, subject)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, domain.EventConsentSet, records[0].EventType, "FIFO within the batch")

	// Resubmitting the batch mirrors stored outcomes, appends nothing.
	replayed := f.queue.Process(ctx, batch)
	assert.True(t, replayed[0].Duplicate)
	assert.Equal(t, outcomes[0].EntityID, replayed[0].EntityID)

	records, err = f.svc.Events(ctx, subject)
	require.NoError(t, err)
	assert.Len(t, records, 2)
}

func TestSyncQueue_SequenceConflictStoredAsConflict(t *testing.T) {
	f := newFixture(t, 100)
	ctx := context.Background()
	subject := uuid.New()

	_, err := f.svc.Append(ctx, subject, domain.FraudSignal{}, nil)
	require.NoError(t, err)

	stale := int64(0)
	outcomes := f.queue.Process(ctx, []SyncAction{{
		IdempotencyKey: "c-1",
		SubjectID:      subject,
		EventType:      domain.EventUserBanned,
		ExpectedSeq:    &stale,
	}})
	require.Len(t, outcomes, 1)
	assert.Equal(t, guard.StatusConflict, outcomes[0].Status)
	assert.NotEmpty(t, outcomes[0].Error)

	// The conflict outcome is what a retry gets back, too.
	replayed := f.queue.Process(ctx, []SyncAction{{
		IdempotencyKey: "c-1",
		SubjectID:      subject,
		EventType:      domain.EventUserBanned,
		ExpectedSeq:    &stale,
	}})
	assert.True(t, replayed[0].Duplicate)
	assert.Equal(t, guard.StatusConflict, replayed[0].Status)
}

func TestSyncQueue_ExpiredKeyReprocessedAsNew(t *testing.T) {
	f := newFixture(t, 100)
	ctx := context.Background()
	subject := uuid.New()

	action := SyncAction{
		IdempotencyKey: "x-1",
		SubjectID:      subject,
		EventType:      domain.EventFlagLowConfidence,
	}

	first := f.queue.Process(ctx, []SyncAction{action})
	require.False(t, first[0].Duplicate)

	f.clk.Advance(25 * time.Hour)
	second := f.queue.Process(ctx, []SyncAction{action})
	assert.False(t, second[0].Duplicate, "expired key is new work")
	assert.NotEqual(t, first[0].EntityID, second[0].EntityID)
}
