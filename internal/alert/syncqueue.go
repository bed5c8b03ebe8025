package alert

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"github.com/maydaypets/platform/internal/domain"
	"github.com/maydaypets/platform/internal/guard"
)

// SyncAction is one client-originated action in a sync batch.
type SyncAction struct {
	IdempotencyKey string           `json:"idempotency_key"`
	SubjectID      uuid.UUID        `json:"subject_id"`
	EventType      domain.EventType `json:"event_type"`
	Payload        json.RawMessage  `json:"payload"`
	ExpectedSeq    *int64           `json:"expected_seq,omitempty"`
}

// SyncOutcome is the per-action result returned to the client. A
// duplicate submission mirrors the originally stored record.
type SyncOutcome struct {
	IdempotencyKey string           `json:"idempotency_key"`
	Status         guard.SyncStatus `json:"status"`
	EntityID       string           `json:"entity_id,omitempty"`
	Error          string           `json:"error,omitempty"`
	Duplicate      bool             `json:"duplicate"`
}

// SyncQueue processes client action batches in FIFO arrival order,
// consulting the idempotency store before treating any action as new
// work. A retried key inside the TTL gets the original outcome back
// without re-executing; past the TTL the action is legitimately new.
type SyncQueue struct {
	svc    *Service
	store  *guard.IdempotencyStore
	logger *slog.Logger
}

// NewSyncQueue creates the sync queue.
func NewSyncQueue(svc *Service, store *guard.IdempotencyStore, logger *slog.Logger) *SyncQueue {
	return &SyncQueue{svc: svc, store: store, logger: logger}
}

// Process executes the batch in order and returns one outcome per
// action, index-aligned with the input.
func (q *SyncQueue) Process(ctx context.Context, actions []SyncAction) []SyncOutcome {
	outcomes := make([]SyncOutcome, 0, len(actions))
	for _, action := range actions {
		outcomes = append(outcomes, q.processOne(ctx, action))
	}
	return outcomes
}

func (q *SyncQueue) processOne(ctx context.Context, action SyncAction) SyncOutcome {
	if action.IdempotencyKey != "" {
		if rec, ok := q.store.Get(action.IdempotencyKey); ok {
			q.logger.Info("sync action replayed from store", "key", action.IdempotencyKey, "status", rec.Status)
			return SyncOutcome{
				IdempotencyKey: action.IdempotencyKey,
				Status:         rec.Status,
				EntityID:       rec.EntityID,
				Error:          rec.Err,
				Duplicate:      true,
			}
		}
	}

	rec := guard.SyncRecord{Key: action.IdempotencyKey}
	appended, err := q.svc.AppendRaw(ctx, action.SubjectID, action.EventType, action.Payload, action.ExpectedSeq)
	switch {
	case err == nil:
		rec.Status = guard.StatusSynced
		rec.EntityID = appended.EventID.String()
	case isSequenceConflict(err):
		rec.Status = guard.StatusConflict
		rec.Err = err.Error()
	default:
		rec.Status = guard.StatusFailed
		rec.Err = err.Error()
	}

	if action.IdempotencyKey != "" {
		q.store.Set(rec)
	}

	return SyncOutcome{
		IdempotencyKey: action.IdempotencyKey,
		Status:         rec.Status,
		EntityID:       rec.EntityID,
		Error:          rec.Err,
	}
}

func isSequenceConflict(err error) bool {
	var appErr *domain.AppError
	return errors.As(err, &appErr) && appErr.Code == "SEQUENCE_CONFLICT"
}
