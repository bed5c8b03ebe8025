package repository

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/maydaypets/platform/internal/clock"
	"github.com/maydaypets/platform/internal/domain"
)

// MemoryEventLog is an in-memory EventLog for development and tests.
// It mirrors the Postgres log's append semantics, including the
// optimistic expected-sequence check.
type MemoryEventLog struct {
	mu       sync.Mutex
	subjects map[uuid.UUID][]domain.EventRecord
	clock    clock.Clock
}

// NewMemoryEventLog creates an empty in-memory log.
func NewMemoryEventLog(clk clock.Clock) *MemoryEventLog {
	return &MemoryEventLog{subjects: make(map[uuid.UUID][]domain.EventRecord), clock: clk}
}

func (l *MemoryEventLog) Append(_ context.Context, rec domain.EventRecord, expectedSeq *int64) (domain.EventRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	log := l.subjects[rec.SubjectID]
	var last int64
	if n := len(log); n > 0 {
		last = log[n-1].Seq
	}
	if expectedSeq != nil && last != *expectedSeq {
		return domain.EventRecord{}, domain.ErrSequenceConflict(rec.SubjectID.String(), *expectedSeq)
	}

	rec.Seq = last + 1
	rec.RecordedAt = l.clock.Now()
	l.subjects[rec.SubjectID] = append(log, rec)
	return rec, nil
}

func (l *MemoryEventLog) ListBySubject(_ context.Context, subjectID uuid.UUID) ([]domain.EventRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]domain.EventRecord(nil), l.subjects[subjectID]...), nil
}

func (l *MemoryEventLog) ListUnrelayed(_ context.Context, limit int) ([]domain.EventRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	var out []domain.EventRecord
	for _, log := range l.subjects {
		for _, rec := range log {
			if rec.RelayedAt == nil {
				out = append(out, rec)
				if len(out) == limit {
					return out, nil
				}
			}
		}
	}
	return out, nil
}

func (l *MemoryEventLog) MarkRelayed(_ context.Context, eventID uuid.UUID) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock.Now()
	for subject, log := range l.subjects {
		for i := range log {
			if log[i].EventID == eventID {
				stamp := now
				l.subjects[subject][i].RelayedAt = &stamp
				return nil
			}
		}
	}
	return domain.ErrNotFound("event", eventID.String())
}

var _ EventLog = (*MemoryEventLog)(nil)
var _ RelaySource = (*MemoryEventLog)(nil)
