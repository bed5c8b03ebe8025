package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/maydaypets/platform/internal/domain"
)

// DBTX abstracts pgx.Tx and pgxpool.Pool so repositories work with both.
type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

// EventLog is the append-only event store for alert subjects. Ordering
// within one subject's log is the sole source of truth; records are
// never mutated or deleted.
type EventLog interface {
	// Append stamps the next per-subject sequence number on the record
	// and inserts it. A non-nil expectedSeq makes the append optimistic:
	// if the log has moved past it, ErrSequenceConflict is returned and
	// nothing is written.
	Append(ctx context.Context, rec domain.EventRecord, expectedSeq *int64) (domain.EventRecord, error)

	// ListBySubject returns the subject's records in sequence order.
	ListBySubject(ctx context.Context, subjectID uuid.UUID) ([]domain.EventRecord, error)
}

// RelaySource exposes the log rows not yet relayed to the message bus.
type RelaySource interface {
	// ListUnrelayed returns up to limit unrelayed records, oldest first.
	ListUnrelayed(ctx context.Context, limit int) ([]domain.EventRecord, error)

	// MarkRelayed stamps a record as relayed.
	MarkRelayed(ctx context.Context, eventID uuid.UUID) error
}
