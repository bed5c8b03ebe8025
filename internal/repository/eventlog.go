package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/maydaypets/platform/internal/domain"
)

type pgEventLog struct {
	db DBTX
}

// NewPgEventLog returns a Postgres-backed event log over the
// alert_events table.
func NewPgEventLog(db DBTX) interface {
	EventLog
	RelaySource
} {
	return &pgEventLog{db: db}
}

// Append serializes concurrent writers in SQL: the sequence number is
// computed from the current MAX(seq) in the same statement, and a
// non-nil expectedSeq turns the insert into a no-op when the log has
// already moved, which surfaces as ErrSequenceConflict.
func (r *pgEventLog) Append(ctx context.Context, rec domain.EventRecord, expectedSeq *int64) (domain.EventRecord, error) {
	row := r.db.QueryRow(ctx, `
		INSERT INTO alert_events (event_id, subject_id, seq, event_type, payload)
		SELECT $1, $2, COALESCE(MAX(seq), 0) + 1, $3, $4
		FROM alert_events
		WHERE subject_id = $2
		HAVING $5::bigint IS NULL OR COALESCE(MAX(seq), 0) = $5
		RETURNING seq, recorded_at`,
		rec.EventID, rec.SubjectID, string(rec.EventType), rec.Payload, expectedSeq)

	if err := row.Scan(&rec.Seq, &rec.RecordedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) && expectedSeq != nil {
			return domain.EventRecord{}, domain.ErrSequenceConflict(rec.SubjectID.String(), *expectedSeq)
		}
		return domain.EventRecord{}, fmt.Errorf("append event: %w", err)
	}
	return rec, nil
}

func (r *pgEventLog) ListBySubject(ctx context.Context, subjectID uuid.UUID) ([]domain.EventRecord, error) {
	rows, err := r.db.Query(ctx, `
		SELECT event_id, subject_id, seq, event_type, payload, recorded_at, relayed_at
		FROM alert_events
		WHERE subject_id = $1
		ORDER BY seq ASC`, subjectID)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()
	return scanEventRecords(rows)
}

func (r *pgEventLog) ListUnrelayed(ctx context.Context, limit int) ([]domain.EventRecord, error) {
	rows, err := r.db.Query(ctx, `
		SELECT event_id, subject_id, seq, event_type, payload, recorded_at, relayed_at
		FROM alert_events
		WHERE relayed_at IS NULL
		ORDER BY recorded_at ASC, seq ASC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("list unrelayed events: %w", err)
	}
	defer rows.Close()
	return scanEventRecords(rows)
}

func (r *pgEventLog) MarkRelayed(ctx context.Context, eventID uuid.UUID) error {
	_, err := r.db.Exec(ctx,
		`UPDATE alert_events SET relayed_at = now() WHERE event_id = $1`, eventID)
	if err != nil {
		return fmt.Errorf("mark relayed: %w", err)
	}
	return nil
}

func scanEventRecords(rows pgx.Rows) ([]domain.EventRecord, error) {
	var records []domain.EventRecord
	for rows.Next() {
		var rec domain.EventRecord
		var eventType string
		if err := rows.Scan(&rec.EventID, &rec.SubjectID, &rec.Seq, &eventType,
			&rec.Payload, &rec.RecordedAt, &rec.RelayedAt); err != nil {
			return nil, fmt.Errorf("scan event record: %w", err)
		}
		rec.EventType = domain.EventType(eventType)
		records = append(records, rec)
	}
	return records, rows.Err()
}
