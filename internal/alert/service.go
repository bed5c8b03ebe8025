// Package alert orchestrates the gating engine: it appends domain
// events to a subject's log, derives projections, and answers gate
// decisions. It owns no policy itself; the fold and the evaluator do.
package alert

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/maydaypets/platform/internal/clock"
	"github.com/maydaypets/platform/internal/domain"
	"github.com/maydaypets/platform/internal/gate"
	"github.com/maydaypets/platform/internal/guard"
	"github.com/maydaypets/platform/internal/projection"
	"github.com/maydaypets/platform/internal/repository"
)

// Service wires the event log, the projection fold, and the gate
// evaluator together for one deployment.
type Service struct {
	log       repository.EventLog
	snapshots projection.Store
	limiter   *guard.RateLimiter
	evaluator *gate.Evaluator
	clock     clock.Clock
	logger    *slog.Logger
}

// NewService creates the alert service.
func NewService(
	log repository.EventLog,
	snapshots projection.Store,
	limiter *guard.RateLimiter,
	evaluator *gate.Evaluator,
	clk clock.Clock,
	logger *slog.Logger,
) *Service {
	return &Service{
		log:       log,
		snapshots: snapshots,
		limiter:   limiter,
		evaluator: evaluator,
		clock:     clk,
		logger:    logger,
	}
}

// Append validates and appends one event to a subject's log. A non-nil
// expectedSeq makes the append optimistic. The subject's cached
// snapshot is invalidated on success.
func (s *Service) Append(ctx context.Context, subjectID uuid.UUID, ev domain.Event, expectedSeq *int64) (domain.EventRecord, error) {
	rec, err := domain.NewEventRecord(subjectID, ev)
	if err != nil {
		return domain.EventRecord{}, err
	}

	appended, err := s.log.Append(ctx, rec, expectedSeq)
	if err != nil {
		return domain.EventRecord{}, err
	}

	if err := projection.InvalidateSnapshot(ctx, s.snapshots, subjectID.String()); err != nil {
		s.logger.Warn("snapshot invalidation failed", "subject_id", subjectID, "error", err)
	}

	s.logger.Info("event appended",
		"subject_id", subjectID,
		"event_type", appended.EventType,
		"seq", appended.Seq,
	)
	return appended, nil
}

// AppendRaw decodes a (type, payload) pair from the wire, rejecting
// unknown kinds and malformed payloads before they reach the log, then
// appends.
func (s *Service) AppendRaw(ctx context.Context, subjectID uuid.UUID, eventType domain.EventType, payload json.RawMessage, expectedSeq *int64) (domain.EventRecord, error) {
	ev, err := domain.DecodeEvent(eventType, payload)
	if err != nil {
		return domain.EventRecord{}, err
	}
	return s.Append(ctx, subjectID, ev, expectedSeq)
}

// Events returns the subject's log in sequence order.
func (s *Service) Events(ctx context.Context, subjectID uuid.UUID) ([]domain.EventRecord, error) {
	return s.log.ListBySubject(ctx, subjectID)
}

// Projection returns the subject's derived snapshot, from cache when
// fresh, otherwise rebuilt from the full log.
func (s *Service) Projection(ctx context.Context, subjectID uuid.UUID) (projection.Projection, error) {
	if cached, err := projection.CachedSnapshot(ctx, s.snapshots, subjectID.String()); err == nil {
		return *cached, nil
	}

	proj, err := s.rebuild(ctx, subjectID)
	if err != nil {
		return projection.Projection{}, err
	}

	if err := projection.CacheSnapshot(ctx, s.snapshots, subjectID.String(), proj); err != nil {
		s.logger.Warn("snapshot cache failed", "subject_id", subjectID, "error", err)
	}
	return proj, nil
}

// Evaluate decides whether the proposed send is allowed for the
// subject right now. Every request leaves an evaluate_requested audit
// marker in the log; a tripped rate-limit window additionally records
// the block as a rate_limit_exceeded fact before the decision is made,
// so the denial falls out of replay like every other rule.
func (s *Service) Evaluate(ctx context.Context, subjectID uuid.UUID, req gate.SendRequest) (gate.Decision, error) {
	limiterKey := fmt.Sprintf("%s:%s", subjectID, domain.PairKey(req.Channel, req.Segment))
	if ok, until := s.limiter.Allow(limiterKey); !ok {
		_, err := s.Append(ctx, subjectID, domain.RateLimitExceeded{
			Channel:      req.Channel,
			Segment:      req.Segment,
			BlockedUntil: until,
		}, nil)
		if err != nil {
			return gate.Decision{}, err
		}
	}

	if _, err := s.Append(ctx, subjectID, domain.EvaluateRequested{
		Channel: req.Channel,
		Segment: req.Segment,
		Kind:    req.Kind,
	}, nil); err != nil {
		return gate.Decision{}, err
	}

	proj, err := s.rebuild(ctx, subjectID)
	if err != nil {
		return gate.Decision{}, err
	}

	decision := s.evaluator.Evaluate(proj, req)
	s.logger.Info("gate decision",
		"subject_id", subjectID,
		"channel", req.Channel,
		"segment", req.Segment,
		"kind", req.Kind,
		"allowed", decision.Allowed,
		"reason", decision.Reason,
	)
	return decision, nil
}

func (s *Service) rebuild(ctx context.Context, subjectID uuid.UUID) (projection.Projection, error) {
	records, err := s.log.ListBySubject(ctx, subjectID)
	if err != nil {
		return projection.Projection{}, err
	}

	events := make([]domain.Event, 0, len(records))
	for _, rec := range records {
		ev, err := rec.Decode()
		if err != nil {
			return projection.Projection{}, domain.ErrUnprocessableEvent(string(rec.EventType))
		}
		events = append(events, ev)
	}
	return projection.Replay(events)
}
