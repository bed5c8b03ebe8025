package domain

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// EventType enumerates all domain event types. The set is closed: the
// projection fold refuses to process a type outside this list.
type EventType string

const (
	EventConsentSet              EventType = "consent_set"
	EventUserPauseSet            EventType = "user_pause_set"
	EventPartnerContracted       EventType = "partner.contracted"
	EventRateLimitExceeded       EventType = "rate_limit_exceeded"
	EventFlagLowConfidence       EventType = "flag_low_confidence"
	EventFraudSignal             EventType = "fraud_signal"
	EventEscalationProofRequired EventType = "escalation_proof_required"
	EventEscalationProofAttached EventType = "escalation_proof_attached"
	EventHumanReviewRequired     EventType = "human_review_required"
	EventEvaluateRequested       EventType = "evaluate_requested"
	EventMessageBlocked          EventType = "antifraud.message_blocked"
	EventUserBanned              EventType = "antifraud.user_banned"
	EventProofOfLifeSubmitted    EventType = "antifraud.proof_of_life_submitted"
	EventIdentityVerified        EventType = "antifraud.identity_verified"
	EventVerifiedMatch           EventType = "antifraud.verified_match"
)

// Event is one case of the domain event union.
type Event interface {
	Type() EventType
}

// EventRecord is the persisted envelope for one appended event: the wire
// shape stored in the alert_events table and relayed to Kafka. Seq is
// assigned at append time and is monotonic per subject.
type EventRecord struct {
	EventID    uuid.UUID       `json:"event_id"`
	SubjectID  uuid.UUID       `json:"subject_id"`
	Seq        int64           `json:"seq"`
	EventType  EventType       `json:"event_type"`
	Payload    json.RawMessage `json:"payload"`
	RecordedAt time.Time       `json:"recorded_at"`
	RelayedAt  *time.Time      `json:"relayed_at,omitempty"`
}

// NewEventRecord wraps a domain event in a fresh envelope for a subject.
// Seq and RecordedAt are stamped by the log-append layer.
func NewEventRecord(subjectID uuid.UUID, ev Event) (EventRecord, error) {
	payload, err := json.Marshal(ev)
	if err != nil {
		return EventRecord{}, fmt.Errorf("marshal %s payload: %w", ev.Type(), err)
	}
	return EventRecord{
		EventID:   uuid.New(),
		SubjectID: subjectID,
		EventType: ev.Type(),
		Payload:   payload,
	}, nil
}

// Decode unmarshals the envelope payload back into its concrete event.
func (r EventRecord) Decode() (Event, error) {
	return DecodeEvent(r.EventType, r.Payload)
}

// DecodeEvent turns a (type, payload) pair into a concrete event. An
// unknown type is a validation error: it must be rejected here, before the
// record ever reaches the fold.
func DecodeEvent(t EventType, payload json.RawMessage) (Event, error) {
	if len(payload) == 0 {
		payload = json.RawMessage(`{}`)
	}

	switch t {
	case EventConsentSet:
		var ev ConsentSet
		return decodePayload(t, payload, &ev)
	case EventUserPauseSet:
		var ev UserPauseSet
		return decodePayload(t, payload, &ev)
	case EventPartnerContracted:
		var ev PartnerContracted
		return decodePayload(t, payload, &ev)
	case EventRateLimitExceeded:
		var ev RateLimitExceeded
		return decodePayload(t, payload, &ev)
	case EventFlagLowConfidence:
		return FlagLowConfidence{}, nil
	case EventFraudSignal:
		return FraudSignal{}, nil
	case EventEscalationProofRequired:
		return EscalationProofRequired{}, nil
	case EventEscalationProofAttached:
		return EscalationProofAttached{}, nil
	case EventHumanReviewRequired:
		var ev HumanReviewRequired
		return decodePayload(t, payload, &ev)
	case EventEvaluateRequested:
		var ev EvaluateRequested
		return decodePayload(t, payload, &ev)
	case EventMessageBlocked:
		return MessageBlocked{}, nil
	case EventUserBanned:
		return UserBanned{}, nil
	case EventProofOfLifeSubmitted:
		var ev ProofOfLifeSubmitted
		return decodePayload(t, payload, &ev)
	case EventIdentityVerified:
		var ev IdentityVerified
		return decodePayload(t, payload, &ev)
	case EventVerifiedMatch:
		return VerifiedMatch{}, nil
	default:
		return nil, ErrValidation(fmt.Sprintf("unknown event type: %s", t))
	}
}

func decodePayload[E Event](t EventType, payload json.RawMessage, dst *E) (Event, error) {
	if err := json.Unmarshal(payload, dst); err != nil {
		return nil, ErrValidation(fmt.Sprintf("malformed %s payload: %v", t, err))
	}
	return *dst, nil
}
