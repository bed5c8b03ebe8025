package domain

import "time"

// ConsentSet records a recipient consent decision for one
// (channel, segment) pair.
type ConsentSet struct {
	Channel Channel `json:"channel"`
	Segment Segment `json:"segment"`
	Granted bool    `json:"granted"`
}

func (ConsentSet) Type() EventType { return EventConsentSet }

// UserPauseSet records the case owner pausing or unpausing all sends.
type UserPauseSet struct {
	Paused bool `json:"paused"`
}

func (UserPauseSet) Type() EventType { return EventUserPauseSet }

// PartnerContracted marks a (channel, segment) pair as covered by an
// active partner contract, which substitutes for per-recipient consent on
// that pair.
type PartnerContracted struct {
	Channel   Channel `json:"channel"`
	Segment   Segment `json:"segment"`
	PartnerID string  `json:"partner_id,omitempty"`
}

func (PartnerContracted) Type() EventType { return EventPartnerContracted }

// RateLimitExceeded blocks a (channel, segment) pair until the given
// instant.
type RateLimitExceeded struct {
	Channel      Channel   `json:"channel"`
	Segment      Segment   `json:"segment"`
	BlockedUntil time.Time `json:"blocked_until"`
}

func (RateLimitExceeded) Type() EventType { return EventRateLimitExceeded }

// FlagLowConfidence marks the case as low confidence. Never cleared by
// replay.
type FlagLowConfidence struct{}

func (FlagLowConfidence) Type() EventType { return EventFlagLowConfidence }

// FraudSignal raises the fraud flag for the case. Never cleared.
type FraudSignal struct{}

func (FraudSignal) Type() EventType { return EventFraudSignal }

// EscalationProofRequired requires proof of need before any
// escalation-tier send.
type EscalationProofRequired struct{}

func (EscalationProofRequired) Type() EventType { return EventEscalationProofRequired }

// EscalationProofAttached records that escalation proof has been supplied.
type EscalationProofAttached struct{}

func (EscalationProofAttached) Type() EventType { return EventEscalationProofAttached }

// HumanReviewRequired places the case on a mandatory review hold. A nil
// Channels list means the hold applies to every channel.
type HumanReviewRequired struct {
	Channels []Channel `json:"channels,omitempty"`
}

func (HumanReviewRequired) Type() EventType { return EventHumanReviewRequired }

// EvaluateRequested is an audit marker appended whenever a gate decision
// is requested. It has no effect on the projection.
type EvaluateRequested struct {
	Channel Channel  `json:"channel"`
	Segment Segment  `json:"segment"`
	Kind    SendKind `json:"kind"`
}

func (EvaluateRequested) Type() EventType { return EventEvaluateRequested }

// MessageBlocked is the antifraud pipeline blocking an outbound message.
// Its projection effect is the fraud flag.
type MessageBlocked struct{}

func (MessageBlocked) Type() EventType { return EventMessageBlocked }

// UserBanned permanently bans the case owner. Sets the fraud flag too.
type UserBanned struct{}

func (UserBanned) Type() EventType { return EventUserBanned }

// ProofOfLifeSubmitted reports the outcome of a proof-of-life check. The
// projection tracks the latest submission's outcome; a non-VERIFIED
// submission (re)assigns the flag to false rather than clearing it.
type ProofOfLifeSubmitted struct {
	Status VerificationStatus `json:"status"`
}

func (ProofOfLifeSubmitted) Type() EventType { return EventProofOfLifeSubmitted }

// IdentityVerified confirms the reporter's identity and records a trust
// score.
type IdentityVerified struct {
	TrustScore float64 `json:"trust_score"`
}

func (IdentityVerified) Type() EventType { return EventIdentityVerified }

// VerifiedMatch is the shortcut for a fully matched, confirmed case: both
// proof of life and identity verified in one event.
type VerifiedMatch struct{}

func (VerifiedMatch) Type() EventType { return EventVerifiedMatch }
