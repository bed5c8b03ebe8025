// Package gate decides whether a proposed outbound notification is
// currently allowed for a subject. Denials are first-class outcomes
// with stable reason codes, never errors; the dispatch collaborator may
// only act on an allow.
package gate

import (
	"time"

	"github.com/maydaypets/platform/internal/clock"
	"github.com/maydaypets/platform/internal/domain"
	"github.com/maydaypets/platform/internal/projection"
)

// Reason is the machine-readable decision code callers branch on.
type Reason string

const (
	ReasonAllowed            Reason = "ALLOWED"
	ReasonUserBanned         Reason = "USER_BANNED"
	ReasonFraudSuspected     Reason = "FRAUD_SUSPECTED"
	ReasonUserPaused         Reason = "USER_PAUSED"
	ReasonNoConsent          Reason = "NO_CONSENT"
	ReasonRateLimited        Reason = "RATE_LIMITED"
	ReasonProofRequired      Reason = "PROOF_REQUIRED"
	ReasonHumanReviewPending Reason = "HUMAN_REVIEW_PENDING"
	ReasonLowConfidence      Reason = "LOW_CONFIDENCE"
)

// SendRequest is a proposed outbound notification.
type SendRequest struct {
	Channel domain.Channel `json:"channel"`
	Segment domain.Segment `json:"segment"`
	Kind    domain.SendKind `json:"kind"`
}

// Decision is the evaluator's verdict. RetryAfter is set only for
// RATE_LIMITED denials.
type Decision struct {
	Allowed    bool       `json:"allowed"`
	Reason     Reason     `json:"reason"`
	RetryAfter *time.Time `json:"retry_after,omitempty"`
}

// TierPolicy names the channels treated as automated high-volume: the
// ones soft-blocked while a case is flagged low confidence. Low-reach
// channels stay deliverable so a likely-but-unconfirmed sighting can
// still be worked by hand.
type TierPolicy struct {
	HighVolume []domain.Channel `json:"high_volume"`
}

// DefaultTierPolicy blocks sms and push under a low-confidence flag;
// email is low-reach and stays allowed.
func DefaultTierPolicy() TierPolicy {
	return TierPolicy{HighVolume: []domain.Channel{domain.ChannelSMS, domain.ChannelPush}}
}

func (p TierPolicy) isHighVolume(c domain.Channel) bool {
	for _, hv := range p.HighVolume {
		if hv == c {
			return true
		}
	}
	return false
}

// Evaluator applies the deny rules in priority order; the first match
// wins so reason codes stay mutually exclusive.
type Evaluator struct {
	tiers TierPolicy
	clock clock.Clock
}

// NewEvaluator creates an evaluator with the given tier policy and
// injected clock.
func NewEvaluator(tiers TierPolicy, clk clock.Clock) *Evaluator {
	return &Evaluator{tiers: tiers, clock: clk}
}

// Evaluate decides whether the proposed send is allowed right now.
func (e *Evaluator) Evaluate(p projection.Projection, req SendRequest) Decision {
	pair := domain.PairKey(req.Channel, req.Segment)

	// Rule 1: a ban is absolute, no override.
	if p.Banned {
		return deny(ReasonUserBanned)
	}

	// Rule 2: fraud blocks unless a verified match cleared it. A stale
	// fraud flag raised before the confirmation (say a duplicate-report
	// false positive) must not silence a confirmed case.
	if p.FraudSignal && !(p.ProofOfLifeVerified && p.IdentityVerified) {
		return deny(ReasonFraudSuspected)
	}

	// Rule 3: the owner explicitly silenced all sends.
	if p.UserPaused {
		return deny(ReasonUserPaused)
	}

	// Rule 4: consent, or a signed partner contract substituting for it
	// on this (channel, segment) pair only.
	if !p.Consent[pair] && !p.PartnerContracted[pair] {
		return deny(ReasonNoConsent)
	}

	// Rule 5: rate-limit block still in the future.
	if until, ok := p.RateLimitedUntil[pair]; ok && until.After(e.clock.Now()) {
		retry := until
		return Decision{Allowed: false, Reason: ReasonRateLimited, RetryAfter: &retry}
	}

	// Rule 6: escalation sends need proof of need attached first.
	if req.Kind == domain.SendEscalation && p.EscalationProofRequired && !p.EscalationProofAttached {
		return deny(ReasonProofRequired)
	}

	// Rule 7: mandatory review hold, scoped to its channel list (nil
	// means every channel).
	if p.HumanReviewRequired && reviewCoversChannel(p.HumanReviewChannels, req.Channel) {
		return deny(ReasonHumanReviewPending)
	}

	// Rule 8: low confidence soft-blocks automated high-volume channels
	// per the tier table.
	if p.LowConfidence && e.tiers.isHighVolume(req.Channel) {
		return deny(ReasonLowConfidence)
	}

	return Decision{Allowed: true, Reason: ReasonAllowed}
}

func reviewCoversChannel(restricted []domain.Channel, c domain.Channel) bool {
	if restricted == nil {
		return true
	}
	for _, rc := range restricted {
		if rc == c {
			return true
		}
	}
	return false
}

func deny(r Reason) Decision {
	return Decision{Allowed: false, Reason: r}
}
