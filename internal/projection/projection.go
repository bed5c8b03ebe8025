// Package projection derives the current gating state of an alert
// subject from its ordered event log. The fold is pure: it never
// consults the clock and never reorders or drops events, so replaying
// the same sequence always yields the same snapshot.
package projection

import (
	"time"

	"github.com/maydaypets/platform/internal/domain"
)

// Projection is the derived snapshot of one subject's gating state. It
// is a value: always rebuilt from the log, never edited in place.
type Projection struct {
	Consent           map[string]bool      `json:"consent"`
	UserPaused        bool                 `json:"user_paused"`
	PartnerContracted map[string]bool      `json:"partner_contracted"`
	RateLimitedUntil  map[string]time.Time `json:"rate_limited_until"`

	LowConfidence           bool `json:"low_confidence"`
	FraudSignal             bool `json:"fraud_signal"`
	EscalationProofRequired bool `json:"escalation_proof_required"`
	EscalationProofAttached bool `json:"escalation_proof_attached"`
	HumanReviewRequired     bool `json:"human_review_required"`
	Banned                  bool `json:"banned"`
	IdentityVerified        bool `json:"identity_verified"`
	ProofOfLifeVerified     bool `json:"proof_of_life_verified"`

	// HumanReviewChannels restricts the review hold to specific
	// channels; nil means the hold covers every channel.
	HumanReviewChannels []domain.Channel `json:"human_review_channels,omitempty"`
	TrustScore          *float64         `json:"trust_score,omitempty"`
}

// Empty returns the zero-value projection: all maps empty, all flags
// false, all optional fields unset.
func Empty() Projection {
	return Projection{
		Consent:           make(map[string]bool),
		PartnerContracted: make(map[string]bool),
		RateLimitedUntil:  make(map[string]time.Time),
	}
}

// Replay folds the event sequence left to right starting from Empty().
// An event kind outside the closed union halts derivation for the
// subject with an UNPROCESSABLE_EVENT error.
func Replay(events []domain.Event) (Projection, error) {
	p := Empty()
	for _, ev := range events {
		if err := apply(&p, ev); err != nil {
			return Projection{}, err
		}
	}
	return p, nil
}

func apply(p *Projection, ev domain.Event) error {
	switch e := ev.(type) {
	case domain.ConsentSet:
		p.Consent[domain.PairKey(e.Channel, e.Segment)] = e.Granted
	case domain.UserPauseSet:
		p.UserPaused = e.Paused
	case domain.PartnerContracted:
		p.PartnerContracted[domain.PairKey(e.Channel, e.Segment)] = true
	case domain.RateLimitExceeded:
		p.RateLimitedUntil[domain.PairKey(e.Channel, e.Segment)] = e.BlockedUntil
	case domain.FlagLowConfidence:
		p.LowConfidence = true
	case domain.FraudSignal:
		p.FraudSignal = true
	case domain.EscalationProofRequired:
		p.EscalationProofRequired = true
	case domain.EscalationProofAttached:
		p.EscalationProofAttached = true
	case domain.HumanReviewRequired:
		p.HumanReviewRequired = true
		p.HumanReviewChannels = e.Channels
	case domain.EvaluateRequested:
		// audit marker only
	case domain.MessageBlocked:
		p.FraudSignal = true
	case domain.UserBanned:
		p.Banned = true
		p.FraudSignal = true
	case domain.ProofOfLifeSubmitted:
		p.ProofOfLifeVerified = e.Status == domain.VerificationVerified
	case domain.IdentityVerified:
		p.IdentityVerified = true
		score := e.TrustScore
		p.TrustScore = &score
	case domain.VerifiedMatch:
		p.ProofOfLifeVerified = true
		p.IdentityVerified = true
	default:
		// The union is closed; anything else is schema drift and must
		// fail loudly rather than be silently skipped.
		return domain.ErrUnprocessableEvent(string(ev.Type()))
	}
	return nil
}
