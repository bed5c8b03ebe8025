package gate

import (
	"testing"
	"time"

	"github.com/maydaypets/platform/internal/clock"
	"github.com/maydaypets/platform/internal/domain"
	"github.com/maydaypets/platform/internal/projection"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2026, 2, 14, 9, 0, 0, 0, time.UTC)

func evalAt(t *testing.T, events []domain.Event, at time.Time, req SendRequest) Decision {
	t.Helper()
	p, err := projection.Replay(events)
	require.NoError(t, err)
	return NewEvaluator(DefaultTierPolicy(), clock.NewManual(at)).Evaluate(p, req)
}

func smsLocal() SendRequest {
	return SendRequest{Channel: domain.ChannelSMS, Segment: domain.SegmentLocal, Kind: domain.SendStandard}
}

func consentSMSLocal() domain.Event {
	return domain.ConsentSet{Channel: domain.ChannelSMS, Segment: domain.SegmentLocal, Granted: true}
}

func TestEvaluate_AllowsCleanConsentedSend(t *testing.T) {
	d := evalAt(t, []domain.Event{consentSMSLocal()}, t0, smsLocal())
	assert.True(t, d.Allowed)
	assert.Equal(t, ReasonAllowed, d.Reason)
}

func TestEvaluate_BanIsAbsolute(t *testing.T) {
	// Every favorable fact plus one ban: still denied, on every channel.
	events := []domain.Event{
		consentSMSLocal(),
		domain.ConsentSet{Channel: domain.ChannelEmail, Segment: domain.SegmentLocal, Granted: true},
		domain.PartnerContracted{Channel: domain.ChannelPush, Segment: domain.SegmentLocal},
		domain.VerifiedMatch{},
		domain.IdentityVerified{TrustScore: 1},
		domain.UserBanned{},
	}
	for _, ch := range []domain.Channel{domain.ChannelSMS, domain.ChannelPush, domain.ChannelEmail} {
		d := evalAt(t, events, t0, SendRequest{Channel: ch, Segment: domain.SegmentLocal, Kind: domain.SendStandard})
		assert.False(t, d.Allowed)
		assert.Equal(t, ReasonUserBanned, d.Reason)
	}
}

func TestEvaluate_FraudBlocksUnverifiedCase(t *testing.T) {
	d := evalAt(t, []domain.Event{consentSMSLocal(), domain.FraudSignal{}}, t0, smsLocal())
	assert.False(t, d.Allowed)
	assert.Equal(t, ReasonFraudSuspected, d.Reason)
}

func TestEvaluate_VerifiedMatchOverridesStaleFraudFlag(t *testing.T) {
	d := evalAt(t, []domain.Event{
		consentSMSLocal(),
		domain.FraudSignal{},
		domain.VerifiedMatch{},
	}, t0, smsLocal())
	assert.True(t, d.Allowed)
	assert.Equal(t, ReasonAllowed, d.Reason)
}

func TestEvaluate_PartialVerificationDoesNotOverrideFraud(t *testing.T) {
	d := evalAt(t, []domain.Event{
		consentSMSLocal(),
		domain.FraudSignal{},
		domain.IdentityVerified{TrustScore: 0.9},
	}, t0, smsLocal())
	assert.False(t, d.Allowed)
	assert.Equal(t, ReasonFraudSuspected, d.Reason)
}

func TestEvaluate_UserPauseSilencesSends(t *testing.T) {
	d := evalAt(t, []domain.Event{consentSMSLocal(), domain.UserPauseSet{Paused: true}}, t0, smsLocal())
	assert.False(t, d.Allowed)
	assert.Equal(t, ReasonUserPaused, d.Reason)
}

func TestEvaluate_UnpauseRestoresSends(t *testing.T) {
	d := evalAt(t, []domain.Event{
		consentSMSLocal(),
		domain.UserPauseSet{Paused: true},
		domain.UserPauseSet{Paused: false},
	}, t0, smsLocal())
	assert.True(t, d.Allowed)
}

func TestEvaluate_NoConsentDenied(t *testing.T) {
	d := evalAt(t, nil, t0, smsLocal())
	assert.False(t, d.Allowed)
	assert.Equal(t, ReasonNoConsent, d.Reason)
}

func TestEvaluate_RevokedConsentDenied(t *testing.T) {
	d := evalAt(t, []domain.Event{
		consentSMSLocal(),
		domain.ConsentSet{Channel: domain.ChannelSMS, Segment: domain.SegmentLocal, Granted: false},
	}, t0, smsLocal())
	assert.False(t, d.Allowed)
	assert.Equal(t, ReasonNoConsent, d.Reason)
}

func TestEvaluate_PartnerContractSubstitutesForConsent(t *testing.T) {
	events := []domain.Event{
		domain.PartnerContracted{Channel: domain.ChannelSMS, Segment: domain.SegmentLocal},
	}

	local := evalAt(t, events, t0, smsLocal())
	assert.True(t, local.Allowed)

	// The substitution is scoped to the contracted pair only.
	regional := evalAt(t, events, t0, SendRequest{
		Channel: domain.ChannelSMS, Segment: domain.SegmentRegional, Kind: domain.SendStandard,
	})
	assert.False(t, regional.Allowed)
	assert.Equal(t, ReasonNoConsent, regional.Reason)
}

func TestEvaluate_RateLimitExpiresWithClock(t *testing.T) {
	events := []domain.Event{
		consentSMSLocal(),
		domain.RateLimitExceeded{
			Channel:      domain.ChannelSMS,
			Segment:      domain.SegmentLocal,
			BlockedUntil: t0.Add(10 * time.Minute),
		},
	}

	blocked := evalAt(t, events, t0.Add(5*time.Minute), smsLocal())
	assert.False(t, blocked.Allowed)
	assert.Equal(t, ReasonRateLimited, blocked.Reason)
	require.NotNil(t, blocked.RetryAfter)
	assert.True(t, blocked.RetryAfter.Equal(t0.Add(10*time.Minute)))

	cleared := evalAt(t, events, t0.Add(11*time.Minute), smsLocal())
	assert.True(t, cleared.Allowed)
	assert.Nil(t, cleared.RetryAfter)
}

func TestEvaluate_RateLimitScopedToPair(t *testing.T) {
	events := []domain.Event{
		consentSMSLocal(),
		domain.ConsentSet{Channel: domain.ChannelSMS, Segment: domain.SegmentRegional, Granted: true},
		domain.RateLimitExceeded{
			Channel:      domain.ChannelSMS,
			Segment:      domain.SegmentLocal,
			BlockedUntil: t0.Add(time.Hour),
		},
	}
	d := evalAt(t, events, t0, SendRequest{
		Channel: domain.ChannelSMS, Segment: domain.SegmentRegional, Kind: domain.SendStandard,
	})
	assert.True(t, d.Allowed)
}

func TestEvaluate_EscalationNeedsProof(t *testing.T) {
	events := []domain.Event{consentSMSLocal(), domain.EscalationProofRequired{}}

	escalation := evalAt(t, events, t0, SendRequest{
		Channel: domain.ChannelSMS, Segment: domain.SegmentLocal, Kind: domain.SendEscalation,
	})
	assert.False(t, escalation.Allowed)
	assert.Equal(t, ReasonProofRequired, escalation.Reason)

	// Standard sends are unaffected by the proof requirement.
	standard := evalAt(t, events, t0, smsLocal())
	assert.True(t, standard.Allowed)
}

func TestEvaluate_AttachedProofClearsEscalationBlock(t *testing.T) {
	d := evalAt(t, []domain.Event{
		consentSMSLocal(),
		domain.EscalationProofRequired{},
		domain.EscalationProofAttached{},
	}, t0, SendRequest{Channel: domain.ChannelSMS, Segment: domain.SegmentLocal, Kind: domain.SendEscalation})
	assert.True(t, d.Allowed)
}

func TestEvaluate_ReviewHoldCoversAllChannelsWhenUnrestricted(t *testing.T) {
	events := []domain.Event{
		consentSMSLocal(),
		domain.ConsentSet{Channel: domain.ChannelEmail, Segment: domain.SegmentLocal, Granted: true},
		domain.HumanReviewRequired{},
	}
	for _, ch := range []domain.Channel{domain.ChannelSMS, domain.ChannelEmail} {
		d := evalAt(t, events, t0, SendRequest{Channel: ch, Segment: domain.SegmentLocal, Kind: domain.SendStandard})
		assert.False(t, d.Allowed)
		assert.Equal(t, ReasonHumanReviewPending, d.Reason)
	}
}

func TestEvaluate_ReviewHoldRestrictedToListedChannels(t *testing.T) {
	events := []domain.Event{
		consentSMSLocal(),
		domain.ConsentSet{Channel: domain.ChannelEmail, Segment: domain.SegmentLocal, Granted: true},
		domain.HumanReviewRequired{Channels: []domain.Channel{domain.ChannelSMS}},
	}

	held := evalAt(t, events, t0, smsLocal())
	assert.Equal(t, ReasonHumanReviewPending, held.Reason)

	free := evalAt(t, events, t0, SendRequest{
		Channel: domain.ChannelEmail, Segment: domain.SegmentLocal, Kind: domain.SendStandard,
	})
	assert.True(t, free.Allowed)
}

func TestEvaluate_LowConfidenceBlocksHighVolumeTiersOnly(t *testing.T) {
	events := []domain.Event{
		consentSMSLocal(),
		domain.ConsentSet{Channel: domain.ChannelPush, Segment: domain.SegmentLocal, Granted: true},
		domain.ConsentSet{Channel: domain.ChannelEmail, Segment: domain.SegmentLocal, Granted: true},
		domain.FlagLowConfidence{},
	}

	for _, ch := range []domain.Channel{domain.ChannelSMS, domain.ChannelPush} {
		d := evalAt(t, events, t0, SendRequest{Channel: ch, Segment: domain.SegmentLocal, Kind: domain.SendStandard})
		assert.False(t, d.Allowed)
		assert.Equal(t, ReasonLowConfidence, d.Reason)
	}

	email := evalAt(t, events, t0, SendRequest{
		Channel: domain.ChannelEmail, Segment: domain.SegmentLocal, Kind: domain.SendStandard,
	})
	assert.True(t, email.Allowed)
}

func TestEvaluate_PrecedenceFraudBeforePause(t *testing.T) {
	d := evalAt(t, []domain.Event{
		consentSMSLocal(),
		domain.UserPauseSet{Paused: true},
		domain.FraudSignal{},
	}, t0, smsLocal())
	assert.Equal(t, ReasonFraudSuspected, d.Reason)
}

func TestEvaluate_PrecedencePauseBeforeConsent(t *testing.T) {
	d := evalAt(t, []domain.Event{domain.UserPauseSet{Paused: true}}, t0, smsLocal())
	assert.Equal(t, ReasonUserPaused, d.Reason)
}
