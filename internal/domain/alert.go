package domain

// Channel enumerates the notification transports an alert can go out on.
type Channel string

const (
	ChannelSMS   Channel = "sms"
	ChannelPush  Channel = "push"
	ChannelEmail Channel = "email"
)

// Segment enumerates the audience groupings consent and partner contracts
// are scoped to.
type Segment string

const (
	SegmentLocal    Segment = "local"
	SegmentRegional Segment = "regional"
	SegmentNational Segment = "national"
)

// SendKind distinguishes routine notifications from escalation-tier sends,
// which require proof of need before dispatch.
type SendKind string

const (
	SendStandard   SendKind = "standard"
	SendEscalation SendKind = "escalation"
)

// VerificationStatus is the outcome reported by the proof-of-life checker.
type VerificationStatus string

const (
	VerificationVerified     VerificationStatus = "VERIFIED"
	VerificationRejected     VerificationStatus = "REJECTED"
	VerificationInconclusive VerificationStatus = "INCONCLUSIVE"
)

// PairKey builds the map key for per-(channel, segment) state.
func PairKey(c Channel, s Segment) string {
	return string(c) + "::" + string(s)
}
