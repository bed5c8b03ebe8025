// Package antifraud scores abuse signals on a case report and derives
// the gating events the intake path appends for it.
package antifraud

import "github.com/maydaypets/platform/internal/domain"

// RiskLevel classifies a report's abuse risk.
type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// Signals holds the raw inputs for a risk assessment.
type Signals struct {
	DuplicateReports int  `json:"duplicate_reports"` // same animal reported by this account before
	ReportVelocity   int  `json:"report_velocity"`   // reports filed in the last hour
	GeoAnomaly       bool `json:"geo_anomaly"`       // sighting location far from the reported loss
	NewDevice        bool `json:"new_device"`        // unrecognized device fingerprint
	PriorTakedowns   int  `json:"prior_takedowns"`   // reports previously removed by moderators
}

// Assessment holds the evaluated risk.
type Assessment struct {
	Level RiskLevel `json:"level"`
	Score int       `json:"score"`
	Flags []string  `json:"flags,omitempty"`
}

// Assess computes a risk score from report signals.
func Assess(signals Signals) Assessment {
	var score int
	var flags []string

	if signals.DuplicateReports > 3 {
		score += 40
		flags = append(flags, "duplicate_reports")
	} else if signals.DuplicateReports > 1 {
		score += 20
		flags = append(flags, "duplicate_reports_moderate")
	}

	if signals.ReportVelocity > 10 {
		score += 30
		flags = append(flags, "high_velocity")
	} else if signals.ReportVelocity > 5 {
		score += 15
		flags = append(flags, "elevated_velocity")
	}

	if signals.GeoAnomaly {
		score += 25
		flags = append(flags, "geo_anomaly")
	}

	if signals.NewDevice {
		score += 10
		flags = append(flags, "new_device")
	}

	if signals.PriorTakedowns > 0 {
		score += 20
		flags = append(flags, "prior_takedowns")
	}

	level := RiskLow
	if score >= 60 {
		level = RiskHigh
	} else if score >= 30 {
		level = RiskMedium
	}

	return Assessment{Level: level, Score: score, Flags: flags}
}

// Events maps the assessment to the gating facts worth recording: a
// high-risk report raises the fraud flag, a medium one marks the case
// low confidence, a low one records nothing.
func (a Assessment) Events() []domain.Event {
	switch a.Level {
	case RiskHigh:
		return []domain.Event{domain.FraudSignal{}}
	case RiskMedium:
		return []domain.Event{domain.FlagLowConfidence{}}
	default:
		return nil
	}
}
