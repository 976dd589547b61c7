// Package domain contains the core entities of the pediatric autism screening service:
// multimodal screening inputs, fused risk assessments, longitudinal trend projections
// and intervention progress samples.
//
// Risk values are expressed on a 0-1 scale inside the engine and on a 0-100 scale
// in every record that leaves it.
package domain

import (
	"fmt"
)

// Interpretation is the categorical reading of a fused risk score.
type Interpretation string

const (
	LOW_RISK      Interpretation = "Low Risk"
	MODERATE_RISK Interpretation = "Moderate Risk"
	HIGH_RISK     Interpretation = "High Risk"
)

// ConfidenceLevel is the categorical part of a fusion confidence label.
type ConfidenceLevel string

const (
	HIGH   ConfidenceLevel = "High"
	MEDIUM ConfidenceLevel = "Medium"
	LOW    ConfidenceLevel = "Low"
)

// FusionMethod identifies which weighting path produced a RiskAssessment.
type FusionMethod string

const (
	RULE_BASED_FUSION FusionMethod = "Rule_Based_Fusion"
	ML_HYBRID_FUSION  FusionMethod = "ML_Hybrid_Fusion"
)

// TrendDirection is the closed set of longitudinal trend categories.
type TrendDirection string

const (
	TREND_INITIALIZING TrendDirection = "Initializing"
	TREND_STABILIZING  TrendDirection = "Stabilizing"
	TREND_IMPROVING    TrendDirection = "Improving"
	TREND_PLATEAUED    TrendDirection = "Plateaued"
	TREND_REGRESSING   TrendDirection = "Regressing"
)

// TrendMagnitude qualifies an Improving or Regressing direction.
type TrendMagnitude string

const (
	MAGNITUDE_NONE        TrendMagnitude = ""
	MAGNITUDE_MILD        TrendMagnitude = "Mild"
	MAGNITUDE_STEADY      TrendMagnitude = "Steady"
	MAGNITUDE_ACCELERATED TrendMagnitude = "Accelerated"
	MAGNITUDE_URGENT      TrendMagnitude = "Urgent"
)

// EfficacyStatus is the drift label produced by the intervention efficacy analyzer.
type EfficacyStatus string

const (
	EFFICACY_INSUFFICIENT_DATA EfficacyStatus = "Insufficient Data"
	EFFICACY_DRIFTING          EfficacyStatus = "Drifting (Negative)"
	EFFICACY_OPTIMAL           EfficacyStatus = "Optimal"
	EFFICACY_ACCELERATED       EfficacyStatus = "Accelerated"
)

// MonitorStatus is the result of comparing the two most recent screening sessions.
type MonitorStatus string

const (
	MONITOR_BASELINE    MonitorStatus = "Baseline"
	MONITOR_STABLE      MonitorStatus = "Stable"
	MONITOR_IMPROVEMENT MonitorStatus = "Improvement Detected"
	MONITOR_REGRESSION  MonitorStatus = "Regression Alert"
)

// ReviewVerdict is a clinician's judgement of an engine interpretation.
type ReviewVerdict string

const (
	VERDICT_AGREE    ReviewVerdict = "agree"
	VERDICT_DISAGREE ReviewVerdict = "disagree"
	VERDICT_UNSURE   ReviewVerdict = "unsure"
)

// IsValid reports whether the interpretation is one of the three risk bands.
func (i Interpretation) IsValid() bool {
	switch i {
	case LOW_RISK, MODERATE_RISK, HIGH_RISK:
		return true
	default:
		return false
	}
}

// String returns the string representation of the interpretation.
func (i Interpretation) String() string {
	return string(i)
}

// RequiresReferral reports whether the band warrants specialist follow-up.
// Unknown values are treated as requiring referral.
func (i Interpretation) RequiresReferral() bool {
	switch i {
	case LOW_RISK:
		return false
	case MODERATE_RISK, HIGH_RISK:
		return true
	default:
		return true
	}
}

// LogFields returns structured logging fields for audit trails.
func (i Interpretation) LogFields() map[string]any {
	return map[string]any{
		"interpretation":    string(i),
		"is_valid":          i.IsValid(),
		"requires_referral": i.RequiresReferral(),
	}
}

// IsValid validates the confidence level.
func (cl ConfidenceLevel) IsValid() bool {
	switch cl {
	case HIGH, MEDIUM, LOW:
		return true
	default:
		return false
	}
}

func (cl ConfidenceLevel) String() string {
	return string(cl)
}

// IsValid validates the fusion method.
func (m FusionMethod) IsValid() bool {
	switch m {
	case RULE_BASED_FUSION, ML_HYBRID_FUSION:
		return true
	default:
		return false
	}
}

func (m FusionMethod) String() string {
	return string(m)
}

// IsValid validates the trend direction.
func (d TrendDirection) IsValid() bool {
	switch d {
	case TREND_INITIALIZING, TREND_STABILIZING, TREND_IMPROVING, TREND_PLATEAUED, TREND_REGRESSING:
		return true
	default:
		return false
	}
}

// Label renders a direction and magnitude the way reports show it,
// e.g. "Improving (Steady)" or "Plateaued".
func (d TrendDirection) Label(m TrendMagnitude) string {
	if m == MAGNITUDE_NONE {
		return string(d)
	}
	return fmt.Sprintf("%s (%s)", d, m)
}

// IsValid validates the efficacy status.
func (s EfficacyStatus) IsValid() bool {
	switch s {
	case EFFICACY_INSUFFICIENT_DATA, EFFICACY_DRIFTING, EFFICACY_OPTIMAL, EFFICACY_ACCELERATED:
		return true
	default:
		return false
	}
}

// IsValid validates the review verdict.
func (v ReviewVerdict) IsValid() bool {
	switch v {
	case VERDICT_AGREE, VERDICT_DISAGREE, VERDICT_UNSURE:
		return true
	default:
		return false
	}
}
