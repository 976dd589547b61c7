package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/tarang-screening-server/internal/domain"
)

const (
	NarrativeSourceRules    = "rule_based"
	NarrativeSourceExternal = "external"
)

// RuleBasedNarrator produces clinical findings from fixed thresholds. It never fails.
type RuleBasedNarrator struct{}

// Narrate implements domain.Narrator
func (RuleBasedNarrator) Narrate(_ context.Context, patientName string, a *domain.RiskAssessment) (*domain.ClinicalSummary, error) {
	return summarize(patientName, a), nil
}

func summarize(patientName string, a *domain.RiskAssessment) *domain.ClinicalSummary {
	if patientName == "" {
		patientName = "Patient"
	}

	findings := []string{}
	if a.Breakdown.Behavioral > 60 {
		findings = append(findings, "Vision Engine: Detected significant deviation in eye-contact and motor markers.")
	}
	if a.Breakdown.Questionnaire > 60 {
		findings = append(findings, "Developmental Log: High correlation with clinically recognized early-risk behaviors.")
	}
	if a.DissonanceFactor > 0.5 {
		findings = append(findings, "CAUTION: High dissonance detected between vision markers and parent logs.")
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Status: %s. ", a.Interpretation)
	switch {
	case a.RiskScore > 70:
		b.WriteString("Immediate referral to a Pediatric Neurologist for formal diagnostic assessment is strongly advised.")
	case a.RiskScore > 40:
		b.WriteString("Recommend a follow-up screening in 4 weeks and a consultation with a developmental specialist.")
	default:
		b.WriteString("Low risk indicators detected. Continue standard longitudinal monitoring.")
	}
	if a.ConfidenceLevel == domain.LOW {
		b.WriteString(" Note: Results should be interpreted with caution due to low signal alignment.")
	}

	return &domain.ClinicalSummary{
		Title:          "Clinical Evidence Summary: " + patientName,
		KeyFindings:    findings,
		Recommendation: b.String(),
		Source:         NarrativeSourceRules,
	}
}

// FallbackNarrator tries an external narrator under a timeout and falls back
// to the rule-based summary when it is missing, slow or failing.
type FallbackNarrator struct {
	primary domain.Narrator
	timeout time.Duration
	logger  *logrus.Logger
}

// NewFallbackNarrator wraps primary. A nil primary always yields the rule-based summary.
func NewFallbackNarrator(primary domain.Narrator, timeout time.Duration, logger *logrus.Logger) *FallbackNarrator {
	return &FallbackNarrator{primary: primary, timeout: timeout, logger: logger}
}

// Narrate returns the external narrative or a degraded rule-based one.
func (f *FallbackNarrator) Narrate(ctx context.Context, patientName string, a *domain.RiskAssessment) domain.Outcome[*domain.ClinicalSummary] {
	fallback := summarize(patientName, a)
	if f.primary == nil {
		return domain.Unavailable(fallback)
	}

	if f.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}

	summary, err := f.primary.Narrate(ctx, patientName, a)
	if err != nil {
		f.logger.WithError(err).Warn("Narrative generator failed, using rule-based summary")
		return domain.Degraded(fallback, err.Error())
	}
	if summary == nil || summary.Recommendation == "" {
		return domain.Degraded(fallback, "narrative generator returned an empty summary")
	}
	if summary.KeyFindings == nil {
		summary.KeyFindings = fallback.KeyFindings
	}
	if summary.Title == "" {
		summary.Title = fallback.Title
	}
	summary.Source = NarrativeSourceExternal
	return domain.Ok(summary)
}

// PlanTherapy suggests home activities targeting the flagged modalities.
func PlanTherapy(a *domain.RiskAssessment) domain.TherapyPlan {
	activities := []domain.TherapyActivity{}
	if a.Breakdown.Behavioral > 60 {
		activities = append(activities,
			domain.TherapyActivity{
				Title:    "Joint Attention Mosaic",
				Goal:     "Improve gaze shifting between child and caregiver.",
				Duration: "15 mins/day",
			},
			domain.TherapyActivity{
				Title:    "Point & Follow",
				Goal:     "Enhance response to social pointing cues.",
				Duration: "10 mins/day",
			},
		)
	}

	return domain.TherapyPlan{
		PlanID:              "TP-" + strings.ToUpper(uuid.NewString()[:8]),
		SuggestedActivities: activities,
		FocusArea:           "Social Communication & Gaze",
		NextReview:          "7 days",
	}
}

// InterventionAlert turns a projection into clinician-facing guidance.
func InterventionAlert(p domain.TrendProjection) string {
	switch p.Direction {
	case domain.TREND_REGRESSING:
		if p.Magnitude == domain.MAGNITUDE_URGENT {
			return "Alert: Predicted regression detected. Immediate clinical review of therapy intensity recommended."
		}
		return "Alert: Mild regression detected. Schedule a clinical review of therapy intensity."
	case domain.TREND_PLATEAUED:
		return "Note: Progress has plateaued. Consider adjusting 'Skill Lab' difficulty levels."
	case domain.TREND_IMPROVING:
		return "Insight: Positive developmental trajectory maintained. Continue current intervention plan."
	default:
		return "Insight: More sessions are needed before a trajectory can be projected."
	}
}
