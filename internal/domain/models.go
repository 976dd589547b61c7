package domain

import (
	"math"
	"time"
)

// ModalityMetrics holds vision-derived behavioral observations for one screening.
// Both values are expected in [0,1]; an absent value is read as 0.0.
type ModalityMetrics struct {
	EyeContact        float64 `json:"eye_contact"`
	MotorCoordination float64 `json:"motor_coordination"`
}

// PhysiologicalProxy is an optional physiological signal, e.g. an EEG alpha/theta ratio.
type PhysiologicalProxy struct {
	AlphaThetaRatio float64 `json:"alpha_theta_ratio"`
}

// FusionInput is the raw multimodal input to the fusion engine.
type FusionInput struct {
	VideoMetrics       ModalityMetrics     `json:"video_metrics"`
	QuestionnaireScore int                 `json:"questionnaire_score"`
	EEGMock            *PhysiologicalProxy `json:"eeg_mock,omitempty"`
	MLProbability      *float64            `json:"ml_probability,omitempty"`
}

// NormalizedSignals are the per-modality risk scores in [0,1], higher meaning higher risk.
type NormalizedSignals struct {
	Video         float64
	Questionnaire float64
	Physiological float64
	// ML is set only when a classifier produced a usable probability.
	ML *float64
}

// Breakdown reports each modality contribution on the 0-100 scale.
type Breakdown struct {
	Behavioral    float64  `json:"behavioral"`
	Questionnaire float64  `json:"questionnaire"`
	Physiological float64  `json:"physiological"`
	MLModel       *float64 `json:"ml_model,omitempty"`
}

// RiskAssessment is the fusion engine output. It is immutable once returned.
type RiskAssessment struct {
	RiskScore        float64         `json:"risk_score"`
	Confidence       string          `json:"confidence"`
	ConfidenceLevel  ConfidenceLevel `json:"confidence_level"`
	DissonanceFactor float64         `json:"dissonance_factor"`
	Breakdown        Breakdown       `json:"breakdown"`
	Interpretation   Interpretation  `json:"interpretation"`
	FusionMethod     FusionMethod    `json:"fusion_method"`
}

// LogFields returns structured logging fields for audit trails.
func (r *RiskAssessment) LogFields() map[string]any {
	return map[string]any{
		"risk_score":        r.RiskScore,
		"confidence":        r.ConfidenceLevel.String(),
		"dissonance_factor": r.DissonanceFactor,
		"interpretation":    r.Interpretation.String(),
		"fusion_method":     r.FusionMethod.String(),
	}
}

// ScorePoint is one entry of a patient's longitudinal risk series.
type ScorePoint struct {
	SessionID string    `json:"session_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	RiskScore float64   `json:"risk_score"`
}

// ScoreSeries is ordered chronologically, oldest first.
type ScoreSeries []ScorePoint

// Scores returns the bare risk values in series order.
func (s ScoreSeries) Scores() []float64 {
	out := make([]float64, len(s))
	for i, p := range s {
		out[i] = p.RiskScore
	}
	return out
}

// TrendProjection is the trend engine output. It is always derived, never stored.
type TrendProjection struct {
	Trend              string         `json:"trend"`
	Direction          TrendDirection `json:"direction"`
	Magnitude          TrendMagnitude `json:"magnitude,omitempty"`
	Velocity           float64        `json:"velocity"`
	PredictedScores    []float64      `json:"predicted_scores"`
	ConfidenceInterval float64        `json:"confidence_interval"`
}

// ProgressSample holds per-session intervention KPIs, each in [0,1].
type ProgressSample struct {
	SocialEngagement float64 `json:"social_engagement"`
	JointAttention   float64 `json:"joint_attention"`
	FocusDrift       float64 `json:"focus_drift"`
}

// EfficacyReport is the intervention efficacy analyzer output.
type EfficacyReport struct {
	DriftStatus          EfficacyStatus `json:"drift_status"`
	InterventionEfficacy float64        `json:"intervention_efficacy"`
	FocusStability       float64        `json:"focus_stability"`
	SocialVelocity       float64        `json:"social_velocity"`
}

// MonitorReport compares the latest session against the one before it.
type MonitorReport struct {
	Status         MonitorStatus `json:"longitudinal_status"`
	Variance       float64       `json:"variance"`
	AlertClinician bool          `json:"alert_clinician"`
	Message        string        `json:"message,omitempty"`
}

// AQ10Responses is an itemized AQ-10 questionnaire with demographic covariates.
type AQ10Responses struct {
	Items         [10]int `json:"items"`
	Age           float64 `json:"age"`
	Gender        string  `json:"gender"`
	Jaundice      bool    `json:"jaundice"`
	FamilyHistory bool    `json:"family_history"`
}

// Features is a named classifier feature set.
type Features map[string]float64

// Vector orders the features by column name. Unknown columns read as 0.
func (f Features) Vector(columns []string) []float64 {
	out := make([]float64, len(columns))
	for i, c := range columns {
		out[i] = f[c]
	}
	return out
}

// ModelInfo describes the classifier backing a screening.
type ModelInfo struct {
	MLAvailable   bool    `json:"ml_available"`
	ModelType     string  `json:"model_type"`
	ModelAccuracy float64 `json:"model_accuracy"`
	DatasetSource string  `json:"dataset_source,omitempty"`
}

// ClinicalSummary is the narrative restatement of a risk assessment.
type ClinicalSummary struct {
	Title          string   `json:"summary_title"`
	KeyFindings    []string `json:"key_findings"`
	Recommendation string   `json:"clinical_recommendation"`
	Source         string   `json:"source"`
}

// TherapyActivity is one suggested home activity.
type TherapyActivity struct {
	Title    string `json:"title"`
	Goal     string `json:"goal"`
	Duration string `json:"duration"`
}

// TherapyPlan is the activity plan derived from a risk breakdown.
type TherapyPlan struct {
	PlanID              string            `json:"plan_id"`
	SuggestedActivities []TherapyActivity `json:"suggested_activities"`
	FocusArea           string            `json:"focus_area"`
	NextReview          string            `json:"next_review"`
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
