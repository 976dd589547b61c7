package domain

import (
	"errors"
	"fmt"
	"time"
)

// FusionRequest is the wire shape of a stateless fusion call.
// QuestionnaireScore is a pointer so that an absent score can be rejected.
type FusionRequest struct {
	VideoMetrics       ModalityMetrics     `json:"video_metrics"`
	QuestionnaireScore *int                `json:"questionnaire_score"`
	EEGMock            *PhysiologicalProxy `json:"eeg_mock,omitempty"`
	MLProbability      *float64            `json:"ml_probability,omitempty"`
}

// Validate rejects malformed fusion requests before they reach the engine.
func (r *FusionRequest) Validate() error {
	if r.QuestionnaireScore == nil {
		return NewValidationError("questionnaire_score", "is required", nil)
	}
	if err := validateMetrics(r.VideoMetrics, r.EEGMock); err != nil {
		return err
	}
	if r.MLProbability != nil && !isFinite(*r.MLProbability) {
		return NewValidationError("ml_probability", "must be a finite number", *r.MLProbability)
	}
	return nil
}

// Input converts a validated request into engine input.
func (r *FusionRequest) Input() FusionInput {
	in := FusionInput{
		VideoMetrics:  r.VideoMetrics,
		EEGMock:       r.EEGMock,
		MLProbability: r.MLProbability,
	}
	if r.QuestionnaireScore != nil {
		in.QuestionnaireScore = *r.QuestionnaireScore
	}
	return in
}

// ScreeningRequest is a full screening submission for one patient.
type ScreeningRequest struct {
	TenantID           string              `json:"-"`
	PatientID          string              `json:"patient_id"`
	PatientName        string              `json:"patient_name"`
	VideoMetrics       ModalityMetrics     `json:"video_metrics"`
	QuestionnaireScore *int                `json:"questionnaire_score"`
	Questionnaire      *AQ10Responses      `json:"questionnaire,omitempty"`
	EEGMock            *PhysiologicalProxy `json:"eeg_mock,omitempty"`
}

// Validate rejects malformed screening requests.
func (r *ScreeningRequest) Validate() error {
	if r.TenantID == "" {
		return ErrTenantRequired
	}
	if r.PatientID == "" {
		return NewValidationError("patient_id", "is required", r.PatientID)
	}
	if r.QuestionnaireScore == nil {
		return NewValidationError("questionnaire_score", "is required", nil)
	}
	if r.Questionnaire != nil {
		for i, v := range r.Questionnaire.Items {
			if v != 0 && v != 1 {
				return NewValidationError("questionnaire.items", "items must be 0 or 1", i)
			}
		}
	}
	return validateMetrics(r.VideoMetrics, r.EEGMock)
}

func validateMetrics(m ModalityMetrics, eeg *PhysiologicalProxy) error {
	if !isFinite(m.EyeContact) {
		return NewValidationError("video_metrics.eye_contact", "must be a finite number", m.EyeContact)
	}
	if !isFinite(m.MotorCoordination) {
		return NewValidationError("video_metrics.motor_coordination", "must be a finite number", m.MotorCoordination)
	}
	if eeg != nil && !isFinite(eeg.AlphaThetaRatio) {
		return NewValidationError("eeg_mock.alpha_theta_ratio", "must be a finite number", eeg.AlphaThetaRatio)
	}
	return nil
}

// ScreeningSession is a persisted screening. Every query on it is tenant scoped.
type ScreeningSession struct {
	ID                     string          `json:"id"`
	TenantID               string          `json:"tenant_id"`
	PatientID              string          `json:"patient_id"`
	PatientName            string          `json:"patient_name"`
	RiskScore              float64         `json:"risk_score"`
	Confidence             string          `json:"confidence"`
	ConfidenceLevel        ConfidenceLevel `json:"confidence_level"`
	DissonanceFactor       float64         `json:"dissonance_factor"`
	Interpretation         Interpretation  `json:"interpretation"`
	FusionMethod           FusionMethod    `json:"fusion_method"`
	Breakdown              Breakdown       `json:"breakdown"`
	ClinicalRecommendation string          `json:"clinical_recommendation"`
	CreatedAt              time.Time       `json:"created_at"`
}

// Assessment rebuilds the fusion output stored with the session.
func (s *ScreeningSession) Assessment() RiskAssessment {
	return RiskAssessment{
		RiskScore:        s.RiskScore,
		Confidence:       s.Confidence,
		ConfidenceLevel:  s.ConfidenceLevel,
		DissonanceFactor: s.DissonanceFactor,
		Breakdown:        s.Breakdown,
		Interpretation:   s.Interpretation,
		FusionMethod:     s.FusionMethod,
	}
}

// ScreeningResult is returned to the caller of a screening.
type ScreeningResult struct {
	SessionID       string          `json:"session_id"`
	PatientID       string          `json:"patient_id"`
	RiskResults     RiskAssessment  `json:"risk_results"`
	ClinicalSummary ClinicalSummary `json:"clinical_summary"`
	TherapyPlan     TherapyPlan     `json:"therapy_plan"`
	ModelInfo       ModelInfo       `json:"model_info"`
	ReportURL       string          `json:"report_url"`
	Degradations    []Degradation   `json:"degradations"`
}

// ProgressRecord is a persisted therapy progress sample.
type ProgressRecord struct {
	ID         string    `json:"id"`
	TenantID   string    `json:"tenant_id"`
	PatientID  string    `json:"patient_id"`
	SessionID  string    `json:"session_id,omitempty"`
	Notes      string    `json:"notes,omitempty"`
	RecordedAt time.Time `json:"recorded_at"`
	ProgressSample
}

// Validate checks that every KPI lies in [0,1].
func (p *ProgressRecord) Validate() error {
	if p.TenantID == "" {
		return ErrTenantRequired
	}
	if p.PatientID == "" {
		return NewValidationError("patient_id", "is required", p.PatientID)
	}
	return p.ProgressSample.Validate()
}

// Validate checks that every KPI lies in [0,1].
func (s ProgressSample) Validate() error {
	kpis := []struct {
		field string
		value float64
	}{
		{"social_engagement", s.SocialEngagement},
		{"joint_attention", s.JointAttention},
		{"focus_drift", s.FocusDrift},
	}
	for _, k := range kpis {
		if !isFinite(k.value) || k.value < 0 || k.value > 1 {
			return NewValidationError(k.field, "must be within [0,1]", k.value)
		}
	}
	return nil
}

// MaxSeriesLength caps the points accepted by the stateless trend and
// efficacy calls.
const MaxSeriesLength = 1000

// ValidateScoreSeries rejects risk score series that are too long or leave
// the 0-100 scale.
func ValidateScoreSeries(scores []float64) error {
	if len(scores) > MaxSeriesLength {
		return NewValidationError("historical_scores", "too many points", len(scores))
	}
	for i, v := range scores {
		if !isFinite(v) || v < 0 || v > 100 {
			return NewValidationError(fmt.Sprintf("historical_scores[%d]", i), "must be within [0,100]", v)
		}
	}
	return nil
}

// ValidateSamples rejects progress sample lists that are too long or carry
// a KPI outside [0,1].
func ValidateSamples(samples []ProgressSample) error {
	if len(samples) > MaxSeriesLength {
		return NewValidationError("sessions", "too many samples", len(samples))
	}
	for i, s := range samples {
		if err := s.Validate(); err != nil {
			var verr *ValidationError
			if errors.As(err, &verr) {
				verr.Field = fmt.Sprintf("sessions[%d].%s", i, verr.Field)
			}
			return err
		}
	}
	return nil
}

// TrajectoryReport combines a trend projection with alerting for one patient.
type TrajectoryReport struct {
	PatientID       string          `json:"patient_id"`
	HistoricalCount int             `json:"historical_count"`
	History         ScoreSeries     `json:"history"`
	Prediction      TrendProjection `json:"prediction"`
	ClinicalInsight string          `json:"clinical_insight"`
	Monitor         MonitorReport   `json:"monitor"`
}

// ClinicianReview records a clinician's judgement of a screening interpretation.
type ClinicianReview struct {
	ID              int64          `json:"id"`
	SessionID       string         `json:"session_id"`
	TenantID        string         `json:"tenant_id"`
	EngineResult    Interpretation `json:"engine_result"`
	ClinicianResult Interpretation `json:"clinician_result,omitempty"`
	Verdict         ReviewVerdict  `json:"verdict"`
	Reviewer        string         `json:"reviewer,omitempty"`
	Notes           string         `json:"notes,omitempty"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
}

// Validate checks required review fields.
func (r *ClinicianReview) Validate() error {
	if r.SessionID == "" {
		return NewValidationError("session_id", "is required", r.SessionID)
	}
	if !r.Verdict.IsValid() {
		return NewValidationError("verdict", ErrInvalidVerdict.Error(), r.Verdict)
	}
	if r.EngineResult != "" && !r.EngineResult.IsValid() {
		return NewValidationError("engine_result", ErrInvalidInterpretation.Error(), r.EngineResult)
	}
	if r.ClinicianResult != "" && !r.ClinicianResult.IsValid() {
		return NewValidationError("clinician_result", ErrInvalidInterpretation.Error(), r.ClinicianResult)
	}
	return nil
}
