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
	componentClassifier = "classifier"
	componentNarrative  = "narrative"
)

// ProbabilitySource resolves an optional classifier probability. Failures are
// reported through the outcome, never as errors.
type ProbabilitySource interface {
	Probability(ctx context.Context, features domain.Features) domain.Outcome[float64]
	ModelInfo() domain.ModelInfo
}

// ScreeningService orchestrates a full screening: feature preparation,
// classifier inference, fusion, narrative, therapy planning and persistence.
type ScreeningService struct {
	logger     *logrus.Logger
	fusion     *FusionEngine
	classifier ProbabilitySource
	narrator   *FallbackNarrator
	sessions   domain.SessionRepository
	reportBase string
}

// NewScreeningService creates a screening service. classifier may be nil when
// no trained model is configured.
func NewScreeningService(
	logger *logrus.Logger,
	fusion *FusionEngine,
	classifier ProbabilitySource,
	narrator *FallbackNarrator,
	sessions domain.SessionRepository,
	reportBase string,
) *ScreeningService {
	return &ScreeningService{
		logger:     logger,
		fusion:     fusion,
		classifier: classifier,
		narrator:   narrator,
		sessions:   sessions,
		reportBase: strings.TrimRight(reportBase, "/"),
	}
}

// Screen runs a screening and persists it. Only validation and persistence
// failures are returned; classifier and narrative failures degrade.
func (s *ScreeningService) Screen(ctx context.Context, req *domain.ScreeningRequest) (*domain.ScreeningResult, error) {
	startTime := time.Now()

	if err := req.Validate(); err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"tenant_id":  req.TenantID,
		"patient_id": req.PatientID,
	}).Info("Starting screening")

	responses := ExpandScore(*req.QuestionnaireScore)
	if req.Questionnaire != nil {
		responses = *req.Questionnaire
	}
	features := BuildFeatures(responses)

	mlOutcome := s.predict(ctx, features)

	in := domain.FusionInput{
		VideoMetrics:       req.VideoMetrics,
		QuestionnaireScore: *req.QuestionnaireScore,
		EEGMock:            req.EEGMock,
	}
	if mlOutcome.IsOK() {
		p := mlOutcome.Value
		in.MLProbability = &p
	}

	assessment, mlCheck := s.fusion.Assess(in)

	degradations := []domain.Degradation{}
	for _, d := range []*domain.Degradation{
		mlOutcome.Degradation(componentClassifier),
		mlCheck.Degradation(componentClassifier),
	} {
		if d != nil {
			degradations = append(degradations, *d)
		}
	}

	narrative := s.narrator.Narrate(ctx, req.PatientName, assessment)
	if d := narrative.Degradation(componentNarrative); d != nil {
		degradations = append(degradations, *d)
	}

	session := &domain.ScreeningSession{
		ID:                     uuid.NewString(),
		TenantID:               req.TenantID,
		PatientID:              req.PatientID,
		PatientName:            req.PatientName,
		RiskScore:              assessment.RiskScore,
		Confidence:             assessment.Confidence,
		ConfidenceLevel:        assessment.ConfidenceLevel,
		DissonanceFactor:       assessment.DissonanceFactor,
		Interpretation:         assessment.Interpretation,
		FusionMethod:           assessment.FusionMethod,
		Breakdown:              assessment.Breakdown,
		ClinicalRecommendation: narrative.Value.Recommendation,
		CreatedAt:              time.Now().UTC(),
	}
	if err := s.sessions.SaveSession(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to save screening session: %w", err)
	}

	result := &domain.ScreeningResult{
		SessionID:       session.ID,
		PatientID:       session.PatientID,
		RiskResults:     *assessment,
		ClinicalSummary: *narrative.Value,
		TherapyPlan:     PlanTherapy(assessment),
		ModelInfo:       s.modelInfo(),
		ReportURL:       fmt.Sprintf("%s/api/v1/screenings/%s/fhir?type=report", s.reportBase, session.ID),
		Degradations:    degradations,
	}

	s.logger.WithFields(logrus.Fields{
		"session_id":      session.ID,
		"patient_id":      session.PatientID,
		"risk_score":      assessment.RiskScore,
		"fusion_method":   assessment.FusionMethod,
		"confidence":      assessment.ConfidenceLevel,
		"degradations":    len(degradations),
		"processing_time": time.Since(startTime),
	}).Info("Screening completed")

	return result, nil
}

// Fuse runs the stateless fusion engine on a validated request.
func (s *ScreeningService) Fuse(req *domain.FusionRequest) (*domain.RiskAssessment, []domain.Degradation, error) {
	if err := req.Validate(); err != nil {
		return nil, nil, err
	}

	assessment, ml := s.fusion.Assess(req.Input())
	degradations := []domain.Degradation{}
	if d := ml.Degradation(componentClassifier); d != nil {
		degradations = append(degradations, *d)
	}
	return assessment, degradations, nil
}

// GetSession returns a stored session for the tenant.
func (s *ScreeningService) GetSession(ctx context.Context, tenantID, sessionID string) (*domain.ScreeningSession, error) {
	if tenantID == "" {
		return nil, domain.ErrTenantRequired
	}
	return s.sessions.GetSession(ctx, tenantID, sessionID)
}

// ListSessions returns a patient's sessions, oldest first.
func (s *ScreeningService) ListSessions(ctx context.Context, tenantID, patientID string, limit int) ([]*domain.ScreeningSession, error) {
	if tenantID == "" {
		return nil, domain.ErrTenantRequired
	}
	return s.sessions.ListSessions(ctx, tenantID, patientID, limit)
}

func (s *ScreeningService) predict(ctx context.Context, features domain.Features) domain.Outcome[float64] {
	if s.classifier == nil {
		return domain.Unavailable(0.0)
	}
	return s.classifier.Probability(ctx, features)
}

func (s *ScreeningService) modelInfo() domain.ModelInfo {
	if s.classifier == nil {
		return domain.ModelInfo{ModelType: "N/A"}
	}
	return s.classifier.ModelInfo()
}
