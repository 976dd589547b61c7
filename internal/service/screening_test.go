package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/tarang-screening-server/internal/domain"
)

// MockSessionRepository is a mock implementation of domain.SessionRepository
type MockSessionRepository struct {
	mock.Mock
}

func (m *MockSessionRepository) SaveSession(ctx context.Context, s *domain.ScreeningSession) error {
	return m.Called(ctx, s).Error(0)
}

func (m *MockSessionRepository) GetSession(ctx context.Context, tenantID, sessionID string) (*domain.ScreeningSession, error) {
	args := m.Called(ctx, tenantID, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ScreeningSession), args.Error(1)
}

func (m *MockSessionRepository) ListSessions(ctx context.Context, tenantID, patientID string, limit int) ([]*domain.ScreeningSession, error) {
	args := m.Called(ctx, tenantID, patientID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.ScreeningSession), args.Error(1)
}

func (m *MockSessionRepository) History(ctx context.Context, tenantID, patientID string) (domain.ScoreSeries, error) {
	args := m.Called(ctx, tenantID, patientID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(domain.ScoreSeries), args.Error(1)
}

// MockProbabilitySource is a mock implementation of ProbabilitySource
type MockProbabilitySource struct {
	mock.Mock
}

func (m *MockProbabilitySource) Probability(ctx context.Context, f domain.Features) domain.Outcome[float64] {
	return m.Called(ctx, f).Get(0).(domain.Outcome[float64])
}

func (m *MockProbabilitySource) ModelInfo() domain.ModelInfo {
	return m.Called().Get(0).(domain.ModelInfo)
}

func newScreeningRequest() *domain.ScreeningRequest {
	q := 10
	return &domain.ScreeningRequest{
		TenantID:           "clinic-a",
		PatientID:          "patient-1",
		PatientName:        "Aarav",
		VideoMetrics:       domain.ModalityMetrics{EyeContact: 0.5, MotorCoordination: 0.7},
		QuestionnaireScore: &q,
	}
}

func newTestScreeningService(repo domain.SessionRepository, classifier ProbabilitySource, narrator domain.Narrator) *ScreeningService {
	logger := newTestLogger()
	return NewScreeningService(
		logger,
		NewFusionEngine(logger, domain.DefaultFusionParams()),
		classifier,
		NewFallbackNarrator(narrator, time.Second, logger),
		repo,
		"https://tarang.example/",
	)
}

func TestScreeningService_Screen_RuleBased(t *testing.T) {
	ctx := context.Background()
	repo := new(MockSessionRepository)
	repo.On("SaveSession", ctx, mock.AnythingOfType("*domain.ScreeningSession")).Return(nil)

	svc := newTestScreeningService(repo, nil, nil)
	result, err := svc.Screen(ctx, newScreeningRequest())
	require.NoError(t, err)

	assert.NotEmpty(t, result.SessionID)
	assert.Equal(t, "patient-1", result.PatientID)
	assert.InDelta(t, 52.5, result.RiskResults.RiskScore, 1e-9)
	assert.Equal(t, domain.RULE_BASED_FUSION, result.RiskResults.FusionMethod)
	assert.False(t, result.ModelInfo.MLAvailable)
	assert.Equal(t, "N/A", result.ModelInfo.ModelType)
	assert.Equal(t, NarrativeSourceRules, result.ClinicalSummary.Source)
	assert.Equal(t, "https://tarang.example/api/v1/screenings/"+result.SessionID+"/fhir?type=report", result.ReportURL)
	assert.Empty(t, result.Degradations)

	saved := repo.Calls[0].Arguments.Get(1).(*domain.ScreeningSession)
	assert.Equal(t, "clinic-a", saved.TenantID)
	assert.Equal(t, result.SessionID, saved.ID)
	assert.Equal(t, result.ClinicalSummary.Recommendation, saved.ClinicalRecommendation)
	assert.False(t, saved.CreatedAt.IsZero())
	repo.AssertExpectations(t)
}

func TestScreeningService_Screen_Hybrid(t *testing.T) {
	ctx := context.Background()
	repo := new(MockSessionRepository)
	repo.On("SaveSession", ctx, mock.Anything).Return(nil)

	classifier := new(MockProbabilitySource)
	classifier.On("Probability", ctx, mock.MatchedBy(func(f domain.Features) bool {
		return f[FeatureTotalScore] == 10
	})).Return(domain.Ok(0.6))
	classifier.On("ModelInfo").Return(domain.ModelInfo{MLAvailable: true, ModelType: "logistic_regression", ModelAccuracy: 0.97})

	svc := newTestScreeningService(repo, classifier, nil)
	result, err := svc.Screen(ctx, newScreeningRequest())
	require.NoError(t, err)

	assert.Equal(t, domain.ML_HYBRID_FUSION, result.RiskResults.FusionMethod)
	assert.InDelta(t, 56.55, result.RiskResults.RiskScore, 1e-9)
	assert.True(t, result.ModelInfo.MLAvailable)
	assert.Empty(t, result.Degradations)
	classifier.AssertExpectations(t)
}

func TestScreeningService_Screen_Degradations(t *testing.T) {
	ctx := context.Background()
	repo := new(MockSessionRepository)
	repo.On("SaveSession", ctx, mock.Anything).Return(nil)

	classifier := new(MockProbabilitySource)
	classifier.On("Probability", ctx, mock.Anything).Return(domain.Degraded(0.0, "circuit breaker is open"))
	classifier.On("ModelInfo").Return(domain.ModelInfo{MLAvailable: true, ModelType: "remote"})

	narrator := new(MockNarrator)
	narrator.On("Narrate", mock.Anything, "Aarav", mock.Anything).Return(nil, errors.New("timeout"))

	svc := newTestScreeningService(repo, classifier, narrator)
	result, err := svc.Screen(ctx, newScreeningRequest())
	require.NoError(t, err)

	assert.Equal(t, domain.RULE_BASED_FUSION, result.RiskResults.FusionMethod)
	require.Len(t, result.Degradations, 2)
	assert.Equal(t, "classifier", result.Degradations[0].Component)
	assert.Equal(t, "circuit breaker is open", result.Degradations[0].Reason)
	assert.Equal(t, "narrative", result.Degradations[1].Component)
	assert.Equal(t, NarrativeSourceRules, result.ClinicalSummary.Source)
}

func TestScreeningService_Screen_UsesItemizedQuestionnaire(t *testing.T) {
	ctx := context.Background()
	repo := new(MockSessionRepository)
	repo.On("SaveSession", ctx, mock.Anything).Return(nil)

	classifier := new(MockProbabilitySource)
	classifier.On("Probability", ctx, mock.MatchedBy(func(f domain.Features) bool {
		return f[FeatureTotalScore] == 2 && f[FeatureJaundice] == 1
	})).Return(domain.Ok(0.3))
	classifier.On("ModelInfo").Return(domain.ModelInfo{MLAvailable: true})

	req := newScreeningRequest()
	req.Questionnaire = &domain.AQ10Responses{Items: [10]int{1, 1}, Jaundice: true}

	svc := newTestScreeningService(repo, classifier, nil)
	_, err := svc.Screen(ctx, req)
	require.NoError(t, err)
	classifier.AssertExpectations(t)
}

func TestScreeningService_Screen_Errors(t *testing.T) {
	ctx := context.Background()

	t.Run("Validation", func(t *testing.T) {
		repo := new(MockSessionRepository)
		svc := newTestScreeningService(repo, nil, nil)

		req := newScreeningRequest()
		req.QuestionnaireScore = nil
		_, err := svc.Screen(ctx, req)

		var verr *domain.ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, "questionnaire_score", verr.Field)
		repo.AssertNotCalled(t, "SaveSession", mock.Anything, mock.Anything)
	})

	t.Run("Missing tenant", func(t *testing.T) {
		svc := newTestScreeningService(new(MockSessionRepository), nil, nil)
		req := newScreeningRequest()
		req.TenantID = ""
		_, err := svc.Screen(ctx, req)
		assert.ErrorIs(t, err, domain.ErrTenantRequired)
	})

	t.Run("Persistence failure is surfaced", func(t *testing.T) {
		repo := new(MockSessionRepository)
		repo.On("SaveSession", ctx, mock.Anything).Return(errors.New("connection refused"))

		svc := newTestScreeningService(repo, nil, nil)
		_, err := svc.Screen(ctx, newScreeningRequest())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to save screening session")
	})
}

func TestScreeningService_Fuse(t *testing.T) {
	svc := newTestScreeningService(new(MockSessionRepository), nil, nil)

	q := 10
	a, degradations, err := svc.Fuse(&domain.FusionRequest{
		VideoMetrics:       domain.ModalityMetrics{EyeContact: 0.5, MotorCoordination: 0.7},
		QuestionnaireScore: &q,
		MLProbability:      ptr(3.0),
	})
	require.NoError(t, err)
	assert.Equal(t, domain.RULE_BASED_FUSION, a.FusionMethod)
	require.Len(t, degradations, 1)

	_, _, err = svc.Fuse(&domain.FusionRequest{})
	var verr *domain.ValidationError
	assert.ErrorAs(t, err, &verr)
}
