package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/tarang-screening-server/internal/domain"
)

// OutcomeService serves longitudinal views of a patient: trajectory
// projections and intervention efficacy.
type OutcomeService struct {
	logger   *logrus.Logger
	sessions domain.SessionRepository
	progress domain.ProgressRepository
	trend    *TrendEngine
	efficacy *EfficacyAnalyzer
	params   domain.TrendParams
}

// NewOutcomeService creates an outcome service
func NewOutcomeService(
	logger *logrus.Logger,
	sessions domain.SessionRepository,
	progress domain.ProgressRepository,
	params domain.TrendParams,
) *OutcomeService {
	return &OutcomeService{
		logger:   logger,
		sessions: sessions,
		progress: progress,
		trend:    NewTrendEngine(logger, params),
		efficacy: NewEfficacyAnalyzer(logger, params),
		params:   params,
	}
}

// Trend exposes the stateless trend engine.
func (o *OutcomeService) Trend() *TrendEngine {
	return o.trend
}

// Analyzer exposes the stateless efficacy analyzer.
func (o *OutcomeService) Analyzer() *EfficacyAnalyzer {
	return o.efficacy
}

// Trajectory projects a patient's stored risk history.
func (o *OutcomeService) Trajectory(ctx context.Context, tenantID, patientID string) (*domain.TrajectoryReport, error) {
	if tenantID == "" {
		return nil, domain.ErrTenantRequired
	}

	history, err := o.sessions.History(ctx, tenantID, patientID)
	if err != nil {
		return nil, fmt.Errorf("failed to load screening history: %w", err)
	}
	if history == nil {
		history = domain.ScoreSeries{}
	}

	prediction := o.trend.Predict(history.Scores())
	report := &domain.TrajectoryReport{
		PatientID:       patientID,
		HistoricalCount: len(history),
		History:         history,
		Prediction:      prediction,
		ClinicalInsight: InterventionAlert(prediction),
		Monitor:         CompareLatest(history, o.params.MonitorDeltaTrigger),
	}

	o.logger.WithFields(logrus.Fields{
		"patient_id": patientID,
		"points":     len(history),
		"trend":      prediction.Trend,
	}).Info("Trajectory projected")

	return report, nil
}

// RecordProgress validates and stores a therapy progress sample.
func (o *OutcomeService) RecordProgress(ctx context.Context, record *domain.ProgressRecord) error {
	if err := record.Validate(); err != nil {
		return err
	}
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.RecordedAt.IsZero() {
		record.RecordedAt = time.Now().UTC()
	}

	if err := o.progress.SaveProgress(ctx, record); err != nil {
		return fmt.Errorf("failed to save progress: %w", err)
	}

	o.logger.WithFields(logrus.Fields{
		"patient_id":  record.PatientID,
		"progress_id": record.ID,
	}).Info("Progress recorded")
	return nil
}

// Efficacy analyzes a patient's stored progress samples.
func (o *OutcomeService) Efficacy(ctx context.Context, tenantID, patientID string) (*domain.EfficacyReport, error) {
	if tenantID == "" {
		return nil, domain.ErrTenantRequired
	}

	records, err := o.progress.ListProgress(ctx, tenantID, patientID)
	if err != nil {
		return nil, fmt.Errorf("failed to load progress: %w", err)
	}

	samples := make([]domain.ProgressSample, len(records))
	for i, r := range records {
		samples[i] = r.ProgressSample
	}

	report := o.efficacy.Analyze(samples)
	return &report, nil
}
