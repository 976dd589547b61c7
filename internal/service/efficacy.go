package service

import (
	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/stat"

	"github.com/tarang-screening-server/internal/domain"
)

// EfficacyAnalyzer measures engagement drift across intervention sessions.
type EfficacyAnalyzer struct {
	logger *logrus.Logger
	params domain.TrendParams
}

// NewEfficacyAnalyzer creates an analyzer with the given constants
func NewEfficacyAnalyzer(logger *logrus.Logger, params domain.TrendParams) *EfficacyAnalyzer {
	return &EfficacyAnalyzer{logger: logger, params: params}
}

// Analyze compares recent engagement against the baseline sessions.
// Samples must be in ascending time order.
func (a *EfficacyAnalyzer) Analyze(samples []domain.ProgressSample) domain.EfficacyReport {
	n := len(samples)
	a.logger.WithField("samples", n).Debug("Analyzing intervention efficacy")

	if n < 2 {
		return domain.EfficacyReport{
			DriftStatus:          domain.EFFICACY_INSUFFICIENT_DATA,
			InterventionEfficacy: 1.0,
		}
	}

	engagement := make([]float64, n)
	drift := make([]float64, n)
	for i, s := range samples {
		engagement[i] = s.SocialEngagement
		drift[i] = s.FocusDrift
	}

	baseline := stat.Mean(engagement[:2], nil)
	recent := stat.Mean(engagement[n-2:], nil)
	efficacy := recent / (baseline + relativeEpsilon)

	status := domain.EFFICACY_OPTIMAL
	switch {
	case efficacy < a.params.EfficacyLowerBound:
		status = domain.EFFICACY_DRIFTING
	case efficacy > a.params.EfficacyUpperBound:
		status = domain.EFFICACY_ACCELERATED
	}

	report := domain.EfficacyReport{
		DriftStatus:          status,
		InterventionEfficacy: round(efficacy, 4),
		FocusStability:       round(1-stat.Mean(drift, nil), 4),
		SocialVelocity:       round(lastGradient(engagement), 4),
	}

	a.logger.WithFields(logrus.Fields{
		"drift_status": report.DriftStatus,
		"efficacy":     report.InterventionEfficacy,
	}).Debug("Completed efficacy analysis")

	return report
}

// lastGradient is the final element of the discrete gradient of ys, which at
// the boundary reduces to the backward difference.
func lastGradient(ys []float64) float64 {
	n := len(ys)
	if n <= 1 {
		return 0
	}
	return ys[n-1] - ys[n-2]
}
