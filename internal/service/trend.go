package service

import (
	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/stat"

	"github.com/tarang-screening-server/internal/domain"
)

// relativeEpsilon keeps relative measures finite for an all-zero series.
const relativeEpsilon = 1e-6

// TrendEngine smooths a chronological risk series, fits a linear trend and
// projects it forward. Series must already be in ascending time order.
type TrendEngine struct {
	logger *logrus.Logger
	params domain.TrendParams
}

// NewTrendEngine creates a trend engine with the given constants
func NewTrendEngine(logger *logrus.Logger, params domain.TrendParams) *TrendEngine {
	return &TrendEngine{logger: logger, params: params}
}

// Predict derives a projection from the history. Short histories produce a
// well-defined Initializing or Stabilizing result rather than an error.
func (e *TrendEngine) Predict(history []float64) domain.TrendProjection {
	n := len(history)
	e.logger.WithField("points", n).Debug("Predicting trajectory")

	switch {
	case n < 2:
		return e.placeholder(domain.TREND_INITIALIZING)
	case n == 2:
		return e.placeholder(domain.TREND_STABILIZING)
	}

	// A window as long as the series leaves a single point, which carries no slope.
	smoothed := movingAverage(history, e.params.SmoothingWindow)
	if len(smoothed) < 2 {
		smoothed = history
	}
	slope := fitSlope(smoothed)

	last := history[n-1]
	predicted := make([]float64, e.params.Horizon)
	for k := range predicted {
		predicted[k] = round(slope*e.params.Dampening*float64(k+1)+last, 2)
	}

	mean, std := stat.PopMeanStdDev(history, nil)
	direction, magnitude := e.classify(slope / (mean + relativeEpsilon))
	volatility := std / (mean + relativeEpsilon)
	confidence := clamp(1-volatility, e.params.MinConfidence, e.params.MaxConfidence)

	projection := domain.TrendProjection{
		Trend:              direction.Label(magnitude),
		Direction:          direction,
		Magnitude:          magnitude,
		Velocity:           round(slope, 4),
		PredictedScores:    predicted,
		ConfidenceInterval: round(confidence, 2),
	}

	e.logger.WithFields(logrus.Fields{
		"trend":      projection.Trend,
		"velocity":   projection.Velocity,
		"confidence": projection.ConfidenceInterval,
	}).Debug("Completed trajectory prediction")

	return projection
}

func (e *TrendEngine) placeholder(direction domain.TrendDirection) domain.TrendProjection {
	return domain.TrendProjection{
		Trend:              direction.Label(domain.MAGNITUDE_NONE),
		Direction:          direction,
		Velocity:           0,
		PredictedScores:    []float64{},
		ConfidenceInterval: e.params.InitialConfidence,
	}
}

func (e *TrendEngine) classify(relativeSlope float64) (domain.TrendDirection, domain.TrendMagnitude) {
	switch {
	case relativeSlope > e.params.AcceleratedSlope:
		return domain.TREND_IMPROVING, domain.MAGNITUDE_ACCELERATED
	case relativeSlope > e.params.SteadySlope:
		return domain.TREND_IMPROVING, domain.MAGNITUDE_STEADY
	case relativeSlope < -e.params.AcceleratedSlope:
		return domain.TREND_REGRESSING, domain.MAGNITUDE_URGENT
	case relativeSlope < -e.params.SteadySlope:
		return domain.TREND_REGRESSING, domain.MAGNITUDE_MILD
	default:
		return domain.TREND_PLATEAUED, domain.MAGNITUDE_NONE
	}
}

// movingAverage returns the simple moving average of xs with the given window,
// of length len(xs)-window+1. Series shorter than the window are returned as is.
func movingAverage(xs []float64, window int) []float64 {
	if window <= 1 || len(xs) < window {
		out := make([]float64, len(xs))
		copy(out, xs)
		return out
	}

	out := make([]float64, 0, len(xs)-window+1)
	for i := 0; i+window <= len(xs); i++ {
		out = append(out, stat.Mean(xs[i:i+window], nil))
	}
	return out
}

// fitSlope is the ordinary least-squares slope of ys against their index.
// A single point carries no slope.
func fitSlope(ys []float64) float64 {
	if len(ys) < 2 {
		return 0
	}
	xs := make([]float64, len(ys))
	for i := range xs {
		xs[i] = float64(i)
	}
	_, beta := stat.LinearRegression(xs, ys, nil, false)
	return beta
}
