package external

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"

	"github.com/tarang-screening-server/internal/domain"
)

// CircuitBreakerConfig represents circuit breaker configuration
type CircuitBreakerConfig struct {
	MaxRequests      uint32        `json:"max_requests"`
	Interval         time.Duration `json:"interval"`
	Timeout          time.Duration `json:"timeout"`
	FailureThreshold uint32        `json:"failure_threshold"`
}

// newCircuitBreaker builds a breaker that opens after FailureThreshold
// consecutive failures and logs every state change.
func newCircuitBreaker(name string, config CircuitBreakerConfig, logger *logrus.Logger) *gobreaker.CircuitBreaker {
	if config.MaxRequests == 0 {
		config.MaxRequests = 3
	}
	if config.Interval == 0 {
		config.Interval = 30 * time.Second
	}
	if config.Timeout == 0 {
		config.Timeout = 60 * time.Second
	}
	if config.FailureThreshold == 0 {
		config.FailureThreshold = 5
	}

	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: config.MaxRequests,
		Interval:    config.Interval,
		Timeout:     config.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= config.FailureThreshold
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.WithFields(logrus.Fields{
				"circuit_breaker": name,
				"from_state":      from.String(),
				"to_state":        to.String(),
			}).Warn("Circuit breaker state changed")
		},
	})
}

// degradationReason turns a call failure into a short reason string.
func degradationReason(err error) string {
	switch {
	case errors.Is(err, gobreaker.ErrOpenState):
		return "circuit breaker is open"
	case errors.Is(err, gobreaker.ErrTooManyRequests):
		return "circuit breaker is half-open"
	case errors.Is(err, context.DeadlineExceeded):
		return "timed out"
	default:
		return err.Error()
	}
}

// ResilientClassifier wraps a classifier with a per-call timeout, a circuit
// breaker and the probability cache. It never returns an error: failures
// surface as a degraded outcome so that fusion falls back to the rule path.
type ResilientClassifier struct {
	classifier domain.Classifier
	cache      *CacheClient
	breaker    *gobreaker.CircuitBreaker
	timeout    time.Duration
	info       domain.ModelInfo
	logger     *logrus.Logger
}

// ResilientClassifierConfig configures the wrapper.
type ResilientClassifierConfig struct {
	Timeout        time.Duration
	CircuitBreaker CircuitBreakerConfig
	Info           domain.ModelInfo
}

// NewResilientClassifier wraps classifier. cache may be nil.
func NewResilientClassifier(classifier domain.Classifier, cache *CacheClient, config ResilientClassifierConfig, logger *logrus.Logger) *ResilientClassifier {
	if config.Timeout == 0 {
		config.Timeout = 2 * time.Second
	}
	config.Info.MLAvailable = true

	return &ResilientClassifier{
		classifier: classifier,
		cache:      cache,
		breaker:    newCircuitBreaker("classifier", config.CircuitBreaker, logger),
		timeout:    config.Timeout,
		info:       config.Info,
		logger:     logger,
	}
}

// Probability returns Ok(p) or Degraded(0, reason).
func (r *ResilientClassifier) Probability(ctx context.Context, features domain.Features) domain.Outcome[float64] {
	key := FeatureKey(features)

	if r.cache != nil {
		if p, found, err := r.cache.GetProbability(ctx, key); err == nil && found {
			return domain.Ok(p)
		} else if err != nil {
			r.logger.WithError(err).Debug("Probability cache read failed")
		}
	}

	result, err := r.breaker.Execute(func() (interface{}, error) {
		callCtx, cancel := context.WithTimeout(ctx, r.timeout)
		defer cancel()
		return r.classifier.Predict(callCtx, features)
	})
	if err != nil {
		reason := degradationReason(err)
		r.logger.WithFields(logrus.Fields{
			"component": "classifier",
			"reason":    reason,
		}).Warn("Classifier unavailable, using rule-based fusion")
		return domain.Degraded(0.0, reason)
	}

	p := result.(float64)
	if math.IsNaN(p) || p < 0 || p > 1 {
		reason := fmt.Sprintf("probability %v outside [0,1]", p)
		r.logger.WithField("reason", reason).Warn("Classifier returned invalid probability")
		return domain.Degraded(0.0, reason)
	}

	if r.cache != nil {
		if err := r.cache.SetProbability(ctx, key, p); err != nil {
			r.logger.WithError(err).Debug("Probability cache write failed")
		}
	}
	return domain.Ok(p)
}

// ModelInfo describes the wrapped model.
func (r *ResilientClassifier) ModelInfo() domain.ModelInfo {
	return r.info
}

// State returns the breaker state for health reporting.
func (r *ResilientClassifier) State() gobreaker.State {
	return r.breaker.State()
}
