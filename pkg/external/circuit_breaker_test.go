package external

import (
	"context"
	"errors"
	"io"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tarang-screening-server/internal/domain"
)

// stubClassifier counts calls and delegates to fn.
type stubClassifier struct {
	calls atomic.Int32
	fn    func(ctx context.Context) (float64, error)
}

func (s *stubClassifier) Predict(ctx context.Context, _ domain.Features) (float64, error) {
	s.calls.Add(1)
	return s.fn(ctx)
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func localCache(t *testing.T) *CacheClient {
	t.Helper()
	c, err := NewCacheClient(domain.CacheConfig{LocalSize: 16, DefaultTTL: time.Minute})
	require.NoError(t, err)
	return c
}

func TestResilientClassifier_CachesProbabilities(t *testing.T) {
	stub := &stubClassifier{fn: func(context.Context) (float64, error) { return 0.7, nil }}
	rc := NewResilientClassifier(stub, localCache(t), ResilientClassifierConfig{
		Info: domain.ModelInfo{ModelType: "logistic_regression", ModelAccuracy: 0.9},
	}, quietLogger())

	features := domain.Features{"A1_Score": 1, "age": 5}
	first := rc.Probability(context.Background(), features)
	second := rc.Probability(context.Background(), domain.Features{"age": 5, "A1_Score": 1})

	assert.True(t, first.IsOK())
	assert.Equal(t, 0.7, first.Value)
	assert.True(t, second.IsOK())
	assert.Equal(t, int32(1), stub.calls.Load())
	assert.True(t, rc.ModelInfo().MLAvailable)
}

func TestResilientClassifier_BreakerOpens(t *testing.T) {
	stub := &stubClassifier{fn: func(context.Context) (float64, error) { return 0, errors.New("connection refused") }}
	rc := NewResilientClassifier(stub, nil, ResilientClassifierConfig{
		CircuitBreaker: CircuitBreakerConfig{FailureThreshold: 2, Timeout: time.Minute},
	}, quietLogger())

	ctx := context.Background()
	for i := 0; i < 2; i++ {
		out := rc.Probability(ctx, domain.Features{})
		assert.Equal(t, domain.OUTCOME_DEGRADED, out.Status)
		assert.Equal(t, "connection refused", out.Reason)
	}
	assert.Equal(t, gobreaker.StateOpen, rc.State())

	out := rc.Probability(ctx, domain.Features{})
	assert.Equal(t, domain.OUTCOME_DEGRADED, out.Status)
	assert.Equal(t, "circuit breaker is open", out.Reason)
	assert.Equal(t, 0.0, out.Value)
	assert.Equal(t, int32(2), stub.calls.Load())
}

func TestResilientClassifier_Timeout(t *testing.T) {
	stub := &stubClassifier{fn: func(ctx context.Context) (float64, error) {
		<-ctx.Done()
		return 0, ctx.Err()
	}}
	rc := NewResilientClassifier(stub, nil, ResilientClassifierConfig{Timeout: 20 * time.Millisecond}, quietLogger())

	out := rc.Probability(context.Background(), domain.Features{})
	assert.Equal(t, domain.OUTCOME_DEGRADED, out.Status)
	assert.Equal(t, "timed out", out.Reason)
}

func TestResilientClassifier_RejectsOutOfRange(t *testing.T) {
	stub := &stubClassifier{fn: func(context.Context) (float64, error) { return 1.4, nil }}
	cache := localCache(t)
	rc := NewResilientClassifier(stub, cache, ResilientClassifierConfig{}, quietLogger())

	out := rc.Probability(context.Background(), domain.Features{"A1_Score": 1})
	assert.Equal(t, domain.OUTCOME_DEGRADED, out.Status)
	assert.Contains(t, out.Reason, "outside [0,1]")

	_, found, err := cache.GetProbability(context.Background(), FeatureKey(domain.Features{"A1_Score": 1}))
	require.NoError(t, err)
	assert.False(t, found)
}
