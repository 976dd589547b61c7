// Package external holds the adapters for the optional collaborators of the
// screening engine: the trained AQ-10 classifier and the narrative generator.
// Every adapter is guarded by a circuit breaker and degrades instead of failing.
package external

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"os"
	"time"

	"golang.org/x/time/rate"

	"github.com/tarang-screening-server/internal/domain"
)

// ModelArtifact is the on-disk form of a trained logistic regression model.
type ModelArtifact struct {
	ModelType      string    `json:"model_type"`
	Accuracy       float64   `json:"accuracy"`
	DatasetSource  string    `json:"dataset_source,omitempty"`
	FeatureColumns []string  `json:"feature_columns"`
	Coefficients   []float64 `json:"coefficients"`
	Intercept      float64   `json:"intercept"`
}

// LogisticModel is a read-only classifier evaluated in process.
type LogisticModel struct {
	artifact ModelArtifact
}

// NewLogisticModel validates an artifact and wraps it as a classifier.
func NewLogisticModel(a ModelArtifact) (*LogisticModel, error) {
	if len(a.FeatureColumns) == 0 {
		return nil, fmt.Errorf("model artifact has no feature columns")
	}
	if len(a.FeatureColumns) != len(a.Coefficients) {
		return nil, fmt.Errorf("model artifact has %d columns but %d coefficients",
			len(a.FeatureColumns), len(a.Coefficients))
	}
	for i, c := range a.Coefficients {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return nil, fmt.Errorf("coefficient %d is not finite", i)
		}
	}
	if a.ModelType == "" {
		a.ModelType = "logistic_regression"
	}
	return &LogisticModel{artifact: a}, nil
}

// LoadLogisticModel reads a JSON model artifact from disk.
func LoadLogisticModel(path string) (*LogisticModel, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading model artifact: %w", err)
	}
	var a ModelArtifact
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("decoding model artifact: %w", err)
	}
	return NewLogisticModel(a)
}

// Predict returns sigmoid(intercept + coefficients · features).
func (m *LogisticModel) Predict(_ context.Context, features domain.Features) (float64, error) {
	z := m.artifact.Intercept
	for i, x := range features.Vector(m.artifact.FeatureColumns) {
		z += m.artifact.Coefficients[i] * x
	}
	return 1 / (1 + math.Exp(-z)), nil
}

// Info describes the loaded model.
func (m *LogisticModel) Info() domain.ModelInfo {
	return domain.ModelInfo{
		MLAvailable:   true,
		ModelType:     m.artifact.ModelType,
		ModelAccuracy: m.artifact.Accuracy,
		DatasetSource: m.artifact.DatasetSource,
	}
}

// HTTPClassifierConfig configures a remote inference endpoint.
type HTTPClassifierConfig struct {
	Endpoint  string        `json:"endpoint"`
	APIKey    string        `json:"api_key"`
	Timeout   time.Duration `json:"timeout"`
	RateLimit int           `json:"rate_limit"` // requests per second
}

// HTTPClassifier calls a remote inference service that answers
// {"features": {...}} with {"probability": p}.
type HTTPClassifier struct {
	endpoint   string
	apiKey     string
	httpClient *http.Client
	rateLimit  *rate.Limiter
}

type predictRequest struct {
	Features domain.Features `json:"features"`
}

type predictResponse struct {
	Probability *float64 `json:"probability"`
}

// NewHTTPClassifier creates a rate-limited inference client
func NewHTTPClassifier(config HTTPClassifierConfig) *HTTPClassifier {
	if config.Timeout == 0 {
		config.Timeout = 5 * time.Second
	}
	if config.RateLimit == 0 {
		config.RateLimit = 10
	}

	return &HTTPClassifier{
		endpoint: config.Endpoint,
		apiKey:   config.APIKey,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		rateLimit: rate.NewLimiter(rate.Limit(config.RateLimit), 1),
	}
}

// Predict posts the feature map and decodes the probability.
func (c *HTTPClassifier) Predict(ctx context.Context, features domain.Features) (float64, error) {
	if err := c.rateLimit.Wait(ctx); err != nil {
		return 0, fmt.Errorf("rate limit wait failed: %w", err)
	}

	body, err := json.Marshal(predictRequest{Features: features})
	if err != nil {
		return 0, fmt.Errorf("encoding features: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("inference request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return 0, fmt.Errorf("inference service returned %d: %s", resp.StatusCode, bytes.TrimSpace(msg))
	}

	var out predictResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return 0, fmt.Errorf("decoding inference response: %w", err)
	}
	if out.Probability == nil {
		return 0, fmt.Errorf("inference response has no probability")
	}
	return *out.Probability, nil
}
