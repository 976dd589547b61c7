package external

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"

	"github.com/tarang-screening-server/internal/domain"
)

// HTTPNarratorConfig configures the external narrative generator.
type HTTPNarratorConfig struct {
	Endpoint       string               `json:"endpoint"`
	APIKey         string               `json:"api_key"`
	Model          string               `json:"model"`
	Timeout        time.Duration        `json:"timeout"`
	CircuitBreaker CircuitBreakerConfig `json:"circuit_breaker"`
}

// HTTPNarrator asks a text generation service to restate an assessment.
// Fallback to the rule-based narrative is the caller's concern.
type HTTPNarrator struct {
	endpoint   string
	apiKey     string
	model      string
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker
}

type narrateRequest struct {
	Model       string                 `json:"model,omitempty"`
	PatientName string                 `json:"patient_name"`
	Assessment  *domain.RiskAssessment `json:"assessment"`
}

// NewHTTPNarrator creates a breaker-guarded narrative client
func NewHTTPNarrator(config HTTPNarratorConfig, logger *logrus.Logger) *HTTPNarrator {
	if config.Timeout == 0 {
		config.Timeout = 10 * time.Second
	}
	return &HTTPNarrator{
		endpoint:   config.Endpoint,
		apiKey:     config.APIKey,
		model:      config.Model,
		httpClient: &http.Client{Timeout: config.Timeout},
		breaker:    newCircuitBreaker("narrative", config.CircuitBreaker, logger),
	}
}

// Narrate implements domain.Narrator.
func (n *HTTPNarrator) Narrate(ctx context.Context, patientName string, assessment *domain.RiskAssessment) (*domain.ClinicalSummary, error) {
	result, err := n.breaker.Execute(func() (interface{}, error) {
		return n.call(ctx, patientName, assessment)
	})
	if err != nil {
		return nil, fmt.Errorf("narrative generation failed: %w", err)
	}
	return result.(*domain.ClinicalSummary), nil
}

func (n *HTTPNarrator) call(ctx context.Context, patientName string, assessment *domain.RiskAssessment) (*domain.ClinicalSummary, error) {
	body, err := json.Marshal(narrateRequest{
		Model:       n.model,
		PatientName: patientName,
		Assessment:  assessment,
	})
	if err != nil {
		return nil, fmt.Errorf("encoding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if n.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+n.apiKey)
	}

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("narrative service returned %d: %s", resp.StatusCode, bytes.TrimSpace(msg))
	}

	var summary domain.ClinicalSummary
	if err := json.NewDecoder(resp.Body).Decode(&summary); err != nil {
		return nil, fmt.Errorf("decoding narrative: %w", err)
	}
	return &summary, nil
}
