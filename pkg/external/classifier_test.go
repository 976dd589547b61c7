package external

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tarang-screening-server/internal/domain"
)

func testArtifact() ModelArtifact {
	return ModelArtifact{
		Accuracy:       0.92,
		DatasetSource:  "UCI Autism Screening Adult (AQ-10)",
		FeatureColumns: []string{"A1_Score", "A2_Score", "age"},
		Coefficients:   []float64{1.5, -0.5, 0.0},
		Intercept:      -1.0,
	}
}

func TestLogisticModel_Predict(t *testing.T) {
	m, err := NewLogisticModel(testArtifact())
	require.NoError(t, err)

	// z = -1 + 1.5 = 0.5
	p, err := m.Predict(context.Background(), domain.Features{"A1_Score": 1, "age": 4})
	require.NoError(t, err)
	assert.InDelta(t, 0.6224593, p, 1e-6)

	// z = -1
	p, err = m.Predict(context.Background(), domain.Features{})
	require.NoError(t, err)
	assert.InDelta(t, 0.2689414, p, 1e-6)

	info := m.Info()
	assert.True(t, info.MLAvailable)
	assert.Equal(t, "logistic_regression", info.ModelType)
	assert.Equal(t, 0.92, info.ModelAccuracy)
}

func TestLogisticModel_RejectsBadArtifacts(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*ModelArtifact)
	}{
		{"No columns", func(a *ModelArtifact) { a.FeatureColumns = nil; a.Coefficients = nil }},
		{"Length mismatch", func(a *ModelArtifact) { a.Coefficients = a.Coefficients[:1] }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := testArtifact()
			tt.mutate(&a)
			_, err := NewLogisticModel(a)
			assert.Error(t, err)
		})
	}
}

func TestLoadLogisticModel(t *testing.T) {
	dir := t.TempDir()

	data, err := json.Marshal(testArtifact())
	require.NoError(t, err)
	path := filepath.Join(dir, "model.json")
	require.NoError(t, os.WriteFile(path, data, 0o600))

	m, err := LoadLogisticModel(path)
	require.NoError(t, err)
	assert.Equal(t, "UCI Autism Screening Adult (AQ-10)", m.Info().DatasetSource)

	_, err = LoadLogisticModel(filepath.Join(dir, "missing.json"))
	assert.Error(t, err)

	garbage := filepath.Join(dir, "garbage.json")
	require.NoError(t, os.WriteFile(garbage, []byte("{not json"), 0o600))
	_, err = LoadLogisticModel(garbage)
	assert.Error(t, err)
}

func TestHTTPClassifier_Predict(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))

			var req predictRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, 1.0, req.Features["A1_Score"])

			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"probability": 0.81}`))
		}))
		defer server.Close()

		c := NewHTTPClassifier(HTTPClassifierConfig{Endpoint: server.URL, APIKey: "secret", RateLimit: 100})
		p, err := c.Predict(context.Background(), domain.Features{"A1_Score": 1})
		require.NoError(t, err)
		assert.Equal(t, 0.81, p)
	})

	t.Run("Server error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "model not loaded", http.StatusServiceUnavailable)
		}))
		defer server.Close()

		c := NewHTTPClassifier(HTTPClassifierConfig{Endpoint: server.URL, RateLimit: 100})
		_, err := c.Predict(context.Background(), domain.Features{})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "503")
	})

	t.Run("Missing probability", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"label": "ASD"}`))
		}))
		defer server.Close()

		c := NewHTTPClassifier(HTTPClassifierConfig{Endpoint: server.URL, RateLimit: 100, Timeout: time.Second})
		_, err := c.Predict(context.Background(), domain.Features{})
		assert.ErrorContains(t, err, "no probability")
	})
}
