package mcp

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tarang-screening-server/internal/config"
	"github.com/tarang-screening-server/internal/domain"
	"github.com/tarang-screening-server/internal/feedback"
	"github.com/tarang-screening-server/pkg/external"
)

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func liteConfig(t *testing.T) *config.LiteConfig {
	t.Helper()
	cfg := config.DefaultLiteConfig()
	cfg.DataDir = filepath.Join(t.TempDir(), "tarang")
	cfg.ReportBase = "https://tarang.example/"
	return cfg
}

// connect starts the lite server on an in-memory transport and returns a
// client session.
func connect(t *testing.T, cfg *config.LiteConfig) *mcp.ClientSession {
	t.Helper()
	lite, err := NewLiteServer(cfg, WithLogger(quietLogger()))
	require.NoError(t, err)
	t.Cleanup(func() { lite.Close() })

	ctx := context.Background()
	clientTransport, serverTransport := mcp.NewInMemoryTransports()

	ss, err := lite.Server().MCPServer().Connect(ctx, serverTransport, nil)
	require.NoError(t, err)

	client := mcp.NewClient(&mcp.Implementation{Name: "test-client", Version: "v0.0.1"}, nil)
	cs, err := client.Connect(ctx, clientTransport, nil)
	require.NoError(t, err)

	t.Cleanup(func() {
		cs.Close()
		ss.Wait()
	})
	return cs
}

func callTool(t *testing.T, cs *mcp.ClientSession, name string, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	res, err := cs.CallTool(ctx, &mcp.CallToolParams{Name: name, Arguments: args})
	require.NoError(t, err)
	return res
}

func decodeResult[T any](t *testing.T, res *mcp.CallToolResult) T {
	t.Helper()
	require.False(t, res.IsError, "tool returned an error: %v", res.Content)
	require.Len(t, res.Content, 1)
	text, ok := res.Content[0].(*mcp.TextContent)
	require.True(t, ok)

	var v T
	require.NoError(t, json.Unmarshal([]byte(text.Text), &v))
	return v
}

func TestLiteServer_ListTools(t *testing.T) {
	cs := connect(t, liteConfig(t))

	res, err := cs.ListTools(context.Background(), nil)
	require.NoError(t, err)

	names := make([]string, 0, len(res.Tools))
	for _, tool := range res.Tools {
		names = append(names, tool.Name)
	}
	assert.ElementsMatch(t, []string{
		"fuse_risk", "predict_trajectory", "analyze_efficacy",
		"screen_patient", "patient_trajectory", "record_progress",
		"submit_review", "review_agreement", "export_reviews", "import_reviews",
	}, names)
}

func TestTools_Engine(t *testing.T) {
	cs := connect(t, liteConfig(t))

	t.Run("fuse_risk", func(t *testing.T) {
		res := callTool(t, cs, "fuse_risk", map[string]any{
			"eye_contact":         0.5,
			"motor_coordination":  0.7,
			"questionnaire_score": 10,
		})
		body := decodeResult[fuseRiskResult](t, res)
		assert.Equal(t, 52.5, body.Assessment.RiskScore)
		assert.Equal(t, domain.MODERATE_RISK, body.Assessment.Interpretation)
		assert.Empty(t, body.Degradations)
	})

	t.Run("fuse_risk with bad probability degrades", func(t *testing.T) {
		res := callTool(t, cs, "fuse_risk", map[string]any{
			"questionnaire_score": 10,
			"ml_probability":      3.0,
		})
		body := decodeResult[fuseRiskResult](t, res)
		assert.Equal(t, domain.RULE_BASED_FUSION, body.Assessment.FusionMethod)
		assert.Len(t, body.Degradations, 1)
	})

	t.Run("predict_trajectory", func(t *testing.T) {
		res := callTool(t, cs, "predict_trajectory", map[string]any{
			"historical_scores": []float64{30, 35, 42, 48, 55},
		})
		body := decodeResult[trajectoryResult](t, res)
		assert.Equal(t, domain.TREND_IMPROVING, body.Direction)
		assert.Len(t, body.PredictedScores, domain.DefaultTrendParams().Horizon)
		assert.NotEmpty(t, body.ClinicalInsight)
	})

	t.Run("predict_trajectory with one point", func(t *testing.T) {
		res := callTool(t, cs, "predict_trajectory", map[string]any{
			"historical_scores": []float64{40},
		})
		body := decodeResult[trajectoryResult](t, res)
		assert.Equal(t, domain.TREND_INITIALIZING, body.Direction)
	})

	t.Run("analyze_efficacy", func(t *testing.T) {
		res := callTool(t, cs, "analyze_efficacy", map[string]any{
			"sessions": []map[string]float64{
				{"social_engagement": 0.4, "joint_attention": 0.3, "focus_drift": 0.2},
			},
		})
		body := decodeResult[domain.EfficacyReport](t, res)
		assert.Equal(t, domain.EFFICACY_INSUFFICIENT_DATA, body.DriftStatus)
	})
}

func TestTools_PatientWorkflow(t *testing.T) {
	cs := connect(t, liteConfig(t))

	var sessionID string
	for _, score := range []int{8, 10, 14} {
		res := callTool(t, cs, "screen_patient", map[string]any{
			"tenant_id":           "clinic-a",
			"patient_id":          "p-1",
			"patient_name":        "Asha",
			"eye_contact":         0.5,
			"motor_coordination":  0.7,
			"questionnaire_score": score,
		})
		result := decodeResult[domain.ScreeningResult](t, res)
		assert.Equal(t, "p-1", result.PatientID)
		assert.Equal(t, "https://tarang.example/api/v1/screenings/"+result.SessionID+"/fhir?type=report", result.ReportURL)
		assert.False(t, result.ModelInfo.MLAvailable)
		sessionID = result.SessionID
	}

	res := callTool(t, cs, "patient_trajectory", map[string]any{
		"tenant_id":  "clinic-a",
		"patient_id": "p-1",
	})
	report := decodeResult[domain.TrajectoryReport](t, res)
	assert.Equal(t, 3, report.HistoricalCount)
	assert.Equal(t, domain.MONITOR_IMPROVEMENT, report.Monitor.Status)

	other := decodeResult[domain.TrajectoryReport](t, callTool(t, cs, "patient_trajectory", map[string]any{
		"tenant_id":  "clinic-b",
		"patient_id": "p-1",
	}))
	assert.Zero(t, other.HistoricalCount)

	rec := decodeResult[domain.ProgressRecord](t, callTool(t, cs, "record_progress", map[string]any{
		"tenant_id":         "clinic-a",
		"patient_id":        "p-1",
		"social_engagement": 0.6,
		"joint_attention":   0.5,
		"focus_drift":       0.2,
	}))
	assert.NotEmpty(t, rec.ID)

	review := decodeResult[domain.ClinicianReview](t, callTool(t, cs, "submit_review", map[string]any{
		"tenant_id":  "clinic-a",
		"session_id": sessionID,
		"verdict":    "agree",
	}))
	assert.Equal(t, domain.ReviewVerdict("agree"), review.Verdict)
	assert.NotEmpty(t, review.EngineResult)

	stats := decodeResult[feedback.AgreementStats](t, callTool(t, cs, "review_agreement", map[string]any{
		"tenant_id": "clinic-a",
	}))
	assert.Equal(t, int64(1), stats.Total)
	assert.Equal(t, 1.0, stats.Rate)
}

func TestTools_Errors(t *testing.T) {
	cs := connect(t, liteConfig(t))

	t.Run("screen_patient without tenant", func(t *testing.T) {
		res := callTool(t, cs, "screen_patient", map[string]any{
			"tenant_id":           "",
			"patient_id":          "p-1",
			"questionnaire_score": 10,
		})
		assert.True(t, res.IsError)
	})

	t.Run("submit_review for another tenant's session", func(t *testing.T) {
		result := decodeResult[domain.ScreeningResult](t, callTool(t, cs, "screen_patient", map[string]any{
			"tenant_id":           "clinic-a",
			"patient_id":          "p-2",
			"questionnaire_score": 10,
		}))
		res := callTool(t, cs, "submit_review", map[string]any{
			"tenant_id":  "clinic-b",
			"session_id": result.SessionID,
			"verdict":    "agree",
		})
		assert.True(t, res.IsError)
	})

	t.Run("record_progress out of range", func(t *testing.T) {
		res := callTool(t, cs, "record_progress", map[string]any{
			"tenant_id":         "clinic-a",
			"patient_id":        "p-1",
			"social_engagement": 1.5,
			"joint_attention":   0.5,
			"focus_drift":       0.2,
		})
		assert.True(t, res.IsError)
	})

	t.Run("predict_trajectory off-scale scores", func(t *testing.T) {
		res := callTool(t, cs, "predict_trajectory", map[string]any{
			"historical_scores": []float64{10, 60, 1e300},
		})
		assert.True(t, res.IsError)
	})

	t.Run("analyze_efficacy KPI outside unit interval", func(t *testing.T) {
		res := callTool(t, cs, "analyze_efficacy", map[string]any{
			"sessions": []map[string]float64{{"social_engagement": -2, "focus_drift": 3}},
		})
		assert.True(t, res.IsError)
	})

	t.Run("import_reviews outside export directory", func(t *testing.T) {
		res := callTool(t, cs, "import_reviews", map[string]any{"file": "../reviews.db"})
		assert.True(t, res.IsError)
	})
}

func TestTools_ExportImportRoundTrip(t *testing.T) {
	cfg := liteConfig(t)
	cs := connect(t, cfg)

	result := decodeResult[domain.ScreeningResult](t, callTool(t, cs, "screen_patient", map[string]any{
		"tenant_id":           "clinic-a",
		"patient_id":          "p-1",
		"questionnaire_score": 10,
	}))
	decodeResult[domain.ClinicianReview](t, callTool(t, cs, "submit_review", map[string]any{
		"tenant_id":  "clinic-a",
		"session_id": result.SessionID,
		"verdict":    "disagree",
	}))

	exported := decodeResult[exportResult](t, callTool(t, cs, "export_reviews", map[string]any{}))
	assert.Equal(t, int64(1), exported.Count)
	assert.Equal(t, cfg.ExportDir(), filepath.Dir(exported.Path))
	_, err := os.Stat(exported.Path)
	require.NoError(t, err)

	imported := decodeResult[importResult](t, callTool(t, cs, "import_reviews", map[string]any{
		"file": filepath.Base(exported.Path),
	}))
	assert.Equal(t, 0, imported.Imported)
	assert.Equal(t, 1, imported.Skipped)
}

func TestLiteServer_WithModel(t *testing.T) {
	cfg := liteConfig(t)
	artifact := external.ModelArtifact{
		Accuracy:       0.9,
		DatasetSource:  "UCI Autism Screening Adult (AQ-10)",
		FeatureColumns: []string{"A1_Score"},
		Coefficients:   []float64{2.0},
		Intercept:      -1.0,
	}
	data, err := json.Marshal(artifact)
	require.NoError(t, err)
	cfg.ModelPath = filepath.Join(t.TempDir(), "model.json")
	require.NoError(t, os.WriteFile(cfg.ModelPath, data, 0o600))

	cs := connect(t, cfg)
	result := decodeResult[domain.ScreeningResult](t, callTool(t, cs, "screen_patient", map[string]any{
		"tenant_id":           "clinic-a",
		"patient_id":          "p-1",
		"questionnaire_score": 10,
	}))
	assert.True(t, result.ModelInfo.MLAvailable)
	assert.Equal(t, domain.ML_HYBRID_FUSION, result.RiskResults.FusionMethod)
	assert.Empty(t, result.Degradations)
}

func TestNewLiteServer_BadModelPath(t *testing.T) {
	cfg := liteConfig(t)
	cfg.ModelPath = filepath.Join(t.TempDir(), "missing.json")

	_, err := NewLiteServer(cfg, WithLogger(quietLogger()))
	assert.Error(t, err)
}

func TestResourcesAndPrompts(t *testing.T) {
	cs := connect(t, liteConfig(t))
	ctx := context.Background()

	result := decodeResult[domain.ScreeningResult](t, callTool(t, cs, "screen_patient", map[string]any{
		"tenant_id":           "clinic-a",
		"patient_id":          "p-9",
		"patient_name":        "Ravi",
		"eye_contact":         0.5,
		"motor_coordination":  0.7,
		"questionnaire_score": 10,
	}))

	t.Run("observation", func(t *testing.T) {
		uri := "tarang://tenants/clinic-a/screenings/" + result.SessionID
		res, err := cs.ReadResource(ctx, &mcp.ReadResourceParams{URI: uri})
		require.NoError(t, err)
		require.Len(t, res.Contents, 1)
		assert.Equal(t, fhirMIMEType, res.Contents[0].MIMEType)

		var obs map[string]any
		require.NoError(t, json.Unmarshal([]byte(res.Contents[0].Text), &obs))
		assert.Equal(t, "Observation", obs["resourceType"])
	})

	t.Run("diagnostic report", func(t *testing.T) {
		uri := "tarang://tenants/clinic-a/screenings/" + result.SessionID + "/report"
		res, err := cs.ReadResource(ctx, &mcp.ReadResourceParams{URI: uri})
		require.NoError(t, err)

		var rep map[string]any
		require.NoError(t, json.Unmarshal([]byte(res.Contents[0].Text), &rep))
		assert.Equal(t, "DiagnosticReport", rep["resourceType"])
	})

	t.Run("other tenant is not found", func(t *testing.T) {
		_, err := cs.ReadResource(ctx, &mcp.ReadResourceParams{
			URI: "tarang://tenants/clinic-b/screenings/" + result.SessionID,
		})
		assert.Error(t, err)
	})

	t.Run("trajectory", func(t *testing.T) {
		res, err := cs.ReadResource(ctx, &mcp.ReadResourceParams{
			URI: "tarang://tenants/clinic-a/patients/p-9/trajectory",
		})
		require.NoError(t, err)

		var traj domain.TrajectoryReport
		require.NoError(t, json.Unmarshal([]byte(res.Contents[0].Text), &traj))
		assert.Equal(t, 1, traj.HistoricalCount)
	})

	t.Run("screening_review prompt", func(t *testing.T) {
		res, err := cs.GetPrompt(ctx, &mcp.GetPromptParams{
			Name:      "screening_review",
			Arguments: map[string]string{"tenant_id": "clinic-a", "session_id": result.SessionID},
		})
		require.NoError(t, err)
		require.Len(t, res.Messages, 1)
		text, ok := res.Messages[0].Content.(*mcp.TextContent)
		require.True(t, ok)
		assert.Contains(t, text.Text, "Moderate Risk")
		assert.Contains(t, text.Text, "submit_review")
	})

	t.Run("trajectory_review prompt", func(t *testing.T) {
		res, err := cs.GetPrompt(ctx, &mcp.GetPromptParams{
			Name:      "trajectory_review",
			Arguments: map[string]string{"tenant_id": "clinic-a", "patient_id": "p-9"},
		})
		require.NoError(t, err)
		text, ok := res.Messages[0].Content.(*mcp.TextContent)
		require.True(t, ok)
		assert.Contains(t, text.Text, "1 stored screening")
	})
}
