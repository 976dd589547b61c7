package report

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tarang-screening-server/internal/domain"
)

func testTrajectory() *domain.TrajectoryReport {
	base := time.Date(2026, 1, 5, 9, 0, 0, 0, time.UTC)
	history := domain.ScoreSeries{}
	for i, v := range []float64{60, 58, 52, 45, 38} {
		history = append(history, domain.ScorePoint{Timestamp: base.AddDate(0, 0, 7*i), RiskScore: v})
	}
	return &domain.TrajectoryReport{
		PatientID:       "patient-1",
		HistoricalCount: len(history),
		History:         history,
		Prediction: domain.TrendProjection{
			Trend:           "Regressing (Urgent)",
			Direction:       domain.TREND_REGRESSING,
			PredictedScores: []float64{33.1, 28.2, 23.3, 18.4},
		},
		Monitor: domain.MonitorReport{Status: domain.MONITOR_REGRESSION},
	}
}

func TestRenderTrajectoryChart(t *testing.T) {
	tests := []struct {
		format string
		prefix []byte
	}{
		{"", []byte("\x89PNG")},
		{"png", []byte("\x89PNG")},
		{"PDF", []byte("%PDF")},
	}
	for _, tt := range tests {
		t.Run("format "+tt.format, func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, RenderTrajectoryChart(&buf, testTrajectory(), tt.format))
			assert.True(t, bytes.HasPrefix(buf.Bytes(), tt.prefix))
		})
	}

	t.Run("format svg", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, RenderTrajectoryChart(&buf, testTrajectory(), FormatSVG))
		assert.Contains(t, buf.String(), "<svg")
	})
}

func TestRenderTrajectoryChart_EmptyHistory(t *testing.T) {
	var buf bytes.Buffer
	r := &domain.TrajectoryReport{PatientID: "new-patient", Prediction: domain.TrendProjection{Trend: "Initializing"}}
	require.NoError(t, RenderTrajectoryChart(&buf, r, FormatPNG))
	assert.NotZero(t, buf.Len())
}

func TestChartContentType(t *testing.T) {
	ct, err := ChartContentType("")
	require.NoError(t, err)
	assert.Equal(t, "image/png", ct)

	ct, err = ChartContentType("svg")
	require.NoError(t, err)
	assert.Equal(t, "image/svg+xml", ct)

	_, err = ChartContentType("gif")
	assert.Error(t, err)

	assert.Error(t, RenderTrajectoryChart(&bytes.Buffer{}, testTrajectory(), "gif"))
}
