package report

import (
	"fmt"
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/tarang-screening-server/internal/domain"
)

// RenderDashboard writes a single HTML page with the risk trajectory and,
// when latest is not nil, the modality breakdown of the most recent session.
func RenderDashboard(w io.Writer, r *domain.TrajectoryReport, latest *domain.ScreeningSession) error {
	page := components.NewPage()
	page.SetPageTitle("Screening dashboard: " + r.PatientID)
	page.AddCharts(trajectoryChart(r))
	if latest != nil {
		page.AddCharts(breakdownChart(latest))
	}

	if err := page.Render(w); err != nil {
		return fmt.Errorf("render error: %w", err)
	}
	return nil
}

func trajectoryChart(r *domain.TrajectoryReport) *charts.Line {
	n := len(r.History)
	x := make([]string, 0, n+len(r.Prediction.PredictedScores))
	history := make([]opts.LineData, 0, n)
	projection := make([]opts.LineData, 0, cap(x))

	for i, pt := range r.History {
		x = append(x, pt.Timestamp.Format("2006-01-02"))
		history = append(history, opts.LineData{Value: pt.RiskScore})
		// "-" is an empty point; the projection starts at the last session.
		if i == n-1 {
			projection = append(projection, opts.LineData{Value: pt.RiskScore})
		} else {
			projection = append(projection, opts.LineData{Value: "-"})
		}
	}
	for i, v := range r.Prediction.PredictedScores {
		x = append(x, fmt.Sprintf("+%d", i+1))
		projection = append(projection, opts.LineData{Value: v})
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Risk trajectory", Width: "900px", Height: "420px"}),
		charts.WithTitleOpts(opts.Title{
			Title:    "Risk trajectory",
			Subtitle: fmt.Sprintf("patient=%s trend=%s monitor=%s", r.PatientID, r.Prediction.Trend, r.Monitor.Status),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithYAxisOpts(opts.YAxis{Min: 0, Max: 100, Name: "Risk score"}),
	)
	line.SetXAxis(x).
		AddSeries("history", history).
		AddSeries("projection", projection)
	return line
}

func breakdownChart(s *domain.ScreeningSession) *charts.Bar {
	x := []string{"Behavioral", "Questionnaire", "Physiological"}
	y := []opts.BarData{
		{Value: s.Breakdown.Behavioral},
		{Value: s.Breakdown.Questionnaire},
		{Value: s.Breakdown.Physiological},
	}
	if s.Breakdown.MLModel != nil {
		x = append(x, "ML model")
		y = append(y, opts.BarData{Value: *s.Breakdown.MLModel})
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "900px", Height: "420px"}),
		charts.WithTitleOpts(opts.Title{
			Title:    "Latest session breakdown",
			Subtitle: fmt.Sprintf("%s, %s (%.1f)", s.CreatedAt.Format("2006-01-02"), s.Interpretation, s.RiskScore),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithYAxisOpts(opts.YAxis{Min: 0, Max: 100}),
	)
	bar.SetXAxis(x).
		AddSeries("breakdown", y,
			charts.WithLabelOpts(opts.Label{Show: opts.Bool(true), Position: "top"}),
		)
	return bar
}
