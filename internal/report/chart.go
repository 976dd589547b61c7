package report

import (
	"fmt"
	"image/color"
	"io"
	"strings"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/tarang-screening-server/internal/domain"
)

// Chart formats supported by RenderTrajectoryChart.
const (
	FormatPNG = "png"
	FormatSVG = "svg"
	FormatPDF = "pdf"
)

var contentTypes = map[string]string{
	FormatPNG: "image/png",
	FormatSVG: "image/svg+xml",
	FormatPDF: "application/pdf",
}

// ChartContentType returns the MIME type for a chart format. An empty
// format means PNG.
func ChartContentType(format string) (string, error) {
	if format == "" {
		format = FormatPNG
	}
	ct, ok := contentTypes[strings.ToLower(format)]
	if !ok {
		return "", domain.NewValidationError("format", "must be png, svg or pdf", format)
	}
	return ct, nil
}

// RenderTrajectoryChart draws the session history and the projected scores
// on a 0-100 risk axis and writes the image in the requested format.
func RenderTrajectoryChart(w io.Writer, r *domain.TrajectoryReport, format string) error {
	if format == "" {
		format = FormatPNG
	}
	format = strings.ToLower(format)
	if _, err := ChartContentType(format); err != nil {
		return err
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("Risk trajectory: %s (%s)", r.PatientID, r.Prediction.Trend)
	p.X.Label.Text = "Session"
	p.Y.Label.Text = "Risk score"
	p.Y.Min = 0
	p.Y.Max = 100
	p.Add(plotter.NewGrid())

	history := make(plotter.XYs, 0, len(r.History))
	for i, pt := range r.History {
		history = append(history, plotter.XY{X: float64(i + 1), Y: pt.RiskScore})
	}

	if len(history) > 0 {
		line, points, err := plotter.NewLinePoints(history)
		if err != nil {
			return fmt.Errorf("history series: %w", err)
		}
		line.Color = color.RGBA{R: 31, G: 119, B: 180, A: 255}
		line.Width = vg.Points(1.5)
		points.Color = line.Color
		p.Add(line, points)
		p.Legend.Add("history", line, points)
	}

	if len(r.Prediction.PredictedScores) > 0 {
		projected := make(plotter.XYs, 0, len(r.Prediction.PredictedScores)+1)
		if len(history) > 0 {
			projected = append(projected, history[len(history)-1])
		}
		for i, v := range r.Prediction.PredictedScores {
			projected = append(projected, plotter.XY{X: float64(len(history) + i + 1), Y: v})
		}

		line, err := plotter.NewLine(projected)
		if err != nil {
			return fmt.Errorf("projection series: %w", err)
		}
		line.Color = color.RGBA{R: 214, G: 39, B: 40, A: 255}
		line.Width = vg.Points(1.5)
		line.Dashes = []vg.Length{vg.Points(4), vg.Points(3)}
		p.Add(line)
		p.Legend.Add("projection", line)
	}

	p.Legend.Top = true
	p.Legend.Left = false

	wt, err := p.WriterTo(8*vg.Inch, 4*vg.Inch, format)
	if err != nil {
		return fmt.Errorf("failed to create %s canvas: %w", format, err)
	}
	if _, err := wt.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write chart: %w", err)
	}
	return nil
}
