package viz

import (
	"fmt"
	"math"
	"strings"

	"github.com/guptarohit/asciigraph"
	"github.com/san-kum/newton/internal/newton"
)

// logFloor stands in for log10(0) so exact roots stay plottable; logCeil
// stands in for an overflowed residual.
const (
	logFloor = -17.0
	logCeil  = 309.0
)

// LogResiduals maps residual norms to log10 for plotting.
func LogResiduals(residuals []float64) []float64 {
	out := make([]float64, len(residuals))
	for i, r := range residuals {
		switch {
		case math.IsNaN(r):
			out[i] = logFloor
		case math.IsInf(r, 1):
			out[i] = logCeil
		case r <= 0:
			out[i] = logFloor
		default:
			out[i] = math.Max(math.Log10(r), logFloor)
		}
	}
	return out
}

// PlotResiduals charts log10 ‖f(x_k)‖ against k. width <= 0 lets asciigraph
// size the chart to the data.
func PlotResiduals(residuals []float64, width, height int) string {
	if len(residuals) == 0 {
		return ""
	}

	opts := []asciigraph.Option{
		asciigraph.Height(height),
		asciigraph.Caption("log10 |f(x_k)|"),
		asciigraph.Precision(1),
	}
	if width > 0 {
		opts = append(opts, asciigraph.Width(width))
	}
	return asciigraph.Plot(LogResiduals(residuals), opts...)
}

// RenderResult formats a finished solve. err may be nil.
func RenderResult(title, source string, res *newton.Result, err error) string {
	var s strings.Builder
	s.WriteString(HeaderStyle.Render(title) + "\n")

	row := func(label, value string) {
		s.WriteString(MetricLabel.Render(label) + MetricValue.Render(value) + "\n")
	}

	s.WriteString(MetricLabel.Render("Status") + statusStyle(res.Status).Render(res.Status.String()) + "\n")
	row("Jacobian", source)
	row("Iterations", fmt.Sprintf("%d", res.Iterations))
	row("Evaluations", fmt.Sprintf("%d", res.Evaluations))
	row("Residual", fmt.Sprintf("%.3e", res.Residual))
	if res.Root != nil {
		row("Root", FormatVector(res.Root))
	} else if n := len(res.Iterates); n > 0 {
		row("Last iterate", FormatVector(res.Iterates[n-1]))
	}
	if len(res.Residuals) > 1 {
		s.WriteString(MetricLabel.Render("History") + SparklineChart(LogResiduals(res.Residuals), 30) + "\n")
	}
	if err != nil {
		s.WriteString(StatusFailed.Render("error: "+err.Error()) + "\n")
	}
	return s.String()
}

func FormatVector(x []float64) string {
	parts := make([]string, len(x))
	for i, v := range x {
		parts[i] = fmt.Sprintf("%.10g", v)
	}
	return "(" + strings.Join(parts, ", ") + ")"
}
