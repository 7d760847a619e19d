package viz

import (
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"
)

var (
	HeaderStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#ffffff")).
			BorderStyle(lipgloss.NormalBorder()).
			BorderBottom(true).
			BorderForeground(lipgloss.Color("#444466"))

	Subtle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#666688"))

	StatusRunning = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#00ff88"))

	StatusPaused = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#ffaa00"))

	StatusFailed = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#ff4444"))

	MetricValue = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#00ccff")).
			Bold(true)

	MetricLabel = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888899")).
			Width(18)

	KeyHint = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#666688")).
		Italic(true)

	Panel = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("#444466")).
		Padding(0, 1)

	SparkHigh = lipgloss.NewStyle().Foreground(lipgloss.Color("#ff4444"))
	SparkMid  = lipgloss.NewStyle().Foreground(lipgloss.Color("#ffcc00"))
	SparkLow  = lipgloss.NewStyle().Foreground(lipgloss.Color("#00ccff"))
)

// Row is a label/value pair of a summary table.
type Row struct {
	Label string
	Value string
}

// Summary renders a titled block of label/value rows.
func Summary(title string, rows []Row) string {
	var s strings.Builder
	s.WriteString(HeaderStyle.Render(title) + "\n")
	for _, r := range rows {
		s.WriteString(MetricLabel.Render(r.Label) + MetricValue.Render(r.Value) + "\n")
	}
	return Panel.Render(strings.TrimRight(s.String(), "\n"))
}

// ProgressBar renders a bar filled to fraction in [0, 1].
func ProgressBar(fraction float64, width int) string {
	filled := int(fraction * float64(width))
	filled = max(0, min(filled, width))
	return StatusRunning.Render(strings.Repeat("█", filled)) + Subtle.Render(strings.Repeat("░", width-filled))
}

// SparklineChart renders values as a single line, hot colors for high values.
func SparklineChart(values []float64, width int) string {
	if len(values) == 0 || width <= 0 {
		return strings.Repeat("─", max(width, 0))
	}

	chars := []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

	lo, hi := math.Inf(1), math.Inf(-1)
	for _, v := range values {
		if math.IsNaN(v) {
			continue
		}
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	rng := hi - lo
	if !(rng > 0) {
		rng = 1
	}

	step := max(len(values)/width, 1)

	var result strings.Builder
	for i := 0; i < width && i*step < len(values); i++ {
		v := values[i*step]
		if math.IsNaN(v) {
			result.WriteString(Subtle.Render("·"))
			continue
		}
		norm := (v - lo) / rng
		idx := max(0, min(int(norm*float64(len(chars)-1)), len(chars)-1))

		c := string(chars[idx])
		switch {
		case norm > 0.7:
			result.WriteString(SparkHigh.Render(c))
		case norm > 0.3:
			result.WriteString(SparkMid.Render(c))
		default:
			result.WriteString(SparkLow.Render(c))
		}
	}
	return result.String()
}

// Plot draws series with asciigraph, resampled to at most width points.
func Plot(series []float64, width, height int, caption string) string {
	if len(series) < 2 {
		return Subtle.Render("(not enough samples)")
	}
	return asciigraph.Plot(Resample(series, width),
		asciigraph.Height(height),
		asciigraph.Width(width),
		asciigraph.Caption(caption),
	)
}

// Resample keeps at most n evenly spaced points of series, always including
// the last one.
func Resample(series []float64, n int) []float64 {
	if n <= 1 || len(series) <= n {
		return series
	}
	out := make([]float64, n)
	last := len(series) - 1
	for i := range out {
		out[i] = series[i*last/(n-1)]
	}
	return out
}

// FormatDuration prints a time in seconds with an SI prefix.
func FormatDuration(t float64) string {
	switch a := math.Abs(t); {
	case math.IsNaN(t):
		return "-"
	case a == 0:
		return "0 s"
	case a < 1e-3:
		return fmt.Sprintf("%.3g µs", t*1e6)
	case a < 1:
		return fmt.Sprintf("%.3g ms", t*1e3)
	default:
		return fmt.Sprintf("%.3g s", t)
	}
}
