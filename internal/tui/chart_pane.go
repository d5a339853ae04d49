package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/lotas/matdash/internal/chart"
	"github.com/lotas/matdash/internal/types"
)

// Metric is the counter plotted by the chart pane.
type Metric int

const (
	MetricTotal Metric = iota
	MetricAnomaly
	MetricConfirmed
	MetricFailure
	MetricOK
)

var metricNames = []string{"measurements", "anomalies", "confirmed", "failures", "ok"}

func (m Metric) String() string { return metricNames[m] }

func (m Metric) value(p chart.Point) int64 {
	switch m {
	case MetricAnomaly:
		return p.AnomalyCount
	case MetricConfirmed:
		return p.ConfirmedCount
	case MetricFailure:
		return p.FailureCount
	case MetricOK:
		return p.OKCount
	default:
		return p.MeasurementCount
	}
}

var seriesColors = []lipgloss.Color{"62", "42", "214", "135", "33", "196", "226", "201"}

// ChartPane draws one sparkline per series.
type ChartPane struct {
	Series []chart.Series
	Hover  types.GroupKey
	Metric Metric
	Offset int
	Width  int
	Height int
}

// CycleMetric moves to the next plotted counter.
func (c *ChartPane) CycleMetric() {
	c.Metric = (c.Metric + 1) % Metric(len(metricNames))
}

// ScrollUp scrolls the series list up.
func (c *ChartPane) ScrollUp() {
	if c.Offset > 0 {
		c.Offset--
	}
}

// ScrollDown scrolls the series list down.
func (c *ChartPane) ScrollDown() {
	if c.Offset < len(c.Series)-1 {
		c.Offset++
	}
}

var sparkBlocks = []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

// sparkline scales values from zero to max so series are comparable by
// shape. Values wider than w are sampled.
func sparkline(values []int64, w int, max int64) string {
	if len(values) == 0 || w < 1 {
		return ""
	}
	if len(values) > w {
		step := float64(len(values)) / float64(w)
		sampled := make([]int64, w)
		for i := 0; i < w; i++ {
			idx := int(float64(i) * step)
			if idx >= len(values) {
				idx = len(values) - 1
			}
			sampled[i] = values[idx]
		}
		values = sampled
	}
	if max <= 0 {
		max = 1
	}

	var sb strings.Builder
	for _, v := range values {
		if v <= 0 {
			sb.WriteRune(' ')
			continue
		}
		idx := int(float64(v) / float64(max) * float64(len(sparkBlocks)-1))
		if idx >= len(sparkBlocks) {
			idx = len(sparkBlocks) - 1
		}
		sb.WriteRune(sparkBlocks[idx])
	}
	return sb.String()
}

// View renders the chart pane.
func (c ChartPane) View() string {
	if len(c.Series) == 0 {
		return "No data."
	}

	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("245"))
	dimStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	hoverStyle := lipgloss.NewStyle().Bold(true).Reverse(true)

	var max int64
	for _, s := range c.Series {
		for _, p := range s.Points {
			if v := c.Metric.value(p); v > max {
				max = v
			}
		}
	}

	labelW := 16
	valueW := 8
	sparkW := c.Width - labelW - valueW - 3
	if sparkW < 8 {
		sparkW = 8
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render(fmt.Sprintf("%s (max %d)", c.Metric, max)) + "\n")
	if pts := c.Series[0].Points; len(pts) > 0 {
		b.WriteString(dimStyle.Render(fmt.Sprintf("%s … %s", pts[0].X, pts[len(pts)-1].X)) + "\n")
	}

	visible := c.Height - 2
	if visible < 1 {
		visible = 20
	}
	end := c.Offset + visible
	if end > len(c.Series) {
		end = len(c.Series)
	}

	for i := c.Offset; i < end; i++ {
		s := c.Series[i]
		values := make([]int64, len(s.Points))
		var sum int64
		for j, p := range s.Points {
			values[j] = c.Metric.value(p)
			sum += values[j]
		}

		name := s.Label
		if name == "" {
			name = string(s.Key)
		}
		if name == "" {
			name = "All"
		}
		label := fmt.Sprintf("%-*s", labelW, truncate(name, labelW))
		if c.Hover != "" && s.Key == c.Hover {
			label = hoverStyle.Render(label)
		}
		color := seriesColors[i%len(seriesColors)]
		spark := lipgloss.NewStyle().Foreground(color).Render(sparkline(values, sparkW, max))

		b.WriteString(fmt.Sprintf("%s %s %*d", label, spark, valueW, sum))
		if i < end-1 {
			b.WriteString("\n")
		}
	}
	return b.String()
}
