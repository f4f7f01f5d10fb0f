package main

import (
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"csvchat/internal/dataset"
	"csvchat/internal/store"
)

// maxChartRows bounds the results drawn as bar charts.
const maxChartRows = 20

// BarChart creates a horizontal bar chart line
func BarChart(label string, value, max float64, width int, color lipgloss.Color) string {
	if max == 0 {
		max = value
	}

	percentage := 0.0
	if max != 0 {
		percentage = value / max
	}
	if percentage > 1 {
		percentage = 1
	}

	filledWidth := int(float64(width) * percentage)
	if filledWidth < 0 {
		filledWidth = 0
	}
	if filledWidth > width {
		filledWidth = width
	}

	filled := strings.Repeat("█", filledWidth)
	empty := strings.Repeat("░", width-filledWidth)

	barStyle := lipgloss.NewStyle().Foreground(color)
	emptyStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("240"))

	return fmt.Sprintf("%s %s%s %s",
		label,
		barStyle.Render(filled),
		emptyStyle.Render(empty),
		dataset.FormatValue(value),
	)
}

// Sparkline creates a simple sparkline from values
func Sparkline(values []float64) string {
	if len(values) == 0 {
		return ""
	}

	min, max := values[0], values[0]
	for _, v := range values {
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}

	// bottom to top
	chars := []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

	var result strings.Builder
	for _, v := range values {
		var idx int
		if max == min {
			idx = len(chars) / 2
		} else {
			normalized := (v - min) / (max - min)
			idx = int(normalized * float64(len(chars)-1))
		}
		if idx < 0 || idx >= len(chars) {
			idx = 0
		}
		result.WriteRune(chars[idx])
	}
	return result.String()
}

// ResultChart draws a bar chart for label/number results and a sparkline
// for a single numeric column. It returns "" for any other shape.
func ResultChart(res *store.Result, width int) string {
	if res == nil || res.RowCount() < 2 {
		return ""
	}

	switch len(res.Columns) {
	case 1:
		values, ok := numericColumn(res, 0)
		if !ok {
			return ""
		}
		return mutedStyle.Render(res.Columns[0]+" ") + Sparkline(values)

	case 2:
		if res.RowCount() > maxChartRows {
			return ""
		}
		values, ok := numericColumn(res, 1)
		if !ok {
			return ""
		}
		labels := make([]string, len(values))
		labelWidth, max := 0, 0.0
		for i, row := range res.Rows {
			labels[i] = dataset.FormatValue(row[0])
			if w := lipgloss.Width(labels[i]); w > labelWidth {
				labelWidth = w
			}
			if values[i] > max {
				max = values[i]
			}
		}
		barWidth := width - labelWidth - 16
		if barWidth < 10 {
			barWidth = 10
		}

		var b strings.Builder
		for i, label := range labels {
			padded := label + strings.Repeat(" ", labelWidth-lipgloss.Width(label))
			b.WriteString(BarChart(padded, values[i], max, barWidth, lipgloss.Color("62")))
			b.WriteString("\n")
		}
		return strings.TrimRight(b.String(), "\n")
	}
	return ""
}

// numericColumn returns col as floats. NaN and infinities cannot be drawn,
// so a column holding one is treated as non-numeric.
func numericColumn(res *store.Result, col int) ([]float64, bool) {
	values := make([]float64, len(res.Rows))
	for i, row := range res.Rows {
		switch v := row[col].(type) {
		case int64:
			values[i] = float64(v)
		case float64:
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, false
			}
			values[i] = v
		default:
			return nil, false
		}
	}
	return values, true
}
