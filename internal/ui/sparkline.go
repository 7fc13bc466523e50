package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Sparkline block characters representing 8 vertical levels (lowest to highest).
const sparklineBlocks = "▁▂▃▄▅▆▇█"

var sparklineBlockRunes = []rune(sparklineBlocks)

// SparklineLevels maps values onto block levels 0..7. Rates are scaled
// against zero, so an idle link draws flat at the bottom rather than
// in the middle.
func SparklineLevels(data []float64) []int {
	if len(data) == 0 {
		return nil
	}

	maxVal := 0.0
	for _, v := range data {
		if v > maxVal {
			maxVal = v
		}
	}

	top := len(sparklineBlockRunes) - 1
	levels := make([]int, len(data))
	for i, v := range data {
		if maxVal <= 0 || v <= 0 {
			continue
		}
		level := int(v / maxVal * float64(top))
		if level > top {
			level = top
		}
		levels[i] = level
	}
	return levels
}

// RenderSparkline draws the most recent width values in color.
func RenderSparkline(data []float64, width int, color lipgloss.Color) string {
	if len(data) == 0 || width <= 0 {
		return ""
	}
	if len(data) > width {
		data = data[len(data)-width:]
	}

	var sb strings.Builder
	sb.Grow(len(data) * 3)
	for _, level := range SparklineLevels(data) {
		sb.WriteRune(sparklineBlockRunes[level])
	}

	return lipgloss.NewStyle().Foreground(color).Render(sb.String())
}
