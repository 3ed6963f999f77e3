package tui

import (
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	graphAxisStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#6C7086"))
	playersGraphStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#89B4FA"))
)

// renderSparkline creates a compact sparkline
func renderSparkline(data []float64, width int) string {
	if width <= 0 {
		return ""
	}
	if len(data) == 0 {
		return strings.Repeat("▁", width)
	}

	// Take last 'width' points
	start := 0
	if len(data) > width {
		start = len(data) - width
	}
	displayData := data[start:]

	// Player counts start at zero so an empty server stays on the baseline
	dataRange := 0.0
	for _, v := range displayData {
		dataRange = math.Max(dataRange, v)
	}
	if dataRange == 0 {
		dataRange = 1
	}

	chars := []string{"▁", "▂", "▃", "▄", "▅", "▆", "▇", "█"}
	var result strings.Builder

	// Pad on the left so the newest point is always at the right edge
	result.WriteString(strings.Repeat("▁", width-len(displayData)))

	for _, value := range displayData {
		normalized := value / dataRange
		charIndex := int(normalized * float64(len(chars)-1))
		if charIndex >= len(chars) {
			charIndex = len(chars) - 1
		}
		if charIndex < 0 {
			charIndex = 0
		}
		result.WriteString(chars[charIndex])
	}

	return result.String()
}

// renderPlayerGraph renders the player history with its peak
func renderPlayerGraph(data []float64, width int) string {
	peak := 0.0
	for _, v := range data {
		peak = math.Max(peak, v)
	}

	var s strings.Builder
	s.WriteString(playersGraphStyle.Render(renderSparkline(data, width)) + "\n")
	s.WriteString(graphAxisStyle.Render(fmt.Sprintf("◄─ %d samples, peak %.0f", len(data), peak)))
	return s.String()
}
