package tui

import (
	"fmt"
	"strings"
	"time"
)

// truncate shortens a string to a maximum length
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	if max <= 3 {
		return s[:max]
	}
	return s[:max-3] + "..."
}

// calculateVisibleLogLines calculates how many log lines can fit in the panel
func (m Model) calculateVisibleLogLines() int {
	// Bottom panel is 50% of height
	bottomHeight := m.height - m.height/2
	// Must match the calculation in renderLogPanel: height - 8
	visibleLines := bottomHeight - 8
	if visibleLines < 3 {
		visibleLines = 3
	}
	return visibleLines
}

// calculateMaxScroll calculates the maximum scroll position
func (m Model) calculateMaxScroll() int {
	maxScroll := len(m.snap.logs) - m.calculateVisibleLogLines()
	if maxScroll < 0 {
		maxScroll = 0
	}
	return maxScroll
}

// renderProgressBar luo ASCII progress barin
func renderProgressBar(value, max float64, width int) string {
	if max == 0 {
		max = 1
	}

	percent := value / max
	if percent > 1 {
		percent = 1
	}
	if percent < 0 {
		percent = 0
	}

	filled := int(percent * float64(width))
	empty := width - filled

	return "[" + strings.Repeat("█", filled) + strings.Repeat("░", empty) + "]"
}

// formatAgo renders how long before now t was, e.g. "12m ago"
func formatAgo(now, t time.Time) string {
	if t.IsZero() {
		return "never"
	}
	d := now.Sub(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 48*time.Hour:
		return fmt.Sprintf("%dh%02dm ago", int(d.Hours()), int(d.Minutes())%60)
	default:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	}
}

// untilShutdown is the remaining grace time if the server stays empty
func (m Model) untilShutdown() (time.Duration, bool) {
	if !m.snap.hasState || m.snap.state.ConsecutiveEmptyChecks == 0 || m.opts.EmptyThreshold <= 0 {
		return 0, false
	}
	left := m.opts.EmptyThreshold - m.snap.state.ConsecutiveEmptyChecks
	if left < 0 {
		left = 0
	}
	return time.Duration(left) * m.opts.Interval, true
}
