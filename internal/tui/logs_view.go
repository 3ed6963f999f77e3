package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/rusenback/idlemon/internal/activity"
	"github.com/rusenback/idlemon/internal/model"
)

var (
	timestampStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#6C7086"))

	joinLogStyle       = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#A6E3A1"))
	leaveLogStyle      = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FAB387"))
	activityLogStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#89B4FA"))
	connectionLogStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#F9E2AF"))
	problemLogStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#F38BA8"))
	defaultLogStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#CDD6F4"))

	stdoutIndicator = lipgloss.NewStyle().Foreground(lipgloss.Color("#A6E3A1")).Render("○")
	stderrIndicator = lipgloss.NewStyle().Foreground(lipgloss.Color("#F38BA8")).Render("●")
)

// styleLogEntry colours a line by what it says about player presence, so the
// lines that keep the server alive stand out in the preview
func styleLogEntry(entry model.LogEntry, maxWidth int) string {
	indicator := stdoutIndicator
	if entry.Stream == "stderr" {
		indicator = stderrIndicator
	}
	prefix := timestampStyle.Render(entry.Timestamp.Format("15:04:05")) + " " + indicator + " "

	room := maxWidth - lipgloss.Width(prefix)
	if room < 1 {
		room = 1
	}
	message := truncate(entry.Message, room)

	return prefix + logStyle(entry.Message).Render(message)
}

func logStyle(message string) lipgloss.Style {
	switch activity.Classify(message) {
	case activity.LineJoin:
		return joinLogStyle
	case activity.LineLeave:
		return leaveLogStyle
	case activity.LineActivity:
		return activityLogStyle
	case activity.LineConnection:
		return connectionLogStyle
	}
	// server thread level tags, e.g. "[Server thread/WARN]:"
	if strings.Contains(message, "/WARN]") || strings.Contains(message, "/ERROR]") {
		return problemLogStyle
	}
	return defaultLogStyle
}
