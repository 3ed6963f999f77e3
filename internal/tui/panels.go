package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/rusenback/idlemon/internal/model"
)

// renderServerPanel renders container status and the live player count
func (m Model) renderServerPanel(width, height int) string {
	var s strings.Builder
	s.WriteString(titleStyle.Render("⛏ Server") + "\n\n")

	switch {
	case m.err != nil:
		s.WriteString(fmt.Sprintf("Error: %v\n", m.err))
	case m.loading && m.snap.at.IsZero():
		s.WriteString("Loading...\n")
	default:
		info := m.snap.info
		s.WriteString(row("Container", m.opts.Container))
		s.WriteString(labelStyle.Render("Status:    ") + statusStyle(info.Status).Render(info.State) + "\n")

		addr := m.snap.host
		if addr == "" {
			addr = "-"
		}
		s.WriteString(row("Address", fmt.Sprintf("%s:%d", addr, m.opts.Port)))
		if !info.StartedAt.IsZero() && info.Status == model.StatusRunning {
			s.WriteString(row("Up since", formatAgo(m.snap.at, info.StartedAt)))
		}

		s.WriteString("\n")
		s.WriteString(row("Players", m.snap.probe.String()))
		if bar, ok := capacity(m.snap.probe); ok {
			s.WriteString(row("Capacity", bar))
		}
		if len(m.history) > 0 {
			s.WriteString("\n" + renderPlayerGraph(m.history, width-10) + "\n")
		}
	}

	if m.message != "" {
		s.WriteString("\n" + m.message + "\n")
	}

	help := "\n[s] start  [x] stop  [R] refresh  [q] quit"
	s.WriteString(helpStyle.Render(help))

	return panelStyle.
		Width(width - 4).
		Height(height - 4).
		Render(s.String())
}

// renderMonitorPanel renders the persisted idle-shutdown state
func (m Model) renderMonitorPanel(width, height int) string {
	var s strings.Builder
	s.WriteString(titleStyle.Render("⏱ Idle monitor") + "\n\n")

	if !m.snap.hasState {
		s.WriteString("No monitoring state yet")
	} else {
		st := m.snap.state
		now := m.snap.at
		s.WriteString(row("Last players", formatAgo(now, st.LastPlayersSeenAt)))
		s.WriteString(row("Last check", formatAgo(now, st.LastCheckTime)))
		s.WriteString(row("Probe fails", fmt.Sprintf("%d", st.ConsecutiveProbeFailures)))
		s.WriteString(row("Empty checks", fmt.Sprintf("%d/%d", st.ConsecutiveEmptyChecks, m.opts.EmptyThreshold)))

		bar := renderProgressBar(float64(st.ConsecutiveEmptyChecks), float64(m.opts.EmptyThreshold), 20)
		if left, counting := m.untilShutdown(); counting {
			s.WriteString("\n" + countdownStyle.Render(bar) + "\n")
			s.WriteString(countdownStyle.Render(fmt.Sprintf("Shutdown in ~%.0f min if still empty", left.Minutes())))
		} else {
			s.WriteString("\n" + runningStyle.Render(bar))
		}
	}

	return panelStyle.
		Width(width - 4).
		Height(height - 4).
		Render(s.String())
}

// renderLogPanel renders the log panel
func (m Model) renderLogPanel(width, height int) string {
	var s strings.Builder
	s.WriteString(titleStyle.Render("📋 Log Preview"))
	if m.logsAutoScroll {
		s.WriteString(" [Auto-scroll: ON]")
	}
	s.WriteString("\n\n")

	logs := m.snap.logs
	if len(logs) == 0 {
		s.WriteString("No logs yet...")
	} else {
		// Reserve space for title, borders and the scroll indicator
		visibleLines := height - 8
		if visibleLines < 1 {
			visibleLines = 1
		}

		totalLogs := len(logs)
		start := m.logsScroll
		if start > totalLogs-visibleLines {
			start = totalLogs - visibleLines
		}
		if start < 0 {
			start = 0
		}
		end := start + visibleLines
		if end > totalLogs {
			end = totalLogs
		}

		maxLineWidth := width - 8
		for i := start; i < end; i++ {
			s.WriteString(styleLogEntry(logs[i], maxLineWidth) + "\n")
		}

		if totalLogs > visibleLines {
			s.WriteString(fmt.Sprintf("\n[%d/%d] PgUp/PgDown:scroll | a:toggle auto", start+1, totalLogs))
		}
	}

	return panelStyle.
		Width(width - 4).
		Height(height - 4).
		Render(s.String())
}

// capacity renders online against max players, when the server reports a max
func capacity(r model.ProbeResult) (string, bool) {
	players, ok := r.Players()
	if !ok || r.MaxPlayers() <= 0 {
		return "", false
	}
	return renderProgressBar(float64(players), float64(r.MaxPlayers()), 20), true
}

func row(label, value string) string {
	return labelStyle.Render(fmt.Sprintf("%-11s", label+":")) + valueStyle.Render(value) + "\n"
}

func statusStyle(status model.ContainerStatus) lipgloss.Style {
	switch status {
	case model.StatusRunning:
		return runningStyle
	case model.StatusTransitioning:
		return pendingStyle
	default:
		return stoppedStyle
	}
}
