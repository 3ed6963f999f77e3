package tui

import "github.com/charmbracelet/lipgloss"

// View renders the TUI interface
func (m Model) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	leftWidth := m.width / 2
	rightWidth := m.width - leftWidth

	topHeight := m.height / 2
	bottomHeight := m.height - topHeight

	topRow := lipgloss.JoinHorizontal(lipgloss.Top,
		m.renderServerPanel(leftWidth, topHeight),
		m.renderMonitorPanel(rightWidth, topHeight),
	)

	return lipgloss.JoinVertical(lipgloss.Left, topRow, m.renderLogPanel(m.width, bottomHeight))
}
