package tui

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
)

// Update handles messages and updates the model state
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit

		case "pgup":
			// Scroll logs up by half page for better readability
			if m.logsScroll > 0 {
				m.logsScroll -= m.scrollStep()
				if m.logsScroll < 0 {
					m.logsScroll = 0
				}
				m.logsAutoScroll = false
			}

		case "pgdown":
			maxScroll := m.calculateMaxScroll()
			m.logsScroll += m.scrollStep()
			if m.logsScroll >= maxScroll {
				m.logsScroll = maxScroll
				m.logsAutoScroll = true
			}

		case "home":
			m.logsScroll = 0
			m.logsAutoScroll = false

		case "end":
			m.logsScroll = m.calculateMaxScroll()
			m.logsAutoScroll = true

		case "a":
			// Toggle auto-scroll
			m.logsAutoScroll = !m.logsAutoScroll
			if m.logsAutoScroll {
				m.logsScroll = m.calculateMaxScroll()
			}

		case "s":
			if m.opts.Start != nil {
				m.message = "Starting..."
				return m, startServer(m.opts)
			}

		case "x":
			if m.opts.Lifecycle != nil {
				m.message = "Stopping..."
				return m, stopServer(m.opts)
			}

		case "R":
			m.loading = true
			m.message = "Refreshing..."
			return m, fetchSnapshot(m.opts)
		}

	case tickMsg:
		return m, tea.Batch(fetchSnapshot(m.opts), tickCmd(m.opts.Refresh))

	case snapshotMsg:
		m.loading = false
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.err = nil
		if m.message == "Refreshing..." {
			m.message = ""
		}
		m.snap = msg.snap
		m.recordPlayers()

		if m.logsAutoScroll {
			m.logsScroll = m.calculateMaxScroll()
		}
		return m, nil

	case actionMsg:
		if msg.err != nil {
			m.message = fmt.Sprintf("Error: %v", msg.err)
		} else {
			m.message = msg.message
		}
		return m, fetchSnapshot(m.opts)
	}

	return m, nil
}

// recordPlayers appends the latest known player count to the history
func (m *Model) recordPlayers() {
	players, ok := m.snap.probe.Players()
	if !ok {
		return
	}
	m.history = append(m.history, float64(players))
	if len(m.history) > maxHistory {
		m.history = m.history[len(m.history)-maxHistory:]
	}
}

func (m Model) scrollStep() int {
	step := m.calculateVisibleLogLines() / 2
	if step < 1 {
		step = 1
	}
	return step
}
