package tui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rusenback/idlemon/internal/model"
	"github.com/rusenback/idlemon/internal/monitor"
)

// LogSource returns recent container log entries
type LogSource interface {
	Logs(ctx context.Context, tail int, since time.Duration) ([]model.LogEntry, error)
}

// Options wires the watch view to the monitor's collaborators
type Options struct {
	Container string
	Lifecycle monitor.Lifecycle
	Store     monitor.StateStore
	Prober    monitor.Prober
	Logs      LogSource
	// Start is used for the start key. Defaults to Lifecycle.Start.
	Start func(ctx context.Context) error

	StateKey       string
	Address        string
	Port           int
	Interval       time.Duration
	EmptyThreshold int
	Refresh        time.Duration
	LogTail        int
}

// Model represents the TUI application state
type Model struct {
	opts    Options
	err     error
	loading bool
	message string
	width   int
	height  int

	snap    snapshot
	history []float64 // player counts, oldest first

	logsScroll     int
	logsAutoScroll bool
}

// snapshot is one refresh of everything the view shows
type snapshot struct {
	at       time.Time
	info     model.ContainerInfo
	host     string
	probe    model.ProbeResult
	state    model.MonitoringState
	hasState bool
	logs     []model.LogEntry
}

const maxHistory = 120

// Message types for Bubbletea update loop
type tickMsg time.Time

type snapshotMsg struct {
	snap snapshot
	err  error
}

type actionMsg struct {
	message string
	err     error
}

// NewModel creates a new TUI model
func NewModel(opts Options) Model {
	if opts.Refresh <= 0 {
		opts.Refresh = 5 * time.Second
	}
	if opts.LogTail <= 0 {
		opts.LogTail = 100
	}
	if opts.Start == nil && opts.Lifecycle != nil {
		opts.Start = opts.Lifecycle.Start
	}
	return Model{
		opts:           opts,
		loading:        true,
		logsAutoScroll: true,
	}
}

// Init initializes the model and returns initial commands
func (m Model) Init() tea.Cmd {
	return tea.Batch(fetchSnapshot(m.opts), tickCmd(m.opts.Refresh))
}

// Run starts the full-screen watch view and blocks until it exits
func Run(opts Options) error {
	p := tea.NewProgram(NewModel(opts), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
