package tui

import (
	"context"
	"errors"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rusenback/idlemon/internal/model"
	"github.com/rusenback/idlemon/internal/storage"
)

const actionTimeout = 2 * time.Minute

// tickCmd creates a command that sends a tick message every refresh interval
func tickCmd(every time.Duration) tea.Cmd {
	return tea.Tick(every, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// fetchSnapshot reads container status, persisted state, player count and logs
func fetchSnapshot(opts Options) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		snap, err := collect(ctx, opts)
		return snapshotMsg{snap: snap, err: err}
	}
}

func collect(ctx context.Context, opts Options) (snapshot, error) {
	snap := snapshot{at: time.Now(), probe: model.Unknown}

	info, err := opts.Lifecycle.Status(ctx)
	if err != nil {
		return snap, fmt.Errorf("container status: %w", err)
	}
	snap.info = info

	if opts.Store != nil {
		st, err := opts.Store.Load(ctx, opts.StateKey)
		switch {
		case err == nil:
			snap.state = st
			snap.hasState = true
		case !errors.Is(err, storage.ErrNotFound):
			return snap, fmt.Errorf("load state: %w", err)
		}
	}

	if info.Status != model.StatusRunning {
		return snap, nil
	}

	snap.host = opts.Address
	if snap.host == "" {
		snap.host = info.IPAddress
	}
	if snap.host != "" && opts.Prober != nil {
		snap.probe = opts.Prober.Probe(ctx, snap.host, opts.Port)
	}

	if opts.Logs != nil {
		// log errors are not fatal for the view
		if entries, err := opts.Logs.Logs(ctx, opts.LogTail, 0); err == nil {
			snap.logs = entries
		}
	}
	return snap, nil
}

// startServer creates a command to start the game server
func startServer(opts Options) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), actionTimeout)
		defer cancel()
		return actionMsg{
			message: fmt.Sprintf("Started: %s", opts.Container),
			err:     opts.Start(ctx),
		}
	}
}

// stopServer creates a command to stop the game server
func stopServer(opts Options) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), actionTimeout)
		defer cancel()
		return actionMsg{
			message: fmt.Sprintf("Stopped: %s", opts.Container),
			err:     opts.Lifecycle.Stop(ctx),
		}
	}
}
