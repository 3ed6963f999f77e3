package monitor

import (
	"context"
	"time"

	"github.com/rusenback/idlemon/internal/model"
)

// Run ticks on a fixed interval until ctx is done. Ticks never overlap.
func (m *Monitor) Run(ctx context.Context, immediate bool) error {
	interval := m.cfg.Interval
	if interval <= 0 {
		interval = DefaultConfig().Interval
	}
	m.logger.Info("monitor loop started", "interval", interval)

	if immediate {
		m.Tick(ctx)
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			m.logger.Info("monitor loop stopped")
			return nil
		case <-ticker.C:
			m.Tick(ctx)
		}
	}
}

// StartServer starts the container and resets the idle counters so a fresh
// server gets the full grace period.
func (m *Monitor) StartServer(ctx context.Context) error {
	if err := m.deps.Lifecycle.Start(ctx); err != nil {
		return err
	}

	now := m.deps.Now()
	state, err := m.loadState(ctx, now)
	if err != nil {
		m.logger.Warn("could not load monitoring state after start", "error", err)
		state = model.NewMonitoringState(now)
	}
	state.Reset(now)
	state.LastCheckTime = now
	if err := m.deps.Store.Save(ctx, m.cfg.StateKey, &state); err != nil {
		m.logger.Warn("could not reset monitoring state after start", "error", err)
	}
	return nil
}
