package monitor

import (
	"context"
	"time"

	"github.com/rusenback/idlemon/internal/model"
)

// Lifecycle controls the compute running the game server
type Lifecycle interface {
	Status(ctx context.Context) (model.ContainerInfo, error)
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

// Prober returns the online player count or Unknown. It must not fail.
type Prober interface {
	Probe(ctx context.Context, host string, port int) model.ProbeResult
}

// Analyzer reads the log-based signals. A fetch failure must report activity.
type Analyzer interface {
	Analyze(ctx context.Context) model.ActivitySignal
	FinalCheck(ctx context.Context, tail, lookback int, since time.Duration) bool
}

// StateStore persists MonitoringState. Load returns storage.ErrNotFound for a
// missing record; Save returns storage.ErrConflict when state.Version is stale
// and updates state.Version on success.
type StateStore interface {
	Load(ctx context.Context, key string) (model.MonitoringState, error)
	Save(ctx context.Context, key string, state *model.MonitoringState) error
}

// Notifier receives shutdown events. Optional.
type Notifier interface {
	Notify(ctx context.Context, event model.Event) error
}

// Deps bundles the collaborators of a Monitor
type Deps struct {
	Lifecycle Lifecycle
	Prober    Prober
	Analyzer  Analyzer
	Store     StateStore
	Notifier  Notifier
	Now       func() time.Time
}
