// Package monitor decides, once per tick, whether the game server has been
// idle long enough to stop it.
//
// State lives entirely in the persisted MonitoringState counters:
// consecutive probe failures count toward "treat as empty", consecutive empty
// checks count toward shutdown, and a final wide log re-check gates the stop.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/rusenback/idlemon/internal/model"
	"github.com/rusenback/idlemon/internal/storage"
)

// Config holds the decision thresholds
type Config struct {
	StateKey string
	// Address overrides the container IP when set (e.g. a published port on
	// the docker host).
	Address string
	Port    int

	Interval         time.Duration
	EmptyThreshold   int
	FailureThreshold int

	FinalTail     int
	FinalLookback int
	FinalSince    time.Duration
}

func DefaultConfig() Config {
	return Config{
		StateKey:         "current",
		Port:             25565,
		Interval:         3 * time.Minute,
		EmptyThreshold:   2,
		FailureThreshold: 2,
		FinalTail:        200,
		FinalLookback:    200,
		FinalSince:       10 * time.Minute,
	}
}

// Decision is what a tick concluded
type Decision int

const (
	DecisionSkipped Decision = iota
	DecisionAwaitingEvidence
	DecisionActive
	DecisionCountingDown
	DecisionShutdownAborted
	DecisionShutdown
	DecisionShutdownFailed
)

func (d Decision) String() string {
	switch d {
	case DecisionAwaitingEvidence:
		return "awaiting-evidence"
	case DecisionActive:
		return "active"
	case DecisionCountingDown:
		return "counting-down"
	case DecisionShutdownAborted:
		return "shutdown-aborted"
	case DecisionShutdown:
		return "shutdown"
	case DecisionShutdownFailed:
		return "shutdown-failed"
	default:
		return "skipped"
	}
}

// Report summarises one tick for logging
type Report struct {
	Decision  Decision
	Players   int
	Source    string
	Probe     model.ProbeResult
	Activity  model.ActivitySignal
	State     model.MonitoringState
	Persisted bool
}

// Monitor is the idle-detection state machine
type Monitor struct {
	cfg    Config
	deps   Deps
	logger *slog.Logger
}

func New(cfg Config, deps Deps, logger *slog.Logger) *Monitor {
	if logger == nil {
		logger = slog.Default()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &Monitor{cfg: cfg, deps: deps, logger: logger}
}

// Tick runs one monitoring pass. It never panics or returns an error; every
// failure is logged and degrades to "don't shut down this time".
func (m *Monitor) Tick(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			m.logger.Error("monitor tick panicked", "panic", fmt.Sprint(r))
		}
	}()

	m.logger.Info("monitor tick started")
	rep := m.tick(ctx)
	m.logger.Info("monitor tick completed",
		"decision", rep.Decision,
		"players", rep.Players,
		"source", rep.Source,
		"empty_checks", rep.State.ConsecutiveEmptyChecks,
		"probe_failures", rep.State.ConsecutiveProbeFailures,
		"persisted", rep.Persisted)
}

func (m *Monitor) tick(ctx context.Context) Report {
	if m.cfg.StateKey == "" {
		m.logger.Error("monitor state key not configured")
		return Report{}
	}

	info, err := m.deps.Lifecycle.Status(ctx)
	if err != nil {
		m.logger.Error("could not get container information", "error", err)
		return Report{}
	}
	if info.Status != model.StatusRunning {
		m.logger.Info("container is not running, skipping check", "status", info.Status, "state", info.State)
		return Report{}
	}

	host := m.cfg.Address
	if host == "" {
		if !info.HasAddress() {
			m.logger.Warn("container is running but has no IP address")
			return Report{}
		}
		host = info.IPAddress
	}

	now := m.deps.Now()
	state, err := m.loadState(ctx, now)
	if err != nil {
		m.logger.Error("could not load monitoring state, skipping check", "error", err)
		return Report{}
	}

	rep := Report{}
	rep.Probe, rep.Activity = m.observe(ctx, host)

	players, known := rep.Probe.Players()
	switch {
	case known:
		rep.Source = "protocol"
		state.ConsecutiveProbeFailures = 0
	case rep.Activity.Detected():
		rep.Source = "logs"
		players = rep.Activity.EstimatedCount
		state.ConsecutiveProbeFailures = 0
		m.logger.Info("server protocol not responding, using log activity", "estimated_players", players)
	default:
		state.ConsecutiveProbeFailures++
		m.logger.Info("no protocol response and no log activity",
			"consecutive_failures", state.ConsecutiveProbeFailures,
			"threshold", m.cfg.FailureThreshold)
		if state.ConsecutiveProbeFailures < m.cfg.FailureThreshold {
			rep.Decision = DecisionAwaitingEvidence
			return m.finish(ctx, rep, state, now)
		}
		rep.Source = "silence"
		players = 0
		state.ConsecutiveProbeFailures = 0
	}
	rep.Players = players

	if players > 0 {
		state.LastPlayersSeenAt = now
		state.ConsecutiveEmptyChecks = 0
		state.ConsecutiveProbeFailures = 0
		rep.Decision = DecisionActive
		m.logger.Info("players detected, server staying online", "players", players)
		return m.finish(ctx, rep, state, now)
	}

	state.ConsecutiveEmptyChecks++
	if state.ConsecutiveEmptyChecks < m.cfg.EmptyThreshold {
		remaining := time.Duration(m.cfg.EmptyThreshold-state.ConsecutiveEmptyChecks) * m.cfg.Interval
		m.logger.Info("no players online",
			"consecutive_empty_checks", state.ConsecutiveEmptyChecks,
			"shutdown_in", remaining)
		rep.Decision = DecisionCountingDown
		return m.finish(ctx, rep, state, now)
	}

	rep.Decision = m.shutdown(ctx, info, &state, now)
	return m.finish(ctx, rep, state, now)
}

// observe runs the protocol probe and log analysis side by side; both always
// complete (or time out) before the decision is made. A panicking collaborator
// degrades to Unknown / assumed activity.
func (m *Monitor) observe(ctx context.Context, host string) (model.ProbeResult, model.ActivitySignal) {
	res := model.Unknown
	sig := model.ActivitySignal{RecentActivity: true, FetchFailed: true}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(m.guard("probe", func() {
		res = m.deps.Prober.Probe(gctx, host, m.cfg.Port)
	}))
	g.Go(m.guard("log analysis", func() {
		sig = m.deps.Analyzer.Analyze(gctx)
	}))
	_ = g.Wait()
	return res, sig
}

func (m *Monitor) guard(name string, fn func()) func() error {
	return func() error {
		defer func() {
			if r := recover(); r != nil {
				m.logger.Error("collaborator panicked", "component", name, "panic", fmt.Sprint(r))
			}
		}()
		fn()
		return nil
	}
}

func (m *Monitor) shutdown(ctx context.Context, info model.ContainerInfo, state *model.MonitoringState, now time.Time) Decision {
	empty := state.ConsecutiveEmptyChecks
	m.logger.Info("server has been empty long enough, running final activity check",
		"consecutive_empty_checks", empty,
		"idle_for", time.Duration(empty)*m.cfg.Interval)

	if m.deps.Analyzer.FinalCheck(ctx, m.cfg.FinalTail, m.cfg.FinalLookback, m.cfg.FinalSince) {
		m.logger.Info("final activity check found recent player activity, postponing shutdown")
		state.ConsecutiveEmptyChecks = 0
		state.LastPlayersSeenAt = now
		m.notify(ctx, model.Event{
			Kind: model.EventShutdownAborted, Container: info.Name, At: now,
			EmptyChecks: empty, Reason: "recent log activity",
		})
		return DecisionShutdownAborted
	}

	m.logger.Info("final activity check confirmed no activity, stopping container", "container", info.Name)
	if err := m.deps.Lifecycle.Stop(ctx); err != nil {
		m.logger.Error("failed to stop container", "container", info.Name, "error", err)
		m.notify(ctx, model.Event{
			Kind: model.EventShutdownFailed, Container: info.Name, At: now,
			EmptyChecks: empty, Reason: err.Error(),
		})
		return DecisionShutdownFailed
	}

	m.logger.Info("container shutdown initiated successfully", "container", info.Name)
	state.Reset(now)
	m.notify(ctx, model.Event{
		Kind: model.EventShutdown, Container: info.Name, At: now, EmptyChecks: empty,
	})
	return DecisionShutdown
}

func (m *Monitor) loadState(ctx context.Context, now time.Time) (model.MonitoringState, error) {
	state, err := m.deps.Store.Load(ctx, m.cfg.StateKey)
	if errors.Is(err, storage.ErrNotFound) {
		m.logger.Info("no monitoring state yet, starting fresh", "key", m.cfg.StateKey)
		return model.NewMonitoringState(now), nil
	}
	return state, err
}

func (m *Monitor) finish(ctx context.Context, rep Report, state model.MonitoringState, now time.Time) Report {
	state.LastCheckTime = now
	err := m.deps.Store.Save(ctx, m.cfg.StateKey, &state)
	switch {
	case errors.Is(err, storage.ErrConflict):
		m.logger.Warn("monitoring state changed concurrently, update dropped", "key", m.cfg.StateKey)
	case err != nil:
		m.logger.Error("failed to save monitoring state", "key", m.cfg.StateKey, "error", err)
	default:
		rep.Persisted = true
	}
	rep.State = state
	return rep
}

func (m *Monitor) notify(ctx context.Context, event model.Event) {
	if m.deps.Notifier == nil {
		return
	}
	if err := m.deps.Notifier.Notify(ctx, event); err != nil {
		m.logger.Warn("failed to publish event", "kind", event.Kind, "error", err)
	}
}
