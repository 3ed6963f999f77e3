package monitor

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rusenback/idlemon/internal/activity"
	"github.com/rusenback/idlemon/internal/model"
	"github.com/rusenback/idlemon/internal/storage"
)

type fakeLifecycle struct {
	info      model.ContainerInfo
	statusErr error
	stopErr   error

	statusCalls int
	stops       int
	starts      int
}

func (f *fakeLifecycle) Status(context.Context) (model.ContainerInfo, error) {
	f.statusCalls++
	return f.info, f.statusErr
}

func (f *fakeLifecycle) Start(context.Context) error {
	f.starts++
	return nil
}

func (f *fakeLifecycle) Stop(context.Context) error {
	f.stops++
	return f.stopErr
}

func running() *fakeLifecycle {
	return &fakeLifecycle{info: model.ContainerInfo{
		Name: "minecraft-server", Status: model.StatusRunning, State: "running", IPAddress: "10.0.0.5",
	}}
}

type fakeProber struct {
	result  model.ProbeResult
	panics  bool
	calls   int
	gotHost string
}

func (f *fakeProber) Probe(_ context.Context, host string, _ int) model.ProbeResult {
	f.calls++
	f.gotHost = host
	if f.panics {
		panic("boom")
	}
	return f.result
}

type fakeAnalyzer struct {
	signal     model.ActivitySignal
	final      bool
	calls      int
	finalCalls int
}

func (f *fakeAnalyzer) Analyze(context.Context) model.ActivitySignal {
	f.calls++
	return f.signal
}

func (f *fakeAnalyzer) FinalCheck(context.Context, int, int, time.Duration) bool {
	f.finalCalls++
	return f.final
}

// memStore mimics the versioned stores
type memStore struct {
	states  map[string]model.MonitoringState
	loadErr error
	saveErr error
	loads   int
	saves   int
}

func newMemStore() *memStore {
	return &memStore{states: map[string]model.MonitoringState{}}
}

func (s *memStore) Load(_ context.Context, key string) (model.MonitoringState, error) {
	s.loads++
	if s.loadErr != nil {
		return model.MonitoringState{}, s.loadErr
	}
	st, ok := s.states[key]
	if !ok {
		return model.MonitoringState{}, storage.ErrNotFound
	}
	return st, nil
}

func (s *memStore) Save(_ context.Context, key string, state *model.MonitoringState) error {
	s.saves++
	if s.saveErr != nil {
		return s.saveErr
	}
	cur, ok := s.states[key]
	if ok && cur.Version != state.Version || !ok && state.Version != "" {
		return storage.ErrConflict
	}
	n, _ := strconv.Atoi(state.Version)
	state.Version = strconv.Itoa(n + 1)
	s.states[key] = *state
	return nil
}

func (s *memStore) put(key string, st model.MonitoringState) {
	st.Version = "7"
	s.states[key] = st
}

type fakeNotifier struct {
	events []model.Event
}

func (f *fakeNotifier) Notify(_ context.Context, e model.Event) error {
	f.events = append(f.events, e)
	return nil
}

type harness struct {
	life     *fakeLifecycle
	prober   *fakeProber
	analyzer *fakeAnalyzer
	store    *memStore
	notifier *fakeNotifier
	now      time.Time
	mon      *Monitor
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		life:     running(),
		prober:   &fakeProber{result: model.Found(model.MethodModern, 0, 20)},
		analyzer: &fakeAnalyzer{},
		store:    newMemStore(),
		notifier: &fakeNotifier{},
		now:      time.Date(2026, 10, 14, 12, 0, 0, 0, time.UTC),
	}
	h.mon = New(DefaultConfig(), Deps{
		Lifecycle: h.life,
		Prober:    h.prober,
		Analyzer:  h.analyzer,
		Store:     h.store,
		Notifier:  h.notifier,
		Now:       func() time.Time { return h.now },
	}, nil)
	return h
}

// advance moves the clock one cadence and runs a tick
func (h *harness) tick() Report {
	h.now = h.now.Add(3 * time.Minute)
	return h.mon.tick(context.Background())
}

func (h *harness) state(t *testing.T) model.MonitoringState {
	t.Helper()
	st, ok := h.store.states["current"]
	require.True(t, ok, "state should be persisted")
	return st
}

func TestTick_NotRunningIsNoop(t *testing.T) {
	h := newHarness(t)
	h.life.info = model.ContainerInfo{Name: "minecraft-server", Status: model.StatusStopped, State: "exited"}

	rep := h.tick()
	assert.Equal(t, DecisionSkipped, rep.Decision)
	assert.Zero(t, h.store.loads)
	assert.Zero(t, h.store.saves)
	assert.Zero(t, h.prober.calls)
}

func TestTick_RunningWithoutAddressIsNoop(t *testing.T) {
	h := newHarness(t)
	h.life.info.IPAddress = ""

	rep := h.tick()
	assert.Equal(t, DecisionSkipped, rep.Decision)
	assert.Zero(t, h.store.saves)
	assert.Zero(t, h.prober.calls)
}

func TestTick_AddressOverride(t *testing.T) {
	h := newHarness(t)
	h.life.info.IPAddress = ""
	h.mon.cfg.Address = "127.0.0.1"

	h.tick()
	assert.Equal(t, "127.0.0.1", h.prober.gotHost)
	assert.Equal(t, 1, h.store.saves)
}

func TestTick_StatusErrorIsNoop(t *testing.T) {
	h := newHarness(t)
	h.life.statusErr = errors.New("engine unreachable")

	assert.Equal(t, DecisionSkipped, h.tick().Decision)
	assert.Zero(t, h.store.saves)
}

func TestTick_LoadErrorSkipsTick(t *testing.T) {
	h := newHarness(t)
	h.store.loadErr = errors.New("disk I/O error")

	assert.Equal(t, DecisionSkipped, h.tick().Decision)
	assert.Zero(t, h.prober.calls)
	assert.Zero(t, h.life.stops)
	assert.Zero(t, h.store.saves)
}

func TestTick_MissingStateKeyIsNoop(t *testing.T) {
	h := newHarness(t)
	h.mon.cfg.StateKey = ""

	assert.Equal(t, DecisionSkipped, h.tick().Decision)
	assert.Zero(t, h.life.statusCalls)
}

func TestTick_LazilyCreatesState(t *testing.T) {
	h := newHarness(t)
	h.prober.result = model.Found(model.MethodModern, 1, 20)

	rep := h.tick()
	assert.Equal(t, DecisionActive, rep.Decision)
	assert.True(t, rep.Persisted)

	st := h.state(t)
	assert.Equal(t, h.now, st.LastPlayersSeenAt)
	assert.Equal(t, h.now, st.LastCheckTime)
	assert.Equal(t, 0, st.ConsecutiveEmptyChecks)
}

func TestTick_DebounceThenShutdown(t *testing.T) {
	h := newHarness(t)

	rep := h.tick()
	assert.Equal(t, DecisionCountingDown, rep.Decision)
	assert.Equal(t, 1, h.state(t).ConsecutiveEmptyChecks)
	assert.Zero(t, h.life.stops)
	assert.Zero(t, h.analyzer.finalCalls)

	rep = h.tick()
	assert.Equal(t, DecisionShutdown, rep.Decision)
	assert.Equal(t, 1, h.analyzer.finalCalls, "shutdown must be gated by the final check")
	assert.Equal(t, 1, h.life.stops)

	st := h.state(t)
	assert.Equal(t, 0, st.ConsecutiveEmptyChecks)
	assert.Equal(t, 0, st.ConsecutiveProbeFailures)
	assert.Equal(t, h.now, st.LastPlayersSeenAt)

	require.Len(t, h.notifier.events, 1)
	assert.Equal(t, model.EventShutdown, h.notifier.events[0].Kind)
	assert.Equal(t, "minecraft-server", h.notifier.events[0].Container)
	assert.Equal(t, 2, h.notifier.events[0].EmptyChecks)
}

func TestTick_PlayersResetCounters(t *testing.T) {
	h := newHarness(t)
	h.store.put("current", model.MonitoringState{
		LastPlayersSeenAt:        h.now.Add(-time.Hour),
		ConsecutiveEmptyChecks:   1,
		ConsecutiveProbeFailures: 1,
	})
	h.prober.result = model.Found(model.MethodLegacy, 3, 20)

	rep := h.tick()
	assert.Equal(t, DecisionActive, rep.Decision)
	assert.Equal(t, 3, rep.Players)

	st := h.state(t)
	assert.Equal(t, 0, st.ConsecutiveEmptyChecks)
	assert.Equal(t, 0, st.ConsecutiveProbeFailures)
	assert.Equal(t, h.now, st.LastPlayersSeenAt)
}

func TestTick_FinalRecheckAborts(t *testing.T) {
	h := newHarness(t)
	h.store.put("current", model.MonitoringState{ConsecutiveEmptyChecks: 1})
	h.analyzer.final = true

	rep := h.tick()
	assert.Equal(t, DecisionShutdownAborted, rep.Decision)
	assert.Zero(t, h.life.stops)

	st := h.state(t)
	assert.Equal(t, 0, st.ConsecutiveEmptyChecks)
	assert.Equal(t, h.now, st.LastPlayersSeenAt)

	require.Len(t, h.notifier.events, 1)
	assert.Equal(t, model.EventShutdownAborted, h.notifier.events[0].Kind)
}

func TestTick_StopFailureRetriesNextTick(t *testing.T) {
	h := newHarness(t)
	h.store.put("current", model.MonitoringState{ConsecutiveEmptyChecks: 1})
	h.life.stopErr = errors.New("conflict: container is restarting")

	rep := h.tick()
	assert.Equal(t, DecisionShutdownFailed, rep.Decision)
	assert.Equal(t, 2, h.state(t).ConsecutiveEmptyChecks)

	h.life.stopErr = nil
	rep = h.tick()
	assert.Equal(t, DecisionShutdown, rep.Decision)
	assert.Equal(t, 2, h.life.stops)
	assert.Equal(t, 0, h.state(t).ConsecutiveEmptyChecks)
}

func TestTick_SilenceCountsTowardEmpty(t *testing.T) {
	h := newHarness(t)
	h.prober.result = model.Unknown

	rep := h.tick()
	assert.Equal(t, DecisionAwaitingEvidence, rep.Decision)
	st := h.state(t)
	assert.Equal(t, 1, st.ConsecutiveProbeFailures)
	assert.Equal(t, 0, st.ConsecutiveEmptyChecks)

	rep = h.tick()
	assert.Equal(t, DecisionCountingDown, rep.Decision)
	assert.Equal(t, "silence", rep.Source)
	st = h.state(t)
	assert.Equal(t, 0, st.ConsecutiveProbeFailures)
	assert.Equal(t, 1, st.ConsecutiveEmptyChecks)
	assert.Zero(t, h.life.stops)
}

func TestTick_LogActivityStandsInForProtocol(t *testing.T) {
	h := newHarness(t)
	h.store.put("current", model.MonitoringState{ConsecutiveProbeFailures: 1, ConsecutiveEmptyChecks: 1})
	h.prober.result = model.Unknown
	h.analyzer.signal = model.ActivitySignal{RecentActivity: true, EstimatedCount: 2}

	rep := h.tick()
	assert.Equal(t, DecisionActive, rep.Decision)
	assert.Equal(t, "logs", rep.Source)
	assert.Equal(t, 2, rep.Players)

	st := h.state(t)
	assert.Equal(t, 0, st.ConsecutiveProbeFailures)
	assert.Equal(t, 0, st.ConsecutiveEmptyChecks)
}

func TestTick_ProbeAndLogsBothRun(t *testing.T) {
	h := newHarness(t)
	h.prober.result = model.Found(model.MethodModern, 4, 20)

	h.tick()
	assert.Equal(t, 1, h.prober.calls)
	assert.Equal(t, 1, h.analyzer.calls)
}

func TestTick_SaveConflictIsNonFatal(t *testing.T) {
	h := newHarness(t)
	h.store.saveErr = storage.ErrConflict

	rep := h.tick()
	assert.Equal(t, DecisionCountingDown, rep.Decision)
	assert.False(t, rep.Persisted)
}

func TestTick_RecoversFromPanic(t *testing.T) {
	h := newHarness(t)
	h.prober.panics = true

	assert.NotPanics(t, func() { h.mon.Tick(context.Background()) })
	assert.Zero(t, h.life.stops)
}

func TestTick_IndependentThresholds(t *testing.T) {
	h := newHarness(t)
	h.mon.cfg.EmptyThreshold = 3

	h.tick()
	h.tick()
	assert.Zero(t, h.life.stops)
	assert.Equal(t, 2, h.state(t).ConsecutiveEmptyChecks)

	h.tick()
	assert.Equal(t, 1, h.life.stops)
}

func TestRun_StopsOnCancel(t *testing.T) {
	h := newHarness(t)
	h.mon.cfg.Interval = 10 * time.Millisecond
	h.prober.result = model.Found(model.MethodModern, 1, 20)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	require.NoError(t, h.mon.Run(ctx, true))
	assert.GreaterOrEqual(t, h.life.statusCalls, 2)
}

func TestStartServer_ResetsState(t *testing.T) {
	h := newHarness(t)
	h.store.put("current", model.MonitoringState{ConsecutiveEmptyChecks: 1, ConsecutiveProbeFailures: 1})

	require.NoError(t, h.mon.StartServer(context.Background()))
	assert.Equal(t, 1, h.life.starts)

	st := h.state(t)
	assert.Equal(t, 0, st.ConsecutiveEmptyChecks)
	assert.Equal(t, 0, st.ConsecutiveProbeFailures)
	assert.Equal(t, h.now, st.LastPlayersSeenAt)
}

// quietServerLogs holds only a startup line older than any since window
type quietServerLogs struct{}

func (quietServerLogs) Tail(_ context.Context, _ int, since time.Duration) ([]string, error) {
	if since > 0 {
		return nil, nil
	}
	return []string{`[Server thread/INFO]: Done (4.1s)! For help, type "help"`}, nil
}

func TestTick_QuietIdleServerIsStopped(t *testing.T) {
	h := newHarness(t)
	h.mon.deps.Analyzer = activity.NewAnalyzer(quietServerLogs{}, activity.DefaultWindows(), nil)

	assert.Equal(t, DecisionCountingDown, h.tick().Decision)
	assert.Equal(t, DecisionShutdown, h.tick().Decision)
	assert.Equal(t, 1, h.life.stops)
	require.Len(t, h.notifier.events, 1)
	assert.Equal(t, model.EventShutdown, h.notifier.events[0].Kind)
}
