package led

import (
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smazurov/framenode/internal/events"
)

type mockController struct {
	mu       sync.Mutex
	setCalls []setCall
}

type setCall struct {
	ledType string
	enabled bool
	pattern string
}

func (m *mockController) Set(ledType string, enabled bool, pattern string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.setCalls = append(m.setCalls, setCall{ledType, enabled, pattern})
	return nil
}

func (m *mockController) Available() []string {
	return []string{"system", "user"}
}

func (m *mockController) Patterns() []string {
	return []string{PatternSolid, PatternBlink, PatternHeartbeat}
}

func (m *mockController) last() setCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.setCalls) == 0 {
		return setCall{}
	}
	return m.setCalls[len(m.setCalls)-1]
}

func (m *mockController) calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.setCalls)
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func waitPattern(t *testing.T, ctrl *mockController, pattern string) {
	t.Helper()
	require.Eventually(t, func() bool {
		return ctrl.last().pattern == pattern
	}, time.Second, 5*time.Millisecond, "last pattern %q", ctrl.last().pattern)
}

func TestManager_IdleHeartbeat(t *testing.T) {
	ctrl := &mockController{}
	mgr := NewManager(ctrl, events.New(), "", discard())
	mgr.Start()
	defer mgr.Stop()

	assert.Equal(t, "system", mgr.Indicator())
	assert.Equal(t, setCall{"system", true, PatternHeartbeat}, ctrl.last())
}

func TestManager_SolidWhileAnyStreamRecords(t *testing.T) {
	ctrl := &mockController{}
	bus := events.New()
	mgr := NewManager(ctrl, bus, "user", discard())
	mgr.Start()
	defer mgr.Stop()

	bus.Publish(events.RecordingStartedEvent{Stream: 0})
	waitPattern(t, ctrl, PatternSolid)

	bus.Publish(events.RecordingStartedEvent{Stream: 1})
	bus.Publish(events.RecordingStoppedEvent{Stream: 0})
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, PatternSolid, ctrl.last().pattern)
	assert.Equal(t, "user", ctrl.last().ledType)

	bus.Publish(events.RecordingStoppedEvent{Stream: 1})
	waitPattern(t, ctrl, PatternHeartbeat)
}

func TestManager_FailureBlinksUntilNextTransition(t *testing.T) {
	ctrl := &mockController{}
	bus := events.New()
	mgr := NewManager(ctrl, bus, "", discard())
	mgr.Start()
	defer mgr.Stop()

	bus.Publish(events.RecordingFailedEvent{Stream: 2, Error: "open failed"})
	waitPattern(t, ctrl, PatternBlink)

	bus.Publish(events.RecordingStartedEvent{Stream: 2})
	waitPattern(t, ctrl, PatternSolid)
}

func TestManager_SkipsRedundantWrites(t *testing.T) {
	ctrl := &mockController{}
	bus := events.New()
	mgr := NewManager(ctrl, bus, "", discard())
	mgr.Start()
	defer mgr.Stop()

	bus.Publish(events.RecordingStoppedEvent{Stream: 0})
	bus.Publish(events.RecordingStoppedEvent{Stream: 1})
	time.Sleep(20 * time.Millisecond)

	assert.Equal(t, 1, ctrl.calls())
}

func TestManager_StopSwitchesOff(t *testing.T) {
	ctrl := &mockController{}
	bus := events.New()
	mgr := NewManager(ctrl, bus, "", discard())
	mgr.Start()
	mgr.Stop()

	assert.Equal(t, setCall{"system", false, ""}, ctrl.last())

	n := ctrl.calls()
	bus.Publish(events.RecordingStartedEvent{Stream: 0})
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, n, ctrl.calls(), "no updates after Stop")
}

func TestManager_GetController(t *testing.T) {
	ctrl := &mockController{}
	mgr := NewManager(ctrl, events.New(), "", discard())

	if got := mgr.GetController(); got != ctrl {
		t.Error("GetController() did not return the original controller")
	}
}
