package led

import (
	"log/slog"
	"sync"

	"github.com/smazurov/framenode/internal/events"
)

// Manager turns recording events into an indicator pattern: solid while any
// stream records, heartbeat while idle, blink after a failed start until the
// next successful transition.
type Manager struct {
	controller Controller
	eventBus   *events.Bus
	indicator  string
	logger     *slog.Logger

	mu          sync.Mutex
	recording   map[int]bool
	failed      bool
	current     string
	stopped     bool
	unsubscribe []func()
}

// NewManager creates a manager for the given LED. An empty ledType selects
// the board's first available LED.
func NewManager(controller Controller, eventBus *events.Bus, ledType string, logger *slog.Logger) *Manager {
	if ledType == "" {
		if available := controller.Available(); len(available) > 0 {
			ledType = available[0]
		}
	}
	return &Manager{
		controller: controller,
		eventBus:   eventBus,
		indicator:  ledType,
		logger:     logger,
		recording:  make(map[int]bool),
	}
}

// Indicator returns the LED type driven by the manager.
func (m *Manager) Indicator() string {
	return m.indicator
}

// Start subscribes to recording events and shows the idle pattern.
func (m *Manager) Start() {
	m.mu.Lock()
	m.stopped = false
	m.unsubscribe = []func(){
		m.eventBus.Subscribe(func(e events.RecordingStartedEvent) { m.recordingChanged(e.GetStream(), e.IsRecording()) }),
		m.eventBus.Subscribe(func(e events.RecordingStoppedEvent) { m.recordingChanged(e.GetStream(), e.IsRecording()) }),
		m.eventBus.Subscribe(func(e events.RecordingFailedEvent) { m.recordingFailed(e.Stream) }),
	}
	m.apply()
	m.mu.Unlock()
	m.logger.Info("LED manager started", "indicator", m.indicator)
}

// Stop unsubscribes and switches the indicator off.
func (m *Manager) Stop() {
	m.mu.Lock()
	unsubscribe := m.unsubscribe
	m.unsubscribe = nil
	m.mu.Unlock()
	for _, unsub := range unsubscribe {
		unsub()
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopped = true
	if m.indicator != "" {
		if err := m.controller.Set(m.indicator, false, ""); err != nil {
			m.logger.Warn("Failed to switch LED off", "led", m.indicator, "error", err)
		}
	}
	m.current = ""
	m.logger.Info("LED manager stopped")
}

func (m *Manager) recordingChanged(stream int, recording bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if recording {
		m.recording[stream] = true
	} else {
		delete(m.recording, stream)
	}
	m.failed = false
	m.logger.Debug("Recording state changed", "stream", stream, "recording", recording)
	m.apply()
}

func (m *Manager) recordingFailed(stream int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failed = true
	m.logger.Debug("Recording failed", "stream", stream)
	m.apply()
}

// pattern must be called with mu held.
func (m *Manager) pattern() string {
	switch {
	case m.failed:
		return PatternBlink
	case len(m.recording) > 0:
		return PatternSolid
	default:
		return PatternHeartbeat
	}
}

func (m *Manager) apply() {
	if m.indicator == "" || m.stopped {
		return
	}
	pattern := m.pattern()
	if pattern == m.current {
		return
	}
	if err := m.controller.Set(m.indicator, true, pattern); err != nil {
		m.logger.Warn("Failed to set LED pattern", "led", m.indicator, "pattern", pattern, "error", err)
		return
	}
	m.current = pattern
}

// GetController returns the underlying LED controller.
func (m *Manager) GetController() Controller {
	return m.controller
}
