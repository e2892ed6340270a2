package recording

import (
	"fmt"
	"log/slog"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/smazurov/framenode/internal/events"
	"github.com/smazurov/framenode/internal/frame"
	"github.com/smazurov/framenode/internal/metrics"
)

// StreamSpec is the output geometry of one recordable stream.
type StreamSpec struct {
	Index  int
	Width  int
	Height int
	FPS    float64
}

// Options configures a Manager.
type Options struct {
	Dir       string
	Extension string
	Codec     string
	NewWriter WriterFactory
	EventBus  *events.Bus
	Logger    *slog.Logger
	Now       func() time.Time
}

// Status is a snapshot of one stream's recording state.
type Status struct {
	Stream    int       `json:"stream"`
	Recording bool      `json:"recording"`
	Path      string    `json:"path,omitempty"`
	Frames    uint64    `json:"frames"`
	Since     time.Time `json:"since,omitzero"`
}

type streamState struct {
	spec StreamSpec

	mu        sync.Mutex
	recording atomic.Bool // mirrors writer != nil; read without mu
	writer    Writer
	path      string
	frames    uint64
	since     time.Time
	used      map[string]struct{}
}

// Manager owns the recording state of every stream.
type Manager struct {
	opts    Options
	logger  *slog.Logger
	streams map[int]*streamState
}

// NewManager creates the recording directory and an idle state per stream.
func NewManager(streams []StreamSpec, opts Options) (*Manager, error) {
	if opts.NewWriter == nil {
		return nil, fmt.Errorf("recording: writer factory is required")
	}
	if opts.Dir == "" {
		opts.Dir = "records"
	}
	if opts.Extension == "" {
		opts.Extension = ".avi"
	}
	if opts.Codec == "" {
		opts.Codec = "XVID"
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	if err := os.MkdirAll(opts.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("create recording dir %s: %w", opts.Dir, err)
	}

	m := &Manager{
		opts:    opts,
		logger:  opts.Logger,
		streams: make(map[int]*streamState, len(streams)),
	}
	for _, s := range streams {
		if _, dup := m.streams[s.Index]; dup {
			return nil, fmt.Errorf("recording: duplicate stream %d", s.Index)
		}
		m.streams[s.Index] = &streamState{spec: s, used: make(map[string]struct{})}
	}
	return m, nil
}

// Dir returns the directory recordings are written to.
func (m *Manager) Dir() string {
	return m.opts.Dir
}

// IsRecording reports whether stream is recording at this instant.
func (m *Manager) IsRecording(stream int) bool {
	st, ok := m.streams[stream]
	return ok && st.recording.Load()
}

// Start opens a new recording for stream.
func (m *Manager) Start(stream int) Result {
	st, ok := m.streams[stream]
	if !ok {
		m.logger.Warn("Recording requested for unknown stream", "stream", stream)
		return Failed
	}

	st.mu.Lock()
	defer st.mu.Unlock()

	if st.writer != nil {
		return AlreadyRecording
	}

	now := m.opts.Now()
	path := uniquePath(m.opts.Dir, stream, now, m.opts.Extension, st.used)
	w, err := m.opts.NewWriter(WriterSpec{
		Path:   path,
		Width:  st.spec.Width,
		Height: st.spec.Height,
		FPS:    st.spec.FPS,
		Codec:  m.opts.Codec,
	})
	if err != nil || w == nil {
		if err == nil {
			err = fmt.Errorf("writer factory returned nil")
		}
		m.logger.Error("Failed to start recording", "stream", stream, "path", path, "error", err)
		m.opts.EventBus.Publish(events.RecordingFailedEvent{
			Stream:    stream,
			Error:     err.Error(),
			Timestamp: now.Format(time.RFC3339),
		})
		return Failed
	}

	st.used[path] = struct{}{}
	st.writer = w
	st.path = path
	st.frames = 0
	st.since = now
	st.recording.Store(true)

	metrics.SetRecordingActive(stream, true)
	m.logger.Info("Recording started", "stream", stream, "path", path)
	m.opts.EventBus.Publish(events.RecordingStartedEvent{
		Stream:    stream,
		Path:      path,
		Timestamp: now.Format(time.RFC3339),
	})
	return Started
}

// Stop closes the recording of stream. Writes in flight on the stream's
// worker finish before the writer is closed.
func (m *Manager) Stop(stream int) Result {
	st, ok := m.streams[stream]
	if !ok {
		return NotRecording
	}

	st.mu.Lock()
	defer st.mu.Unlock()

	if st.writer == nil {
		return NotRecording
	}

	w, path, frames := st.writer, st.path, st.frames
	st.writer = nil
	st.path = ""
	st.recording.Store(false)

	if err := w.Close(); err != nil {
		m.logger.Error("Error stopping recording", "stream", stream, "path", path, "error", err)
	}

	metrics.SetRecordingActive(stream, false)
	m.logger.Info("Recording stopped", "stream", stream, "path", path, "frames", frames)
	m.opts.EventBus.Publish(events.RecordingStoppedEvent{
		Stream:    stream,
		Path:      path,
		Frames:    frames,
		Timestamp: m.opts.Now().Format(time.RFC3339),
	})
	return Stopped
}

// WriteIfRecording writes f when stream is recording. Write failures are
// logged and leave the recording open.
func (m *Manager) WriteIfRecording(stream int, f *frame.Frame) {
	st, ok := m.streams[stream]
	if !ok || f == nil || !st.recording.Load() {
		return
	}

	st.mu.Lock()
	defer st.mu.Unlock()

	if st.writer == nil {
		return
	}
	if err := st.writer.Write(f); err != nil {
		metrics.IncRecordingWriteErrors(stream)
		m.logger.Warn("Error writing frame", "stream", stream, "seq", f.Seq, "error", err)
		return
	}
	st.frames++
	metrics.IncFramesRecorded(stream)
}

// StopAll closes every open recording.
func (m *Manager) StopAll() {
	for _, idx := range m.indices() {
		m.Stop(idx)
	}
}

// Status returns the recording state of every stream ordered by index.
func (m *Manager) Status() []Status {
	indices := m.indices()
	out := make([]Status, 0, len(indices))
	for _, idx := range indices {
		st := m.streams[idx]
		st.mu.Lock()
		s := Status{Stream: idx, Recording: st.writer != nil}
		if s.Recording {
			s.Path = st.path
			s.Frames = st.frames
			s.Since = st.since
		}
		st.mu.Unlock()
		out = append(out, s)
	}
	return out
}

func (m *Manager) indices() []int {
	out := make([]int, 0, len(m.streams))
	for idx := range m.streams {
		out = append(out, idx)
	}
	sort.Ints(out)
	return out
}
