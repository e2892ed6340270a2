package signals

import (
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smazurov/framenode/internal/recording"
)

type call struct {
	action string
	stream int
}

type fakeRecorder struct {
	mu        sync.Mutex
	calls     []call
	recording map[int]bool
}

func newFakeRecorder() *fakeRecorder {
	return &fakeRecorder{recording: make(map[int]bool)}
}

func (r *fakeRecorder) Start(stream int) recording.Result {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, call{"start", stream})
	if r.recording[stream] {
		return recording.AlreadyRecording
	}
	r.recording[stream] = true
	return recording.Started
}

func (r *fakeRecorder) Stop(stream int) recording.Result {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, call{"stop", stream})
	if !r.recording[stream] {
		return recording.NotRecording
	}
	r.recording[stream] = false
	return recording.Stopped
}

func (r *fakeRecorder) history() []call {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]call(nil), r.calls...)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestMarkerNames(t *testing.T) {
	assert.Equal(t, "record_start_1.signal", StartMarker(0))
	assert.Equal(t, "record_stop_3.signal", StopMarker(2))
}

func TestTickWithFileMarkers(t *testing.T) {
	dir := t.TempDir()
	medium, err := NewFileMedium(dir, discardLogger())
	require.NoError(t, err)

	rec := newFakeRecorder()
	w := NewWatcher([]int{0, 1}, rec, discardLogger(), medium)

	require.NoError(t, RequestStart(dir, 1))
	w.Tick()

	assert.Equal(t, []call{{"start", 1}}, rec.history())
	_, statErr := os.Stat(filepath.Join(dir, StartMarker(1)))
	assert.True(t, os.IsNotExist(statErr), "start marker must be consumed")

	w.Tick()
	assert.Len(t, rec.history(), 1, "consumed marker must not fire again")

	require.NoError(t, RequestStop(dir, 1))
	w.Tick()
	assert.Equal(t, []call{{"start", 1}, {"stop", 1}}, rec.history())
}

func TestStartHandledBeforeStop(t *testing.T) {
	m := NewMemoryMedium()
	rec := newFakeRecorder()
	w := NewWatcher([]int{0}, rec, discardLogger(), m)

	m.RequestStop(0)
	m.RequestStart(0)
	w.Tick()

	assert.Equal(t, []call{{"start", 0}, {"stop", 0}}, rec.history())
	assert.False(t, rec.recording[0])
}

func TestMemoryMediumAck(t *testing.T) {
	m := NewMemoryMedium()
	m.RequestStart(2)
	assert.True(t, m.StartRequested(2))
	assert.False(t, m.StopRequested(2))
	require.NoError(t, m.AckStart(2))
	assert.False(t, m.StartRequested(2))
}

type stuckMedium struct {
	*MemoryMedium
}

func (stuckMedium) AckStart(int) error { return errors.New("read-only") }

func TestStuckMarkerIsIdempotent(t *testing.T) {
	m := stuckMedium{NewMemoryMedium()}
	m.RequestStart(0)

	rec := newFakeRecorder()
	w := NewWatcher([]int{0}, rec, discardLogger(), m)
	w.Tick()
	w.Tick()

	assert.Equal(t, []call{{"start", 0}, {"start", 0}}, rec.history())
	assert.True(t, rec.recording[0])
}

func TestMultipleMedia(t *testing.T) {
	dir := t.TempDir()
	file, err := NewFileMedium(dir, discardLogger())
	require.NoError(t, err)
	mem := NewMemoryMedium()

	rec := newFakeRecorder()
	w := NewWatcher([]int{0, 1}, rec, discardLogger(), file, mem)

	require.NoError(t, RequestStart(dir, 0))
	mem.RequestStart(1)
	w.Tick()

	assert.ElementsMatch(t, []call{{"start", 0}, {"start", 1}}, rec.history())
}

func TestUnknownStreamIgnored(t *testing.T) {
	m := NewMemoryMedium()
	m.RequestStart(5)
	rec := newFakeRecorder()
	NewWatcher([]int{0}, rec, discardLogger(), m).Tick()
	assert.Empty(t, rec.history())
	assert.True(t, m.StartRequested(5))
}

func TestFileMediumWatch(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, RequestStart(dir, 0))

	medium, err := NewFileMedium(dir, discardLogger())
	require.NoError(t, err)
	require.NoError(t, medium.Watch())
	defer medium.Close()

	// existing markers are picked up by the initial scan
	assert.True(t, medium.StartRequested(0))
	require.NoError(t, medium.AckStart(0))
	assert.False(t, medium.StartRequested(0))

	require.NoError(t, RequestStop(dir, 0))
	assert.Eventually(t, func() bool { return medium.StopRequested(0) }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, os.Remove(filepath.Join(dir, StopMarker(0))))
	assert.Eventually(t, func() bool { return !medium.StopRequested(0) }, 2*time.Second, 10*time.Millisecond)
}

func TestFileMediumKeepsMarkerRecreatedDuringAck(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, RequestStart(dir, 0))

	medium, err := NewFileMedium(dir, discardLogger())
	require.NoError(t, err)
	require.NoError(t, medium.rescan())
	medium.watching = true

	// A new request lands right after the old marker is removed and the
	// watcher records its Create event before the ack returns.
	medium.remove = func(path string) error {
		if err := os.Remove(path); err != nil {
			return err
		}
		if err := RequestStart(dir, 0); err != nil {
			return err
		}
		medium.mu.Lock()
		medium.present[filepath.Base(path)] = struct{}{}
		medium.mu.Unlock()
		return nil
	}

	require.NoError(t, medium.AckStart(0))
	assert.True(t, medium.StartRequested(0), "request made during the ack must stay pending")
}

func TestFileMediumCloseFallsBackToPolling(t *testing.T) {
	dir := t.TempDir()
	medium, err := NewFileMedium(dir, discardLogger())
	require.NoError(t, err)
	require.NoError(t, medium.Watch())
	require.NoError(t, medium.Close())
	require.NoError(t, medium.Close())

	require.NoError(t, RequestStart(dir, 0))
	assert.True(t, medium.StartRequested(0))
}

func TestAckMissingMarker(t *testing.T) {
	medium, err := NewFileMedium(t.TempDir(), discardLogger())
	require.NoError(t, err)
	assert.NoError(t, medium.AckStop(3))
}
