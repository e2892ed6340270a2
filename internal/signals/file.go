package signals

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
)

const markerExt = ".signal"

// StartMarker returns the file name requesting a recording start for stream.
func StartMarker(stream int) string {
	return fmt.Sprintf("record_start_%d%s", stream+1, markerExt)
}

// StopMarker returns the file name requesting a recording stop for stream.
func StopMarker(stream int) string {
	return fmt.Sprintf("record_stop_%d%s", stream+1, markerExt)
}

// RequestStart drops a start marker for stream into dir.
func RequestStart(dir string, stream int) error {
	return touch(filepath.Join(dir, StartMarker(stream)))
}

// RequestStop drops a stop marker for stream into dir.
func RequestStop(dir string, stream int) error {
	return touch(filepath.Join(dir, StopMarker(stream)))
}

func touch(path string) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	return f.Close()
}

// FileMedium reads requests from marker files in a directory. Without Watch
// every query stats the marker. With Watch, fsnotify keeps a set of present
// markers and queries only stat files that are known to exist.
type FileMedium struct {
	dir    string
	logger *slog.Logger
	remove func(path string) error

	mu       sync.Mutex
	watching bool
	present  map[string]struct{}

	watcher *fsnotify.Watcher
	ctx     context.Context
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewFileMedium creates dir if needed.
func NewFileMedium(dir string, logger *slog.Logger) (*FileMedium, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create signal dir %s: %w", dir, err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &FileMedium{
		dir:     dir,
		logger:  logger,
		remove:  os.Remove,
		present: make(map[string]struct{}),
		ctx:     ctx,
		cancel:  cancel,
	}, nil
}

// Dir returns the watched directory.
func (m *FileMedium) Dir() string {
	return m.dir
}

// Watch starts tracking marker files with fsnotify. On failure the medium
// keeps working by polling.
func (m *FileMedium) Watch() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := watcher.Add(m.dir); err != nil {
		watcher.Close()
		return err
	}

	if err := m.rescan(); err != nil {
		watcher.Close()
		return err
	}

	m.mu.Lock()
	m.watcher = watcher
	m.done = make(chan struct{})
	m.watching = true
	done := m.done
	m.mu.Unlock()

	m.logger.Info("Signal watcher started", "dir", m.dir)
	go m.watch(watcher, done)
	return nil
}

// Close stops watching. Queries fall back to polling afterwards.
func (m *FileMedium) Close() error {
	m.cancel()
	m.mu.Lock()
	watcher, done := m.watcher, m.done
	m.watching = false
	m.watcher = nil
	m.mu.Unlock()

	if watcher == nil {
		return nil
	}
	err := watcher.Close()
	<-done
	return err
}

func (m *FileMedium) watch(watcher *fsnotify.Watcher, done chan struct{}) {
	defer close(done)
	for {
		select {
		case <-m.ctx.Done():
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			name := filepath.Base(event.Name)
			if !strings.HasSuffix(name, markerExt) {
				continue
			}
			m.mu.Lock()
			switch {
			case event.Op&fsnotify.Create != 0:
				m.present[name] = struct{}{}
			case event.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
				delete(m.present, name)
			}
			m.mu.Unlock()

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			if errors.Is(err, fsnotify.ErrEventOverflow) {
				m.logger.Warn("Signal watcher overflowed, rescanning", "dir", m.dir)
				if rescanErr := m.rescan(); rescanErr != nil {
					m.logger.Warn("Signal dir rescan failed", "error", rescanErr)
				}
				continue
			}
			m.logger.Warn("Signal watcher error", "error", err)
		}
	}
}

func (m *FileMedium) rescan() error {
	entries, err := os.ReadDir(m.dir)
	if err != nil {
		return err
	}
	present := make(map[string]struct{})
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), markerExt) {
			present[e.Name()] = struct{}{}
		}
	}
	m.mu.Lock()
	m.present = present
	m.mu.Unlock()
	return nil
}

func (m *FileMedium) exists(name string) bool {
	m.mu.Lock()
	if m.watching {
		if _, ok := m.present[name]; !ok {
			m.mu.Unlock()
			return false
		}
	}
	m.mu.Unlock()

	_, err := os.Stat(filepath.Join(m.dir, name))
	return err == nil
}

// consume forgets the marker before removing it, so a Create event for a new
// marker that arrives after the removal is kept.
func (m *FileMedium) consume(name string) error {
	m.mu.Lock()
	delete(m.present, name)
	m.mu.Unlock()
	err := m.remove(filepath.Join(m.dir, name))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

func (m *FileMedium) StartRequested(stream int) bool { return m.exists(StartMarker(stream)) }
func (m *FileMedium) StopRequested(stream int) bool  { return m.exists(StopMarker(stream)) }
func (m *FileMedium) AckStart(stream int) error      { return m.consume(StartMarker(stream)) }
func (m *FileMedium) AckStop(stream int) error       { return m.consume(StopMarker(stream)) }
