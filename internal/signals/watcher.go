// Package signals turns external start/stop requests into recording commands.
package signals

import (
	"log/slog"

	"github.com/smazurov/framenode/internal/recording"
)

// Recorder is the subset of recording.Manager the watcher drives.
type Recorder interface {
	Start(stream int) recording.Result
	Stop(stream int) recording.Result
}

// Medium carries start/stop requests per stream. A request stays pending
// until it is acknowledged.
type Medium interface {
	StartRequested(stream int) bool
	StopRequested(stream int) bool
	AckStart(stream int) error
	AckStop(stream int) error
}

// Watcher polls its media once per Tick.
type Watcher struct {
	streams  []int
	recorder Recorder
	media    []Medium
	logger   *slog.Logger
}

// NewWatcher creates a watcher for the given stream indices.
func NewWatcher(streams []int, recorder Recorder, logger *slog.Logger, media ...Medium) *Watcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Watcher{
		streams:  append([]int(nil), streams...),
		recorder: recorder,
		media:    media,
		logger:   logger,
	}
}

// Tick checks every stream for pending requests. Start is handled before
// stop, so a stream with both markers ends up not recording.
func (w *Watcher) Tick() {
	for _, stream := range w.streams {
		for _, m := range w.media {
			if m.StartRequested(stream) {
				w.apply(stream, "start", w.recorder.Start(stream))
				if err := m.AckStart(stream); err != nil {
					w.logger.Warn("Failed to consume start signal", "stream", stream, "error", err)
				}
			}
			if m.StopRequested(stream) {
				w.apply(stream, "stop", w.recorder.Stop(stream))
				if err := m.AckStop(stream); err != nil {
					w.logger.Warn("Failed to consume stop signal", "stream", stream, "error", err)
				}
			}
		}
	}
}

func (w *Watcher) apply(stream int, action string, result recording.Result) {
	if result.Changed() {
		w.logger.Debug("Signal applied", "stream", stream, "action", action, "result", result.String())
		return
	}
	w.logger.Info("Signal had no effect", "stream", stream, "action", action, "result", result.Message())
}
