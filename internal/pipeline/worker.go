package pipeline

import (
	"fmt"
	"log/slog"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/smazurov/framenode/internal/frame"
	"github.com/smazurov/framenode/internal/metrics"
)

// WorkerState is the lifecycle position of a stream worker.
type WorkerState string

// Worker states.
const (
	WorkerIdle      WorkerState = "idle"
	WorkerRunning   WorkerState = "running"
	WorkerExhausted WorkerState = "exhausted"
	WorkerStopped   WorkerState = "stopped"
)

type workerStats struct {
	frames      atomic.Uint64
	misses      atomic.Uint64
	procErrors  atomic.Uint64
	snapErrors  atomic.Uint64
	lastFrameNs atomic.Int64
	state       atomic.Value // WorkerState
}

// worker runs the read, process, record and publish loop for one stream.
type worker struct {
	cfg       StreamConfig
	settings  Settings
	source    Source
	processor Processor
	buffer    *LatestBuffer
	state     *RunState
	recorder  Recorder
	snapshots Snapshotter
	logger    *slog.Logger

	// onExhausted is invoked once when the miss threshold is reached.
	onExhausted func(stream, misses int)

	stats       workerStats
	done        chan struct{}
	sourceOnce  sync.Once
	processOnce sync.Once
}

func newWorker(cfg StreamConfig, settings Settings, state *RunState, logger *slog.Logger) *worker {
	w := &worker{
		cfg:      cfg,
		settings: settings,
		buffer:   NewLatestBuffer(settings.QueueCapacity),
		state:    state,
		logger:   logger.With("stream", cfg.Index),
		done:     make(chan struct{}),
	}
	w.stats.state.Store(WorkerIdle)
	return w
}

func (w *worker) run() {
	defer close(w.done)
	defer w.releaseProcessor()

	w.setState(WorkerRunning)
	w.logger.Info("Stream worker started", "source", w.cfg.SourceKind, "processor", w.cfg.Processor)

	misses := 0
	for w.state.Running() {
		f := w.source.ReadFrame()
		if f == nil {
			misses++
			w.stats.misses.Add(1)
			metrics.IncFrameMisses(w.cfg.Index)

			if misses >= w.settings.MissThreshold {
				w.setState(WorkerExhausted)
				w.logger.Warn("Stream exhausted", "consecutive_misses", misses)
				if w.onExhausted != nil {
					w.onExhausted(w.cfg.Index, misses)
				}
				w.logger.Info("Stream worker exited", "frames", w.stats.frames.Load())
				return
			}

			w.logger.Debug("No frame available", "consecutive_misses", misses)
			if !w.state.Sleep(w.settings.MissBackoff) {
				break
			}
			continue
		}

		misses = 0
		w.handle(f)
	}

	w.setState(WorkerStopped)
	w.logger.Info("Stream worker exited", "frames", w.stats.frames.Load())
}

func (w *worker) handle(f *frame.Frame) {
	n := w.stats.frames.Add(1)
	f.Seq = n
	w.stats.lastFrameNs.Store(time.Now().UnixNano())
	metrics.IncFramesRead(w.cfg.Index)

	out := w.process(f)

	if w.snapshots != nil && w.settings.SnapshotEvery > 0 && n%uint64(w.settings.SnapshotEvery) == 0 {
		if err := w.snapshots.Snapshot(w.cfg.Index, out); err != nil {
			w.stats.snapErrors.Add(1)
			w.logger.Debug("Snapshot failed", "error", err)
		}
	}

	if w.recorder != nil {
		w.recorder.WriteIfRecording(w.cfg.Index, out)
	}

	if dropped := w.buffer.Publish(out); dropped > 0 {
		metrics.AddBufferDrops(w.cfg.Index, dropped)
	}

	if every := w.progressEvery(); n%every == 0 {
		w.logger.Debug("Stream progress", "frames", n, "dropped", w.buffer.Dropped())
	}
}

// process runs the stream processor, converting errors and panics into logged
// failures. The unprocessed frame continues downstream when processing fails.
func (w *worker) process(f *frame.Frame) (out *frame.Frame) {
	if w.processor == nil {
		return f
	}

	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			w.processingFailed(fmt.Errorf("processor panic: %v", r))
			out = f
		}
	}()

	res, err := w.processor.Process(f)
	metrics.ObserveProcessingDuration(w.cfg.Index, time.Since(start))
	if err != nil {
		w.processingFailed(err)
	}
	if res == nil {
		return f
	}
	return res
}

func (w *worker) processingFailed(err error) {
	w.stats.procErrors.Add(1)
	metrics.IncProcessingErrors(w.cfg.Index)
	w.logger.Warn("Frame processing failed", "error", err)
}

// progressEvery logs roughly once per second of video.
func (w *worker) progressEvery() uint64 {
	if w.cfg.FPS < 1 {
		return 30
	}
	return uint64(math.Round(w.cfg.FPS))
}

func (w *worker) setState(s WorkerState) {
	w.stats.state.Store(s)
}

func (w *worker) currentState() WorkerState {
	return w.stats.state.Load().(WorkerState)
}

func (w *worker) releaseSource() {
	w.sourceOnce.Do(func() {
		if w.source == nil {
			return
		}
		if err := w.source.Release(); err != nil {
			w.logger.Warn("Source release failed", "error", err)
		}
	})
}

func (w *worker) releaseProcessor() {
	w.processOnce.Do(func() {
		if w.processor == nil {
			return
		}
		defer func() {
			if r := recover(); r != nil {
				w.logger.Warn("Processor release panicked", "panic", r)
			}
		}()
		if err := w.processor.Release(); err != nil {
			w.logger.Warn("Processor release failed", "error", err)
		}
	})
}
