// Package pipeline runs one worker per video stream and coordinates
// processing, recording and rendering under a shared run/stop lifecycle.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/smazurov/framenode/internal/events"
	"github.com/smazurov/framenode/internal/logging"
	"github.com/smazurov/framenode/internal/metrics"
)

// Stop reasons reported in PipelineStoppedEvent and StopReason.
const (
	ReasonRequested = "requested"
	ReasonContext   = "context"
)

// Options configures an Orchestrator. Sources and Processors are required
// when any stream needs them; every other collaborator is optional.
type Options struct {
	Settings   Settings
	Streams    []StreamConfig
	Sources    SourceFactory
	Processors ProcessorFactory
	Recorder   Recorder
	Signals    SignalTicker
	Display    Display
	Snapshots  Snapshotter
	EventBus   *events.Bus
	// RunState is shared by all workers; a fresh one is created when nil.
	RunState *RunState
	Logger   *slog.Logger
}

// Orchestrator owns the stream workers of one run. A run cannot be restarted;
// construct a new Orchestrator to run again.
type Orchestrator struct {
	settings  Settings
	workers   []*worker
	byIndex   map[int]*worker
	state     *RunState
	recorder  Recorder
	signals   SignalTicker
	display   Display
	bus       *events.Bus
	logger    *slog.Logger
	runID     string
	startedAt time.Time

	started     atomic.Bool
	lifecycleMu sync.Mutex
	spawned     bool
	stopOnce    sync.Once
	stopped     chan struct{}

	reasonMu  sync.Mutex
	reason    string
	exhausted int
}

// New validates the configuration and opens every stream's source and
// processor. If any stream fails to initialize, everything opened so far is
// released and the error is returned.
func New(opts Options) (*Orchestrator, error) {
	if err := opts.Settings.Validate(); err != nil {
		return nil, err
	}
	if len(opts.Streams) == 0 {
		return nil, ErrNoStreams
	}

	logger := opts.Logger
	if logger == nil {
		logger = logging.GetLogger("pipeline")
	}
	state := opts.RunState
	if state == nil {
		state = NewRunState()
	}

	o := &Orchestrator{
		settings:  opts.Settings,
		byIndex:   make(map[int]*worker, len(opts.Streams)),
		state:     state,
		recorder:  opts.Recorder,
		signals:   opts.Signals,
		display:   opts.Display,
		bus:       opts.EventBus,
		runID:     uuid.NewString(),
		stopped:   make(chan struct{}),
		exhausted: -1,
	}
	o.logger = logger.With("run_id", o.runID)

	for _, cfg := range opts.Streams {
		if _, dup := o.byIndex[cfg.Index]; dup {
			o.releaseAll()
			return nil, &StreamError{Stream: cfg.Index, Op: "configure", Err: ErrDuplicateStream}
		}

		w := newWorker(cfg, o.settings, state, o.logger)
		w.recorder = opts.Recorder
		w.snapshots = opts.Snapshots
		w.onExhausted = o.streamExhausted
		o.workers = append(o.workers, w)
		o.byIndex[cfg.Index] = w

		if err := o.initStream(w, opts); err != nil {
			o.releaseAll()
			return nil, err
		}
		metrics.SetStreamExhausted(cfg.Index, false)
	}

	o.logger.Info("Pipeline initialized", "streams", len(o.workers))
	return o, nil
}

func (o *Orchestrator) initStream(w *worker, opts Options) error {
	cfg := w.cfg
	if opts.Sources == nil {
		return &StreamError{Stream: cfg.Index, Op: "create source", Err: errors.New("no source factory")}
	}
	src, err := opts.Sources(cfg)
	if err != nil {
		return &StreamError{Stream: cfg.Index, Op: "create source", Err: err}
	}
	w.source = src
	if err := src.Start(); err != nil {
		return &StreamError{Stream: cfg.Index, Op: "start source", Err: err}
	}

	if cfg.Processor == "" {
		return nil
	}
	if opts.Processors == nil {
		return &StreamError{Stream: cfg.Index, Op: "create processor", Err: errors.New("no processor factory")}
	}
	proc, err := opts.Processors(cfg)
	if err != nil {
		return &StreamError{Stream: cfg.Index, Op: "create processor", Err: err}
	}
	w.processor = proc
	return nil
}

// releaseAll is used when construction fails; no worker has run yet.
func (o *Orchestrator) releaseAll() {
	for _, w := range o.workers {
		w.releaseSource()
		w.releaseProcessor()
	}
}

// Run spawns one worker per stream and drives the control loop on the calling
// goroutine until the run stops: Stop is called, ctx is cancelled or a stream
// is exhausted. All resources have been released when Run returns. The error
// wraps ErrStreamExhausted when a stream ended the run.
func (o *Orchestrator) Run(ctx context.Context) error {
	if !o.started.CompareAndSwap(false, true) {
		return ErrAlreadyStarted
	}

	o.lifecycleMu.Lock()
	if !o.state.Running() {
		o.lifecycleMu.Unlock()
		o.stop(ReasonRequested)
		return ErrStopped
	}
	o.startedAt = time.Now()
	o.spawned = true
	for _, w := range o.workers {
		go w.run()
	}
	o.lifecycleMu.Unlock()

	o.logger.Info("Pipeline started", "streams", len(o.workers), "tick", o.settings.TickInterval)
	o.bus.Publish(events.PipelineStartedEvent{
		RunID:     o.runID,
		Streams:   len(o.workers),
		Timestamp: o.startedAt.Format(time.RFC3339),
	})

	ticker := time.NewTicker(o.settings.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			o.stop(ReasonContext)
			return nil
		case <-o.state.Done():
			o.stop(ReasonRequested)
			if stream := o.exhaustedStream(); stream >= 0 {
				return fmt.Errorf("%w: stream %d", ErrStreamExhausted, stream)
			}
			return nil
		case <-ticker.C:
			o.tick()
		}
	}
}

// tick polls control signals, then hands each stream's latest frame to the display.
func (o *Orchestrator) tick() {
	if o.signals != nil {
		o.signals.Tick()
	}
	if o.display == nil {
		return
	}
	for _, w := range o.workers {
		if f := w.buffer.DrainToLatest(); f != nil {
			o.display.Render(w.cfg.Index, f)
		}
	}
}

// Stop ends the run and blocks until shutdown completes. Safe to call more
// than once and from any goroutine. Releasing sources and joining workers
// share one JoinTimeout; a source whose release or read is still blocked
// after that is left to finish in the background.
func (o *Orchestrator) Stop() {
	o.stop(ReasonRequested)
}

func (o *Orchestrator) stop(reason string) {
	o.stopOnce.Do(func() {
		o.setReason(reason)
		o.state.Stop()
		o.logger.Info("Stopping pipeline", "reason", o.StopReason())

		// JoinTimeout bounds source release and the worker join together.
		// A release stuck behind an in-flight read finishes in the background.
		deadline := time.NewTimer(o.settings.JoinTimeout)
		defer deadline.Stop()
		expired := false

		released := o.releaseSources()

		o.lifecycleMu.Lock()
		spawned := o.spawned
		o.lifecycleMu.Unlock()

		for _, w := range o.workers {
			if !spawned {
				w.releaseProcessor()
				continue
			}
			if !expired {
				select {
				case <-w.done:
					continue
				case <-deadline.C:
					expired = true
				}
			}
			select {
			case <-w.done:
			default:
				// The worker releases its own processor when it finally exits.
				o.logger.Warn("Stream worker did not exit in time", "stream", w.cfg.Index, "timeout", o.settings.JoinTimeout)
			}
		}

		if !expired {
			select {
			case <-released:
			case <-deadline.C:
				expired = true
			}
		}
		if expired {
			select {
			case <-released:
			default:
				o.logger.Warn("Source release still in progress", "timeout", o.settings.JoinTimeout)
			}
		}

		if o.recorder != nil {
			o.recorder.StopAll()
		}

		close(o.stopped)
		o.logger.Info("Pipeline stopped", "reason", o.StopReason())
		o.bus.Publish(events.PipelineStoppedEvent{
			RunID:     o.runID,
			Reason:    o.StopReason(),
			Timestamp: time.Now().Format(time.RFC3339),
		})
	})
}

// releaseSources releases every source concurrently so that one blocked
// release does not hold up the others. The channel closes when all are done.
func (o *Orchestrator) releaseSources() <-chan struct{} {
	done := make(chan struct{})
	var wg sync.WaitGroup
	for _, w := range o.workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			w.releaseSource()
		}()
	}
	go func() {
		wg.Wait()
		close(done)
	}()
	return done
}

func (o *Orchestrator) streamExhausted(stream, misses int) {
	o.reasonMu.Lock()
	first := o.exhausted < 0
	if first {
		o.exhausted = stream
		if o.reason == "" {
			o.reason = fmt.Sprintf("exhausted:%d", stream)
		}
	}
	o.reasonMu.Unlock()

	metrics.SetStreamExhausted(stream, true)
	o.bus.Publish(events.StreamExhaustedEvent{
		RunID:     o.runID,
		Stream:    stream,
		Misses:    misses,
		Timestamp: time.Now().Format(time.RFC3339),
	})

	if o.state.Stop() {
		o.logger.Warn("Stream exhausted, stopping run", "stream", stream, "misses", misses)
	}
}

func (o *Orchestrator) setReason(reason string) {
	o.reasonMu.Lock()
	defer o.reasonMu.Unlock()
	if o.reason == "" {
		o.reason = reason
	}
}

func (o *Orchestrator) exhaustedStream() int {
	o.reasonMu.Lock()
	defer o.reasonMu.Unlock()
	return o.exhausted
}

// StopReason returns why the run stopped, or "" while it is running.
func (o *Orchestrator) StopReason() string {
	o.reasonMu.Lock()
	defer o.reasonMu.Unlock()
	return o.reason
}

// Done is closed once shutdown has completed.
func (o *Orchestrator) Done() <-chan struct{} {
	return o.stopped
}

// Running reports whether the run state is still active.
func (o *Orchestrator) Running() bool {
	return o.state.Running()
}

// RunID identifies this run in logs and events.
func (o *Orchestrator) RunID() string {
	return o.runID
}

// Streams returns the configured streams in order.
func (o *Orchestrator) Streams() []StreamConfig {
	out := make([]StreamConfig, len(o.workers))
	for i, w := range o.workers {
		out[i] = w.cfg
	}
	return out
}
