package pipeline

import "github.com/smazurov/framenode/internal/frame"

// Source produces frames for one stream.
type Source interface {
	// Start opens the underlying transport. Called once before any worker runs.
	Start() error
	// ReadFrame returns the next frame, or nil when none is available or the read failed.
	ReadFrame() *frame.Frame
	// Release closes the transport. It must be idempotent and safe to call while
	// a ReadFrame is in flight on another goroutine.
	Release() error
}

// Processor transforms frames for one stream. Implementations own their state
// and are only ever called from that stream's worker.
type Processor interface {
	Configure(options map[string]any) error
	// Process returns the frame to propagate. The input must not be modified
	// after it has been returned or handed downstream.
	Process(f *frame.Frame) (*frame.Frame, error)
	Release() error
}

// Recorder persists frames of streams that are currently recording.
type Recorder interface {
	IsRecording(stream int) bool
	WriteIfRecording(stream int, f *frame.Frame)
	StopAll()
}

// SignalTicker is polled once per control loop tick.
type SignalTicker interface {
	Tick()
}

// Display receives the latest frame of each stream on every render tick.
type Display interface {
	Render(stream int, f *frame.Frame)
}

// Snapshotter persists individual frames for external inspection.
type Snapshotter interface {
	Snapshot(stream int, f *frame.Frame) error
}

// SourceFactory creates the source for a stream.
type SourceFactory func(cfg StreamConfig) (Source, error)

// ProcessorFactory creates and configures the processor named by
// cfg.Processor with cfg.ProcessorOptions.
type ProcessorFactory func(cfg StreamConfig) (Processor, error)
