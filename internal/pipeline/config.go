package pipeline

import (
	"fmt"
	"time"
)

// StreamConfig describes one stream. It is fixed for the lifetime of an Orchestrator.
type StreamConfig struct {
	Index            int
	SourceKind       string
	SourceURI        string
	SourceOptions    map[string]any
	Width            int
	Height           int
	FPS              float64
	Processor        string
	ProcessorOptions map[string]any
}

// Name returns the 1-based display name used in logs and file names.
func (c StreamConfig) Name() string {
	return fmt.Sprintf("stream%d", c.Index+1)
}

// Settings holds the run-wide tuning values.
type Settings struct {
	// QueueCapacity bounds each stream's latest-frame buffer.
	QueueCapacity int
	// MissThreshold is the number of consecutive empty reads after which a stream is exhausted.
	MissThreshold int
	// MissBackoff is the pause between empty reads.
	MissBackoff time.Duration
	// TickInterval paces the control loop (signal polling and rendering).
	TickInterval time.Duration
	// JoinTimeout bounds how long Stop waits for workers to exit.
	JoinTimeout time.Duration
	// SnapshotEvery persists every Nth processed frame; 0 disables snapshots.
	SnapshotEvery int
}

// DefaultSettings returns the values used when a deployment does not override them.
func DefaultSettings() Settings {
	return Settings{
		QueueCapacity: 2,
		MissThreshold: 10,
		MissBackoff:   100 * time.Millisecond,
		TickInterval:  time.Second / 30,
		JoinTimeout:   time.Second,
	}
}

// Validate checks settings for values that would break the worker loop.
func (s Settings) Validate() error {
	switch {
	case s.QueueCapacity < 1:
		return fmt.Errorf("%w: queue capacity must be at least 1, got %d", ErrInvalidSettings, s.QueueCapacity)
	case s.MissThreshold < 1:
		return fmt.Errorf("%w: miss threshold must be at least 1, got %d", ErrInvalidSettings, s.MissThreshold)
	case s.MissBackoff < 0:
		return fmt.Errorf("%w: miss backoff must not be negative", ErrInvalidSettings)
	case s.TickInterval <= 0:
		return fmt.Errorf("%w: tick interval must be positive", ErrInvalidSettings)
	case s.JoinTimeout <= 0:
		return fmt.Errorf("%w: join timeout must be positive", ErrInvalidSettings)
	case s.SnapshotEvery < 0:
		return fmt.Errorf("%w: snapshot interval must not be negative", ErrInvalidSettings)
	}
	return nil
}
