package events

// Event type constants for kelindar/event.
const (
	TypePipelineStarted uint32 = iota + 1
	TypePipelineStopped
	TypeStreamExhausted
	TypeRecordingStarted
	TypeRecordingStopped
	TypeRecordingFailed
	TypeLogEntry
	TypeStreamMetrics
)

// Event interface required by kelindar/event.
type Event interface {
	Type() uint32
}

// PipelineStartedEvent is published once all stream workers have been spawned.
type PipelineStartedEvent struct {
	RunID     string `json:"run_id" example:"0b8e5c1e-7d0f-4c53-9d61-0a3f5e2f1a44" doc:"Identifier of this pipeline run"`
	Streams   int    `json:"streams" example:"3" doc:"Number of configured streams"`
	Timestamp string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for PipelineStartedEvent.
func (e PipelineStartedEvent) Type() uint32 { return TypePipelineStarted }

// PipelineStoppedEvent is published after shutdown has released all resources.
type PipelineStoppedEvent struct {
	RunID     string `json:"run_id" doc:"Identifier of this pipeline run"`
	Reason    string `json:"reason" example:"exhausted:2" doc:"Why the run stopped: requested, context, exhausted:<stream>"`
	Timestamp string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for PipelineStoppedEvent.
func (e PipelineStoppedEvent) Type() uint32 { return TypePipelineStopped }

// StreamExhaustedEvent is published when a stream gives up after too many consecutive misses.
type StreamExhaustedEvent struct {
	RunID     string `json:"run_id" doc:"Identifier of this pipeline run"`
	Stream    int    `json:"stream" example:"2" doc:"Stream index"`
	Misses    int    `json:"misses" example:"10" doc:"Consecutive misses that triggered exhaustion"`
	Timestamp string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for StreamExhaustedEvent.
func (e StreamExhaustedEvent) Type() uint32 { return TypeStreamExhausted }

// RecordingStartedEvent is published when a stream starts persisting frames.
type RecordingStartedEvent struct {
	Stream    int    `json:"stream" example:"0" doc:"Stream index"`
	Path      string `json:"path" example:"records/stream1_20250127_103000.avi" doc:"Recording output path"`
	Timestamp string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for RecordingStartedEvent.
func (e RecordingStartedEvent) Type() uint32 { return TypeRecordingStarted }

// GetStream returns the stream index. Used by the LED manager.
func (e RecordingStartedEvent) GetStream() int { return e.Stream }

// IsRecording reports the new recording state. Used by the LED manager.
func (e RecordingStartedEvent) IsRecording() bool { return true }

// RecordingStoppedEvent is published when a recording is closed.
type RecordingStoppedEvent struct {
	Stream    int    `json:"stream" example:"0" doc:"Stream index"`
	Path      string `json:"path" example:"records/stream1_20250127_103000.avi" doc:"Recording output path"`
	Frames    uint64 `json:"frames" example:"900" doc:"Frames written during the recording"`
	Timestamp string `json:"timestamp" example:"2025-01-27T10:30:30Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for RecordingStoppedEvent.
func (e RecordingStoppedEvent) Type() uint32 { return TypeRecordingStopped }

// GetStream returns the stream index. Used by the LED manager.
func (e RecordingStoppedEvent) GetStream() int { return e.Stream }

// IsRecording reports the new recording state. Used by the LED manager.
func (e RecordingStoppedEvent) IsRecording() bool { return false }

// RecordingFailedEvent is published when a recording output cannot be opened.
type RecordingFailedEvent struct {
	Stream    int    `json:"stream" example:"0" doc:"Stream index"`
	Error     string `json:"error" example:"open records/stream1.avi: permission denied" doc:"Failure description"`
	Timestamp string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for RecordingFailedEvent.
func (e RecordingFailedEvent) Type() uint32 { return TypeRecordingFailed }

// LogEntryEvent represents a log entry for SSE streaming.
type LogEntryEvent struct {
	Seq        uint64         `json:"seq" example:"42" doc:"Monotonic sequence number for deduplication"`
	Timestamp  string         `json:"timestamp" example:"2025-01-09T10:30:00.123Z" doc:"Log timestamp"`
	Level      string         `json:"level" example:"info" doc:"Log level"`
	Module     string         `json:"module" example:"pipeline" doc:"Source module"`
	Message    string         `json:"message" doc:"Log message"`
	Attributes map[string]any `json:"attributes,omitempty" doc:"Structured log attributes"`
}

// Type returns the event type identifier for LogEntryEvent.
func (e LogEntryEvent) Type() uint32 { return TypeLogEntry }

// StreamMetricsEvent is a periodic per-stream counter snapshot.
type StreamMetricsEvent struct {
	Stream           int     `json:"stream" example:"0" doc:"Stream index"`
	FramesRead       uint64  `json:"frames_read" example:"1800" doc:"Frames obtained from the source"`
	ReadFPS          float64 `json:"read_fps" example:"29.8" doc:"Frames read per second since the previous snapshot"`
	Misses           uint64  `json:"misses" example:"3" doc:"Reads that returned no frame"`
	ProcessingErrors uint64  `json:"processing_errors" example:"0" doc:"Processor failures"`
	DroppedFrames    uint64  `json:"dropped_frames" example:"12" doc:"Frames discarded by the latest-frame buffer"`
	FramesRecorded   uint64  `json:"frames_recorded" example:"900" doc:"Frames written to recordings"`
	Recording        bool    `json:"recording" example:"true" doc:"Whether the stream is recording"`
}

// Type returns the event type identifier for StreamMetricsEvent.
func (e StreamMetricsEvent) Type() uint32 { return TypeStreamMetrics }
