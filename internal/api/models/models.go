package models

import (
	"time"
)

// Health check models
type HealthData struct {
	Status  string `json:"status" example:"ok" doc:"Service status"`
	Message string `json:"message" example:"API is healthy" doc:"Status message"`
}

type HealthResponse struct {
	Body HealthData
}

// Version models
type VersionData struct {
	Version   string `json:"version" example:"1.2.0" doc:"Application version"`
	GitCommit string `json:"git_commit" example:"a1b2c3d" doc:"Git commit hash"`
	BuildDate string `json:"build_date" example:"2025-01-27T10:30:00Z" doc:"Build timestamp"`
	BuildID   string `json:"build_id" doc:"Build identifier"`
	GoVersion string `json:"go_version" example:"go1.24.11" doc:"Go toolchain version"`
	Compiler  string `json:"compiler" example:"gc" doc:"Go compiler"`
	Platform  string `json:"platform" example:"linux/arm64" doc:"Target platform"`
}

type VersionResponse struct {
	Body VersionData
}

// Pipeline models
type PipelineData struct {
	RunID      string `json:"run_id" example:"0b8e5c1e-7d0f-4c53-9d61-0a3f5e2f1a44" doc:"Identifier of the current run"`
	Running    bool   `json:"running" example:"true" doc:"Whether stream workers are running"`
	StopReason string `json:"stop_reason,omitempty" example:"exhausted:2" doc:"Why the run stopped"`
	Streams    int    `json:"streams" example:"3" doc:"Number of configured streams"`
	Recording  int    `json:"recording" example:"1" doc:"Number of streams currently recording"`
	Viewers    int    `json:"viewers" example:"0" doc:"Connected live view clients"`
}

type PipelineResponse struct {
	Body PipelineData
}

// Stream models
type StreamData struct {
	Index            int        `json:"index" example:"0" doc:"Stream index"`
	Name             string     `json:"name" example:"stream1" doc:"Display name"`
	Source           string     `json:"source" example:"opencv" doc:"Source kind"`
	URI              string     `json:"uri,omitempty" example:"/dev/shm/video1.avi" doc:"Source location"`
	Processor        string     `json:"processor,omitempty" example:"motion_detection" doc:"Processor kind"`
	Width            int        `json:"width" example:"640" doc:"Frame width"`
	Height           int        `json:"height" example:"480" doc:"Frame height"`
	FPS              float64    `json:"fps" example:"30" doc:"Target frame rate"`
	State            string     `json:"state" enum:"idle,running,exhausted,stopped" example:"running" doc:"Worker state"`
	Frames           uint64     `json:"frames" example:"1800" doc:"Frames read from the source"`
	Misses           uint64     `json:"misses" example:"0" doc:"Reads that returned no frame"`
	ProcessingErrors uint64     `json:"processing_errors" example:"0" doc:"Processor failures"`
	SnapshotErrors   uint64     `json:"snapshot_errors" example:"0" doc:"Snapshot write failures"`
	Dropped          uint64     `json:"dropped" example:"12" doc:"Frames discarded by the latest-frame buffer"`
	Buffered         int        `json:"buffered" example:"1" doc:"Frames waiting for the render loop"`
	LastFrame        *time.Time `json:"last_frame,omitempty" doc:"When the last frame was read"`
	Recording        bool       `json:"recording" example:"false" doc:"Whether the stream is recording"`
	RecordingPath    string     `json:"recording_path,omitempty" example:"records/stream1_20250127_103000.avi" doc:"Current recording file"`
	RecordingFrames  uint64     `json:"recording_frames,omitempty" example:"900" doc:"Frames written to the current recording"`
}

type StreamListData struct {
	Streams []StreamData `json:"streams" doc:"Configured streams"`
	Count   int          `json:"count" example:"2" doc:"Number of streams"`
}

type StreamListResponse struct {
	Body StreamListData
}

type StreamResponse struct {
	Body StreamData
}

type StreamIndexInput struct {
	Index int `path:"index" minimum:"0" example:"0" doc:"Stream index"`
}

// Recording models
type RecordingRequestData struct {
	Stream int    `json:"stream" example:"0" doc:"Stream index"`
	Action string `json:"action" enum:"start,stop" example:"start" doc:"Requested action"`
	Status string `json:"status" example:"queued" doc:"Requests are applied on the next control tick"`
}

type RecordingRequestResponse struct {
	Body RecordingRequestData
}

// Snapshot models
type SnapshotResponse struct {
	ContentType  string    `header:"Content-Type"`
	LastModified time.Time `header:"Last-Modified"`
	FrameSeq     string    `header:"X-Frame-Seq"`
	Body         []byte
}

// Log level models
type LogLevelsData struct {
	Levels map[string]string `json:"levels" doc:"Current level per module"`
}

type LogLevelsResponse struct {
	Body LogLevelsData
}

type LogLevelRequest struct {
	Module string `path:"module" example:"pipeline" doc:"Logger module"`
	Body   struct {
		Level string `json:"level" enum:"debug,info,warn,error" example:"debug" doc:"New level"`
	}
}
