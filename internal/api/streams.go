package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/smazurov/framenode/internal/api/models"
	"github.com/smazurov/framenode/internal/pipeline"
	"github.com/smazurov/framenode/internal/recording"
)

// registerStreamRoutes registers pipeline and per-stream status endpoints.
func (s *Server) registerStreamRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "get-pipeline",
		Method:      http.MethodGet,
		Path:        "/api/pipeline",
		Summary:     "Pipeline Status",
		Description: "Get the run identifier, run state and stop reason of the pipeline",
		Tags:        []string{"pipeline"},
		Errors:      []int{401},
		Security:    withAuth(),
	}, func(ctx context.Context, input *struct{}) (*models.PipelineResponse, error) {
		p := s.options.Pipeline
		data := models.PipelineData{
			RunID:      p.RunID(),
			Running:    p.Running(),
			StopReason: p.StopReason(),
		}
		for _, st := range p.Status() {
			data.Streams++
			if st.Recording {
				data.Recording++
			}
		}
		if s.options.LiveView != nil {
			data.Viewers = s.options.LiveView.Viewers()
		}
		return &models.PipelineResponse{Body: data}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "list-streams",
		Method:      http.MethodGet,
		Path:        "/api/streams",
		Summary:     "List Streams",
		Description: "Get the runtime status of every configured stream",
		Tags:        []string{"streams"},
		Errors:      []int{401},
		Security:    withAuth(),
	}, func(ctx context.Context, input *struct{}) (*models.StreamListResponse, error) {
		recordings := s.recordingsByStream()
		statuses := s.options.Pipeline.Status()
		out := make([]models.StreamData, 0, len(statuses))
		for _, st := range statuses {
			out = append(out, toStreamData(st, recordings[st.Index]))
		}
		return &models.StreamListResponse{
			Body: models.StreamListData{
				Streams: out,
				Count:   len(out),
			},
		}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "get-stream",
		Method:      http.MethodGet,
		Path:        "/api/streams/{index}",
		Summary:     "Get Stream",
		Description: "Get the runtime status of one stream",
		Tags:        []string{"streams"},
		Errors:      []int{401, 404},
		Security:    withAuth(),
	}, func(ctx context.Context, input *models.StreamIndexInput) (*models.StreamResponse, error) {
		st, err := s.lookupStream(input.Index)
		if err != nil {
			return nil, err
		}
		return &models.StreamResponse{
			Body: toStreamData(st, s.recordingsByStream()[st.Index]),
		}, nil
	})
}

func (s *Server) lookupStream(index int) (pipeline.StreamStatus, error) {
	st, ok := s.options.Pipeline.StreamStatus(index)
	if !ok {
		return st, huma.Error404NotFound(fmt.Sprintf("stream %d not found", index))
	}
	return st, nil
}

func (s *Server) recordingsByStream() map[int]recording.Status {
	out := make(map[int]recording.Status)
	if s.options.Recordings == nil {
		return out
	}
	for _, st := range s.options.Recordings.Status() {
		out[st.Stream] = st
	}
	return out
}

// toStreamData merges worker status with the recording state of the same stream.
func toStreamData(st pipeline.StreamStatus, rec recording.Status) models.StreamData {
	data := models.StreamData{
		Index:            st.Index,
		Name:             fmt.Sprintf("stream%d", st.Index+1),
		Source:           st.SourceKind,
		URI:              st.SourceURI,
		Processor:        st.Processor,
		Width:            st.Width,
		Height:           st.Height,
		FPS:              st.FPS,
		State:            string(st.State),
		Frames:           st.Frames,
		Misses:           st.Misses,
		ProcessingErrors: st.ProcessingErrors,
		SnapshotErrors:   st.SnapshotErrors,
		Dropped:          st.Dropped,
		Buffered:         st.Buffered,
		Recording:        st.Recording,
	}
	if !st.LastFrame.IsZero() {
		last := st.LastFrame
		data.LastFrame = &last
	}
	if rec.Recording {
		data.Recording = true
		data.RecordingPath = rec.Path
		data.RecordingFrames = rec.Frames
	}
	return data
}
