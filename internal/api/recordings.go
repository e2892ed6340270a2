package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/smazurov/framenode/internal/api/models"
	"github.com/smazurov/framenode/internal/recording"
)

// RecordingListResponse lists the recording state of every stream.
type RecordingListResponse struct {
	Body struct {
		Recordings []recording.Status `json:"recordings" doc:"Recording state per stream"`
	}
}

// registerRecordingRoutes registers recording status and request endpoints.
// Requests go through the same signal path as marker files, so they are
// applied by the control loop rather than by the HTTP handler.
func (s *Server) registerRecordingRoutes() {
	if s.options.Recordings != nil {
		huma.Register(s.api, huma.Operation{
			OperationID: "list-recordings",
			Method:      http.MethodGet,
			Path:        "/api/recordings",
			Summary:     "List Recordings",
			Description: "Get the recording state of every stream",
			Tags:        []string{"recording"},
			Errors:      []int{401},
			Security:    withAuth(),
		}, func(ctx context.Context, input *struct{}) (*RecordingListResponse, error) {
			resp := &RecordingListResponse{}
			resp.Body.Recordings = s.options.Recordings.Status()
			return resp, nil
		})
	}

	if s.options.Requests == nil {
		s.logger.Debug("Recording requests not available, skipping recording control routes")
		return
	}

	huma.Register(s.api, huma.Operation{
		OperationID:   "start-recording",
		Method:        http.MethodPost,
		Path:          "/api/streams/{index}/recording/start",
		Summary:       "Start Recording",
		Description:   "Queue a recording start for the stream. The request is applied on the next control tick.",
		Tags:          []string{"recording"},
		DefaultStatus: http.StatusAccepted,
		Errors:        []int{401, 404},
		Security:      withAuth(),
	}, func(ctx context.Context, input *models.StreamIndexInput) (*models.RecordingRequestResponse, error) {
		if _, err := s.lookupStream(input.Index); err != nil {
			return nil, err
		}
		s.options.Requests.RequestStart(input.Index)
		s.logger.Info("Recording start requested", "stream", input.Index)
		return queued(input.Index, "start"), nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID:   "stop-recording",
		Method:        http.MethodPost,
		Path:          "/api/streams/{index}/recording/stop",
		Summary:       "Stop Recording",
		Description:   "Queue a recording stop for the stream. The request is applied on the next control tick.",
		Tags:          []string{"recording"},
		DefaultStatus: http.StatusAccepted,
		Errors:        []int{401, 404},
		Security:      withAuth(),
	}, func(ctx context.Context, input *models.StreamIndexInput) (*models.RecordingRequestResponse, error) {
		if _, err := s.lookupStream(input.Index); err != nil {
			return nil, err
		}
		s.options.Requests.RequestStop(input.Index)
		s.logger.Info("Recording stop requested", "stream", input.Index)
		return queued(input.Index, "stop"), nil
	})
}

func queued(stream int, action string) *models.RecordingRequestResponse {
	return &models.RecordingRequestResponse{
		Body: models.RecordingRequestData{
			Stream: stream,
			Action: action,
			Status: "queued",
		},
	}
}
