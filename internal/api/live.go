package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/danielgtaylor/huma/v2"

	"github.com/smazurov/framenode/internal/api/models"
	"github.com/smazurov/framenode/internal/display"
)

// registerLiveRoutes registers the JPEG snapshot and websocket live view.
// Both need the render loop and are skipped when it is disabled.
func (s *Server) registerLiveRoutes() {
	if s.options.LiveView == nil {
		s.logger.Debug("Live view not available, skipping live routes")
		return
	}

	huma.Register(s.api, huma.Operation{
		OperationID: "get-snapshot",
		Method:      http.MethodGet,
		Path:        "/api/streams/{index}/snapshot",
		Summary:     "Snapshot",
		Description: "Get the most recently rendered frame of a stream as JPEG",
		Tags:        []string{"live"},
		Errors:      []int{401, 404, 500},
		Security:    withAuth(),
		Responses: map[string]*huma.Response{
			"200": {
				Description: "JPEG image",
				Content: map[string]*huma.MediaType{
					"image/jpeg": {},
				},
			},
		},
	}, func(ctx context.Context, input *models.StreamIndexInput) (*models.SnapshotResponse, error) {
		if _, err := s.lookupStream(input.Index); err != nil {
			return nil, err
		}
		img, err := s.options.LiveView.Latest(input.Index)
		switch {
		case errors.Is(err, display.ErrNoFrame):
			return nil, huma.Error404NotFound(fmt.Sprintf("stream %d has not rendered a frame yet", input.Index))
		case err != nil:
			return nil, huma.Error500InternalServerError("failed to encode snapshot", err)
		}
		return &models.SnapshotResponse{
			ContentType:  "image/jpeg",
			LastModified: img.Time,
			FrameSeq:     strconv.FormatUint(img.Seq, 10),
			Body:         img.JPEG,
		}, nil
	})

	// Websocket upgrades need the raw ResponseWriter, so these live on the mux.
	s.mux.HandleFunc("GET /api/live", s.requireAuth(s.serveLive(display.AllStreams)))
	s.mux.HandleFunc("GET /api/streams/{index}/live", s.requireAuth(func(w http.ResponseWriter, r *http.Request) {
		index, err := strconv.Atoi(r.PathValue("index"))
		if err != nil || index < 0 {
			http.Error(w, "invalid stream index", http.StatusBadRequest)
			return
		}
		if _, ok := s.options.Pipeline.StreamStatus(index); !ok {
			http.Error(w, fmt.Sprintf("stream %d not found", index), http.StatusNotFound)
			return
		}
		s.serveLive(index)(w, r)
	}))
}

func (s *Server) serveLive(stream int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.logger.Debug("Live view connected", "stream", stream, "remote_addr", r.RemoteAddr)
		if err := s.options.LiveView.ServeWS(w, r, stream); err != nil {
			s.logger.Debug("Live view ended", "stream", stream, "error", err)
		}
	}
}
