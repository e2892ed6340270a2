package api

import (
	"context"
	"encoding/base64"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humago"

	"github.com/smazurov/framenode/internal/api/models"
	"github.com/smazurov/framenode/internal/display"
	"github.com/smazurov/framenode/internal/events"
	"github.com/smazurov/framenode/internal/led"
	"github.com/smazurov/framenode/internal/logging"
	"github.com/smazurov/framenode/internal/pipeline"
	"github.com/smazurov/framenode/internal/recording"
	"github.com/smazurov/framenode/internal/version"
	"github.com/smazurov/framenode/ui"
)

const authRealm = `Basic realm="framenode API"`

var (
	errAuthRequired   = errors.New("authentication required")
	errInvalidAuth    = errors.New("invalid authentication type")
	errInvalidFormat  = errors.New("invalid credentials format")
	errBadCredentials = errors.New("invalid credentials")
)

// PipelineStatus is the read side of the orchestrator.
type PipelineStatus interface {
	Status() []pipeline.StreamStatus
	StreamStatus(index int) (pipeline.StreamStatus, bool)
	Running() bool
	RunID() string
	StopReason() string
}

// RecordingStatus reports what each stream is recording.
type RecordingStatus interface {
	Status() []recording.Status
}

// RecordingRequests queues start/stop requests for the next control tick.
type RecordingRequests interface {
	RequestStart(stream int)
	RequestStop(stream int)
}

// LiveView serves rendered frames.
type LiveView interface {
	Latest(stream int) (*display.Image, error)
	ServeWS(w http.ResponseWriter, r *http.Request, stream int) error
	Viewers() int
}

// Server is the huma HTTP API in front of a running pipeline.
type Server struct {
	api        huma.API
	mux        *http.ServeMux
	httpServer *http.Server
	options    *Options
	eventBus   *events.Bus
	logger     *slog.Logger
}

// Options holds the server collaborators. Pipeline and EventBus are required;
// the rest disable their endpoints when nil.
type Options struct {
	AuthUsername      string
	AuthPassword      string
	Pipeline          PipelineStatus
	Recordings        RecordingStatus
	Requests          RecordingRequests
	LiveView          LiveView
	EventBus          *events.Bus
	PrometheusHandler http.Handler
	LEDController     led.Controller
}

// credentials extracts user and password from a Basic Authorization header,
// falling back to a base64 "auth" query parameter for SSE and websocket
// clients that cannot set headers.
func credentials(header, query string) (string, string, error) {
	var encoded string
	switch {
	case header != "":
		const prefix = "Basic "
		if !strings.HasPrefix(header, prefix) {
			return "", "", errInvalidAuth
		}
		encoded = header[len(prefix):]
	case query != "":
		encoded = query
	default:
		return "", "", errAuthRequired
	}

	decoded, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", "", errInvalidFormat
	}
	user, pass, ok := strings.Cut(string(decoded), ":")
	if !ok {
		return "", "", errInvalidFormat
	}
	return user, pass, nil
}

func (s *Server) authorize(header, query string) error {
	user, pass, err := credentials(header, query)
	if err != nil {
		return err
	}
	if user != s.options.AuthUsername || pass != s.options.AuthPassword {
		return errBadCredentials
	}
	return nil
}

func (s *Server) authEnabled() bool {
	return s.options.AuthUsername != "" && s.options.AuthPassword != ""
}

// basicAuthMiddleware enforces credentials on operations that declare basicAuth.
func (s *Server) basicAuthMiddleware(ctx huma.Context, next func(huma.Context)) {
	op := ctx.Operation()
	if op != nil && len(op.Security) == 0 {
		next(ctx)
		return
	}

	if err := s.authorize(ctx.Header("Authorization"), ctx.Query("auth")); err != nil {
		ctx.SetHeader("WWW-Authenticate", authRealm)
		_ = huma.WriteErr(s.api, ctx, http.StatusUnauthorized, err.Error())
		return
	}
	next(ctx)
}

// requireAuth guards plain mux handlers that bypass huma middleware.
func (s *Server) requireAuth(h http.HandlerFunc) http.HandlerFunc {
	if !s.authEnabled() {
		return h
	}
	return func(w http.ResponseWriter, r *http.Request) {
		if err := s.authorize(r.Header.Get("Authorization"), r.URL.Query().Get("auth")); err != nil {
			w.Header().Set("WWW-Authenticate", authRealm)
			http.Error(w, err.Error(), http.StatusUnauthorized)
			return
		}
		h(w, r)
	}
}

// NewServer creates the API server using Go 1.22+ native routing.
func NewServer(opts *Options) *Server {
	mux := http.NewServeMux()

	corsConfig := DefaultCORSConfig()
	AddCORSHandler(mux, corsConfig)
	// Without a catch-all the preflight route turns unknown paths into 405s.
	mux.HandleFunc("/", http.NotFound)

	config := huma.DefaultConfig("framenode API", version.String())
	config.Info.Description = "Status, recording control and live view for the frame pipeline"
	config.Servers = []*huma.Server{}
	config.Components.SecuritySchemes = map[string]*huma.SecurityScheme{
		"basicAuth": {
			Type:   "http",
			Scheme: "basic",
		},
	}

	api := humago.New(mux, config)

	bus := opts.EventBus
	if bus == nil {
		bus = events.New()
	}

	server := &Server{
		api:      api,
		mux:      mux,
		options:  opts,
		eventBus: bus,
		logger:   logging.GetLogger("api"),
	}

	// CORS first, then request logging, then auth.
	api.UseMiddleware(NewCORSMiddleware(corsConfig))
	api.UseMiddleware(HTTPLoggingMiddleware)
	if server.authEnabled() {
		api.UseMiddleware(server.basicAuthMiddleware)
	}

	if opts.PrometheusHandler != nil {
		mux.Handle("GET /metrics", opts.PrometheusHandler)
	}
	if opts.LiveView != nil {
		mux.Handle("GET /{$}", ui.Handler())
	}

	server.registerRoutes()
	return server
}

// GetMux returns the underlying HTTP ServeMux for additional setup
func (s *Server) GetMux() *http.ServeMux {
	return s.mux
}

// GetAPI returns the Huma API instance
func (s *Server) GetAPI() huma.API {
	return s.api
}

// Start serves HTTP on addr until Stop is called.
func (s *Server) Start(addr string) error {
	s.logger.Info("Starting framenode API server", "addr", addr)
	s.logger.Info("OpenAPI documentation available", "url", "http://"+addr+"/docs")

	s.httpServer = &http.Server{
		Addr:    addr,
		Handler: s.mux,
	}
	return s.httpServer.ListenAndServe()
}

// Stop closes the listener and every open connection, including SSE and
// websocket streams.
func (s *Server) Stop() error {
	s.logger.Info("Stopping API server")
	if s.httpServer != nil {
		return s.httpServer.Close()
	}
	return nil
}

func (s *Server) registerRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "health-check",
		Method:      http.MethodGet,
		Path:        "/api/health",
		Summary:     "Health",
		Description: "Check API health status",
		Tags:        []string{"health"},
		Security:    []map[string][]string{},
	}, func(ctx context.Context, input *struct{}) (*models.HealthResponse, error) {
		return &models.HealthResponse{
			Body: models.HealthData{
				Status:  "ok",
				Message: "API is healthy",
			},
		}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "get-version",
		Method:      http.MethodGet,
		Path:        "/api/version",
		Summary:     "Version",
		Description: "Get application version information",
		Tags:        []string{"system"},
		Security:    []map[string][]string{},
	}, func(ctx context.Context, input *struct{}) (*models.VersionResponse, error) {
		info := version.Get()
		return &models.VersionResponse{
			Body: models.VersionData{
				Version:   info.Version,
				GitCommit: info.GitCommit,
				BuildDate: info.BuildDate,
				BuildID:   info.BuildID,
				GoVersion: info.GoVersion,
				Compiler:  info.Compiler,
				Platform:  info.Platform,
			},
		}, nil
	})

	s.registerStreamRoutes()
	s.registerRecordingRoutes()
	s.registerLiveRoutes()
	s.registerSSERoutes()
	s.registerLogRoutes()
	s.registerMetricsRoutes()
	s.registerLEDRoutes()
}

// withAuth returns security requirement for basic auth
func withAuth() []map[string][]string {
	return []map[string][]string{
		{"basicAuth": {}},
	}
}
