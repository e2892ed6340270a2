package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"

	"github.com/smazurov/framenode/internal/api"
	"github.com/smazurov/framenode/internal/config"
	"github.com/smazurov/framenode/internal/display"
	"github.com/smazurov/framenode/internal/events"
	"github.com/smazurov/framenode/internal/led"
	"github.com/smazurov/framenode/internal/logging"
	"github.com/smazurov/framenode/internal/metrics/exporters"
	"github.com/smazurov/framenode/internal/pipeline"
	"github.com/smazurov/framenode/internal/processor"
	"github.com/smazurov/framenode/internal/recording"
	"github.com/smazurov/framenode/internal/signals"
	"github.com/smazurov/framenode/internal/source"
)

// app holds one fully wired pipeline run and the services around it.
type app struct {
	opts         *Options
	logger       *slog.Logger
	orchestrator *pipeline.Orchestrator
	recordings   *recording.Manager
	fileSignals  *signals.FileMedium
	hub          *display.Hub
	server       *api.Server
	ledManager   *led.Manager
	sseExporter  *exporters.SSEExporter
}

// registries returns the source and processor kinds available in this build.
func registries() (*source.Registry, *processor.Registry, error) {
	sources := source.Builtin(logging.GetLogger("source"))
	processors := processor.Builtin()
	if err := registerOpenCV(sources, processors, logging.GetLogger("opencv")); err != nil {
		return nil, nil, err
	}
	return sources, processors, nil
}

func newWriterFactory(cfg config.RecordingConfig) (recording.WriterFactory, error) {
	switch cfg.Writer {
	case config.WriterFFmpeg:
		return recording.NewFFmpegWriter(logging.GetLogger("ffmpeg")), nil
	case config.WriterOpenCV, "":
		return openCVWriter()
	default:
		return nil, fmt.Errorf("unknown recording writer %q", cfg.Writer)
	}
}

func newApp(opts *Options, eventBus *events.Bus, logger *slog.Logger) (*app, error) {
	def, err := config.LoadPipeline(opts.PipelineFile)
	if err != nil {
		return nil, err
	}

	sources, processors, err := registries()
	if err != nil {
		return nil, err
	}
	if err := def.CheckKinds(sources.Has, processors.Has); err != nil {
		return nil, err
	}

	a := &app{opts: opts, logger: logger}

	newWriter, err := newWriterFactory(def.Recording)
	if err != nil {
		return nil, err
	}
	specs := make([]recording.StreamSpec, 0, len(def.Streams))
	indices := make([]int, 0, len(def.Streams))
	for _, s := range def.Streams {
		specs = append(specs, recording.StreamSpec{Index: s.Index, Width: s.Width, Height: s.Height, FPS: s.FPS})
		indices = append(indices, s.Index)
	}
	a.recordings, err = recording.NewManager(specs, recording.Options{
		Dir:       def.Recording.Dir,
		Extension: def.Recording.Extension,
		Codec:     def.Recording.Codec,
		NewWriter: newWriter,
		EventBus:  eventBus,
		Logger:    logging.GetLogger("recording"),
	})
	if err != nil {
		return nil, err
	}

	signalLogger := logging.GetLogger("signals")
	a.fileSignals, err = signals.NewFileMedium(def.Signals.Dir, signalLogger)
	if err != nil {
		return nil, err
	}
	if def.Signals.Watch {
		if watchErr := a.fileSignals.Watch(); watchErr != nil {
			signalLogger.Warn("Marker watch unavailable, polling the signal directory", "dir", def.Signals.Dir, "error", watchErr)
		}
	}
	apiSignals := signals.NewMemoryMedium()
	watcher := signals.NewWatcher(indices, a.recordings, signalLogger, a.fileSignals, apiSignals)

	var liveView api.LiveView
	var renderer pipeline.Display
	if def.Render {
		a.hub = display.NewHub(def.JPEGQuality, logging.GetLogger("display"))
		liveView = a.hub
		renderer = a.hub
	}

	var snapshots pipeline.Snapshotter
	if def.Settings.SnapshotEvery > 0 {
		snapshots, err = newSnapshotter(def.SnapshotDir)
		if err != nil {
			a.close()
			return nil, err
		}
	}

	a.orchestrator, err = pipeline.New(pipeline.Options{
		Settings:   def.Settings,
		Streams:    def.Streams,
		Sources:    sources.Create,
		Processors: processors.Create,
		Recorder:   a.recordings,
		Signals:    watcher,
		Display:    renderer,
		Snapshots:  snapshots,
		EventBus:   eventBus,
		Logger:     logging.GetLogger("pipeline"),
	})
	if err != nil {
		a.close()
		return nil, err
	}

	if opts.FeaturesLEDControl {
		ledLogger := logging.GetLogger("led")
		ctrl := led.New(ledLogger)
		a.ledManager = led.NewManager(ctrl, eventBus, opts.FeaturesLEDType, ledLogger)
	}

	apiOpts := &api.Options{
		AuthUsername: opts.AuthUsername,
		AuthPassword: opts.AuthPassword,
		Pipeline:     a.orchestrator,
		Recordings:   a.recordings,
		Requests:     apiSignals,
		LiveView:     liveView,
		EventBus:     eventBus,
	}
	if opts.MetricsPrometheus {
		apiOpts.PrometheusHandler = exporters.HTTPHandler()
	}
	if a.ledManager != nil {
		apiOpts.LEDController = a.ledManager.GetController()
	}
	if opts.MetricsSSE {
		a.sseExporter = exporters.NewSSEExporter(eventBus, time.Second)
	}
	a.server = api.NewServer(apiOpts)
	return a, nil
}

// run serves the API and drives the pipeline until it stops.
func (a *app) run(ctx context.Context) error {
	if a.ledManager != nil {
		a.ledManager.Start()
	}
	if a.sseExporter != nil {
		a.sseExporter.Start(ctx)
	}

	go func() {
		if err := a.server.Start(a.opts.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("HTTP server failed", "error", err)
		}
	}()

	if _, err := daemon.SdNotify(false, daemon.SdNotifyReady); err != nil {
		a.logger.Debug("sd_notify ready failed", "error", err)
	}
	return a.orchestrator.Run(ctx)
}

// shutdown stops the services around the pipeline. The orchestrator has
// already released streams and recordings by the time Run returns.
func (a *app) shutdown() {
	if _, err := daemon.SdNotify(false, daemon.SdNotifyStopping); err != nil {
		a.logger.Debug("sd_notify stopping failed", "error", err)
	}
	if err := a.server.Stop(); err != nil {
		a.logger.Error("Error stopping HTTP server", "error", err)
	}
	if a.sseExporter != nil {
		a.sseExporter.Stop()
	}
	if a.ledManager != nil {
		a.ledManager.Stop()
	}
	a.close()
}

// close releases resources that exist before the orchestrator runs.
func (a *app) close() {
	if a.hub != nil {
		a.hub.Close()
	}
	if a.fileSignals != nil {
		if err := a.fileSignals.Close(); err != nil {
			a.logger.Warn("Error closing signal watcher", "error", err)
		}
	}
}
