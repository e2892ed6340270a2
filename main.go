package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"time"

	"github.com/danielgtaylor/huma/v2/humacli"

	"github.com/smazurov/framenode/cmd"
	"github.com/smazurov/framenode/internal/config"
	"github.com/smazurov/framenode/internal/events"
	"github.com/smazurov/framenode/internal/logging"
	"github.com/smazurov/framenode/internal/pipeline"
)

// Options for the CLI - flat structure with toml mapping.
type Options struct {
	Config string `help:"Path to configuration file" short:"c" default:"config.toml"`

	// Server settings
	Port string `help:"Port to listen on" short:"p" default:":8090" toml:"server.port" env:"SERVER_PORT"`

	// Pipeline definition
	PipelineFile string `help:"Pipeline definition file" default:"pipeline.toml" toml:"pipeline.file" env:"PIPELINE_FILE"`

	// Observability settings
	MetricsPrometheus bool `help:"Expose Prometheus metrics on /metrics" default:"true" toml:"metrics.prometheus_enabled" env:"METRICS_PROMETHEUS_ENABLED"`
	MetricsSSE        bool `help:"Publish per-stream counters over SSE" default:"true" toml:"metrics.sse_enabled" env:"METRICS_SSE_ENABLED"`

	// Auth settings
	AuthUsername string `help:"Basic auth username" default:"admin" toml:"auth.username" env:"AUTH_USERNAME"`
	AuthPassword string `help:"Basic auth password" default:"password" toml:"auth.password" env:"AUTH_PASSWORD"`

	// Features settings
	FeaturesLEDControl bool   `help:"Drive a board LED as recording indicator" default:"false" toml:"features.led_control_enabled" env:"FEATURES_LED_CONTROL"`
	FeaturesLEDType    string `help:"LED used as recording indicator (board default when empty)" default:"" toml:"features.led_type" env:"FEATURES_LED_TYPE"`

	// Shutdown
	ShutdownTimeout time.Duration `help:"How long to wait for the pipeline to release resources on shutdown" default:"5s" toml:"server.shutdown_timeout" env:"SHUTDOWN_TIMEOUT"`

	// Logging settings; per-module levels live in the [logging] table of the config file.
	LoggingLevel  string `help:"Global logging level (debug, info, warn, error)" default:"info" toml:"logging.level" env:"LOGGING_LEVEL"`
	LoggingFormat string `help:"Logging format (text, json)" default:"text" toml:"logging.format" env:"LOGGING_FORMAT"`
}

func main() {
	var cli humacli.CLI
	cli = humacli.New(func(hooks humacli.Hooks, opts *Options) {
		if loadErr := config.LoadConfig(opts, cli.Root()); loadErr != nil {
			slog.Warn("Failed to load config", "error", loadErr)
		}

		loggingConfig := config.LoadLoggingConfig(opts.Config)
		loggingConfig.Level = opts.LoggingLevel
		loggingConfig.Format = opts.LoggingFormat
		logging.Initialize(loggingConfig)

		logger := logging.GetLogger("main")

		eventBus := events.New()
		logging.SetEntryCallback(func(e logging.Entry) {
			eventBus.Publish(events.LogEntryEvent{
				Seq:        e.Seq,
				Timestamp:  e.Timestamp.Format(time.RFC3339Nano),
				Level:      e.Level,
				Module:     e.Module,
				Message:    e.Message,
				Attributes: e.Attributes,
			})
		})

		var a *app
		runDone := make(chan struct{})
		ctx, cancel := context.WithCancel(context.Background())

		hooks.OnStart(func() {
			defer close(runDone)

			var err error
			a, err = newApp(opts, eventBus, logger)
			if err != nil {
				logger.Error("Failed to build pipeline", "file", opts.PipelineFile, "error", err)
				os.Exit(1)
			}

			if runErr := a.run(ctx); runErr != nil {
				if errors.Is(runErr, pipeline.ErrStreamExhausted) {
					logger.Error("Pipeline ended", "reason", a.orchestrator.StopReason(), "error", runErr)
				} else {
					logger.Error("Pipeline failed", "error", runErr)
				}
				a.shutdown()
				eventBus.Close()
				os.Exit(1)
			}
			a.shutdown()
			eventBus.Close()
		})

		hooks.OnStop(func() {
			logger.Info("Shutting down")
			cancel()
			select {
			case <-runDone:
			case <-time.After(opts.ShutdownTimeout):
				logger.Warn("Pipeline did not stop in time", "timeout", opts.ShutdownTimeout)
			}
		})
	})

	cli.Root().Use = "framenode"
	cli.Root().Short = "Multi-stream frame pipeline with recording control"

	cli.Root().AddCommand(cmd.CreateValidateCmd(registries))
	cli.Root().AddCommand(cmd.CreateSignalCmd())
	cli.Root().AddCommand(cmd.CreateProcessorsCmd(registries))

	cli.Run()
}
