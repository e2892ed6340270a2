package opencv

import (
	"log/slog"

	"github.com/smazurov/framenode/internal/pipeline"
	"github.com/smazurov/framenode/internal/processor"
	"github.com/smazurov/framenode/internal/source"
)

// Register adds the opencv source kind and the motion_detection processor.
func Register(sources *source.Registry, processors *processor.Registry, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	if sources != nil {
		err := sources.Register("opencv", func(cfg pipeline.StreamConfig) (pipeline.Source, error) {
			return NewCapture(cfg, logger.With("stream", cfg.Index))
		})
		if err != nil {
			return err
		}
	}
	if processors != nil {
		return processors.Register("motion_detection", func(cfg pipeline.StreamConfig) pipeline.Processor {
			return NewMotion(logger.With("stream", cfg.Index))
		})
	}
	return nil
}
