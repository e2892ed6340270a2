//go:build noopencv

package main

import (
	"errors"
	"log/slog"

	"github.com/smazurov/framenode/internal/pipeline"
	"github.com/smazurov/framenode/internal/processor"
	"github.com/smazurov/framenode/internal/recording"
	"github.com/smazurov/framenode/internal/source"
)

// Built with -tags noopencv: only the ffmpeg and test sources, builtin
// processors and the ffmpeg recording writer are available.
var errNoOpenCV = errors.New("built without OpenCV (noopencv tag)")

func registerOpenCV(_ *source.Registry, _ *processor.Registry, logger *slog.Logger) error {
	logger.Debug("OpenCV support not compiled in")
	return nil
}

func openCVWriter() (recording.WriterFactory, error) {
	return nil, errNoOpenCV
}

func newSnapshotter(string) (pipeline.Snapshotter, error) {
	return nil, errNoOpenCV
}
