package recording

import (
	"fmt"
	"path/filepath"

	"github.com/smazurov/framenode/internal/ffmpeg"
	"github.com/smazurov/framenode/internal/frame"
	"github.com/smazurov/framenode/internal/logging"
	"github.com/smazurov/framenode/internal/process"
)

type ffmpegWriter struct {
	pipe   *process.Pipe
	width  int
	height int
}

// NewFFmpegWriter returns a WriterFactory that pipes raw frames into an
// ffmpeg encoder process.
func NewFFmpegWriter(logger logging.Logger) WriterFactory {
	return func(spec WriterSpec) (Writer, error) {
		cmd, err := ffmpeg.BuildEncodeCommand(&ffmpeg.EncodeParams{
			Output: spec.Path,
			Width:  spec.Width,
			Height: spec.Height,
			FPS:    spec.FPS,
			Codec:  spec.Codec,
		})
		if err != nil {
			return nil, err
		}

		p := process.NewPipe("record-"+filepath.Base(spec.Path), cmd, process.ModeWrite, logger)
		p.SetLogParser(logger, ffmpeg.ParseLogLevel)
		if err := p.Start(); err != nil {
			return nil, fmt.Errorf("start encoder: %w", err)
		}
		return &ffmpegWriter{pipe: p, width: spec.Width, height: spec.Height}, nil
	}
}

func (w *ffmpegWriter) Write(f *frame.Frame) error {
	if f.Width != w.width || f.Height != w.height {
		return fmt.Errorf("frame %dx%d does not match recording %dx%d", f.Width, f.Height, w.width, w.height)
	}
	_, err := w.pipe.Write(f.Data)
	return err
}

func (w *ffmpegWriter) Close() error {
	if code := w.pipe.Close(); code != 0 {
		return fmt.Errorf("encoder exited with code %d", code)
	}
	return nil
}
