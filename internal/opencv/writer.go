package opencv

import (
	"fmt"

	"gocv.io/x/gocv"

	"github.com/smazurov/framenode/internal/frame"
	"github.com/smazurov/framenode/internal/recording"
)

type videoWriter struct {
	vw     *gocv.VideoWriter
	width  int
	height int
}

// NewVideoWriter opens a cv::VideoWriter. It satisfies recording.WriterFactory.
func NewVideoWriter(spec recording.WriterSpec) (recording.Writer, error) {
	codec := spec.Codec
	if codec == "" {
		codec = "XVID"
	}
	vw, err := gocv.VideoWriterFile(spec.Path, codec, spec.FPS, spec.Width, spec.Height, true)
	if err != nil {
		return nil, fmt.Errorf("open video writer %s: %w", spec.Path, err)
	}
	if !vw.IsOpened() {
		vw.Close()
		return nil, fmt.Errorf("video writer not opened: %s (codec %s)", spec.Path, codec)
	}
	return &videoWriter{vw: vw, width: spec.Width, height: spec.Height}, nil
}

func (w *videoWriter) Write(f *frame.Frame) error {
	if f.Width != w.width || f.Height != w.height {
		return fmt.Errorf("frame %dx%d does not match recording %dx%d", f.Width, f.Height, w.width, w.height)
	}
	m, err := toMat(f)
	if err != nil {
		return err
	}
	defer m.Close()
	return w.vw.Write(m)
}

func (w *videoWriter) Close() error {
	return w.vw.Close()
}
