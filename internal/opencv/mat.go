package opencv

import (
	"fmt"

	"gocv.io/x/gocv"

	"github.com/smazurov/framenode/internal/frame"
)

// toMat copies f into a new BGR Mat. The caller must Close it.
func toMat(f *frame.Frame) (gocv.Mat, error) {
	if err := f.Validate(); err != nil {
		return gocv.NewMat(), err
	}
	view, err := gocv.NewMatFromBytes(f.Height, f.Width, gocv.MatTypeCV8UC3, f.Data)
	if err != nil {
		return gocv.NewMat(), fmt.Errorf("wrap frame: %w", err)
	}
	defer view.Close()
	return view.Clone(), nil
}

// fromMat copies a BGR Mat into a new frame carrying meta's sequence and
// capture time.
func fromMat(m gocv.Mat, meta *frame.Frame) (*frame.Frame, error) {
	if m.Type() != gocv.MatTypeCV8UC3 {
		return nil, fmt.Errorf("unexpected mat type %v", m.Type())
	}
	out := &frame.Frame{
		Width:  m.Cols(),
		Height: m.Rows(),
		Data:   m.ToBytes(),
	}
	if meta != nil {
		out.Seq = meta.Seq
		out.Captured = meta.Captured
	}
	return out, out.Validate()
}
