package processor

import (
	"github.com/smazurov/framenode/internal/frame"
	"github.com/smazurov/framenode/internal/options"
)

// Passthrough returns frames unchanged.
type Passthrough struct{}

func (*Passthrough) Configure(map[string]any) error               { return nil }
func (*Passthrough) Process(f *frame.Frame) (*frame.Frame, error) { return f, nil }
func (*Passthrough) Release() error                               { return nil }

// Grayscale converts frames to gray while keeping the BGR24 layout.
// Option "invert" (bool) produces a negative.
type Grayscale struct {
	invert bool
}

func (g *Grayscale) Configure(opts map[string]any) error {
	invert, err := options.Map(opts).Bool("invert", false)
	if err != nil {
		return err
	}
	g.invert = invert
	return nil
}

func (g *Grayscale) Process(f *frame.Frame) (*frame.Frame, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	out := &frame.Frame{
		Width:    f.Width,
		Height:   f.Height,
		Data:     make([]byte, len(f.Data)),
		Seq:      f.Seq,
		Captured: f.Captured,
	}
	for i := 0; i < len(f.Data); i += frame.BytesPerPixel {
		b, gr, r := uint32(f.Data[i]), uint32(f.Data[i+1]), uint32(f.Data[i+2])
		// BT.601 luma in fixed point
		y := byte((29*b + 150*gr + 77*r) >> 8)
		if g.invert {
			y = 255 - y
		}
		out.Data[i], out.Data[i+1], out.Data[i+2] = y, y, y
	}
	return out, nil
}

func (*Grayscale) Release() error { return nil }
