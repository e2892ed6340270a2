// Package frame defines the pixel buffer passed between pipeline collaborators.
package frame

import (
	"fmt"
	"time"
)

// BytesPerPixel is the size of one BGR24 pixel.
const BytesPerPixel = 3

// Frame is a packed BGR24 image. Once a worker hands a frame downstream it is
// treated as immutable; collaborators that need to modify pixels work on a Clone.
type Frame struct {
	Width    int
	Height   int
	Data     []byte
	Seq      uint64
	Captured time.Time
}

// New allocates a zeroed frame of the given size.
func New(width, height int) *Frame {
	return &Frame{
		Width:    width,
		Height:   height,
		Data:     make([]byte, width*height*BytesPerPixel),
		Captured: time.Now(),
	}
}

// Size returns the expected byte length for a width x height BGR24 image.
func Size(width, height int) int {
	return width * height * BytesPerPixel
}

// Validate checks that the buffer length matches the declared geometry.
func (f *Frame) Validate() error {
	if f.Width <= 0 || f.Height <= 0 {
		return fmt.Errorf("invalid frame geometry %dx%d", f.Width, f.Height)
	}
	if len(f.Data) != Size(f.Width, f.Height) {
		return fmt.Errorf("frame data length %d does not match %dx%d", len(f.Data), f.Width, f.Height)
	}
	return nil
}

// Clone returns a deep copy.
func (f *Frame) Clone() *Frame {
	if f == nil {
		return nil
	}
	c := *f
	c.Data = make([]byte, len(f.Data))
	copy(c.Data, f.Data)
	return &c
}

// Pixel returns the B, G, R components at x, y.
func (f *Frame) Pixel(x, y int) (b, g, r byte) {
	off := (y*f.Width + x) * BytesPerPixel
	return f.Data[off], f.Data[off+1], f.Data[off+2]
}

// SetPixel writes the B, G, R components at x, y.
func (f *Frame) SetPixel(x, y int, b, g, r byte) {
	off := (y*f.Width + x) * BytesPerPixel
	f.Data[off] = b
	f.Data[off+1] = g
	f.Data[off+2] = r
}
