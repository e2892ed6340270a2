package pipeline

import (
	"sync/atomic"

	"github.com/smazurov/framenode/internal/frame"
)

// LatestBuffer is a bounded FIFO that favors fresh frames: a full buffer
// discards its oldest entry to make room. It is meant for one producer (the
// stream worker) and one consumer (the render loop).
type LatestBuffer struct {
	ch      chan *frame.Frame
	dropped atomic.Uint64
}

// NewLatestBuffer creates a buffer holding at most capacity frames.
func NewLatestBuffer(capacity int) *LatestBuffer {
	if capacity < 1 {
		capacity = 1
	}
	return &LatestBuffer{ch: make(chan *frame.Frame, capacity)}
}

// Publish inserts f without blocking and returns how many older frames were discarded.
func (b *LatestBuffer) Publish(f *frame.Frame) uint64 {
	var dropped uint64
	for {
		select {
		case b.ch <- f:
			return dropped
		default:
		}
		select {
		case <-b.ch:
			dropped++
			b.dropped.Add(1)
		default:
		}
	}
}

// DrainToLatest empties the buffer and returns the newest frame, or nil if it was empty.
func (b *LatestBuffer) DrainToLatest() *frame.Frame {
	var latest *frame.Frame
	for {
		select {
		case f := <-b.ch:
			latest = f
		default:
			return latest
		}
	}
}

// Len returns the number of unread frames.
func (b *LatestBuffer) Len() int {
	return len(b.ch)
}

// Cap returns the buffer capacity.
func (b *LatestBuffer) Cap() int {
	return cap(b.ch)
}

// Dropped returns the total number of discarded frames.
func (b *LatestBuffer) Dropped() uint64 {
	return b.dropped.Load()
}
