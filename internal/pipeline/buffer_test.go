package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smazurov/framenode/internal/frame"
)

func seqFrame(seq uint64) *frame.Frame {
	return &frame.Frame{Width: 1, Height: 1, Data: make([]byte, 3), Seq: seq}
}

func TestLatestBuffer_DrainReturnsNewest(t *testing.T) {
	b := NewLatestBuffer(2)

	b.Publish(seqFrame(1)) // A
	b.Publish(seqFrame(2)) // B
	dropped := b.Publish(seqFrame(3))

	assert.Equal(t, uint64(1), dropped)
	latest := b.DrainToLatest()
	require.NotNil(t, latest)
	assert.Equal(t, uint64(3), latest.Seq)
	assert.Nil(t, b.DrainToLatest(), "second drain should find the buffer empty")
}

func TestLatestBuffer_BoundedForAnySequence(t *testing.T) {
	for _, capacity := range []int{1, 2, 3, 5} {
		for _, n := range []int{1, 2, 7, 50} {
			b := NewLatestBuffer(capacity)
			for i := 1; i <= n; i++ {
				b.Publish(seqFrame(uint64(i)))
				require.LessOrEqual(t, b.Len(), capacity)
			}

			expectedDrops := 0
			if n > capacity {
				expectedDrops = n - capacity
			}
			assert.Equal(t, uint64(expectedDrops), b.Dropped(), "cap=%d n=%d", capacity, n)

			latest := b.DrainToLatest()
			require.NotNil(t, latest)
			assert.Equal(t, uint64(n), latest.Seq, "cap=%d n=%d", capacity, n)
			assert.Equal(t, 0, b.Len())
		}
	}
}

func TestLatestBuffer_PreservesOrderOfRetained(t *testing.T) {
	b := NewLatestBuffer(3)
	for i := 1; i <= 5; i++ {
		b.Publish(seqFrame(uint64(i)))
	}

	var got []uint64
	for b.Len() > 0 {
		got = append(got, (<-b.ch).Seq)
	}
	assert.Equal(t, []uint64{3, 4, 5}, got)
}

func TestLatestBuffer_EmptyDrain(t *testing.T) {
	b := NewLatestBuffer(2)
	assert.Nil(t, b.DrainToLatest())
	assert.Equal(t, 2, b.Cap())
}

func TestLatestBuffer_MinimumCapacity(t *testing.T) {
	assert.Equal(t, 1, NewLatestBuffer(0).Cap())
}

func TestLatestBuffer_ConcurrentProducerConsumer(t *testing.T) {
	b := NewLatestBuffer(2)
	const total = 5000

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 1; i <= total; i++ {
			b.Publish(seqFrame(uint64(i)))
		}
	}()

	var last uint64
	for {
		select {
		case <-done:
			if f := b.DrainToLatest(); f != nil {
				require.Greater(t, f.Seq, last)
				last = f.Seq
			}
			assert.Equal(t, uint64(total), last)
			return
		default:
			if f := b.DrainToLatest(); f != nil {
				require.Greater(t, f.Seq, last, "frames must never go backwards")
				last = f.Seq
			}
		}
	}
}
