package source

import (
	"fmt"
	"sync"
	"time"

	"github.com/smazurov/framenode/internal/frame"
	"github.com/smazurov/framenode/internal/options"
	"github.com/smazurov/framenode/internal/pipeline"
)

// TestPattern generates a moving vertical bar over a color gradient.
//
// Options:
//   - frames (int): stop producing after this many frames, 0 for unlimited
//   - realtime (bool): pace reads to the stream frame rate, default true
type TestPattern struct {
	width    int
	height   int
	interval time.Duration
	limit    uint64
	realtime bool

	mu       sync.Mutex
	started  bool
	released bool
	produced uint64
	last     time.Time
}

// NewTestPattern creates a synthetic source for cfg.
func NewTestPattern(cfg pipeline.StreamConfig) (pipeline.Source, error) {
	opts := options.Map(cfg.SourceOptions)
	limit, err := opts.Int("frames", 0)
	if err != nil {
		return nil, err
	}
	realtime, err := opts.Bool("realtime", true)
	if err != nil {
		return nil, err
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, fmt.Errorf("test source: invalid size %dx%d", cfg.Width, cfg.Height)
	}

	var interval time.Duration
	if cfg.FPS > 0 {
		interval = time.Duration(float64(time.Second) / cfg.FPS)
	}
	return &TestPattern{
		width:    cfg.Width,
		height:   cfg.Height,
		interval: interval,
		limit:    uint64(max(limit, 0)),
		realtime: realtime,
	}, nil
}

func (s *TestPattern) Start() error {
	s.mu.Lock()
	s.started = true
	s.mu.Unlock()
	return nil
}

func (s *TestPattern) ReadFrame() *frame.Frame {
	s.mu.Lock()
	if !s.started || s.released || (s.limit > 0 && s.produced >= s.limit) {
		s.mu.Unlock()
		return nil
	}
	n := s.produced
	s.produced++
	wait := s.pace()
	s.mu.Unlock()

	if wait > 0 {
		time.Sleep(wait)
	}
	return s.render(n)
}

// pace returns how long to wait so reads do not exceed the frame rate.
func (s *TestPattern) pace() time.Duration {
	if !s.realtime || s.interval == 0 {
		return 0
	}
	now := time.Now()
	next := s.last.Add(s.interval)
	if next.Before(now) {
		s.last = now
		return 0
	}
	s.last = next
	return next.Sub(now)
}

func (s *TestPattern) render(n uint64) *frame.Frame {
	f := frame.New(s.width, s.height)
	barWidth := max(s.width/16, 1)
	barX := int(n*4) % s.width
	for y := range s.height {
		for x := range s.width {
			if x >= barX && x < barX+barWidth {
				f.SetPixel(x, y, 255, 255, 255)
				continue
			}
			f.SetPixel(x, y, byte(x*255/s.width), byte(y*255/s.height), byte(n))
		}
	}
	return f
}

func (s *TestPattern) Release() error {
	s.mu.Lock()
	s.released = true
	s.mu.Unlock()
	return nil
}
