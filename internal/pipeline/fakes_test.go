package pipeline

import (
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/smazurov/framenode/internal/frame"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testSettings() Settings {
	return Settings{
		QueueCapacity: 2,
		MissThreshold: 10,
		MissBackoff:   time.Millisecond,
		TickInterval:  time.Millisecond,
		JoinTimeout:   time.Second,
	}
}

// fakeSource produces limit frames (or unlimited when limit < 0), then returns nil.
type fakeSource struct {
	limit    int
	interval time.Duration
	startErr error

	produced atomic.Int64
	reads    atomic.Int64
	starts   atomic.Int64
	releases atomic.Int64
}

func newFakeSource(limit int) *fakeSource {
	return &fakeSource{limit: limit}
}

func (s *fakeSource) Start() error {
	s.starts.Add(1)
	return s.startErr
}

func (s *fakeSource) ReadFrame() *frame.Frame {
	s.reads.Add(1)
	if s.interval > 0 {
		time.Sleep(s.interval)
	}
	if s.limit >= 0 && s.produced.Load() >= int64(s.limit) {
		return nil
	}
	s.produced.Add(1)
	return frame.New(4, 2)
}

func (s *fakeSource) Release() error {
	s.releases.Add(1)
	return nil
}

// blockingSource blocks in ReadFrame until released, ignoring release when stubborn.
type blockingSource struct {
	stubborn time.Duration
	release  chan struct{}
	once     sync.Once
	releases atomic.Int64
}

func newBlockingSource() *blockingSource {
	return &blockingSource{release: make(chan struct{})}
}

func (s *blockingSource) Start() error { return nil }

func (s *blockingSource) ReadFrame() *frame.Frame {
	if s.stubborn > 0 {
		time.Sleep(s.stubborn)
		return nil
	}
	<-s.release
	return nil
}

func (s *blockingSource) Release() error {
	s.releases.Add(1)
	s.once.Do(func() { close(s.release) })
	return nil
}

// lockedSource holds its mutex for the whole read, like a capture device, so
// Release waits for an in-flight read to return.
type lockedSource struct {
	mu       sync.Mutex
	reading  chan struct{}
	unblock  chan struct{}
	once     sync.Once
	releases atomic.Int64
}

func newLockedSource() *lockedSource {
	return &lockedSource{reading: make(chan struct{}), unblock: make(chan struct{})}
}

func (s *lockedSource) Start() error { return nil }

func (s *lockedSource) ReadFrame() *frame.Frame {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.once.Do(func() { close(s.reading) })
	<-s.unblock
	return nil
}

func (s *lockedSource) Release() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.releases.Add(1)
	return nil
}

// fakeProcessor records processed sequence numbers and fails on demand.
type fakeProcessor struct {
	mu       sync.Mutex
	seen     []uint64
	failOn   map[uint64]error
	panicOn  map[uint64]bool
	options  map[string]any
	releases atomic.Int64
	released chan struct{}
}

func newFakeProcessor() *fakeProcessor {
	return &fakeProcessor{
		failOn:   make(map[uint64]error),
		panicOn:  make(map[uint64]bool),
		released: make(chan struct{}, 1),
	}
}

func (p *fakeProcessor) Configure(options map[string]any) error {
	p.options = options
	return nil
}

func (p *fakeProcessor) Process(f *frame.Frame) (*frame.Frame, error) {
	p.mu.Lock()
	p.seen = append(p.seen, f.Seq)
	err := p.failOn[f.Seq]
	shouldPanic := p.panicOn[f.Seq]
	p.mu.Unlock()

	if shouldPanic {
		panic("boom")
	}
	if err != nil {
		return nil, err
	}
	out := f.Clone()
	out.Data[0] = 0xFF
	return out, nil
}

func (p *fakeProcessor) Release() error {
	if p.releases.Add(1) == 1 {
		p.released <- struct{}{}
	}
	return errors.New("release errors are swallowed")
}

func (p *fakeProcessor) processed() []uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]uint64(nil), p.seen...)
}

type fakeRecorder struct {
	mu       sync.Mutex
	frames   map[int]int
	stopAlls atomic.Int64
}

func newFakeRecorder() *fakeRecorder {
	return &fakeRecorder{frames: make(map[int]int)}
}

func (r *fakeRecorder) IsRecording(stream int) bool { return stream == 0 }

func (r *fakeRecorder) WriteIfRecording(stream int, _ *frame.Frame) {
	if stream != 0 {
		return
	}
	r.mu.Lock()
	r.frames[stream]++
	r.mu.Unlock()
}

func (r *fakeRecorder) StopAll() { r.stopAlls.Add(1) }

func (r *fakeRecorder) written(stream int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.frames[stream]
}

type fakeDisplay struct {
	mu     sync.Mutex
	frames map[int][]uint64
}

func newFakeDisplay() *fakeDisplay {
	return &fakeDisplay{frames: make(map[int][]uint64)}
}

func (d *fakeDisplay) Render(stream int, f *frame.Frame) {
	d.mu.Lock()
	d.frames[stream] = append(d.frames[stream], f.Seq)
	d.mu.Unlock()
}

func (d *fakeDisplay) rendered(stream int) []uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]uint64(nil), d.frames[stream]...)
}

type countingTicker struct {
	ticks atomic.Int64
}

func (c *countingTicker) Tick() { c.ticks.Add(1) }

type fakeSnapshotter struct {
	count atomic.Int64
}

func (s *fakeSnapshotter) Snapshot(int, *frame.Frame) error {
	s.count.Add(1)
	return errors.New("disk full")
}

// sourcesFor builds a SourceFactory that hands out the given sources by stream index.
func sourcesFor(sources map[int]Source) SourceFactory {
	return func(cfg StreamConfig) (Source, error) {
		src, ok := sources[cfg.Index]
		if !ok {
			return nil, errors.New("no source")
		}
		return src, nil
	}
}

func processorsFor(procs map[string]Processor) ProcessorFactory {
	return func(cfg StreamConfig) (Processor, error) {
		p, ok := procs[cfg.Processor]
		if !ok {
			return nil, errors.New("unknown processor kind " + cfg.Processor)
		}
		if err := p.Configure(cfg.ProcessorOptions); err != nil {
			return nil, err
		}
		return p, nil
	}
}

func streams(n int) []StreamConfig {
	out := make([]StreamConfig, n)
	for i := range out {
		out[i] = StreamConfig{Index: i, SourceKind: "fake", Width: 4, Height: 2, FPS: 30}
	}
	return out
}

// alternatingSource returns a frame on every other read.
type alternatingSource struct {
	n atomic.Int64
}

func (s *alternatingSource) Start() error { return nil }

func (s *alternatingSource) ReadFrame() *frame.Frame {
	time.Sleep(time.Millisecond)
	if s.n.Add(1)%2 == 0 {
		return nil
	}
	return frame.New(2, 2)
}

func (s *alternatingSource) Release() error { return nil }
