package exporters

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/smazurov/framenode/internal/events"
	"github.com/smazurov/framenode/internal/metrics"
)

// EventPublisher interface for publishing events.
type EventPublisher interface {
	Publish(ev events.Event)
}

// SSEExporter samples the per-stream counters on an interval and publishes a
// StreamMetricsEvent for every stream whose counters moved since the last
// sample. Idle streams are republished at most once per idleEvery.
type SSEExporter struct {
	eventBus  EventPublisher
	interval  time.Duration
	idleEvery time.Duration

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup

	last map[int]sample
}

type sample struct {
	at        time.Time
	published time.Time
	metrics   metrics.StreamMetrics
}

// NewSSEExporter creates an exporter sampling once per interval.
func NewSSEExporter(eventBus EventPublisher, interval time.Duration) *SSEExporter {
	if interval <= 0 {
		interval = time.Second
	}
	return &SSEExporter{
		eventBus:  eventBus,
		interval:  interval,
		idleEvery: 10 * interval,
		last:      make(map[int]sample),
	}
}

// Start begins the export loop. Calling Start on a running exporter is a no-op.
func (s *SSEExporter) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return
	}
	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.wg.Add(1)
	go s.run(runCtx)
}

// Stop stops the exporter and waits for the loop to exit. The exporter can
// be started again afterwards.
func (s *SSEExporter) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	s.cancel = nil
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	s.wg.Wait()
}

func (s *SSEExporter) run(ctx context.Context) {
	defer s.wg.Done()
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			s.publish(now, metrics.GetAllStreamMetrics())
		}
	}
}

func (s *SSEExporter) publish(now time.Time, all map[int]*metrics.StreamMetrics) {
	streams := make([]int, 0, len(all))
	for stream := range all {
		streams = append(streams, stream)
	}
	sort.Ints(streams)

	for stream := range s.last {
		if _, ok := all[stream]; !ok {
			delete(s.last, stream)
		}
	}

	for _, stream := range streams {
		cur := *all[stream]
		prev, seen := s.last[stream]

		var fps float64
		if seen && cur.FramesRead >= prev.metrics.FramesRead {
			if elapsed := now.Sub(prev.at).Seconds(); elapsed > 0 {
				fps = float64(cur.FramesRead-prev.metrics.FramesRead) / elapsed
			}
		}

		next := sample{at: now, published: prev.published, metrics: cur}
		if !seen || cur != prev.metrics || now.Sub(prev.published) >= s.idleEvery {
			s.eventBus.Publish(events.StreamMetricsEvent{
				Stream:           stream,
				FramesRead:       cur.FramesRead,
				ReadFPS:          fps,
				Misses:           cur.Misses,
				ProcessingErrors: cur.ProcessingErrors,
				DroppedFrames:    cur.DroppedFrames,
				FramesRecorded:   cur.FramesRecorded,
				Recording:        cur.Recording,
			})
			next.published = now
		}
		s.last[stream] = next
	}
}

// GetEventTypes returns event types for SSE endpoint registration.
func GetEventTypes() map[string]any {
	return map[string]any{
		"stream-metrics": events.StreamMetricsEvent{},
	}
}
