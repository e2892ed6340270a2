// Package metrics provides Prometheus metrics for stream workers and recordings.
package metrics

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	framesRead = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "framenode",
		Subsystem: "pipeline",
		Name:      "frames_read_total",
		Help:      "Frames obtained from the stream source",
	}, []string{"stream"})

	frameMisses = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "framenode",
		Subsystem: "pipeline",
		Name:      "frame_misses_total",
		Help:      "Source reads that returned no frame",
	}, []string{"stream"})

	processingErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "framenode",
		Subsystem: "pipeline",
		Name:      "processing_errors_total",
		Help:      "Frame processor failures",
	}, []string{"stream"})

	processingDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "framenode",
		Subsystem: "pipeline",
		Name:      "processing_duration_seconds",
		Help:      "Time spent in the frame processor",
		Buckets:   []float64{.001, .0025, .005, .01, .025, .05, .1, .25},
	}, []string{"stream"})

	bufferDrops = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "framenode",
		Subsystem: "pipeline",
		Name:      "buffer_dropped_frames_total",
		Help:      "Frames discarded by the latest-frame buffer",
	}, []string{"stream"})

	streamExhausted = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "framenode",
		Subsystem: "pipeline",
		Name:      "stream_exhausted",
		Help:      "1 when the stream gave up after consecutive misses",
	}, []string{"stream"})

	framesRecorded = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "framenode",
		Subsystem: "recording",
		Name:      "frames_written_total",
		Help:      "Frames written to recordings",
	}, []string{"stream"})

	recordingWriteErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "framenode",
		Subsystem: "recording",
		Name:      "write_errors_total",
		Help:      "Failed recording writes",
	}, []string{"stream"})

	recordingActive = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "framenode",
		Subsystem: "recording",
		Name:      "active",
		Help:      "1 while the stream is recording",
	}, []string{"stream"})

	// Local cache for SSE exporter and API access.
	streamCache   = make(map[int]*StreamMetrics)
	streamCacheMu sync.RWMutex
)

// StreamMetrics holds current counter values for a stream.
type StreamMetrics struct {
	FramesRead       uint64
	Misses           uint64
	ProcessingErrors uint64
	DroppedFrames    uint64
	FramesRecorded   uint64
	WriteErrors      uint64
	Recording        bool
	Exhausted        bool
}

func label(stream int) string {
	return strconv.Itoa(stream)
}

// IncFramesRead counts a frame obtained from the source.
func IncFramesRead(stream int) {
	framesRead.WithLabelValues(label(stream)).Inc()
	updateCache(stream, func(m *StreamMetrics) { m.FramesRead++ })
}

// IncFrameMisses counts a read that produced no frame.
func IncFrameMisses(stream int) {
	frameMisses.WithLabelValues(label(stream)).Inc()
	updateCache(stream, func(m *StreamMetrics) { m.Misses++ })
}

// IncProcessingErrors counts a processor failure.
func IncProcessingErrors(stream int) {
	processingErrors.WithLabelValues(label(stream)).Inc()
	updateCache(stream, func(m *StreamMetrics) { m.ProcessingErrors++ })
}

// ObserveProcessingDuration records how long one Process call took.
func ObserveProcessingDuration(stream int, d time.Duration) {
	processingDuration.WithLabelValues(label(stream)).Observe(d.Seconds())
}

// AddBufferDrops counts frames discarded by the latest-frame buffer.
func AddBufferDrops(stream int, n uint64) {
	if n == 0 {
		return
	}
	bufferDrops.WithLabelValues(label(stream)).Add(float64(n))
	updateCache(stream, func(m *StreamMetrics) { m.DroppedFrames += n })
}

// SetStreamExhausted marks a stream as exhausted.
func SetStreamExhausted(stream int, exhausted bool) {
	streamExhausted.WithLabelValues(label(stream)).Set(boolToFloat(exhausted))
	updateCache(stream, func(m *StreamMetrics) { m.Exhausted = exhausted })
}

// IncFramesRecorded counts a frame written to a recording.
func IncFramesRecorded(stream int) {
	framesRecorded.WithLabelValues(label(stream)).Inc()
	updateCache(stream, func(m *StreamMetrics) { m.FramesRecorded++ })
}

// IncRecordingWriteErrors counts a failed recording write.
func IncRecordingWriteErrors(stream int) {
	recordingWriteErrors.WithLabelValues(label(stream)).Inc()
	updateCache(stream, func(m *StreamMetrics) { m.WriteErrors++ })
}

// SetRecordingActive sets the recording gauge for a stream.
func SetRecordingActive(stream int, active bool) {
	recordingActive.WithLabelValues(label(stream)).Set(boolToFloat(active))
	updateCache(stream, func(m *StreamMetrics) { m.Recording = active })
}

// DeleteStreamMetrics removes all metrics for a stream.
func DeleteStreamMetrics(stream int) {
	l := label(stream)
	framesRead.DeleteLabelValues(l)
	frameMisses.DeleteLabelValues(l)
	processingErrors.DeleteLabelValues(l)
	processingDuration.DeleteLabelValues(l)
	bufferDrops.DeleteLabelValues(l)
	streamExhausted.DeleteLabelValues(l)
	framesRecorded.DeleteLabelValues(l)
	recordingWriteErrors.DeleteLabelValues(l)
	recordingActive.DeleteLabelValues(l)

	streamCacheMu.Lock()
	delete(streamCache, stream)
	streamCacheMu.Unlock()
}

// GetStreamMetrics returns current metric values for a stream.
func GetStreamMetrics(stream int) *StreamMetrics {
	streamCacheMu.RLock()
	defer streamCacheMu.RUnlock()
	if m, ok := streamCache[stream]; ok {
		dup := *m
		return &dup
	}
	return nil
}

// GetAllStreamMetrics returns metrics for all known streams.
func GetAllStreamMetrics() map[int]*StreamMetrics {
	streamCacheMu.RLock()
	defer streamCacheMu.RUnlock()
	result := make(map[int]*StreamMetrics, len(streamCache))
	for id, m := range streamCache {
		dup := *m
		result[id] = &dup
	}
	return result
}

func updateCache(stream int, update func(*StreamMetrics)) {
	streamCacheMu.Lock()
	defer streamCacheMu.Unlock()
	m, ok := streamCache[stream]
	if !ok {
		m = &StreamMetrics{}
		streamCache[stream] = m
	}
	update(m)
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
