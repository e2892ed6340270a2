package pipeline

import "time"

// StreamStatus is a point-in-time view of one stream.
type StreamStatus struct {
	Index            int
	SourceKind       string
	SourceURI        string
	Processor        string
	Width            int
	Height           int
	FPS              float64
	State            WorkerState
	Frames           uint64
	Misses           uint64
	ProcessingErrors uint64
	SnapshotErrors   uint64
	Dropped          uint64
	Buffered         int
	Recording        bool
	LastFrame        time.Time
}

// Status returns the status of every stream in configuration order.
func (o *Orchestrator) Status() []StreamStatus {
	out := make([]StreamStatus, 0, len(o.workers))
	for _, w := range o.workers {
		out = append(out, o.streamStatus(w))
	}
	return out
}

// StreamStatus returns the status of one stream.
func (o *Orchestrator) StreamStatus(index int) (StreamStatus, bool) {
	w, ok := o.byIndex[index]
	if !ok {
		return StreamStatus{}, false
	}
	return o.streamStatus(w), true
}

func (o *Orchestrator) streamStatus(w *worker) StreamStatus {
	st := StreamStatus{
		Index:            w.cfg.Index,
		SourceKind:       w.cfg.SourceKind,
		SourceURI:        w.cfg.SourceURI,
		Processor:        w.cfg.Processor,
		Width:            w.cfg.Width,
		Height:           w.cfg.Height,
		FPS:              w.cfg.FPS,
		State:            w.currentState(),
		Frames:           w.stats.frames.Load(),
		Misses:           w.stats.misses.Load(),
		ProcessingErrors: w.stats.procErrors.Load(),
		SnapshotErrors:   w.stats.snapErrors.Load(),
		Dropped:          w.buffer.Dropped(),
		Buffered:         w.buffer.Len(),
	}
	if ns := w.stats.lastFrameNs.Load(); ns > 0 {
		st.LastFrame = time.Unix(0, ns)
	}
	if o.recorder != nil {
		st.Recording = o.recorder.IsRecording(w.cfg.Index)
	}
	return st
}
