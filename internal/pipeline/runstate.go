package pipeline

import (
	"sync/atomic"
	"time"
)

// RunState is the shared running flag of one pipeline run.
// It transitions from running to stopped exactly once and never back.
type RunState struct {
	running atomic.Bool
	done    chan struct{}
}

// NewRunState returns a state in the running position.
func NewRunState() *RunState {
	s := &RunState{done: make(chan struct{})}
	s.running.Store(true)
	return s
}

// Running reports whether the run is still active.
func (s *RunState) Running() bool {
	return s.running.Load()
}

// Stop flips the state to stopped. It returns true only for the call that
// performed the transition.
func (s *RunState) Stop() bool {
	if s.running.CompareAndSwap(true, false) {
		close(s.done)
		return true
	}
	return false
}

// Done is closed when the run stops.
func (s *RunState) Done() <-chan struct{} {
	return s.done
}

// Sleep waits for d unless the run stops first. It returns whether the run is
// still active afterwards.
func (s *RunState) Sleep(d time.Duration) bool {
	if !s.Running() {
		return false
	}
	if d <= 0 {
		return s.Running()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-s.done:
		return false
	case <-timer.C:
		return s.Running()
	}
}
