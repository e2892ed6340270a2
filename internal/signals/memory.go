package signals

import "sync"

// MemoryMedium holds requests made in-process, e.g. by the HTTP API.
type MemoryMedium struct {
	mu    sync.Mutex
	start map[int]bool
	stop  map[int]bool
}

func NewMemoryMedium() *MemoryMedium {
	return &MemoryMedium{
		start: make(map[int]bool),
		stop:  make(map[int]bool),
	}
}

// RequestStart queues a start request for stream.
func (m *MemoryMedium) RequestStart(stream int) {
	m.mu.Lock()
	m.start[stream] = true
	m.mu.Unlock()
}

// RequestStop queues a stop request for stream.
func (m *MemoryMedium) RequestStop(stream int) {
	m.mu.Lock()
	m.stop[stream] = true
	m.mu.Unlock()
}

func (m *MemoryMedium) StartRequested(stream int) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.start[stream]
}

func (m *MemoryMedium) StopRequested(stream int) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stop[stream]
}

func (m *MemoryMedium) AckStart(stream int) error {
	m.mu.Lock()
	delete(m.start, stream)
	m.mu.Unlock()
	return nil
}

func (m *MemoryMedium) AckStop(stream int) error {
	m.mu.Lock()
	delete(m.stop, stream)
	m.mu.Unlock()
	return nil
}
