package pubsub

import "sync"

// ManualScheduler queues scheduled functions until Flush is called,
// making batched delivery deterministic. Test helper; the production
// scheduler is AsyncScheduler.
type ManualScheduler struct {
	mu      sync.Mutex
	pending []func()
}

// Schedule implements Scheduler.
func (m *ManualScheduler) Schedule(fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pending = append(m.pending, fn)
}

// Flush runs pending functions until none remain, including any that
// were scheduled while flushing. Returns how many ran.
func (m *ManualScheduler) Flush() int {
	total := 0
	for {
		m.mu.Lock()
		pending := m.pending
		m.pending = nil
		m.mu.Unlock()

		if len(pending) == 0 {
			return total
		}
		for _, fn := range pending {
			fn()
		}
		total += len(pending)
	}
}

// Pending returns the number of functions waiting to run.
func (m *ManualScheduler) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.pending)
}
