package pubsub

// Scheduler defers a function until after the current operation
// completes. The notifier schedules exactly one flush per topic while
// payloads are queued; implementations decide where the flush runs.
type Scheduler interface {
	Schedule(fn func())
}

// AsyncScheduler runs each scheduled function on its own goroutine.
// Production default: batched listeners must not assume they run on the
// publishing goroutine.
type AsyncScheduler struct{}

// Schedule implements Scheduler.
func (AsyncScheduler) Schedule(fn func()) {
	go fn()
}
