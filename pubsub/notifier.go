// Package pubsub provides a topic-keyed callback notifier with two
// delivery modes: immediate (synchronous, before Publish returns) and
// batched (payloads queue per topic and are delivered together on the
// next scheduler tick). Values are never coalesced; only delivery is.
package pubsub

import "sync"

// Subscription identifies one registered listener. Go functions are not
// comparable, so handles stand in for callback identity: every
// Subscribe returns a distinct Subscription, and cancelling one twice
// is a no-op.
type Subscription struct {
	topic  string
	cancel func()
}

// Topic returns the topic the subscription listens on.
func (s *Subscription) Topic() string {
	return s.topic
}

// Cancel removes the subscription. Idempotent.
func (s *Subscription) Cancel() {
	if s.cancel != nil {
		s.cancel()
	}
}

type listener[E any] struct {
	id uint64
	fn func(E)
}

// Notifier dispatches typed events to callback listeners by topic.
type Notifier[E any] struct {
	mu     sync.Mutex
	sched  Scheduler
	seq    uint64
	topics map[string][]listener[E]
	queues map[string][]E
	armed  map[string]bool
}

// NewNotifier creates a notifier using sched to defer batched flushes.
// A nil scheduler falls back to AsyncScheduler.
func NewNotifier[E any](sched Scheduler) *Notifier[E] {
	if sched == nil {
		sched = AsyncScheduler{}
	}
	return &Notifier[E]{
		sched:  sched,
		topics: make(map[string][]listener[E]),
		queues: make(map[string][]E),
		armed:  make(map[string]bool),
	}
}

// Subscribe registers fn for a topic and returns its subscription
// handle. Listeners are invoked in subscription order.
func (n *Notifier[E]) Subscribe(topic string, fn func(E)) *Subscription {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.seq++
	id := n.seq
	n.topics[topic] = append(n.topics[topic], listener[E]{id: id, fn: fn})

	return &Subscription{
		topic:  topic,
		cancel: func() { n.remove(topic, id) },
	}
}

// Unsubscribe is the explicit counterpart to Subscribe.
// Equivalent to sub.Cancel; safe on nil and on already-cancelled
// subscriptions.
func (n *Notifier[E]) Unsubscribe(sub *Subscription) {
	if sub != nil {
		sub.Cancel()
	}
}

func (n *Notifier[E]) remove(topic string, id uint64) {
	n.mu.Lock()
	defer n.mu.Unlock()

	listeners := n.topics[topic]
	for i, l := range listeners {
		if l.id == id {
			n.topics[topic] = append(listeners[:i], listeners[i+1:]...)
			return
		}
	}
}

// Publish delivers event synchronously to all current listeners of the
// topic, in subscription order, before returning. Listeners run outside
// the notifier's lock, so they may subscribe, cancel, or publish again.
func (n *Notifier[E]) Publish(topic string, event E) {
	for _, fn := range n.snapshot(topic) {
		fn(event)
	}
}

// PublishBatched queues event for the topic. The first payload entering
// an empty queue arms a flush on the scheduler; the flush delivers
// every payload queued before it runs, one listener call per payload,
// in insertion order, then re-arms.
func (n *Notifier[E]) PublishBatched(topic string, event E) {
	n.mu.Lock()
	n.queues[topic] = append(n.queues[topic], event)
	arm := !n.armed[topic]
	if arm {
		n.armed[topic] = true
	}
	n.mu.Unlock()

	if arm {
		n.sched.Schedule(func() { n.flush(topic) })
	}
}

func (n *Notifier[E]) flush(topic string) {
	n.mu.Lock()
	batch := n.queues[topic]
	delete(n.queues, topic)
	delete(n.armed, topic)
	fns := make([]func(E), len(n.topics[topic]))
	for i, l := range n.topics[topic] {
		fns[i] = l.fn
	}
	n.mu.Unlock()

	// Payloads queued by listeners during delivery land in a fresh
	// queue and arm the next flush
	for _, event := range batch {
		for _, fn := range fns {
			fn(event)
		}
	}
}

func (n *Notifier[E]) snapshot(topic string) []func(E) {
	n.mu.Lock()
	defer n.mu.Unlock()

	listeners := n.topics[topic]
	if len(listeners) == 0 {
		return nil
	}
	fns := make([]func(E), len(listeners))
	for i, l := range listeners {
		fns[i] = l.fn
	}
	return fns
}

// ListenerCount returns the number of active listeners for a topic.
func (n *Notifier[E]) ListenerCount(topic string) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.topics[topic])
}
