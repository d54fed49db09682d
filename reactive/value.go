// Package reactive provides explicit observable values with get, set,
// and subscribe operations. Values are passed by reference to whoever
// needs them; there is no ambient or global lookup.
package reactive

import "sync"

// Watchable is anything that can signal "I changed" to a watcher.
// Value implements it; registration sources watch these to know when
// to re-evaluate their providers.
type Watchable interface {
	Watch(fn func()) (cancel func())
}

type subscriber[T any] struct {
	id uint64
	fn func(T)
}

// Value holds a single value and notifies subscribers on every Set.
// Notification is unconditional: values are not compared, so setting an
// equal value still notifies.
type Value[T any] struct {
	mu   sync.Mutex
	val  T
	seq  uint64
	subs []subscriber[T]
}

// NewValue creates a Value holding initial.
func NewValue[T any](initial T) *Value[T] {
	return &Value[T]{val: initial}
}

// Get returns the current value.
func (v *Value[T]) Get() T {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.val
}

// Set stores next and notifies subscribers in subscription order.
// Subscribers run outside the value's lock, on the caller's goroutine.
func (v *Value[T]) Set(next T) {
	v.mu.Lock()
	v.val = next
	snapshot := make([]subscriber[T], len(v.subs))
	copy(snapshot, v.subs)
	v.mu.Unlock()

	for _, sub := range snapshot {
		sub.fn(next)
	}
}

// Subscribe registers fn to run on every Set. The returned cancel
// removes the subscription; calling it more than once is a no-op.
func (v *Value[T]) Subscribe(fn func(T)) (cancel func()) {
	v.mu.Lock()
	v.seq++
	id := v.seq
	v.subs = append(v.subs, subscriber[T]{id: id, fn: fn})
	v.mu.Unlock()

	return func() {
		v.mu.Lock()
		defer v.mu.Unlock()
		for i, sub := range v.subs {
			if sub.id == id {
				v.subs = append(v.subs[:i], v.subs[i+1:]...)
				return
			}
		}
	}
}

// Watch implements Watchable, dropping the new value.
func (v *Value[T]) Watch(fn func()) (cancel func()) {
	return v.Subscribe(func(T) { fn() })
}
