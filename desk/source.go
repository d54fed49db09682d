package desk

import (
	"context"
	"errors"
	"maps"
	"sync"

	"github.com/zjrosen/frontdesk/observe"
	"github.com/zjrosen/frontdesk/raceguard"
	"github.com/zjrosen/frontdesk/reactive"
)

// Provider produces the data a source registers. It runs on its own
// goroutine; a slow or failing provider never blocks the desk.
type Provider[T any] func(ctx context.Context) (T, error)

// SourceConfig describes a registration bound to an asynchronous
// provider.
type SourceConfig[T any] struct {
	// ID keys the registration. Empty uses the desk's id generator.
	ID Key
	// Provider is evaluated on Attach and on every Refresh. Required.
	Provider Provider[T]
	// Watch lists reactive inputs; each change triggers a Refresh.
	Watch []reactive.Watchable
	// Meta is carried on the checked-in item.
	Meta map[string]any
}

// Source is a live binding between a provider and one registered id.
// Overlapping evaluations are arbitrated last-issued-wins: only the
// most recently issued refresh may apply its result, stale results are
// dropped without touching the registry.
type Source[T any] struct {
	desk     *Desk[T]
	id       Key
	provider Provider[T]
	meta     map[string]any

	guard raceguard.Guard
	wg    sync.WaitGroup

	mu      sync.Mutex
	cancels []func()
	closed  bool

	// applyMu serializes the currency check with the registry write so
	// a result issued earlier can never land after a later one.
	applyMu sync.Mutex
}

// Attach binds a provider-backed source to the desk and starts its
// first evaluation. Watched inputs trigger a refresh with the attach
// context on every change.
func (d *Desk[T]) Attach(ctx context.Context, cfg SourceConfig[T]) (*Source[T], error) {
	if cfg.Provider == nil {
		return nil, errors.New("source provider is required")
	}
	id := cfg.ID
	if id == "" {
		id = Key(d.newID())
	}

	s := &Source[T]{
		desk:     d,
		id:       id,
		provider: cfg.Provider,
		meta:     maps.Clone(cfg.Meta),
	}
	for _, w := range cfg.Watch {
		s.cancels = append(s.cancels, w.Watch(func() {
			s.Refresh(ctx)
		}))
	}

	d.logOp("source attached", "id", id, "watched", len(cfg.Watch))
	s.Refresh(ctx)
	return s, nil
}

// ID returns the key this source registers under.
func (s *Source[T]) ID() Key {
	return s.id
}

// Refresh issues a fresh evaluation. The provider runs on its own
// goroutine; its result is checked in when the id is absent and
// merge-updated when present, unless a newer refresh was issued in the
// meantime. No-op after Close.
func (s *Source[T]) Refresh(ctx context.Context) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	token := s.guard.Issue()
	s.wg.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.wg.Done()
		data, err := s.provider(ctx)
		if err != nil {
			s.desk.emitRecord(observe.Record{Type: observe.TypeProviderError, ChildID: string(s.id), Error: err.Error()})
			return
		}
		s.apply(token, data)
	}()
}

func (s *Source[T]) apply(token raceguard.Token, data T) {
	s.applyMu.Lock()
	defer s.applyMu.Unlock()

	if !token.Current() {
		s.desk.emitRecord(observe.Record{Type: observe.TypeStaleDrop, ChildID: string(s.id)})
		return
	}
	if s.desk.Has(s.id) {
		s.desk.Update(s.id, data)
		return
	}
	s.desk.CheckInEntry(Entry[T]{ID: s.id, Data: data, Meta: s.meta})
}

// Close cancels the watches, invalidates outstanding evaluations, and
// checks the id out. Safe to call more than once.
func (s *Source[T]) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	cancels := s.cancels
	s.cancels = nil
	s.mu.Unlock()

	for _, cancel := range cancels {
		cancel()
	}
	s.guard.Invalidate()
	s.desk.CheckOut(s.id)
}

// Wait blocks until every issued evaluation has settled. Useful in
// tests and shutdown paths.
func (s *Source[T]) Wait() {
	s.wg.Wait()
}
