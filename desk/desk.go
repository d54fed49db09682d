// Package desk implements a keyed registration runtime: a central
// store into which independent producers check data items in and out
// under unique ids, while listeners and plugins react to the
// lifecycle. Mutations are O(1), sorted projections are memoized per
// sort spec, update notifications batch per scheduler tick, and
// asynchronously produced data is arbitrated last-issued-wins.
package desk

import (
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/zjrosen/frontdesk/observe"
	"github.com/zjrosen/frontdesk/pubsub"
)

// Desk is the façade over one registry. Mutations are safe for
// concurrent use; hooks and event listeners run outside the desk's
// lock, on the mutating goroutine, so they may call back into the desk.
// Unbounded recursion from such re-entrant calls is the caller's
// hazard.
//
// Cancellation is always a boolean false return, never an error or
// panic: false means the id was absent or a before-hook vetoed.
type Desk[T any] struct {
	id    string
	label string

	mu    sync.Mutex
	store *store[T]
	views *viewCache[T]

	notifier *pubsub.Notifier[Event[T]]

	plugins   []Plugin[T]
	disposers []namedDisposer
	methods   map[string]Method[T]
	computed  map[string]Computed[T]

	beforeCheckIn  func(id Key, data T) bool
	onCheckIn      func(item Item[T])
	beforeCheckOut func(id Key) bool
	onCheckOut     func(item Item[T])

	merge   MergeFunc[T]
	sortKey func(item Item[T], field string) (any, bool)
	newID   func() string
	now     func() time.Time

	logger *slog.Logger
	debug  bool
	sink   observe.Sink
}

// New constructs a desk and installs its plugins in declaration order.
// A failing plugin install or a capability-name collision aborts
// construction.
func New[T any](cfg Config[T]) (*Desk[T], error) {
	newID := cfg.NewID
	if newID == nil {
		newID = uuid.NewString
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	merge := cfg.Merge
	if merge == nil {
		merge = defaultMerge[T]()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	d := &Desk[T]{
		id:             newID(),
		label:          cfg.Label,
		store:          newStore[T](),
		views:          newViewCache[T](viewCacheCapacity),
		notifier:       pubsub.NewNotifier[Event[T]](cfg.Scheduler),
		methods:        make(map[string]Method[T]),
		computed:       make(map[string]Computed[T]),
		beforeCheckIn:  cfg.BeforeCheckIn,
		onCheckIn:      cfg.OnCheckIn,
		beforeCheckOut: cfg.BeforeCheckOut,
		onCheckOut:     cfg.OnCheckOut,
		merge:          merge,
		sortKey:        cfg.SortKey,
		newID:          newID,
		now:            now,
		logger:         logger,
		debug:          cfg.Debug,
		sink:           cfg.Sink,
	}

	for _, p := range cfg.Plugins {
		if err := d.install(p); err != nil {
			return nil, err
		}
	}

	d.logOp("desk ready", "label", d.label, "plugins", len(d.plugins))
	return d, nil
}

// ID returns the desk's generated identifier.
func (d *Desk[T]) ID() string {
	return d.id
}

// Label returns the correlation label, if one was configured.
func (d *Desk[T]) Label() string {
	return d.label
}

// CheckIn registers data under id without meta. See CheckInEntry.
func (d *Desk[T]) CheckIn(id Key, data T) bool {
	return d.CheckInEntry(Entry[T]{ID: id, Data: data})
}

// CheckInEntry registers an entry. Before-hooks run first (plugins in
// install order, then the owner); any false aborts with no mutation and
// no event. On success the item is stored with a fresh timestamp, the
// check-in event is delivered synchronously, and after-hooks run.
//
// Checking in an id that is already registered replaces it with a
// fresh timestamp, keeping its projection position. Check out first if
// re-registration is not intended.
func (d *Desk[T]) CheckInEntry(entry Entry[T]) bool {
	if !d.runBeforeCheckIn(entry.ID, entry.Data) {
		d.emitRecord(observe.Record{Type: observe.TypeCheckInBlocked, ChildID: string(entry.ID), Data: entry.Data})
		d.logOp("check-in blocked", "id", entry.ID)
		return false
	}

	d.mu.Lock()
	item := Item[T]{ID: entry.ID, Data: entry.Data, Timestamp: d.now(), Meta: entry.Meta}
	d.store.put(item)
	size := d.store.len()
	d.mu.Unlock()

	event := Event[T]{Type: EventCheckIn, ID: entry.ID, Item: item, RegistrySize: size, Timestamp: item.Timestamp}
	d.notifier.Publish(string(EventCheckIn), event)
	d.emitRecord(observe.Record{Type: observe.TypeCheckIn, ChildID: string(entry.ID), Data: item.Data, RegistrySize: size})
	d.runAfterCheckIn(item)
	d.logOp("check-in", "id", entry.ID, "size", size)
	return true
}

// CheckOut removes the item under id. False when the id is absent or a
// before-hook vetoes. The check-out event is delivered synchronously
// before return.
func (d *Desk[T]) CheckOut(id Key) bool {
	d.mu.Lock()
	exists := d.store.has(id)
	d.mu.Unlock()
	if !exists {
		return false
	}

	if !d.runBeforeCheckOut(id) {
		d.emitRecord(observe.Record{Type: observe.TypeCheckOutBlocked, ChildID: string(id)})
		d.logOp("check-out blocked", "id", id)
		return false
	}

	d.mu.Lock()
	item, removed := d.store.remove(id)
	size := d.store.len()
	d.mu.Unlock()
	if !removed {
		// A hook checked the id out re-entrantly
		return false
	}

	event := Event[T]{Type: EventCheckOut, ID: id, Item: item, RegistrySize: size, Timestamp: d.now()}
	d.notifier.Publish(string(EventCheckOut), event)
	d.emitRecord(observe.Record{Type: observe.TypeCheckOut, ChildID: string(id), Data: item.Data, RegistrySize: size})
	d.runAfterCheckOut(item)
	d.logOp("check-out", "id", id, "size", size)
	return true
}

// Update merges patch into the item's data via the desk's merge
// strategy, leaving the timestamp untouched. False when the id is
// absent or a before-hook vetoes. The update event is delivered
// batched, on the next scheduler tick.
func (d *Desk[T]) Update(id Key, patch T) bool {
	d.mu.Lock()
	exists := d.store.has(id)
	d.mu.Unlock()
	if !exists {
		return false
	}

	if !d.runBeforeUpdate(id, patch) {
		d.emitRecord(observe.Record{Type: observe.TypeUpdateBlocked, ChildID: string(id), Data: patch})
		d.logOp("update blocked", "id", id)
		return false
	}

	d.mu.Lock()
	current, exists := d.store.get(id)
	if !exists {
		// A hook checked the id out re-entrantly
		d.mu.Unlock()
		return false
	}
	previous := current.Data
	current.Data = d.merge(current.Data, patch)
	d.store.replace(current)
	item := current
	size := d.store.len()
	d.mu.Unlock()

	event := Event[T]{Type: EventUpdate, ID: id, Item: item, Previous: previous, RegistrySize: size, Timestamp: d.now()}
	d.notifier.PublishBatched(string(EventUpdate), event)
	d.emitRecord(observe.Record{Type: observe.TypeUpdate, ChildID: string(id), Data: item.Data, PreviousData: previous, RegistrySize: size})
	d.runAfterUpdate(previous, item)
	d.logOp("update", "id", id)
	return true
}

// Get returns a snapshot of the item under id.
func (d *Desk[T]) Get(id Key) (Item[T], bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.store.get(id)
}

// Has reports whether id is registered.
func (d *Desk[T]) Has(id Key) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.store.has(id)
}

// Size returns the number of registered items.
func (d *Desk[T]) Size() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.store.len()
}

// GetAll returns the registered items. With no sort spec the result is
// a fresh copy of the insertion-order projection. With a spec, results
// come from the view cache: repeat calls at the same registry version
// return the identical slice, so callers must treat it as read-only.
// Specs beyond the first are ignored.
func (d *Desk[T]) GetAll(sortSpec ...SortSpec) []Item[T] {
	d.mu.Lock()
	defer d.mu.Unlock()

	if len(sortSpec) == 0 {
		return slices.Clone(d.store.snapshot())
	}

	spec := sortSpec[0].normalized()
	key := viewKey{by: spec.By, order: spec.Order}
	version := d.store.currentVersion()
	if items, ok := d.views.get(key, version); ok {
		return items
	}

	items := slices.Clone(d.store.snapshot())
	if spec.By != "" {
		d.sortItems(items, spec)
	}
	d.views.put(key, version, items)
	return items
}

// Clear destroys every item at once, outside the per-id hook pipeline:
// no before-hooks run and no per-id events fire. One clear event
// carrying the pre-clear size is delivered synchronously, then each
// plugin disposer runs exactly once and is discarded. Hooks and
// capabilities stay installed; the desk remains usable.
func (d *Desk[T]) Clear() {
	d.mu.Lock()
	size := d.store.clear()
	disposers := d.disposers
	d.disposers = nil
	d.mu.Unlock()

	event := Event[T]{Type: EventClear, RegistrySize: size, Timestamp: d.now()}
	d.notifier.Publish(string(EventClear), event)
	d.emitRecord(observe.Record{Type: observe.TypeClear, RegistrySize: size})

	for _, disposer := range disposers {
		disposer.fn()
		d.emitRecord(observe.Record{Type: observe.TypePluginDispose, PluginName: disposer.plugin})
	}
	d.logOp("clear", "removed", size)
}

// CheckInMany applies CheckInEntry per entry, in order. Not atomic as
// a batch: a veto partway leaves earlier check-ins in place. The
// returned slice holds the per-entry outcomes.
func (d *Desk[T]) CheckInMany(entries []Entry[T]) []bool {
	results := make([]bool, len(entries))
	for i, entry := range entries {
		results[i] = d.CheckInEntry(entry)
	}
	return results
}

// CheckOutMany applies CheckOut per id, in order. Not atomic.
func (d *Desk[T]) CheckOutMany(ids []Key) []bool {
	results := make([]bool, len(ids))
	for i, id := range ids {
		results[i] = d.CheckOut(id)
	}
	return results
}

// UpdateMany applies Update per patch, in order. Not atomic.
func (d *Desk[T]) UpdateMany(patches []Patch[T]) []bool {
	results := make([]bool, len(patches))
	for i, patch := range patches {
		results[i] = d.Update(patch.ID, patch.Data)
	}
	return results
}

// On subscribes fn to an event type and returns the subscription
// handle. Cancel it directly or pass it to Off; cancelling twice is a
// no-op.
func (d *Desk[T]) On(eventType EventType, fn func(Event[T])) *pubsub.Subscription {
	return d.notifier.Subscribe(string(eventType), fn)
}

// Off cancels a subscription returned by On. Nil-safe.
func (d *Desk[T]) Off(sub *pubsub.Subscription) {
	d.notifier.Unsubscribe(sub)
}

// Emit publishes an event immediately under eventType, which may be a
// custom topic. The event's Type and Timestamp are filled in when zero.
func (d *Desk[T]) Emit(eventType EventType, event Event[T]) {
	if event.Type == "" {
		event.Type = eventType
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = d.now()
	}
	d.notifier.Publish(string(eventType), event)
}

func (d *Desk[T]) emitRecord(record observe.Record) {
	if d.sink == nil {
		return
	}
	record.DeskID = d.id
	record.DeskLabel = d.label
	if record.Timestamp.IsZero() {
		record.Timestamp = d.now()
	}
	d.sink.Emit(record)
}

func (d *Desk[T]) logOp(msg string, args ...any) {
	if !d.debug {
		return
	}
	d.logger.Debug(msg, append([]any{"desk", d.id}, args...)...)
}
