package desk

import "time"

// EventType names a desk lifecycle event. Custom types may be used
// with Emit and On for application-defined topics.
type EventType string

const (
	EventCheckIn  EventType = "check-in"
	EventCheckOut EventType = "check-out"
	EventUpdate   EventType = "update"
	EventClear    EventType = "clear"
)

// Event is the payload delivered to listeners.
//
// Check-in, check-out, and clear events are delivered synchronously,
// before the triggering call returns. Update events are batched: they
// queue and are delivered together on the next scheduler tick, one
// listener call per update, in emission order.
type Event[T any] struct {
	Type EventType

	// ID and Item identify the affected entry. Both are zero for
	// clear events.
	ID   Key
	Item Item[T]

	// Previous holds the pre-merge data on update events.
	Previous T

	// RegistrySize is the registry size after the operation, except
	// for clear events where it is the pre-clear size.
	RegistrySize int

	Timestamp time.Time
}
