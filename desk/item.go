package desk

import "time"

// Key identifies one item within a desk. Keys are unique per desk;
// integer identifiers are represented in decimal string form.
type Key string

// Item is one registered entry. Timestamp is set exactly once, at
// creation, and never changes on update: an update is a content
// mutation, not a re-registration. Checking in an existing id again
// produces a fresh timestamp as if the item were new.
type Item[T any] struct {
	ID        Key
	Data      T
	Timestamp time.Time
	Meta      map[string]any
}

// Entry is one element of a batch check-in.
type Entry[T any] struct {
	ID   Key
	Data T
	Meta map[string]any
}

// Patch is one element of a batch update.
type Patch[T any] struct {
	ID   Key
	Data T
}

// Order is a sort direction.
type Order string

const (
	OrderAsc  Order = "asc"
	OrderDesc Order = "desc"
)

// SortSpec describes a requested ordering for GetAll. By resolves
// against "id", "timestamp", the desk's SortKey extractor, item meta,
// and map-payload data keys, in that order. An empty By leaves items in
// insertion order.
type SortSpec struct {
	By    string
	Order Order
}

func (s SortSpec) normalized() SortSpec {
	if s.Order != OrderDesc {
		s.Order = OrderAsc
	}
	return s
}
