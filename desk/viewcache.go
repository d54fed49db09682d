package desk

import (
	"cmp"
	"sort"
	"strings"
	"time"
)

// viewCacheCapacity bounds how many distinct sort specs are memoized.
const viewCacheCapacity = 10

type viewKey struct {
	by    string
	order Order
}

type viewEntry[T any] struct {
	version uint64
	items   []Item[T]
}

// viewCache memoizes sorted projections per sort spec. An entry is
// served only while its version matches the store's; stale entries are
// overwritten in place. At capacity the oldest-inserted spec is evicted
// (FIFO by insertion, deliberately not LRU). Callers hold the desk
// mutex.
type viewCache[T any] struct {
	capacity int
	entries  map[viewKey]*viewEntry[T]
	fifo     []viewKey
}

func newViewCache[T any](capacity int) *viewCache[T] {
	return &viewCache[T]{
		capacity: capacity,
		entries:  make(map[viewKey]*viewEntry[T]),
	}
}

func (c *viewCache[T]) get(key viewKey, version uint64) ([]Item[T], bool) {
	entry, ok := c.entries[key]
	if !ok || entry.version != version {
		return nil, false
	}
	return entry.items, true
}

func (c *viewCache[T]) put(key viewKey, version uint64, items []Item[T]) {
	if entry, ok := c.entries[key]; ok {
		// Refresh keeps the key's original insertion position
		entry.version = version
		entry.items = items
		return
	}
	if len(c.fifo) >= c.capacity {
		oldest := c.fifo[0]
		c.fifo = c.fifo[1:]
		delete(c.entries, oldest)
	}
	c.entries[key] = &viewEntry[T]{version: version, items: items}
	c.fifo = append(c.fifo, key)
}

func (c *viewCache[T]) len() int {
	return len(c.entries)
}

// sortItems orders items by the spec, in place. Items whose sort value
// is missing or of a mismatched type compare equal, so the stable sort
// keeps their insertion order.
func (d *Desk[T]) sortItems(items []Item[T], spec SortSpec) {
	desc := spec.Order == OrderDesc
	sort.SliceStable(items, func(i, j int) bool {
		c := d.compareItems(items[i], items[j], spec.By)
		if desc {
			return c > 0
		}
		return c < 0
	})
}

func (d *Desk[T]) compareItems(a, b Item[T], field string) int {
	av, aok := d.sortValue(a, field)
	bv, bok := d.sortValue(b, field)
	if !aok || !bok {
		return 0
	}
	return compareValues(av, bv)
}

// sortValue resolves the sort field for one item: intrinsic fields
// first, then the configured extractor, then meta, then map-payload
// data keys.
func (d *Desk[T]) sortValue(item Item[T], field string) (any, bool) {
	switch field {
	case "id":
		return string(item.ID), true
	case "timestamp":
		return item.Timestamp, true
	}
	if d.sortKey != nil {
		if v, ok := d.sortKey(item, field); ok {
			return v, true
		}
	}
	if v, ok := item.Meta[field]; ok {
		return v, true
	}
	if m, ok := any(item.Data).(map[string]any); ok {
		if v, ok := m[field]; ok {
			return v, true
		}
	}
	return nil, false
}

func compareValues(a, b any) int {
	switch av := a.(type) {
	case time.Time:
		if bv, ok := b.(time.Time); ok {
			return av.Compare(bv)
		}
		return 0
	case string:
		if bv, ok := b.(string); ok {
			return strings.Compare(av, bv)
		}
		return 0
	case bool:
		if bv, ok := b.(bool); ok {
			if av == bv {
				return 0
			}
			if bv {
				return -1
			}
			return 1
		}
		return 0
	}
	af, aok := toFloat(a)
	bf, bok := toFloat(b)
	if aok && bok {
		return cmp.Compare(af, bf)
	}
	return 0
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}
