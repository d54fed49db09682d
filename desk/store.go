package desk

// store is the canonical id→item map plus its insertion-order list
// projection. Every mutation bumps version; the projection and the
// desk's sorted views gate on it. Callers hold the desk mutex; the
// store itself does no locking.
type store[T any] struct {
	items   map[Key]Item[T]
	order   []Key
	version uint64

	// memoized projection, rebuilt only when version moves
	proj        []Item[T]
	projVersion uint64
}

func newStore[T any]() *store[T] {
	return &store[T]{items: make(map[Key]Item[T])}
}

func (s *store[T]) len() int {
	return len(s.items)
}

func (s *store[T]) currentVersion() uint64 {
	return s.version
}

func (s *store[T]) get(id Key) (Item[T], bool) {
	item, ok := s.items[id]
	return item, ok
}

func (s *store[T]) has(id Key) bool {
	_, ok := s.items[id]
	return ok
}

// put inserts or re-registers an item. Re-registering keeps the id's
// original projection position.
func (s *store[T]) put(item Item[T]) {
	if _, exists := s.items[item.ID]; !exists {
		s.order = append(s.order, item.ID)
	}
	s.items[item.ID] = item
	s.version++
}

// replace stores updated content for an existing id. No-op when the id
// is absent.
func (s *store[T]) replace(item Item[T]) {
	if _, exists := s.items[item.ID]; !exists {
		return
	}
	s.items[item.ID] = item
	s.version++
}

func (s *store[T]) remove(id Key) (Item[T], bool) {
	item, exists := s.items[id]
	if !exists {
		return item, false
	}
	delete(s.items, id)
	for i, key := range s.order {
		if key == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	s.version++
	return item, true
}

// clear empties the store and returns how many items were removed.
func (s *store[T]) clear() int {
	n := len(s.items)
	s.items = make(map[Key]Item[T])
	s.order = nil
	s.version++
	return n
}

// snapshot returns the insertion-order projection. The returned slice
// is shared between calls at the same version; callers copy before
// handing it out or mutating it.
func (s *store[T]) snapshot() []Item[T] {
	if s.projVersion == s.version && s.proj != nil {
		return s.proj
	}
	proj := make([]Item[T], 0, len(s.order))
	for _, id := range s.order {
		proj = append(proj, s.items[id])
	}
	s.proj = proj
	s.projVersion = s.version
	return proj
}
