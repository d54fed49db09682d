package observe

import (
	"fmt"
	"sort"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

const DefaultRecentTTL = 5 * time.Minute
const DefaultRecentCleanupInterval = 10 * time.Minute

// RecentSink keeps a TTL-bounded trail of recent records for tooling to
// inspect after the fact. Old records age out; Snapshot returns what is
// left in emission order.
type RecentSink struct {
	mu    sync.Mutex
	seq   uint64
	cache *gocache.Cache
}

// NewRecentSink creates a sink whose records expire after ttl.
// Non-positive durations fall back to the defaults.
func NewRecentSink(ttl, cleanupInterval time.Duration) *RecentSink {
	if ttl <= 0 {
		ttl = DefaultRecentTTL
	}
	if cleanupInterval <= 0 {
		cleanupInterval = DefaultRecentCleanupInterval
	}
	return &RecentSink{cache: gocache.New(ttl, cleanupInterval)}
}

// Emit implements Sink.
func (s *RecentSink) Emit(record Record) {
	s.mu.Lock()
	s.seq++
	key := fmt.Sprintf("%020d", s.seq)
	s.mu.Unlock()

	s.cache.Set(key, record, gocache.DefaultExpiration)
}

// Snapshot returns the unexpired records in emission order.
func (s *RecentSink) Snapshot() []Record {
	items := s.cache.Items()

	keys := make([]string, 0, len(items))
	for key := range items {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	records := make([]Record, 0, len(keys))
	for _, key := range keys {
		if record, ok := items[key].Object.(Record); ok {
			records = append(records, record)
		}
	}
	return records
}

// Len returns the number of retained records. Expired records pending
// cleanup may briefly be counted.
func (s *RecentSink) Len() int {
	return s.cache.ItemCount()
}

// Reset discards all retained records.
func (s *RecentSink) Reset() {
	s.cache.Flush()
}
