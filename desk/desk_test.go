package desk

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/zjrosen/frontdesk/observe"
	"github.com/zjrosen/frontdesk/pubsub"
)

// === Helper Functions ===

// captureSink collects every observability record for assertions.
type captureSink struct {
	mu      sync.Mutex
	records []observe.Record
}

func (s *captureSink) Emit(record observe.Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, record)
}

func (s *captureSink) byType(recordType string) []observe.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	var matched []observe.Record
	for _, r := range s.records {
		if r.Type == recordType {
			matched = append(matched, r)
		}
	}
	return matched
}

// testClock returns a deterministic clock that advances one second per
// reading.
func testClock() func() time.Time {
	var mu sync.Mutex
	current := time.Unix(1700000000, 0)
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		current = current.Add(time.Second)
		return current
	}
}

// newTestDesk builds a map-payload desk on a manual scheduler so tests
// drive batched delivery explicitly.
func newTestDesk(t *testing.T, cfg Config[map[string]any]) (*Desk[map[string]any], *pubsub.ManualScheduler) {
	t.Helper()
	sched := &pubsub.ManualScheduler{}
	cfg.Scheduler = sched
	if cfg.Now == nil {
		cfg.Now = testClock()
	}
	d, err := New(cfg)
	require.NoError(t, err)
	return d, sched
}

func deskIDs(items []Item[map[string]any]) []string {
	return storeIDs(items)
}

// === Unit Tests: New ===

func TestDesk_New_ZeroConfigIsUsable(t *testing.T) {
	d, err := New(Config[map[string]any]{})
	require.NoError(t, err)
	require.NotEmpty(t, d.ID())
	require.Empty(t, d.Label())
	require.Equal(t, 0, d.Size())
}

func TestDesk_New_UsesInjectedIDGenerator(t *testing.T) {
	seq := 0
	d, err := New(Config[map[string]any]{
		Label: "service-directory",
		NewID: func() string {
			seq++
			return fmt.Sprintf("id-%d", seq)
		},
	})
	require.NoError(t, err)
	require.Equal(t, "id-1", d.ID())
	require.Equal(t, "service-directory", d.Label())
}

// === Unit Tests: CheckIn ===

func TestDesk_CheckIn_RegistersItem(t *testing.T) {
	d, _ := newTestDesk(t, Config[map[string]any]{})

	ok := d.CheckIn("svc", map[string]any{"port": 8080})
	require.True(t, ok)

	require.True(t, d.Has("svc"))
	require.Equal(t, 1, d.Size())

	item, found := d.Get("svc")
	require.True(t, found)
	require.Equal(t, Key("svc"), item.ID)
	require.Equal(t, 8080, item.Data["port"])
	require.False(t, item.Timestamp.IsZero())
}

func TestDesk_CheckInEntry_CarriesMeta(t *testing.T) {
	d, _ := newTestDesk(t, Config[map[string]any]{})

	d.CheckInEntry(Entry[map[string]any]{
		ID:   "svc",
		Data: map[string]any{"port": 8080},
		Meta: map[string]any{"region": "eu-west"},
	})

	item, _ := d.Get("svc")
	require.Equal(t, "eu-west", item.Meta["region"])
}

func TestDesk_CheckIn_DeliversEventSynchronously(t *testing.T) {
	d, _ := newTestDesk(t, Config[map[string]any]{})

	var events []Event[map[string]any]
	d.On(EventCheckIn, func(e Event[map[string]any]) { events = append(events, e) })

	d.CheckIn("svc", map[string]any{"port": 8080})

	// Delivered before CheckIn returned
	require.Len(t, events, 1)
	e := events[0]
	require.Equal(t, EventCheckIn, e.Type)
	require.Equal(t, Key("svc"), e.ID)
	require.Equal(t, 8080, e.Item.Data["port"])
	require.Equal(t, 1, e.RegistrySize)

	item, _ := d.Get("svc")
	require.Equal(t, item.Timestamp, e.Timestamp)
}

func TestDesk_CheckIn_ReregisterRefreshesTimestampKeepsPosition(t *testing.T) {
	d, _ := newTestDesk(t, Config[map[string]any]{})

	d.CheckIn("a", map[string]any{"v": 1})
	d.CheckIn("b", map[string]any{"v": 2})
	first, _ := d.Get("a")

	d.CheckIn("a", map[string]any{"v": 3})
	second, _ := d.Get("a")

	require.True(t, second.Timestamp.After(first.Timestamp))
	require.Equal(t, 3, second.Data["v"])
	require.Equal(t, 2, d.Size())
	require.Equal(t, []string{"a", "b"}, deskIDs(d.GetAll()))
}

func TestDesk_CheckIn_EmitsRecord(t *testing.T) {
	sink := &captureSink{}
	d, _ := newTestDesk(t, Config[map[string]any]{Label: "sessions", Sink: sink})

	d.CheckIn("svc", map[string]any{"port": 8080})

	records := sink.byType(observe.TypeCheckIn)
	require.Len(t, records, 1)
	require.Equal(t, "svc", records[0].ChildID)
	require.Equal(t, 1, records[0].RegistrySize)
	require.Equal(t, d.ID(), records[0].DeskID)
	require.Equal(t, "sessions", records[0].DeskLabel)
	require.False(t, records[0].Timestamp.IsZero())
}

func TestDesk_CheckIn_OwnerVetoBlocksMutation(t *testing.T) {
	sink := &captureSink{}
	var events []Event[map[string]any]
	d, _ := newTestDesk(t, Config[map[string]any]{
		Sink: sink,
		BeforeCheckIn: func(id Key, data map[string]any) bool {
			return data["port"] != nil
		},
	})
	d.On(EventCheckIn, func(e Event[map[string]any]) { events = append(events, e) })

	ok := d.CheckIn("svc", map[string]any{"name": "portless"})

	require.False(t, ok)
	require.False(t, d.Has("svc"))
	require.Empty(t, events)
	require.Len(t, sink.byType(observe.TypeCheckInBlocked), 1)
	require.Empty(t, sink.byType(observe.TypeCheckIn))
}

func TestDesk_CheckIn_OwnerAfterHookObserves(t *testing.T) {
	var seen []Key
	d, _ := newTestDesk(t, Config[map[string]any]{
		OnCheckIn: func(item Item[map[string]any]) { seen = append(seen, item.ID) },
	})

	d.CheckIn("a", map[string]any{})
	d.CheckIn("b", map[string]any{})

	require.Equal(t, []Key{"a", "b"}, seen)
}

// === Unit Tests: Update ===

func TestDesk_Update_MergesMapPayloadShallowly(t *testing.T) {
	d, _ := newTestDesk(t, Config[map[string]any]{})
	d.CheckIn("cfg", map[string]any{"mode": "dev", "replicas": 1})

	ok := d.Update("cfg", map[string]any{"replicas": 3})
	require.True(t, ok)

	item, _ := d.Get("cfg")
	require.Equal(t, "dev", item.Data["mode"])
	require.Equal(t, 3, item.Data["replicas"])
}

func TestDesk_Update_KeepsOriginalTimestamp(t *testing.T) {
	d, _ := newTestDesk(t, Config[map[string]any]{})
	d.CheckIn("cfg", map[string]any{"v": 1})
	before, _ := d.Get("cfg")

	d.Update("cfg", map[string]any{"v": 2})

	after, _ := d.Get("cfg")
	require.Equal(t, before.Timestamp, after.Timestamp)
	require.Equal(t, 2, after.Data["v"])
}

func TestDesk_Update_AbsentReturnsFalse(t *testing.T) {
	d, _ := newTestDesk(t, Config[map[string]any]{})

	require.False(t, d.Update("ghost", map[string]any{"v": 1}))
}

func TestDesk_Update_EventsBatchUntilFlush(t *testing.T) {
	d, sched := newTestDesk(t, Config[map[string]any]{})
	d.CheckIn("cfg", map[string]any{"mode": "dev", "replicas": 1})

	var events []Event[map[string]any]
	d.On(EventUpdate, func(e Event[map[string]any]) { events = append(events, e) })

	d.Update("cfg", map[string]any{"mode": "prod"})
	d.Update("cfg", map[string]any{"replicas": 3})

	require.Empty(t, events)
	require.Equal(t, 1, sched.Pending())

	sched.Flush()

	require.Len(t, events, 2)
	require.Equal(t, map[string]any{"mode": "dev", "replicas": 1}, events[0].Previous)
	require.Equal(t, map[string]any{"mode": "prod", "replicas": 1}, events[0].Item.Data)
	require.Equal(t, map[string]any{"mode": "prod", "replicas": 3}, events[1].Item.Data)
}

func TestDesk_Update_EveryListenerSeesEveryPayload(t *testing.T) {
	d, sched := newTestDesk(t, Config[map[string]any]{})
	d.CheckIn("doc", map[string]any{"seq": 0})

	var calls []string
	for i := 1; i <= 3; i++ {
		n := i
		d.On(EventUpdate, func(e Event[map[string]any]) {
			calls = append(calls, fmt.Sprintf("l%d:%v", n, e.Item.Data["seq"]))
		})
	}

	d.Update("doc", map[string]any{"seq": 1})
	d.Update("doc", map[string]any{"seq": 2})
	sched.Flush()

	require.Equal(t, []string{"l1:1", "l2:1", "l3:1", "l1:2", "l2:2", "l3:2"}, calls)
}

func TestDesk_Update_CustomMergeStrategy(t *testing.T) {
	sched := &pubsub.ManualScheduler{}
	d, err := New(Config[int]{
		Scheduler: sched,
		Merge:     func(current, patch int) int { return current + patch },
	})
	require.NoError(t, err)

	d.CheckIn("acc", 1)
	d.Update("acc", 5)

	item, _ := d.Get("acc")
	require.Equal(t, 6, item.Data)
}

func TestDesk_Update_NonMapPayloadReplacesByDefault(t *testing.T) {
	type endpoint struct {
		Host string
		Port int
	}
	d, err := New(Config[endpoint]{Scheduler: &pubsub.ManualScheduler{}})
	require.NoError(t, err)

	d.CheckIn("api", endpoint{Host: "localhost", Port: 8080})
	d.Update("api", endpoint{Host: "localhost", Port: 9090})

	item, _ := d.Get("api")
	require.Equal(t, endpoint{Host: "localhost", Port: 9090}, item.Data)
}

// === Unit Tests: CheckOut ===

func TestDesk_CheckOut_RemovesItem(t *testing.T) {
	d, _ := newTestDesk(t, Config[map[string]any]{})
	d.CheckIn("svc", map[string]any{"port": 8080})

	var events []Event[map[string]any]
	d.On(EventCheckOut, func(e Event[map[string]any]) { events = append(events, e) })

	ok := d.CheckOut("svc")
	require.True(t, ok)
	require.False(t, d.Has("svc"))
	require.Equal(t, 0, d.Size())

	require.Len(t, events, 1)
	require.Equal(t, Key("svc"), events[0].ID)
	require.Equal(t, 8080, events[0].Item.Data["port"])
	require.Equal(t, 0, events[0].RegistrySize)
}

func TestDesk_CheckOut_AbsentReturnsFalse(t *testing.T) {
	d, _ := newTestDesk(t, Config[map[string]any]{})

	var events []Event[map[string]any]
	d.On(EventCheckOut, func(e Event[map[string]any]) { events = append(events, e) })

	require.False(t, d.CheckOut("ghost"))
	require.Empty(t, events)
}

func TestDesk_CheckOut_OwnerVetoKeepsItem(t *testing.T) {
	sink := &captureSink{}
	d, _ := newTestDesk(t, Config[map[string]any]{
		Sink:           sink,
		BeforeCheckOut: func(id Key) bool { return id != "pinned" },
	})
	d.CheckIn("pinned", map[string]any{})

	require.False(t, d.CheckOut("pinned"))
	require.True(t, d.Has("pinned"))
	require.Len(t, sink.byType(observe.TypeCheckOutBlocked), 1)
}

// === Unit Tests: Clear ===

func TestDesk_Clear_RemovesEverythingAtOnce(t *testing.T) {
	d, _ := newTestDesk(t, Config[map[string]any]{})
	for i := 0; i < 5; i++ {
		d.CheckIn(Key(fmt.Sprintf("item-%d", i)), map[string]any{"i": i})
	}

	var clearEvents []Event[map[string]any]
	var checkOutEvents []Event[map[string]any]
	d.On(EventClear, func(e Event[map[string]any]) { clearEvents = append(clearEvents, e) })
	d.On(EventCheckOut, func(e Event[map[string]any]) { checkOutEvents = append(checkOutEvents, e) })

	d.Clear()

	require.Equal(t, 0, d.Size())
	require.Len(t, clearEvents, 1)
	require.Equal(t, 5, clearEvents[0].RegistrySize)
	// No per-item check-out events
	require.Empty(t, checkOutEvents)
}

func TestDesk_Clear_SkipsPerItemHooks(t *testing.T) {
	vetoed := false
	d, _ := newTestDesk(t, Config[map[string]any]{
		BeforeCheckOut: func(Key) bool {
			vetoed = true
			return false
		},
	})
	d.CheckIn("a", map[string]any{})

	d.Clear()

	require.False(t, vetoed)
	require.Equal(t, 0, d.Size())
}

func TestDesk_Clear_DeskRemainsUsable(t *testing.T) {
	d, _ := newTestDesk(t, Config[map[string]any]{})
	d.CheckIn("a", map[string]any{})
	d.Clear()

	require.True(t, d.CheckIn("b", map[string]any{}))
	require.Equal(t, 1, d.Size())
}

// === Unit Tests: GetAll ===

func TestDesk_GetAll_InsertionOrderByDefault(t *testing.T) {
	d, _ := newTestDesk(t, Config[map[string]any]{})
	d.CheckIn("c", map[string]any{})
	d.CheckIn("a", map[string]any{})
	d.CheckIn("b", map[string]any{})

	require.Equal(t, []string{"c", "a", "b"}, deskIDs(d.GetAll()))
}

func TestDesk_GetAll_ReturnsFreshCopyWithoutSpec(t *testing.T) {
	d, _ := newTestDesk(t, Config[map[string]any]{})
	d.CheckIn("a", map[string]any{})
	d.CheckIn("b", map[string]any{})

	first := d.GetAll()
	first[0].ID = "hacked"

	second := d.GetAll()
	require.Equal(t, []string{"a", "b"}, deskIDs(second))
	require.NotSame(t, &first[0], &second[0])
}

func TestDesk_GetAll_SortsByTimestampAscending(t *testing.T) {
	d, _ := newTestDesk(t, Config[map[string]any]{})
	d.CheckIn("a", map[string]any{})
	d.CheckIn("b", map[string]any{})
	d.CheckIn("c", map[string]any{})
	// Re-register a: fresh timestamp, now the newest
	d.CheckIn("a", map[string]any{})

	sorted := d.GetAll(SortSpec{By: "timestamp", Order: OrderAsc})
	require.Equal(t, []string{"b", "c", "a"}, deskIDs(sorted))

	// Insertion order is untouched
	require.Equal(t, []string{"a", "b", "c"}, deskIDs(d.GetAll()))
}

func TestDesk_GetAll_SortsByDataKeyDescending(t *testing.T) {
	d, _ := newTestDesk(t, Config[map[string]any]{})
	d.CheckIn("a", map[string]any{"rank": 2})
	d.CheckIn("b", map[string]any{"rank": 7})
	d.CheckIn("c", map[string]any{"rank": 5})

	sorted := d.GetAll(SortSpec{By: "rank", Order: OrderDesc})
	require.Equal(t, []string{"b", "c", "a"}, deskIDs(sorted))
}

func TestDesk_GetAll_SortsByMetaField(t *testing.T) {
	d, _ := newTestDesk(t, Config[map[string]any]{})
	d.CheckInEntry(Entry[map[string]any]{ID: "a", Data: map[string]any{}, Meta: map[string]any{"weight": 30}})
	d.CheckInEntry(Entry[map[string]any]{ID: "b", Data: map[string]any{}, Meta: map[string]any{"weight": 10}})
	d.CheckInEntry(Entry[map[string]any]{ID: "c", Data: map[string]any{}, Meta: map[string]any{"weight": 20}})

	sorted := d.GetAll(SortSpec{By: "weight", Order: OrderAsc})
	require.Equal(t, []string{"b", "c", "a"}, deskIDs(sorted))
}

func TestDesk_GetAll_SortsByCustomExtractor(t *testing.T) {
	type endpoint struct {
		Host string
		Port int
	}
	d, err := New(Config[endpoint]{
		Scheduler: &pubsub.ManualScheduler{},
		SortKey: func(item Item[endpoint], field string) (any, bool) {
			if field == "port" {
				return item.Data.Port, true
			}
			return nil, false
		},
	})
	require.NoError(t, err)

	d.CheckIn("a", endpoint{Port: 9090})
	d.CheckIn("b", endpoint{Port: 8080})

	sorted := d.GetAll(SortSpec{By: "port", Order: OrderAsc})
	require.Equal(t, Key("b"), sorted[0].ID)
	require.Equal(t, Key("a"), sorted[1].ID)
}

func TestDesk_GetAll_RepeatCallReturnsIdenticalSlice(t *testing.T) {
	d, _ := newTestDesk(t, Config[map[string]any]{})
	d.CheckIn("a", map[string]any{})
	d.CheckIn("b", map[string]any{})

	first := d.GetAll(SortSpec{By: "timestamp"})
	second := d.GetAll(SortSpec{By: "timestamp"})
	require.Same(t, &first[0], &second[0])
}

func TestDesk_GetAll_NormalizesOrderForCaching(t *testing.T) {
	d, _ := newTestDesk(t, Config[map[string]any]{})
	d.CheckIn("a", map[string]any{})

	first := d.GetAll(SortSpec{By: "timestamp"})
	second := d.GetAll(SortSpec{By: "timestamp", Order: OrderAsc})
	require.Same(t, &first[0], &second[0])
}

func TestDesk_GetAll_MutationInvalidatesCachedView(t *testing.T) {
	d, _ := newTestDesk(t, Config[map[string]any]{})
	d.CheckIn("a", map[string]any{"v": 1})
	d.CheckIn("b", map[string]any{"v": 2})

	first := d.GetAll(SortSpec{By: "timestamp"})
	d.Update("a", map[string]any{"v": 9})

	second := d.GetAll(SortSpec{By: "timestamp"})
	require.NotSame(t, &first[0], &second[0])

	byID := map[Key]Item[map[string]any]{}
	for _, item := range second {
		byID[item.ID] = item
	}
	require.Equal(t, 9, byID["a"].Data["v"])
}

func TestDesk_GetAll_EvictsOldestSpecAtCapacity(t *testing.T) {
	d, _ := newTestDesk(t, Config[map[string]any]{})
	d.CheckIn("a", map[string]any{})

	first := d.GetAll(SortSpec{By: "field-0"})
	for i := 1; i <= viewCacheCapacity; i++ {
		d.GetAll(SortSpec{By: fmt.Sprintf("field-%d", i)})
	}

	require.Equal(t, viewCacheCapacity, d.views.len())

	// The oldest spec was evicted, so this recomputes
	again := d.GetAll(SortSpec{By: "field-0"})
	require.NotSame(t, &first[0], &again[0])
}

func TestDesk_GetAll_IgnoresExtraSpecs(t *testing.T) {
	d, _ := newTestDesk(t, Config[map[string]any]{})
	d.CheckIn("a", map[string]any{"rank": 2})
	d.CheckIn("b", map[string]any{"rank": 1})

	sorted := d.GetAll(SortSpec{By: "rank"}, SortSpec{By: "timestamp", Order: OrderDesc})
	require.Equal(t, []string{"b", "a"}, deskIDs(sorted))
}

// === Unit Tests: Batch Operations ===

func TestDesk_CheckInMany_ReportsPerEntryOutcome(t *testing.T) {
	d, _ := newTestDesk(t, Config[map[string]any]{
		BeforeCheckIn: func(id Key, _ map[string]any) bool { return id != "blocked" },
	})

	results := d.CheckInMany([]Entry[map[string]any]{
		{ID: "a", Data: map[string]any{}},
		{ID: "blocked", Data: map[string]any{}},
		{ID: "b", Data: map[string]any{}},
	})

	require.Equal(t, []bool{true, false, true}, results)
	require.Equal(t, 2, d.Size())
	require.Equal(t, []string{"a", "b"}, deskIDs(d.GetAll()))
}

func TestDesk_UpdateMany_SkipsAbsentIDs(t *testing.T) {
	d, _ := newTestDesk(t, Config[map[string]any]{})
	d.CheckIn("a", map[string]any{"v": 1})
	d.CheckIn("b", map[string]any{"v": 1})

	results := d.UpdateMany([]Patch[map[string]any]{
		{ID: "a", Data: map[string]any{"v": 2}},
		{ID: "ghost", Data: map[string]any{"v": 2}},
		{ID: "b", Data: map[string]any{"v": 3}},
	})

	require.Equal(t, []bool{true, false, true}, results)
	a, _ := d.Get("a")
	require.Equal(t, 2, a.Data["v"])
}

func TestDesk_CheckOutMany_ReportsPerIDOutcome(t *testing.T) {
	d, _ := newTestDesk(t, Config[map[string]any]{})
	d.CheckIn("a", map[string]any{})
	d.CheckIn("b", map[string]any{})

	results := d.CheckOutMany([]Key{"a", "ghost", "b"})

	require.Equal(t, []bool{true, false, true}, results)
	require.Equal(t, 0, d.Size())
}

// === Unit Tests: Events ===

func TestDesk_Off_StopsDelivery(t *testing.T) {
	d, _ := newTestDesk(t, Config[map[string]any]{})

	count := 0
	sub := d.On(EventCheckIn, func(Event[map[string]any]) { count++ })

	d.CheckIn("a", map[string]any{})
	d.Off(sub)
	d.CheckIn("b", map[string]any{})

	require.Equal(t, 1, count)
}

func TestDesk_Off_NilAndRepeatedAreSafe(t *testing.T) {
	d, _ := newTestDesk(t, Config[map[string]any]{})

	sub := d.On(EventCheckIn, func(Event[map[string]any]) {})
	d.Off(sub)
	d.Off(sub)
	d.Off(nil)

	require.True(t, d.CheckIn("a", map[string]any{}))
}

func TestDesk_Emit_CustomTopic(t *testing.T) {
	d, _ := newTestDesk(t, Config[map[string]any]{})

	var events []Event[map[string]any]
	d.On("health-check", func(e Event[map[string]any]) { events = append(events, e) })

	d.Emit("health-check", Event[map[string]any]{ID: "svc"})

	require.Len(t, events, 1)
	require.Equal(t, EventType("health-check"), events[0].Type)
	require.Equal(t, Key("svc"), events[0].ID)
	require.False(t, events[0].Timestamp.IsZero())
}

func TestDesk_Emit_PreservesExplicitFields(t *testing.T) {
	d, _ := newTestDesk(t, Config[map[string]any]{})

	var events []Event[map[string]any]
	d.On("health-check", func(e Event[map[string]any]) { events = append(events, e) })

	at := time.Unix(42, 0)
	d.Emit("health-check", Event[map[string]any]{Type: "degraded", Timestamp: at})

	require.Len(t, events, 1)
	require.Equal(t, EventType("degraded"), events[0].Type)
	require.Equal(t, at, events[0].Timestamp)
}

// === Concurrency Tests ===

func TestDesk_Concurrency_MixedOperations(t *testing.T) {
	d, _ := newTestDesk(t, Config[map[string]any]{})

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				id := Key(fmt.Sprintf("worker-%d-item-%d", worker, j))
				d.CheckIn(id, map[string]any{"worker": worker})
				d.Get(id)
				d.Update(id, map[string]any{"step": j})
				d.GetAll(SortSpec{By: "timestamp"})
				d.CheckOut(id)
			}
		}(i)
	}
	wg.Wait()

	require.Equal(t, 0, d.Size())
	require.Empty(t, d.GetAll())
}

func TestDesk_Concurrency_CheckInsAllLand(t *testing.T) {
	d, _ := newTestDesk(t, Config[map[string]any]{})

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 25; j++ {
				d.CheckIn(Key(fmt.Sprintf("item-%d-%d", n, j)), map[string]any{})
			}
		}(i)
	}
	wg.Wait()

	require.Equal(t, 500, d.Size())
	require.Len(t, d.GetAll(), 500)
}

// === Property-Based Tests ===

func TestDesk_PropertyBased_SizeTracksOperations(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		d, err := New(Config[map[string]any]{Scheduler: &pubsub.ManualScheduler{}})
		if err != nil {
			t.Fatal(err)
		}
		model := make(map[Key]bool)

		numOps := rapid.IntRange(10, 200).Draw(t, "numOps")
		for i := 0; i < numOps; i++ {
			id := Key(fmt.Sprintf("item-%d", rapid.IntRange(0, 15).Draw(t, "id")))
			switch rapid.IntRange(0, 2).Draw(t, "op") {
			case 0:
				if !d.CheckIn(id, map[string]any{"i": i}) {
					t.Fatalf("check-in of %s failed", id)
				}
				model[id] = true
			case 1:
				ok := d.CheckOut(id)
				if ok != model[id] {
					t.Fatalf("check-out of %s returned %v, model says %v", id, ok, model[id])
				}
				delete(model, id)
			case 2:
				if d.Has(id) != model[id] {
					t.Fatalf("has(%s) disagrees with model", id)
				}
			}
		}

		if d.Size() != len(model) {
			t.Fatalf("size %d, model has %d", d.Size(), len(model))
		}
		for id := range model {
			if !d.Has(id) {
				t.Fatalf("item %s missing", id)
			}
		}
	})
}

func TestDesk_PropertyBased_SortedViewIsOrderedPermutation(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		d, err := New(Config[map[string]any]{Scheduler: &pubsub.ManualScheduler{}})
		if err != nil {
			t.Fatal(err)
		}

		n := rapid.IntRange(1, 30).Draw(t, "n")
		for i := 0; i < n; i++ {
			rank := rapid.IntRange(-100, 100).Draw(t, "rank")
			d.CheckIn(Key(fmt.Sprintf("item-%d", i)), map[string]any{"rank": rank})
		}

		sorted := d.GetAll(SortSpec{By: "rank", Order: OrderAsc})
		if len(sorted) != n {
			t.Fatalf("expected %d items, got %d", n, len(sorted))
		}

		seen := make(map[Key]bool)
		for i, item := range sorted {
			seen[item.ID] = true
			if i > 0 {
				prev := sorted[i-1].Data["rank"].(int)
				cur := item.Data["rank"].(int)
				if prev > cur {
					t.Fatalf("rank out of order at %d: %d > %d", i, prev, cur)
				}
			}
		}
		if len(seen) != n {
			t.Fatalf("sorted view dropped or duplicated ids")
		}
	})
}
