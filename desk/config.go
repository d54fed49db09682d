package desk

import (
	"log/slog"
	"time"

	"github.com/zjrosen/frontdesk/observe"
	"github.com/zjrosen/frontdesk/pubsub"
)

// Config configures a desk. The zero value is usable: ids come from
// uuid, timestamps from time.Now, updates use the default merge for T,
// batched delivery runs on pubsub.AsyncScheduler, and observability is
// disabled.
type Config[T any] struct {
	// Label is used only for trace and observability correlation.
	Label string

	// Debug enables verbose operation logging through Logger.
	Debug bool

	// Logger receives debug traces. Nil falls back to slog.Default.
	Logger *slog.Logger

	// Sink receives observability records. Nil disables emission.
	Sink observe.Sink

	// Plugins install in declaration order at construction; a failing
	// install aborts construction.
	Plugins []Plugin[T]

	// Owner-level lifecycle hooks. Each runs after all plugin hooks of
	// the same phase.
	BeforeCheckIn  func(id Key, data T) bool
	OnCheckIn      func(item Item[T])
	BeforeCheckOut func(id Key) bool
	OnCheckOut     func(item Item[T])

	// Merge combines an item's current data with an update patch. Nil
	// picks the default for T: shallow merging for map[string]any,
	// replacement otherwise.
	Merge MergeFunc[T]

	// SortKey resolves custom sort fields for GetAll.
	SortKey func(item Item[T], field string) (any, bool)

	// NewID generates desk and source ids. Nil uses uuid.NewString.
	NewID func() string

	// Now is the clock for timestamps and records. Nil uses time.Now.
	Now func() time.Time

	// Scheduler defers batched update flushes. Nil uses
	// pubsub.AsyncScheduler.
	Scheduler pubsub.Scheduler
}
