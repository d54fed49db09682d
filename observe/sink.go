// Package observe defines the observability sink contract for desk
// runtimes: structured records describing lifecycle events, plugin hook
// executions, and provider outcomes. Sinks are advisory collaborators;
// nothing in a record ever feeds back into control flow.
package observe

import (
	"context"
	"log/slog"
	"time"
)

// Record types emitted by a desk.
const (
	TypeCheckIn         = "check-in"
	TypeCheckOut        = "check-out"
	TypeUpdate          = "update"
	TypeClear           = "clear"
	TypeCheckInBlocked  = "check-in-blocked"
	TypeUpdateBlocked   = "update-blocked"
	TypeCheckOutBlocked = "check-out-blocked"
	TypeHook            = "hook"
	TypePluginInstall   = "plugin-install"
	TypePluginDispose   = "plugin-dispose"
	TypeProviderError   = "provider-error"
	TypeStaleDrop       = "stale-drop"
)

// Record is one structured observability event.
// Optional fields are zero when not applicable to the record type.
type Record struct {
	Type         string    `json:"type"`
	Timestamp    time.Time `json:"timestamp"`
	DeskID       string    `json:"deskId"`
	DeskLabel    string    `json:"deskLabel,omitempty"`
	ChildID      string    `json:"childId,omitempty"`
	PluginName   string    `json:"pluginName,omitempty"`
	Hook         string    `json:"hook,omitempty"`
	DurationMS   float64   `json:"durationMs,omitempty"`
	Data         any       `json:"data,omitempty"`
	PreviousData any       `json:"previousData,omitempty"`
	RegistrySize int       `json:"registrySize,omitempty"`
	Error        string    `json:"error,omitempty"`
}

// Sink receives records. Implementations must not block for long and
// must tolerate concurrent Emit calls.
type Sink interface {
	Emit(record Record)
}

// NopSink discards everything.
type NopSink struct{}

// Emit implements Sink.
func (NopSink) Emit(Record) {}

// Fanout emits each record to every sink in order.
type Fanout []Sink

// Emit implements Sink.
func (f Fanout) Emit(record Record) {
	for _, sink := range f {
		sink.Emit(record)
	}
}

// LogSink writes records as structured slog lines.
type LogSink struct {
	logger *slog.Logger
}

// NewLogSink creates a sink logging through logger.
// A nil logger falls back to slog.Default.
func NewLogSink(logger *slog.Logger) *LogSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSink{logger: logger}
}

// Emit implements Sink. Lifecycle records log at info, everything else
// at debug.
func (s *LogSink) Emit(record Record) {
	level := slog.LevelDebug
	switch record.Type {
	case TypeCheckIn, TypeCheckOut, TypeUpdate, TypeClear:
		level = slog.LevelInfo
	}

	attrs := []slog.Attr{
		slog.String("deskId", record.DeskID),
		slog.Time("timestamp", record.Timestamp),
	}
	if record.DeskLabel != "" {
		attrs = append(attrs, slog.String("deskLabel", record.DeskLabel))
	}
	if record.ChildID != "" {
		attrs = append(attrs, slog.String("childId", record.ChildID))
	}
	if record.PluginName != "" {
		attrs = append(attrs, slog.String("pluginName", record.PluginName))
	}
	if record.Hook != "" {
		attrs = append(attrs, slog.String("hook", record.Hook))
	}
	if record.DurationMS > 0 {
		attrs = append(attrs, slog.Float64("durationMs", record.DurationMS))
	}
	if record.RegistrySize > 0 {
		attrs = append(attrs, slog.Int("registrySize", record.RegistrySize))
	}
	if record.Error != "" {
		attrs = append(attrs, slog.String("error", record.Error))
	}

	s.logger.LogAttrs(context.Background(), level, record.Type, attrs...)
}
