package observe

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Span attribute keys for desk tracing.
const (
	AttrDeskID       = "desk.id"
	AttrDeskLabel    = "desk.label"
	AttrChildID      = "desk.child.id"
	AttrPluginName   = "desk.plugin.name"
	AttrPluginHook   = "desk.plugin.hook"
	AttrRegistrySize = "desk.registry.size"
	AttrError        = "error.message"
)

// Span name prefix for all desk records.
const SpanPrefix = "desk."

// SpanSink turns each record into one OpenTelemetry span. Hook records
// carry their measured duration as the span interval; instantaneous
// records produce zero-length spans at the record timestamp.
type SpanSink struct {
	tracer trace.Tracer
}

// NewSpanSink creates a sink emitting spans through tracer.
func NewSpanSink(tracer trace.Tracer) *SpanSink {
	return &SpanSink{tracer: tracer}
}

// Emit implements Sink.
func (s *SpanSink) Emit(record Record) {
	end := record.Timestamp
	if end.IsZero() {
		end = time.Now()
	}
	start := end
	if record.DurationMS > 0 {
		start = end.Add(-time.Duration(record.DurationMS * float64(time.Millisecond)))
	}

	attrs := []attribute.KeyValue{
		attribute.String(AttrDeskID, record.DeskID),
	}
	if record.DeskLabel != "" {
		attrs = append(attrs, attribute.String(AttrDeskLabel, record.DeskLabel))
	}
	if record.ChildID != "" {
		attrs = append(attrs, attribute.String(AttrChildID, record.ChildID))
	}
	if record.PluginName != "" {
		attrs = append(attrs, attribute.String(AttrPluginName, record.PluginName))
	}
	if record.Hook != "" {
		attrs = append(attrs, attribute.String(AttrPluginHook, record.Hook))
	}
	if record.RegistrySize > 0 {
		attrs = append(attrs, attribute.Int(AttrRegistrySize, record.RegistrySize))
	}
	if record.Error != "" {
		attrs = append(attrs, attribute.String(AttrError, record.Error))
	}

	_, span := s.tracer.Start(context.Background(), SpanPrefix+record.Type,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithTimestamp(start),
		trace.WithAttributes(attrs...),
	)
	span.End(trace.WithTimestamp(end))
}
