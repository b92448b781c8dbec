// Package otlp reads OTLP ExportTraceServiceRequest records written one per
// line (NDJSON) and turns them into flat Span values.
//
// Both the protobuf-JSON (camelCase) and the snake_case spelling of every field
// are accepted, timestamps may be JSON strings or numbers, and malformed input
// is skipped rather than failing the whole read.
package otlp

import (
	"go.opentelemetry.io/collector/pdata/pcommon"
)

// Span is a single span as it appeared in the trace file. It is never
// modified once the parser has returned it.
type Span struct {
	TraceID      string
	SpanID       string
	ParentSpanID string
	Name         string
	// Kind is passed through untouched: a string stays a string, a number
	// keeps its decimal literal.
	Kind              string
	StartTimeUnixNano int64
	EndTimeUnixNano   int64
	Attributes        pcommon.Map
	Status            map[string]any
	Events            []any
	// ResourceAttributes is shared by every span of the same resource block.
	ResourceAttributes pcommon.Map
}

// Attr looks up a span attribute. It is safe on a Span built without
// attributes.
func (s Span) Attr(key string) (pcommon.Value, bool) {
	return Lookup(s.Attributes, key)
}

// ResourceAttr looks up a resource attribute.
func (s Span) ResourceAttr(key string) (pcommon.Value, bool) {
	return Lookup(s.ResourceAttributes, key)
}

// Lookup is pcommon.Map.Get that also accepts the zero Map.
func Lookup(m pcommon.Map, key string) (pcommon.Value, bool) {
	if m == (pcommon.Map{}) {
		return pcommon.Value{}, false
	}
	return m.Get(key)
}

// DurationNano is end minus start. It is negative for malformed spans.
func (s Span) DurationNano() int64 {
	return s.EndTimeUnixNano - s.StartTimeUnixNano
}
