// Package diag carries the recoverable problems found while turning a trace
// file into a run model. Every stage returns its warnings next to its result
// instead of reporting them through global state.
package diag

import (
	"fmt"
	"log/slog"
)

type Kind string

const (
	MalformedLine Kind = "malformed-line"
	DuplicateSpan Kind = "duplicate-span"
	UnknownStatus Kind = "unknown-status"
	ParentCycle   Kind = "parent-cycle"
)

type Warning struct {
	Kind    Kind
	Message string
	// Line is 1-based and relative to the start of the parse call, 0 if unknown.
	Line int
	// Offset is the absolute byte offset of the line start, -1 if unknown.
	Offset  int64
	TraceID string
	SpanID  string
}

func (w Warning) String() string {
	switch {
	case w.Line > 0:
		return fmt.Sprintf("%s: line %d: %s", w.Kind, w.Line, w.Message)
	case w.SpanID != "":
		return fmt.Sprintf("%s: span %q: %s", w.Kind, w.SpanID, w.Message)
	default:
		return fmt.Sprintf("%s: %s", w.Kind, w.Message)
	}
}

type Warnings []Warning

func (ws *Warnings) Add(w Warning) {
	*ws = append(*ws, w)
}

func (ws *Warnings) Append(other Warnings) {
	*ws = append(*ws, other...)
}

// OfKind returns the warnings of kind k in their original order.
func (ws Warnings) OfKind(k Kind) Warnings {
	var out Warnings
	for _, w := range ws {
		if w.Kind == k {
			out = append(out, w)
		}
	}
	return out
}

func (ws Warnings) Log(logger *slog.Logger) {
	for _, w := range ws {
		attrs := []any{"kind", string(w.Kind)}
		if w.Line > 0 {
			attrs = append(attrs, "line", w.Line)
		}
		if w.Offset >= 0 && w.Line > 0 {
			attrs = append(attrs, "offset", w.Offset)
		}
		if w.TraceID != "" {
			attrs = append(attrs, "trace_id", w.TraceID)
		}
		if w.SpanID != "" {
			attrs = append(attrs, "span_id", w.SpanID)
		}
		logger.Warn(w.Message, attrs...)
	}
}
