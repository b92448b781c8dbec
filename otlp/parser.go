package otlp

import (
	"errors"
	"fmt"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"go.opentelemetry.io/collector/pdata/pcommon"
)

// ErrMalformedLine is returned by ParseLine when the line is not an
// ExportTraceServiceRequest.
var ErrMalformedLine = errors.New("malformed line")

// ParseLine parses one NDJSON record. A span that cannot be decoded is skipped
// and the other spans of the line are still returned.
func ParseLine(line []byte) ([]Span, error) {
	req, err := readDocument(line)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedLine, err)
	}
	if !isObject(req) {
		return nil, fmt.Errorf("%w: line is not a JSON object", ErrMalformedLine)
	}

	rsVal, ok := has(req, "resource_spans", "resourceSpans")
	if !ok {
		return nil, fmt.Errorf("%w: missing resource_spans", ErrMalformedLine)
	}
	resourceSpans, ok := elements(rsVal)
	if !ok {
		return nil, fmt.Errorf("%w: resource_spans is not an array", ErrMalformedLine)
	}

	var spans []Span
	for _, rs := range resourceSpans {
		if !isObject(rs) {
			continue
		}

		resourceAttrs := pcommon.NewMap()
		if resource, ok := field(rs, "resource"); ok && isObject(resource) {
			attrs, err := flattenAttributes(resource.Get("attributes"))
			if err != nil {
				return nil, fmt.Errorf("%w: resource %w", ErrMalformedLine, err)
			}
			resourceAttrs = attrs
		}

		// An empty snake_case list falls back to the camelCase one.
		scopeSpansVal, _ := firstSet(rs, "scope_spans", "scopeSpans")
		scopeSpans, ok := elements(scopeSpansVal)
		if !ok {
			continue
		}
		for _, ss := range scopeSpans {
			if !isObject(ss) {
				continue
			}
			rawSpans, ok := elements(ss.Get("spans"))
			if !ok {
				continue
			}
			for _, rawSpan := range rawSpans {
				s, err := parseSpan(rawSpan, resourceAttrs)
				if err != nil {
					continue
				}
				spans = append(spans, s)
			}
		}
	}
	return spans, nil
}

func parseSpan(obj jsoniter.Any, resourceAttrs pcommon.Map) (Span, error) {
	if !isObject(obj) {
		return Span{}, errors.New("span is not an object")
	}

	traceID, err := stringField(obj, "trace_id", "traceId")
	if err != nil {
		return Span{}, err
	}
	spanID, err := stringField(obj, "span_id", "spanId")
	if err != nil {
		return Span{}, err
	}
	parentSpanID, err := stringField(obj, "parent_span_id", "parentSpanId")
	if err != nil {
		return Span{}, err
	}
	name, err := stringField(obj, "name")
	if err != nil {
		return Span{}, err
	}
	kind, err := parseKind(obj)
	if err != nil {
		return Span{}, err
	}
	start, err := int64Field(obj, "start_time_unix_nano", "startTimeUnixNano")
	if err != nil {
		return Span{}, err
	}
	end, err := int64Field(obj, "end_time_unix_nano", "endTimeUnixNano")
	if err != nil {
		return Span{}, err
	}
	attrs, err := flattenAttributes(obj.Get("attributes"))
	if err != nil {
		return Span{}, err
	}

	return Span{
		TraceID:            NormalizeID(traceID),
		SpanID:             NormalizeID(spanID),
		ParentSpanID:       NormalizeID(parentSpanID),
		Name:               name,
		Kind:               kind,
		StartTimeUnixNano:  start,
		EndTimeUnixNano:    end,
		Attributes:         attrs,
		Status:             parseStatus(obj.Get("status")),
		Events:             parseEvents(obj.Get("events")),
		ResourceAttributes: resourceAttrs,
	}, nil
}

// NormalizeID lower-cases a hex trace or span id.
func NormalizeID(id string) string {
	return strings.ToLower(strings.TrimSpace(id))
}

func parseKind(obj jsoniter.Any) (string, error) {
	kind, ok := field(obj, "kind")
	if !ok {
		return "", nil
	}
	switch kind.ValueType() {
	case jsoniter.StringValue:
		return kind.ToString(), nil
	case jsoniter.NumberValue:
		return strings.Clone(strings.TrimSpace(kind.ToString())), nil
	}
	return "", fmt.Errorf("kind: unexpected %s", describe(kind))
}

// parseStatus and parseEvents pass the value through; numbers stay
// json.Number.
func parseStatus(v jsoniter.Any) map[string]any {
	if isObject(v) {
		if m, ok := v.GetInterface().(map[string]any); ok {
			return m
		}
	}
	return map[string]any{}
}

func parseEvents(v jsoniter.Any) []any {
	if v != nil && v.ValueType() == jsoniter.ArrayValue {
		if events, ok := v.GetInterface().([]any); ok {
			return events
		}
	}
	return []any{}
}
