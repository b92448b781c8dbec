// Package otlpfixture builds OTLP trace exports for tests and writes them the
// way a Robot Framework tracing listener would: one ExportTraceServiceRequest
// JSON object per line.
package otlpfixture

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"unicode"

	"github.com/klauspost/compress/gzip"
	"go.opentelemetry.io/collector/pdata/pcommon"
	"go.opentelemetry.io/collector/pdata/ptrace"
)

type Span struct {
	TraceID  pcommon.TraceID
	SpanID   pcommon.SpanID
	ParentID pcommon.SpanID
	Name     string
	Kind     ptrace.SpanKind
	// Start and End are nanoseconds since the epoch.
	Start      uint64
	End        uint64
	Attributes map[string]any
}

// Traces puts all spans under a single resource and scope.
func Traces(resource map[string]any, spans ...Span) ptrace.Traces {
	td := ptrace.NewTraces()
	rs := td.ResourceSpans().AppendEmpty()
	if err := rs.Resource().Attributes().FromRaw(resource); err != nil {
		panic(fmt.Sprintf("resource attributes: %v", err))
	}
	ss := rs.ScopeSpans().AppendEmpty()
	ss.Scope().SetName("robotframework-tracer")
	for _, s := range spans {
		out := ss.Spans().AppendEmpty()
		out.SetTraceID(s.TraceID)
		out.SetSpanID(s.SpanID)
		out.SetParentSpanID(s.ParentID)
		out.SetName(s.Name)
		out.SetKind(s.Kind)
		out.SetStartTimestamp(pcommon.Timestamp(s.Start))
		out.SetEndTimestamp(pcommon.Timestamp(s.End))
		if err := out.Attributes().FromRaw(s.Attributes); err != nil {
			panic(fmt.Sprintf("span %q attributes: %v", s.Name, err))
		}
	}
	return td
}

// TraceID returns a trace id whose last byte is n.
func TraceID(n byte) pcommon.TraceID {
	var id pcommon.TraceID
	id[0] = 0xab
	id[15] = n
	return id
}

// SpanID returns a span id whose last byte is n. SpanID(0) is the empty id.
func SpanID(n byte) pcommon.SpanID {
	var id pcommon.SpanID
	if n == 0 {
		return id
	}
	id[0] = 0xcd
	id[7] = n
	return id
}

// Line encodes td as one protobuf-JSON (camelCase) line without the trailing
// newline.
func Line(td ptrace.Traces) ([]byte, error) {
	m := ptrace.JSONMarshaler{}
	return m.MarshalTraces(td)
}

// SnakeLine encodes td like Line but with every field name in snake_case,
// which is what the Python OTLP exporters write.
func SnakeLine(td ptrace.Traces) ([]byte, error) {
	line, err := Line(td)
	if err != nil {
		return nil, err
	}
	dec := json.NewDecoder(bytes.NewReader(line))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	return json.Marshal(snakeKeys(v))
}

func snakeKeys(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[snake(k)] = snakeKeys(val)
		}
		return out
	case []any:
		for i := range t {
			t[i] = snakeKeys(t[i])
		}
		return t
	default:
		return v
	}
}

func snake(name string) string {
	var sb strings.Builder
	for i, r := range name {
		if unicode.IsUpper(r) {
			if i > 0 {
				sb.WriteByte('_')
			}
			r = unicode.ToLower(r)
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

// NDJSON joins lines with a newline after each one.
func NDJSON(lines ...[]byte) []byte {
	var buf bytes.Buffer
	for _, l := range lines {
		buf.Write(l)
		buf.WriteByte('\n')
	}
	return buf.Bytes()
}

func WriteFile(path string, content []byte) error {
	return os.WriteFile(path, content, 0o644)
}

// WriteGzip writes content gzip-compressed.
func WriteGzip(path string, content []byte) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	zw := gzip.NewWriter(f)
	if _, err := zw.Write(content); err != nil {
		_ = f.Close()
		return err
	}
	if err := zw.Close(); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
