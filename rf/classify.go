// Package rf interprets span trees written by the Robot Framework tracing
// listener. Spans are recognised by their rf.* attributes and folded into the
// suite, test and keyword hierarchy of model.RunModel.
package rf

import (
	"fmt"

	"github.com/rf-trace-viewer/rftrace/diag"
	"github.com/rf-trace-viewer/rftrace/model"
	"github.com/rf-trace-viewer/rftrace/otlp"
	"go.opentelemetry.io/collector/pdata/pcommon"
)

type SpanType int

const (
	Generic SpanType = iota
	Signal
	Keyword
	Test
	Suite
)

func (t SpanType) String() string {
	switch t {
	case Suite:
		return "SUITE"
	case Test:
		return "TEST"
	case Keyword:
		return "KEYWORD"
	case Signal:
		return "SIGNAL"
	default:
		return "GENERIC"
	}
}

const (
	AttrSuiteName   = "rf.suite.name"
	AttrSuiteID     = "rf.suite.id"
	AttrSuiteSource = "rf.suite.source"
	AttrTestName    = "rf.test.name"
	AttrTestID      = "rf.test.id"
	AttrTestTags    = "rf.test.tags"
	AttrKeywordName = "rf.keyword.name"
	AttrKeywordType = "rf.keyword.type"
	AttrKeywordArgs = "rf.keyword.args"
	AttrSignal      = "rf.signal"
	AttrStatus      = "rf.status"
	AttrServiceName = "service.name"
	AttrRunID       = "run.id"
	AttrRFVersion   = "rf.version"
)

// Classify decides the span type from which rf.* name attribute is present,
// whatever its value. A span carrying several of them takes the outermost
// level: suite, then test, keyword and signal.
func Classify(attrs pcommon.Map) SpanType {
	for _, c := range []struct {
		key string
		typ SpanType
	}{
		{AttrSuiteName, Suite},
		{AttrTestName, Test},
		{AttrKeywordName, Keyword},
		{AttrSignal, Signal},
	} {
		if _, ok := otlp.Lookup(attrs, c.key); ok {
			return c.typ
		}
	}
	return Generic
}

var statuses = map[string]model.Status{
	"PASS":    model.StatusPass,
	"FAIL":    model.StatusFail,
	"SKIP":    model.StatusSkip,
	"NOT_RUN": model.StatusNotRun,
	"NOT RUN": model.StatusNotRun,
}

// ExtractStatus maps rf.status to a model.Status. Unknown values become
// NOT_RUN together with a warning; a missing or empty value is NOT_RUN
// without one.
func ExtractStatus(attrs pcommon.Map, spanID string) (model.Status, *diag.Warning) {
	v, ok := otlp.Lookup(attrs, AttrStatus)
	if !ok {
		return model.StatusNotRun, nil
	}
	raw := v.AsString()
	if v.Type() == pcommon.ValueTypeStr {
		if s, known := statuses[raw]; known {
			return s, nil
		}
	}
	if raw == "" {
		return model.StatusNotRun, nil
	}
	return model.StatusNotRun, &diag.Warning{
		Kind:    diag.UnknownStatus,
		Message: fmt.Sprintf("unknown rf.status %q, defaulting to NOT_RUN", raw),
		Offset:  -1,
		SpanID:  spanID,
	}
}

// stringAttr renders a span attribute as text, or returns def when it is
// absent.
func stringAttr(s otlp.Span, key, def string) string {
	v, ok := s.Attr(key)
	if !ok {
		return def
	}
	return v.AsString()
}
