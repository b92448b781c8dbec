package rf

import (
	"github.com/rf-trace-viewer/rftrace/diag"
	"github.com/rf-trace-viewer/rftrace/model"
	"github.com/rf-trace-viewer/rftrace/otlp"
	"github.com/rf-trace-viewer/rftrace/tree"
	"go.opentelemetry.io/collector/pdata/pcommon"
)

type interpreter struct {
	warnings diag.Warnings
}

// Interpret folds a span forest into a run model. Only suite roots become
// suites, but the run time range covers every root. Run metadata comes from
// the resource of the first root.
func Interpret(f *tree.Forest) (model.RunModel, diag.Warnings) {
	roots := f.Roots()
	if len(roots) == 0 {
		return model.RunModel{}, nil
	}

	first := roots[0].Span()
	m := model.RunModel{
		Title:     first.Name,
		StartTime: first.StartTimeUnixNano,
		EndTime:   first.EndTimeUnixNano,
	}
	if v, ok := first.ResourceAttr(AttrServiceName); ok {
		m.Title = v.AsString()
	}
	if v, ok := first.ResourceAttr(AttrRunID); ok {
		m.RunID = v.AsString()
	}
	if v, ok := first.ResourceAttr(AttrRFVersion); ok {
		m.RFVersion = v.AsString()
	}

	in := &interpreter{}
	for _, r := range roots {
		s := r.Span()
		m.StartTime = min(m.StartTime, s.StartTimeUnixNano)
		m.EndTime = max(m.EndTime, s.EndTimeUnixNano)
		if Classify(s.Attributes) == Suite {
			m.Suites = append(m.Suites, in.suite(r))
		}
	}
	m.Statistics = ComputeStatistics(m.Suites, m.StartTime, m.EndTime)
	return m, in.warnings
}

func (in *interpreter) status(s otlp.Span) model.Status {
	st, w := ExtractStatus(s.Attributes, s.SpanID)
	if w != nil {
		w.TraceID = s.TraceID
		in.warnings.Add(*w)
	}
	return st
}

func (in *interpreter) suite(n tree.Node) *model.Suite {
	s := n.Span()
	suite := &model.Suite{
		Name:      stringAttr(s, AttrSuiteName, s.Name),
		ID:        stringAttr(s, AttrSuiteID, ""),
		Source:    stringAttr(s, AttrSuiteSource, ""),
		Status:    in.status(s),
		StartTime: s.StartTimeUnixNano,
		EndTime:   s.EndTimeUnixNano,
		ElapsedMs: elapsedMs(s),
		Children:  []model.SuiteChild{},
	}
	for _, c := range n.Children() {
		switch Classify(c.Span().Attributes) {
		case Suite:
			suite.Children = append(suite.Children, in.suite(c))
		case Test:
			suite.Children = append(suite.Children, in.test(c))
		}
	}
	return suite
}

func (in *interpreter) test(n tree.Node) *model.Test {
	s := n.Span()
	return &model.Test{
		Name:      stringAttr(s, AttrTestName, s.Name),
		ID:        stringAttr(s, AttrTestID, ""),
		Status:    in.status(s),
		StartTime: s.StartTimeUnixNano,
		EndTime:   s.EndTimeUnixNano,
		ElapsedMs: elapsedMs(s),
		Keywords:  in.keywords(n),
		Tags:      tags(s),
	}
}

// keywords folds the direct keyword children of n. Other children are dropped
// together with everything below them.
func (in *interpreter) keywords(n tree.Node) []*model.Keyword {
	out := []*model.Keyword{}
	for _, c := range n.Children() {
		if Classify(c.Span().Attributes) == Keyword {
			out = append(out, in.keyword(c))
		}
	}
	return out
}

func (in *interpreter) keyword(n tree.Node) *model.Keyword {
	s := n.Span()
	return &model.Keyword{
		Name:        stringAttr(s, AttrKeywordName, s.Name),
		KeywordType: stringAttr(s, AttrKeywordType, model.KeywordTypeKeyword),
		Args:        stringAttr(s, AttrKeywordArgs, ""),
		Status:      in.status(s),
		StartTime:   s.StartTimeUnixNano,
		EndTime:     s.EndTimeUnixNano,
		ElapsedMs:   elapsedMs(s),
		SpanID:      s.SpanID,
		Children:    in.keywords(n),
	}
}

// tags only accepts a list; any other shape means no tags.
func tags(s otlp.Span) []string {
	out := []string{}
	v, ok := s.Attr(AttrTestTags)
	if !ok || v.Type() != pcommon.ValueTypeSlice {
		return out
	}
	for i := 0; i < v.Slice().Len(); i++ {
		out = append(out, v.Slice().At(i).AsString())
	}
	return out
}

func elapsedMs(s otlp.Span) float64 {
	return float64(s.DurationNano()) / 1e6
}
