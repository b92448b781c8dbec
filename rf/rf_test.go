package rf

import (
	"testing"

	"github.com/onsi/gomega"
	"github.com/rf-trace-viewer/rftrace/diag"
	"github.com/rf-trace-viewer/rftrace/model"
	"github.com/rf-trace-viewer/rftrace/otlp"
	"github.com/rf-trace-viewer/rftrace/testhelpers/otlpfixture"
	"github.com/rf-trace-viewer/rftrace/tree"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/collector/pdata/pcommon"
	"go.opentelemetry.io/collector/pdata/ptrace"
)

func attrs(t *testing.T, raw map[string]any) pcommon.Map {
	t.Helper()
	m := pcommon.NewMap()
	require.NoError(t, m.FromRaw(raw))
	return m
}

func interpretFixture(t *testing.T, td ptrace.Traces) (model.RunModel, diag.Warnings) {
	t.Helper()
	line, err := otlpfixture.Line(td)
	require.NoError(t, err)
	spans, err := otlp.ParseLine(line)
	require.NoError(t, err)
	f, warnings := tree.Build(spans)
	require.Empty(t, warnings)
	return Interpret(f)
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		attrs    map[string]any
		expected SpanType
	}{
		{name: "suite", attrs: map[string]any{"rf.suite.name": "S"}, expected: Suite},
		{name: "test", attrs: map[string]any{"rf.test.name": "T"}, expected: Test},
		{name: "keyword", attrs: map[string]any{"rf.keyword.name": "K"}, expected: Keyword},
		{name: "signal", attrs: map[string]any{"rf.signal": "test.starting"}, expected: Signal},
		{name: "generic", attrs: map[string]any{"http.method": "GET"}, expected: Generic},
		{name: "empty", attrs: map[string]any{}, expected: Generic},
		{name: "presence decides, not value", attrs: map[string]any{"rf.keyword.name": nil}, expected: Keyword},
		{
			name:     "signal carrying a test name is a test",
			attrs:    map[string]any{"rf.signal": "test.starting", "rf.test.name": "T"},
			expected: Test,
		},
		{
			name:     "suite wins over everything",
			attrs:    map[string]any{"rf.keyword.name": "K", "rf.test.name": "T", "rf.suite.name": "S"},
			expected: Suite,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Classify(attrs(t, tt.attrs)))
		})
	}

	assert.Equal(t, Generic, Classify(pcommon.Map{}))
	assert.Equal(t, "SUITE", Suite.String())
	assert.Equal(t, "GENERIC", Generic.String())
}

func TestExtractStatus(t *testing.T) {
	tests := []struct {
		name     string
		attrs    map[string]any
		expected model.Status
		warns    bool
	}{
		{name: "pass", attrs: map[string]any{"rf.status": "PASS"}, expected: model.StatusPass},
		{name: "fail", attrs: map[string]any{"rf.status": "FAIL"}, expected: model.StatusFail},
		{name: "skip", attrs: map[string]any{"rf.status": "SKIP"}, expected: model.StatusSkip},
		{name: "not run", attrs: map[string]any{"rf.status": "NOT_RUN"}, expected: model.StatusNotRun},
		{name: "not run with space", attrs: map[string]any{"rf.status": "NOT RUN"}, expected: model.StatusNotRun},
		{name: "absent", attrs: map[string]any{}, expected: model.StatusNotRun},
		{name: "empty", attrs: map[string]any{"rf.status": ""}, expected: model.StatusNotRun},
		{name: "case sensitive", attrs: map[string]any{"rf.status": "pass"}, expected: model.StatusNotRun, warns: true},
		{name: "unknown", attrs: map[string]any{"rf.status": "BLOCKED"}, expected: model.StatusNotRun, warns: true},
		{name: "not a string", attrs: map[string]any{"rf.status": 1}, expected: model.StatusNotRun, warns: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, w := ExtractStatus(attrs(t, tt.attrs), "span-1")
			assert.Equal(t, tt.expected, status)
			if !tt.warns {
				assert.Nil(t, w)
				return
			}
			require.NotNil(t, w)
			assert.Equal(t, diag.UnknownStatus, w.Kind)
			assert.Equal(t, "span-1", w.SpanID)
		})
	}
}

func TestInterpretSimpleRun(t *testing.T) {
	line, err := otlpfixture.Line(otlpfixture.SimpleRun())
	require.NoError(t, err)
	spans, err := otlp.ParseLine(line)
	require.NoError(t, err)
	require.Len(t, spans, 4)

	f, warnings := tree.Build(spans)
	require.Empty(t, warnings)
	require.Len(t, f.Roots(), 1)

	m, warnings := Interpret(f)
	require.Empty(t, warnings)

	assert.Equal(t, "Simple Run", m.Title)
	assert.Equal(t, "run-42", m.RunID)
	assert.Equal(t, "7.1", m.RFVersion)
	assert.Equal(t, int64(otlpfixture.RunStart), m.StartTime)
	assert.Equal(t, int64(otlpfixture.RunStart)+1_000_000_000, m.EndTime)

	require.Len(t, m.Suites, 1)
	suite := m.Suites[0]
	assert.Equal(t, "Simple Suite", suite.Name)
	assert.Equal(t, "s1", suite.ID)
	assert.Equal(t, "/tests/simple.robot", suite.Source)
	assert.Equal(t, 1000.0, suite.ElapsedMs)

	require.Len(t, suite.Children, 1)
	test, ok := suite.Children[0].(*model.Test)
	require.True(t, ok)
	assert.Equal(t, "Simple Test", test.Name)
	assert.Equal(t, model.StatusPass, test.Status)
	assert.Equal(t, []string{"smoke", "fast"}, test.Tags)

	require.Len(t, test.Keywords, 2)
	log, sleep := test.Keywords[0], test.Keywords[1]
	assert.Equal(t, "Log", log.Name)
	assert.Equal(t, "hello", log.Args)
	assert.Equal(t, model.KeywordTypeKeyword, log.KeywordType)
	assert.Equal(t, 50.0, log.ElapsedMs)
	assert.Equal(t, otlpfixture.SpanID(3).String(), log.SpanID)
	assert.Equal(t, "Sleep", sleep.Name)
	assert.Equal(t, model.KeywordTypeKeyword, sleep.KeywordType, "keyword type defaults to KEYWORD")

	assert.Equal(t, model.RunStatistics{
		TotalTests:      1,
		Passed:          1,
		TotalDurationMs: 1000,
		SuiteStats:      []model.SuiteStatistics{{SuiteName: "Simple Suite", Total: 1, Passed: 1}},
		KeywordStats: []model.KeywordStatistics{
			{Name: "Log", Count: 1, MinMs: 50, MaxMs: 50, TotalMs: 50, AvgMs: 50},
			{Name: "Sleep", Count: 1, MinMs: 500, MaxMs: 500, TotalMs: 500, AvgMs: 500},
		},
	}, m.Statistics)
}

func TestInterpretMixedRun(t *testing.T) {
	m, warnings := interpretFixture(t, otlpfixture.MixedRun())

	require.Len(t, warnings, 1)
	assert.Equal(t, diag.UnknownStatus, warnings[0].Kind)
	assert.Equal(t, otlpfixture.TraceID(2).String(), warnings[0].TraceID)

	g := gomega.NewWithT(t)
	g.Expect(m.Suites).To(gomega.HaveLen(2))
	g.Expect(m.Suites[0].Children).To(gomega.HaveLen(1))
	inner, ok := m.Suites[0].Children[0].(*model.Suite)
	g.Expect(ok).To(gomega.BeTrue())
	g.Expect(inner.Name).To(gomega.Equal("Inner"))

	st := m.Statistics
	g.Expect(st.TotalTests).To(gomega.Equal(4))
	g.Expect(st.Passed).To(gomega.Equal(1))
	g.Expect(st.Failed).To(gomega.Equal(1))
	g.Expect(st.Skipped).To(gomega.Equal(1))
	g.Expect(st.TotalDurationMs).To(gomega.Equal(2000.0))
	g.Expect(st.SuiteStats).To(gomega.Equal([]model.SuiteStatistics{
		{SuiteName: "Outer", Total: 2, Failed: 1, Skipped: 1},
		{SuiteName: "Second", Total: 2, Passed: 1},
	}))
	g.Expect(st.KeywordStats).To(gomega.HaveLen(1))
	g.Expect(st.KeywordStats[0].Count).To(gomega.Equal(2))
}

func TestInterpretEmptyForest(t *testing.T) {
	f, _ := tree.Build(nil)
	m, warnings := Interpret(f)
	assert.Empty(t, warnings)
	assert.Equal(t, model.RunModel{}, m)
}

func TestInterpretFolding(t *testing.T) {
	trace := otlpfixture.TraceID(5)
	sp := func(id, parent byte, start uint64, a map[string]any) otlpfixture.Span {
		return otlpfixture.Span{
			TraceID: trace, SpanID: otlpfixture.SpanID(id), ParentID: otlpfixture.SpanID(parent),
			Name: "span-name", Start: start, End: start + 1, Attributes: a,
		}
	}
	td := otlpfixture.Traces(map[string]any{},
		sp(1, 0, 10, map[string]any{"rf.suite.name": "S"}),
		sp(2, 1, 11, map[string]any{"rf.keyword.name": "Suite Setup", "rf.keyword.type": "SETUP"}),
		sp(3, 1, 12, map[string]any{"rf.signal": "suite.started"}),
		sp(4, 1, 13, map[string]any{"rf.test.name": "T", "rf.test.tags": "not-a-list", "rf.test.id": 7}),
		sp(5, 4, 14, map[string]any{"http.method": "GET"}),
		sp(6, 5, 15, map[string]any{"rf.keyword.name": "Hidden"}),
		sp(7, 4, 16, map[string]any{"rf.keyword.name": "Outer", "rf.keyword.type": "FOR"}),
		sp(8, 7, 17, map[string]any{"rf.keyword.name": "Inner"}),
		sp(9, 8, 18, map[string]any{"rf.keyword.name": nil}),
		sp(10, 0, 5, map[string]any{"rf.test.name": "Root test"}),
		sp(11, 0, 30, map[string]any{}),
	)

	m, _ := interpretFixture(t, td)

	assert.Equal(t, "span-name", m.Title, "no service.name falls back to the first root's name")
	assert.Equal(t, int64(5), m.StartTime)
	assert.Equal(t, int64(31), m.EndTime)

	require.Len(t, m.Suites, 1, "only suite roots become suites")
	suite := m.Suites[0]
	require.Len(t, suite.Children, 1, "keywords and signals under a suite are dropped")

	test := suite.Children[0].(*model.Test)
	assert.Equal(t, "7", test.ID)
	assert.Equal(t, []string{}, test.Tags)
	assert.Equal(t, model.StatusNotRun, test.Status)

	require.Len(t, test.Keywords, 1, "keywords below a generic span are dropped")
	outer := test.Keywords[0]
	assert.Equal(t, "Outer", outer.Name)
	assert.Equal(t, model.KeywordTypeFor, outer.KeywordType)
	require.Len(t, outer.Children, 1)
	inner := outer.Children[0]
	assert.Equal(t, "Inner", inner.Name)
	require.Len(t, inner.Children, 1)
	assert.Equal(t, "", inner.Children[0].Name, "a null name attribute renders as empty")
}

func TestStatisticsInvariants(t *testing.T) {
	suites := []*model.Suite{
		{Name: "A", Children: []model.SuiteChild{
			&model.Test{Status: model.StatusPass},
			&model.Test{Status: model.StatusNotRun},
			&model.Suite{Children: []model.SuiteChild{
				&model.Test{Status: model.StatusFail},
				&model.Suite{Children: []model.SuiteChild{&model.Test{Status: model.StatusSkip}}},
			}},
		}},
		{Name: "B", Children: []model.SuiteChild{&model.Test{Status: model.StatusPass}}},
		{Name: "Empty"},
	}

	st := ComputeStatistics(suites, 2_000_000, 5_500_000)
	assert.Equal(t, 5, st.TotalTests)
	assert.Equal(t, 2, st.Passed)
	assert.Equal(t, 1, st.Failed)
	assert.Equal(t, 1, st.Skipped)
	assert.Equal(t, 3.5, st.TotalDurationMs)

	sum := 0
	for _, s := range st.SuiteStats {
		sum += s.Total
		assert.LessOrEqual(t, s.Passed+s.Failed+s.Skipped, s.Total)
	}
	assert.Equal(t, st.TotalTests, sum)
	assert.Equal(t, []string{"A", "B", "Empty"}, []string{st.SuiteStats[0].SuiteName, st.SuiteStats[1].SuiteName, st.SuiteStats[2].SuiteName})

	assert.Zero(t, ComputeStatistics(nil, 10, 10).TotalDurationMs)
	assert.Zero(t, ComputeStatistics(nil, 10, 5).TotalDurationMs)
}

func TestKeywordStatistics(t *testing.T) {
	kw := func(name string, ms float64, children ...*model.Keyword) *model.Keyword {
		return &model.Keyword{Name: name, ElapsedMs: ms, Children: children}
	}
	suites := []*model.Suite{{Children: []model.SuiteChild{
		&model.Test{Keywords: []*model.Keyword{
			kw("Open", 10, kw("Log", 1), kw("Log", 3)),
			kw("Close", 4),
		}},
		&model.Suite{Children: []model.SuiteChild{
			&model.Test{Keywords: []*model.Keyword{kw("Log", 5), kw("Open", 30)}},
		}},
	}}}

	assert.Equal(t, []model.KeywordStatistics{
		{Name: "Open", Count: 2, MinMs: 10, MaxMs: 30, TotalMs: 40, AvgMs: 20},
		{Name: "Log", Count: 3, MinMs: 1, MaxMs: 5, TotalMs: 9, AvgMs: 3},
		{Name: "Close", Count: 1, MinMs: 4, MaxMs: 4, TotalMs: 4, AvgMs: 4},
	}, KeywordStatistics(suites))

	assert.Equal(t, []model.KeywordStatistics{}, KeywordStatistics(nil))
}
