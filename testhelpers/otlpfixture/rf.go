package otlpfixture

import (
	"go.opentelemetry.io/collector/pdata/ptrace"
)

const (
	// RunStart is the start time of every fixture run, in Unix nanoseconds.
	RunStart uint64 = 1_700_000_000_000_000_000
	ms       uint64 = 1_000_000
)

// RunResource is the resource the listener attaches to a run.
func RunResource() map[string]any {
	return map[string]any{
		"service.name": "Simple Run",
		"run.id":       "run-42",
		"rf.version":   "7.1",
	}
}

// SimpleRun is one suite holding one passing test that calls Log and then
// Sleep. The keyword spans are listed in reverse start order.
func SimpleRun() ptrace.Traces {
	trace := TraceID(1)
	return Traces(RunResource(),
		Span{
			TraceID: trace, SpanID: SpanID(1), Name: "Simple Suite",
			Start: RunStart, End: RunStart + 1000*ms,
			Attributes: map[string]any{
				"rf.suite.name":   "Simple Suite",
				"rf.suite.id":     "s1",
				"rf.suite.source": "/tests/simple.robot",
				"rf.status":       "PASS",
			},
		},
		Span{
			TraceID: trace, SpanID: SpanID(2), ParentID: SpanID(1), Name: "Simple Test",
			Start: RunStart + 100*ms, End: RunStart + 900*ms,
			Attributes: map[string]any{
				"rf.test.name": "Simple Test",
				"rf.test.id":   "s1-t1",
				"rf.test.tags": []any{"smoke", "fast"},
				"rf.status":    "PASS",
			},
		},
		Span{
			TraceID: trace, SpanID: SpanID(4), ParentID: SpanID(2), Name: "BuiltIn.Sleep",
			Start: RunStart + 300*ms, End: RunStart + 800*ms,
			Attributes: map[string]any{
				"rf.keyword.name": "Sleep",
				"rf.keyword.args": "0.5s",
				"rf.status":       "PASS",
			},
		},
		Span{
			TraceID: trace, SpanID: SpanID(3), ParentID: SpanID(2), Name: "BuiltIn.Log",
			Start: RunStart + 200*ms, End: RunStart + 250*ms,
			Attributes: map[string]any{
				"rf.keyword.name": "Log",
				"rf.keyword.type": "KEYWORD",
				"rf.keyword.args": "hello",
				"rf.status":       "PASS",
			},
		},
	)
}

// MixedRun has two top-level suites. The first nests a suite with a failing
// and a skipped test; the second holds a passing test and a test with an
// unknown status.
func MixedRun() ptrace.Traces {
	trace := TraceID(2)
	kw := func(id, parent byte, name string, start, end uint64) Span {
		return Span{
			TraceID: trace, SpanID: SpanID(id), ParentID: SpanID(parent), Name: name,
			Start: RunStart + start*ms, End: RunStart + end*ms,
			Attributes: map[string]any{"rf.keyword.name": name, "rf.status": "PASS"},
		}
	}
	test := func(id, parent byte, name, status string, start, end uint64) Span {
		return Span{
			TraceID: trace, SpanID: SpanID(id), ParentID: SpanID(parent), Name: name,
			Start: RunStart + start*ms, End: RunStart + end*ms,
			Attributes: map[string]any{"rf.test.name": name, "rf.status": status},
		}
	}
	suite := func(id, parent byte, name string, start, end uint64) Span {
		return Span{
			TraceID: trace, SpanID: SpanID(id), ParentID: SpanID(parent), Name: name,
			Start: RunStart + start*ms, End: RunStart + end*ms,
			Attributes: map[string]any{"rf.suite.name": name, "rf.status": "FAIL"},
		}
	}
	return Traces(RunResource(),
		suite(10, 0, "Outer", 0, 1000),
		suite(11, 10, "Inner", 10, 500),
		test(12, 11, "Fails", "FAIL", 20, 200),
		kw(13, 12, "Log", 30, 40),
		test(14, 11, "Skipped", "SKIP", 210, 300),
		suite(20, 0, "Second", 1000, 2000),
		test(21, 20, "Passes", "PASS", 1010, 1500),
		kw(22, 21, "Log", 1020, 1060),
		test(23, 20, "Odd", "BLOCKED", 1600, 1900),
	)
}
