package rf

import (
	"github.com/rf-trace-viewer/rftrace/model"
)

type counts struct {
	total, passed, failed, skipped int
}

func (c *counts) add(o counts) {
	c.total += o.total
	c.passed += o.passed
	c.failed += o.failed
	c.skipped += o.skipped
}

func countTests(children []model.SuiteChild) counts {
	var c counts
	for _, child := range children {
		switch child := child.(type) {
		case *model.Test:
			c.total++
			switch child.Status {
			case model.StatusPass:
				c.passed++
			case model.StatusFail:
				c.failed++
			case model.StatusSkip:
				c.skipped++
			}
		case *model.Suite:
			c.add(countTests(child.Children))
		}
	}
	return c
}

// ComputeStatistics counts the tests of the whole suite forest and of every
// top-level suite. Tests that are neither passed, failed nor skipped only
// count towards the totals.
func ComputeStatistics(suites []*model.Suite, start, end int64) model.RunStatistics {
	var run counts
	stats := model.RunStatistics{
		SuiteStats: make([]model.SuiteStatistics, 0, len(suites)),
	}
	for _, s := range suites {
		c := countTests(s.Children)
		run.add(c)
		stats.SuiteStats = append(stats.SuiteStats, model.SuiteStatistics{
			SuiteName: s.Name,
			Total:     c.total,
			Passed:    c.passed,
			Failed:    c.failed,
			Skipped:   c.skipped,
		})
	}
	stats.TotalTests = run.total
	stats.Passed = run.passed
	stats.Failed = run.failed
	stats.Skipped = run.skipped
	if end > start {
		stats.TotalDurationMs = float64(end-start) / 1e6
	}
	stats.KeywordStats = KeywordStatistics(suites)
	return stats
}

// KeywordStatistics aggregates keyword durations by name, nested keywords
// included. The result is ordered by first call in a depth-first walk.
func KeywordStatistics(suites []*model.Suite) []model.KeywordStatistics {
	out := []model.KeywordStatistics{}
	index := map[string]int{}

	var visit func(kws []*model.Keyword)
	visit = func(kws []*model.Keyword) {
		for _, kw := range kws {
			i, seen := index[kw.Name]
			if !seen {
				i = len(out)
				index[kw.Name] = i
				out = append(out, model.KeywordStatistics{
					Name:  kw.Name,
					MinMs: kw.ElapsedMs,
					MaxMs: kw.ElapsedMs,
				})
			}
			st := &out[i]
			st.Count++
			st.TotalMs += kw.ElapsedMs
			st.MinMs = min(st.MinMs, kw.ElapsedMs)
			st.MaxMs = max(st.MaxMs, kw.ElapsedMs)
			visit(kw.Children)
		}
	}

	var walk func(children []model.SuiteChild)
	walk = func(children []model.SuiteChild) {
		for _, child := range children {
			switch child := child.(type) {
			case *model.Test:
				visit(child.Keywords)
			case *model.Suite:
				walk(child.Children)
			}
		}
	}
	for _, s := range suites {
		walk(s.Children)
	}

	for i := range out {
		out[i].AvgMs = out[i].TotalMs / float64(out[i].Count)
	}
	return out
}
