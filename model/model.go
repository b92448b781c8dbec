// Package model is the Robot Framework run as the report viewer consumes it.
// The JSON field names are the data contract with the viewer scripts.
package model

import (
	"encoding/json"
)

type Status string

const (
	StatusPass   Status = "PASS"
	StatusFail   Status = "FAIL"
	StatusSkip   Status = "SKIP"
	StatusNotRun Status = "NOT_RUN"
)

// Keyword types written by the listener. Any other value is passed through.
const (
	KeywordTypeKeyword  = "KEYWORD"
	KeywordTypeSetup    = "SETUP"
	KeywordTypeTeardown = "TEARDOWN"
	KeywordTypeFor      = "FOR"
	KeywordTypeIf       = "IF"
	KeywordTypeTry      = "TRY"
	KeywordTypeWhile    = "WHILE"
)

// SuiteChild is either a *Suite or a *Test.
type SuiteChild interface {
	suiteChild()
}

type Suite struct {
	Name      string  `json:"name"`
	ID        string  `json:"id"`
	Source    string  `json:"source"`
	Status    Status  `json:"status"`
	StartTime int64   `json:"start_time"`
	EndTime   int64   `json:"end_time"`
	ElapsedMs float64 `json:"elapsed_time"`
	// Children are nested suites and tests in start time order.
	Children []SuiteChild `json:"children"`
}

type Test struct {
	Name      string     `json:"name"`
	ID        string     `json:"id"`
	Status    Status     `json:"status"`
	StartTime int64      `json:"start_time"`
	EndTime   int64      `json:"end_time"`
	ElapsedMs float64    `json:"elapsed_time"`
	Keywords  []*Keyword `json:"keywords"`
	Tags      []string   `json:"tags"`
}

type Keyword struct {
	Name        string  `json:"name"`
	KeywordType string  `json:"keyword_type"`
	Args        string  `json:"args"`
	Status      Status  `json:"status"`
	StartTime   int64   `json:"start_time"`
	EndTime     int64   `json:"end_time"`
	ElapsedMs   float64 `json:"elapsed_time"`
	// SpanID links the keyword back to its span for the timeline view.
	SpanID   string     `json:"id"`
	Children []*Keyword `json:"children"`
}

func (*Suite) suiteChild() {}
func (*Test) suiteChild()  {}

type SuiteStatistics struct {
	SuiteName string `json:"suite_name"`
	Total     int    `json:"total"`
	Passed    int    `json:"passed"`
	Failed    int    `json:"failed"`
	Skipped   int    `json:"skipped"`
}

// KeywordStatistics aggregates every call of one keyword name, nested calls
// included. Durations are in milliseconds.
type KeywordStatistics struct {
	Name    string  `json:"name"`
	Count   int     `json:"count"`
	MinMs   float64 `json:"min_duration"`
	MaxMs   float64 `json:"max_duration"`
	TotalMs float64 `json:"total_duration"`
	AvgMs   float64 `json:"avg_duration"`
}

type RunStatistics struct {
	TotalTests      int                 `json:"total_tests"`
	Passed          int                 `json:"passed"`
	Failed          int                 `json:"failed"`
	Skipped         int                 `json:"skipped"`
	TotalDurationMs float64             `json:"total_duration_ms"`
	SuiteStats      []SuiteStatistics   `json:"suite_stats"`
	KeywordStats    []KeywordStatistics `json:"keyword_stats"`
}

type RunModel struct {
	Title      string        `json:"title"`
	RunID      string        `json:"run_id"`
	RFVersion  string        `json:"rf_version"`
	StartTime  int64         `json:"start_time"`
	EndTime    int64         `json:"end_time"`
	Suites     []*Suite      `json:"suites"`
	Statistics RunStatistics `json:"statistics"`
}

// Tests returns the tests of s and of all its nested suites, depth first.
func (s *Suite) Tests() []*Test {
	var out []*Test
	for _, c := range s.Children {
		switch c := c.(type) {
		case *Test:
			out = append(out, c)
		case *Suite:
			out = append(out, c.Tests()...)
		}
	}
	return out
}

// The viewer iterates every list, so nil slices are written as [].

func (s Suite) MarshalJSON() ([]byte, error) {
	type plain Suite
	if s.Children == nil {
		s.Children = []SuiteChild{}
	}
	return json.Marshal(plain(s))
}

func (t Test) MarshalJSON() ([]byte, error) {
	type plain Test
	if t.Keywords == nil {
		t.Keywords = []*Keyword{}
	}
	if t.Tags == nil {
		t.Tags = []string{}
	}
	return json.Marshal(plain(t))
}

func (k Keyword) MarshalJSON() ([]byte, error) {
	type plain Keyword
	if k.Children == nil {
		k.Children = []*Keyword{}
	}
	return json.Marshal(plain(k))
}

func (r RunStatistics) MarshalJSON() ([]byte, error) {
	type plain RunStatistics
	if r.SuiteStats == nil {
		r.SuiteStats = []SuiteStatistics{}
	}
	if r.KeywordStats == nil {
		r.KeywordStats = []KeywordStatistics{}
	}
	return json.Marshal(plain(r))
}

func (m RunModel) MarshalJSON() ([]byte, error) {
	type plain RunModel
	if m.Suites == nil {
		m.Suites = []*Suite{}
	}
	return json.Marshal(plain(m))
}
