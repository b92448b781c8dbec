// Package tree rebuilds span hierarchies from the flat parent references of
// parsed spans.
//
// All nodes live in one slice owned by a Forest; a Node is a small handle
// into it, so parent and child links never form ownership cycles.
package tree

import (
	"fmt"
	"slices"

	"github.com/rf-trace-viewer/rftrace/diag"
	"github.com/rf-trace-viewer/rftrace/otlp"
)

type node struct {
	span     otlp.Span
	parent   int
	children []int
}

const noParent = -1

type Forest struct {
	nodes []node
	roots []int
}

// Node is a handle to one span of a Forest. The zero Node is not valid.
type Node struct {
	f   *Forest
	idx int
}

// Build links spans into a forest. Spans are grouped by trace id and a parent
// is only looked up inside the span's own group. Within a group the first span
// with a given id wins; later ones are dropped with a warning. Children and
// roots are ordered by start time, ties keeping input order.
func Build(spans []otlp.Span) (*Forest, diag.Warnings) {
	f := &Forest{}
	var warnings diag.Warnings

	var order []string
	groups := map[string][]int{}
	ids := map[string]map[string]int{}

	for _, s := range spans {
		byID, ok := ids[s.TraceID]
		if !ok {
			byID = map[string]int{}
			ids[s.TraceID] = byID
			order = append(order, s.TraceID)
		}
		if _, dup := byID[s.SpanID]; dup {
			warnings.Add(diag.Warning{
				Kind:    diag.DuplicateSpan,
				Message: fmt.Sprintf("duplicate span id %q in trace %q, keeping the first occurrence", s.SpanID, s.TraceID),
				Offset:  -1,
				TraceID: s.TraceID,
				SpanID:  s.SpanID,
			})
			continue
		}
		idx := len(f.nodes)
		f.nodes = append(f.nodes, node{span: s, parent: noParent})
		byID[s.SpanID] = idx
		groups[s.TraceID] = append(groups[s.TraceID], idx)
	}

	for _, traceID := range order {
		byID := ids[traceID]
		for _, idx := range groups[traceID] {
			n := &f.nodes[idx]
			parentID := n.span.ParentSpanID
			if parentID == "" || parentID == n.span.SpanID {
				f.roots = append(f.roots, idx)
				continue
			}
			p, ok := byID[parentID]
			if !ok {
				f.roots = append(f.roots, idx)
				continue
			}
			n.parent = p
			f.nodes[p].children = append(f.nodes[p].children, idx)
		}
	}

	warnings.Append(f.breakCycles())

	for i := range f.nodes {
		f.sortByStart(f.nodes[i].children)
	}
	f.sortByStart(f.roots)

	return f, warnings
}

// breakCycles turns one member of every parent cycle into a root, so that
// every node is reachable from a root.
func (f *Forest) breakCycles() diag.Warnings {
	var warnings diag.Warnings
	reachable := make([]bool, len(f.nodes))
	var mark func(idx int)
	mark = func(idx int) {
		reachable[idx] = true
		for _, c := range f.nodes[idx].children {
			mark(c)
		}
	}
	for _, r := range f.roots {
		mark(r)
	}

	for i := range f.nodes {
		if reachable[i] {
			continue
		}
		// Nothing above i leads to a root, so following parents must loop.
		seen := map[int]bool{}
		c := i
		for !seen[c] {
			seen[c] = true
			c = f.nodes[c].parent
		}
		p := f.nodes[c].parent
		f.nodes[p].children = slices.DeleteFunc(f.nodes[p].children, func(x int) bool { return x == c })
		f.nodes[c].parent = noParent
		f.roots = append(f.roots, c)
		mark(c)

		s := f.nodes[c].span
		warnings.Add(diag.Warning{
			Kind:    diag.ParentCycle,
			Message: fmt.Sprintf("span %q is part of a parent cycle, treating it as a root", s.SpanID),
			Offset:  -1,
			TraceID: s.TraceID,
			SpanID:  s.SpanID,
		})
	}
	return warnings
}

func (f *Forest) sortByStart(idx []int) {
	slices.SortStableFunc(idx, func(a, b int) int {
		sa, sb := f.nodes[a].span.StartTimeUnixNano, f.nodes[b].span.StartTimeUnixNano
		switch {
		case sa < sb:
			return -1
		case sa > sb:
			return 1
		}
		return 0
	})
}

func (f *Forest) Roots() []Node {
	return f.handles(f.roots)
}

// Len is the number of nodes, duplicates excluded.
func (f *Forest) Len() int {
	return len(f.nodes)
}

// Walk visits every node depth-first, parents before children, starting from
// the roots in order. Returning false from fn skips the node's subtree.
func (f *Forest) Walk(fn func(Node) bool) {
	var visit func(idx int)
	visit = func(idx int) {
		if !fn(Node{f: f, idx: idx}) {
			return
		}
		for _, c := range f.nodes[idx].children {
			visit(c)
		}
	}
	for _, r := range f.roots {
		visit(r)
	}
}

func (f *Forest) handles(idx []int) []Node {
	out := make([]Node, len(idx))
	for i, n := range idx {
		out[i] = Node{f: f, idx: n}
	}
	return out
}

func (n Node) Span() otlp.Span {
	return n.f.nodes[n.idx].span
}

func (n Node) Children() []Node {
	return n.f.handles(n.f.nodes[n.idx].children)
}

// Parent returns the node's parent, or false for a root.
func (n Node) Parent() (Node, bool) {
	p := n.f.nodes[n.idx].parent
	if p == noParent {
		return Node{}, false
	}
	return Node{f: n.f, idx: p}, true
}

// Depth is 0 for roots.
func (n Node) Depth() int {
	d := 0
	for p := n.f.nodes[n.idx].parent; p != noParent; p = n.f.nodes[p].parent {
		d++
	}
	return d
}
