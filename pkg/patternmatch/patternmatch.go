// Package patternmatch registers rewrite patterns and finds their subgraph
// matches in compute graphs, per §4.7. The matcher is a node-by-node
// backtracking search: pattern nodes are bound in declaration order against
// every compatible graph node, and a binding survives only if every pattern
// edge among already-bound captures exists in the graph with the required
// kind.
package patternmatch

import (
	"github.com/cpggen/cpggen/pkg/anchor"
	"github.com/cpggen/cpggen/pkg/computegraph"
)

// Node is one pattern vertex. CaptureID names the binding; Kind must match
// the graph node's kind exactly; OpCode is checked only when AnyOpCode is
// false.
type Node struct {
	CaptureID string
	Kind      computegraph.NodeKind
	OpCode    anchor.OpCode
	AnyOpCode bool
}

// Edge requires a graph edge of the given kind between the nodes bound to
// From and To.
type Edge struct {
	From string
	To   string
	Kind computegraph.EdgeKind
}

// RewriteFunc builds the replacement graph for one match. It must not
// mutate g.
type RewriteFunc func(g *computegraph.Graph, b Bindings) *computegraph.Graph

// Pattern is a named subgraph shape plus an optional rewrite.
type Pattern struct {
	Name    string
	Nodes   []Node
	Edges   []Edge
	Rewrite RewriteFunc
}

// Bindings maps each CaptureID to the matched node's ID.
type Bindings map[string]computegraph.NodeID

// Matcher holds the registered patterns.
type Matcher struct {
	patterns map[string]*Pattern
	order    []string
}

// New returns an empty matcher.
func New() *Matcher {
	return &Matcher{patterns: map[string]*Pattern{}}
}

// Register adds or replaces a pattern under its name.
func (m *Matcher) Register(p *Pattern) {
	if p == nil || p.Name == "" {
		return
	}
	if _, ok := m.patterns[p.Name]; !ok {
		m.order = append(m.order, p.Name)
	}
	m.patterns[p.Name] = p
}

// Names returns the registered pattern names in registration order.
func (m *Matcher) Names() []string {
	return append([]string(nil), m.order...)
}

// FindMatches returns every consistent binding of the named pattern in g.
// An unknown name or a pattern with no nodes yields an empty result.
func (m *Matcher) FindMatches(g *computegraph.Graph, name string) []Bindings {
	p, ok := m.patterns[name]
	if !ok || len(p.Nodes) == 0 || g == nil {
		return nil
	}
	var out []Bindings
	bound := Bindings{}
	used := map[computegraph.NodeID]bool{}
	m.search(g, p, 0, bound, used, &out)
	return out
}

func (m *Matcher) search(g *computegraph.Graph, p *Pattern, idx int, bound Bindings, used map[computegraph.NodeID]bool, out *[]Bindings) {
	if idx == len(p.Nodes) {
		match := Bindings{}
		for k, v := range bound {
			match[k] = v
		}
		*out = append(*out, match)
		return
	}
	pn := p.Nodes[idx]
	for _, gn := range g.Nodes() {
		if used[gn.ID] || !nodeMatches(pn, gn) {
			continue
		}
		bound[pn.CaptureID] = gn.ID
		used[gn.ID] = true
		if edgesConsistent(g, p, bound) {
			m.search(g, p, idx+1, bound, used, out)
		}
		delete(bound, pn.CaptureID)
		delete(used, gn.ID)
	}
}

func nodeMatches(pn Node, gn *computegraph.Node) bool {
	if gn.Kind != pn.Kind {
		return false
	}
	if pn.AnyOpCode {
		return true
	}
	return gn.OpCode == pn.OpCode
}

// edgesConsistent checks every pattern edge whose two endpoints are bound.
// Edges with an unbound endpoint are deferred to a deeper search level.
func edgesConsistent(g *computegraph.Graph, p *Pattern, bound Bindings) bool {
	for _, pe := range p.Edges {
		from, okF := bound[pe.From]
		to, okT := bound[pe.To]
		if !okF || !okT {
			continue
		}
		if !hasEdge(g, from, to, pe.Kind) {
			return false
		}
	}
	return true
}

func hasEdge(g *computegraph.Graph, from, to computegraph.NodeID, kind computegraph.EdgeKind) bool {
	for _, e := range g.EdgesFrom(from) {
		if e.To == to && e.Kind == kind {
			return true
		}
	}
	return false
}

// ApplyRewrite runs the named pattern's rewrite on one binding set and
// returns the rewritten graph. Patterns without a rewrite return an
// untouched copy, so callers can treat the result uniformly.
func (m *Matcher) ApplyRewrite(g *computegraph.Graph, name string, b Bindings) *computegraph.Graph {
	p, ok := m.patterns[name]
	if !ok || g == nil {
		return nil
	}
	if p.Rewrite == nil {
		return g.Clone()
	}
	return p.Rewrite(g, b)
}

// MulAddPattern matches a multiply feeding an add through its rhs slot —
// the fused-multiply-add seed the downstream vectorizer looks for first.
func MulAddPattern() *Pattern {
	return &Pattern{
		Name: "mul_add",
		Nodes: []Node{
			{CaptureID: "mul", Kind: computegraph.KindBinaryOp, OpCode: anchor.OpMul},
			{CaptureID: "add", Kind: computegraph.KindBinaryOp, OpCode: anchor.OpAdd},
		},
		Edges: []Edge{
			{From: "mul", To: "add", Kind: computegraph.EdgeDataFlow},
		},
	}
}

// ReductionPattern matches a loop-carried accumulation: an add whose result
// feeds back into one of its own operands across iterations.
func ReductionPattern() *Pattern {
	return &Pattern{
		Name: "reduction",
		Nodes: []Node{
			{CaptureID: "acc", Kind: computegraph.KindBinaryOp, OpCode: anchor.OpAdd},
			{CaptureID: "carry", Kind: computegraph.KindVariable, AnyOpCode: true},
		},
		Edges: []Edge{
			{From: "carry", To: "acc", Kind: computegraph.EdgeDataFlow},
			{From: "acc", To: "carry", Kind: computegraph.EdgeLoopCarried},
		},
	}
}
