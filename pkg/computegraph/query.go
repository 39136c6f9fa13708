package computegraph

import (
	"sort"
	"strconv"
	"strings"
)

// NewGraph returns an empty compute graph, for callers outside the builder
// (the graph-set merger, the pattern matcher's rewrites, the BF16 demo).
func NewGraph() *Graph {
	return &Graph{}
}

// NewNode allocates the next node in the arena. IDs are dense, start at 1,
// and are never reused within one graph.
func (g *Graph) NewNode(kind NodeKind) *Node {
	return g.newNode(kind)
}

// Clone deep-copies the graph. Node and edge values are copied; the AST and
// Func references inside them still point at the shared translation unit,
// which is fine — those are read-only for the graph's whole lifetime.
func (g *Graph) Clone() *Graph {
	out := &Graph{
		AnchorFunc: g.AnchorFunc,
		AnchorLine: g.AnchorLine,
		Score:      g.Score,
		Template:   g.Template,
		nodes:      make([]*Node, len(g.nodes)),
		edges:      make([]*Edge, len(g.edges)),
	}
	for i, n := range g.nodes {
		cp := *n
		out.nodes[i] = &cp
	}
	for i, e := range g.edges {
		cp := *e
		out.edges[i] = &cp
	}
	return out
}

// TopologicalSort orders the nodes so that every edge's source precedes its
// target. LoopCarried edges are the graph's sanctioned back-edges and are
// ignored here; any residual cycle (malformed input) is broken by appending
// the remaining nodes in ID order, so the result is always a permutation of
// Nodes().
func (g *Graph) TopologicalSort() []*Node {
	indeg := make(map[NodeID]int, len(g.nodes))
	succs := make(map[NodeID][]NodeID, len(g.nodes))
	for _, n := range g.nodes {
		indeg[n.ID] = 0
	}
	for _, e := range g.edges {
		if e.Kind == EdgeLoopCarried {
			continue
		}
		succs[e.From] = append(succs[e.From], e.To)
		indeg[e.To]++
	}

	var ready []NodeID
	for _, n := range g.nodes {
		if indeg[n.ID] == 0 {
			ready = append(ready, n.ID)
		}
	}

	var order []*Node
	emitted := make(map[NodeID]bool, len(g.nodes))
	for len(ready) > 0 {
		sort.Slice(ready, func(i, j int) bool { return ready[i] < ready[j] })
		id := ready[0]
		ready = ready[1:]
		if emitted[id] {
			continue
		}
		emitted[id] = true
		order = append(order, g.Node(id))
		for _, s := range succs[id] {
			indeg[s]--
			if indeg[s] == 0 {
				ready = append(ready, s)
			}
		}
	}
	for _, n := range g.nodes {
		if !emitted[n.ID] {
			order = append(order, n)
		}
	}
	return order
}

// Roots returns the nodes with no incoming non-LoopCarried edges.
func (g *Graph) Roots() []*Node {
	hasIn := map[NodeID]bool{}
	for _, e := range g.edges {
		if e.Kind != EdgeLoopCarried {
			hasIn[e.To] = true
		}
	}
	var out []*Node
	for _, n := range g.nodes {
		if !hasIn[n.ID] {
			out = append(out, n)
		}
	}
	return out
}

// Leaves returns the nodes with no outgoing non-LoopCarried edges.
func (g *Graph) Leaves() []*Node {
	hasOut := map[NodeID]bool{}
	for _, e := range g.edges {
		if e.Kind != EdgeLoopCarried {
			hasOut[e.From] = true
		}
	}
	var out []*Node
	for _, n := range g.nodes {
		if !hasOut[n.ID] {
			out = append(out, n)
		}
	}
	return out
}

// Subgraph extracts the induced subgraph over keep: the kept nodes (copied,
// with fresh dense IDs) plus every edge whose two endpoints are both kept.
func (g *Graph) Subgraph(keep map[NodeID]bool) *Graph {
	out := &Graph{AnchorFunc: g.AnchorFunc, AnchorLine: g.AnchorLine, Score: g.Score, Template: g.Template}
	remap := make(map[NodeID]NodeID, len(keep))
	for _, n := range g.nodes {
		if !keep[n.ID] {
			continue
		}
		cp := *n
		nn := out.newNode(n.Kind)
		id := nn.ID
		*nn = cp
		nn.ID = id
		remap[n.ID] = id
	}
	for _, e := range g.edges {
		from, okF := remap[e.From]
		to, okT := remap[e.To]
		if okF && okT {
			out.AddEdge(from, to, e.Kind, e.Label)
		}
	}
	return out
}

// CanonicalSignature flattens the graph into a comparable string: the
// topological order's (kind, opcode) pairs joined by ";", a "|" separator,
// then every edge as "src->tgt:kind;". Two isomorphic builds of the same
// source produce equal signatures.
func (g *Graph) CanonicalSignature() string {
	var sb strings.Builder
	for _, n := range g.TopologicalSort() {
		sb.WriteString(n.Kind.String())
		sb.WriteByte(',')
		sb.WriteString(strconv.Itoa(int(n.OpCode)))
		sb.WriteByte(';')
	}
	sb.WriteByte('|')
	for _, e := range g.edges {
		sb.WriteString(strconv.Itoa(int(e.From)))
		sb.WriteString("->")
		sb.WriteString(strconv.Itoa(int(e.To)))
		sb.WriteByte(':')
		sb.WriteString(e.Kind.String())
		sb.WriteByte(';')
	}
	return sb.String()
}
