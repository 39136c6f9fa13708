package computegraph

import (
	"testing"
)

func TestTopologicalSortRespectsEdges(t *testing.T) {
	g := BF16Demo()
	order := g.TopologicalSort()
	if len(order) != len(g.Nodes()) {
		t.Fatalf("topological sort must be a permutation: got %d of %d nodes", len(order), len(g.Nodes()))
	}

	pos := map[NodeID]int{}
	for i, n := range order {
		pos[n.ID] = i
	}
	for _, e := range g.Edges() {
		if e.Kind == EdgeLoopCarried {
			continue
		}
		if pos[e.From] >= pos[e.To] {
			t.Errorf("edge %d->%d (%s) violates topological order", e.From, e.To, e.Kind)
		}
	}
}

func TestTopologicalSortPlacesLoopBeforeBody(t *testing.T) {
	g := BF16Demo()
	order := g.TopologicalSort()
	pos := map[NodeID]int{}
	for i, n := range order {
		pos[n.ID] = i
	}
	for _, n := range g.Nodes() {
		if n.LoopContextID == 0 {
			continue
		}
		if pos[n.LoopContextID] >= pos[n.ID] {
			t.Errorf("loop container %d must precede its content node %d", n.LoopContextID, n.ID)
		}
	}
}

func TestCanonicalSignatureStable(t *testing.T) {
	a := BF16Demo().CanonicalSignature()
	b := BF16Demo().CanonicalSignature()
	if a != b {
		t.Fatal("two builds of the same graph must have equal signatures")
	}
	if a == "" {
		t.Fatal("signature must not be empty")
	}
}

func TestCloneIsDeepForNodesAndEdges(t *testing.T) {
	g := BF16Demo()
	c := g.Clone()

	c.Nodes()[0].Name = "mutated"
	if g.Nodes()[0].Name == "mutated" {
		t.Error("mutating a clone's node must not affect the original")
	}
	c.Edges()[0].Label = "mutated"
	if g.Edges()[0].Label == "mutated" {
		t.Error("mutating a clone's edge must not affect the original")
	}
}

func TestRootsAndLeaves(t *testing.T) {
	g := NewGraph()
	a := g.NewNode(KindVariable)
	b := g.NewNode(KindBinaryOp)
	c := g.NewNode(KindReturn)
	g.AddEdge(a.ID, b.ID, EdgeDataFlow, "lhs")
	g.AddEdge(b.ID, c.ID, EdgeDataFlow, "child")

	roots := g.Roots()
	if len(roots) != 1 || roots[0].ID != a.ID {
		t.Errorf("expected single root %d, got %v", a.ID, roots)
	}
	leaves := g.Leaves()
	if len(leaves) != 1 || leaves[0].ID != c.ID {
		t.Errorf("expected single leaf %d, got %v", c.ID, leaves)
	}
}

func TestSubgraphKeepsInducedEdges(t *testing.T) {
	g := NewGraph()
	a := g.NewNode(KindVariable)
	b := g.NewNode(KindBinaryOp)
	c := g.NewNode(KindReturn)
	g.AddEdge(a.ID, b.ID, EdgeDataFlow, "lhs")
	g.AddEdge(b.ID, c.ID, EdgeDataFlow, "child")

	sub := g.Subgraph(map[NodeID]bool{a.ID: true, b.ID: true})
	if len(sub.Nodes()) != 2 {
		t.Fatalf("expected 2 nodes, got %d", len(sub.Nodes()))
	}
	if len(sub.Edges()) != 1 {
		t.Fatalf("expected only the induced a->b edge, got %d edges", len(sub.Edges()))
	}
}

func TestRemoveDataFlowExceptLeavesSingleEdge(t *testing.T) {
	g := NewGraph()
	init := g.NewNode(KindVariable)
	loop := g.NewNode(KindLoop)
	other := g.NewNode(KindBinaryOp)
	g.AddEdge(init.ID, other.ID, EdgeDataFlow, "spurious")
	g.AddEdge(init.ID, loop.ID, EdgeDataFlow, "init:i")
	g.AddEdge(init.ID, other.ID, EdgeControl, "cfg")

	g.removeDataFlowExcept(init.ID, loop.ID)

	var dataOut []*Edge
	for _, e := range g.EdgesFrom(init.ID) {
		if e.Kind == EdgeDataFlow {
			dataOut = append(dataOut, e)
		}
	}
	if len(dataOut) != 1 || dataOut[0].To != loop.ID {
		t.Fatalf("expected the initializer to keep exactly one DataFlow edge into the loop, got %v", dataOut)
	}
}

func TestBF16DemoProducesPhiAndLoopInduction(t *testing.T) {
	g := BF16Demo()
	var phi, induction bool
	for _, n := range g.Nodes() {
		switch n.Kind {
		case KindPhi:
			phi = true
		case KindLoopInduction:
			induction = true
		}
	}
	if !phi || !induction {
		t.Fatal("demo graph must contain the Phi and LoopInduction kinds")
	}

	anchors := 0
	for _, n := range g.Nodes() {
		if n.IsAnchor {
			anchors++
		}
	}
	if anchors != 1 {
		t.Fatalf("expected exactly one anchor node, got %d", anchors)
	}
}
