package computegraph

import (
	"testing"

	"github.com/cpggen/cpggen/pkg/anchor"
	"github.com/cpggen/cpggen/pkg/frontend"
	"github.com/cpggen/cpggen/pkg/icfg"
	"github.com/cpggen/cpggen/pkg/pdg"
	"github.com/cpggen/cpggen/pkg/query"
)

const dotSource = `
int dot(int n, int* a, int* b) {
    int sum = 0;
    for (int i = 0; i < n; i++) {
        sum += a[i] * b[i];
    }
    return sum;
}
`

const callerSource = `
int helper(int x, int k) {
    return x + k;
}

int use_helper(int n) {
    int total = 0;
    for (int i = 0; i < n; i++) {
        total += helper(i, 2);
    }
    return total;
}
`

func buildAll(t *testing.T, src string) (*frontend.TranslationUnit, *Builder) {
	t.Helper()
	tu, err := frontend.ParseSource("fixture.c", []byte(src))
	if err != nil {
		t.Fatalf("ParseSource failed: %v", err)
	}
	t.Cleanup(tu.Close)

	g := icfg.Build(tu.Funcs)
	p := pdg.BuildSet(tu.Funcs, 0)
	q := query.New(tu.Funcs, g, p)
	b := New(g, q, DefaultLimits())
	return tu, b
}

func findFn(tu *frontend.TranslationUnit, name string) *frontend.Func {
	for _, fn := range tu.Funcs {
		if fn.Name == name {
			return fn
		}
	}
	return nil
}

func TestBuildFromAnchorProducesConnectedGraph(t *testing.T) {
	tu, b := buildAll(t, dotSource)
	fn := findFn(tu, "dot")
	if fn == nil {
		t.Fatal("dot not found")
	}

	f := anchor.NewFinder()
	anchors := f.FilterAndRank(f.FindAnchorsInFunction(fn), 0)
	if len(anchors) == 0 {
		t.Fatal("expected at least one anchor in dot")
	}

	graph := b.BuildFromAnchor(anchors[0])
	if len(graph.Nodes()) == 0 {
		t.Fatal("expected a non-empty compute graph")
	}

	var foundAnchor, foundLoop, foundArray bool
	for _, n := range graph.Nodes() {
		if n.IsAnchor {
			foundAnchor = true
		}
		if n.Kind == KindLoop {
			foundLoop = true
		}
		if n.Kind == KindArrayAccess {
			foundArray = true
		}
	}
	if !foundAnchor {
		t.Error("expected one node flagged IsAnchor")
	}
	if !foundLoop {
		t.Error("expected a Loop node for the containing for-loop")
	}
	if !foundArray {
		t.Error("expected ArrayAccess nodes for a[i] and b[i]")
	}

	var loopEdges int
	for _, e := range graph.Edges() {
		if e.Kind == EdgeControl && e.Label == "loop_body" {
			loopEdges++
		}
	}
	if loopEdges == 0 {
		t.Error("expected a loop_body Control edge from the Loop node to the anchor")
	}
}

func TestBuildFromAnchorInlinesCallee(t *testing.T) {
	tu, b := buildAll(t, callerSource)
	fn := findFn(tu, "use_helper")
	if fn == nil {
		t.Fatal("use_helper not found")
	}

	f := anchor.NewFinder()
	anchors := f.FilterAndRank(f.FindAnchorsInFunction(fn), 0)
	if len(anchors) == 0 {
		t.Fatal("expected an anchor in use_helper")
	}

	graph := b.BuildFromAnchor(anchors[0])

	var callNode *Node
	for _, n := range graph.Nodes() {
		if n.Kind == KindCall && n.CalleeName == "helper" {
			callNode = n
		}
	}
	if callNode == nil {
		t.Fatal("expected a Call node for helper(i, 2)")
	}
	if !callNode.CalleeAnalyzed {
		t.Error("expected the call node to be marked CalleeAnalyzed")
	}
	if callNode.ReturnNodeID == 0 {
		t.Error("expected helper's body to be inlined and wired back via ReturnNodeID")
	}

	var sawReturnEdge, sawParamEdge bool
	for _, e := range graph.Edges() {
		if e.Kind == EdgeReturn && e.To == callNode.ID && e.Label == "return" {
			sawReturnEdge = true
		}
		if e.Kind == EdgeCall && e.Label == "param_0" {
			sawParamEdge = true
		}
	}
	if !sawReturnEdge {
		t.Error(`expected a Return edge into the call node labelled "return"`)
	}
	if !sawParamEdge {
		t.Error(`expected the actual argument wired to the formal with a "param_0" Call edge`)
	}
}

const unionSource = `
float unpack_scale(int bits) {
    union Pun { int i; float f; } u;
    u.i = bits * 8;
    float v = u.f;
    return v;
}
`

func TestBuildFromAnchorWiresUnionAliases(t *testing.T) {
	tu, b := buildAll(t, unionSource)
	fn := findFn(tu, "unpack_scale")
	if fn == nil {
		t.Fatal("unpack_scale not found")
	}

	f := anchor.NewFinder()
	anchors := f.FilterAndRank(f.FindAnchorsInFunction(fn), 0)
	if len(anchors) == 0 {
		t.Fatal("expected an anchor at u.i = bits * 8")
	}

	graph := b.BuildFromAnchor(anchors[0])

	var ui, uf *Node
	for _, n := range graph.Nodes() {
		if n.Kind != KindMemberAccess || !n.IsUnionMember {
			continue
		}
		switch n.Name {
		case "u.i":
			ui = n
		case "u.f":
			uf = n
		}
	}
	if ui == nil || uf == nil {
		t.Fatalf("expected MemberAccess nodes for both u.i and u.f, got ui=%v uf=%v", ui, uf)
	}
	if ui.UnionVar != "u" || uf.UnionVar != "u" {
		t.Errorf("expected UnionVar=u on both members, got %q and %q", ui.UnionVar, uf.UnionVar)
	}
	if !ui.IsAssignTarget {
		t.Error("expected u.i to be flagged as the assignment target")
	}

	var sawAlias, sawMemberDef bool
	for _, e := range graph.Edges() {
		if e.Kind == EdgeMemory && e.From == ui.ID && e.To == uf.ID && e.Label == "union(i->f)" {
			sawAlias = true
		}
		if e.Kind == EdgeDataFlow && e.From == ui.ID && e.To == uf.ID && e.Label == "u.i -> f" {
			sawMemberDef = true
		}
	}
	if !sawAlias {
		t.Error(`expected a directed Memory edge u.i -> u.f labelled "union(i->f)"`)
	}
	if !sawMemberDef {
		t.Error(`expected a DataFlow edge u.i -> u.f labelled "u.i -> f" from the sibling-member write`)
	}
}

func TestDefaultLimitsMatchConfiguredDefaults(t *testing.T) {
	l := DefaultLimits()
	if l.MaxExprDepth != 20 || l.MaxBackwardDepth != 10 || l.MaxForwardDepth != 5 || l.MaxCallDepth != 3 {
		t.Fatalf("unexpected default limits: %+v", l)
	}
	if !l.EnableInterprocedural {
		t.Fatal("expected interprocedural analysis enabled by default")
	}
}

func TestAddEdgeDedupesIdenticalEdges(t *testing.T) {
	g := &Graph{}
	a := g.newNode(KindVariable)
	c := g.newNode(KindVariable)
	g.AddEdge(a.ID, c.ID, EdgeDataFlow, "x")
	g.AddEdge(a.ID, c.ID, EdgeDataFlow, "x")
	if len(g.Edges()) != 1 {
		t.Fatalf("expected duplicate edge to be skipped, got %d edges", len(g.Edges()))
	}
}
