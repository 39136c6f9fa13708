package patternmatch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cpggen/cpggen/pkg/anchor"
	"github.com/cpggen/cpggen/pkg/computegraph"
)

// fixtureGraph builds the accumulator shape: a*b feeding sum += ..., with
// the loop-carried back-edge on sum.
func fixtureGraph() *computegraph.Graph {
	g := computegraph.NewGraph()

	a := g.NewNode(computegraph.KindVariable)
	a.Name = "a"
	b := g.NewNode(computegraph.KindVariable)
	b.Name = "b"
	mul := g.NewNode(computegraph.KindBinaryOp)
	mul.OpCode = anchor.OpMul
	sum := g.NewNode(computegraph.KindVariable)
	sum.Name = "sum"
	acc := g.NewNode(computegraph.KindBinaryOp)
	acc.OpCode = anchor.OpAdd

	g.AddEdge(a.ID, mul.ID, computegraph.EdgeDataFlow, "lhs")
	g.AddEdge(b.ID, mul.ID, computegraph.EdgeDataFlow, "rhs")
	g.AddEdge(mul.ID, acc.ID, computegraph.EdgeDataFlow, "rhs")
	g.AddEdge(sum.ID, acc.ID, computegraph.EdgeDataFlow, "lhs_read")
	g.AddEdge(acc.ID, sum.ID, computegraph.EdgeLoopCarried, "sum (next iter)")
	return g
}

func TestFindMatchesMulAdd(t *testing.T) {
	m := New()
	m.Register(MulAddPattern())

	g := fixtureGraph()
	matches := m.FindMatches(g, "mul_add")
	require.Len(t, matches, 1)

	mul := g.Node(matches[0]["mul"])
	add := g.Node(matches[0]["add"])
	require.NotNil(t, mul)
	require.NotNil(t, add)
	assert.Equal(t, anchor.OpMul, mul.OpCode)
	assert.Equal(t, anchor.OpAdd, add.OpCode)
}

func TestFindMatchesReduction(t *testing.T) {
	m := New()
	m.Register(ReductionPattern())

	matches := m.FindMatches(fixtureGraph(), "reduction")
	require.Len(t, matches, 1)
	assert.Contains(t, matches[0], "acc")
	assert.Contains(t, matches[0], "carry")
}

func TestFindMatchesUnknownPatternIsEmpty(t *testing.T) {
	m := New()
	assert.Empty(t, m.FindMatches(fixtureGraph(), "no_such_pattern"))
}

func TestFindMatchesNoBindings(t *testing.T) {
	m := New()
	m.Register(MulAddPattern())

	g := computegraph.NewGraph()
	g.NewNode(computegraph.KindVariable)
	assert.Empty(t, m.FindMatches(g, "mul_add"))
}

func TestEdgeKindMustMatch(t *testing.T) {
	m := New()
	m.Register(&Pattern{
		Name: "mul_add_control",
		Nodes: []Node{
			{CaptureID: "mul", Kind: computegraph.KindBinaryOp, OpCode: anchor.OpMul},
			{CaptureID: "add", Kind: computegraph.KindBinaryOp, OpCode: anchor.OpAdd},
		},
		Edges: []Edge{
			{From: "mul", To: "add", Kind: computegraph.EdgeControl},
		},
	})
	// the fixture's mul->add edge is DataFlow, not Control
	assert.Empty(t, m.FindMatches(fixtureGraph(), "mul_add_control"))
}

func TestApplyRewriteWithoutRewriteClones(t *testing.T) {
	m := New()
	m.Register(MulAddPattern())

	g := fixtureGraph()
	matches := m.FindMatches(g, "mul_add")
	require.Len(t, matches, 1)

	out := m.ApplyRewrite(g, "mul_add", matches[0])
	require.NotNil(t, out)
	assert.NotSame(t, g, out)
	assert.Equal(t, g.CanonicalSignature(), out.CanonicalSignature())
}

func TestApplyRewriteRunsRegisteredRewrite(t *testing.T) {
	m := New()
	p := MulAddPattern()
	p.Rewrite = func(g *computegraph.Graph, b Bindings) *computegraph.Graph {
		out := g.Clone()
		fma := out.NewNode(computegraph.KindIntrinsicCall)
		fma.Name = "fma"
		return out
	}
	m.Register(p)

	g := fixtureGraph()
	matches := m.FindMatches(g, "mul_add")
	require.Len(t, matches, 1)

	out := m.ApplyRewrite(g, "mul_add", matches[0])
	require.NotNil(t, out)
	assert.Len(t, out.Nodes(), len(g.Nodes())+1)
}
