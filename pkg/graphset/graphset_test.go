package graphset

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/cpggen/cpggen/pkg/anchor"
	"github.com/cpggen/cpggen/pkg/computegraph"
	"github.com/cpggen/cpggen/pkg/frontend"
)

func mulAddGraph(line int) *computegraph.Graph {
	g := computegraph.NewGraph()
	g.AnchorLine = line
	g.Score = line

	a := g.NewNode(computegraph.KindVariable)
	a.Name = "a"
	b := g.NewNode(computegraph.KindVariable)
	b.Name = "b"
	mul := g.NewNode(computegraph.KindBinaryOp)
	mul.OpCode = anchor.OpMul
	acc := g.NewNode(computegraph.KindBinaryOp)
	acc.OpCode = anchor.OpAdd
	acc.IsAnchor = true

	g.AddEdge(a.ID, mul.ID, computegraph.EdgeDataFlow, "lhs")
	g.AddEdge(b.ID, mul.ID, computegraph.EdgeDataFlow, "rhs")
	g.AddEdge(mul.ID, acc.ID, computegraph.EdgeDataFlow, "rhs")
	return g
}

func TestDeduplicateDropsIsomorphicGraphs(t *testing.T) {
	s := New()
	s.Add(mulAddGraph(10))
	s.Add(mulAddGraph(20)) // different anchor line, identical shape
	s.Deduplicate()
	assert.Equal(t, 1, s.Len(), "isomorphic graphs should collapse to one")
}

func TestDeduplicateIsIdempotent(t *testing.T) {
	s := New()
	s.Add(mulAddGraph(10))
	s.Add(mulAddGraph(10))
	s.Add(mulAddGraph(30))
	s.Deduplicate()
	first := s.Len()
	s.Deduplicate()
	assert.Equal(t, first, s.Len(), "second deduplicate must be a no-op")
}

func TestDeduplicateKeepsFirstPerAnchorLocation(t *testing.T) {
	s := New()
	g1 := mulAddGraph(10)
	g2 := mulAddGraph(10)
	g2.NewNode(computegraph.KindConstant) // different shape, same anchor
	s.Add(g1)
	s.Add(g2)
	s.Deduplicate()
	require.Equal(t, 1, s.Len())
	assert.Same(t, g1, s.Graphs()[0], "first graph at an anchor location wins")
}

func TestSortByScoreDescending(t *testing.T) {
	s := New()
	s.Add(mulAddGraph(10))
	s.Add(mulAddGraph(300))
	s.Add(mulAddGraph(20))
	s.SortByScore()
	scores := []int{}
	for _, g := range s.Graphs() {
		scores = append(scores, g.Score)
	}
	assert.Equal(t, []int{300, 20, 10}, scores)
}

const overlapSource = `
int f(int n, int* a) {
    int sum = 0;
    for (int i = 0; i < n; i++) {
        sum += a[i] * 2;
    }
    return sum;
}
`

// twoGraphsSharingAStatement hand-builds two graphs whose nodes reference
// the same parsed AST statement, the merge trigger MergeOverlapping uses.
func twoGraphsSharingAStatement(t *testing.T) (*computegraph.Graph, *computegraph.Graph) {
	t.Helper()
	tu, err := frontend.ParseSource("fixture.c", []byte(overlapSource))
	require.NoError(t, err)
	t.Cleanup(tu.Close)
	require.NotEmpty(t, tu.Funcs)
	fn := tu.Funcs[0]
	stmts := frontend.DirectChildren(fn.Body)
	require.GreaterOrEqual(t, len(stmts), 2)

	g1 := computegraph.NewGraph()
	g1.AnchorFunc = fn
	g1.Score = 100
	shared1 := g1.NewNode(computegraph.KindVariable)
	shared1.AST = stmts[0]
	shared1.Name = "sum"
	own1 := g1.NewNode(computegraph.KindConstant)
	own1.Name = "0"
	g1.AddEdge(own1.ID, shared1.ID, computegraph.EdgeDataFlow, "init")

	g2 := computegraph.NewGraph()
	g2.AnchorFunc = fn
	g2.Score = 50
	shared2 := g2.NewNode(computegraph.KindVariable)
	shared2.AST = stmts[0]
	shared2.Name = "sum"
	own2 := g2.NewNode(computegraph.KindBinaryOp)
	own2.OpCode = anchor.OpAdd
	g2.AddEdge(own2.ID, shared2.ID, computegraph.EdgeDataFlow, "sum")

	return g1, g2
}

func TestMergeReusesNodesBySharedStatement(t *testing.T) {
	g1, g2 := twoGraphsSharingAStatement(t)
	merged := Merge(g1, g2)

	// 2 nodes in g1 + 1 unshared node from g2
	assert.Len(t, merged.Nodes(), 3)
	assert.Len(t, merged.Edges(), 2)
	assert.Equal(t, 100, merged.Score, "merge keeps the higher score")
}

func TestMergeOverlappingCollapsesSharingGraphs(t *testing.T) {
	g1, g2 := twoGraphsSharingAStatement(t)
	s := New()
	s.Add(g1)
	s.Add(g2)
	s.MergeOverlapping()
	require.Equal(t, 1, s.Len())
	assert.Len(t, s.Graphs()[0].Nodes(), 3)
}

func TestMergeAssociativeUpToIsomorphism(t *testing.T) {
	build := func() (*computegraph.Graph, *computegraph.Graph, *computegraph.Graph) {
		g1, g2 := twoGraphsSharingAStatement(t)
		g3 := computegraph.NewGraph()
		shared := g3.NewNode(computegraph.KindVariable)
		shared.AST = g1.Nodes()[0].AST
		shared.Name = "sum"
		ret := g3.NewNode(computegraph.KindReturn)
		g3.AddEdge(shared.ID, ret.ID, computegraph.EdgeDataFlow, "child")
		return g1, g2, g3
	}

	a1, b1, c1 := build()
	left := Merge(Merge(a1, b1), c1)
	a2, b2, c2 := build()
	right := Merge(a2, Merge(b2, c2))

	assert.Equal(t, left.CanonicalSignature(), right.CanonicalSignature())
}

func TestExportRoundTripsGraphCount(t *testing.T) {
	s := New()
	s.Add(mulAddGraph(10))
	s.Add(mulAddGraph(20))

	var buf bytes.Buffer
	require.NoError(t, s.Export(&buf))

	dec := msgpack.NewDecoder(&buf)
	var count int
	require.NoError(t, dec.Decode(&count))
	assert.Equal(t, 2, count)

	var rec map[string]interface{}
	require.NoError(t, dec.Decode(&rec))
	assert.EqualValues(t, 10, rec["line"])
}
