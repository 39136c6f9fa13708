package dot

import (
	"strings"
	"testing"

	"github.com/cpggen/cpggen/pkg/computegraph"
	"github.com/cpggen/cpggen/pkg/frontend"
	"github.com/cpggen/cpggen/pkg/icfg"
	"github.com/cpggen/cpggen/pkg/pdg"
)

func TestComputeGraphRendersDemoGraph(t *testing.T) {
	g := computegraph.BF16Demo()
	out := ComputeGraph(g)

	if !strings.HasPrefix(out, "digraph ComputeGraph {") {
		t.Fatalf("unexpected DOT prefix: %q", out[:40])
	}
	for _, want := range []string{
		"n1 [",
		"★ IN LOOP[1] var=i @L2",
		"color=blue",
		"color=brown, style=dashed, constraint=false",
		"fillcolor=gold",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("DOT output missing %q", want)
		}
	}

	wantTitle := "12 nodes, 14 edges"
	if !strings.Contains(out, wantTitle) {
		t.Errorf("title should carry node/edge counts %q", wantTitle)
	}
}

func TestComputeGraphOutputIsReproducible(t *testing.T) {
	a := ComputeGraph(computegraph.BF16Demo())
	b := ComputeGraph(computegraph.BF16Demo())
	if a != b {
		t.Fatal("two renders of the same graph must be byte-identical")
	}
}

func TestComputeGraphEscapesRecordCharacters(t *testing.T) {
	g := computegraph.NewGraph()
	n := g.NewNode(computegraph.KindUnknown)
	n.Name = "a|b{c}"
	out := ComputeGraph(g)
	if strings.Contains(out, " a|b{c}") {
		t.Error("record special characters must be escaped")
	}
	if !strings.Contains(out, `a\|b\{c\}`) {
		t.Error("expected escaped name in output")
	}
}

const source = `
int max(int a, int b) {
    if (a > b) {
        return a;
    }
    return b;
}
`

func buildFixture(t *testing.T) (*frontend.Func, *icfg.Graph, *pdg.Set) {
	t.Helper()
	tu, err := frontend.ParseSource("fixture.c", []byte(source))
	if err != nil {
		t.Fatalf("ParseSource failed: %v", err)
	}
	t.Cleanup(tu.Close)
	if len(tu.Funcs) == 0 {
		t.Fatal("no functions parsed")
	}
	return tu.Funcs[0], icfg.Build(tu.Funcs), pdg.BuildSet(tu.Funcs, 0)
}

func TestICFGRendersFunctionNodes(t *testing.T) {
	fn, g, _ := buildFixture(t)
	out := ICFG(g, fn)

	if !strings.Contains(out, "ICFG: max") {
		t.Error("ICFG title should carry the function name")
	}
	for _, kind := range []string{"Entry", "Exit"} {
		if !strings.Contains(out, kind) {
			t.Errorf("ICFG output missing %s node", kind)
		}
	}
}

func TestPDGRendersDependencies(t *testing.T) {
	fn, _, p := buildFixture(t)
	fp, ok := p.Funcs[fn.QualifiedName]
	if !ok {
		t.Fatal("no PDG built for max")
	}
	out := PDG(fp)

	if !strings.Contains(out, "PDG: max") {
		t.Error("PDG title should carry the function name")
	}
	if !strings.Contains(out, "digraph PDG {") {
		t.Error("expected a PDG digraph")
	}
}
