package pdg

import (
	"testing"

	"github.com/cpggen/cpggen/pkg/frontend"
)

const flowSource = `
int clamp_sum(int a, int b, int lo, int hi) {
    int total = a + b;
    if (total < lo) {
        total = lo;
    } else if (total > hi) {
        total = hi;
    }
    return total;
}
`

func parseFunc(t *testing.T, src, name string) *frontend.Func {
	t.Helper()
	tu, err := frontend.ParseSource("fixture.c", []byte(src))
	if err != nil {
		t.Fatalf("ParseSource failed: %v", err)
	}
	t.Cleanup(tu.Close)
	for _, fn := range tu.Funcs {
		if fn.Name == name {
			return fn
		}
	}
	t.Fatalf("function %q not found", name)
	return nil
}

func TestBuildComputesFlowDependency(t *testing.T) {
	fn := parseFunc(t, flowSource, "clamp_sum")
	fp := Build(fn, 0)

	var flowDeps int
	for _, n := range fp.Nodes {
		for _, d := range n.DataDeps {
			if d.Kind == DepFlow && d.VarName == "total" {
				flowDeps++
			}
		}
	}
	if flowDeps == 0 {
		t.Fatal("expected at least one Flow dependency on total")
	}
}

func TestBuildComputesControlDependency(t *testing.T) {
	fn := parseFunc(t, flowSource, "clamp_sum")
	fp := Build(fn, 0)

	var controlDeps int
	for _, n := range fp.Nodes {
		controlDeps += len(n.ControlDeps)
	}
	if controlDeps == 0 {
		t.Fatal("expected at least one control dependency under the if/else-if")
	}
}

func TestPostDominatorsIncludeSelf(t *testing.T) {
	fn := parseFunc(t, flowSource, "clamp_sum")
	fp := Build(fn, 0)

	for _, b := range fp.CFG.Blocks {
		if !fp.PostDominators[b][b] {
			t.Fatalf("block %s should post-dominate itself", b.ID)
		}
	}
}

func TestExitPostDominatesOnlyItself(t *testing.T) {
	fn := parseFunc(t, flowSource, "clamp_sum")
	fp := Build(fn, 0)

	exit := fp.CFG.ExitSet[0]
	if len(fp.PostDominators[exit]) != 1 {
		t.Fatalf("exit block should post-dominate only itself, got %d blocks", len(fp.PostDominators[exit]))
	}
}

func TestGenUseForAssignment(t *testing.T) {
	fn := parseFunc(t, flowSource, "clamp_sum")
	cfg := frontend.BuildCFG(fn)

	found := false
	for _, b := range cfg.Blocks {
		for _, stmt := range b.Statements {
			gen, use := genUse(stmt, fn.TU.Content)
			if gen["total"] && use["lo"] {
				found = true
			}
		}
	}
	if !found {
		t.Fatal("expected a statement assigning total with use of lo")
	}
}

func TestBuildSetCoversAllFunctions(t *testing.T) {
	tu, err := frontend.ParseSource("fixture.c", []byte(flowSource))
	if err != nil {
		t.Fatalf("ParseSource failed: %v", err)
	}
	defer tu.Close()

	set := BuildSet(tu.Funcs, 0)
	if len(set.Funcs) != len(tu.Funcs) {
		t.Fatalf("expected %d function PDGs, got %d", len(tu.Funcs), len(set.Funcs))
	}
}
