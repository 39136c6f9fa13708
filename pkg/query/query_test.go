package query

import (
	"testing"

	"github.com/cpggen/cpggen/pkg/frontend"
	"github.com/cpggen/cpggen/pkg/icfg"
	"github.com/cpggen/cpggen/pkg/pdg"
)

const clampSource = `
int clamp(int x, int lo, int hi) {
    int result = x;
    if (result < lo) {
        result = lo;
    } else if (result > hi) {
        result = hi;
    }
    return result;
}

int caller(int v) {
    int out = clamp(v, 0, 100);
    return out;
}
`

func buildEngine(t *testing.T, src string) (*Engine, *frontend.TranslationUnit) {
	t.Helper()
	tu, err := frontend.ParseSource("fixture.c", []byte(src))
	if err != nil {
		t.Fatalf("ParseSource failed: %v", err)
	}
	t.Cleanup(tu.Close)

	g := icfg.Build(tu.Funcs)
	set := pdg.BuildSet(tu.Funcs, 0)
	return New(tu.Funcs, g, set), tu
}

func findFunc(tu *frontend.TranslationUnit, name string) *frontend.Func {
	for _, fn := range tu.Funcs {
		if fn.Name == name {
			return fn
		}
	}
	return nil
}

func TestDefsOfAndUsesOf(t *testing.T) {
	e, tu := buildEngine(t, clampSource)
	clamp := findFunc(tu, "clamp")

	defs := e.DefsOf(clamp, "result")
	if len(defs) == 0 {
		t.Fatal("expected at least one definition of result")
	}

	uses := e.UsesOf(clamp, "result")
	if len(uses) == 0 {
		t.Fatal("expected at least one use of result")
	}
}

func TestHasDataFlowPath(t *testing.T) {
	e, tu := buildEngine(t, clampSource)
	clamp := findFunc(tu, "clamp")

	defs := e.DefsOf(clamp, "result")
	uses := e.UsesOf(clamp, "result")
	if len(defs) == 0 || len(uses) == 0 {
		t.Fatal("fixture should have both defs and uses of result")
	}

	found := false
	for _, d := range defs {
		for _, u := range uses {
			if e.HasDataFlowPath(clamp, d, u, 10) {
				found = true
			}
		}
	}
	if !found {
		t.Fatal("expected some def of result to flow to some use")
	}
}

func TestTraceVariableDefinitionsInterprocedural(t *testing.T) {
	e, tu := buildEngine(t, clampSource)
	caller := findFunc(tu, "caller")

	uses := e.UsesOf(caller, "out")
	if len(uses) == 0 {
		t.Fatal("expected a use of out in caller")
	}

	trace := e.TraceVariableDefinitionsInterprocedural(caller, uses[0], "out", 3)
	if len(trace) == 0 {
		t.Fatal("expected at least one reaching definition of out")
	}
}

func TestTraverseCallGraphContextSensitive(t *testing.T) {
	e, tu := buildEngine(t, clampSource)
	caller := findFunc(tu, "caller")

	paths := e.TraverseCallGraphContextSensitive(caller, 5)
	if len(paths) == 0 {
		t.Fatal("expected caller to reach clamp via at least one call-site path")
	}
	reachesClamp := false
	for _, p := range paths {
		for _, frame := range p {
			if frame.Callee.Name == "clamp" {
				reachesClamp = true
			}
		}
	}
	if !reachesClamp {
		t.Fatal("expected a call path through clamp")
	}
}

func TestFindAllPaths(t *testing.T) {
	e, tu := buildEngine(t, clampSource)
	clamp := findFunc(tu, "clamp")

	defs := e.DefsOf(clamp, "result")
	uses := e.UsesOf(clamp, "result")
	if len(defs) == 0 || len(uses) == 0 {
		t.Fatal("fixture should have both defs and uses of result")
	}

	paths := e.FindAllPaths(clamp, defs[0], uses[len(uses)-1], 10)
	_ = paths // zero or more is valid; just confirm it doesn't panic and returns a slice type
}
