package frontend

import (
	"testing"
)

const sampleSource = `
int clamp(int x, int lo, int hi) {
    if (x < lo) {
        return lo;
    } else if (x > hi) {
        return hi;
    }
    return x;
}

int sum_array(int *arr, int n) {
    int total = 0;
    for (int i = 0; i < n; i++) {
        total += arr[i];
    }
    return total;
}
`

func parseFixture(t *testing.T) *TranslationUnit {
	t.Helper()
	tu, err := ParseSource("fixture.c", []byte(sampleSource))
	if err != nil {
		t.Fatalf("ParseSource failed: %v", err)
	}
	t.Cleanup(tu.Close)
	return tu
}

func TestParseFindsFunctions(t *testing.T) {
	tu := parseFixture(t)
	if len(tu.Funcs) != 2 {
		t.Fatalf("expected 2 functions, got %d", len(tu.Funcs))
	}
	names := map[string]bool{}
	for _, fn := range tu.Funcs {
		names[fn.Name] = true
	}
	if !names["clamp"] || !names["sum_array"] {
		t.Fatalf("unexpected function set: %v", names)
	}
}

func TestParseExtractsParams(t *testing.T) {
	tu := parseFixture(t)
	var clamp *Func
	for _, fn := range tu.Funcs {
		if fn.Name == "clamp" {
			clamp = fn
		}
	}
	if clamp == nil {
		t.Fatal("clamp not found")
	}
	if len(clamp.Params) != 3 {
		t.Fatalf("expected 3 params, got %d", len(clamp.Params))
	}
	if clamp.Params[0].Name != "x" || clamp.Params[1].Name != "lo" || clamp.Params[2].Name != "hi" {
		t.Fatalf("unexpected param names: %+v", clamp.Params)
	}
}

func TestBuildCFGHasEntryAndExit(t *testing.T) {
	tu := parseFixture(t)
	for _, fn := range tu.Funcs {
		cfg := BuildCFG(fn)
		if cfg.Entry == nil {
			t.Fatalf("%s: missing entry block", fn.Name)
		}
		if len(cfg.ExitSet) == 0 {
			t.Fatalf("%s: missing exit block", fn.Name)
		}
		if len(cfg.Blocks) < 2 {
			t.Fatalf("%s: expected at least entry+exit blocks, got %d", fn.Name, len(cfg.Blocks))
		}
	}
}

func TestBuildCFGBranchesOnIf(t *testing.T) {
	tu := parseFixture(t)
	var clamp *Func
	for _, fn := range tu.Funcs {
		if fn.Name == "clamp" {
			clamp = fn
		}
	}
	cfg := BuildCFG(clamp)

	var branches int
	for _, b := range cfg.Blocks {
		if b.Kind == BlockBranch {
			branches++
		}
	}
	if branches == 0 {
		t.Fatal("expected at least one branch block for the if/else-if chain")
	}
}

func TestBuildCFGLoopHasBackEdge(t *testing.T) {
	tu := parseFixture(t)
	var sumArray *Func
	for _, fn := range tu.Funcs {
		if fn.Name == "sum_array" {
			sumArray = fn
		}
	}
	cfg := BuildCFG(sumArray)

	var hasBack bool
	for _, e := range cfg.Edges {
		if e.Kind == EdgeBackEdge {
			hasBack = true
		}
	}
	if !hasBack {
		t.Fatal("expected a back edge from the loop body to its header")
	}
}

func TestSourceTextTruncates(t *testing.T) {
	tu := parseFixture(t)
	long := make([]byte, 0, 100)
	for i := 0; i < 100; i++ {
		long = append(long, 'a')
	}
	longTU, err := ParseSource("fixture.c", append([]byte("int x = "), append(long, ';')...))
	if err != nil {
		t.Fatalf("ParseSource failed: %v", err)
	}
	defer longTU.Close()
	_ = tu

	root := longTU.Tree.RootNode()
	text := SourceText(longTU, root)
	if len(text) > maxSourceTextLen {
		t.Fatalf("expected truncation to %d chars, got %d", maxSourceTextLen, len(text))
	}
}

func TestIsIntrinsicFile(t *testing.T) {
	tu, err := ParseSource("simd.c", []byte("#include <immintrin.h>\nint f(void){return 0;}"))
	if err != nil {
		t.Fatalf("ParseSource failed: %v", err)
	}
	defer tu.Close()
	if !IsIntrinsicFile(tu) {
		t.Fatal("expected immintrin.h include to be detected as intrinsic file")
	}
}

func TestLanguageForPath(t *testing.T) {
	if languageForPath("foo.cpp") != LanguageCPP {
		t.Fatal("expected .cpp to select LanguageCPP")
	}
	if languageForPath("foo.c") != LanguageC {
		t.Fatal("expected .c to select LanguageC")
	}
}
