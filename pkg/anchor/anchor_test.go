package anchor

import (
	"testing"

	"github.com/cpggen/cpggen/pkg/frontend"
)

const vecSource = `
int dot(int n, int* a, int* b) {
    int sum = 0;
    for (int i = 0; i < n; i++) {
        sum += a[i] * b[i];
    }
    return sum;
}

int plain_add(int x, int y) {
    int z = x + y;
    return z;
}
`

func parseOne(t *testing.T, name string) *frontend.Func {
	t.Helper()
	tu, err := frontend.ParseSource("fixture.c", []byte(vecSource))
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

func TestFindAnchorsInFunctionFindsLoopBodyAnchor(t *testing.T) {
	fn := parseOne(t, "dot")
	f := NewFinder()
	anchors := f.FindAnchorsInFunction(fn)

	if len(anchors) == 0 {
		t.Fatal("expected at least one anchor in dot's loop body")
	}
	var best Point
	for _, a := range anchors {
		if a.Score > best.Score {
			best = a
		}
	}
	if best.LoopDepth != 1 {
		t.Fatalf("expected best anchor at loop depth 1, got %d", best.LoopDepth)
	}
	if best.OpCode != OpAdd {
		t.Fatalf("expected the += to normalize to OpAdd, got %v", best.OpCode)
	}
}

func TestComputeScoreMatchesFormula(t *testing.T) {
	p := Point{LoopDepth: 1, OpCode: OpAdd, ExpectedKind: KindArrayAccess}
	got := ComputeScore(p)
	want := 100 + 60 + 70
	if got != want {
		t.Fatalf("ComputeScore() = %d, want %d", got, want)
	}
}

func TestFilterAndRankDedupesByLine(t *testing.T) {
	fn := parseOne(t, "dot")
	f := NewFinder()
	anchors := f.FindAnchorsInFunction(fn)

	doubled := append(append([]Point{}, anchors...), anchors...)
	ranked := f.FilterAndRank(doubled, 0)
	if len(ranked) != len(anchors) {
		t.Fatalf("expected dedup to collapse doubled anchors to %d, got %d", len(anchors), len(ranked))
	}
}

func TestFilterAndRankCapsAtLimit(t *testing.T) {
	f := NewFinder()
	var many []Point
	for i := 0; i < 120; i++ {
		many = append(many, Point{Score: i, SourceLine: i})
	}
	ranked := f.FilterAndRank(many, 50)
	if len(ranked) != 50 {
		t.Fatalf("expected cap of 50, got %d", len(ranked))
	}
	if ranked[0].Score < ranked[len(ranked)-1].Score {
		t.Fatal("expected anchors sorted by score descending")
	}
}

func TestPlainAddOutsideLoopIsAnchor(t *testing.T) {
	fn := parseOne(t, "plain_add")
	f := NewFinder()
	anchors := f.FindAnchorsInFunction(fn)
	if len(anchors) == 0 {
		t.Fatal("expected the top-level x + y to be an anchor")
	}
	if anchors[0].LoopDepth != 0 {
		t.Fatalf("expected loop depth 0 outside any loop, got %d", anchors[0].LoopDepth)
	}
}
