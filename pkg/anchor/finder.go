package anchor

import (
	"strconv"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/cpggen/cpggen/pkg/frontend"
)

const defaultAnchorCap = 50

// FindAllAnchors runs FindAnchorsInFunction over every function with a body.
func (f *Finder) FindAllAnchors(funcs []*frontend.Func) []Point {
	var all []Point
	for _, fn := range funcs {
		if fn.Body == nil {
			continue
		}
		all = append(all, f.FindAnchorsInFunction(fn)...)
	}
	return all
}

// FindAnchorsInFunction walks fn's body looking for vectorizable binary
// operators, scoring each result found.
func (f *Finder) FindAnchorsInFunction(fn *frontend.Func) []Point {
	if fn == nil || fn.Body == nil {
		return nil
	}
	v := &visitor{fn: fn, content: fn.TU.Content, added: map[*sitter.Node]bool{}}
	v.walk(fn.Body, 0, false)
	for i := range v.anchors {
		v.anchors[i].Score = ComputeScore(v.anchors[i])
	}
	return v.anchors
}

// ComputeScore implements §4.4's scoring formula.
func ComputeScore(p Point) int {
	score := p.LoopDepth * 100

	switch p.OpCode {
	case OpMul:
		score += 80
	case OpAdd, OpSub, OpShl, OpShr, OpAnd, OpOr, OpXor:
		score += 60
	case OpDiv, OpMod:
		score += 40
	}

	switch p.ExpectedKind {
	case KindArrayAccess:
		score += 70
	case KindCall:
		score += 50
	}

	return score
}

// FilterAndRank de-duplicates, filters by loop depth, sorts by score
// descending, and caps the result at cap (0 uses the spec's default of 50).
func (f *Finder) FilterAndRank(anchors []Point, maxAnchors int) []Point {
	if maxAnchors <= 0 {
		maxAnchors = defaultAnchorCap
	}

	seenStmt := map[*sitter.Node]bool{}
	var uniqueByStmt []Point
	for _, a := range anchors {
		if a.Stmt != nil && seenStmt[a.Stmt] {
			continue
		}
		seenStmt[a.Stmt] = true
		uniqueByStmt = append(uniqueByStmt, a)
	}

	seenStmt2 := map[*sitter.Node]bool{}
	seenLoc := map[string]bool{}
	var filtered []Point
	for _, a := range uniqueByStmt {
		if a.Stmt != nil && seenStmt2[a.Stmt] {
			continue
		}
		funcName := "unknown"
		if a.Func != nil {
			funcName = a.Func.QualifiedName
		}
		locKey := funcName + ":" + strconv.Itoa(a.SourceLine)
		if seenLoc[locKey] {
			continue
		}
		if a.LoopDepth < f.MinLoopDepth && !f.IncludeNonLoopOps {
			continue
		}
		filtered = append(filtered, a)
		seenStmt2[a.Stmt] = true
		seenLoc[locKey] = true
	}

	sortByScoreDesc(filtered)

	if len(filtered) > maxAnchors {
		filtered = filtered[:maxAnchors]
	}
	return filtered
}

func sortByScoreDesc(points []Point) {
	for i := 1; i < len(points); i++ {
		for j := i; j > 0 && points[j].Score > points[j-1].Score; j-- {
			points[j], points[j-1] = points[j-1], points[j]
		}
	}
}
