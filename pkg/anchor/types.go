// Package anchor walks a function's AST looking for vectorizable expression
// roots — binary operators worth seeding a compute graph from — scores
// them, and de-duplicates the result, per §4.4.
package anchor

import (
	sitter "github.com/smacker/go-tree-sitter"

	"github.com/cpggen/cpggen/pkg/frontend"
)

// ExpectedKind is the compute-graph node kind an anchor is expected to
// lower into; only the two kinds that carry a scoring bonus are tracked
// explicitly, everything else is Other.
type ExpectedKind int

const (
	KindOther ExpectedKind = iota
	KindArrayAccess
	KindCall
)

// OpCode is the normalized operator an anchor's root binary/unary
// expression carries, used both for labeling and scoring.
type OpCode int

const (
	OpUnknown OpCode = iota
	OpAssign
	OpAdd
	OpSub
	OpMul
	OpDiv
	OpMod
	OpShl
	OpShr
	OpAnd
	OpOr
	OpXor
	OpLt
	OpGt
	OpLe
	OpGe
	OpEq
	OpNe
)

func (o OpCode) String() string {
	switch o {
	case OpAssign:
		return "Assign"
	case OpAdd:
		return "Add"
	case OpSub:
		return "Sub"
	case OpMul:
		return "Mul"
	case OpDiv:
		return "Div"
	case OpMod:
		return "Mod"
	case OpShl:
		return "Shl"
	case OpShr:
		return "Shr"
	case OpAnd:
		return "And"
	case OpOr:
		return "Or"
	case OpXor:
		return "Xor"
	case OpLt:
		return "Lt"
	case OpGt:
		return "Gt"
	case OpLe:
		return "Le"
	case OpGe:
		return "Ge"
	case OpEq:
		return "Eq"
	case OpNe:
		return "Ne"
	default:
		return ""
	}
}

var compoundAssignOps = map[string]OpCode{
	"+=": OpAdd, "-=": OpSub, "*=": OpMul, "/=": OpDiv, "%=": OpMod,
	"<<=": OpShl, ">>=": OpShr, "&=": OpAnd, "|=": OpOr, "^=": OpXor,
}

var binaryOps = map[string]OpCode{
	"+": OpAdd, "-": OpSub, "*": OpMul, "/": OpDiv, "%": OpMod,
	"<<": OpShl, ">>": OpShr, "&": OpAnd, "|": OpOr, "^": OpXor,
	"<": OpLt, ">": OpGt, "<=": OpLe, ">=": OpGe, "==": OpEq, "!=": OpNe,
}

var comparisonOps = map[OpCode]bool{
	OpLt: true, OpGt: true, OpLe: true, OpGe: true, OpEq: true, OpNe: true,
}

// Point is one vectorizable expression root.
type Point struct {
	Stmt         *sitter.Node
	Func         *frontend.Func
	ExpectedKind ExpectedKind
	OpCode       OpCode
	LoopDepth    int
	InLoop       bool
	Score        int
	SourceText   string
	SourceLine   int
}

// Finder holds the filter configuration FilterAndRank applies.
type Finder struct {
	MinLoopDepth     int
	IncludeNonLoopOps bool
}

// NewFinder returns a Finder with the spec's defaults: no minimum loop
// depth, non-loop operations included.
func NewFinder() *Finder {
	return &Finder{MinLoopDepth: 0, IncludeNonLoopOps: true}
}
