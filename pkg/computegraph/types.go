// Package computegraph builds a vectorization-oriented compute graph from
// an anchor expression: a typed DAG capturing the data and control flow
// feeding a vectorizable operation, per §4.5.
package computegraph

import (
	sitter "github.com/smacker/go-tree-sitter"

	"github.com/cpggen/cpggen/pkg/anchor"
	"github.com/cpggen/cpggen/pkg/frontend"
)

// NodeKind classifies a compute node's AST shape.
type NodeKind int

const (
	KindConstant NodeKind = iota
	KindVariable
	KindParameter
	KindBinaryOp
	KindUnaryOp
	KindCompareOp
	KindLoad
	KindStore
	KindArrayAccess
	KindMemberAccess
	KindPhi
	KindSelect
	KindLoopInduction
	KindLoop
	KindBranch
	KindCall
	KindIntrinsicCall
	KindCast
	KindReturn
	KindUnknown
)

func (k NodeKind) String() string {
	switch k {
	case KindConstant:
		return "Constant"
	case KindVariable:
		return "Variable"
	case KindParameter:
		return "Parameter"
	case KindBinaryOp:
		return "BinaryOp"
	case KindUnaryOp:
		return "UnaryOp"
	case KindCompareOp:
		return "CompareOp"
	case KindLoad:
		return "Load"
	case KindStore:
		return "Store"
	case KindArrayAccess:
		return "ArrayAccess"
	case KindMemberAccess:
		return "MemberAccess"
	case KindPhi:
		return "Phi"
	case KindSelect:
		return "Select"
	case KindLoopInduction:
		return "LoopInduction"
	case KindLoop:
		return "Loop"
	case KindBranch:
		return "Branch"
	case KindCall:
		return "Call"
	case KindIntrinsicCall:
		return "IntrinsicCall"
	case KindCast:
		return "Cast"
	case KindReturn:
		return "Return"
	default:
		return "Unknown"
	}
}

// EdgeKind classifies a compute edge's semantics.
type EdgeKind int

const (
	EdgeDataFlow EdgeKind = iota
	EdgeControl
	EdgeMemory
	EdgeCall
	EdgeReturn
	EdgeLoopCarried
)

func (k EdgeKind) String() string {
	switch k {
	case EdgeDataFlow:
		return "DataFlow"
	case EdgeControl:
		return "Control"
	case EdgeMemory:
		return "Memory"
	case EdgeCall:
		return "Call"
	case EdgeReturn:
		return "Return"
	case EdgeLoopCarried:
		return "LoopCarried"
	default:
		return "Unknown"
	}
}

// OpCode is the normalized operator carried by BinaryOp/UnaryOp/CompareOp
// nodes, shared with the anchor package's scoring vocabulary.
type OpCode = anchor.OpCode

// NodeID indexes into a Graph's node arena; zero is never a valid ID.
type NodeID int

// EdgeID indexes into a Graph's edge arena.
type EdgeID int

// LoopInfo is recorded once per lowered loop, per §4.5.1 step 2.
type LoopInfo struct {
	LoopNodeID    NodeID
	LoopStmt      *sitter.Node
	InitStmt      *sitter.Node
	InitNodeID    NodeID
	BodyStartLine int
	BodyEndLine   int
	LoopVarName   string
	AnchorNodeID  NodeID
}

// BranchInfo is recorded once per lowered if/switch body, per §4.5.6.
type BranchInfo struct {
	BranchNodeID  NodeID
	BranchType    string // "THEN", "ELSE", "CASE <value>", "DEFAULT"
	BodyStartLine int
	BodyEndLine   int
}

// Node is one compute-graph node: a frozen snapshot of an AST shape plus
// whatever loop/branch/call-site context was active when it was lowered.
type Node struct {
	ID            NodeID
	Kind          NodeKind
	OpCode        OpCode
	Name          string
	TypeName      string
	HasConstValue bool
	ConstValue    string

	AST  *sitter.Node
	Func *frontend.Func

	SourceLine int
	SourceText string

	IsAnchor         bool
	IsAssignTarget   bool
	IsReadWrite      bool
	IsFormalParam    bool
	IsUnionMember    bool
	UnionVar         string
	CalleeAnalyzed   bool
	CalleeName       string
	CallSiteID       NodeID
	ReturnNodeID     NodeID
	TracedToCallsite bool

	IsIncrement   bool
	IncrementVar  string
	IncrementStep int
	OriginalForm  string // pre_inc, post_inc, pre_dec, post_dec

	LoopContextID     NodeID
	LoopContextLine   int
	BranchContextID   NodeID
	BranchContextLine int
	BranchLabel       string

	LoopType   string // "for_statement", "while_statement", "do_statement"
	BranchType string // "if", "switch"
}

// Edge is one compute-graph edge.
type Edge struct {
	ID    EdgeID
	From  NodeID
	To    NodeID
	Kind  EdgeKind
	Label string
}

// Graph is the ID-keyed arena a Builder fills for one anchor: nodes and
// edges hold IDs, never raw pointers to each other, per spec §9's "break
// cycles with ID-keyed arenas" design note.
type Graph struct {
	AnchorFunc *frontend.Func
	AnchorLine int
	Score      int
	Template   bool

	nodes []*Node
	edges []*Edge
}

func (g *Graph) newNode(kind NodeKind) *Node {
	n := &Node{ID: NodeID(len(g.nodes) + 1), Kind: kind}
	g.nodes = append(g.nodes, n)
	return n
}

// AddEdge records one edge unless an identical (From, To, Kind) edge
// already exists, matching Merge's "skip pairs that already exist with the
// same kind" rule (§4.6) applied uniformly, not just during merge.
func (g *Graph) AddEdge(from, to NodeID, kind EdgeKind, label string) EdgeID {
	if from == 0 || to == 0 {
		return 0
	}
	for _, e := range g.edges {
		if e.From == from && e.To == to && e.Kind == kind {
			return e.ID
		}
	}
	e := &Edge{ID: EdgeID(len(g.edges) + 1), From: from, To: to, Kind: kind, Label: label}
	g.edges = append(g.edges, e)
	return e.ID
}

func (g *Graph) Node(id NodeID) *Node {
	if id <= 0 || int(id) > len(g.nodes) {
		return nil
	}
	return g.nodes[id-1]
}

func (g *Graph) Nodes() []*Node { return g.nodes }
func (g *Graph) Edges() []*Edge { return g.edges }

// EdgesFrom and EdgesTo support the query/DOT/graphset layers without
// exposing the backing slices for mutation.
func (g *Graph) EdgesFrom(id NodeID) []*Edge {
	var out []*Edge
	for _, e := range g.edges {
		if e.From == id {
			out = append(out, e)
		}
	}
	return out
}

func (g *Graph) EdgesTo(id NodeID) []*Edge {
	var out []*Edge
	for _, e := range g.edges {
		if e.To == id {
			out = append(out, e)
		}
	}
	return out
}
