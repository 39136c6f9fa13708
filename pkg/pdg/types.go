// Package pdg builds the Program Dependence Graph: per-function reaching
// definitions (dataflow fixed point), post-dominators (another fixed
// point), and the data/control dependencies derived from both.
package pdg

import (
	sitter "github.com/smacker/go-tree-sitter"

	"github.com/cpggen/cpggen/pkg/frontend"
)

// DepKind tags a data dependency edge.
type DepKind string

const (
	DepFlow   DepKind = "Flow"
	DepAnti   DepKind = "Anti"
	DepOutput DepKind = "Output"
)

// DataDependency is one {source, sink, var, kind} triple owned by the sink's
// PDG node.
type DataDependency struct {
	Source  *sitter.Node
	Sink    *sitter.Node
	VarName string
	Kind    DepKind
}

// ControlDependency is one {control, dependent, branch_value} triple owned
// by the dependent statement's PDG node.
type ControlDependency struct {
	Control     *sitter.Node
	Dependent   *sitter.Node
	BranchValue bool
}

// Node is the PDG node for a single statement.
type Node struct {
	Stmt        *sitter.Node
	Func        *frontend.Func
	DataDeps    []DataDependency
	ControlDeps []ControlDependency
}

// FuncPDG holds one function's full PDG plus the reaching-definitions state
// the Query Layer reuses directly (defs_of/uses_of read Definitions/Uses
// and the reaching-def queries read ReachingDefs rather than recomputing
// them).
type FuncPDG struct {
	Func *frontend.Func
	CFG  *frontend.FuncCFG

	Nodes map[*sitter.Node]*Node

	// ReachingDefs[stmt][varName] is the set of statements whose definition
	// of varName reaches stmt, i.e. the spec's reachingDefs: Stmt → (VarName
	// → Set<Stmt>).
	ReachingDefs map[*sitter.Node]defSet

	// Definitions/Uses are the per-statement GEN/USE sets.
	Definitions map[*sitter.Node]map[string]bool
	Uses        map[*sitter.Node]map[string]bool

	PostDominators map[*frontend.Block]map[*frontend.Block]bool
}

// Set is the whole-program PDG, one FuncPDG per canonical function.
type Set struct {
	Funcs map[string]*FuncPDG
}

func (fp *FuncPDG) nodeFor(stmt *sitter.Node) *Node {
	n, ok := fp.Nodes[stmt]
	if !ok {
		n = &Node{Stmt: stmt, Func: fp.Func}
		fp.Nodes[stmt] = n
	}
	return n
}
