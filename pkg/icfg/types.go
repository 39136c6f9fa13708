// Package icfg builds the Interprocedural Control Flow Graph: per-function
// intraprocedural lowering of frontend.FuncCFG blocks into typed nodes, then
// a call-graph phase that links call sites to callee entries/exits with
// actual/formal parameter nodes.
package icfg

import (
	sitter "github.com/smacker/go-tree-sitter"

	"github.com/cpggen/cpggen/pkg/frontend"
)

// NodeKind is one of the nine ICFG node tags.
type NodeKind string

const (
	KindEntry      NodeKind = "Entry"
	KindExit       NodeKind = "Exit"
	KindStatement  NodeKind = "Statement"
	KindCallSite   NodeKind = "CallSite"
	KindReturnSite NodeKind = "ReturnSite"
	KindFormalIn   NodeKind = "FormalIn"
	KindFormalOut  NodeKind = "FormalOut"
	KindActualIn   NodeKind = "ActualIn"
	KindActualOut  NodeKind = "ActualOut"
)

// EdgeKind is one of the eight ICFG edge tags.
type EdgeKind string

const (
	EdgeIntraprocedural EdgeKind = "Intraprocedural"
	EdgeCall            EdgeKind = "Call"
	EdgeReturn          EdgeKind = "Return"
	EdgeParamIn         EdgeKind = "ParamIn"
	EdgeParamOut        EdgeKind = "ParamOut"
	EdgeTrue            EdgeKind = "True"
	EdgeFalse           EdgeKind = "False"
	EdgeUnconditional   EdgeKind = "Unconditional"
)

// NodeID uniquely identifies a node within a Graph.
type NodeID int

// Succ is one entry in a node's ordered successor or predecessor list.
type Succ struct {
	Node NodeID
	Kind EdgeKind
}

// Node is a tagged-variant ICFG node. Not every field is meaningful for
// every Kind; the field comments below say which kinds use them.
type Node struct {
	ID   NodeID
	Kind NodeKind

	Func *frontend.Func // owning function

	Stmt  *sitter.Node // AST statement, when applicable
	Block *frontend.Block

	Call   *sitter.Node    // call_expression, for ReturnSite/ActualIn
	Callee *frontend.Func  // resolved callee, when known

	ParamIndex int    // for Formal*/Actual* nodes
	ParamName  string // for Formal*/Actual* nodes

	Successors   []Succ
	Predecessors []Succ
}

// Graph is the whole-program ICFG. Functions are keyed by their canonical
// declaration so that two lookups mixing canonical and non-canonical
// pointers resolve to the same nodes (§4.1 "Canonicalization").
type Graph struct {
	nodes     []*Node
	FuncEntry map[string]NodeID
	FuncExit  map[string]NodeID

	// cfgCache caches the frontend CFG for each canonical function so the
	// call-graph phase can re-walk blocks without reparsing.
	cfgCache map[string]*frontend.FuncCFG

	// statementNode maps an AST statement pointer, scoped by canonical
	// function name, to the ICFG node representing it. Used by the call-site
	// linking phase and by PDG/Query layers to go from statement to node.
	statementNode map[string]map[*sitter.Node]NodeID

	// formalIns caches the callee's lazily-created FormalIn node per
	// parameter index, so each parameter appears exactly once as FormalIn
	// regardless of how many call sites reference it.
	formalIns map[formalInKey]NodeID
}

// Node returns the node for id, or nil if id is out of range.
func (g *Graph) Node(id NodeID) *Node {
	if int(id) <= 0 || int(id) > len(g.nodes) {
		return nil
	}
	return g.nodes[id-1]
}

// Nodes returns every node in the graph in creation order.
func (g *Graph) Nodes() []*Node {
	return g.nodes
}

// NodeForStmt returns the ICFG node for a statement owned by fn, if one was
// created during lowering.
func (g *Graph) NodeForStmt(fn *frontend.Func, stmt *sitter.Node) (*Node, bool) {
	key := CanonicalKey(fn)
	m, ok := g.statementNode[key]
	if !ok {
		return nil, false
	}
	id, ok := m[stmt]
	if !ok {
		return nil, false
	}
	return g.Node(id), true
}

// EntryOf returns the Entry node of fn's canonical declaration, if built.
func (g *Graph) EntryOf(fn *frontend.Func) (*Node, bool) {
	id, ok := g.FuncEntry[CanonicalKey(fn)]
	if !ok {
		return nil, false
	}
	return g.Node(id), true
}

// ExitOf returns the Exit node of fn's canonical declaration, if built.
func (g *Graph) ExitOf(fn *frontend.Func) (*Node, bool) {
	id, ok := g.FuncExit[CanonicalKey(fn)]
	if !ok {
		return nil, false
	}
	return g.Node(id), true
}

// CanonicalKey is the canonicalization key described in §4.1: a function's
// qualified name. Every map keyed by function in this package and in pkg/pdg,
// pkg/query, and pkg/computegraph uses this same key so that two different
// *frontend.Func pointers pointing at the same definition still collide.
func CanonicalKey(fn *frontend.Func) string {
	if fn == nil {
		return ""
	}
	return fn.QualifiedName
}
