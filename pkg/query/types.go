// Package query answers def/use, reaching-def, path, and interprocedural
// trace questions over an already-built ICFG + PDG, per spec §4.3. Every
// operation here is read-only: it never mutates the graphs it's handed.
package query

import (
	sitter "github.com/smacker/go-tree-sitter"

	"github.com/cpggen/cpggen/pkg/cache"
	"github.com/cpggen/cpggen/pkg/frontend"
	"github.com/cpggen/cpggen/pkg/icfg"
	"github.com/cpggen/cpggen/pkg/pdg"
)

// reachingCacheSize bounds the per-run reaching-defs memoization; one entry
// per (function, statement, variable) triple actually queried.
const reachingCacheSize = 4096

// Engine bundles the whole-program ICFG and PDG the query operations read
// from, plus the call-site index needed for interprocedural stepping.
type Engine struct {
	ICFG *icfg.Graph
	PDG  *pdg.Set

	funcs    []*frontend.Func
	byName   map[string]*frontend.Func
	callSite []callSite // every direct call recorded across all functions

	reachingCache *cache.LRUCache
}

// callSite mirrors one edge of the ICFG's call graph, kept here in a form
// convenient for the interprocedural trace queries (argument expressions,
// not just node IDs).
type callSite struct {
	Caller *frontend.Func
	Callee *frontend.Func
	Expr   *sitter.Node
	Args   []*sitter.Node
}

// New builds an Engine over an already-constructed ICFG/PDG for the given
// functions.
func New(funcs []*frontend.Func, g *icfg.Graph, p *pdg.Set) *Engine {
	e := &Engine{
		ICFG:          g,
		PDG:           p,
		funcs:         funcs,
		byName:        make(map[string]*frontend.Func),
		reachingCache: cache.New(cache.Options{MaxSize: reachingCacheSize}),
	}
	for _, fn := range funcs {
		e.byName[fn.QualifiedName] = fn
		if _, ok := e.byName[fn.Name]; !ok {
			e.byName[fn.Name] = fn
		}
	}
	e.callSite = collectCallSites(funcs, e.byName)
	return e
}

func collectCallSites(funcs []*frontend.Func, byName map[string]*frontend.Func) []callSite {
	var out []callSite
	var walk func(node *sitter.Node, caller *frontend.Func)
	walk = func(node *sitter.Node, caller *frontend.Func) {
		if node == nil {
			return
		}
		if node.Type() == "call_expression" {
			name := calleeName(node, caller.TU.Content)
			callee := byName[name]
			out = append(out, callSite{Caller: caller, Callee: callee, Expr: node, Args: callArgs(node)})
		}
		for i := 0; i < int(node.ChildCount()); i++ {
			walk(node.Child(i), caller)
		}
	}
	for _, fn := range funcs {
		if fn.Body != nil {
			walk(fn.Body, fn)
		}
	}
	return out
}

func calleeName(callExpr *sitter.Node, content []byte) string {
	fnNode := callExpr.Child(0)
	if fnNode == nil {
		return ""
	}
	return string(content[fnNode.StartByte():fnNode.EndByte()])
}

func callArgs(callExpr *sitter.Node) []*sitter.Node {
	argList := callExpr.Child(int(callExpr.ChildCount()) - 1)
	if argList == nil || argList.Type() != "argument_list" {
		return nil
	}
	var args []*sitter.Node
	for i := 0; i < int(argList.ChildCount()); i++ {
		child := argList.Child(i)
		if child == nil || child.Type() == "(" || child.Type() == ")" || child.Type() == "," {
			continue
		}
		args = append(args, child)
	}
	return args
}

// Funcs returns every function the Engine was built over, in parse order.
func (e *Engine) Funcs() []*frontend.Func {
	return e.funcs
}

func (e *Engine) funcPDG(fn *frontend.Func) *pdg.FuncPDG {
	if e.PDG == nil {
		return nil
	}
	return e.PDG.Funcs[fn.QualifiedName]
}
