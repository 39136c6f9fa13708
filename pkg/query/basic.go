package query

import (
	"fmt"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/cpggen/cpggen/pkg/frontend"
)

// DefsOf returns every statement that defines varName somewhere in fn,
// per §4.3's defs_of contract.
func (e *Engine) DefsOf(fn *frontend.Func, varName string) []*sitter.Node {
	fp := e.funcPDG(fn)
	if fp == nil {
		return nil
	}
	var out []*sitter.Node
	for stmt, vars := range fp.Definitions {
		if vars[varName] {
			out = append(out, stmt)
		}
	}
	return sortByPosition(out)
}

// UsesOf returns every statement that uses varName somewhere in fn.
func (e *Engine) UsesOf(fn *frontend.Func, varName string) []*sitter.Node {
	fp := e.funcPDG(fn)
	if fp == nil {
		return nil
	}
	var out []*sitter.Node
	for stmt, vars := range fp.Uses {
		if vars[varName] {
			out = append(out, stmt)
		}
	}
	return sortByPosition(out)
}

// UsesOfDef narrows UsesOf to the statements carrying a Flow dependency
// from defStmt specifically: uses whose reaching-def set for varName still
// contains defStmt.
func (e *Engine) UsesOfDef(fn *frontend.Func, defStmt *sitter.Node, varName string) []*sitter.Node {
	fp := e.funcPDG(fn)
	if fp == nil {
		return nil
	}
	var out []*sitter.Node
	for _, u := range e.UsesOf(fn, varName) {
		if fp.ReachingDefs[u][varName][defStmt] {
			out = append(out, u)
		}
	}
	return out
}

// ReachingDefsAt returns the set of statements defining varName that reach
// stmt, i.e. the Source side of every Flow dependency recorded on stmt.
// Results are memoized in the engine's LRU cache: the compute-graph builder
// asks the same (stmt, var) question once per trace direction per depth
// level, so repeated sorts of the same set dominate without it.
func (e *Engine) ReachingDefsAt(fn *frontend.Func, stmt *sitter.Node, varName string) []*sitter.Node {
	fp := e.funcPDG(fn)
	if fp == nil {
		return nil
	}

	key := reachingDefsKey(fn, stmt, varName)
	if cached, ok := e.reachingCache.Get(key); ok {
		return cached.([]*sitter.Node)
	}

	set := fp.ReachingDefs[stmt][varName]
	var out []*sitter.Node
	for d := range set {
		out = append(out, d)
	}
	out = sortByPosition(out)
	e.reachingCache.Set(key, out)
	return out
}

func reachingDefsKey(fn *frontend.Func, stmt *sitter.Node, varName string) string {
	return fmt.Sprintf("%s:%p:%s", fn.QualifiedName, stmt, varName)
}

func sortByPosition(nodes []*sitter.Node) []*sitter.Node {
	for i := 1; i < len(nodes); i++ {
		for j := i; j > 0; j-- {
			if frontend.Precedes(nodes[j], nodes[j-1]) {
				nodes[j], nodes[j-1] = nodes[j-1], nodes[j]
			} else {
				break
			}
		}
	}
	return nodes
}
