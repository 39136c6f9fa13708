package query

import (
	sitter "github.com/smacker/go-tree-sitter"

	"github.com/cpggen/cpggen/pkg/frontend"
	"github.com/cpggen/cpggen/pkg/icfg"
	"github.com/cpggen/cpggen/pkg/pdg"
)

// HasDataFlowPath reports whether a chain of Flow data dependencies connects
// from to sink, following Source -> Sink edges forward, bounded by maxDepth.
func (e *Engine) HasDataFlowPath(fn *frontend.Func, from, to *sitter.Node, maxDepth int) bool {
	fp := e.funcPDG(fn)
	if fp == nil || maxDepth <= 0 {
		return false
	}
	visited := map[*sitter.Node]bool{}
	var dfs func(cur *sitter.Node, depth int) bool
	dfs = func(cur *sitter.Node, depth int) bool {
		if cur == to {
			return true
		}
		if depth >= maxDepth || visited[cur] {
			return false
		}
		visited[cur] = true
		// Dependencies are stored on the sink statement's node, so edges
		// leaving cur are found by scanning every node.
		for _, n := range fp.Nodes {
			for _, d := range n.DataDeps {
				if d.Kind != pdg.DepFlow || d.Source != cur {
					continue
				}
				if dfs(d.Sink, depth+1) {
					return true
				}
			}
		}
		return false
	}
	return dfs(from, 0)
}

// HasControlFlowPath reports whether to is reachable from from by a BFS
// over ICFG successor edges, bounded by maxDepth hops.
func (e *Engine) HasControlFlowPath(fn *frontend.Func, from, to *sitter.Node, maxDepth int) bool {
	if e.ICFG == nil {
		return false
	}
	start, ok := e.ICFG.NodeForStmt(fn, from)
	if !ok {
		return false
	}

	type hop struct {
		node  *icfg.Node
		depth int
	}
	visited := map[icfg.NodeID]bool{start.ID: true}
	queue := []hop{{node: start, depth: 0}}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if cur.node.Stmt == to {
			return true
		}
		if cur.depth >= maxDepth {
			continue
		}
		for _, s := range cur.node.Successors {
			if visited[s.Node] {
				continue
			}
			visited[s.Node] = true
			if next := e.ICFG.Node(s.Node); next != nil {
				queue = append(queue, hop{node: next, depth: cur.depth + 1})
			}
		}
	}
	return false
}

// FindAllPaths enumerates every statement-level Flow dependency chain from
// from to to, each capped at maxDepth hops, per §4.3's find_all_paths.
func (e *Engine) FindAllPaths(fn *frontend.Func, from, to *sitter.Node, maxDepth int) [][]*sitter.Node {
	fp := e.funcPDG(fn)
	if fp == nil || maxDepth <= 0 {
		return nil
	}
	var paths [][]*sitter.Node
	var walk func(cur *sitter.Node, path []*sitter.Node, visited map[*sitter.Node]bool)
	walk = func(cur *sitter.Node, path []*sitter.Node, visited map[*sitter.Node]bool) {
		if cur == to {
			paths = append(paths, append([]*sitter.Node{}, path...))
			return
		}
		if len(path) >= maxDepth {
			return
		}
		for _, n := range fp.Nodes {
			for _, d := range n.DataDeps {
				if d.Kind != pdg.DepFlow || d.Source != cur || visited[d.Sink] {
					continue
				}
				visited[d.Sink] = true
				walk(d.Sink, append(path, d.Sink), visited)
				delete(visited, d.Sink)
			}
		}
	}
	walk(from, []*sitter.Node{from}, map[*sitter.Node]bool{from: true})
	return paths
}

