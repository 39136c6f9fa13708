package pdg

import (
	"github.com/cpggen/cpggen/pkg/frontend"
)

// computeControlDeps implements §3/§4.2: for each block whose terminator is
// an If or While, for each successor branch, every statement in every block
// reachable from that successor but not post-dominated by the terminator
// block gets a control dependency on the terminator with
// branch_value = (succ_index == 0).
//
// for/do terminators are structurally identical two-way branches but are
// left out here to match the spec's explicit If/While scoping.
func computeControlDeps(cfg *frontend.FuncCFG, pd map[*frontend.Block]map[*frontend.Block]bool) []ControlDependency {
	succs := make(map[*frontend.Block][]frontend.BlockEdge)
	for _, e := range cfg.Edges {
		succs[e.From] = append(succs[e.From], e)
	}

	var deps []ControlDependency

	for _, b := range cfg.Blocks {
		if b.Terminator == nil {
			continue
		}
		t := b.Terminator.Type()
		if t != "if_statement" && t != "while_statement" {
			continue
		}
		if len(b.Statements) == 0 {
			continue
		}
		controlStmt := b.Statements[0]

		// Successor index 0 is the True edge, index 1 the False edge, per
		// how blocks.go always emits True before False for these shapes.
		ordered := orderSuccessors(succs[b])

		for idx, e := range ordered {
			branchValue := idx == 0
			visited := map[*frontend.Block]bool{}
			queue := []*frontend.Block{e.To}
			for len(queue) > 0 {
				cur := queue[0]
				queue = queue[1:]
				if visited[cur] {
					continue
				}
				visited[cur] = true
				if pd[cur][b] {
					continue // post-dominated by the terminator: not control-dependent
				}
				for _, stmt := range cur.Statements {
					deps = append(deps, ControlDependency{
						Control:     controlStmt,
						Dependent:   stmt,
						BranchValue: branchValue,
					})
				}
				for _, e2 := range succs[cur] {
					queue = append(queue, e2.To)
				}
			}
		}
	}

	return deps
}

func orderSuccessors(edges []frontend.BlockEdge) []frontend.BlockEdge {
	var trueEdge, falseEdge *frontend.BlockEdge
	for i := range edges {
		switch edges[i].Kind {
		case frontend.EdgeTrue:
			trueEdge = &edges[i]
		case frontend.EdgeFalse:
			falseEdge = &edges[i]
		}
	}
	var out []frontend.BlockEdge
	if trueEdge != nil {
		out = append(out, *trueEdge)
	}
	if falseEdge != nil {
		out = append(out, *falseEdge)
	}
	return out
}
