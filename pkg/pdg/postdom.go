package pdg

import (
	"github.com/cpggen/cpggen/pkg/frontend"
)

// computePostDominators implements §3's fixed point: the exit block
// post-dominates itself only; every other block starts at "all blocks";
// iterate PD(b) = {b} ∪ ⋂ PD(succ); capped at fixedPointCap iterations.
func computePostDominators(cfg *frontend.FuncCFG, fixedPointCap int) map[*frontend.Block]map[*frontend.Block]bool {
	all := make(map[*frontend.Block]bool, len(cfg.Blocks))
	for _, b := range cfg.Blocks {
		all[b] = true
	}
	exitSet := make(map[*frontend.Block]bool, len(cfg.ExitSet))
	for _, b := range cfg.ExitSet {
		exitSet[b] = true
	}

	succs := make(map[*frontend.Block][]*frontend.Block)
	for _, e := range cfg.Edges {
		succs[e.From] = append(succs[e.From], e.To)
	}

	pd := make(map[*frontend.Block]map[*frontend.Block]bool, len(cfg.Blocks))
	for _, b := range cfg.Blocks {
		if exitSet[b] {
			pd[b] = map[*frontend.Block]bool{b: true}
		} else {
			pd[b] = cloneBlockSet(all)
		}
	}

	for i := 0; i < fixedPointCap; i++ {
		changed := false
		for _, b := range cfg.Blocks {
			if exitSet[b] {
				continue
			}
			ss := succs[b]
			if len(ss) == 0 {
				continue
			}
			intersect := cloneBlockSet(pd[ss[0]])
			for _, s := range ss[1:] {
				for k := range intersect {
					if !pd[s][k] {
						delete(intersect, k)
					}
				}
			}
			intersect[b] = true

			if !equalBlockSet(pd[b], intersect) {
				pd[b] = intersect
				changed = true
			}
		}
		if !changed {
			break
		}
	}

	return pd
}

func cloneBlockSet(s map[*frontend.Block]bool) map[*frontend.Block]bool {
	out := make(map[*frontend.Block]bool, len(s))
	for k := range s {
		out[k] = true
	}
	return out
}

func equalBlockSet(a, b map[*frontend.Block]bool) bool {
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if !b[k] {
			return false
		}
	}
	return true
}
