package pdg

import (
	sitter "github.com/smacker/go-tree-sitter"

	"github.com/cpggen/cpggen/pkg/frontend"
)

// defSet is a (varName -> set of defining statements) map, the value type
// reaching-defs propagates between blocks.
type defSet map[string]map[*sitter.Node]bool

func cloneDefSet(d defSet) defSet {
	out := make(defSet, len(d))
	for v, stmts := range d {
		s := make(map[*sitter.Node]bool, len(stmts))
		for stmt := range stmts {
			s[stmt] = true
		}
		out[v] = s
	}
	return out
}

func unionDefSet(dst, src defSet) {
	for v, stmts := range src {
		s, ok := dst[v]
		if !ok {
			s = make(map[*sitter.Node]bool)
			dst[v] = s
		}
		for stmt := range stmts {
			s[stmt] = true
		}
	}
}

func equalDefSet(a, b defSet) bool {
	if len(a) != len(b) {
		return false
	}
	for v, stmts := range a {
		other, ok := b[v]
		if !ok || len(other) != len(stmts) {
			return false
		}
		for stmt := range stmts {
			if !other[stmt] {
				return false
			}
		}
	}
	return true
}

// computeReachingDefs runs the worklist fixed point from §3/§4.2:
// IN(b) = ⋃ OUT(pred); OUT updated by per-statement kill/gen in block order;
// converge on equality of all OUT sets; capped at fixedPointCap iterations.
func computeReachingDefs(cfg *frontend.FuncCFG, content []byte, fixedPointCap int) (
	reaching map[*sitter.Node]defSet, definitions, uses map[*sitter.Node]map[string]bool) {

	reaching = make(map[*sitter.Node]defSet)
	definitions = make(map[*sitter.Node]map[string]bool)
	uses = make(map[*sitter.Node]map[string]bool)

	preds := make(map[*frontend.Block][]*frontend.Block)
	for _, e := range cfg.Edges {
		preds[e.To] = append(preds[e.To], e.From)
	}

	in := make(map[*frontend.Block]defSet)
	out := make(map[*frontend.Block]defSet)
	for _, b := range cfg.Blocks {
		in[b] = defSet{}
		out[b] = defSet{}
	}

	for i := 0; i < fixedPointCap; i++ {
		changed := false
		for _, b := range cfg.Blocks {
			merged := defSet{}
			for _, p := range preds[b] {
				unionDefSet(merged, out[p])
			}
			in[b] = merged

			cur := cloneDefSet(merged)
			for _, stmt := range b.Statements {
				gen, use := genUse(stmt, content)
				definitions[stmt] = gen
				uses[stmt] = use

				for v := range use {
					if _, ok := reaching[stmt]; !ok {
						reaching[stmt] = defSet{}
					}
					if s, ok := cur[v]; ok {
						set := make(map[*sitter.Node]bool, len(s))
						for d := range s {
							set[d] = true
						}
						reaching[stmt][v] = set
					}
				}
				for v := range gen {
					cur[v] = map[*sitter.Node]bool{stmt: true}
				}
			}

			if !equalDefSet(out[b], cur) {
				changed = true
			}
			out[b] = cur
		}
		if !changed {
			break
		}
	}

	return reaching, definitions, uses
}
