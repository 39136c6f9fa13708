package pdg

import (
	sitter "github.com/smacker/go-tree-sitter"

	"github.com/cpggen/cpggen/pkg/frontend"
)

// defaultFixedPointCap bounds the reaching-defs and post-dominator fixed
// points when a caller doesn't supply one. The driver normally wires
// config.Config.FixedPointCap through instead.
const defaultFixedPointCap = 100

// Build runs the full PDG construction for one function: reaching
// definitions, flow dependencies, post-dominators, and control dependencies.
func Build(fn *frontend.Func, fixedPointCap int) *FuncPDG {
	if fixedPointCap <= 0 {
		fixedPointCap = defaultFixedPointCap
	}

	cfg := frontend.BuildCFG(fn)
	reaching, defs, uses := computeReachingDefs(cfg, fn.TU.Content, fixedPointCap)

	fp := &FuncPDG{
		Func:         fn,
		CFG:          cfg,
		Nodes:        make(map[*sitter.Node]*Node),
		ReachingDefs: reaching,
		Definitions:  defs,
		Uses:         uses,
	}

	for _, b := range cfg.Blocks {
		for _, stmt := range b.Statements {
			for v := range uses[stmt] {
				for def := range reaching[stmt][v] {
					n := fp.nodeFor(stmt)
					n.DataDeps = append(n.DataDeps, DataDependency{
						Source: def, Sink: stmt, VarName: v, Kind: DepFlow,
					})
				}
			}
		}
	}

	addAntiAndOutputDeps(fp, cfg)

	fp.PostDominators = computePostDominators(cfg, fixedPointCap)
	for _, cd := range computeControlDeps(cfg, fp.PostDominators) {
		n := fp.nodeFor(cd.Dependent)
		n.ControlDeps = append(n.ControlDeps, cd)
	}

	return fp
}

// BuildSet runs Build for every function, keyed by canonical name.
func BuildSet(funcs []*frontend.Func, fixedPointCap int) *Set {
	s := &Set{Funcs: make(map[string]*FuncPDG, len(funcs))}
	for _, fn := range funcs {
		if fn.Body == nil {
			continue
		}
		s.Funcs[canonicalKey(fn)] = Build(fn, fixedPointCap)
	}
	return s
}

func canonicalKey(fn *frontend.Func) string {
	return fn.QualifiedName
}

// addAntiAndOutputDeps fills in the Anti and Output kinds the base
// construction in §3/§4.2 defines but doesn't require. An Anti dependency
// is recorded from a statement that reads a variable to a later statement
// (by source line) that redefines it (write-after-read); an Output dependency is
// recorded between two distinct definitions that both reach the same
// downstream use of the same variable (write-after-write visible to a
// shared reader).
func addAntiAndOutputDeps(fp *FuncPDG, cfg *frontend.FuncCFG) {
	type stmtAtLine struct {
		node *sitter.Node
		line int
	}
	var ordered []stmtAtLine
	for _, b := range cfg.Blocks {
		for _, stmt := range b.Statements {
			ordered = append(ordered, stmtAtLine{node: stmt, line: frontend.SourceLine(stmt)})
		}
	}

	for stmt, vars := range fp.Uses {
		useLine := frontend.SourceLine(stmt)
		for v := range vars {
			reachers := fp.ReachingDefs[stmt][v]

			// Output: two distinct reaching definitions of the same var at
			// the same use are output-dependent on each other.
			var defs []*sitter.Node
			for d := range reachers {
				defs = append(defs, d)
			}
			for i := 0; i < len(defs); i++ {
				for j := i + 1; j < len(defs); j++ {
					n := fp.nodeFor(stmt)
					n.DataDeps = append(n.DataDeps, DataDependency{
						Source: defs[i], Sink: defs[j], VarName: v, Kind: DepOutput,
					})
				}
			}

			// Anti: a later statement that GENs the same var write-after-reads it.
			for _, later := range ordered {
				if later.line <= useLine {
					continue
				}
				if !fp.Definitions[later.node][v] {
					continue
				}
				n := fp.nodeFor(later.node)
				n.DataDeps = append(n.DataDeps, DataDependency{
					Source: stmt, Sink: later.node, VarName: v, Kind: DepAnti,
				})
			}
		}
	}
}
