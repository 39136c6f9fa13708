// Package graphset manages the compute graphs built for one translation
// unit: it merges overlapping graphs, removes isomorphic duplicates, ranks
// the survivors by score, and exports the result, per §4.6.
package graphset

import (
	"io"
	"sort"
	"strconv"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/cpggen/cpggen/pkg/computegraph"
)

// Set owns the compute graphs for one analysis run. Graphs handed out via
// Graphs() stay valid until the set deduplicates or merges them away.
type Set struct {
	graphs []*computegraph.Graph
}

// New returns an empty set.
func New() *Set {
	return &Set{}
}

// Add appends g to the set.
func (s *Set) Add(g *computegraph.Graph) {
	if g != nil {
		s.graphs = append(s.graphs, g)
	}
}

// Graphs returns the current graphs in set order.
func (s *Set) Graphs() []*computegraph.Graph {
	return s.graphs
}

// Len returns the number of graphs currently in the set.
func (s *Set) Len() int {
	return len(s.graphs)
}

// Deduplicate drops graphs anchored at the same (function, line) first-wins,
// then drops isomorphic duplicates by canonical signature, also first-wins.
// Running it twice is a no-op.
func (s *Set) Deduplicate() {
	seenAnchor := map[string]bool{}
	var byAnchor []*computegraph.Graph
	for _, g := range s.graphs {
		key := anchorKey(g)
		if seenAnchor[key] {
			continue
		}
		seenAnchor[key] = true
		byAnchor = append(byAnchor, g)
	}

	seenSig := map[string]bool{}
	var out []*computegraph.Graph
	for _, g := range byAnchor {
		sig := g.CanonicalSignature()
		if seenSig[sig] {
			continue
		}
		seenSig[sig] = true
		out = append(out, g)
	}
	s.graphs = out
}

func anchorKey(g *computegraph.Graph) string {
	fn := "unknown"
	if g.AnchorFunc != nil {
		fn = g.AnchorFunc.QualifiedName
	}
	return fn + ":" + strconv.Itoa(g.AnchorLine)
}

// MergeOverlapping repeatedly replaces any two graphs that share an AST
// statement with their merge, until no pair overlaps.
func (s *Set) MergeOverlapping() {
	for {
		i, j, found := s.findOverlap()
		if !found {
			return
		}
		merged := Merge(s.graphs[i], s.graphs[j])
		rest := make([]*computegraph.Graph, 0, len(s.graphs)-1)
		for k, g := range s.graphs {
			if k == i || k == j {
				continue
			}
			rest = append(rest, g)
		}
		s.graphs = append(rest, merged)
	}
}

func (s *Set) findOverlap() (int, int, bool) {
	for i := 0; i < len(s.graphs); i++ {
		stmts := map[*sitter.Node]bool{}
		for _, n := range s.graphs[i].Nodes() {
			if n.AST != nil {
				stmts[n.AST] = true
			}
		}
		for j := i + 1; j < len(s.graphs); j++ {
			for _, n := range s.graphs[j].Nodes() {
				if n.AST != nil && stmts[n.AST] {
					return i, j, true
				}
			}
		}
	}
	return 0, 0, false
}

// SortByScore orders the set by score descending; ties keep set order.
func (s *Set) SortByScore() {
	sort.SliceStable(s.graphs, func(i, j int) bool {
		return s.graphs[i].Score > s.graphs[j].Score
	})
}

// Merge copies g1 verbatim, then folds g2 into the copy: a g2 node is
// reused iff a node in the merged graph already represents the same AST
// statement, otherwise it is copied whole (kind, name, type, const value,
// increment and context fields included). g2's edges are rewritten through
// the node remap; pairs that already exist with the same kind are skipped.
func Merge(g1, g2 *computegraph.Graph) *computegraph.Graph {
	out := g1.Clone()
	if g2.Score > out.Score {
		out.Score = g2.Score
	}

	byStmt := map[*sitter.Node]computegraph.NodeID{}
	for _, n := range out.Nodes() {
		if n.AST != nil {
			byStmt[n.AST] = n.ID
		}
	}

	remap := map[computegraph.NodeID]computegraph.NodeID{}
	copied := map[computegraph.NodeID]bool{}
	for _, n := range g2.Nodes() {
		if n.AST != nil {
			if id, ok := byStmt[n.AST]; ok {
				remap[n.ID] = id
				continue
			}
		}
		cp := *n
		nn := out.NewNode(n.Kind)
		id := nn.ID
		*nn = cp
		nn.ID = id
		remap[n.ID] = id
		copied[id] = true
		if n.AST != nil {
			byStmt[n.AST] = id
		}
	}
	// context IDs in freshly copied nodes still point into g2's arena;
	// rewrite them now that every g2 node has a home in the merged graph.
	for _, n := range g2.Nodes() {
		id := remap[n.ID]
		if !copied[id] {
			continue
		}
		nn := out.Node(id)
		nn.LoopContextID = remap[n.LoopContextID]
		nn.BranchContextID = remap[n.BranchContextID]
		nn.CallSiteID = remap[n.CallSiteID]
		nn.ReturnNodeID = remap[n.ReturnNodeID]
	}

	for _, e := range g2.Edges() {
		from, okF := remap[e.From]
		to, okT := remap[e.To]
		if okF && okT {
			out.AddEdge(from, to, e.Kind, e.Label)
		}
	}
	return out
}

// exportGraph is the flat, pointer-free record Export serializes per graph.
type exportGraph struct {
	Func     string       `msgpack:"func"`
	Line     int          `msgpack:"line"`
	Score    int          `msgpack:"score"`
	Template bool         `msgpack:"template"`
	Nodes    []exportNode `msgpack:"nodes"`
	Edges    []exportEdge `msgpack:"edges"`
}

type exportNode struct {
	ID         int    `msgpack:"id"`
	Kind       string `msgpack:"kind"`
	OpCode     int    `msgpack:"op"`
	Name       string `msgpack:"name"`
	TypeName   string `msgpack:"type"`
	ConstValue string `msgpack:"const,omitempty"`
	SourceLine int    `msgpack:"src_line"`
	SourceText string `msgpack:"src_text"`
	IsAnchor   bool   `msgpack:"anchor,omitempty"`
	LoopCtx    int    `msgpack:"loop_ctx,omitempty"`
	BranchCtx  int    `msgpack:"branch_ctx,omitempty"`
}

type exportEdge struct {
	ID    int    `msgpack:"id"`
	From  int    `msgpack:"from"`
	To    int    `msgpack:"to"`
	Kind  string `msgpack:"kind"`
	Label string `msgpack:"label"`
}

// Export writes the set as a msgpack stream: a count, then one record per
// graph in set order.
func (s *Set) Export(w io.Writer) error {
	enc := msgpack.NewEncoder(w)
	if err := enc.Encode(len(s.graphs)); err != nil {
		return err
	}
	for _, g := range s.graphs {
		rec := exportGraph{
			Func:     anchorFuncName(g),
			Line:     g.AnchorLine,
			Score:    g.Score,
			Template: g.Template,
		}
		for _, n := range g.Nodes() {
			rec.Nodes = append(rec.Nodes, exportNode{
				ID:         int(n.ID),
				Kind:       n.Kind.String(),
				OpCode:     int(n.OpCode),
				Name:       n.Name,
				TypeName:   n.TypeName,
				ConstValue: n.ConstValue,
				SourceLine: n.SourceLine,
				SourceText: n.SourceText,
				IsAnchor:   n.IsAnchor,
				LoopCtx:    int(n.LoopContextID),
				BranchCtx:  int(n.BranchContextID),
			})
		}
		for _, e := range g.Edges() {
			rec.Edges = append(rec.Edges, exportEdge{
				ID:    int(e.ID),
				From:  int(e.From),
				To:    int(e.To),
				Kind:  e.Kind.String(),
				Label: e.Label,
			})
		}
		if err := enc.Encode(rec); err != nil {
			return err
		}
	}
	return nil
}

func anchorFuncName(g *computegraph.Graph) string {
	if g.AnchorFunc == nil {
		return ""
	}
	return g.AnchorFunc.QualifiedName
}
