// Package dot renders compute graphs, ICFGs, and PDGs as Graphviz DOT
// text. Rendering is pure string building; two renders of the same graph
// produce byte-identical output because node identifiers are the graphs'
// own stable IDs (n<id>).
package dot

import (
	"fmt"
	"sort"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/cpggen/cpggen/pkg/computegraph"
	"github.com/cpggen/cpggen/pkg/frontend"
	"github.com/cpggen/cpggen/pkg/icfg"
	"github.com/cpggen/cpggen/pkg/pdg"
)

// ComputeGraph renders one compute graph. Node records carry
// [id] kind | name | op | type | func | line | code plus flag annotations;
// edge styles follow the kind (DataFlow blue, Control red dashed with green
// dashed for CFG fall-through, LoopCarried brown dashed, Return orange
// diamond, Call dark-green bold, Memory purple dotted).
func ComputeGraph(g *computegraph.Graph) string {
	var sb strings.Builder
	sb.WriteString("digraph ComputeGraph {\n")
	sb.WriteString("  rankdir=TB;\n")
	sb.WriteString("  node [shape=record, fontname=\"monospace\", fontsize=10];\n")
	sb.WriteString(fmt.Sprintf("  label=%q;\n", computeGraphTitle(g)))
	sb.WriteString("  labelloc=t;\n\n")

	inductionVars := map[computegraph.NodeID]string{}
	for _, n := range g.Nodes() {
		if n.Kind == computegraph.KindLoopInduction && n.LoopContextID != 0 {
			inductionVars[n.LoopContextID] = n.Name
		}
	}

	for _, n := range g.Nodes() {
		sb.WriteString(fmt.Sprintf("  n%d [label=\"%s\"%s];\n", n.ID, nodeLabel(n, inductionVars), nodeStyle(n)))
	}
	sb.WriteString("\n")
	for _, e := range g.Edges() {
		sb.WriteString(fmt.Sprintf("  n%d -> n%d [label=%q%s];\n", e.From, e.To, e.Label, edgeStyle(e)))
	}
	sb.WriteString("}\n")
	return sb.String()
}

func computeGraphTitle(g *computegraph.Graph) string {
	fn := "unknown"
	if g.AnchorFunc != nil {
		fn = g.AnchorFunc.QualifiedName
	}
	title := fmt.Sprintf("%s: %d nodes, %d edges", fn, len(g.Nodes()), len(g.Edges()))
	if g.Template {
		title += " [TEMPLATE]"
	}
	return title
}

func nodeLabel(n *computegraph.Node, inductionVars map[computegraph.NodeID]string) string {
	fn := ""
	if n.Func != nil {
		fn = n.Func.QualifiedName
	}
	fields := []string{
		fmt.Sprintf("[%d] %s", n.ID, n.Kind),
		esc(n.Name),
		esc(n.OpCode.String()),
		esc(n.TypeName),
		esc(fn),
		fmt.Sprintf("L%d", n.SourceLine),
		esc(n.SourceText),
	}
	label := strings.Join(fields, " | ")

	var flags []string
	if n.IsAnchor {
		flags = append(flags, "ANCHOR")
	}
	if n.IsAssignTarget {
		flags = append(flags, "ASSIGN_TARGET")
	}
	if n.IsReadWrite {
		flags = append(flags, "READ_WRITE")
	}
	if n.IsFormalParam {
		flags = append(flags, "FORMAL_PARAM")
	}
	if n.IsUnionMember {
		flags = append(flags, "UNION:"+esc(n.UnionVar))
	}
	if len(flags) > 0 {
		label += " | [" + strings.Join(flags, ",") + "]"
	}

	if n.CalleeAnalyzed {
		label += fmt.Sprintf(" | ▶ CALL_SITE[%d] from %s", n.ID, esc(n.CalleeName))
	} else if n.CallSiteID != 0 {
		label += fmt.Sprintf(" | ▶ CALL_SITE[%d] from %s", n.CallSiteID, esc(n.CalleeName))
	}
	if n.LoopContextID != 0 {
		label += fmt.Sprintf(" | ★ IN LOOP[%d] var=%s @L%d", n.LoopContextID, esc(inductionVars[n.LoopContextID]), n.LoopContextLine)
	}
	if n.BranchContextID != 0 {
		label += fmt.Sprintf(" | ◆ BRANCH: %s", esc(n.BranchLabel))
	}
	return label
}

func nodeStyle(n *computegraph.Node) string {
	switch {
	case n.IsAnchor:
		return ", style=filled, fillcolor=gold"
	case n.Kind == computegraph.KindLoop:
		return ", style=filled, fillcolor=lightblue"
	case n.Kind == computegraph.KindBranch:
		return ", style=filled, fillcolor=mistyrose"
	case n.Kind == computegraph.KindCall || n.Kind == computegraph.KindIntrinsicCall:
		return ", style=filled, fillcolor=palegreen"
	default:
		return ""
	}
}

func edgeStyle(e *computegraph.Edge) string {
	switch e.Kind {
	case computegraph.EdgeDataFlow:
		return ", color=blue"
	case computegraph.EdgeControl:
		if strings.HasPrefix(e.Label, "cfg") {
			return ", color=green, style=dashed"
		}
		return ", color=red, style=dashed"
	case computegraph.EdgeLoopCarried:
		return ", color=brown, style=dashed, constraint=false"
	case computegraph.EdgeReturn:
		return ", color=orange, arrowhead=diamond"
	case computegraph.EdgeCall:
		return ", color=darkgreen, style=bold"
	case computegraph.EdgeMemory:
		return ", color=purple, style=dotted"
	default:
		return ""
	}
}

// esc escapes the characters Graphviz record labels treat specially.
var recordEscaper = strings.NewReplacer(
	"\\", "\\\\", "\"", "\\\"", "|", "\\|", "{", "\\{", "}", "\\}", "<", "\\<", ">", "\\>", "\n", " ",
)

func esc(s string) string {
	return recordEscaper.Replace(s)
}

// ICFG renders the interprocedural nodes owned by fn, plus any
// Call/Return/Param edges leaving them, so per-function files still show
// where control escapes into callees.
func ICFG(g *icfg.Graph, fn *frontend.Func) string {
	var sb strings.Builder
	sb.WriteString("digraph ICFG {\n")
	sb.WriteString("  node [shape=box, fontname=\"monospace\", fontsize=10];\n")
	sb.WriteString(fmt.Sprintf("  label=\"ICFG: %s\";\n  labelloc=t;\n\n", fn.QualifiedName))

	owned := map[icfg.NodeID]bool{}
	for _, n := range g.Nodes() {
		if n.Func != fn {
			continue
		}
		owned[n.ID] = true
		text := string(n.Kind)
		if n.Stmt != nil {
			text += "\\n" + esc(frontend.SourceText(fn.TU, n.Stmt))
		}
		if n.ParamName != "" {
			text += fmt.Sprintf("\\n%s#%d", esc(n.ParamName), n.ParamIndex)
		}
		sb.WriteString(fmt.Sprintf("  n%d [label=\"%s\"];\n", n.ID, text))
	}
	sb.WriteString("\n")
	for _, n := range g.Nodes() {
		if !owned[n.ID] {
			continue
		}
		for _, s := range n.Successors {
			style := icfgEdgeStyle(s.Kind)
			if !owned[s.Node] {
				// cross-procedure target: render it as a stub box once
				target := g.Node(s.Node)
				if target != nil {
					stubFn := ""
					if target.Func != nil {
						stubFn = target.Func.QualifiedName
					}
					sb.WriteString(fmt.Sprintf("  n%d [label=\"%s\\n%s\", style=dashed];\n", target.ID, target.Kind, esc(stubFn)))
				}
			}
			sb.WriteString(fmt.Sprintf("  n%d -> n%d [label=%q%s];\n", n.ID, s.Node, string(s.Kind), style))
		}
	}
	sb.WriteString("}\n")
	return sb.String()
}

func icfgEdgeStyle(k icfg.EdgeKind) string {
	switch k {
	case icfg.EdgeCall:
		return ", color=darkgreen, style=bold"
	case icfg.EdgeReturn:
		return ", color=orange"
	case icfg.EdgeParamIn, icfg.EdgeParamOut:
		return ", color=gray, style=dotted"
	case icfg.EdgeTrue:
		return ", color=green"
	case icfg.EdgeFalse:
		return ", color=red"
	default:
		return ""
	}
}

// PDG renders one function's dependence graph: every statement with a PDG
// node, data-dependence edges in blue (labelled var/kind) and
// control-dependence edges in red dashed (labelled T or F).
func PDG(fp *pdg.FuncPDG) string {
	var sb strings.Builder
	sb.WriteString("digraph PDG {\n")
	sb.WriteString("  node [shape=box, fontname=\"monospace\", fontsize=10];\n")
	sb.WriteString(fmt.Sprintf("  label=\"PDG: %s\";\n  labelloc=t;\n\n", fp.Func.QualifiedName))

	stmts := make([]*sitter.Node, 0, len(fp.Nodes))
	for stmt := range fp.Nodes {
		stmts = append(stmts, stmt)
	}
	sort.Slice(stmts, func(i, j int) bool { return stmts[i].StartByte() < stmts[j].StartByte() })

	id := map[*sitter.Node]int{}
	for i, stmt := range stmts {
		id[stmt] = i + 1
		sb.WriteString(fmt.Sprintf("  n%d [label=\"L%d: %s\"];\n", i+1, frontend.SourceLine(stmt), esc(frontend.SourceText(fp.Func.TU, stmt))))
	}
	sb.WriteString("\n")
	for _, stmt := range stmts {
		n := fp.Nodes[stmt]
		for _, d := range n.DataDeps {
			src, ok := id[d.Source]
			if !ok {
				continue
			}
			sb.WriteString(fmt.Sprintf("  n%d -> n%d [label=\"%s/%s\", color=blue];\n", src, id[stmt], esc(d.VarName), d.Kind))
		}
		for _, c := range n.ControlDeps {
			src, ok := id[c.Control]
			if !ok {
				continue
			}
			branch := "F"
			if c.BranchValue {
				branch = "T"
			}
			sb.WriteString(fmt.Sprintf("  n%d -> n%d [label=%q, color=red, style=dashed];\n", src, id[stmt], branch))
		}
	}
	sb.WriteString("}\n")
	return sb.String()
}
