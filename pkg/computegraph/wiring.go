package computegraph

import (
	sitter "github.com/smacker/go-tree-sitter"

	"github.com/cpggen/cpggen/pkg/anchor"
	"github.com/cpggen/cpggen/pkg/frontend"
	"github.com/cpggen/cpggen/pkg/icfg"
)

// paramToCallSiteTrace implements §4.5.1 step 6: every Parameter node not
// already traced to a call site gets connected to its actual arguments
// across every call in the translation unit.
func (b *Builder) paramToCallSiteTrace() {
	for _, n := range b.g.Nodes() {
		if n.Kind != KindParameter || n.TracedToCallsite || n.Func == nil {
			continue
		}
		b.traceParameterToCallSites(n.Func, n.Name, n.ID, 0)
		n.TracedToCallsite = true
	}
}

// loopWiring implements §4.5.1 step 7: it connects the loop node to the
// anchor's body, stamps any node the earlier passes missed, promotes the
// induction variable's node to LoopInduction, and wires the loop's initial
// value whether it comes from the for-header or an earlier statement.
func (b *Builder) loopWiring(a anchor.Point) {
	info := b.currentLoopInfo
	if info == nil {
		return
	}
	anchorID, ok := b.processedStmts[a.Stmt]
	if ok {
		b.g.AddEdge(info.LoopNodeID, anchorID, EdgeControl, "loop_body")
	}

	for _, n := range b.g.Nodes() {
		if n.LoopContextID != 0 || n.AST == nil {
			continue
		}
		if n.SourceLine >= info.BodyStartLine && n.SourceLine <= info.BodyEndLine {
			n.LoopContextID = info.LoopNodeID
			n.LoopContextLine = frontend.SourceLine(info.LoopStmt)
		}
	}

	var loopVarNode *Node
	for _, n := range b.g.Nodes() {
		if info.LoopVarName == "" {
			break
		}
		if (n.Kind == KindVariable || n.Kind == KindParameter) && n.Name == info.LoopVarName {
			loopVarNode = n
			break
		}
	}
	if loopVarNode != nil {
		b.g.AddEdge(info.LoopNodeID, loopVarNode.ID, EdgeDataFlow, "induction_var")
		loopVarNode.Kind = KindLoopInduction
	}

	// The induction variable needs an external initializer only when the
	// loop header carries none (while/do, bare for(;;)); accumulators the
	// anchor writes are always seeded outside the loop.
	var initVars []string
	if info.InitStmt == nil && info.LoopVarName != "" {
		initVars = append(initVars, info.LoopVarName)
	}
	for _, v := range definedVarsOf(a.Stmt, a.Func.TU.Content) {
		if v != info.LoopVarName {
			initVars = append(initVars, v)
		}
	}
	for _, v := range initVars {
		ext := externalInitializer(info.LoopStmt, v, a.Func)
		if ext == nil {
			continue
		}
		initID := b.buildExpressionTree(ext, 0)
		if initID != 0 {
			b.g.removeDataFlowExcept(initID, info.LoopNodeID)
			b.g.AddEdge(initID, info.LoopNodeID, EdgeDataFlow, "init:"+v)
		}
	}
}

// externalInitializer looks for the nearest preceding statement in the
// loop's enclosing compound that declares or assigns varName, covering
// while/do loops (and bare `for(;;)`) whose induction variable is seeded
// outside the loop header.
func externalInitializer(loopStmt *sitter.Node, varName string, fn *frontend.Func) *sitter.Node {
	if varName == "" || fn == nil {
		return nil
	}
	compound := frontend.EnclosingCompound(loopStmt)
	if compound == nil {
		return nil
	}
	content := fn.TU.Content
	var found *sitter.Node
	for _, child := range frontend.DirectChildren(compound) {
		if child == loopStmt {
			break
		}
		if !frontend.Precedes(child, loopStmt) {
			continue
		}
		if declaresOrAssigns(child, varName, content) {
			found = child
		}
	}
	return found
}

func declaresOrAssigns(stmt *sitter.Node, varName string, content []byte) bool {
	names := definedVarsOf(stmt, content)
	for _, n := range names {
		if n == varName {
			return true
		}
	}
	return false
}

var icfgEdgeLabels = map[icfg.EdgeKind]string{
	icfg.EdgeIntraprocedural: "cfg",
	icfg.EdgeUnconditional:   "cfg",
	icfg.EdgeTrue:            "cfg_true",
	icfg.EdgeFalse:           "cfg_false",
	icfg.EdgeCall:            "cfg_call",
	icfg.EdgeReturn:          "cfg_return",
	icfg.EdgeParamIn:         "cfg_param_in",
	icfg.EdgeParamOut:        "cfg_param_out",
}

// cfgEdgesPass implements §4.5.1 step 8: every lowered node with an AST
// statement gets a Control edge to whatever other lowered node the ICFG
// says control can fall through to next.
func (b *Builder) cfgEdgesPass() {
	if b.ICFG == nil {
		return
	}
	for _, n := range b.g.Nodes() {
		if n.AST == nil || n.Func == nil {
			continue
		}
		icfgNode, ok := b.icfgNodeFor(n)
		if !ok {
			continue
		}
		for _, succ := range icfgNode.Successors {
			succIcfg := b.ICFG.Node(succ.Node)
			if succIcfg == nil || succIcfg.Stmt == nil {
				continue
			}
			toID, ok := b.processedStmts[succIcfg.Stmt]
			if !ok {
				continue
			}
			label := icfgEdgeLabels[succ.Kind]
			if label == "" {
				label = "cfg"
			}
			b.g.AddEdge(n.ID, toID, EdgeControl, label)
		}
	}
}

func (b *Builder) icfgNodeFor(n *Node) (*icfg.Node, bool) {
	if icfgNode, ok := b.ICFG.NodeForStmt(n.Func, n.AST); ok {
		return icfgNode, true
	}
	if outer := enclosingPDGStmt(n.AST); outer != n.AST {
		return b.ICFG.NodeForStmt(n.Func, outer)
	}
	return nil, false
}

// removeDataFlowExcept drops every DataFlow edge sourced at from except
// the one pointing at keep, so an external initializer's value flows only
// into the loop it seeds, not wherever it was already wired mid-pass.
func (g *Graph) removeDataFlowExcept(from, keep NodeID) {
	var kept []*Edge
	for _, e := range g.edges {
		if e.From == from && e.Kind == EdgeDataFlow && e.To != keep {
			continue
		}
		kept = append(kept, e)
	}
	g.edges = kept
}
