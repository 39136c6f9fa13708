package computegraph

import (
	sitter "github.com/smacker/go-tree-sitter"

	"github.com/cpggen/cpggen/pkg/anchor"
	"github.com/cpggen/cpggen/pkg/frontend"
	"github.com/cpggen/cpggen/pkg/icfg"
	"github.com/cpggen/cpggen/pkg/query"
)

// Limits bundles the resource caps a Builder enforces, mirrored from
// internal/config.Config so this package doesn't import the driver config
// type directly.
type Limits struct {
	MaxExprDepth          int
	MaxBackwardDepth      int
	MaxForwardDepth       int
	MaxCallDepth          int
	EnableInterprocedural bool
}

// DefaultLimits matches the spec's defaults (§5).
func DefaultLimits() Limits {
	return Limits{
		MaxExprDepth:          20,
		MaxBackwardDepth:      10,
		MaxForwardDepth:       5,
		MaxCallDepth:          3,
		EnableInterprocedural: true,
	}
}

// Builder holds the cross-function context (ICFG, query engine, resource
// caps) needed to build a compute graph from any anchor; BuildFromAnchor
// resets the per-graph state fields before each run.
type Builder struct {
	ICFG    *icfg.Graph
	Query   *query.Engine
	Limits  Limits

	g *Graph

	processedStmts     map[*sitter.Node]NodeID
	forwardTracedStmts map[*sitter.Node]bool
	currentCallStack   map[string]bool
	currentCallDepth   int
	currentLoopInfo    *LoopInfo
	currentBranchInfo  *BranchInfo

	tracedVars     map[string]bool
	tracedVarNodes map[tracedKey]bool

	backwardDepthOverride int // max_backward_depth, 5 when invoked from forward trace
}

type tracedKey struct {
	varName string
	node    NodeID
}

// New builds a Builder over an already-constructed whole-program ICFG and
// query engine.
func New(g *icfg.Graph, q *query.Engine, limits Limits) *Builder {
	return &Builder{ICFG: g, Query: q, Limits: limits}
}

// BuildFromAnchor runs the full §4.5.1 build phase sequence for one anchor
// and returns the resulting compute graph.
func (b *Builder) BuildFromAnchor(a anchor.Point) *Graph {
	b.g = &Graph{AnchorFunc: a.Func, AnchorLine: a.SourceLine, Score: a.Score, Template: insideTemplate(a.Func)}
	b.processedStmts = map[*sitter.Node]NodeID{}
	b.forwardTracedStmts = map[*sitter.Node]bool{}
	b.currentCallStack = map[string]bool{a.Func.QualifiedName: true}
	b.currentCallDepth = 0
	b.currentLoopInfo = nil
	b.currentBranchInfo = nil
	b.tracedVars = map[string]bool{}
	b.tracedVarNodes = map[tracedKey]bool{}

	b.precedingStatementsPass(a)
	b.containingLoopPass(a)

	anchorID := b.buildExpressionTree(a.Stmt, 0)
	if n := b.g.Node(anchorID); n != nil {
		n.IsAnchor = true
	}

	b.traceAllDefinitionsBackward(a.Stmt, 0)
	b.traceAllUsesForward(a.Stmt, 0)
	b.paramToCallSiteTrace()
	b.loopWiring(a)
	b.cfgEdgesPass()

	return b.g
}

// precedingStatementsPass implements §4.5.1 step 1: same-compound-block
// statements that textually precede the anchor get built first.
func (b *Builder) precedingStatementsPass(a anchor.Point) {
	compound := frontend.EnclosingCompound(a.Stmt)
	if compound == nil {
		return
	}
	for _, child := range frontend.DirectChildren(compound) {
		if child == a.Stmt {
			break
		}
		if !frontend.Precedes(child, a.Stmt) {
			continue
		}
		b.buildExpressionTree(child, 0)
	}
}

// containingLoopPass implements §4.5.1 step 2.
func (b *Builder) containingLoopPass(a anchor.Point) {
	if a.LoopDepth <= 0 {
		return
	}
	loopStmt := frontend.EnclosingLoop(a.Stmt)
	if loopStmt == nil {
		return
	}
	if id, ok := b.processedStmts[loopStmt]; ok {
		if n := b.g.Node(id); n != nil {
			b.currentLoopInfo = &LoopInfo{LoopNodeID: id, LoopStmt: loopStmt}
		}
		return
	}

	n := b.g.newNode(KindLoop)
	n.AST = loopStmt
	n.Func = a.Func
	n.LoopType = loopStmt.Type()
	n.SourceLine = frontend.SourceLine(loopStmt)
	n.SourceText = frontend.SourceText(a.Func.TU, loopStmt)
	b.processedStmts[loopStmt] = n.ID

	bodyStart, bodyEnd := loopBodyRange(loopStmt)
	varName, initStmt := loopVariable(loopStmt, a.Func.TU.Content)

	info := &LoopInfo{
		LoopNodeID:    n.ID,
		LoopStmt:      loopStmt,
		InitStmt:      initStmt,
		BodyStartLine: bodyStart,
		BodyEndLine:   bodyEnd,
		LoopVarName:   varName,
		AnchorNodeID:  0,
	}
	b.currentLoopInfo = info
	b.wireLoopClauses(n, loopStmt, 0)
}

func loopBodyRange(loopStmt *sitter.Node) (start, end int) {
	var body *sitter.Node
	switch loopStmt.Type() {
	case "for_statement":
		_, _, _, b := forLoopBody(loopStmt)
		body = b
	case "while_statement":
		if loopStmt.ChildCount() >= 3 {
			body = loopStmt.Child(2)
		}
	case "do_statement":
		if loopStmt.ChildCount() >= 2 {
			body = loopStmt.Child(1)
		}
	}
	if body == nil {
		return frontend.SourceLine(loopStmt), frontend.EndLine(loopStmt)
	}
	return frontend.SourceLine(body), frontend.EndLine(body)
}

func forLoopBody(node *sitter.Node) (init, cond, update, body *sitter.Node) {
	state := 0
	for i := 0; i < int(node.ChildCount()); i++ {
		c := node.Child(i)
		if c == nil {
			continue
		}
		switch c.Type() {
		case "for":
			continue
		case "(":
			state = 1
			continue
		case ";":
			state++
			continue
		case ")":
			state = 4
			continue
		}
		switch state {
		case 1:
			init = c
			if c.Type() == "declaration" { // a declaration carries its own ';'
				state = 2
			}
		case 2:
			cond = c
		case 3:
			update = c
		case 4:
			body = c
		}
	}
	return
}

// loopVariable extracts the induction variable name from a for-loop's
// increment clause (++i, i++, i+=k, i=i+k) or, for while/do, the first
// identifier compared in the condition, per §4.5.1 step 2.
func loopVariable(loopStmt *sitter.Node, content []byte) (name string, initStmt *sitter.Node) {
	if loopStmt.Type() == "for_statement" {
		init, _, update, _ := forLoopBody(loopStmt)
		if update != nil {
			name = incrementVarName(update, content)
		}
		return name, init
	}

	cond := loopCondition(loopStmt)
	if cond != nil && cond.Type() == "parenthesized_expression" && cond.ChildCount() >= 2 {
		cond = cond.Child(1)
	}
	if cond == nil || cond.Type() != "binary_expression" {
		return "", nil
	}
	if cond.ChildCount() == 0 {
		return "", nil
	}
	left := cond.Child(0)
	if left != nil && left.Type() == "identifier" {
		return nodeText(content, left), nil
	}
	return "", nil
}

func loopCondition(loopStmt *sitter.Node) *sitter.Node {
	switch loopStmt.Type() {
	case "while_statement":
		if loopStmt.ChildCount() >= 2 {
			return loopStmt.Child(1)
		}
	case "do_statement":
		if loopStmt.ChildCount() >= 4 {
			return loopStmt.Child(3)
		}
	}
	return nil
}

func incrementVarName(update *sitter.Node, content []byte) string {
	switch update.Type() {
	case "update_expression":
		for i := 0; i < int(update.ChildCount()); i++ {
			c := update.Child(i)
			if c != nil && c.Type() == "identifier" {
				return nodeText(content, c)
			}
		}
	case "assignment_expression":
		if update.ChildCount() > 0 {
			return nodeText(content, update.Child(0))
		}
	}
	return ""
}

// insideTemplate reports whether fn's definition sits under a
// template_declaration, so DOT titles can carry the [TEMPLATE] tag.
func insideTemplate(fn *frontend.Func) bool {
	if fn == nil || fn.Node == nil {
		return false
	}
	for p := fn.Node.Parent(); p != nil; p = p.Parent() {
		if p.Type() == "template_declaration" {
			return true
		}
	}
	return false
}

func nodeText(content []byte, n *sitter.Node) string {
	if n == nil {
		return ""
	}
	start, end := n.StartByte(), n.EndByte()
	if int(end) > len(content) || start > end {
		return ""
	}
	return string(content[start:end])
}
