package computegraph

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/cpggen/cpggen/pkg/frontend"
)

// traceAllDefinitionsBackward implements §4.5.4: for every variable stmt
// reads (skipping the active loop's induction variable, traced separately
// by loopWiring), it finds every reaching definition through the query
// layer and wires a DataFlow edge from each definition to the use —
// or a LoopCarried edge when the definition lies later in the loop body
// than the use, meaning the value only reaches the use on the next
// iteration.
func (b *Builder) traceAllDefinitionsBackward(stmt *sitter.Node, depth int) {
	if stmt == nil || depth > b.backwardLimit() {
		return
	}
	fn := b.ownerFunc(stmt)
	if fn == nil {
		return
	}
	content := fn.TU.Content

	for _, v := range readVars(stmt, content) {
		if b.currentLoopInfo != nil && v == b.currentLoopInfo.LoopVarName {
			continue
		}
		b.traceOneVarBackward(stmt, fn, v, depth)
	}

	for _, member := range unionMemberRefs(stmt, b.processedStmts) {
		b.traceUnionMemberDefinitions(member, depth)
	}
}

func (b *Builder) backwardLimit() int {
	if b.backwardDepthOverride > 0 {
		return b.backwardDepthOverride
	}
	return b.Limits.MaxBackwardDepth
}

func (b *Builder) traceOneVarBackward(useStmt *sitter.Node, fn *frontend.Func, varName string, depth int) {
	useNodeID, ok := b.processedStmts[useStmt]
	if !ok {
		return
	}
	key := tracedKey{varName: varName, node: useNodeID}
	if b.tracedVarNodes[key] {
		return
	}
	b.tracedVarNodes[key] = true

	pdgStmt := enclosingPDGStmt(useStmt)
	if pdgStmt != nil && b.Query != nil {
		for _, def := range b.Query.ReachingDefsAt(fn, pdgStmt, varName) {
			b.wireBackwardDef(def, useStmt, useNodeID, varName, depth)
		}
		return
	}

	// No PDG coverage for this statement shape (e.g. inside an already
	// inlined callee body): fall back to a parameter trace if the read
	// names a formal.
	b.traceParameterToCallSites(fn, varName, useNodeID, depth)
}

func (b *Builder) wireBackwardDef(def, useStmt *sitter.Node, useNodeID NodeID, varName string, depth int) {
	defID := b.buildExpressionTree(def, depth+1)
	if defID == 0 {
		return
	}
	b.traceAllDefinitionsBackward(def, depth+1)

	kind := EdgeDataFlow
	if b.currentLoopInfo != nil {
		defLine := frontend.SourceLine(def)
		useLine := frontend.SourceLine(useStmt)
		if defLine >= useLine && defLine <= b.currentLoopInfo.BodyEndLine {
			kind = EdgeLoopCarried
		}
	}
	b.g.AddEdge(defID, useNodeID, kind, "def:"+varName)
}

// unionMemberRefs collects the already-lowered union-member MemberAccess
// nodes referenced inside stmt, in AST order.
func unionMemberRefs(stmt *sitter.Node, processed map[*sitter.Node]NodeID) []*sitter.Node {
	var out []*sitter.Node
	var walk func(n *sitter.Node)
	walk = func(n *sitter.Node) {
		if n == nil {
			return
		}
		if n.Type() == "field_expression" {
			if _, ok := processed[n]; ok {
				out = append(out, n)
			}
		}
		for i := 0; i < int(n.ChildCount()); i++ {
			walk(n.Child(i))
		}
	}
	walk(stmt)
	return out
}

// traceUnionMemberDefinitions handles a MemberExpr reference to a union
// member: every assignment writing any member of the same union base in the
// function gets lowered and connected to this member with a DataFlow edge
// labelled "base.otherField -> currentField", then the sibling members get
// union-alias Memory edges (directional when one side writes).
func (b *Builder) traceUnionMemberDefinitions(memberExpr *sitter.Node, depth int) {
	memberID, ok := b.processedStmts[memberExpr]
	if !ok {
		return
	}
	member := b.g.Node(memberID)
	if member == nil || !member.IsUnionMember {
		return
	}
	key := tracedKey{varName: "union:" + member.Name, node: memberID}
	if b.tracedVarNodes[key] {
		return
	}
	b.tracedVarNodes[key] = true

	fn := b.ownerFunc(memberExpr)
	if fn == nil || fn.Body == nil {
		return
	}
	content := fn.TU.Content

	for _, w := range unionMemberWrites(fn.Body, member.UnionVar, content) {
		defID := b.buildExpressionTree(w.stmt, depth+1)
		if defID == 0 {
			continue
		}
		defMemberID, ok := b.processedStmts[w.member]
		if !ok {
			continue
		}
		defMember := b.g.Node(defMemberID)
		if defMember == nil || defMember.ID == member.ID {
			continue
		}
		b.g.AddEdge(defMember.ID, member.ID, EdgeDataFlow, defMember.Name+" -> "+unionFieldOf(member))
	}

	b.wireUnionAliasEdges(member)
}

// unionWrite is one assignment whose left-hand side is a member of the
// traced union base.
type unionWrite struct {
	stmt   *sitter.Node
	member *sitter.Node
}

func unionMemberWrites(body *sitter.Node, base string, content []byte) []unionWrite {
	var out []unionWrite
	var walk func(n *sitter.Node)
	walk = func(n *sitter.Node) {
		if n == nil {
			return
		}
		if n.Type() == "assignment_expression" {
			lhs, _, _ := assignParts(n)
			if lhs != nil && lhs.Type() == "field_expression" {
				if baseNode, _ := memberParts(lhs); baseNode != nil && nodeText(content, baseNode) == base {
					out = append(out, unionWrite{stmt: n, member: lhs})
				}
			}
		}
		for i := 0; i < int(n.ChildCount()); i++ {
			walk(n.Child(i))
		}
	}
	walk(body)
	return out
}

// wireUnionAliasEdges connects member to every same-call-site sibling of the
// same union base with a Memory edge: write→read direction labelled
// "union(w->r)" when exactly one side is an assignment target, otherwise the
// lower node ID anchors a bidirectional alias labelled "union(a<->b)".
func (b *Builder) wireUnionAliasEdges(member *Node) {
	for _, n := range b.g.Nodes() {
		if n.ID == member.ID || n.Kind != KindMemberAccess || !n.IsUnionMember {
			continue
		}
		if n.UnionVar != member.UnionVar || n.CallSiteID != member.CallSiteID {
			continue
		}
		switch {
		case n.IsAssignTarget && !member.IsAssignTarget:
			b.g.AddEdge(n.ID, member.ID, EdgeMemory, "union("+unionFieldOf(n)+"->"+unionFieldOf(member)+")")
		case member.IsAssignTarget && !n.IsAssignTarget:
			b.g.AddEdge(member.ID, n.ID, EdgeMemory, "union("+unionFieldOf(member)+"->"+unionFieldOf(n)+")")
		default:
			src, dst := member, n
			if n.ID < member.ID {
				src, dst = n, member
			}
			b.g.AddEdge(src.ID, dst.ID, EdgeMemory, "union("+unionFieldOf(src)+"<->"+unionFieldOf(dst)+")")
		}
	}
}

// unionFieldOf strips the base-variable prefix off a MemberAccess name,
// leaving the bare field name ("u.f" -> "f").
func unionFieldOf(n *Node) string {
	return strings.TrimPrefix(n.Name, n.UnionVar+".")
}

// traceParameterToCallSites promotes a read of a formal parameter to a
// trace across every call site invoking fn, connecting each actual
// argument expression to the parameter's use with a Call edge.
func (b *Builder) traceParameterToCallSites(fn *frontend.Func, paramName string, useNodeID NodeID, depth int) {
	if !isParamName(fn, paramName) || b.Query == nil || depth >= b.Limits.MaxCallDepth {
		return
	}
	idx := paramIndexOf(fn, paramName)
	if idx < 0 {
		return
	}
	for _, cc := range b.Query.CallSitesInto(fn) {
		if idx >= len(cc.Site.Args) {
			continue
		}
		argID := b.buildExpressionTree(cc.Site.Args[idx], depth+1)
		if argID != 0 {
			b.g.AddEdge(argID, useNodeID, EdgeCall, "param_to_callsite")
		}
	}
}

func paramIndexOf(fn *frontend.Func, name string) int {
	for _, p := range fn.Params {
		if p.Name == name {
			return p.Index
		}
	}
	return -1
}

// enclosingPDGStmt maps an expression node to the statement node the PDG
// indexes reaching-defs/uses by, since anchor and compute-graph nodes are
// often the inner expression. It returns expr itself when it already is an
// expression_statement, declaration or return_statement, its parent when
// that parent is an expression_statement, and expr unchanged otherwise;
// no further ancestors are searched.
func enclosingPDGStmt(expr *sitter.Node) *sitter.Node {
	if expr == nil {
		return nil
	}
	if expr.Type() == "expression_statement" || expr.Type() == "declaration" || expr.Type() == "return_statement" {
		return expr
	}
	if p := expr.Parent(); p != nil && p.Type() == "expression_statement" {
		return p
	}
	return expr
}

// readVars collects the distinct identifier names read by stmt, excluding
// the left-hand side of a top-level assignment (which is written, not
// read, unless it's itself a compound assignment or read-modify-write).
func readVars(stmt *sitter.Node, content []byte) []string {
	seen := map[string]bool{}
	var names []string
	var visit func(n *sitter.Node, isWriteOnly bool)
	visit = func(n *sitter.Node, isWriteOnly bool) {
		if n == nil {
			return
		}
		switch n.Type() {
		case "assignment_expression":
			lhs, op, rhs := assignParts(n)
			writeOnly := op == "="
			visit(lhs, writeOnly)
			visit(rhs, false)
			return
		case "identifier":
			if isWriteOnly {
				return
			}
			name := nodeText(content, n)
			if !seen[name] {
				seen[name] = true
				names = append(names, name)
			}
			return
		}
		for i := 0; i < int(n.ChildCount()); i++ {
			visit(n.Child(i), false)
		}
	}
	visit(stmt, false)
	return names
}
