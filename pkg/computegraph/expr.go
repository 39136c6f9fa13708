package computegraph

import (
	"strconv"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/cpggen/cpggen/pkg/anchor"
	"github.com/cpggen/cpggen/pkg/frontend"
)

// buildExpressionTree is §4.5.2's single recursive entry point. It never
// exceeds MaxExprDepth, always checks the cache before creating anything,
// and inserts a fresh node into processedStmts before descending into its
// children so self-referential walks (a loop header revisited through its
// own body) terminate.
func (b *Builder) buildExpressionTree(stmt *sitter.Node, depth int) NodeID {
	if stmt == nil || depth > b.Limits.MaxExprDepth {
		return 0
	}

	// tree-sitter has no ImplicitCastExpr/LValueToRValue equivalent; the
	// nearest analogue of a "purely structural" wrapper is a parenthesized
	// expression, which carries no computation of its own.
	if stmt.Type() == "parenthesized_expression" && stmt.ChildCount() >= 2 {
		return b.buildExpressionTree(stmt.Child(1), depth)
	}

	if id, ok := b.processedStmts[stmt]; ok {
		return id
	}

	if ctrl := frontend.EnclosingControlStmt(stmt); ctrl != nil {
		if _, done := b.processedStmts[ctrl]; !done {
			b.buildExpressionTree(ctrl, depth)
			if id, ok := b.processedStmts[stmt]; ok {
				return id
			}
		}
	}

	switch stmt.Type() {
	case "if_statement":
		return b.buildIfBranch(stmt, depth)
	case "switch_statement":
		return b.buildSwitchBranch(stmt, depth)
	}

	return b.lowerByShape(stmt, depth)
}

func (b *Builder) lowerByShape(stmt *sitter.Node, depth int) NodeID {
	fn := b.ownerFunc(stmt)
	content := fn.TU.Content

	switch stmt.Type() {
	case "expression_statement":
		if stmt.ChildCount() > 0 {
			return b.buildExpressionTree(stmt.Child(0), depth)
		}
		return 0

	case "assignment_expression":
		return b.lowerAssignment(stmt, depth, fn, content)

	case "update_expression":
		return b.lowerUpdateExpression(stmt, depth, fn, content)

	case "binary_expression":
		return b.lowerBinary(stmt, depth, fn, content)

	case "unary_expression":
		return b.lowerUnary(stmt, depth, fn, content)

	case "identifier", "field_identifier":
		return b.lowerIdentifier(stmt, fn, content)

	case "number_literal":
		n := b.newRecorded(stmt, fn, KindConstant)
		n.HasConstValue = true
		n.ConstValue = nodeText(content, stmt)
		return n.ID

	case "declaration":
		return b.lowerDeclaration(stmt, depth, fn, content)

	case "subscript_expression":
		return b.lowerSubscript(stmt, depth, fn, content)

	case "field_expression":
		return b.lowerMember(stmt, depth, fn, content)

	case "call_expression":
		return b.lowerCall(stmt, depth, fn, content)

	case "conditional_expression":
		return b.lowerConditional(stmt, depth, fn, content)

	case "return_statement":
		return b.lowerReturn(stmt, depth, fn, content)

	case "for_statement", "while_statement", "do_statement":
		return b.lowerLoopShape(stmt, depth, fn, content)

	case "cast_expression":
		n := b.newRecorded(stmt, fn, KindCast)
		if inner := castOperand(stmt); inner != nil {
			childID := b.buildExpressionTree(inner, depth+1)
			b.g.AddEdge(childID, n.ID, EdgeDataFlow, "cast")
		}
		return n.ID

	default:
		n := b.newRecorded(stmt, fn, KindUnknown)
		return n.ID
	}
}

// newRecorded creates a node for stmt, stamps its source info, and records
// it in processedStmts before the caller descends into children (§4.5.2
// step 5's cycle-breaking insert-before-descend rule).
func (b *Builder) newRecorded(stmt *sitter.Node, fn *frontend.Func, kind NodeKind) *Node {
	n := b.g.newNode(kind)
	n.AST = stmt
	n.Func = fn
	n.SourceLine = frontend.SourceLine(stmt)
	n.SourceText = frontend.SourceText(fn.TU, stmt)
	b.processedStmts[stmt] = n.ID
	b.applyLoopContext(n)
	b.applyBranchContext(n)
	return n
}

func (b *Builder) applyLoopContext(n *Node) {
	if b.currentLoopInfo == nil {
		return
	}
	if n.SourceLine < b.currentLoopInfo.BodyStartLine || n.SourceLine > b.currentLoopInfo.BodyEndLine {
		return
	}
	n.LoopContextID = b.currentLoopInfo.LoopNodeID
	n.LoopContextLine = frontend.SourceLine(b.currentLoopInfo.LoopStmt)
}

func (b *Builder) applyBranchContext(n *Node) {
	if b.currentBranchInfo == nil {
		return
	}
	if n.SourceLine < b.currentBranchInfo.BodyStartLine || n.SourceLine > b.currentBranchInfo.BodyEndLine {
		return
	}
	n.BranchContextID = b.currentBranchInfo.BranchNodeID
	n.BranchContextLine = b.currentBranchInfo.BodyStartLine
	n.BranchLabel = b.currentBranchInfo.BranchType
}

func (b *Builder) ownerFunc(stmt *sitter.Node) *frontend.Func {
	fnNode := frontend.EnclosingFunction(stmt)
	if fnNode == nil {
		return b.g.AnchorFunc
	}
	if b.Query != nil {
		for _, fn := range b.Query.Funcs() {
			if fn.Node == fnNode {
				return fn
			}
		}
	}
	return b.g.AnchorFunc
}

// --- assignment / increment shapes ---

func (b *Builder) lowerAssignment(stmt *sitter.Node, depth int, fn *frontend.Func, content []byte) NodeID {
	lhs, op, rhs := assignParts(stmt)
	if lhs == nil {
		n := b.newRecorded(stmt, fn, KindUnknown)
		return n.ID
	}

	if op == "=" {
		if incVar, step, ok := assignIncrementShape(lhs, rhs, content); ok {
			n := b.newRecorded(stmt, fn, KindBinaryOp)
			n.OpCode = signOpCode(step)
			n.IsIncrement = true
			n.IncrementVar = incVar
			n.IncrementStep = step
			n.Name = incrementName(incVar, step)
			b.wireCompoundAssign(n, lhs, rhs, depth)
			return n.ID
		}

		n := b.newRecorded(stmt, fn, KindBinaryOp)
		n.OpCode = anchor.OpAssign
		rhsID := b.buildExpressionTree(rhs, depth+1)
		b.g.AddEdge(rhsID, n.ID, EdgeDataFlow, "rhs")
		lhsID := b.buildExpressionTree(lhs, depth+1)
		if ln := b.g.Node(lhsID); ln != nil {
			ln.IsAssignTarget = true
		}
		b.g.AddEdge(n.ID, lhsID, EdgeDataFlow, "assign_to")
		return n.ID
	}

	opcode, _ := compoundAssignOp(op)
	n := b.newRecorded(stmt, fn, KindBinaryOp)
	n.OpCode = opcode
	if incVar, step, ok := compoundIncrementShape(lhs, op, rhs, content); ok {
		n.IsIncrement = true
		n.IncrementVar = incVar
		n.IncrementStep = step
		n.Name = incrementName(incVar, step)
	}
	b.wireCompoundAssign(n, lhs, rhs, depth)
	return n.ID
}

func (b *Builder) wireCompoundAssign(n *Node, lhs, rhs *sitter.Node, depth int) {
	lhsID := b.buildExpressionTree(lhs, depth+1)
	b.g.AddEdge(lhsID, n.ID, EdgeDataFlow, "lhs_read")
	if ln := b.g.Node(lhsID); ln != nil {
		ln.IsAssignTarget = true
		ln.IsReadWrite = true
	}
	b.g.AddEdge(n.ID, lhsID, EdgeDataFlow, "assign_to")
	rhsID := b.buildExpressionTree(rhs, depth+1)
	b.g.AddEdge(rhsID, n.ID, EdgeDataFlow, "rhs")
}

func (b *Builder) lowerUpdateExpression(stmt *sitter.Node, depth int, fn *frontend.Func, content []byte) NodeID {
	n := b.newRecorded(stmt, fn, KindBinaryOp)
	operand, form, step := updateShape(stmt, content)
	n.IsIncrement = true
	n.IncrementVar = nodeText(content, operand)
	n.IncrementStep = step
	n.OriginalForm = form
	n.OpCode = signOpCode(step)
	if operand != nil {
		operandID := b.buildExpressionTree(operand, depth+1)
		b.g.AddEdge(operandID, n.ID, EdgeDataFlow, "operand")
	}
	return n.ID
}

func (b *Builder) lowerBinary(stmt *sitter.Node, depth int, fn *frontend.Func, content []byte) NodeID {
	lhs, op, rhs := assignParts(stmt) // same 3-child shape as assignment
	opcode, isCompare := binaryOpCode(op)
	kind := KindBinaryOp
	if isCompare {
		kind = KindCompareOp
	}
	n := b.newRecorded(stmt, fn, kind)
	n.OpCode = opcode

	lhsID := b.buildExpressionTree(lhs, depth+1)
	b.g.AddEdge(lhsID, n.ID, EdgeDataFlow, "lhs")
	rhsID := b.buildExpressionTree(rhs, depth+1)
	b.g.AddEdge(rhsID, n.ID, EdgeDataFlow, "rhs")
	return n.ID
}

func (b *Builder) lowerUnary(stmt *sitter.Node, depth int, fn *frontend.Func, content []byte) NodeID {
	n := b.newRecorded(stmt, fn, KindUnaryOp)
	if stmt.ChildCount() >= 2 {
		op := stmt.Child(0).Type()
		n.OpCode = unaryOpCode(op)
		operand := stmt.Child(1)
		operandID := b.buildExpressionTree(operand, depth+1)
		b.g.AddEdge(operandID, n.ID, EdgeDataFlow, "operand")
	}
	return n.ID
}

func (b *Builder) lowerIdentifier(stmt *sitter.Node, fn *frontend.Func, content []byte) NodeID {
	name := nodeText(content, stmt)
	kind := KindVariable
	if isParamName(fn, name) {
		kind = KindParameter
	}
	n := b.newRecorded(stmt, fn, kind)
	n.Name = name
	if kind == KindParameter {
		n.IsFormalParam = true
	}
	return n.ID
}

func isParamName(fn *frontend.Func, name string) bool {
	if fn == nil {
		return false
	}
	for _, p := range fn.Params {
		if p.Name == name {
			return true
		}
	}
	return false
}

func (b *Builder) lowerDeclaration(stmt *sitter.Node, depth int, fn *frontend.Func, content []byte) NodeID {
	n := b.newRecorded(stmt, fn, KindVariable)
	for i := 0; i < int(stmt.ChildCount()); i++ {
		child := stmt.Child(i)
		if child == nil || child.Type() != "init_declarator" {
			continue
		}
		n.Name = declName(child, content)
		if init := declInit(child); init != nil {
			initID := b.buildExpressionTree(init, depth+1)
			b.g.AddEdge(initID, n.ID, EdgeDataFlow, "init")
		}
	}
	return n.ID
}

func declName(initDeclarator *sitter.Node, content []byte) string {
	for i := 0; i < int(initDeclarator.ChildCount()); i++ {
		c := initDeclarator.Child(i)
		if c != nil && c.Type() == "identifier" {
			return nodeText(content, c)
		}
	}
	return ""
}

func declInit(initDeclarator *sitter.Node) *sitter.Node {
	n := int(initDeclarator.ChildCount())
	if n == 0 {
		return nil
	}
	last := initDeclarator.Child(n - 1)
	if last != nil && last.Type() != "=" && last.Type() != "identifier" {
		return last
	}
	return nil
}

func (b *Builder) lowerSubscript(stmt *sitter.Node, depth int, fn *frontend.Func, content []byte) NodeID {
	n := b.newRecorded(stmt, fn, KindArrayAccess)
	base, idx := subscriptParts(stmt)
	n.Name = nodeText(content, base) + "[" + nodeText(content, idx) + "]"
	baseID := b.buildExpressionTree(base, depth+1)
	b.g.AddEdge(baseID, n.ID, EdgeDataFlow, "base")
	idxID := b.buildExpressionTree(idx, depth+1)
	b.g.AddEdge(idxID, n.ID, EdgeDataFlow, "index")
	return n.ID
}

func subscriptParts(node *sitter.Node) (base, idx *sitter.Node) {
	bracket := false
	for i := 0; i < int(node.ChildCount()); i++ {
		c := node.Child(i)
		if c == nil {
			continue
		}
		switch c.Type() {
		case "[":
			bracket = true
			continue
		case "]":
			continue
		}
		if bracket {
			idx = c
		} else {
			base = c
		}
	}
	return
}

func (b *Builder) lowerMember(stmt *sitter.Node, depth int, fn *frontend.Func, content []byte) NodeID {
	n := b.newRecorded(stmt, fn, KindMemberAccess)
	base, field := memberParts(stmt)
	baseName := nodeText(content, base)
	fieldName := nodeText(content, field)
	n.Name = baseName + "." + fieldName

	if b.isUnionMember(stmt, fn) {
		n.IsUnionMember = true
		n.UnionVar = baseName
	}

	baseID := b.buildExpressionTree(base, depth+1)
	b.g.AddEdge(baseID, n.ID, EdgeDataFlow, "base")
	return n.ID
}

func memberParts(node *sitter.Node) (base, field *sitter.Node) {
	var nonDot []*sitter.Node
	for i := 0; i < int(node.ChildCount()); i++ {
		c := node.Child(i)
		if c == nil || c.Type() == "." || c.Type() == "->" {
			continue
		}
		nonDot = append(nonDot, c)
	}
	if len(nonDot) >= 2 {
		return nonDot[0], nonDot[1]
	}
	return nil, nil
}

// isUnionMember is a best-effort heuristic: the parsed AST alone doesn't
// carry type information, so this checks whether the base variable's
// nearest declaration in the enclosing function uses a `union` keyword.
func (b *Builder) isUnionMember(memberExpr *sitter.Node, fn *frontend.Func) bool {
	base, _ := memberParts(memberExpr)
	if base == nil || fn == nil || fn.Body == nil {
		return false
	}
	name := nodeText(fn.TU.Content, base)
	return declaredAsUnion(fn.Body, name, fn.TU.Content)
}

func declaredAsUnion(node *sitter.Node, name string, content []byte) bool {
	if node == nil {
		return false
	}
	if node.Type() == "declaration" || node.Type() == "field_declaration" {
		text := nodeText(content, node)
		if containsWord(text, "union") && containsWord(text, name) {
			return true
		}
	}
	for i := 0; i < int(node.ChildCount()); i++ {
		if declaredAsUnion(node.Child(i), name, content) {
			return true
		}
	}
	return false
}

func containsWord(haystack, word string) bool {
	if word == "" {
		return false
	}
	for i := 0; i+len(word) <= len(haystack); i++ {
		if haystack[i:i+len(word)] == word {
			before := i == 0 || !isIdentChar(haystack[i-1])
			after := i+len(word) == len(haystack) || !isIdentChar(haystack[i+len(word)])
			if before && after {
				return true
			}
		}
	}
	return false
}

func isIdentChar(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}

var intrinsicCallPrefixes = []string{"_mm_", "_mm256_", "_mm512_", "vld1", "vst1", "vadd", "vmul", "vdup", "vget"}

func (b *Builder) lowerCall(stmt *sitter.Node, depth int, fn *frontend.Func, content []byte) NodeID {
	callee := stmt.Child(0)
	calleeName := nodeText(content, callee)

	kind := KindCall
	for _, p := range intrinsicCallPrefixes {
		if len(calleeName) >= len(p) && calleeName[:len(p)] == p {
			kind = KindIntrinsicCall
			break
		}
	}

	n := b.newRecorded(stmt, fn, kind)
	n.Name = calleeName
	n.CalleeName = calleeName

	for i, arg := range callArgs(stmt) {
		argID := b.buildExpressionTree(arg, depth+1)
		b.g.AddEdge(argID, n.ID, EdgeDataFlow, "arg"+strconv.Itoa(i))
	}

	if kind == KindCall {
		b.analyzeCalleeBody(n, stmt, calleeName, depth)
	}
	return n.ID
}

func callArgs(callExpr *sitter.Node) []*sitter.Node {
	argList := callExpr.Child(int(callExpr.ChildCount()) - 1)
	if argList == nil || argList.Type() != "argument_list" {
		return nil
	}
	var args []*sitter.Node
	for i := 0; i < int(argList.ChildCount()); i++ {
		child := argList.Child(i)
		if child == nil || child.Type() == "(" || child.Type() == ")" || child.Type() == "," {
			continue
		}
		args = append(args, child)
	}
	return args
}

func (b *Builder) lowerConditional(stmt *sitter.Node, depth int, fn *frontend.Func, content []byte) NodeID {
	n := b.newRecorded(stmt, fn, KindSelect)
	cond, trueVal, falseVal := conditionalParts(stmt)
	condID := b.buildExpressionTree(cond, depth+1)
	b.g.AddEdge(condID, n.ID, EdgeControl, "condition")
	trueID := b.buildExpressionTree(trueVal, depth+1)
	b.g.AddEdge(trueID, n.ID, EdgeDataFlow, "true_val")
	falseID := b.buildExpressionTree(falseVal, depth+1)
	b.g.AddEdge(falseID, n.ID, EdgeDataFlow, "false_val")
	return n.ID
}

func conditionalParts(node *sitter.Node) (cond, trueVal, falseVal *sitter.Node) {
	var parts []*sitter.Node
	for i := 0; i < int(node.ChildCount()); i++ {
		c := node.Child(i)
		if c == nil || c.Type() == "?" || c.Type() == ":" {
			continue
		}
		parts = append(parts, c)
	}
	if len(parts) >= 3 {
		return parts[0], parts[1], parts[2]
	}
	return nil, nil, nil
}

func (b *Builder) lowerReturn(stmt *sitter.Node, depth int, fn *frontend.Func, content []byte) NodeID {
	n := b.newRecorded(stmt, fn, KindReturn)
	if val := returnValue(stmt); val != nil {
		valID := b.buildExpressionTree(val, depth+1)
		b.g.AddEdge(valID, n.ID, EdgeDataFlow, "child")
	}
	return n.ID
}

func returnValue(stmt *sitter.Node) *sitter.Node {
	for i := 0; i < int(stmt.ChildCount()); i++ {
		c := stmt.Child(i)
		if c == nil || c.Type() == "return" || c.Type() == ";" {
			continue
		}
		return c
	}
	return nil
}

func (b *Builder) lowerLoopShape(stmt *sitter.Node, depth int, fn *frontend.Func, content []byte) NodeID {
	n := b.newRecorded(stmt, fn, KindLoop)
	n.LoopType = stmt.Type()
	b.wireLoopClauses(n, stmt, depth)
	return n.ID
}

// wireLoopClauses lowers a for/while/do's init/condition/increment clauses
// and wires each to the loop node with a Control edge; shared between the
// generic loop shape and containingLoopPass, which creates the anchor's
// own loop node directly rather than through buildExpressionTree.
func (b *Builder) wireLoopClauses(n *Node, stmt *sitter.Node, depth int) {
	var init, cond, inc *sitter.Node
	switch stmt.Type() {
	case "for_statement":
		init, cond, inc, _ = forLoopBody(stmt)
	case "while_statement":
		cond = loopCondition(stmt)
	case "do_statement":
		cond = loopCondition(stmt)
	}

	if init != nil {
		initID := b.buildExpressionTree(init, depth+1)
		b.g.AddEdge(initID, n.ID, EdgeControl, "init")
	}
	if cond != nil {
		condID := b.buildExpressionTree(cond, depth+1)
		b.g.AddEdge(condID, n.ID, EdgeControl, "condition")
	}
	if inc != nil {
		incID := b.buildExpressionTree(inc, depth+1)
		b.g.AddEdge(incID, n.ID, EdgeControl, "increment")
	}
}

func castOperand(castExpr *sitter.Node) *sitter.Node {
	n := int(castExpr.ChildCount())
	if n == 0 {
		return nil
	}
	return castExpr.Child(n - 1)
}
