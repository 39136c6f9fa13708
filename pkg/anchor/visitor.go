package anchor

import (
	sitter "github.com/smacker/go-tree-sitter"

	"github.com/cpggen/cpggen/pkg/frontend"
)

// visitor walks one function's body tracking loop depth and the
// for-loop-increment suppression flag, per §4.4.
type visitor struct {
	fn      *frontend.Func
	content []byte
	anchors []Point
	added   map[*sitter.Node]bool
}

func (v *visitor) walk(node *sitter.Node, depth int, inIncrement bool) {
	if node == nil {
		return
	}

	switch node.Type() {
	case "for_statement":
		init, cond, update, body := forLoopParts(node)
		v.walk(init, depth+1, inIncrement)
		v.walk(cond, depth+1, inIncrement)
		v.walk(update, depth+1, true) // increment slot: never yields anchors
		v.walk(body, depth+1, inIncrement)
		return
	case "while_statement":
		cond, body := whileParts(node)
		v.walk(cond, depth+1, inIncrement)
		v.walk(body, depth+1, inIncrement)
		return
	case "do_statement":
		body, cond := doParts(node)
		v.walk(body, depth+1, inIncrement)
		v.walk(cond, depth+1, inIncrement)
		return
	case "assignment_expression":
		if !inIncrement {
			v.processAssignment(node, depth)
		}
	case "binary_expression":
		if !inIncrement {
			v.processBinary(node, depth)
		}
	}

	for i := 0; i < int(node.ChildCount()); i++ {
		v.walk(node.Child(i), depth, inIncrement)
	}
}

// forLoopParts splits a for_statement's four clauses positionally: field
// names aren't exposed through this binding, so the split walks punctuation
// tokens directly.
func forLoopParts(node *sitter.Node) (init, cond, update, body *sitter.Node) {
	state := 0 // 0=before "(", 1=init, 2=cond, 3=update, 4=body
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

func whileParts(node *sitter.Node) (cond, body *sitter.Node) {
	if node.ChildCount() >= 3 {
		return node.Child(1), node.Child(2)
	}
	return nil, nil
}

func doParts(node *sitter.Node) (body, cond *sitter.Node) {
	if node.ChildCount() >= 4 {
		return node.Child(1), node.Child(3)
	}
	return nil, nil
}

func ifCond(node *sitter.Node) *sitter.Node {
	if node.ChildCount() >= 2 {
		return node.Child(1)
	}
	return nil
}

func assignOpParts(node *sitter.Node) (lhs *sitter.Node, op string, rhs *sitter.Node) {
	var children []*sitter.Node
	for i := 0; i < int(node.ChildCount()); i++ {
		children = append(children, node.Child(i))
	}
	if len(children) < 3 {
		return nil, "", nil
	}
	return children[0], children[1].Type(), children[2]
}

func binaryOpParts(node *sitter.Node) (lhs *sitter.Node, op string, rhs *sitter.Node) {
	return assignOpParts(node)
}

func (v *visitor) processAssignment(node *sitter.Node, depth int) {
	if v.added[node] {
		return
	}
	lhs, op, rhs := assignOpParts(node)
	if lhs == nil {
		return
	}

	if op == "=" {
		if containsVectorizableOp(rhs) || (containsArrayAccess(rhs) && containsArrayAccess(lhs)) {
			v.addAnchor(node, KindOther, OpAssign, depth)
			v.markSubExprsAdded(node)
		}
		return
	}

	opcode, ok := compoundAssignOps[op]
	if !ok {
		return
	}
	v.processNonAssignment(node, opcode, depth)
}

func (v *visitor) processBinary(node *sitter.Node, depth int) {
	_, op, _ := binaryOpParts(node)
	opcode, ok := binaryOps[op]
	if !ok {
		return
	}
	v.processNonAssignment(node, opcode, depth)
}

func (v *visitor) processNonAssignment(node *sitter.Node, opcode OpCode, depth int) {
	if isInLoopCondition(node) {
		return
	}
	inIf := isInIfCondition(node)
	isCompare := comparisonOps[opcode]
	if inIf && !isCompare {
		return
	}
	if v.added[node] {
		return
	}
	if isSimpleArrayIndexExpr(node) {
		return
	}
	v.checkTopLevelExpression(node, opcode, depth)
}

func (v *visitor) checkTopLevelExpression(node *sitter.Node, opcode OpCode, depth int) {
	parent := node.Parent()
	hasParentBinOp := false
	if parent != nil {
		switch parent.Type() {
		case "binary_expression":
			_, pop, _ := binaryOpParts(parent)
			if _, ok := binaryOps[pop]; ok {
				hasParentBinOp = true
			}
		case "assignment_expression":
			_, pop, _ := assignOpParts(parent)
			if _, ok := compoundAssignOps[pop]; ok {
				hasParentBinOp = true
			}
		}
	}

	if !hasParentBinOp {
		kind := KindOther
		switch {
		case containsArrayAccess(node):
			kind = KindArrayAccess
		case containsCallExpr(node):
			kind = KindCall
		}
		v.addAnchor(node, kind, opcode, depth)
		v.markSubExprsAdded(node)
	}
}

func containsCallExpr(node *sitter.Node) bool {
	if node == nil {
		return false
	}
	if node.Type() == "call_expression" {
		return true
	}
	for i := 0; i < int(node.ChildCount()); i++ {
		if containsCallExpr(node.Child(i)) {
			return true
		}
	}
	return false
}

func (v *visitor) addAnchor(stmt *sitter.Node, kind ExpectedKind, op OpCode, depth int) {
	if v.added[stmt] {
		return
	}
	p := Point{
		Stmt:         stmt,
		Func:         v.fn,
		ExpectedKind: kind,
		OpCode:       op,
		LoopDepth:    depth,
		InLoop:       depth > 0,
		SourceText:   frontend.SourceText(v.fn.TU, stmt),
		SourceLine:   frontend.SourceLine(stmt),
	}
	v.anchors = append(v.anchors, p)
	v.added[stmt] = true
}

func (v *visitor) markSubExprsAdded(node *sitter.Node) {
	if node == nil {
		return
	}
	v.added[node] = true
	for i := 0; i < int(node.ChildCount()); i++ {
		v.markSubExprsAdded(node.Child(i))
	}
}
