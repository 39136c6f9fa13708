package anchor

import (
	sitter "github.com/smacker/go-tree-sitter"
)

// contains reports whether desc's byte span lies entirely within anc's,
// used in place of clang's getParents()+IsDescendantOf walk: tree-sitter
// spans don't overlap between siblings, so a range check is equivalent and
// avoids re-walking the tree from the candidate ancestor down.
func contains(anc, desc *sitter.Node) bool {
	if anc == nil || desc == nil {
		return false
	}
	return anc.StartByte() <= desc.StartByte() && desc.EndByte() <= anc.EndByte()
}

func isInLoopCondition(expr *sitter.Node) bool {
	for p := expr.Parent(); p != nil; p = p.Parent() {
		switch p.Type() {
		case "for_statement":
			_, cond, _, _ := forLoopParts(p)
			if contains(cond, expr) {
				return true
			}
		case "while_statement":
			cond, _ := whileParts(p)
			if contains(cond, expr) {
				return true
			}
		case "do_statement":
			_, cond := doParts(p)
			if contains(cond, expr) {
				return true
			}
		}
	}
	return false
}

func isInIfCondition(expr *sitter.Node) bool {
	for p := expr.Parent(); p != nil; p = p.Parent() {
		if p.Type() == "if_statement" {
			if contains(ifCond(p), expr) {
				return true
			}
		}
	}
	return false
}

func subscriptIndex(node *sitter.Node) *sitter.Node {
	bracket := false
	for i := 0; i < int(node.ChildCount()); i++ {
		c := node.Child(i)
		if c == nil {
			continue
		}
		if c.Type() == "[" {
			bracket = true
			continue
		}
		if c.Type() == "]" {
			return nil
		}
		if bracket {
			return c
		}
	}
	return nil
}

func isInArraySubscript(expr *sitter.Node) bool {
	for p := expr.Parent(); p != nil; p = p.Parent() {
		if p.Type() == "subscript_expression" {
			if contains(subscriptIndex(p), expr) {
				return true
			}
		}
	}
	return false
}

func isSimpleArrayIndexExpr(node *sitter.Node) bool {
	if !isInArraySubscript(node) {
		return false
	}
	return countOperations(node) <= 1
}

func countOperations(node *sitter.Node) int {
	if node == nil {
		return 0
	}
	count := 0
	switch node.Type() {
	case "binary_expression", "assignment_expression", "update_expression":
		count = 1
	}
	for i := 0; i < int(node.ChildCount()); i++ {
		count += countOperations(node.Child(i))
	}
	return count
}

func containsArrayAccess(node *sitter.Node) bool {
	if node == nil {
		return false
	}
	if node.Type() == "subscript_expression" {
		return true
	}
	for i := 0; i < int(node.ChildCount()); i++ {
		if containsArrayAccess(node.Child(i)) {
			return true
		}
	}
	return false
}

var vectorizableUnaryOps = map[string]bool{"-": true, "!": true, "~": true}

func containsVectorizableOp(node *sitter.Node) bool {
	if node == nil {
		return false
	}
	switch node.Type() {
	case "binary_expression":
		_, op, _ := binaryOpParts(node)
		if _, ok := binaryOps[op]; ok {
			return true
		}
	case "unary_expression":
		if node.ChildCount() > 0 {
			if op := node.Child(0); op != nil && vectorizableUnaryOps[op.Type()] {
				return true
			}
		}
	}
	for i := 0; i < int(node.ChildCount()); i++ {
		if containsVectorizableOp(node.Child(i)) {
			return true
		}
	}
	return false
}
