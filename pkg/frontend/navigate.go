package frontend

import (
	sitter "github.com/smacker/go-tree-sitter"
)

// controlFlowShapes are the statement shapes that introduce branching or
// looping and are therefore never flattened into a plain Statement node by
// the ICFG/Compute Graph builders.
var controlFlowShapes = map[string]bool{
	"if_statement":     true,
	"switch_statement": true,
	"for_statement":    true,
	"for_range_loop":   true,
	"while_statement":  true,
	"do_statement":     true,
}

// IsControlFlowStmt reports whether a node is an If/Switch/For/While/Do.
func IsControlFlowStmt(node *sitter.Node) bool {
	return node != nil && controlFlowShapes[node.Type()]
}

// IsCallExpr reports whether a node is (or directly wraps, via expression
// statement) a call expression.
func IsCallExpr(node *sitter.Node) bool {
	if node == nil {
		return false
	}
	if node.Type() == "call_expression" {
		return true
	}
	if node.Type() == "expression_statement" && node.ChildCount() > 0 {
		return IsCallExpr(node.Child(0))
	}
	return false
}

// EnclosingControlStmt walks ancestors of node, stopping at a function body,
// returning the nearest If/Switch/For/While/Do it is nested in, or nil.
func EnclosingControlStmt(node *sitter.Node) *sitter.Node {
	for p := node.Parent(); p != nil; p = p.Parent() {
		if p.Type() == "compound_statement" && p.Parent() != nil && p.Parent().Type() == "function_definition" {
			return nil
		}
		if IsControlFlowStmt(p) {
			return p
		}
	}
	return nil
}

// EnclosingCompound returns the innermost compound_statement containing
// node, used by the preceding-statements build pass.
func EnclosingCompound(node *sitter.Node) *sitter.Node {
	for p := node.Parent(); p != nil; p = p.Parent() {
		if p.Type() == "compound_statement" {
			return p
		}
	}
	return nil
}

// EnclosingFunction walks ancestors to find the owning function_definition.
func EnclosingFunction(node *sitter.Node) *sitter.Node {
	for p := node; p != nil; p = p.Parent() {
		if p.Type() == "function_definition" {
			return p
		}
	}
	return nil
}

// EnclosingLoop walks ancestors to find the nearest for/for_range/while/do.
func EnclosingLoop(node *sitter.Node) *sitter.Node {
	for p := node.Parent(); p != nil; p = p.Parent() {
		switch p.Type() {
		case "for_statement", "for_range_loop", "while_statement", "do_statement":
			return p
		case "function_definition":
			return nil
		}
	}
	return nil
}

// DirectChildren returns a statement node's direct compound-statement
// children sorted in source order (they already are, but callers rely on
// this contract explicitly for the preceding-statements pass).
func DirectChildren(compound *sitter.Node) []*sitter.Node {
	var out []*sitter.Node
	for i := 0; i < int(compound.ChildCount()); i++ {
		child := compound.Child(i)
		if child == nil {
			continue
		}
		if child.Type() == "{" || child.Type() == "}" {
			continue
		}
		out = append(out, child)
	}
	return out
}

// Precedes reports whether a strictly precedes b by (line, column).
func Precedes(a, b *sitter.Node) bool {
	ap, bp := a.StartPoint(), b.StartPoint()
	if ap.Row != bp.Row {
		return ap.Row < bp.Row
	}
	return ap.Column < bp.Column
}
