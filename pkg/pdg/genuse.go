package pdg

import (
	sitter "github.com/smacker/go-tree-sitter"
)

// genUse derives a statement's GEN (variables it assigns) and USE (variables
// it reads) sets per the rules in §4.2:
//   - assignment v = rhs (including compound v op= rhs): GEN={v}; USE =
//     vars(rhs) ∪ (compound? {v} : {}).
//   - declaration T v = init: GEN={v}; USE=vars(init).
//   - ++v | v++ | --v | v--: GEN={v}; USE={v}.
//   - everything else: GEN=∅; USE = all variable references within.
func genUse(stmt *sitter.Node, content []byte) (gen map[string]bool, use map[string]bool) {
	gen = map[string]bool{}
	use = map[string]bool{}

	expr := unwrapExpressionStatement(stmt)

	if expr != nil && expr.Type() == "assignment_expression" {
		lhs, op, rhs := assignmentParts(expr)
		if lhs != nil {
			varName := identifierName(lhs, content)
			if varName != "" {
				gen[varName] = true
				if op != "=" {
					use[varName] = true
				}
			}
			collectVars(rhs, content, use)
			return gen, use
		}
	}

	if expr != nil && (expr.Type() == "update_expression") {
		target := operandOfUpdate(expr)
		varName := identifierName(target, content)
		if varName != "" {
			gen[varName] = true
			use[varName] = true
		}
		return gen, use
	}

	if stmt.Type() == "declaration" {
		for i := 0; i < int(stmt.ChildCount()); i++ {
			child := stmt.Child(i)
			if child == nil || child.Type() != "init_declarator" {
				continue
			}
			nameNode := declInitName(child)
			varName := identifierName(nameNode, content)
			if varName != "" {
				gen[varName] = true
			}
			if init := declInitValue(child); init != nil {
				collectVars(init, content, use)
			}
		}
		return gen, use
	}

	collectVars(stmt, content, use)
	return gen, use
}

func unwrapExpressionStatement(stmt *sitter.Node) *sitter.Node {
	if stmt.Type() == "expression_statement" && stmt.ChildCount() > 0 {
		return stmt.Child(0)
	}
	return stmt
}

// assignmentParts splits `lhs op rhs` out of an assignment_expression; op is
// the operator spelling ("=", "+=", ...).
func assignmentParts(expr *sitter.Node) (lhs *sitter.Node, op string, rhs *sitter.Node) {
	var children []*sitter.Node
	for i := 0; i < int(expr.ChildCount()); i++ {
		children = append(children, expr.Child(i))
	}
	if len(children) < 3 {
		return nil, "", nil
	}
	return children[0], children[1].Type(), children[2]
}

func operandOfUpdate(expr *sitter.Node) *sitter.Node {
	for i := 0; i < int(expr.ChildCount()); i++ {
		child := expr.Child(i)
		if child != nil && child.Type() == "identifier" {
			return child
		}
	}
	return nil
}

func declInitName(initDeclarator *sitter.Node) *sitter.Node {
	for i := 0; i < int(initDeclarator.ChildCount()); i++ {
		child := initDeclarator.Child(i)
		if child != nil && child.Type() == "identifier" {
			return child
		}
	}
	return nil
}

func declInitValue(initDeclarator *sitter.Node) *sitter.Node {
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

// identifierName returns a bare variable name from an identifier, or the
// base variable of an array_subscript/member/pointer expression's leftmost
// identifier — good enough to key reaching-def sets by the scalar variable
// involved.
func identifierName(node *sitter.Node, content []byte) string {
	if node == nil {
		return ""
	}
	switch node.Type() {
	case "identifier", "field_identifier":
		return string(content[node.StartByte():node.EndByte()])
	case "subscript_expression", "field_expression", "pointer_expression":
		return identifierName(node.Child(0), content)
	case "parenthesized_expression":
		if node.ChildCount() > 1 {
			return identifierName(node.Child(1), content)
		}
	}
	return ""
}

// collectVars walks node's subtree collecting every identifier leaf's name
// into out, skipping the callee position of call expressions (the function
// name itself is not a variable reference).
func collectVars(node *sitter.Node, content []byte, out map[string]bool) {
	if node == nil {
		return
	}
	if node.Type() == "identifier" {
		name := string(content[node.StartByte():node.EndByte()])
		out[name] = true
		return
	}
	start := 0
	if node.Type() == "call_expression" {
		start = 1 // skip callee child
	}
	for i := start; i < int(node.ChildCount()); i++ {
		collectVars(node.Child(i), content, out)
	}
}
