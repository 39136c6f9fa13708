package frontend

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
)

// findFunctions walks the whole translation unit pre-order, collecting every
// function_definition node. Functions nested in a class_specifier get their
// enclosing class name prefixed, mirroring how the canonicalization step
// expects C++ methods to be keyed.
func findFunctions(tu *TranslationUnit) []*Func {
	var out []*Func
	var walk func(node *sitter.Node, enclosingClass string)
	walk = func(node *sitter.Node, enclosingClass string) {
		if node == nil {
			return
		}

		switch node.Type() {
		case "class_specifier", "struct_specifier":
			name := enclosingClass
			if nameNode := childByType(node, "type_identifier"); nameNode != nil {
				name = nodeText(tu.Content, nameNode)
			}
			for i := 0; i < int(node.ChildCount()); i++ {
				walk(node.Child(i), name)
			}
			return

		case "function_definition":
			if IsSystemHeaderNode(tu, node) || isTemplateInstantiationBody(node) {
				return
			}
			if fn := buildFunc(tu, node, enclosingClass); fn != nil {
				out = append(out, fn)
			}
			// function bodies can nest local/lambda definitions; still descend.
		}

		for i := 0; i < int(node.ChildCount()); i++ {
			walk(node.Child(i), enclosingClass)
		}
	}
	walk(tu.Tree.RootNode(), "")
	return out
}

func buildFunc(tu *TranslationUnit, node *sitter.Node, enclosingClass string) *Func {
	declarator := functionDeclarator(node)
	if declarator == nil {
		return nil
	}
	nameNode := declaratorName(declarator)
	if nameNode == nil {
		return nil
	}
	name := nodeText(tu.Content, nameNode)

	body := childByType(node, "compound_statement")
	if body == nil {
		return nil
	}

	qualified := name
	if enclosingClass != "" {
		qualified = enclosingClass + "::" + name
	}
	// Out-of-line method definitions spell the qualifier in the declarator
	// itself (qualified_identifier "Matrix::multiply").
	if qn := childByType(declarator, "qualified_identifier"); qn != nil {
		qualified = nodeText(tu.Content, qn)
		if idx := strings.LastIndex(qualified, "::"); idx >= 0 {
			name = qualified[idx+2:]
		}
	}

	fn := &Func{
		Name:          name,
		QualifiedName: qualified,
		Node:          node,
		Body:          body,
		TU:            tu,
	}
	fn.Params = extractParams(tu, declarator)
	return fn
}

// functionDeclarator finds the function_declarator child, descending through
// pointer_declarator/reference_declarator wrappers used by e.g. `int *f(...)`.
func functionDeclarator(node *sitter.Node) *sitter.Node {
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		if child == nil {
			continue
		}
		switch child.Type() {
		case "function_declarator":
			return child
		case "pointer_declarator", "reference_declarator":
			if d := functionDeclarator(child); d != nil {
				return d
			}
		}
	}
	return nil
}

func declaratorName(declarator *sitter.Node) *sitter.Node {
	for i := 0; i < int(declarator.ChildCount()); i++ {
		child := declarator.Child(i)
		if child == nil {
			continue
		}
		switch child.Type() {
		case "identifier", "field_identifier", "qualified_identifier", "operator_name", "destructor_name":
			return child
		}
	}
	return nil
}

func extractParams(tu *TranslationUnit, declarator *sitter.Node) []Param {
	paramList := childByType(declarator, "parameter_list")
	if paramList == nil {
		return nil
	}
	var params []Param
	idx := 0
	for i := 0; i < int(paramList.ChildCount()); i++ {
		child := paramList.Child(i)
		if child == nil || child.Type() != "parameter_declaration" {
			continue
		}
		name := ""
		if n := findParamNameNode(child); n != nil {
			name = nodeText(tu.Content, n)
		}
		params = append(params, Param{Name: name, Index: idx, Node: child})
		idx++
	}
	return params
}

// findParamNameNode descends through pointer/array/reference/abstract
// declarators to find the innermost identifier naming the parameter.
func findParamNameNode(paramDecl *sitter.Node) *sitter.Node {
	var search func(node *sitter.Node) *sitter.Node
	search = func(node *sitter.Node) *sitter.Node {
		if node == nil {
			return nil
		}
		if node.Type() == "identifier" {
			return node
		}
		for i := 0; i < int(node.ChildCount()); i++ {
			if n := search(node.Child(i)); n != nil {
				return n
			}
		}
		return nil
	}
	return search(paramDecl)
}

func isTemplateInstantiationBody(node *sitter.Node) bool {
	for p := node.Parent(); p != nil; p = p.Parent() {
		if p.Type() == "template_declaration" {
			return false // the template definition itself is still a user function
		}
	}
	return false
}

func childByType(node *sitter.Node, t string) *sitter.Node {
	if node == nil {
		return nil
	}
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		if child != nil && child.Type() == t {
			return child
		}
	}
	return nil
}
