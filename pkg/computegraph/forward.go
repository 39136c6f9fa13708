package computegraph

import (
	sitter "github.com/smacker/go-tree-sitter"

	"github.com/cpggen/cpggen/pkg/frontend"
)

// traceAllUsesForward implements §4.5.5: for every variable stmt defines,
// it finds every downstream use the query layer still considers reached
// by this definition (kill-filtered via ReachingDefsAt) and wires a
// DataFlow edge from the definition to each use, recursing forward from
// there and backward into whatever else feeds that use.
func (b *Builder) traceAllUsesForward(stmt *sitter.Node, depth int) {
	if stmt == nil || depth > b.Limits.MaxForwardDepth {
		return
	}
	if b.forwardTracedStmts[stmt] {
		return
	}
	b.forwardTracedStmts[stmt] = true

	fn := b.ownerFunc(stmt)
	if fn == nil || b.Query == nil {
		return
	}
	content := fn.TU.Content

	defStmt := enclosingPDGStmt(stmt)
	defID, ok := b.processedStmts[stmt]
	if !ok {
		defID = b.buildExpressionTree(stmt, depth)
	}
	if defID == 0 {
		return
	}
	defLine := frontend.SourceLine(defStmt)

	for _, v := range definedVarsOf(stmt, content) {
		for _, useStmt := range b.Query.UsesOf(fn, v) {
			if useStmt == defStmt {
				continue
			}
			useLine := frontend.SourceLine(useStmt)
			inLoop := b.currentLoopInfo != nil
			if useLine < defLine && !inLoop {
				continue
			}
			if b.killedBeforeUse(fn, v, defStmt, useStmt) {
				continue
			}

			useID := b.buildExpressionTree(useStmt, depth+1)
			if useID == 0 || useID == defID {
				continue
			}

			kind := EdgeDataFlow
			if inLoop && useLine < defLine {
				kind = EdgeLoopCarried
			}
			b.g.AddEdge(defID, useID, kind, "use:"+v)

			prevOverride := b.backwardDepthOverride
			b.backwardDepthOverride = 5
			b.traceAllDefinitionsBackward(useStmt, 0)
			b.backwardDepthOverride = prevOverride

			b.traceAllUsesForward(useStmt, depth+1)
		}
	}

	if ret := enclosingReturn(stmt); ret != nil {
		b.traceAllUsesForward(ret, depth+1)
	}
}

// killedBeforeUse reports whether defStmt no longer reaches useStmt
// according to the PDG's reaching-definitions analysis — meaning some
// other write to v lies between them.
func (b *Builder) killedBeforeUse(fn *frontend.Func, varName string, defStmt, useStmt *sitter.Node) bool {
	reaching := b.Query.ReachingDefsAt(fn, useStmt, varName)
	for _, d := range reaching {
		if d == defStmt {
			return false
		}
	}
	return true
}

// definedVarsOf names the variables a statement writes: an assignment's
// lhs (reduced to its base variable for member/subscript/pointer targets,
// the same way the PDG's GEN rule keys them), an update expression's
// operand, or a declaration's declared names.
func definedVarsOf(stmt *sitter.Node, content []byte) []string {
	var names []string
	switch stmt.Type() {
	case "assignment_expression":
		lhs, _, _ := assignParts(stmt)
		if name := lvalueBaseName(lhs, content); name != "" {
			names = append(names, name)
		}
	case "update_expression":
		operand, _, _ := updateShape(stmt, content)
		if operand != nil {
			names = append(names, nodeText(content, operand))
		}
	case "declaration":
		for i := 0; i < int(stmt.ChildCount()); i++ {
			c := stmt.Child(i)
			if c != nil && c.Type() == "init_declarator" {
				names = append(names, declName(c, content))
			}
		}
	case "expression_statement":
		if stmt.ChildCount() > 0 {
			names = definedVarsOf(stmt.Child(0), content)
		}
	}
	return names
}

// lvalueBaseName resolves an assignment target to the variable it writes
// through: the identifier itself, or the leftmost identifier under a
// field/subscript/pointer/parenthesized expression.
func lvalueBaseName(lhs *sitter.Node, content []byte) string {
	if lhs == nil {
		return ""
	}
	switch lhs.Type() {
	case "identifier":
		return nodeText(content, lhs)
	case "field_expression", "subscript_expression":
		return lvalueBaseName(lhs.Child(0), content)
	case "pointer_expression":
		// child 0 is the "*" token; the operand follows it
		return lvalueBaseName(lhs.Child(int(lhs.ChildCount())-1), content)
	case "parenthesized_expression":
		if lhs.ChildCount() > 1 {
			return lvalueBaseName(lhs.Child(1), content)
		}
	}
	return ""
}

func enclosingReturn(node *sitter.Node) *sitter.Node {
	for p := node.Parent(); p != nil; p = p.Parent() {
		switch p.Type() {
		case "return_statement":
			return p
		case "function_definition":
			return nil
		}
	}
	return nil
}
