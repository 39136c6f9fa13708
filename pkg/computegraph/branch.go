package computegraph

import (
	sitter "github.com/smacker/go-tree-sitter"

	"github.com/cpggen/cpggen/pkg/frontend"
)

// buildIfBranch lowers an if_statement into a Branch node with its
// condition wired by Control edge, then lowers the THEN and (if present)
// ELSE bodies under their own BranchInfo, per §4.5.6.
func (b *Builder) buildIfBranch(stmt *sitter.Node, depth int) NodeID {
	fn := b.ownerFunc(stmt)
	n := b.newRecorded(stmt, fn, KindBranch)
	n.BranchType = "if"

	cond, thenBody, elseBody := ifParts(stmt)
	if cond != nil {
		condID := b.buildExpressionTree(cond, depth+1)
		b.g.AddEdge(condID, n.ID, EdgeControl, "condition")
	}

	if thenStmts := bodyStatements(thenBody); len(thenStmts) > 0 {
		info := &BranchInfo{
			BranchNodeID:  n.ID,
			BranchType:    "THEN",
			BodyStartLine: frontend.SourceLine(thenStmts[0]),
			BodyEndLine:   frontend.EndLine(thenStmts[len(thenStmts)-1]),
		}
		b.lowerBranchBody(thenStmts, depth, info)
	}
	if elseStmts := bodyStatements(elseBody); len(elseStmts) > 0 {
		info := &BranchInfo{
			BranchNodeID:  n.ID,
			BranchType:    "ELSE",
			BodyStartLine: frontend.SourceLine(elseStmts[0]),
			BodyEndLine:   frontend.EndLine(elseStmts[len(elseStmts)-1]),
		}
		b.lowerBranchBody(elseStmts, depth, info)
	}
	return n.ID
}

// buildSwitchBranch lowers a switch_statement into a single Branch node,
// then lowers each case/default's statements under their own BranchInfo,
// using CASE <value> / DEFAULT as the label per §4.5.6.
func (b *Builder) buildSwitchBranch(stmt *sitter.Node, depth int) NodeID {
	fn := b.ownerFunc(stmt)
	n := b.newRecorded(stmt, fn, KindBranch)
	n.BranchType = "switch"

	if stmt.ChildCount() >= 2 {
		condID := b.buildExpressionTree(stmt.Child(1), depth+1)
		b.g.AddEdge(condID, n.ID, EdgeControl, "condition")
	}
	if stmt.ChildCount() < 3 {
		return n.ID
	}
	body := stmt.Child(2)
	content := fn.TU.Content
	for i := 0; i < int(body.ChildCount()); i++ {
		c := body.Child(i)
		if c == nil || c.Type() != "case_statement" {
			continue
		}
		label, stmts := caseLabelAndStmts(c, content)
		if len(stmts) == 0 {
			continue
		}
		info := &BranchInfo{
			BranchNodeID:  n.ID,
			BranchType:    label,
			BodyStartLine: frontend.SourceLine(stmts[0]),
			BodyEndLine:   frontend.EndLine(stmts[len(stmts)-1]),
		}
		b.lowerBranchBody(stmts, depth, info)
	}
	return n.ID
}

func (b *Builder) lowerBranchBody(stmts []*sitter.Node, depth int, info *BranchInfo) {
	prev := b.currentBranchInfo
	b.currentBranchInfo = info
	first := NodeID(0)
	for _, s := range stmts {
		id := b.buildExpressionTree(s, depth+1)
		if first == 0 {
			first = id
		}
	}
	if first != 0 {
		b.g.AddEdge(info.BranchNodeID, first, EdgeControl, branchEdgeLabel(info.BranchType))
	}
	b.currentBranchInfo = prev
}

// branchEdgeLabel maps a BranchInfo's type to the edge label connecting the
// Branch node to its body's first node.
func branchEdgeLabel(branchType string) string {
	switch branchType {
	case "THEN":
		return "then"
	case "ELSE":
		return "else"
	case "DEFAULT":
		return "default"
	default:
		return "case"
	}
}

// ifParts splits an if_statement into (condition, then-body, else-body);
// tree-sitter-c wraps the condition in a single parenthesized_expression
// child, mirroring while_statement's shape.
func ifParts(node *sitter.Node) (cond, thenBody, elseBody *sitter.Node) {
	if node.ChildCount() < 3 {
		return nil, nil, nil
	}
	cond = node.Child(1)
	thenBody = node.Child(2)
	for i := 3; i < int(node.ChildCount()); i++ {
		c := node.Child(i)
		if c == nil || c.Type() == "else" {
			continue
		}
		elseBody = c
	}
	return
}

// bodyStatements returns the statements making up an if/loop body whether
// it's brace-delimited or a single bare statement.
func bodyStatements(body *sitter.Node) []*sitter.Node {
	if body == nil {
		return nil
	}
	if body.Type() == "compound_statement" {
		return frontend.DirectChildren(body)
	}
	return []*sitter.Node{body}
}

// caseLabelAndStmts splits a case_statement into its label ("CASE <value>"
// or "DEFAULT") and the statements following its colon.
func caseLabelAndStmts(caseStmt *sitter.Node, content []byte) (label string, stmts []*sitter.Node) {
	seenColon := false
	isDefault := false
	var value *sitter.Node
	for i := 0; i < int(caseStmt.ChildCount()); i++ {
		c := caseStmt.Child(i)
		if c == nil {
			continue
		}
		switch c.Type() {
		case "case":
			continue
		case "default":
			isDefault = true
			continue
		case ":":
			seenColon = true
			continue
		}
		if !seenColon {
			value = c
			continue
		}
		stmts = append(stmts, c)
	}
	switch {
	case isDefault:
		label = "DEFAULT"
	case value != nil:
		label = "CASE " + nodeText(content, value)
	default:
		label = "CASE"
	}
	return
}
