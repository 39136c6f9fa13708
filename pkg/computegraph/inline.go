package computegraph

import (
	"strconv"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/cpggen/cpggen/pkg/frontend"
)

// analyzeCalleeBody implements §4.5.3's interprocedural inlining: when a
// Call node's callee has a body, isn't a SIMD-intrinsic wrapper, and isn't
// already on the call stack, its statements get lowered into the same
// graph, actual arguments get paired to formal-parameter occurrences by a
// Call edge, and any return value gets wired back to the call node.
func (b *Builder) analyzeCalleeBody(callNode *Node, callExpr *sitter.Node, calleeName string, depth int) {
	if !b.Limits.EnableInterprocedural || b.currentCallDepth >= b.Limits.MaxCallDepth {
		return
	}
	callee := b.lookupFunc(calleeName)
	if callee == nil || callee.Body == nil {
		return
	}
	if frontend.IsIntrinsicFile(callee.TU) {
		return
	}
	if b.currentCallStack[callee.QualifiedName] {
		return
	}

	callNode.CalleeAnalyzed = true
	callNode.CalleeName = calleeName

	b.currentCallStack[callee.QualifiedName] = true
	b.currentCallDepth++
	prevBranch := b.currentBranchInfo
	b.currentBranchInfo = nil

	bodyStmts := frontend.DirectChildren(callee.Body)
	for _, s := range bodyStmts {
		b.forgetSubtree(s)
	}

	var lowered []NodeID
	var returnID NodeID
	for _, s := range bodyStmts {
		id := b.buildExpressionTree(s, depth+1)
		if id == 0 {
			continue
		}
		lowered = append(lowered, id)
		if n := b.g.Node(id); n != nil {
			n.CallSiteID = callNode.ID
			if n.Kind == KindReturn && returnID == 0 {
				returnID = id
			}
		}
	}

	actuals := b.actualArgsOf(callNode)
	for i, param := range callee.Params {
		if i >= len(actuals) || actuals[i] == 0 {
			continue
		}
		label := "param_" + strconv.Itoa(i)
		for _, id := range lowered {
			n := b.g.Node(id)
			if n == nil {
				continue
			}
			b.wireParamOccurrences(n, param.Name, actuals[i], callNode.ID, label, map[NodeID]bool{})
		}
	}

	if returnID != 0 {
		b.g.AddEdge(returnID, callNode.ID, EdgeReturn, "return")
		callNode.ReturnNodeID = returnID
	} else if len(lowered) > 0 {
		// No explicit return statement: fall back to the callee's last
		// lowered statement as an implicit return value, matching simple
		// void-ish helper shapes like `x += y;` used for its side effect.
		last := b.g.Node(lowered[len(lowered)-1])
		if last != nil && last.Kind != KindLoop && last.Kind != KindBranch {
			b.g.AddEdge(last.ID, callNode.ID, EdgeReturn, "implicit_return")
			callNode.ReturnNodeID = last.ID
		}
	}

	b.stampInlinedSubgraph(callNode, callee)

	b.currentBranchInfo = prevBranch
	b.currentCallDepth--
	delete(b.currentCallStack, callee.QualifiedName)
}

// stampInlinedSubgraph re-walks every node lowered from the callee body and
// fills in call-site and loop-context fields the initial stamping missed —
// nodes created by deeper recursion never saw the call node, and callee
// source lines fall outside the caller loop's body range so applyLoopContext
// skipped them.
func (b *Builder) stampInlinedSubgraph(callNode *Node, callee *frontend.Func) {
	body := callee.Body
	bodyStart, bodyEnd := body.StartByte(), body.EndByte()
	for _, n := range b.g.Nodes() {
		if n.AST == nil || n.ID == callNode.ID {
			continue
		}
		if n.AST.StartByte() < bodyStart || n.AST.EndByte() > bodyEnd {
			continue
		}
		if n.CallSiteID == 0 {
			n.CallSiteID = callNode.ID
		}
		if n.Func == nil {
			n.Func = callee
		}
		if n.LoopContextID == 0 && callNode.LoopContextID != 0 {
			n.LoopContextID = callNode.LoopContextID
			n.LoopContextLine = callNode.LoopContextLine
		}
	}
}

func (b *Builder) lookupFunc(name string) *frontend.Func {
	if b.Query == nil {
		return nil
	}
	for _, fn := range b.Query.Funcs() {
		if fn.QualifiedName == name || fn.Name == name {
			return fn
		}
	}
	return nil
}

// actualArgsOf reads back the argument NodeIDs buildExpressionTree already
// wired onto a Call node via "arg0", "arg1", ... labeled edges.
func (b *Builder) actualArgsOf(callNode *Node) []NodeID {
	byIndex := map[int]NodeID{}
	max := -1
	for _, e := range b.g.EdgesTo(callNode.ID) {
		idx, ok := argLabelIndex(e.Label)
		if !ok {
			continue
		}
		byIndex[idx] = e.From
		if idx > max {
			max = idx
		}
	}
	out := make([]NodeID, max+1)
	for i := range out {
		out[i] = byIndex[i]
	}
	return out
}

func argLabelIndex(label string) (int, bool) {
	if len(label) < 4 || label[:3] != "arg" {
		return 0, false
	}
	n, err := strconv.Atoi(label[3:])
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

// wireParamOccurrences connects an actual-argument node to every Parameter
// node within the inlined callee body that reads the matching formal name,
// stamping each formal with the call node that produced this instance. The
// label carries the parameter position (param_<i>). The visited set guards
// against the lhs_read/assign_to edge cycle a compound assignment carries.
func (b *Builder) wireParamOccurrences(n *Node, paramName string, actual, callSiteID NodeID, label string, visited map[NodeID]bool) {
	if visited[n.ID] {
		return
	}
	visited[n.ID] = true
	if n.Kind == KindParameter && n.Name == paramName {
		b.g.AddEdge(actual, n.ID, EdgeCall, label)
		n.TracedToCallsite = true
		n.CallSiteID = callSiteID
		return
	}
	for _, e := range b.g.EdgesTo(n.ID) {
		if child := b.g.Node(e.From); child != nil {
			b.wireParamOccurrences(child, paramName, actual, callSiteID, label, visited)
		}
	}
}

// forgetSubtree drops any cached lowering for stmt and its descendants so
// a callee revisited from a second call site gets relowered fresh rather
// than reusing the first call site's nodes.
func (b *Builder) forgetSubtree(stmt *sitter.Node) {
	if stmt == nil {
		return
	}
	delete(b.processedStmts, stmt)
	for i := 0; i < int(stmt.ChildCount()); i++ {
		b.forgetSubtree(stmt.Child(i))
	}
}
