package icfg

import (
	sitter "github.com/smacker/go-tree-sitter"

	"github.com/cpggen/cpggen/pkg/frontend"
)

// call is one recorded CallExpr found during the call-graph phase.
type call struct {
	Caller *frontend.Func
	Callee *frontend.Func // nil if unresolved
	Expr   *sitter.Node
	Stmt   *sitter.Node // enclosing statement, for linking to the CallSite node
}

// Build lowers every function's CFG into the ICFG, then links call sites to
// callee entries/exits. Functions whose CFG fails to build (no body found)
// are skipped; the rest proceed (§4.1 "Failure").
func Build(funcs []*frontend.Func) *Graph {
	g := &Graph{
		FuncEntry:     make(map[string]NodeID),
		FuncExit:      make(map[string]NodeID),
		cfgCache:      make(map[string]*frontend.FuncCFG),
		statementNode: make(map[string]map[*sitter.Node]NodeID),
	}

	byName := indexFunctions(funcs)

	for _, fn := range funcs {
		if fn.Body == nil {
			continue
		}
		lowerFunction(g, fn)
	}

	calls := collectCalls(funcs, byName)
	linkCalls(g, calls)

	return g
}

// indexFunctions builds a lookup from both qualified and unqualified names
// to their definitions, used to resolve direct callees.
func indexFunctions(funcs []*frontend.Func) map[string]*frontend.Func {
	idx := make(map[string]*frontend.Func, len(funcs)*2)
	for _, fn := range funcs {
		idx[fn.QualifiedName] = fn
		if _, exists := idx[fn.Name]; !exists {
			idx[fn.Name] = fn
		}
	}
	return idx
}

func (g *Graph) addNode(n *Node) NodeID {
	n.ID = NodeID(len(g.nodes) + 1)
	g.nodes = append(g.nodes, n)
	return n.ID
}

func (g *Graph) addEdge(from, to NodeID, kind EdgeKind) {
	src := g.Node(from)
	dst := g.Node(to)
	if src == nil || dst == nil {
		return
	}
	src.Successors = append(src.Successors, Succ{Node: to, Kind: kind})
	dst.Predecessors = append(dst.Predecessors, Succ{Node: from, Kind: kind})
}

func (g *Graph) recordStmtNode(fn *frontend.Func, stmt *sitter.Node, id NodeID) {
	key := CanonicalKey(fn)
	m, ok := g.statementNode[key]
	if !ok {
		m = make(map[*sitter.Node]NodeID)
		g.statementNode[key] = m
	}
	m[stmt] = id
}

// lowerFunction implements §4.1's per-function lowering: Entry/Exit nodes,
// one ICFG node per statement element inside each block (CallSite when the
// statement is a direct call, else Statement), Intraprocedural chaining
// within a block, and block-to-block edges whose kind follows the
// terminator shape.
func lowerFunction(g *Graph, fn *frontend.Func) {
	key := CanonicalKey(fn)
	cfg := frontend.BuildCFG(fn)
	g.cfgCache[key] = cfg

	entry := &Node{Kind: KindEntry, Func: fn}
	entryID := g.addNode(entry)
	g.FuncEntry[key] = entryID

	exit := &Node{Kind: KindExit, Func: fn}
	exitID := g.addNode(exit)
	g.FuncExit[key] = exitID

	firstNode := make(map[*frontend.Block]NodeID)
	lastNode := make(map[*frontend.Block]NodeID)

	for _, blk := range cfg.Blocks {
		if blk == cfg.Entry || containsBlock(cfg.ExitSet, blk) {
			// Entry/Exit blocks carry no statements of their own; map them
			// directly onto the ICFG Entry/Exit nodes.
			firstNode[blk] = entryIDOrExit(blk, cfg, entryID, exitID)
			lastNode[blk] = firstNode[blk]
			continue
		}

		var prev NodeID
		for i, stmt := range blk.Statements {
			kind := KindStatement
			if frontend.IsCallExpr(stmt) {
				kind = KindCallSite
			}
			n := &Node{Kind: kind, Func: fn, Stmt: stmt, Block: blk}
			id := g.addNode(n)
			g.recordStmtNode(fn, stmt, id)

			if i == 0 {
				firstNode[blk] = id
			} else {
				g.addEdge(prev, id, EdgeIntraprocedural)
			}
			prev = id
		}
		if len(blk.Statements) == 0 {
			// Empty block (e.g. a loop header whose only content is the
			// condition already stored as its sole "statement" above, or a
			// genuinely empty body): synthesize a placeholder Statement node
			// so block-to-block edges still have an endpoint.
			n := &Node{Kind: KindStatement, Func: fn, Block: blk}
			id := g.addNode(n)
			firstNode[blk] = id
			prev = id
		}
		lastNode[blk] = prev
	}

	// Intra-block chaining is already done above; now connect block-to-block
	// edges using the recorded last/first nodes.
	for _, e := range cfg.Edges {
		fromID, ok1 := lastNode[e.From]
		toID, ok2 := firstNode[e.To]
		if !ok1 || !ok2 {
			continue
		}
		g.addEdge(fromID, toID, blockEdgeKind(e.Kind))
	}
}

func entryIDOrExit(blk *frontend.Block, cfg *frontend.FuncCFG, entryID, exitID NodeID) NodeID {
	if blk == cfg.Entry {
		return entryID
	}
	return exitID
}

func containsBlock(set []*frontend.Block, b *frontend.Block) bool {
	for _, s := range set {
		if s == b {
			return true
		}
	}
	return false
}

func blockEdgeKind(k frontend.BlockEdgeKind) EdgeKind {
	switch k {
	case frontend.EdgeTrue:
		return EdgeTrue
	case frontend.EdgeFalse:
		return EdgeFalse
	default:
		return EdgeUnconditional
	}
}

// collectCalls is the call-graph phase: a pre-order AST walk over every
// function recording each CallExpr with its direct, canonicalized callee,
// skipping calls inside system-header/template-instantiation code (already
// excluded at function-discovery time, so only call-expression-level skips
// remain: none needed beyond what findFunctions already filtered).
func collectCalls(funcs []*frontend.Func, byName map[string]*frontend.Func) []call {
	var calls []call
	for _, fn := range funcs {
		if fn.Body == nil {
			continue
		}
		walkCalls(fn.Body, fn, byName, &calls)
	}
	return calls
}

func walkCalls(node *sitter.Node, caller *frontend.Func, byName map[string]*frontend.Func, out *[]call) {
	if node == nil {
		return
	}
	if node.Type() == "call_expression" {
		callee := resolveCallee(node, caller.TU.Content, byName)
		*out = append(*out, call{
			Caller: caller,
			Callee: callee,
			Expr:   node,
			Stmt:   enclosingStatement(node),
		})
	}
	for i := 0; i < int(node.ChildCount()); i++ {
		walkCalls(node.Child(i), caller, byName, out)
	}
}

func resolveCallee(callExpr *sitter.Node, content []byte, byName map[string]*frontend.Func) *frontend.Func {
	fnNode := callExpr.Child(0)
	if fnNode == nil {
		return nil
	}
	name := string(content[fnNode.StartByte():fnNode.EndByte()])
	if fn, ok := byName[name]; ok {
		return fn
	}
	return nil
}

// enclosingStatement walks up from a call expression to the statement node
// that was lowered into the ICFG (an expression_statement, return_statement,
// declaration, or the call expression itself if none is found before the
// function body).
func enclosingStatement(node *sitter.Node) *sitter.Node {
	for p := node; p != nil; p = p.Parent() {
		switch p.Type() {
		case "expression_statement", "return_statement", "declaration":
			return p
		case "compound_statement", "function_definition":
			return node
		}
	}
	return node
}

// linkCalls implements §4.1's call-site linking: a ReturnSite node in the
// caller, Call/Return edges to/from the callee's Entry/Exit when resolvable,
// and per-argument ActualIn/FormalIn pairs joined by ParamIn edges.
func linkCalls(g *Graph, calls []call) {
	for _, c := range calls {
		callNode, ok := g.NodeForStmt(c.Caller, c.Stmt)
		if !ok {
			continue
		}

		returnSite := &Node{Kind: KindReturnSite, Func: c.Caller, Call: c.Expr}
		returnSiteID := g.addNode(returnSite)
		g.addEdge(callNode.ID, returnSiteID, EdgeIntraprocedural)

		if c.Callee == nil || c.Callee.Body == nil {
			continue
		}

		calleeEntryID, ok := g.FuncEntry[CanonicalKey(c.Callee)]
		if !ok {
			continue
		}
		calleeExitID := g.FuncExit[CanonicalKey(c.Callee)]

		g.addEdge(callNode.ID, calleeEntryID, EdgeCall)
		g.addEdge(calleeExitID, returnSiteID, EdgeReturn)

		args := callArgs(c.Expr)
		n := len(args)
		if len(c.Callee.Params) < n {
			n = len(c.Callee.Params)
		}
		for i := 0; i < n; i++ {
			actualIn := &Node{
				Kind: KindActualIn, Func: c.Caller, Call: c.Expr,
				ParamIndex: i, Stmt: args[i],
			}
			actualInID := g.addNode(actualIn)
			g.addEdge(callNode.ID, actualInID, EdgeParamIn)

			formalInID := formalIn(g, c.Callee, i)
			g.addEdge(actualInID, formalInID, EdgeParamIn)
		}
	}
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

// formalInKey scopes a callee's lazily-created FormalIn nodes by parameter
// index so that regardless of how many callers exist, each parameter
// appears exactly once as FormalIn in the callee (§4.1 invariant).
type formalInKey struct {
	fn  string
	idx int
}

func formalIn(g *Graph, callee *frontend.Func, idx int) NodeID {
	if g.formalIns == nil {
		g.formalIns = make(map[formalInKey]NodeID)
	}
	key := formalInKey{fn: CanonicalKey(callee), idx: idx}
	if id, ok := g.formalIns[key]; ok {
		return id
	}

	name := ""
	if idx < len(callee.Params) {
		name = callee.Params[idx].Name
	}
	n := &Node{Kind: KindFormalIn, Func: callee, ParamIndex: idx, ParamName: name}
	id := g.addNode(n)
	g.formalIns[key] = id

	calleeEntryID := g.FuncEntry[CanonicalKey(callee)]
	g.addEdge(calleeEntryID, id, EdgeIntraprocedural)

	return id
}
