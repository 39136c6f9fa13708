package query

import (
	sitter "github.com/smacker/go-tree-sitter"

	"github.com/cpggen/cpggen/pkg/frontend"
)

// VarDef pairs a definition statement with the function it lives in, since
// interprocedural traces cross function boundaries.
type VarDef struct {
	Func *frontend.Func
	Stmt *sitter.Node
	Var  string
}

// TraceVariableDefinitions walks backward from stmt's uses of varName to
// every reaching definition within fn, per §4.3's trace_variable_definitions.
func (e *Engine) TraceVariableDefinitions(fn *frontend.Func, stmt *sitter.Node, varName string) []VarDef {
	var out []VarDef
	for _, d := range e.ReachingDefsAt(fn, stmt, varName) {
		out = append(out, VarDef{Func: fn, Stmt: d, Var: varName})
	}
	return out
}

// TraceVariableDefinitionsInterprocedural extends TraceVariableDefinitions:
// when a reaching definition is itself a formal parameter (no local
// definition reaches it; the statement is the function's own entry scope),
// it keeps tracing into every call site's actual argument expression, up to
// maxCallDepth call hops.
func (e *Engine) TraceVariableDefinitionsInterprocedural(fn *frontend.Func, stmt *sitter.Node, varName string, maxCallDepth int) []VarDef {
	seen := map[VarDef]bool{}
	var out []VarDef
	e.traceDefsRec(fn, stmt, varName, maxCallDepth, seen, &out)
	return out
}

func (e *Engine) traceDefsRec(fn *frontend.Func, stmt *sitter.Node, varName string, depth int, seen map[VarDef]bool, out *[]VarDef) {
	local := e.ReachingDefsAt(fn, stmt, varName)
	if len(local) > 0 {
		for _, d := range local {
			vd := VarDef{Func: fn, Stmt: d, Var: varName}
			if !seen[vd] {
				seen[vd] = true
				*out = append(*out, vd)
			}
		}
		return
	}
	if depth <= 0 {
		return
	}
	// No local definition reaches this use: varName is most likely a
	// parameter. Fan out to every call site passing an argument into the
	// matching formal position.
	paramIdx := paramIndex(fn, varName)
	if paramIdx < 0 {
		return
	}
	for _, cs := range e.callSite {
		if cs.Callee != fn || paramIdx >= len(cs.Args) {
			continue
		}
		argExpr := cs.Args[paramIdx]
		callerStmt := frontend.EnclosingControlStmt(argExpr)
		if callerStmt == nil {
			callerStmt = argExpr
		}
		argVars := collectVarNames(argExpr, cs.Caller.TU.Content)
		for _, v := range argVars {
			e.traceDefsRec(cs.Caller, callerStmt, v, depth-1, seen, out)
		}
	}
}

// TraceVariableUsesInterprocedural walks forward: every use of varName
// within fn, plus (when varName flows into a call's actual argument) every
// use of the corresponding formal parameter inside the callee, up to
// maxCallDepth hops.
func (e *Engine) TraceVariableUsesInterprocedural(fn *frontend.Func, varName string, maxCallDepth int) []VarDef {
	seen := map[VarDef]bool{}
	var out []VarDef
	e.traceUsesRec(fn, varName, maxCallDepth, seen, &out)
	return out
}

func (e *Engine) traceUsesRec(fn *frontend.Func, varName string, depth int, seen map[VarDef]bool, out *[]VarDef) {
	for _, u := range e.UsesOf(fn, varName) {
		vd := VarDef{Func: fn, Stmt: u, Var: varName}
		if !seen[vd] {
			seen[vd] = true
			*out = append(*out, vd)
		}
	}
	if depth <= 0 {
		return
	}
	for _, cs := range e.callSite {
		if cs.Caller != fn || cs.Callee == nil {
			continue
		}
		for idx, arg := range cs.Args {
			if !containsVarName(arg, varName, cs.Caller.TU.Content) {
				continue
			}
			formal := formalParamName(cs.Callee, idx)
			if formal == "" {
				continue
			}
			e.traceUsesRec(cs.Callee, formal, depth-1, seen, out)
		}
	}
}

func paramIndex(fn *frontend.Func, name string) int {
	for _, p := range fn.Params {
		if p.Name == name {
			return p.Index
		}
	}
	return -1
}

func formalParamName(fn *frontend.Func, idx int) string {
	for _, p := range fn.Params {
		if p.Index == idx {
			return p.Name
		}
	}
	return ""
}

func collectVarNames(expr *sitter.Node, content []byte) []string {
	var names []string
	var walk func(n *sitter.Node)
	walk = func(n *sitter.Node) {
		if n == nil {
			return
		}
		if n.Type() == "identifier" {
			start, end := n.StartByte(), n.EndByte()
			if int(end) <= len(content) && start <= end {
				names = append(names, string(content[start:end]))
			}
		}
		for i := 0; i < int(n.ChildCount()); i++ {
			walk(n.Child(i))
		}
	}
	walk(expr)
	return names
}

func containsVarName(expr *sitter.Node, name string, content []byte) bool {
	for _, n := range collectVarNames(expr, content) {
		if n == name {
			return true
		}
	}
	return false
}
