package query

import (
	"github.com/cpggen/cpggen/pkg/frontend"
)

// CallContext is one frame of a context-sensitive call stack: the call site
// expression that produced the step into Callee.
type CallContext struct {
	Callee *frontend.Func
	Site   callSite
}

// CallSitesInto returns one CallContext per call site anywhere in the
// translation unit whose resolved callee is fn, in recording order.
func (e *Engine) CallSitesInto(fn *frontend.Func) []CallContext {
	var out []CallContext
	for _, cs := range e.callSite {
		if cs.Callee == fn {
			out = append(out, CallContext{Callee: fn, Site: cs})
		}
	}
	return out
}

// TraverseCallGraphContextSensitive walks the call graph forward from fn,
// keeping the call-site stack that produced each reached function (so the
// same callee reached via two different sites is reported twice), bounded
// by maxCallDepth and guarding against recursion revisiting a site already
// on the current stack.
func (e *Engine) TraverseCallGraphContextSensitive(fn *frontend.Func, maxCallDepth int) [][]CallContext {
	var paths [][]CallContext
	var walk func(cur *frontend.Func, stack []CallContext, onStack map[*frontend.Func]bool)
	walk = func(cur *frontend.Func, stack []CallContext, onStack map[*frontend.Func]bool) {
		if len(stack) >= maxCallDepth {
			return
		}
		extended := false
		for _, cs := range e.callSite {
			if cs.Caller != cur || cs.Callee == nil {
				continue
			}
			if onStack[cs.Callee] {
				continue // recursion guard: never revisit a function already on the stack
			}
			extended = true
			frame := CallContext{Callee: cs.Callee, Site: cs}
			onStack[cs.Callee] = true
			walk(cs.Callee, append(stack, frame), onStack)
			delete(onStack, cs.Callee)
		}
		if !extended && len(stack) > 0 {
			paths = append(paths, append([]CallContext{}, stack...))
		}
	}
	onStack := map[*frontend.Func]bool{fn: true}
	walk(fn, nil, onStack)
	return paths
}
