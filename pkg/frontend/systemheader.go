package frontend

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
)

// intrinsicHeaderNames are standard SIMD intrinsic headers. Tree-sitter has
// no preprocessor model, so IsIntrinsicFile matches these names against the
// text of the translation unit's own top-level #include directives rather
// than resolving includes.
var intrinsicHeaderNames = map[string]bool{
	"immintrin.h": true, "emmintrin.h": true, "xmmintrin.h": true,
	"arm_neon.h": true, "avx2intrin.h": true, "smmintrin.h": true,
}

// IsSystemHeaderPath reports whether a translation unit's own path looks
// like a system/vendor header rather than user source, used to skip whole
// files during a directory-wide scan.
func IsSystemHeaderPath(path string) bool {
	lower := strings.ToLower(path)
	return strings.Contains(lower, "/usr/include/") ||
		strings.Contains(lower, "/usr/lib/") ||
		strings.Contains(lower, "/vendor/") ||
		strings.Contains(lower, "/third_party/")
}

// IsIntrinsicFile reports whether any top-level #include directive of a
// translation unit names a known SIMD intrinsic header; one match is
// enough. Anchors and ICFG nodes are still built for such files; the
// compute-graph builder does not inline callees defined in them.
func IsIntrinsicFile(tu *TranslationUnit) bool {
	root := tu.Tree.RootNode()
	for i := 0; i < int(root.ChildCount()); i++ {
		child := root.Child(i)
		if child == nil || child.Type() != "preproc_include" {
			continue
		}
		text := nodeText(tu.Content, child)
		for name := range intrinsicHeaderNames {
			if strings.Contains(text, name) {
				return true
			}
		}
	}
	return false
}

// IsSystemHeaderNode reports whether a definition originates from a system
// header rather than the translation unit's own source. Tree-sitter parses
// only the text handed to it (no preprocessor expansion), so this is a
// best-effort heuristic: a function_definition is treated as system-header
// code only when it sits inside an extern "C" block whose immediate
// preceding sibling is a preproc_include of a bracket-style (<...>) header.
// In the common case (no preprocessing has happened) this always returns
// false, which matches analyzing a single .c/.cpp file directly.
func IsSystemHeaderNode(tu *TranslationUnit, node *sitter.Node) bool {
	for p := node.Parent(); p != nil; p = p.Parent() {
		if p.Type() != "linkage_specification" {
			continue
		}
		prev := p.PrevSibling()
		if prev == nil || prev.Type() != "preproc_include" {
			continue
		}
		text := nodeText(tu.Content, prev)
		if strings.Contains(text, "<") {
			return true
		}
	}
	return false
}
