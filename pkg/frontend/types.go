// Package frontend parses C/C++ translation units with tree-sitter and exposes
// the narrow surface the rest of the pipeline needs: function iteration, CFG
// blocks made of statement-level AST nodes, parent navigation, and source-text
// extraction. It owns all knowledge of concrete tree-sitter node shapes so that
// the ICFG/PDG/Compute Graph builders can stay shape-agnostic.
package frontend

import (
	sitter "github.com/smacker/go-tree-sitter"
)

// Language identifies which tree-sitter grammar parsed a translation unit.
type Language string

const (
	LanguageC   Language = "c"
	LanguageCPP Language = "cpp"
)

// BlockKind classifies a CFG block the way the original extractor did, reused
// here so the ICFG Builder can pick True/False/Unconditional edges the same
// way regardless of grammar.
type BlockKind string

const (
	BlockEntry    BlockKind = "entry"
	BlockBranch   BlockKind = "branch"
	BlockLoopBody BlockKind = "loop_body"
	BlockReturn   BlockKind = "return"
	BlockExit     BlockKind = "exit"
	BlockPlain    BlockKind = "plain"
)

// BlockEdgeKind mirrors the terminator shape a block ends with.
type BlockEdgeKind string

const (
	EdgeUnconditional BlockEdgeKind = "unconditional"
	EdgeTrue          BlockEdgeKind = "true"
	EdgeFalse         BlockEdgeKind = "false"
	EdgeBackEdge      BlockEdgeKind = "back_edge"
)

// Block is a basic block whose statements are kept as individual AST nodes
// rather than joined source text, so the ICFG Builder can create one ICFG
// node per statement element per block (spec-required granularity).
type Block struct {
	ID         string
	Kind       BlockKind
	Statements []*sitter.Node
	// Terminator is set on branch/loop-header blocks; it is the node whose
	// shape (if_statement/for_statement/...) decided this block's successor
	// edge kinds.
	Terminator *sitter.Node
}

// BlockEdge connects two blocks within a function's CFG.
type BlockEdge struct {
	From *Block
	To   *Block
	Kind BlockEdgeKind
}

// FuncCFG is the per-function control-flow graph the ICFG Builder lowers.
type FuncCFG struct {
	Func     *Func
	Blocks   []*Block
	Edges    []BlockEdge
	Entry    *Block
	ExitSet  []*Block
}

// Func is a user-defined function or method found in a translation unit.
type Func struct {
	// Name is the unqualified function name as written at the declarator.
	Name string
	// QualifiedName includes the enclosing class/namespace for C++ methods,
	// e.g. "Matrix::multiply"; equal to Name for free C functions.
	QualifiedName string
	Node          *sitter.Node // function_definition node
	Body          *sitter.Node // compound_statement node
	Params        []Param
	TU            *TranslationUnit
}

// Param is a formal parameter as declared at the function header.
type Param struct {
	Name  string
	Index int
	Node  *sitter.Node
}

// TranslationUnit is one parsed source file.
type TranslationUnit struct {
	Path     string
	Content  []byte
	Tree     *sitter.Tree
	Language Language
	Funcs    []*Func
}

// Close releases the underlying tree-sitter tree.
func (tu *TranslationUnit) Close() {
	if tu.Tree != nil {
		tu.Tree.Close()
	}
}
