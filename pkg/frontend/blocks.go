package frontend

import (
	"fmt"

	sitter "github.com/smacker/go-tree-sitter"
)

// blockBuilder walks a function body splitting it into Blocks at every
// control-flow statement, the same structural split the teacher's CFG
// extractor performs, except each block keeps the statement *nodes*
// themselves instead of joined source text so the ICFG Builder can create
// one ICFG node per statement element (§4.1).
type blockBuilder struct {
	fn      *Func
	blocks  []*Block
	edges   []BlockEdge
	nextID  int
}

// BuildCFG produces the per-function control-flow graph used as the ICFG
// Builder's direct input.
func BuildCFG(fn *Func) *FuncCFG {
	b := &blockBuilder{fn: fn}

	entry := b.newBlock(BlockEntry)
	b.addBlock(entry)

	current := entry
	b.processCompound(fn.Body, &current)

	exit := b.newBlock(BlockExit)
	b.addBlock(exit)
	if current != nil {
		b.addEdge(current, exit, EdgeUnconditional)
	}

	return &FuncCFG{
		Func:    fn,
		Blocks:  b.blocks,
		Edges:   b.edges,
		Entry:   entry,
		ExitSet: []*Block{exit},
	}
}

func (b *blockBuilder) newBlock(kind BlockKind) *Block {
	b.nextID++
	return &Block{ID: fmt.Sprintf("b%d", b.nextID), Kind: kind}
}

func (b *blockBuilder) addBlock(blk *Block) { b.blocks = append(b.blocks, blk) }

func (b *blockBuilder) addEdge(from, to *Block, kind BlockEdgeKind) {
	if from == nil || to == nil {
		return
	}
	b.edges = append(b.edges, BlockEdge{From: from, To: to, Kind: kind})
}

// processCompound appends statements to *current, opening new blocks at each
// control-flow statement boundary.
func (b *blockBuilder) processCompound(compound *sitter.Node, current **Block) {
	if compound == nil {
		return
	}
	for _, child := range DirectChildren(compound) {
		switch child.Type() {
		case "if_statement":
			b.processIf(child, current)
		case "switch_statement":
			b.processSwitch(child, current)
		case "for_statement", "for_range_loop":
			b.processLoop(child, current, "for")
		case "while_statement":
			b.processLoop(child, current, "while")
		case "do_statement":
			b.processDoWhile(child, current)
		case "return_statement":
			b.appendStatement(*current, child)
			retBlock := b.newBlock(BlockReturn)
			b.addBlock(retBlock)
			b.addEdge(*current, retBlock, EdgeUnconditional)
			retBlock.Statements = []*sitter.Node{child}
			(*current).Statements = trimLast((*current).Statements)
			*current = retBlock
		default:
			b.appendStatement(*current, child)
		}
	}
}

func trimLast(nodes []*sitter.Node) []*sitter.Node {
	if len(nodes) == 0 {
		return nodes
	}
	return nodes[:len(nodes)-1]
}

func (b *blockBuilder) appendStatement(blk *Block, node *sitter.Node) {
	if blk == nil {
		return
	}
	blk.Statements = append(blk.Statements, node)
}

func (b *blockBuilder) processIf(node *sitter.Node, current **Block) {
	cond := childByType(node, "condition")
	if cond == nil {
		cond = node.Child(1) // best-effort: parenthesized condition slot
	}
	consequence := childByFieldGuess(node, "consequence", []string{"compound_statement", "if_statement", "expression_statement", "return_statement"}, 2)
	alternative := findElseClause(node)

	branch := b.newBlock(BlockBranch)
	branch.Terminator = node
	if cond != nil {
		branch.Statements = []*sitter.Node{cond}
	}
	b.addBlock(branch)
	b.addEdge(*current, branch, EdgeUnconditional)

	thenBlock := b.newBlock(BlockPlain)
	b.addBlock(thenBlock)
	b.addEdge(branch, thenBlock, EdgeTrue)
	joined := thenBlock
	if consequence != nil {
		if consequence.Type() == "compound_statement" {
			b.processCompound(consequence, &thenBlock)
		} else {
			b.appendStatement(thenBlock, consequence)
		}
		joined = thenBlock
	}

	if alternative != nil {
		elseBlock := b.newBlock(BlockPlain)
		b.addBlock(elseBlock)
		b.addEdge(branch, elseBlock, EdgeFalse)
		if alternative.Type() == "if_statement" {
			b.processIf(alternative, &elseBlock)
		} else if alternative.Type() == "compound_statement" {
			b.processCompound(alternative, &elseBlock)
		} else {
			b.appendStatement(elseBlock, alternative)
		}
		joined = elseBlock
	} else {
		// No else: the branch's False edge and the end of the then-block
		// both lead to a fresh merge block, which becomes current.
		merge := b.newBlock(BlockPlain)
		b.addBlock(merge)
		b.addEdge(branch, merge, EdgeFalse)
		b.addEdge(joined, merge, EdgeUnconditional)
		*current = merge
		return
	}

	*current = joined
}

func findElseClause(ifNode *sitter.Node) *sitter.Node {
	for i := 0; i < int(ifNode.ChildCount()); i++ {
		child := ifNode.Child(i)
		if child == nil {
			continue
		}
		if child.Type() == "else_clause" {
			for j := 0; j < int(child.ChildCount()); j++ {
				gc := child.Child(j)
				if gc != nil && gc.Type() != "else" {
					return gc
				}
			}
		}
	}
	return nil
}

// childByFieldGuess looks for a named child by its type set, falling back to
// a positional child index; tree-sitter-c/cpp don't expose field names
// through this binding's Node.Type(), so shape matching is approximate.
func childByFieldGuess(node *sitter.Node, _ string, wantTypes []string, fallbackIdx int) *sitter.Node {
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		if child == nil {
			continue
		}
		for _, t := range wantTypes {
			if child.Type() == t {
				return child
			}
		}
	}
	if fallbackIdx >= 0 && fallbackIdx < int(node.ChildCount()) {
		return node.Child(fallbackIdx)
	}
	return nil
}

func (b *blockBuilder) processSwitch(node *sitter.Node, current **Block) {
	cond := childByType(node, "condition")
	body := childByType(node, "body")

	header := b.newBlock(BlockBranch)
	header.Terminator = node
	if cond != nil {
		header.Statements = []*sitter.Node{cond}
	}
	b.addBlock(header)
	b.addEdge(*current, header, EdgeUnconditional)

	last := header
	if body != nil {
		for i := 0; i < int(body.ChildCount()); i++ {
			child := body.Child(i)
			if child == nil {
				continue
			}
			if child.Type() != "case_statement" {
				continue
			}
			caseBlock := b.newBlock(BlockBranch)
			caseBlock.Statements = []*sitter.Node{child}
			b.addBlock(caseBlock)
			b.addEdge(header, caseBlock, EdgeUnconditional)

			cur := caseBlock
			for j := 0; j < int(child.ChildCount()); j++ {
				stmt := child.Child(j)
				if stmt == nil || stmt.Type() == "case" || stmt.Type() == "default" || stmt.Type() == ":" {
					continue
				}
				if stmt.Type() == "compound_statement" {
					b.processCompound(stmt, &cur)
				} else {
					b.appendStatement(cur, stmt)
				}
			}
			last = cur
		}
	}
	*current = last
}

func (b *blockBuilder) processLoop(node *sitter.Node, current **Block, kind string) {
	cond := childByType(node, "condition")
	body := childByType(node, "body")

	header := b.newBlock(BlockBranch)
	header.Terminator = node
	if cond != nil {
		header.Statements = []*sitter.Node{cond}
	} else {
		header.Statements = []*sitter.Node{node}
	}
	b.addBlock(header)
	b.addEdge(*current, header, EdgeUnconditional)

	loopBody := b.newBlock(BlockLoopBody)
	b.addBlock(loopBody)
	b.addEdge(header, loopBody, EdgeTrue)

	if body != nil && body.Type() == "compound_statement" {
		b.processCompound(body, &loopBody)
	} else if body != nil {
		b.appendStatement(loopBody, body)
	}
	b.addEdge(loopBody, header, EdgeBackEdge)

	after := b.newBlock(BlockPlain)
	b.addBlock(after)
	b.addEdge(header, after, EdgeFalse)

	*current = after
}

func (b *blockBuilder) processDoWhile(node *sitter.Node, current **Block) {
	body := childByType(node, "body")
	cond := childByType(node, "condition")

	loopBody := b.newBlock(BlockLoopBody)
	b.addBlock(loopBody)
	b.addEdge(*current, loopBody, EdgeUnconditional)

	if body != nil && body.Type() == "compound_statement" {
		b.processCompound(body, &loopBody)
	}

	header := b.newBlock(BlockBranch)
	header.Terminator = node
	if cond != nil {
		header.Statements = []*sitter.Node{cond}
	}
	b.addBlock(header)
	b.addEdge(loopBody, header, EdgeUnconditional)
	b.addEdge(header, loopBody, EdgeBackEdge)

	after := b.newBlock(BlockPlain)
	b.addBlock(after)
	b.addEdge(header, after, EdgeFalse)

	*current = after
}
