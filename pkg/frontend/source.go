package frontend

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
)

// maxSourceTextLen truncates node spellings kept on compute/ICFG nodes so
// that dumped graphs stay readable; see the driver's DOT labels.
const maxSourceTextLen = 60

func nodeText(content []byte, node *sitter.Node) string {
	if node == nil {
		return ""
	}
	start, end := node.StartByte(), node.EndByte()
	if int(end) > len(content) || start > end {
		return ""
	}
	return string(content[start:end])
}

// NodeText returns a node's raw spelling from its translation unit.
func NodeText(tu *TranslationUnit, node *sitter.Node) string {
	return nodeText(tu.Content, node)
}

// SourceText returns a node's spelling normalized to a single line and
// truncated to maxSourceTextLen, the form kept on ICFG/compute nodes.
func SourceText(tu *TranslationUnit, node *sitter.Node) string {
	text := nodeText(tu.Content, node)
	text = strings.Join(strings.Fields(text), " ")
	if len(text) > maxSourceTextLen {
		text = text[:maxSourceTextLen-len("…")] + "…"
	}
	return text
}

// SourceLine returns the 1-based source line a node starts on.
func SourceLine(node *sitter.Node) int {
	if node == nil {
		return 0
	}
	return int(node.StartPoint().Row) + 1
}

// SourceColumn returns the 1-based source column a node starts on.
func SourceColumn(node *sitter.Node) int {
	if node == nil {
		return 0
	}
	return int(node.StartPoint().Column) + 1
}

// EndLine returns the 1-based source line a node ends on.
func EndLine(node *sitter.Node) int {
	if node == nil {
		return 0
	}
	return int(node.EndPoint().Row) + 1
}
