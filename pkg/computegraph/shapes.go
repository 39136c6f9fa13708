package computegraph

import (
	"strconv"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/cpggen/cpggen/pkg/anchor"
)

// assignParts splits a 3-child assignment_expression or binary_expression
// into (lhs, operator token text, rhs); tree-sitter-c
// doesn't expose field names through this binding, so position is all
// there is, mirroring pkg/anchor/visitor.go's assignOpParts.
func assignParts(node *sitter.Node) (lhs *sitter.Node, op string, rhs *sitter.Node) {
	if node == nil || node.ChildCount() < 3 {
		return nil, "", nil
	}
	return node.Child(0), node.Child(1).Type(), node.Child(2)
}

var compoundAssignOpCodes = map[string]OpCode{
	"+=": anchor.OpAdd, "-=": anchor.OpSub, "*=": anchor.OpMul, "/=": anchor.OpDiv, "%=": anchor.OpMod,
	"<<=": anchor.OpShl, ">>=": anchor.OpShr, "&=": anchor.OpAnd, "|=": anchor.OpOr, "^=": anchor.OpXor,
}

var binaryOpCodes = map[string]OpCode{
	"+": anchor.OpAdd, "-": anchor.OpSub, "*": anchor.OpMul, "/": anchor.OpDiv, "%": anchor.OpMod,
	"<<": anchor.OpShl, ">>": anchor.OpShr, "&": anchor.OpAnd, "|": anchor.OpOr, "^": anchor.OpXor,
}

var compareOpCodes = map[string]OpCode{
	"<": anchor.OpLt, ">": anchor.OpGt, "<=": anchor.OpLe, ">=": anchor.OpGe, "==": anchor.OpEq, "!=": anchor.OpNe,
}

func compoundAssignOp(op string) (OpCode, bool) {
	code, ok := compoundAssignOpCodes[op]
	return code, ok
}

// binaryOpCode normalizes a binary_expression's operator token, reporting
// whether it's a comparison (CompareOp kind) rather than an arithmetic or
// bitwise BinaryOp.
func binaryOpCode(op string) (OpCode, bool) {
	if code, ok := compareOpCodes[op]; ok {
		return code, true
	}
	if code, ok := binaryOpCodes[op]; ok {
		return code, false
	}
	return anchor.OpUnknown, false
}

func unaryOpCode(tok string) OpCode {
	switch tok {
	case "-":
		return anchor.OpSub
	case "+":
		return anchor.OpAdd
	case "!", "~":
		return anchor.OpUnknown
	default:
		return anchor.OpUnknown
	}
}

func signOpCode(step int) OpCode {
	if step < 0 {
		return anchor.OpSub
	}
	return anchor.OpAdd
}

func incrementName(varName string, step int) string {
	if step < 0 {
		return varName + " -= " + strconv.Itoa(-step)
	}
	return varName + " += " + strconv.Itoa(step)
}

// assignIncrementShape recognizes `x = x + k` / `x = x - k` (and the
// operand-reversed `x = k + x`) as an increment with constant step k, the
// plain-assignment equivalent of x += k tracked by §4.5.2's increment
// detection rule.
func assignIncrementShape(lhs, rhs *sitter.Node, content []byte) (varName string, step int, ok bool) {
	if lhs == nil || rhs == nil || lhs.Type() != "identifier" || rhs.Type() != "binary_expression" {
		return "", 0, false
	}
	name := nodeText(content, lhs)
	rl, op, rr := assignParts(rhs)
	if rl == nil {
		return "", 0, false
	}

	if rl.Type() == "identifier" && nodeText(content, rl) == name && rr.Type() == "number_literal" {
		step, ok := stepFromLiteral(op, nodeText(content, rr))
		return name, step, ok
	}
	if rr != nil && rr.Type() == "identifier" && nodeText(content, rr) == name && op == "+" && rl.Type() == "number_literal" {
		step, ok := stepFromLiteral(op, nodeText(content, rl))
		return name, step, ok
	}
	return "", 0, false
}

// compoundIncrementShape recognizes `x += k` / `x -= k` with a literal
// step; any other compound assignment (e.g. `sum += a[i]*b[i]`) is a
// regular BinaryOp, not an increment.
func compoundIncrementShape(lhs *sitter.Node, op string, rhs *sitter.Node, content []byte) (varName string, step int, ok bool) {
	if lhs == nil || rhs == nil || lhs.Type() != "identifier" || rhs.Type() != "number_literal" {
		return "", 0, false
	}
	if op != "+=" && op != "-=" {
		return "", 0, false
	}
	name := nodeText(content, lhs)
	v, ok := stepFromLiteral(op, nodeText(content, rhs))
	return name, v, ok
}

func stepFromLiteral(op, lit string) (int, bool) {
	n, err := strconv.Atoi(lit)
	if err != nil {
		return 0, false
	}
	if op == "-" || op == "-=" {
		return -n, true
	}
	return n, true
}

// updateShape classifies a `++x`/`x++`/`--x`/`x--` update_expression,
// returning its operand, a canonical form label, and signed step.
func updateShape(node *sitter.Node, content []byte) (operand *sitter.Node, form string, step int) {
	if node.ChildCount() < 2 {
		return nil, "", 0
	}
	first := node.Child(0)
	second := node.Child(1)
	if first.Type() == "++" || first.Type() == "--" {
		operand = second
		if first.Type() == "++" {
			return operand, "pre_inc", 1
		}
		return operand, "pre_dec", -1
	}
	operand = first
	if second.Type() == "++" {
		return operand, "post_inc", 1
	}
	return operand, "post_dec", -1
}
