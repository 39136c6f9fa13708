package computegraph

import "github.com/cpggen/cpggen/pkg/anchor"

// BF16Demo hand-builds the bfloat16 dot-product graph used by the driver's
// --bf16-demo flag. It is the only producer of Phi nodes; the builder emits
// LoopInduction only by promoting a loop variable in loopWiring. The shape
// mirrors
//
//	float acc = 0;
//	for (int i = 0; i < n; ++i)
//	    acc += (float)a[i] * (float)b[i];
//
// with the two loads widened from bf16 to f32 before the multiply.
func BF16Demo() *Graph {
	g := NewGraph()
	g.AnchorLine = 3
	g.Score = 230

	loop := g.NewNode(KindLoop)
	loop.Name = "for"
	loop.LoopType = "for_statement"
	loop.SourceLine = 2
	loop.SourceText = "for (int i = 0; i < n; ++i)"

	iv := g.NewNode(KindLoopInduction)
	iv.Name = "i"
	iv.TypeName = "int"
	iv.SourceLine = 2

	bound := g.NewNode(KindParameter)
	bound.Name = "n"
	bound.TypeName = "int"
	bound.IsFormalParam = true
	bound.SourceLine = 2

	accInit := g.NewNode(KindConstant)
	accInit.Name = "0"
	accInit.TypeName = "float"
	accInit.HasConstValue = true
	accInit.ConstValue = "0"
	accInit.SourceLine = 1

	loadA := g.NewNode(KindArrayAccess)
	loadA.Name = "a[i]"
	loadA.TypeName = "__bf16"
	loadA.SourceLine = 3

	loadB := g.NewNode(KindArrayAccess)
	loadB.Name = "b[i]"
	loadB.TypeName = "__bf16"
	loadB.SourceLine = 3

	widenA := g.NewNode(KindCast)
	widenA.Name = "bf16_to_f32"
	widenA.TypeName = "float"
	widenA.SourceLine = 3

	widenB := g.NewNode(KindCast)
	widenB.Name = "bf16_to_f32"
	widenB.TypeName = "float"
	widenB.SourceLine = 3

	mul := g.NewNode(KindBinaryOp)
	mul.Name = "*"
	mul.OpCode = anchor.OpMul
	mul.TypeName = "float"
	mul.SourceLine = 3

	phi := g.NewNode(KindPhi)
	phi.Name = "acc"
	phi.TypeName = "float"
	phi.SourceLine = 3

	add := g.NewNode(KindBinaryOp)
	add.Name = "+="
	add.OpCode = anchor.OpAdd
	add.TypeName = "float"
	add.IsAnchor = true
	add.SourceLine = 3
	add.SourceText = "acc += (float)a[i] * (float)b[i]"

	ret := g.NewNode(KindReturn)
	ret.Name = "return"
	ret.TypeName = "float"
	ret.SourceLine = 4

	for _, n := range []*Node{iv, loadA, loadB, widenA, widenB, mul, phi, add} {
		n.LoopContextID = loop.ID
		n.LoopContextLine = loop.SourceLine
	}

	g.AddEdge(loop.ID, iv.ID, EdgeDataFlow, "induction_var")
	g.AddEdge(bound.ID, loop.ID, EdgeControl, "condition")
	g.AddEdge(loop.ID, add.ID, EdgeControl, "loop_body")
	g.AddEdge(iv.ID, loadA.ID, EdgeDataFlow, "index")
	g.AddEdge(iv.ID, loadB.ID, EdgeDataFlow, "index")
	g.AddEdge(loadA.ID, widenA.ID, EdgeDataFlow, "cast")
	g.AddEdge(loadB.ID, widenB.ID, EdgeDataFlow, "cast")
	g.AddEdge(widenA.ID, mul.ID, EdgeDataFlow, "lhs")
	g.AddEdge(widenB.ID, mul.ID, EdgeDataFlow, "rhs")
	g.AddEdge(accInit.ID, phi.ID, EdgeDataFlow, "init")
	g.AddEdge(mul.ID, add.ID, EdgeDataFlow, "rhs")
	g.AddEdge(phi.ID, add.ID, EdgeDataFlow, "lhs_read")
	g.AddEdge(add.ID, phi.ID, EdgeLoopCarried, "acc (next iter)")
	g.AddEdge(phi.ID, ret.ID, EdgeDataFlow, "child")

	return g
}
