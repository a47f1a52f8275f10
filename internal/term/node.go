package term

import "github.com/efcore/bvef/internal/bv"

// Kind identifies the syntactic category of a Node, per the Term (Node)
// data model of section 3: variable, constant, unary/binary/ternary,
// quantifier, apply, args, lambda, uf, or slice.
type Kind uint8

const (
	KindConst Kind = iota
	KindVar           // free BV variable (skolem constant, fresh BV var, F-solver uvar, ...)
	KindParam         // bound parameter of a quantifier/lambda
	KindSlice
	KindNot // unary: present only transiently; normally folded into edge tag
	KindNeg
	KindAnd
	KindOr
	KindXor
	KindAdd
	KindMul
	KindUdiv
	KindUrem
	KindSll
	KindSrl
	KindUlt
	KindUlte
	KindEq
	KindCond
	KindUF    // uninterpreted function symbol (0-arity node of function sort)
	KindApply // application of a UF/lambda to an Args node
	KindArgs  // ordered argument tuple
	KindLambda
	KindForall
	KindExists
)

// QuantFlag records which outermost binder kind introduced a KindParam
// node, used to tell universal from existential parameters (section 3,
// "Quantifier node").
type QuantFlag uint8

const (
	QuantNone QuantFlag = iota
	QuantForall
	QuantExists
)

// Ref is a handle to a node together with an inversion tag on the edge
// that reaches it, per the design note "inversion is represented as a
// tagged edge rather than a separate node" (section 3, section 9). Only
// BV-sorted nodes may be negated.
type Ref struct {
	ID  NodeID
	Neg bool
}

// NodeID is a stable index into a Store's node arena.
type NodeID int32

// Node is one hash-consed DAG node. Lifetime is reference-counted; the
// last Release destroys it (section 3, "Nodes are shared; lifetime is
// governed by reference counts").
type Node struct {
	ID       NodeID
	Kind     Kind
	Sort     SortID
	Children []Ref

	// Const
	Value bv.Value

	// Var / Param / UF
	Name      string
	Quant     QuantFlag // for KindParam: which binder introduced it
	ParamOf   NodeID    // for KindParam: the Forall/Exists/Lambda node that binds it (0 if detached)

	// Slice
	Hi, Lo uint32

	// Lambda: optional "static rho" sample table (section 4.6). No code
	// in this module sets it, so it is always nil; the synthesizer's
	// sample models are ite-chains, not Lambda nodes.
	StaticRho map[string]bv.Value

	refs int
}
