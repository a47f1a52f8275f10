// Package term implements the hash-consed, reference-counted bit-vector
// term DAG that both inner solvers (E-solver, F-solver) build their
// formulas in, per sections 3, 6.2, and 9 of the specification. Each
// solver owns its own Store; terms are never shared across stores by
// pointer (section 5) — crossing the boundary always goes through an
// explicit rebuild (see pkg/ef/refine.go and pkg/ef/instantiate.go).
package term

import (
	"fmt"

	"github.com/efcore/bvef/internal/bv"
)

// Store is a single hash-consed arena of Nodes plus its Sort table.
// Structurally equal non-quantifier nodes share identity within one Store
// (section 3); Var/Param/UF nodes are never hash-consed since each
// allocation introduces a fresh symbol.
type Store struct {
	nodes    []*Node
	hashcons map[string]NodeID
	sorts    []Sort
	sortHash map[string]SortID
	nonce    int64
}

// NewStore creates an empty term store.
func NewStore() *Store {
	return &Store{
		hashcons: make(map[string]NodeID),
		sortHash: make(map[string]SortID),
	}
}

// Node resolves a NodeID to its Node descriptor. Panics if the node was
// already released.
func (st *Store) Node(id NodeID) *Node {
	n := st.nodes[id]
	if n == nil {
		panic(fmt.Sprintf("term: node %d already released", id))
	}
	return n
}

// SortOfRef returns the sort of the node a Ref points to.
func (st *Store) SortOfRef(r Ref) SortID { return st.Node(r.ID).Sort }

func (st *Store) alloc(n *Node) NodeID {
	id := NodeID(len(st.nodes))
	n.ID = id
	n.refs = 1
	st.nodes = append(st.nodes, n)
	return id
}

func childKey(c Ref) string {
	if c.Neg {
		return fmt.Sprintf("~%d", c.ID)
	}
	return fmt.Sprintf("%d", c.ID)
}

func structKey(kind Kind, sort SortID, children []Ref, extra string) string {
	k := fmt.Sprintf("%d|%d|%s|", kind, sort, extra)
	for _, c := range children {
		k += childKey(c) + ","
	}
	return k
}

// intern hash-conses a structural (non-fresh) node, bumping the refcount
// of an existing match and copying (consuming) the provided children refs
// if a new node is created, or releasing them if a match was found.
func (st *Store) intern(n *Node, extra string) Ref {
	key := structKey(n.Kind, n.Sort, n.Children, extra)
	if id, ok := st.hashcons[key]; ok {
		st.nodes[id].refs++
		for _, c := range n.Children {
			st.Release(c)
		}
		return Ref{ID: id}
	}
	id := st.alloc(n)
	st.hashcons[key] = id
	return Ref{ID: id}
}

// freshID allocates a node that is never hash-consed (variables,
// parameters, UF symbols, quantifiers, lambdas): each call introduces a
// new symbol, matching the reference's "fresh but stable within a run"
// skolem-naming discipline (section 4.3).
func (st *Store) freshID(n *Node) Ref {
	return Ref{ID: st.alloc(n)}
}

func (st *Store) nextNonce() int64 {
	st.nonce++
	return st.nonce
}

// Copy increments the reference count of r's node and returns r unchanged,
// mirroring btor_copy_exp: every long-lived handle the driver holds must
// be copied before being stored (section 5).
func (st *Store) Copy(r Ref) Ref {
	st.Node(r.ID).refs++
	return r
}

// Release decrements the reference count of r's node; at zero it
// recursively releases children and frees the node (section 3, "last
// release destroys"; section 5, "Transient handles in traversals are
// released at the end of the traversal").
func (st *Store) Release(r Ref) {
	n := st.nodes[r.ID]
	if n == nil {
		return
	}
	n.refs--
	if n.refs > 0 {
		return
	}
	children := n.Children
	st.nodes[r.ID] = nil
	for _, c := range children {
		st.Release(c)
	}
}

// Not toggles the inversion tag on the edge to r. No new node is
// allocated: NOT is a 1-bit tag on the edge, not a node (section 3, 9).
// Only BV-sorted refs may be negated.
func (st *Store) Not(r Ref) Ref {
	s := st.SortOf(st.SortOfRef(r))
	if s.Kind != SortBV {
		panic("term: Not on non-bitvector ref")
	}
	st.Node(r.ID).refs++
	return Ref{ID: r.ID, Neg: !r.Neg}
}

// resolvedConst returns the constant value of r, applying the inversion
// tag if set. Panics if r does not point to a KindConst node.
func (st *Store) resolvedConst(r Ref) bv.Value {
	n := st.Node(r.ID)
	if n.Kind != KindConst {
		panic("term: resolvedConst on non-constant ref")
	}
	if r.Neg {
		return n.Value.Not()
	}
	return n.Value
}

// Const builds (or reuses) the constant node for v.
func (st *Store) Const(v bv.Value) Ref {
	sort := st.BVSort(v.Width())
	n := &Node{Kind: KindConst, Sort: sort, Value: v}
	return st.intern(n, v.String())
}

// Var allocates a fresh free BV variable of the given sort (skolem
// constant, fresh uvar, etc.) with a debug name.
func (st *Store) Var(sort SortID, name string) Ref {
	n := &Node{Kind: KindVar, Sort: sort, Name: name}
	return st.freshID(n)
}

// UF allocates a fresh uninterpreted function symbol of function sort.
func (st *Store) UF(sort SortID, name string) Ref {
	s := st.SortOf(sort)
	if s.Kind != SortFun {
		panic("term: UF requires a function sort")
	}
	n := &Node{Kind: KindUF, Sort: sort, Name: name}
	return st.freshID(n)
}

// Param allocates a fresh bound parameter of the given BV sort; its
// Quant field records which quantifier owns it (set by Forall/Exists;
// Lambda sets only ParamOf).
func (st *Store) Param(sort SortID, name string) Ref {
	n := &Node{Kind: KindParam, Sort: sort, Name: name}
	return st.freshID(n)
}

func (st *Store) binary(kind Kind, a, b Ref, resultSort SortID) Ref {
	n := &Node{Kind: kind, Sort: resultSort, Children: []Ref{a, b}}
	return st.intern(n, "")
}

func (st *Store) bvBinaryOp(kind Kind, a, b Ref) Ref {
	sa := st.SortOfRef(a)
	if st.SortOfRef(b) != sa {
		panic("term: operand sort mismatch")
	}
	return st.binary(kind, a, b, sa)
}

// And, Or, Xor, Add, Mul, Udiv, Urem, Sll, Srl construct same-width,
// same-sort binary bit-vector operators (section 6.2).
func (st *Store) And(a, b Ref) Ref  { return st.bvBinaryOp(KindAnd, a, b) }
func (st *Store) Or(a, b Ref) Ref   { return st.bvBinaryOp(KindOr, a, b) }
func (st *Store) Xor(a, b Ref) Ref  { return st.bvBinaryOp(KindXor, a, b) }
func (st *Store) Add(a, b Ref) Ref  { return st.bvBinaryOp(KindAdd, a, b) }
func (st *Store) Mul(a, b Ref) Ref  { return st.bvBinaryOp(KindMul, a, b) }
func (st *Store) Udiv(a, b Ref) Ref { return st.bvBinaryOp(KindUdiv, a, b) }
func (st *Store) Urem(a, b Ref) Ref { return st.bvBinaryOp(KindUrem, a, b) }
func (st *Store) Sll(a, b Ref) Ref  { return st.bvBinaryOp(KindSll, a, b) }
func (st *Store) Srl(a, b Ref) Ref  { return st.bvBinaryOp(KindSrl, a, b) }

// Neg constructs two's-complement negation.
func (st *Store) Neg(a Ref) Ref {
	n := &Node{Kind: KindNeg, Sort: st.SortOfRef(a), Children: []Ref{a}}
	return st.intern(n, "")
}

// boolSort is the canonical width-1 BV sort used for predicate results.
func (st *Store) boolSort() SortID { return st.BVSort(1) }

// Ult, Ulte, Eq construct width-1 predicate results (section 6.2).
func (st *Store) Ult(a, b Ref) Ref {
	return st.binary(KindUlt, a, b, st.boolSort())
}
func (st *Store) Ulte(a, b Ref) Ref {
	return st.binary(KindUlte, a, b, st.boolSort())
}
func (st *Store) Eq(a, b Ref) Ref {
	if st.SortOfRef(a) != st.SortOfRef(b) {
		panic("term: Eq operand sort mismatch")
	}
	return st.binary(KindEq, a, b, st.boolSort())
}

// Cond builds the ternary ite(c, a, b); c must be width-1.
func (st *Store) Cond(c, a, b Ref) Ref {
	if st.Width(st.SortOfRef(c)) != 1 {
		panic("term: Cond condition must be width 1")
	}
	sa := st.SortOfRef(a)
	if st.SortOfRef(b) != sa {
		panic("term: Cond branch sort mismatch")
	}
	n := &Node{Kind: KindCond, Sort: sa, Children: []Ref{c, a, b}}
	return st.intern(n, "")
}

// Slice extracts bits [hi:lo] from a.
func (st *Store) Slice(a Ref, hi, lo uint32) Ref {
	w := st.Width(st.SortOfRef(a))
	if hi < lo || hi >= w {
		panic("term: invalid slice bounds")
	}
	n := &Node{
		Kind:     KindSlice,
		Sort:     st.BVSort(hi - lo + 1),
		Children: []Ref{a},
		Hi:       hi,
		Lo:       lo,
	}
	return st.intern(n, fmt.Sprintf("%d:%d", hi, lo))
}

// Args builds an ordered argument tuple node from children, whose sort is
// the tuple of their sorts.
func (st *Store) Args(children ...Ref) Ref {
	elems := make([]SortID, len(children))
	for i, c := range children {
		elems[i] = st.SortOfRef(c)
	}
	n := &Node{Kind: KindArgs, Sort: st.TupleSort(elems...), Children: append([]Ref(nil), children...)}
	return st.intern(n, "")
}

// Apply applies fn (a UF or Lambda node) to an Args node.
func (st *Store) Apply(fn, args Ref) Ref {
	fnSort := st.SortOf(st.SortOfRef(fn))
	if fnSort.Kind != SortFun {
		panic("term: Apply requires a function-sorted callee")
	}
	if st.SortOfRef(args) != fnSort.Domain {
		panic("term: Apply argument tuple sort mismatch")
	}
	n := &Node{Kind: KindApply, Sort: fnSort.Codomain, Children: []Ref{fn, args}}
	return st.intern(n, "")
}

// Lambda builds a (possibly multi-parameter) lambda binder over body,
// given the already-allocated Param refs in order. The resulting node has
// function sort params-sort -> body-sort.
func (st *Store) Lambda(params []Ref, body Ref) Ref {
	elems := make([]SortID, len(params))
	ids := make([]NodeID, len(params))
	for i, p := range params {
		pn := st.Node(p.ID)
		if pn.Kind != KindParam {
			panic("term: Lambda parameter must be a Param node")
		}
		elems[i] = pn.Sort
		ids[i] = p.ID
	}
	domain := st.TupleSort(elems...)
	fnSort := st.FunSort(domain, st.SortOfRef(body))
	children := append(append([]Ref(nil), params...), body)
	n := &Node{Kind: KindLambda, Sort: fnSort, Children: children}
	r := st.freshID(n)
	for _, id := range ids {
		st.Node(id).ParamOf = r.ID
	}
	return r
}

// Forall builds (forall param. body); param must be a fresh Param node.
func (st *Store) Forall(param, body Ref) Ref {
	return st.quantifier(KindForall, QuantForall, param, body)
}

// Exists builds (exists param. body); param must be a fresh Param node.
func (st *Store) Exists(param, body Ref) Ref {
	return st.quantifier(KindExists, QuantExists, param, body)
}

func (st *Store) quantifier(kind Kind, flag QuantFlag, param, body Ref) Ref {
	pn := st.Node(param.ID)
	if pn.Kind != KindParam {
		panic("term: quantifier requires a Param node")
	}
	pn.Quant = flag
	n := &Node{Kind: kind, Sort: st.SortOfRef(body), Children: []Ref{param, body}}
	r := st.freshID(n)
	pn.ParamOf = r.ID
	return r
}

// IsForallVar reports whether r's node is a Param bound by a Forall.
func (st *Store) IsForallVar(r Ref) bool {
	n := st.Node(r.ID)
	return n.Kind == KindParam && n.Quant == QuantForall
}

// IsExistsVar reports whether r's node is a Param bound by an Exists.
func (st *Store) IsExistsVar(r Ref) bool {
	n := st.Node(r.ID)
	return n.Kind == KindParam && n.Quant == QuantExists
}
