package term

import (
	"testing"

	"github.com/efcore/bvef/internal/bv"
)

func TestConstHashConsing(t *testing.T) {
	st := NewStore()
	a := st.Const(bv.FromUint64(8, 5))
	b := st.Const(bv.FromUint64(8, 5))
	if a.ID != b.ID {
		t.Errorf("equal constants should share identity: %d vs %d", a.ID, b.ID)
	}
	c := st.Const(bv.FromUint64(8, 6))
	if a.ID == c.ID {
		t.Errorf("distinct constants must not share identity")
	}
}

func TestBinaryOpHashConsing(t *testing.T) {
	st := NewStore()
	sort := st.BVSort(8)
	x := st.Var(sort, "x")
	y := st.Var(sort, "y")

	a1 := st.Add(x, y)
	a2 := st.Add(st.Copy(x), st.Copy(y))
	if a1.ID != a2.ID {
		t.Errorf("structurally equal Add nodes should share identity")
	}

	m := st.Mul(st.Copy(x), st.Copy(y))
	if m.ID == a1.ID {
		t.Errorf("Add and Mul over the same operands must not collide")
	}
}

func TestNotIsEdgeTagNotNode(t *testing.T) {
	st := NewStore()
	sort := st.BVSort(4)
	x := st.Var(sort, "x")
	before := len(st.nodes)
	nx := st.Not(x)
	if len(st.nodes) != before {
		t.Errorf("Not should not allocate a new node, arena grew from %d to %d", before, len(st.nodes))
	}
	if nx.ID != x.ID || !nx.Neg {
		t.Errorf("Not(x) should be the same node id with Neg flipped, got %+v", nx)
	}
}

func TestVarParamUFNeverHashConsed(t *testing.T) {
	st := NewStore()
	sort := st.BVSort(4)
	a := st.Var(sort, "a")
	b := st.Var(sort, "a")
	if a.ID == b.ID {
		t.Errorf("two Var allocations with the same name must still be distinct symbols")
	}
}

func TestReferenceCountingReleasesChildren(t *testing.T) {
	st := NewStore()
	sort := st.BVSort(4)
	x := st.Var(sort, "x")
	y := st.Var(sort, "y")
	sum := st.Add(x, y) // consumes x, y

	st.Copy(sum)
	st.Release(sum)
	if st.nodes[sum.ID] == nil {
		t.Fatalf("node should still be alive after one of two releases")
	}
	st.Release(sum)
	if st.nodes[sum.ID] != nil {
		t.Errorf("node should be freed after the last release")
	}
	if st.nodes[x.ID] != nil || st.nodes[y.ID] != nil {
		t.Errorf("releasing the last reference to a node should recursively release its children")
	}
}

func TestSortInterning(t *testing.T) {
	st := NewStore()
	s1 := st.BVSort(16)
	s2 := st.BVSort(16)
	if s1 != s2 {
		t.Errorf("equal BV sorts should be interned to the same id")
	}
	dom := st.TupleSort(s1, s2)
	fn1 := st.FunSort(dom, s1)
	fn2 := st.FunSort(st.TupleSort(s1, s2), s1)
	if fn1 != fn2 {
		t.Errorf("equal function sorts should be interned to the same id")
	}
}

func TestForallExistsParamFlags(t *testing.T) {
	st := NewStore()
	sort := st.BVSort(4)
	uvar := st.Param(sort, "u")
	evar := st.Param(sort, "e")
	body := st.Eq(st.Copy(uvar), st.Copy(evar))
	ex := st.Exists(evar, body)
	_ = st.Forall(uvar, ex)

	if !st.IsForallVar(uvar) {
		t.Errorf("uvar should be flagged as a forall-bound parameter")
	}
	if !st.IsExistsVar(evar) {
		t.Errorf("evar should be flagged as an exists-bound parameter")
	}
}

func TestRebuildIdentityOnUnchangedLeaves(t *testing.T) {
	st := NewStore()
	sort := st.BVSort(8)
	x := st.Var(sort, "x")
	y := st.Var(sort, "y")
	root := st.Add(x, y)

	identity := func(st *Store, n *Node, children []Ref) Ref {
		switch n.Kind {
		case KindAdd:
			return st.Add(children[0], children[1])
		default:
			return st.Copy(Ref{ID: n.ID})
		}
	}

	out := Rebuild(st, st.Copy(root), identity)
	if out.ID != root.ID {
		t.Errorf("rebuilding with an identity rule should reproduce the same hash-consed node")
	}
}

func TestRebuildSharedSubtreeVisitedOnce(t *testing.T) {
	st := NewStore()
	sort := st.BVSort(8)
	x := st.Var(sort, "x")
	diamond := st.And(st.Copy(x), x) // x appears twice under the same parent

	visits := 0
	out := Rebuild(st, diamond, func(st *Store, n *Node, children []Ref) Ref {
		if n.Kind == KindVar {
			visits++
		}
		if n.Kind == KindAnd {
			return st.And(children[0], children[1])
		}
		return st.Copy(Ref{ID: n.ID})
	})
	if visits != 1 {
		t.Errorf("shared child should be rebuilt exactly once, got %d visits", visits)
	}
	if out.ID != diamond.ID {
		t.Errorf("identity rebuild of a diamond should reproduce the same node")
	}
}

func TestWalkDepsTracksOpenForalls(t *testing.T) {
	st := NewStore()
	sort := st.BVSort(4)
	u := st.Param(sort, "u")
	e := st.Param(sort, "e")
	body := st.Eq(st.Copy(u), st.Copy(e))
	inner := st.Exists(e, body)
	root := st.Forall(u, inner)

	// e is visited at its Exists binder slot and again in the body; every
	// visit must see exactly the open universal u.
	var visits [][]Ref
	WalkDeps(st, root, DepVisitor{
		VisitParam: func(p Ref, open []Ref) {
			if p.ID == e.ID {
				visits = append(visits, append([]Ref(nil), open...))
			}
		},
	})
	if len(visits) == 0 {
		t.Fatalf("existential e was never visited")
	}
	for _, depsOfE := range visits {
		if len(depsOfE) != 1 || depsOfE[0].ID != u.ID {
			t.Errorf("existential e should depend on exactly [u], got %+v", depsOfE)
		}
	}
}
