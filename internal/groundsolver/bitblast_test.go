package groundsolver

import (
	"testing"

	"github.com/efcore/bvef/internal/bv"
	"github.com/efcore/bvef/internal/term"
)

func TestBlastConstEquality(t *testing.T) {
	st := term.NewStore()
	sort := st.BVSort(4)
	x := st.Var(sort, "x")
	five := st.Const(bv.FromUint64(4, 5))
	eq := st.Eq(x, five)

	s := NewSolver()
	bl := NewBlaster(st, s)
	bl.AssertTrue(eq)

	if !s.Solve() {
		t.Fatal("expected satisfiable")
	}
	xRef := term.Ref{ID: st.Node(eq.ID).Children[0].ID}
	got := bl.ValueOf(xRef, 4)
	if got.Uint64() != 5 {
		t.Errorf("x should be forced to 5, got %d", got.Uint64())
	}
}

func TestBlastAdderWraparound(t *testing.T) {
	st := term.NewStore()
	sort := st.BVSort(4)
	a := st.Const(bv.FromUint64(4, 15))
	one := st.Const(bv.FromUint64(4, 1))
	sum := st.Add(a, one)
	x := st.Var(sort, "x")
	eq := st.Eq(st.Copy(sum), x)

	s := NewSolver()
	bl := NewBlaster(st, s)
	bl.AssertTrue(eq)

	if !s.Solve() {
		t.Fatal("expected satisfiable")
	}
	got := bl.ValueOf(term.Ref{ID: x.ID}, 4)
	if got.Uint64() != 0 {
		t.Errorf("15+1 mod 16 should be 0, got %d", got.Uint64())
	}
}

func TestBlastUnsatisfiableContradiction(t *testing.T) {
	st := term.NewStore()
	sort := st.BVSort(2)
	x := st.Var(sort, "x")
	zero := st.Const(bv.Zero(2))
	notZero := st.Not(st.Eq(x, zero))
	selfEqZero := st.Eq(st.Copy(x), st.Copy(zero))

	s := NewSolver()
	bl := NewBlaster(st, s)
	bl.AssertTrue(notZero)
	bl.AssertTrue(selfEqZero)

	if s.Solve() {
		t.Fatal("expected unsatisfiable: x != 0 and x == 0 cannot both hold")
	}
}

func TestBlastUltOrdersValues(t *testing.T) {
	st := term.NewStore()
	sort := st.BVSort(3)
	x := st.Var(sort, "x")
	three := st.Const(bv.FromUint64(3, 3))
	lt := st.Ult(x, three)

	s := NewSolver()
	bl := NewBlaster(st, s)
	bl.AssertTrue(lt)

	if !s.Solve() {
		t.Fatal("expected satisfiable")
	}
	got := bl.ValueOf(term.Ref{ID: x.ID}, 3)
	if got.Uint64() >= 3 {
		t.Errorf("x should be < 3, got %d", got.Uint64())
	}
}

func TestBlastUFAckermannizationConsistency(t *testing.T) {
	st := term.NewStore()
	bvSort := st.BVSort(4)
	fnSort := st.FunSort(st.TupleSort(bvSort), bvSort)
	f := st.UF(fnSort, "f")
	x := st.Var(bvSort, "x")
	y := st.Var(bvSort, "y")

	fx := st.Apply(st.Copy(f), st.Args(st.Copy(x)))
	fy := st.Apply(st.Copy(f), st.Args(st.Copy(y)))

	xEqY := st.Eq(st.Copy(x), st.Copy(y))
	fxNeqFy := st.Not(st.Eq(fx, fy))

	s := NewSolver()
	bl := NewBlaster(st, s)
	bl.AssertTrue(xEqY)
	bl.AssertTrue(fxNeqFy)

	if s.Solve() {
		t.Fatal("Ackermannization should forbid f(x) != f(y) when x == y")
	}
}
