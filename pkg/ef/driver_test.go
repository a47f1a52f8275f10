package ef

import (
	"context"
	"testing"
	"time"

	"github.com/efcore/bvef/internal/bv"
	"github.com/efcore/bvef/internal/term"
)

// buildTrivialSat constructs: exists e . (e == 5), a quantifier-free-at-
// the-top existential-only instance (no universals at all), the
// simplest possible EF instance and scenario S1 of section 8.
func buildTrivialSat(t *testing.T) Problem {
	st := term.NewStore()
	sort := st.BVSort(4)
	e := st.Param(sort, "e")
	five := st.Const(bv.FromUint64(4, 5))
	matrix := st.Eq(st.Copy(e), five)
	formula := st.Exists(e, st.Copy(matrix))

	return Problem{
		Store:        st,
		Formula:      formula,
		Matrix:       matrix,
		Existentials: []term.Ref{e},
	}
}

func TestSolveTrivialExistentialSat(t *testing.T) {
	prob := buildTrivialSat(t)
	d := NewDriver(prob)
	res, err := d.Solve(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Status != StatusSat {
		t.Fatalf("expected SAT, got %v", res.Status)
	}
	model, ok := res.Model[prob.Existentials[0].ID]
	if !ok || !model.Trivial || model.Value.Uint64() != 5 {
		t.Errorf("expected e = 5, got %+v", model)
	}
}

// buildUnsatExistential constructs: exists e . (e == 5) & (e == 6),
// which is unsatisfiable regardless of universals (a pure-existential
// neighbour of scenario S2, which is the pure-universal case).
func buildUnsatExistential(t *testing.T) Problem {
	st := term.NewStore()
	sort := st.BVSort(4)
	e := st.Param(sort, "e")
	five := st.Const(bv.FromUint64(4, 5))
	six := st.Const(bv.FromUint64(4, 6))
	eq5 := st.Eq(st.Copy(e), five)
	eq6 := st.Eq(st.Copy(e), six)
	matrix := st.And(eq5, eq6)
	formula := st.Exists(e, st.Copy(matrix))

	return Problem{
		Store:        st,
		Formula:      formula,
		Matrix:       matrix,
		Existentials: []term.Ref{e},
	}
}

func TestSolveUnsatExistential(t *testing.T) {
	prob := buildUnsatExistential(t)
	d := NewDriver(prob)
	res, err := d.Solve(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Status != StatusUnsat {
		t.Fatalf("expected UNSAT, got %v", res.Status)
	}
}

// buildIdentitySkolem constructs: forall u . exists e . (e == u), the
// textbook EF instance requiring a non-trivial skolem function
// (e depends on u) and at least one CEGIS refinement round (scenario S3).
func buildIdentitySkolem(t *testing.T) Problem {
	st := term.NewStore()
	sort := st.BVSort(3)
	u := st.Param(sort, "u")
	e := st.Param(sort, "e")
	matrix := st.Eq(st.Copy(u), st.Copy(e))
	inner := st.Exists(e, st.Copy(matrix))
	formula := st.Forall(u, inner)

	return Problem{
		Store:        st,
		Formula:      formula,
		Matrix:       matrix,
		Universals:   []term.Ref{u},
		Existentials: []term.Ref{e},
	}
}

func TestSolveDependentSkolemFunction(t *testing.T) {
	prob := buildIdentitySkolem(t)
	e := prob.Existentials[0]

	d := NewDriver(prob, WithMaxRefinements(64))
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	res, err := d.Solve(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Status != StatusSat {
		t.Fatalf("expected SAT (e = u is trivially realizable), got %v", res.Status)
	}
	model := res.Model[e.ID]
	if model.Trivial {
		t.Fatalf("e depends on u and must not be modeled as a trivial constant")
	}
	if d.Stats().Refinements == 0 {
		t.Errorf("expected at least one CEGIS refinement round for a dependent existential")
	}
}

// buildUnsatUniversal constructs: forall u . exists e . false-when-u-is-7,
// i.e. forall u . exists e . NOT(u == 7), which the driver must report
// UNSAT for (e is irrelevant, the matrix can never hold when u = 7).
func buildUnsatUniversal() Problem {
	st := term.NewStore()
	sort := st.BVSort(3)
	u := st.Param(sort, "u")
	e := st.Param(sort, "e")
	seven := st.Const(bv.FromUint64(3, 7))
	matrix := st.Not(st.Eq(st.Copy(u), seven))
	inner := st.Exists(e, st.Copy(matrix))
	formula := st.Forall(u, inner)

	return Problem{
		Store:        st,
		Formula:      formula,
		Matrix:       matrix,
		Universals:   []term.Ref{u},
		Existentials: []term.Ref{e},
	}
}

func TestSolveUnsatUniversal(t *testing.T) {
	prob := buildUnsatUniversal()
	d := NewDriver(prob, WithMaxRefinements(64))
	res, err := d.Solve(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Status != StatusUnsat {
		t.Fatalf("expected UNSAT (u = 7 has no witness), got %v", res.Status)
	}
}

func TestSolveRespectsCancellation(t *testing.T) {
	prob := buildIdentitySkolem(t)
	d := NewDriver(prob)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := d.Solve(ctx)
	if err == nil {
		t.Fatal("expected an error from an already-canceled context")
	}
}

func TestSolveRespectsMaxRefinements(t *testing.T) {
	prob := buildIdentitySkolem(t)

	d := NewDriver(prob, WithMaxRefinements(0))
	d.opts.MaxRefinements = 1
	_, err := d.Solve(context.Background())
	// With at most one refinement permitted this small instance may still
	// resolve to SAT in a single round; only assert the bound is never
	// exceeded, not which outcome results.
	if d.Stats().Refinements > 1 {
		t.Errorf("refinements exceeded configured bound: %d", d.Stats().Refinements)
	}
	_ = err
}

// buildUFSliceIdentity constructs: forall x:BV2 . f(x) = x[0:0], with f
// a declared UF symbol of sort BV2 -> BV1 rather than an existential —
// the UF-only instance of scenario S4, which has no existentials at all
// and so only ever exercises synthesis through a UF's own sample table.
func buildUFSliceIdentity(t *testing.T) Problem {
	st := term.NewStore()
	bv2 := st.BVSort(2)
	bv1 := st.BVSort(1)
	x := st.Param(bv2, "x")
	f := st.UF(st.FunSort(st.TupleSort(bv2), bv1), "f")
	apply := st.Apply(st.Copy(f), st.Args(st.Copy(x)))
	lowBit := st.Slice(st.Copy(x), 0, 0)
	matrix := st.Eq(apply, lowBit)
	formula := st.Forall(x, st.Copy(matrix))

	return Problem{
		Store:      st,
		Formula:    formula,
		Matrix:     matrix,
		Universals: []term.Ref{x},
		UFs:        []term.Ref{f},
	}
}

func TestSolveUFOnlyFormula(t *testing.T) {
	prob := buildUFSliceIdentity(t)
	f := prob.UFs[0]

	d := NewDriver(prob, WithMaxRefinements(64))
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	res, err := d.Solve(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Status != StatusSat {
		t.Fatalf("expected SAT (f = low-bit-extraction is realizable), got %v", res.Status)
	}
	if _, ok := res.Model[f.ID]; !ok {
		t.Fatalf("expected a synthesized model entry for UF %q", prob.Store.Node(f.ID).Name)
	}
}
