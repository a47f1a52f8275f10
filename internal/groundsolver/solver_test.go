package groundsolver

import "testing"

func TestUnitPropagationSat(t *testing.T) {
	s := NewSolver()
	a := s.NewVar()
	b := s.NewVar()
	s.AddClause(a)
	s.AddClause(a.Neg(), b)

	if !s.Solve() {
		t.Fatal("expected satisfiable")
	}
	if !s.ValueOf(a.Var()) {
		t.Error("a should be forced true")
	}
	if !s.ValueOf(b.Var()) {
		t.Error("b should be forced true by propagation")
	}
}

func TestConflictingUnitClausesUnsat(t *testing.T) {
	s := NewSolver()
	a := s.NewVar()
	s.AddClause(a)
	s.AddClause(a.Neg())

	if s.Solve() {
		t.Fatal("expected unsatisfiable")
	}
}

func TestBacktrackingFindsModel(t *testing.T) {
	s := NewSolver()
	a := s.NewVar()
	b := s.NewVar()
	c := s.NewVar()
	// (a|b|c) & (!a|!b) & (!b|!c) & (!a|!c): exactly-at-most-one of a,b,c, at least one true.
	s.AddClause(a, b, c)
	s.AddClause(a.Neg(), b.Neg())
	s.AddClause(b.Neg(), c.Neg())
	s.AddClause(a.Neg(), c.Neg())

	if !s.Solve() {
		t.Fatal("expected satisfiable")
	}
	trueCount := 0
	for _, v := range []Lit{a, b, c} {
		if s.ValueOf(v.Var()) {
			trueCount++
		}
	}
	if trueCount != 1 {
		t.Errorf("expected exactly one true literal, got %d", trueCount)
	}
}

func TestUnsatisfiableAllCombinationsExcluded(t *testing.T) {
	s := NewSolver()
	a := s.NewVar()
	b := s.NewVar()
	// Exclude all four assignments of a,b: unsatisfiable.
	s.AddClause(a, b)
	s.AddClause(a, b.Neg())
	s.AddClause(a.Neg(), b)
	s.AddClause(a.Neg(), b.Neg())

	if s.Solve() {
		t.Fatal("expected unsatisfiable")
	}
}

func TestAssumptionsAreTemporary(t *testing.T) {
	s := NewSolver()
	a := s.NewVar()
	b := s.NewVar()
	s.AddClause(a.Neg(), b)

	if s.Solve(a) {
		if !s.ValueOf(b.Var()) {
			t.Error("b should follow from a under the assumption")
		}
	} else {
		t.Fatal("expected satisfiable under assumption a")
	}

	// Without the assumption the solver must still be usable and satisfiable.
	if !s.Solve() {
		t.Fatal("expected satisfiable with no assumptions")
	}
}

func TestIncrementalAddClauseNarrowsModels(t *testing.T) {
	s := NewSolver()
	a := s.NewVar()
	if !s.Solve() {
		t.Fatal("expected satisfiable with no clauses")
	}
	s.AddClause(a)
	if !s.Solve() || !s.ValueOf(a.Var()) {
		t.Error("expected a forced true after adding unit clause")
	}
	s.AddClause(a.Neg())
	if s.Solve() {
		t.Error("expected unsatisfiable after adding contradictory unit clause")
	}
}
