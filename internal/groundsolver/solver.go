// Package groundsolver implements the opaque incremental QF_BV decision
// procedure that each inner solver (E-solver, F-solver) of the EF
// procedure runs against, realizing the Ground Solver Interface of
// section 6.1. Bit-vector formulas are bit-blasted (bitblast.go) into
// CNF over a boolean DPLL core (this file), structured after the
// trail/decision-level/Stats shape of a conventional CDCL solver.
package groundsolver

import "fmt"

// Lit is a DIMACS-style literal: a positive value names a variable, its
// negation names the complemented literal. Variable 0 is never used, so
// literal values are never zero.
type Lit int32

// Var returns the underlying variable index of a literal.
func (l Lit) Var() int32 { return int32(abs32(int32(l))) }

// Sign reports whether l is the negated form of its variable.
func (l Lit) Sign() bool { return l < 0 }

// Neg returns the complement of l.
func (l Lit) Neg() Lit { return -l }

func abs32(x int32) int32 {
	if x < 0 {
		return -x
	}
	return x
}

// Clause is a disjunction of literals.
type Clause []Lit

// Stats records solver activity, mirroring the counters a conventional
// CDCL core exposes for diagnostics (section 10.2 of the design notes).
type Stats struct {
	Decisions    int64
	Propagations int64
	Conflicts    int64
	Vars         int64
	Clauses      int64
}

type lbool int8

const (
	lUnknown lbool = 0
	lTrue    lbool = 1
	lFalse   lbool = -1
)

// decLevel records one decision point on the search stack: the decided
// variable, the phase currently assigned to it, and whether the opposite
// phase has already been tried at this level (named after the reference
// CDCL solver's per-level trail bookkeeping).
type decLevel struct {
	v           int32
	phase       bool
	triedBoth   bool
	trailMark   int
}

// Solver is a DPLL-style boolean satisfiability core: unit propagation
// to a fixpoint, chronological backtracking with phase-flip-then-unwind
// on conflict. It is not a full first-UIP CDCL solver (no learned
// clauses), which keeps it a modest, auditable implementation of the
// Ground Solver Interface rather than a production SAT engine.
type Solver struct {
	clauses []Clause
	assigns []lbool // 1-based by variable
	trail   []Lit
	stack   []decLevel
	Stats   Stats
}

// NewSolver creates an empty solver with no variables or clauses.
func NewSolver() *Solver {
	return &Solver{
		assigns: []lbool{lUnknown}, // index 0 unused
	}
}

// NewVar allocates a fresh boolean variable and returns its positive literal.
func (s *Solver) NewVar() Lit {
	s.assigns = append(s.assigns, lUnknown)
	s.Stats.Vars++
	return Lit(len(s.assigns) - 1)
}

// NumVars reports how many variables have been allocated.
func (s *Solver) NumVars() int { return len(s.assigns) - 1 }

// AddClause asserts a permanent clause. A nil or empty clause makes the
// solver immediately unsatisfiable.
func (s *Solver) AddClause(lits ...Lit) {
	cp := append(Clause(nil), lits...)
	s.clauses = append(s.clauses, cp)
	s.Stats.Clauses++
}

func (s *Solver) value(l Lit) lbool {
	v := s.assigns[l.Var()]
	if l.Sign() {
		return -v
	}
	return v
}

func (s *Solver) assign(l Lit) {
	if l.Sign() {
		s.assigns[l.Var()] = lFalse
	} else {
		s.assigns[l.Var()] = lTrue
	}
	s.trail = append(s.trail, l)
}

func (s *Solver) unassign(v int32) {
	s.assigns[v] = lUnknown
}

// propagate runs unit propagation to a fixpoint over all clauses,
// returning the index of a falsified clause, or -1 if none.
func (s *Solver) propagate() int {
	for {
		changed := false
		for ci, c := range s.clauses {
			unassignedCount := 0
			satisfied := false
			var unit Lit
			for _, l := range c {
				switch s.value(l) {
				case lTrue:
					satisfied = true
				case lUnknown:
					unassignedCount++
					unit = l
				}
			}
			if satisfied {
				continue
			}
			if unassignedCount == 0 {
				return ci // every literal false: conflict
			}
			if unassignedCount == 1 {
				s.assign(unit)
				s.Stats.Propagations++
				changed = true
			}
		}
		if !changed {
			return -1
		}
	}
}

// pickBranchVar returns the lowest-indexed unassigned variable, or 0 if
// every variable is assigned.
func (s *Solver) pickBranchVar() int32 {
	for v := int32(1); v < int32(len(s.assigns)); v++ {
		if s.assigns[v] == lUnknown {
			return v
		}
	}
	return 0
}

// Solve decides satisfiability of the permanent clause set under the
// given assumption literals (temporary unit clauses valid for this call
// only, per the incremental assert/assume/check_sat protocol of section
// 6.1). Returns true and leaves a model retrievable via Model/ValueOf if
// satisfiable; returns false otherwise, after undoing all assignments.
func (s *Solver) Solve(assumptions ...Lit) bool {
	s.trail = s.trail[:0]
	s.stack = s.stack[:0]
	for v := range s.assigns {
		s.assigns[v] = lUnknown
	}

	for _, a := range assumptions {
		if s.value(a) == lFalse {
			s.undoAll()
			return false
		}
		if s.value(a) == lUnknown {
			s.assign(a)
		}
	}
	if conflict := s.propagate(); conflict >= 0 {
		s.undoAll()
		return false
	}

	for {
		v := s.pickBranchVar()
		if v == 0 {
			return true // every variable assigned, no conflict: SAT
		}
		s.Stats.Decisions++
		mark := len(s.trail)
		s.assign(Lit(v))
		s.stack = append(s.stack, decLevel{v: v, phase: true, trailMark: mark})

		for {
			conflict := s.propagate()
			if conflict < 0 {
				break
			}
			s.Stats.Conflicts++
			if !s.backtrack() {
				s.undoAll()
				return false
			}
		}
	}
}

// backtrack flips the most recent decision that hasn't tried both
// phases yet, undoing assignments made since. Returns false when the
// search stack is exhausted (UNSAT).
func (s *Solver) backtrack() bool {
	for len(s.stack) > 0 {
		top := &s.stack[len(s.stack)-1]
		s.undoFrom(top.trailMark)
		if !top.triedBoth {
			top.triedBoth = true
			top.phase = !top.phase
			lit := Lit(top.v)
			if !top.phase {
				lit = lit.Neg()
			}
			s.assign(lit)
			return true
		}
		s.stack = s.stack[:len(s.stack)-1]
	}
	return false
}

func (s *Solver) undoFrom(mark int) {
	for i := len(s.trail) - 1; i >= mark; i-- {
		s.unassign(s.trail[i].Var())
	}
	s.trail = s.trail[:mark]
}

func (s *Solver) undoAll() {
	s.undoFrom(0)
	s.stack = s.stack[:0]
}

// Model returns the last satisfying assignment as a slice indexed by
// variable (index 0 unused). Only meaningful immediately after a Solve
// call that returned true.
func (s *Solver) Model() []bool {
	m := make([]bool, len(s.assigns))
	for v, val := range s.assigns {
		m[v] = val == lTrue
	}
	return m
}

// ValueOf reports the boolean value assigned to variable v in the last
// model.
func (s *Solver) ValueOf(v int32) bool {
	return s.assigns[v] == lTrue
}

func (c Clause) String() string {
	return fmt.Sprintf("%v", []Lit(c))
}
