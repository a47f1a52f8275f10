// Package ef implements the exists/forall (EF) CEGIS decision procedure
// for quantified bit-vector formulas of the form
//
//	forall u1..un . exists e1..em . matrix(u, e, UFs)
//
// described in sections 2-4 of the design: a two-solver architecture
// (E-solver, F-solver) that alternates between synthesizing a candidate
// model for the existentials and checking it against the universals,
// refining on every counterexample (section 4.7).
package ef

import (
	"github.com/efcore/bvef/internal/bv"
	"github.com/efcore/bvef/internal/term"
)

// Problem is one EF instance: a shared term.Store holding the full
// quantified formula, the ordered universal and existential parameter
// lists (outer to inner, matching Formula's nesting), the UF symbols the
// matrix references, and the quantifier-free Matrix itself.
type Problem struct {
	Store        *term.Store
	Formula      term.Ref
	Matrix       term.Ref
	Universals   []term.Ref
	Existentials []term.Ref
	UFs          []term.Ref
}

// Stats records CEGIS loop activity, the EF Driver's only diagnostics
// surface (section 10.2): refinement rounds, synthesis outcomes, and
// per-phase ground-solver calls.
type Stats struct {
	Refinements      int
	ExistsSolverCalls int
	ForallSolverCalls int
	SynthFallbacks   int // per round, dependent existentials and UFs modeled by the sample ite-chain fallback
	SynthReused      int // per round, dependent existentials and UFs synthesized as a constant function
}

// Status is the three-way outcome of Solve (section 4.7, "Termination").
type Status uint8

const (
	StatusUnknown Status = iota
	StatusSat
	StatusUnsat
)

// Result is the outcome of Solve: a Status and, when Sat, a concrete
// model binding every existential to a value (trivial existentials) or
// to a sampled function table (dependent existentials), per section
// 6.4's model output contract.
type Result struct {
	Status Status
	Model  map[term.NodeID]ExistentialModel
	Stats  Stats
}

// ExistentialModel is the synthesized witness for one existential
// variable: either a single constant (Trivial true) or a sampled
// function of its dependencies (Trivial false), matching the candidate
// model M of section 3.
type ExistentialModel struct {
	Trivial bool
	Value   bv.Value // valid when Trivial
	Deps    []term.Ref
	Samples []Sample // valid when !Trivial
	Default bv.Value // valid when !Trivial: value returned outside all samples
}

// Sample is one observed (dependency-tuple -> output) point of a
// synthesized skolem function, the unit the synthesizer accumulates into
// a concrete model (section 4.6).
type Sample struct {
	Args  bv.Tuple
	Value bv.Value
}
