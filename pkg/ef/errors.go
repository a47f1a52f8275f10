package ef

import "errors"

// Sentinel errors returned by the EF driver. Callers distinguish them
// with errors.Is; internal call sites wrap them with fmt.Errorf("...: %w", ...)
// to attach the state-machine context in which they occurred (section 7).
var (
	// ErrInvalidRefinement is returned when a refinement built from the
	// forall-solver's current counterexample rebuilds to the constant
	// true, so there is nothing to assert into the exists-solver.
	ErrInvalidRefinement = errors.New("ef: invalid refinement")

	// ErrResourceExhausted is returned when the configured bound on
	// refinement rounds (Options.MaxRefinements) is hit before the driver
	// reaches SAT or UNSAT.
	ErrResourceExhausted = errors.New("ef: resource bound exhausted")

	// ErrCanceled is returned when the context passed to Solve is
	// canceled or its deadline expires between suspension points.
	ErrCanceled = errors.New("ef: canceled")

	// ErrMalformedFormula is returned by Solve when the Problem's Matrix
	// still contains a Forall or Exists node (see validateProblem). Width
	// mismatches are not reported through it: the term store panics on
	// them when the term is built.
	ErrMalformedFormula = errors.New("ef: malformed formula")
)
