package ef

import (
	"context"
	"fmt"

	"github.com/efcore/bvef/internal/bv"
	"github.com/efcore/bvef/internal/groundsolver"
	"github.com/efcore/bvef/internal/term"
)

// Driver runs the EF Driver state machine of section 4.7 over one
// Problem: repeatedly synthesizing a candidate model for the
// existentials from the E-solver and checking it against the F-solver,
// refining the E-solver with every counterexample until either solver
// settles the instance or a configured resource bound is hit.
type Driver struct {
	prob  Problem
	opts  Options
	deps  map[term.NodeID][]term.Ref
	stats Stats

	ex             *exSolverState
	exSolver       *groundsolver.Solver
	exBlaster      *groundsolver.Blaster
	pendingApply   map[term.NodeID]term.Ref // this-round refinement's Apply nodes, read back next round
	pendingUFs     []ufOccurrence           // this-round refinement's UF application sites, read back next round
	pendingCounter map[term.NodeID]bv.Value // the counterexample that produced pendingApply/pendingUFs
}

// NewDriver prepares a Driver for prob. Dependency analysis (section
// 4.2) runs immediately since it only inspects the formula's quantifier
// structure; the ground solvers are created afresh by every Solve
// call.
func NewDriver(prob Problem, opts ...Option) *Driver {
	return &Driver{
		prob: prob,
		opts: buildOptions(opts...),
		deps: computeDependencies(prob),
	}
}

func (d *Driver) trace(format string, args ...interface{}) {
	if d.opts.Trace == nil {
		return
	}
	fmt.Fprintf(d.opts.Trace, format+"\n", args...)
}

// Solve runs the CEGIS loop to completion, termination bound, or
// cancellation (section 4.7, "Termination" and "Cancellation"). It is
// not safe to call Solve concurrently on the same Driver, matching the
// single-threaded cooperative concurrency model of section 5 — run
// independent Problems concurrently via pkg/ef/batch instead.
func (d *Driver) Solve(ctx context.Context) (Result, error) {
	if err := validateProblem(d.prob); err != nil {
		return Result{Status: StatusUnknown, Stats: d.stats}, err
	}

	d.ex = newExSolverState(d.prob, d.deps)
	d.exSolver = groundsolver.NewSolver()
	d.exBlaster = groundsolver.NewBlaster(d.ex.store, d.exSolver)

	samples := make(map[term.NodeID][]Sample)

	for {
		select {
		case <-ctx.Done():
			return Result{Status: StatusUnknown, Stats: d.stats}, fmt.Errorf("%w: %v", ErrCanceled, ctx.Err())
		default:
		}

		if d.opts.MaxRefinements > 0 && d.stats.Refinements >= d.opts.MaxRefinements {
			return Result{Status: StatusUnknown, Stats: d.stats}, ErrResourceExhausted
		}

		d.stats.ExistsSolverCalls++
		d.trace("exists-solver: call %d", d.stats.ExistsSolverCalls)
		if !d.exSolver.Solve() {
			d.trace("exists-solver: unsat, no model satisfies all accumulated counterexamples")
			return Result{Status: StatusUnsat, Stats: d.stats}, nil
		}

		d.harvestSamples(samples)
		trivialVals := d.extractTrivialVals()
		candidate := d.synthesize(trivialVals, samples)

		d.stats.ForallSolverCalls++
		d.trace("forall-solver: call %d", d.stats.ForallSolverCalls)
		check := checkCandidate(d.prob, candidate)
		if check.ok {
			d.trace("forall-solver: unsat, candidate holds for every universal assignment")
			return Result{Status: StatusSat, Model: candidate, Stats: d.stats}, nil
		}

		round := d.stats.Refinements + 1
		d.trace("forall-solver: sat, refinement round %d", round)
		rebuilt, applied, ufApplies, ok := buildRefinement(d.prob, d.ex, check.counter, d.deps)
		if !ok {
			return Result{Status: StatusUnknown, Stats: d.stats}, fmt.Errorf("refinement round %d: %w", round, ErrInvalidRefinement)
		}
		d.exBlaster.AssertTrue(rebuilt)
		d.stats.Refinements++
		d.pendingApply = applied
		d.pendingUFs = ufApplies
		d.pendingCounter = check.counter
	}
}

// harvestSamples reads back, from the just-solved E-solver model, the
// output each dependent existential's skolem function produced for the
// previous round's counterexample, and folds it into the accumulated
// sample set (section 4.6). It does the same for every UF application
// site encountered while building that refinement, since a UF's model is
// synthesized from observed samples exactly like a dependent
// existential's.
func (d *Driver) harvestSamples(samples map[term.NodeID][]Sample) {
	for exID, applyRef := range d.pendingApply {
		deps := d.deps[exID]
		args := make(bv.Tuple, len(deps))
		for i, dep := range deps {
			args[i] = d.pendingCounter[dep.ID]
		}
		width := widthOf(d.prob.Store, findRef(d.prob.Existentials, exID))
		val := d.exBlaster.ValueOf(applyRef, width)
		samples[exID] = upsertSample(samples[exID], args, val)
	}
	for _, occ := range d.pendingUFs {
		uf := findRef(d.prob.UFs, occ.uf)
		args := make(bv.Tuple, len(occ.args))
		for i, a := range occ.args {
			args[i] = d.exBlaster.ValueOf(a, widthOf(d.ex.store, a))
		}
		val := d.exBlaster.ValueOf(occ.apply, ufCodomainWidth(d.prob.Store, uf))
		samples[occ.uf] = upsertSample(samples[occ.uf], args, val)
	}
	d.pendingApply = nil
	d.pendingUFs = nil
	d.pendingCounter = nil
}

// extractTrivialVals reads the current value of every dependency-free
// existential's free variable from the E-solver's model.
func (d *Driver) extractTrivialVals() map[term.NodeID]bv.Value {
	vals := make(map[term.NodeID]bv.Value, len(d.ex.trivVar))
	for exID, r := range d.ex.trivVar {
		width := widthOf(d.prob.Store, findRef(d.prob.Existentials, exID))
		vals[exID] = d.exBlaster.ValueOf(r, width)
	}
	return vals
}

// Stats returns the driver's accumulated diagnostics.
func (d *Driver) Stats() Stats { return d.stats }

func findRef(refs []term.Ref, id term.NodeID) term.Ref {
	for _, r := range refs {
		if r.ID == id {
			return r
		}
	}
	panic("ef: node id not found among tracked refs")
}
