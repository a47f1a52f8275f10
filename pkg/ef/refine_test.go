package ef

import (
	"testing"

	"github.com/efcore/bvef/internal/bv"
	"github.com/efcore/bvef/internal/term"
)

// TestBuildRefinementRejectsTrivialTrue exercises section 4.4 step 6
// (scenario S5): a refinement that rebuilds to the bare constant true is
// not a real constraint on the E-solver and must be rejected rather than
// silently asserted.
func TestBuildRefinementRejectsTrivialTrue(t *testing.T) {
	st := term.NewStore()
	matrix := st.Const(bv.FromUint64(1, 1))
	prob := Problem{Store: st, Matrix: matrix}
	deps := computeDependencies(prob)
	ex := newExSolverState(prob, deps)

	_, _, _, ok := buildRefinement(prob, ex, map[term.NodeID]bv.Value{}, deps)
	if ok {
		t.Fatal("expected buildRefinement to reject a trivially-true refinement")
	}
}

// TestBuildRefinementAcceptsGenuineConstraint is the companion positive
// case: a counterexample that rebuilds to a real (non-tautological)
// constraint is accepted.
func TestBuildRefinementAcceptsGenuineConstraint(t *testing.T) {
	prob := buildIdentitySkolem(t)
	deps := computeDependencies(prob)
	ex := newExSolverState(prob, deps)

	u := prob.Universals[0]
	counter := map[term.NodeID]bv.Value{u.ID: bv.FromUint64(3, 2)}
	_, _, _, ok := buildRefinement(prob, ex, counter, deps)
	if !ok {
		t.Fatal("expected buildRefinement to accept a genuine counterexample")
	}
}
