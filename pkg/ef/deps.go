package ef

import (
	"fmt"

	"github.com/efcore/bvef/internal/term"
)

// computeDependencies implements the Dependency Analyzer of section 4.2
// (compute_edeps): for each existential parameter, the ordered list of
// universal parameters open above it in the quantifier nesting. An
// existential with an empty list is "trivial" and is modeled as a plain
// free variable rather than a skolem function (section 3, "Dependency
// map D").
func computeDependencies(prob Problem) map[term.NodeID][]term.Ref {
	deps := make(map[term.NodeID][]term.Ref, len(prob.Existentials))
	term.WalkDeps(prob.Store, prob.Formula, term.DepVisitor{
		VisitParam: func(p term.Ref, open []term.Ref) {
			if prob.Store.IsExistsVar(p) {
				if _, ok := deps[p.ID]; !ok {
					deps[p.ID] = append([]term.Ref(nil), open...)
				}
			}
		},
	})
	// Existentials never reached by the walk (not bound by an Exists in
	// Formula) still get an entry so downstream lookups don't have to
	// special-case absence.
	for _, e := range prob.Existentials {
		if _, ok := deps[e.ID]; !ok {
			deps[e.ID] = nil
		}
	}
	return deps
}

// validateProblem checks the one structural precondition the Driver
// relies on: Matrix is quantifier-free (section 3, "Formula = forall
// u . exists e . Matrix", Matrix itself never rebinds). A formula that
// violates this was built incorrectly upstream (a malformed prenex
// normal form), and every downstream rebuild (Refinement Builder,
// Instantiator) would panic in rebuildOp on the nested binder.
func validateProblem(prob Problem) error {
	visited := make(map[term.NodeID]bool)
	stack := []term.Ref{prob.Matrix}
	for len(stack) > 0 {
		r := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if visited[r.ID] {
			continue
		}
		visited[r.ID] = true
		n := prob.Store.Node(r.ID)
		if n.Kind == term.KindForall || n.Kind == term.KindExists {
			return fmt.Errorf("%w: matrix contains a nested quantifier", ErrMalformedFormula)
		}
		stack = append(stack, n.Children...)
	}
	return nil
}
