package ef

import (
	"github.com/efcore/bvef/internal/bv"
	"github.com/efcore/bvef/internal/term"
)

// buildRefinement implements the Refinement Builder of section 4.4
// (build_refinement / refine_exists_solver): given a concrete
// counterexample assignment to the universals, it rebuilds the matrix
// into the E-solver's store with every universal replaced by its
// counterexample constant and every existential replaced either by its
// persistent free variable (trivial) or by an application of its
// skolem function to the (now-constant) dependency tuple (dependent).
// The rebuilt formula, which must hold for this counterexample, is
// returned for the driver to assert into the E-solver.
//
// It returns, for every dependent existential whose parameter actually
// occurs in the matrix, the Apply node built for it this round, so the
// driver can later read back the skolem function's output at these
// argument values once the E-solver has been re-solved (section 4.6,
// "synthesis accumulates one sample per refinement round"). It returns
// the same kind of occurrence record for every UF application site in
// the matrix, since a UF's model is synthesized from its observed
// (argument tuple -> output) samples exactly like a dependent
// existential's.
//
// The fourth return value reports whether the refinement is valid per
// section 4.4 step 6: a counterexample witness must be a genuine
// constraint, never the trivial width-1 constant true, which would mean
// the matrix itself reduced to a tautology under this counterexample and
// nothing remains to refine the E-solver with.
func buildRefinement(
	prob Problem,
	ex *exSolverState,
	counter map[term.NodeID]bv.Value,
	deps map[term.NodeID][]term.Ref,
) (term.Ref, map[term.NodeID]term.Ref, []ufOccurrence, bool) {
	applied := make(map[term.NodeID]term.Ref)
	var ufApplies []ufOccurrence

	leaf := func(n *term.Node) (term.Ref, bool) {
		switch n.Kind {
		case term.KindUF:
			return ex.store.Copy(ex.ufCopy[n.ID]), true
		case term.KindParam:
			r := term.Ref{ID: n.ID}
			if prob.Store.IsForallVar(r) {
				v := counter[n.ID]
				return ex.store.Const(v), true
			}
			// existential parameter
			d := deps[n.ID]
			if len(d) == 0 {
				return ex.store.Copy(ex.trivVar[n.ID]), true
			}
			if applyRef, ok := applied[n.ID]; ok {
				return ex.store.Copy(applyRef), true
			}
			argRefs := make([]term.Ref, len(d))
			for i, dep := range d {
				argRefs[i] = ex.store.Const(counter[dep.ID])
			}
			args := ex.store.Args(argRefs...)
			apply := ex.store.Apply(ex.store.Copy(ex.skolem[n.ID]), args)
			applied[n.ID] = apply
			return ex.store.Copy(apply), true
		}
		return term.Ref{}, false
	}

	build := func(n *term.Node, c []term.Ref) term.Ref {
		r := rebuildOp(ex.store, n, c)
		if n.Kind == term.KindApply {
			callee := prob.Store.Node(n.Children[0].ID)
			if callee.Kind == term.KindUF {
				args := append([]term.Ref(nil), ex.store.Node(c[1].ID).Children...)
				ufApplies = append(ufApplies, ufOccurrence{uf: callee.ID, args: args, apply: r})
			}
		}
		return r
	}

	rebuilt := crossStoreRebuild(prob.Store, prob.Matrix, ex.store, leaf, build)
	if isTrivialTrue(ex.store, rebuilt) {
		return term.Ref{}, nil, nil, false
	}
	return rebuilt, applied, ufApplies, true
}

// ufOccurrence records one application site of a UF symbol encountered
// while rebuilding a refinement round: its (now-constant) argument refs
// and the Apply node built for it, so the driver can read back the
// UF's output there as a synthesis sample.
type ufOccurrence struct {
	uf    term.NodeID
	args  []term.Ref
	apply term.Ref
}

// isTrivialTrue reports whether r is the constant, width-1 value true —
// the counterexample-builder must reject a refinement this degenerate
// per section 4.4 step 6.
func isTrivialTrue(st *term.Store, r term.Ref) bool {
	n := st.Node(r.ID)
	if n.Kind != term.KindConst {
		return false
	}
	v := n.Value
	if r.Neg {
		v = v.Not()
	}
	return v.Width() == 1 && v.Uint64() == 1
}
