package ef

import (
	"github.com/efcore/bvef/internal/bv"
	"github.com/efcore/bvef/internal/groundsolver"
	"github.com/efcore/bvef/internal/term"
)

// checkResult is the outcome of one F-solver validation round.
type checkResult struct {
	ok      bool // true: no counterexample, candidate holds for all universals
	counter map[term.NodeID]bv.Value
}

// checkCandidate implements the Instantiator of section 4.5
// (instantiate_formula): it builds a fresh F-solver store and
// substitutes every existential's occurrence in the matrix with its
// candidate model (a constant, or an ite-chain over sampled points for
// a dependent existential — the concrete lambda model of section 4.6),
// then asks the ground solver whether the negation of that substituted
// matrix is satisfiable. A SAT answer is a counterexample: a universal
// assignment under which the candidate model fails. UNSAT means the
// candidate holds for every universal assignment.
//
// The F-solver is built fresh every round (unlike the E-solver, which
// accumulates refinements): each round checks an entirely new
// candidate model, so there is nothing to carry over (section 5).
func checkCandidate(prob Problem, candidate map[term.NodeID]ExistentialModel) checkResult {
	st := term.NewStore()
	solver := groundsolver.NewSolver()
	blaster := groundsolver.NewBlaster(st, solver)

	univVar := make(map[term.NodeID]term.Ref)
	getUniv := func(id term.NodeID, sort term.SortID) term.Ref {
		if r, ok := univVar[id]; ok {
			return st.Copy(r)
		}
		r := st.Var(cloneSort(prob.Store, st, sort), "u")
		univVar[id] = r
		return st.Copy(r)
	}

	ufCopy := make(map[term.NodeID]term.Ref)
	for _, uf := range prob.UFs {
		ufCopy[uf.ID] = st.UF(cloneSort(prob.Store, st, prob.Store.SortOfRef(uf)), "uf")
	}

	build := func(n *term.Node, c []term.Ref) term.Ref { return rebuildOp(st, n, c) }

	var leaf func(n *term.Node) (term.Ref, bool)
	leaf = func(n *term.Node) (term.Ref, bool) {
		switch n.Kind {
		case term.KindUF:
			return st.Copy(ufCopy[n.ID]), true
		case term.KindParam:
			r := term.Ref{ID: n.ID}
			if prob.Store.IsForallVar(r) {
				return getUniv(n.ID, n.Sort), true
			}
			model := candidate[n.ID]
			return instantiateExistential(st, prob.Store, model, getUniv), true
		case term.KindApply:
			callee := prob.Store.Node(n.Children[0].ID)
			if callee.Kind != term.KindUF {
				return term.Ref{}, false
			}
			model, ok := candidate[callee.ID]
			if !ok {
				return term.Ref{}, false
			}
			argsNode := prob.Store.Node(n.Children[1].ID)
			argRefs := make([]term.Ref, len(argsNode.Children))
			for i, a := range argsNode.Children {
				argRefs[i] = crossStoreRebuild(prob.Store, a, st, leaf, build)
			}
			return instantiateUFSamples(st, argRefs, model), true
		}
		return term.Ref{}, false
	}

	rebuilt := crossStoreRebuild(prob.Store, prob.Matrix, st, leaf, build)
	blaster.AssertTrue(st.Not(rebuilt))

	if !solver.Solve() {
		return checkResult{ok: true}
	}

	counter := make(map[term.NodeID]bv.Value, len(prob.Universals))
	for _, u := range prob.Universals {
		r, ok := univVar[u.ID]
		if !ok {
			// Universal never occurs in the matrix: any value satisfies it.
			counter[u.ID] = bv.Zero(widthOf(prob.Store, u))
			continue
		}
		counter[u.ID] = blaster.ValueOf(r, widthOf(prob.Store, u))
	}
	return checkResult{ok: false, counter: counter}
}

// instantiateExistential builds the concrete-model substitution for one
// existential occurrence: a plain constant for a trivial existential, or
// a chain of ite(args == sample_i, value_i, ...) terminating in the
// model's default value for a dependent one (section 4.6,
// mk_concrete_lambda_model).
func instantiateExistential(st, srcStore *term.Store, model ExistentialModel, getUniv func(term.NodeID, term.SortID) term.Ref) term.Ref {
	if model.Trivial {
		return st.Const(model.Value)
	}
	acc := st.Const(model.Default)
	for _, s := range model.Samples {
		cond := st.Const(bv.FromUint64(1, 1))
		for i, dep := range model.Deps {
			eq := st.Eq(getUniv(dep.ID, srcStore.SortOfRef(dep)), st.Const(s.Args[i]))
			cond = st.And(cond, eq)
		}
		acc = st.Cond(cond, st.Const(s.Value), acc)
	}
	return acc
}

// instantiateUFSamples builds the concrete-model substitution for one UF
// application site, per section 4.5's "UF u: if M(u) = UF(v,_), replace
// by v; else keep u" read together with section 4.6's concrete lambda
// model: a plain constant if the UF was synthesized as a constant
// function, or an ite-chain over its sampled (argument tuple -> output)
// points terminating in the model's default value otherwise. Unlike
// instantiateExistential, the arguments are already rebuilt refs in st
// (the individual elements of the call's Args tuple), since a UF's
// arguments may be arbitrary subexpressions rather than bare universal
// variables.
func instantiateUFSamples(st *term.Store, argRefs []term.Ref, model ExistentialModel) term.Ref {
	if model.Trivial {
		return st.Const(model.Value)
	}
	acc := st.Const(model.Default)
	for _, s := range model.Samples {
		cond := st.Const(bv.FromUint64(1, 1))
		for i, arg := range argRefs {
			eq := st.Eq(arg, st.Const(s.Args[i]))
			cond = st.And(cond, eq)
		}
		acc = st.Cond(cond, st.Const(s.Value), acc)
	}
	return acc
}
