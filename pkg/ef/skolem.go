package ef

import "github.com/efcore/bvef/internal/term"

// exSolverState holds the E-solver's persistent store and the identity
// mapping every round's refinement rebuild must agree on: one free
// variable per trivial existential, one skolem UF symbol per dependent
// existential, and one shared copy of every UF symbol the matrix
// references. All three are allocated once per Solve call and reused
// by every refinement round (section 4.3, "Skolemizer").
type exSolverState struct {
	store   *term.Store
	trivVar map[term.NodeID]term.Ref
	skolem  map[term.NodeID]term.Ref
	ufCopy  map[term.NodeID]term.Ref
}

// newExSolverState allocates the E-solver's persistent symbols: a fresh
// BV variable for every existential with no universal dependencies, and
// a fresh UF symbol sk_e : deps(e) -> sort(e) for every dependent one,
// per the Skolemizer of section 4.3.
func newExSolverState(prob Problem, deps map[term.NodeID][]term.Ref) *exSolverState {
	st := term.NewStore()
	s := &exSolverState{
		store:   st,
		trivVar: make(map[term.NodeID]term.Ref),
		skolem:  make(map[term.NodeID]term.Ref),
		ufCopy:  make(map[term.NodeID]term.Ref),
	}
	for _, e := range prob.Existentials {
		sort := prob.Store.SortOfRef(e)
		d := deps[e.ID]
		if len(d) == 0 {
			s.trivVar[e.ID] = st.Var(cloneSort(prob.Store, st, sort), "e")
			continue
		}
		elemSorts := make([]term.SortID, len(d))
		for i, dep := range d {
			elemSorts[i] = cloneSort(prob.Store, st, prob.Store.SortOfRef(dep))
		}
		domain := st.TupleSort(elemSorts...)
		fnSort := st.FunSort(domain, cloneSort(prob.Store, st, sort))
		s.skolem[e.ID] = st.UF(fnSort, "sk")
	}
	for _, uf := range prob.UFs {
		s.ufCopy[uf.ID] = st.UF(cloneSort(prob.Store, st, prob.Store.SortOfRef(uf)), "uf")
	}
	return s
}

// widthOf is a small convenience the synthesizer and instantiator use
// to size default values and sample tuples.
func widthOf(st *term.Store, r term.Ref) uint32 {
	return st.Width(st.SortOfRef(r))
}

// ufCodomainWidth returns the bit width a UF symbol produces, used to
// size its synthesized model's default value the same way widthOf sizes
// an existential's.
func ufCodomainWidth(st *term.Store, uf term.Ref) uint32 {
	return st.Width(st.SortOf(st.SortOfRef(uf)).Codomain)
}
