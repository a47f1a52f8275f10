package ef

import "github.com/efcore/bvef/internal/term"

// cloneSort reproduces src's sort id into dst, recursively cloning
// tuple/function structure by shape rather than by id (sort ids are
// only meaningful within the store that interned them). Used whenever a
// symbol (a shared UF, a skolem function) needs to exist with the same
// shape in more than one store.
func cloneSort(src, dst *term.Store, id term.SortID) term.SortID {
	s := src.SortOf(id)
	switch s.Kind {
	case term.SortBV:
		return dst.BVSort(s.Width)
	case term.SortTuple:
		elems := make([]term.SortID, len(s.Elems))
		for i, e := range s.Elems {
			elems[i] = cloneSort(src, dst, e)
		}
		return dst.TupleSort(elems...)
	case term.SortFun:
		domain := cloneSort(src, dst, s.Domain)
		codomain := cloneSort(src, dst, s.Codomain)
		return dst.FunSort(domain, codomain)
	}
	panic("ef: unknown sort kind")
}
