package sexpr

import (
	"fmt"

	"github.com/efcore/bvef/internal/bv"
	"github.com/efcore/bvef/internal/term"
	"github.com/efcore/bvef/pkg/ef"
)

// Builder incrementally turns a parsed SMT-LIB2-subset script into an
// ef.Problem. Top-level declare-const symbols are treated as outermost
// existentials (the conventional reading of a free query variable in an
// EF benchmark); declare-fun introduces an uninterpreted function
// symbol; a single top-level (assert (forall (...) (exists (...)
// matrix))) supplies the quantifier prefix and matrix. Multiple
// top-level asserts are conjoined.
type Builder struct {
	store        *term.Store
	scope        map[string]term.Ref
	scopeSort    map[string]term.SortID
	existentials []term.Ref
	universals   []term.Ref
	ufs          []term.Ref
	matrixParts  []term.Ref
}

// NewBuilder creates an empty Builder over a fresh term.Store.
func NewBuilder() *Builder {
	return &Builder{
		store:     term.NewStore(),
		scope:     make(map[string]term.Ref),
		scopeSort: make(map[string]term.SortID),
	}
}

// Process consumes every top-level form produced by Parse.
func (b *Builder) Process(forms []Expr) error {
	for _, f := range forms {
		if err := b.processForm(f); err != nil {
			return err
		}
	}
	return nil
}

func (b *Builder) processForm(f Expr) error {
	if f.IsAtom() || len(f.List) == 0 {
		return fmt.Errorf("sexpr: expected a top-level form, got %s", f)
	}
	head := f.List[0].Atom
	switch head {
	case "declare-const":
		name := f.List[1].Atom
		width, err := ParseBVSort(f.List[2])
		if err != nil {
			return err
		}
		sort := b.store.BVSort(width)
		v := b.store.Param(sort, name)
		b.scope[name] = v
		b.scopeSort[name] = sort
		b.existentials = append(b.existentials, v)
		return nil
	case "declare-fun":
		name := f.List[1].Atom
		var domain []term.SortID
		for _, a := range f.List[2].List {
			w, err := ParseBVSort(a)
			if err != nil {
				return err
			}
			domain = append(domain, b.store.BVSort(w))
		}
		codomainW, err := ParseBVSort(f.List[3])
		if err != nil {
			return err
		}
		fnSort := b.store.FunSort(b.store.TupleSort(domain...), b.store.BVSort(codomainW))
		uf := b.store.UF(fnSort, name)
		b.scope[name] = uf
		b.ufs = append(b.ufs, uf)
		return nil
	case "assert":
		r, err := b.expr(f.List[1])
		if err != nil {
			return err
		}
		b.matrixParts = append(b.matrixParts, r)
		return nil
	default:
		return fmt.Errorf("sexpr: unsupported top-level form %q", head)
	}
}

// expr translates one term-level S-expression into a term.Ref, expecting
// (forall ...)/(exists ...) only at the outermost assert position (they
// push their bound variables into scope for the remainder of the parse).
func (b *Builder) expr(e Expr) (term.Ref, error) {
	if e.IsAtom() {
		return b.atom(e.Atom)
	}
	head := e.List[0].Atom
	switch head {
	case "forall", "exists":
		return b.quantifier(head, e)
	case "and":
		return b.chain(e.List[1:], b.store.And)
	case "or":
		return b.chain(e.List[1:], b.store.Or)
	case "not":
		c, err := b.expr(e.List[1])
		if err != nil {
			return term.Ref{}, err
		}
		return b.store.Not(c), nil
	case "bvand":
		return b.binary(e, b.store.And)
	case "bvor":
		return b.binary(e, b.store.Or)
	case "bvxor":
		return b.binary(e, b.store.Xor)
	case "bvadd":
		return b.binary(e, b.store.Add)
	case "bvmul":
		return b.binary(e, b.store.Mul)
	case "bvudiv":
		return b.binary(e, b.store.Udiv)
	case "bvurem":
		return b.binary(e, b.store.Urem)
	case "bvshl":
		return b.binary(e, b.store.Sll)
	case "bvlshr":
		return b.binary(e, b.store.Srl)
	case "bvult":
		return b.binary(e, b.store.Ult)
	case "bvule":
		return b.binary(e, b.store.Ulte)
	case "=":
		return b.binary(e, b.store.Eq)
	case "bvnot":
		c, err := b.expr(e.List[1])
		if err != nil {
			return term.Ref{}, err
		}
		return b.store.Not(c), nil
	case "bvneg":
		c, err := b.expr(e.List[1])
		if err != nil {
			return term.Ref{}, err
		}
		return b.store.Neg(c), nil
	case "ite":
		cond, err := b.expr(e.List[1])
		if err != nil {
			return term.Ref{}, err
		}
		thn, err := b.expr(e.List[2])
		if err != nil {
			return term.Ref{}, err
		}
		els, err := b.expr(e.List[3])
		if err != nil {
			return term.Ref{}, err
		}
		return b.store.Cond(cond, thn, els), nil
	default:
		if len(e.List) >= 1 && e.List[0].IsAtom() && e.List[0].Atom == "_" {
			return term.Ref{}, fmt.Errorf("sexpr: unexpected sort expression in term position: %s", e)
		}
		// Treat as a UF application: (f a1 a2 ...).
		fn, ok := b.scope[head]
		if !ok {
			return term.Ref{}, fmt.Errorf("sexpr: unknown symbol %q", head)
		}
		args := make([]term.Ref, len(e.List)-1)
		for i, a := range e.List[1:] {
			r, err := b.expr(a)
			if err != nil {
				return term.Ref{}, err
			}
			args[i] = r
		}
		return b.store.Apply(b.store.Copy(fn), b.store.Args(args...)), nil
	}
}

func (b *Builder) chain(args []Expr, op func(a, c term.Ref) term.Ref) (term.Ref, error) {
	if len(args) == 0 {
		return term.Ref{}, fmt.Errorf("sexpr: and/or require at least one operand")
	}
	acc, err := b.expr(args[0])
	if err != nil {
		return term.Ref{}, err
	}
	for _, a := range args[1:] {
		r, err := b.expr(a)
		if err != nil {
			return term.Ref{}, err
		}
		acc = op(acc, r)
	}
	return acc, nil
}

func (b *Builder) binary(e Expr, op func(a, c term.Ref) term.Ref) (term.Ref, error) {
	if len(e.List) != 3 {
		return term.Ref{}, fmt.Errorf("sexpr: %s expects exactly 2 operands", e.List[0].Atom)
	}
	a, err := b.expr(e.List[1])
	if err != nil {
		return term.Ref{}, err
	}
	c, err := b.expr(e.List[2])
	if err != nil {
		return term.Ref{}, err
	}
	return op(a, c), nil
}

func (b *Builder) atom(name string) (term.Ref, error) {
	if r, ok := b.scope[name]; ok {
		return b.store.Copy(r), nil
	}
	if v, ok := parseBVLiteral(name); ok {
		return b.store.Const(v), nil
	}
	return term.Ref{}, fmt.Errorf("sexpr: unbound symbol %q", name)
}

func (b *Builder) quantifier(kind string, e Expr) (term.Ref, error) {
	bindings := e.List[1].List
	params := make([]term.Ref, len(bindings))
	for i, binding := range bindings {
		name := binding.List[0].Atom
		width, err := ParseBVSort(binding.List[1])
		if err != nil {
			return term.Ref{}, err
		}
		sort := b.store.BVSort(width)
		p := b.store.Param(sort, name)
		b.scope[name] = p
		params[i] = p
		if kind == "forall" {
			b.universals = append(b.universals, p)
		} else {
			b.existentials = append(b.existentials, p)
		}
	}

	body, err := b.expr(e.List[2])
	if err != nil {
		return term.Ref{}, err
	}
	if kind == "forall" && len(bindings) == 1 {
		return b.store.Forall(params[0], body), nil
	}
	if kind == "exists" && len(bindings) == 1 {
		return b.store.Exists(params[0], body), nil
	}
	// Multi-variable binders desugar to nested single-variable quantifiers.
	acc := body
	for i := len(params) - 1; i >= 0; i-- {
		if kind == "forall" {
			acc = b.store.Forall(params[i], acc)
		} else {
			acc = b.store.Exists(params[i], acc)
		}
	}
	return acc, nil
}

// Problem assembles the parsed script into an ef.Problem: if any asserts
// introduced quantifiers, Formula is the (conjoined) quantified formula
// and Matrix is what remains after stripping Formula's leading chain of
// Forall/Exists binders; otherwise the whole conjunction is both, a
// quantifier-free instance over pure existentials. Only a leading chain
// is stripped: when several asserts are conjoined, the conjunction heads
// Formula, so quantifiers inside it stay in Matrix (and Solve rejects
// such a Problem with ef.ErrMalformedFormula).
func (b *Builder) Problem() (ef.Problem, error) {
	if len(b.matrixParts) == 0 {
		return ef.Problem{}, fmt.Errorf("sexpr: no assertions in script")
	}
	formula := b.matrixParts[0]
	for _, p := range b.matrixParts[1:] {
		formula = b.store.And(formula, p)
	}
	matrix := stripQuantifiers(b.store, formula)
	return ef.Problem{
		Store:        b.store,
		Formula:      formula,
		Matrix:       matrix,
		Universals:   b.universals,
		Existentials: b.existentials,
		UFs:          b.ufs,
	}, nil
}

func stripQuantifiers(st *term.Store, r term.Ref) term.Ref {
	n := st.Node(r.ID)
	for n.Kind == term.KindForall || n.Kind == term.KindExists {
		r = n.Children[1]
		n = st.Node(r.ID)
	}
	return r
}

func parseBVLiteral(tok string) (bv.Value, bool) {
	if len(tok) > 2 && tok[0] == '#' && tok[1] == 'b' {
		bits := tok[2:]
		width := uint32(len(bits))
		var val uint64
		for _, c := range bits {
			val <<= 1
			if c == '1' {
				val |= 1
			}
		}
		return bv.FromUint64(width, val), true
	}
	return bv.Value{}, false
}
