package groundsolver

import (
	"github.com/efcore/bvef/internal/bv"
	"github.com/efcore/bvef/internal/term"
)

// Blaster bit-blasts quantifier-free bit-vector formulas from a
// term.Store into CNF over a Solver, the concrete realization of the
// Ground Solver Interface's "assert a quantifier-free BV formula" half
// of section 6.1. Only KindForall/KindExists-free subformulas may reach
// a Blaster: those are eliminated upstream by the EF driver's
// instantiation step (section 4.5) before anything is asserted here.
//
// Uninterpreted function applications are handled by Ackermannization
// (blastApply below): each pair of Apply nodes over the same function
// symbol gets an implication "equal arguments imply equal results"
// clause set, rather than modeling functions natively in the boolean
// core.
type Blaster struct {
	st     *term.Store
	solver *Solver
	bits   map[term.NodeID][]Lit // unnegated node id -> LSB-first bit literals
	// apps tracks, per UF symbol, every distinct Apply node's (argument
	// bits, result bits) pair seen so far, for Ackermannization.
	apps map[term.NodeID][]ufApp
}

type ufApp struct {
	args   []Lit // flattened argument bits
	result []Lit
}

// NewBlaster creates a Blaster that bit-blasts formulas from st into s.
func NewBlaster(st *term.Store, s *Solver) *Blaster {
	return &Blaster{
		st:     st,
		solver: s,
		bits:   make(map[term.NodeID][]Lit),
		apps:   make(map[term.NodeID][]ufApp),
	}
}

// constLit realizes a fixed boolean constant as a unit clause on a
// dedicated variable; every call allocates a fresh variable.
func (b *Blaster) constLit(v bool) Lit {
	l := b.solver.NewVar()
	if v {
		b.solver.AddClause(l)
	} else {
		b.solver.AddClause(l.Neg())
	}
	return l
}

// bitsOf returns the LSB-first literal vector for a node, blasting it
// (and memoizing) on first use. The caller is responsible for applying
// any Neg edge tag via negateBits.
func (b *Blaster) bitsOf(id term.NodeID) []Lit {
	if cached, ok := b.bits[id]; ok {
		return cached
	}
	n := b.st.Node(id)
	var out []Lit

	switch n.Kind {
	case term.KindConst:
		w := n.Value.Width()
		out = make([]Lit, w)
		for i := uint32(0); i < w; i++ {
			out[i] = b.constLit(n.Value.Bit(i) == 1)
		}
	case term.KindVar, term.KindParam:
		w := b.st.Width(n.Sort)
		out = make([]Lit, w)
		for i := range out {
			out[i] = b.solver.NewVar()
		}
	case term.KindUF:
		// A UF node itself (0-arity occurrence without Apply) is treated
		// as an opaque free symbol; Ackermannization is only meaningful
		// at Apply sites.
		w := b.st.Width(n.Sort)
		out = make([]Lit, w)
		for i := range out {
			out[i] = b.solver.NewVar()
		}
	case term.KindNeg:
		a := b.resolveChild(n.Children[0])
		out = b.blastNeg(a)
	case term.KindAnd:
		out = b.blastBitwise(n, func(x, y Lit) Lit { return b.blastAnd(x, y) })
	case term.KindOr:
		out = b.blastBitwise(n, func(x, y Lit) Lit { return b.blastOr(x, y) })
	case term.KindXor:
		out = b.blastBitwise(n, func(x, y Lit) Lit { return b.blastXor(x, y) })
	case term.KindAdd:
		a := b.resolveChild(n.Children[0])
		c := b.resolveChild(n.Children[1])
		out, _ = b.blastAdder(a, c, b.constLit(false))
	case term.KindMul:
		a := b.resolveChild(n.Children[0])
		c := b.resolveChild(n.Children[1])
		out = b.blastMul(a, c)
	case term.KindUdiv:
		a := b.resolveChild(n.Children[0])
		c := b.resolveChild(n.Children[1])
		q, _ := b.blastDivRem(a, c)
		out = q
	case term.KindUrem:
		a := b.resolveChild(n.Children[0])
		c := b.resolveChild(n.Children[1])
		_, r := b.blastDivRem(a, c)
		out = r
	case term.KindSll:
		a := b.resolveChild(n.Children[0])
		c := b.resolveChild(n.Children[1])
		out = b.blastShift(a, c, true)
	case term.KindSrl:
		a := b.resolveChild(n.Children[0])
		c := b.resolveChild(n.Children[1])
		out = b.blastShift(a, c, false)
	case term.KindUlt:
		a := b.resolveChild(n.Children[0])
		c := b.resolveChild(n.Children[1])
		out = []Lit{b.blastUlt(a, c)}
	case term.KindUlte:
		a := b.resolveChild(n.Children[0])
		c := b.resolveChild(n.Children[1])
		lt := b.blastUlt(a, c)
		eq := b.blastEqBits(a, c)
		out = []Lit{b.blastOr(lt, eq)}
	case term.KindEq:
		a := b.resolveChild(n.Children[0])
		c := b.resolveChild(n.Children[1])
		out = []Lit{b.blastEqBits(a, c)}
	case term.KindCond:
		cond := b.resolveChild(n.Children[0])[0]
		thn := b.resolveChild(n.Children[1])
		els := b.resolveChild(n.Children[2])
		out = make([]Lit, len(thn))
		for i := range out {
			out[i] = b.blastMux(cond, thn[i], els[i])
		}
	case term.KindSlice:
		a := b.resolveChild(n.Children[0])
		out = append([]Lit(nil), a[n.Lo:n.Hi+1]...)
	case term.KindApply:
		out = b.blastApply(n)
	default:
		panic("groundsolver: cannot bit-blast quantified or structural node kind in a ground formula")
	}

	b.bits[id] = out
	return out
}

// resolveChild returns a child ref's bits with its edge negation applied.
func (b *Blaster) resolveChild(r term.Ref) []Lit {
	bits := b.bitsOf(r.ID)
	if !r.Neg {
		return bits
	}
	return b.negateBitsCopy(bits)
}

func (b *Blaster) negateBitsCopy(in []Lit) []Lit {
	out := make([]Lit, len(in))
	for i, l := range in {
		out[i] = b.blastNot(l)
	}
	return out
}

// tseitin gate helpers: each introduces a fresh variable g and asserts
// the CNF clauses equivalent to g <-> expr, the standard Tseitin
// transformation used to keep formula size linear when shared.

func (b *Blaster) blastNot(x Lit) Lit { return x.Neg() }

func (b *Blaster) blastAnd(x, y Lit) Lit {
	g := b.solver.NewVar()
	b.solver.AddClause(g.Neg(), x)
	b.solver.AddClause(g.Neg(), y)
	b.solver.AddClause(g, x.Neg(), y.Neg())
	return g
}

func (b *Blaster) blastOr(x, y Lit) Lit {
	g := b.solver.NewVar()
	b.solver.AddClause(g, x.Neg())
	b.solver.AddClause(g, y.Neg())
	b.solver.AddClause(g.Neg(), x, y)
	return g
}

func (b *Blaster) blastXor(x, y Lit) Lit {
	g := b.solver.NewVar()
	b.solver.AddClause(g.Neg(), x, y)
	b.solver.AddClause(g.Neg(), x.Neg(), y.Neg())
	b.solver.AddClause(g, x.Neg(), y)
	b.solver.AddClause(g, x, y.Neg())
	return g
}

func (b *Blaster) blastMux(cond, thn, els Lit) Lit {
	// g <-> (cond & thn) | (!cond & els)
	t := b.blastAnd(cond, thn)
	e := b.blastAnd(cond.Neg(), els)
	return b.blastOr(t, e)
}

func (b *Blaster) blastNeg(a []Lit) []Lit {
	not := make([]Lit, len(a))
	for i, l := range a {
		not[i] = b.blastNot(l)
	}
	one := make([]Lit, len(a))
	one[0] = b.constLit(true)
	for i := 1; i < len(one); i++ {
		one[i] = b.constLit(false)
	}
	sum, _ := b.blastAdder(not, one, b.constLit(false))
	return sum
}

func (b *Blaster) blastBitwise(n *term.Node, op func(x, y Lit) Lit) []Lit {
	a := b.resolveChild(n.Children[0])
	c := b.resolveChild(n.Children[1])
	out := make([]Lit, len(a))
	for i := range out {
		out[i] = op(a[i], c[i])
	}
	return out
}

// blastAdder builds a ripple-carry adder: sum = a + c + cin, returning
// the sum bits and the final carry-out.
func (b *Blaster) blastAdder(a, c []Lit, cin Lit) ([]Lit, Lit) {
	sum := make([]Lit, len(a))
	carry := cin
	for i := range a {
		axc := b.blastXor(a[i], c[i])
		sum[i] = b.blastXor(axc, carry)
		// carry-out = majority(a,c,carry)
		m1 := b.blastAnd(a[i], c[i])
		m2 := b.blastAnd(axc, carry)
		carry = b.blastOr(m1, m2)
	}
	return sum, carry
}

// blastMul implements shift-and-add multiplication: width iterations of
// conditional-add-then-shift, mirroring the ripple-carry adder already
// used for Add.
func (b *Blaster) blastMul(a, c []Lit) []Lit {
	w := len(a)
	acc := make([]Lit, w)
	zero := b.constLit(false)
	for i := range acc {
		acc[i] = zero
	}
	for i := 0; i < w; i++ {
		shifted := make([]Lit, w)
		for j := 0; j < w; j++ {
			if j < i {
				shifted[j] = zero
			} else {
				shifted[j] = a[j-i]
			}
		}
		masked := make([]Lit, w)
		for j := range masked {
			masked[j] = b.blastAnd(shifted[j], c[i])
		}
		acc, _ = b.blastAdder(acc, masked, zero)
	}
	return acc
}

// blastDivRem implements restoring unsigned division bit by bit,
// matching the SMT-LIB bvudiv/bvurem-by-zero conventions (all-ones
// quotient, dividend remainder) via a guard on the divisor being zero.
func (b *Blaster) blastDivRem(a, c []Lit) (quotient, remainder []Lit) {
	w := len(a)
	rem := make([]Lit, w)
	zero := b.constLit(false)
	for i := range rem {
		rem[i] = zero
	}
	quot := make([]Lit, w)

	for i := w - 1; i >= 0; i-- {
		// rem = (rem << 1) | a[i]
		shifted := make([]Lit, w)
		shifted[0] = a[i]
		copy(shifted[1:], rem[:w-1])
		rem = shifted

		ge := b.blastOr(b.blastUlt(c, rem), b.blastEqBits(c, rem))
		diff, _ := b.blastAdder(rem, b.blastNeg(c), zero)
		newRem := make([]Lit, w)
		for j := range newRem {
			newRem[j] = b.blastMux(ge, diff[j], rem[j])
		}
		rem = newRem
		quot[i] = ge
	}

	divByZero := b.blastEqBits(c, b.allZero(w))
	onesQ := b.allOnes(w)
	finalQuot := make([]Lit, w)
	for j := range finalQuot {
		finalQuot[j] = b.blastMux(divByZero, onesQ[j], quot[j])
	}
	finalRem := make([]Lit, w)
	for j := range finalRem {
		finalRem[j] = b.blastMux(divByZero, a[j], rem[j])
	}
	return finalQuot, finalRem
}

func (b *Blaster) allZero(w int) []Lit {
	z := b.constLit(false)
	out := make([]Lit, w)
	for i := range out {
		out[i] = z
	}
	return out
}

func (b *Blaster) allOnes(w int) []Lit {
	o := b.constLit(true)
	out := make([]Lit, w)
	for i := range out {
		out[i] = o
	}
	return out
}

// blastShift implements a log(w)-stage barrel shifter, shared by Sll and
// Srl (the direction flag selects which way each stage shifts).
func (b *Blaster) blastShift(a, amount []Lit, left bool) []Lit {
	w := len(a)
	cur := append([]Lit(nil), a...)
	zero := b.constLit(false)
	for stage := 0; (1 << stage) < w; stage++ {
		shiftBy := 1 << stage
		sel := amount[stage]
		shifted := make([]Lit, w)
		for i := 0; i < w; i++ {
			var src Lit
			if left {
				if i-shiftBy >= 0 {
					src = cur[i-shiftBy]
				} else {
					src = zero
				}
			} else {
				if i+shiftBy < w {
					src = cur[i+shiftBy]
				} else {
					src = zero
				}
			}
			shifted[i] = src
		}
		next := make([]Lit, w)
		for i := range next {
			next[i] = b.blastMux(sel, shifted[i], cur[i])
		}
		cur = next
	}
	// Any high amount bits beyond log2(w) force an all-zero result.
	var overflow Lit
	for i := 0; i < len(amount); i++ {
		if (1 << i) >= w {
			if overflow == 0 {
				overflow = amount[i]
			} else {
				overflow = b.blastOr(overflow, amount[i])
			}
		}
	}
	if overflow != 0 {
		for i := range cur {
			cur[i] = b.blastMux(overflow, zero, cur[i])
		}
	}
	return cur
}

func (b *Blaster) blastEqBits(a, c []Lit) Lit {
	eq := b.constLit(true)
	for i := range a {
		bitEq := b.blastNot(b.blastXor(a[i], c[i]))
		eq = b.blastAnd(eq, bitEq)
	}
	return eq
}

// blastUlt builds an unsigned less-than comparator from the top bit down.
func (b *Blaster) blastUlt(a, c []Lit) Lit {
	lt := b.constLit(false)
	eqSoFar := b.constLit(true)
	for i := len(a) - 1; i >= 0; i-- {
		bitLt := b.blastAnd(a[i].Neg(), c[i])
		thisLt := b.blastAnd(eqSoFar, bitLt)
		lt = b.blastOr(lt, thisLt)
		bitEq := b.blastNot(b.blastXor(a[i], c[i]))
		eqSoFar = b.blastAnd(eqSoFar, bitEq)
	}
	return lt
}

// blastApply bit-blasts a UF application, introducing fresh result bits
// and Ackermannizing against every previously seen application of the
// same function symbol (section 6.1, "uninterpreted functions are
// modeled via Ackermannization, not natively").
func (b *Blaster) blastApply(n *term.Node) []Lit {
	fn := n.Children[0]
	argsNode := b.st.Node(n.Children[1].ID)
	var argBits []Lit
	for _, c := range argsNode.Children {
		argBits = append(argBits, b.resolveChild(c)...)
	}

	w := b.st.Width(n.Sort)
	result := make([]Lit, w)
	for i := range result {
		result[i] = b.solver.NewVar()
	}

	fnID := fn.ID
	for _, prior := range b.apps[fnID] {
		argsEq := b.blastEqBits(argBits, prior.args)
		for i := range result {
			bitEq := b.blastNot(b.blastXor(result[i], prior.result[i]))
			// argsEq -> bitEq  ==  (!argsEq | bitEq)
			b.solver.AddClause(argsEq.Neg(), bitEq)
		}
	}
	b.apps[fnID] = append(b.apps[fnID], ufApp{args: argBits, result: result})
	return result
}

// AssertTrue asserts that root (a width-1 boolean-valued BV formula)
// must evaluate to 1, the Ground Solver Interface's "assert" operation.
func (b *Blaster) AssertTrue(root term.Ref) {
	bits := b.resolveChild(root)
	if len(bits) != 1 {
		panic("groundsolver: AssertTrue requires a width-1 formula")
	}
	b.solver.AddClause(bits[0])
}

// BitsOf exposes the blasted literal vector for a node already asserted
// or referenced in an asserted formula, for model extraction.
func (b *Blaster) BitsOf(r term.Ref) []Lit {
	bits := b.bitsOf(r.ID)
	if r.Neg {
		return b.negateBitsCopy(bits)
	}
	return bits
}

// ValueOf reconstructs the bv.Value a node evaluates to in the solver's
// current model, implementing get_bv_model of section 6.1.
func (b *Blaster) ValueOf(r term.Ref, width uint32) bv.Value {
	bits := b.BitsOf(r)
	v := bv.Zero(width)
	one := bv.FromUint64(width, 1)
	bit := bv.FromUint64(width, 1)
	for i := 0; i < len(bits); i++ {
		if b.solver.ValueOf(bits[i].Var()) != bits[i].Sign() {
			v = v.Or(bit)
		}
		bit = bit.Sll(one)
	}
	return v
}
