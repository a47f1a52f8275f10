package ef

import "github.com/efcore/bvef/internal/term"

// rebuildOp reconstructs an ordinary (non-leaf) node kind in dst from
// its already-rebuilt children, the structural half shared by every
// cross-store rebuild in this package. KindConst is rebuilt here too.
// Callers substitute KindParam and KindUF (and, in the instantiator,
// UF applications) via crossStoreRebuild's leaf function; KindVar,
// KindLambda and the quantifier kinds are not handled and panic.
func rebuildOp(dst *term.Store, n *term.Node, c []term.Ref) term.Ref {
	switch n.Kind {
	case term.KindConst:
		return dst.Const(n.Value)
	case term.KindNeg:
		return dst.Neg(c[0])
	case term.KindAnd:
		return dst.And(c[0], c[1])
	case term.KindOr:
		return dst.Or(c[0], c[1])
	case term.KindXor:
		return dst.Xor(c[0], c[1])
	case term.KindAdd:
		return dst.Add(c[0], c[1])
	case term.KindMul:
		return dst.Mul(c[0], c[1])
	case term.KindUdiv:
		return dst.Udiv(c[0], c[1])
	case term.KindUrem:
		return dst.Urem(c[0], c[1])
	case term.KindSll:
		return dst.Sll(c[0], c[1])
	case term.KindSrl:
		return dst.Srl(c[0], c[1])
	case term.KindUlt:
		return dst.Ult(c[0], c[1])
	case term.KindUlte:
		return dst.Ulte(c[0], c[1])
	case term.KindEq:
		return dst.Eq(c[0], c[1])
	case term.KindCond:
		return dst.Cond(c[0], c[1], c[2])
	case term.KindSlice:
		return dst.Slice(c[0], n.Hi, n.Lo)
	case term.KindArgs:
		return dst.Args(c...)
	case term.KindApply:
		return dst.Apply(c[0], c[1])
	default:
		panic("ef: rebuildOp cannot handle node kind in a quantifier-free matrix")
	}
}
