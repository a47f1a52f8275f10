// Package bv implements fixed-width, two's-complement bit-vector values and
// tuples, the data model of section 3 ("Bit-vector value", "Bit-vector
// tuple") of the EF decision procedure this module implements.
//
// Values are immutable: every operation returns a new Value. Width
// mismatches between operands are programmer errors and panic, mirroring
// the assertion-style invariants the reference implementation enforces with
// asserts on node widths before building an expression.
package bv

import (
	"fmt"
	"math/big"
	"strings"
)

// Value is an immutable width + bit-pattern pair. The pattern is stored as
// a non-negative big.Int of exactly Width bits (two's-complement
// operations normalize into this unsigned representation).
type Value struct {
	width uint32
	bits  *big.Int
}

// mask returns 2^width - 1.
func mask(width uint32) *big.Int {
	m := new(big.Int).Lsh(big.NewInt(1), uint(width))
	return m.Sub(m, big.NewInt(1))
}

// New creates a Value of the given width from an arbitrary big.Int,
// truncating to the low `width` bits (two's-complement wraparound).
func New(width uint32, bits *big.Int) Value {
	if width == 0 {
		panic("bv: width must be >= 1")
	}
	b := new(big.Int).And(bits, mask(width))
	if bits.Sign() < 0 {
		// Normalize negative inputs into their two's-complement pattern.
		m := new(big.Int).Lsh(big.NewInt(1), uint(width))
		b = new(big.Int).Mod(bits, m)
	}
	return Value{width: width, bits: b}
}

// FromUint64 creates a Value from a uint64, truncated to width.
func FromUint64(width uint32, v uint64) Value {
	return New(width, new(big.Int).SetUint64(v))
}

// Zero returns the all-zero value of the given width.
func Zero(width uint32) Value { return FromUint64(width, 0) }

// Ones returns the all-one value of the given width.
func Ones(width uint32) Value { return New(width, mask(width)) }

// Width returns the bit width.
func (v Value) Width() uint32 { return v.width }

// Uint64 returns the unsigned 64-bit interpretation; panics if width > 64.
func (v Value) Uint64() uint64 {
	if v.width > 64 {
		panic("bv: Uint64 called on value wider than 64 bits")
	}
	return v.bits.Uint64()
}

// BigInt returns the unsigned big.Int backing this value. Callers must not
// mutate the result.
func (v Value) BigInt() *big.Int { return v.bits }

// Bit returns bit i (0 = LSB).
func (v Value) Bit(i uint32) uint {
	if i >= v.width {
		panic("bv: bit index out of range")
	}
	return v.bits.Bit(int(i))
}

// Equal reports value equality (width and bit pattern).
func (v Value) Equal(o Value) bool {
	return v.width == o.width && v.bits.Cmp(o.bits) == 0
}

// String renders the value in binary, e.g. "0101".
func (v Value) String() string {
	var sb strings.Builder
	for i := int(v.width) - 1; i >= 0; i-- {
		if v.bits.Bit(i) == 1 {
			sb.WriteByte('1')
		} else {
			sb.WriteByte('0')
		}
	}
	return sb.String()
}

// HexString renders the value as a zero-padded hex literal without prefix.
func (v Value) HexString() string {
	nibbles := (v.width + 3) / 4
	return fmt.Sprintf("%0*x", nibbles, v.bits)
}

// DecString renders the unsigned decimal representation.
func (v Value) DecString() string {
	return v.bits.String()
}

func checkWidths(a, b Value) {
	if a.width != b.width {
		panic(fmt.Sprintf("bv: width mismatch %d vs %d", a.width, b.width))
	}
}

// Not computes the bitwise complement.
func (v Value) Not() Value {
	return New(v.width, new(big.Int).Xor(v.bits, mask(v.width)))
}

// Neg computes the two's-complement negation.
func (v Value) Neg() Value {
	return v.Not().Add(FromUint64(v.width, 1))
}

// And computes the bitwise AND.
func (v Value) And(o Value) Value {
	checkWidths(v, o)
	return New(v.width, new(big.Int).And(v.bits, o.bits))
}

// Or computes the bitwise OR.
func (v Value) Or(o Value) Value {
	checkWidths(v, o)
	return New(v.width, new(big.Int).Or(v.bits, o.bits))
}

// Xor computes the bitwise XOR.
func (v Value) Xor(o Value) Value {
	checkWidths(v, o)
	return New(v.width, new(big.Int).Xor(v.bits, o.bits))
}

// Add computes wraparound addition.
func (v Value) Add(o Value) Value {
	checkWidths(v, o)
	return New(v.width, new(big.Int).Add(v.bits, o.bits))
}

// Mul computes wraparound multiplication.
func (v Value) Mul(o Value) Value {
	checkWidths(v, o)
	return New(v.width, new(big.Int).Mul(v.bits, o.bits))
}

// Udiv computes unsigned division; division by zero yields all-ones
// (the conventional SMT-LIB bvudiv-by-zero result).
func (v Value) Udiv(o Value) Value {
	checkWidths(v, o)
	if o.bits.Sign() == 0 {
		return Ones(v.width)
	}
	return New(v.width, new(big.Int).Div(v.bits, o.bits))
}

// Urem computes unsigned remainder; remainder by zero yields the dividend
// (the conventional SMT-LIB bvurem-by-zero result).
func (v Value) Urem(o Value) Value {
	checkWidths(v, o)
	if o.bits.Sign() == 0 {
		return v
	}
	return New(v.width, new(big.Int).Mod(v.bits, o.bits))
}

// Sll computes a logical left shift by the unsigned value of o.
func (v Value) Sll(o Value) Value {
	checkWidths(v, o)
	if !o.bits.IsUint64() || o.bits.Uint64() >= uint64(v.width) {
		return Zero(v.width)
	}
	return New(v.width, new(big.Int).Lsh(v.bits, uint(o.bits.Uint64())))
}

// Srl computes a logical right shift by the unsigned value of o.
func (v Value) Srl(o Value) Value {
	checkWidths(v, o)
	if !o.bits.IsUint64() || o.bits.Uint64() >= uint64(v.width) {
		return Zero(v.width)
	}
	return New(v.width, new(big.Int).Rsh(v.bits, uint(o.bits.Uint64())))
}

// Ult reports whether v < o (unsigned).
func (v Value) Ult(o Value) bool {
	checkWidths(v, o)
	return v.bits.Cmp(o.bits) < 0
}

// Ulte reports whether v <= o (unsigned).
func (v Value) Ulte(o Value) bool {
	checkWidths(v, o)
	return v.bits.Cmp(o.bits) <= 0
}

// Slice extracts bits [hi:lo] (inclusive, 0-indexed from LSB).
func (v Value) Slice(hi, lo uint32) Value {
	if hi < lo || hi >= v.width {
		panic("bv: invalid slice bounds")
	}
	shifted := new(big.Int).Rsh(v.bits, uint(lo))
	return New(hi-lo+1, shifted)
}

// Concat concatenates v (high bits) with o (low bits).
func (v Value) Concat(o Value) Value {
	shifted := new(big.Int).Lsh(v.bits, uint(o.width))
	return New(v.width+o.width, new(big.Int).Or(shifted, o.bits))
}

// Cond implements the ternary ite: if cond != 0 returns a else b. cond must
// have width 1 (a boolean bit-vector), matching the core's BV cond operator.
func Cond(cond, a, b Value) Value {
	if cond.width != 1 {
		panic("bv: Cond condition must be width 1")
	}
	checkWidths(a, b)
	if cond.bits.Sign() != 0 {
		return a
	}
	return b
}

// Tuple is an ordered, finite list of bit-vector values — the key type of
// a function sample (UF model) as defined in section 3.
type Tuple []Value

// Key renders a Tuple to a string usable as a Go map key, since Value
// contains a *big.Int and is not itself comparable with ==.
func (t Tuple) Key() string {
	var sb strings.Builder
	for i, v := range t {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(v.String())
	}
	return sb.String()
}

// Equal reports element-wise equality.
func (t Tuple) Equal(o Tuple) bool {
	if len(t) != len(o) {
		return false
	}
	for i := range t {
		if !t[i].Equal(o[i]) {
			return false
		}
	}
	return true
}
