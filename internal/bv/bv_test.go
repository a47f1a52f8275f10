package bv

import (
	"math/big"
	"testing"
)

func TestFromUint64Truncates(t *testing.T) {
	t.Run("truncates to width", func(t *testing.T) {
		v := FromUint64(4, 0x1F) // 0b11111 truncated to 4 bits -> 0b1111
		if v.String() != "1111" {
			t.Errorf("got %s, want 1111", v.String())
		}
	})

	t.Run("zero value of width 8", func(t *testing.T) {
		v := Zero(8)
		if v.Uint64() != 0 {
			t.Errorf("expected 0, got %d", v.Uint64())
		}
	})
}

func TestArithmeticWraparound(t *testing.T) {
	t.Run("add wraps", func(t *testing.T) {
		a := FromUint64(4, 15)
		b := FromUint64(4, 1)
		got := a.Add(b)
		if got.Uint64() != 0 {
			t.Errorf("15+1 mod 16 = %d, want 0", got.Uint64())
		}
	})

	t.Run("neg of zero is zero", func(t *testing.T) {
		z := Zero(4)
		if !z.Neg().Equal(z) {
			t.Errorf("-0 should equal 0")
		}
	})

	t.Run("neg matches two's complement", func(t *testing.T) {
		one := FromUint64(4, 1)
		got := one.Neg()
		if got.Uint64() != 15 {
			t.Errorf("-1 in BV4 should be 15, got %d", got.Uint64())
		}
	})
}

func TestDivisionByZero(t *testing.T) {
	t.Run("udiv by zero is all-ones", func(t *testing.T) {
		a := FromUint64(4, 5)
		z := Zero(4)
		got := a.Udiv(z)
		if !got.Equal(Ones(4)) {
			t.Errorf("udiv by zero should be all-ones, got %s", got)
		}
	})

	t.Run("urem by zero is dividend", func(t *testing.T) {
		a := FromUint64(4, 5)
		z := Zero(4)
		got := a.Urem(z)
		if !got.Equal(a) {
			t.Errorf("urem by zero should be dividend, got %s", got)
		}
	})
}

func TestComparisons(t *testing.T) {
	a := FromUint64(4, 2)
	b := FromUint64(4, 3)

	if !a.Ult(b) {
		t.Error("2 should be < 3")
	}
	if b.Ult(a) {
		t.Error("3 should not be < 2")
	}
	if !a.Ulte(a) {
		t.Error("2 should be <= 2")
	}
}

func TestSliceAndConcat(t *testing.T) {
	t.Run("slice extracts bits", func(t *testing.T) {
		v := FromUint64(8, 0b10110010)
		got := v.Slice(3, 0)
		if got.Uint64() != 0b0010 {
			t.Errorf("got %04b, want 0010", got.Uint64())
		}
	})

	t.Run("concat reassembles", func(t *testing.T) {
		hi := FromUint64(4, 0b1011)
		lo := FromUint64(4, 0b0010)
		got := hi.Concat(lo)
		if got.Uint64() != 0b10110010 {
			t.Errorf("got %08b, want 10110010", got.Uint64())
		}
	})
}

func TestCond(t *testing.T) {
	one := FromUint64(1, 1)
	zero := FromUint64(1, 0)
	a := FromUint64(4, 5)
	b := FromUint64(4, 7)

	if got := Cond(one, a, b); !got.Equal(a) {
		t.Errorf("Cond(true, a, b) = %v, want a", got)
	}
	if got := Cond(zero, a, b); !got.Equal(b) {
		t.Errorf("Cond(false, a, b) = %v, want b", got)
	}
}

func TestWidthMismatchPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic on width mismatch")
		}
	}()
	a := FromUint64(4, 1)
	b := FromUint64(8, 1)
	a.Add(b)
}

func TestTupleKeyAndEqual(t *testing.T) {
	t1 := Tuple{FromUint64(4, 1), FromUint64(4, 2)}
	t2 := Tuple{FromUint64(4, 1), FromUint64(4, 2)}
	t3 := Tuple{FromUint64(4, 1), FromUint64(4, 3)}

	if !t1.Equal(t2) {
		t.Error("t1 should equal t2")
	}
	if t1.Equal(t3) {
		t.Error("t1 should not equal t3")
	}
	if t1.Key() != t2.Key() {
		t.Errorf("equal tuples should have equal keys: %q vs %q", t1.Key(), t2.Key())
	}
}

func TestNewFromNegativeBigInt(t *testing.T) {
	v := New(4, big.NewInt(-1))
	if v.Uint64() != 15 {
		t.Errorf("New(4, -1) should normalize to 15, got %d", v.Uint64())
	}
}

func TestHexAndDecString(t *testing.T) {
	v := FromUint64(8, 0xAB)
	if v.HexString() != "ab" {
		t.Errorf("got %s, want ab", v.HexString())
	}
	if v.DecString() != "171" {
		t.Errorf("got %s, want 171", v.DecString())
	}
}
