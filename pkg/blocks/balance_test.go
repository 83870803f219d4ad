package blocks

import (
	"math/big"
	"testing"
)

func TestBalanceArithmeticRoundTrip(t *testing.T) {
	a := NewBalanceFromUint64(100)
	b := NewBalanceFromUint64(40)

	if got := a.Sub(b).Big().Uint64(); got != 60 {
		t.Fatalf("100 - 40 = %d, want 60", got)
	}
	if got := a.Add(b).Big().Uint64(); got != 140 {
		t.Fatalf("100 + 40 = %d, want 140", got)
	}
	if a.Cmp(b) <= 0 {
		t.Fatalf("100 should compare greater than 40")
	}
	if b.Cmp(a) >= 0 {
		t.Fatalf("40 should compare less than 100")
	}
	if a.Cmp(a) != 0 {
		t.Fatalf("balance should compare equal to itself")
	}
}

func TestBalanceIsZero(t *testing.T) {
	if !ZeroBalance.IsZero() {
		t.Fatalf("ZeroBalance.IsZero() = false, want true")
	}
	if NewBalanceFromUint64(1).IsZero() {
		t.Fatalf("non-zero balance reported as zero")
	}
}

func TestBalanceFromBigIntHandles128Bits(t *testing.T) {
	max128 := new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 128), big.NewInt(1))
	b := NewBalanceFromBigInt(max128)
	if b.Big().Cmp(max128) != 0 {
		t.Fatalf("max 128-bit value did not round-trip: got %s want %s", b.Big(), max128)
	}
}
