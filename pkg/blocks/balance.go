package blocks

import (
	"math/big"
)

// Balance is a 128-bit unsigned account balance, stored big-endian the
// way it is carried on the wire in Send and State blocks.
type Balance [16]byte

// ZeroBalance is the additive identity.
var ZeroBalance = Balance{}

// NewBalanceFromUint64 builds a Balance from a uint64 amount.
func NewBalanceFromUint64(v uint64) Balance {
	var b Balance
	big.NewInt(0).SetUint64(v).FillBytes(b[:])
	return b
}

// NewBalanceFromBigInt builds a Balance from a big.Int's magnitude (the
// sign is ignored). It panics if the magnitude does not fit in 128 bits.
func NewBalanceFromBigInt(v *big.Int) Balance {
	var b Balance
	v.FillBytes(b[:])
	return b
}

// Big returns the balance as a big.Int.
func (b Balance) Big() *big.Int {
	return new(big.Int).SetBytes(b[:])
}

// Cmp compares two balances, returning -1, 0, +1 as big.Int.Cmp does.
func (b Balance) Cmp(other Balance) int {
	return b.Big().Cmp(other.Big())
}

// Sub returns b - other. Callers must ensure b >= other.
func (b Balance) Sub(other Balance) Balance {
	return NewBalanceFromBigInt(new(big.Int).Sub(b.Big(), other.Big()))
}

// Add returns b + other.
func (b Balance) Add(other Balance) Balance {
	return NewBalanceFromBigInt(new(big.Int).Add(b.Big(), other.Big()))
}

// IsZero reports whether the balance is exactly zero.
func (b Balance) IsZero() bool {
	return b == ZeroBalance
}

func (b Balance) String() string {
	return b.Big().String()
}
