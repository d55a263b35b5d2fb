package types

import (
	"github.com/holiman/uint256"
)

// AmountSize is the wire width of a balance or pending amount: a
// 128-bit unsigned integer, big-endian on the wire.
const AmountSize = 16

// Amount is an account balance, pending amount or representative
// weight tally. It is backed by a 256-bit integer so tally sums have
// headroom, but every value constructed through this package's API
// stays within the low 128 bits the wire encoding can carry.
type Amount struct {
	v uint256.Int
}

// ZeroAmount is the additive identity.
var ZeroAmount = Amount{}

// NewAmount constructs an Amount from a uint64, for tests and constants.
func NewAmount(v uint64) Amount {
	return Amount{v: *uint256.NewInt(v)}
}

// AmountFromBytes decodes a big-endian 16-byte amount.
func AmountFromBytes(b []byte) (Amount, error) {
	if len(b) != AmountSize {
		return Amount{}, errAmountLength
	}
	var buf [32]byte
	copy(buf[32-AmountSize:], b)
	var a Amount
	a.v.SetBytes(buf[:])
	return a, nil
}

// Bytes encodes the amount as a big-endian 16-byte value. Panics if the
// amount does not fit, which should never happen for values produced by
// this package's arithmetic on well-formed ledgers.
func (a Amount) Bytes() []byte {
	if a.v.BitLen() > 8*AmountSize {
		panic("types: amount exceeds 128 bits")
	}
	full := a.v.Bytes32()
	return full[32-AmountSize:]
}

// Add returns a+b. The sum is not range-checked against the 128-bit
// wire width; callers that persist the result are expected to operate
// on values that stay within a total-supply bound.
func (a Amount) Add(b Amount) Amount {
	var out Amount
	out.v.Add(&a.v, &b.v)
	return out
}

// Sub returns a-b and whether the subtraction underflowed (a < b).
func (a Amount) Sub(b Amount) (Amount, bool) {
	if a.v.Lt(&b.v) {
		return Amount{}, true
	}
	var out Amount
	out.v.Sub(&a.v, &b.v)
	return out, false
}

func (a Amount) Cmp(b Amount) int {
	return a.v.Cmp(&b.v)
}

func (a Amount) IsZero() bool {
	return a.v.IsZero()
}

func (a Amount) String() string {
	return a.v.Dec()
}

// MulFrac returns a*numerator/denominator, used to scale a weight
// total by a quorum percentage without overflowing the 128-bit wire
// width a realistic total-supply-bounded amount stays within.
func (a Amount) MulFrac(numerator, denominator uint64) Amount {
	if denominator == 0 {
		return ZeroAmount
	}
	var out Amount
	out.v.Mul(&a.v, uint256.NewInt(numerator))
	out.v.Div(&out.v, uint256.NewInt(denominator))
	return out
}

type amountError string

func (e amountError) Error() string { return string(e) }

const errAmountLength = amountError("types: invalid amount length")
