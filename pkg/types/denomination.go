package types

import (
	"errors"
	"fmt"
)

// Denomination indexes the fixed ascending table of canonical coin sizes.
// Every Qi UTXO carries one of these values; arbitrary amounts are always
// decomposed into canonical denominations.
type Denomination uint8

// MaxDenomination is the largest valid denomination index.
const MaxDenomination Denomination = 16

// denominations is the canonical value table in base units (qits).
// 1 qit = 0.001 Qi, so index 7 (1000 qits) is one whole Qi.
var denominations = [MaxDenomination + 1]uint64{
	1,          // 0.001 Qi
	5,          // 0.005 Qi
	10,         // 0.01 Qi
	50,         // 0.05 Qi
	100,        // 0.1 Qi
	250,        // 0.25 Qi
	500,        // 0.5 Qi
	1000,       // 1 Qi
	5000,       // 5 Qi
	10000,      // 10 Qi
	20000,      // 20 Qi
	50000,      // 50 Qi
	100000,     // 100 Qi
	1000000,    // 1000 Qi
	10000000,   // 10000 Qi
	100000000,  // 100000 Qi
	1000000000, // 1000000 Qi
}

// ErrUnrepresentable is returned when an amount cannot be expressed as a sum
// of canonical denominations under the given cap.
var ErrUnrepresentable = errors.New("amount not representable in denominations")

// Valid returns true if d indexes the denomination table.
func (d Denomination) Valid() bool {
	return d <= MaxDenomination
}

// Value returns the base-unit value of the denomination.
// Panics on an out-of-range index; callers validate on ingress.
func (d Denomination) Value() uint64 {
	if !d.Valid() {
		panic(fmt.Sprintf("invalid denomination index %d", d))
	}
	return denominations[d]
}

// String returns the denomination's value in qits.
func (d Denomination) String() string {
	if !d.Valid() {
		return fmt.Sprintf("denomination(%d)", uint8(d))
	}
	return fmt.Sprintf("%d qits", denominations[d])
}

// Denominate decomposes amount into canonical denominations using a greedy
// largest-first strategy, never using a denomination above max. The result
// sums exactly to amount; since the table contains 1 the decomposition
// always succeeds for positive amounts.
func Denominate(amount uint64, max Denomination) ([]Denomination, error) {
	if amount == 0 {
		return nil, errors.New("amount must be greater than 0")
	}
	if !max.Valid() {
		return nil, fmt.Errorf("invalid max denomination %d", max)
	}

	var out []Denomination
	remaining := amount
	for i := int(max); i >= 0 && remaining > 0; i-- {
		v := denominations[i]
		for remaining >= v {
			out = append(out, Denomination(i))
			remaining -= v
		}
	}
	if remaining != 0 {
		return nil, fmt.Errorf("%w: %d left over", ErrUnrepresentable, remaining)
	}
	return out, nil
}

// SumDenominations returns the total base-unit value of the given
// denominations.
func SumDenominations(denoms []Denomination) uint64 {
	var total uint64
	for _, d := range denoms {
		total += d.Value()
	}
	return total
}
