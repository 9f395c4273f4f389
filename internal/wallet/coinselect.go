package wallet

import (
	"errors"
	"fmt"
	"sort"

	"github.com/quainet/qi-wallet/pkg/types"
)

// Selection errors.
var (
	ErrNoUTXOs           = errors.New("no UTXOs available")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrNonPositiveTarget = errors.New("target amount must be greater than 0")
)

// SelectionResult is the outcome of coin selection: the inputs to spend and
// the denominations of the spend and change outputs. The value invariant is
// sum(inputs) == sum(spend) + sum(change), plus the fee for aggregation.
type SelectionResult struct {
	Inputs        []types.OutpointInfo
	SpendOutputs  []types.Denomination
	ChangeOutputs []types.Denomination
}

// InputValue returns the summed base-unit value of the selected inputs.
func (r *SelectionResult) InputValue() uint64 {
	var total uint64
	for _, in := range r.Inputs {
		total += in.Value()
	}
	return total
}

// SelectFewest chooses the inputs for a payment of target base units using
// the fewest-coins policy: a single exact-match UTXO wins outright;
// otherwise candidates are accumulated largest-denomination-first until the
// running sum covers the target. Spend and change outputs are greedy
// largest-first decompositions that each sum exactly.
func SelectFewest(available []types.OutpointInfo, target int64) (*SelectionResult, error) {
	if target <= 0 {
		return nil, ErrNonPositiveTarget
	}
	if len(available) == 0 {
		return nil, ErrNoUTXOs
	}

	amount := uint64(target)
	var totalAvailable uint64
	for _, utxo := range available {
		totalAvailable += utxo.Value()
	}
	if totalAvailable < amount {
		return nil, fmt.Errorf("%w: have %d, need %d", ErrInsufficientFunds, totalAvailable, amount)
	}

	// A single UTXO that exactly covers the target beats any accumulation:
	// one input, one spend output, no change.
	for _, utxo := range available {
		if utxo.Value() == amount {
			return &SelectionResult{
				Inputs:       []types.OutpointInfo{utxo},
				SpendOutputs: []types.Denomination{utxo.Outpoint.Denomination},
			}, nil
		}
	}

	sorted := make([]types.OutpointInfo, len(available))
	copy(sorted, available)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Value() > sorted[j].Value()
	})

	var (
		inputs   []types.OutpointInfo
		selected uint64
	)
	for _, utxo := range sorted {
		inputs = append(inputs, utxo)
		selected += utxo.Value()
		if selected >= amount {
			break
		}
	}

	spend, err := types.Denominate(amount, types.MaxDenomination)
	if err != nil {
		return nil, fmt.Errorf("decompose spend amount: %w", err)
	}

	result := &SelectionResult{
		Inputs:       inputs,
		SpendOutputs: spend,
	}
	if leftover := selected - amount; leftover > 0 {
		change, err := types.Denominate(leftover, types.MaxDenomination)
		if err != nil {
			return nil, fmt.Errorf("decompose change amount: %w", err)
		}
		result.ChangeOutputs = change
	}
	return result, nil
}
