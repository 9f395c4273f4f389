package wallet

import (
	"errors"
	"fmt"
	"sort"

	"github.com/quainet/qi-wallet/internal/log"
	"github.com/quainet/qi-wallet/pkg/types"
)

// Aggregation errors.
var (
	ErrNothingToAggregate       = errors.New("no UTXOs below the aggregation threshold")
	ErrInsufficientFeeFunds     = errors.New("insufficient funds to cover fee")
	ErrAggregationNotBeneficial = errors.New("aggregation would not reduce UTXO count")
)

// feeShortfallTolerance is the fraction of the fee the selector will leave
// unpaid rather than reclassify further aggregation inputs.
const feeShortfallTolerance = 0.25

// AggregateOptions tunes the aggregation selector.
type AggregateOptions struct {
	// MaxAggregateDenom is the largest denomination considered "small"
	// enough to consolidate.
	MaxAggregateDenom types.Denomination
	// MaxOutputDenom caps the denominations of the consolidated outputs.
	MaxOutputDenom types.Denomination
	// FailOnNoBenefit makes a no-benefit aggregation an error instead of
	// a warning.
	FailOnNoBenefit bool
}

// DefaultAggregateOptions consolidates everything below one whole Qi into
// outputs of any size.
func DefaultAggregateOptions() AggregateOptions {
	return AggregateOptions{
		MaxAggregateDenom: 7, // 1 Qi
		MaxOutputDenom:    types.MaxDenomination,
	}
}

// SelectAggregate consolidates small-denomination UTXOs into fewer, larger
// outputs. Fee inputs are chosen disjointly from the aggregation inputs when
// possible; otherwise the smallest aggregation inputs are reclassified as
// fee inputs, stopping once the remaining shortfall is within 25% of the
// fee, which is absorbed with a warning.
func SelectAggregate(available []types.OutpointInfo, fee uint64, opts AggregateOptions) (*SelectionResult, error) {
	if !opts.MaxAggregateDenom.Valid() {
		return nil, fmt.Errorf("invalid max aggregate denomination %d", opts.MaxAggregateDenom)
	}
	if !opts.MaxOutputDenom.Valid() {
		return nil, fmt.Errorf("invalid max output denomination %d", opts.MaxOutputDenom)
	}
	if len(available) == 0 {
		return nil, ErrNoUTXOs
	}

	var small, big []types.OutpointInfo
	var smallTotal, bigTotal uint64
	for _, utxo := range available {
		if utxo.Outpoint.Denomination <= opts.MaxAggregateDenom {
			small = append(small, utxo)
			smallTotal += utxo.Value()
		} else {
			big = append(big, utxo)
			bigTotal += utxo.Value()
		}
	}
	if len(small) == 0 {
		return nil, ErrNothingToAggregate
	}

	// Everything small is aggregated when the big UTXOs can carry the fee
	// on their own; otherwise the uncovered part of the fee comes out of
	// the aggregated value.
	valueToAggregate := smallTotal
	if bigTotal < fee {
		shortfall := fee - bigTotal
		if shortfall >= smallTotal {
			return nil, fmt.Errorf("%w: fee %d exceeds aggregatable value %d", ErrInsufficientFeeFunds, fee, smallTotal)
		}
		valueToAggregate = smallTotal - shortfall
	}

	sort.SliceStable(small, func(i, j int) bool {
		return small[i].Value() < small[j].Value()
	})

	// Smallest-first, so the dustiest coins are consolidated first.
	var (
		aggInputs []types.OutpointInfo
		aggTotal  uint64
	)
	for _, utxo := range small {
		if aggTotal >= valueToAggregate {
			break
		}
		aggInputs = append(aggInputs, utxo)
		aggTotal += utxo.Value()
	}

	// Fee inputs come from the UTXOs not already being aggregated,
	// smallest first.
	chosen := make(map[string]struct{}, len(aggInputs))
	for _, utxo := range aggInputs {
		chosen[utxo.Outpoint.Key()] = struct{}{}
	}
	var pool []types.OutpointInfo
	for _, utxo := range available {
		if _, taken := chosen[utxo.Outpoint.Key()]; !taken {
			pool = append(pool, utxo)
		}
	}
	sort.SliceStable(pool, func(i, j int) bool {
		return pool[i].Value() < pool[j].Value()
	})

	var (
		feeInputs []types.OutpointInfo
		feeTotal  uint64
	)
	for _, utxo := range pool {
		if feeTotal >= fee {
			break
		}
		feeInputs = append(feeInputs, utxo)
		feeTotal += utxo.Value()
	}

	// Disjoint pool exhausted: peel the smallest aggregation inputs off
	// and reclassify them as fee inputs. Once the remaining shortfall is
	// within tolerance, stop reclassifying and absorb it instead so the
	// consolidation is preserved.
	for feeTotal < fee && len(aggInputs) > 0 {
		if float64(fee-feeTotal) <= float64(fee)*feeShortfallTolerance {
			break
		}
		reclassified := aggInputs[0]
		aggInputs = aggInputs[1:]
		aggTotal -= reclassified.Value()
		feeInputs = append(feeInputs, reclassified)
		feeTotal += reclassified.Value()
		log.Select.Warn().
			Str("outpoint", reclassified.Outpoint.Key()).
			Uint64("fee", fee).
			Msg("reclassifying aggregation input to cover fee")
	}

	// feeTotal < fee only happens via the break above, so the shortfall
	// is within tolerance. When reclassification consumed every
	// aggregation input the fee inputs hold the whole wallet, which
	// exceeds the fee, and the no-benefit policy below decides whether
	// the degenerate consolidation is still acceptable.
	feePaid := fee
	if feeTotal < fee {
		feePaid = feeTotal
		log.Select.Warn().
			Uint64("fee", fee).
			Uint64("shortfall", fee-feeTotal).
			Msg("accepting fee shortfall within tolerance")
	}

	// Any fee overshoot is folded back into the consolidated outputs so
	// nothing is silently discarded.
	spendValue := aggTotal + feeTotal - feePaid
	spend, err := types.Denominate(spendValue, opts.MaxOutputDenom)
	if err != nil {
		return nil, fmt.Errorf("decompose aggregated value: %w", err)
	}

	if len(spend) >= len(aggInputs) {
		if opts.FailOnNoBenefit {
			return nil, fmt.Errorf("%w: %d inputs, %d outputs", ErrAggregationNotBeneficial, len(aggInputs), len(spend))
		}
		log.Select.Warn().
			Int("inputs", len(aggInputs)).
			Int("outputs", len(spend)).
			Msg("aggregation does not reduce UTXO count")
	}

	inputs := make([]types.OutpointInfo, 0, len(aggInputs)+len(feeInputs))
	inputs = append(inputs, aggInputs...)
	inputs = append(inputs, feeInputs...)
	return &SelectionResult{
		Inputs:       inputs,
		SpendOutputs: spend,
	}, nil
}
