package tx

import "github.com/quainet/qi-wallet/pkg/crypto"

// EstimateFee returns the minimum fee for a transaction with the given
// number of inputs and outputs at the given fee rate (base units per byte).
// The estimate mirrors the wire layout:
//
//	chainID(~11) + inputs(~(2+34+2+2+35)*n) + outputs(~(2+22+2)*n) + signature(2+66)
//
// Estimates round each varint up, so the result never undershoots the fee
// of the final signed encoding.
func EstimateFee(numInputs, numOutputs int, feeRate uint64) uint64 {
	const overhead = 11 + 2 + 2 + crypto.SchnorrSignatureSize
	const perInput = 2 + 2 + 32 + 2 + 3 + 2 + 2 + crypto.CompressedPubKeySize
	const perOutput = 2 + 2 + 20 + 2 + 2 + 11

	size := overhead + perInput*numInputs + perOutput*numOutputs
	return uint64(size) * feeRate
}

// RequiredFee returns the exact fee for a fully built transaction at the
// given fee rate, based on the signed encoding size.
func RequiredFee(t *Transaction, feeRate uint64) (uint64, error) {
	data, err := t.EncodeSigned()
	if err != nil {
		return 0, err
	}
	return uint64(len(data)) * feeRate, nil
}
