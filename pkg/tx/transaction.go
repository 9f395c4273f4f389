// Package tx defines the Qi UTXO transaction, its binary wire codec, and
// signing over the transaction digest.
package tx

import (
	"errors"
	"fmt"

	"github.com/quainet/qi-wallet/pkg/crypto"
	"github.com/quainet/qi-wallet/pkg/types"
)

// Signing errors.
var (
	ErrNoInputs  = errors.New("transaction has no inputs")
	ErrNoOutputs = errors.New("transaction has no outputs")
	ErrUnsigned  = errors.New("transaction is not signed")
)

// TxIn spends one outpoint. PubKey is the compressed public key owning the
// outpoint; it is required before signing so multi-input transactions can
// aggregate all input keys.
type TxIn struct {
	PrevOut types.Outpoint `json:"prevout"`
	PubKey  []byte         `json:"pubkey"`
}

// TxOut creates one new denominated coin. Lock, when non-zero, is the block
// height before which the new coin is unspendable.
type TxOut struct {
	Address      types.Address      `json:"address"`
	Denomination types.Denomination `json:"denomination"`
	Lock         uint64             `json:"lock,omitempty"`
}

// Transaction is a Qi-ledger transaction: denominated inputs and outputs
// bound by one signature (Schnorr for a single input, MuSig2-aggregated for
// multiple inputs).
type Transaction struct {
	ChainID   uint64  `json:"chainId"`
	Ins       []TxIn  `json:"ins"`
	Outs      []TxOut `json:"outs"`
	Signature []byte  `json:"signature,omitempty"`
}

// Digest returns the BLAKE3 hash of the unsigned wire encoding. This is the
// message that is signed.
func (t *Transaction) Digest() types.Hash {
	return crypto.Hash(t.EncodeUnsigned())
}

// Hash returns the transaction ID (identical to the signing digest; the
// signature is excluded so the ID is stable across signing).
func (t *Transaction) Hash() types.Hash {
	return t.Digest()
}

// InputPubKeys returns the compressed public keys of all inputs, in input
// order. Errors if any input is missing its key.
func (t *Transaction) InputPubKeys() ([][]byte, error) {
	keys := make([][]byte, len(t.Ins))
	for i, in := range t.Ins {
		if len(in.PubKey) != crypto.CompressedPubKeySize {
			return nil, fmt.Errorf("input %d: public key must be %d bytes, got %d",
				i, crypto.CompressedPubKeySize, len(in.PubKey))
		}
		keys[i] = in.PubKey
	}
	return keys, nil
}

// TotalOutputValue returns the summed base-unit value of all outputs.
func (t *Transaction) TotalOutputValue() uint64 {
	var total uint64
	for _, out := range t.Outs {
		total += out.Denomination.Value()
	}
	return total
}

// Sign produces the transaction signature using the private keys owning the
// inputs, ordered to match t.Ins. Exactly one input yields a plain Schnorr
// signature; multiple inputs yield one MuSig2-combined signature binding
// every input key. All-or-nothing: on error the transaction is unchanged.
func (t *Transaction) Sign(keys []*crypto.PrivateKey) error {
	if len(t.Ins) == 0 {
		return ErrNoInputs
	}
	if len(t.Outs) == 0 {
		return ErrNoOutputs
	}
	if len(keys) != len(t.Ins) {
		return fmt.Errorf("have %d keys for %d inputs", len(keys), len(t.Ins))
	}

	digest := t.Digest()

	var sig []byte
	var err error
	if len(keys) == 1 {
		sig, err = keys[0].SignSchnorr(digest[:])
	} else {
		sig, err = crypto.SignMuSig(keys, digest[:])
	}
	if err != nil {
		return fmt.Errorf("sign transaction: %w", err)
	}
	t.Signature = sig
	return nil
}

// VerifySignature checks the transaction signature against the input public
// keys: Schnorr for a single input, MuSig2-aggregated for multiple.
func (t *Transaction) VerifySignature() error {
	if len(t.Signature) == 0 {
		return ErrUnsigned
	}
	pubKeys, err := t.InputPubKeys()
	if err != nil {
		return err
	}
	if len(pubKeys) == 0 {
		return ErrNoInputs
	}

	digest := t.Digest()
	var ok bool
	if len(pubKeys) == 1 {
		ok = crypto.VerifySchnorr(digest[:], t.Signature, pubKeys[0])
	} else {
		ok = crypto.VerifyMuSig(digest[:], t.Signature, pubKeys)
	}
	if !ok {
		return errors.New("transaction signature verification failed")
	}
	return nil
}
