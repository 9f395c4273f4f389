package crypto

import (
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/btcsuite/btcd/btcec/v2/schnorr/musig2"
)

// ErrNoSigners is returned when a MuSig operation receives no keys.
var ErrNoSigners = errors.New("no signers provided")

// AggregateKeys combines several compressed public keys into one MuSig2
// aggregate key (x-only, 32 bytes). Keys are sorted before aggregation so
// the result is independent of input order.
func AggregateKeys(pubKeys [][]byte) ([]byte, error) {
	if len(pubKeys) == 0 {
		return nil, ErrNoSigners
	}
	keys, err := parsePubKeys(pubKeys)
	if err != nil {
		return nil, err
	}
	combined, _, _, err := musig2.AggregateKeys(keys, true)
	if err != nil {
		return nil, fmt.Errorf("aggregate keys: %w", err)
	}
	return schnorr.SerializePubKey(combined.FinalKey), nil
}

// SignMuSig runs the full local MuSig2 two-round ceremony over all private
// keys and returns one 64-byte BIP-340 signature binding every key. The
// operation is all-or-nothing: any failure aborts with no partial result.
func SignMuSig(privKeys []*PrivateKey, digest []byte) ([]byte, error) {
	if len(privKeys) == 0 {
		return nil, ErrNoSigners
	}
	if len(digest) != 32 {
		return nil, fmt.Errorf("digest must be 32 bytes, got %d", len(digest))
	}

	allPubs := make([]*btcec.PublicKey, len(privKeys))
	for i, pk := range privKeys {
		allPubs[i] = pk.PubKey()
	}

	// One context and session per signer. All sessions learn every public
	// nonce before any partial signature is produced.
	sessions := make([]*musig2.Session, len(privKeys))
	nonces := make([][musig2.PubNonceSize]byte, len(privKeys))
	for i, pk := range privKeys {
		ctx, err := musig2.NewContext(
			pk.key, true, musig2.WithKnownSigners(allPubs),
		)
		if err != nil {
			return nil, fmt.Errorf("musig context for signer %d: %w", i, err)
		}
		session, err := ctx.NewSession()
		if err != nil {
			return nil, fmt.Errorf("musig session for signer %d: %w", i, err)
		}
		sessions[i] = session
		nonces[i] = session.PublicNonce()
	}

	for i, session := range sessions {
		for j, nonce := range nonces {
			if i == j {
				continue
			}
			if _, err := session.RegisterPubNonce(nonce); err != nil {
				return nil, fmt.Errorf("register nonce %d with signer %d: %w", j, i, err)
			}
		}
	}

	var msg [32]byte
	copy(msg[:], digest)

	// First session collects everyone's partial signatures.
	if _, err := sessions[0].Sign(msg); err != nil {
		return nil, fmt.Errorf("partial sign (signer 0): %w", err)
	}
	for i := 1; i < len(sessions); i++ {
		partial, err := sessions[i].Sign(msg)
		if err != nil {
			return nil, fmt.Errorf("partial sign (signer %d): %w", i, err)
		}
		if _, err := sessions[0].CombineSig(partial); err != nil {
			return nil, fmt.Errorf("combine signature %d: %w", i, err)
		}
	}

	final := sessions[0].FinalSig()
	if final == nil {
		return nil, errors.New("musig signature incomplete")
	}
	return final.Serialize(), nil
}

// VerifyMuSig checks a MuSig2-combined signature against the aggregate of
// the given compressed public keys. Returns false on any error.
func VerifyMuSig(digest, signature []byte, pubKeys [][]byte) bool {
	keys, err := parsePubKeys(pubKeys)
	if err != nil || len(keys) == 0 {
		return false
	}
	combined, _, _, err := musig2.AggregateKeys(keys, true)
	if err != nil {
		return false
	}
	sig, err := schnorr.ParseSignature(signature)
	if err != nil {
		return false
	}
	return sig.Verify(digest, combined.FinalKey)
}

func parsePubKeys(pubKeys [][]byte) ([]*btcec.PublicKey, error) {
	keys := make([]*btcec.PublicKey, len(pubKeys))
	for i, raw := range pubKeys {
		key, err := btcec.ParsePubKey(raw)
		if err != nil {
			return nil, fmt.Errorf("parse public key %d: %w", i, err)
		}
		keys[i] = key
	}
	return keys, nil
}
