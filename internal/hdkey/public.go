package hdkey

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"

	"github.com/quainet/qi-wallet/pkg/crypto"
	"github.com/quainet/qi-wallet/pkg/types"
)

// Fast-path validation errors.
var (
	ErrInvalidChangeIndex  = errors.New("invalid change index")
	ErrInvalidAddressIndex = errors.New("invalid address index")
)

// PublicChild is the result of the public-only fast path: the derived
// compressed public key, its chain code, and the resulting address.
type PublicChild struct {
	PublicKey []byte
	ChainCode []byte
	Address   types.Address
}

// DeriveFromPublic is the non-hardened-only fast path: it derives
// change/addressIndex directly from a bare compressed public key and chain
// code (for example sourced from a hardware device) without materializing a
// root node. The public key must be exactly 33 bytes, the chain code exactly
// 32 bytes, and both indices within [0, 2^31).
func DeriveFromPublic(pubKey, chainCode []byte, change, addressIndex int64) (*PublicChild, error) {
	if len(pubKey) != crypto.CompressedPubKeySize {
		return nil, fmt.Errorf("public key must be %d bytes, got %d", crypto.CompressedPubKeySize, len(pubKey))
	}
	if len(chainCode) != 32 {
		return nil, fmt.Errorf("chain code must be 32 bytes, got %d", len(chainCode))
	}
	if change < 0 || change >= int64(HardenedOffset) {
		return nil, fmt.Errorf("%w: %d", ErrInvalidChangeIndex, change)
	}
	if addressIndex < 0 || addressIndex >= int64(HardenedOffset) {
		return nil, fmt.Errorf("%w: %d", ErrInvalidAddressIndex, addressIndex)
	}

	parent, err := secp256k1.ParsePubKey(pubKey)
	if err != nil {
		return nil, fmt.Errorf("parse public key: %w", err)
	}

	changePub, changeChain, err := derivePublicStep(parent, chainCode, uint32(change))
	if err != nil {
		return nil, fmt.Errorf("derive change level: %w", err)
	}
	childPub, childChain, err := derivePublicStep(changePub, changeChain, uint32(addressIndex))
	if err != nil {
		return nil, fmt.Errorf("derive address level: %w", err)
	}

	serialized := childPub.SerializeCompressed()
	return &PublicChild{
		PublicKey: serialized,
		ChainCode: childChain,
		Address:   crypto.QiAddressFromPubKey(serialized),
	}, nil
}

// derivePublicStep performs one non-hardened public derivation with the
// bounded index-advance retry used everywhere in this package.
func derivePublicStep(parent *secp256k1.PublicKey, chainCode []byte, index uint32) (*secp256k1.PublicKey, []byte, error) {
	for attempt := 0; attempt < maxScalarRetries; attempt++ {
		i := index + uint32(attempt)
		if i >= HardenedOffset {
			break
		}
		data := make([]byte, 0, 37)
		data = append(data, parent.SerializeCompressed()...)
		data = binary.BigEndian.AppendUint32(data, i)

		if pub, chain, ok := publicChild(parent, chainCode, data); ok {
			return pub, chain, nil
		}
	}
	return nil, nil, fmt.Errorf("%w: index %d", ErrDeriveExhausted, index)
}
