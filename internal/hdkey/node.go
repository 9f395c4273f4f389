// Package hdkey implements hierarchical deterministic key derivation for
// the dual-ledger address space. Derivation follows BIP-32 HMAC-SHA512
// expansion with explicit bounded retry on invalid intermediate scalars
// instead of surfacing an error to the caller.
package hdkey

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"

	"github.com/quainet/qi-wallet/pkg/crypto"
	"github.com/quainet/qi-wallet/pkg/types"
)

// Derivation path constants. Full BIP-44 path: m/44'/coinType'/account'/change/index.
const (
	// HardenedOffset marks a derivation index as hardened.
	HardenedOffset uint32 = 0x80000000

	// PurposeBIP44 is the BIP-44 purpose field (hardened).
	PurposeBIP44 = HardenedOffset + 44

	// PurposePaymentCode is the purpose field for payment-code keys (hardened).
	PurposePaymentCode = HardenedOffset + 47

	// CoinTypeQi is the registered coin type for the UTXO (Qi) ledger.
	CoinTypeQi = HardenedOffset + 969

	// CoinTypeQuai is the registered coin type for the account (Quai) ledger.
	CoinTypeQuai = HardenedOffset + 994

	// ChangeExternal is the chain index for receiving addresses.
	ChangeExternal = 0

	// ChangeInternal is the chain index for change addresses.
	ChangeInternal = 1
)

// maxScalarRetries bounds the retry loop on invalid HMAC expansions. The
// probability of a single retry is below 2^-127, so hitting this bound
// indicates corrupted input rather than bad luck.
const maxScalarRetries = 1 << 8

// Derivation errors.
var (
	ErrNeutered         = errors.New("cannot derive hardened child from public-only node")
	ErrDeriveExhausted  = errors.New("derivation retry limit exceeded")
	ErrInvalidSeedLen   = errors.New("seed must be between 16 and 64 bytes")
	ErrHardenedOverflow = errors.New("index already in hardened range")
)

// masterHMACKey seeds the root node expansion.
var masterHMACKey = []byte("Bitcoin seed")

// Node is one key in the HD tree. A node either holds a private key (full
// node) or is neutered (public-only). Nodes are immutable; derivation
// returns a new node and never mutates the parent.
type Node struct {
	priv       *secp256k1.PrivateKey // nil when neutered
	pub        *secp256k1.PublicKey
	chainCode  [32]byte
	depth      uint8
	index      uint32
	parentFP   uint32
}

// NewMaster expands a seed into the root node.
func NewMaster(seed []byte) (*Node, error) {
	if len(seed) < 16 || len(seed) > 64 {
		return nil, fmt.Errorf("%w, got %d", ErrInvalidSeedLen, len(seed))
	}

	mac := hmac.New(sha512.New, masterHMACKey)
	mac.Write(seed)
	i := mac.Sum(nil)

	var scalar secp256k1.ModNScalar
	if overflow := scalar.SetByteSlice(i[:32]); overflow || scalar.IsZero() {
		return nil, errors.New("seed produces invalid master key")
	}

	priv := secp256k1.NewPrivateKey(&scalar)
	node := &Node{
		priv: priv,
		pub:  priv.PubKey(),
	}
	copy(node.chainCode[:], i[32:])
	return node, nil
}

// IsPrivate returns true if the node holds a private key.
func (n *Node) IsPrivate() bool {
	return n.priv != nil
}

// Depth returns the derivation depth (0 for the root).
func (n *Node) Depth() uint8 {
	return n.depth
}

// Index returns the child index this node was derived at.
func (n *Node) Index() uint32 {
	return n.index
}

// ParentFingerprint returns the first 4 bytes of the parent key fingerprint.
func (n *Node) ParentFingerprint() uint32 {
	return n.parentFP
}

// ChainCode returns a copy of the node's 32-byte chain code.
func (n *Node) ChainCode() []byte {
	cc := make([]byte, 32)
	copy(cc, n.chainCode[:])
	return cc
}

// PublicKeyBytes returns the compressed 33-byte public key.
func (n *Node) PublicKeyBytes() []byte {
	return n.pub.SerializeCompressed()
}

// PublicKey returns the node's public key.
func (n *Node) PublicKey() *secp256k1.PublicKey {
	return n.pub
}

// PrivateKeyBytes returns the raw 32-byte private key, or nil for a
// neutered node.
func (n *Node) PrivateKeyBytes() []byte {
	if n.priv == nil {
		return nil
	}
	return n.priv.Serialize()
}

// Signer returns a crypto.PrivateKey for this node.
// Returns an error for a neutered node.
func (n *Node) Signer() (*crypto.PrivateKey, error) {
	if n.priv == nil {
		return nil, errors.New("cannot create signer from public-only node")
	}
	return crypto.PrivateKeyFromBytes(n.priv.Serialize())
}

// Neuter returns a public-only copy of the node.
func (n *Node) Neuter() *Node {
	return &Node{
		pub:       n.pub,
		chainCode: n.chainCode,
		depth:     n.depth,
		index:     n.index,
		parentFP:  n.parentFP,
	}
}

// QiAddress returns this node's Qi address candidate.
func (n *Node) QiAddress() types.Address {
	return crypto.QiAddressFromPubKey(n.PublicKeyBytes())
}

// DeriveChild derives the child at the given index, hardened or not
// depending on whether index carries the hardened offset.
func (n *Node) DeriveChild(index uint32) (*Node, error) {
	if index >= HardenedOffset {
		return n.DeriveHardened(index - HardenedOffset)
	}
	return n.deriveNormal(index)
}

// DeriveHardened derives the hardened child at offset index (the hardened
// bit is applied internally). Requires a private node. If the HMAC
// expansion yields an invalid scalar the index is advanced and derivation
// retried, up to maxScalarRetries.
func (n *Node) DeriveHardened(index uint32) (*Node, error) {
	if n.priv == nil {
		return nil, ErrNeutered
	}
	if index >= HardenedOffset {
		return nil, fmt.Errorf("%w: %d", ErrHardenedOverflow, index)
	}

	for attempt := 0; attempt < maxScalarRetries; attempt++ {
		i := HardenedOffset + index + uint32(attempt)

		data := make([]byte, 0, 37)
		data = append(data, 0x00)
		data = append(data, n.priv.Serialize()...)
		data = binary.BigEndian.AppendUint32(data, i)

		if child, ok := n.childFromExpansion(data, i); ok {
			return child, nil
		}
	}
	return nil, fmt.Errorf("%w: hardened index %d", ErrDeriveExhausted, index)
}

// deriveNormal derives a non-hardened child. Works on both private and
// neutered nodes; invalid expansions advance the index and retry.
func (n *Node) deriveNormal(index uint32) (*Node, error) {
	if index >= HardenedOffset {
		return nil, fmt.Errorf("%w: %d", ErrHardenedOverflow, index)
	}

	for attempt := 0; attempt < maxScalarRetries; attempt++ {
		i := index + uint32(attempt)
		if i >= HardenedOffset {
			break
		}

		data := make([]byte, 0, 37)
		data = append(data, n.pub.SerializeCompressed()...)
		data = binary.BigEndian.AppendUint32(data, i)

		if n.priv != nil {
			if child, ok := n.childFromExpansion(data, i); ok {
				return child, nil
			}
			continue
		}

		// Neutered: child public key = parent + IL*G.
		childPub, childChain, ok := publicChild(n.pub, n.chainCode[:], data)
		if !ok {
			continue
		}
		child := &Node{
			pub:      childPub,
			depth:    n.depth + 1,
			index:    i,
			parentFP: crypto.Fingerprint(n.pub.SerializeCompressed()),
		}
		copy(child.chainCode[:], childChain)
		return child, nil
	}
	return nil, fmt.Errorf("%w: index %d", ErrDeriveExhausted, index)
}

// childFromExpansion computes a private child from HMAC input data.
// Returns false if IL is not a valid non-zero scalar, in which case the
// caller retries with the next index.
func (n *Node) childFromExpansion(data []byte, index uint32) (*Node, bool) {
	mac := hmac.New(sha512.New, n.chainCode[:])
	mac.Write(data)
	i := mac.Sum(nil)

	var il secp256k1.ModNScalar
	if overflow := il.SetByteSlice(i[:32]); overflow {
		return nil, false
	}

	// child = (IL + parent) mod n; zero children are invalid.
	sum := il
	sum.Add(&n.priv.Key)
	if sum.IsZero() {
		return nil, false
	}

	priv := secp256k1.NewPrivateKey(&sum)
	child := &Node{
		priv:     priv,
		pub:      priv.PubKey(),
		depth:    n.depth + 1,
		index:    index,
		parentFP: crypto.Fingerprint(n.pub.SerializeCompressed()),
	}
	copy(child.chainCode[:], i[32:])
	return child, true
}

// publicChild computes (parent + IL*G, IR) from HMAC input data.
// Returns false if IL overflows or the sum is the point at infinity.
func publicChild(parent *secp256k1.PublicKey, chainCode, data []byte) (*secp256k1.PublicKey, []byte, bool) {
	mac := hmac.New(sha512.New, chainCode)
	mac.Write(data)
	i := mac.Sum(nil)

	var il secp256k1.ModNScalar
	if overflow := il.SetByteSlice(i[:32]); overflow || il.IsZero() {
		return nil, nil, false
	}

	var ilG, parentJ, sum secp256k1.JacobianPoint
	secp256k1.ScalarBaseMultNonConst(&il, &ilG)
	parent.AsJacobian(&parentJ)
	secp256k1.AddNonConst(&ilG, &parentJ, &sum)
	if (sum.X.IsZero() && sum.Y.IsZero()) || sum.Z.IsZero() {
		return nil, nil, false
	}
	sum.ToAffine()
	return secp256k1.NewPublicKey(&sum.X, &sum.Y), i[32:], true
}
