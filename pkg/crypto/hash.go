// Package crypto provides hashing and signing primitives for the Qi wallet.
package crypto

import (
	"github.com/quainet/qi-wallet/pkg/types"
	"github.com/zeebo/blake3"
)

// Hash computes a BLAKE3-256 hash of the input data.
func Hash(data []byte) types.Hash {
	return blake3.Sum256(data)
}

// QiAddressFromPubKey derives a Qi-ledger address candidate from a
// compressed public key: the first 20 bytes of BLAKE3(pubkey). Whether the
// candidate lands in the desired zone and carries the Qi ledger bit is
// decided by the caller's derivation loop.
func QiAddressFromPubKey(pubKey []byte) types.Address {
	h := Hash(pubKey)
	var addr types.Address
	copy(addr[:], h[:types.AddressSize])
	return addr
}

// Fingerprint returns the 4-byte key fingerprint used in HD derivation:
// the first 4 bytes of BLAKE3(compressed pubkey).
func Fingerprint(pubKey []byte) uint32 {
	h := Hash(pubKey)
	return uint32(h[0])<<24 | uint32(h[1])<<16 | uint32(h[2])<<8 | uint32(h[3])
}
