package wallet

import (
	"errors"
	"fmt"

	"github.com/quainet/qi-wallet/internal/hdkey"
	"github.com/quainet/qi-wallet/pkg/types"
)

// AddressStatus tracks the lifecycle of a derived address. An address moves
// UNUSED -> USED once chain activity is observed and never back.
// ATTEMPTED_USE marks an address handed out in a not-yet-confirmed send.
type AddressStatus uint8

const (
	StatusUnused AddressStatus = iota
	StatusUsed
	StatusAttemptedUse
)

// String returns the wire form used in wallet serialization.
func (s AddressStatus) String() string {
	switch s {
	case StatusUsed:
		return "USED"
	case StatusAttemptedUse:
		return "ATTEMPTED_USE"
	default:
		return "UNUSED"
	}
}

// MarshalText encodes the status as its string form.
func (s AddressStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText decodes a status string.
func (s *AddressStatus) UnmarshalText(text []byte) error {
	switch string(text) {
	case "UNUSED":
		*s = StatusUnused
	case "USED":
		*s = StatusUsed
	case "ATTEMPTED_USE":
		*s = StatusAttemptedUse
	default:
		return fmt.Errorf("unknown address status %q", string(text))
	}
	return nil
}

// Derivation path labels. Anything else in AddressInfo.Path is either a
// counterparty payment code or rejected at deserialization.
const (
	PathExternal = "external"
	PathChange   = "change"
	PathImported = "imported"
)

// BlockRef identifies the chain tip an address was last synced against.
type BlockRef struct {
	Hash   types.Hash `json:"hash"`
	Number uint64     `json:"number"`
}

// AddressInfo is one entry in the wallet's address set.
type AddressInfo struct {
	PubKey          []byte        `json:"pubKey"`
	Address         types.Address `json:"address"`
	Account         uint32        `json:"account"`
	Index           uint32        `json:"index"`
	Zone            types.Zone    `json:"zone"`
	Path            string        `json:"derivationPath"`
	Status          AddressStatus `json:"status"`
	LastSyncedBlock *BlockRef     `json:"lastSyncedBlock,omitempty"`
}

// maxAddressAttempts caps the zone/ledger filtering loop. Roughly 1 in 512
// derived keys lands in a given zone with the ledger bit set, so legitimate
// searches finish in well under a thousand attempts.
const maxAddressAttempts = 10_000_000

// ErrAddressExhausted is returned when no address matching the zone and
// ledger predicates is found within the attempt ceiling.
var ErrAddressExhausted = errors.New("address derivation attempt limit reached")

// deriveNextQiAddressNode walks child indices of changeNode starting at
// startIndex until it finds a key whose address carries the requested zone
// prefix and the Qi ledger bit.
func deriveNextQiAddressNode(changeNode *hdkey.Node, startIndex uint32, zone types.Zone) (*hdkey.Node, error) {
	if !zone.Valid() {
		return nil, fmt.Errorf("invalid zone 0x%02x", uint8(zone))
	}

	index := startIndex
	for attempt := 0; attempt < maxAddressAttempts; attempt++ {
		if index >= hdkey.HardenedOffset {
			return nil, fmt.Errorf("address index overflow in zone %s", zone)
		}
		node, err := changeNode.DeriveChild(index)
		if err != nil {
			return nil, fmt.Errorf("derive address index %d: %w", index, err)
		}
		// DeriveChild may have advanced past invalid scalars.
		index = node.Index() + 1

		addr := node.QiAddress()
		if addr.IsInZone(zone) && addr.IsQi() {
			return node, nil
		}
	}
	return nil, fmt.Errorf("%w: zone %s, %d attempts from index %d",
		ErrAddressExhausted, zone, maxAddressAttempts, startIndex)
}

// bucketKey identifies one (account, path, zone) derivation bucket.
type bucketKey struct {
	account uint32
	path    string
	zone    types.Zone
}

// addressBook holds the wallet's address set with the bucket bookkeeping
// needed for sequential allocation. Addresses are unique by value; duplicate
// adds are silently dropped.
type addressBook struct {
	byAddress map[types.Address]*AddressInfo
	ordered   []*AddressInfo
}

func newAddressBook() *addressBook {
	return &addressBook{
		byAddress: make(map[types.Address]*AddressInfo),
	}
}

// Add inserts info unless an entry with the same address already exists.
// Returns true if the entry was inserted.
func (b *addressBook) Add(info *AddressInfo) bool {
	if _, ok := b.byAddress[info.Address]; ok {
		return false
	}
	b.byAddress[info.Address] = info
	b.ordered = append(b.ordered, info)
	return true
}

// Get returns the entry for addr, or nil.
func (b *addressBook) Get(addr types.Address) *AddressInfo {
	return b.byAddress[addr]
}

// All returns the entries in insertion order.
func (b *addressBook) All() []*AddressInfo {
	return b.ordered
}

// InBucket returns the entries of one (account, path, zone) bucket.
func (b *addressBook) InBucket(account uint32, path string, zone types.Zone) []*AddressInfo {
	var out []*AddressInfo
	for _, info := range b.ordered {
		if info.Account == account && info.Path == path && info.Zone == zone {
			out = append(out, info)
		}
	}
	return out
}

// NextIndex returns max(index)+1 over the bucket, or 0 for an empty bucket.
func (b *addressBook) NextIndex(account uint32, path string, zone types.Zone) uint32 {
	next := uint32(0)
	for _, info := range b.ordered {
		if info.Account == account && info.Path == path && info.Zone == zone && info.Index >= next {
			next = info.Index + 1
		}
	}
	return next
}

// MarkUsed flips the address to USED. The transition is one-way.
func (b *addressBook) MarkUsed(addr types.Address) {
	if info := b.byAddress[addr]; info != nil {
		info.Status = StatusUsed
	}
}

// Len returns the number of distinct addresses.
func (b *addressBook) Len() int {
	return len(b.ordered)
}
