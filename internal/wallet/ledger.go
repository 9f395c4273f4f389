package wallet

import (
	"fmt"

	"github.com/quainet/qi-wallet/pkg/types"
)

// OutpointLedger tracks the wallet's spendable coin fragments per zone,
// indexed by owning address. It is an in-memory view rebuilt from scans;
// the chain remains the source of truth.
type OutpointLedger struct {
	// zone -> address -> outpoints
	zones map[types.Zone]map[types.Address][]types.OutpointInfo
}

// NewOutpointLedger creates an empty ledger.
func NewOutpointLedger() *OutpointLedger {
	return &OutpointLedger{
		zones: make(map[types.Zone]map[types.Address][]types.OutpointInfo),
	}
}

// Import merges outpoints into the ledger, deduplicating by (txhash, index).
// Outpoints owned by an address the book does not know are rejected, except
// when the owning entry's path is the imported-key path (those addresses are
// known but carry no derivation path).
func (l *OutpointLedger) Import(book *addressBook, outpoints []types.OutpointInfo) error {
	for _, info := range outpoints {
		if err := info.Validate(); err != nil {
			return fmt.Errorf("import outpoint %s: %w", info.Outpoint.Key(), err)
		}
		entry := book.Get(info.Address)
		if entry == nil {
			return fmt.Errorf("import outpoint %s: address %s not in wallet", info.Outpoint.Key(), info.Address)
		}
		l.add(info)
	}
	return nil
}

// add inserts one outpoint unless an entry with the same (txhash, index)
// already exists for the address.
func (l *OutpointLedger) add(info types.OutpointInfo) {
	byAddr := l.zones[info.Zone]
	if byAddr == nil {
		byAddr = make(map[types.Address][]types.OutpointInfo)
		l.zones[info.Zone] = byAddr
	}
	key := info.Outpoint.Key()
	for _, existing := range byAddr[info.Address] {
		if existing.Outpoint.Key() == key {
			return
		}
	}
	byAddr[info.Address] = append(byAddr[info.Address], info)
}

// Outpoints returns all outpoints known for the zone.
func (l *OutpointLedger) Outpoints(zone types.Zone) []types.OutpointInfo {
	var out []types.OutpointInfo
	for _, list := range l.zones[zone] {
		out = append(out, list...)
	}
	return out
}

// OutpointsForAddress returns the outpoints owned by addr.
func (l *OutpointLedger) OutpointsForAddress(zone types.Zone, addr types.Address) []types.OutpointInfo {
	byAddr := l.zones[zone]
	if byAddr == nil {
		return nil
	}
	list := byAddr[addr]
	out := make([]types.OutpointInfo, len(list))
	copy(out, list)
	return out
}

// BalanceForZone sums the denomination values of all non-locked outpoints in
// the zone at the given height.
func (l *OutpointLedger) BalanceForZone(zone types.Zone, height uint64) uint64 {
	var total uint64
	for _, list := range l.zones[zone] {
		for _, info := range list {
			if info.Outpoint.Locked(height) {
				continue
			}
			total += info.Outpoint.Value()
		}
	}
	return total
}

// LockedBalance sums the denomination values of outpoints whose lock height
// has not yet passed.
func (l *OutpointLedger) LockedBalance(zone types.Zone, height uint64) uint64 {
	var total uint64
	for _, list := range l.zones[zone] {
		for _, info := range list {
			if info.Outpoint.Locked(height) {
				total += info.Outpoint.Value()
			}
		}
	}
	return total
}

// Remove deletes the outpoints with the given keys from the zone. Used after
// a successful broadcast to drop spent inputs.
func (l *OutpointLedger) Remove(zone types.Zone, keys []string) {
	byAddr := l.zones[zone]
	if byAddr == nil {
		return
	}
	doomed := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		doomed[k] = struct{}{}
	}
	for addr, list := range byAddr {
		kept := list[:0]
		for _, info := range list {
			if _, gone := doomed[info.Outpoint.Key()]; !gone {
				kept = append(kept, info)
			}
		}
		if len(kept) == 0 {
			delete(byAddr, addr)
		} else {
			byAddr[addr] = kept
		}
	}
}

// Reconcile replaces the ledger's view of addr with the upstream outpoint
// set. New outpoints are added and outpoints no longer present upstream
// (spent or orphaned) are dropped. Returns true if the address saw any
// activity, meaning it should be marked USED.
func (l *OutpointLedger) Reconcile(zone types.Zone, addr types.Address, upstream []types.OutpointInfo) bool {
	byAddr := l.zones[zone]
	hadOutpoints := byAddr != nil && len(byAddr[addr]) > 0

	if byAddr != nil {
		delete(byAddr, addr)
	}
	for _, info := range upstream {
		l.add(info)
	}
	return hadOutpoints || len(upstream) > 0
}
