package types

import "fmt"

// Outpoint references one spendable UTXO fragment: the transaction that
// created it, the output index within that transaction, and its
// denomination. Lock, when non-zero, is the block height below which the
// outpoint is unspendable.
type Outpoint struct {
	TxHash       Hash         `json:"txhash"`
	Index        uint16       `json:"index"`
	Denomination Denomination `json:"denomination"`
	Lock         uint64       `json:"lock,omitempty"`
}

// Key returns the canonical "txhash:index" identity used for deduplication.
func (o Outpoint) Key() string {
	return fmt.Sprintf("%s:%d", o.TxHash.String(), o.Index)
}

// Value returns the outpoint's base-unit value.
func (o Outpoint) Value() uint64 {
	return o.Denomination.Value()
}

// Locked returns true if the outpoint is unspendable at the given height.
func (o Outpoint) Locked(height uint64) bool {
	return o.Lock != 0 && height < o.Lock
}

// String returns "txhash:index".
func (o Outpoint) String() string {
	return o.Key()
}

// OutpointInfo wraps an Outpoint with its owning address and zone.
type OutpointInfo struct {
	Outpoint Outpoint `json:"outpoint"`
	Address  Address  `json:"address"`
	Zone     Zone     `json:"zone"`
}

// Validate checks that the denomination indexes the table, the zone is
// defined, and the address carries the zone's prefix.
func (oi OutpointInfo) Validate() error {
	if !oi.Outpoint.Denomination.Valid() {
		return fmt.Errorf("invalid denomination index %d", oi.Outpoint.Denomination)
	}
	if !oi.Zone.Valid() {
		return fmt.Errorf("invalid zone 0x%02x", uint8(oi.Zone))
	}
	if !oi.Address.IsInZone(oi.Zone) {
		return fmt.Errorf("address %s not in zone %s", oi.Address, oi.Zone)
	}
	return nil
}

// Value returns the wrapped outpoint's base-unit value.
func (oi OutpointInfo) Value() uint64 {
	return oi.Outpoint.Value()
}
