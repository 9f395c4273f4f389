package types

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
)

// AddressSize is the length of an address in bytes.
const AddressSize = 20

// Ledger identifies which of the two coexisting account models an address
// belongs to. The ledger is encoded in bit 7 of the address's second byte:
// set means UTXO (Qi), clear means account-based (Quai).
type Ledger uint8

const (
	// LedgerQuai is the account-based ledger.
	LedgerQuai Ledger = 0
	// LedgerQi is the UTXO-based ledger.
	LedgerQi Ledger = 1
)

// String returns "quai" or "qi".
func (l Ledger) String() string {
	if l == LedgerQi {
		return "qi"
	}
	return "quai"
}

// qiLedgerBit marks an address as belonging to the Qi (UTXO) ledger.
const qiLedgerBit = 0x80

// Address represents a 160-bit address. Byte 0 carries the zone prefix and
// bit 7 of byte 1 carries the ledger bit.
type Address [AddressSize]byte

// IsZero returns true if the address is all zeros.
func (a Address) IsZero() bool {
	return a == Address{}
}

// Zone returns the shard the address belongs to.
func (a Address) Zone() Zone {
	return Zone(a[0])
}

// IsInZone returns true if the address's zone prefix equals z.
func (a Address) IsInZone(z Zone) bool {
	return a.Zone() == z
}

// Ledger returns the ledger the address belongs to.
func (a Address) Ledger() Ledger {
	if a[1]&qiLedgerBit != 0 {
		return LedgerQi
	}
	return LedgerQuai
}

// IsQi returns true if the address belongs to the UTXO (Qi) ledger.
func (a Address) IsQi() bool {
	return a.Ledger() == LedgerQi
}

// IsQuai returns true if the address belongs to the account (Quai) ledger.
func (a Address) IsQuai() bool {
	return a.Ledger() == LedgerQuai
}

// String returns the 0x-prefixed hex-encoded address.
func (a Address) String() string {
	return "0x" + hex.EncodeToString(a[:])
}

// Bytes returns a copy of the address as a byte slice.
func (a Address) Bytes() []byte {
	b := make([]byte, AddressSize)
	copy(b, a[:])
	return b
}

// MarshalJSON encodes the address as a hex string.
func (a Address) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.String())
}

// UnmarshalJSON decodes a hex string into an address.
func (a *Address) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == "" {
		*a = Address{}
		return nil
	}
	parsed, err := ParseAddress(s)
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// ParseAddress parses a 0x-prefixed or raw hex address string.
func ParseAddress(s string) (Address, error) {
	if s == "" {
		return Address{}, fmt.Errorf("empty address")
	}
	b, err := hex.DecodeString(strings.TrimPrefix(s, "0x"))
	if err != nil {
		return Address{}, fmt.Errorf("invalid address hex: %w", err)
	}
	if len(b) != AddressSize {
		return Address{}, fmt.Errorf("address must be %d bytes, got %d", AddressSize, len(b))
	}
	var a Address
	copy(a[:], b)
	return a, nil
}

// BytesToAddress converts a byte slice to an Address.
func BytesToAddress(b []byte) (Address, error) {
	if len(b) != AddressSize {
		return Address{}, fmt.Errorf("address must be %d bytes, got %d", AddressSize, len(b))
	}
	var a Address
	copy(a[:], b)
	return a, nil
}
