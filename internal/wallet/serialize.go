package wallet

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/quainet/qi-wallet/internal/provider"
	"github.com/quainet/qi-wallet/pkg/crypto"
	"github.com/quainet/qi-wallet/pkg/types"
)

// importedPathPrefix tags serialized imported-key addresses. The raw key
// material rides in the path so signing survives a reload.
const importedPathPrefix = "imported:"

// serializedBlock is BlockRef with a signed number so negative heights are
// rejected explicitly instead of wrapping.
type serializedBlock struct {
	Hash   types.Hash `json:"hash"`
	Number int64      `json:"number"`
}

// serializedZone is a total text codec for zone bytes. Defined zones encode
// as their name; anything else as a 0x-prefixed hex byte. Imported keys can
// land outside the nine zones, and serializing must not fail on them.
type serializedZone types.Zone

func (z serializedZone) MarshalText() ([]byte, error) {
	if types.Zone(z).Valid() {
		return []byte(types.Zone(z).String()), nil
	}
	return []byte(fmt.Sprintf("0x%02x", uint8(z))), nil
}

func (z *serializedZone) UnmarshalText(data []byte) error {
	s := string(data)
	if strings.HasPrefix(s, "0x") {
		raw, err := hex.DecodeString(s[2:])
		if err != nil || len(raw) != 1 {
			return fmt.Errorf("invalid zone byte %q", s)
		}
		*z = serializedZone(raw[0])
		return nil
	}
	parsed, err := types.ParseZone(s)
	if err != nil {
		return err
	}
	*z = serializedZone(parsed)
	return nil
}

type serializedAddress struct {
	PubKey          string           `json:"pubKey"`
	Address         types.Address    `json:"address"`
	Account         uint32           `json:"account"`
	Index           uint32           `json:"index"`
	Zone            serializedZone   `json:"zone"`
	Status          AddressStatus    `json:"status"`
	Path            string           `json:"derivationPath"`
	LastSyncedBlock *serializedBlock `json:"lastSyncedBlock,omitempty"`
}

type serializedWallet struct {
	Version               int                      `json:"version"`
	Phrase                string                   `json:"phrase"`
	CoinType              uint32                   `json:"coinType"`
	Addresses             []serializedAddress      `json:"addresses"`
	SenderPaymentCodeInfo map[string]*channelState `json:"senderPaymentCodeInfo,omitempty"`
}

// Serialize encodes the wallet's reloadable state: the mnemonic, the
// address set, and the payment-channel counters.
func (w *Wallet) Serialize() ([]byte, error) {
	sw := serializedWallet{
		Version:               serializeVersion,
		Phrase:                w.phrase,
		CoinType:              w.coinType,
		SenderPaymentCodeInfo: w.channels,
	}
	for _, info := range w.book.All() {
		sa := serializedAddress{
			PubKey:  "0x" + hex.EncodeToString(info.PubKey),
			Address: info.Address,
			Account: info.Account,
			Index:   info.Index,
			Zone:    serializedZone(info.Zone),
			Status:  info.Status,
			Path:    info.Path,
		}
		if info.Path == PathImported {
			key, ok := w.imported[info.Address]
			if !ok {
				return nil, fmt.Errorf("no key material for imported address %s", info.Address)
			}
			sa.Path = importedPathPrefix + hex.EncodeToString(key.Serialize())
		}
		if info.LastSyncedBlock != nil {
			sa.LastSyncedBlock = &serializedBlock{
				Hash:   info.LastSyncedBlock.Hash,
				Number: int64(info.LastSyncedBlock.Number),
			}
		}
		sw.Addresses = append(sw.Addresses, sa)
	}
	return json.MarshalIndent(sw, "", "  ")
}

// Deserialize reconstructs a wallet from its serialized form. Derivation
// paths, synced-block references, and payment codes are validated field by
// field; duplicate addresses are silently dropped.
func Deserialize(data []byte, passphrase string, p provider.Provider, opts Options) (*Wallet, error) {
	var sw serializedWallet
	if err := json.Unmarshal(data, &sw); err != nil {
		return nil, fmt.Errorf("decode wallet: %w", err)
	}
	if sw.Version != serializeVersion {
		return nil, fmt.Errorf("unsupported wallet version %d", sw.Version)
	}

	w, err := NewFromMnemonic(sw.Phrase, passphrase, p, opts)
	if err != nil {
		return nil, err
	}
	w.coinType = sw.CoinType

	for code, state := range sw.SenderPaymentCodeInfo {
		if _, err := ParsePaymentCode(code); err != nil {
			return nil, fmt.Errorf("senderPaymentCodeInfo: %w", err)
		}
		if state == nil {
			state = &channelState{}
		}
		w.channels[code] = state
	}

	for i, sa := range sw.Addresses {
		info := &AddressInfo{
			Address: sa.Address,
			Account: sa.Account,
			Index:   sa.Index,
			Zone:    types.Zone(sa.Zone),
			Status:  sa.Status,
		}

		pubKey, err := hex.DecodeString(strings.TrimPrefix(sa.PubKey, "0x"))
		if err != nil {
			return nil, fmt.Errorf("address %d: invalid pubKey: %w", i, err)
		}
		info.PubKey = pubKey

		// Imported addresses land wherever their key puts them, so the
		// zone byte is only validated for derived paths.
		if !info.Zone.Valid() && !strings.HasPrefix(sa.Path, importedPathPrefix) {
			return nil, fmt.Errorf("address %d: invalid zone 0x%02x", i, uint8(sa.Zone))
		}

		var importedKey *crypto.PrivateKey
		switch {
		case sa.Path == PathExternal || sa.Path == PathChange:
			info.Path = sa.Path
		case strings.HasPrefix(sa.Path, importedPathPrefix):
			raw, err := hex.DecodeString(strings.TrimPrefix(sa.Path, importedPathPrefix))
			if err != nil {
				return nil, fmt.Errorf("address %d: invalid imported key: %w", i, err)
			}
			importedKey, err = crypto.PrivateKeyFromBytes(raw)
			if err != nil {
				return nil, fmt.Errorf("address %d: invalid imported key: %w", i, err)
			}
			info.Path = PathImported
		default:
			if _, err := ParsePaymentCode(sa.Path); err != nil {
				return nil, fmt.Errorf("address %d: unknown derivation path %q", i, sa.Path)
			}
			info.Path = sa.Path
			if _, ok := w.channels[sa.Path]; !ok {
				// The counterparty's code must be registered or the
				// channel counters are unrecoverable.
				return nil, fmt.Errorf("address %d: payment code %q not in senderPaymentCodeInfo", i, sa.Path)
			}
		}

		if sa.LastSyncedBlock != nil {
			if sa.LastSyncedBlock.Number < 0 {
				return nil, fmt.Errorf("address %d: negative lastSyncedBlock number %d", i, sa.LastSyncedBlock.Number)
			}
			info.LastSyncedBlock = &BlockRef{
				Hash:   sa.LastSyncedBlock.Hash,
				Number: uint64(sa.LastSyncedBlock.Number),
			}
		}

		if !w.book.Add(info) {
			continue // duplicate address, silently dropped
		}
		if importedKey != nil {
			w.imported[info.Address] = importedKey
		}
	}
	return w, nil
}
