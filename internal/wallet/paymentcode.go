package wallet

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/btcutil/base58"
	"github.com/decred/dcrd/dcrec/secp256k1/v4"

	"github.com/quainet/qi-wallet/internal/hdkey"
	"github.com/quainet/qi-wallet/pkg/crypto"
	"github.com/quainet/qi-wallet/pkg/types"
)

// paymentCodeVersion is the Base58Check version byte for payment codes.
const paymentCodeVersion = 0x22

// Payment code errors.
var (
	ErrInvalidPaymentCode = errors.New("invalid payment code")
	ErrUnknownChannel     = errors.New("no channel open for payment code")
)

// PaymentCode is the published identity of a payment-channel party: the
// compressed public key and chain code of their payment-code account node.
// Anyone holding the code can derive the party's receive addresses, but only
// the two channel parties can tell which indices are in use.
type PaymentCode struct {
	PubKey    []byte
	ChainCode []byte
}

// ParsePaymentCode decodes a Base58Check payment code. The payload must be
// exactly a 33-byte compressed public key followed by a 32-byte chain code
// under the payment-code version byte.
func ParsePaymentCode(code string) (*PaymentCode, error) {
	payload, version, err := base58.CheckDecode(code)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPaymentCode, err)
	}
	if version != paymentCodeVersion {
		return nil, fmt.Errorf("%w: version 0x%02x, want 0x%02x", ErrInvalidPaymentCode, version, paymentCodeVersion)
	}
	if len(payload) != crypto.CompressedPubKeySize+32 {
		return nil, fmt.Errorf("%w: payload is %d bytes, want %d", ErrInvalidPaymentCode, len(payload), crypto.CompressedPubKeySize+32)
	}
	pub := payload[:crypto.CompressedPubKeySize]
	if _, err := secp256k1.ParsePubKey(pub); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPaymentCode, err)
	}
	pc := &PaymentCode{
		PubKey:    make([]byte, crypto.CompressedPubKeySize),
		ChainCode: make([]byte, 32),
	}
	copy(pc.PubKey, pub)
	copy(pc.ChainCode, payload[crypto.CompressedPubKeySize:])
	return pc, nil
}

// PaymentCodeFromNode builds the payment code publishing a node's public key
// and chain code.
func PaymentCodeFromNode(node *hdkey.Node) *PaymentCode {
	return &PaymentCode{
		PubKey:    node.PublicKeyBytes(),
		ChainCode: node.ChainCode(),
	}
}

// String returns the Base58Check encoding of the code.
func (pc *PaymentCode) String() string {
	payload := make([]byte, 0, len(pc.PubKey)+len(pc.ChainCode))
	payload = append(payload, pc.PubKey...)
	payload = append(payload, pc.ChainCode...)
	return base58.CheckEncode(payload, paymentCodeVersion)
}

// channelState holds the per-counterparty counters. SendIndex counts
// addresses we generated to pay the counterparty; ReceiveIndex counts
// addresses we expect the counterparty to pay us at.
type channelState struct {
	SendIndex    uint32 `json:"sendIndex"`
	ReceiveIndex uint32 `json:"receiveIndex"`
}

// sharedSecret runs ECDH between our payment-code private key and the
// counterparty's payment-code public key. Both parties compute the same
// secret from their own key plus the other's published code.
func sharedSecret(own *hdkey.Node, counterparty *PaymentCode) ([]byte, error) {
	signer, err := own.Signer()
	if err != nil {
		return nil, fmt.Errorf("payment-code node: %w", err)
	}
	theirPub, err := secp256k1.ParsePubKey(counterparty.PubKey)
	if err != nil {
		return nil, fmt.Errorf("counterparty public key: %w", err)
	}
	ownPriv := secp256k1.PrivKeyFromBytes(signer.Serialize())
	secret := secp256k1.GenerateSharedSecret(ownPriv, theirPub)
	signer.Zero()
	return secret, nil
}

// maskIndex derives the on-chain derivation index for a channel counter.
// The counter is hashed with the shared secret so third parties cannot link
// the sequence of addresses two channel parties use.
func maskIndex(secret []byte, counter uint32) uint32 {
	data := make([]byte, 0, len(secret)+4)
	data = append(data, secret...)
	data = binary.BigEndian.AppendUint32(data, counter)
	h := crypto.Hash(data)
	return binary.BigEndian.Uint32(h[:4]) &^ hdkey.HardenedOffset
}

// deriveChannelSendAddress derives the address at the masked index for the
// given channel counter on the counterparty's payment code, filtered through
// the zone and ledger predicates. Returns the derived child and the actual
// index used, so both parties converge on the same address for the counter.
func deriveChannelSendAddress(secret []byte, counterparty *PaymentCode, counter uint32, zone types.Zone) (*hdkey.PublicChild, uint32, error) {
	if !zone.Valid() {
		return nil, 0, fmt.Errorf("invalid zone 0x%02x", uint8(zone))
	}
	base := maskIndex(secret, counter)
	for attempt := uint32(0); attempt < maxAddressAttempts; attempt++ {
		idx := (base + attempt) &^ hdkey.HardenedOffset
		child, err := hdkey.DeriveFromPublic(counterparty.PubKey, counterparty.ChainCode, 0, int64(idx))
		if err != nil {
			if errors.Is(err, hdkey.ErrDeriveExhausted) {
				continue
			}
			return nil, 0, err
		}
		if child.Address.IsInZone(zone) && child.Address.IsQi() {
			return child, idx, nil
		}
	}
	return nil, 0, fmt.Errorf("%w: zone %s, %d attempts", ErrAddressExhausted, zone, maxAddressAttempts)
}

// deriveChannelReceiveNode is the private-side mirror of
// deriveChannelSendAddress: it derives the same masked index sequence on our
// own payment-code node so the resulting key can sign. The counterparty
// reaches the identical address through our published code.
func deriveChannelReceiveNode(secret []byte, own *hdkey.Node, counter uint32, zone types.Zone) (*hdkey.Node, uint32, error) {
	if !zone.Valid() {
		return nil, 0, fmt.Errorf("invalid zone 0x%02x", uint8(zone))
	}
	changeNode, err := own.DeriveChild(0)
	if err != nil {
		return nil, 0, fmt.Errorf("derive change level: %w", err)
	}
	base := maskIndex(secret, counter)
	for attempt := uint32(0); attempt < maxAddressAttempts; attempt++ {
		idx := (base + attempt) &^ hdkey.HardenedOffset
		node, err := changeNode.DeriveChild(idx)
		if err != nil {
			if errors.Is(err, hdkey.ErrDeriveExhausted) {
				continue
			}
			return nil, 0, err
		}
		// If the scalar at idx was invalid, DeriveChild advanced to the
		// next valid index. DeriveFromPublic advances identically, so
		// both parties still land on the same key.
		addr := node.QiAddress()
		if addr.IsInZone(zone) && addr.IsQi() {
			return node, idx, nil
		}
	}
	return nil, 0, fmt.Errorf("%w: zone %s, %d attempts", ErrAddressExhausted, zone, maxAddressAttempts)
}
