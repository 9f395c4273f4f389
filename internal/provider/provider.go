// Package provider defines the narrow interface through which the wallet
// talks to the network, plus a JSON-RPC/WebSocket implementation. Network
// errors are propagated unchanged; retry policy belongs to the caller.
package provider

import (
	"context"

	"github.com/quainet/qi-wallet/pkg/types"
)

// EventKind selects what a subscription listens for.
type EventKind string

const (
	// EventNewBlock fires when a zone produces a new block.
	EventNewBlock EventKind = "newBlock"
	// EventPendingTx fires when a transaction enters the zone's pending pool.
	EventPendingTx EventKind = "pendingTx"
)

// Block is the subset of block data the wallet consumes.
type Block struct {
	Hash   types.Hash `json:"hash"`
	Number uint64     `json:"number"`
	Time   uint64     `json:"timestamp"`
}

// TransactionResponse is returned by a successful broadcast.
type TransactionResponse struct {
	Hash types.Hash `json:"hash"`
}

// Event is delivered to subscription listeners.
type Event struct {
	Kind   EventKind  `json:"kind"`
	Zone   types.Zone `json:"zone"`
	Block  *Block     `json:"block,omitempty"`
	TxHash types.Hash `json:"txHash,omitempty"`
}

// Listener receives subscription events.
type Listener func(Event)

// Subscription identifies an active event registration.
type Subscription interface {
	// Unsubscribe stops event delivery and releases resources.
	Unsubscribe()
}

// Provider is the wallet's window onto the network. Implementations must be
// safe for use by a single wallet instance; they never mutate wallet state.
type Provider interface {
	// GetOutpointsByAddress returns the spendable outpoints paying addr.
	GetOutpointsByAddress(ctx context.Context, addr types.Address) ([]types.Outpoint, error)

	// GetBalance returns the spendable balance of addr in base units.
	GetBalance(ctx context.Context, addr types.Address) (uint64, error)

	// GetLockedBalance returns the balance of addr still under a lock height.
	GetLockedBalance(ctx context.Context, addr types.Address) (uint64, error)

	// GetBlockNumber returns the current height of the zone.
	GetBlockNumber(ctx context.Context, zone types.Zone) (uint64, error)

	// GetBlock fetches a block by hash or tag ("latest").
	GetBlock(ctx context.Context, zone types.Zone, hashOrTag string) (*Block, error)

	// EstimateFeeForQi estimates the fee in base units for the encoded
	// unsigned transaction.
	EstimateFeeForQi(ctx context.Context, zone types.Zone, unsignedTx []byte) (uint64, error)

	// BroadcastTransaction submits a signed transaction to the zone.
	BroadcastTransaction(ctx context.Context, zone types.Zone, signedTx []byte, from types.Address) (*TransactionResponse, error)

	// On registers a listener for events of the given kind in the zone.
	On(kind EventKind, listener Listener, zone types.Zone) (Subscription, error)
}
