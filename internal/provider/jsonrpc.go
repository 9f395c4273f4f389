package provider

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/quainet/qi-wallet/internal/log"
	"github.com/quainet/qi-wallet/pkg/types"
)

// Client is a JSON-RPC 2.0 Provider over HTTP, with WebSocket event
// subscriptions when a ws endpoint is configured.
type Client struct {
	endpoint   string
	wsEndpoint string
	http       *http.Client
	nextID     atomic.Int64
}

// New creates a Provider client targeting the given HTTP endpoint.
// wsEndpoint may be empty, in which case On returns an error.
func New(endpoint, wsEndpoint string) *Client {
	return NewWithTimeout(endpoint, wsEndpoint, 10*time.Second)
}

// NewWithTimeout creates a Provider client with a custom HTTP timeout.
func NewWithTimeout(endpoint, wsEndpoint string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		endpoint:   endpoint,
		wsEndpoint: wsEndpoint,
		http: &http.Client{
			Timeout: timeout,
		},
	}
}

// request is a JSON-RPC 2.0 request.
type request struct {
	JSONRPC string      `json:"jsonrpc"`
	Method  string      `json:"method"`
	Params  interface{} `json:"params,omitempty"`
	ID      int64       `json:"id"`
}

// response is a JSON-RPC 2.0 response.
type response struct {
	JSONRPC string          `json:"jsonrpc"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *rpcError       `json:"error,omitempty"`
	ID      int64           `json:"id"`
}

// rpcError is a JSON-RPC 2.0 error.
type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// RPCError is returned when the server responds with an error.
type RPCError struct {
	Code    int
	Message string
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

// Call invokes a JSON-RPC method and unmarshals the result into the provided
// pointer. If result is nil, the response result is discarded.
func (c *Client) Call(ctx context.Context, method string, params, result interface{}) error {
	req := request{
		JSONRPC: "2.0",
		Method:  method,
		Params:  params,
		ID:      c.nextID.Add(1),
	}

	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	var rpcResp response
	if err := json.Unmarshal(data, &rpcResp); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}

	if rpcResp.Error != nil {
		return &RPCError{
			Code:    rpcResp.Error.Code,
			Message: rpcResp.Error.Message,
		}
	}

	if result != nil && rpcResp.Result != nil {
		if err := json.Unmarshal(rpcResp.Result, result); err != nil {
			return fmt.Errorf("decode result: %w", err)
		}
	}

	return nil
}

// GetOutpointsByAddress returns the spendable outpoints paying addr.
func (c *Client) GetOutpointsByAddress(ctx context.Context, addr types.Address) ([]types.Outpoint, error) {
	var outpoints []types.Outpoint
	if err := c.Call(ctx, "qi_getOutpointsByAddress", []string{addr.String()}, &outpoints); err != nil {
		return nil, err
	}
	return outpoints, nil
}

// GetBalance returns the spendable balance of addr in base units.
func (c *Client) GetBalance(ctx context.Context, addr types.Address) (uint64, error) {
	var balance uint64
	if err := c.Call(ctx, "qi_getBalance", []string{addr.String()}, &balance); err != nil {
		return 0, err
	}
	return balance, nil
}

// GetLockedBalance returns the locked balance of addr in base units.
func (c *Client) GetLockedBalance(ctx context.Context, addr types.Address) (uint64, error) {
	var balance uint64
	if err := c.Call(ctx, "qi_getLockedBalance", []string{addr.String()}, &balance); err != nil {
		return 0, err
	}
	return balance, nil
}

// GetBlockNumber returns the current height of the zone.
func (c *Client) GetBlockNumber(ctx context.Context, zone types.Zone) (uint64, error) {
	var number uint64
	if err := c.Call(ctx, "qi_blockNumber", []string{zone.String()}, &number); err != nil {
		return 0, err
	}
	return number, nil
}

// GetBlock fetches a block by hash or tag ("latest").
func (c *Client) GetBlock(ctx context.Context, zone types.Zone, hashOrTag string) (*Block, error) {
	var block Block
	if err := c.Call(ctx, "qi_getBlock", []string{zone.String(), hashOrTag}, &block); err != nil {
		return nil, err
	}
	return &block, nil
}

// EstimateFeeForQi estimates the fee for the encoded unsigned transaction.
func (c *Client) EstimateFeeForQi(ctx context.Context, zone types.Zone, unsignedTx []byte) (uint64, error) {
	var fee uint64
	params := []string{zone.String(), "0x" + hex.EncodeToString(unsignedTx)}
	if err := c.Call(ctx, "qi_estimateFee", params, &fee); err != nil {
		return 0, err
	}
	return fee, nil
}

// BroadcastTransaction submits a signed transaction to the zone.
func (c *Client) BroadcastTransaction(ctx context.Context, zone types.Zone, signedTx []byte, from types.Address) (*TransactionResponse, error) {
	var resp TransactionResponse
	params := []string{zone.String(), "0x" + hex.EncodeToString(signedTx), from.String()}
	if err := c.Call(ctx, "qi_sendRawTransaction", params, &resp); err != nil {
		return nil, err
	}
	log.Provider.Debug().
		Str("zone", zone.String()).
		Str("tx", resp.Hash.String()).
		Msg("transaction broadcast")
	return &resp, nil
}
