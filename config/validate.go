package config

import (
	"fmt"
	"strings"

	"github.com/quainet/qi-wallet/pkg/types"
)

// Validate checks runtime wallet config for obvious operator mistakes.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config is nil")
	}
	if cfg.Network != Mainnet && cfg.Network != Testnet {
		return fmt.Errorf("network must be %q or %q", Mainnet, Testnet)
	}
	if cfg.RPC.Endpoint == "" {
		return fmt.Errorf("rpc.endpoint must not be empty")
	}
	if !strings.HasPrefix(cfg.RPC.Endpoint, "http://") && !strings.HasPrefix(cfg.RPC.Endpoint, "https://") {
		return fmt.Errorf("rpc.endpoint must be an http(s) URL")
	}
	if cfg.RPC.WSEndpoint != "" &&
		!strings.HasPrefix(cfg.RPC.WSEndpoint, "ws://") && !strings.HasPrefix(cfg.RPC.WSEndpoint, "wss://") {
		return fmt.Errorf("rpc.ws must be a ws(s) URL")
	}
	if cfg.RPC.TimeoutSec <= 0 {
		return fmt.Errorf("rpc.timeout must be positive")
	}
	if cfg.Wallet.GapLimit <= 0 {
		return fmt.Errorf("wallet.gaplimit must be positive")
	}
	if types.Denomination(cfg.Wallet.MaxAggregateDenom) > types.MaxDenomination {
		return fmt.Errorf("wallet.max_aggregate_denom must be at most %d", types.MaxDenomination)
	}
	if types.Denomination(cfg.Wallet.MaxOutputDenom) > types.MaxDenomination {
		return fmt.Errorf("wallet.max_output_denom must be at most %d", types.MaxDenomination)
	}
	switch cfg.Log.Level {
	case "", "trace", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level %q is not a known level", cfg.Log.Level)
	}
	return nil
}
