// Package config handles wallet configuration: defaults, a key = value
// config file, and command-line flag overrides, applied in that order.
package config

import (
	"os"
	"path/filepath"
	"runtime"
)

// NetworkType identifies mainnet or testnet.
type NetworkType string

const (
	Mainnet NetworkType = "mainnet"
	Testnet NetworkType = "testnet"
)

// Config holds the wallet's runtime configuration.
type Config struct {
	// Core
	Network NetworkType `conf:"network"`
	DataDir string      `conf:"datadir"`

	// Provider endpoints
	RPC RPCConfig

	// Wallet behavior
	Wallet WalletConfig

	// Logging
	Log LogConfig
}

// RPCConfig holds the provider endpoints.
type RPCConfig struct {
	Endpoint   string `conf:"rpc.endpoint"`
	WSEndpoint string `conf:"rpc.ws"`
	TimeoutSec int    `conf:"rpc.timeout"`
}

// WalletConfig holds wallet behavior settings.
type WalletConfig struct {
	GapLimit int    `conf:"wallet.gaplimit"`
	Account  uint32 `conf:"wallet.account"`
	ChainID  uint64 `conf:"wallet.chainid"`

	// Coin-selection policy knobs.
	MaxAggregateDenom uint8 `conf:"wallet.max_aggregate_denom"`
	MaxOutputDenom    uint8 `conf:"wallet.max_output_denom"`
	FailOnNoBenefit   bool  `conf:"wallet.fail_on_no_benefit"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `conf:"log.level"`
	File  string `conf:"log.file"`
	JSON  bool   `conf:"log.json"`
}

// DefaultDataDir returns the platform-appropriate data directory.
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", "QiWallet")
	case "windows":
		if appData := os.Getenv("APPDATA"); appData != "" {
			return filepath.Join(appData, "QiWallet")
		}
		return filepath.Join(home, "QiWallet")
	default:
		return filepath.Join(home, ".qi-wallet")
	}
}

// KeystoreDir returns the keystore directory under the data dir.
func (c *Config) KeystoreDir() string {
	return filepath.Join(c.DataDir, "keystore")
}

// CacheDir returns the outpoint cache directory under the data dir.
func (c *Config) CacheDir() string {
	return filepath.Join(c.DataDir, "cache")
}

// ConfigFile returns the default config file path under the data dir.
func (c *Config) ConfigFile() string {
	return filepath.Join(c.DataDir, "qi-wallet.conf")
}
