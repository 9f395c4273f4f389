package config

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// LoadFile loads wallet configuration from a .conf file.
// Format: key = value (one per line, # for comments)
func LoadFile(path string) (map[string]string, error) {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return make(map[string]string), nil
		}
		return nil, err
	}
	defer file.Close()

	values := make(map[string]string)
	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		// Parse key = value
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("line %d: invalid format (expected key = value)", lineNum)
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		// Remove quotes if present
		if len(value) >= 2 {
			if (value[0] == '"' && value[len(value)-1] == '"') ||
				(value[0] == '\'' && value[len(value)-1] == '\'') {
				value = value[1 : len(value)-1]
			}
		}

		values[key] = value
	}

	return values, scanner.Err()
}

// ApplyFileConfig applies file configuration to a Config struct.
func ApplyFileConfig(cfg *Config, values map[string]string) error {
	for key, value := range values {
		if err := setConfigValue(cfg, key, value); err != nil {
			return fmt.Errorf("config key %q: %w", key, err)
		}
	}
	return nil
}

// setConfigValue sets a wallet config value by key.
func setConfigValue(cfg *Config, key, value string) error {
	switch key {
	// Core
	case "network":
		cfg.Network = NetworkType(value)
	case "datadir":
		cfg.DataDir = value

	// Provider
	case "rpc.endpoint":
		cfg.RPC.Endpoint = value
	case "rpc.ws":
		cfg.RPC.WSEndpoint = value
	case "rpc.timeout":
		n, err := strconv.Atoi(value)
		if err != nil {
			return err
		}
		cfg.RPC.TimeoutSec = n

	// Wallet
	case "wallet.gaplimit":
		n, err := strconv.Atoi(value)
		if err != nil {
			return err
		}
		cfg.Wallet.GapLimit = n
	case "wallet.account":
		n, err := strconv.ParseUint(value, 10, 32)
		if err != nil {
			return err
		}
		cfg.Wallet.Account = uint32(n)
	case "wallet.chainid":
		n, err := strconv.ParseUint(value, 10, 64)
		if err != nil {
			return err
		}
		cfg.Wallet.ChainID = n
	case "wallet.max_aggregate_denom":
		n, err := strconv.ParseUint(value, 10, 8)
		if err != nil {
			return err
		}
		cfg.Wallet.MaxAggregateDenom = uint8(n)
	case "wallet.max_output_denom":
		n, err := strconv.ParseUint(value, 10, 8)
		if err != nil {
			return err
		}
		cfg.Wallet.MaxOutputDenom = uint8(n)
	case "wallet.fail_on_no_benefit":
		cfg.Wallet.FailOnNoBenefit = parseBool(value)

	// Logging
	case "log.level":
		cfg.Log.Level = value
	case "log.file":
		cfg.Log.File = value
	case "log.json":
		cfg.Log.JSON = parseBool(value)

	default:
		// Unknown keys are ignored
	}
	return nil
}

// parseBool parses a boolean value.
func parseBool(s string) bool {
	s = strings.ToLower(s)
	return s == "true" || s == "1" || s == "yes" || s == "on"
}

// WriteDefaultConfig writes a default wallet configuration file.
func WriteDefaultConfig(path string, network NetworkType) error {
	content := `# Qi Wallet Configuration

# Network: mainnet or testnet
network = ` + string(network) + `

# Data directory (default: ~/.qi-wallet)
# datadir = ~/.qi-wallet

# ============================================================================
# Node Provider
# ============================================================================

rpc.endpoint = ` + defaultEndpoint(network) + `
rpc.ws = ` + defaultWSEndpoint(network) + `
# Request timeout in seconds
rpc.timeout = 10

# ============================================================================
# Wallet
# ============================================================================

# Unused-address window before a scan stops extending a bucket
wallet.gaplimit = 20

# BIP-44 account index
# wallet.account = 0

# Largest denomination index eligible for aggregation (7 = 1 Qi)
# wallet.max_aggregate_denom = 7

# Cap on aggregated output denominations (16 = uncapped)
# wallet.max_output_denom = 16

# Fail aggregation outright when it cannot reduce the UTXO count
# wallet.fail_on_no_benefit = false

# ============================================================================
# Logging
# ============================================================================

log.level = info
# log.file =
log.json = false
`
	return os.WriteFile(path, []byte(content), 0644)
}

func defaultEndpoint(network NetworkType) string {
	if network == Testnet {
		return "http://127.0.0.1:9201"
	}
	return "http://127.0.0.1:9200"
}

func defaultWSEndpoint(network NetworkType) string {
	if network == Testnet {
		return "ws://127.0.0.1:8201"
	}
	return "ws://127.0.0.1:8200"
}
