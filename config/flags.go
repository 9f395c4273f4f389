package config

import (
	"flag"
	"fmt"
	"os"
	"strings"
)

// Flags holds parsed command-line flags.
type Flags struct {
	// Commands
	Help    bool
	Version bool

	// Core
	Network string
	DataDir string
	Config  string

	// Provider
	Endpoint   string
	WSEndpoint string
	Timeout    int

	// Wallet
	Name              string
	GapLimit          int
	Account           uint
	MaxAggregateDenom uint
	MaxOutputDenom    uint
	FailOnNoBenefit   bool

	// Logging
	LogLevel string
	LogFile  string
	LogJSON  bool

	// Remaining args (subcommand and its arguments)
	Args []string

	// Explicitly-set flags whose zero value is meaningful.
	SetGapLimit          bool
	SetMaxAggregateDenom bool
	SetMaxOutputDenom    bool
	SetFailOnNoBenefit   bool
	SetLogJSON           bool
}

// ParseFlags parses command-line flags.
func ParseFlags(args []string) (*Flags, error) {
	f := &Flags{}
	fs := flag.NewFlagSet("qi-wallet", flag.ContinueOnError)

	// Commands
	fs.BoolVar(&f.Help, "help", false, "Show help message")
	fs.BoolVar(&f.Help, "h", false, "Show help message (shorthand)")
	fs.BoolVar(&f.Version, "version", false, "Show version information")

	// Core
	fs.StringVar(&f.Network, "network", "", "Network type (mainnet or testnet)")
	fs.BoolVar(new(bool), "testnet", false, "Use testnet (shorthand for --network=testnet)")
	fs.StringVar(&f.DataDir, "datadir", "", "Data directory path")
	fs.StringVar(&f.Config, "config", "", "Config file path")
	fs.StringVar(&f.Config, "c", "", "Config file path (shorthand)")

	// Provider
	fs.StringVar(&f.Endpoint, "endpoint", "", "Node JSON-RPC endpoint URL")
	fs.StringVar(&f.WSEndpoint, "ws-endpoint", "", "Node WebSocket endpoint URL")
	fs.IntVar(&f.Timeout, "timeout", 0, "RPC request timeout in seconds")

	// Wallet
	fs.StringVar(&f.Name, "wallet", "default", "Wallet name within the keystore")
	fs.StringVar(&f.Name, "w", "default", "Wallet name (shorthand)")
	fs.IntVar(&f.GapLimit, "gap-limit", 0, "Unused-address window for scans")
	fs.UintVar(&f.Account, "account", 0, "BIP-44 account index")
	fs.UintVar(&f.MaxAggregateDenom, "max-aggregate-denom", 0, "Largest denomination index eligible for aggregation")
	fs.UintVar(&f.MaxOutputDenom, "max-output-denom", 0, "Cap on aggregated output denominations")
	fs.BoolVar(&f.FailOnNoBenefit, "fail-on-no-benefit", false, "Fail aggregation when it cannot reduce the UTXO count")

	// Logging
	fs.StringVar(&f.LogLevel, "log-level", "", "Log level (debug, info, warn, error)")
	fs.StringVar(&f.LogFile, "log-file", "", "Log file path")
	fs.BoolVar(&f.LogJSON, "log-json", false, "Output logs as JSON")

	fs.Usage = func() {
		printUsage()
	}

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	// Handle --testnet shorthand
	if isFlagSet(fs, "testnet") {
		f.Network = "testnet"
	}
	f.SetGapLimit = isFlagSet(fs, "gap-limit")
	f.SetMaxAggregateDenom = isFlagSet(fs, "max-aggregate-denom")
	f.SetMaxOutputDenom = isFlagSet(fs, "max-output-denom")
	f.SetFailOnNoBenefit = isFlagSet(fs, "fail-on-no-benefit")
	f.SetLogJSON = isFlagSet(fs, "log-json")

	f.Args = fs.Args()

	return f, nil
}

// ApplyFlags applies command-line flags to a Config struct.
func ApplyFlags(cfg *Config, f *Flags) {
	// Core
	if f.Network != "" {
		cfg.Network = NetworkType(f.Network)
	}
	if f.DataDir != "" {
		cfg.DataDir = f.DataDir
	}

	// Provider
	if f.Endpoint != "" {
		cfg.RPC.Endpoint = f.Endpoint
	}
	if f.WSEndpoint != "" {
		cfg.RPC.WSEndpoint = f.WSEndpoint
	}
	if f.Timeout != 0 {
		cfg.RPC.TimeoutSec = f.Timeout
	}

	// Wallet
	if f.SetGapLimit {
		cfg.Wallet.GapLimit = f.GapLimit
	}
	if f.Account != 0 {
		cfg.Wallet.Account = uint32(f.Account)
	}
	if f.SetMaxAggregateDenom {
		cfg.Wallet.MaxAggregateDenom = uint8(f.MaxAggregateDenom)
	}
	if f.SetMaxOutputDenom {
		cfg.Wallet.MaxOutputDenom = uint8(f.MaxOutputDenom)
	}
	if f.SetFailOnNoBenefit {
		cfg.Wallet.FailOnNoBenefit = f.FailOnNoBenefit
	}

	// Logging
	if f.LogLevel != "" {
		cfg.Log.Level = f.LogLevel
	}
	if f.LogFile != "" {
		cfg.Log.File = f.LogFile
	}
	if f.SetLogJSON {
		cfg.Log.JSON = f.LogJSON
	}
}

// isFlagSet checks if a flag was explicitly set.
func isFlagSet(fs *flag.FlagSet, name string) bool {
	found := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == name {
			found = true
		}
	})
	return found
}

func printUsage() {
	usage := `Qi Wallet - UTXO wallet for the Qi ledger

Usage:
  qi-wallet [options] <command> [args]

Commands:
  new                      Create a new wallet
  restore <mnemonic...>    Restore a wallet from a mnemonic phrase
  addresses                List wallet addresses
  scan <zone>              Full scan of a zone with gap-limit discovery
  balance <zone>           Show spendable balance in a zone
  send <code> <amount> <from-zone> <to-zone>
                           Send Qi through a payment channel
  convert <address> <amount>
                           Convert Qi to Quai at a Quai address
  aggregate <zone>         Consolidate small denominations
  channel-open <code>      Open a payment channel to a counterparty
  import-key <hex>         Import a raw private key

Core Options:
  --network       Network type: mainnet (default) or testnet
  --testnet       Shorthand for --network=testnet
  --datadir       Data directory (default: ~/.qi-wallet)
  --config, -c    Config file path (default: <datadir>/qi-wallet.conf)
  --wallet, -w    Wallet name within the keystore (default: default)

Provider Options:
  --endpoint      Node JSON-RPC endpoint URL
  --ws-endpoint   Node WebSocket endpoint URL
  --timeout       RPC request timeout in seconds (default: 10)

Wallet Options:
  --gap-limit             Unused-address window for scans (default: 20)
  --account               BIP-44 account index (default: 0)
  --max-aggregate-denom   Largest denomination index eligible for aggregation
  --max-output-denom      Cap on aggregated output denominations
  --fail-on-no-benefit    Fail aggregation when it cannot reduce the UTXO count

Logging Options:
  --log-level     Log level: debug, info, warn, error (default: info)
  --log-file      Log file path (default: stderr)
  --log-json      Output logs as JSON

Examples:
  # Create a wallet and show its first address
  qi-wallet new
  qi-wallet addresses

  # Scan a zone and check the balance
  qi-wallet scan cyprus1
  qi-wallet balance cyprus1

  # Send 150 qits through a payment channel
  qi-wallet send <payment-code> 150 cyprus1 cyprus1
`
	fmt.Print(usage)
}

// Load loads configuration with the following precedence:
// 1. Default values
// 2. Config file
// 3. Command-line flags
func Load(args []string) (*Config, *Flags, error) {
	flags, err := ParseFlags(args)
	if err != nil {
		return nil, nil, err
	}

	// Determine network first (needed for defaults)
	network := Mainnet
	if strings.ToLower(flags.Network) == "testnet" {
		network = Testnet
	}

	cfg := Default(network)

	if flags.DataDir != "" {
		cfg.DataDir = flags.DataDir
	}

	// Auto-create the data directory and a default config on first run.
	if err := EnsureDataDirs(cfg); err != nil {
		return nil, nil, fmt.Errorf("ensuring data dirs: %w", err)
	}

	configPath := flags.Config
	if configPath == "" {
		configPath = cfg.ConfigFile()
	}

	fileValues, err := LoadFile(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("loading config file: %w", err)
	}
	if err := ApplyFileConfig(cfg, fileValues); err != nil {
		return nil, nil, fmt.Errorf("applying config file: %w", err)
	}

	ApplyFlags(cfg, flags)
	if err := Validate(cfg); err != nil {
		return nil, nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, flags, nil
}

// PrintUsage prints the command-line usage text.
func PrintUsage() {
	printUsage()
}

// EnsureDataDirs creates the data directory structure and a default config
// file if they don't already exist. Idempotent.
func EnsureDataDirs(cfg *Config) error {
	dirs := []string{
		cfg.DataDir,
		cfg.KeystoreDir(),
		cfg.CacheDir(),
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return fmt.Errorf("creating directory %s: %w", dir, err)
		}
	}

	configPath := cfg.ConfigFile()
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		if err := WriteDefaultConfig(configPath, cfg.Network); err != nil {
			return fmt.Errorf("writing config file: %w", err)
		}
	}
	return nil
}
