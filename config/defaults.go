package config

// DefaultMainnet returns the default wallet configuration for mainnet.
func DefaultMainnet() *Config {
	return &Config{
		Network: Mainnet,
		DataDir: DefaultDataDir(),
		RPC: RPCConfig{
			Endpoint:   "http://127.0.0.1:9200",
			WSEndpoint: "ws://127.0.0.1:8200",
			TimeoutSec: 10,
		},
		Wallet: WalletConfig{
			GapLimit:          20,
			ChainID:           9,
			MaxAggregateDenom: 7,  // 1 Qi
			MaxOutputDenom:    16, // uncapped
		},
		Log: LogConfig{
			Level: "info",
			JSON:  false,
		},
	}
}

// DefaultTestnet returns the default wallet configuration for testnet.
func DefaultTestnet() *Config {
	cfg := DefaultMainnet()
	cfg.Network = Testnet
	cfg.RPC.Endpoint = "http://127.0.0.1:9201"
	cfg.RPC.WSEndpoint = "ws://127.0.0.1:8201"
	cfg.Wallet.ChainID = 12000
	return cfg
}

// Default returns the default configuration for the given network.
func Default(network NetworkType) *Config {
	switch network {
	case Testnet:
		return DefaultTestnet()
	default:
		return DefaultMainnet()
	}
}
