package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConf(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "qi-wallet.conf")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("writing conf: %v", err)
	}
	return path
}

func TestLoadFile_ParsesKeyValues(t *testing.T) {
	path := writeConf(t, `
# comment
network = testnet

rpc.endpoint = "http://node.example.com:9200"
wallet.gaplimit = 40
log.json = true
`)
	values, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	want := map[string]string{
		"network":         "testnet",
		"rpc.endpoint":    "http://node.example.com:9200",
		"wallet.gaplimit": "40",
		"log.json":        "true",
	}
	for k, v := range want {
		if values[k] != v {
			t.Errorf("values[%q] = %q, want %q", k, values[k], v)
		}
	}
}

func TestLoadFile_MissingFileReturnsEmpty(t *testing.T) {
	values, err := LoadFile(filepath.Join(t.TempDir(), "nope.conf"))
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if len(values) != 0 {
		t.Errorf("values = %v, want empty", values)
	}
}

func TestLoadFile_RejectsMalformedLine(t *testing.T) {
	path := writeConf(t, "this is not a key value pair\n")
	if _, err := LoadFile(path); err == nil {
		t.Error("LoadFile should reject a line without =")
	}
}

func TestApplyFileConfig(t *testing.T) {
	cfg := DefaultMainnet()
	err := ApplyFileConfig(cfg, map[string]string{
		"network":                    "testnet",
		"rpc.endpoint":               "http://10.0.0.5:9200",
		"rpc.timeout":                "30",
		"wallet.gaplimit":            "5",
		"wallet.max_aggregate_denom": "4",
		"wallet.fail_on_no_benefit":  "yes",
		"log.level":                  "debug",
		"some.unknown.key":           "ignored",
	})
	if err != nil {
		t.Fatalf("ApplyFileConfig: %v", err)
	}
	if cfg.Network != Testnet {
		t.Errorf("Network = %q, want testnet", cfg.Network)
	}
	if cfg.RPC.Endpoint != "http://10.0.0.5:9200" {
		t.Errorf("Endpoint = %q", cfg.RPC.Endpoint)
	}
	if cfg.RPC.TimeoutSec != 30 {
		t.Errorf("TimeoutSec = %d, want 30", cfg.RPC.TimeoutSec)
	}
	if cfg.Wallet.GapLimit != 5 {
		t.Errorf("GapLimit = %d, want 5", cfg.Wallet.GapLimit)
	}
	if cfg.Wallet.MaxAggregateDenom != 4 {
		t.Errorf("MaxAggregateDenom = %d, want 4", cfg.Wallet.MaxAggregateDenom)
	}
	if !cfg.Wallet.FailOnNoBenefit {
		t.Error("FailOnNoBenefit should be true")
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("Log.Level = %q, want debug", cfg.Log.Level)
	}
}

func TestApplyFileConfig_BadInt(t *testing.T) {
	cfg := DefaultMainnet()
	if err := ApplyFileConfig(cfg, map[string]string{"wallet.gaplimit": "lots"}); err == nil {
		t.Error("non-numeric gaplimit should fail")
	}
}

func TestApplyFlags_OverridesFileConfig(t *testing.T) {
	cfg := DefaultMainnet()
	cfg.Wallet.GapLimit = 40
	cfg.Log.Level = "warn"

	flags, err := ParseFlags([]string{"--gap-limit=7", "--log-level=debug", "balance", "cyprus1"})
	if err != nil {
		t.Fatalf("ParseFlags: %v", err)
	}
	ApplyFlags(cfg, flags)

	if cfg.Wallet.GapLimit != 7 {
		t.Errorf("GapLimit = %d, want 7", cfg.Wallet.GapLimit)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("Log.Level = %q, want debug", cfg.Log.Level)
	}
	if len(flags.Args) != 2 || flags.Args[0] != "balance" {
		t.Errorf("Args = %v, want [balance cyprus1]", flags.Args)
	}
}

func TestParseFlags_TestnetShorthand(t *testing.T) {
	flags, err := ParseFlags([]string{"--testnet"})
	if err != nil {
		t.Fatalf("ParseFlags: %v", err)
	}
	if flags.Network != "testnet" {
		t.Errorf("Network = %q, want testnet", flags.Network)
	}
}

func TestParseFlags_UnsetKnobsDoNotOverride(t *testing.T) {
	cfg := DefaultMainnet()
	cfg.Wallet.MaxOutputDenom = 9

	flags, err := ParseFlags(nil)
	if err != nil {
		t.Fatalf("ParseFlags: %v", err)
	}
	ApplyFlags(cfg, flags)
	if cfg.Wallet.MaxOutputDenom != 9 {
		t.Errorf("MaxOutputDenom = %d, unset flag should not override", cfg.Wallet.MaxOutputDenom)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults are valid", func(c *Config) {}, false},
		{"unknown network", func(c *Config) { c.Network = "devnet" }, true},
		{"empty endpoint", func(c *Config) { c.RPC.Endpoint = "" }, true},
		{"non-http endpoint", func(c *Config) { c.RPC.Endpoint = "tcp://x" }, true},
		{"bad ws endpoint", func(c *Config) { c.RPC.WSEndpoint = "http://x" }, true},
		{"empty ws endpoint ok", func(c *Config) { c.RPC.WSEndpoint = "" }, false},
		{"zero timeout", func(c *Config) { c.RPC.TimeoutSec = 0 }, true},
		{"zero gap limit", func(c *Config) { c.Wallet.GapLimit = 0 }, true},
		{"aggregate denom too large", func(c *Config) { c.Wallet.MaxAggregateDenom = 17 }, true},
		{"output denom too large", func(c *Config) { c.Wallet.MaxOutputDenom = 200 }, true},
		{"unknown log level", func(c *Config) { c.Log.Level = "loud" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultMainnet()
			tt.mutate(cfg)
			err := Validate(cfg)
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestDefaults(t *testing.T) {
	mainnet := DefaultMainnet()
	if err := Validate(mainnet); err != nil {
		t.Errorf("mainnet defaults invalid: %v", err)
	}
	testnet := DefaultTestnet()
	if err := Validate(testnet); err != nil {
		t.Errorf("testnet defaults invalid: %v", err)
	}
	if mainnet.Wallet.ChainID == testnet.Wallet.ChainID {
		t.Error("mainnet and testnet should have distinct chain IDs")
	}
	if got := Default(Testnet).Network; got != Testnet {
		t.Errorf("Default(Testnet).Network = %q", got)
	}
}

func TestWriteDefaultConfig_RoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "qi-wallet.conf")
	if err := WriteDefaultConfig(path, Testnet); err != nil {
		t.Fatalf("WriteDefaultConfig: %v", err)
	}
	values, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	cfg := DefaultMainnet()
	if err := ApplyFileConfig(cfg, values); err != nil {
		t.Fatalf("ApplyFileConfig: %v", err)
	}
	if cfg.Network != Testnet {
		t.Errorf("Network = %q, want testnet", cfg.Network)
	}
	if err := Validate(cfg); err != nil {
		t.Errorf("written defaults invalid: %v", err)
	}
}
