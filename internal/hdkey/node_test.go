package hdkey

import (
	"bytes"
	"errors"
	"testing"

	"github.com/tyler-smith/go-bip32"
	"github.com/tyler-smith/go-bip39"
)

// testSeed returns a deterministic seed from the BIP-39 test vector.
func testSeed(t *testing.T) []byte {
	t.Helper()
	mnemonic := "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about"
	seed, err := bip39.NewSeedWithErrorChecking(mnemonic, "TREZOR")
	if err != nil {
		t.Fatalf("derive seed: %v", err)
	}
	return seed
}

func testMaster(t *testing.T) *Node {
	t.Helper()
	master, err := NewMaster(testSeed(t))
	if err != nil {
		t.Fatalf("NewMaster: %v", err)
	}
	return master
}

func TestNewMaster(t *testing.T) {
	master := testMaster(t)
	if !master.IsPrivate() {
		t.Error("master should hold a private key")
	}
	if master.Depth() != 0 {
		t.Errorf("master depth = %d, want 0", master.Depth())
	}
	if len(master.PrivateKeyBytes()) != 32 {
		t.Errorf("private key length = %d, want 32", len(master.PrivateKeyBytes()))
	}
	if len(master.PublicKeyBytes()) != 33 {
		t.Errorf("public key length = %d, want 33", len(master.PublicKeyBytes()))
	}
}

func TestNewMasterInvalidSeed(t *testing.T) {
	for _, n := range []int{0, 8, 100} {
		if _, err := NewMaster(make([]byte, n)); err == nil {
			t.Errorf("seed of %d bytes should fail", n)
		}
	}
}

// Derivation must match the reference BIP-32 implementation for both
// hardened and normal children.
func TestDerivationMatchesBIP32(t *testing.T) {
	seed := testSeed(t)
	master := testMaster(t)
	refMaster, err := bip32.NewMasterKey(seed)
	if err != nil {
		t.Fatalf("bip32.NewMasterKey: %v", err)
	}

	paths := [][]uint32{
		{HardenedOffset + 44},
		{HardenedOffset + 44, HardenedOffset + 969, HardenedOffset},
		{HardenedOffset + 44, HardenedOffset + 969, HardenedOffset, 0, 5},
		{0, 1, 2},
	}
	for _, path := range paths {
		node, err := master.Derive(path...)
		if err != nil {
			t.Fatalf("Derive(%v): %v", path, err)
		}
		ref := refMaster
		for _, idx := range path {
			ref, err = ref.NewChildKey(idx)
			if err != nil {
				t.Fatalf("bip32 NewChildKey(%d): %v", idx, err)
			}
		}
		if !bytes.Equal(node.PublicKeyBytes(), ref.PublicKey().Key) {
			t.Errorf("path %v: public key differs from reference", path)
		}
		if !bytes.Equal(node.ChainCode(), ref.ChainCode) {
			t.Errorf("path %v: chain code differs from reference", path)
		}
	}
}

func TestDeriveDeterministic(t *testing.T) {
	master := testMaster(t)
	a, err := master.DerivePath("m/44'/969'/0'/0/7")
	if err != nil {
		t.Fatalf("DerivePath: %v", err)
	}
	b, err := master.DerivePath("m/44'/969'/0'/0/7")
	if err != nil {
		t.Fatalf("DerivePath: %v", err)
	}
	if !bytes.Equal(a.PrivateKeyBytes(), b.PrivateKeyBytes()) {
		t.Error("repeated derivation produced different private keys")
	}
	if !bytes.Equal(a.ChainCode(), b.ChainCode()) {
		t.Error("repeated derivation produced different chain codes")
	}
	if a.QiAddress() != b.QiAddress() {
		t.Error("repeated derivation produced different addresses")
	}
}

func TestDerivePairwiseDistinct(t *testing.T) {
	master := testMaster(t)
	seen := make(map[string]string)
	for account := uint32(0); account < 2; account++ {
		for change := uint32(0); change < 2; change++ {
			for index := uint32(0); index < 5; index++ {
				node, err := master.Derive(
					PurposeBIP44, CoinTypeQi, HardenedOffset+account, change, index,
				)
				if err != nil {
					t.Fatalf("Derive(%d,%d,%d): %v", account, change, index, err)
				}
				key := string(node.PublicKeyBytes())
				at := node.QiAddress().String()
				if prev, dup := seen[key]; dup {
					t.Fatalf("duplicate public key for %s and %s", prev, at)
				}
				seen[key] = at
			}
		}
	}
}

func TestNeuteredDerivation(t *testing.T) {
	master := testMaster(t)
	account, err := master.DeriveQiAccount(0)
	if err != nil {
		t.Fatalf("DeriveQiAccount: %v", err)
	}

	neutered := account.Neuter()
	if neutered.IsPrivate() {
		t.Fatal("neutered node still private")
	}
	if _, err := neutered.Signer(); err == nil {
		t.Error("Signer on neutered node should fail")
	}

	// Non-hardened derivation must agree between full and neutered nodes.
	full, err := account.Derive(ChangeExternal, 3)
	if err != nil {
		t.Fatalf("derive from full node: %v", err)
	}
	watch, err := neutered.Derive(ChangeExternal, 3)
	if err != nil {
		t.Fatalf("derive from neutered node: %v", err)
	}
	if !bytes.Equal(full.PublicKeyBytes(), watch.PublicKeyBytes()) {
		t.Error("neutered derivation disagrees with private derivation")
	}
	if !bytes.Equal(full.ChainCode(), watch.ChainCode()) {
		t.Error("neutered chain code disagrees with private derivation")
	}

	// Hardened derivation on a neutered node must fail.
	if _, err := neutered.DeriveHardened(0); !errors.Is(err, ErrNeutered) {
		t.Errorf("expected ErrNeutered, got %v", err)
	}
	if _, err := neutered.DerivePath("m/0'"); !errors.Is(err, ErrNeutered) {
		t.Errorf("expected ErrNeutered via path, got %v", err)
	}
}

func TestParsePath(t *testing.T) {
	tests := []struct {
		path    string
		want    []uint32
		wantErr bool
	}{
		{"m/44'/969'/0'/0/5", []uint32{PurposeBIP44, CoinTypeQi, HardenedOffset, 0, 5}, false},
		{"44'/969'", []uint32{PurposeBIP44, CoinTypeQi}, false},
		{"m/0h/1", []uint32{HardenedOffset, 1}, false},
		{"", nil, true},
		{"m", nil, true},
		{"m//1", nil, true},
		{"m/abc", nil, true},
		{"m/2147483648", nil, true},
	}
	for _, tt := range tests {
		got, err := ParsePath(tt.path)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParsePath(%q) should fail", tt.path)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParsePath(%q): %v", tt.path, err)
			continue
		}
		if len(got) != len(tt.want) {
			t.Errorf("ParsePath(%q) = %v, want %v", tt.path, got, tt.want)
			continue
		}
		for i := range got {
			if got[i] != tt.want[i] {
				t.Errorf("ParsePath(%q) = %v, want %v", tt.path, got, tt.want)
				break
			}
		}
	}
}

func TestNodeMetadata(t *testing.T) {
	master := testMaster(t)
	child, err := master.Derive(PurposeBIP44, CoinTypeQi)
	if err != nil {
		t.Fatalf("Derive: %v", err)
	}
	if child.Depth() != 2 {
		t.Errorf("depth = %d, want 2", child.Depth())
	}
	if child.Index() != CoinTypeQi {
		t.Errorf("index = %d, want %d", child.Index(), CoinTypeQi)
	}
	if child.ParentFingerprint() == 0 {
		t.Error("parent fingerprint should be set")
	}
}
