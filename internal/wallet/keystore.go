package wallet

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// keystoreFile is the on-disk JSON envelope for an encrypted wallet.
type keystoreFile struct {
	Version         int       `json:"version"`
	CreatedAt       time.Time `json:"created_at"`
	EncryptedWallet []byte    `json:"encrypted_wallet"`
}

// Keystore manages encrypted wallet files on disk. The payload is the
// wallet's serialized form, encrypted under a passphrase.
type Keystore struct {
	path string
}

// NewKeystore creates a keystore that reads/writes to the given directory.
// The directory is created if it doesn't exist.
func NewKeystore(path string) (*Keystore, error) {
	if err := os.MkdirAll(path, 0700); err != nil {
		return nil, fmt.Errorf("create keystore dir: %w", err)
	}
	return &Keystore{path: path}, nil
}

// walletPath returns the file path for a wallet by name.
func (ks *Keystore) walletPath(name string) string {
	return filepath.Join(ks.path, name+".wallet")
}

// Create encrypts and writes a new wallet file. Fails if a wallet with the
// same name already exists.
func (ks *Keystore) Create(name string, w *Wallet, password []byte, params EncryptionParams) error {
	path := ks.walletPath(name)
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("wallet %q already exists", name)
	}
	return ks.write(path, w, password, params)
}

// Save overwrites an existing wallet file with the wallet's current state.
func (ks *Keystore) Save(name string, w *Wallet, password []byte, params EncryptionParams) error {
	return ks.write(ks.walletPath(name), w, password, params)
}

func (ks *Keystore) write(path string, w *Wallet, password []byte, params EncryptionParams) error {
	serialized, err := w.Serialize()
	if err != nil {
		return fmt.Errorf("serialize wallet: %w", err)
	}
	encrypted, err := Encrypt(serialized, password, params)
	if err != nil {
		return fmt.Errorf("encrypt wallet: %w", err)
	}

	kf := keystoreFile{
		Version:         1,
		CreatedAt:       time.Now().UTC(),
		EncryptedWallet: encrypted,
	}
	data, err := json.MarshalIndent(&kf, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal wallet file: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("write wallet file: %w", err)
	}
	return nil
}

// Load decrypts a wallet file and returns the serialized wallet bytes.
// The caller reconstructs the wallet via Deserialize.
func (ks *Keystore) Load(name string, password []byte) ([]byte, error) {
	data, err := os.ReadFile(ks.walletPath(name))
	if err != nil {
		return nil, fmt.Errorf("read wallet file: %w", err)
	}
	var kf keystoreFile
	if err := json.Unmarshal(data, &kf); err != nil {
		return nil, fmt.Errorf("parse wallet file: %w", err)
	}
	if kf.Version != 1 {
		return nil, fmt.Errorf("unsupported wallet file version: %d", kf.Version)
	}

	serialized, err := Decrypt(kf.EncryptedWallet, password)
	if err != nil {
		return nil, fmt.Errorf("decrypt wallet: %w", err)
	}
	return serialized, nil
}

// List returns the names of all wallet files in the keystore.
func (ks *Keystore) List() ([]string, error) {
	entries, err := os.ReadDir(ks.path)
	if err != nil {
		return nil, fmt.Errorf("read keystore dir: %w", err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if ext := filepath.Ext(name); ext == ".wallet" {
			names = append(names, name[:len(name)-len(ext)])
		}
	}
	return names, nil
}

// Delete removes a wallet file.
func (ks *Keystore) Delete(name string) error {
	path := ks.walletPath(name)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return fmt.Errorf("wallet %q not found", name)
	}
	return os.Remove(path)
}
