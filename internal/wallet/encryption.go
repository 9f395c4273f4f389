package wallet

import (
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"
)

// Encrypted wallet envelope:
//
//	version(1) | salt(32) | memory(4 LE) | iterations(4 LE) | parallelism(1) | nonce(24) | ciphertext
//
// The whole prefix up to the ciphertext is bound into the AEAD as
// associated data, so tampering with the KDF parameters or the version
// byte fails authentication instead of silently deriving a wrong key.
const (
	envelopeVersion = 1

	SaltSize   = 32
	headerSize = 1 + SaltSize + 4 + 4 + 1
)

// ErrUnsupportedEnvelope reports an encrypted wallet written by a newer
// format than this build understands.
var ErrUnsupportedEnvelope = errors.New("unsupported wallet envelope version")

// EncryptionParams holds Argon2id parameters.
type EncryptionParams struct {
	Memory      uint32 // in KiB
	Iterations  uint32
	Parallelism uint8
}

// DefaultParams returns recommended Argon2id parameters.
func DefaultParams() EncryptionParams {
	return EncryptionParams{
		Memory:      64 * 1024, // 64 MB
		Iterations:  3,
		Parallelism: 4,
	}
}

func deriveKey(password, salt []byte, params EncryptionParams) []byte {
	return argon2.IDKey(
		password,
		salt,
		params.Iterations,
		params.Memory,
		params.Parallelism,
		chacha20poly1305.KeySize,
	)
}

func zeroKey(key []byte) {
	for i := range key {
		key[i] = 0
	}
}

// Encrypt seals the serialized wallet under a passphrase with
// Argon2id + XChaCha20-Poly1305.
func Encrypt(data, password []byte, params EncryptionParams) ([]byte, error) {
	salt := make([]byte, SaltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("generate salt: %w", err)
	}

	key := deriveKey(password, salt, params)
	defer zeroKey(key)

	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}
	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}

	header := make([]byte, 0, headerSize+len(nonce))
	header = append(header, envelopeVersion)
	header = append(header, salt...)
	header = binary.LittleEndian.AppendUint32(header, params.Memory)
	header = binary.LittleEndian.AppendUint32(header, params.Iterations)
	header = append(header, params.Parallelism)
	header = append(header, nonce...)

	return aead.Seal(header, nonce, data, header), nil
}

// Decrypt opens an envelope produced by Encrypt with the given passphrase.
func Decrypt(encrypted, password []byte) ([]byte, error) {
	nonceSize := chacha20poly1305.NonceSizeX
	minSize := headerSize + nonceSize + chacha20poly1305.Overhead
	if len(encrypted) < minSize {
		return nil, fmt.Errorf("encrypted wallet too short: %d bytes, need at least %d", len(encrypted), minSize)
	}
	if v := encrypted[0]; v != envelopeVersion {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedEnvelope, v)
	}

	salt := encrypted[1 : 1+SaltSize]
	params := EncryptionParams{
		Memory:      binary.LittleEndian.Uint32(encrypted[1+SaltSize:]),
		Iterations:  binary.LittleEndian.Uint32(encrypted[1+SaltSize+4:]),
		Parallelism: encrypted[1+SaltSize+8],
	}
	header := encrypted[:headerSize+nonceSize]
	nonce := encrypted[headerSize : headerSize+nonceSize]
	ciphertext := encrypted[headerSize+nonceSize:]

	key := deriveKey(password, salt, params)
	defer zeroKey(key)

	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}
	plaintext, err := aead.Open(nil, nonce, ciphertext, header)
	if err != nil {
		return nil, fmt.Errorf("decrypt wallet: %w", err)
	}
	return plaintext, nil
}
