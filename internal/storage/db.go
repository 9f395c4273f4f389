// Package storage provides the key-value stores backing the wallet's
// outpoint cache.
package storage

import "errors"

// ErrKeyNotFound is returned by Get when the key is absent.
var ErrKeyNotFound = errors.New("key not found")

// DB is the interface for key-value storage.
type DB interface {
	Get(key []byte) ([]byte, error)
	Put(key, value []byte) error
	Delete(key []byte) error
	Has(key []byte) (bool, error)
	// ForEach iterates over all keys with the given prefix in ascending
	// key order. Return a non-nil error from fn to stop iteration early.
	ForEach(prefix []byte, fn func(key, value []byte) error) error
	// DeletePrefix removes every key under the prefix. Scan commits use
	// it to rewrite a zone's cached outpoints in one sweep.
	DeletePrefix(prefix []byte) error
	Close() error
}
