package storage

import (
	"sort"
	"strings"
)

// MemoryDB is a map-backed DB. Tests and ephemeral wallets use it in
// place of an on-disk cache.
type MemoryDB struct {
	data map[string][]byte
}

// NewMemory creates an empty in-memory database.
func NewMemory() *MemoryDB {
	return &MemoryDB{data: make(map[string][]byte)}
}

// Get retrieves a value by key.
func (m *MemoryDB) Get(key []byte) ([]byte, error) {
	v, ok := m.data[string(key)]
	if !ok {
		return nil, ErrKeyNotFound
	}
	return v, nil
}

// Put stores a key-value pair.
func (m *MemoryDB) Put(key, value []byte) error {
	m.data[string(key)] = value
	return nil
}

// Delete removes a key.
func (m *MemoryDB) Delete(key []byte) error {
	delete(m.data, string(key))
	return nil
}

// Has checks if a key exists.
func (m *MemoryDB) Has(key []byte) (bool, error) {
	_, ok := m.data[string(key)]
	return ok, nil
}

// matching returns the keys under prefix in ascending order. Sorting
// keeps iteration order identical to the on-disk implementation.
func (m *MemoryDB) matching(prefix []byte) []string {
	p := string(prefix)
	var keys []string
	for k := range m.data {
		if strings.HasPrefix(k, p) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}

// ForEach iterates over all keys with the given prefix in ascending
// key order.
func (m *MemoryDB) ForEach(prefix []byte, fn func(key, value []byte) error) error {
	for _, k := range m.matching(prefix) {
		if err := fn([]byte(k), m.data[k]); err != nil {
			return err
		}
	}
	return nil
}

// DeletePrefix removes every key under the prefix.
func (m *MemoryDB) DeletePrefix(prefix []byte) error {
	for _, k := range m.matching(prefix) {
		delete(m.data, k)
	}
	return nil
}

// Close is a no-op.
func (m *MemoryDB) Close() error {
	return nil
}
