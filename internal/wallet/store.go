package wallet

import (
	"encoding/binary"
	"encoding/json"
	"fmt"

	"github.com/quainet/qi-wallet/internal/log"
	"github.com/quainet/qi-wallet/internal/storage"
	"github.com/quainet/qi-wallet/pkg/types"
)

// prefixOutpoint keys cached outpoints:
// o/<zone(1)><addr(20)><txhash(32)><index(2)> -> OutpointInfo JSON.
var prefixOutpoint = []byte("o/")

// OutpointStore is an optional persistent cache of the outpoint ledger so a
// restarted wallet can skip the initial full rescan. The in-memory ledger
// stays authoritative; the cache is rewritten after each scan.
type OutpointStore struct {
	db storage.DB
}

// NewOutpointStore creates a cache backed by the given database.
func NewOutpointStore(db storage.DB) *OutpointStore {
	return &OutpointStore{db: db}
}

// outpointKey builds the storage key for one cached outpoint.
func outpointKey(info types.OutpointInfo) []byte {
	key := make([]byte, 0, len(prefixOutpoint)+1+types.AddressSize+types.HashSize+2)
	key = append(key, prefixOutpoint...)
	key = append(key, byte(info.Zone))
	key = append(key, info.Address[:]...)
	key = append(key, info.Outpoint.TxHash[:]...)
	key = binary.BigEndian.AppendUint16(key, info.Outpoint.Index)
	return key
}

// zonePrefix returns the key prefix covering one zone.
func zonePrefix(zone types.Zone) []byte {
	prefix := make([]byte, 0, len(prefixOutpoint)+1)
	prefix = append(prefix, prefixOutpoint...)
	prefix = append(prefix, byte(zone))
	return prefix
}

// Put caches one outpoint.
func (s *OutpointStore) Put(info types.OutpointInfo) error {
	data, err := json.Marshal(info)
	if err != nil {
		return fmt.Errorf("outpoint marshal: %w", err)
	}
	if err := s.db.Put(outpointKey(info), data); err != nil {
		return fmt.Errorf("outpoint put: %w", err)
	}
	return nil
}

// Delete drops one outpoint from the cache.
func (s *OutpointStore) Delete(info types.OutpointInfo) error {
	if err := s.db.Delete(outpointKey(info)); err != nil {
		return fmt.Errorf("outpoint delete: %w", err)
	}
	return nil
}

// LoadZone returns the cached outpoints for a zone.
func (s *OutpointStore) LoadZone(zone types.Zone) ([]types.OutpointInfo, error) {
	var out []types.OutpointInfo
	err := s.db.ForEach(zonePrefix(zone), func(_, value []byte) error {
		var info types.OutpointInfo
		if err := json.Unmarshal(value, &info); err != nil {
			return fmt.Errorf("outpoint unmarshal: %w", err)
		}
		out = append(out, info)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan outpoint cache: %w", err)
	}
	return out, nil
}

// ReplaceZone rewrites the zone's cache with the given outpoint set.
func (s *OutpointStore) ReplaceZone(zone types.Zone, outpoints []types.OutpointInfo) error {
	if err := s.db.DeletePrefix(zonePrefix(zone)); err != nil {
		return fmt.Errorf("clear outpoint cache: %w", err)
	}
	for _, info := range outpoints {
		if err := s.Put(info); err != nil {
			return err
		}
	}
	log.Storage.Debug().
		Str("zone", zone.String()).
		Int("outpoints", len(outpoints)).
		Msg("outpoint cache rewritten")
	return nil
}
