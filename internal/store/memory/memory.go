// Package memory implements store.Store with a mutex-guarded in-memory
// map. It backs the component tests in internal/chain and is a legitimate
// backend in its own right for single-process deployments that don't need
// durability.
package memory

import (
	"sync"
	"time"

	"github.com/milanterhes/utxo-indexer/internal/store"
)

var zeroTime time.Time

func nowFunc() time.Time { return time.Now() }

type key struct {
	txid string
	vout uint64
}

// Store is a sync.RWMutex-guarded map keyed by (txid, vout), the way
// Klingon-tech-klingnet's storage.MemoryDB backs its DB interface with a
// map, extended here with locking since this Store is shared between
// concurrent balance readers and the gated writer.
type Store struct {
	mu      sync.RWMutex
	records map[key]store.UTXO
}

// New constructs an empty in-memory store.
func New() *Store {
	return &Store{records: make(map[key]store.UTXO)}
}

func (s *Store) Insert(record store.UTXO) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := key{txid: record.TxID, vout: record.Vout}
	if _, exists := s.records[k]; exists {
		return &store.DuplicateError{TxID: record.TxID, Vout: record.Vout}
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = nowFunc()
	}
	s.records[k] = record
	return nil
}

func (s *Store) FindUnspent(refs []store.OutRef) ([]store.UTXO, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]store.UTXO, 0, len(refs))
	for _, ref := range refs {
		rec, ok := s.records[key{txid: ref.TxID, vout: ref.Vout}]
		if !ok || rec.Spent {
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}

func (s *Store) MarkSpent(txid string, vout uint64, spendingTxID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := key{txid: txid, vout: vout}
	rec, ok := s.records[k]
	if !ok || rec.Spent {
		return store.ErrNotFound
	}
	rec.Spent = true
	rec.SpentTxID = spendingTxID
	rec.SpentAt = nowFunc()
	s.records[k] = rec
	return nil
}

func (s *Store) Balance(address string) (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var sum uint64
	for _, rec := range s.records {
		if rec.Address == address && !rec.Spent {
			sum += rec.Value
		}
	}
	return sum, nil
}

func (s *Store) Tip() (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var tip uint64
	for _, rec := range s.records {
		if rec.BlockHeight > tip {
			tip = rec.BlockHeight
		}
	}
	return tip, nil
}

func (s *Store) FindAbove(h uint64) ([]store.UTXO, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []store.UTXO
	for _, rec := range s.records {
		if rec.BlockHeight > h {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (s *Store) UnspendBySpendingTxIDs(ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	idSet := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		idSet[id] = struct{}{}
	}
	for k, rec := range s.records {
		if !rec.Spent {
			continue
		}
		if _, ok := idSet[rec.SpentTxID]; !ok {
			continue
		}
		rec.Spent = false
		rec.SpentTxID = ""
		rec.SpentAt = zeroTime
		s.records[k] = rec
	}
	return nil
}

func (s *Store) DeleteAbove(h uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for k, rec := range s.records {
		if rec.BlockHeight > h {
			delete(s.records, k)
		}
	}
	return nil
}
