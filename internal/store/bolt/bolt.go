// Package bolt implements store.Store over go.etcd.io/bbolt, a
// single-file embedded key-value engine. It keeps one UTXO bucket
// holding the primary records plus an address index and a height index
// as separately keyed entries within that bucket, with no block/header
// history beyond the UTXO set itself.
package bolt

import (
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/milanterhes/utxo-indexer/internal/store"
)

var bucketUTXOName = []byte("utxo")

// Store implements store.Store backed by a single bbolt database file.
type Store struct {
	db *bolt.DB
}

// Open opens (creating if absent) a bbolt database at path and ensures its
// bucket exists.
func Open(path string) (*Store, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bbolt at %s: %w", path, err)
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketUTXOName)
		return err
	}); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create utxo bucket: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database file.
func (s *Store) Close() error {
	return s.db.Close()
}

func unixNano(n int64) time.Time {
	if n == 0 {
		return time.Time{}
	}
	return time.Unix(0, n)
}

func (s *Store) Insert(record store.UTXO) error {
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now()
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketUTXOName)
		pk := primaryKey(record.TxID, record.Vout)
		if b.Get(pk) != nil {
			return &store.DuplicateError{TxID: record.TxID, Vout: record.Vout}
		}
		val, err := encodeRecord(record)
		if err != nil {
			return err
		}
		if err := b.Put(pk, val); err != nil {
			return err
		}
		if err := b.Put(addrKey(record.Address, record.TxID, record.Vout), nil); err != nil {
			return err
		}
		return b.Put(heightKey(record.BlockHeight, record.TxID, record.Vout), nil)
	})
}

func (s *Store) FindUnspent(refs []store.OutRef) ([]store.UTXO, error) {
	out := make([]store.UTXO, 0, len(refs))
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketUTXOName)
		for _, ref := range refs {
			val := b.Get(primaryKey(ref.TxID, ref.Vout))
			if val == nil {
				continue
			}
			rec, err := decodeRecord(ref.TxID, ref.Vout, val)
			if err != nil {
				return err
			}
			if rec.Spent {
				continue
			}
			out = append(out, rec)
		}
		return nil
	})
	return out, err
}

func (s *Store) MarkSpent(txid string, vout uint64, spendingTxID string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketUTXOName)
		pk := primaryKey(txid, vout)
		val := b.Get(pk)
		if val == nil {
			return store.ErrNotFound
		}
		rec, err := decodeRecord(txid, vout, val)
		if err != nil {
			return err
		}
		if rec.Spent {
			return store.ErrNotFound
		}
		rec.Spent = true
		rec.SpentTxID = spendingTxID
		rec.SpentAt = time.Now()
		newVal, err := encodeRecord(rec)
		if err != nil {
			return err
		}
		return b.Put(pk, newVal)
	})
}

func (s *Store) Balance(address string) (uint64, error) {
	var sum uint64
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketUTXOName)
		c := b.Cursor()
		prefix := addrPrefix(address)
		for k, _ := c.Seek(prefix); k != nil && hasPrefix(k, prefix); k, _ = c.Next() {
			txid, vout, err := parseIndexedOutpoint(k, prefix)
			if err != nil {
				return err
			}
			val := b.Get(primaryKey(txid, vout))
			if val == nil {
				continue // no primary record behind this index entry; skip it.
			}
			rec, err := decodeRecord(txid, vout, val)
			if err != nil {
				return err
			}
			if !rec.Spent {
				sum += rec.Value
			}
		}
		return nil
	})
	return sum, err
}

func (s *Store) Tip() (uint64, error) {
	var tip uint64
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketUTXOName)
		c := b.Cursor()
		last := seekLastWithPrefix(c, prefixHeight)
		if last == nil {
			return nil
		}
		h, _, _, err := parseHeightKey(last)
		if err != nil {
			return err
		}
		tip = h
		return nil
	})
	return tip, err
}

func (s *Store) FindAbove(h uint64) ([]store.UTXO, error) {
	var out []store.UTXO
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketUTXOName)
		c := b.Cursor()
		for k, _ := c.Seek(prefixHeight); k != nil && hasPrefix(k, prefixHeight); k, _ = c.Next() {
			height, txid, vout, err := parseHeightKey(k)
			if err != nil {
				return err
			}
			if height <= h {
				continue
			}
			val := b.Get(primaryKey(txid, vout))
			if val == nil {
				continue
			}
			rec, err := decodeRecord(txid, vout, val)
			if err != nil {
				return err
			}
			out = append(out, rec)
		}
		return nil
	})
	return out, err
}

func (s *Store) UnspendBySpendingTxIDs(ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	idSet := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		idSet[id] = struct{}{}
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketUTXOName)
		c := b.Cursor()
		for k, v := c.Seek(prefixUTXO); k != nil && hasPrefix(k, prefixUTXO); k, v = c.Next() {
			if len(v) == 0 {
				continue // secondary index entry, not a primary record.
			}
			txid, vout, err := parsePrimaryKey(k)
			if err != nil {
				return err
			}
			rec, err := decodeRecord(txid, vout, v)
			if err != nil {
				return err
			}
			if !rec.Spent {
				continue
			}
			if _, ok := idSet[rec.SpentTxID]; !ok {
				continue
			}
			rec.Spent = false
			rec.SpentTxID = ""
			rec.SpentAt = time.Time{}
			newVal, err := encodeRecord(rec)
			if err != nil {
				return err
			}
			if err := b.Put(k, newVal); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Store) DeleteAbove(h uint64) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketUTXOName)

		var doomed [][]byte
		c := b.Cursor()
		for k, _ := c.Seek(prefixHeight); k != nil && hasPrefix(k, prefixHeight); k, _ = c.Next() {
			height, txid, vout, err := parseHeightKey(k)
			if err != nil {
				return err
			}
			if height <= h {
				continue
			}
			doomed = append(doomed, append([]byte(nil), k...))
			doomed = append(doomed, primaryKey(txid, vout))
		}

		// A second pass deletes the address-index keys, reading each
		// record's address from its primary entry before that entry is
		// deleted.
		for i := 0; i < len(doomed); i += 2 {
			heightK := doomed[i]
			height, txid, vout, err := parseHeightKey(heightK)
			if err != nil {
				return err
			}
			_ = height
			val := b.Get(primaryKey(txid, vout))
			if val != nil {
				rec, err := decodeRecord(txid, vout, val)
				if err != nil {
					return err
				}
				if err := b.Delete(addrKey(rec.Address, txid, vout)); err != nil {
					return err
				}
			}
		}

		for _, k := range doomed {
			if err := b.Delete(k); err != nil {
				return err
			}
		}
		return nil
	})
}

func hasPrefix(b, prefix []byte) bool {
	if len(b) < len(prefix) {
		return false
	}
	for i := range prefix {
		if b[i] != prefix[i] {
			return false
		}
	}
	return true
}

func parseIndexedOutpoint(k, prefix []byte) (txid string, vout uint64, err error) {
	rest := k[len(prefix):]
	if len(rest) != txidLen+8 {
		return "", 0, fmt.Errorf("utxo: malformed address-index key")
	}
	txid = string(rest[:txidLen])
	vout = beUint64(rest[txidLen:])
	return txid, vout, nil
}

func parseHeightKey(k []byte) (height uint64, txid string, vout uint64, err error) {
	if len(k) != len(prefixHeight)+8+txidLen+8 {
		return 0, "", 0, fmt.Errorf("utxo: malformed height-index key")
	}
	off := len(prefixHeight)
	height = beUint64(k[off : off+8])
	off += 8
	txid = string(k[off : off+txidLen])
	off += txidLen
	vout = beUint64(k[off:])
	return height, txid, vout, nil
}

func seekLastWithPrefix(c *bolt.Cursor, prefix []byte) []byte {
	// Seek past the prefix range, then step back one, the way a
	// prefix-max scan is done over an ordered key space without a
	// dedicated "last" cursor op.
	upper := make([]byte, len(prefix))
	copy(upper, prefix)
	incremented := false
	for i := len(upper) - 1; i >= 0; i-- {
		if upper[i] < 0xff {
			upper[i]++
			incremented = true
			break
		}
		upper[i] = 0
	}
	if !incremented {
		// Prefix is all 0xff bytes; fall back to scanning from prefix.
		var last []byte
		for k, _ := c.Seek(prefix); k != nil && hasPrefix(k, prefix); k, _ = c.Next() {
			last = append([]byte(nil), k...)
		}
		return last
	}

	k, _ := c.Seek(upper)
	if k == nil {
		k, _ = c.Last()
	} else {
		k, _ = c.Prev()
	}
	if k != nil && hasPrefix(k, prefix) {
		return append([]byte(nil), k...)
	}
	return nil
}
