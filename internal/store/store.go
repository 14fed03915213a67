// Package store defines the UTXO repository contract that internal/chain
// is built against. Concrete backends live in the bolt, postgres, and
// memory subpackages; any implementation satisfying Store is an
// acceptable backing for the indexing engine.
package store

import "time"

// UTXO is one record per transaction output ever created.
type UTXO struct {
	TxID        string
	Vout        uint64
	Address     string
	Value       uint64
	BlockHeight uint64
	Spent       bool
	SpentTxID   string
	SpentAt     time.Time
	CreatedAt   time.Time

	// ScriptPubkey is always the empty string; the column is reserved
	// with no plan for populating it.
	ScriptPubkey string
}

// OutRef identifies a UTXO by its producing transaction id and output
// index.
type OutRef struct {
	TxID string
	Vout uint64
}

// Store is the repository contract the ingestion, rollback, and balance
// engines are built against. Every operation returns a wrapped error on
// backend failure; callers translate that into chain.ErrDatabase.
type Store interface {
	// Insert adds one UTXO. Violating (txid, vout) uniqueness is an error.
	Insert(record UTXO) error

	// FindUnspent returns, for each ref that exists and is unspent, its
	// record. Missing or spent refs are omitted. Order is not guaranteed.
	FindUnspent(refs []OutRef) ([]UTXO, error)

	// MarkSpent marks the UTXO at (txid, vout) spent by spendingTxID. It
	// returns ErrNotFound if no such row exists or it is already spent.
	MarkSpent(txid string, vout uint64, spendingTxID string) error

	// Balance sums the value of every unspent UTXO for address, 0 if none.
	Balance(address string) (uint64, error)

	// Tip returns the maximum block_height over all rows, 0 if empty.
	Tip() (uint64, error)

	// FindAbove returns every row with block_height > h.
	FindAbove(h uint64) ([]UTXO, error)

	// UnspendBySpendingTxIDs clears spent/spent_txid/spent_at on every row
	// whose spent_txid is in ids. Empty ids is a no-op.
	UnspendBySpendingTxIDs(ids []string) error

	// DeleteAbove deletes every row with block_height > h.
	DeleteAbove(h uint64) error
}

// ErrNotFound is returned by MarkSpent when the referenced row is missing
// or already spent.
var ErrNotFound = &notFoundError{}

type notFoundError struct{}

func (*notFoundError) Error() string { return "utxo: not found or already spent" }

// DuplicateError is returned by Insert when (txid, vout) already exists.
type DuplicateError struct {
	TxID string
	Vout uint64
}

func (e *DuplicateError) Error() string {
	return "utxo: duplicate (txid, vout)"
}
