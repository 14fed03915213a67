package chain

import "github.com/milanterhes/utxo-indexer/internal/store"

// Rollback reverses all effects of blocks above a target height,
// restoring the store to the state it would be in had ingestion stopped
// at target.
type Rollback struct {
	store store.Store
}

// NewRollback constructs a Rollback engine over the given repository.
func NewRollback(s store.Store) *Rollback {
	return &Rollback{store: s}
}

// RollbackToHeight reverses blocks (target, tip()]. Step order matters:
// spending tx ids are captured from the victims before any row is
// unspent or deleted, and unspend runs before delete since delete
// removes the rows spendingTxIds was derived from.
//
// target is signed so a negative height is reported as
// InvalidRollbackHeight rather than rejected earlier at the boundary as
// an unparseable caller error.
func (rb *Rollback) RollbackToHeight(target int64) error {
	if target < 0 {
		return errInvalidRollbackHeight("height must be non-negative")
	}
	height := uint64(target)

	tip, err := rb.store.Tip()
	if err != nil {
		return errDatabase(err)
	}
	if height > tip {
		return errInvalidRollbackHeight("target height is above the current tip")
	}

	victims, err := rb.store.FindAbove(height)
	if err != nil {
		return errDatabase(err)
	}
	if len(victims) == 0 {
		return errNoBlocksToRollback(height, tip)
	}

	seen := make(map[string]struct{}, len(victims))
	spendingTxIDs := make([]string, 0, len(victims))
	for _, v := range victims {
		if _, ok := seen[v.TxID]; ok {
			continue
		}
		seen[v.TxID] = struct{}{}
		spendingTxIDs = append(spendingTxIDs, v.TxID)
	}

	if err := rb.store.UnspendBySpendingTxIDs(spendingTxIDs); err != nil {
		return errDatabase(err)
	}
	if err := rb.store.DeleteAbove(height); err != nil {
		return errDatabase(err)
	}
	return nil
}
