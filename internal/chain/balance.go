package chain

import "github.com/milanterhes/utxo-indexer/internal/store"

// Balance sums unspent value for an address via the store, bypassing the
// serialization gate since store reads are atomic per row.
type Balance struct {
	store store.Store
}

// NewBalance constructs a Balance query over the given repository.
func NewBalance(s store.Store) *Balance {
	return &Balance{store: s}
}

// GetBalance returns the sum of unspent value for address, or 0 for an
// unknown address (not an error).
func (b *Balance) GetBalance(address string) (uint64, error) {
	sum, err := b.store.Balance(address)
	if err != nil {
		return 0, errDatabase(err)
	}
	return sum, nil
}
