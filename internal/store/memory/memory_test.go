package memory

import (
	"testing"

	"github.com/milanterhes/utxo-indexer/internal/store"
	"github.com/milanterhes/utxo-indexer/internal/store/storetest"
)

func TestStoreContract(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Store {
		return New()
	})
}
