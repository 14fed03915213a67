package bolt

import (
	"path/filepath"
	"testing"

	"github.com/milanterhes/utxo-indexer/internal/store"
	"github.com/milanterhes/utxo-indexer/internal/store/storetest"
)

func TestStoreContract(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Store {
		return newTempStore(t)
	})
}

func TestBalanceAfterDeleteAboveOmitsDeletedRecords(t *testing.T) {
	s := newTempStore(t)
	rec := store.UTXO{TxID: pad("a"), Vout: 0, Address: "addr1", Value: 5, BlockHeight: 1}
	if err := s.Insert(rec); err != nil {
		t.Fatalf("Insert() error: %v", err)
	}
	if err := s.DeleteAbove(0); err != nil {
		t.Fatalf("DeleteAbove() error: %v", err)
	}
	bal, err := s.Balance("addr1")
	if err != nil {
		t.Fatalf("Balance() error: %v", err)
	}
	if bal != 0 {
		t.Fatalf("Balance() after delete = %d, want 0", bal)
	}
}

func TestReopenPreservesData(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "utxo.db")

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	rec := store.UTXO{TxID: pad("a"), Vout: 0, Address: "addr1", Value: 42, BlockHeight: 1}
	if err := s.Insert(rec); err != nil {
		t.Fatalf("Insert() error: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close() error: %v", err)
	}

	reopened, err := Open(path)
	if err != nil {
		t.Fatalf("reopen Open() error: %v", err)
	}
	defer reopened.Close()

	bal, err := reopened.Balance("addr1")
	if err != nil {
		t.Fatalf("Balance() error: %v", err)
	}
	if bal != 42 {
		t.Fatalf("Balance() after reopen = %d, want 42", bal)
	}
}

func newTempStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "utxo.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func pad(s string) string {
	if len(s) >= 64 {
		return s[:64]
	}
	out := make([]byte, 64)
	copy(out, s)
	for i := len(s); i < 64; i++ {
		out[i] = '0'
	}
	return string(out)
}
