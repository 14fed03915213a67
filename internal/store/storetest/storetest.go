// Package storetest runs a shared behavioral contract against any
// store.Store implementation, the way
// Klingon-tech-klingnet/internal/storage/db_test.go runs one testDB(t, db)
// suite against both its Badger and in-memory backends.
package storetest

import (
	"sort"
	"testing"

	"github.com/milanterhes/utxo-indexer/internal/store"
)

// Run exercises the store.Store contract against the backend that
// newStore builds. newStore must return
// a fresh, empty instance of the same backend for each subtest.
func Run(t *testing.T, newStore func(t *testing.T) store.Store) {
	t.Helper()

	t.Run("InsertAndFindUnspent", func(t *testing.T) {
		s := newStore(t)
		rec := store.UTXO{TxID: pad("a"), Vout: 0, Address: "addr1", Value: 10, BlockHeight: 1}
		if err := s.Insert(rec); err != nil {
			t.Fatalf("Insert() error: %v", err)
		}

		found, err := s.FindUnspent([]store.OutRef{{TxID: pad("a"), Vout: 0}})
		if err != nil {
			t.Fatalf("FindUnspent() error: %v", err)
		}
		if len(found) != 1 || found[0].Value != 10 {
			t.Fatalf("FindUnspent() = %+v, want one record with value 10", found)
		}
	})

	t.Run("InsertDuplicateFails", func(t *testing.T) {
		s := newStore(t)
		rec := store.UTXO{TxID: pad("a"), Vout: 0, Address: "addr1", Value: 10, BlockHeight: 1}
		if err := s.Insert(rec); err != nil {
			t.Fatalf("first Insert() error: %v", err)
		}
		if err := s.Insert(rec); err == nil {
			t.Fatal("expected error on duplicate (txid, vout) insert")
		}
	})

	t.Run("FindUnspentEmptyInput", func(t *testing.T) {
		s := newStore(t)
		found, err := s.FindUnspent(nil)
		if err != nil {
			t.Fatalf("FindUnspent(nil) error: %v", err)
		}
		if len(found) != 0 {
			t.Fatalf("FindUnspent(nil) = %+v, want empty", found)
		}
	})

	t.Run("FindUnspentExcludesSpentAndMissing", func(t *testing.T) {
		s := newStore(t)
		mustInsert(t, s, store.UTXO{TxID: pad("a"), Vout: 0, Address: "addr1", Value: 10, BlockHeight: 1})
		mustInsert(t, s, store.UTXO{TxID: pad("b"), Vout: 0, Address: "addr1", Value: 20, BlockHeight: 1})
		if err := s.MarkSpent(pad("a"), 0, pad("x")); err != nil {
			t.Fatalf("MarkSpent() error: %v", err)
		}

		found, err := s.FindUnspent([]store.OutRef{
			{TxID: pad("a"), Vout: 0},
			{TxID: pad("b"), Vout: 0},
			{TxID: pad("missing"), Vout: 0},
		})
		if err != nil {
			t.Fatalf("FindUnspent() error: %v", err)
		}
		if len(found) != 1 || found[0].TxID != pad("b") {
			t.Fatalf("FindUnspent() = %+v, want only b", found)
		}
	})

	t.Run("MarkSpentMissingOrAlreadySpent", func(t *testing.T) {
		s := newStore(t)
		if err := s.MarkSpent(pad("a"), 0, pad("x")); err != store.ErrNotFound {
			t.Fatalf("MarkSpent() on missing row = %v, want ErrNotFound", err)
		}

		mustInsert(t, s, store.UTXO{TxID: pad("a"), Vout: 0, Address: "addr1", Value: 10, BlockHeight: 1})
		if err := s.MarkSpent(pad("a"), 0, pad("x")); err != nil {
			t.Fatalf("first MarkSpent() error: %v", err)
		}
		if err := s.MarkSpent(pad("a"), 0, pad("y")); err != store.ErrNotFound {
			t.Fatalf("second MarkSpent() = %v, want ErrNotFound", err)
		}
	})

	t.Run("BalanceSumsUnspentOnly", func(t *testing.T) {
		s := newStore(t)
		mustInsert(t, s, store.UTXO{TxID: pad("a"), Vout: 0, Address: "addr1", Value: 10, BlockHeight: 1})
		mustInsert(t, s, store.UTXO{TxID: pad("b"), Vout: 0, Address: "addr1", Value: 5, BlockHeight: 1})
		mustInsert(t, s, store.UTXO{TxID: pad("c"), Vout: 0, Address: "addr2", Value: 99, BlockHeight: 1})
		if err := s.MarkSpent(pad("b"), 0, pad("x")); err != nil {
			t.Fatalf("MarkSpent() error: %v", err)
		}

		bal, err := s.Balance("addr1")
		if err != nil {
			t.Fatalf("Balance() error: %v", err)
		}
		if bal != 10 {
			t.Fatalf("Balance(addr1) = %d, want 10", bal)
		}

		unknown, err := s.Balance("nobody")
		if err != nil {
			t.Fatalf("Balance() error: %v", err)
		}
		if unknown != 0 {
			t.Fatalf("Balance(nobody) = %d, want 0", unknown)
		}
	})

	t.Run("TipIsZeroWhenEmpty", func(t *testing.T) {
		s := newStore(t)
		tip, err := s.Tip()
		if err != nil {
			t.Fatalf("Tip() error: %v", err)
		}
		if tip != 0 {
			t.Fatalf("Tip() = %d, want 0", tip)
		}
	})

	t.Run("TipIsMaxHeight", func(t *testing.T) {
		s := newStore(t)
		mustInsert(t, s, store.UTXO{TxID: pad("a"), Vout: 0, Address: "addr1", Value: 1, BlockHeight: 1})
		mustInsert(t, s, store.UTXO{TxID: pad("b"), Vout: 0, Address: "addr1", Value: 1, BlockHeight: 3})
		mustInsert(t, s, store.UTXO{TxID: pad("c"), Vout: 0, Address: "addr1", Value: 1, BlockHeight: 2})

		tip, err := s.Tip()
		if err != nil {
			t.Fatalf("Tip() error: %v", err)
		}
		if tip != 3 {
			t.Fatalf("Tip() = %d, want 3", tip)
		}
	})

	t.Run("FindAboveAndDeleteAbove", func(t *testing.T) {
		s := newStore(t)
		mustInsert(t, s, store.UTXO{TxID: pad("a"), Vout: 0, Address: "addr1", Value: 1, BlockHeight: 1})
		mustInsert(t, s, store.UTXO{TxID: pad("b"), Vout: 0, Address: "addr1", Value: 1, BlockHeight: 2})
		mustInsert(t, s, store.UTXO{TxID: pad("c"), Vout: 0, Address: "addr1", Value: 1, BlockHeight: 3})

		above, err := s.FindAbove(1)
		if err != nil {
			t.Fatalf("FindAbove() error: %v", err)
		}
		ids := txIDs(above)
		sort.Strings(ids)
		want := []string{pad("b"), pad("c")}
		if !equalStrings(ids, want) {
			t.Fatalf("FindAbove(1) txids = %v, want %v", ids, want)
		}

		if err := s.DeleteAbove(1); err != nil {
			t.Fatalf("DeleteAbove() error: %v", err)
		}
		tip, err := s.Tip()
		if err != nil {
			t.Fatalf("Tip() error: %v", err)
		}
		if tip != 1 {
			t.Fatalf("Tip() after DeleteAbove(1) = %d, want 1", tip)
		}
	})

	t.Run("UnspendBySpendingTxIDsRestoresRows", func(t *testing.T) {
		s := newStore(t)
		mustInsert(t, s, store.UTXO{TxID: pad("a"), Vout: 0, Address: "addr1", Value: 10, BlockHeight: 1})
		if err := s.MarkSpent(pad("a"), 0, pad("spender")); err != nil {
			t.Fatalf("MarkSpent() error: %v", err)
		}

		if err := s.UnspendBySpendingTxIDs([]string{pad("spender")}); err != nil {
			t.Fatalf("UnspendBySpendingTxIDs() error: %v", err)
		}

		found, err := s.FindUnspent([]store.OutRef{{TxID: pad("a"), Vout: 0}})
		if err != nil {
			t.Fatalf("FindUnspent() error: %v", err)
		}
		if len(found) != 1 {
			t.Fatalf("expected row a/0 to be unspent again, got %+v", found)
		}
	})

	t.Run("UnspendBySpendingTxIDsEmptyIsNoop", func(t *testing.T) {
		s := newStore(t)
		mustInsert(t, s, store.UTXO{TxID: pad("a"), Vout: 0, Address: "addr1", Value: 10, BlockHeight: 1})
		if err := s.MarkSpent(pad("a"), 0, pad("spender")); err != nil {
			t.Fatalf("MarkSpent() error: %v", err)
		}
		if err := s.UnspendBySpendingTxIDs(nil); err != nil {
			t.Fatalf("UnspendBySpendingTxIDs(nil) error: %v", err)
		}
		found, err := s.FindUnspent([]store.OutRef{{TxID: pad("a"), Vout: 0}})
		if err != nil {
			t.Fatalf("FindUnspent() error: %v", err)
		}
		if len(found) != 0 {
			t.Fatal("expected row to remain spent after no-op unspend")
		}
	})
}

func mustInsert(t *testing.T, s store.Store, rec store.UTXO) {
	t.Helper()
	if err := s.Insert(rec); err != nil {
		t.Fatalf("Insert(%+v) error: %v", rec, err)
	}
}

func txIDs(records []store.UTXO) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.TxID
	}
	return out
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// pad right-pads s with '0' to 64 characters, mirroring chain.pad64, to
// build well-formed txids; chain.pad64 is unexported and cannot be called
// from here.
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
