package chain

import (
	"testing"

	"github.com/milanterhes/utxo-indexer/internal/store/memory"
)

func TestRollbackToHeightScenario(t *testing.T) {
	s := memory.New()
	ing := NewIngestor(s)
	rb := NewRollback(s)
	bal := NewBalance(s)

	b1 := Block{
		Height: 1,
		Transactions: []Transaction{
			{ID: "t1", Inputs: []Input{{TxID: pad("0"), Index: 0}}, Outputs: []Output{{Address: "addr1", Value: 10}}},
		},
	}
	b1.ID = computeBlockID(b1.Height, b1.Transactions)
	mustIngest(t, ing, b1)

	b2 := Block{
		Height: 2,
		Transactions: []Transaction{
			{ID: "t2", Inputs: []Input{{TxID: pad("t1"), Index: 0}}, Outputs: []Output{
				{Address: "addr2", Value: 4}, {Address: "addr3", Value: 6},
			}},
		},
	}
	b2.ID = computeBlockID(b2.Height, b2.Transactions)
	mustIngest(t, ing, b2)

	b3 := Block{
		Height: 3,
		Transactions: []Transaction{
			{ID: "t3", Inputs: []Input{{TxID: pad("t2"), Index: 1}}, Outputs: []Output{
				{Address: "addr4", Value: 2}, {Address: "addr5", Value: 2}, {Address: "addr6", Value: 2},
			}},
		},
	}
	b3.ID = computeBlockID(b3.Height, b3.Transactions)
	mustIngest(t, ing, b3)

	if err := rb.RollbackToHeight(2); err != nil {
		t.Fatalf("RollbackToHeight(2) error: %v", err)
	}

	wantBalances := map[string]uint64{
		"addr1": 0,
		"addr2": 4,
		"addr3": 6,
		"addr4": 0,
		"addr5": 0,
		"addr6": 0,
	}
	for addr, want := range wantBalances {
		got, err := bal.GetBalance(addr)
		if err != nil {
			t.Fatalf("GetBalance(%s) error: %v", addr, err)
		}
		if got != want {
			t.Fatalf("GetBalance(%s) = %d, want %d", addr, got, want)
		}
	}
}

func TestRollbackEmptyChainFails(t *testing.T) {
	s := memory.New()
	rb := NewRollback(s)

	err := rb.RollbackToHeight(0)
	cerr, ok := err.(*Error)
	if !ok || cerr.Kind != ErrNoBlocksToRollback {
		t.Fatalf("RollbackToHeight(0) error = %v, want NoBlocksToRollback", err)
	}
	want := "Cannot rollback to height 0: no blocks exist in the chain."
	if cerr.Message != want {
		t.Fatalf("message = %q, want %q", cerr.Message, want)
	}
}

func TestRollbackAboveTipFails(t *testing.T) {
	s := memory.New()
	ing := NewIngestor(s)
	rb := NewRollback(s)

	for h := uint64(1); h <= 2; h++ {
		b := Block{Height: h, Transactions: []Transaction{
			{ID: "t" + itoa(h), Inputs: []Input{{TxID: pad("0"), Index: h}}, Outputs: []Output{{Address: "a", Value: 1}}},
		}}
		b.ID = computeBlockID(b.Height, b.Transactions)
		mustIngest(t, ing, b)
	}

	err := rb.RollbackToHeight(999)
	assertKind(t, err, ErrInvalidRollbackLevel)
}

func TestRollbackNegativeHeightFails(t *testing.T) {
	s := memory.New()
	rb := NewRollback(s)
	err := rb.RollbackToHeight(-1)
	assertKind(t, err, ErrInvalidRollbackLevel)
}

func mustIngest(t *testing.T, ing *Ingestor, b Block) {
	t.Helper()
	if err := ing.ProcessBlock(b); err != nil {
		t.Fatalf("ProcessBlock() error: %v", err)
	}
}
