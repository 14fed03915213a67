package chain

import (
	"testing"

	"github.com/milanterhes/utxo-indexer/internal/store/memory"
)

func pad(s string) string { return pad64(s) }

func TestProcessBlockCoinbaseThenSpendChain(t *testing.T) {
	s := memory.New()
	ing := NewIngestor(s)
	bal := NewBalance(s)

	b1 := Block{
		Height: 1,
		Transactions: []Transaction{
			{
				ID:      "t1",
				Inputs:  []Input{{TxID: pad("0"), Index: 5000000000}},
				Outputs: []Output{{Address: "A", Value: 5000000000}},
			},
		},
	}
	b1.ID = computeBlockID(b1.Height, b1.Transactions)
	if err := ing.ProcessBlock(b1); err != nil {
		t.Fatalf("ProcessBlock(b1) error: %v", err)
	}

	got, err := bal.GetBalance("A")
	if err != nil || got != 5000000000 {
		t.Fatalf("GetBalance(A) = %d, %v, want 5000000000, nil", got, err)
	}

	b2 := Block{
		Height: 2,
		Transactions: []Transaction{
			{
				ID:     "t2",
				Inputs: []Input{{TxID: pad("t1"), Index: 0}},
				Outputs: []Output{
					{Address: "B", Value: 2000000000},
					{Address: "A", Value: 3000000000},
				},
			},
		},
	}
	b2.ID = computeBlockID(b2.Height, b2.Transactions)
	if err := ing.ProcessBlock(b2); err != nil {
		t.Fatalf("ProcessBlock(b2) error: %v", err)
	}

	if got, _ := bal.GetBalance("A"); got != 3000000000 {
		t.Fatalf("GetBalance(A) after b2 = %d, want 3000000000", got)
	}
	if got, _ := bal.GetBalance("B"); got != 2000000000 {
		t.Fatalf("GetBalance(B) after b2 = %d, want 2000000000", got)
	}
}

func TestProcessBlockRejectsWrongHeight(t *testing.T) {
	s := memory.New()
	ing := NewIngestor(s)
	seedChain(t, s, ing, 4)

	bad := Block{Height: 6}
	bad.ID = computeBlockID(bad.Height, bad.Transactions)
	err := ing.ProcessBlock(bad)
	assertKind(t, err, ErrInvalidBlockHeight)
}

func TestProcessBlockRejectsSumMismatch(t *testing.T) {
	s := memory.New()
	ing := NewIngestor(s)
	seedChain(t, s, ing, 4)

	coinbaseID := pad("0")
	feedTx := Transaction{
		ID:      "feed",
		Inputs:  []Input{{TxID: coinbaseID, Index: 1}},
		Outputs: []Output{{Address: "funded", Value: 500000000}},
	}
	feedBlock := Block{Height: 5, Transactions: []Transaction{feedTx}}
	feedBlock.ID = computeBlockID(feedBlock.Height, feedBlock.Transactions)
	if err := ing.ProcessBlock(feedBlock); err != nil {
		t.Fatalf("seed funding block error: %v", err)
	}

	bad := Block{
		Height: 6,
		Transactions: []Transaction{
			{
				ID:      "mismatch",
				Inputs:  []Input{{TxID: pad("feed"), Index: 0}},
				Outputs: []Output{{Address: "out", Value: 10000000000}},
			},
		},
	}
	bad.ID = computeBlockID(bad.Height, bad.Transactions)
	err := ing.ProcessBlock(bad)
	assertKind(t, err, ErrInvalidInputOutput)
}

func TestProcessBlockRejectsBadBlockID(t *testing.T) {
	s := memory.New()
	ing := NewIngestor(s)

	block := Block{
		ID:     "invalid_block_id_not_a_real_hash",
		Height: 1,
		Transactions: []Transaction{
			{
				ID:      "t1",
				Inputs:  []Input{{TxID: pad("0"), Index: 0}},
				Outputs: []Output{{Address: "A", Value: 1}},
			},
		},
	}
	err := ing.ProcessBlock(block)
	assertKind(t, err, ErrInvalidBlockID)
}

func seedChain(t *testing.T, s *memory.Store, ing *Ingestor, n uint64) {
	t.Helper()
	for h := uint64(1); h <= n; h++ {
		b := Block{
			Height: h,
			Transactions: []Transaction{
				{
					ID:      "coinbase-at-" + pad64(itoa(h)),
					Inputs:  []Input{{TxID: pad("0"), Index: h}},
					Outputs: []Output{{Address: "miner", Value: 1}},
				},
			},
		}
		b.ID = computeBlockID(b.Height, b.Transactions)
		if err := ing.ProcessBlock(b); err != nil {
			t.Fatalf("seed block %d error: %v", h, err)
		}
	}
}

func itoa(h uint64) string {
	if h == 0 {
		return "0"
	}
	var buf [20]byte
	i := len(buf)
	for h > 0 {
		i--
		buf[i] = byte('0' + h%10)
		h /= 10
	}
	return string(buf[i:])
}

func assertKind(t *testing.T, err error, kind ErrorKind) {
	t.Helper()
	cerr, ok := err.(*Error)
	if !ok {
		t.Fatalf("error = %v (%T), want *Error", err, err)
	}
	if cerr.Kind != kind {
		t.Fatalf("error kind = %s, want %s", cerr.Kind, kind)
	}
}
