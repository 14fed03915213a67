package chain

import (
	"time"

	"github.com/milanterhes/utxo-indexer/internal/store"
)

// Ingestor validates a candidate block against UTXO invariants and, if it
// passes, applies its effects to the store. The caller is expected to
// hold the serialization gate for the duration of ProcessBlock.
type Ingestor struct {
	store store.Store
	now   func() time.Time
}

// NewIngestor constructs an Ingestor over the given repository.
func NewIngestor(s store.Store) *Ingestor {
	return &Ingestor{store: s, now: time.Now}
}

// ProcessBlock validates block against the current tip and, on success,
// applies its effects. Validation runs in a fixed order (height,
// conservation, block identity); the first failing check returns its
// error and leaves the store unchanged.
func (ing *Ingestor) ProcessBlock(block Block) error {
	tip, err := ing.store.Tip()
	if err != nil {
		return errDatabase(err)
	}

	if err := checkHeight(block, tip); err != nil {
		return err
	}

	if err := ing.checkConservation(block); err != nil {
		return err
	}

	if err := checkBlockID(block); err != nil {
		return err
	}

	return ing.apply(block)
}

func checkHeight(block Block, tip uint64) error {
	expected := tip + 1
	if block.Height != expected {
		return errInvalidHeight(block.Height, expected)
	}
	return nil
}

func checkBlockID(block Block) error {
	expected := computeBlockID(block.Height, block.Transactions)
	if block.ID != expected {
		return errInvalidBlockID(expected, block.ID)
	}
	return nil
}

// checkConservation checks input/output conservation against the store
// as it stood before any of this block's effects were applied: lookups
// never see outputs created earlier in the same block.
func (ing *Ingestor) checkConservation(block Block) error {
	for _, tx := range block.Transactions {
		if err := ing.checkTxConservation(tx); err != nil {
			return err
		}
	}
	return nil
}

func (ing *Ingestor) checkTxConservation(tx Transaction) error {
	hasCoinbase := false
	hasRegular := false
	for _, in := range tx.Inputs {
		if isCoinbase(in.TxID) {
			hasCoinbase = true
		} else {
			hasRegular = true
		}
	}

	if hasCoinbase && hasRegular {
		return errInputOutputSum("transaction mixes coinbase and non-coinbase inputs")
	}
	if hasCoinbase {
		// Coinbase transaction: outputs may sum to any value.
		return nil
	}
	if len(tx.Inputs) == 0 {
		if sum, overflow := sumOutputs(tx.Outputs); overflow || sum != 0 {
			return errInputOutputSum("zero-input transaction must have zero output sum")
		}
		return nil
	}

	refs := make([]store.OutRef, len(tx.Inputs))
	for i, in := range tx.Inputs {
		refs[i] = store.OutRef{TxID: pad64(in.TxID), Vout: in.Index}
	}
	found, err := ing.store.FindUnspent(refs)
	if err != nil {
		return errDatabase(err)
	}
	byRef := make(map[store.OutRef]store.UTXO, len(found))
	for _, u := range found {
		byRef[store.OutRef{TxID: u.TxID, Vout: u.Vout}] = u
	}

	var inputSum uint64
	for _, ref := range refs {
		utxo, ok := byRef[ref]
		if !ok {
			return errInputOutputSum("referenced UTXO absent or spent")
		}
		sum, overflow := addUint64(inputSum, utxo.Value)
		if overflow {
			return errInputOutputSum("input sum overflow")
		}
		inputSum = sum
	}

	outputSum, overflow := sumOutputs(tx.Outputs)
	if overflow {
		return errInputOutputSum("output sum overflow")
	}
	if inputSum != outputSum {
		return errInputOutputSum("input sum does not equal output sum")
	}
	return nil
}

func sumOutputs(outputs []Output) (sum uint64, overflow bool) {
	for _, o := range outputs {
		sum, overflow = addUint64(sum, o.Value)
		if overflow {
			return 0, true
		}
	}
	return sum, false
}

// addUint64 adds a and b, reporting overflow against a 63-bit value
// bound rather than the full uint64 range.
func addUint64(a, b uint64) (sum uint64, overflow bool) {
	const maxValue = 1<<63 - 1
	sum = a + b
	if sum < a || sum > maxValue {
		return 0, true
	}
	return sum, false
}

// apply applies the block's effects: mark spent inputs, then insert
// outputs, transaction by transaction in order.
func (ing *Ingestor) apply(block Block) error {
	now := ing.now()
	for _, tx := range block.Transactions {
		paddedTxID := pad64(tx.ID)
		for _, in := range tx.Inputs {
			if isCoinbase(in.TxID) {
				continue
			}
			if err := ing.store.MarkSpent(pad64(in.TxID), in.Index, paddedTxID); err != nil {
				if err == store.ErrNotFound {
					// Unreachable under the single-writer gate absent a
					// validator bug; surface as a store fault.
					return errDatabase(err)
				}
				return errDatabase(err)
			}
		}
		for i, out := range tx.Outputs {
			record := store.UTXO{
				TxID:         paddedTxID,
				Vout:         uint64(i),
				Address:      out.Address,
				Value:        out.Value,
				BlockHeight:  block.Height,
				Spent:        false,
				CreatedAt:    now,
				ScriptPubkey: "",
			}
			if err := ing.store.Insert(record); err != nil {
				return errDatabase(err)
			}
		}
	}
	return nil
}
