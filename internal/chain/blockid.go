package chain

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
)

// computeBlockID computes sha256hex(decimal(height) || concat(pad64(tx.id))).
// The digest input is the UTF-8 byte sequence of that concatenation; the
// result is 64 lowercase hex characters.
func computeBlockID(height uint64, txs []Transaction) string {
	buf := make([]byte, 0, 20+64*len(txs))
	buf = append(buf, strconv.FormatUint(height, 10)...)
	for _, tx := range txs {
		buf = append(buf, pad64(tx.ID)...)
	}
	sum := sha256.Sum256(buf)
	return hex.EncodeToString(sum[:])
}
