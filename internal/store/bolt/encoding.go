package bolt

import (
	"encoding/binary"
	"fmt"

	"github.com/milanterhes/utxo-indexer/internal/store"
)

// Key layouts, following a fixed-width outpoint-key convention
// generalized to this system's 64-character hex txid string:
//
//	primary:  "u/" + txid(64) + vout(u64 be)
//	by addr:  "a/" + address + "\x00" + txid(64) + vout(u64 be)
//	by height: "h/" + height(u64 be) + txid(64) + vout(u64 be)
var (
	prefixUTXO   = []byte("u/")
	prefixAddr   = []byte("a/")
	prefixHeight = []byte("h/")
)

const txidLen = 64

func primaryKey(txid string, vout uint64) []byte {
	key := make([]byte, len(prefixUTXO)+txidLen+8)
	off := copy(key, prefixUTXO)
	off += copy(key[off:], padTxID(txid))
	binary.BigEndian.PutUint64(key[off:], vout)
	return key
}

func addrKey(address, txid string, vout uint64) []byte {
	key := make([]byte, 0, len(prefixAddr)+len(address)+1+txidLen+8)
	key = append(key, prefixAddr...)
	key = append(key, address...)
	key = append(key, 0x00)
	key = append(key, padTxID(txid)...)
	tmp := make([]byte, 8)
	binary.BigEndian.PutUint64(tmp, vout)
	return append(key, tmp...)
}

func addrPrefix(address string) []byte {
	key := make([]byte, 0, len(prefixAddr)+len(address)+1)
	key = append(key, prefixAddr...)
	key = append(key, address...)
	return append(key, 0x00)
}

func heightKey(height uint64, txid string, vout uint64) []byte {
	key := make([]byte, len(prefixHeight)+8+txidLen+8)
	off := copy(key, prefixHeight)
	binary.BigEndian.PutUint64(key[off:], height)
	off += 8
	off += copy(key[off:], padTxID(txid))
	binary.BigEndian.PutUint64(key[off:], vout)
	return key
}

func padTxID(s string) string {
	if len(s) >= txidLen {
		return s[:txidLen]
	}
	out := make([]byte, txidLen)
	copy(out, s)
	for i := len(s); i < txidLen; i++ {
		out[i] = '0'
	}
	return string(out)
}

func parsePrimaryKey(k []byte) (txid string, vout uint64, err error) {
	if len(k) != len(prefixUTXO)+txidLen+8 {
		return "", 0, fmt.Errorf("utxo: malformed primary key, len %d", len(k))
	}
	txid = string(k[len(prefixUTXO) : len(prefixUTXO)+txidLen])
	vout = binary.BigEndian.Uint64(k[len(prefixUTXO)+txidLen:])
	return txid, vout, nil
}

// encodeRecord encodes a store.UTXO into the bucket value layout:
//
//	addr_len u16be | addr bytes
//	value u64be
//	block_height u64be
//	spent u8
//	spent_txid 64 bytes (zero-filled if not spent)
//	spent_at_unixnano i64be
//	created_at_unixnano i64be
func encodeRecord(r store.UTXO) ([]byte, error) {
	if len(r.Address) > 0xffff {
		return nil, fmt.Errorf("utxo: address too long")
	}
	out := make([]byte, 0, 2+len(r.Address)+8+8+1+txidLen+8+8)

	var tmp2 [2]byte
	binary.BigEndian.PutUint16(tmp2[:], uint16(len(r.Address)))
	out = append(out, tmp2[:]...)
	out = append(out, r.Address...)

	var tmp8 [8]byte
	binary.BigEndian.PutUint64(tmp8[:], r.Value)
	out = append(out, tmp8[:]...)
	binary.BigEndian.PutUint64(tmp8[:], r.BlockHeight)
	out = append(out, tmp8[:]...)

	if r.Spent {
		out = append(out, 1)
	} else {
		out = append(out, 0)
	}

	spentTxID := make([]byte, txidLen)
	copy(spentTxID, r.SpentTxID)
	out = append(out, spentTxID...)

	binary.BigEndian.PutUint64(tmp8[:], uint64(r.SpentAt.UnixNano()))
	out = append(out, tmp8[:]...)
	binary.BigEndian.PutUint64(tmp8[:], uint64(r.CreatedAt.UnixNano()))
	out = append(out, tmp8[:]...)

	return out, nil
}

func decodeRecord(txid string, vout uint64, b []byte) (store.UTXO, error) {
	if len(b) < 2 {
		return store.UTXO{}, fmt.Errorf("utxo: truncated record")
	}
	off := 0
	addrLen := int(binary.BigEndian.Uint16(b[off : off+2]))
	off += 2
	if off+addrLen+8+8+1+txidLen+8+8 != len(b) {
		return store.UTXO{}, fmt.Errorf("utxo: bad record length")
	}
	address := string(b[off : off+addrLen])
	off += addrLen

	value := binary.BigEndian.Uint64(b[off : off+8])
	off += 8
	blockHeight := binary.BigEndian.Uint64(b[off : off+8])
	off += 8

	spent := b[off] == 1
	off++

	spentTxIDRaw := b[off : off+txidLen]
	off += txidLen
	var spentTxID string
	if spent {
		spentTxID = trimZero(spentTxIDRaw)
	}

	spentAtNano := int64(binary.BigEndian.Uint64(b[off : off+8]))
	off += 8
	createdAtNano := int64(binary.BigEndian.Uint64(b[off : off+8]))

	rec := store.UTXO{
		TxID:        txid,
		Vout:        vout,
		Address:     address,
		Value:       value,
		BlockHeight: blockHeight,
		Spent:       spent,
		SpentTxID:   spentTxID,
	}
	if spentAtNano != 0 {
		rec.SpentAt = unixNano(spentAtNano)
	}
	rec.CreatedAt = unixNano(createdAtNano)
	return rec, nil
}

func trimZero(b []byte) string {
	i := 0
	for i < len(b) && b[i] != 0 {
		i++
	}
	return string(b[:i])
}

func beUint64(b []byte) uint64 { return binary.BigEndian.Uint64(b) }
