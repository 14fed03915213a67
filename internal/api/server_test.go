package api

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/milanterhes/utxo-indexer/internal/chain"
	"github.com/milanterhes/utxo-indexer/internal/gate"
	"github.com/milanterhes/utxo-indexer/internal/store/memory"
)

func newTestServer() *Server {
	s := memory.New()
	ing := chain.NewIngestor(s)
	rb := chain.NewRollback(s)
	bal := chain.NewBalance(s)
	return New(":0", ing, rb, bal, gate.New(), 2000)
}

func TestSubmitBlockAndQueryBalance(t *testing.T) {
	srv := newTestServer()

	block := map[string]any{
		"height": 1,
		"transactions": []map[string]any{
			{
				"id":      "t1",
				"inputs":  []map[string]any{{"txId": padTest("0"), "index": 0}},
				"outputs": []map[string]any{{"address": "A", "value": 5}},
			},
		},
	}
	block["id"] = computeTestBlockID(t, 1, block["transactions"])

	rr := doJSON(t, srv, http.MethodPost, "/blocks", block)
	if rr.Code != http.StatusOK {
		t.Fatalf("POST /blocks status = %d, body = %s", rr.Code, rr.Body.String())
	}

	rr = doJSON(t, srv, http.MethodGet, "/balance/A", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("GET /balance/A status = %d, body = %s", rr.Code, rr.Body.String())
	}
	var resp balanceResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if resp.Balance != 5 {
		t.Fatalf("balance = %d, want 5", resp.Balance)
	}
}

func TestSubmitBlockWrongHeightReturns400(t *testing.T) {
	srv := newTestServer()
	block := map[string]any{"id": "anything", "height": 6, "transactions": []any{}}
	rr := doJSON(t, srv, http.MethodPost, "/blocks", block)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rr.Code)
	}
}

func TestRollbackEmptyChainReturns400WithMessage(t *testing.T) {
	srv := newTestServer()
	rr := doJSON(t, srv, http.MethodPost, "/rollback?height=0", nil)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400, body=%s", rr.Code, rr.Body.String())
	}
	var body errorResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	want := "Cannot rollback to height 0: no blocks exist in the chain."
	if body.Error != want {
		t.Fatalf("error = %q, want %q", body.Error, want)
	}
}

func TestRootReturnsOK(t *testing.T) {
	srv := newTestServer()
	rr := doJSON(t, srv, http.MethodGet, "/", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
}

func TestSubmitBlockInvalidTTLHeaderReturns400(t *testing.T) {
	srv := newTestServer()
	req := httptest.NewRequest(http.MethodPost, "/blocks", bytes.NewReader(nil))
	req.Header.Set(blockTTLHeader, "not-a-number")
	rr := httptest.NewRecorder()
	srv.server.Handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400, body=%s", rr.Code, rr.Body.String())
	}
	var body errorResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if body.Error != "Invalid x-block-ttl header value" {
		t.Fatalf("error = %q", body.Error)
	}
}

func doJSON(t *testing.T, srv *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request: %v", err)
		}
		reader = bytes.NewReader(buf)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	rr := httptest.NewRecorder()
	srv.server.Handler.ServeHTTP(rr, req)
	return rr
}

func padTest(s string) string {
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

func computeTestBlockID(t *testing.T, height uint64, rawTxs any) string {
	t.Helper()
	buf, err := json.Marshal(rawTxs)
	if err != nil {
		t.Fatalf("marshal txs: %v", err)
	}
	var txs []chain.Transaction
	if err := json.Unmarshal(buf, &txs); err != nil {
		t.Fatalf("unmarshal txs: %v", err)
	}
	out := make([]byte, 0, 20+64*len(txs))
	out = append(out, strconv.FormatUint(height, 10)...)
	for _, tx := range txs {
		out = append(out, padTest(tx.ID)...)
	}
	sum := sha256.Sum256(out)
	return hex.EncodeToString(sum[:])
}
