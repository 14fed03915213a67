package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/milanterhes/utxo-indexer/internal/chain"
)

type submitBlockRequest = chain.Block

type balanceResponse struct {
	Address string `json:"address"`
	Balance uint64 `json:"balance"`
}

// blockTTLHeader overrides the server's default gate acquire timeout for
// a single request.
const blockTTLHeader = "x-block-ttl"

// gateTTLFor resolves the gate acquire timeout for a request: the
// x-block-ttl header when present and valid, the server default
// otherwise. ok is false when the header was present but invalid, in
// which case the caller must not proceed.
func (s *Server) gateTTLFor(r *http.Request) (ttlMs int64, ok bool) {
	raw := r.Header.Get(blockTTLHeader)
	if raw == "" {
		return s.gateTTLMs, true
	}
	ttl, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || ttl <= 0 {
		return 0, false
	}
	return ttl, true
}

func (s *Server) handleSubmitBlock(w http.ResponseWriter, r *http.Request) {
	ttlMs, ok := s.gateTTLFor(r)
	if !ok {
		writeJSONError(w, http.StatusBadRequest, "Invalid x-block-ttl header value")
		return
	}

	var block submitBlockRequest
	if err := json.NewDecoder(r.Body).Decode(&block); err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	release, err := s.gate.AcquireContext(r.Context(), ttlMs)
	if err != nil {
		writeJSONError(w, http.StatusRequestTimeout, "timed out waiting for the write gate")
		return
	}
	defer release()

	if err := s.ingestor.ProcessBlock(block); err != nil {
		writeChainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *Server) handleRollback(w http.ResponseWriter, r *http.Request) {
	ttlMs, ok := s.gateTTLFor(r)
	if !ok {
		writeJSONError(w, http.StatusBadRequest, "Invalid x-block-ttl header value")
		return
	}

	height, err := strconv.ParseInt(r.URL.Query().Get("height"), 10, 64)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "Invalid height query parameter")
		return
	}

	release, err := s.gate.AcquireContext(r.Context(), ttlMs)
	if err != nil {
		writeJSONError(w, http.StatusRequestTimeout, "timed out waiting for the write gate")
		return
	}
	defer release()

	if err := s.rollback.RollbackToHeight(height); err != nil {
		writeChainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *Server) handleBalance(w http.ResponseWriter, r *http.Request) {
	address := mux.Vars(r)["address"]
	bal, err := s.balance.GetBalance(address)
	if err != nil {
		writeChainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, balanceResponse{Address: address, Balance: bal})
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
