package api

import (
	"encoding/json"
	"net/http"

	"github.com/milanterhes/utxo-indexer/internal/chain"
)

type errorResponse struct {
	Error string `json:"error"`
}

// writeChainError maps a chain.Error's Kind to an HTTP status and writes
// a JSON error body carrying its message. Any other error is treated as
// an internal failure.
func writeChainError(w http.ResponseWriter, err error) {
	chainErr, ok := err.(*chain.Error)
	if !ok {
		writeJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}

	status := http.StatusInternalServerError
	switch chainErr.Kind {
	case chain.ErrInvalidBlockHeight, chain.ErrInvalidInputOutput, chain.ErrInvalidBlockID,
		chain.ErrInvalidRollbackLevel, chain.ErrNoBlocksToRollback:
		status = http.StatusBadRequest
	case chain.ErrMutexTimeout:
		status = http.StatusRequestTimeout
	case chain.ErrUTXONotFound:
		status = http.StatusNotFound
	case chain.ErrDatabase:
		status = http.StatusInternalServerError
	}
	writeJSONError(w, status, chainMessage(chainErr))
}

// chainMessage returns the human-readable text of a chain.Error without
// its Kind prefix, falling back to the Kind itself when no message was
// set.
func chainMessage(e *chain.Error) string {
	if e.Message != "" {
		return e.Message
	}
	return string(e.Kind)
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorResponse{Error: message})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
