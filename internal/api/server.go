// Package api exposes the indexing engine over HTTP: block submission,
// balance queries, and rollback, routed with gorilla/mux the way the rest
// of the retrieved Bitcoin-indexer corpus fronts its ingestion pipelines.
package api

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/milanterhes/utxo-indexer/internal/chain"
	"github.com/milanterhes/utxo-indexer/internal/gate"
	ilog "github.com/milanterhes/utxo-indexer/internal/log"
)

// Server is the HTTP front end for the indexing engine.
type Server struct {
	addr       string
	ingestor   *chain.Ingestor
	rollback   *chain.Rollback
	balance    *chain.Balance
	gate       *gate.Gate
	gateTTLMs  int64
	server     *http.Server
	logger     zerolog.Logger
	ln         net.Listener
}

// New constructs a Server bound to addr, serving requests against the
// given engine components through g, the process-wide write gate.
func New(addr string, ingestor *chain.Ingestor, rollback *chain.Rollback, balance *chain.Balance, g *gate.Gate, gateTTLMs int64) *Server {
	s := &Server{
		addr:      addr,
		ingestor:  ingestor,
		rollback:  rollback,
		balance:   balance,
		gate:      g,
		gateTTLMs: gateTTLMs,
		logger:    ilog.API,
	}

	r := mux.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(loggingMiddleware(s.logger))
	r.HandleFunc("/", s.handleRoot).Methods(http.MethodGet)
	r.HandleFunc("/blocks", s.handleSubmitBlock).Methods(http.MethodPost)
	r.HandleFunc("/rollback", s.handleRollback).Methods(http.MethodPost)
	r.HandleFunc("/balance/{address}", s.handleBalance).Methods(http.MethodGet)
	r.HandleFunc("/healthz", s.handleHealthz).Methods(http.MethodGet)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
	return s
}

// Start begins listening and serving in a background goroutine, returning
// once the listener is bound.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("api: listen: %w", err)
	}
	s.ln = ln

	go func() {
		if err := s.server.Serve(ln); err != nil && err != http.ErrServerClosed {
			s.logger.Error().Err(err).Msg("api server error")
		}
	}()
	return nil
}

// Addr returns the bound listener address, useful when constructed with a
// ":0" port.
func (s *Server) Addr() string {
	if s.ln != nil {
		return s.ln.Addr().String()
	}
	return s.addr
}

// Stop gracefully shuts the server down.
func (s *Server) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.server.Shutdown(ctx)
}
