// Command indexer runs the UTXO indexing HTTP service: block ingestion,
// rollback, and balance queries over a pluggable store backend selected
// by the scheme of DATABASE_URL.
package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/milanterhes/utxo-indexer/internal/api"
	"github.com/milanterhes/utxo-indexer/internal/chain"
	"github.com/milanterhes/utxo-indexer/internal/config"
	"github.com/milanterhes/utxo-indexer/internal/gate"
	"github.com/milanterhes/utxo-indexer/internal/log"
	"github.com/milanterhes/utxo-indexer/internal/store"
	"github.com/milanterhes/utxo-indexer/internal/store/bolt"
	"github.com/milanterhes/utxo-indexer/internal/store/postgres"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		os.Stderr.WriteString("indexer: " + err.Error() + "\n")
		os.Exit(1)
	}
	log.Init(cfg.LogLevel, cfg.LogFormat)

	s, closeStore, err := openStore(cfg.DatabaseURL)
	if err != nil {
		log.Logger.Fatal().Err(err).Msg("failed to open store")
	}
	defer closeStore()

	g := gate.New()
	ingestor := chain.NewIngestor(s)
	rollback := chain.NewRollback(s)
	balance := chain.NewBalance(s)

	srv := api.New(cfg.ListenAddr, ingestor, rollback, balance, g, cfg.DefaultGateTTLMs)
	if err := srv.Start(); err != nil {
		log.Logger.Fatal().Err(err).Msg("failed to start api server")
	}
	log.Logger.Info().Str("addr", srv.Addr()).Msg("indexer listening")

	waitForShutdown()

	log.Logger.Info().Msg("shutting down")
	if err := srv.Stop(); err != nil {
		log.Logger.Error().Err(err).Msg("error during shutdown")
	}
}

func waitForShutdown() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	<-ctx.Done()
}

// openStore selects and opens a backend by the scheme of dsn: postgres://
// or postgresql:// for PostgreSQL, bolt:// or a bare filesystem path for
// bbolt.
func openStore(dsn string) (store.Store, func(), error) {
	switch {
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"):
		s, err := postgres.Open(context.Background(), dsn)
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	case strings.HasPrefix(dsn, "bolt://"):
		path := strings.TrimPrefix(dsn, "bolt://")
		s, err := bolt.Open(path)
		if err != nil {
			return nil, nil, err
		}
		return s, func() { _ = s.Close() }, nil
	default:
		s, err := bolt.Open(dsn)
		if err != nil {
			return nil, nil, err
		}
		return s, func() { _ = s.Close() }, nil
	}
}
