// Package postgres implements store.Store over PostgreSQL via pgx/v5,
// for deployments that want the UTXO set queryable with SQL and backed by
// a shared, durable, horizontally-replicated database rather than a
// single embedded file.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/milanterhes/utxo-indexer/internal/store"
)

// Store implements store.Store against a pgxpool-managed connection pool.
type Store struct {
	pool *pgxpool.Pool
}

// Open connects to dsn, runs the schema migration, and returns a ready
// Store.
func Open(ctx context.Context, dsn string) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: connect: %w", err)
	}
	if err := Migrate(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}
	return &Store{pool: pool}, nil
}

// Close releases the connection pool.
func (s *Store) Close() {
	s.pool.Close()
}

func (s *Store) Insert(record store.UTXO) error {
	ctx := context.Background()
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now()
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO utxos (txid, vout, address, value, block_height, spent, spent_txid, spent_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, record.TxID, int64(record.Vout), record.Address, int64(record.Value), int64(record.BlockHeight),
		record.Spent, nullIfEmpty(record.SpentTxID), nullIfZero(record.SpentAt), record.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return &store.DuplicateError{TxID: record.TxID, Vout: record.Vout}
		}
		return fmt.Errorf("postgres: insert: %w", err)
	}
	return nil
}

func (s *Store) FindUnspent(refs []store.OutRef) ([]store.UTXO, error) {
	if len(refs) == 0 {
		return nil, nil
	}
	ctx := context.Background()
	txids := make([]string, len(refs))
	vouts := make([]int64, len(refs))
	for i, r := range refs {
		txids[i] = r.TxID
		vouts[i] = int64(r.Vout)
	}
	rows, err := s.pool.Query(ctx, `
		SELECT txid, vout, address, value, block_height, spent, spent_txid, spent_at, created_at
		FROM utxos
		WHERE (txid, vout) IN (SELECT * FROM unnest($1::text[], $2::bigint[]))
		  AND spent = false
	`, txids, vouts)
	if err != nil {
		return nil, fmt.Errorf("postgres: find unspent: %w", err)
	}
	defer rows.Close()
	return scanAll(rows)
}

func (s *Store) MarkSpent(txid string, vout uint64, spendingTxID string) error {
	ctx := context.Background()
	tag, err := s.pool.Exec(ctx, `
		UPDATE utxos SET spent = true, spent_txid = $3, spent_at = now()
		WHERE txid = $1 AND vout = $2 AND spent = false
	`, txid, int64(vout), spendingTxID)
	if err != nil {
		return fmt.Errorf("postgres: mark spent: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) Balance(address string) (uint64, error) {
	ctx := context.Background()
	var sum int64
	err := s.pool.QueryRow(ctx, `
		SELECT COALESCE(SUM(value), 0) FROM utxos WHERE address = $1 AND spent = false
	`, address).Scan(&sum)
	if err != nil {
		return 0, fmt.Errorf("postgres: balance: %w", err)
	}
	return uint64(sum), nil
}

func (s *Store) Tip() (uint64, error) {
	ctx := context.Background()
	var tip int64
	err := s.pool.QueryRow(ctx, `SELECT COALESCE(MAX(block_height), 0) FROM utxos`).Scan(&tip)
	if err != nil {
		return 0, fmt.Errorf("postgres: tip: %w", err)
	}
	return uint64(tip), nil
}

func (s *Store) FindAbove(h uint64) ([]store.UTXO, error) {
	ctx := context.Background()
	rows, err := s.pool.Query(ctx, `
		SELECT txid, vout, address, value, block_height, spent, spent_txid, spent_at, created_at
		FROM utxos WHERE block_height > $1
	`, int64(h))
	if err != nil {
		return nil, fmt.Errorf("postgres: find above: %w", err)
	}
	defer rows.Close()
	return scanAll(rows)
}

func (s *Store) UnspendBySpendingTxIDs(ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	ctx := context.Background()
	_, err := s.pool.Exec(ctx, `
		UPDATE utxos SET spent = false, spent_txid = NULL, spent_at = NULL
		WHERE spent_txid = ANY($1::text[])
	`, ids)
	if err != nil {
		return fmt.Errorf("postgres: unspend: %w", err)
	}
	return nil
}

func (s *Store) DeleteAbove(h uint64) error {
	ctx := context.Background()
	_, err := s.pool.Exec(ctx, `DELETE FROM utxos WHERE block_height > $1`, int64(h))
	if err != nil {
		return fmt.Errorf("postgres: delete above: %w", err)
	}
	return nil
}

func scanAll(rows pgx.Rows) ([]store.UTXO, error) {
	var out []store.UTXO
	for rows.Next() {
		var (
			rec         store.UTXO
			value       int64
			blockHeight int64
			vout        int64
			spentTxID   *string
			spentAt     *time.Time
		)
		if err := rows.Scan(&rec.TxID, &vout, &rec.Address, &value, &blockHeight, &rec.Spent, &spentTxID, &spentAt, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("postgres: scan: %w", err)
		}
		rec.Vout = uint64(vout)
		rec.Value = uint64(value)
		rec.BlockHeight = uint64(blockHeight)
		if spentTxID != nil {
			rec.SpentTxID = *spentTxID
		}
		if spentAt != nil {
			rec.SpentAt = *spentAt
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: rows: %w", err)
	}
	return out, nil
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullIfZero(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}
