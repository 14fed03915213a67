package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Migrate creates the utxos table and its indexes if they do not already
// exist. It is safe to call on every startup.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS utxos (
			txid         text    NOT NULL,
			vout         bigint  NOT NULL,
			address      text    NOT NULL,
			value        bigint  NOT NULL,
			block_height bigint  NOT NULL,
			spent        boolean NOT NULL DEFAULT false,
			spent_txid   text,
			spent_at     timestamptz,
			created_at   timestamptz NOT NULL DEFAULT now(),
			PRIMARY KEY (txid, vout)
		);
		CREATE INDEX IF NOT EXISTS utxos_address_unspent_idx
			ON utxos (address) WHERE spent = false;
		CREATE INDEX IF NOT EXISTS utxos_block_height_idx
			ON utxos (block_height);
		CREATE INDEX IF NOT EXISTS utxos_spent_txid_idx
			ON utxos (spent_txid) WHERE spent_txid IS NOT NULL;
	`)
	if err != nil {
		return fmt.Errorf("postgres: migrate: %w", err)
	}
	return nil
}
