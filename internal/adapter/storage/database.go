package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Schema creates the audit tables. Machine and account state is never stored.
// Money columns use domain.MoneyScale, so every stored amount reads back exactly.
const Schema = `
CREATE TABLE IF NOT EXISTS vend_receipts (
	id            UUID PRIMARY KEY,
	machine_id    UUID NOT NULL,
	card_id       UUID NOT NULL,
	account_id    UUID NOT NULL,
	quantity      INTEGER NOT NULL,
	approved      BOOLEAN NOT NULL,
	reason        TEXT NOT NULL,
	charged       NUMERIC(20, 2) NOT NULL,
	balance_after NUMERIC(20, 2) NOT NULL,
	stock_after   INTEGER NOT NULL,
	created_at    TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS vend_receipts_machine_idx ON vend_receipts (machine_id, created_at DESC);

-- A row with a NULL response_status is a claim whose request is still running.
CREATE TABLE IF NOT EXISTS idempotency_keys (
	key_id          TEXT PRIMARY KEY,
	response_status INTEGER,
	response_body   BYTEA,
	created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
ALTER TABLE idempotency_keys ALTER COLUMN response_status DROP NOT NULL;
ALTER TABLE idempotency_keys ALTER COLUMN response_body DROP NOT NULL;
`

// ConnectDB opens a pool, checks connectivity and applies Schema.
func ConnectDB(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	if databaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is not set")
	}

	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("unable to parse database URL: %w", err)
	}

	config.MaxConns = 10
	config.MinConns = 0
	config.MaxConnLifetime = time.Hour
	config.MaxConnIdleTime = 30 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("unable to connect to database: %w", err)
	}

	if _, err := pool.Exec(ctx, Schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("unable to apply schema: %w", err)
	}
	return pool, nil
}
