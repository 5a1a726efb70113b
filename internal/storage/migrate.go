package storage

import "context"

const migrationSQL = `
CREATE TABLE IF NOT EXISTS chats (
    chat_id BIGINT PRIMARY KEY,
    chat_type TEXT NOT NULL DEFAULT '',
    title TEXT NOT NULL DEFAULT '',
    username TEXT NOT NULL DEFAULT '',
    created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS tokens (
    chain_id TEXT NOT NULL,
    token_address TEXT NOT NULL,
    symbol TEXT NOT NULL DEFAULT '',
    updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
    PRIMARY KEY (chain_id, token_address)
);

CREATE TABLE IF NOT EXISTS subscriptions (
    id BIGSERIAL PRIMARY KEY,
    chat_id BIGINT NOT NULL,
    chain_id TEXT NOT NULL,
    token_address TEXT NOT NULL,
    threshold_pct DOUBLE PRECISION NOT NULL,
    is_active BOOLEAN NOT NULL DEFAULT true,
    prev_price_usd NUMERIC,
    prev_price_at TIMESTAMPTZ,
    created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

-- One live monitor per (chat, chain, token); stopped rows stay for history.
CREATE UNIQUE INDEX IF NOT EXISTS subscriptions_active_identity_idx
    ON subscriptions (chat_id, chain_id, token_address)
    WHERE is_active;

CREATE TABLE IF NOT EXISTS prices (
    chain_id TEXT NOT NULL,
    token_address TEXT NOT NULL,
    bucket_ts TIMESTAMPTZ NOT NULL,
    price_usd NUMERIC NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
    PRIMARY KEY (chain_id, token_address, bucket_ts)
);

CREATE INDEX IF NOT EXISTS prices_bucket_ts_idx ON prices (bucket_ts);
`

// Migrate creates the schema if it does not exist yet. The statements are
// idempotent so running it on every startup is safe.
func (s *Store) Migrate(ctx context.Context) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}
	_, err = pool.Exec(ctx, migrationSQL)
	return err
}
