package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

var (
	// ErrNotConfigured indicates the storage pool was not initialised.
	ErrNotConfigured = errors.New("storage: pool not configured")
)

const (
	upsertSubscriptionSQL = `INSERT INTO subscriptions (
        chat_id,
        chain_id,
        token_address,
        threshold_pct,
        is_active
    ) VALUES (
        $1,$2,$3,$4,true
    )
    ON CONFLICT (chat_id, chain_id, token_address) WHERE is_active DO UPDATE
    SET
        threshold_pct  = EXCLUDED.threshold_pct,
        prev_price_usd = NULL,
        prev_price_at  = NULL,
        updated_at     = now()
    RETURNING id;`

	deactivateSubscriptionSQL = `UPDATE subscriptions
    SET is_active = false, updated_at = now()
    WHERE chat_id = $1
      AND chain_id = $2
      AND token_address = $3
      AND is_active;`

	listActiveSubscriptionsSQL = `SELECT
        id,
        chat_id,
        chain_id,
        token_address,
        threshold_pct,
        is_active,
        prev_price_usd::text,
        prev_price_at,
        created_at,
        updated_at
    FROM subscriptions
    WHERE is_active
    ORDER BY id;`

	updateSubscriptionPrevSQL = `UPDATE subscriptions
    SET prev_price_usd = $2, prev_price_at = $3, updated_at = now()
    WHERE id = $1;`

	insertPricePointSQL = `INSERT INTO prices (
        chain_id,
        token_address,
        bucket_ts,
        price_usd
    ) VALUES (
        $1,$2,$3,$4
    )
    ON CONFLICT (chain_id, token_address, bucket_ts) DO NOTHING;`

	listPricesSinceSQL = `SELECT
        bucket_ts,
        price_usd::text
    FROM prices
    WHERE chain_id = $1
      AND token_address = $2
      AND bucket_ts >= $3
    ORDER BY bucket_ts;`

	deletePricesBeforeSQL = `DELETE FROM prices WHERE bucket_ts < $1;`

	countPricesBeforeSQL = `SELECT COUNT(*) FROM prices WHERE bucket_ts < $1;`

	upsertTokenSQL = `INSERT INTO tokens (
        chain_id,
        token_address,
        symbol
    ) VALUES (
        $1,$2,$3
    )
    ON CONFLICT (chain_id, token_address) DO UPDATE
    SET symbol = EXCLUDED.symbol, updated_at = now();`

	ensureTokenSQL = `INSERT INTO tokens (
        chain_id,
        token_address,
        symbol
    ) VALUES (
        $1,$2,''
    )
    ON CONFLICT (chain_id, token_address) DO NOTHING;`

	getTokenSymbolSQL = `SELECT symbol FROM tokens WHERE chain_id = $1 AND token_address = $2;`

	upsertChatSQL = `INSERT INTO chats (
        chat_id,
        chat_type,
        title,
        username
    ) VALUES (
        $1,$2,$3,$4
    )
    ON CONFLICT (chat_id) DO UPDATE
    SET chat_type = EXCLUDED.chat_type,
        title     = EXCLUDED.title,
        username  = EXCLUDED.username,
        updated_at = now();`
)

// SubscriptionStore defines operations for monitor subscription persistence.
type SubscriptionStore interface {
	UpsertActiveSubscription(ctx context.Context, sub Subscription) (int64, error)
	DeactivateSubscription(ctx context.Context, chatID int64, chainID, tokenAddress string) (bool, error)
	ListActiveSubscriptions(ctx context.Context) ([]Subscription, error)
	UpdateSubscriptionPrev(ctx context.Context, id int64, price decimal.Decimal, at time.Time) error
}

// TickRecorder persists everything a successful monitor tick produces in one
// transaction.
type TickRecorder interface {
	RecordTick(ctx context.Context, rec TickRecord) error
}

// PriceStore defines operations over the bucketed price history.
type PriceStore interface {
	ListPricesSince(ctx context.Context, chainID, tokenAddress string, since time.Time) ([]PricePoint, error)
	DeletePricesBefore(ctx context.Context, olderThan time.Time) (int64, error)
	CountPricesBefore(ctx context.Context, olderThan time.Time) (int64, error)
}

// TokenStore defines operations over token metadata.
type TokenStore interface {
	UpsertToken(ctx context.Context, chainID, tokenAddress, symbol string) error
	EnsureToken(ctx context.Context, chainID, tokenAddress string) error
	TokenSymbol(ctx context.Context, chainID, tokenAddress string) (string, error)
}

// ChatStore defines operations over known chats.
type ChatStore interface {
	UpsertChat(ctx context.Context, chat Chat) error
}

// Store aggregates access to subscriptions, prices, tokens and chats.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore wires a pgx pool into a Store.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Close releases the underlying pool resources.
func (s *Store) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

func (s *Store) getPool() (*pgxpool.Pool, error) {
	if s == nil || s.pool == nil {
		return nil, ErrNotConfigured
	}
	return s.pool, nil
}

// UpsertActiveSubscription inserts an active subscription or refreshes the
// existing active row for the same (chat, chain, token) identity. A refresh
// resets the stored previous price so monitoring restarts from a clean
// baseline.
func (s *Store) UpsertActiveSubscription(ctx context.Context, sub Subscription) (int64, error) {
	pool, err := s.getPool()
	if err != nil {
		return 0, err
	}

	var id int64
	if scanErr := pool.QueryRow(ctx, upsertSubscriptionSQL,
		sub.ChatID,
		sub.ChainID,
		sub.TokenAddress,
		sub.ThresholdPct,
	).Scan(&id); scanErr != nil {
		return 0, fmt.Errorf("upsert subscription: %w", scanErr)
	}
	return id, nil
}

// DeactivateSubscription flips the active row for the identity to inactive.
// Returns false when no active row existed.
func (s *Store) DeactivateSubscription(ctx context.Context, chatID int64, chainID, tokenAddress string) (bool, error) {
	pool, err := s.getPool()
	if err != nil {
		return false, err
	}

	cmdTag, execErr := pool.Exec(ctx, deactivateSubscriptionSQL, chatID, chainID, tokenAddress)
	if execErr != nil {
		return false, fmt.Errorf("deactivate subscription: %w", execErr)
	}
	return cmdTag.RowsAffected() > 0, nil
}

// ListActiveSubscriptions lists every active subscription ordered by id.
func (s *Store) ListActiveSubscriptions(ctx context.Context) ([]Subscription, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listActiveSubscriptionsSQL)
	if queryErr != nil {
		return nil, fmt.Errorf("list active subscriptions: %w", queryErr)
	}
	defer rows.Close()

	subs := make([]Subscription, 0)
	for rows.Next() {
		sub, scanErr := scanSubscription(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		subs = append(subs, sub)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return subs, nil
}

// UpdateSubscriptionPrev stores the latest observed price as the comparison
// baseline for the subscription.
func (s *Store) UpdateSubscriptionPrev(ctx context.Context, id int64, price decimal.Decimal, at time.Time) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}
	if _, execErr := pool.Exec(ctx, updateSubscriptionPrevSQL, id, price.String(), at); execErr != nil {
		return fmt.Errorf("update subscription prev: %w", execErr)
	}
	return nil
}

// RecordTick persists a successful tick atomically: the bucketed price point,
// the subscription's new baseline and, when known, the token symbol. Either
// everything lands or nothing does.
func (s *Store) RecordTick(ctx context.Context, rec TickRecord) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}

	tx, beginErr := pool.Begin(ctx)
	if beginErr != nil {
		return fmt.Errorf("begin tick tx: %w", beginErr)
	}
	defer tx.Rollback(ctx)

	price := rec.PriceUSD.String()

	if _, execErr := tx.Exec(ctx, insertPricePointSQL,
		rec.ChainID,
		rec.TokenAddress,
		rec.Bucket,
		price,
	); execErr != nil {
		return fmt.Errorf("insert price point: %w", execErr)
	}

	if _, execErr := tx.Exec(ctx, updateSubscriptionPrevSQL,
		rec.SubscriptionID,
		price,
		rec.Bucket,
	); execErr != nil {
		return fmt.Errorf("update subscription prev: %w", execErr)
	}

	if rec.Symbol != "" {
		if _, execErr := tx.Exec(ctx, upsertTokenSQL,
			rec.ChainID,
			rec.TokenAddress,
			rec.Symbol,
		); execErr != nil {
			return fmt.Errorf("upsert token: %w", execErr)
		}
	}

	if commitErr := tx.Commit(ctx); commitErr != nil {
		return fmt.Errorf("commit tick tx: %w", commitErr)
	}
	return nil
}

// ListPricesSince lists price points for a token from a point in time onward,
// ordered by bucket.
func (s *Store) ListPricesSince(ctx context.Context, chainID, tokenAddress string, since time.Time) ([]PricePoint, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listPricesSinceSQL, chainID, tokenAddress, since)
	if queryErr != nil {
		return nil, fmt.Errorf("list prices since: %w", queryErr)
	}
	defer rows.Close()

	points := make([]PricePoint, 0)
	for rows.Next() {
		var (
			bucket   time.Time
			priceStr string
		)
		if scanErr := rows.Scan(&bucket, &priceStr); scanErr != nil {
			return nil, scanErr
		}
		price, convErr := decimal.NewFromString(priceStr)
		if convErr != nil {
			return nil, fmt.Errorf("parse price: %w", convErr)
		}
		points = append(points, PricePoint{
			ChainID:      chainID,
			TokenAddress: tokenAddress,
			Bucket:       bucket,
			PriceUSD:     price,
		})
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return points, nil
}

// DeletePricesBefore removes price points older than the cutoff, returning
// how many rows went away.
func (s *Store) DeletePricesBefore(ctx context.Context, olderThan time.Time) (int64, error) {
	pool, err := s.getPool()
	if err != nil {
		return 0, err
	}
	cmdTag, execErr := pool.Exec(ctx, deletePricesBeforeSQL, olderThan)
	if execErr != nil {
		return 0, fmt.Errorf("delete prices before: %w", execErr)
	}
	return cmdTag.RowsAffected(), nil
}

// CountPricesBefore counts price points older than the cutoff without
// touching them.
func (s *Store) CountPricesBefore(ctx context.Context, olderThan time.Time) (int64, error) {
	pool, err := s.getPool()
	if err != nil {
		return 0, err
	}
	var count int64
	if scanErr := pool.QueryRow(ctx, countPricesBeforeSQL, olderThan).Scan(&count); scanErr != nil {
		return 0, fmt.Errorf("count prices before: %w", scanErr)
	}
	return count, nil
}

// UpsertToken stores or refreshes token symbol metadata.
func (s *Store) UpsertToken(ctx context.Context, chainID, tokenAddress, symbol string) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}
	if _, execErr := pool.Exec(ctx, upsertTokenSQL, chainID, tokenAddress, symbol); execErr != nil {
		return fmt.Errorf("upsert token: %w", execErr)
	}
	return nil
}

// EnsureToken inserts a token row if none exists, without clobbering an
// already known symbol.
func (s *Store) EnsureToken(ctx context.Context, chainID, tokenAddress string) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}
	if _, execErr := pool.Exec(ctx, ensureTokenSQL, chainID, tokenAddress); execErr != nil {
		return fmt.Errorf("ensure token: %w", execErr)
	}
	return nil
}

// TokenSymbol returns the stored symbol for a token, or "" when the token is
// unknown.
func (s *Store) TokenSymbol(ctx context.Context, chainID, tokenAddress string) (string, error) {
	pool, err := s.getPool()
	if err != nil {
		return "", err
	}
	var symbol string
	if scanErr := pool.QueryRow(ctx, getTokenSymbolSQL, chainID, tokenAddress).Scan(&symbol); scanErr != nil {
		if errors.Is(scanErr, pgx.ErrNoRows) {
			return "", nil
		}
		return "", fmt.Errorf("get token symbol: %w", scanErr)
	}
	return symbol, nil
}

// UpsertChat stores or refreshes chat metadata.
func (s *Store) UpsertChat(ctx context.Context, chat Chat) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}
	if _, execErr := pool.Exec(ctx, upsertChatSQL, chat.ID, chat.Type, chat.Title, chat.Username); execErr != nil {
		return fmt.Errorf("upsert chat: %w", execErr)
	}
	return nil
}

func scanSubscription(rows pgx.Rows) (Subscription, error) {
	var (
		sub     Subscription
		prevStr sql.NullString
		prevAt  sql.NullTime
	)

	if err := rows.Scan(
		&sub.ID,
		&sub.ChatID,
		&sub.ChainID,
		&sub.TokenAddress,
		&sub.ThresholdPct,
		&sub.IsActive,
		&prevStr,
		&prevAt,
		&sub.CreatedAt,
		&sub.UpdatedAt,
	); err != nil {
		return Subscription{}, err
	}

	if prevStr.Valid {
		prev, convErr := decimal.NewFromString(prevStr.String)
		if convErr != nil {
			return Subscription{}, fmt.Errorf("parse prev price: %w", convErr)
		}
		sub.PrevPriceUSD = &prev
	}
	if prevAt.Valid {
		at := prevAt.Time
		sub.PrevPriceAt = &at
	}

	return sub, nil
}
