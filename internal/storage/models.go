package storage

import (
	"time"

	"github.com/shopspring/decimal"
)

// Subscription is one monitor configuration for a (chat, chain, token)
// identity. At most one active row exists per identity; inactive rows are
// kept for history and never scheduled.
type Subscription struct {
	ID           int64
	ChatID       int64
	ChainID      string
	TokenAddress string
	ThresholdPct float64
	IsActive     bool
	PrevPriceUSD *decimal.Decimal
	PrevPriceAt  *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// PricePoint is one bucketed price sample. Bucket is truncated to the shared
// bucket interval so concurrent monitors of the same token collapse onto one
// row.
type PricePoint struct {
	ChainID      string
	TokenAddress string
	Bucket       time.Time
	PriceUSD     decimal.Decimal
}

// TickRecord carries everything one monitor tick persists. The three writes
// it describes are applied in a single transaction.
type TickRecord struct {
	SubscriptionID int64
	ChainID        string
	TokenAddress   string
	Bucket         time.Time
	PriceUSD       decimal.Decimal
	Symbol         string
}

// Chat captures where a command came from; advisory metadata only.
type Chat struct {
	ID       int64
	Type     string
	Title    string
	Username string
}
