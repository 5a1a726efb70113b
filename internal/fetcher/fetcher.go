package fetcher

import (
	"context"
)

// Token identifies one side of a trading pair.
type Token struct {
	Address string `json:"address"`
	Name    string `json:"name"`
	Symbol  string `json:"symbol"`
}

// Pair is a single DexScreener trading pair. PriceUSD is a pointer because
// the API omits the field for pairs without a USD quote; that absence is a
// condition callers must be able to see.
type Pair struct {
	ChainID     string  `json:"chainId"`
	DexID       string  `json:"dexId"`
	URL         string  `json:"url"`
	PairAddress string  `json:"pairAddress"`
	BaseToken   Token   `json:"baseToken"`
	QuoteToken  Token   `json:"quoteToken"`
	PriceNative string  `json:"priceNative"`
	PriceUSD    *string `json:"priceUsd"`
}

// PairFetcher retrieves the trading pairs quoted for a token. The returned
// slice preserves API order; callers treat the first entry as authoritative.
// An empty slice is not an error.
type PairFetcher interface {
	FetchPairs(ctx context.Context, chainID, tokenAddress string) ([]Pair, error)
}
