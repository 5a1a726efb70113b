package fetcher

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const tokenPairsPathFmt = "/tokens/v1/%s/%s"

// DexScreenerOptions parameterise the DexScreener fetcher.
type DexScreenerOptions struct {
	BaseURL   string
	Timeout   time.Duration
	UserAgent string
}

// DexScreener fetches trading pairs from the public DexScreener API.
type DexScreener struct {
	opts    DexScreenerOptions
	logger  zerolog.Logger
	client  *http.Client
	baseURL string
}

// NewDexScreener constructs a pair fetcher.
func NewDexScreener(opts DexScreenerOptions, logger zerolog.Logger) *DexScreener {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.dexscreener.com"
	}

	return &DexScreener{
		opts:    opts,
		logger:  logger.With().Str("component", "dexscreener_fetcher").Logger(),
		client:  &http.Client{Timeout: timeout},
		baseURL: baseURL,
	}
}

// FetchPairs retrieves the pairs quoted for (chain, token).
func (d *DexScreener) FetchPairs(ctx context.Context, chainID, tokenAddress string) ([]Pair, error) {
	endpoint := d.baseURL + fmt.Sprintf(tokenPairsPathFmt, chainID, tokenAddress)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if ua := strings.TrimSpace(d.opts.UserAgent); ua != "" {
		req.Header.Set("User-Agent", ua)
	} else {
		req.Header.Set("User-Agent", "dexmonitor/1.0")
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		return nil, parseHTTPError(resp.StatusCode, payload)
	}

	return decodePairs(payload)
}

// decodePairs accepts both response shapes the API has served over time: a
// bare JSON array, or an object wrapping the array under "pairs".
func decodePairs(payload []byte) ([]Pair, error) {
	trimmed := bytes.TrimSpace(payload)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var pairs []Pair
		if err := json.Unmarshal(trimmed, &pairs); err != nil {
			return nil, fmt.Errorf("decode pairs: %w", err)
		}
		return pairs, nil
	}

	var wrapped struct {
		Pairs []Pair `json:"pairs"`
	}
	if err := json.Unmarshal(trimmed, &wrapped); err != nil {
		return nil, fmt.Errorf("decode pairs: %w", err)
	}
	return wrapped.Pairs, nil
}

func parseHTTPError(status int, payload []byte) error {
	var apiErr struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(payload, &apiErr); err == nil {
		if apiErr.Message != "" {
			return fmt.Errorf("dexscreener api error (%d): %s", status, apiErr.Message)
		}
		if apiErr.Error != "" {
			return fmt.Errorf("dexscreener api error (%d): %s", status, apiErr.Error)
		}
	}
	if len(payload) > 0 {
		body := strings.TrimSpace(string(payload))
		if len(body) > 200 {
			body = body[:200]
		}
		return fmt.Errorf("dexscreener api error (%d): %s", status, body)
	}
	return fmt.Errorf("dexscreener api error (%d)", status)
}

var _ PairFetcher = (*DexScreener)(nil)
