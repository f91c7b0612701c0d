// Package marketdata fetches equity snapshots and dividend ledgers from the
// external data provider. The provider returns complete snapshots per call;
// there is no pagination or streaming contract.
package marketdata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/fatiainvest/screener/internal/modules/dividends"
	"github.com/fatiainvest/screener/internal/modules/screener"
)

// ErrSuperseded is returned when a response arrives after a newer request for
// the same scope was issued. Last-request-wins is decided by request
// identity, not arrival order, so a slow stale fetch can never overwrite
// state belonging to a newer one.
var ErrSuperseded = errors.New("response superseded by a newer request")

// Client for the equity data provider.
type Client struct {
	baseURL string
	client  *http.Client
	log     zerolog.Logger
	cache   *SnapshotCache // Optional - if nil, caching is disabled

	mu          sync.Mutex
	generations map[string]string // scope -> current request id
}

// NewClient creates a new data provider client.
// cache is optional - if nil, the stale-snapshot fallback is disabled.
func NewClient(baseURL string, cache *SnapshotCache, log zerolog.Logger) *Client {
	return &Client{
		baseURL:     baseURL,
		client:      &http.Client{Timeout: 10 * time.Second},
		log:         log.With().Str("client", "marketdata").Logger(),
		cache:       cache,
		generations: make(map[string]string),
	}
}

// GetEquities fetches the full equity snapshot with current valuation fields.
// If the provider is unreachable, the last cached snapshot is returned
// instead (stale data > no data); the error is only surfaced when there is
// no cache to fall back on.
func (c *Client) GetEquities(ctx context.Context) ([]screener.Equity, error) {
	gen := c.begin("equities")

	var equities []screener.Equity
	err := c.getJSON(ctx, c.baseURL+"/equities", &equities)
	if !c.current("equities", gen) {
		// Success and failure alike: a superseded request must not deliver
		// anything, not even the stale fallback.
		return nil, ErrSuperseded
	}
	if err != nil {
		if cached, ok := c.staleSnapshot(); ok {
			c.log.Warn().Err(err).Int("count", len(cached)).Msg("Provider failed, using stale cached snapshot")
			return cached, nil
		}
		return nil, fmt.Errorf("failed to fetch equities: %w", err)
	}

	if c.cache != nil {
		if err := c.cache.PutSnapshot(equities); err != nil {
			c.log.Warn().Err(err).Msg("Failed to cache equity snapshot")
		}
	}
	return equities, nil
}

// GetDividendHistory fetches the per-year dividend ledger for a ticker. A new
// history request supersedes any outstanding one: switching the focused
// equity while a fetch is in flight discards the stale response.
func (c *Client) GetDividendHistory(ctx context.Context, ticker string) ([]dividends.Entry, error) {
	gen := c.begin("dividends")

	var entries []dividends.Entry
	url := fmt.Sprintf("%s/equities/%s/dividends", c.baseURL, ticker)
	if err := c.getJSON(ctx, url, &entries); err != nil {
		return nil, fmt.Errorf("failed to fetch dividend history for %s: %w", ticker, err)
	}

	if !c.current("dividends", gen) {
		return nil, ErrSuperseded
	}
	return entries, nil
}

// begin registers a new request generation for a scope and returns its id.
func (c *Client) begin(scope string) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := uuid.NewString()
	c.generations[scope] = id
	return id
}

// current reports whether the given generation is still the newest for scope.
func (c *Client) current(scope, id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.generations[scope] == id
}

func (c *Client) getJSON(ctx context.Context, url string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("provider returned status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func (c *Client) staleSnapshot() ([]screener.Equity, bool) {
	if c.cache == nil {
		return nil, false
	}
	equities, err := c.cache.GetSnapshot()
	if err != nil || equities == nil {
		return nil, false
	}
	return equities, true
}
