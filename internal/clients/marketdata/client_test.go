package marketdata

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fatiainvest/screener/internal/modules/dividends"
	"github.com/fatiainvest/screener/internal/modules/screener"

	_ "modernc.org/sqlite"
)

func setupCache(t *testing.T) *SnapshotCache {
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	cache := NewSnapshotCache(db, zerolog.New(nil).Level(zerolog.Disabled))
	require.NoError(t, cache.InitSchema())
	return cache
}

func testLog() zerolog.Logger {
	return zerolog.New(nil).Level(zerolog.Disabled)
}

func TestGetEquitiesFetchesAndCaches(t *testing.T) {
	want := []screener.Equity{{Ticker: "PETR4", CompanyName: "Petrobras", CurrentPrice: 30}}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/equities", r.URL.Path)
		json.NewEncoder(w).Encode(want)
	}))
	defer srv.Close()

	cache := setupCache(t)
	c := NewClient(srv.URL, cache, testLog())

	got, err := c.GetEquities(context.Background())
	require.NoError(t, err)
	assert.Equal(t, want, got)

	cached, err := cache.GetSnapshot()
	require.NoError(t, err)
	assert.Equal(t, want, cached)
}

func TestGetEquitiesFallsBackToStaleSnapshot(t *testing.T) {
	var failing atomic.Bool
	want := []screener.Equity{{Ticker: "VALE3", CurrentPrice: 60}}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if failing.Load() {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		json.NewEncoder(w).Encode(want)
	}))
	defer srv.Close()

	cache := setupCache(t)
	c := NewClient(srv.URL, cache, testLog())

	_, err := c.GetEquities(context.Background())
	require.NoError(t, err)

	// Provider goes down; the last good snapshot is served instead.
	failing.Store(true)
	got, err := c.GetEquities(context.Background())
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestGetEquitiesFailsWithoutCache(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, nil, testLog())
	_, err := c.GetEquities(context.Background())
	require.Error(t, err)
}

func TestSupersededResponseIsDropped(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
		json.NewEncoder(w).Encode([]dividends.Entry{{Year: 2024, Amount: 2}})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, nil, testLog())

	errCh := make(chan error, 1)
	go func() {
		_, err := c.GetDividendHistory(context.Background(), "PETR4")
		errCh <- err
	}()

	// A newer request for the same scope supersedes the in-flight one.
	// Wait for the first request to register before superseding it.
	require.Eventually(t, func() bool {
		return currentGeneration(c, "dividends") != ""
	}, time.Second, 10*time.Millisecond)
	c.begin("dividends")
	close(release)

	assert.ErrorIs(t, <-errCh, ErrSuperseded)
}

func TestStaleFallbackNotServedWhenSuperseded(t *testing.T) {
	var failing atomic.Bool
	release := make(chan struct{})
	want := []screener.Equity{{Ticker: "PETR4", CurrentPrice: 30}}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if failing.Load() {
			<-release
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		json.NewEncoder(w).Encode(want)
	}))
	defer srv.Close()

	cache := setupCache(t)
	c := NewClient(srv.URL, cache, testLog())

	// Prime the cache, then make the provider fail slowly.
	_, err := c.GetEquities(context.Background())
	require.NoError(t, err)
	primed := currentGeneration(c, "equities")
	failing.Store(true)

	errCh := make(chan error, 1)
	go func() {
		_, err := c.GetEquities(context.Background())
		errCh <- err
	}()

	// Once the slow request has registered, supersede it and let it fail.
	// It must surface ErrSuperseded, never the cached snapshot.
	require.Eventually(t, func() bool {
		return currentGeneration(c, "equities") != primed
	}, time.Second, 10*time.Millisecond)
	c.begin("equities")
	close(release)

	assert.ErrorIs(t, <-errCh, ErrSuperseded)
}

func currentGeneration(c *Client, scope string) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.generations[scope]
}

func TestSnapshotCacheRoundTrip(t *testing.T) {
	cache := setupCache(t)

	// Empty cache yields nil, not an error.
	got, err := cache.GetSnapshot()
	require.NoError(t, err)
	assert.Nil(t, got)

	yield := 7.5
	want := []screener.Equity{{Ticker: "PETR4", CurrentPrice: 30, AverageYieldPercent: &yield}}
	require.NoError(t, cache.PutSnapshot(want))

	got, err = cache.GetSnapshot()
	require.NoError(t, err)
	assert.Equal(t, want, got)

	// A second put replaces the first.
	want2 := []screener.Equity{{Ticker: "VALE3", CurrentPrice: 60}}
	require.NoError(t, cache.PutSnapshot(want2))
	got, err = cache.GetSnapshot()
	require.NoError(t, err)
	assert.Equal(t, want2, got)
}
