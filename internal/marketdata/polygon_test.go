package marketdata

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finbright/daytrade/backend/internal/contracts"
	"github.com/finbright/daytrade/backend/pkg/config"
	"github.com/finbright/daytrade/backend/pkg/logger"
	"github.com/finbright/daytrade/backend/pkg/redis"
)

func testClient(t *testing.T, baseURL string) *PolygonClient {
	t.Helper()

	cfg := &config.Config{
		Env:       "test",
		LogLevel:  "error",
		LogFormat: "json",
		Redis:     config.RedisConfig{Enabled: false},
		Polygon: config.PolygonConfig{
			APIKey:    "test-key",
			BaseURL:   baseURL,
			Timeout:   2 * time.Second,
			RateLimit: 1000,
		},
	}

	rdb, err := redis.New(cfg)
	require.NoError(t, err)

	return NewPolygonClient(cfg, rdb, logger.New(cfg))
}

func TestGetBars(t *testing.T) {
	base := time.Date(2025, 6, 2, 13, 30, 0, 0, time.UTC)

	mux := http.NewServeMux()
	mux.HandleFunc("/v2/aggs/", func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.Path, "/ticker/AAPL/range/5/minute/")
		assert.Equal(t, "test-key", r.URL.Query().Get("apiKey"))

		fmt.Fprintf(w, `{"status":"OK","results":[
			{"t":%d,"o":100,"h":101,"l":99.5,"c":100.5,"v":100000},
			{"t":%d,"o":100.5,"h":102,"l":100,"c":101.5,"v":120000},
			{"t":%d,"o":101.5,"h":103,"l":101,"c":102.5,"v":90000}
		]}`, base.UnixMilli(), base.Add(5*time.Minute).UnixMilli(), base.Add(10*time.Minute).UnixMilli())
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	bars, err := testClient(t, srv.URL).GetBars(context.Background(), "AAPL", contracts.Interval5m, 120)
	require.NoError(t, err)
	require.Len(t, bars, 3)

	assert.Equal(t, base, bars[0].Timestamp)
	assert.Equal(t, 100.5, bars[0].Close)
	assert.Equal(t, 102.5, bars[2].Close)
	assert.True(t, bars[0].Timestamp.Before(bars[2].Timestamp), "oldest first")
}

func TestGetBarsTrimsToLookback(t *testing.T) {
	base := time.Date(2025, 6, 2, 13, 30, 0, 0, time.UTC)

	mux := http.NewServeMux()
	mux.HandleFunc("/v2/aggs/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"status":"OK","results":[`)
		for i := 0; i < 10; i++ {
			if i > 0 {
				fmt.Fprint(w, ",")
			}
			fmt.Fprintf(w, `{"t":%d,"o":100,"h":101,"l":99,"c":%d,"v":1000}`,
				base.Add(time.Duration(i)*5*time.Minute).UnixMilli(), 100+i)
		}
		fmt.Fprint(w, `]}`)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	bars, err := testClient(t, srv.URL).GetBars(context.Background(), "AAPL", contracts.Interval5m, 4)
	require.NoError(t, err)
	require.Len(t, bars, 4)
	assert.Equal(t, 109.0, bars[3].Close, "keeps the newest bars")
}

func TestGetBarsProviderFailure(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "not found", http.StatusNotFound)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	_, err := testClient(t, srv.URL).GetBars(context.Background(), "AAPL", contracts.Interval5m, 10)
	require.Error(t, err)
	assert.True(t, errors.Is(err, contracts.ErrDataUnavailable))
}

func TestGetSnapshots(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/v2/snapshot/locale/us/markets/stocks/tickers", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "AAPL,MSFT", r.URL.Query().Get("tickers"))

		fmt.Fprint(w, `{"tickers":[
			{"ticker":"AAPL","todaysChangePerc":2.5,
			 "day":{"h":152,"l":148,"v":30000000},
			 "lastTrade":{"p":150},
			 "prevDay":{"c":146.3}},
			{"ticker":"MSFT","todaysChangePerc":-1.0,
			 "day":{"h":0,"l":0,"v":0},
			 "lastTrade":{"p":0},
			 "prevDay":{"c":410}}
		]}`)
	})
	mux.HandleFunc("/v3/reference/tickers/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"results":{"market_cap":2500000000000}}`)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	snaps, err := testClient(t, srv.URL).GetSnapshots(context.Background(), []string{"AAPL", "MSFT"})
	require.NoError(t, err)
	require.Len(t, snaps, 2)

	aapl := snaps["AAPL"]
	assert.Equal(t, 150.0, aapl.Price)
	assert.Equal(t, 2.5, aapl.ChangePct)
	assert.Equal(t, 3e7, aapl.DayVolume)
	assert.InDelta(t, 4.0/150.0, aapl.Volatility, 1e-9, "day range over price")
	assert.Equal(t, 2.5e12, aapl.MarketCap)

	msft := snaps["MSFT"]
	assert.Equal(t, 410.0, msft.Price, "falls back to previous close before the open")
	assert.Equal(t, 0.0, msft.Volatility)
}

func TestGetMoversCombinesGainersAndLosers(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/v2/snapshot/locale/us/markets/stocks/gainers", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"tickers":[{"ticker":"NVDA","todaysChangePerc":8.1,"lastTrade":{"p":130}}]}`)
	})
	mux.HandleFunc("/v2/snapshot/locale/us/markets/stocks/losers", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"tickers":[{"ticker":"UPST","todaysChangePerc":-12.4,"lastTrade":{"p":22}}]}`)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	movers, err := testClient(t, srv.URL).GetMovers(context.Background())
	require.NoError(t, err)
	require.Len(t, movers, 2)

	assert.Equal(t, "NVDA", movers[0].Symbol)
	assert.Equal(t, 8.1, movers[0].ChangePct)
	assert.Equal(t, "UPST", movers[1].Symbol)
	assert.Equal(t, -12.4, movers[1].ChangePct)
}

func TestBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	var hits atomic.Int64

	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		http.Error(w, "not found", http.StatusNotFound)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	client := testClient(t, srv.URL)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := client.GetMovers(ctx)
		require.Error(t, err)
	}
	tripped := hits.Load()

	// The breaker is open: requests fail fast without reaching the
	// server.
	_, err := client.GetMovers(ctx)
	require.Error(t, err)
	assert.True(t, errors.Is(err, contracts.ErrDataUnavailable))
	assert.Equal(t, tripped, hits.Load())
}
