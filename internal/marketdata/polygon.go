package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/finbright/daytrade/backend/internal/contracts"
	"github.com/finbright/daytrade/backend/pkg/config"
	"github.com/finbright/daytrade/backend/pkg/httputil"
	"github.com/finbright/daytrade/backend/pkg/logger"
	"github.com/finbright/daytrade/backend/pkg/redis"
)

// How many tickers one snapshot request may carry. Polygon caps the
// tickers query parameter length, not the count; 50 stays well under.
const snapshotBatchSize = 50

// PolygonClient implements contracts.MarketDataProvider against the
// Polygon REST API. Every failure path wraps ErrDataUnavailable so
// callers can treat provider trouble uniformly.
type PolygonClient struct {
	http    *httputil.Client
	refHTTP *httputil.Client
	cache   *redis.Cache
	breaker *gobreaker.CircuitBreaker
	local   *rate.Limiter
	baseURL string
	apiKey  string
	log     *logger.Logger
}

// NewPolygonClient wires the provider. The redis rate limiter
// coordinates instances; the local token bucket smooths bursts within
// this process. Aggregate and reference traffic run on separate
// budgets.
func NewPolygonClient(cfg *config.Config, rdb *redis.Client, log *logger.Logger) *PolygonClient {
	limiter := redis.NewRateLimiter(rdb, "engine")

	httpClient := httputil.NewWithTimeout(cfg, log, cfg.Polygon.Timeout).
		WithRateLimiter(limiter, redis.PolygonRateLimit)
	refClient := httputil.NewWithTimeout(cfg, log, cfg.Polygon.Timeout).
		WithRateLimiter(limiter, redis.PolygonReferenceRateLimit)

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "polygon",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.WithFields(map[string]interface{}{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			}).Warn("Circuit breaker state changed")
		},
	})

	return &PolygonClient{
		http:    httpClient,
		refHTTP: refClient,
		cache:   redis.NewCache(rdb, "engine"),
		breaker: breaker,
		local:   rate.NewLimiter(rate.Limit(cfg.Polygon.RateLimit), cfg.Polygon.RateLimit),
		baseURL: strings.TrimRight(cfg.Polygon.BaseURL, "/"),
		apiKey:  cfg.Polygon.APIKey,
		log:     log.WithField("component", "polygon"),
	}
}

type aggsResponse struct {
	Status  string `json:"status"`
	Results []struct {
		T int64   `json:"t"` // start of bar, unix ms
		O float64 `json:"o"`
		H float64 `json:"h"`
		L float64 `json:"l"`
		C float64 `json:"c"`
		V float64 `json:"v"`
	} `json:"results"`
}

// GetBars fetches the most recent lookback bars at the interval,
// oldest first. Results are cached for one minute keyed on the
// request minute, so a generation run fans out to the provider once
// per symbol.
func (p *PolygonClient) GetBars(ctx context.Context, symbol string, interval contracts.Interval, lookback int) ([]contracts.Bar, error) {
	now := time.Now().UTC()
	cacheKey := redis.BarsKey(symbol, string(interval), now.Format("2006-01-02T15:04"))

	var cached []contracts.Bar
	if found, err := p.cache.Get(ctx, cacheKey, &cached); err == nil && found {
		return cached, nil
	}

	mult, timespan, span := intervalParams(interval)
	// Over-fetch the calendar window: weekends and halts mean lookback
	// bars cover more wall-clock time than lookback*interval.
	from := now.Add(-time.Duration(lookback) * span * 4)

	u := fmt.Sprintf("%s/v2/aggs/ticker/%s/range/%d/%s/%d/%d?adjusted=true&sort=asc&limit=%d&apiKey=%s",
		p.baseURL, url.PathEscape(symbol), mult, timespan, from.UnixMilli(), now.UnixMilli(), lookback*2, p.apiKey)

	var parsed aggsResponse
	if err := p.getJSON(ctx, p.http, u, &parsed); err != nil {
		return nil, fmt.Errorf("aggs %s %s: %w", symbol, interval, err)
	}

	bars := make([]contracts.Bar, 0, len(parsed.Results))
	for _, r := range parsed.Results {
		bars = append(bars, contracts.Bar{
			Timestamp: time.UnixMilli(r.T).UTC(),
			Open:      r.O,
			High:      r.H,
			Low:       r.L,
			Close:     r.C,
			Volume:    r.V,
		})
	}
	if len(bars) > lookback {
		bars = bars[len(bars)-lookback:]
	}

	if err := p.cache.Set(ctx, cacheKey, bars, redis.TTLShort); err != nil {
		p.log.WithError(err).Debug("Bar cache write failed")
	}

	return bars, nil
}

type snapshotResponse struct {
	Tickers []snapshotTicker `json:"tickers"`
}

type snapshotTicker struct {
	Ticker           string  `json:"ticker"`
	TodaysChangePerc float64 `json:"todaysChangePerc"`
	Day              struct {
		High   float64 `json:"h"`
		Low    float64 `json:"l"`
		Volume float64 `json:"v"`
	} `json:"day"`
	LastTrade struct {
		Price float64 `json:"p"`
	} `json:"lastTrade"`
	PrevDay struct {
		Close float64 `json:"c"`
	} `json:"prevDay"`
}

// GetSnapshots fetches current state for the symbols in batches.
// Symbols the provider does not know are simply absent from the map.
func (p *PolygonClient) GetSnapshots(ctx context.Context, symbols []string) (map[string]contracts.Snapshot, error) {
	out := make(map[string]contracts.Snapshot, len(symbols))

	for start := 0; start < len(symbols); start += snapshotBatchSize {
		end := start + snapshotBatchSize
		if end > len(symbols) {
			end = len(symbols)
		}
		batch := symbols[start:end]

		u := fmt.Sprintf("%s/v2/snapshot/locale/us/markets/stocks/tickers?tickers=%s&apiKey=%s",
			p.baseURL, url.QueryEscape(strings.Join(batch, ",")), p.apiKey)

		var parsed snapshotResponse
		if err := p.getJSON(ctx, p.http, u, &parsed); err != nil {
			return nil, fmt.Errorf("snapshots: %w", err)
		}

		for _, t := range parsed.Tickers {
			snap := contracts.Snapshot{
				Symbol:    t.Ticker,
				Price:     t.LastTrade.Price,
				DayVolume: t.Day.Volume,
				ChangePct: t.TodaysChangePerc,
				AsOf:      time.Now().UTC(),
			}
			if snap.Price == 0 {
				snap.Price = t.PrevDay.Close
			}
			// Intraday range as the volatility proxy; the realized
			// series needs bars the universe scan does not fetch.
			if snap.Price > 0 && t.Day.High > t.Day.Low {
				snap.Volatility = (t.Day.High - t.Day.Low) / snap.Price
			}
			snap.MarketCap = p.marketCap(ctx, t.Ticker)

			out[t.Ticker] = snap
		}
	}

	return out, nil
}

type moversResponse struct {
	Tickers []snapshotTicker `json:"tickers"`
}

// GetMovers returns the day's gainers and losers feeds combined.
func (p *PolygonClient) GetMovers(ctx context.Context) ([]contracts.Mover, error) {
	var movers []contracts.Mover

	for _, direction := range []string{"gainers", "losers"} {
		u := fmt.Sprintf("%s/v2/snapshot/locale/us/markets/stocks/%s?apiKey=%s", p.baseURL, direction, p.apiKey)

		var parsed moversResponse
		if err := p.getJSON(ctx, p.http, u, &parsed); err != nil {
			return nil, fmt.Errorf("movers %s: %w", direction, err)
		}

		for _, t := range parsed.Tickers {
			movers = append(movers, contracts.Mover{
				Symbol:    t.Ticker,
				Price:     t.LastTrade.Price,
				ChangePct: t.TodaysChangePerc,
			})
		}
	}

	return movers, nil
}

type referenceResponse struct {
	Results struct {
		MarketCap float64 `json:"market_cap"`
	} `json:"results"`
}

// marketCap looks up the reference market cap, cached for an hour.
// Zero means unknown; the universe filter passes unknown caps through.
func (p *PolygonClient) marketCap(ctx context.Context, symbol string) float64 {
	cacheKey := "mcap:" + symbol

	var cached float64
	if found, err := p.cache.Get(ctx, cacheKey, &cached); err == nil && found {
		return cached
	}

	u := fmt.Sprintf("%s/v3/reference/tickers/%s?apiKey=%s", p.baseURL, url.PathEscape(symbol), p.apiKey)

	var parsed referenceResponse
	if err := p.getJSON(ctx, p.refHTTP, u, &parsed); err != nil {
		p.log.WithError(err).WithField("symbol", symbol).Debug("Market cap lookup failed")
		return 0
	}

	if err := p.cache.Set(ctx, cacheKey, parsed.Results.MarketCap, redis.TTLLong); err != nil {
		p.log.WithError(err).Debug("Market cap cache write failed")
	}

	return parsed.Results.MarketCap
}

// getJSON runs one GET through the local limiter and the circuit
// breaker, decoding the body into dest.
func (p *PolygonClient) getJSON(ctx context.Context, client *httputil.Client, url string, dest interface{}) error {
	if err := p.local.Wait(ctx); err != nil {
		return fmt.Errorf("%w: %v", contracts.ErrDataUnavailable, err)
	}

	_, err := p.breaker.Execute(func() (interface{}, error) {
		resp, err := client.Get(ctx, url)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("status %d", resp.StatusCode)
		}

		return nil, json.NewDecoder(resp.Body).Decode(dest)
	})
	if err != nil {
		return fmt.Errorf("%w: %v", contracts.ErrDataUnavailable, err)
	}

	return nil
}

func intervalParams(interval contracts.Interval) (mult int, timespan string, span time.Duration) {
	switch interval {
	case contracts.Interval1m:
		return 1, "minute", time.Minute
	case contracts.Interval5m:
		return 5, "minute", 5 * time.Minute
	default:
		return 1, "day", 24 * time.Hour
	}
}
