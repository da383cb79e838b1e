package universe

import (
	"context"
	"fmt"
	"time"

	"github.com/finbright/daytrade/backend/internal/contracts"
	"github.com/finbright/daytrade/backend/pkg/logger"
)

// minDynamicSize is the smallest movers-based universe worth using;
// below this the filter falls back to the curated core list.
const minDynamicSize = 10

// Candidate is one admitted symbol with the snapshot that admitted it.
type Candidate struct {
	Symbol   string                  `json:"symbol"`
	Source   contracts.UniverseSource `json:"source"`
	Snapshot contracts.Snapshot      `json:"snapshot"`
}

// Universe is the result of one filter run.
type Universe struct {
	Mode       contracts.Mode           `json:"mode"`
	AsOf       time.Time                `json:"as_of"`
	Source     contracts.UniverseSource `json:"source"`
	Candidates []Candidate              `json:"candidates"`
	Excluded   map[string]string        `json:"excluded"`
	Scanned    int                      `json:"scanned"`
}

// Symbols returns the admitted symbols in admission order.
func (u *Universe) Symbols() []string {
	out := make([]string, 0, len(u.Candidates))
	for _, c := range u.Candidates {
		out = append(out, c.Symbol)
	}
	return out
}

// Filter selects the tradeable candidate set for a generation run.
type Filter struct {
	provider contracts.MarketDataProvider
	cache    *Cache
	log      *logger.Logger
	maxSize  int
}

// NewFilter creates a universe filter. cacheTTL bounds provider
// calls when generation runs back to back.
func NewFilter(provider contracts.MarketDataProvider, log *logger.Logger, maxSize int, cacheTTL time.Duration) *Filter {
	if maxSize <= 0 {
		maxSize = 100
	}
	return &Filter{
		provider: provider,
		cache:    NewCache(cacheTTL),
		log:      log.WithField("component", "universe"),
		maxSize:  maxSize,
	}
}

// Universe returns the candidate set for a mode, served from cache
// when a result for the same (mode, minute) is still fresh.
func (f *Filter) Universe(ctx context.Context, mode contracts.Mode, now time.Time) (*Universe, error) {
	if cached, ok := f.cache.Get(mode, now); ok {
		f.log.WithFields(map[string]interface{}{
			"mode": mode,
			"size": len(cached.Candidates),
		}).Debug("Universe cache hit")
		return cached, nil
	}

	universe, err := f.build(ctx, mode, now)
	if err != nil {
		return nil, err
	}

	f.cache.Put(mode, now, universe)
	return universe, nil
}

// Latest returns the most recent cached universe for a mode without
// triggering a rebuild.
func (f *Filter) Latest(mode contracts.Mode, now time.Time) (*Universe, bool) {
	return f.cache.Latest(mode, now)
}

// build recomputes the universe from scratch. Safe to call on every
// cache miss; it holds no partial state.
func (f *Filter) build(ctx context.Context, mode contracts.Mode, now time.Time) (*Universe, error) {
	cons := ConstraintsFor(mode)
	changeCap := cons.ChangeCapAt(now)

	symbols, source := f.candidateSymbols(ctx, mode, changeCap, cons)

	snapshots, err := f.provider.GetSnapshots(ctx, symbols)
	if err != nil {
		return nil, fmt.Errorf("fetch universe snapshots: %w", err)
	}

	universe := &Universe{
		Mode:       mode,
		AsOf:       now,
		Source:     source,
		Candidates: make([]Candidate, 0, len(symbols)),
		Excluded:   make(map[string]string),
		Scanned:    len(symbols),
	}

	for _, symbol := range symbols {
		snap, ok := snapshots[symbol]
		if !ok {
			universe.Excluded[symbol] = "no snapshot"
			continue
		}

		if reason := checkExclusion(snap, cons, changeCap); reason != "" {
			universe.Excluded[symbol] = reason
			continue
		}

		universe.Candidates = append(universe.Candidates, Candidate{
			Symbol:   symbol,
			Source:   source,
			Snapshot: snap,
		})

		if len(universe.Candidates) >= f.maxSize {
			break
		}
	}

	f.log.WithFields(map[string]interface{}{
		"mode":     mode,
		"source":   source,
		"scanned":  universe.Scanned,
		"admitted": len(universe.Candidates),
		"excluded": len(universe.Excluded),
	}).Info("Universe built")

	return universe, nil
}

// candidateSymbols prefers the day's movers feed and falls back to
// the curated core list when the feed fails or comes back too thin.
func (f *Filter) candidateSymbols(ctx context.Context, mode contracts.Mode, changeCap float64, cons Constraints) ([]string, contracts.UniverseSource) {
	movers, err := f.provider.GetMovers(ctx)
	if err != nil {
		f.log.WithError(err).Warn("Movers feed unavailable, using core universe")
		return CoreSymbols(mode), contracts.UniverseCore
	}

	symbols := make([]string, 0, len(movers))
	for _, m := range movers {
		if !validSymbolFormat(m.Symbol) {
			continue
		}
		if m.Price < cons.MinPrice || m.Price > cons.MaxPrice {
			continue
		}
		if abs(m.ChangePct)/100 > changeCap {
			continue
		}
		symbols = append(symbols, m.Symbol)
		if len(symbols) >= f.maxSize {
			break
		}
	}

	if len(symbols) < minDynamicSize {
		f.log.WithField("movers", len(symbols)).Warn("Too few qualifying movers, using core universe")
		return CoreSymbols(mode), contracts.UniverseCore
	}

	return symbols, contracts.UniverseDynamicMovers
}

// checkExclusion applies admission checks in priority order and
// returns the first failing reason, or empty when admitted. Symbol
// format is not re-checked here: the movers path filters formats
// before snapshots are fetched, and the core list is curated.
func checkExclusion(snap contracts.Snapshot, cons Constraints, changeCap float64) string {
	if snap.Price < cons.MinPrice {
		return fmt.Sprintf("price below $%.2f", cons.MinPrice)
	}
	if snap.Price > cons.MaxPrice {
		return fmt.Sprintf("price above $%.2f", cons.MaxPrice)
	}

	if snap.DayVolume < cons.MinVolume {
		return fmt.Sprintf("volume below %.0f", cons.MinVolume)
	}

	if snap.MarketCap > 0 && snap.MarketCap < cons.MinMarketCap {
		return fmt.Sprintf("market cap below $%.0fB", cons.MinMarketCap/1e9)
	}

	if abs(snap.ChangePct)/100 > changeCap {
		return fmt.Sprintf("day change beyond %.1f%%", changeCap*100)
	}

	if snap.Volatility > cons.MaxVolatility {
		return fmt.Sprintf("volatility above %.1f%%", cons.MaxVolatility*100)
	}

	return ""
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
