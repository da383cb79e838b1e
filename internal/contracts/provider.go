package contracts

import "context"

// MarketDataProvider is the boundary to the external bar/snapshot
// source. Implementations must return chronological bars and surface
// failures as ErrDataUnavailable wraps, never panic.
type MarketDataProvider interface {
	// GetBars returns up to lookback bars ending at or before now,
	// oldest first.
	GetBars(ctx context.Context, symbol string, interval Interval, lookback int) ([]Bar, error)

	// GetSnapshots returns current market state for each requested
	// symbol. Missing symbols are simply absent from the result.
	GetSnapshots(ctx context.Context, symbols []string) (map[string]Snapshot, error)

	// GetMovers returns the day's top gainers and losers, used to
	// extend the core universe.
	GetMovers(ctx context.Context) ([]Mover, error)
}
