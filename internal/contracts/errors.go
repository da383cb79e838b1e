package contracts

import "errors"

var (
	// ErrDataUnavailable wraps provider timeouts and empty responses.
	// Batch jobs skip the affected symbol, they never abort the run.
	ErrDataUnavailable = errors.New("market data unavailable")

	// ErrInsufficientHistory means fewer bars than the minimum window
	// were available; features stay partial and the scorer treats the
	// candidate as low confidence.
	ErrInsufficientHistory = errors.New("insufficient bar history")

	// ErrNoActiveModel means no promoted scoring model exists; the
	// scorer falls back to pure rules. Expected, not exceptional.
	ErrNoActiveModel = errors.New("no active model version")
)
