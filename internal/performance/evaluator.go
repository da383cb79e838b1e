package performance

import (
	"context"
	"fmt"
	"time"

	"github.com/finbright/daytrade/backend/internal/contracts"
	"github.com/finbright/daytrade/backend/pkg/logger"
)

// Bars fetched per evaluation. The 2d horizon spans two sessions of
// 5-minute bars plus slack for the pre-signal history the provider
// returns anyway.
const evalLookback = 400

// EvalResult summarizes one evaluation sweep.
type EvalResult struct {
	Evaluated  int               `json:"evaluated"`
	Duplicates int               `json:"duplicates"`
	Failures   map[string]string `json:"failures,omitempty"`
}

// Evaluator closes the loop on emitted signals: once a horizon is due
// it records the realized outcome exactly once per (signal, horizon).
type Evaluator struct {
	signals  contracts.SignalRepository
	perf     contracts.PerformanceRepository
	provider contracts.MarketDataProvider
	log      *logger.Logger
}

func NewEvaluator(signals contracts.SignalRepository, perf contracts.PerformanceRepository, provider contracts.MarketDataProvider, log *logger.Logger) *Evaluator {
	return &Evaluator{
		signals:  signals,
		perf:     perf,
		provider: provider,
		log:      log.WithField("component", "performance"),
	}
}

// EvaluateDue evaluates every unevaluated (signal, horizon) pair whose
// horizon has passed. Failures are per-pair and never abort the sweep;
// a pair that cannot be evaluated now is retried on the next run.
func (e *Evaluator) EvaluateDue(ctx context.Context, now time.Time) (*EvalResult, error) {
	res := &EvalResult{Failures: make(map[string]string)}

	for _, horizon := range contracts.AllHorizons {
		hres, err := e.EvaluateHorizon(ctx, horizon, now)
		res.Evaluated += hres.Evaluated
		res.Duplicates += hres.Duplicates
		for k, v := range hres.Failures {
			res.Failures[k] = v
		}
		if err != nil {
			return res, err
		}
	}

	e.log.WithFields(map[string]interface{}{
		"evaluated":  res.Evaluated,
		"duplicates": res.Duplicates,
		"failures":   len(res.Failures),
	}).Info("Evaluation sweep finished")

	return res, nil
}

// EvaluateHorizon evaluates only the due pairs of a single horizon.
func (e *Evaluator) EvaluateHorizon(ctx context.Context, horizon contracts.Horizon, now time.Time) (*EvalResult, error) {
	res := &EvalResult{Failures: make(map[string]string)}

	signals, err := e.signals.ListUnevaluated(ctx, horizon, now)
	if err != nil {
		return res, fmt.Errorf("list unevaluated %s: %w", horizon, err)
	}

	for _, sig := range signals {
		key := fmt.Sprintf("%d/%s", sig.ID, horizon)

		perf, err := e.evaluate(ctx, &sig, horizon, now)
		if err != nil {
			res.Failures[key] = err.Error()
			continue
		}

		inserted, err := e.perf.Insert(ctx, perf)
		if err != nil {
			res.Failures[key] = err.Error()
			continue
		}
		if !inserted {
			res.Duplicates++
			continue
		}
		res.Evaluated++
	}

	return res, nil
}

// evaluate replays the bars between generation and the horizon due
// time. Stops and targets are checked bar by bar in order, so the
// first touch wins when both levels are crossed inside the window.
func (e *Evaluator) evaluate(ctx context.Context, sig *contracts.Signal, horizon contracts.Horizon, now time.Time) (*contracts.SignalPerformance, error) {
	dueAt := horizon.DueAt(sig.GeneratedAt)

	bars, err := e.provider.GetBars(ctx, sig.Symbol, contracts.Interval5m, evalLookback)
	if err != nil {
		return nil, fmt.Errorf("fetch bars: %w", err)
	}

	window := barsBetween(bars, sig.GeneratedAt, dueAt)
	if len(window) == 0 {
		return nil, fmt.Errorf("no bars between %s and %s", sig.GeneratedAt.Format(time.RFC3339), dueAt.Format(time.RFC3339))
	}

	perf := &contracts.SignalPerformance{
		SignalID:    sig.ID,
		Horizon:     horizon,
		EvaluatedAt: now,
	}

	long := sig.Side == contracts.SideLong
	var firstTarget float64
	if len(sig.Targets) > 0 {
		firstTarget = sig.Targets[0]
	}

	exit := window[len(window)-1].Close
	for _, b := range window {
		if long {
			if b.Low <= sig.Stop {
				perf.StopHit = true
				exit = sig.Stop
				break
			}
			if firstTarget > 0 && b.High >= firstTarget {
				perf.TargetHit = true
				exit = firstTarget
				break
			}
		} else {
			if b.High >= sig.Stop {
				perf.StopHit = true
				exit = sig.Stop
				break
			}
			if firstTarget > 0 && b.Low <= firstTarget {
				perf.TargetHit = true
				exit = firstTarget
				break
			}
		}
	}

	perf.PriceAtHorizon = exit
	if long {
		perf.PnLDollars = exit - sig.Entry
	} else {
		perf.PnLDollars = sig.Entry - exit
	}
	if sig.Entry > 0 {
		perf.PnLPct = perf.PnLDollars / sig.Entry * 100
	}

	switch {
	case perf.StopHit:
		perf.Outcome = contracts.OutcomeStopHit
	case perf.TargetHit:
		perf.Outcome = contracts.OutcomeTargetHit
	case perf.PnLDollars > 0:
		perf.Outcome = contracts.OutcomeWin
	default:
		perf.Outcome = contracts.OutcomeLoss
	}

	return perf, nil
}

// barsBetween keeps bars with start < Timestamp <= end.
func barsBetween(bars []contracts.Bar, start, end time.Time) []contracts.Bar {
	out := make([]contracts.Bar, 0, len(bars))
	for _, b := range bars {
		if b.Timestamp.After(start) && !b.Timestamp.After(end) {
			out = append(out, b)
		}
	}
	return out
}
