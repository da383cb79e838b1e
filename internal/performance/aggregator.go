package performance

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/finbright/daytrade/backend/internal/contracts"
	"github.com/finbright/daytrade/backend/pkg/logger"
)

// Horizon over which strategy statistics are aggregated. EOD is the
// canonical "how did the day's picks do" view.
const aggregationHorizon = contracts.HorizonEOD

// Aggregator rebuilds the derived period-level statistics from the
// per-signal outcome rows. The derived view is disposable: every
// rebuild deletes and rewrites the row for its aggregation key.
type Aggregator struct {
	perf     contracts.PerformanceRepository
	strategy contracts.StrategyRepository
	log      *logger.Logger
}

func NewAggregator(perf contracts.PerformanceRepository, strategy contracts.StrategyRepository, log *logger.Logger) *Aggregator {
	return &Aggregator{
		perf:     perf,
		strategy: strategy,
		log:      log.WithField("component", "aggregator"),
	}
}

// RebuildAll rebuilds every (mode, period) combination as of now.
func (a *Aggregator) RebuildAll(ctx context.Context, now time.Time) error {
	modes := []contracts.Mode{contracts.ModeSafe, contracts.ModeAggressive}
	periods := []contracts.PeriodType{
		contracts.PeriodDaily,
		contracts.PeriodWeekly,
		contracts.PeriodMonthly,
		contracts.PeriodAllTime,
	}

	for _, mode := range modes {
		for _, period := range periods {
			if err := a.Rebuild(ctx, mode, period, now); err != nil {
				return fmt.Errorf("rebuild %s/%s: %w", mode, period, err)
			}
		}
	}
	return nil
}

// Rebuild recomputes one (mode, period) row from scratch.
func (a *Aggregator) Rebuild(ctx context.Context, mode contracts.Mode, period contracts.PeriodType, now time.Time) error {
	start, end := PeriodBounds(period, now)

	outcomes, err := a.perf.ListByPeriod(ctx, mode, aggregationHorizon, start, end)
	if err != nil {
		return fmt.Errorf("list outcomes: %w", err)
	}

	sp := Compute(outcomes, mode, period, start, end, now)

	if err := a.strategy.ReplacePeriod(ctx, sp); err != nil {
		return fmt.Errorf("replace period: %w", err)
	}

	a.log.WithFields(map[string]interface{}{
		"mode":    string(mode),
		"period":  string(period),
		"samples": sp.SampleSize,
	}).Info("Strategy performance rebuilt")

	return nil
}

// Compute derives the full statistics block from outcome rows. Ratio
// fields stay nil when the sample cannot support them; nil means
// "insufficient data", never zero.
func Compute(outcomes []contracts.SignalPerformance, mode contracts.Mode, period contracts.PeriodType, start, end, now time.Time) *contracts.StrategyPerformance {
	sp := &contracts.StrategyPerformance{
		Mode:        mode,
		PeriodType:  period,
		PeriodStart: start,
		PeriodEnd:   end,
		SampleSize:  len(outcomes),
		ComputedAt:  now,
	}
	if len(outcomes) == 0 {
		return sp
	}

	returns := make([]float64, 0, len(outcomes))
	var cumulative float64
	sp.EquityCurve = make([]contracts.EquityPoint, 0, len(outcomes))

	for _, o := range outcomes {
		switch o.Outcome {
		case contracts.OutcomeWin, contracts.OutcomeTargetHit:
			sp.Wins++
		case contracts.OutcomeLoss, contracts.OutcomeStopHit:
			sp.Losses++
		}

		returns = append(returns, o.PnLPct)
		sp.TotalPnLPct += o.PnLPct
		cumulative += o.PnLPct
		sp.EquityCurve = append(sp.EquityCurve, contracts.EquityPoint{
			Timestamp: o.EvaluatedAt,
			Equity:    cumulative,
		})
	}

	if decided := sp.Wins + sp.Losses; decided > 0 {
		sp.WinRate = float64(sp.Wins) / float64(decided) * 100
	}
	sp.AvgPnLPct = sp.TotalPnLPct / float64(len(outcomes))

	sp.MaxDrawdownPct, sp.MaxDrawdownDuration = drawdown(sp.EquityCurve)

	if len(returns) >= 2 {
		mean := sp.AvgPnLPct
		sd := sampleStdev(returns, mean)
		if sd > 0 {
			s := mean / sd
			sp.Sharpe = &s
		}

		if dd := downsideStdev(returns); dd > 0 {
			s := mean / dd
			sp.Sortino = &s
		}

		if sp.MaxDrawdownPct > 0 {
			c := sp.TotalPnLPct / sp.MaxDrawdownPct
			sp.Calmar = &c
		}
	}

	return sp
}

// PeriodBounds returns the [start, end) window for a period type as
// of now, aligned to the exchange timezone. All-time starts at the
// epoch.
func PeriodBounds(period contracts.PeriodType, now time.Time) (time.Time, time.Time) {
	loc := contracts.MarketLocation()
	local := now.In(loc)
	midnight := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)

	switch period {
	case contracts.PeriodDaily:
		return midnight, now
	case contracts.PeriodWeekly:
		offset := (int(midnight.Weekday()) + 6) % 7 // Monday start
		return midnight.AddDate(0, 0, -offset), now
	case contracts.PeriodMonthly:
		return time.Date(local.Year(), local.Month(), 1, 0, 0, 0, 0, loc), now
	default:
		return time.Time{}, now
	}
}

// drawdown walks the equity curve and returns the deepest peak-to-
// trough fall and the longest stretch spent below a prior peak.
func drawdown(curve []contracts.EquityPoint) (float64, time.Duration) {
	if len(curve) == 0 {
		return 0, 0
	}

	var maxDD float64
	var maxDur time.Duration

	peak := curve[0].Equity
	peakAt := curve[0].Timestamp

	for _, p := range curve {
		if p.Equity >= peak {
			peak = p.Equity
			peakAt = p.Timestamp
			continue
		}

		if dd := peak - p.Equity; dd > maxDD {
			maxDD = dd
		}
		if dur := p.Timestamp.Sub(peakAt); dur > maxDur {
			maxDur = dur
		}
	}

	return maxDD, maxDur
}

func sampleStdev(values []float64, mean float64) float64 {
	if len(values) < 2 {
		return 0
	}
	var ss float64
	for _, v := range values {
		d := v - mean
		ss += d * d
	}
	return math.Sqrt(ss / float64(len(values)-1))
}

// downsideStdev penalizes only negative returns, against a zero
// target.
func downsideStdev(values []float64) float64 {
	var ss float64
	for _, v := range values {
		if v < 0 {
			ss += v * v
		}
	}
	if ss == 0 {
		return 0
	}
	return math.Sqrt(ss / float64(len(values)))
}
