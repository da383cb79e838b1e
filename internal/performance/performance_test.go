package performance

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finbright/daytrade/backend/internal/contracts"
	"github.com/finbright/daytrade/backend/pkg/config"
	"github.com/finbright/daytrade/backend/pkg/logger"
)

var (
	genAt  = time.Date(2025, 6, 2, 14, 0, 0, 0, time.UTC) // 10:00 ET
	evalAt = genAt.Add(3 * time.Hour)
)

func testLog() *logger.Logger {
	return logger.New(&config.Config{Env: "test", LogLevel: "error", LogFormat: "json"})
}

type fakeSignals struct {
	due map[contracts.Horizon][]contracts.Signal
}

func (f *fakeSignals) Insert(ctx context.Context, signal *contracts.Signal) error { return nil }

func (f *fakeSignals) ListRecent(ctx context.Context, mode contracts.Mode, since time.Time, limit int) ([]contracts.Signal, error) {
	return nil, nil
}

func (f *fakeSignals) ListUnevaluated(ctx context.Context, horizon contracts.Horizon, now time.Time) ([]contracts.Signal, error) {
	return f.due[horizon], nil
}

func (f *fakeSignals) ListWithPerformance(ctx context.Context, horizon contracts.Horizon, start, end time.Time) ([]contracts.SignalWithPerformance, error) {
	return nil, nil
}

type fakePerf struct {
	inserted []contracts.SignalPerformance
	existing map[string]bool
	byPeriod []contracts.SignalPerformance
	err      error
}

func perfKey(signalID int64, horizon contracts.Horizon) string {
	return fmt.Sprintf("%d/%s", signalID, horizon)
}

func (f *fakePerf) Insert(ctx context.Context, perf *contracts.SignalPerformance) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	if f.existing == nil {
		f.existing = make(map[string]bool)
	}
	key := perfKey(perf.SignalID, perf.Horizon)
	if f.existing[key] {
		return false, nil
	}
	f.existing[key] = true
	f.inserted = append(f.inserted, *perf)
	return true, nil
}

func (f *fakePerf) ListByPeriod(ctx context.Context, mode contracts.Mode, horizon contracts.Horizon, start, end time.Time) ([]contracts.SignalPerformance, error) {
	return f.byPeriod, f.err
}

type fakeStrategy struct {
	replaced []*contracts.StrategyPerformance
}

func (f *fakeStrategy) ReplacePeriod(ctx context.Context, perf *contracts.StrategyPerformance) error {
	f.replaced = append(f.replaced, perf)
	return nil
}

func (f *fakeStrategy) Get(ctx context.Context, mode contracts.Mode, periodType contracts.PeriodType, periodStart time.Time) (*contracts.StrategyPerformance, error) {
	return nil, nil
}

type fakeBars struct {
	bars map[string][]contracts.Bar
	err  error
}

func (f *fakeBars) GetBars(ctx context.Context, symbol string, interval contracts.Interval, lookback int) ([]contracts.Bar, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.bars[symbol], nil
}

func (f *fakeBars) GetSnapshots(ctx context.Context, symbols []string) (map[string]contracts.Snapshot, error) {
	return nil, nil
}

func (f *fakeBars) GetMovers(ctx context.Context) ([]contracts.Mover, error) { return nil, nil }

func longSignal(id int64) contracts.Signal {
	return contracts.Signal{
		ID:          id,
		Symbol:      "AAPL",
		Side:        contracts.SideLong,
		Mode:        contracts.ModeSafe,
		GeneratedAt: genAt,
		Entry:       100,
		Stop:        97,
		Targets:     []float64{106, 109, 112},
	}
}

func bar(offset time.Duration, o, h, l, c float64) contracts.Bar {
	return contracts.Bar{Timestamp: genAt.Add(offset), Open: o, High: h, Low: l, Close: c, Volume: 1e6}
}

func TestEvaluateTargetHit(t *testing.T) {
	signals := &fakeSignals{due: map[contracts.Horizon][]contracts.Signal{
		contracts.Horizon30m: {longSignal(1)},
	}}
	provider := &fakeBars{bars: map[string][]contracts.Bar{
		"AAPL": {
			bar(5*time.Minute, 100, 103, 99.5, 102),
			bar(10*time.Minute, 102, 107, 101, 106.5),
			bar(15*time.Minute, 106.5, 108, 105, 107),
		},
	}}
	perf := &fakePerf{}

	e := NewEvaluator(signals, perf, provider, testLog())
	res, err := e.EvaluateDue(context.Background(), evalAt)
	require.NoError(t, err)

	assert.Equal(t, 1, res.Evaluated)
	require.Len(t, perf.inserted, 1)

	p := perf.inserted[0]
	assert.Equal(t, contracts.OutcomeTargetHit, p.Outcome)
	assert.True(t, p.TargetHit)
	assert.False(t, p.StopHit)
	assert.Equal(t, 106.0, p.PriceAtHorizon, "fills at the target, not the bar high")
	assert.InDelta(t, 6.0, p.PnLDollars, 1e-9)
	assert.InDelta(t, 6.0, p.PnLPct, 1e-9)
}

func TestEvaluateStopBeforeTarget(t *testing.T) {
	signals := &fakeSignals{due: map[contracts.Horizon][]contracts.Signal{
		contracts.Horizon30m: {longSignal(1)},
	}}
	// Stop is touched one bar before the target level trades.
	provider := &fakeBars{bars: map[string][]contracts.Bar{
		"AAPL": {
			bar(5*time.Minute, 100, 101, 96.5, 97.5),
			bar(10*time.Minute, 97.5, 110, 97, 109),
		},
	}}
	perf := &fakePerf{}

	e := NewEvaluator(signals, perf, provider, testLog())
	_, err := e.EvaluateDue(context.Background(), evalAt)
	require.NoError(t, err)

	p := perf.inserted[0]
	assert.Equal(t, contracts.OutcomeStopHit, p.Outcome)
	assert.Equal(t, 97.0, p.PriceAtHorizon)
	assert.InDelta(t, -3.0, p.PnLDollars, 1e-9)
}

func TestEvaluateShortStop(t *testing.T) {
	short := contracts.Signal{
		ID:          2,
		Symbol:      "TSLA",
		Side:        contracts.SideShort,
		GeneratedAt: genAt,
		Entry:       100,
		Stop:        104,
		Targets:     []float64{92},
	}
	signals := &fakeSignals{due: map[contracts.Horizon][]contracts.Signal{
		contracts.Horizon30m: {short},
	}}
	provider := &fakeBars{bars: map[string][]contracts.Bar{
		"TSLA": {bar(5*time.Minute, 100, 105, 99, 104.5)},
	}}
	perf := &fakePerf{}

	e := NewEvaluator(signals, perf, provider, testLog())
	_, err := e.EvaluateDue(context.Background(), evalAt)
	require.NoError(t, err)

	p := perf.inserted[0]
	assert.Equal(t, contracts.OutcomeStopHit, p.Outcome)
	assert.InDelta(t, -4.0, p.PnLDollars, 1e-9)
}

func TestEvaluateWinAndLossWithoutTouch(t *testing.T) {
	tests := []struct {
		name  string
		close float64
		want  contracts.Outcome
	}{
		{"drifts up", 101.5, contracts.OutcomeWin},
		{"drifts down", 99.0, contracts.OutcomeLoss},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			signals := &fakeSignals{due: map[contracts.Horizon][]contracts.Signal{
				contracts.Horizon30m: {longSignal(1)},
			}}
			provider := &fakeBars{bars: map[string][]contracts.Bar{
				"AAPL": {bar(5*time.Minute, 100, 102, 98.5, tt.close)},
			}}
			perf := &fakePerf{}

			e := NewEvaluator(signals, perf, provider, testLog())
			_, err := e.EvaluateDue(context.Background(), evalAt)
			require.NoError(t, err)

			assert.Equal(t, tt.want, perf.inserted[0].Outcome)
		})
	}
}

func TestEvaluateIdempotent(t *testing.T) {
	signals := &fakeSignals{due: map[contracts.Horizon][]contracts.Signal{
		contracts.Horizon30m: {longSignal(1)},
	}}
	provider := &fakeBars{bars: map[string][]contracts.Bar{
		"AAPL": {bar(5*time.Minute, 100, 102, 99, 101)},
	}}
	perf := &fakePerf{}

	e := NewEvaluator(signals, perf, provider, testLog())
	res, err := e.EvaluateDue(context.Background(), evalAt)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Evaluated)

	// Same sweep again: the repository reports the row exists.
	res, err = e.EvaluateDue(context.Background(), evalAt)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Evaluated)
	assert.Equal(t, 1, res.Duplicates)
	assert.Len(t, perf.inserted, 1)
}

func TestEvaluateNoBarsIsRetriedNotRecorded(t *testing.T) {
	signals := &fakeSignals{due: map[contracts.Horizon][]contracts.Signal{
		contracts.Horizon30m: {longSignal(7)},
	}}
	provider := &fakeBars{err: errors.New("provider down")}
	perf := &fakePerf{}

	e := NewEvaluator(signals, perf, provider, testLog())
	res, err := e.EvaluateDue(context.Background(), evalAt)
	require.NoError(t, err)

	assert.Equal(t, 0, res.Evaluated)
	assert.Len(t, res.Failures, 1)
	assert.Empty(t, perf.inserted, "nothing written means the pair stays due")
}

func outcomeRow(i int, outcome contracts.Outcome, pnlPct float64) contracts.SignalPerformance {
	return contracts.SignalPerformance{
		SignalID:    int64(i),
		Horizon:     contracts.HorizonEOD,
		EvaluatedAt: genAt.Add(time.Duration(i) * time.Minute),
		PnLPct:      pnlPct,
		Outcome:     outcome,
	}
}

func TestComputeWinRate(t *testing.T) {
	outcomes := make([]contracts.SignalPerformance, 0, 60)
	for i := 0; i < 35; i++ {
		outcomes = append(outcomes, outcomeRow(i, contracts.OutcomeWin, 1.2))
	}
	for i := 35; i < 60; i++ {
		outcomes = append(outcomes, outcomeRow(i, contracts.OutcomeStopHit, -0.8))
	}

	sp := Compute(outcomes, contracts.ModeSafe, contracts.PeriodAllTime, time.Time{}, evalAt, evalAt)

	assert.Equal(t, 60, sp.SampleSize)
	assert.Equal(t, 35, sp.Wins)
	assert.Equal(t, 25, sp.Losses)
	assert.InDelta(t, 58.333, sp.WinRate, 0.001)
	assert.InDelta(t, 35*1.2-25*0.8, sp.TotalPnLPct, 1e-6)
	require.NotNil(t, sp.Sharpe)
	require.NotNil(t, sp.Sortino)
	assert.Len(t, sp.EquityCurve, 60)
}

func TestComputeEmptySample(t *testing.T) {
	sp := Compute(nil, contracts.ModeSafe, contracts.PeriodDaily, genAt, evalAt, evalAt)

	assert.Equal(t, 0, sp.SampleSize)
	assert.Nil(t, sp.Sharpe)
	assert.Nil(t, sp.Sortino)
	assert.Nil(t, sp.Calmar)
	assert.Empty(t, sp.EquityCurve)
}

func TestComputeRatiosNilOnDegenerateSamples(t *testing.T) {
	// One sample: no variance to measure.
	one := []contracts.SignalPerformance{outcomeRow(0, contracts.OutcomeWin, 1.0)}
	sp := Compute(one, contracts.ModeSafe, contracts.PeriodDaily, genAt, evalAt, evalAt)
	assert.Nil(t, sp.Sharpe)

	// Identical positive returns: zero stdev, no downside, no drawdown.
	flat := []contracts.SignalPerformance{
		outcomeRow(0, contracts.OutcomeWin, 1.0),
		outcomeRow(1, contracts.OutcomeWin, 1.0),
		outcomeRow(2, contracts.OutcomeWin, 1.0),
	}
	sp = Compute(flat, contracts.ModeSafe, contracts.PeriodDaily, genAt, evalAt, evalAt)
	assert.Nil(t, sp.Sharpe, "zero variance must be nil, not infinity")
	assert.Nil(t, sp.Sortino)
	assert.Nil(t, sp.Calmar)
	assert.Equal(t, 100.0, sp.WinRate)
}

func TestComputeDrawdown(t *testing.T) {
	outcomes := []contracts.SignalPerformance{
		outcomeRow(0, contracts.OutcomeWin, 2.0),      // equity 2
		outcomeRow(1, contracts.OutcomeStopHit, -3.0), // equity -1
		outcomeRow(2, contracts.OutcomeStopHit, -1.0), // equity -2
		outcomeRow(3, contracts.OutcomeWin, 5.0),      // equity 3
	}

	sp := Compute(outcomes, contracts.ModeSafe, contracts.PeriodDaily, genAt, evalAt, evalAt)

	assert.InDelta(t, 4.0, sp.MaxDrawdownPct, 1e-9, "peak 2 to trough -2")
	assert.Equal(t, 2*time.Minute, sp.MaxDrawdownDuration)
	require.NotNil(t, sp.Calmar)
	assert.InDelta(t, 3.0/4.0, *sp.Calmar, 1e-9)
}

func TestPeriodBounds(t *testing.T) {
	// Wednesday June 4 2025, 14:00 UTC = 10:00 ET
	now := time.Date(2025, 6, 4, 14, 0, 0, 0, time.UTC)
	loc := contracts.MarketLocation()

	start, end := PeriodBounds(contracts.PeriodDaily, now)
	assert.Equal(t, time.Date(2025, 6, 4, 0, 0, 0, 0, loc), start)
	assert.Equal(t, now, end)

	start, _ = PeriodBounds(contracts.PeriodWeekly, now)
	assert.Equal(t, time.Date(2025, 6, 2, 0, 0, 0, 0, loc), start, "weeks start Monday")

	start, _ = PeriodBounds(contracts.PeriodMonthly, now)
	assert.Equal(t, time.Date(2025, 6, 1, 0, 0, 0, 0, loc), start)

	start, _ = PeriodBounds(contracts.PeriodAllTime, now)
	assert.True(t, start.IsZero())
}

func TestRebuildAllWritesEveryCombination(t *testing.T) {
	perf := &fakePerf{byPeriod: []contracts.SignalPerformance{
		outcomeRow(0, contracts.OutcomeWin, 1.0),
	}}
	strat := &fakeStrategy{}

	a := NewAggregator(perf, strat, testLog())
	require.NoError(t, a.RebuildAll(context.Background(), evalAt))

	assert.Len(t, strat.replaced, 8, "two modes times four periods")
	for _, sp := range strat.replaced {
		assert.Equal(t, 1, sp.SampleSize)
	}
}
