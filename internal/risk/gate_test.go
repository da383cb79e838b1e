package risk

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/finbright/daytrade/backend/internal/contracts"
	"github.com/finbright/daytrade/backend/pkg/config"
	"github.com/finbright/daytrade/backend/pkg/logger"
)

func testGate() *Gate {
	return NewGate(logger.New(&config.Config{Env: "test", LogLevel: "error", LogFormat: "json"}))
}

func longSignal() *contracts.Signal {
	return &contracts.Signal{
		Symbol:  "AAPL",
		Side:    contracts.SideLong,
		Entry:   100,
		Stop:    98,
		Targets: []float64{104, 106, 108},
	}
}

func defaultBudget() *contracts.UserRiskBudget {
	return &contracts.UserRiskBudget{
		UserID:              "u1",
		MaxLossPerTrade:     200,
		DailyLossLimit:      500,
		WeeklyLossLimit:     1500,
		MaxLeverage:         1.0,
		MaxConcentration:    0.25,
		MinAccountValue:     25000,
		MinSuitabilityScore: 3,
		SuitabilityScore:    4,
		MaxPositionsPerDay:  10,
	}
}

func TestCheckAllows(t *testing.T) {
	d := testGate().Check(longSignal(), defaultBudget(), 100_000)

	assert.True(t, d.Allowed)
	// $200 per-trade cap at $2 risk per share
	assert.Equal(t, 100, d.MaxShares)
	assert.InDelta(t, 200.0, d.RiskUsed, 1e-9)
	assert.Empty(t, d.Reason)
}

func TestCheckAccountBelowMinimum(t *testing.T) {
	d := testGate().Check(longSignal(), defaultBudget(), 20_000)

	assert.False(t, d.Allowed)
	assert.Equal(t, 0, d.MaxShares)
	assert.Contains(t, d.Reason, "day-trading minimum")
}

func TestCheckSuitability(t *testing.T) {
	b := defaultBudget()
	b.SuitabilityScore = 2

	d := testGate().Check(longSignal(), b, 100_000)
	assert.False(t, d.Allowed)
	assert.Contains(t, d.Reason, "suitability")
}

func TestCheckPositionCount(t *testing.T) {
	b := defaultBudget()
	b.PositionsOpenedToday = 10

	d := testGate().Check(longSignal(), b, 100_000)
	assert.False(t, d.Allowed)
	assert.Contains(t, d.Reason, "position limit")
}

func TestCheckDailyLossExhausted(t *testing.T) {
	b := defaultBudget()
	b.DailyLossUsed = 500

	d := testGate().Check(longSignal(), b, 100_000)
	assert.False(t, d.Allowed)
	assert.Contains(t, d.Reason, "daily loss limit")
}

func TestCheckWeeklyLossExhausted(t *testing.T) {
	b := defaultBudget()
	b.WeeklyLossUsed = 2000

	d := testGate().Check(longSignal(), b, 100_000)
	assert.False(t, d.Allowed)
	assert.Contains(t, d.Reason, "weekly loss limit")
}

func TestCheckRemainingDailyLossShrinksSize(t *testing.T) {
	b := defaultBudget()
	b.DailyLossUsed = 400 // $100 left, under the $200 per-trade cap

	d := testGate().Check(longSignal(), b, 100_000)
	assert.True(t, d.Allowed)
	assert.Equal(t, 50, d.MaxShares)
}

func TestCheckConcentrationCapsSize(t *testing.T) {
	// 25% of a $30k account is $7.5k, 75 shares at $100.
	d := testGate().Check(longSignal(), defaultBudget(), 30_000)

	assert.True(t, d.Allowed)
	assert.Equal(t, 75, d.MaxShares)
	assert.InDelta(t, 150.0, d.RiskUsed, 1e-9)
}

func TestCheckLeverageCapsSize(t *testing.T) {
	b := defaultBudget()
	b.MaxConcentration = 0 // isolate the leverage check
	b.MaxLossPerTrade = 10_000
	b.DailyLossLimit = 10_000
	b.WeeklyLossLimit = 10_000

	// 1x leverage on $30k caps the position at 300 shares even though
	// the loss budget would allow 5000.
	d := testGate().Check(longSignal(), b, 30_000)
	assert.True(t, d.Allowed)
	assert.Equal(t, 300, d.MaxShares)
}

func TestCheckShortSignal(t *testing.T) {
	short := &contracts.Signal{
		Symbol: "TSLA",
		Side:   contracts.SideShort,
		Entry:  100,
		Stop:   104,
	}

	d := testGate().Check(short, defaultBudget(), 100_000)
	assert.True(t, d.Allowed)
	// $200 cap at $4 risk per share
	assert.Equal(t, 50, d.MaxShares)
}

func TestCheckInvertedStop(t *testing.T) {
	bad := longSignal()
	bad.Stop = 105 // stop above entry on a long

	d := testGate().Check(bad, defaultBudget(), 100_000)
	assert.False(t, d.Allowed)
	assert.Contains(t, d.Reason, "risk per share")
}

func TestCheckBudgetTooSmallForOneShare(t *testing.T) {
	b := defaultBudget()
	b.MaxLossPerTrade = 1 // $1 budget, $2 per-share risk

	d := testGate().Check(longSignal(), b, 100_000)
	assert.False(t, d.Allowed)
	assert.Contains(t, d.Reason, "cannot cover one share")
}
