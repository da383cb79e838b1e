package risk

import (
	"fmt"
	"math"

	"github.com/finbright/daytrade/backend/internal/contracts"
	"github.com/finbright/daytrade/backend/pkg/logger"
)

// Decision is the gate's verdict for one signal against one user's
// budget. MaxShares is the largest position the budget allows; a
// denial carries the first limit that was hit, in plain language.
type Decision struct {
	Allowed   bool    `json:"allowed"`
	MaxShares int     `json:"max_shares"`
	Reason    string  `json:"reason,omitempty"`
	RiskUsed  float64 `json:"risk_used"` // dollars at the stop for MaxShares
}

// Gate sizes positions and enforces per-user risk limits. It is pure
// policy: no storage, no market data, deterministic for a given
// budget and signal.
type Gate struct {
	log *logger.Logger
}

func NewGate(log *logger.Logger) *Gate {
	return &Gate{log: log.WithField("component", "risk")}
}

// Check evaluates one signal for one user. Limits are checked from
// the cheapest to the most situational; the first violation decides.
func (g *Gate) Check(sig *contracts.Signal, budget *contracts.UserRiskBudget, accountValue float64) Decision {
	deny := func(format string, args ...interface{}) Decision {
		reason := fmt.Sprintf(format, args...)
		g.log.WithFields(map[string]interface{}{
			"user":   budget.UserID,
			"symbol": sig.Symbol,
			"reason": reason,
		}).Debug("Signal denied")
		return Decision{Reason: reason}
	}

	if accountValue < budget.MinAccountValue {
		return deny("account value $%.2f below the $%.2f day-trading minimum", accountValue, budget.MinAccountValue)
	}
	if budget.SuitabilityScore < budget.MinSuitabilityScore {
		return deny("suitability score %.1f below required %.1f", budget.SuitabilityScore, budget.MinSuitabilityScore)
	}
	if budget.MaxPositionsPerDay > 0 && budget.PositionsOpenedToday >= budget.MaxPositionsPerDay {
		return deny("daily position limit of %d reached", budget.MaxPositionsPerDay)
	}

	riskPerShare := sig.RiskPerShare()
	if riskPerShare <= 0 {
		return deny("signal has no measurable risk per share")
	}

	if budget.DailyLossRemaining() <= 0 {
		return deny("daily loss limit of $%.2f exhausted", budget.DailyLossLimit)
	}
	if budget.WeeklyLossRemaining() <= 0 {
		return deny("weekly loss limit of $%.2f exhausted", budget.WeeklyLossLimit)
	}

	// Risk budget for this trade: the per-trade cap, further capped by
	// what is left of the daily and weekly envelopes.
	riskBudget := budget.MaxLossPerTrade
	riskBudget = math.Min(riskBudget, budget.DailyLossRemaining())
	riskBudget = math.Min(riskBudget, budget.WeeklyLossRemaining())

	shares := int(riskBudget / riskPerShare)
	if shares < 1 {
		return deny("risk budget $%.2f cannot cover one share at $%.2f risk", riskBudget, riskPerShare)
	}

	// Concentration: position value capped as a fraction of account.
	if budget.MaxConcentration > 0 && sig.Entry > 0 {
		maxValue := budget.MaxConcentration * accountValue
		if byValue := int(maxValue / sig.Entry); byValue < shares {
			shares = byValue
		}
		if shares < 1 {
			return deny("concentration cap %.0f%% allows less than one share at $%.2f", budget.MaxConcentration*100, sig.Entry)
		}
	}

	// Leverage: without margin the position cannot exceed the account
	// times the allowed leverage.
	if budget.MaxLeverage > 0 && sig.Entry > 0 {
		maxValue := budget.MaxLeverage * accountValue
		if byValue := int(maxValue / sig.Entry); byValue < shares {
			shares = byValue
		}
		if shares < 1 {
			return deny("leverage cap %.1fx allows less than one share at $%.2f", budget.MaxLeverage, sig.Entry)
		}
	}

	return Decision{
		Allowed:   true,
		MaxShares: shares,
		RiskUsed:  float64(shares) * riskPerShare,
	}
}
