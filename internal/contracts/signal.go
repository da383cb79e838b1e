package contracts

import (
	"fmt"
	"time"
)

// Signal is one emitted pick. Rows are append-only: no update path
// exists after creation, corrections are new rows.
type Signal struct {
	ID          int64          `json:"id"`
	RunID       string         `json:"run_id"`
	Symbol      string         `json:"symbol"`
	Side        Side           `json:"side"`
	Mode        Mode           `json:"mode"`
	Source      UniverseSource `json:"source"`
	GeneratedAt time.Time      `json:"generated_at"`

	Entry   float64   `json:"entry"`
	Stop    float64   `json:"stop"`
	Targets []float64 `json:"targets"`

	Score     float64  `json:"score"`
	RuleScore float64  `json:"rule_score"`
	MLProb    *float64 `json:"ml_prob,omitempty"`

	// Frozen feature snapshot and the schema/model that produced the
	// score, recorded so later training never recomputes features
	// retroactively.
	Features     map[string]float64 `json:"features"`
	SchemaHash   string             `json:"schema_hash"`
	ModelVersion *string            `json:"model_version,omitempty"`

	Notes []string `json:"notes,omitempty"`
}

// RiskPerShare is the per-share loss if the stop is hit.
func (s *Signal) RiskPerShare() float64 {
	if s.Side == SideShort {
		return s.Stop - s.Entry
	}
	return s.Entry - s.Stop
}

// Horizon is a fixed offset after signal generation at which
// performance is evaluated. Closed enumeration, validated at the
// boundary.
type Horizon string

const (
	Horizon30m Horizon = "30m"
	Horizon2h  Horizon = "2h"
	HorizonEOD Horizon = "eod"
	Horizon1d  Horizon = "1d"
	Horizon2d  Horizon = "2d"
)

// AllHorizons lists every horizon in evaluation order.
var AllHorizons = []Horizon{Horizon30m, Horizon2h, HorizonEOD, Horizon1d, Horizon2d}

// ParseHorizon validates a horizon label.
func ParseHorizon(s string) (Horizon, error) {
	h := Horizon(s)
	for _, known := range AllHorizons {
		if h == known {
			return h, nil
		}
	}
	return "", fmt.Errorf("unknown horizon %q", s)
}

// DueAt returns the wall-clock time at which a signal generated at
// generatedAt becomes evaluable for this horizon. EOD resolves to
// 16:00 ET on the generation day.
func (h Horizon) DueAt(generatedAt time.Time) time.Time {
	switch h {
	case Horizon30m:
		return generatedAt.Add(30 * time.Minute)
	case Horizon2h:
		return generatedAt.Add(2 * time.Hour)
	case HorizonEOD:
		et := generatedAt.In(MarketLocation())
		return time.Date(et.Year(), et.Month(), et.Day(), 16, 0, 0, 0, MarketLocation())
	case Horizon1d:
		return generatedAt.Add(24 * time.Hour)
	case Horizon2d:
		return generatedAt.Add(48 * time.Hour)
	}
	return generatedAt
}

// Due reports whether real time has advanced past the horizon.
func (h Horizon) Due(generatedAt, now time.Time) bool {
	return !now.Before(h.DueAt(generatedAt))
}

var marketLocation = mustLoadMarketLocation()

func mustLoadMarketLocation() *time.Location {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		// tzdata missing on the host; fixed offset keeps session
		// boundaries roughly right rather than crashing.
		return time.FixedZone("ET", -5*60*60)
	}
	return loc
}

// MarketLocation returns the exchange timezone.
func MarketLocation() *time.Location {
	return marketLocation
}
