package contracts

import (
	"testing"
	"time"
)

func TestParseHorizon(t *testing.T) {
	tests := []struct {
		input   string
		want    Horizon
		wantErr bool
	}{
		{"30m", Horizon30m, false},
		{"2h", Horizon2h, false},
		{"eod", HorizonEOD, false},
		{"1d", Horizon1d, false},
		{"2d", Horizon2d, false},
		{"3d", "", true},
		{"EOD", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseHorizon(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParseHorizon(%q) expected error, got %v", tt.input, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseHorizon(%q) error = %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("ParseHorizon(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestHorizonDue(t *testing.T) {
	generated := time.Date(2025, 3, 10, 14, 30, 0, 0, time.UTC) // 10:30 ET

	tests := []struct {
		name    string
		horizon Horizon
		now     time.Time
		want    bool
	}{
		{"30m not yet due", Horizon30m, generated.Add(29 * time.Minute), false},
		{"30m exactly due", Horizon30m, generated.Add(30 * time.Minute), true},
		{"2h due", Horizon2h, generated.Add(3 * time.Hour), true},
		{"1d not due", Horizon1d, generated.Add(23 * time.Hour), false},
		{"2d due", Horizon2d, generated.Add(49 * time.Hour), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.horizon.Due(generated, tt.now); got != tt.want {
				t.Errorf("Due() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestHorizonEODDueAt(t *testing.T) {
	// 10:30 ET on a March trading day (EDT, UTC-4)
	generated := time.Date(2025, 3, 10, 14, 30, 0, 0, time.UTC)

	due := HorizonEOD.DueAt(generated)
	et := due.In(MarketLocation())

	if et.Hour() != 16 || et.Minute() != 0 {
		t.Errorf("EOD due at %02d:%02d ET, want 16:00", et.Hour(), et.Minute())
	}
	if et.Day() != 10 {
		t.Errorf("EOD due on day %d, want same trading day 10", et.Day())
	}
}

func TestFeatureSetMapOmitsNilGroups(t *testing.T) {
	fs := &FeatureSet{
		Symbol:     "AAPL",
		BarCount5m: 5,
		Complete:   false,
		Momentum: &MomentumFeatures{
			Momentum15m: 0.021,
		},
		// Trend, Volatility, Volume, VWAP, Candles deliberately nil
	}

	m := fs.Map()

	if _, ok := m["momentum_15m"]; !ok {
		t.Error("expected momentum_15m to be present")
	}
	if _, ok := m["rsi_14"]; ok {
		t.Error("nil trend group must not contribute rsi_14")
	}
	if _, ok := m["volume_ratio"]; ok {
		t.Error("nil volume group must not contribute volume_ratio")
	}

	// Session features are always present
	if _, ok := m["is_opening_hour"]; !ok {
		t.Error("expected session features to always be present")
	}
}

func TestSchemaHashStableAcrossOrder(t *testing.T) {
	a := FeatureSchemaHash([]string{"rsi_14", "macd", "volume_ratio"})
	b := FeatureSchemaHash([]string{"volume_ratio", "rsi_14", "macd"})
	if a != b {
		t.Errorf("schema hash should be order-insensitive: %q != %q", a, b)
	}

	c := FeatureSchemaHash([]string{"rsi_14", "macd"})
	if a == c {
		t.Error("different feature sets must hash differently")
	}
}

func TestSignalRiskPerShare(t *testing.T) {
	long := &Signal{Side: SideLong, Entry: 100, Stop: 97}
	if got := long.RiskPerShare(); got != 3 {
		t.Errorf("long risk = %v, want 3", got)
	}

	short := &Signal{Side: SideShort, Entry: 100, Stop: 104}
	if got := short.RiskPerShare(); got != 4 {
		t.Errorf("short risk = %v, want 4", got)
	}
}

func TestRiskBudgetRemaining(t *testing.T) {
	b := &UserRiskBudget{
		DailyLossLimit:  500,
		DailyLossUsed:   120,
		WeeklyLossLimit: 1500,
		WeeklyLossUsed:  1600, // over limit
	}

	if got := b.DailyLossRemaining(); got != 380 {
		t.Errorf("DailyLossRemaining = %v, want 380", got)
	}
	if got := b.WeeklyLossRemaining(); got != 0 {
		t.Errorf("WeeklyLossRemaining = %v, want 0 when overspent", got)
	}
}
