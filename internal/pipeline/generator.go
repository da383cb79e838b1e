package pipeline

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/finbright/daytrade/backend/internal/contracts"
	"github.com/finbright/daytrade/backend/internal/features"
	"github.com/finbright/daytrade/backend/internal/regime"
	"github.com/finbright/daytrade/backend/internal/scoring"
	"github.com/finbright/daytrade/backend/internal/universe"
	"github.com/finbright/daytrade/backend/pkg/logger"
)

// Bar history fetched per symbol. 5m bars cover roughly two sessions,
// enough for every 20-bar indicator plus the 60-bar range window.
const (
	lookback5m = 120
	lookback1m = 30
)

// Stop distance in ATR multiples per mode. Aggressive mode trades
// more volatile names and needs the wider stop to survive noise.
const (
	stopATRSafe       = 1.5
	stopATRAggressive = 2.0
)

// targetMultiples are the reward multiples, in units of risk per
// share, for the three profit targets.
var targetMultiples = []float64{2, 3, 4}

type universeSource interface {
	Universe(ctx context.Context, mode contracts.Mode, now time.Time) (*universe.Universe, error)
}

// RunResult summarizes one generation pass.
type RunResult struct {
	RunID        string              `json:"run_id"`
	Mode         contracts.Mode      `json:"mode"`
	GeneratedAt  time.Time           `json:"generated_at"`
	UniverseSize int                 `json:"universe_size"`
	Generated    int                 `json:"generated"`
	Skipped      int                 `json:"skipped"`
	Failures     map[string]string   `json:"failures,omitempty"`
	Signals      []*contracts.Signal `json:"signals"`
	Elapsed      time.Duration       `json:"elapsed"`
}

// Generator runs the signal pipeline for one mode: universe, features,
// regime, score, persist. Per-symbol failures are tallied and never
// abort the run.
type Generator struct {
	universe  universeSource
	provider  contracts.MarketDataProvider
	extractor *features.Extractor
	detector  *regime.Detector
	strategy  scoring.Strategy
	signals   contracts.SignalRepository
	workers   int
	log       *logger.Logger
}

func NewGenerator(
	u universeSource,
	provider contracts.MarketDataProvider,
	extractor *features.Extractor,
	detector *regime.Detector,
	strategy scoring.Strategy,
	signals contracts.SignalRepository,
	workers int,
	log *logger.Logger,
) *Generator {
	if workers < 1 {
		workers = 1
	}
	return &Generator{
		universe:  u,
		provider:  provider,
		extractor: extractor,
		detector:  detector,
		strategy:  strategy,
		signals:   signals,
		workers:   workers,
		log:       log.WithField("component", "pipeline"),
	}
}

// Run executes one generation pass at the given instant.
func (g *Generator) Run(ctx context.Context, mode contracts.Mode, now time.Time) (*RunResult, error) {
	started := time.Now()

	u, err := g.universe.Universe(ctx, mode, now)
	if err != nil {
		return nil, fmt.Errorf("build universe: %w", err)
	}

	res := &RunResult{
		RunID:        uuid.NewString(),
		Mode:         mode,
		GeneratedAt:  now,
		UniverseSize: len(u.Candidates),
		Failures:     make(map[string]string),
	}

	g.log.WithFields(map[string]interface{}{
		"run_id":   res.RunID,
		"mode":     string(mode),
		"universe": len(u.Candidates),
		"source":   string(u.Source),
	}).Info("Generation run started")

	var mu sync.Mutex
	var wg sync.WaitGroup
	jobs := make(chan universe.Candidate)

	for i := 0; i < g.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for cand := range jobs {
				sig, skip, err := g.evaluate(ctx, cand, mode, now, res.RunID)

				mu.Lock()
				switch {
				case err != nil:
					res.Failures[cand.Symbol] = err.Error()
				case sig == nil:
					res.Skipped++
					if skip != "" {
						g.log.WithFields(map[string]interface{}{
							"symbol": cand.Symbol,
							"reason": skip,
						}).Debug("Symbol skipped")
					}
				default:
					res.Generated++
					res.Signals = append(res.Signals, sig)
				}
				mu.Unlock()
			}
		}()
	}

	for _, cand := range u.Candidates {
		select {
		case jobs <- cand:
		case <-ctx.Done():
			close(jobs)
			wg.Wait()
			return res, ctx.Err()
		}
	}
	close(jobs)
	wg.Wait()

	// Worker completion order is arbitrary; present best first.
	sort.Slice(res.Signals, func(i, j int) bool {
		if res.Signals[i].Score != res.Signals[j].Score {
			return res.Signals[i].Score > res.Signals[j].Score
		}
		return res.Signals[i].Symbol < res.Signals[j].Symbol
	})

	res.Elapsed = time.Since(started)

	g.log.WithFields(map[string]interface{}{
		"run_id":    res.RunID,
		"generated": res.Generated,
		"skipped":   res.Skipped,
		"failures":  len(res.Failures),
		"elapsed":   res.Elapsed.String(),
	}).Info("Generation run finished")

	return res, nil
}

// evaluate scores one candidate. A nil signal with empty error means
// the symbol was legitimately skipped; the reason string says why.
func (g *Generator) evaluate(ctx context.Context, cand universe.Candidate, mode contracts.Mode, now time.Time, runID string) (*contracts.Signal, string, error) {
	bars5m, err := g.provider.GetBars(ctx, cand.Symbol, contracts.Interval5m, lookback5m)
	if err != nil {
		return nil, "", fmt.Errorf("fetch 5m bars: %w", err)
	}

	// 1m bars only sharpen short momentum; their absence is not fatal.
	bars1m, err := g.provider.GetBars(ctx, cand.Symbol, contracts.Interval1m, lookback1m)
	if err != nil {
		bars1m = nil
	}

	fs := g.extractor.Extract(cand.Symbol, bars1m, bars5m, now)
	if !fs.Complete {
		return nil, "insufficient history", nil
	}

	state := g.detector.Detect(fs)

	verdict := g.strategy.Score(scoring.Input{
		Features: fs,
		Regime:   state,
		Mode:     mode,
	})
	if !verdict.Accepted {
		return nil, fmt.Sprintf("score %.2f below threshold", verdict.Score), nil
	}

	sig, reason := g.buildSignal(cand, fs, verdict, mode, now, runID)
	if sig == nil {
		return nil, reason, nil
	}

	if err := g.signals.Insert(ctx, sig); err != nil {
		return nil, "", fmt.Errorf("persist signal: %w", err)
	}

	return sig, "", nil
}

func (g *Generator) buildSignal(cand universe.Candidate, fs *contracts.FeatureSet, verdict scoring.Result, mode contracts.Mode, now time.Time, runID string) (*contracts.Signal, string) {
	entry := cand.Snapshot.Price
	if entry <= 0 {
		return nil, "no entry price"
	}

	atr := fs.Volatility.ATR14
	if atr <= 0 {
		return nil, "no usable ATR for stop placement"
	}

	side := contracts.SideLong
	if fs.Momentum.Momentum15m < 0 {
		side = contracts.SideShort
	}

	mult := stopATRSafe
	if mode == contracts.ModeAggressive {
		mult = stopATRAggressive
	}
	risk := mult * atr

	var stop float64
	targets := make([]float64, 0, len(targetMultiples))
	if side == contracts.SideLong {
		stop = entry - risk
		for _, r := range targetMultiples {
			targets = append(targets, entry+r*risk)
		}
	} else {
		stop = entry + risk
		for _, r := range targetMultiples {
			targets = append(targets, math.Max(0, entry-r*risk))
		}
	}
	if stop <= 0 {
		return nil, "stop below zero"
	}

	var modelVersion *string
	if verdict.MLProb != nil {
		if named, ok := g.strategy.(interface{ ActiveModelVersion() string }); ok {
			if v := named.ActiveModelVersion(); v != "" {
				modelVersion = &v
			}
		}
	}

	return &contracts.Signal{
		RunID:        runID,
		Symbol:       cand.Symbol,
		Side:         side,
		Mode:         mode,
		Source:       cand.Source,
		GeneratedAt:  now,
		Entry:        entry,
		Stop:         stop,
		Targets:      targets,
		Score:        verdict.Score,
		RuleScore:    verdict.RuleScore,
		MLProb:       verdict.MLProb,
		Features:     fs.Map(),
		SchemaHash:   fs.SchemaHash(),
		ModelVersion: modelVersion,
		Notes:        verdict.Reasons,
	}, ""
}
