package training

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/finbright/daytrade/backend/internal/contracts"
	"github.com/finbright/daytrade/backend/pkg/logger"
)

// Round-trip trading cost assumed per signal, in percent of entry:
// half-spread both ways, commission and slippage. A label only counts
// as a win when the realized move clears the cost plus this margin.
const (
	costPct         = 0.05
	winThresholdPct = 0.1
)

// Dataset is a feature matrix with binary labels, rows in signal
// generation order so a chronological split never trains on the
// future.
type Dataset struct {
	FeatureNames []string
	SchemaHash   string
	X            [][]float64
	Y            []float64
	Horizon      contracts.Horizon
}

func (d *Dataset) Len() int { return len(d.X) }

// Split cuts the dataset chronologically at the given train fraction.
func (d *Dataset) Split(trainFrac float64) (train, val *Dataset) {
	cut := int(float64(d.Len()) * trainFrac)
	train = &Dataset{FeatureNames: d.FeatureNames, SchemaHash: d.SchemaHash, Horizon: d.Horizon, X: d.X[:cut], Y: d.Y[:cut]}
	val = &Dataset{FeatureNames: d.FeatureNames, SchemaHash: d.SchemaHash, Horizon: d.Horizon, X: d.X[cut:], Y: d.Y[cut:]}
	return train, val
}

// Builder assembles training data from evaluated signals. EOD
// outcomes are preferred; when the window holds too few of them the
// 2h horizon fills in.
type Builder struct {
	signals contracts.SignalRepository
	log     *logger.Logger
}

func NewBuilder(signals contracts.SignalRepository, log *logger.Logger) *Builder {
	return &Builder{
		signals: signals,
		log:     log.WithField("component", "training"),
	}
}

// Build assembles the dataset for the window. Signals whose feature
// schema differs from the window's dominant schema are dropped: a
// model only ever sees one schema.
func (b *Builder) Build(ctx context.Context, start, end time.Time, minSamples int) (*Dataset, error) {
	pairs, err := b.signals.ListWithPerformance(ctx, contracts.HorizonEOD, start, end)
	if err != nil {
		return nil, fmt.Errorf("list eod outcomes: %w", err)
	}
	horizon := contracts.HorizonEOD

	if len(pairs) < minSamples {
		fallback, err := b.signals.ListWithPerformance(ctx, contracts.Horizon2h, start, end)
		if err != nil {
			return nil, fmt.Errorf("list 2h outcomes: %w", err)
		}
		if len(fallback) > len(pairs) {
			b.log.WithFields(map[string]interface{}{
				"eod_samples": len(pairs),
				"2h_samples":  len(fallback),
			}).Info("Falling back to 2h horizon for training")
			pairs = fallback
			horizon = contracts.Horizon2h
		}
	}

	if len(pairs) == 0 {
		return &Dataset{Horizon: horizon}, nil
	}

	schema := dominantSchema(pairs)

	names := featureNames(pairs, schema)
	ds := &Dataset{
		FeatureNames: names,
		SchemaHash:   schema,
		Horizon:      horizon,
		X:            make([][]float64, 0, len(pairs)),
		Y:            make([]float64, 0, len(pairs)),
	}

	dropped := 0
	for _, p := range pairs {
		if p.Signal.SchemaHash != schema {
			dropped++
			continue
		}

		row := make([]float64, len(names))
		for i, name := range names {
			row[i] = p.Signal.Features[name]
		}
		ds.X = append(ds.X, row)
		ds.Y = append(ds.Y, label(p.Performance))
	}

	if dropped > 0 {
		b.log.WithFields(map[string]interface{}{
			"dropped": dropped,
			"schema":  schema,
		}).Warn("Dropped samples with mismatched feature schema")
	}

	return ds, nil
}

// label is 1 when the realized move beats trading costs by the win
// margin. Stop-outs are always losses regardless of the raw number.
func label(perf contracts.SignalPerformance) float64 {
	if perf.StopHit {
		return 0
	}
	if perf.PnLPct-costPct > winThresholdPct {
		return 1
	}
	return 0
}

func dominantSchema(pairs []contracts.SignalWithPerformance) string {
	counts := make(map[string]int)
	for _, p := range pairs {
		counts[p.Signal.SchemaHash]++
	}

	var best string
	var bestN int
	for schema, n := range counts {
		if n > bestN || (n == bestN && schema < best) {
			best = schema
			bestN = n
		}
	}
	return best
}

// featureNames returns the sorted key set of the first sample carrying
// the dominant schema. All samples with that schema share the keys by
// construction of the schema hash.
func featureNames(pairs []contracts.SignalWithPerformance, schema string) []string {
	for _, p := range pairs {
		if p.Signal.SchemaHash != schema {
			continue
		}
		names := make([]string, 0, len(p.Signal.Features))
		for name := range p.Signal.Features {
			names = append(names, name)
		}
		sort.Strings(names)
		return names
	}
	return nil
}
