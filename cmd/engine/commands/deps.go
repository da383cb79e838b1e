package commands

import (
	"context"
	"fmt"

	"github.com/finbright/daytrade/backend/internal/contracts"
	"github.com/finbright/daytrade/backend/internal/data/repos"
	"github.com/finbright/daytrade/backend/internal/features"
	"github.com/finbright/daytrade/backend/internal/marketdata"
	"github.com/finbright/daytrade/backend/internal/performance"
	"github.com/finbright/daytrade/backend/internal/pipeline"
	"github.com/finbright/daytrade/backend/internal/regime"
	"github.com/finbright/daytrade/backend/internal/risk"
	"github.com/finbright/daytrade/backend/internal/scheduler"
	"github.com/finbright/daytrade/backend/internal/scheduler/jobs"
	"github.com/finbright/daytrade/backend/internal/scoring"
	"github.com/finbright/daytrade/backend/internal/training"
	"github.com/finbright/daytrade/backend/internal/universe"
	"github.com/finbright/daytrade/backend/pkg/config"
	"github.com/finbright/daytrade/backend/pkg/database"
	"github.com/finbright/daytrade/backend/pkg/logger"
	"github.com/finbright/daytrade/backend/pkg/redis"
)

// deps is the shared dependency graph. Each command builds exactly the
// slice it needs through the helper methods below.
type deps struct {
	cfg *config.Config
	log *logger.Logger
	db  *database.DB
	rdb *redis.Client

	signals    *repos.SignalRepository
	perf       *repos.PerformanceRepository
	strategies *repos.StrategyRepository
	models     *repos.ModelRepository
	budgets    *repos.RiskBudgetRepository

	provider *marketdata.PolygonClient
	holder   *scoring.ModelHolder
	strategy *scoring.BlendedStrategy
	filter   *universe.Filter
}

// initDeps loads config and connects to the backing services.
func initDeps() (*deps, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	log := logger.New(cfg)

	db, err := database.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	rdb, err := redis.New(cfg)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	d := &deps{
		cfg: cfg,
		log: log,
		db:  db,
		rdb: rdb,

		signals:    repos.NewSignalRepository(db.Pool),
		perf:       repos.NewPerformanceRepository(db.Pool),
		strategies: repos.NewStrategyRepository(db.Pool),
		models:     repos.NewModelRepository(db.Pool),
		budgets:    repos.NewRiskBudgetRepository(db.Pool),

		holder: scoring.NewModelHolder(),
	}

	d.provider = marketdata.NewPolygonClient(cfg, rdb, log)
	d.strategy = scoring.NewBlendedStrategy(d.holder, cfg.Engine.MLWeight, log)
	d.filter = universe.NewFilter(d.provider, log, cfg.Engine.MaxUniverseSize, cfg.Engine.UniverseCacheTTL)

	return d, nil
}

// Close releases the database and cache connections.
func (d *deps) Close() {
	if d.rdb != nil {
		d.rdb.Close()
	}
	if d.db != nil {
		d.db.Close()
	}
}

// restoreModel loads the active model into the in-process holder so
// scoring can blend. Missing model is fine; scoring runs rule-only.
func (d *deps) restoreModel(ctx context.Context) error {
	return d.trainer().Restore(ctx)
}

func (d *deps) generator() *pipeline.Generator {
	return pipeline.NewGenerator(
		d.filter,
		d.provider,
		features.NewExtractor(d.log),
		regime.NewDetector(d.log),
		d.strategy,
		d.signals,
		d.cfg.Engine.Workers,
		d.log,
	)
}

func (d *deps) evaluator() *performance.Evaluator {
	return performance.NewEvaluator(d.signals, d.perf, d.provider, d.log)
}

func (d *deps) aggregator() *performance.Aggregator {
	return performance.NewAggregator(d.perf, d.strategies, d.log)
}

func (d *deps) trainer() *training.Trainer {
	builder := training.NewBuilder(d.signals, d.log)
	return training.NewTrainer(builder, d.models, d.holder, d.cfg.Engine, d.log)
}

// scheduler assembles the full job set on one scheduler instance.
func (d *deps) scheduler(ctx context.Context) (*scheduler.Scheduler, error) {
	if err := d.restoreModel(ctx); err != nil {
		return nil, fmt.Errorf("restore model: %w", err)
	}

	gen := d.generator()
	resetter := risk.NewResetter(d.budgets, d.log)

	sched := scheduler.New(d.log)
	jobList := []scheduler.Job{
		jobs.NewGenerateJob(gen, contracts.ModeSafe, d.log),
		jobs.NewGenerateJob(gen, contracts.ModeAggressive, d.log),
		jobs.NewEvaluateJob(d.evaluator(), d.log),
		jobs.NewAggregateJob(d.aggregator(), d.log),
		jobs.NewRetrainJob(d.trainer(), d.log),
		jobs.NewDailyResetJob(resetter, d.log),
		jobs.NewWeeklyResetJob(resetter, d.log),
	}
	for _, job := range jobList {
		if err := sched.AddJob(job); err != nil {
			return nil, fmt.Errorf("register %s: %w", job.Name(), err)
		}
	}

	return sched, nil
}
