package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/finbright/daytrade/backend/internal/contracts"
	"github.com/finbright/daytrade/backend/internal/performance"
)

// aggregateCmd represents the aggregate command
var aggregateCmd = &cobra.Command{
	Use:   "aggregate",
	Short: "Rebuild strategy performance statistics",
	Long: `Rebuilds the derived per-period strategy statistics from recorded
signal outcomes. Safe to re-run; each period row is replaced in full.

Example:
  go run ./cmd/engine aggregate
  go run ./cmd/engine aggregate --period weekly`,
	RunE: runAggregate,
}

var aggregatePeriod string

func init() {
	rootCmd.AddCommand(aggregateCmd)

	aggregateCmd.Flags().StringVar(&aggregatePeriod, "period", "all", "period to rebuild (daily|weekly|monthly|all_time|all)")
}

func runAggregate(cmd *cobra.Command, args []string) error {
	fmt.Printf("=== Performance Aggregation (%s) ===\n\n", aggregatePeriod)

	d, err := initDeps()
	if err != nil {
		return err
	}
	defer d.Close()

	ctx := cmd.Context()
	now := time.Now()
	aggregator := d.aggregator()

	periods := []contracts.PeriodType{
		contracts.PeriodDaily, contracts.PeriodWeekly,
		contracts.PeriodMonthly, contracts.PeriodAllTime,
	}
	if aggregatePeriod != "all" {
		period := contracts.PeriodType(aggregatePeriod)
		if !period.IsValid() {
			return fmt.Errorf("invalid period %q (valid: daily, weekly, monthly, all_time, all)", aggregatePeriod)
		}
		periods = []contracts.PeriodType{period}
	}

	modes := []contracts.Mode{contracts.ModeSafe, contracts.ModeAggressive}
	for _, mode := range modes {
		for _, period := range periods {
			if err := aggregator.Rebuild(ctx, mode, period, now); err != nil {
				return fmt.Errorf("rebuild %s/%s: %w", mode, period, err)
			}
		}
	}

	fmt.Println("Rebuilt periods:")
	for _, mode := range modes {
		for _, period := range periods {
			start, _ := performance.PeriodBounds(period, now)
			sp, err := d.strategies.Get(ctx, mode, period, start)
			if err != nil {
				return fmt.Errorf("read back %s/%s: %w", mode, period, err)
			}
			if sp == nil {
				continue
			}

			fmt.Printf("  %-10s %-8s samples=%-4d winrate=%5.1f%% total_pnl=%+.2f%% maxdd=%.2f%%",
				mode, period, sp.SampleSize, sp.WinRate, sp.TotalPnLPct, sp.MaxDrawdownPct)
			if sp.Sharpe != nil {
				fmt.Printf(" sharpe=%.2f", *sp.Sharpe)
			}
			fmt.Println()
		}
	}

	return nil
}
