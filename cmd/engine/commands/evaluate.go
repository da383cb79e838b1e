package commands

import (
	"fmt"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/finbright/daytrade/backend/internal/contracts"
	"github.com/finbright/daytrade/backend/internal/performance"
)

// evaluateCmd represents the evaluate command
var evaluateCmd = &cobra.Command{
	Use:   "evaluate",
	Short: "Evaluate due signal outcomes",
	Long: `Records realized outcomes for signals whose horizon has passed.
Each (signal, horizon) pair is written exactly once; re-running the
command is a no-op for already evaluated pairs.

Example:
  go run ./cmd/engine evaluate
  go run ./cmd/engine evaluate --horizon eod`,
	RunE: runEvaluate,
}

var evaluateHorizon string

func init() {
	rootCmd.AddCommand(evaluateCmd)

	evaluateCmd.Flags().StringVar(&evaluateHorizon, "horizon", "all", "horizon to evaluate (30m|2h|eod|1d|2d|all)")
}

func runEvaluate(cmd *cobra.Command, args []string) error {
	fmt.Printf("=== Performance Evaluation (%s) ===\n\n", evaluateHorizon)

	d, err := initDeps()
	if err != nil {
		return err
	}
	defer d.Close()

	ctx := cmd.Context()
	now := time.Now()
	evaluator := d.evaluator()

	var result *performance.EvalResult
	if evaluateHorizon == "all" {
		result, err = evaluator.EvaluateDue(ctx, now)
	} else {
		var horizon contracts.Horizon
		horizon, err = contracts.ParseHorizon(evaluateHorizon)
		if err != nil {
			return err
		}
		result, err = evaluator.EvaluateHorizon(ctx, horizon, now)
	}
	if err != nil {
		return fmt.Errorf("evaluation failed: %w", err)
	}

	fmt.Printf("Evaluated:  %d\n", result.Evaluated)
	fmt.Printf("Duplicates: %d\n", result.Duplicates)
	fmt.Printf("Failures:   %d\n", len(result.Failures))

	if len(result.Failures) > 0 {
		fmt.Println("\nFailed pairs (retried next run):")
		keys := make([]string, 0, len(result.Failures))
		for key := range result.Failures {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for _, key := range keys {
			fmt.Printf("  %-12s %s\n", key, result.Failures[key])
		}
	}

	return nil
}
