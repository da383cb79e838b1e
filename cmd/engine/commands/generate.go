package commands

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/finbright/daytrade/backend/internal/contracts"
)

// generateCmd represents the generate command
var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Run one signal generation pass",
	Long: `Runs the full pipeline once for a mode:
universe filter, feature extraction, regime detection, scoring and
signal logging.

Example:
  go run ./cmd/engine generate --mode SAFE
  go run ./cmd/engine generate --mode AGGRESSIVE`,
	RunE: runGenerate,
}

var generateMode string

func init() {
	rootCmd.AddCommand(generateCmd)

	generateCmd.Flags().StringVar(&generateMode, "mode", "SAFE", "risk mode (SAFE|AGGRESSIVE)")
}

func runGenerate(cmd *cobra.Command, args []string) error {
	mode := contracts.Mode(strings.ToUpper(generateMode))
	if !mode.IsValid() {
		return fmt.Errorf("invalid mode %q (valid: SAFE, AGGRESSIVE)", generateMode)
	}

	fmt.Printf("=== Signal Generation (%s) ===\n\n", mode)

	d, err := initDeps()
	if err != nil {
		return err
	}
	defer d.Close()

	ctx := cmd.Context()
	if err := d.restoreModel(ctx); err != nil {
		return fmt.Errorf("restore model: %w", err)
	}

	result, err := d.generator().Run(ctx, mode, time.Now())
	if err != nil {
		return fmt.Errorf("generation failed: %w", err)
	}

	fmt.Printf("Run ID:    %s\n", result.RunID)
	fmt.Printf("Universe:  %d symbols\n", result.UniverseSize)
	fmt.Printf("Generated: %d\n", result.Generated)
	fmt.Printf("Skipped:   %d\n", result.Skipped)
	fmt.Printf("Failures:  %d\n", len(result.Failures))
	fmt.Printf("Elapsed:   %.2fs\n", result.Elapsed.Seconds())

	if len(result.Signals) > 0 {
		fmt.Println("\nPicks (best first):")
		for _, sig := range result.Signals {
			fmt.Printf("  %-6s %-5s score=%.1f entry=%.2f stop=%.2f targets=%s\n",
				sig.Symbol, sig.Side, sig.Score, sig.Entry, sig.Stop, formatTargets(sig.Targets))
		}
	}

	if len(result.Failures) > 0 {
		fmt.Println("\nFailed symbols:")
		symbols := make([]string, 0, len(result.Failures))
		for symbol := range result.Failures {
			symbols = append(symbols, symbol)
		}
		sort.Strings(symbols)
		for _, symbol := range symbols {
			fmt.Printf("  %-6s %s\n", symbol, result.Failures[symbol])
		}
	}

	return nil
}

func formatTargets(targets []float64) string {
	parts := make([]string, 0, len(targets))
	for _, t := range targets {
		parts = append(parts, fmt.Sprintf("%.2f", t))
	}
	return strings.Join(parts, "/")
}
