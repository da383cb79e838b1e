package commands

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/finbright/daytrade/backend/internal/contracts"
)

// picksCmd represents the picks command
var picksCmd = &cobra.Command{
	Use:   "picks",
	Short: "Show today's picks",
	Long: `Lists the current trading day's accepted picks for a mode,
best score first.

Example:
  go run ./cmd/engine picks
  go run ./cmd/engine picks --mode AGGRESSIVE --limit 5`,
	RunE: runPicks,
}

var (
	picksMode  string
	picksLimit int
)

func init() {
	rootCmd.AddCommand(picksCmd)

	picksCmd.Flags().StringVar(&picksMode, "mode", "SAFE", "risk mode (SAFE|AGGRESSIVE)")
	picksCmd.Flags().IntVar(&picksLimit, "limit", 10, "maximum picks to show")
}

func runPicks(cmd *cobra.Command, args []string) error {
	mode := contracts.Mode(strings.ToUpper(picksMode))
	if !mode.IsValid() {
		return fmt.Errorf("invalid mode %q (valid: SAFE, AGGRESSIVE)", picksMode)
	}

	d, err := initDeps()
	if err != nil {
		return err
	}
	defer d.Close()

	now := time.Now()
	et := now.In(contracts.MarketLocation())
	since := time.Date(et.Year(), et.Month(), et.Day(), 0, 0, 0, 0, et.Location())

	picks, err := d.signals.ListRecent(cmd.Context(), mode, since, picksLimit)
	if err != nil {
		return fmt.Errorf("list picks: %w", err)
	}

	fmt.Printf("=== Picks %s (%s) ===\n\n", mode, et.Format("2006-01-02"))

	if len(picks) == 0 {
		fmt.Println("No picks yet today.")
		return nil
	}

	fmt.Printf("%-6s %-5s %-6s %-9s %-9s %-22s %-8s %s\n",
		"SYMBOL", "SIDE", "SCORE", "ENTRY", "STOP", "TARGETS", "TIME", "NOTES")
	for _, sig := range picks {
		notes := ""
		if len(sig.Notes) > 0 {
			notes = strings.Join(sig.Notes, ", ")
		}
		fmt.Printf("%-6s %-5s %-6.1f %-9.2f %-9.2f %-22s %-8s %s\n",
			sig.Symbol, sig.Side, sig.Score, sig.Entry, sig.Stop,
			formatTargets(sig.Targets),
			sig.GeneratedAt.In(et.Location()).Format("15:04"),
			notes)
	}

	return nil
}
