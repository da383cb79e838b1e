package commands

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/finbright/daytrade/backend/internal/contracts"
	"github.com/finbright/daytrade/backend/internal/risk"
)

// sizeCmd represents the size command
var sizeCmd = &cobra.Command{
	Use:   "size",
	Short: "Size today's picks against a user's risk budget",
	Long: `Runs each of today's picks through the risk gate for a user,
printing the allowed share count or the denial reason.

Example:
  go run ./cmd/engine size --user u123 --account 30000
  go run ./cmd/engine size --user u123 --account 30000 --mode AGGRESSIVE`,
	RunE: runSize,
}

var (
	sizeUser    string
	sizeAccount float64
	sizeMode    string
	sizeLimit   int
)

func init() {
	rootCmd.AddCommand(sizeCmd)

	sizeCmd.Flags().StringVar(&sizeUser, "user", "", "user ID (required)")
	sizeCmd.Flags().Float64Var(&sizeAccount, "account", 0, "current account value in dollars (required)")
	sizeCmd.Flags().StringVar(&sizeMode, "mode", "SAFE", "risk mode (SAFE|AGGRESSIVE)")
	sizeCmd.Flags().IntVar(&sizeLimit, "limit", 10, "maximum picks to size")

	sizeCmd.MarkFlagRequired("user")
	sizeCmd.MarkFlagRequired("account")
}

func runSize(cmd *cobra.Command, args []string) error {
	mode := contracts.Mode(strings.ToUpper(sizeMode))
	if !mode.IsValid() {
		return fmt.Errorf("invalid mode %q (valid: SAFE, AGGRESSIVE)", sizeMode)
	}

	d, err := initDeps()
	if err != nil {
		return err
	}
	defer d.Close()

	ctx := cmd.Context()

	budget, err := d.budgets.Get(ctx, sizeUser)
	if err != nil {
		return fmt.Errorf("load risk budget: %w", err)
	}
	if budget == nil {
		return fmt.Errorf("no risk budget configured for user %s", sizeUser)
	}

	now := time.Now()
	et := now.In(contracts.MarketLocation())
	since := time.Date(et.Year(), et.Month(), et.Day(), 0, 0, 0, 0, et.Location())

	picks, err := d.signals.ListRecent(ctx, mode, since, sizeLimit)
	if err != nil {
		return fmt.Errorf("list picks: %w", err)
	}

	fmt.Printf("=== Position Sizing %s (user %s, account $%.2f) ===\n\n", mode, sizeUser, sizeAccount)
	fmt.Printf("Budget: $%.2f/trade, $%.2f daily remaining, $%.2f weekly remaining\n\n",
		budget.MaxLossPerTrade, budget.DailyLossRemaining(), budget.WeeklyLossRemaining())

	if len(picks) == 0 {
		fmt.Println("No picks to size today.")
		return nil
	}

	gate := risk.NewGate(d.log)
	for _, sig := range picks {
		decision := gate.Check(&sig, budget, sizeAccount)
		if decision.Allowed {
			fmt.Printf("  %-6s %-5s score=%.1f  ALLOW %d shares (risk $%.2f at stop %.2f)\n",
				sig.Symbol, sig.Side, sig.Score, decision.MaxShares, decision.RiskUsed, sig.Stop)
		} else {
			fmt.Printf("  %-6s %-5s score=%.1f  DENY: %s\n",
				sig.Symbol, sig.Side, sig.Score, decision.Reason)
		}
	}

	return nil
}
