package commands

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/finbright/daytrade/backend/internal/contracts"
)

// statusCmd represents the status command
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show engine status",
	Long: `One-shot status report: database health, cache state, active
model version and today's pick counts.

Example:
  go run ./cmd/engine status`,
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	fmt.Println("=== Engine Status ===")
	fmt.Println()

	d, err := initDeps()
	if err != nil {
		return err
	}
	defer d.Close()

	ctx := cmd.Context()

	health, err := d.db.HealthCheck(ctx)
	if err != nil {
		fmt.Printf("Database:  DOWN (%s)\n", health.Error)
	} else {
		fmt.Printf("Database:  OK (%d/%d conns, ping %s)\n",
			health.Stats.TotalConns, health.Stats.MaxConns, health.ResponseTime)
	}

	if d.rdb.Enabled() {
		fmt.Println("Redis:     enabled")
	} else {
		fmt.Println("Redis:     disabled (caching and rate limits are no-ops)")
	}

	model, err := d.models.GetActive(ctx)
	switch {
	case errors.Is(err, contracts.ErrNoActiveModel):
		fmt.Println("Model:     none active (rule-only scoring)")
	case err != nil:
		return fmt.Errorf("get active model: %w", err)
	default:
		fmt.Printf("Model:     %s (val acc %.3f, AUC %.3f, %d samples)\n",
			model.Version, model.ValidationAccuracy, model.ValidationAUC, model.SampleSize)
	}

	now := time.Now()
	et := now.In(contracts.MarketLocation())
	since := time.Date(et.Year(), et.Month(), et.Day(), 0, 0, 0, 0, et.Location())

	fmt.Println()
	for _, mode := range []contracts.Mode{contracts.ModeSafe, contracts.ModeAggressive} {
		picks, err := d.signals.ListRecent(ctx, mode, since, 50)
		if err != nil {
			return fmt.Errorf("list %s picks: %w", mode, err)
		}
		fmt.Printf("Picks today (%s): %d\n", mode, len(picks))
	}

	return nil
}
