package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

// retrainCmd represents the retrain command
var retrainCmd = &cobra.Command{
	Use:   "retrain",
	Short: "Train and maybe promote a scoring model",
	Long: `Builds a labeled dataset from evaluated signals, fits a candidate
model and promotes it if it clears the promotion gates. Rejected
candidates stay stored with the rejection reason.

--force waives only the minimum-sample gate, for first-time bootstrap
on a thin history. Quality gates still apply.

Example:
  go run ./cmd/engine retrain
  go run ./cmd/engine retrain --lookback-days 60 --force`,
	RunE: runRetrain,
}

var (
	retrainLookbackDays int
	retrainForce        bool
)

func init() {
	rootCmd.AddCommand(retrainCmd)

	retrainCmd.Flags().IntVar(&retrainLookbackDays, "lookback-days", 0, "training window in days (default: configured value)")
	retrainCmd.Flags().BoolVar(&retrainForce, "force", false, "waive the minimum-sample gate")
}

func runRetrain(cmd *cobra.Command, args []string) error {
	fmt.Println("=== Model Retraining ===")
	fmt.Println()

	d, err := initDeps()
	if err != nil {
		return err
	}
	defer d.Close()

	if retrainLookbackDays > 0 {
		d.cfg.Engine.TrainLookbackDays = retrainLookbackDays
	}

	ctx := cmd.Context()
	if err := d.restoreModel(ctx); err != nil {
		return fmt.Errorf("restore model: %w", err)
	}

	report, err := d.trainer().Train(ctx, time.Now(), retrainForce)
	if err != nil {
		return fmt.Errorf("training failed: %w", err)
	}

	fmt.Printf("Samples:  %d (horizon %s)\n", report.Samples, report.Horizon)
	if report.Version == "" {
		fmt.Printf("Outcome:  no candidate trained (%s)\n", report.Reason)
		return nil
	}

	fmt.Printf("Version:  %s\n", report.Version)
	fmt.Printf("Train accuracy:      %.3f\n", report.TrainAccuracy)
	fmt.Printf("Validation accuracy: %.3f\n", report.ValidationAccuracy)
	fmt.Printf("Validation AUC:      %.3f\n", report.ValidationAUC)

	if report.Promoted {
		fmt.Println("\nPromoted: candidate is now the active model")
	} else {
		fmt.Printf("\nNot promoted: %s\n", report.Reason)
	}

	return nil
}
