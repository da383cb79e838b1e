package commands

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
)

// schedulerCmd represents the scheduler command
var schedulerCmd = &cobra.Command{
	Use:   "scheduler",
	Short: "Run and inspect the job scheduler",
	Long: `Starts the cron scheduler or manages its jobs.

Registered jobs:
  signal_generation_SAFE        every 5 min during market hours
  signal_generation_AGGRESSIVE  every 5 min during market hours
  performance_evaluation        every 15 min on weekdays
  performance_aggregation       5:30 PM ET weekdays
  model_retraining              1:30 AM ET daily
  risk_reset_daily              midnight ET daily
  risk_reset_weekly             12:05 AM ET Monday

Example:
  go run ./cmd/engine scheduler start
  go run ./cmd/engine scheduler list
  go run ./cmd/engine scheduler run model_retraining`,
}

var (
	schedulerStartCmd = &cobra.Command{
		Use:   "start",
		Short: "Start the scheduler daemon",
		RunE:  runScheduler,
	}

	schedulerListCmd = &cobra.Command{
		Use:   "list",
		Short: "List registered jobs",
		RunE:  listJobs,
	}

	schedulerRunCmd = &cobra.Command{
		Use:   "run [job_name]",
		Short: "Run one job immediately",
		Args:  cobra.ExactArgs(1),
		RunE:  runJob,
	}
)

func init() {
	rootCmd.AddCommand(schedulerCmd)
	schedulerCmd.AddCommand(schedulerStartCmd)
	schedulerCmd.AddCommand(schedulerListCmd)
	schedulerCmd.AddCommand(schedulerRunCmd)
}

func runScheduler(cmd *cobra.Command, args []string) error {
	fmt.Println("=== Scheduler ===")

	d, err := initDeps()
	if err != nil {
		return err
	}
	defer d.Close()

	if !d.cfg.Scheduler.Enabled {
		return fmt.Errorf("scheduler is disabled (SCHEDULER_ENABLED=false)")
	}

	sched, err := d.scheduler(cmd.Context())
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}

	sched.Start()

	fmt.Println("\nScheduler started. Registered jobs:")
	for _, jobName := range sched.GetAllJobs() {
		fmt.Printf("  - %s\n", jobName)
	}
	fmt.Println("\nPress Ctrl+C to stop")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	fmt.Println("\nShutting down scheduler...")
	sched.Stop()
	fmt.Println("Scheduler stopped")

	return nil
}

func listJobs(cmd *cobra.Command, args []string) error {
	d, err := initDeps()
	if err != nil {
		return err
	}
	defer d.Close()

	sched, err := d.scheduler(cmd.Context())
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}

	fmt.Println("Registered jobs:")
	for name, stat := range sched.GetJobStats() {
		fmt.Printf("  %-30s %s\n", name, stat.Schedule)
	}

	return nil
}

func runJob(cmd *cobra.Command, args []string) error {
	jobName := args[0]

	d, err := initDeps()
	if err != nil {
		return err
	}
	defer d.Close()

	sched, err := d.scheduler(cmd.Context())
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}

	fmt.Printf("Running job: %s\n", jobName)
	if err := sched.RunJob(jobName); err != nil {
		return fmt.Errorf("run job: %w", err)
	}

	// RunJob is asynchronous; wait for the single run to land in
	// history before reporting.
	for {
		time.Sleep(200 * time.Millisecond)

		history, err := sched.GetJobHistory(jobName)
		if err != nil {
			return err
		}
		if len(history.Results) > 0 {
			result := history.Results[len(history.Results)-1]
			if result.Success {
				fmt.Printf("Job completed in %.2fs\n", result.Duration.Seconds())
				return nil
			}
			return fmt.Errorf("job failed: %s", result.Error)
		}
	}
}
