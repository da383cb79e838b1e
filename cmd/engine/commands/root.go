package commands

import (
	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "engine",
	Short: "Intraday signal engine",
	Long: `Day-trading signal engine CLI.

Generates scored intraday picks, evaluates their realized outcomes,
aggregates strategy statistics and retrains the scoring model.

Usage:
  go run ./cmd/engine [command]

Examples:
  go run ./cmd/engine generate --mode SAFE
  go run ./cmd/engine evaluate --horizon all
  go run ./cmd/engine aggregate
  go run ./cmd/engine retrain --force
  go run ./cmd/engine picks --mode AGGRESSIVE --limit 5
  go run ./cmd/engine size --user u123 --account 30000
  go run ./cmd/engine serve
  go run ./cmd/engine scheduler start`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}
