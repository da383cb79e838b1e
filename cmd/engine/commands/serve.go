package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/finbright/daytrade/backend/internal/api"
	"github.com/finbright/daytrade/backend/internal/api/handlers"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the read-only API server",
	Long: `Starts the HTTP API serving picks and health.

Endpoints:
  GET /health           - service and database health
  GET /api/v1/picks     - today's picks (?mode=&limit=)

Example:
  go run ./cmd/engine serve
  go run ./cmd/engine serve --port 8090`,
	RunE: runServe,
}

var servePort string

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&servePort, "port", "", "listen port (default: configured PORT)")
}

func runServe(cmd *cobra.Command, args []string) error {
	fmt.Println("=== API Server ===")

	d, err := initDeps()
	if err != nil {
		return err
	}
	defer d.Close()

	if servePort != "" {
		d.cfg.Port = servePort
	}

	picksHandler := handlers.NewPicksHandler(d.signals, d.filter, d.log)
	healthHandler := handlers.NewHealthHandler(d.db, d.log)
	router := api.NewRouter(picksHandler, healthHandler, d.log)
	server := api.New(d.cfg, d.log, router)

	go func() {
		if err := server.Start(); err != nil {
			d.log.WithError(err).Fatal("Failed to start server")
		}
	}()

	fmt.Printf("\nServer running on http://localhost:%s\n", d.cfg.Port)
	fmt.Println("\nAvailable endpoints:")
	fmt.Println("  GET /health")
	fmt.Println("  GET /api/v1/picks")
	fmt.Println("\nPress Ctrl+C to stop")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	d.log.Info("Server stopped")
	return nil
}
