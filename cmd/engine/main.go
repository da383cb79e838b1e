package main

import (
	"os"

	"github.com/finbright/daytrade/backend/cmd/engine/commands"
)

// main is the entry point for the engine CLI: go run ./cmd/engine [command]
func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
