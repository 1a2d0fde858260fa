package main

// Main entry point of the application
// Executes Cobra commands and maps errors to the exit code

import (
	"fmt"
	"os"

	"irys-monitor/cmd/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
