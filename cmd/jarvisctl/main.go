package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var version = "1.0.0"

func main() {
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "jarvisctl",
	Short: "Jarvis CLI - operational tool for the Jarvis assistant",
	Long: `jarvisctl is the command-line interface for operating a Jarvis
assistant deployment.

Examples:
  # Wipe all data stored for one user
  jarvisctl reset --identity tg:12345

  # Load demo data for local development
  jarvisctl seed --identity demo:1`,
	Version: version,
}

func init() {
	rootCmd.AddCommand(resetCmd)
	rootCmd.AddCommand(seedCmd)
}
