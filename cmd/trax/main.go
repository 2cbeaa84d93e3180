package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/teranos/trax/cmd/trax/commands"
	"github.com/teranos/trax/config"
	"github.com/teranos/trax/logger"
)

var rootCmd = &cobra.Command{
	Use:   "trax",
	Short: "trax - Tracker import pipeline",
	Long: `trax - Tracker import pipeline for health information payloads.

trax validates and persists batches of tracked entities, enrollments,
events and relationships, running configured program rules against each
batch before anything is written.

Available commands:
  import  - Import a payload file through the full pipeline
  db      - Manage the tracker database
  version - Show version information

Examples:
  trax import payload.json             # Import a payload
  trax import payload.yaml --dry-run   # Validate without persisting
  trax db init                         # Create the database schema
  trax db stats                        # Show entity counts`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		if err := logger.Initialize(cfg.Log.JSON); err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(commands.ImportCmd)
	rootCmd.AddCommand(commands.DbCmd)
	rootCmd.AddCommand(commands.VersionCmd)
}

func main() {
	defer logger.Cleanup()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
