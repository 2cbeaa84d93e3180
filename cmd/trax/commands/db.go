package commands

import (
	"database/sql"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/teranos/trax/config"
	"github.com/teranos/trax/errors"
	"github.com/teranos/trax/logger"
	"github.com/teranos/trax/persistence"
)

// DbCmd groups tracker database operations.
var DbCmd = &cobra.Command{
	Use:   "db",
	Short: "Manage the tracker database",
	Long: `db — Manage tracker database operations

Examples:
  trax db init    # Create the tracker and metadata tables
  trax db stats   # Show entity counts`,
}

var dbInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the database schema",
	RunE:  runDbInit,
}

var dbStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show entity counts",
	RunE:  runDbStats,
}

func init() {
	DbCmd.AddCommand(dbInitCmd)
	DbCmd.AddCommand(dbStatsCmd)
}

func runDbInit(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return errors.Wrap(err, "failed to load configuration")
	}
	db, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	ctx := cmd.Context()
	if err := persistence.NewSQLStore(db, logger.Named("store")).EnsureSchema(ctx); err != nil {
		return err
	}
	if err := persistence.NewSQLRepository(db, logger.Named("repo")).EnsureSchema(ctx); err != nil {
		return err
	}

	fmt.Printf("Database initialized at %s\n", cfg.Database.Path)
	return nil
}

func runDbStats(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return errors.Wrap(err, "failed to load configuration")
	}
	db, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	fmt.Printf("Database: %s\n\n", cfg.Database.Path)
	tables := []string{"tracked_entities", "enrollments", "events", "relationships", "programs", "program_rules"}
	for _, table := range tables {
		var count int
		err := db.QueryRow("SELECT COUNT(*) FROM " + table).Scan(&count)
		if err != nil && err != sql.ErrNoRows {
			return errors.Wrapf(err, "failed to count %s", table)
		}
		fmt.Printf("%-18s %d\n", table, count)
	}
	return nil
}
