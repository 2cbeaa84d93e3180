// Package commands implements the trax CLI commands.
package commands

import (
	"database/sql"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/mattn/go-sqlite3"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/teranos/trax/config"
	"github.com/teranos/trax/errors"
	"github.com/teranos/trax/importer"
	"github.com/teranos/trax/logger"
	"github.com/teranos/trax/persistence"
	"github.com/teranos/trax/preheat"
	"github.com/teranos/trax/programrule"
	"github.com/teranos/trax/report"
	"github.com/teranos/trax/tracker"
	"github.com/teranos/trax/validation"
)

// ImportCmd runs one payload file through the import pipeline.
var ImportCmd = &cobra.Command{
	Use:   "import <payload-file>",
	Short: "Import a tracker payload",
	Long: `import — Run a payload file through the import pipeline

Reads a JSON or YAML payload of tracked entities, enrollments, events and
relationships, resolves its references, runs program rules and validation,
and persists the surviving entities.

Examples:
  trax import payload.json                 # Full import
  trax import payload.yaml --dry-run       # Validate only, write nothing
  trax import payload.json --id-scheme CODE
  trax import payload.json --atomic-deletes`,
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

var (
	importConfigFlag        string
	importDryRunFlag        bool
	importAtomicDeletesFlag bool
	importIdSchemeFlag      string
	importOrgUnitSchemeFlag string
)

func init() {
	ImportCmd.Flags().StringVar(&importConfigFlag, "config", "", "Config file to use instead of the merged search paths")
	ImportCmd.Flags().BoolVar(&importDryRunFlag, "dry-run", false, "Run the pipeline without persisting anything")
	ImportCmd.Flags().BoolVar(&importAtomicDeletesFlag, "atomic-deletes", false, "Fail the whole delete group when one delete fails")
	ImportCmd.Flags().StringVar(&importIdSchemeFlag, "id-scheme", "", "Default metadata id scheme (UID, CODE, NAME)")
	ImportCmd.Flags().StringVar(&importOrgUnitSchemeFlag, "org-unit-id-scheme", "", "Org unit id scheme override")
}

func runImport(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	payload, err := readPayload(args[0])
	if err != nil {
		return err
	}

	db, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	ctx := cmd.Context()
	store := persistence.NewSQLStore(db, logger.Named("store"))
	repo := persistence.NewSQLRepository(db, logger.Named("repo"))
	if err := store.EnsureSchema(ctx); err != nil {
		return err
	}
	if err := repo.EnsureSchema(ctx); err != nil {
		return err
	}

	cache := preheat.NewCache()

	// A config edit during a long import drops the rule cache so the next
	// batch resolves fresh rules.
	if importConfigFlag != "" {
		watcher, err := config.NewWatcher(importConfigFlag)
		if err != nil {
			return err
		}
		watcher.OnReload(func(*config.Config) error {
			cache.InvalidateCache()
			return nil
		})
		watcher.Start()
		defer watcher.Stop()
	}

	resolver := preheat.NewResolver(repo, repo, cache, preheat.ResolverConfig{
		CacheTTLMinutes: cfg.Preheat.CacheTTLMinutes,
		CacheCapacity:   cfg.Preheat.CacheCapacity,
	}, logger.Named("preheat"))

	svc := importer.NewService(
		resolver,
		programrule.NewEngine(logger.Named("rules")),
		validation.DefaultChain(logger.Named("validation")),
		persistence.NewPersister(store, logger.Named("persistence")),
		cfg,
		config.NewEncryptionStatus(cfg),
		logger.Named("importer"),
	)

	opts := tracker.ImportOptions{
		IdSchemes:     schemeParams(),
		AtomicDeletes: importAtomicDeletesFlag,
		DryRun:        importDryRunFlag,
	}

	rep, err := svc.Import(ctx, payload, opts)
	if err != nil {
		return errors.Wrap(err, "import failed")
	}

	renderReport(rep, importDryRunFlag)
	return nil
}

func loadConfig() (*config.Config, error) {
	if importConfigFlag != "" {
		return config.LoadFromFile(importConfigFlag)
	}
	return config.Load()
}

func schemeParams() tracker.IdSchemeParams {
	var params tracker.IdSchemeParams
	if importIdSchemeFlag != "" {
		params.Default = tracker.IdSchemeParam{Scheme: tracker.IdScheme(strings.ToUpper(importIdSchemeFlag))}
	}
	if importOrgUnitSchemeFlag != "" {
		params.OrgUnit = tracker.IdSchemeParam{Scheme: tracker.IdScheme(strings.ToUpper(importOrgUnitSchemeFlag))}
	}
	return params
}

// readPayload parses a payload file, picking the codec by extension.
func readPayload(path string) (*tracker.Payload, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NewNotFoundError("payload file %s does not exist", path)
		}
		return nil, errors.Wrapf(err, "failed to read payload file %s", path)
	}

	var payload tracker.Payload
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &payload); err != nil {
			return nil, errors.Mark(errors.Wrapf(err, "failed to parse YAML payload %s", path), errors.ErrInvalidPayload)
		}
	default:
		if err := json.Unmarshal(data, &payload); err != nil {
			return nil, errors.Mark(errors.Wrapf(err, "failed to parse JSON payload %s", path), errors.ErrInvalidPayload)
		}
	}

	if payload.Size() == 0 {
		return nil, errors.NewInvalidPayloadError("payload %s contains no entities", path)
	}
	return &payload, nil
}

func openDatabase(cfg *config.Config) (*sql.DB, error) {
	path := cfg.Database.Path
	if envPath := os.Getenv("DB_PATH"); envPath != "" {
		path = envPath
	}
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open database %s", path)
	}
	return db, nil
}

func renderReport(rep *report.ImportReport, dryRun bool) {
	switch rep.Status {
	case report.StatusOK:
		pterm.Success.Printf("Import %s\n", rep.Status)
	case report.StatusWarning:
		pterm.Warning.Printf("Import finished with warnings\n")
	default:
		pterm.Error.Printf("Import finished with errors\n")
	}
	if dryRun {
		pterm.Info.Println("Dry run: nothing was persisted")
	}

	rows := pterm.TableData{{"Kind", "Created", "Updated", "Deleted", "Ignored"}}
	for _, t := range tracker.Types() {
		tr, ok := rep.TypeReports[t]
		if !ok {
			continue
		}
		rows = append(rows, []string{
			string(t),
			pterm.Sprintf("%d", tr.Stats.Created),
			pterm.Sprintf("%d", tr.Stats.Updated),
			pterm.Sprintf("%d", tr.Stats.Deleted),
			pterm.Sprintf("%d", tr.Stats.Ignored),
		})
	}
	pterm.DefaultTable.WithHasHeader().WithData(rows).Render()

	for _, issue := range rep.Validation.Errors {
		pterm.Printf("  %s %s %s: %s\n",
			pterm.Red(issue.Code), pterm.Gray(issue.Ref.Type), issue.Ref.UID, issue.Message)
	}
	for _, issue := range rep.Validation.Warnings {
		pterm.Printf("  %s %s %s: %s\n",
			pterm.Yellow(issue.Code), pterm.Gray(issue.Ref.Type), issue.Ref.UID, issue.Message)
	}
}
