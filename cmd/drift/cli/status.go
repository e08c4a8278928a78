package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/driftsql/drift/internal/diff"
	"github.com/driftsql/drift/internal/migration"
	"github.com/driftsql/drift/internal/snapshot"
)

func newStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show repository and database state",
		Long: `Report the configured dialect, applied and pending migrations, whether
the schema file was edited since the last pull or push, and whether the
live database has drifted from the schema file.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(cmd)
		},
	}

	return cmd
}

type statusReport struct {
	Dialect         string   `json:"dialect"`
	Applied         int      `json:"applied"`
	Pending         []string `json:"pending,omitempty"`
	SchemaEdited    bool     `json:"schema_edited"`
	DatabaseDrifted bool     `json:"database_drifted"`
	Changes         string   `json:"changes,omitempty"`
}

func runStatus(cmd *cobra.Command) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	db, err := openDB(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	report := statusReport{Dialect: db.Dialect.Name}

	ex := newExecutor(db, cfg)
	applied, err := ex.Applied(ctx)
	if err != nil {
		return err
	}
	report.Applied = len(applied)
	appliedFiles := make(map[string]bool, len(applied))
	for _, e := range applied {
		appliedFiles[e.Filename] = true
	}

	migrations, err := migration.LoadDir(cfg.MigrationsPath())
	if err != nil {
		return err
	}
	for _, m := range migrations {
		if !appliedFiles[m.Filename] {
			report.Pending = append(report.Pending, m.Filename)
		}
	}

	// Out-of-band edit detection: compare the schema file's hash with the
	// one recorded at the last pull or push.
	if snap, err := snapshotStore(cfg).Load(); err == nil && snap != nil && snap.SourceHash != "" {
		current, err := snapshot.HashFile(cfg.SchemaPath())
		if err != nil {
			return err
		}
		report.SchemaEdited = current != "" && current != snap.SourceHash
	}

	if desired, err := loadDesired(cfg); err == nil {
		observed, _, err := introspectLive(ctx, db, cfg)
		if err != nil {
			return err
		}
		if sd := diff.Compute(observed, desired.Schema); !sd.Empty() {
			report.DatabaseDrifted = true
			report.Changes = sd.Summary()
		}
	}

	if jsonOutput {
		return printJSON(report)
	}
	fmt.Printf("Dialect:  %s\n", report.Dialect)
	fmt.Printf("Applied:  %d migrations\n", report.Applied)
	if len(report.Pending) > 0 {
		fmt.Printf("Pending:  %d\n", len(report.Pending))
		for _, f := range report.Pending {
			fmt.Printf("  %s\n", f)
		}
	} else {
		fmt.Println("Pending:  none")
	}
	if report.SchemaEdited {
		fmt.Println("Schema file edited since last pull/push.")
	}
	if report.DatabaseDrifted {
		fmt.Printf("Database differs from schema file: %s\n", report.Changes)
	} else {
		fmt.Println("Database matches the schema file.")
	}
	return nil
}
