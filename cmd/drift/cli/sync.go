package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/driftsql/drift/internal/apply"
	"github.com/driftsql/drift/internal/migration"
	"github.com/driftsql/drift/internal/snapshot"
)

func newSyncCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Adopt the live database state as the baseline",
		Long: `Re-baseline the repository against an already-migrated database: take a
fresh snapshot of the live schema and mark every local migration file as
applied without running it. Useful when adopting drift on an existing
database or after restoring one from a dump.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSync(cmd)
		},
	}

	return cmd
}

func runSync(cmd *cobra.Command) error {
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

	observed, _, err := introspectLive(ctx, db, cfg)
	if err != nil {
		return err
	}

	if err := snapshotStore(cfg).Save(&snapshot.Snapshot{
		Dialect: db.Dialect.Name,
		TakenAt: time.Now().UTC(),
		Schema:  observed,
	}); err != nil {
		return err
	}

	migrations, err := migration.LoadDir(cfg.MigrationsPath())
	if err != nil {
		return err
	}

	ex := newExecutor(db, cfg)
	if err := ex.EnsureTrackingTable(ctx); err != nil {
		return err
	}
	applied, err := ex.Applied(ctx)
	if err != nil {
		return err
	}
	appliedFiles := make(map[string]bool, len(applied))
	for _, e := range applied {
		appliedFiles[e.Filename] = true
	}

	adopted := 0
	for _, m := range migrations {
		if appliedFiles[m.Filename] {
			continue
		}
		if err := ex.MarkApplied(ctx, apply.Request{
			Name:     m.Name,
			Filename: m.Filename,
			Hash:     m.Hash,
			Up:       m.Up,
			Down:     m.Down,
			Source:   apply.SourceMigrate,
		}); err != nil {
			return err
		}
		adopted++
	}

	if jsonOutput {
		return printJSON(map[string]any{"tables": len(observed.Tables), "adopted": adopted})
	}
	fmt.Printf("Snapshot updated (%d tables); %d migrations marked applied\n", len(observed.Tables), adopted)
	return nil
}
