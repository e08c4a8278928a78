package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/driftsql/drift/internal/apply"
	"github.com/driftsql/drift/internal/migration"
)

func newMigrateCmd() *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending migration files",
		Long: `Apply every migration file in the migrations directory that has no row
in the tracking table yet, in filename order. Each file is applied and
recorded separately so a failure leaves earlier files applied.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrate(cmd, dryRun)
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "list pending migrations without applying")

	return cmd
}

func runMigrate(cmd *cobra.Command, dryRun bool) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	migrations, err := migration.LoadDir(cfg.MigrationsPath())
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	db, err := openDB(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	ex := newExecutor(db, cfg)
	applied, err := ex.Applied(ctx)
	if err != nil {
		return err
	}
	appliedFiles := make(map[string]bool, len(applied))
	for _, e := range applied {
		appliedFiles[e.Filename] = true
	}

	var pending []*migration.Migration
	for _, m := range migrations {
		if !appliedFiles[m.Filename] {
			pending = append(pending, m)
		}
	}
	if len(pending) == 0 {
		fmt.Println("Nothing to migrate.")
		return nil
	}

	if dryRun {
		if jsonOutput {
			names := make([]string, len(pending))
			for i, m := range pending {
				names[i] = m.Filename
			}
			return printJSON(map[string]any{"pending": names})
		}
		fmt.Printf("%d pending:\n", len(pending))
		for _, m := range pending {
			fmt.Printf("  %s (%d statements)\n", m.Filename, len(m.Up))
		}
		return nil
	}

	// All files applied in one run share a batch; the first apply allocates
	// the number.
	batch := 0
	for _, m := range pending {
		res, err := ex.Apply(ctx, apply.Request{
			Name:     m.Name,
			Filename: m.Filename,
			Hash:     m.Hash,
			Up:       m.Up,
			Down:     m.Down,
			Source:   apply.SourceMigrate,
			Batch:    batch,
		})
		if err != nil {
			return fmt.Errorf("apply %s: %w", m.Filename, err)
		}
		if batch == 0 {
			batch = res.Batch
		}
		fmt.Printf("Applied %s (batch %d, %d statements)\n", m.Filename, res.Batch, res.Statements)
		for _, w := range res.Warnings {
			fmt.Printf("  warning: %s\n", w)
		}
	}
	return nil
}
