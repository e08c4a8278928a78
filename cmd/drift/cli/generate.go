package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/driftsql/drift/internal/ddl"
	"github.com/driftsql/drift/internal/diff"
	"github.com/driftsql/drift/internal/migration"
)

func newGenerateCmd() *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:     "generate",
		Aliases: []string{"gen"},
		Short:   "Write the pending changes to a migration file",
		Long: `Diff the schema file against the database and write the resulting DDL
to a new migration file instead of applying it. The file carries both the
forward and reverse statements and is applied later with drift migrate.`,
		Example: `  drift generate --name add_orders_table`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerate(cmd, name)
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "migration name (defaults to a diff summary slug)")

	return cmd
}

func runGenerate(cmd *cobra.Command, name string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	desired, err := loadDesired(cfg)
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

	sd := diff.Compute(observed, desired.Schema)
	if sd.Empty() {
		fmt.Println("No changes.")
		return nil
	}
	script, err := ddl.Generate(sd, db.Dialect)
	if err != nil {
		return err
	}

	if name == "" {
		name = sd.Summary()
	}

	dir := cfg.MigrationsPath()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	existing, err := migrationFilenames(dir)
	if err != nil {
		return err
	}
	filename := migration.NewFilename(migration.NamingScheme(cfg.Migrations.Naming), name, existing, time.Now())
	body := migration.Render(script.Up, script.Down)
	path := filepath.Join(dir, filename)
	if err := os.WriteFile(path, body, 0o644); err != nil {
		return err
	}

	if jsonOutput {
		return printJSON(map[string]any{
			"filename":   filename,
			"statements": len(script.Up),
		})
	}
	fmt.Printf("Wrote %s (%d statements)\n", filepath.Join(cfg.Migrations.Dir, filename), len(script.Up))
	return nil
}

func migrationFilenames(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".sql" {
			names = append(names, e.Name())
		}
	}
	return names, nil
}
