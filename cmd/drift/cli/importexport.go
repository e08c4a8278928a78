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
	"github.com/driftsql/drift/internal/schema"
)

func newImportCmd() *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "import <file.sql>...",
		Short: "Import raw SQL files as migrations",
		Long: `Copy existing SQL files into the migrations directory under drift's
naming scheme. Files without -- UP / -- DOWN markers are treated as
up-only; their statements are split at top-level semicolons.`,
		Args: cobra.MinimumNArgs(1),
		Example: `  drift import legacy/001-schema.sql
  drift import dump.sql --name baseline`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(args, name)
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "migration name (defaults to the source filename)")

	return cmd
}

func runImport(paths []string, name string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	dir := cfg.MigrationsPath()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	for _, path := range paths {
		body, err := os.ReadFile(path)
		if err != nil {
			return err
		}

		var up, down []string
		if m, err := migration.Parse(filepath.Base(path), body); err == nil {
			up, down = m.Up, m.Down
		} else {
			up = migration.Split(string(body))
		}
		if len(up) == 0 {
			return fmt.Errorf("%s contains no statements", path)
		}

		migName := name
		if migName == "" {
			base := filepath.Base(path)
			migName = base[:len(base)-len(filepath.Ext(base))]
		}
		existing, err := migrationFilenames(dir)
		if err != nil {
			return err
		}
		filename := migration.NewFilename(migration.NamingScheme(cfg.Migrations.Naming), migName, existing, time.Now())
		if err := os.WriteFile(filepath.Join(dir, filename), migration.Render(up, down), 0o644); err != nil {
			return err
		}
		fmt.Printf("Imported %s as %s (%d statements)\n", path, filename, len(up))
	}
	return nil
}

func newExportCmd() *cobra.Command {
	var (
		output string
		live   bool
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the schema as a CREATE script",
		Long: `Render the full schema as dialect-specific CREATE statements, the DDL
drift would run against an empty database. By default the authored schema
file is exported; --live exports the introspected database instead.`,
		Example: `  drift export > schema.sql
  drift export --live -o observed.sql`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(cmd, output, live)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "write to a file instead of stdout")
	cmd.Flags().BoolVar(&live, "live", false, "export the live database instead of the schema file")

	return cmd
}

func runExport(cmd *cobra.Command, output string, live bool) error {
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

	var target *schema.Schema
	if live {
		observed, _, err := introspectLive(ctx, db, cfg)
		if err != nil {
			return err
		}
		target = observed
	} else {
		desired, err := loadDesired(cfg)
		if err != nil {
			return err
		}
		target = desired.Schema
	}

	empty := &schema.Schema{}
	script, err := ddl.Generate(diff.Compute(empty, target), db.Dialect)
	if err != nil {
		return err
	}
	rendered := ddl.Render(script.Up) + "\n"

	if output != "" {
		if err := os.WriteFile(output, []byte(rendered), 0o644); err != nil {
			return err
		}
		fmt.Printf("Wrote %s (%d statements)\n", output, len(script.Up))
		return nil
	}
	fmt.Print(rendered)
	return nil
}
