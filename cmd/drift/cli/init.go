package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/driftsql/drift/internal/config"
)

func newInitCmd() *cobra.Command {
	var url string

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize a drift repository",
		Long: `Create the .drift state directory and a default drift.yaml in the
current directory (or --dir). The database URL can also be supplied later
via drift.yaml or the DRIFT_URL environment variable.`,
		Example: `  drift init --url "postgres://app@localhost/app"
  drift init  # configure the URL later`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(url)
		},
	}

	cmd.Flags().StringVar(&url, "url", "", "database connection URL")

	return cmd
}

func runInit(url string) error {
	cfg, err := config.Init(rootDir, url)
	if err != nil {
		return err
	}
	if jsonOutput {
		return printJSON(map[string]string{
			"root":        cfg.Root,
			"config":      config.FileName,
			"state_dir":   config.StateDir,
			"schema_file": cfg.SchemaFile,
		})
	}
	fmt.Printf("Initialized drift repository in %s\n", cfg.Root)
	fmt.Printf("  config:     %s\n", config.FileName)
	fmt.Printf("  state:      %s/\n", config.StateDir)
	fmt.Printf("  schema:     %s (created on first pull)\n", cfg.SchemaFile)
	fmt.Printf("  migrations: %s/\n", cfg.Migrations.Dir)
	return nil
}
