package cli

import (
	"github.com/spf13/cobra"
)

var (
	rootDir    string
	jsonOutput bool
	assumeYes  bool
)

// Execute creates the root command tree and runs it.
func Execute(version, commit, date string) error {
	rootCmd := newRootCmd(version, commit, date)
	return rootCmd.Execute()
}

func newRootCmd(version, commit, date string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "drift",
		Short: "Declarative schema management for SQL databases",
		Long: `Drift keeps a database schema in sync with a declarative schema file.

It introspects the live database, diffs it against the authored schema,
generates forward and reverse DDL for the target dialect, validates the
DDL against that dialect's capabilities, and applies it with restore
points recorded in a tracking table.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVarP(&rootDir, "dir", "C", ".", "repository root (where drift.yaml lives)")
	cmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "machine-readable JSON output")
	cmd.PersistentFlags().BoolVarP(&assumeYes, "yes", "y", false, "answer yes to all confirmation prompts")

	cmd.AddCommand(newInitCmd())
	cmd.AddCommand(newPullCmd())
	cmd.AddCommand(newPushCmd())
	cmd.AddCommand(newDiffCmd())
	cmd.AddCommand(newGenerateCmd())
	cmd.AddCommand(newMigrateCmd())
	cmd.AddCommand(newRollbackCmd())
	cmd.AddCommand(newSyncCmd())
	cmd.AddCommand(newImportCmd())
	cmd.AddCommand(newExportCmd())
	cmd.AddCommand(newStatusCmd())
	cmd.AddCommand(newValidateCmd())
	cmd.AddCommand(newSeedCmd())
	cmd.AddCommand(newIntrospectCmd())
	cmd.AddCommand(newVersionCmd(version, commit, date))

	return cmd
}
