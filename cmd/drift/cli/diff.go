package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/driftsql/drift/internal/ddl"
	"github.com/driftsql/drift/internal/diff"
)

func newDiffCmd() *cobra.Command {
	var showSQL bool

	cmd := &cobra.Command{
		Use:   "diff",
		Short: "Show differences between the schema file and the database",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDiff(cmd, showSQL)
		},
	}

	cmd.Flags().BoolVar(&showSQL, "sql", false, "print the DDL that push would run")

	return cmd
}

func runDiff(cmd *cobra.Command, showSQL bool) error {
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
	if jsonOutput {
		return printJSON(sd)
	}
	if sd.Empty() {
		fmt.Println("No changes.")
		return nil
	}
	fmt.Println(sd.Summary())

	if destructive := sd.DestructiveChanges(); len(destructive) > 0 {
		fmt.Println("\nDestructive:")
		for _, d := range destructive {
			fmt.Printf("  - %s %s: %s\n", d.Kind, d.Object, d.Description)
		}
	}

	if showSQL {
		script, err := ddl.Generate(sd, db.Dialect)
		if err != nil {
			return err
		}
		fmt.Println()
		fmt.Println(ddl.Render(script.Up))
	}
	return nil
}
