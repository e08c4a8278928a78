package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/driftsql/drift/internal/apply"
	"github.com/driftsql/drift/internal/ddl"
	"github.com/driftsql/drift/internal/diff"
	"github.com/driftsql/drift/internal/drifterr"
	"github.com/driftsql/drift/internal/snapshot"
	"github.com/driftsql/drift/internal/validate"
)

func newPushCmd() *cobra.Command {
	var (
		dryRun bool
		force  bool
	)

	cmd := &cobra.Command{
		Use:   "push",
		Short: "Apply the schema file to the database",
		Long: `Diff the authored schema file against the live database, generate DDL
for the target dialect, validate it, and apply it. Destructive changes
require confirmation unless --force or apply.allow_destructive is set.
A restore point with the reverse DDL is recorded in the tracking table.`,
		Example: `  drift push
  drift push --dry-run   # print the DDL without applying
  drift push --force -y  # non-interactive, destructive changes allowed`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPush(cmd, dryRun, force)
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "print the generated DDL and exit without applying")
	cmd.Flags().BoolVar(&force, "force", false, "apply destructive changes without confirmation")

	return cmd
}

func runPush(cmd *cobra.Command, dryRun, force bool) error {
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

	res := validate.Check(desired.Schema, script.Up, db.Dialect, validate.Options{Transform: cfg.Apply.Transform})
	printIssues(res)
	if !res.Valid {
		return drifterr.New(drifterr.DialectIncompatibility,
			"%d statements are incompatible with %s", len(res.Errors), db.Dialect.Name)
	}

	if dryRun {
		fmt.Println(ddl.Render(script.Up))
		return nil
	}

	if destructive := sd.DestructiveChanges(); len(destructive) > 0 && !force && !cfg.Apply.AllowDestructive {
		fmt.Println("Destructive changes:")
		for _, d := range destructive {
			fmt.Printf("  - %s %s: %s\n", d.Kind, d.Object, d.Description)
		}
		if !confirm("Apply anyway?") {
			return drifterr.New(drifterr.Destructive,
				"destructive changes not confirmed; re-run with --force to apply them")
		}
	}

	ex := newExecutor(db, cfg)
	result, err := ex.Apply(ctx, apply.Request{
		Name:   pushName(),
		Hash:   desired.Hash,
		Up:     script.Up,
		Down:   script.Down,
		Source: apply.SourcePush,
	})
	if err != nil {
		return err
	}

	if err := snapshotStore(cfg).Save(&snapshot.Snapshot{
		Dialect:    db.Dialect.Name,
		TakenAt:    time.Now().UTC(),
		SourceHash: desired.Hash,
		Schema:     desired.Schema,
	}); err != nil {
		result.Warnings = append(result.Warnings, fmt.Sprintf("snapshot not updated: %v", err))
	}

	if jsonOutput {
		return printJSON(result)
	}
	fmt.Printf("Applied %d statements (batch %d)\n", result.Statements, result.Batch)
	for _, w := range result.Warnings {
		fmt.Printf("  warning: %s\n", w)
	}
	return nil
}

// pushName labels the restore point for a declarative apply.
func pushName() string {
	return "push_" + time.Now().UTC().Format("20060102150405")
}

func printIssues(res *validate.Result) {
	for _, issue := range res.Errors {
		fmt.Printf("error: %s\n", issue)
	}
	for _, issue := range res.Warnings {
		fmt.Printf("warning: %s\n", issue)
	}
	if len(res.Skipped) > 0 {
		fmt.Printf("transform skipped %d statements:\n", len(res.Skipped))
		for _, s := range res.Skipped {
			fmt.Printf("  - %s\n", strings.SplitN(s, "\n", 2)[0])
		}
	}
}
