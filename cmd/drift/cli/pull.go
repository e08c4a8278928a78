package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/driftsql/drift/internal/schema"
	"github.com/driftsql/drift/internal/snapshot"
	"github.com/driftsql/drift/internal/sourceloader"
)

func newPullCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pull",
		Short: "Write the live database schema to the schema file",
		Long: `Introspect the target database and write its schema to the authored
schema file. Objects keep their tracking ids across pulls so later renames
can be detected; newly observed objects get fresh ids. The snapshot is
updated to match.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPull(cmd)
		},
	}

	return cmd
}

func runPull(cmd *cobra.Command) error {
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

	observed, skipped, err := introspectLive(ctx, db, cfg)
	if err != nil {
		return err
	}

	// Carry tracking ids over from the previous pull; the snapshot is the
	// authority, the schema file the fallback for repos that predate it.
	store := snapshotStore(cfg)
	var prev *schema.Schema
	if snap, err := store.Load(); err == nil && snap != nil {
		prev = snap.Schema
	} else if src, err := sourceloader.Load(cfg.SchemaPath()); err == nil {
		prev = src.Schema
	}
	sourceloader.AssignTrackingIDs(observed, prev)

	hash, err := sourceloader.Save(cfg.SchemaPath(), observed)
	if err != nil {
		return err
	}
	if err := store.Save(&snapshot.Snapshot{
		Dialect:    db.Dialect.Name,
		TakenAt:    time.Now().UTC(),
		SourceHash: hash,
		Schema:     observed,
	}); err != nil {
		return err
	}

	if jsonOutput {
		return printJSON(map[string]any{
			"schema_file": cfg.SchemaFile,
			"tables":      len(observed.Tables),
			"skipped":     skipped,
		})
	}
	fmt.Printf("Pulled %d tables into %s\n", len(observed.Tables), cfg.SchemaFile)
	for _, s := range skipped {
		fmt.Printf("  skipped %s: %s\n", s.Step, s.Reason)
	}
	return nil
}
