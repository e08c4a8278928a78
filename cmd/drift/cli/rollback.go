package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/driftsql/drift/internal/apply"
)

func newRollbackCmd() *cobra.Command {
	var (
		steps     int
		toName    string
		lastBatch bool
	)

	cmd := &cobra.Command{
		Use:   "rollback",
		Short: "Revert applied restore points",
		Long: `Execute the recorded reverse DDL of the most recent restore points,
newest first, and delete their tracking rows. --steps picks how many;
--to reverts everything down to and including the named entry; --batch
reverts the whole most recent batch.`,
		Example: `  drift rollback            # revert the most recent entry
  drift rollback --steps 3
  drift rollback --batch    # revert the last migrate/push run entirely
  drift rollback --to add_orders_table`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRollback(cmd, steps, toName, lastBatch)
		},
	}

	cmd.Flags().IntVar(&steps, "steps", 1, "number of entries to revert")
	cmd.Flags().StringVar(&toName, "to", "", "revert down to and including this entry")
	cmd.Flags().BoolVar(&lastBatch, "batch", false, "revert the entire most recent batch")

	return cmd
}

func runRollback(cmd *cobra.Command, steps int, toName string, lastBatch bool) error {
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

	ex := newExecutor(db, cfg)
	var reverted []apply.Entry
	if lastBatch {
		entries, err := ex.RollbackBatch(ctx)
		if err != nil {
			return err
		}
		reverted = entries
	} else if toName != "" {
		entries, err := ex.RollbackTo(ctx, toName)
		if err != nil {
			return err
		}
		reverted = entries
	} else {
		entries, err := ex.Rollback(ctx, steps)
		if err != nil {
			return err
		}
		reverted = entries
	}

	if len(reverted) == 0 {
		fmt.Println("Nothing to roll back.")
		return nil
	}
	if jsonOutput {
		return printJSON(map[string]any{"reverted": reverted})
	}
	for _, e := range reverted {
		fmt.Printf("Reverted %s (batch %d)\n", e.Name, e.Batch)
	}
	return nil
}
