package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newIntrospectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "introspect",
		Short: "Print the live database schema as JSON",
		Long: `Introspect the target database and print the canonical schema as JSON
without writing the schema file or the snapshot. The ignore list applies,
so the output matches what diff and push would see.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIntrospect(cmd)
		},
	}

	return cmd
}

func runIntrospect(cmd *cobra.Command) error {
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
	for _, s := range skipped {
		fmt.Fprintf(cmd.ErrOrStderr(), "skipped %s: %s\n", s.Step, s.Reason)
	}
	return printJSON(observed)
}
