package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/driftsql/drift/internal/ddl"
	"github.com/driftsql/drift/internal/dialect"
	"github.com/driftsql/drift/internal/diff"
	"github.com/driftsql/drift/internal/drifterr"
	"github.com/driftsql/drift/internal/schema"
	"github.com/driftsql/drift/internal/validate"
)

func newValidateCmd() *cobra.Command {
	var (
		targetDialect string
		transform     bool
	)

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check the schema file against a dialect",
		Long: `Validate the authored schema and its CREATE script against the target
dialect's capability matrix without touching the database. --dialect
checks portability to a different dialect; --transform additionally
prints a best-effort rewrite for MySQL- and SQLite-family targets.`,
		Example: `  drift validate
  drift validate --dialect planetscale
  drift validate --dialect sqlite --transform`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(targetDialect, transform)
		},
	}

	cmd.Flags().StringVar(&targetDialect, "dialect", "", "dialect to validate against (defaults to the configured one)")
	cmd.Flags().BoolVar(&transform, "transform", false, "print a best-effort rewrite for the target dialect")

	return cmd
}

func runValidate(targetDialect string, transform bool) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	desired, err := loadDesired(cfg)
	if err != nil {
		return err
	}

	var d *dialect.Dialect
	if targetDialect != "" {
		d, err = dialect.Get(targetDialect)
	} else {
		d, err = cfg.ResolveDialect()
	}
	if err != nil {
		return err
	}

	empty := &schema.Schema{}
	script, err := ddl.Generate(diff.Compute(empty, desired.Schema), d)
	if err != nil {
		return err
	}

	res := validate.Check(desired.Schema, script.Up, d, validate.Options{Transform: transform})
	if jsonOutput {
		return printJSON(res)
	}
	printIssues(res)
	if transform && len(res.TransformedSQL) > 0 {
		fmt.Println(ddl.Render(res.TransformedSQL))
	}
	if !res.Valid {
		return drifterr.New(drifterr.DialectIncompatibility,
			"schema is not compatible with %s (%d errors)", d.Name, len(res.Errors))
	}
	fmt.Printf("Schema is compatible with %s.\n", d.Name)
	return nil
}
