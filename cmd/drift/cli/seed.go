package cli

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/driftsql/drift/internal/conn"
	"github.com/driftsql/drift/internal/ddl"
	"github.com/driftsql/drift/internal/migration"
	"github.com/driftsql/drift/internal/schema"
)

func newSeedCmd() *cobra.Command {
	var (
		rows   int
		tables []string
		file   string
	)

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Insert synthetic rows for development",
		Long: `Generate and insert synthetic rows for every table in the schema file.
Tables are filled in foreign-key dependency order so references resolve;
identity and generated columns are left to the database. With --file, a
plain SQL file is executed instead, inside a transaction when the dialect
supports one.`,
		Example: `  drift seed --rows 50
  drift seed --table users --table orders
  drift seed --file testdata/fixtures.sql`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if file != "" {
				return runSeedFile(cmd, file)
			}
			return runSeed(cmd, rows, tables)
		},
	}

	cmd.Flags().IntVar(&rows, "rows", 10, "rows to insert per table")
	cmd.Flags().StringArrayVar(&tables, "table", nil, "seed only these tables (repeatable)")
	cmd.Flags().StringVar(&file, "file", "", "execute this SQL file instead of generating rows")

	return cmd
}

func runSeed(cmd *cobra.Command, rows int, only []string) error {
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

	wanted := make(map[string]bool, len(only))
	for _, name := range only {
		wanted[name] = true
	}

	seeder := &seeder{db: db, rows: rows, values: make(map[string][]any)}
	total := 0
	for _, t := range seedOrder(desired.Schema) {
		if len(wanted) > 0 && !wanted[t.Name] {
			continue
		}
		n, err := seeder.fill(ctx, desired.Schema, t)
		if err != nil {
			return fmt.Errorf("seed %s: %w", t.Name, err)
		}
		total += n
	}

	if jsonOutput {
		return printJSON(map[string]int{"rows": total})
	}
	fmt.Printf("Inserted %d rows\n", total)
	return nil
}

func runSeedFile(cmd *cobra.Command, path string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	body, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	stmts := migration.Split(string(body))

	ctx := cmd.Context()
	db, err := openDB(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	run := func(ex interface {
		ExecContext(context.Context, string, ...any) (sql.Result, error)
	}) (int, error) {
		n := 0
		for _, stmt := range stmts {
			if strings.HasPrefix(strings.TrimSpace(stmt), "--") {
				continue
			}
			if _, err := ex.ExecContext(ctx, stmt); err != nil {
				return n, fmt.Errorf("statement %d: %w", n+1, err)
			}
			n++
		}
		return n, nil
	}

	var executed int
	if db.Dialect.TransactionalDDL {
		tx, err := db.BeginTxx(ctx, nil)
		if err != nil {
			return err
		}
		if executed, err = run(tx); err != nil {
			tx.Rollback()
			return err
		}
		if err := tx.Commit(); err != nil {
			return err
		}
	} else {
		if executed, err = run(db); err != nil {
			return err
		}
	}

	if jsonOutput {
		return printJSON(map[string]int{"statements": executed})
	}
	fmt.Printf("Executed %d statements from %s\n", executed, path)
	return nil
}

// seedOrder sorts tables so that referenced tables come before their
// referrers. Cycles fall back to declaration order.
func seedOrder(s *schema.Schema) []*schema.Table {
	deps := make(map[string][]string)
	for i := range s.Tables {
		t := &s.Tables[i]
		for _, c := range t.Constraints {
			if c.Kind == schema.ForeignKey && c.ReferencedTable != t.Name {
				deps[t.Name] = append(deps[t.Name], c.ReferencedTable)
			}
		}
	}

	var out []*schema.Table
	done := make(map[string]bool)
	var visit func(name string, path map[string]bool)
	visit = func(name string, path map[string]bool) {
		if done[name] || path[name] {
			return
		}
		path[name] = true
		for _, dep := range deps[name] {
			visit(dep, path)
		}
		delete(path, name)
		if t := s.FindTable(name); t != nil {
			done[name] = true
			out = append(out, t)
		}
	}
	for i := range s.Tables {
		visit(s.Tables[i].Name, map[string]bool{})
	}
	return out
}

type seeder struct {
	db   *conn.DB
	rows int
	// values remembers what went into each table.column, keyed
	// "table.column", so foreign keys can reference seeded rows.
	values map[string][]any
}

func (sd *seeder) fill(ctx context.Context, s *schema.Schema, t *schema.Table) (int, error) {
	fkSource := make(map[string]string) // local column -> referenced table.column
	for _, c := range t.Constraints {
		if c.Kind == schema.ForeignKey {
			for i, col := range c.Columns {
				if i < len(c.ReferencedColumns) {
					fkSource[col] = c.ReferencedTable + "." + c.ReferencedColumns[i]
				}
			}
		}
	}

	var cols []*schema.Column
	for i := range t.Columns {
		c := &t.Columns[i]
		if c.Identity != "" || c.Generated != nil {
			continue
		}
		cols = append(cols, c)
	}
	if len(cols) == 0 {
		return 0, nil
	}

	d := sd.db.Dialect
	names := make([]string, len(cols))
	placeholders := make([]string, len(cols))
	for i, c := range cols {
		names[i] = ddl.Quote(d, c.Name)
		placeholders[i] = d.Placeholder(i + 1)
	}
	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		ddl.Quote(d, t.Name), strings.Join(names, ", "), strings.Join(placeholders, ", "))

	inserted := 0
	for row := 0; row < sd.rows; row++ {
		args := make([]any, len(cols))
		for i, c := range cols {
			if src, ok := fkSource[c.Name]; ok {
				pool := sd.values[src]
				if len(pool) == 0 {
					if !c.Nullable {
						return inserted, fmt.Errorf("no seeded values for %s referenced by %s.%s", src, t.Name, c.Name)
					}
					args[i] = nil
					continue
				}
				args[i] = pool[row%len(pool)]
				continue
			}
			args[i] = sampleValue(c, row)
		}
		if _, err := sd.db.ExecContext(ctx, query, args...); err != nil {
			return inserted, err
		}
		for i, c := range cols {
			sd.values[t.Name+"."+c.Name] = append(sd.values[t.Name+"."+c.Name], args[i])
		}
		inserted++
	}
	return inserted, nil
}

// sampleValue synthesizes a value for one column of one row.
func sampleValue(c *schema.Column, row int) any {
	switch strings.ToLower(c.Type) {
	case "uuid":
		return uuid.NewString()
	case "smallint", "integer", "int", "bigint", "serial", "bigserial", "smallserial":
		return row + 1
	case "numeric", "decimal", "real", "double precision", "float":
		return float64(row) + 0.5
	case "boolean", "bool":
		return row%2 == 0
	case "date":
		return time.Now().UTC().AddDate(0, 0, -row).Format("2006-01-02")
	case "timestamp", "timestamp with time zone", "timestamptz", "datetime":
		return time.Now().UTC().Add(-time.Duration(row) * time.Hour).Format(time.RFC3339)
	case "json", "jsonb":
		return fmt.Sprintf(`{"seq": %d}`, row+1)
	case "bytea", "blob":
		return []byte{byte(row)}
	default:
		// text, varchar, char, enums, domains
		return fmt.Sprintf("%s_%d", c.Name, row+1)
	}
}
