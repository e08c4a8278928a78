// Package sqlite reads sqlite_master and the table pragmas into the
// canonical schema model. Serves both the local sqlite dialect and, when a
// handle is available, the libsql variant.
package sqlite

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/driftsql/drift/internal/conn"
	"github.com/driftsql/drift/internal/introspect"
	"github.com/driftsql/drift/internal/schema"
)

type masterRow struct {
	Name string  `db:"name"`
	SQL  *string `db:"sql"`
}

type columnInfoRow struct {
	CID     int     `db:"cid"`
	Name    string  `db:"name"`
	Type    string  `db:"type"`
	NotNull int     `db:"notnull"`
	Default *string `db:"dflt_value"`
	PK      int     `db:"pk"`
}

type indexListRow struct {
	Seq     int    `db:"seq"`
	Name    string `db:"name"`
	Unique  int    `db:"unique"`
	Origin  string `db:"origin"`
	Partial int    `db:"partial"`
}

type indexInfoRow struct {
	SeqNo int     `db:"seqno"`
	CID   int     `db:"cid"`
	Name  *string `db:"name"`
}

type fkListRow struct {
	ID       int    `db:"id"`
	Seq      int    `db:"seq"`
	Table    string `db:"table"`
	From     string `db:"from"`
	To       string `db:"to"`
	OnUpdate string `db:"on_update"`
	OnDelete string `db:"on_delete"`
	Match    string `db:"match"`
}

// Introspect reads the database into a canonical schema.
func Introspect(ctx context.Context, db *conn.DB, opts introspect.Options) (*introspect.Result, error) {
	ix := &introspector{db: db, opts: opts, out: &schema.Schema{}}

	opts.Report(introspect.StepTables)
	tables, err := ix.tables(ctx)
	if err != nil {
		return nil, fmt.Errorf("introspect tables: %w", err)
	}

	for _, name := range tables {
		opts.Report(introspect.StepColumns)
		t := schema.Table{Name: name}
		if err := ix.columns(ctx, &t); err != nil {
			return nil, fmt.Errorf("introspect columns for %q: %w", name, err)
		}
		opts.Report(introspect.StepIndexes)
		if err := ix.indexes(ctx, &t); err != nil {
			return nil, fmt.Errorf("introspect indexes for %q: %w", name, err)
		}
		opts.Report(introspect.StepConstraints)
		if err := ix.foreignKeys(ctx, &t); err != nil {
			return nil, fmt.Errorf("introspect foreign keys for %q: %w", name, err)
		}
		ix.out.Tables = append(ix.out.Tables, t)
	}

	if opts.IncludeViews {
		opts.Report(introspect.StepViews)
		if err := ix.views(ctx); err != nil {
			return nil, fmt.Errorf("introspect views: %w", err)
		}
	}

	if opts.IncludeTriggers {
		opts.Report(introspect.StepTriggers)
		if err := ix.triggers(ctx); err != nil {
			return nil, fmt.Errorf("introspect triggers: %w", err)
		}
	}

	// Functions, enums, sequences, and the rest of the postgres surface do
	// not exist here; report them as skipped so callers see a full account.
	for _, step := range []introspect.Step{
		introspect.StepEnums, introspect.StepDomains, introspect.StepSequences,
		introspect.StepFunctions, introspect.StepCompositeTypes,
	} {
		ix.skipped = append(ix.skipped, introspect.SkippedStep{
			Step: step, Reason: "not supported by sqlite",
		})
	}

	ix.finish()
	return &introspect.Result{Schema: ix.out, Skipped: ix.skipped}, nil
}

type introspector struct {
	db      *conn.DB
	opts    introspect.Options
	out     *schema.Schema
	skipped []introspect.SkippedStep
}

func (ix *introspector) excluded(table string) bool {
	for _, pattern := range ix.opts.ExcludePatterns {
		if globMatch(strings.ToLower(pattern), strings.ToLower(table)) {
			return true
		}
	}
	return false
}

func globMatch(p, s string) bool {
	for len(p) > 0 {
		switch p[0] {
		case '*':
			for i := 0; i <= len(s); i++ {
				if globMatch(p[1:], s[i:]) {
					return true
				}
			}
			return false
		case '?':
			if s == "" {
				return false
			}
			p, s = p[1:], s[1:]
		default:
			if s == "" || p[0] != s[0] {
				return false
			}
			p, s = p[1:], s[1:]
		}
	}
	return s == ""
}

func (ix *introspector) tables(ctx context.Context) ([]string, error) {
	const query = `SELECT name, sql FROM sqlite_master
		WHERE type = 'table' AND name NOT LIKE 'sqlite_%'
		ORDER BY name`

	var rows []masterRow
	if err := ix.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, err
	}

	names := make([]string, 0, len(rows))
	for _, r := range rows {
		if !ix.excluded(r.Name) {
			names = append(names, r.Name)
		}
	}
	return names, nil
}

func (ix *introspector) columns(ctx context.Context, t *schema.Table) error {
	var rows []columnInfoRow
	if err := ix.db.SelectContext(ctx, &rows, "PRAGMA table_info("+quote(t.Name)+")"); err != nil {
		return err
	}

	var pkCols []string
	for _, r := range rows {
		col := schema.Column{
			Name:     r.Name,
			Ordinal:  r.CID + 1,
			Nullable: r.NotNull == 0,
			Default:  r.Default,
		}
		col = schema.CanonicalColumn(col, r.Type)
		if r.PK > 0 {
			col.IsPrimaryKey = true
			// INTEGER PRIMARY KEY is the rowid alias and auto-assigns.
			if col.Type == "integer" {
				col.Identity = "by_default"
			}
			pkCols = append(pkCols, r.Name)
		}
		t.Columns = append(t.Columns, col)
	}

	if len(pkCols) > 0 {
		t.Constraints = append(t.Constraints, schema.Constraint{
			Name:    t.Name + "_pkey",
			Kind:    schema.PrimaryKey,
			Columns: pkCols,
		})
	}
	return nil
}

func (ix *introspector) indexes(ctx context.Context, t *schema.Table) error {
	var list []indexListRow
	if err := ix.db.SelectContext(ctx, &list, "PRAGMA index_list("+quote(t.Name)+")"); err != nil {
		return err
	}

	for _, il := range list {
		// "c" = CREATE INDEX; "u"/"pk" back unique and primary key
		// constraints and are owned by those, not listed separately.
		if il.Origin != "c" {
			if il.Origin == "u" {
				var info []indexInfoRow
				if err := ix.db.SelectContext(ctx, &info, "PRAGMA index_info("+quote(il.Name)+")"); err != nil {
					return err
				}
				cols := columnNames(info)
				t.Constraints = append(t.Constraints, schema.Constraint{
					Name:    il.Name,
					Kind:    schema.Unique,
					Columns: cols,
				})
				if len(cols) == 1 {
					if c := t.FindColumn(cols[0]); c != nil {
						c.IsUnique = true
					}
				}
			}
			continue
		}

		var info []indexInfoRow
		if err := ix.db.SelectContext(ctx, &info, "PRAGMA index_info("+quote(il.Name)+")"); err != nil {
			return err
		}
		t.Indexes = append(t.Indexes, schema.Index{
			Name:     il.Name,
			Columns:  columnNames(info),
			IsUnique: il.Unique == 1,
			Method:   "btree",
		})
	}
	return nil
}

func columnNames(info []indexInfoRow) []string {
	sort.Slice(info, func(i, j int) bool { return info[i].SeqNo < info[j].SeqNo })
	var cols []string
	for _, r := range info {
		if r.Name != nil {
			cols = append(cols, *r.Name)
		}
	}
	return cols
}

func (ix *introspector) foreignKeys(ctx context.Context, t *schema.Table) error {
	var rows []fkListRow
	if err := ix.db.SelectContext(ctx, &rows, "PRAGMA foreign_key_list("+quote(t.Name)+")"); err != nil {
		return err
	}

	// Rows arrive one per column, grouped by id.
	byID := make(map[int]*schema.Constraint)
	var order []int
	for _, r := range rows {
		if c, ok := byID[r.ID]; ok {
			c.Columns = append(c.Columns, r.From)
			c.ReferencedColumns = append(c.ReferencedColumns, r.To)
			continue
		}
		byID[r.ID] = &schema.Constraint{
			Name:              fmt.Sprintf("%s_fk_%d", t.Name, r.ID),
			Kind:              schema.ForeignKey,
			Columns:           []string{r.From},
			ReferencedTable:   r.Table,
			ReferencedColumns: []string{r.To},
			OnDelete:          r.OnDelete,
			OnUpdate:          r.OnUpdate,
		}
		order = append(order, r.ID)
	}
	sort.Ints(order)
	for _, id := range order {
		t.Constraints = append(t.Constraints, *byID[id])
	}
	return nil
}

func (ix *introspector) views(ctx context.Context) error {
	const query = `SELECT name, sql FROM sqlite_master
		WHERE type = 'view' ORDER BY name`

	var rows []masterRow
	if err := ix.db.SelectContext(ctx, &rows, query); err != nil {
		return err
	}
	for _, r := range rows {
		def := ""
		if r.SQL != nil {
			// sqlite_master stores the full CREATE VIEW statement; keep
			// only the select body.
			def = *r.SQL
			if i := strings.Index(strings.ToUpper(def), " AS "); i > 0 {
				def = strings.TrimSpace(def[i+4:])
			}
		}
		ix.out.Views = append(ix.out.Views, schema.View{Name: r.Name, Definition: def})
	}
	return nil
}

func (ix *introspector) triggers(ctx context.Context) error {
	const query = `SELECT name, tbl_name AS table_name, sql FROM sqlite_master
		WHERE type = 'trigger' ORDER BY name`

	type triggerRow struct {
		Name  string  `db:"name"`
		Table string  `db:"table_name"`
		SQL   *string `db:"sql"`
	}

	var rows []triggerRow
	if err := ix.db.SelectContext(ctx, &rows, query); err != nil {
		return err
	}
	for _, r := range rows {
		tr := schema.Trigger{Name: r.Name, Table: r.Table, ForEach: "ROW"}
		if r.SQL != nil {
			tr.Timing, tr.Events = parseTriggerHead(*r.SQL)
			tr.Function = *r.SQL
		}
		ix.out.Triggers = append(ix.out.Triggers, tr)
	}
	return nil
}

// parseTriggerHead extracts timing and events from a CREATE TRIGGER
// statement. SQLite keeps only the raw SQL, so this is best-effort.
func parseTriggerHead(sql string) (timing string, events []string) {
	upper := strings.ToUpper(sql)
	switch {
	case strings.Contains(upper, "INSTEAD OF"):
		timing = "INSTEAD_OF"
	case strings.Contains(upper, " BEFORE "):
		timing = "BEFORE"
	default:
		timing = "AFTER"
	}
	for _, ev := range []string{"INSERT", "UPDATE", "DELETE"} {
		if strings.Contains(upper, ev) {
			events = append(events, ev)
		}
	}
	return timing, events
}

func (ix *introspector) finish() {
	sort.Slice(ix.out.Tables, func(i, j int) bool { return ix.out.Tables[i].Name < ix.out.Tables[j].Name })
	for i := range ix.out.Tables {
		t := &ix.out.Tables[i]
		sort.Slice(t.Indexes, func(a, b int) bool { return t.Indexes[a].Name < t.Indexes[b].Name })
		sort.Slice(t.Constraints, func(a, b int) bool { return t.Constraints[a].Name < t.Constraints[b].Name })
	}
}

func quote(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
