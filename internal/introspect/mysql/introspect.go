// Package mysql reads the information_schema of a MySQL-family database
// (MySQL, MariaDB, PlanetScale) into the canonical schema model.
package mysql

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/driftsql/drift/internal/conn"
	"github.com/driftsql/drift/internal/introspect"
	"github.com/driftsql/drift/internal/schema"
)

type tableRow struct {
	TableName string  `db:"table_name"`
	Comment   *string `db:"table_comment"`
}

type columnRow struct {
	TableName  string  `db:"table_name"`
	ColumnName string  `db:"column_name"`
	Position   int     `db:"ordinal_position"`
	ColumnType string  `db:"column_type"`
	IsNullable string  `db:"is_nullable"`
	Default    *string `db:"column_default"`
	Extra      string  `db:"extra"`
	ColumnKey  string  `db:"column_key"`
	Comment    *string `db:"column_comment"`
	GenExpr    *string `db:"generation_expression"`
}

type indexRow struct {
	TableName  string `db:"table_name"`
	IndexName  string `db:"index_name"`
	ColumnName string `db:"column_name"`
	SeqInIndex int    `db:"seq_in_index"`
	NonUnique  int    `db:"non_unique"`
	IndexType  string `db:"index_type"`
}

type fkRow struct {
	TableName  string `db:"table_name"`
	Name       string `db:"constraint_name"`
	ColumnName string `db:"column_name"`
	RefTable   string `db:"referenced_table"`
	RefColumn  string `db:"referenced_column"`
	DeleteRule string `db:"delete_rule"`
	UpdateRule string `db:"update_rule"`
}

type checkRow struct {
	TableName string `db:"table_name"`
	Name      string `db:"constraint_name"`
	Clause    string `db:"check_clause"`
}

type routineRow struct {
	Name     string `db:"routine_name"`
	Type     string `db:"routine_type"`
	Returns  string `db:"returns"`
	Body     string `db:"body"`
	IsStrict string `db:"is_deterministic"`
}

type triggerRow struct {
	Name      string `db:"trigger_name"`
	Table     string `db:"event_object_table"`
	Event     string `db:"event_manipulation"`
	Timing    string `db:"action_timing"`
	Statement string `db:"action_statement"`
}

type viewRow struct {
	Name       string `db:"table_name"`
	Definition string `db:"view_definition"`
}

// Introspect reads the information_schema into a canonical schema.
func Introspect(ctx context.Context, db *conn.DB, opts introspect.Options) (*introspect.Result, error) {
	ix := &introspector{db: db, opts: opts, out: &schema.Schema{}}
	caps := db.Dialect.Capabilities

	opts.Report(introspect.StepTables)
	if err := ix.tables(ctx); err != nil {
		return nil, fmt.Errorf("introspect tables: %w", err)
	}

	opts.Report(introspect.StepColumns)
	if err := ix.columns(ctx); err != nil {
		return nil, fmt.Errorf("introspect columns: %w", err)
	}

	opts.Report(introspect.StepIndexes)
	if err := ix.indexes(ctx); err != nil {
		return nil, fmt.Errorf("introspect indexes: %w", err)
	}

	opts.Report(introspect.StepConstraints)
	if err := ix.tolerate(introspect.StepConstraints, caps.ForeignKeys, ix.foreignKeys(ctx)); err != nil {
		return nil, fmt.Errorf("introspect foreign keys: %w", err)
	}

	opts.Report(introspect.StepChecks)
	// CHECK_CONSTRAINTS arrived in MySQL 8.0.16; older servers error here.
	if err := ix.checks(ctx); err != nil {
		ix.skipped = append(ix.skipped, introspect.SkippedStep{
			Step: introspect.StepChecks, Reason: err.Error(),
		})
	}

	if opts.IncludeFunctions {
		opts.Report(introspect.StepFunctions)
		if err := ix.tolerate(introspect.StepFunctions, caps.StoredProcedures, ix.routines(ctx)); err != nil {
			return nil, fmt.Errorf("introspect routines: %w", err)
		}
	}

	if opts.IncludeTriggers {
		opts.Report(introspect.StepTriggers)
		if err := ix.tolerate(introspect.StepTriggers, caps.Triggers, ix.triggers(ctx)); err != nil {
			return nil, fmt.Errorf("introspect triggers: %w", err)
		}
	}

	if opts.IncludeViews {
		opts.Report(introspect.StepViews)
		if err := ix.views(ctx); err != nil {
			return nil, fmt.Errorf("introspect views: %w", err)
		}
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

func (ix *introspector) tolerate(step introspect.Step, supported bool, err error) error {
	if err == nil {
		return nil
	}
	if !supported {
		ix.skipped = append(ix.skipped, introspect.SkippedStep{Step: step, Reason: err.Error()})
		return nil
	}
	return err
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

func (ix *introspector) tables(ctx context.Context) error {
	const query = `SELECT table_name, table_comment
		FROM information_schema.tables
		WHERE table_schema = ? AND table_type = 'BASE TABLE'
		ORDER BY table_name`

	var rows []tableRow
	if err := ix.db.SelectContext(ctx, &rows, query, ix.db.SchemaName); err != nil {
		return err
	}
	for _, r := range rows {
		if ix.excluded(r.TableName) {
			continue
		}
		t := schema.Table{Name: r.TableName, SchemaName: ix.db.SchemaName}
		if r.Comment != nil {
			t.Comment = *r.Comment
		}
		ix.out.Tables = append(ix.out.Tables, t)
	}
	return nil
}

func (ix *introspector) columns(ctx context.Context) error {
	const query = `SELECT
			table_name, column_name, ordinal_position,
			column_type, is_nullable, column_default,
			extra, column_key, column_comment,
			NULLIF(generation_expression, '') AS generation_expression
		FROM information_schema.columns
		WHERE table_schema = ?
		ORDER BY table_name, ordinal_position`

	var rows []columnRow
	if err := ix.db.SelectContext(ctx, &rows, query, ix.db.SchemaName); err != nil {
		return err
	}

	for _, r := range rows {
		t := ix.out.FindTable(r.TableName)
		if t == nil {
			continue
		}

		col := schema.Column{
			Name:     r.ColumnName,
			Ordinal:  r.Position,
			Nullable: r.IsNullable == "YES",
			Default:  r.Default,
		}
		col = schema.CanonicalColumn(col, normalizeColumnType(r.ColumnType))

		if strings.Contains(r.Extra, "auto_increment") {
			col.Identity = "by_default"
		}
		if r.GenExpr != nil {
			col.Generated = &schema.Generated{
				Expr:   *r.GenExpr,
				Stored: strings.Contains(strings.ToUpper(r.Extra), "STORED"),
			}
		}
		switch r.ColumnKey {
		case "PRI":
			col.IsPrimaryKey = true
		case "UNI":
			col.IsUnique = true
		}
		if r.Comment != nil && *r.Comment != "" {
			col.Comment = *r.Comment
		}

		t.Columns = append(t.Columns, col)
	}

	// Synthesize the primary key constraints information_schema spreads
	// over column_key flags.
	for i := range ix.out.Tables {
		t := &ix.out.Tables[i]
		var pkCols []string
		for _, c := range t.Columns {
			if c.IsPrimaryKey {
				pkCols = append(pkCols, c.Name)
			}
		}
		if len(pkCols) > 0 {
			t.Constraints = append(t.Constraints, schema.Constraint{
				Name:    "PRIMARY",
				Kind:    schema.PrimaryKey,
				Columns: pkCols,
			})
		}
	}
	return nil
}

// normalizeColumnType strips MySQL display widths and the unsigned marker
// from a COLUMN_TYPE value like "int(11) unsigned" before canonicalization,
// while keeping meaningful parameters such as varchar(255).
func normalizeColumnType(columnType string) string {
	s := strings.TrimSpace(strings.ToLower(columnType))
	s = strings.TrimSuffix(s, " unsigned")
	s = strings.TrimSuffix(s, " zerofill")
	base := s
	if i := strings.IndexByte(s, '('); i > 0 {
		base = s[:i]
	}
	switch base {
	case "int", "tinyint", "smallint", "mediumint", "bigint":
		// tinyint(1) is the conventional boolean spelling.
		if s == "tinyint(1)" {
			return "boolean"
		}
		return base // drop display width
	}
	return s
}

func (ix *introspector) indexes(ctx context.Context) error {
	const query = `SELECT table_name, index_name, column_name, seq_in_index, non_unique, index_type
		FROM information_schema.statistics
		WHERE table_schema = ? AND index_name <> 'PRIMARY'
		ORDER BY table_name, index_name, seq_in_index`

	var rows []indexRow
	if err := ix.db.SelectContext(ctx, &rows, query, ix.db.SchemaName); err != nil {
		return err
	}

	for _, r := range rows {
		t := ix.out.FindTable(r.TableName)
		if t == nil {
			continue
		}
		if idx := t.FindIndex(r.IndexName); idx != nil {
			idx.Columns = append(idx.Columns, r.ColumnName)
			continue
		}
		t.Indexes = append(t.Indexes, schema.Index{
			Name:     r.IndexName,
			Columns:  []string{r.ColumnName},
			IsUnique: r.NonUnique == 0,
			Method:   strings.ToLower(r.IndexType),
		})
	}
	return nil
}

func (ix *introspector) foreignKeys(ctx context.Context) error {
	const query = `SELECT
			kcu.table_name,
			kcu.constraint_name,
			kcu.column_name,
			kcu.referenced_table_name AS referenced_table,
			kcu.referenced_column_name AS referenced_column,
			rc.delete_rule,
			rc.update_rule
		FROM information_schema.key_column_usage kcu
		JOIN information_schema.referential_constraints rc
			ON rc.constraint_name = kcu.constraint_name
			AND rc.constraint_schema = kcu.table_schema
		WHERE kcu.table_schema = ? AND kcu.referenced_table_name IS NOT NULL
		ORDER BY kcu.table_name, kcu.constraint_name, kcu.ordinal_position`

	var rows []fkRow
	if err := ix.db.SelectContext(ctx, &rows, query, ix.db.SchemaName); err != nil {
		return err
	}

	for _, r := range rows {
		t := ix.out.FindTable(r.TableName)
		if t == nil {
			continue
		}
		if c := t.FindConstraint(r.Name); c != nil {
			c.Columns = append(c.Columns, r.ColumnName)
			c.ReferencedColumns = append(c.ReferencedColumns, r.RefColumn)
			continue
		}
		t.Constraints = append(t.Constraints, schema.Constraint{
			Name:              r.Name,
			Kind:              schema.ForeignKey,
			Columns:           []string{r.ColumnName},
			ReferencedTable:   r.RefTable,
			ReferencedColumns: []string{r.RefColumn},
			OnDelete:          r.DeleteRule,
			OnUpdate:          r.UpdateRule,
		})
	}
	return nil
}

func (ix *introspector) checks(ctx context.Context) error {
	const query = `SELECT tc.table_name, cc.constraint_name, cc.check_clause
		FROM information_schema.check_constraints cc
		JOIN information_schema.table_constraints tc
			ON tc.constraint_name = cc.constraint_name
			AND tc.constraint_schema = cc.constraint_schema
		WHERE cc.constraint_schema = ?
		ORDER BY tc.table_name, cc.constraint_name`

	var rows []checkRow
	if err := ix.db.SelectContext(ctx, &rows, query, ix.db.SchemaName); err != nil {
		return err
	}

	for _, r := range rows {
		t := ix.out.FindTable(r.TableName)
		if t == nil {
			continue
		}
		t.Constraints = append(t.Constraints, schema.Constraint{
			Name:      r.Name,
			Kind:      schema.Check,
			CheckExpr: strings.Trim(r.Clause, "()"),
		})
	}
	return nil
}

func (ix *introspector) routines(ctx context.Context) error {
	const query = `SELECT routine_name,
			routine_type,
			COALESCE(data_type, '') AS returns,
			COALESCE(routine_definition, '') AS body,
			is_deterministic
		FROM information_schema.routines
		WHERE routine_schema = ?
		ORDER BY routine_name`

	var rows []routineRow
	if err := ix.db.SelectContext(ctx, &rows, query, ix.db.SchemaName); err != nil {
		return err
	}

	for _, r := range rows {
		vol := "volatile"
		if r.IsStrict == "YES" {
			vol = "immutable"
		}
		ix.out.Functions = append(ix.out.Functions, schema.Function{
			Name:        r.Name,
			Returns:     strings.ToLower(r.Returns),
			Language:    "sql",
			Body:        r.Body,
			Volatility:  vol,
			IsProcedure: strings.EqualFold(r.Type, "PROCEDURE"),
		})
	}
	return nil
}

func (ix *introspector) triggers(ctx context.Context) error {
	const query = `SELECT trigger_name, event_object_table, event_manipulation, action_timing, action_statement
		FROM information_schema.triggers
		WHERE trigger_schema = ?
		ORDER BY trigger_name, event_manipulation`

	var rows []triggerRow
	if err := ix.db.SelectContext(ctx, &rows, query, ix.db.SchemaName); err != nil {
		return err
	}

	byName := make(map[string]*schema.Trigger)
	var order []string
	for _, r := range rows {
		if tr, ok := byName[r.Name]; ok {
			tr.Events = append(tr.Events, r.Event)
			continue
		}
		byName[r.Name] = &schema.Trigger{
			Name:     r.Name,
			Table:    r.Table,
			Events:   []string{r.Event},
			Timing:   r.Timing,
			ForEach:  "ROW", // MySQL triggers are always row-level
			Function: r.Statement,
		}
		order = append(order, r.Name)
	}
	for _, name := range order {
		ix.out.Triggers = append(ix.out.Triggers, *byName[name])
	}
	return nil
}

func (ix *introspector) views(ctx context.Context) error {
	const query = `SELECT table_name, view_definition
		FROM information_schema.views
		WHERE table_schema = ?
		ORDER BY table_name`

	var rows []viewRow
	if err := ix.db.SelectContext(ctx, &rows, query, ix.db.SchemaName); err != nil {
		return err
	}
	for _, r := range rows {
		ix.out.Views = append(ix.out.Views, schema.View{Name: r.Name, Definition: strings.TrimSpace(r.Definition)})
	}
	return nil
}

func (ix *introspector) finish() {
	sort.Slice(ix.out.Tables, func(i, j int) bool { return ix.out.Tables[i].Name < ix.out.Tables[j].Name })
	for i := range ix.out.Tables {
		t := &ix.out.Tables[i]
		sort.Slice(t.Indexes, func(a, b int) bool { return t.Indexes[a].Name < t.Indexes[b].Name })
		sort.Slice(t.Constraints, func(a, b int) bool { return t.Constraints[a].Name < t.Constraints[b].Name })
	}
	sort.Slice(ix.out.Functions, func(i, j int) bool { return ix.out.Functions[i].Name < ix.out.Functions[j].Name })
	sort.Slice(ix.out.Triggers, func(i, j int) bool { return ix.out.Triggers[i].Name < ix.out.Triggers[j].Name })
	sort.Slice(ix.out.Views, func(i, j int) bool { return ix.out.Views[i].Name < ix.out.Views[j].Name })
}
