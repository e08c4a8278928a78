// Package postgres reads the catalog of a PostgreSQL-family database into
// the canonical schema model. The same adapter serves all four postgres
// variants; steps a variant does not support are skipped and reported.
package postgres

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/driftsql/drift/internal/conn"
	"github.com/driftsql/drift/internal/introspect"
	"github.com/driftsql/drift/internal/schema"
)

// tableRow holds the result of querying pg_class for ordinary and
// partitioned tables.
type tableRow struct {
	TableName string  `db:"table_name"`
	Comment   *string `db:"comment"`
	Kind      string  `db:"kind"`
}

// columnRow holds the result of querying information_schema.columns.
type columnRow struct {
	TableName      string  `db:"table_name"`
	ColumnName     string  `db:"column_name"`
	Position       int     `db:"ordinal_position"`
	DataType       string  `db:"data_type"`
	UDTName        string  `db:"udt_name"`
	IsNullable     string  `db:"is_nullable"`
	Default        *string `db:"column_default"`
	MaxLength      *int    `db:"character_maximum_length"`
	NumPrecision   *int    `db:"numeric_precision"`
	NumScale       *int    `db:"numeric_scale"`
	IsIdentity     string  `db:"is_identity"`
	IdentityGen    *string `db:"identity_generation"`
	IsGenerated    string  `db:"is_generated"`
	GenerationExpr *string `db:"generation_expression"`
	Comment        *string `db:"comment"`
}

// constraintRow holds one row of pg_constraint, with column lists flattened
// to comma-joined strings (sqlx has no portable array scan).
type constraintRow struct {
	TableName  string  `db:"table_name"`
	Name       string  `db:"name"`
	Type       string  `db:"contype"`
	Columns    string  `db:"columns"`
	Definition string  `db:"definition"`
	RefTable   *string `db:"ref_table"`
	RefColumns *string `db:"ref_columns"`
	OnDelete   *string `db:"on_delete"`
	OnUpdate   *string `db:"on_update"`
}

// indexRow holds one non-constraint index.
type indexRow struct {
	TableName string  `db:"table_name"`
	Name      string  `db:"name"`
	Method    string  `db:"method"`
	IsUnique  bool    `db:"is_unique"`
	Columns   string  `db:"columns"`
	Where     *string `db:"where_clause"`
	Comment   *string `db:"comment"`
}

type enumRow struct {
	Name  string `db:"name"`
	Label string `db:"label"`
}

type domainRow struct {
	Name     string  `db:"name"`
	BaseType string  `db:"base_type"`
	NotNull  bool    `db:"not_null"`
	Default  *string `db:"default_expr"`
	CheckDef *string `db:"check_def"`
}

type sequenceRow struct {
	Name      string `db:"name"`
	DataType  string `db:"data_type"`
	Start     int64  `db:"start_value"`
	Increment int64  `db:"increment_by"`
	Min       *int64 `db:"min_value"`
	Max       *int64 `db:"max_value"`
	Cache     int64  `db:"cache_size"`
	Cycle     bool   `db:"cycle"`
}

type sequenceOwnerRow struct {
	Sequence string `db:"sequence_name"`
	Table    string `db:"table_name"`
	Column   string `db:"column_name"`
}

type functionRow struct {
	Name       string `db:"name"`
	Args       string `db:"args"`
	Returns    string `db:"returns"`
	Language   string `db:"language"`
	Body       string `db:"body"`
	Volatility string `db:"volatility"`
	IsStrict   bool   `db:"is_strict"`
	SecDef     bool   `db:"security_definer"`
	Kind       string `db:"kind"`
}

type triggerRow struct {
	Name        string  `db:"name"`
	Table       string  `db:"table_name"`
	Event       string  `db:"event"`
	Timing      string  `db:"timing"`
	Orientation string  `db:"orientation"`
	Condition   *string `db:"condition"`
	Statement   string  `db:"statement"`
}

type viewRow struct {
	Name       string `db:"name"`
	Definition string `db:"definition"`
}

type extensionRow struct {
	Name    string `db:"name"`
	Version string `db:"version"`
}

type compositeRow struct {
	TypeName  string `db:"type_name"`
	FieldName string `db:"field_name"`
	FieldType string `db:"field_type"`
}

type collationRow struct {
	Name   string `db:"name"`
	Locale string `db:"locale"`
}

type partitionRow struct {
	TableName string `db:"table_name"`
	Strategy  string `db:"strategy"`
	Keys      string `db:"keys"`
	Children  string `db:"children"`
}

type foreignTableRow struct {
	Name   string `db:"name"`
	Server string `db:"server"`
}

// Introspect reads the database catalog into a canonical schema.
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

	opts.Report(introspect.StepConstraints)
	if err := ix.constraints(ctx); err != nil {
		return nil, fmt.Errorf("introspect constraints: %w", err)
	}

	opts.Report(introspect.StepIndexes)
	if err := ix.indexes(ctx); err != nil {
		return nil, fmt.Errorf("introspect indexes: %w", err)
	}

	opts.Report(introspect.StepEnums)
	if err := ix.tolerate(introspect.StepEnums, caps.Enums, ix.enums(ctx)); err != nil {
		return nil, fmt.Errorf("introspect enums: %w", err)
	}

	opts.Report(introspect.StepDomains)
	if err := ix.domains(ctx); err != nil {
		return nil, fmt.Errorf("introspect domains: %w", err)
	}

	opts.Report(introspect.StepSequences)
	if err := ix.tolerate(introspect.StepSequences, caps.Sequences, ix.sequences(ctx)); err != nil {
		return nil, fmt.Errorf("introspect sequences: %w", err)
	}

	opts.Report(introspect.StepPartitions)
	if err := ix.tolerate(introspect.StepPartitions, caps.TablePartitioning, ix.partitions(ctx)); err != nil {
		return nil, fmt.Errorf("introspect partitions: %w", err)
	}

	opts.Report(introspect.StepExtensions)
	if err := ix.extensions(ctx); err != nil {
		return nil, fmt.Errorf("introspect extensions: %w", err)
	}

	opts.Report(introspect.StepCompositeTypes)
	if err := ix.tolerate(introspect.StepCompositeTypes, caps.CompositeTypes, ix.compositeTypes(ctx)); err != nil {
		return nil, fmt.Errorf("introspect composite types: %w", err)
	}

	if opts.IncludeFunctions {
		opts.Report(introspect.StepFunctions)
		if err := ix.tolerate(introspect.StepFunctions, caps.StoredProcedures, ix.functions(ctx)); err != nil {
			return nil, fmt.Errorf("introspect functions: %w", err)
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
		opts.Report(introspect.StepMatViews)
		if err := ix.tolerate(introspect.StepMatViews, caps.MaterializedViews, ix.materializedViews(ctx)); err != nil {
			return nil, fmt.Errorf("introspect materialized views: %w", err)
		}
	}

	opts.Report(introspect.StepCollations)
	if err := ix.collations(ctx); err != nil {
		return nil, fmt.Errorf("introspect collations: %w", err)
	}

	opts.Report(introspect.StepForeignTables)
	if err := ix.tolerate(introspect.StepForeignTables, caps.ForeignTables, ix.foreignTables(ctx)); err != nil {
		return nil, fmt.Errorf("introspect foreign tables: %w", err)
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

// tolerate swallows a step failure when the capability matrix already says
// the feature is unsupported on this variant; the step is recorded as
// skipped. Failures on supported steps abort the introspection.
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
		if ok, _ := matchGlob(pattern, table); ok {
			return true
		}
	}
	return false
}

// matchGlob is a case-insensitive * and ? matcher.
func matchGlob(pattern, name string) (bool, error) {
	p, n := strings.ToLower(pattern), strings.ToLower(name)
	return globMatch(p, n), nil
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
	const query = `SELECT c.relname AS table_name,
			obj_description(c.oid, 'pg_class') AS comment,
			c.relkind AS kind
		FROM pg_catalog.pg_class c
		JOIN pg_catalog.pg_namespace n ON n.oid = c.relnamespace
		WHERE n.nspname = $1
			AND c.relkind IN ('r', 'p')
			AND NOT c.relispartition
		ORDER BY c.relname`

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
			c.table_name,
			c.column_name,
			c.ordinal_position,
			c.data_type,
			c.udt_name,
			c.is_nullable,
			c.column_default,
			c.character_maximum_length,
			c.numeric_precision,
			c.numeric_scale,
			c.is_identity,
			c.identity_generation,
			c.is_generated,
			c.generation_expression,
			col_description(format('%I.%I', c.table_schema, c.table_name)::regclass::oid, c.ordinal_position) AS comment
		FROM information_schema.columns c
		WHERE c.table_schema = $1
		ORDER BY c.table_name, c.ordinal_position`

	var rows []columnRow
	if err := ix.db.SelectContext(ctx, &rows, query, ix.db.SchemaName); err != nil {
		return err
	}

	for _, r := range rows {
		t := ix.out.FindTable(r.TableName)
		if t == nil {
			continue // view or excluded table
		}

		col := schema.Column{
			Name:     r.ColumnName,
			Ordinal:  r.Position,
			Nullable: r.IsNullable == "YES",
			Default:  r.Default,
		}

		raw := r.UDTName
		if strings.EqualFold(r.DataType, "ARRAY") {
			raw = "_" + strings.TrimPrefix(r.UDTName, "_")
		}
		col = schema.CanonicalColumn(col, raw)

		// information_schema carries the parameters separately from the
		// udt name; prefer its typed values.
		if r.MaxLength != nil {
			col.Length = r.MaxLength
		}
		if col.Type == "numeric" && r.NumPrecision != nil {
			col.Precision = r.NumPrecision
			col.Scale = r.NumScale
		}

		if r.IsIdentity == "YES" && r.IdentityGen != nil {
			switch *r.IdentityGen {
			case "ALWAYS":
				col.Identity = "always"
			case "BY DEFAULT":
				col.Identity = "by_default"
			}
		}
		if r.IsGenerated == "ALWAYS" && r.GenerationExpr != nil {
			col.Generated = &schema.Generated{Expr: *r.GenerationExpr, Stored: true}
		}
		if r.Comment != nil {
			col.Comment = *r.Comment
		}

		t.Columns = append(t.Columns, col)
	}
	return nil
}

func (ix *introspector) constraints(ctx context.Context) error {
	const query = `SELECT
			rel.relname AS table_name,
			con.conname AS name,
			con.contype,
			COALESCE((SELECT string_agg(att.attname, ',' ORDER BY u.ord)
				FROM unnest(con.conkey) WITH ORDINALITY AS u(attnum, ord)
				JOIN pg_attribute att ON att.attrelid = con.conrelid AND att.attnum = u.attnum), '') AS columns,
			pg_get_constraintdef(con.oid) AS definition,
			CASE WHEN con.confrelid <> 0 THEN con.confrelid::regclass::text END AS ref_table,
			(SELECT string_agg(att.attname, ',' ORDER BY u.ord)
				FROM unnest(con.confkey) WITH ORDINALITY AS u(attnum, ord)
				JOIN pg_attribute att ON att.attrelid = con.confrelid AND att.attnum = u.attnum) AS ref_columns,
			CASE con.confdeltype WHEN 'a' THEN 'NO ACTION' WHEN 'r' THEN 'RESTRICT'
				WHEN 'c' THEN 'CASCADE' WHEN 'n' THEN 'SET NULL' WHEN 'd' THEN 'SET DEFAULT' END AS on_delete,
			CASE con.confupdtype WHEN 'a' THEN 'NO ACTION' WHEN 'r' THEN 'RESTRICT'
				WHEN 'c' THEN 'CASCADE' WHEN 'n' THEN 'SET NULL' WHEN 'd' THEN 'SET DEFAULT' END AS on_update
		FROM pg_catalog.pg_constraint con
		JOIN pg_catalog.pg_class rel ON rel.oid = con.conrelid
		JOIN pg_catalog.pg_namespace n ON n.oid = rel.relnamespace
		WHERE n.nspname = $1 AND con.contype IN ('p', 'u', 'c', 'f', 'x')
		ORDER BY rel.relname, con.conname`

	var rows []constraintRow
	if err := ix.db.SelectContext(ctx, &rows, query, ix.db.SchemaName); err != nil {
		return err
	}

	for _, r := range rows {
		t := ix.out.FindTable(r.TableName)
		if t == nil {
			continue
		}

		c := schema.Constraint{Name: r.Name, Columns: splitList(r.Columns)}
		switch r.Type {
		case "p":
			c.Kind = schema.PrimaryKey
			for _, name := range c.Columns {
				if col := t.FindColumn(name); col != nil {
					col.IsPrimaryKey = true
				}
			}
		case "u":
			c.Kind = schema.Unique
			if len(c.Columns) == 1 {
				if col := t.FindColumn(c.Columns[0]); col != nil {
					col.IsUnique = true
				}
			}
		case "c":
			c.Kind = schema.Check
			c.CheckExpr = stripCheckDef(r.Definition)
		case "f":
			c.Kind = schema.ForeignKey
			if r.RefTable != nil {
				c.ReferencedTable = strings.Trim(*r.RefTable, `"`)
			}
			if r.RefColumns != nil {
				c.ReferencedColumns = splitList(*r.RefColumns)
			}
			if r.OnDelete != nil {
				c.OnDelete = *r.OnDelete
			}
			if r.OnUpdate != nil {
				c.OnUpdate = *r.OnUpdate
			}
		case "x":
			c.Kind = schema.Exclusion
			c.CheckExpr = r.Definition
		}

		t.Constraints = append(t.Constraints, c)
	}
	return nil
}

func (ix *introspector) indexes(ctx context.Context) error {
	const query = `SELECT
			tc.relname AS table_name,
			icl.relname AS name,
			am.amname AS method,
			ix.indisunique AS is_unique,
			(SELECT string_agg(pg_get_indexdef(ix.indexrelid, k.n, true), ',' ORDER BY k.n)
				FROM generate_subscripts(ix.indkey, 1) WITH ORDINALITY AS k(i, n)) AS columns,
			pg_get_expr(ix.indpred, ix.indrelid) AS where_clause,
			obj_description(icl.oid, 'pg_class') AS comment
		FROM pg_catalog.pg_index ix
		JOIN pg_catalog.pg_class icl ON icl.oid = ix.indexrelid
		JOIN pg_catalog.pg_class tc ON tc.oid = ix.indrelid
		JOIN pg_catalog.pg_am am ON am.oid = icl.relam
		JOIN pg_catalog.pg_namespace n ON n.oid = tc.relnamespace
		WHERE n.nspname = $1
			AND NOT ix.indisprimary
			AND ix.indexrelid NOT IN (SELECT conindid FROM pg_constraint WHERE conindid <> 0)
		ORDER BY tc.relname, icl.relname`

	var rows []indexRow
	if err := ix.db.SelectContext(ctx, &rows, query, ix.db.SchemaName); err != nil {
		return err
	}

	for _, r := range rows {
		t := ix.out.FindTable(r.TableName)
		if t == nil {
			continue
		}

		idx := schema.Index{
			Name:     r.Name,
			IsUnique: r.IsUnique,
			Method:   r.Method,
		}
		cols := splitList(r.Columns)
		for _, c := range cols {
			if t.FindColumn(strings.Trim(c, `"`)) != nil {
				idx.Columns = append(idx.Columns, strings.Trim(c, `"`))
			} else {
				// Not a bare column reference: an expression index.
				idx.Expression = r.Columns
				idx.Columns = nil
				break
			}
		}
		if r.Where != nil {
			idx.Where = *r.Where
		}
		if r.Comment != nil {
			idx.Comment = *r.Comment
		}
		t.Indexes = append(t.Indexes, idx)
	}
	return nil
}

func (ix *introspector) enums(ctx context.Context) error {
	const query = `SELECT t.typname AS name, e.enumlabel AS label
		FROM pg_catalog.pg_type t
		JOIN pg_catalog.pg_enum e ON e.enumtypid = t.oid
		JOIN pg_catalog.pg_namespace n ON n.oid = t.typnamespace
		WHERE n.nspname = $1
		ORDER BY t.typname, e.enumsortorder`

	var rows []enumRow
	if err := ix.db.SelectContext(ctx, &rows, query, ix.db.SchemaName); err != nil {
		return err
	}

	for _, r := range rows {
		if e := ix.out.FindEnum(r.Name); e != nil {
			e.Values = append(e.Values, r.Label)
			continue
		}
		ix.out.Enums = append(ix.out.Enums, schema.Enum{Name: r.Name, Values: []string{r.Label}})
	}
	return nil
}

func (ix *introspector) domains(ctx context.Context) error {
	const query = `SELECT t.typname AS name,
			pg_catalog.format_type(t.typbasetype, t.typtypmod) AS base_type,
			t.typnotnull AS not_null,
			t.typdefault AS default_expr,
			(SELECT pg_get_constraintdef(c.oid) FROM pg_catalog.pg_constraint c
				WHERE c.contypid = t.oid LIMIT 1) AS check_def
		FROM pg_catalog.pg_type t
		JOIN pg_catalog.pg_namespace n ON n.oid = t.typnamespace
		WHERE n.nspname = $1 AND t.typtype = 'd'
		ORDER BY t.typname`

	var rows []domainRow
	if err := ix.db.SelectContext(ctx, &rows, query, ix.db.SchemaName); err != nil {
		return err
	}

	for _, r := range rows {
		d := schema.Domain{Name: r.Name, NotNull: r.NotNull, Default: r.Default}
		name, _, _, _, _ := schema.Canonicalize(r.BaseType)
		d.BaseType = name
		if r.CheckDef != nil {
			d.CheckExpr = stripCheckDef(*r.CheckDef)
		}
		ix.out.Domains = append(ix.out.Domains, d)
	}
	return nil
}

func (ix *introspector) sequences(ctx context.Context) error {
	const query = `SELECT s.sequencename AS name,
			s.data_type::text AS data_type,
			s.start_value, s.increment_by,
			s.min_value, s.max_value,
			s.cache_size, s.cycle
		FROM pg_catalog.pg_sequences s
		WHERE s.schemaname = $1
		ORDER BY s.sequencename`

	var rows []sequenceRow
	if err := ix.db.SelectContext(ctx, &rows, query, ix.db.SchemaName); err != nil {
		return err
	}

	const ownerQuery = `SELECT s.relname AS sequence_name,
			dep.refobjid::regclass::text AS table_name,
			att.attname AS column_name
		FROM pg_catalog.pg_class s
		JOIN pg_catalog.pg_namespace n ON n.oid = s.relnamespace
		JOIN pg_catalog.pg_depend dep ON dep.objid = s.oid AND dep.deptype = 'a'
		JOIN pg_catalog.pg_attribute att
			ON att.attrelid = dep.refobjid AND att.attnum = dep.refobjsubid
		WHERE n.nspname = $1 AND s.relkind = 'S'`

	var owners []sequenceOwnerRow
	if err := ix.db.SelectContext(ctx, &owners, ownerQuery, ix.db.SchemaName); err != nil {
		return err
	}
	ownerOf := make(map[string]string, len(owners))
	for _, o := range owners {
		ownerOf[o.Sequence] = strings.Trim(o.Table, `"`) + "." + o.Column
	}

	for _, r := range rows {
		name, _, _, _, _ := schema.Canonicalize(r.DataType)
		ix.out.Sequences = append(ix.out.Sequences, schema.Sequence{
			Name:      r.Name,
			DataType:  name,
			Start:     r.Start,
			Increment: r.Increment,
			Min:       r.Min,
			Max:       r.Max,
			Cache:     r.Cache,
			Cycle:     r.Cycle,
			OwnedBy:   ownerOf[r.Name],
		})
	}
	return nil
}

func (ix *introspector) partitions(ctx context.Context) error {
	const query = `SELECT c.relname AS table_name,
			CASE pt.partstrat WHEN 'r' THEN 'range' WHEN 'l' THEN 'list' WHEN 'h' THEN 'hash' END AS strategy,
			(SELECT string_agg(att.attname, ',' ORDER BY u.ord)
				FROM unnest(pt.partattrs) WITH ORDINALITY AS u(attnum, ord)
				JOIN pg_attribute att ON att.attrelid = pt.partrelid AND att.attnum = u.attnum) AS keys,
			COALESCE((SELECT string_agg(child.relname, ',' ORDER BY child.relname)
				FROM pg_inherits inh
				JOIN pg_class child ON child.oid = inh.inhrelid
				WHERE inh.inhparent = pt.partrelid), '') AS children
		FROM pg_catalog.pg_partitioned_table pt
		JOIN pg_catalog.pg_class c ON c.oid = pt.partrelid
		JOIN pg_catalog.pg_namespace n ON n.oid = c.relnamespace
		WHERE n.nspname = $1
		ORDER BY c.relname`

	var rows []partitionRow
	if err := ix.db.SelectContext(ctx, &rows, query, ix.db.SchemaName); err != nil {
		return err
	}

	for _, r := range rows {
		t := ix.out.FindTable(r.TableName)
		if t == nil {
			continue
		}
		t.Partitioning = &schema.Partitioning{
			Type:            r.Strategy,
			Keys:            splitList(r.Keys),
			ChildPartitions: splitList(r.Children),
		}
	}
	return nil
}

func (ix *introspector) extensions(ctx context.Context) error {
	const query = `SELECT e.extname AS name, e.extversion AS version
		FROM pg_catalog.pg_extension e
		WHERE e.extname <> 'plpgsql'
		ORDER BY e.extname`

	var rows []extensionRow
	if err := ix.db.SelectContext(ctx, &rows, query); err != nil {
		return err
	}
	for _, r := range rows {
		ix.out.Extensions = append(ix.out.Extensions, schema.Extension{Name: r.Name, Version: r.Version})
	}
	return nil
}

func (ix *introspector) compositeTypes(ctx context.Context) error {
	const query = `SELECT t.typname AS type_name,
			att.attname AS field_name,
			pg_catalog.format_type(att.atttypid, att.atttypmod) AS field_type
		FROM pg_catalog.pg_type t
		JOIN pg_catalog.pg_namespace n ON n.oid = t.typnamespace
		JOIN pg_catalog.pg_class c ON c.oid = t.typrelid AND c.relkind = 'c'
		JOIN pg_catalog.pg_attribute att ON att.attrelid = c.oid AND att.attnum > 0
		WHERE n.nspname = $1 AND t.typtype = 'c'
		ORDER BY t.typname, att.attnum`

	var rows []compositeRow
	if err := ix.db.SelectContext(ctx, &rows, query, ix.db.SchemaName); err != nil {
		return err
	}

	for _, r := range rows {
		name, _, _, _, _ := schema.Canonicalize(r.FieldType)
		field := schema.TypeField{Name: r.FieldName, Type: name}
		if n := len(ix.out.CompositeTypes); n > 0 && ix.out.CompositeTypes[n-1].Name == r.TypeName {
			ix.out.CompositeTypes[n-1].Fields = append(ix.out.CompositeTypes[n-1].Fields, field)
			continue
		}
		ix.out.CompositeTypes = append(ix.out.CompositeTypes, schema.CompositeType{
			Name: r.TypeName, Fields: []schema.TypeField{field},
		})
	}
	return nil
}

func (ix *introspector) functions(ctx context.Context) error {
	const query = `SELECT p.proname AS name,
			pg_get_function_identity_arguments(p.oid) AS args,
			COALESCE(pg_get_function_result(p.oid), '') AS returns,
			l.lanname AS language,
			p.prosrc AS body,
			CASE p.provolatile WHEN 'i' THEN 'immutable' WHEN 's' THEN 'stable' ELSE 'volatile' END AS volatility,
			p.proisstrict AS is_strict,
			p.prosecdef AS security_definer,
			p.prokind AS kind
		FROM pg_catalog.pg_proc p
		JOIN pg_catalog.pg_namespace n ON n.oid = p.pronamespace
		JOIN pg_catalog.pg_language l ON l.oid = p.prolang
		WHERE n.nspname = $1 AND p.prokind IN ('f', 'p')
			AND NOT EXISTS (SELECT 1 FROM pg_depend d
				WHERE d.objid = p.oid AND d.deptype = 'e')
		ORDER BY p.proname`

	var rows []functionRow
	if err := ix.db.SelectContext(ctx, &rows, query, ix.db.SchemaName); err != nil {
		return err
	}

	for _, r := range rows {
		fn := schema.Function{
			Name:            r.Name,
			Returns:         r.Returns,
			Language:        r.Language,
			Body:            r.Body,
			Volatility:      r.Volatility,
			IsStrict:        r.IsStrict,
			SecurityDefiner: r.SecDef,
			IsProcedure:     r.Kind == "p",
			Args:            parseArgList(r.Args),
		}
		ix.out.Functions = append(ix.out.Functions, fn)
	}
	return nil
}

// parseArgList parses the output of pg_get_function_identity_arguments,
// e.g. "a integer, b text" or "integer, text".
func parseArgList(s string) []schema.FunctionArg {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	var args []schema.FunctionArg
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if i := strings.IndexByte(part, ' '); i > 0 && !isTypeWord(part[:i]) {
			args = append(args, schema.FunctionArg{Name: part[:i], Type: part[i+1:]})
		} else {
			args = append(args, schema.FunctionArg{Type: part})
		}
	}
	return args
}

func isTypeWord(w string) bool {
	switch strings.ToLower(w) {
	case "integer", "bigint", "smallint", "text", "boolean", "numeric", "real",
		"double", "timestamp", "date", "time", "uuid", "json", "jsonb", "bytea",
		"varchar", "char", "interval":
		return true
	}
	return false
}

func (ix *introspector) triggers(ctx context.Context) error {
	const query = `SELECT trigger_name AS name,
			event_object_table AS table_name,
			event_manipulation AS event,
			action_timing AS timing,
			action_orientation AS orientation,
			action_condition AS condition,
			action_statement AS statement
		FROM information_schema.triggers
		WHERE trigger_schema = $1
		ORDER BY trigger_name, event_manipulation`

	var rows []triggerRow
	if err := ix.db.SelectContext(ctx, &rows, query, ix.db.SchemaName); err != nil {
		return err
	}

	// One row per event; fold into a single trigger with ordered events.
	byName := make(map[string]*schema.Trigger)
	var order []string
	for _, r := range rows {
		if tr, ok := byName[r.Name]; ok {
			tr.Events = append(tr.Events, r.Event)
			continue
		}
		tr := &schema.Trigger{
			Name:    r.Name,
			Table:   r.Table,
			Events:  []string{r.Event},
			Timing:  strings.ReplaceAll(r.Timing, " ", "_"),
			ForEach: r.Orientation,
		}
		if r.Condition != nil {
			tr.When = *r.Condition
		}
		// action_statement is "EXECUTE FUNCTION name(args)".
		stmt := strings.TrimPrefix(r.Statement, "EXECUTE FUNCTION ")
		stmt = strings.TrimPrefix(stmt, "EXECUTE PROCEDURE ")
		if i := strings.IndexByte(stmt, '('); i > 0 {
			stmt = stmt[:i]
		}
		tr.Function = stmt
		byName[r.Name] = tr
		order = append(order, r.Name)
	}
	for _, name := range order {
		ix.out.Triggers = append(ix.out.Triggers, *byName[name])
	}
	return nil
}

func (ix *introspector) views(ctx context.Context) error {
	const query = `SELECT viewname AS name, definition
		FROM pg_catalog.pg_views
		WHERE schemaname = $1
		ORDER BY viewname`

	var rows []viewRow
	if err := ix.db.SelectContext(ctx, &rows, query, ix.db.SchemaName); err != nil {
		return err
	}
	for _, r := range rows {
		ix.out.Views = append(ix.out.Views, schema.View{Name: r.Name, Definition: strings.TrimSpace(r.Definition)})
	}
	return nil
}

func (ix *introspector) materializedViews(ctx context.Context) error {
	const query = `SELECT matviewname AS name, definition
		FROM pg_catalog.pg_matviews
		WHERE schemaname = $1
		ORDER BY matviewname`

	var rows []viewRow
	if err := ix.db.SelectContext(ctx, &rows, query, ix.db.SchemaName); err != nil {
		return err
	}
	for _, r := range rows {
		ix.out.MaterializedViews = append(ix.out.MaterializedViews, schema.View{Name: r.Name, Definition: strings.TrimSpace(r.Definition)})
	}
	return nil
}

func (ix *introspector) collations(ctx context.Context) error {
	const query = `SELECT c.collname AS name, COALESCE(c.collcollate, '') AS locale
		FROM pg_catalog.pg_collation c
		JOIN pg_catalog.pg_namespace n ON n.oid = c.collnamespace
		WHERE n.nspname = $1
		ORDER BY c.collname`

	var rows []collationRow
	if err := ix.db.SelectContext(ctx, &rows, query, ix.db.SchemaName); err != nil {
		return err
	}
	for _, r := range rows {
		ix.out.Collations = append(ix.out.Collations, schema.Collation{Name: r.Name, Locale: r.Locale})
	}
	return nil
}

func (ix *introspector) foreignTables(ctx context.Context) error {
	const query = `SELECT ft.foreign_table_name AS name,
			ft.foreign_server_name AS server
		FROM information_schema.foreign_tables ft
		WHERE ft.foreign_table_schema = $1
		ORDER BY ft.foreign_table_name`

	var rows []foreignTableRow
	if err := ix.db.SelectContext(ctx, &rows, query, ix.db.SchemaName); err != nil {
		return err
	}
	for _, r := range rows {
		ix.out.ForeignTables = append(ix.out.ForeignTables, schema.ForeignTable{Name: r.Name, ServerName: r.Server})
	}
	return nil
}

// finish applies the adapter ordering guarantees: objects sorted by name
// within each kind, columns already ordered by ordinal from the catalog.
func (ix *introspector) finish() {
	sort.Slice(ix.out.Tables, func(i, j int) bool { return ix.out.Tables[i].Name < ix.out.Tables[j].Name })
	for i := range ix.out.Tables {
		t := &ix.out.Tables[i]
		sort.Slice(t.Indexes, func(a, b int) bool { return t.Indexes[a].Name < t.Indexes[b].Name })
		sort.Slice(t.Constraints, func(a, b int) bool { return t.Constraints[a].Name < t.Constraints[b].Name })
	}
	sort.Slice(ix.out.Enums, func(i, j int) bool { return ix.out.Enums[i].Name < ix.out.Enums[j].Name })
	sort.Slice(ix.out.Functions, func(i, j int) bool { return ix.out.Functions[i].Name < ix.out.Functions[j].Name })
	sort.Slice(ix.out.Triggers, func(i, j int) bool { return ix.out.Triggers[i].Name < ix.out.Triggers[j].Name })
}

// splitList splits a comma-joined catalog aggregate, trimming whitespace.
func splitList(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// stripCheckDef reduces "CHECK ((expr))" to "expr".
func stripCheckDef(def string) string {
	s := strings.TrimSpace(def)
	if strings.HasPrefix(strings.ToUpper(s), "CHECK") {
		s = strings.TrimSpace(s[5:])
	}
	for strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		inner := strings.TrimSpace(s[1 : len(s)-1])
		if !balanced(inner) {
			break
		}
		s = inner
	}
	return s
}

func balanced(s string) bool {
	depth := 0
	for _, r := range s {
		switch r {
		case '(':
			depth++
		case ')':
			depth--
			if depth < 0 {
				return false
			}
		}
	}
	return depth == 0
}
