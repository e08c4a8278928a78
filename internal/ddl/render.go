package ddl

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/driftsql/drift/internal/dialect"
	"github.com/driftsql/drift/internal/schema"
)

// renderType translates a column's canonical type into the dialect
// spelling, with length/precision/scale and array suffix. A mapped spelling
// that already carries parameters (tinyint(1)) is used verbatim.
func renderType(d *dialect.Dialect, c schema.Column) string {
	base := d.RenderType(c.Type)
	if !strings.Contains(base, "(") {
		switch {
		case c.Length != nil:
			base = fmt.Sprintf("%s(%d)", base, *c.Length)
		case c.Precision != nil && c.Scale != nil:
			base = fmt.Sprintf("%s(%d,%d)", base, *c.Precision, *c.Scale)
		case c.Precision != nil:
			base = fmt.Sprintf("%s(%d)", base, *c.Precision)
		}
	}
	if c.IsArray && d.Capabilities.ArrayColumns {
		base += "[]"
	}
	return base
}

// columnDef renders one column clause for CREATE TABLE, ADD COLUMN, and
// MySQL MODIFY COLUMN.
func columnDef(d *dialect.Dialect, c schema.Column) string {
	var b strings.Builder
	b.WriteString(Quote(d, c.Name))
	b.WriteByte(' ')
	b.WriteString(renderType(d, c))

	if g := c.Generated; g != nil {
		b.WriteString(" GENERATED ALWAYS AS (" + g.Expr + ")")
		if g.Stored {
			b.WriteString(" STORED")
		} else if d.Family != dialect.FamilyPostgres {
			b.WriteString(" VIRTUAL")
		}
	}
	if c.Identity != "" {
		switch d.Family {
		case dialect.FamilyPostgres:
			if c.Identity == "always" {
				b.WriteString(" GENERATED ALWAYS AS IDENTITY")
			} else {
				b.WriteString(" GENERATED BY DEFAULT AS IDENTITY")
			}
		case dialect.FamilyMySQL:
			b.WriteString(" AUTO_INCREMENT")
		}
	}
	if !c.Nullable {
		b.WriteString(" NOT NULL")
	}
	if c.Default != nil {
		b.WriteString(" DEFAULT " + *c.Default)
	}
	if d.Family == dialect.FamilyMySQL && c.Comment != "" {
		b.WriteString(" COMMENT " + quoteLiteral(c.Comment))
	}
	return b.String()
}

// constraintDef renders the body of a table constraint, without the leading
// CONSTRAINT name.
func constraintDef(d *dialect.Dialect, c schema.Constraint) string {
	switch c.Kind {
	case schema.PrimaryKey:
		return "PRIMARY KEY (" + quoteList(d, c.Columns) + ")"
	case schema.Unique:
		return "UNIQUE (" + quoteList(d, c.Columns) + ")"
	case schema.Check:
		return "CHECK (" + c.CheckExpr + ")"
	case schema.ForeignKey:
		s := "FOREIGN KEY (" + quoteList(d, c.Columns) + ") REFERENCES " +
			Quote(d, c.ReferencedTable) + " (" + quoteList(d, c.ReferencedColumns) + ")"
		if c.OnDelete != "" {
			s += " ON DELETE " + strings.ToUpper(c.OnDelete)
		}
		if c.OnUpdate != "" {
			s += " ON UPDATE " + strings.ToUpper(c.OnUpdate)
		}
		return s
	case schema.Exclusion:
		return "EXCLUDE " + c.CheckExpr
	}
	return ""
}

// createTable renders the CREATE TABLE statement. Foreign keys for which
// defer reports true are returned instead of inlined; callers emit them
// after every table exists. Unsupported features still render so the
// dialect validator can report them with an alternative.
func createTable(d *dialect.Dialect, t *schema.Table, deferFK func(schema.Constraint) bool) (string, []schema.Constraint) {
	var lines []string
	for _, c := range t.Columns {
		lines = append(lines, columnDef(d, c))
	}

	var deferred []schema.Constraint
	hasPK := false
	for _, c := range t.Constraints {
		if c.Kind == schema.ForeignKey && deferFK != nil && deferFK(c) {
			deferred = append(deferred, c)
			continue
		}
		if c.Kind == schema.PrimaryKey {
			hasPK = true
		}
		lines = append(lines, "CONSTRAINT "+Quote(d, c.Name)+" "+constraintDef(d, c))
	}
	if !hasPK {
		if pk := primaryKeyColumns(t); len(pk) > 0 {
			lines = append(lines, "PRIMARY KEY ("+quoteList(d, pk)+")")
		}
	}

	stmt := "CREATE TABLE IF NOT EXISTS " + Quote(d, t.Name) + " (\n    " +
		strings.Join(lines, ",\n    ") + "\n)"
	if p := t.Partitioning; p != nil && d.Capabilities.TablePartitioning {
		stmt += " PARTITION BY " + strings.ToUpper(p.Type) + " (" + quoteList(d, p.Keys) + ")"
	}
	return stmt + ";", deferred
}

func primaryKeyColumns(t *schema.Table) []string {
	var pk []string
	for _, c := range t.Columns {
		if c.IsPrimaryKey {
			pk = append(pk, c.Name)
		}
	}
	return pk
}

func createIndex(d *dialect.Dialect, table string, ix schema.Index) string {
	var b strings.Builder
	b.WriteString("CREATE ")
	if ix.IsUnique {
		b.WriteString("UNIQUE ")
	}
	method := strings.ToUpper(ix.Method)
	if d.Family == dialect.FamilyMySQL && (method == "FULLTEXT" || method == "SPATIAL") {
		b.Reset()
		b.WriteString("CREATE " + method + " ")
	}
	b.WriteString("INDEX ")
	if d.Family != dialect.FamilyMySQL {
		b.WriteString("IF NOT EXISTS ")
	}
	b.WriteString(Quote(d, ix.Name) + " ON " + Quote(d, table))
	if d.Family == dialect.FamilyPostgres && ix.Method != "" && strings.ToLower(ix.Method) != "btree" {
		b.WriteString(" USING " + strings.ToLower(ix.Method))
	}
	if ix.Expression != "" {
		b.WriteString(" ((" + ix.Expression + "))")
	} else {
		b.WriteString(" (" + quoteList(d, ix.Columns) + ")")
	}
	if ix.Where != "" && d.Family != dialect.FamilyMySQL {
		b.WriteString(" WHERE " + ix.Where)
	}
	return b.String() + ";"
}

func dropIndex(d *dialect.Dialect, table, name string) string {
	if d.Family == dialect.FamilyMySQL {
		return "DROP INDEX " + Quote(d, name) + " ON " + Quote(d, table) + ";"
	}
	return "DROP INDEX IF EXISTS " + Quote(d, name) + ";"
}

func createEnum(d *dialect.Dialect, e schema.Enum) string {
	vals := make([]string, len(e.Values))
	for i, v := range e.Values {
		vals[i] = quoteLiteral(v)
	}
	return "CREATE TYPE " + Quote(d, e.Name) + " AS ENUM (" + strings.Join(vals, ", ") + ");"
}

func createDomain(d *dialect.Dialect, dm schema.Domain) string {
	s := "CREATE DOMAIN " + Quote(d, dm.Name) + " AS " + dm.BaseType
	if dm.Default != nil {
		s += " DEFAULT " + *dm.Default
	}
	if dm.NotNull {
		s += " NOT NULL"
	}
	if dm.CheckExpr != "" {
		s += " CHECK (" + dm.CheckExpr + ")"
	}
	return s + ";"
}

func createSequence(d *dialect.Dialect, sq schema.Sequence) string {
	s := "CREATE SEQUENCE IF NOT EXISTS " + Quote(d, sq.Name)
	if sq.DataType != "" {
		s += " AS " + sq.DataType
	}
	if sq.Increment != 0 && sq.Increment != 1 {
		s += " INCREMENT BY " + strconv.FormatInt(sq.Increment, 10)
	}
	if sq.Min != nil {
		s += " MINVALUE " + strconv.FormatInt(*sq.Min, 10)
	}
	if sq.Max != nil {
		s += " MAXVALUE " + strconv.FormatInt(*sq.Max, 10)
	}
	if sq.Start != 0 && sq.Start != 1 {
		s += " START WITH " + strconv.FormatInt(sq.Start, 10)
	}
	if sq.Cache > 1 {
		s += " CACHE " + strconv.FormatInt(sq.Cache, 10)
	}
	if sq.Cycle {
		s += " CYCLE"
	}
	if sq.OwnedBy != "" {
		s += " OWNED BY " + sq.OwnedBy
	}
	return s + ";"
}

func createCompositeType(d *dialect.Dialect, ct schema.CompositeType) string {
	fields := make([]string, len(ct.Fields))
	for i, f := range ct.Fields {
		fields[i] = Quote(d, f.Name) + " " + f.Type
	}
	return "CREATE TYPE " + Quote(d, ct.Name) + " AS (" + strings.Join(fields, ", ") + ");"
}

func createExtension(d *dialect.Dialect, e schema.Extension) string {
	return "CREATE EXTENSION IF NOT EXISTS " + d.QuoteIdentifier(e.Name) + ";"
}

func createView(d *dialect.Dialect, v schema.View) string {
	return "CREATE OR REPLACE VIEW " + Quote(d, v.Name) + " AS " + viewBody(v) + ";"
}

func createMatView(d *dialect.Dialect, v schema.View) string {
	return "CREATE MATERIALIZED VIEW IF NOT EXISTS " + Quote(d, v.Name) + " AS " + viewBody(v) + ";"
}

func viewBody(v schema.View) string {
	return strings.TrimSuffix(strings.TrimSpace(v.Definition), ";")
}

func createFunction(d *dialect.Dialect, f schema.Function) string {
	kind := "FUNCTION"
	if f.IsProcedure {
		kind = "PROCEDURE"
	}
	args := make([]string, len(f.Args))
	for i, a := range f.Args {
		if a.Name != "" {
			args[i] = Quote(d, a.Name) + " " + a.Type
		} else {
			args[i] = a.Type
		}
	}
	s := "CREATE OR REPLACE " + kind + " " + Quote(d, f.Name) + "(" + strings.Join(args, ", ") + ")"
	if !f.IsProcedure && f.Returns != "" {
		s += " RETURNS " + f.Returns
	}
	lang := f.Language
	if lang == "" {
		lang = "plpgsql"
	}
	s += " LANGUAGE " + lang
	switch strings.ToLower(f.Volatility) {
	case "immutable":
		s += " IMMUTABLE"
	case "stable":
		s += " STABLE"
	}
	if f.IsStrict {
		s += " STRICT"
	}
	if f.SecurityDefiner {
		s += " SECURITY DEFINER"
	}
	return s + " AS $fn$\n" + strings.TrimSpace(f.Body) + "\n$fn$;"
}

func dropFunction(d *dialect.Dialect, f schema.Function) string {
	kind := "FUNCTION"
	if f.IsProcedure {
		kind = "PROCEDURE"
	}
	return "DROP " + kind + " IF EXISTS " + Quote(d, f.Name) + ";"
}

func createTrigger(d *dialect.Dialect, tr schema.Trigger) string {
	timing := strings.ReplaceAll(strings.ToUpper(tr.Timing), "_", " ")
	events := strings.Join(upperAll(tr.Events), " OR ")
	s := "CREATE TRIGGER " + Quote(d, tr.Name) + " " + timing + " " + events +
		" ON " + Quote(d, tr.Table)
	forEach := tr.ForEach
	if forEach == "" {
		forEach = "ROW"
	}
	s += " FOR EACH " + strings.ToUpper(forEach)
	if tr.When != "" && d.Family == dialect.FamilyPostgres {
		s += " WHEN (" + tr.When + ")"
	}
	if d.Family == dialect.FamilyMySQL {
		// MySQL triggers carry the body inline rather than a function call.
		return s + " " + strings.TrimSuffix(strings.TrimSpace(tr.Function), ";") + ";"
	}
	fn := tr.Function
	if !strings.Contains(fn, "(") {
		fn += "()"
	}
	return s + " EXECUTE FUNCTION " + fn + ";"
}

func dropTrigger(d *dialect.Dialect, tr schema.Trigger) string {
	if d.Family == dialect.FamilyMySQL {
		return "DROP TRIGGER IF EXISTS " + Quote(d, tr.Name) + ";"
	}
	return "DROP TRIGGER IF EXISTS " + Quote(d, tr.Name) + " ON " + Quote(d, tr.Table) + ";"
}

func dropTable(d *dialect.Dialect, name string) string {
	s := "DROP TABLE IF EXISTS " + Quote(d, name)
	if d.Family == dialect.FamilyPostgres {
		s += " CASCADE"
	}
	return s + ";"
}

func quoteList(d *dialect.Dialect, names []string) string {
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = Quote(d, n)
	}
	return strings.Join(out, ", ")
}

// quoteLiteral renders a single-quoted SQL string literal.
func quoteLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

func upperAll(ss []string) []string {
	out := make([]string, len(ss))
	for i, s := range ss {
		out[i] = strings.ToUpper(s)
	}
	return out
}
