// Package ddl turns a schema diff into ordered forward and reverse SQL.
//
// Statement ordering follows a fixed policy: renames first (so every later
// statement addresses objects by their new names), then enum value
// additions, column modifications, creation of independent objects, tables,
// columns, indexes, and code objects, then deferred foreign keys, and drops
// last in reverse dependency order. The down list is the exact reversal of
// the up list with each step semantically inverted; irreversible steps
// leave a commented caveat instead of losing data silently.
package ddl

import (
	"fmt"
	"strings"

	"github.com/driftsql/drift/internal/dialect"
	"github.com/driftsql/drift/internal/diff"
	"github.com/driftsql/drift/internal/schema"
)

// Script is the generated migration: ordered forward statements and their
// reversal. Entries starting with "-- caveat:" are comments standing in for
// statements that cannot be generated losslessly.
type Script struct {
	Up   []string `json:"up"`
	Down []string `json:"down"`
}

// Empty reports whether the script contains no statements.
func (s *Script) Empty() bool { return len(s.Up) == 0 && len(s.Down) == 0 }

// Generate renders the diff as DDL for the target dialect. Unsupported
// features are still rendered; the dialect validator is responsible for
// rejecting them with an explanation.
func Generate(sd *diff.SchemaDiff, d *dialect.Dialect) (*Script, error) {
	if sd == nil {
		return nil, fmt.Errorf("ddl: nil diff")
	}
	if d == nil {
		return nil, fmt.Errorf("ddl: nil dialect")
	}

	g := &generator{d: d, diff: sd}
	g.renames()
	g.enumValues()
	g.columnModifications()
	g.createIndependents()
	g.createTables()
	g.addColumns()
	g.addConstraints()
	g.createIndexes()
	g.createCode()
	g.deferredForeignKeys()
	g.drops()

	// Down statements were collected in forward order alongside their up
	// counterparts; reversing them yields the semantic inverse script.
	for i, j := 0, len(g.down)-1; i < j; i, j = i+1, j-1 {
		g.down[i], g.down[j] = g.down[j], g.down[i]
	}
	return &Script{Up: g.up, Down: g.down}, nil
}

type generator struct {
	d    *dialect.Dialect
	diff *diff.SchemaDiff

	up   []string
	down []string

	// deferredFKs are foreign keys pulled out of CREATE TABLE because the
	// referenced table does not exist yet at that point in the script.
	deferredFKs []deferredFK
}

type deferredFK struct {
	table string
	con   schema.Constraint
}

// emit records an up statement and its down counterpart. Either side may be
// empty when there is nothing to say in that direction.
func (g *generator) emit(up, down string) {
	if up != "" {
		g.up = append(g.up, up)
	}
	if down != "" {
		g.down = append(g.down, down)
	}
}

func (g *generator) quote(name string) string { return Quote(g.d, name) }

func caveat(format string, args ...any) string {
	return "-- caveat: " + fmt.Sprintf(format, args...)
}

func (g *generator) renames() {
	for _, r := range g.diff.EnumsRenamed {
		g.emit(
			"ALTER TYPE "+g.quote(r.From)+" RENAME TO "+g.quote(r.To)+";",
			"ALTER TYPE "+g.quote(r.To)+" RENAME TO "+g.quote(r.From)+";",
		)
	}
	for _, r := range g.diff.SequencesRenamed {
		g.emit(
			"ALTER SEQUENCE "+g.quote(r.From)+" RENAME TO "+g.quote(r.To)+";",
			"ALTER SEQUENCE "+g.quote(r.To)+" RENAME TO "+g.quote(r.From)+";",
		)
	}
	for _, r := range g.diff.TablesRenamed {
		g.emit(
			"ALTER TABLE "+g.quote(r.From)+" RENAME TO "+g.quote(r.To)+";",
			"ALTER TABLE "+g.quote(r.To)+" RENAME TO "+g.quote(r.From)+";",
		)
	}
	for _, td := range g.diff.TablesModified {
		t := g.quote(td.Name)
		for _, r := range td.ColumnsRenamed {
			g.emit(
				"ALTER TABLE "+t+" RENAME COLUMN "+g.quote(r.From)+" TO "+g.quote(r.To)+";",
				"ALTER TABLE "+t+" RENAME COLUMN "+g.quote(r.To)+" TO "+g.quote(r.From)+";",
			)
		}
		for _, r := range td.IndexesRenamed {
			if g.d.Family == dialect.FamilyMySQL {
				g.emit(
					"ALTER TABLE "+t+" RENAME INDEX "+g.quote(r.From)+" TO "+g.quote(r.To)+";",
					"ALTER TABLE "+t+" RENAME INDEX "+g.quote(r.To)+" TO "+g.quote(r.From)+";",
				)
				continue
			}
			g.emit(
				"ALTER INDEX "+g.quote(r.From)+" RENAME TO "+g.quote(r.To)+";",
				"ALTER INDEX "+g.quote(r.To)+" RENAME TO "+g.quote(r.From)+";",
			)
		}
	}
	for _, r := range g.diff.FunctionsRenamed {
		g.emit(
			"ALTER FUNCTION "+g.quote(r.From)+" RENAME TO "+g.quote(r.To)+";",
			"ALTER FUNCTION "+g.quote(r.To)+" RENAME TO "+g.quote(r.From)+";",
		)
	}
}

func (g *generator) enumValues() {
	for _, ed := range g.diff.EnumsModified {
		for _, v := range ed.ValuesAdded {
			g.emit(
				"ALTER TYPE "+g.quote(ed.Name)+" ADD VALUE IF NOT EXISTS "+quoteLiteral(v)+";",
				caveat("enum %q keeps value %s; enum values cannot be dropped, remove manually if required", ed.Name, quoteLiteral(v)),
			)
		}
		for _, v := range ed.ValuesRemoved {
			g.emit(
				caveat("enum %q no longer declares value %s; dropping enum values is not supported, existing rows keep it", ed.Name, quoteLiteral(v)),
				"",
			)
		}
	}
}

func (g *generator) columnModifications() {
	for _, td := range g.diff.TablesModified {
		for _, cd := range td.ColumnsModified {
			g.alterColumn(td.Name, cd.Old, cd.New, cd.Changes)
		}
		for _, cr := range td.ColumnsRenamed {
			if len(cr.Changes) == 0 {
				continue
			}
			// The rename already ran; the remaining deltas address the
			// column by its new name on both sides.
			old := cr.Old
			old.Name = cr.New.Name
			g.alterColumn(td.Name, old, cr.New, cr.Changes)
		}
		for _, kd := range td.ConstraintsModified {
			g.dropConstraint(td.Name, kd.Old)
			g.addConstraint(td.Name, kd.New)
		}
		if td.CommentChanged != nil {
			g.tableComment(td.Name, td.CommentChanged.To, td.CommentChanged.From)
		}
	}
}

// alterColumn emits the per-field ALTER statements moving old to new. MySQL
// gets a single MODIFY COLUMN carrying the full new definition.
func (g *generator) alterColumn(table string, old, new schema.Column, changes []diff.FieldChange) {
	t := g.quote(table)

	if g.d.Family == dialect.FamilyMySQL {
		g.emit(
			"ALTER TABLE "+t+" MODIFY COLUMN "+columnDef(g.d, new)+";",
			"ALTER TABLE "+t+" MODIFY COLUMN "+columnDef(g.d, old)+";",
		)
		g.alterColumnUnique(table, old, new, changes)
		return
	}

	c := g.quote(new.Name)
	for _, ch := range changes {
		switch ch.Field {
		case "type", "length", "precision", "scale":
			// Multiple width fields collapse into one TYPE statement.
			if typeEmitted(changes, ch) {
				continue
			}
			newType := renderType(g.d, new)
			oldType := renderType(g.d, old)
			g.emit(
				fmt.Sprintf("ALTER TABLE %s ALTER COLUMN %s TYPE %s USING %s::%s;", t, c, newType, c, newType),
				fmt.Sprintf("ALTER TABLE %s ALTER COLUMN %s TYPE %s USING %s::%s;", t, c, oldType, c, oldType),
			)
		case "nullable":
			if new.Nullable {
				g.emit(
					"ALTER TABLE "+t+" ALTER COLUMN "+c+" DROP NOT NULL;",
					"ALTER TABLE "+t+" ALTER COLUMN "+c+" SET NOT NULL;",
				)
			} else {
				g.emit(
					"ALTER TABLE "+t+" ALTER COLUMN "+c+" SET NOT NULL;",
					"ALTER TABLE "+t+" ALTER COLUMN "+c+" DROP NOT NULL;",
				)
			}
		case "default":
			g.emit(
				"ALTER TABLE "+t+" ALTER COLUMN "+c+" "+defaultClause(new.Default)+";",
				"ALTER TABLE "+t+" ALTER COLUMN "+c+" "+defaultClause(old.Default)+";",
			)
		case "identity":
			g.alterIdentity(t, c, old.Identity, new.Identity)
		case "comment":
			g.columnComment(table, new.Name, new.Comment, old.Comment)
		}
	}
	g.alterColumnUnique(table, old, new, changes)
}

// typeEmitted keeps only the first width-related change responsible for the
// TYPE statement.
func typeEmitted(changes []diff.FieldChange, current diff.FieldChange) bool {
	for _, ch := range changes {
		switch ch.Field {
		case "type", "length", "precision", "scale":
			return ch != current
		}
	}
	return false
}

func (g *generator) alterColumnUnique(table string, old, new schema.Column, changes []diff.FieldChange) {
	changed := false
	for _, ch := range changes {
		if ch.Field == "unique" {
			changed = true
		}
	}
	if !changed {
		return
	}
	name := table + "_" + new.Name + "_key"
	con := schema.Constraint{Name: name, Kind: schema.Unique, Columns: []string{new.Name}}
	if new.IsUnique {
		g.addConstraint(table, con)
	} else {
		g.dropConstraint(table, con)
	}
}

func (g *generator) alterIdentity(t, c, oldID, newID string) {
	switch {
	case newID == "":
		g.emit(
			"ALTER TABLE "+t+" ALTER COLUMN "+c+" DROP IDENTITY IF EXISTS;",
			"ALTER TABLE "+t+" ALTER COLUMN "+c+" ADD "+identityClause(oldID)+";",
		)
	case oldID == "":
		g.emit(
			"ALTER TABLE "+t+" ALTER COLUMN "+c+" ADD "+identityClause(newID)+";",
			"ALTER TABLE "+t+" ALTER COLUMN "+c+" DROP IDENTITY IF EXISTS;",
		)
	default:
		g.emit(
			"ALTER TABLE "+t+" ALTER COLUMN "+c+" SET "+generatedKeyword(newID)+";",
			"ALTER TABLE "+t+" ALTER COLUMN "+c+" SET "+generatedKeyword(oldID)+";",
		)
	}
}

func identityClause(id string) string {
	return generatedKeyword(id) + " AS IDENTITY"
}

func generatedKeyword(id string) string {
	if id == "always" {
		return "GENERATED ALWAYS"
	}
	return "GENERATED BY DEFAULT"
}

func defaultClause(def *string) string {
	if def == nil {
		return "DROP DEFAULT"
	}
	return "SET DEFAULT " + *def
}

func (g *generator) columnComment(table, column, to, from string) {
	if g.d.Family != dialect.FamilyPostgres {
		return
	}
	target := "COLUMN " + g.quote(table) + "." + g.quote(column)
	g.emit(
		"COMMENT ON "+target+" IS "+commentLiteral(to)+";",
		"COMMENT ON "+target+" IS "+commentLiteral(from)+";",
	)
}

func (g *generator) tableComment(table, to, from string) {
	switch g.d.Family {
	case dialect.FamilyPostgres:
		g.emit(
			"COMMENT ON TABLE "+g.quote(table)+" IS "+commentLiteral(to)+";",
			"COMMENT ON TABLE "+g.quote(table)+" IS "+commentLiteral(from)+";",
		)
	case dialect.FamilyMySQL:
		g.emit(
			"ALTER TABLE "+g.quote(table)+" COMMENT = "+quoteLiteral(to)+";",
			"ALTER TABLE "+g.quote(table)+" COMMENT = "+quoteLiteral(from)+";",
		)
	}
}

func commentLiteral(s string) string {
	if s == "" {
		return "NULL"
	}
	return quoteLiteral(s)
}

func (g *generator) createIndependents() {
	for _, e := range g.diff.ExtensionsAdded {
		g.emit(createExtension(g.d, e), "DROP EXTENSION IF EXISTS "+g.d.QuoteIdentifier(e.Name)+";")
	}
	for _, e := range g.diff.EnumsAdded {
		g.emit(createEnum(g.d, e), "DROP TYPE IF EXISTS "+g.quote(e.Name)+";")
	}
	for _, dm := range g.diff.DomainsAdded {
		g.emit(createDomain(g.d, dm), "DROP DOMAIN IF EXISTS "+g.quote(dm.Name)+";")
	}
	for _, sq := range g.diff.SequencesAdded {
		g.emit(createSequence(g.d, sq), "DROP SEQUENCE IF EXISTS "+g.quote(sq.Name)+";")
	}
	for _, ct := range g.diff.CompositeTypesAdded {
		g.emit(createCompositeType(g.d, ct), "DROP TYPE IF EXISTS "+g.quote(ct.Name)+";")
	}
}

func (g *generator) createTables() {
	addedSet := make(map[string]bool, len(g.diff.TablesAdded))
	for _, t := range g.diff.TablesAdded {
		addedSet[t.Name] = true
	}

	for i := range g.diff.TablesAdded {
		t := &g.diff.TablesAdded[i]
		stmt, deferred := createTable(g.d, t, func(c schema.Constraint) bool {
			// Inline only single-column FKs whose target already exists and
			// whose name is the default; everything else runs after all
			// tables are created.
			if len(c.Columns) != 1 {
				return true
			}
			if addedSet[c.ReferencedTable] && c.ReferencedTable != t.Name {
				return true
			}
			if c.Name != "" && c.Name != t.Name+"_"+c.Columns[0]+"_fkey" {
				return true
			}
			return false
		})
		g.emit(stmt, dropTable(g.d, t.Name))
		for _, c := range deferred {
			g.deferredFKs = append(g.deferredFKs, deferredFK{table: t.Name, con: c})
		}
	}
}

func (g *generator) addColumns() {
	for _, td := range g.diff.TablesModified {
		t := g.quote(td.Name)
		for _, c := range td.ColumnsAdded {
			g.emit(
				"ALTER TABLE "+t+" ADD COLUMN "+columnDef(g.d, c)+";",
				g.dropColumnStmt(td.Name, c.Name),
			)
		}
	}
}

func (g *generator) dropColumnStmt(table, column string) string {
	if g.d.Family == dialect.FamilyMySQL {
		return "ALTER TABLE " + g.quote(table) + " DROP COLUMN " + g.quote(column) + ";"
	}
	return "ALTER TABLE " + g.quote(table) + " DROP COLUMN IF EXISTS " + g.quote(column) + ";"
}

func (g *generator) addConstraints() {
	for _, td := range g.diff.TablesModified {
		for _, c := range td.ConstraintsAdded {
			if c.Kind == schema.ForeignKey {
				g.deferredFKs = append(g.deferredFKs, deferredFK{table: td.Name, con: c})
				continue
			}
			g.addConstraint(td.Name, c)
		}
	}
}

func (g *generator) addConstraint(table string, c schema.Constraint) {
	g.emit(
		"ALTER TABLE "+g.quote(table)+" ADD CONSTRAINT "+g.quote(c.Name)+" "+constraintDef(g.d, c)+";",
		g.dropConstraintStmt(table, c.Name),
	)
}

func (g *generator) dropConstraint(table string, c schema.Constraint) {
	g.emit(
		g.dropConstraintStmt(table, c.Name),
		"ALTER TABLE "+g.quote(table)+" ADD CONSTRAINT "+g.quote(c.Name)+" "+constraintDef(g.d, c)+";",
	)
}

func (g *generator) dropConstraintStmt(table, name string) string {
	if g.d.Family == dialect.FamilyMySQL {
		return "ALTER TABLE " + g.quote(table) + " DROP CONSTRAINT " + g.quote(name) + ";"
	}
	return "ALTER TABLE " + g.quote(table) + " DROP CONSTRAINT IF EXISTS " + g.quote(name) + ";"
}

func (g *generator) createIndexes() {
	for _, td := range g.diff.TablesModified {
		for _, id := range td.IndexesModified {
			g.emit(dropIndex(g.d, td.Name, id.Old.Name), createIndex(g.d, td.Name, id.Old))
			g.emit(createIndex(g.d, td.Name, id.New), dropIndex(g.d, td.Name, id.New.Name))
		}
		for _, ix := range td.IndexesAdded {
			g.emit(createIndex(g.d, td.Name, ix), dropIndex(g.d, td.Name, ix.Name))
		}
	}
	for _, t := range g.diff.TablesAdded {
		for _, ix := range t.Indexes {
			g.emit(createIndex(g.d, t.Name, ix), dropIndex(g.d, t.Name, ix.Name))
		}
	}
}

func (g *generator) createCode() {
	for _, v := range g.diff.ViewsAdded {
		g.emit(createView(g.d, v), "DROP VIEW IF EXISTS "+g.quote(v.Name)+";")
	}
	for _, v := range g.diff.ViewsModified {
		g.emit(createView(g.d, v),
			caveat("view %q replaced; previous definition is not restored automatically", v.Name))
	}
	for _, v := range g.diff.MatViewsAdded {
		g.emit(createMatView(g.d, v), "DROP MATERIALIZED VIEW IF EXISTS "+g.quote(v.Name)+";")
	}
	for _, f := range g.diff.FunctionsAdded {
		g.emit(createFunction(g.d, f), dropFunction(g.d, f))
	}
	for _, f := range g.diff.FunctionsModified {
		g.emit(createFunction(g.d, f),
			caveat("function %q replaced; previous definition is not restored automatically", f.Name))
	}
	for _, tr := range g.diff.TriggersAdded {
		g.emit(createTrigger(g.d, tr), dropTrigger(g.d, tr))
	}
	for _, tr := range g.diff.TriggersModified {
		g.emit(dropTrigger(g.d, tr), "")
		g.emit(createTrigger(g.d, tr),
			caveat("trigger %q replaced; previous definition is not restored automatically", tr.Name))
	}
}

func (g *generator) deferredForeignKeys() {
	for _, fk := range g.deferredFKs {
		g.addConstraint(fk.table, fk.con)
	}
}

func (g *generator) drops() {
	for _, tr := range g.diff.TriggersRemoved {
		g.emit(dropTrigger(g.d, tr), createTrigger(g.d, tr))
	}
	for _, f := range g.diff.FunctionsRemoved {
		g.emit(dropFunction(g.d, f), createFunction(g.d, f))
	}
	for _, v := range g.diff.ViewsRemoved {
		g.emit("DROP VIEW IF EXISTS "+g.quote(v.Name)+";", createView(g.d, v))
	}
	for _, v := range g.diff.MatViewsRemoved {
		g.emit("DROP MATERIALIZED VIEW IF EXISTS "+g.quote(v.Name)+";", createMatView(g.d, v))
	}

	for _, td := range g.diff.TablesModified {
		for _, ix := range td.IndexesRemoved {
			g.emit(dropIndex(g.d, td.Name, ix.Name), createIndex(g.d, td.Name, ix))
		}
		for _, c := range td.ConstraintsRemoved {
			g.dropConstraint(td.Name, c)
		}
		for _, c := range td.ColumnsRemoved {
			g.emit(
				g.dropColumnStmt(td.Name, c.Name),
				"ALTER TABLE "+g.quote(td.Name)+" ADD COLUMN "+columnDef(g.d, c)+";",
			)
		}
	}

	for i := range g.diff.TablesRemoved {
		t := &g.diff.TablesRemoved[i]
		// Index downs are collected before the table down so the reversed
		// script recreates the table before its indexes.
		for _, ix := range t.Indexes {
			g.emit("", createIndex(g.d, t.Name, ix))
		}
		recreate, _ := createTable(g.d, t, nil)
		g.emit(dropTable(g.d, t.Name), recreate)
	}

	for _, ct := range g.diff.CompositeTypesRemoved {
		g.emit("DROP TYPE IF EXISTS "+g.quote(ct.Name)+";", createCompositeType(g.d, ct))
	}
	for _, sq := range g.diff.SequencesRemoved {
		g.emit("DROP SEQUENCE IF EXISTS "+g.quote(sq.Name)+";", createSequence(g.d, sq))
	}
	for _, dm := range g.diff.DomainsRemoved {
		g.emit("DROP DOMAIN IF EXISTS "+g.quote(dm.Name)+";", createDomain(g.d, dm))
	}
	for _, e := range g.diff.EnumsRemoved {
		g.emit("DROP TYPE IF EXISTS "+g.quote(e.Name)+";", createEnum(g.d, e))
	}
	for _, e := range g.diff.ExtensionsRemoved {
		g.emit("DROP EXTENSION IF EXISTS "+g.d.QuoteIdentifier(e.Name)+";", createExtension(g.d, e))
	}
}

// Render joins the statements of one direction into a single SQL text with
// a trailing newline per statement, suitable for writing to a file.
func Render(stmts []string) string {
	if len(stmts) == 0 {
		return ""
	}
	return strings.Join(stmts, "\n\n") + "\n"
}
