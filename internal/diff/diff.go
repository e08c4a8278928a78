// Package diff computes the semantic delta between two canonical schemas:
// the observed schema (what the database has) and the desired schema (what
// the user wrote). The result drives DDL generation.
//
// Identity resolution runs in three passes per entity kind: tracking ids
// first (authoritative across renames), then names, then unambiguous
// structural twins among the leftovers.
package diff

import (
	"fmt"

	"github.com/driftsql/drift/internal/schema"
)

// Rename records an entity present on both sides under different names.
type Rename struct {
	From       string `json:"from"`
	To         string `json:"to"`
	TrackingID string `json:"tracking_id,omitempty"`
}

// FieldChange is one attribute-level difference on a modified entity.
type FieldChange struct {
	Field string `json:"field"` // type, nullable, default, length, precision, scale, unique, primaryKey, comment, identity, array
	From  string `json:"from"`
	To    string `json:"to"`
}

// ColumnDiff is a modified column with its field-level changes.
type ColumnDiff struct {
	Name    string        `json:"name"`
	Old     schema.Column `json:"old"`
	New     schema.Column `json:"new"`
	Changes []FieldChange `json:"changes"`
}

// ColumnRename pairs a rename with any attribute deltas that remain after
// the rename is accounted for.
type ColumnRename struct {
	From    string        `json:"from"`
	To      string        `json:"to"`
	Old     schema.Column `json:"old"`
	New     schema.Column `json:"new"`
	Changes []FieldChange `json:"changes,omitempty"`
}

// IndexDiff is a modified index; indexes are modified by drop+recreate, so
// only the old and new definitions matter.
type IndexDiff struct {
	Name string       `json:"name"`
	Old  schema.Index `json:"old"`
	New  schema.Index `json:"new"`
}

// ConstraintDiff is a modified constraint (drop+recreate as well).
type ConstraintDiff struct {
	Name string            `json:"name"`
	Old  schema.Constraint `json:"old"`
	New  schema.Constraint `json:"new"`
}

// TableDiff collects every change within one table. Name is the desired
// (new) name; OldName differs only when the table was renamed.
type TableDiff struct {
	Name    string `json:"name"`
	OldName string `json:"old_name,omitempty"`

	ColumnsAdded    []schema.Column `json:"columns_added,omitempty"`
	ColumnsRemoved  []schema.Column `json:"columns_removed,omitempty"`
	ColumnsRenamed  []ColumnRename  `json:"columns_renamed,omitempty"`
	ColumnsModified []ColumnDiff    `json:"columns_modified,omitempty"`

	IndexesAdded    []schema.Index `json:"indexes_added,omitempty"`
	IndexesRemoved  []schema.Index `json:"indexes_removed,omitempty"`
	IndexesRenamed  []Rename       `json:"indexes_renamed,omitempty"`
	IndexesModified []IndexDiff    `json:"indexes_modified,omitempty"`

	ConstraintsAdded    []schema.Constraint `json:"constraints_added,omitempty"`
	ConstraintsRemoved  []schema.Constraint `json:"constraints_removed,omitempty"`
	ConstraintsModified []ConstraintDiff    `json:"constraints_modified,omitempty"`

	CommentChanged *FieldChange `json:"comment_changed,omitempty"`
}

// Empty reports whether the table diff carries no changes. A table rename
// by itself lives in SchemaDiff.TablesRenamed, not here.
func (td *TableDiff) Empty() bool {
	return len(td.ColumnsAdded) == 0 && len(td.ColumnsRemoved) == 0 &&
		len(td.ColumnsRenamed) == 0 && len(td.ColumnsModified) == 0 &&
		len(td.IndexesAdded) == 0 && len(td.IndexesRemoved) == 0 &&
		len(td.IndexesRenamed) == 0 && len(td.IndexesModified) == 0 &&
		len(td.ConstraintsAdded) == 0 && len(td.ConstraintsRemoved) == 0 &&
		len(td.ConstraintsModified) == 0 && td.CommentChanged == nil
}

// EnumDiff describes value-level changes to an enum. Removed values are
// reported but never emitted as DDL.
type EnumDiff struct {
	Name          string   `json:"name"`
	ValuesAdded   []string `json:"values_added,omitempty"`
	ValuesRemoved []string `json:"values_removed,omitempty"`
}

// NamedDiff is a generic modified record for entities compared wholesale
// (domains, sequences, functions, triggers, views).
type NamedDiff struct {
	Name string `json:"name"`
}

// SchemaDiff is the complete delta between two schemas.
type SchemaDiff struct {
	TablesAdded    []schema.Table `json:"tables_added,omitempty"`
	TablesRemoved  []schema.Table `json:"tables_removed,omitempty"`
	TablesRenamed  []Rename       `json:"tables_renamed,omitempty"`
	TablesModified []TableDiff    `json:"tables_modified,omitempty"`

	EnumsAdded    []schema.Enum `json:"enums_added,omitempty"`
	EnumsRemoved  []schema.Enum `json:"enums_removed,omitempty"`
	EnumsRenamed  []Rename      `json:"enums_renamed,omitempty"`
	EnumsModified []EnumDiff    `json:"enums_modified,omitempty"`

	DomainsAdded   []schema.Domain `json:"domains_added,omitempty"`
	DomainsRemoved []schema.Domain `json:"domains_removed,omitempty"`

	SequencesAdded   []schema.Sequence `json:"sequences_added,omitempty"`
	SequencesRemoved []schema.Sequence `json:"sequences_removed,omitempty"`
	SequencesRenamed []Rename          `json:"sequences_renamed,omitempty"`

	CompositeTypesAdded   []schema.CompositeType `json:"composite_types_added,omitempty"`
	CompositeTypesRemoved []schema.CompositeType `json:"composite_types_removed,omitempty"`

	ExtensionsAdded   []schema.Extension `json:"extensions_added,omitempty"`
	ExtensionsRemoved []schema.Extension `json:"extensions_removed,omitempty"`

	FunctionsAdded    []schema.Function `json:"functions_added,omitempty"`
	FunctionsRemoved  []schema.Function `json:"functions_removed,omitempty"`
	FunctionsRenamed  []Rename          `json:"functions_renamed,omitempty"`
	FunctionsModified []schema.Function `json:"functions_modified,omitempty"` // new definition, replaced wholesale

	TriggersAdded    []schema.Trigger `json:"triggers_added,omitempty"`
	TriggersRemoved  []schema.Trigger `json:"triggers_removed,omitempty"`
	TriggersModified []schema.Trigger `json:"triggers_modified,omitempty"`

	ViewsAdded    []schema.View `json:"views_added,omitempty"`
	ViewsRemoved  []schema.View `json:"views_removed,omitempty"`
	ViewsModified []schema.View `json:"views_modified,omitempty"`

	MatViewsAdded   []schema.View `json:"mat_views_added,omitempty"`
	MatViewsRemoved []schema.View `json:"mat_views_removed,omitempty"`
}

// Empty reports whether the diff carries no changes at all.
func (d *SchemaDiff) Empty() bool {
	return len(d.TablesAdded) == 0 && len(d.TablesRemoved) == 0 &&
		len(d.TablesRenamed) == 0 && len(d.TablesModified) == 0 &&
		len(d.EnumsAdded) == 0 && len(d.EnumsRemoved) == 0 &&
		len(d.EnumsRenamed) == 0 && len(d.EnumsModified) == 0 &&
		len(d.DomainsAdded) == 0 && len(d.DomainsRemoved) == 0 &&
		len(d.SequencesAdded) == 0 && len(d.SequencesRemoved) == 0 &&
		len(d.SequencesRenamed) == 0 &&
		len(d.CompositeTypesAdded) == 0 && len(d.CompositeTypesRemoved) == 0 &&
		len(d.ExtensionsAdded) == 0 && len(d.ExtensionsRemoved) == 0 &&
		len(d.FunctionsAdded) == 0 && len(d.FunctionsRemoved) == 0 &&
		len(d.FunctionsRenamed) == 0 && len(d.FunctionsModified) == 0 &&
		len(d.TriggersAdded) == 0 && len(d.TriggersRemoved) == 0 &&
		len(d.TriggersModified) == 0 &&
		len(d.ViewsAdded) == 0 && len(d.ViewsRemoved) == 0 && len(d.ViewsModified) == 0 &&
		len(d.MatViewsAdded) == 0 && len(d.MatViewsRemoved) == 0
}

// Summary renders a one-line human count of the diff.
func (d *SchemaDiff) Summary() string {
	if d.Empty() {
		return "no changes"
	}
	add := len(d.TablesAdded) + len(d.EnumsAdded) + len(d.DomainsAdded) +
		len(d.SequencesAdded) + len(d.ViewsAdded) + len(d.FunctionsAdded) + len(d.TriggersAdded)
	drop := len(d.TablesRemoved) + len(d.EnumsRemoved) + len(d.DomainsRemoved) +
		len(d.SequencesRemoved) + len(d.ViewsRemoved) + len(d.FunctionsRemoved) + len(d.TriggersRemoved)
	ren := len(d.TablesRenamed) + len(d.EnumsRenamed) + len(d.SequencesRenamed) + len(d.FunctionsRenamed)
	mod := len(d.TablesModified) + len(d.EnumsModified) + len(d.FunctionsModified) +
		len(d.TriggersModified) + len(d.ViewsModified)
	return fmt.Sprintf("%d added, %d removed, %d renamed, %d modified", add, drop, ren, mod)
}
