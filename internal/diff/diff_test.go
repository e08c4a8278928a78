package diff

import (
	"testing"

	"github.com/driftsql/drift/internal/schema"
)

func strPtr(s string) *string { return &s }
func intPtr(n int) *int       { return &n }

func usersTable() schema.Table {
	return schema.Table{
		Name: "users",
		Columns: []schema.Column{
			{Name: "id", Ordinal: 1, Type: "integer", IsPrimaryKey: true},
			{Name: "email", Ordinal: 2, Type: "varchar", Length: intPtr(255)},
		},
		Constraints: []schema.Constraint{
			{Name: "users_pkey", Kind: schema.PrimaryKey, Columns: []string{"id"}},
		},
	}
}

func TestComputeNoChanges(t *testing.T) {
	a := &schema.Schema{Tables: []schema.Table{usersTable()}}
	b := &schema.Schema{Tables: []schema.Table{usersTable()}}
	d := Compute(a, b)
	if !d.Empty() {
		t.Errorf("expected empty diff, got %s", d.Summary())
	}
}

func TestComputeAddRemoveTable(t *testing.T) {
	observed := &schema.Schema{Tables: []schema.Table{usersTable()}}
	desired := &schema.Schema{Tables: []schema.Table{
		usersTable(),
		{Name: "orders", Columns: []schema.Column{{Name: "id", Type: "bigint"}}},
	}}

	d := Compute(observed, desired)
	if len(d.TablesAdded) != 1 || d.TablesAdded[0].Name != "orders" {
		t.Errorf("TablesAdded = %+v", d.TablesAdded)
	}

	d = Compute(desired, observed)
	if len(d.TablesRemoved) != 1 || d.TablesRemoved[0].Name != "orders" {
		t.Errorf("TablesRemoved = %+v", d.TablesRemoved)
	}
}

func TestComputeColumnFieldChanges(t *testing.T) {
	observed := &schema.Schema{Tables: []schema.Table{usersTable()}}
	desired := &schema.Schema{Tables: []schema.Table{usersTable()}}
	desired.Tables[0].Columns[1].Nullable = true
	desired.Tables[0].Columns[1].Length = intPtr(500)
	desired.Tables[0].Columns[1].Default = strPtr("'unknown'")

	d := Compute(observed, desired)
	if len(d.TablesModified) != 1 {
		t.Fatalf("TablesModified = %+v", d.TablesModified)
	}
	td := d.TablesModified[0]
	if len(td.ColumnsModified) != 1 {
		t.Fatalf("ColumnsModified = %+v", td.ColumnsModified)
	}

	fields := map[string]bool{}
	for _, fc := range td.ColumnsModified[0].Changes {
		fields[fc.Field] = true
	}
	for _, want := range []string{"length", "nullable", "default"} {
		if !fields[want] {
			t.Errorf("missing field change %q in %v", want, td.ColumnsModified[0].Changes)
		}
	}
	if fields["type"] {
		t.Error("length-only change must not report a type change")
	}
}

// Scenario: table renamed via tracking id, column renamed via tracking id,
// one column added. The rename must suppress the added/removed pair.
func TestTrackingIDRename(t *testing.T) {
	observed := &schema.Schema{Tables: []schema.Table{{
		Name:       "customer",
		TrackingID: "T1",
		Columns: []schema.Column{
			{Name: "id", Ordinal: 1, Type: "integer", IsPrimaryKey: true, TrackingID: "C0"},
			{Name: "email", Ordinal: 2, Type: "varchar", Length: intPtr(255), TrackingID: "C1"},
		},
		Constraints: []schema.Constraint{
			{Name: "customer_pkey", Kind: schema.PrimaryKey, Columns: []string{"id"}},
		},
	}}}
	desired := &schema.Schema{Tables: []schema.Table{{
		Name:       "customers",
		TrackingID: "T1",
		Columns: []schema.Column{
			{Name: "id", Ordinal: 1, Type: "integer", IsPrimaryKey: true, TrackingID: "C0"},
			{Name: "email_address", Ordinal: 2, Type: "varchar", Length: intPtr(255), TrackingID: "C1"},
			{Name: "verified", Ordinal: 3, Type: "boolean", Nullable: false, Default: strPtr("false"), TrackingID: "C2"},
		},
		Constraints: []schema.Constraint{
			{Name: "customer_pkey", Kind: schema.PrimaryKey, Columns: []string{"id"}},
		},
	}}}

	d := Compute(observed, desired)

	if len(d.TablesAdded) != 0 || len(d.TablesRemoved) != 0 {
		t.Errorf("rename must suppress add/remove: added=%d removed=%d",
			len(d.TablesAdded), len(d.TablesRemoved))
	}
	if len(d.TablesRenamed) != 1 || d.TablesRenamed[0].From != "customer" || d.TablesRenamed[0].To != "customers" {
		t.Fatalf("TablesRenamed = %+v", d.TablesRenamed)
	}

	if len(d.TablesModified) != 1 {
		t.Fatalf("TablesModified = %+v", d.TablesModified)
	}
	td := d.TablesModified[0]
	if len(td.ColumnsRenamed) != 1 || td.ColumnsRenamed[0].From != "email" || td.ColumnsRenamed[0].To != "email_address" {
		t.Errorf("ColumnsRenamed = %+v", td.ColumnsRenamed)
	}
	if len(td.ColumnsAdded) != 1 || td.ColumnsAdded[0].Name != "verified" {
		t.Errorf("ColumnsAdded = %+v", td.ColumnsAdded)
	}
	if len(td.ColumnsRemoved) != 0 {
		t.Errorf("ColumnsRemoved = %+v", td.ColumnsRemoved)
	}
}

// Renamed entity with a remaining attribute delta reports the delta as a
// modification on the renamed entity.
func TestRenameWithTypeChange(t *testing.T) {
	observed := &schema.Schema{Tables: []schema.Table{{
		Name: "t",
		Columns: []schema.Column{
			{Name: "old_col", Type: "integer", TrackingID: "C1"},
		},
	}}}
	desired := &schema.Schema{Tables: []schema.Table{{
		Name: "t",
		Columns: []schema.Column{
			{Name: "new_col", Type: "bigint", TrackingID: "C1"},
		},
	}}}

	d := Compute(observed, desired)
	td := d.TablesModified[0]
	if len(td.ColumnsRenamed) != 1 {
		t.Fatalf("ColumnsRenamed = %+v", td.ColumnsRenamed)
	}
	cr := td.ColumnsRenamed[0]
	if len(cr.Changes) != 1 || cr.Changes[0].Field != "type" {
		t.Errorf("rename should carry the type change, got %+v", cr.Changes)
	}
}

// Structural twin detection: a table with identical columns on both sides
// under different names, no tracking ids, exactly one candidate.
func TestStructuralTwinRename(t *testing.T) {
	cols := []schema.Column{
		{Name: "id", Ordinal: 1, Type: "integer"},
		{Name: "body", Ordinal: 2, Type: "text"},
	}
	observed := &schema.Schema{Tables: []schema.Table{{Name: "posts", Columns: cols}}}
	desired := &schema.Schema{Tables: []schema.Table{{Name: "articles", Columns: cols}}}

	d := Compute(observed, desired)
	if len(d.TablesRenamed) != 1 || d.TablesRenamed[0].From != "posts" || d.TablesRenamed[0].To != "articles" {
		t.Errorf("TablesRenamed = %+v", d.TablesRenamed)
	}
}

// Two structurally identical candidates: ambiguous, degrade to add/remove.
func TestAmbiguousTwinFallsBack(t *testing.T) {
	cols := []schema.Column{{Name: "id", Ordinal: 1, Type: "integer"}}
	observed := &schema.Schema{Tables: []schema.Table{{Name: "a", Columns: cols}}}
	desired := &schema.Schema{Tables: []schema.Table{
		{Name: "b", Columns: cols},
		{Name: "c", Columns: cols},
	}}

	d := Compute(observed, desired)
	if len(d.TablesRenamed) != 0 {
		t.Errorf("ambiguous twin should not rename: %+v", d.TablesRenamed)
	}
	if len(d.TablesAdded) != 2 || len(d.TablesRemoved) != 1 {
		t.Errorf("added=%d removed=%d", len(d.TablesAdded), len(d.TablesRemoved))
	}
}

func TestEnumValueChanges(t *testing.T) {
	observed := &schema.Schema{Enums: []schema.Enum{{Name: "mood", Values: []string{"happy", "sad"}}}}
	desired := &schema.Schema{Enums: []schema.Enum{{Name: "mood", Values: []string{"happy", "neutral"}}}}

	d := Compute(observed, desired)
	if len(d.EnumsModified) != 1 {
		t.Fatalf("EnumsModified = %+v", d.EnumsModified)
	}
	ed := d.EnumsModified[0]
	if len(ed.ValuesAdded) != 1 || ed.ValuesAdded[0] != "neutral" {
		t.Errorf("ValuesAdded = %v", ed.ValuesAdded)
	}
	if len(ed.ValuesRemoved) != 1 || ed.ValuesRemoved[0] != "sad" {
		t.Errorf("ValuesRemoved = %v", ed.ValuesRemoved)
	}
}

func TestDestructiveClassification(t *testing.T) {
	observed := &schema.Schema{
		Tables: []schema.Table{
			usersTable(),
			{Name: "audit_log", Columns: []schema.Column{{Name: "id", Type: "bigint"}}},
		},
		Enums: []schema.Enum{{Name: "mood", Values: []string{"happy", "sad"}}},
	}
	desired := &schema.Schema{
		Tables: []schema.Table{usersTable()},
		Enums:  []schema.Enum{{Name: "mood", Values: []string{"happy"}}},
	}
	// Narrow a column type too.
	desired.Tables[0].Columns[1].Type = "varchar"
	desired.Tables[0].Columns[1].Length = intPtr(50)

	d := Compute(observed, desired)
	dest := d.DestructiveChanges()

	kinds := map[string]int{}
	for _, x := range dest {
		kinds[x.Kind]++
	}
	if kinds["drop_table"] != 1 {
		t.Errorf("expected one drop_table, got %v", kinds)
	}
	if kinds["type_narrowing"] != 1 {
		t.Errorf("expected one type_narrowing, got %v", kinds)
	}
	if kinds["enum_value_removal"] != 1 {
		t.Errorf("expected one enum_value_removal, got %v", kinds)
	}
}

func TestDefaultNormalization(t *testing.T) {
	observed := &schema.Schema{Tables: []schema.Table{{
		Name:    "t",
		Columns: []schema.Column{{Name: "status", Type: "text", Default: strPtr("'active'::text")}},
	}}}
	desired := &schema.Schema{Tables: []schema.Table{{
		Name:    "t",
		Columns: []schema.Column{{Name: "status", Type: "text", Default: strPtr("active")}},
	}}}

	d := Compute(observed, desired)
	if !d.Empty() {
		t.Errorf("cast-noise defaults should compare equal: %s", d.Summary())
	}
}
