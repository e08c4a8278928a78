package ignore

import (
	"strings"
	"testing"

	"github.com/driftsql/drift/internal/drifterr"
	"github.com/driftsql/drift/internal/schema"
)

func mustParse(t *testing.T, text string) *List {
	t.Helper()
	l, err := Parse(strings.NewReader(text))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	return l
}

func TestParseRejectsParentlessColumn(t *testing.T) {
	_, err := Parse(strings.NewReader("COLUMN:secret\n"))
	if err == nil {
		t.Fatal("expected a load-time rejection")
	}
	if drifterr.KindOf(err) != drifterr.Configuration {
		t.Errorf("kind = %v, want Configuration", drifterr.KindOf(err))
	}
}

func TestParseRejectsUnknownType(t *testing.T) {
	if _, err := Parse(strings.NewReader("WIDGET:foo\n")); err == nil {
		t.Fatal("expected unknown type rejection")
	}
}

func TestParseRejectsParentOnParentlessType(t *testing.T) {
	if _, err := Parse(strings.NewReader("TABLE:users.email\n")); err == nil {
		t.Fatal("expected rejection of TABLE pattern with parent")
	}
}

func TestMatchGlobAndCase(t *testing.T) {
	l := mustParse(t, "TABLE:tmp_*\nTABLE:Legacy?\n")

	tests := []struct {
		typ    Type
		parent string
		name   string
		want   bool
	}{
		{TypeTable, "", "tmp_import", true},
		{TypeTable, "", "TMP_IMPORT", true},
		{TypeTable, "", "temporary", false},
		{TypeTable, "", "legacy1", true},
		{TypeTable, "", "legacy12", false},
		{TypeView, "", "tmp_view", false}, // typed pattern binds to its type
	}
	for _, tt := range tests {
		if got := l.Match(tt.typ, tt.parent, tt.name); got != tt.want {
			t.Errorf("Match(%s, %q, %q) = %v, want %v", tt.typ, tt.parent, tt.name, got, tt.want)
		}
	}
}

func TestLastMatchWinsWithNegation(t *testing.T) {
	l := mustParse(t, "TABLE:tmp_*\n!TABLE:tmp_keep\n")

	if !l.Match(TypeTable, "", "tmp_drop") {
		t.Error("tmp_drop should be ignored")
	}
	if l.Match(TypeTable, "", "tmp_keep") {
		t.Error("tmp_keep was negated, must not be ignored")
	}
}

func TestDefaultsHideBookkeeping(t *testing.T) {
	l := Default()
	if !l.Match(TypeTable, "", "_drift_migrations") {
		t.Error("_drift_migrations must be hidden by default")
	}
	if l.Match(TypeTable, "", "users") {
		t.Error("users must not be hidden")
	}
}

func TestNegateBuiltinDefault(t *testing.T) {
	l := mustParse(t, "!TABLE:_drift_migrations\n")
	if l.Match(TypeTable, "", "_drift_migrations") {
		t.Error("user negation must override the built-in default")
	}
}

func TestUntypedPatternMatchesTopLevelOnly(t *testing.T) {
	l := mustParse(t, "scratch*\n")
	if !l.Match(TypeTable, "", "scratch_data") {
		t.Error("untyped pattern should match a table")
	}
	if !l.Match(TypeSequence, "", "scratch_seq") {
		t.Error("untyped pattern should match a sequence")
	}
	if l.Match(TypeColumn, "users", "scratch_col") {
		t.Error("untyped pattern must not match parented objects")
	}
}

func TestConstraintTypeWidening(t *testing.T) {
	l := mustParse(t, "CONSTRAINT:users.*_fkey\n")
	if !l.Match(TypeForeignKey, "users", "users_org_fkey") {
		t.Error("CONSTRAINT pattern should cover foreign keys")
	}
	if l.Match(TypeForeignKey, "posts", "posts_org_fkey") {
		t.Error("parent glob must bind")
	}
}

func testSchema() *schema.Schema {
	return &schema.Schema{
		Enums: []schema.Enum{{Name: "status", Values: []string{"a"}}},
		Tables: []schema.Table{
			{
				Name: "users",
				Columns: []schema.Column{
					{Name: "id", Type: "integer", IsPrimaryKey: true},
					{Name: "state", Type: "status"},
					{Name: "password_hash", Type: "text"},
				},
				Indexes: []schema.Index{
					{Name: "users_state_idx", Columns: []string{"state"}},
				},
			},
			{Name: "tmp_import", Columns: []schema.Column{{Name: "id", Type: "integer"}}},
			{Name: "_drift_migrations", Columns: []schema.Column{{Name: "id", Type: "integer"}}},
		},
	}
}

func TestApplyFiltersObjects(t *testing.T) {
	l := mustParse(t, "TABLE:tmp_*\nCOLUMN:users.password_hash\n")

	out, err := l.Apply(testSchema())
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if len(out.Tables) != 1 || out.Tables[0].Name != "users" {
		t.Fatalf("tables = %+v, want only users", out.Tables)
	}
	if out.Tables[0].FindColumn("password_hash") != nil {
		t.Error("password_hash should be filtered")
	}
	if out.Tables[0].FindColumn("id") == nil {
		t.Error("id should survive")
	}
}

func TestApplyDependencyValidation(t *testing.T) {
	l := mustParse(t, "ENUM:status\n")

	_, err := l.Apply(testSchema())
	if err == nil {
		t.Fatal("expected IgnoreDependency error")
	}
	if drifterr.KindOf(err) != drifterr.IgnoreDependency {
		t.Fatalf("kind = %v, want IgnoreDependency", drifterr.KindOf(err))
	}
	if !strings.Contains(err.Error(), "users.state") {
		t.Errorf("error must name the offending column: %v", err)
	}
}

func TestApplyIgnoredTypeWithIgnoredColumn(t *testing.T) {
	l := mustParse(t, "ENUM:status\nCOLUMN:users.state\n")

	out, err := l.Apply(testSchema())
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if len(out.Enums) != 0 {
		t.Error("status enum should be filtered")
	}
	if out.Tables[0].FindColumn("state") != nil {
		t.Error("state column should be filtered")
	}
}

func TestApplySequenceDependency(t *testing.T) {
	s := &schema.Schema{
		Sequences: []schema.Sequence{{Name: "order_seq"}},
		Tables: []schema.Table{{
			Name: "orders",
			Columns: []schema.Column{{
				Name: "id", Type: "integer",
				Default: func() *string { d := "nextval('order_seq'::regclass)"; return &d }(),
			}},
		}},
	}
	l := mustParse(t, "SEQUENCE:order_seq\n")

	_, err := l.Apply(s)
	if err == nil {
		t.Fatal("expected IgnoreDependency error")
	}
	if !strings.Contains(err.Error(), "orders.id") {
		t.Errorf("error must name orders.id: %v", err)
	}
}

func TestGlobMatch(t *testing.T) {
	tests := []struct {
		pattern string
		s       string
		want    bool
	}{
		{"*", "anything", true},
		{"users", "users", true},
		{"users", "Users", true},
		{"u*s", "users", true},
		{"u?ers", "users", true},
		{"u?ers", "uers", false},
		{"*_seq", "order_seq", true},
		{"", "x", false},
	}
	for _, tt := range tests {
		if got := globMatch(tt.pattern, tt.s); got != tt.want {
			t.Errorf("globMatch(%q, %q) = %v, want %v", tt.pattern, tt.s, got, tt.want)
		}
	}
}
