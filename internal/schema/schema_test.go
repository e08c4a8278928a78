package schema

import (
	"testing"
)

func TestCanonicalize(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		wantType  string
		wantLen   int // -1 means nil
		wantPrec  int
		wantScale int
		wantArray bool
	}{
		{"int4", "int4", "integer", -1, -1, -1, false},
		{"bool", "bool", "boolean", -1, -1, -1, false},
		{"timestamptz", "timestamptz", "timestamp with time zone", -1, -1, -1, false},
		{"varchar with length", "varchar(255)", "varchar", 255, -1, -1, false},
		{"character varying", "character varying(40)", "varchar", 40, -1, -1, false},
		{"numeric full", "numeric(10, 2)", "numeric", -1, 10, 2, false},
		{"decimal alias", "DECIMAL(8,3)", "numeric", -1, 8, 3, false},
		{"pg catalog array", "_int4", "integer", -1, -1, -1, true},
		{"bracket array", "text[]", "text", -1, -1, -1, true},
		{"mysql tinyint", "tinyint", "smallint", -1, -1, -1, false},
		{"mysql longtext", "longtext", "text", -1, -1, -1, false},
		{"plain text", "text", "text", -1, -1, -1, false},
		{"upper case", "INTEGER", "integer", -1, -1, -1, false},
		{"timestamp precision", "timestamp(3)", "timestamp", -1, 3, -1, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotType, length, prec, scale, isArray := Canonicalize(tt.input)
			if gotType != tt.wantType {
				t.Errorf("type = %q, want %q", gotType, tt.wantType)
			}
			checkIntPtr(t, "length", length, tt.wantLen)
			checkIntPtr(t, "precision", prec, tt.wantPrec)
			checkIntPtr(t, "scale", scale, tt.wantScale)
			if isArray != tt.wantArray {
				t.Errorf("isArray = %v, want %v", isArray, tt.wantArray)
			}
		})
	}
}

func checkIntPtr(t *testing.T, field string, got *int, want int) {
	t.Helper()
	if want == -1 {
		if got != nil {
			t.Errorf("%s = %d, want nil", field, *got)
		}
		return
	}
	if got == nil {
		t.Errorf("%s = nil, want %d", field, want)
	} else if *got != want {
		t.Errorf("%s = %d, want %d", field, *got, want)
	}
}

func TestTypeString(t *testing.T) {
	length := 255
	prec, scale := 10, 2

	tests := []struct {
		name string
		col  Column
		want string
	}{
		{"plain", Column{Type: "integer"}, "integer"},
		{"length", Column{Type: "varchar", Length: &length}, "varchar(255)"},
		{"precision scale", Column{Type: "numeric", Precision: &prec, Scale: &scale}, "numeric(10,2)"},
		{"array", Column{Type: "text", IsArray: true}, "text[]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.col.TypeString(); got != tt.want {
				t.Errorf("TypeString() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestIsNarrowing(t *testing.T) {
	len100, len50 := 100, 50

	tests := []struct {
		name string
		old  Column
		new  Column
		want bool
	}{
		{"same type", Column{Type: "integer"}, Column{Type: "integer"}, false},
		{"int widening", Column{Type: "integer"}, Column{Type: "bigint"}, false},
		{"int narrowing", Column{Type: "bigint"}, Column{Type: "integer"}, true},
		{"varchar shrink", Column{Type: "varchar", Length: &len100}, Column{Type: "varchar", Length: &len50}, true},
		{"varchar grow", Column{Type: "varchar", Length: &len50}, Column{Type: "varchar", Length: &len100}, false},
		{"to text", Column{Type: "varchar", Length: &len50}, Column{Type: "text"}, false},
		{"unknown transition", Column{Type: "uuid"}, Column{Type: "integer"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsNarrowing(tt.old, tt.new); got != tt.want {
				t.Errorf("IsNarrowing() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	valid := &Schema{
		Tables: []Table{
			{
				Name: "users",
				Columns: []Column{
					{Name: "id", Type: "integer", IsPrimaryKey: true},
					{Name: "email", Type: "varchar"},
				},
				Constraints: []Constraint{
					{Name: "users_pkey", Kind: PrimaryKey, Columns: []string{"id"}},
				},
				Indexes: []Index{
					{Name: "users_email_idx", Columns: []string{"email"}, IsUnique: true},
				},
			},
			{
				Name: "orders",
				Columns: []Column{
					{Name: "id", Type: "integer", IsPrimaryKey: true},
					{Name: "user_id", Type: "integer"},
				},
				Constraints: []Constraint{
					{Name: "orders_pkey", Kind: PrimaryKey, Columns: []string{"id"}},
					{Name: "orders_user_fk", Kind: ForeignKey, Columns: []string{"user_id"},
						ReferencedTable: "users", ReferencedColumns: []string{"id"}},
				},
			},
		},
	}
	if err := valid.Validate(); err != nil {
		t.Fatalf("valid schema: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*Schema)
	}{
		{"duplicate table", func(s *Schema) { s.Tables = append(s.Tables, Table{Name: "users"}) }},
		{"duplicate column", func(s *Schema) {
			s.Tables[0].Columns = append(s.Tables[0].Columns, Column{Name: "email"})
		}},
		{"fk unknown table", func(s *Schema) {
			s.Tables[1].Constraints[1].ReferencedTable = "ghosts"
		}},
		{"fk unknown column", func(s *Schema) {
			s.Tables[1].Constraints[1].ReferencedColumns = []string{"ghost_id"}
		}},
		{"fk column count mismatch", func(s *Schema) {
			s.Tables[1].Constraints[1].ReferencedColumns = []string{"id", "email"}
		}},
		{"index unknown column", func(s *Schema) {
			s.Tables[0].Indexes[0].Columns = []string{"ghost"}
		}},
		{"pk flag without constraint membership", func(s *Schema) {
			s.Tables[0].Columns[1].IsPrimaryKey = true
		}},
		{"trigger unknown table", func(s *Schema) {
			s.Triggers = append(s.Triggers, Trigger{Name: "trg", Table: "ghosts"})
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := valid.Clone()
			tt.mutate(s)
			if err := s.Validate(); err == nil {
				t.Error("expected validation error, got nil")
			}
		})
	}
}

func TestEqualIgnoresOrderAndIncidentals(t *testing.T) {
	a := &Schema{
		Tables: []Table{
			{Name: "b", Columns: []Column{{Name: "x", Type: "integer", Ordinal: 1}}},
			{Name: "a", Comment: "left comment", TrackingID: "T1",
				Columns: []Column{{Name: "y", Type: "text", Ordinal: 1}}},
		},
		Enums: []Enum{{Name: "mood", Values: []string{"happy", "sad"}}},
	}
	b := &Schema{
		Tables: []Table{
			{Name: "a", Columns: []Column{{Name: "y", Type: "text", Ordinal: 3}}},
			{Name: "b", TrackingID: "T9", Columns: []Column{{Name: "x", Type: "integer", Ordinal: 2}}},
		},
		Enums: []Enum{{Name: "mood", Values: []string{"happy", "sad"}}},
	}

	if !Equal(a, b) {
		t.Error("schemas differing only in order, comments, and tracking ids should be equal")
	}

	// Enum value order is semantic.
	b.Enums[0].Values = []string{"sad", "happy"}
	if Equal(a, b) {
		t.Error("enum value order must participate in equality")
	}
}

func TestCloneIsDeep(t *testing.T) {
	s := &Schema{Tables: []Table{{Name: "t", Columns: []Column{{Name: "c", Type: "integer"}}}}}
	c := s.Clone()
	c.Tables[0].Columns[0].Name = "changed"
	if s.Tables[0].Columns[0].Name != "c" {
		t.Error("clone shares column storage with original")
	}
}
