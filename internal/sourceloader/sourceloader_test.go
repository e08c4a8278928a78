package sourceloader

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/driftsql/drift/internal/drifterr"
	"github.com/driftsql/drift/internal/schema"
)

func sampleSchema() *schema.Schema {
	return &schema.Schema{
		Tables: []schema.Table{
			{
				Name: "users",
				Columns: []schema.Column{
					{Name: "id", Type: "bigint", IsPrimaryKey: true},
					{Name: "email", Type: "text"},
				},
				Indexes: []schema.Index{
					{Name: "users_email_idx", Columns: []string{"email"}, IsUnique: true},
				},
			},
		},
		Enums: []schema.Enum{{Name: "status", Values: []string{"active", "disabled"}}},
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "schema.json")
	s := sampleSchema()
	AssignTrackingIDs(s, nil)

	hash, err := Save(path, s)
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	src, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if src.Hash != hash {
		t.Errorf("hash mismatch: save %s load %s", hash, src.Hash)
	}
	if !schema.Equal(src.Schema, s) {
		t.Error("loaded schema differs from saved schema")
	}
	if src.Schema.Tables[0].TrackingID == "" {
		t.Error("tracking id lost in round trip")
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "schema.json"))
	if drifterr.KindOf(err) != drifterr.Configuration {
		t.Fatalf("kind = %v, want Configuration", drifterr.KindOf(err))
	}
	if !strings.Contains(err.Error(), "drift pull") {
		t.Errorf("error should point at drift pull: %v", err)
	}
}

func TestLoadInvalidJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "schema.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); drifterr.KindOf(err) != drifterr.Configuration {
		t.Fatalf("kind = %v, want Configuration", drifterr.KindOf(err))
	}
}

func TestLoadRejectsInvalidSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "schema.json")
	body := `{"name":"public","tables":[{"name":"users","columns":[{"name":"id","type":"bigint"},{"name":"id","type":"text"}]}]}`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); drifterr.KindOf(err) != drifterr.SchemaInvariant {
		t.Fatalf("kind = %v, want SchemaInvariant", drifterr.KindOf(err))
	}
}

func TestAssignTrackingIDsCarriesOverByName(t *testing.T) {
	prev := sampleSchema()
	AssignTrackingIDs(prev, nil)

	next := sampleSchema()
	next.Tables[0].Columns = append(next.Tables[0].Columns, schema.Column{Name: "created_at", Type: "timestamptz"})
	AssignTrackingIDs(next, prev)

	if got, want := next.Tables[0].TrackingID, prev.Tables[0].TrackingID; got != want {
		t.Errorf("table id = %s, want carried over %s", got, want)
	}
	if got, want := next.Tables[0].Columns[1].TrackingID, prev.Tables[0].Columns[1].TrackingID; got != want {
		t.Errorf("column id = %s, want carried over %s", got, want)
	}
	if got, want := next.Enums[0].TrackingID, prev.Enums[0].TrackingID; got != want {
		t.Errorf("enum id = %s, want carried over %s", got, want)
	}
	added := next.Tables[0].Columns[2].TrackingID
	if added == "" {
		t.Fatal("new column got no tracking id")
	}
	for _, c := range prev.Tables[0].Columns {
		if c.TrackingID == added {
			t.Error("new column reused an old id")
		}
	}
}

func TestAssignTrackingIDsPreservesExisting(t *testing.T) {
	s := sampleSchema()
	s.Tables[0].TrackingID = "keep-me"
	AssignTrackingIDs(s, nil)
	if s.Tables[0].TrackingID != "keep-me" {
		t.Errorf("explicit id overwritten: %s", s.Tables[0].TrackingID)
	}
}
