package ddl

import (
	"strings"
	"testing"

	"github.com/driftsql/drift/internal/dialect"
	"github.com/driftsql/drift/internal/diff"
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

func mustGenerate(t *testing.T, sd *diff.SchemaDiff, d *dialect.Dialect) *Script {
	t.Helper()
	s, err := Generate(sd, d)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	return s
}

func TestAddColumn(t *testing.T) {
	observed := &schema.Schema{Tables: []schema.Table{usersTable()}}
	desired := &schema.Schema{Tables: []schema.Table{usersTable()}}
	desired.Tables[0].Columns = append(desired.Tables[0].Columns, schema.Column{
		Name: "created_at", Ordinal: 3, Type: "timestamp with time zone",
		Default: strPtr("current_timestamp"),
	})

	s := mustGenerate(t, diff.Compute(observed, desired), dialect.Postgres)

	wantUp := "ALTER TABLE users ADD COLUMN created_at timestamp with time zone NOT NULL DEFAULT current_timestamp;"
	if len(s.Up) != 1 || s.Up[0] != wantUp {
		t.Fatalf("up = %q, want [%q]", s.Up, wantUp)
	}
	wantDown := "ALTER TABLE users DROP COLUMN IF EXISTS created_at;"
	if len(s.Down) != 1 || s.Down[0] != wantDown {
		t.Fatalf("down = %q, want [%q]", s.Down, wantDown)
	}
}

func TestRenameOrdering(t *testing.T) {
	observed := &schema.Schema{Tables: []schema.Table{{
		Name:       "customer",
		TrackingID: "T1",
		Columns: []schema.Column{
			{Name: "email", Ordinal: 1, Type: "varchar", Length: intPtr(255), TrackingID: "C1"},
		},
	}}}
	desired := &schema.Schema{Tables: []schema.Table{{
		Name:       "customers",
		TrackingID: "T1",
		Columns: []schema.Column{
			{Name: "email_address", Ordinal: 1, Type: "varchar", Length: intPtr(255), TrackingID: "C1"},
			{Name: "verified", Ordinal: 2, Type: "boolean", Default: strPtr("false"), TrackingID: "C2"},
		},
	}}}

	s := mustGenerate(t, diff.Compute(observed, desired), dialect.Postgres)

	want := []string{
		"ALTER TABLE customer RENAME TO customers;",
		"ALTER TABLE customers RENAME COLUMN email TO email_address;",
		"ALTER TABLE customers ADD COLUMN verified boolean NOT NULL DEFAULT false;",
	}
	if len(s.Up) != len(want) {
		t.Fatalf("up has %d statements, want %d: %q", len(s.Up), len(want), s.Up)
	}
	for i := range want {
		if s.Up[i] != want[i] {
			t.Errorf("up[%d] = %q, want %q", i, s.Up[i], want[i])
		}
	}

	// Down reverses: drop the added column, rename the column back, rename
	// the table back.
	wantDown := []string{
		"ALTER TABLE customers DROP COLUMN IF EXISTS verified;",
		"ALTER TABLE customers RENAME COLUMN email_address TO email;",
		"ALTER TABLE customers RENAME TO customer;",
	}
	if len(s.Down) != len(wantDown) {
		t.Fatalf("down has %d statements, want %d: %q", len(s.Down), len(wantDown), s.Down)
	}
	for i := range wantDown {
		if s.Down[i] != wantDown[i] {
			t.Errorf("down[%d] = %q, want %q", i, s.Down[i], wantDown[i])
		}
	}
}

func TestDropTable(t *testing.T) {
	audit := schema.Table{
		Name: "audit_log",
		Columns: []schema.Column{
			{Name: "id", Ordinal: 1, Type: "bigint", IsPrimaryKey: true},
			{Name: "entry", Ordinal: 2, Type: "text", Nullable: true},
		},
		Constraints: []schema.Constraint{
			{Name: "audit_log_pkey", Kind: schema.PrimaryKey, Columns: []string{"id"}},
		},
		Indexes: []schema.Index{
			{Name: "audit_log_entry_idx", Columns: []string{"entry"}},
		},
	}
	observed := &schema.Schema{Tables: []schema.Table{usersTable(), audit}}
	desired := &schema.Schema{Tables: []schema.Table{usersTable()}}

	s := mustGenerate(t, diff.Compute(observed, desired), dialect.Postgres)

	if len(s.Up) != 1 || s.Up[0] != "DROP TABLE IF EXISTS audit_log CASCADE;" {
		t.Fatalf("up = %q", s.Up)
	}
	// Down reconstructs the table with its constraints and indexes.
	if len(s.Down) != 2 {
		t.Fatalf("down has %d statements, want 2: %q", len(s.Down), s.Down)
	}
	if !strings.HasPrefix(s.Down[0], "CREATE TABLE IF NOT EXISTS audit_log (") {
		t.Errorf("down[0] = %q, want CREATE TABLE reconstruction", s.Down[0])
	}
	if !strings.Contains(s.Down[0], "CONSTRAINT audit_log_pkey PRIMARY KEY (id)") {
		t.Errorf("down[0] missing primary key: %q", s.Down[0])
	}
	if s.Down[1] != "CREATE INDEX IF NOT EXISTS audit_log_entry_idx ON audit_log (entry);" {
		t.Errorf("down[1] = %q", s.Down[1])
	}
}

func TestTypeChangeEmitsUsingCast(t *testing.T) {
	observed := &schema.Schema{Tables: []schema.Table{{
		Name:    "orders",
		Columns: []schema.Column{{Name: "total", Ordinal: 1, Type: "integer"}},
	}}}
	desired := &schema.Schema{Tables: []schema.Table{{
		Name:    "orders",
		Columns: []schema.Column{{Name: "total", Ordinal: 1, Type: "bigint"}},
	}}}

	s := mustGenerate(t, diff.Compute(observed, desired), dialect.Postgres)

	want := "ALTER TABLE orders ALTER COLUMN total TYPE bigint USING total::bigint;"
	if len(s.Up) != 1 || s.Up[0] != want {
		t.Fatalf("up = %q, want [%q]", s.Up, want)
	}
	wantDown := "ALTER TABLE orders ALTER COLUMN total TYPE integer USING total::integer;"
	if s.Down[0] != wantDown {
		t.Fatalf("down = %q, want [%q]", s.Down, wantDown)
	}
}

func TestLengthChangeEmitsSingleTypeStatement(t *testing.T) {
	observed := &schema.Schema{Tables: []schema.Table{{
		Name:    "users",
		Columns: []schema.Column{{Name: "email", Ordinal: 1, Type: "varchar", Length: intPtr(100)}},
	}}}
	desired := &schema.Schema{Tables: []schema.Table{{
		Name:    "users",
		Columns: []schema.Column{{Name: "email", Ordinal: 1, Type: "varchar", Length: intPtr(255)}},
	}}}

	s := mustGenerate(t, diff.Compute(observed, desired), dialect.Postgres)

	want := "ALTER TABLE users ALTER COLUMN email TYPE varchar(255) USING email::varchar(255);"
	if len(s.Up) != 1 || s.Up[0] != want {
		t.Fatalf("up = %q, want [%q]", s.Up, want)
	}
}

func TestNullableAndDefaultTransitions(t *testing.T) {
	observed := &schema.Schema{Tables: []schema.Table{{
		Name: "users",
		Columns: []schema.Column{
			{Name: "name", Ordinal: 1, Type: "text", Nullable: true},
		},
	}}}
	desired := &schema.Schema{Tables: []schema.Table{{
		Name: "users",
		Columns: []schema.Column{
			{Name: "name", Ordinal: 1, Type: "text", Default: strPtr("'unknown'")},
		},
	}}}

	s := mustGenerate(t, diff.Compute(observed, desired), dialect.Postgres)

	wantUp := []string{
		"ALTER TABLE users ALTER COLUMN name SET NOT NULL;",
		"ALTER TABLE users ALTER COLUMN name SET DEFAULT 'unknown';",
	}
	if len(s.Up) != len(wantUp) {
		t.Fatalf("up = %q, want %q", s.Up, wantUp)
	}
	for i := range wantUp {
		if s.Up[i] != wantUp[i] {
			t.Errorf("up[%d] = %q, want %q", i, s.Up[i], wantUp[i])
		}
	}
	wantDown := []string{
		"ALTER TABLE users ALTER COLUMN name DROP DEFAULT;",
		"ALTER TABLE users ALTER COLUMN name DROP NOT NULL;",
	}
	for i := range wantDown {
		if s.Down[i] != wantDown[i] {
			t.Errorf("down[%d] = %q, want %q", i, s.Down[i], wantDown[i])
		}
	}
}

func TestEnumValueAddition(t *testing.T) {
	observed := &schema.Schema{Enums: []schema.Enum{{Name: "status", Values: []string{"active", "inactive"}}}}
	desired := &schema.Schema{Enums: []schema.Enum{{Name: "status", Values: []string{"active", "archived"}}}}

	s := mustGenerate(t, diff.Compute(observed, desired), dialect.Postgres)

	if len(s.Up) != 2 {
		t.Fatalf("up = %q, want add-value plus removal caveat", s.Up)
	}
	if s.Up[0] != "ALTER TYPE status ADD VALUE IF NOT EXISTS 'archived';" {
		t.Errorf("up[0] = %q", s.Up[0])
	}
	if !strings.HasPrefix(s.Up[1], "-- caveat:") || !strings.Contains(s.Up[1], "'inactive'") {
		t.Errorf("up[1] = %q, want caveat about 'inactive'", s.Up[1])
	}
	if len(s.Down) != 1 || !strings.HasPrefix(s.Down[0], "-- caveat:") {
		t.Errorf("down = %q, want a single caveat", s.Down)
	}
}

func TestDeferredForeignKeys(t *testing.T) {
	observed := &schema.Schema{}
	desired := &schema.Schema{Tables: []schema.Table{
		{
			Name: "posts",
			Columns: []schema.Column{
				{Name: "id", Ordinal: 1, Type: "integer", IsPrimaryKey: true},
				{Name: "author_id", Ordinal: 2, Type: "integer"},
			},
			Constraints: []schema.Constraint{
				{Name: "posts_pkey", Kind: schema.PrimaryKey, Columns: []string{"id"}},
				{
					Name: "posts_author_id_fkey", Kind: schema.ForeignKey,
					Columns: []string{"author_id"}, ReferencedTable: "users",
					ReferencedColumns: []string{"id"}, OnDelete: "CASCADE",
				},
			},
		},
		{
			Name: "users",
			Columns: []schema.Column{
				{Name: "id", Ordinal: 1, Type: "integer", IsPrimaryKey: true},
			},
			Constraints: []schema.Constraint{
				{Name: "users_pkey", Kind: schema.PrimaryKey, Columns: []string{"id"}},
			},
		},
	}}

	s := mustGenerate(t, diff.Compute(observed, desired), dialect.Postgres)

	// The FK references a table created in the same script, so it must run
	// after both CREATE TABLE statements.
	var fkIdx, lastCreateIdx int
	for i, stmt := range s.Up {
		if strings.HasPrefix(stmt, "CREATE TABLE") {
			lastCreateIdx = i
		}
		if strings.Contains(stmt, "ADD CONSTRAINT posts_author_id_fkey") {
			fkIdx = i
		}
	}
	if fkIdx == 0 {
		t.Fatalf("deferred FK not emitted: %q", s.Up)
	}
	if fkIdx < lastCreateIdx {
		t.Errorf("FK at %d emitted before last CREATE TABLE at %d", fkIdx, lastCreateIdx)
	}
	for _, stmt := range s.Up {
		if strings.HasPrefix(stmt, "CREATE TABLE IF NOT EXISTS posts") &&
			strings.Contains(stmt, "FOREIGN KEY") {
			t.Errorf("FK inlined into CREATE TABLE posts: %q", stmt)
		}
	}
}

func TestInlineForeignKeyToExistingTable(t *testing.T) {
	observed := &schema.Schema{Tables: []schema.Table{usersTable()}}
	desired := &schema.Schema{Tables: []schema.Table{usersTable(), {
		Name: "posts",
		Columns: []schema.Column{
			{Name: "id", Ordinal: 1, Type: "integer", IsPrimaryKey: true},
			{Name: "author_id", Ordinal: 2, Type: "integer"},
		},
		Constraints: []schema.Constraint{
			{Name: "posts_pkey", Kind: schema.PrimaryKey, Columns: []string{"id"}},
			{
				Name: "posts_author_id_fkey", Kind: schema.ForeignKey,
				Columns: []string{"author_id"}, ReferencedTable: "users",
				ReferencedColumns: []string{"id"},
			},
		},
	}}}

	s := mustGenerate(t, diff.Compute(observed, desired), dialect.Postgres)

	if len(s.Up) != 1 {
		t.Fatalf("up = %q, want a single CREATE TABLE", s.Up)
	}
	if !strings.Contains(s.Up[0], "FOREIGN KEY (author_id) REFERENCES users (id)") {
		t.Errorf("FK not inlined: %q", s.Up[0])
	}
}

func TestMySQLColumnModification(t *testing.T) {
	observed := &schema.Schema{Tables: []schema.Table{{
		Name:    "users",
		Columns: []schema.Column{{Name: "email", Ordinal: 1, Type: "varchar", Length: intPtr(100)}},
	}}}
	desired := &schema.Schema{Tables: []schema.Table{{
		Name:    "users",
		Columns: []schema.Column{{Name: "email", Ordinal: 1, Type: "varchar", Length: intPtr(255)}},
	}}}

	s := mustGenerate(t, diff.Compute(observed, desired), dialect.MySQL)

	want := "ALTER TABLE users MODIFY COLUMN email varchar(255) NOT NULL;"
	if len(s.Up) != 1 || s.Up[0] != want {
		t.Fatalf("up = %q, want [%q]", s.Up, want)
	}
	wantDown := "ALTER TABLE users MODIFY COLUMN email varchar(100) NOT NULL;"
	if s.Down[0] != wantDown {
		t.Fatalf("down = %q, want [%q]", s.Down, wantDown)
	}
}

func TestReservedWordsQuoted(t *testing.T) {
	observed := &schema.Schema{}
	desired := &schema.Schema{Tables: []schema.Table{{
		Name: "order",
		Columns: []schema.Column{
			{Name: "id", Ordinal: 1, Type: "integer", IsPrimaryKey: true},
			{Name: "user", Ordinal: 2, Type: "text", Nullable: true},
		},
	}}}

	s := mustGenerate(t, diff.Compute(observed, desired), dialect.Postgres)

	if len(s.Up) != 1 {
		t.Fatalf("up = %q", s.Up)
	}
	if !strings.Contains(s.Up[0], `CREATE TABLE IF NOT EXISTS "order"`) {
		t.Errorf("table name not quoted: %q", s.Up[0])
	}
	if !strings.Contains(s.Up[0], `"user" text`) {
		t.Errorf("column name not quoted: %q", s.Up[0])
	}
	if strings.Contains(s.Up[0], `"integer"`) || strings.Contains(s.Up[0], `"text"`) {
		t.Errorf("type names must not be quoted: %q", s.Up[0])
	}
}

func TestQuoteRules(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"users", "users"},
		{"order", `"order"`},
		{"MixedCase", `"MixedCase"`},
		{"with space", `"with space"`},
		{"2fast", `"2fast"`},
		{"snake_case_2", "snake_case_2"},
		{`emb"edded`, `"emb""edded"`},
	}
	for _, tt := range tests {
		if got := Quote(dialect.Postgres, tt.in); got != tt.want {
			t.Errorf("Quote(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}
	if got := Quote(dialect.MySQL, "order"); got != "`order`" {
		t.Errorf("Quote(mysql, order) = %s, want `order`", got)
	}
}

func TestCreateIndependentObjectsBeforeTables(t *testing.T) {
	observed := &schema.Schema{}
	desired := &schema.Schema{
		Enums: []schema.Enum{{Name: "status", Values: []string{"active"}}},
		Tables: []schema.Table{{
			Name:    "jobs",
			Columns: []schema.Column{{Name: "state", Ordinal: 1, Type: "status"}},
		}},
	}

	s := mustGenerate(t, diff.Compute(observed, desired), dialect.Postgres)

	if len(s.Up) != 2 {
		t.Fatalf("up = %q", s.Up)
	}
	if s.Up[0] != "CREATE TYPE status AS ENUM ('active');" {
		t.Errorf("up[0] = %q", s.Up[0])
	}
	if !strings.HasPrefix(s.Up[1], "CREATE TABLE IF NOT EXISTS jobs") {
		t.Errorf("up[1] = %q", s.Up[1])
	}
	// Down drops in reverse: table first, then the enum it uses.
	if !strings.HasPrefix(s.Down[0], "DROP TABLE IF EXISTS jobs") {
		t.Errorf("down[0] = %q", s.Down[0])
	}
	if s.Down[1] != "DROP TYPE IF EXISTS status;" {
		t.Errorf("down[1] = %q", s.Down[1])
	}
}

func TestSequenceOnSQLiteStillRenders(t *testing.T) {
	// The generator renders unsupported features verbatim; the dialect
	// validator is the layer that rejects them.
	observed := &schema.Schema{}
	desired := &schema.Schema{Sequences: []schema.Sequence{{Name: "order_seq", Increment: 1, Start: 1}}}

	s := mustGenerate(t, diff.Compute(observed, desired), dialect.SQLite)

	if len(s.Up) != 1 || s.Up[0] != "CREATE SEQUENCE IF NOT EXISTS order_seq;" {
		t.Fatalf("up = %q", s.Up)
	}
}

func TestNoChangesEmptyScript(t *testing.T) {
	sch := &schema.Schema{Tables: []schema.Table{usersTable()}}
	s := mustGenerate(t, diff.Compute(sch, sch), dialect.Postgres)
	if !s.Empty() {
		t.Fatalf("script not empty: up=%q down=%q", s.Up, s.Down)
	}
}
