package apply

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/jmoiron/sqlx"

	"github.com/driftsql/drift/internal/conn"
	"github.com/driftsql/drift/internal/dialect"
	"github.com/driftsql/drift/internal/drifterr"

	_ "modernc.org/sqlite"
)

const trackingTable = "_drift_migrations"

func openTestDB(t *testing.T) *conn.DB {
	t.Helper()
	db, err := sqlx.Connect("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	db.SetMaxOpenConns(1) // in-memory databases are per-connection
	db.MustExec("PRAGMA foreign_keys = ON")
	return &conn.DB{DB: db, Dialect: dialect.SQLite}
}

func newTestExecutor(t *testing.T) (*Executor, *conn.DB) {
	t.Helper()
	db := openTestDB(t)
	return NewExecutor(db, trackingTable, nil), db
}

func tableExists(t *testing.T, db *conn.DB, name string) bool {
	t.Helper()
	var n int
	err := db.Get(&n, "SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?", name)
	if err != nil {
		t.Fatalf("sqlite_master: %v", err)
	}
	return n > 0
}

func TestApplyRecordsRestorePoint(t *testing.T) {
	ex, db := newTestExecutor(t)
	ctx := context.Background()

	res, err := ex.Apply(ctx, Request{
		Name:   "create_users",
		Up:     []string{"CREATE TABLE users (id INTEGER PRIMARY KEY, email TEXT NOT NULL);"},
		Down:   []string{"DROP TABLE IF EXISTS users;"},
		Source: SourcePush,
	})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if res.Statements != 1 {
		t.Errorf("Statements = %d, want 1", res.Statements)
	}
	if res.Batch != 1 {
		t.Errorf("Batch = %d, want 1", res.Batch)
	}
	if !res.Transactional {
		t.Error("sqlite apply should be transactional")
	}
	if len(res.Warnings) != 0 {
		t.Errorf("unexpected warnings: %v", res.Warnings)
	}
	if !tableExists(t, db, "users") {
		t.Error("users table not created")
	}

	entries, err := ex.Applied(ctx)
	if err != nil {
		t.Fatalf("Applied: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(entries))
	}
	e := entries[0]
	if e.Name != "create_users" || e.Source != "push" || e.Batch != 1 {
		t.Errorf("entry = %+v", e)
	}
	if !strings.Contains(e.SQLDown, "DROP TABLE") {
		t.Errorf("sql_down not recorded: %q", e.SQLDown)
	}
}

func TestApplySkipsCaveatComments(t *testing.T) {
	ex, db := newTestExecutor(t)
	res, err := ex.Apply(context.Background(), Request{
		Name: "add_color",
		Up: []string{
			"CREATE TABLE paints (id INTEGER PRIMARY KEY);",
			"-- caveat: enum value removals require manual migration",
			"ALTER TABLE paints ADD COLUMN color TEXT;",
		},
	})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if res.Statements != 2 {
		t.Errorf("Statements = %d, want 2 (comment entry skipped)", res.Statements)
	}
	if !tableExists(t, db, "paints") {
		t.Error("paints table not created")
	}
}

func TestApplyRollsBackOnFailure(t *testing.T) {
	ex, db := newTestExecutor(t)
	_, err := ex.Apply(context.Background(), Request{
		Name: "bad_batch",
		Up: []string{
			"CREATE TABLE good (id INTEGER PRIMARY KEY);",
			"CREATE TABLE broken (syntax error here;",
		},
	})
	if err == nil {
		t.Fatal("want error for broken statement")
	}
	if drifterr.KindOf(err) != drifterr.Execution {
		t.Errorf("kind = %v, want Execution", drifterr.KindOf(err))
	}
	var se *StatementError
	if !asStatementError(err, &se) {
		t.Fatalf("error chain lacks StatementError: %v", err)
	}
	if se.Index != 1 {
		t.Errorf("Index = %d, want 1", se.Index)
	}
	if !se.RolledBack {
		t.Error("transactional dialect should report rollback")
	}
	if tableExists(t, db, "good") {
		t.Error("first statement survived the rollback")
	}
	entries, err := ex.Applied(context.Background())
	if err != nil {
		t.Fatalf("Applied: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("failed apply recorded %d entries", len(entries))
	}
}

func TestStatementErrorTruncates(t *testing.T) {
	ex, _ := newTestExecutor(t)
	long := "CREATE TABLE t (" + strings.Repeat("c INTEGER, ", 40) + "id INTEGER PRIMARY KEY"
	_, err := ex.Apply(context.Background(), Request{Name: "long", Up: []string{long}})
	if err == nil {
		t.Fatal("want error")
	}
	var se *StatementError
	if !asStatementError(err, &se) {
		t.Fatalf("error chain lacks StatementError: %v", err)
	}
	if len(se.Statement) > statementTruncateAt+3 {
		t.Errorf("statement not truncated: %d chars", len(se.Statement))
	}
}

func TestBatchNumbersIncrement(t *testing.T) {
	ex, _ := newTestExecutor(t)
	ctx := context.Background()
	for i, stmt := range []string{
		"CREATE TABLE a (id INTEGER PRIMARY KEY);",
		"CREATE TABLE b (id INTEGER PRIMARY KEY);",
	} {
		res, err := ex.Apply(ctx, Request{Name: "step", Up: []string{stmt}})
		if err != nil {
			t.Fatalf("Apply %d: %v", i, err)
		}
		if res.Batch != i+1 {
			t.Errorf("batch = %d, want %d", res.Batch, i+1)
		}
	}
}

func TestRollbackRevertsAndDeletes(t *testing.T) {
	ex, db := newTestExecutor(t)
	ctx := context.Background()

	steps := []Request{
		{
			Name:   "create_users",
			Up:     []string{"CREATE TABLE users (id INTEGER PRIMARY KEY);"},
			Down:   []string{"DROP TABLE IF EXISTS users;"},
			Source: SourcePush,
		},
		{
			Name: "create_orders",
			Up: []string{
				"CREATE TABLE orders (id INTEGER PRIMARY KEY, user_id INTEGER REFERENCES users (id));",
				"CREATE INDEX orders_user_id_idx ON orders (user_id);",
			},
			Down: []string{
				"DROP INDEX IF EXISTS orders_user_id_idx;",
				"DROP TABLE IF EXISTS orders;",
			},
			Source: SourcePush,
		},
	}
	for _, req := range steps {
		if _, err := ex.Apply(ctx, req); err != nil {
			t.Fatalf("Apply %s: %v", req.Name, err)
		}
	}

	reverted, err := ex.Rollback(ctx, 1)
	if err != nil {
		t.Fatalf("Rollback: %v", err)
	}
	if len(reverted) != 1 || reverted[0].Name != "create_orders" {
		t.Fatalf("reverted = %+v", reverted)
	}
	if tableExists(t, db, "orders") {
		t.Error("orders table survived rollback")
	}
	if !tableExists(t, db, "users") {
		t.Error("rollback went too far")
	}

	entries, err := ex.Applied(ctx)
	if err != nil {
		t.Fatalf("Applied: %v", err)
	}
	if len(entries) != 1 || entries[0].Name != "create_users" {
		t.Errorf("entries after rollback = %+v", entries)
	}
}

func TestRollbackToNamedEntry(t *testing.T) {
	ex, db := newTestExecutor(t)
	ctx := context.Background()

	for _, name := range []string{"one", "two", "three"} {
		req := Request{
			Name: name,
			Up:   []string{"CREATE TABLE t_" + name + " (id INTEGER PRIMARY KEY);"},
			Down: []string{"DROP TABLE IF EXISTS t_" + name + ";"},
		}
		if _, err := ex.Apply(ctx, req); err != nil {
			t.Fatalf("Apply %s: %v", name, err)
		}
	}

	reverted, err := ex.RollbackTo(ctx, "two")
	if err != nil {
		t.Fatalf("RollbackTo: %v", err)
	}
	if len(reverted) != 2 {
		t.Fatalf("reverted %d entries, want 2", len(reverted))
	}
	if reverted[0].Name != "three" || reverted[1].Name != "two" {
		t.Errorf("revert order = [%s, %s]", reverted[0].Name, reverted[1].Name)
	}
	if tableExists(t, db, "t_two") || tableExists(t, db, "t_three") {
		t.Error("rolled-back tables still present")
	}
	if !tableExists(t, db, "t_one") {
		t.Error("t_one should survive")
	}
}

func TestRollbackBatch(t *testing.T) {
	ex, db := newTestExecutor(t)
	ctx := context.Background()

	// Batch 1: one entry. Batch 2: two entries sharing the number, as
	// migrate records them.
	if _, err := ex.Apply(ctx, Request{
		Name: "base",
		Up:   []string{"CREATE TABLE base (id INTEGER PRIMARY KEY);"},
		Down: []string{"DROP TABLE IF EXISTS base;"},
	}); err != nil {
		t.Fatalf("Apply base: %v", err)
	}
	for _, name := range []string{"left", "right"} {
		if _, err := ex.Apply(ctx, Request{
			Name:  name,
			Up:    []string{"CREATE TABLE t_" + name + " (id INTEGER PRIMARY KEY);"},
			Down:  []string{"DROP TABLE IF EXISTS t_" + name + ";"},
			Batch: 2,
		}); err != nil {
			t.Fatalf("Apply %s: %v", name, err)
		}
	}

	reverted, err := ex.RollbackBatch(ctx)
	if err != nil {
		t.Fatalf("RollbackBatch: %v", err)
	}
	if len(reverted) != 2 {
		t.Fatalf("reverted %d entries, want 2", len(reverted))
	}
	if reverted[0].Name != "right" || reverted[1].Name != "left" {
		t.Errorf("revert order = [%s, %s]", reverted[0].Name, reverted[1].Name)
	}
	if tableExists(t, db, "t_left") || tableExists(t, db, "t_right") {
		t.Error("batch tables still present")
	}
	if !tableExists(t, db, "base") {
		t.Error("earlier batch was reverted")
	}
}

func TestRollbackBatchEmptyHistory(t *testing.T) {
	ex, _ := newTestExecutor(t)
	reverted, err := ex.RollbackBatch(context.Background())
	if err != nil {
		t.Fatalf("RollbackBatch: %v", err)
	}
	if reverted != nil {
		t.Errorf("reverted = %v, want nil", reverted)
	}
}

func TestRollbackUnknownName(t *testing.T) {
	ex, _ := newTestExecutor(t)
	_, err := ex.RollbackTo(context.Background(), "nope")
	if drifterr.KindOf(err) != drifterr.Configuration {
		t.Fatalf("kind = %v, want Configuration", drifterr.KindOf(err))
	}
}

func TestRollbackRefusesMissingDown(t *testing.T) {
	ex, db := newTestExecutor(t)
	ctx := context.Background()
	if _, err := ex.Apply(ctx, Request{
		Name: "no_down",
		Up:   []string{"CREATE TABLE keep (id INTEGER PRIMARY KEY);"},
	}); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if _, err := ex.Rollback(ctx, 1); err == nil {
		t.Fatal("want error for entry without sql_down")
	}
	if !tableExists(t, db, "keep") {
		t.Error("rollback without a down should not touch the schema")
	}
}

func TestAppliedWithoutTrackingTable(t *testing.T) {
	ex, _ := newTestExecutor(t)
	entries, err := ex.Applied(context.Background())
	if err != nil {
		t.Fatalf("Applied: %v", err)
	}
	if entries != nil {
		t.Errorf("entries = %v, want nil", entries)
	}
}

func TestEnsureTrackingTableIdempotent(t *testing.T) {
	ex, db := newTestExecutor(t)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		if err := ex.EnsureTrackingTable(ctx); err != nil {
			t.Fatalf("EnsureTrackingTable #%d: %v", i+1, err)
		}
	}
	if !tableExists(t, db, trackingTable) {
		t.Fatal("tracking table missing")
	}
}

func TestEnsureTrackingTableUpgradesOldLayout(t *testing.T) {
	ex, db := newTestExecutor(t)
	ctx := context.Background()
	db.MustExec("CREATE TABLE " + trackingTable + " (id INTEGER PRIMARY KEY AUTOINCREMENT, name TEXT NOT NULL, filename TEXT NOT NULL DEFAULT '', hash TEXT NOT NULL DEFAULT '', batch INTEGER NOT NULL DEFAULT 1, sql_up TEXT NOT NULL, applied_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP)")

	if err := ex.EnsureTrackingTable(ctx); err != nil {
		t.Fatalf("EnsureTrackingTable: %v", err)
	}
	if err := ex.MarkApplied(ctx, Request{Name: "adopted", Source: SourceMigrate}); err != nil {
		t.Fatalf("MarkApplied after upgrade: %v", err)
	}
	entries, err := ex.Applied(ctx)
	if err != nil {
		t.Fatalf("Applied: %v", err)
	}
	if len(entries) != 1 || entries[0].Source != "migrate" {
		t.Errorf("entries = %+v", entries)
	}
}

func TestMarkApplied(t *testing.T) {
	ex, _ := newTestExecutor(t)
	ctx := context.Background()
	if err := ex.MarkApplied(ctx, Request{
		Name:     "imported",
		Filename: "001_imported.sql",
		Hash:     "abc",
		Source:   SourceMigrate,
	}); err != nil {
		t.Fatalf("MarkApplied: %v", err)
	}
	entries, err := ex.Applied(ctx)
	if err != nil {
		t.Fatalf("Applied: %v", err)
	}
	if len(entries) != 1 || entries[0].Filename != "001_imported.sql" {
		t.Errorf("entries = %+v", entries)
	}
}

func TestPhaseCallbacks(t *testing.T) {
	ex, _ := newTestExecutor(t)
	var phases []Phase
	ex.OnPhase = func(p Phase) { phases = append(phases, p) }

	if _, err := ex.Apply(context.Background(), Request{
		Name: "ok",
		Up:   []string{"CREATE TABLE cb (id INTEGER PRIMARY KEY);"},
	}); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	want := []Phase{PhaseApplying, PhaseRecording, PhaseDone}
	if len(phases) != len(want) {
		t.Fatalf("phases = %v", phases)
	}
	for i := range want {
		if phases[i] != want[i] {
			t.Errorf("phase[%d] = %s, want %s", i, phases[i], want[i])
		}
	}

	phases = nil
	if _, err := ex.Apply(context.Background(), Request{
		Name: "boom",
		Up:   []string{"NOT SQL AT ALL"},
	}); err == nil {
		t.Fatal("want error")
	}
	if len(phases) != 2 || phases[1] != PhaseFailed {
		t.Errorf("failure phases = %v", phases)
	}
}

func asStatementError(err error, target **StatementError) bool {
	return errors.As(err, target)
}
