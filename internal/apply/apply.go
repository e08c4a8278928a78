// Package apply executes generated DDL against a live database and keeps
// restore points in the migration-tracking table. Statements run inside a
// transaction when the dialect supports transactional DDL; otherwise they
// run sequentially and a failure reports how far execution got.
package apply

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/driftsql/drift/internal/conn"
	"github.com/driftsql/drift/internal/drifterr"
	"github.com/driftsql/drift/internal/migration"
)

// Source records which verb created a tracking row.
type Source string

const (
	SourceMigrate Source = "migrate"
	SourcePush    Source = "push"
)

// Phase names the stages of one apply operation, in order. The CLI drives
// the early phases; the Executor reports PhaseApplying and PhaseRecording
// through the OnPhase callback.
type Phase string

const (
	PhaseIdle          Phase = "idle"
	PhaseConnecting    Phase = "connecting"
	PhaseIntrospecting Phase = "introspecting"
	PhaseDiffing       Phase = "diffing"
	PhaseValidating    Phase = "validating"
	PhaseConfirming    Phase = "confirming"
	PhaseApplying      Phase = "applying"
	PhaseRecording     Phase = "recording"
	PhaseDone          Phase = "done"
	PhaseFailed        Phase = "failed"
)

// Request is one unit of work: ordered up statements, their down
// counterparts, and the identity to record.
type Request struct {
	Name     string
	Filename string
	Hash     string
	Up       []string
	Down     []string
	Source   Source
	// Batch groups entries applied in one run; zero means allocate the
	// next batch number.
	Batch int
}

// Result reports what an apply did.
type Result struct {
	Statements    int  // statements executed, comment entries excluded
	Batch         int  // batch number recorded, 0 if recording failed
	Transactional bool // whether the statements ran inside a transaction
	Warnings      []string
}

// Entry is one row of the migration-tracking table.
type Entry struct {
	ID        int64  `db:"id"`
	Name      string `db:"name"`
	Filename  string `db:"filename"`
	Hash      string `db:"hash"`
	Batch     int    `db:"batch"`
	SQLUp     string `db:"sql_up"`
	SQLDown   string `db:"sql_down"`
	Source    string `db:"source"`
	AppliedAt string `db:"applied_at"`
}

// StatementError reports a statement that failed mid-apply.
type StatementError struct {
	Index      int    // position within the executed list
	Statement  string // truncated for display
	RolledBack bool
	Err        error
}

func (e *StatementError) Error() string {
	state := "no rollback; earlier statements are committed"
	if e.RolledBack {
		state = "rolled back"
	}
	return fmt.Sprintf("statement %d failed (%s): %v\n  %s", e.Index+1, state, e.Err, e.Statement)
}

func (e *StatementError) Unwrap() error { return e.Err }

const statementTruncateAt = 200

// Executor runs DDL batches against one connection.
type Executor struct {
	db      *conn.DB
	table   string
	log     *slog.Logger
	OnPhase func(Phase)
}

// NewExecutor binds an executor to a connection and tracking table name.
func NewExecutor(db *conn.DB, table string, log *slog.Logger) *Executor {
	if log == nil {
		log = slog.Default()
	}
	return &Executor{db: db, table: table, log: log}
}

func (e *Executor) phase(p Phase) {
	if e.OnPhase != nil {
		e.OnPhase(p)
	}
}

// Apply executes req.Up in order and records a restore point. A failed
// statement rolls back the whole batch on transactional dialects; on others
// the error reports which statements already committed. Recording failures
// after a successful apply are returned as warnings, not errors.
func (e *Executor) Apply(ctx context.Context, req Request) (*Result, error) {
	res := &Result{Transactional: e.db.Dialect.TransactionalDDL}

	e.phase(PhaseApplying)
	if err := e.execute(ctx, req.Up, res); err != nil {
		e.phase(PhaseFailed)
		return nil, err
	}

	e.phase(PhaseRecording)
	batch, err := e.record(ctx, req)
	if err != nil {
		warn := drifterr.Wrap(drifterr.BookkeepingSoft, err)
		e.log.Warn("statements applied but restore point not recorded", "error", err)
		res.Warnings = append(res.Warnings, warn.Error())
	} else {
		res.Batch = batch
	}

	e.phase(PhaseDone)
	return res, nil
}

func (e *Executor) execute(ctx context.Context, stmts []string, res *Result) error {
	if e.db.Dialect.TransactionalDDL {
		tx, err := e.db.BeginTxx(ctx, nil)
		if err != nil {
			return drifterr.Wrap(drifterr.Execution, err)
		}
		if err := e.runAll(ctx, tx, stmts, true, res); err != nil {
			tx.Rollback()
			return err
		}
		if err := tx.Commit(); err != nil {
			return drifterr.Wrap(drifterr.Execution, err)
		}
		return nil
	}

	// No transactional DDL: run sequentially and let the error say how far
	// execution got.
	return e.runAll(ctx, e.db, stmts, false, res)
}

// execer is the subset of sqlx shared by *sqlx.DB and *sqlx.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (e *Executor) runAll(ctx context.Context, ex execer, stmts []string, inTx bool, res *Result) error {
	for i, stmt := range stmts {
		if isComment(stmt) {
			continue
		}
		e.log.Debug("executing", "index", i, "statement", truncate(stmt, 80))
		if _, err := ex.ExecContext(ctx, stmt); err != nil {
			return drifterr.Wrap(drifterr.Execution, &StatementError{
				Index:      i,
				Statement:  truncate(stmt, statementTruncateAt),
				RolledBack: inTx,
				Err:        err,
			})
		}
		res.Statements++
	}
	return nil
}

func (e *Executor) record(ctx context.Context, req Request) (int, error) {
	if err := e.EnsureTrackingTable(ctx); err != nil {
		return 0, err
	}
	batch := req.Batch
	if batch == 0 {
		var err error
		if batch, err = e.NextBatch(ctx); err != nil {
			return 0, err
		}
	}
	source := req.Source
	if source == "" {
		source = SourceMigrate
	}
	query := e.db.Rebind(fmt.Sprintf(
		"INSERT INTO %s (name, filename, hash, batch, sql_up, sql_down, source) VALUES (?, ?, ?, ?, ?, ?, ?)",
		e.table))
	_, err := e.db.ExecContext(ctx, query,
		req.Name, req.Filename, req.Hash, batch,
		joinStatements(req.Up), joinStatements(req.Down), string(source))
	if err != nil {
		return 0, err
	}
	return batch, nil
}

// EnsureTrackingTable creates the tracking table if missing and upgrades
// older layouts that predate the sql_down and source columns. The upgrade
// ALTERs are attempted unconditionally and duplicate-column errors ignored.
func (e *Executor) EnsureTrackingTable(ctx context.Context) error {
	ddl := e.db.Dialect.TrackingTableDDL(e.table)
	if ddl == "" {
		return fmt.Errorf("dialect %s has no tracking table", e.db.Dialect.Name)
	}
	if _, err := e.db.ExecContext(ctx, ddl); err != nil {
		return err
	}
	for _, alter := range []string{
		fmt.Sprintf("ALTER TABLE %s ADD COLUMN sql_down text NOT NULL DEFAULT ''", e.table),
		fmt.Sprintf("ALTER TABLE %s ADD COLUMN source text NOT NULL DEFAULT 'migrate'", e.table),
	} {
		e.db.ExecContext(ctx, alter)
	}
	return nil
}

// NextBatch allocates the batch number the next apply will record. Callers
// applying several migrations in one run pass it through Request.Batch so
// they share a batch. The tracking table must exist.
func (e *Executor) NextBatch(ctx context.Context) (int, error) {
	var max sql.NullInt64
	err := e.db.GetContext(ctx, &max, fmt.Sprintf("SELECT MAX(batch) FROM %s", e.table))
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return 0, err
	}
	return int(max.Int64) + 1, nil
}

// Applied returns the tracking rows in insertion order. A missing tracking
// table reads as no applied migrations.
func (e *Executor) Applied(ctx context.Context) ([]Entry, error) {
	var entries []Entry
	err := e.db.SelectContext(ctx, &entries,
		fmt.Sprintf("SELECT id, name, filename, hash, batch, sql_up, sql_down, source, applied_at FROM %s ORDER BY id", e.table))
	if err != nil {
		if isMissingTable(err) {
			return nil, nil
		}
		return nil, drifterr.Wrap(drifterr.Execution, err)
	}
	return entries, nil
}

// Rollback reverts the most recent n tracking entries, newest first. Each
// entry's sql_down runs inside a transaction when the dialect allows it,
// then the row is deleted. Entries without a recorded down stop the
// rollback before anything runs.
func (e *Executor) Rollback(ctx context.Context, n int) ([]Entry, error) {
	entries, err := e.latest(ctx, n)
	if err != nil {
		return nil, err
	}
	return e.revert(ctx, entries)
}

// RollbackBatch reverts every entry of the most recent batch, newest
// first.
func (e *Executor) RollbackBatch(ctx context.Context) ([]Entry, error) {
	all, err := e.Applied(ctx)
	if err != nil {
		return nil, err
	}
	if len(all) == 0 {
		return nil, nil
	}
	last := all[len(all)-1].Batch
	var targets []Entry
	for i := len(all) - 1; i >= 0 && all[i].Batch == last; i-- {
		targets = append(targets, all[i])
	}
	return e.revert(ctx, targets)
}

// RollbackTo reverts entries newest-first until the named entry has been
// reverted, inclusive.
func (e *Executor) RollbackTo(ctx context.Context, name string) ([]Entry, error) {
	all, err := e.Applied(ctx)
	if err != nil {
		return nil, err
	}
	stop := -1
	for i := len(all) - 1; i >= 0; i-- {
		if all[i].Name == name {
			stop = i
			break
		}
	}
	if stop < 0 {
		return nil, drifterr.New(drifterr.Configuration, "no applied migration named %q", name)
	}
	var targets []Entry
	for i := len(all) - 1; i >= stop; i-- {
		targets = append(targets, all[i])
	}
	return e.revert(ctx, targets)
}

func (e *Executor) latest(ctx context.Context, n int) ([]Entry, error) {
	all, err := e.Applied(ctx)
	if err != nil {
		return nil, err
	}
	var out []Entry
	for i := len(all) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, all[i])
	}
	return out, nil
}

func (e *Executor) revert(ctx context.Context, entries []Entry) ([]Entry, error) {
	for _, entry := range entries {
		if strings.TrimSpace(entry.SQLDown) == "" {
			return nil, drifterr.New(drifterr.Execution,
				"migration %q has no recorded down; cannot roll back past it", entry.Name)
		}
	}

	var reverted []Entry
	for _, entry := range entries {
		e.log.Info("rolling back", "name", entry.Name, "batch", entry.Batch)
		res := &Result{}
		if err := e.execute(ctx, migration.Split(entry.SQLDown), res); err != nil {
			return reverted, err
		}
		query := e.db.Rebind(fmt.Sprintf("DELETE FROM %s WHERE id = ?", e.table))
		if _, err := e.db.ExecContext(ctx, query, entry.ID); err != nil {
			return reverted, drifterr.Wrap(drifterr.BookkeepingSoft, err)
		}
		reverted = append(reverted, entry)
	}
	return reverted, nil
}

// MarkApplied records an entry without executing anything. Used by sync and
// import, which adopt already-applied history.
func (e *Executor) MarkApplied(ctx context.Context, req Request) error {
	if _, err := e.record(ctx, req); err != nil {
		return drifterr.Wrap(drifterr.Execution, err)
	}
	return nil
}

func joinStatements(stmts []string) string {
	return strings.Join(stmts, "\n\n")
}

func isComment(stmt string) bool {
	for _, line := range strings.Split(stmt, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "--") {
			continue
		}
		return false
	}
	return true
}

// isMissingTable matches the "relation/table does not exist" shapes of the
// supported drivers without importing their error types.
func isMissingTable(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "does not exist") ||
		strings.Contains(msg, "doesn't exist") ||
		strings.Contains(msg, "no such table")
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
