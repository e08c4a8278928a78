package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/driftsql/drift/internal/apply"
	"github.com/driftsql/drift/internal/config"
	"github.com/driftsql/drift/internal/conn"
	"github.com/driftsql/drift/internal/dialect"
	"github.com/driftsql/drift/internal/drifterr"
	"github.com/driftsql/drift/internal/ignore"
	"github.com/driftsql/drift/internal/introspect"
	introMySQL "github.com/driftsql/drift/internal/introspect/mysql"
	introPostgres "github.com/driftsql/drift/internal/introspect/postgres"
	introSQLite "github.com/driftsql/drift/internal/introspect/sqlite"
	"github.com/driftsql/drift/internal/schema"
	"github.com/driftsql/drift/internal/snapshot"
	"github.com/driftsql/drift/internal/sourceloader"
)

// loadConfig reads drift.yaml from the repository root and wires the
// process logger from its logging section.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(rootDir)
	if err != nil {
		return nil, err
	}
	slog.SetDefault(newLogger(cfg.Logging))
	return cfg, nil
}

func newLogger(lc config.LoggingConfig) *slog.Logger {
	level := slog.LevelInfo
	switch strings.ToLower(lc.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	opts := &slog.HandlerOptions{Level: level}
	if lc.Format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

// openDB resolves the configured dialect and connects.
func openDB(ctx context.Context, cfg *config.Config) (*conn.DB, error) {
	d, err := cfg.ResolveDialect()
	if err != nil {
		return nil, err
	}
	return conn.Open(ctx, d, conn.Config{URL: cfg.URL, SchemaName: cfg.Schema})
}

// introspectLive reads the observed schema through the family's adapter and
// filters it through the ignore list.
func introspectLive(ctx context.Context, db *conn.DB, cfg *config.Config) (*schema.Schema, []introspect.SkippedStep, error) {
	opts := introspect.Options{
		IncludeFunctions: cfg.Introspect.IncludeFunctions,
		IncludeTriggers:  cfg.Introspect.IncludeTriggers,
		IncludeViews:     cfg.Introspect.IncludeViews,
		ExcludePatterns:  cfg.Introspect.Exclude,
		Progress: func(step introspect.Step) {
			slog.Debug("introspecting", "step", step)
		},
	}

	var (
		res *introspect.Result
		err error
	)
	switch db.Dialect.Family {
	case dialect.FamilyPostgres:
		res, err = introPostgres.Introspect(ctx, db, opts)
	case dialect.FamilyMySQL:
		res, err = introMySQL.Introspect(ctx, db, opts)
	case dialect.FamilySQLite:
		res, err = introSQLite.Introspect(ctx, db, opts)
	default:
		return nil, nil, drifterr.New(drifterr.Connectivity,
			"dialect %q has no introspection adapter", db.Dialect.Name)
	}
	if err != nil {
		return nil, nil, err
	}

	ignores, err := ignore.Load(cfg.IgnorePath())
	if err != nil {
		return nil, nil, err
	}
	filtered, err := ignores.Apply(res.Schema)
	if err != nil {
		return nil, nil, err
	}
	return filtered, res.Skipped, nil
}

// loadDesired reads the authored schema document and filters it through the
// same ignore list the observed side uses, so both sides of a diff see the
// same world.
func loadDesired(cfg *config.Config) (*sourceloader.Source, error) {
	src, err := sourceloader.Load(cfg.SchemaPath())
	if err != nil {
		return nil, err
	}
	ignores, err := ignore.Load(cfg.IgnorePath())
	if err != nil {
		return nil, err
	}
	filtered, err := ignores.Apply(src.Schema)
	if err != nil {
		return nil, err
	}
	src.Schema = filtered
	return src, nil
}

func newExecutor(db *conn.DB, cfg *config.Config) *apply.Executor {
	return apply.NewExecutor(db, cfg.Migrations.Table, slog.Default())
}

func snapshotStore(cfg *config.Config) *snapshot.Store {
	return snapshot.NewStore(cfg.StatePath())
}

// confirm asks a yes/no question on the terminal. --yes answers yes
// everywhere; a non-interactive stdin answers no, so scripted runs must
// pass --yes or --force explicitly.
func confirm(prompt string) bool {
	if assumeYes {
		return true
	}
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return false
	}
	fmt.Printf("%s [y/N] ", prompt)
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	}
	return false
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
