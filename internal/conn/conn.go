// Package conn opens and owns database connections for the lifetime of one
// CLI command. Dialects without a wire driver (libsql, docstore) are
// refused here with a connectivity error rather than deep in an adapter.
package conn

import (
	"context"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"github.com/driftsql/drift/internal/dialect"
	"github.com/driftsql/drift/internal/drifterr"
)

func init() {
	// sqlx ships bind rules for "sqlite3" but not modernc's "sqlite".
	sqlx.BindDriver("sqlite", sqlx.QUESTION)
}

// Config holds connection parameters for one database.
type Config struct {
	URL             string
	SchemaName      string // namespace for catalog queries; defaults per family
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

// DB is an open connection bound to its dialect.
type DB struct {
	*sqlx.DB
	Dialect    *dialect.Dialect
	SchemaName string
}

// Open connects to the database described by cfg using the dialect's
// database/sql driver. The caller owns the returned handle and must Close it
// on every exit path.
func Open(ctx context.Context, d *dialect.Dialect, cfg Config) (*DB, error) {
	if d.DriverName == "" {
		return nil, drifterr.New(drifterr.Connectivity,
			"dialect %q has no wire driver; drift can validate and generate for it but cannot connect", d.Name)
	}

	dsn := DriverDSN(d, cfg.URL)
	db, err := sqlx.ConnectContext(ctx, d.DriverName, dsn)
	if err != nil {
		return nil, drifterr.Wrap(drifterr.Connectivity, err)
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}
	if cfg.ConnMaxIdleTime > 0 {
		db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)
	}
	if d.Family == dialect.FamilySQLite {
		db.SetMaxOpenConns(1) // SQLite doesn't support concurrent writes
	}

	schemaName := cfg.SchemaName
	if schemaName == "" {
		switch d.Family {
		case dialect.FamilyPostgres:
			schemaName = "public"
		case dialect.FamilyMySQL:
			schemaName = databaseFromURL(cfg.URL)
		}
	}

	return &DB{DB: db, Dialect: d, SchemaName: schemaName}, nil
}

// databaseFromURL extracts the trailing database name from a URL-style DSN.
func databaseFromURL(raw string) string {
	trimmed := raw
	if qi := strings.IndexByte(trimmed, '?'); qi >= 0 {
		trimmed = trimmed[:qi]
	}
	if si := strings.LastIndexByte(trimmed, '/'); si >= 0 {
		return trimmed[si+1:]
	}
	return ""
}
