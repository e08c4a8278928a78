package validate

import (
	"regexp"
	"strings"

	"github.com/driftsql/drift/internal/dialect"
)

// transformable reports whether a best-effort PostgreSQL rewrite exists for
// the target family.
func transformable(d *dialect.Dialect) bool {
	return d.Family == dialect.FamilyMySQL || d.Family == dialect.FamilySQLite
}

type rewrite struct {
	re   *regexp.Regexp
	repl string
}

func rw(expr, repl string) rewrite {
	return rewrite{re: regexp.MustCompile(expr), repl: repl}
}

// Statements matching a skip expression have no equivalent in the target
// and are dropped from the transformed script with a diagnostic.
var mysqlSkips = []*regexp.Regexp{
	regexp.MustCompile(`(?is)^\s*CREATE\s+(TYPE|DOMAIN|EXTENSION)\b`),
	regexp.MustCompile(`(?is)^\s*(ALTER|DROP)\s+(TYPE|DOMAIN|EXTENSION)\b`),
	regexp.MustCompile(`(?is)^\s*(CREATE|ALTER|DROP)\s+SEQUENCE\b`),
	regexp.MustCompile(`(?is)^\s*(CREATE|DROP)\s+MATERIALIZED\s+VIEW\b`),
	regexp.MustCompile(`(?is)^\s*COMMENT\s+ON\b`),
	regexp.MustCompile(`(?is)^\s*DROP\s+INDEX\s+IF\s+EXISTS\b`),
}

var mysqlRewrites = []rewrite{
	rw(`"([^"]*)"`, "`$1`"),
	rw(`(?i)\bbigserial\b`, "bigint AUTO_INCREMENT"),
	rw(`(?i)\bserial\b`, "int AUTO_INCREMENT"),
	rw(`(?i)\btimestamp with time zone\b`, "datetime"),
	rw(`(?i)\btimestamptz\b`, "datetime"),
	rw(`(?i)\bboolean\b`, "tinyint(1)"),
	rw(`(?i)\buuid\b`, "char(36)"),
	rw(`(?i)\btext\s*\[\s*\]`, "json"),
	rw(`(?i)\bGENERATED\s+(ALWAYS|BY\s+DEFAULT)\s+AS\s+IDENTITY\b`, "AUTO_INCREMENT"),
	rw(`(?i)(CREATE\s+(?:UNIQUE\s+)?INDEX)\s+IF\s+NOT\s+EXISTS`, "$1"),
	rw(`::\w+(\s*\[\s*\])?`, ""),
}

var sqliteSkips = []*regexp.Regexp{
	regexp.MustCompile(`(?is)^\s*CREATE\s+(TYPE|DOMAIN|EXTENSION|SEQUENCE)\b`),
	regexp.MustCompile(`(?is)^\s*(ALTER|DROP)\s+(TYPE|DOMAIN|EXTENSION|SEQUENCE)\b`),
	regexp.MustCompile(`(?is)^\s*CREATE\s+(OR\s+REPLACE\s+)?(FUNCTION|PROCEDURE)\b`),
	regexp.MustCompile(`(?is)^\s*DROP\s+(FUNCTION|PROCEDURE)\b`),
	regexp.MustCompile(`(?is)^\s*(CREATE|DROP)\s+MATERIALIZED\s+VIEW\b`),
	regexp.MustCompile(`(?is)^\s*COMMENT\s+ON\b`),
	regexp.MustCompile(`(?is)\bALTER\s+COLUMN\b`),
	regexp.MustCompile(`(?is)\bEXECUTE\s+(FUNCTION|PROCEDURE)\b`),
}

var sqliteRewrites = []rewrite{
	rw(`(?i)\b(big)?serial\b`, "integer"),
	rw(`(?i)\btimestamp with time zone\b`, "text"),
	rw(`(?i)\btimestamptz\b`, "text"),
	rw(`(?i)\bvarchar\s*\(\s*\d+\s*\)`, "text"),
	rw(`(?i)\bboolean\b`, "integer"),
	rw(`(?i)\buuid\b`, "text"),
	rw(`(?i)\s+GENERATED\s+(ALWAYS|BY\s+DEFAULT)\s+AS\s+IDENTITY\b`, ""),
	rw(`(?i)\s+CASCADE\s*;`, ";"),
	rw(`::\w+(\s*\[\s*\])?`, ""),
}

// Transform rewrites PostgreSQL-flavored DDL for the target family. It
// returns the rewritten statements and the statements that had to be
// skipped because no equivalent exists.
func Transform(stmts []string, d *dialect.Dialect) (out, skipped []string) {
	var skips []*regexp.Regexp
	var rewrites []rewrite
	switch d.Family {
	case dialect.FamilyMySQL:
		skips, rewrites = mysqlSkips, mysqlRewrites
	case dialect.FamilySQLite:
		skips, rewrites = sqliteSkips, sqliteRewrites
	default:
		return stmts, nil
	}

	for _, stmt := range stmts {
		if strings.HasPrefix(strings.TrimSpace(stmt), "--") {
			out = append(out, stmt)
			continue
		}
		dropped := false
		for _, re := range skips {
			if re.MatchString(stmt) {
				skipped = append(skipped, stmt)
				dropped = true
				break
			}
		}
		if dropped {
			continue
		}
		for _, r := range rewrites {
			stmt = r.re.ReplaceAllString(stmt, r.repl)
		}
		out = append(out, stmt)
	}
	return out, skipped
}
