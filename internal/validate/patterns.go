package validate

import (
	"regexp"

	"github.com/driftsql/drift/internal/dialect"
)

// pattern is one forbidden-construct rule: a regex over the statement text
// plus classification and a human alternative.
type pattern struct {
	re          *regexp.Regexp
	category    Category
	feature     string
	alternative string
	warn        bool
}

func pat(expr string, cat Category, feature, alt string) pattern {
	return pattern{re: regexp.MustCompile(expr), category: cat, feature: feature, alternative: alt}
}

func warn(expr string, cat Category, feature, alt string) pattern {
	p := pat(expr, cat, feature, alt)
	p.warn = true
	return p
}

var sqlitePatterns = []pattern{
	pat(`(?is)^\s*CREATE\s+SEQUENCE`, CategoryDDL, "CREATE_SEQUENCE",
		"use INTEGER PRIMARY KEY AUTOINCREMENT"),
	pat(`(?is)^\s*CREATE\s+(OR\s+REPLACE\s+)?(FUNCTION|PROCEDURE)`, CategoryFunction, "CREATE_FUNCTION",
		"move the logic into the application"),
	pat(`(?is)^\s*CREATE\s+TYPE\b`, CategoryDataType, "CREATE_TYPE",
		"use a text column with a CHECK constraint"),
	pat(`(?is)^\s*CREATE\s+DOMAIN\b`, CategoryDataType, "CREATE_DOMAIN",
		"inline the base type and CHECK constraint"),
	pat(`(?is)^\s*CREATE\s+EXTENSION\b`, CategoryExtension, "CREATE_EXTENSION",
		"SQLite has no extension mechanism"),
	pat(`(?is)^\s*CREATE\s+MATERIALIZED\s+VIEW`, CategoryDDL, "CREATE_MATERIALIZED_VIEW",
		"use a plain view or a table refreshed by the application"),
	pat(`(?is)^\s*(ALTER|DROP)\s+TYPE\b`, CategoryDDL, "ALTER_TYPE",
		"enum-like types are not supported"),
	pat(`(?is)^\s*COMMENT\s+ON\b`, CategorySyntax, "COMMENT_ON",
		"keep comments in the schema document"),
	pat(`(?is)\bALTER\s+COLUMN\b`, CategoryDDL, "ALTER_COLUMN",
		"rebuild the table: create new, copy rows, drop old, rename"),
	pat(`(?i)\bUSING\s+(gin|gist|brin|spgist|hash)\b`, CategoryIndex, "INDEX_METHOD",
		"only btree indexes are available"),
	pat(`(?i)\b(big)?serial\b`, CategoryDataType, "SERIAL",
		"use INTEGER PRIMARY KEY AUTOINCREMENT"),
	warn(`(?is)^\s*DROP\s+TABLE\b.*\bCASCADE\b`, CategorySyntax, "DROP_CASCADE",
		"SQLite ignores CASCADE; dependent objects must be dropped explicitly"),
}

var mysqlPatterns = []pattern{
	pat(`(?is)^\s*CREATE\s+TYPE\b.*\bAS\s+ENUM\b`, CategoryDataType, "CREATE_TYPE_ENUM",
		"use an inline ENUM(...) column type"),
	pat(`(?is)^\s*CREATE\s+TYPE\b.*\bAS\s*\(`, CategoryDataType, "CREATE_COMPOSITE_TYPE",
		"composite types are not supported; use JSON or separate columns"),
	pat(`(?is)^\s*CREATE\s+DOMAIN\b`, CategoryDataType, "CREATE_DOMAIN",
		"inline the base type and CHECK constraint"),
	pat(`(?is)^\s*CREATE\s+EXTENSION\b`, CategoryExtension, "CREATE_EXTENSION",
		"MySQL has no extension mechanism"),
	pat(`(?is)^\s*CREATE\s+MATERIALIZED\s+VIEW`, CategoryDDL, "CREATE_MATERIALIZED_VIEW",
		"use a table refreshed by a scheduled job"),
	pat(`(?is)^\s*(ALTER|DROP)\s+TYPE\b`, CategoryDDL, "ALTER_TYPE",
		"change the inline ENUM column definition instead"),
	pat(`(?is)^\s*COMMENT\s+ON\b`, CategorySyntax, "COMMENT_ON",
		"use the inline COMMENT clause on columns and tables"),
	pat(`(?i)\bUSING\s+(gin|gist|brin|spgist)\b`, CategoryIndex, "INDEX_METHOD",
		"use FULLTEXT or a btree index"),
	pat(`(?i)\bEXCLUDE\b.*\bWITH\b`, CategoryConstraint, "EXCLUSION_CONSTRAINT",
		"enforce exclusion in the application or with triggers"),
	pat(`(?i)\bDEFERRABLE\b`, CategoryConstraint, "DEFERRABLE_CONSTRAINT",
		"MySQL constraints are always immediate"),
	pat(`(?i)\w+\s*\[\s*\]`, CategoryDataType, "ARRAY_TYPE",
		"use a JSON column"),
}

// mysqlSequencePattern applies to MySQL and PlanetScale but not MariaDB,
// which has real sequences.
var mysqlSequencePattern = pat(`(?is)^\s*(CREATE|ALTER|DROP)\s+SEQUENCE`, CategoryDDL, "CREATE_SEQUENCE",
	"use an AUTO_INCREMENT column")

var planetscalePatterns = []pattern{
	pat(`(?i)\bFOREIGN\s+KEY\b`, CategoryConstraint, "FOREIGN_KEY",
		"Vitess does not enforce foreign keys; handle references in the application"),
	pat(`(?i)\bREFERENCES\s+\S+\s*\(`, CategoryConstraint, "FOREIGN_KEY",
		"Vitess does not enforce foreign keys; handle references in the application"),
}

var docstorePatterns = []pattern{
	pat(`(?s).`, CategorySyntax, "SQL_DDL",
		"document stores are schemaless; manage collections through the store's own tooling"),
}

var cockroachPatterns = []pattern{
	warn(`(?is)^\s*CREATE\s+EXTENSION\b`, CategoryExtension, "CREATE_EXTENSION",
		"CockroachDB ships its features built in; the statement is a no-op at best"),
}

// patternsFor assembles the pattern registry for a dialect: family rules
// first, then dialect-specific additions.
func patternsFor(d *dialect.Dialect) []pattern {
	var out []pattern
	switch d.Family {
	case dialect.FamilySQLite:
		out = append(out, sqlitePatterns...)
	case dialect.FamilyMySQL:
		out = append(out, mysqlPatterns...)
		if d.Name != "mariadb" {
			out = append(out, mysqlSequencePattern)
		}
	case dialect.FamilyDocStore:
		return docstorePatterns
	}
	switch d.Name {
	case "planetscale":
		out = append(out, planetscalePatterns...)
	case "cockroachdb":
		out = append(out, cockroachPatterns...)
	}
	return out
}
