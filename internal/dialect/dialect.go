// Package dialect defines the capability matrix for every SQL flavor drift
// speaks. A dialect is a record of flags and small function-valued fields;
// the rest of the system is a function over that record.
package dialect

import (
	"fmt"
	"strings"
)

// Family groups dialects that share an introspection and transformation
// strategy.
type Family string

const (
	FamilyPostgres Family = "postgres"
	FamilyMySQL    Family = "mysql"
	FamilySQLite   Family = "sqlite"
	FamilyDocStore Family = "docstore"
)

// Capabilities enumerates the schema features a dialect supports. The diff
// and validation layers consult these flags instead of switching on dialect
// names.
type Capabilities struct {
	Enums                 bool
	TablePartitioning     bool
	StoredProcedures      bool
	Triggers              bool
	ForeignTables         bool
	CompositeTypes        bool
	MaterializedViews     bool
	ForeignKeys           bool
	Sequences             bool
	DeferrableConstraints bool
	ArrayColumns          bool
	IdentityColumns       bool
	IndexMethods          map[string]bool
}

// SupportsIndexMethod reports whether the dialect supports the given index
// access method. An empty method means the dialect default and is always
// allowed.
func (c Capabilities) SupportsIndexMethod(method string) bool {
	if method == "" {
		return true
	}
	return c.IndexMethods[strings.ToLower(method)]
}

// Dialect is the full capability record for one SQL flavor.
type Dialect struct {
	Name   string
	Family Family

	// Connection defaults.
	DefaultPort int
	DefaultUser string
	// DriverName is the database/sql driver used for live connections;
	// empty when drift cannot connect directly (libsql, docstore).
	DriverName string
	// URLSchemes are the connection-URL schemes that select this dialect.
	URLSchemes []string

	Capabilities Capabilities

	// QuoteChar is the identifier quote character.
	QuoteChar rune
	// PlaceholderStyle renders the nth (1-based) query parameter.
	PlaceholderStyle func(n int) string

	// TypeMap translates canonical type names to the dialect spelling.
	// Types absent from the map render as their canonical name.
	TypeMap map[string]string
	// BlockedTypes maps unsupported canonical types to a suggested
	// alternative, surfaced in validation errors.
	BlockedTypes map[string]string

	// TransactionalDDL reports whether DDL can run inside a transaction.
	TransactionalDDL bool

	// TrackingTableDDL returns the CREATE statement for the migration
	// tracking table under the given name.
	TrackingTableDDL func(table string) string
}

// QuoteIdentifier wraps an identifier in the dialect's quote character,
// doubling any embedded quote characters.
func (d *Dialect) QuoteIdentifier(name string) string {
	q := string(d.QuoteChar)
	return q + strings.ReplaceAll(name, q, q+q) + q
}

// RenderType translates a canonical type name into the dialect spelling.
func (d *Dialect) RenderType(canonical string) string {
	if mapped, ok := d.TypeMap[canonical]; ok {
		return mapped
	}
	return canonical
}

// Placeholder renders the nth (1-based) parameter placeholder.
func (d *Dialect) Placeholder(n int) string {
	return d.PlaceholderStyle(n)
}

func dollarPlaceholder(n int) string { return fmt.Sprintf("$%d", n) }
func questionPlaceholder(int) string { return "?" }
