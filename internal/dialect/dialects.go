package dialect

import "fmt"

// Index method sets shared across families.
var (
	postgresIndexMethods = map[string]bool{
		"btree": true, "hash": true, "gin": true, "gist": true, "brin": true, "spgist": true,
	}
	cockroachIndexMethods = map[string]bool{
		"btree": true, "gin": true, "gist": true,
	}
	mysqlIndexMethods = map[string]bool{
		"btree": true, "hash": true, "fulltext": true, "spatial": true,
	}
	vitessIndexMethods = map[string]bool{
		"btree": true, "fulltext": true, "spatial": true,
	}
	sqliteIndexMethods = map[string]bool{
		"btree": true,
	}
)

var postgresCapabilities = Capabilities{
	Enums:                 true,
	TablePartitioning:     true,
	StoredProcedures:      true,
	Triggers:              true,
	ForeignTables:         true,
	CompositeTypes:        true,
	MaterializedViews:     true,
	ForeignKeys:           true,
	Sequences:             true,
	DeferrableConstraints: true,
	ArrayColumns:          true,
	IdentityColumns:       true,
	IndexMethods:          postgresIndexMethods,
}

var mysqlCapabilities = Capabilities{
	StoredProcedures: true,
	Triggers:         true,
	ForeignKeys:      true,
	IndexMethods:     mysqlIndexMethods,
}

var sqliteCapabilities = Capabilities{
	Triggers:     true,
	ForeignKeys:  true,
	IndexMethods: sqliteIndexMethods,
}

// mysqlTypeMap rewrites canonical (postgres-leaning) type names into MySQL
// spellings at DDL generation time.
var mysqlTypeMap = map[string]string{
	"boolean":                  "tinyint(1)",
	"timestamp with time zone": "timestamp",
	"time with time zone":      "time",
	"timestamp":                "datetime",
	"bytea":                    "blob",
	"uuid":                     "char(36)",
	"jsonb":                    "json",
	"inet":                     "varchar(45)",
	"double precision":         "double",
	"serial":                   "int auto_increment",
	"bigserial":                "bigint auto_increment",
	"smallserial":              "smallint auto_increment",
}

// sqliteTypeMap collapses canonical types onto SQLite storage classes.
var sqliteTypeMap = map[string]string{
	"smallint":                 "integer",
	"bigint":                   "integer",
	"serial":                   "integer",
	"bigserial":                "integer",
	"smallserial":              "integer",
	"boolean":                  "integer",
	"varchar":                  "text",
	"char":                     "text",
	"uuid":                     "text",
	"json":                     "text",
	"jsonb":                    "text",
	"timestamp":                "text",
	"timestamp with time zone": "text",
	"time":                     "text",
	"time with time zone":      "text",
	"date":                     "text",
	"interval":                 "text",
	"inet":                     "text",
	"bytea":                    "blob",
	"numeric":                  "real",
	"double precision":         "real",
}

var sqliteBlockedTypes = map[string]string{
	"money":    "use integer cents or text",
	"tsvector": "use an external index or a fulltext shadow table",
	"point":    "store coordinates in two real columns",
}

func postgresTrackingDDL(table string) string {
	return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	id bigserial PRIMARY KEY,
	name text NOT NULL,
	filename text NOT NULL DEFAULT '',
	hash text NOT NULL DEFAULT '',
	batch integer NOT NULL DEFAULT 1,
	sql_up text NOT NULL,
	sql_down text NOT NULL DEFAULT '',
	source text NOT NULL DEFAULT 'migrate',
	applied_at timestamp with time zone NOT NULL DEFAULT now()
)`, table)
}

func mysqlTrackingDDL(table string) string {
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n"+
		"\tid bigint AUTO_INCREMENT PRIMARY KEY,\n"+
		"\tname varchar(255) NOT NULL,\n"+
		"\tfilename varchar(255) NOT NULL DEFAULT '',\n"+
		"\thash varchar(64) NOT NULL DEFAULT '',\n"+
		"\tbatch int NOT NULL DEFAULT 1,\n"+
		"\tsql_up longtext NOT NULL,\n"+
		"\tsql_down longtext,\n"+
		"\tsource varchar(16) NOT NULL DEFAULT 'migrate',\n"+
		"\tapplied_at timestamp NOT NULL DEFAULT CURRENT_TIMESTAMP\n"+
		")", table)
}

func sqliteTrackingDDL(table string) string {
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n"+
		"\tid INTEGER PRIMARY KEY AUTOINCREMENT,\n"+
		"\tname TEXT NOT NULL,\n"+
		"\tfilename TEXT NOT NULL DEFAULT '',\n"+
		"\thash TEXT NOT NULL DEFAULT '',\n"+
		"\tbatch INTEGER NOT NULL DEFAULT 1,\n"+
		"\tsql_up TEXT NOT NULL,\n"+
		"\tsql_down TEXT NOT NULL DEFAULT '',\n"+
		"\tsource TEXT NOT NULL DEFAULT 'migrate',\n"+
		"\tapplied_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP\n"+
		")", table)
}

// Postgres is standard PostgreSQL.
var Postgres = &Dialect{
	Name:             "postgres",
	Family:           FamilyPostgres,
	DefaultPort:      5432,
	DefaultUser:      "postgres",
	DriverName:       "pgx",
	URLSchemes:       []string{"postgres", "postgresql"},
	Capabilities:     postgresCapabilities,
	QuoteChar:        '"',
	PlaceholderStyle: dollarPlaceholder,
	TransactionalDDL: true,
	TrackingTableDDL: postgresTrackingDDL,
}

// CockroachDB is the distributed PostgreSQL variant.
var CockroachDB = &Dialect{
	Name:        "cockroachdb",
	Family:      FamilyPostgres,
	DefaultPort: 26257,
	DefaultUser: "root",
	DriverName:  "pgx",
	URLSchemes:  []string{"cockroachdb", "cockroach"},
	Capabilities: func() Capabilities {
		c := postgresCapabilities
		c.IndexMethods = cockroachIndexMethods
		c.ForeignTables = false
		c.DeferrableConstraints = false
		return c
	}(),
	QuoteChar:        '"',
	PlaceholderStyle: dollarPlaceholder,
	BlockedTypes: map[string]string{
		"money":    "use numeric",
		"tsvector": "use an inverted (gin) index over jsonb",
	},
	TransactionalDDL: true,
	TrackingTableDDL: postgresTrackingDDL,
}

// Nile is the multi-tenant PostgreSQL variant. Tables are classified as
// tenant-aware or shared; the validator enforces the tenant_id rules.
var Nile = &Dialect{
	Name:        "nile",
	Family:      FamilyPostgres,
	DefaultPort: 5432,
	DefaultUser: "postgres",
	DriverName:  "pgx",
	URLSchemes:  []string{"nile"},
	Capabilities: func() Capabilities {
		c := postgresCapabilities
		c.TablePartitioning = false
		c.ForeignTables = false
		return c
	}(),
	QuoteChar:        '"',
	PlaceholderStyle: dollarPlaceholder,
	TransactionalDDL: true,
	TrackingTableDDL: postgresTrackingDDL,
}

// Neon is the serverless PostgreSQL variant. Feature-wise plain postgres.
var Neon = &Dialect{
	Name:             "neon",
	Family:           FamilyPostgres,
	DefaultPort:      5432,
	DefaultUser:      "neondb_owner",
	DriverName:       "pgx",
	URLSchemes:       []string{"neon"},
	Capabilities:     postgresCapabilities,
	QuoteChar:        '"',
	PlaceholderStyle: dollarPlaceholder,
	TransactionalDDL: true,
	TrackingTableDDL: postgresTrackingDDL,
}

// MySQL is stock MySQL 8.
var MySQL = &Dialect{
	Name:             "mysql",
	Family:           FamilyMySQL,
	DefaultPort:      3306,
	DefaultUser:      "root",
	DriverName:       "mysql",
	URLSchemes:       []string{"mysql"},
	Capabilities:     mysqlCapabilities,
	QuoteChar:        '`',
	PlaceholderStyle: questionPlaceholder,
	TypeMap:          mysqlTypeMap,
	BlockedTypes: map[string]string{
		"tsvector": "use a FULLTEXT index",
		"interval": "store seconds in a bigint column",
	},
	TransactionalDDL: false, // implicit commit on every DDL statement
	TrackingTableDDL: mysqlTrackingDDL,
}

// MariaDB differs from MySQL only in a few capability corners drift cares
// about (it kept sequences).
var MariaDB = &Dialect{
	Name:        "mariadb",
	Family:      FamilyMySQL,
	DefaultPort: 3306,
	DefaultUser: "root",
	DriverName:  "mysql",
	URLSchemes:  []string{"mariadb"},
	Capabilities: func() Capabilities {
		c := mysqlCapabilities
		c.Sequences = true
		return c
	}(),
	QuoteChar:        '`',
	PlaceholderStyle: questionPlaceholder,
	TypeMap:          mysqlTypeMap,
	TransactionalDDL: false,
	TrackingTableDDL: mysqlTrackingDDL,
}

// PlanetScale is the Vitess-based MySQL variant: no foreign keys.
var PlanetScale = &Dialect{
	Name:        "planetscale",
	Family:      FamilyMySQL,
	DefaultPort: 3306,
	DefaultUser: "root",
	DriverName:  "mysql",
	URLSchemes:  []string{"planetscale"},
	Capabilities: func() Capabilities {
		c := mysqlCapabilities
		c.ForeignKeys = false
		c.IndexMethods = vitessIndexMethods
		return c
	}(),
	QuoteChar:        '`',
	PlaceholderStyle: questionPlaceholder,
	TypeMap:          mysqlTypeMap,
	TransactionalDDL: false,
	TrackingTableDDL: mysqlTrackingDDL,
}

// SQLite is local SQLite.
var SQLite = &Dialect{
	Name:             "sqlite",
	Family:           FamilySQLite,
	DriverName:       "sqlite",
	URLSchemes:       []string{"sqlite", "file"},
	Capabilities:     sqliteCapabilities,
	QuoteChar:        '"',
	PlaceholderStyle: questionPlaceholder,
	TypeMap:          sqliteTypeMap,
	BlockedTypes:     sqliteBlockedTypes,
	TransactionalDDL: true,
	TrackingTableDDL: sqliteTrackingDDL,
}

// LibSQL is the libSQL-over-HTTP variant. Same surface as SQLite, but drift
// has no wire driver for it: validation and generation work, live
// operations are refused by the connection layer.
var LibSQL = &Dialect{
	Name:             "libsql",
	Family:           FamilySQLite,
	DefaultPort:      443,
	URLSchemes:       []string{"libsql"},
	Capabilities:     sqliteCapabilities,
	QuoteChar:        '"',
	PlaceholderStyle: questionPlaceholder,
	TypeMap:          sqliteTypeMap,
	BlockedTypes:     sqliteBlockedTypes,
	TransactionalDDL: false, // each HTTP batch commits independently
	TrackingTableDDL: sqliteTrackingDDL,
}

// DocStore is the proprietary document-store dialect. Relational DDL does
// not apply; every feature flag is off and the validator rejects all
// statements with document-model alternatives.
var DocStore = &Dialect{
	Name:             "docstore",
	Family:           FamilyDocStore,
	DefaultPort:      6420,
	DefaultUser:      "admin",
	URLSchemes:       []string{"docstore"},
	Capabilities:     Capabilities{},
	QuoteChar:        '"',
	PlaceholderStyle: questionPlaceholder,
	TransactionalDDL: false,
	TrackingTableDDL: func(string) string { return "" },
}
