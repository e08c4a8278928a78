package schema

// Schema is the canonical, dialect-neutral representation of a database
// schema. Every component of drift reads or produces one: introspection
// adapters build it from the live catalog, the source loader builds it from
// the authored schema document, the diff engine compares two of them, and
// the snapshot store persists one verbatim.
type Schema struct {
	Extensions        []Extension     `json:"extensions,omitempty"`
	Enums             []Enum          `json:"enums,omitempty"`
	Domains           []Domain        `json:"domains,omitempty"`
	CompositeTypes    []CompositeType `json:"composite_types,omitempty"`
	Sequences         []Sequence      `json:"sequences,omitempty"`
	Tables            []Table         `json:"tables"`
	Functions         []Function      `json:"functions,omitempty"`
	Triggers          []Trigger       `json:"triggers,omitempty"`
	Views             []View          `json:"views,omitempty"`
	MaterializedViews []View          `json:"materialized_views,omitempty"`
	ForeignTables     []ForeignTable  `json:"foreign_tables,omitempty"`
	Collations        []Collation     `json:"collations,omitempty"`
}

// Table describes a single table: its columns, indexes, constraints, and
// optional partitioning layout.
type Table struct {
	Name         string        `json:"name"`
	SchemaName   string        `json:"schema_name,omitempty"`
	Columns      []Column      `json:"columns"`
	Indexes      []Index       `json:"indexes,omitempty"`
	Constraints  []Constraint  `json:"constraints,omitempty"`
	Partitioning *Partitioning `json:"partitioning,omitempty"`
	Comment      string        `json:"comment,omitempty"`
	TrackingID   string        `json:"tracking_id,omitempty"`
}

// Partitioning describes a table's partition layout.
type Partitioning struct {
	Type            string   `json:"type"` // "range", "list", or "hash"
	Keys            []string `json:"keys"`
	ChildPartitions []string `json:"child_partitions,omitempty"`
}

// Column describes a single column within a table.
type Column struct {
	Name         string     `json:"name"`
	Ordinal      int        `json:"ordinal"`
	Type         string     `json:"type"` // canonical type name, see Canonicalize
	Length       *int       `json:"length,omitempty"`
	Precision    *int       `json:"precision,omitempty"`
	Scale        *int       `json:"scale,omitempty"`
	IsArray      bool       `json:"is_array,omitempty"`
	Nullable     bool       `json:"nullable"`
	Default      *string    `json:"default,omitempty"`
	IsPrimaryKey bool       `json:"is_primary_key,omitempty"`
	IsUnique     bool       `json:"is_unique,omitempty"`
	Generated    *Generated `json:"generated,omitempty"`
	Identity     string     `json:"identity,omitempty"` // "always", "by_default", or ""
	Comment      string     `json:"comment,omitempty"`
	TrackingID   string     `json:"tracking_id,omitempty"`
}

// Generated describes a generated column expression.
type Generated struct {
	Expr   string `json:"expr"`
	Stored bool   `json:"stored"`
}

// Index describes an index on one or more columns or on an expression.
type Index struct {
	Name       string   `json:"name"`
	Columns    []string `json:"columns"` // ordered
	IsUnique   bool     `json:"is_unique,omitempty"`
	Method     string   `json:"method,omitempty"` // btree, hash, gin, gist, brin, spgist, fulltext, spatial
	Where      string   `json:"where,omitempty"`
	Expression string   `json:"expression,omitempty"`
	Comment    string   `json:"comment,omitempty"`
	TrackingID string   `json:"tracking_id,omitempty"`
}

// ConstraintKind enumerates the supported constraint kinds.
type ConstraintKind string

const (
	PrimaryKey ConstraintKind = "PRIMARY_KEY"
	Unique     ConstraintKind = "UNIQUE"
	Check      ConstraintKind = "CHECK"
	ForeignKey ConstraintKind = "FOREIGN_KEY"
	Exclusion  ConstraintKind = "EXCLUSION"
)

// Constraint describes a table constraint.
type Constraint struct {
	Name              string         `json:"name"`
	Kind              ConstraintKind `json:"kind"`
	Columns           []string       `json:"columns,omitempty"` // ordered
	CheckExpr         string         `json:"check_expr,omitempty"`
	ReferencedTable   string         `json:"referenced_table,omitempty"`
	ReferencedColumns []string       `json:"referenced_columns,omitempty"`
	OnDelete          string         `json:"on_delete,omitempty"`
	OnUpdate          string         `json:"on_update,omitempty"`
	TrackingID        string         `json:"tracking_id,omitempty"`
}

// Enum describes an enumerated type with ordered values.
type Enum struct {
	Name       string   `json:"name"`
	Values     []string `json:"values"` // ordered
	TrackingID string   `json:"tracking_id,omitempty"`
}

// Domain describes a domain type over a base type.
type Domain struct {
	Name       string  `json:"name"`
	BaseType   string  `json:"base_type"`
	NotNull    bool    `json:"not_null,omitempty"`
	Default    *string `json:"default,omitempty"`
	CheckExpr  string  `json:"check_expr,omitempty"`
	TrackingID string  `json:"tracking_id,omitempty"`
}

// CompositeType describes a composite (row) type.
type CompositeType struct {
	Name       string      `json:"name"`
	Fields     []TypeField `json:"fields"`
	TrackingID string      `json:"tracking_id,omitempty"`
}

// TypeField is one field of a composite type.
type TypeField struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// Sequence describes a standalone sequence.
type Sequence struct {
	Name       string `json:"name"`
	DataType   string `json:"data_type,omitempty"`
	Start      int64  `json:"start,omitempty"`
	Increment  int64  `json:"increment,omitempty"`
	Min        *int64 `json:"min,omitempty"`
	Max        *int64 `json:"max,omitempty"`
	Cache      int64  `json:"cache,omitempty"`
	Cycle      bool   `json:"cycle,omitempty"`
	OwnedBy    string `json:"owned_by,omitempty"` // "table.column"
	TrackingID string `json:"tracking_id,omitempty"`
}

// FunctionArg is a single named argument of a function.
type FunctionArg struct {
	Name string `json:"name,omitempty"`
	Type string `json:"type"`
}

// Function describes a stored function or procedure.
type Function struct {
	Name            string        `json:"name"`
	Args            []FunctionArg `json:"args,omitempty"`
	Returns         string        `json:"returns,omitempty"`
	Language        string        `json:"language,omitempty"`
	Body            string        `json:"body,omitempty"`
	Volatility      string        `json:"volatility,omitempty"` // volatile, stable, immutable
	IsStrict        bool          `json:"is_strict,omitempty"`
	SecurityDefiner bool          `json:"security_definer,omitempty"`
	IsProcedure     bool          `json:"is_procedure,omitempty"`
	TrackingID      string        `json:"tracking_id,omitempty"`
}

// Trigger describes a trigger bound to a table.
type Trigger struct {
	Name       string   `json:"name"`
	Table      string   `json:"table"`
	Events     []string `json:"events"`             // INSERT, UPDATE, DELETE, TRUNCATE
	Timing     string   `json:"timing"`             // BEFORE, AFTER, INSTEAD_OF
	ForEach    string   `json:"for_each,omitempty"` // ROW or STATEMENT
	When       string   `json:"when,omitempty"`
	Function   string   `json:"function"`
	TrackingID string   `json:"tracking_id,omitempty"`
}

// View describes a view or materialized view.
type View struct {
	Name       string `json:"name"`
	Definition string `json:"definition"`
	Comment    string `json:"comment,omitempty"`
	TrackingID string `json:"tracking_id,omitempty"`
}

// ForeignTable describes a foreign table bound to a foreign server.
type ForeignTable struct {
	Name       string   `json:"name"`
	ServerName string   `json:"server_name"`
	Columns    []Column `json:"columns"`
	TrackingID string   `json:"tracking_id,omitempty"`
}

// Extension describes an installed database extension.
type Extension struct {
	Name    string `json:"name"`
	Version string `json:"version,omitempty"`
}

// Collation describes a collation visible in the schema.
type Collation struct {
	Name   string `json:"name"`
	Locale string `json:"locale,omitempty"`
}

// FindTable returns the table with the given name, or nil.
func (s *Schema) FindTable(name string) *Table {
	for i := range s.Tables {
		if s.Tables[i].Name == name {
			return &s.Tables[i]
		}
	}
	return nil
}

// FindEnum returns the enum with the given name, or nil.
func (s *Schema) FindEnum(name string) *Enum {
	for i := range s.Enums {
		if s.Enums[i].Name == name {
			return &s.Enums[i]
		}
	}
	return nil
}

// FindColumn returns the column with the given name, or nil.
func (t *Table) FindColumn(name string) *Column {
	for i := range t.Columns {
		if t.Columns[i].Name == name {
			return &t.Columns[i]
		}
	}
	return nil
}

// FindIndex returns the index with the given name, or nil.
func (t *Table) FindIndex(name string) *Index {
	for i := range t.Indexes {
		if t.Indexes[i].Name == name {
			return &t.Indexes[i]
		}
	}
	return nil
}

// FindConstraint returns the constraint with the given name, or nil.
func (t *Table) FindConstraint(name string) *Constraint {
	for i := range t.Constraints {
		if t.Constraints[i].Name == name {
			return &t.Constraints[i]
		}
	}
	return nil
}

// PrimaryKeyConstraint returns the table's PRIMARY_KEY constraint, or nil.
func (t *Table) PrimaryKeyConstraint() *Constraint {
	for i := range t.Constraints {
		if t.Constraints[i].Kind == PrimaryKey {
			return &t.Constraints[i]
		}
	}
	return nil
}
