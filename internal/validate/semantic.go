package validate

import (
	"fmt"

	"github.com/driftsql/drift/internal/dialect"
	"github.com/driftsql/drift/internal/schema"
)

// checkCapabilities walks the schema model and reports every feature the
// dialect's capability record rules out.
func checkCapabilities(r *Result, s *schema.Schema, d *dialect.Dialect) {
	caps := d.Capabilities
	addErr := func(cat Category, feature, object, format string, args ...any) {
		r.Errors = append(r.Errors, Issue{
			Category: cat, Feature: feature, Object: object,
			Message:     fmt.Sprintf(format, args...),
			Alternative: alternativeFor(feature, d),
		})
	}

	if d.Family == dialect.FamilyDocStore {
		addErr(CategorySyntax, "SQL_SCHEMA", "",
			"%s is schemaless; drift can validate but never apply DDL to it", d.Name)
		return
	}

	if !caps.Enums {
		for _, e := range s.Enums {
			addErr(CategoryDataType, "ENUM", e.Name, "enum %q is not supported by %s", e.Name, d.Name)
		}
	}
	if !caps.Sequences {
		for _, sq := range s.Sequences {
			addErr(CategoryDDL, "CREATE_SEQUENCE", sq.Name, "sequence %q is not supported by %s", sq.Name, d.Name)
		}
	}
	if !caps.StoredProcedures {
		for _, f := range s.Functions {
			addErr(CategoryFunction, "CREATE_FUNCTION", f.Name, "function %q is not supported by %s", f.Name, d.Name)
		}
	}
	if !caps.Triggers {
		for _, tr := range s.Triggers {
			addErr(CategoryTrigger, "CREATE_TRIGGER", tr.Name, "trigger %q is not supported by %s", tr.Name, d.Name)
		}
	}
	if !caps.CompositeTypes {
		for _, ct := range s.CompositeTypes {
			addErr(CategoryDataType, "CREATE_COMPOSITE_TYPE", ct.Name, "composite type %q is not supported by %s", ct.Name, d.Name)
		}
	}
	if !caps.MaterializedViews {
		for _, v := range s.MaterializedViews {
			addErr(CategoryDDL, "CREATE_MATERIALIZED_VIEW", v.Name, "materialized view %q is not supported by %s", v.Name, d.Name)
		}
	}
	if !caps.ForeignTables {
		for _, ft := range s.ForeignTables {
			addErr(CategoryDDL, "FOREIGN_TABLE", ft.Name, "foreign table %q is not supported by %s", ft.Name, d.Name)
		}
	}

	for ti := range s.Tables {
		t := &s.Tables[ti]
		if t.Partitioning != nil && !caps.TablePartitioning {
			addErr(CategoryDDL, "TABLE_PARTITIONING", t.Name, "partitioned table %q is not supported by %s", t.Name, d.Name)
		}
		for _, c := range t.Columns {
			if c.IsArray && !caps.ArrayColumns {
				addErr(CategoryDataType, "ARRAY_TYPE", t.Name+"."+c.Name,
					"array column %q.%q is not supported by %s", t.Name, c.Name, d.Name)
			}
			if alt, blocked := d.BlockedTypes[c.Type]; blocked {
				r.Errors = append(r.Errors, Issue{
					Category: CategoryDataType, Feature: "BLOCKED_TYPE",
					Object:      t.Name + "." + c.Name,
					Message:     fmt.Sprintf("type %q of %q.%q is not supported by %s", c.Type, t.Name, c.Name, d.Name),
					Alternative: alt,
				})
			}
			if c.Identity != "" && !caps.IdentityColumns {
				addErr(CategoryDataType, "IDENTITY_COLUMN", t.Name+"."+c.Name,
					"identity column %q.%q is not supported by %s", t.Name, c.Name, d.Name)
			}
		}
		for _, ix := range t.Indexes {
			if !caps.SupportsIndexMethod(ix.Method) {
				addErr(CategoryIndex, "INDEX_METHOD", t.Name+"."+ix.Name,
					"index %q uses method %q, not supported by %s", ix.Name, ix.Method, d.Name)
			}
		}
		for _, con := range t.Constraints {
			if con.Kind == schema.ForeignKey && !caps.ForeignKeys {
				addErr(CategoryConstraint, "FOREIGN_KEY", t.Name+"."+con.Name,
					"foreign key %q on %q is not enforced by %s", con.Name, t.Name, d.Name)
			}
			if con.Kind == schema.Exclusion && d.Family != dialect.FamilyPostgres {
				addErr(CategoryConstraint, "EXCLUSION_CONSTRAINT", t.Name+"."+con.Name,
					"exclusion constraint %q on %q is not supported by %s", con.Name, t.Name, d.Name)
			}
		}
	}
}

func alternativeFor(feature string, d *dialect.Dialect) string {
	switch feature {
	case "CREATE_SEQUENCE":
		if d.Family == dialect.FamilySQLite {
			return "use INTEGER PRIMARY KEY AUTOINCREMENT"
		}
		return "use an AUTO_INCREMENT column"
	case "ENUM":
		if d.Family == dialect.FamilyMySQL {
			return "use an inline ENUM(...) column type"
		}
		return "use a text column with a CHECK constraint"
	case "FOREIGN_KEY":
		return "handle references in the application"
	case "CREATE_FUNCTION":
		return "move the logic into the application"
	case "ARRAY_TYPE":
		return "use a JSON column"
	case "INDEX_METHOD":
		return "use a btree index"
	}
	return ""
}

// checkTenancy enforces the multi-tenant layout: a tenant-aware table (one
// with a tenant_id column) must type it uuid and include it in the primary
// key, and foreign keys must not cross the tenant/shared boundary.
func checkTenancy(r *Result, s *schema.Schema) {
	tenantAware := make(map[string]bool, len(s.Tables))
	for ti := range s.Tables {
		t := &s.Tables[ti]
		c := t.FindColumn("tenant_id")
		if c == nil {
			continue
		}
		tenantAware[t.Name] = true

		if c.Type != "uuid" {
			r.Errors = append(r.Errors, Issue{
				Category: CategoryTenant, Feature: "TENANT_ID_TYPE",
				Object:      t.Name + ".tenant_id",
				Message:     fmt.Sprintf("tenant_id on %q must be uuid, got %q", t.Name, c.Type),
				Alternative: "declare tenant_id uuid NOT NULL",
			})
		}
		if !tenantIDInPrimaryKey(t) {
			r.Errors = append(r.Errors, Issue{
				Category: CategoryTenant, Feature: "TENANT_ID_PRIMARY_KEY",
				Object:      t.Name,
				Message:     fmt.Sprintf("tenant_id on %q must be part of the primary key", t.Name),
				Alternative: "declare PRIMARY KEY (tenant_id, id)",
			})
		}
	}

	for ti := range s.Tables {
		t := &s.Tables[ti]
		for _, con := range t.Constraints {
			if con.Kind != schema.ForeignKey {
				continue
			}
			if tenantAware[t.Name] != tenantAware[con.ReferencedTable] {
				r.Errors = append(r.Errors, Issue{
					Category: CategoryTenant, Feature: "CROSS_TENANCY_FOREIGN_KEY",
					Object:      t.Name + "." + con.Name,
					Message:     fmt.Sprintf("foreign key %q crosses the tenant/shared boundary (%q -> %q)", con.Name, t.Name, con.ReferencedTable),
					Alternative: "reference tables of the same tenancy classification only",
				})
			}
		}
	}
}

func tenantIDInPrimaryKey(t *schema.Table) bool {
	if pk := t.PrimaryKeyConstraint(); pk != nil {
		for _, col := range pk.Columns {
			if col == "tenant_id" {
				return true
			}
		}
		return false
	}
	if c := t.FindColumn("tenant_id"); c != nil {
		return c.IsPrimaryKey
	}
	return false
}
