package diff

import (
	"fmt"

	"github.com/driftsql/drift/internal/schema"
)

// Destructive describes one diff item that can lose data or code when
// applied. Destructive items block apply unless confirmed or forced.
type Destructive struct {
	Kind        string `json:"kind"` // drop_table, drop_column, type_narrowing, ...
	Object      string `json:"object"`
	Description string `json:"description"`
}

// DestructiveChanges classifies the diff's destructive items: drops of
// persistent objects and column type narrowing. Renames are not
// destructive; enum value removals are reported here even though no DDL is
// ever emitted for them.
func (d *SchemaDiff) DestructiveChanges() []Destructive {
	var out []Destructive
	add := func(kind, object, format string, args ...any) {
		out = append(out, Destructive{Kind: kind, Object: object, Description: fmt.Sprintf(format, args...)})
	}

	for _, t := range d.TablesRemoved {
		add("drop_table", t.Name, "table %q will be dropped with all its data", t.Name)
	}
	for _, td := range d.TablesModified {
		for _, c := range td.ColumnsRemoved {
			add("drop_column", td.Name+"."+c.Name, "column %q.%q will be dropped with its data", td.Name, c.Name)
		}
		for _, cd := range td.ColumnsModified {
			if typeChanged(cd.Changes) && schema.IsNarrowing(cd.Old, cd.New) {
				add("type_narrowing", td.Name+"."+cd.Name,
					"column %q.%q changes from %s to %s, which can truncate data",
					td.Name, cd.Name, cd.Old.TypeString(), cd.New.TypeString())
			}
		}
		for _, cr := range td.ColumnsRenamed {
			if typeChanged(cr.Changes) && schema.IsNarrowing(cr.Old, cr.New) {
				add("type_narrowing", td.Name+"."+cr.To,
					"column %q.%q changes from %s to %s, which can truncate data",
					td.Name, cr.To, cr.Old.TypeString(), cr.New.TypeString())
			}
		}
	}
	for _, e := range d.EnumsRemoved {
		add("drop_enum", e.Name, "enum %q will be dropped", e.Name)
	}
	for _, ed := range d.EnumsModified {
		for _, v := range ed.ValuesRemoved {
			add("enum_value_removal", ed.Name,
				"enum %q loses value %q; no DDL is emitted for this, rows keep the old value", ed.Name, v)
		}
	}
	for _, dm := range d.DomainsRemoved {
		add("drop_domain", dm.Name, "domain %q will be dropped", dm.Name)
	}
	for _, sq := range d.SequencesRemoved {
		add("drop_sequence", sq.Name, "sequence %q will be dropped", sq.Name)
	}
	for _, ct := range d.CompositeTypesRemoved {
		add("drop_composite_type", ct.Name, "composite type %q will be dropped", ct.Name)
	}
	for _, v := range d.ViewsRemoved {
		add("drop_view", v.Name, "view %q will be dropped", v.Name)
	}
	for _, v := range d.MatViewsRemoved {
		add("drop_materialized_view", v.Name, "materialized view %q will be dropped", v.Name)
	}
	for _, f := range d.FunctionsRemoved {
		add("drop_function", f.Name, "function %q will be dropped", f.Name)
	}
	for _, tr := range d.TriggersRemoved {
		add("drop_trigger", tr.Name, "trigger %q will be dropped", tr.Name)
	}

	return out
}

func typeChanged(changes []FieldChange) bool {
	for _, c := range changes {
		switch c.Field {
		case "type", "length", "precision", "scale":
			return true
		}
	}
	return false
}
