package schema

import (
	"fmt"
)

// Validate checks the model invariants: unique names within each container,
// primary-key coherence between columns and constraints, and foreign keys
// that point at existing tables with matching column counts.
func (s *Schema) Validate() error {
	tableNames := make(map[string]bool, len(s.Tables))
	for i := range s.Tables {
		t := &s.Tables[i]
		if tableNames[t.Name] {
			return fmt.Errorf("duplicate table %q", t.Name)
		}
		tableNames[t.Name] = true
		if err := t.validate(); err != nil {
			return err
		}
	}

	seen := make(map[string]bool)
	for _, e := range s.Enums {
		if seen["enum:"+e.Name] {
			return fmt.Errorf("duplicate enum %q", e.Name)
		}
		seen["enum:"+e.Name] = true
	}
	for _, d := range s.Domains {
		if seen["domain:"+d.Name] {
			return fmt.Errorf("duplicate domain %q", d.Name)
		}
		seen["domain:"+d.Name] = true
	}
	for _, sq := range s.Sequences {
		if seen["sequence:"+sq.Name] {
			return fmt.Errorf("duplicate sequence %q", sq.Name)
		}
		seen["sequence:"+sq.Name] = true
	}

	// Foreign keys must reference existing tables and columns.
	for i := range s.Tables {
		t := &s.Tables[i]
		for _, c := range t.Constraints {
			if c.Kind != ForeignKey {
				continue
			}
			ref := s.FindTable(c.ReferencedTable)
			if ref == nil {
				return fmt.Errorf("table %q: foreign key %q references unknown table %q",
					t.Name, c.Name, c.ReferencedTable)
			}
			if len(c.Columns) != len(c.ReferencedColumns) {
				return fmt.Errorf("table %q: foreign key %q has %d local columns but %d referenced columns",
					t.Name, c.Name, len(c.Columns), len(c.ReferencedColumns))
			}
			for _, rc := range c.ReferencedColumns {
				if ref.FindColumn(rc) == nil {
					return fmt.Errorf("table %q: foreign key %q references unknown column %q.%q",
						t.Name, c.Name, c.ReferencedTable, rc)
				}
			}
		}
	}

	// Triggers must name an existing table.
	for _, tr := range s.Triggers {
		if !tableNames[tr.Table] {
			return fmt.Errorf("trigger %q is bound to unknown table %q", tr.Name, tr.Table)
		}
	}

	return nil
}

func (t *Table) validate() error {
	if t.Name == "" {
		return fmt.Errorf("table with empty name")
	}

	cols := make(map[string]bool, len(t.Columns))
	for _, c := range t.Columns {
		if c.Name == "" {
			return fmt.Errorf("table %q: column with empty name", t.Name)
		}
		if cols[c.Name] {
			return fmt.Errorf("table %q: duplicate column %q", t.Name, c.Name)
		}
		cols[c.Name] = true
	}

	idxNames := make(map[string]bool, len(t.Indexes))
	for _, ix := range t.Indexes {
		if idxNames[ix.Name] {
			return fmt.Errorf("table %q: duplicate index %q", t.Name, ix.Name)
		}
		idxNames[ix.Name] = true
		for _, col := range ix.Columns {
			if !cols[col] {
				return fmt.Errorf("table %q: index %q covers unknown column %q", t.Name, ix.Name, col)
			}
		}
	}

	conNames := make(map[string]bool, len(t.Constraints))
	pkCount := 0
	pkCols := make(map[string]bool)
	for _, c := range t.Constraints {
		if conNames[c.Name] {
			return fmt.Errorf("table %q: duplicate constraint %q", t.Name, c.Name)
		}
		conNames[c.Name] = true
		if c.Kind == PrimaryKey {
			pkCount++
			for _, col := range c.Columns {
				pkCols[col] = true
			}
		}
		for _, col := range c.Columns {
			if !cols[col] {
				return fmt.Errorf("table %q: constraint %q covers unknown column %q", t.Name, c.Name, col)
			}
		}
	}
	if pkCount > 1 {
		return fmt.Errorf("table %q: %d primary key constraints", t.Name, pkCount)
	}

	// A column marked primary must be part of the PK constraint when one
	// exists, and vice versa.
	for _, c := range t.Columns {
		if c.IsPrimaryKey && pkCount > 0 && !pkCols[c.Name] {
			return fmt.Errorf("table %q: column %q marked primary but missing from primary key constraint", t.Name, c.Name)
		}
		if pkCols[c.Name] && !c.IsPrimaryKey {
			return fmt.Errorf("table %q: column %q is in the primary key constraint but not marked primary", t.Name, c.Name)
		}
	}

	return nil
}
