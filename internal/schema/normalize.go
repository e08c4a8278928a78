package schema

import (
	"encoding/json"
	"reflect"
	"sort"
)

// Normalized returns a deep copy of the schema suitable for equality and
// hashing: every name-keyed slice is sorted alphabetically, comments and
// tracking ids are cleared. Ordered fields that carry meaning (index
// columns, enum values, constraint columns) keep their order. The receiver
// is not modified; natural ordering stays available for emission.
func (s *Schema) Normalized() *Schema {
	n := s.Clone()

	n.stripIncidental()

	sort.Slice(n.Extensions, func(i, j int) bool { return n.Extensions[i].Name < n.Extensions[j].Name })
	sort.Slice(n.Enums, func(i, j int) bool { return n.Enums[i].Name < n.Enums[j].Name })
	sort.Slice(n.Domains, func(i, j int) bool { return n.Domains[i].Name < n.Domains[j].Name })
	sort.Slice(n.CompositeTypes, func(i, j int) bool { return n.CompositeTypes[i].Name < n.CompositeTypes[j].Name })
	sort.Slice(n.Sequences, func(i, j int) bool { return n.Sequences[i].Name < n.Sequences[j].Name })
	sort.Slice(n.Tables, func(i, j int) bool { return n.Tables[i].Name < n.Tables[j].Name })
	sort.Slice(n.Functions, func(i, j int) bool { return n.Functions[i].Name < n.Functions[j].Name })
	sort.Slice(n.Triggers, func(i, j int) bool { return n.Triggers[i].Name < n.Triggers[j].Name })
	sort.Slice(n.Views, func(i, j int) bool { return n.Views[i].Name < n.Views[j].Name })
	sort.Slice(n.MaterializedViews, func(i, j int) bool { return n.MaterializedViews[i].Name < n.MaterializedViews[j].Name })
	sort.Slice(n.ForeignTables, func(i, j int) bool { return n.ForeignTables[i].Name < n.ForeignTables[j].Name })
	sort.Slice(n.Collations, func(i, j int) bool { return n.Collations[i].Name < n.Collations[j].Name })

	for i := range n.Tables {
		t := &n.Tables[i]
		sort.Slice(t.Columns, func(a, b int) bool { return t.Columns[a].Name < t.Columns[b].Name })
		sort.Slice(t.Indexes, func(a, b int) bool { return t.Indexes[a].Name < t.Indexes[b].Name })
		sort.Slice(t.Constraints, func(a, b int) bool { return t.Constraints[a].Name < t.Constraints[b].Name })
		// Ordinals are an introspection artifact; identity is by name.
		for j := range t.Columns {
			t.Columns[j].Ordinal = 0
		}
	}

	return n
}

// stripIncidental clears comments and tracking ids in place. Neither
// participates in structural identity.
func (s *Schema) stripIncidental() {
	for i := range s.Tables {
		t := &s.Tables[i]
		t.Comment = ""
		t.TrackingID = ""
		for j := range t.Columns {
			t.Columns[j].Comment = ""
			t.Columns[j].TrackingID = ""
		}
		for j := range t.Indexes {
			t.Indexes[j].Comment = ""
			t.Indexes[j].TrackingID = ""
		}
		for j := range t.Constraints {
			t.Constraints[j].TrackingID = ""
		}
	}
	for i := range s.Enums {
		s.Enums[i].TrackingID = ""
	}
	for i := range s.Domains {
		s.Domains[i].TrackingID = ""
	}
	for i := range s.CompositeTypes {
		s.CompositeTypes[i].TrackingID = ""
	}
	for i := range s.Sequences {
		s.Sequences[i].TrackingID = ""
	}
	for i := range s.Functions {
		s.Functions[i].TrackingID = ""
	}
	for i := range s.Triggers {
		s.Triggers[i].TrackingID = ""
	}
	for i := range s.Views {
		s.Views[i].Comment = ""
		s.Views[i].TrackingID = ""
	}
	for i := range s.MaterializedViews {
		s.MaterializedViews[i].Comment = ""
		s.MaterializedViews[i].TrackingID = ""
	}
	for i := range s.ForeignTables {
		s.ForeignTables[i].TrackingID = ""
	}
}

// Equal reports material equivalence: normalized forms are deeply equal,
// ignoring comments, tracking ids, and slice order.
func Equal(a, b *Schema) bool {
	return reflect.DeepEqual(a.Normalized(), b.Normalized())
}

// Clone returns a deep copy of the schema. Serialization round-trip keeps
// the copy honest as entity fields evolve.
func (s *Schema) Clone() *Schema {
	raw, err := json.Marshal(s)
	if err != nil {
		panic("schema: clone marshal: " + err.Error())
	}
	var out Schema
	if err := json.Unmarshal(raw, &out); err != nil {
		panic("schema: clone unmarshal: " + err.Error())
	}
	return &out
}

// CloneTable returns a deep copy of a single table.
func CloneTable(t *Table) *Table {
	raw, err := json.Marshal(t)
	if err != nil {
		panic("schema: clone marshal: " + err.Error())
	}
	var out Table
	if err := json.Unmarshal(raw, &out); err != nil {
		panic("schema: clone unmarshal: " + err.Error())
	}
	return &out
}
