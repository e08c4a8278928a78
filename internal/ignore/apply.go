package ignore

import (
	"fmt"
	"sort"
	"strings"

	"github.com/driftsql/drift/internal/drifterr"
	"github.com/driftsql/drift/internal/schema"
)

// Apply returns a copy of the schema with every ignored object removed.
// After filtering, it verifies that no surviving column still references an
// ignored enum, domain, composite type, or sequence; a violation returns an
// IgnoreDependency error listing each offender.
func (l *List) Apply(s *schema.Schema) (*schema.Schema, error) {
	out := s.Clone()

	ignoredTypes := make(map[string]string) // type name -> kind

	out.Enums = filterNamed(out.Enums, func(e schema.Enum) string { return e.Name },
		func(name string) bool {
			if l.Match(TypeEnum, "", name) {
				ignoredTypes[name] = "enum"
				return true
			}
			return false
		})
	out.Domains = filterNamed(out.Domains, func(d schema.Domain) string { return d.Name },
		func(name string) bool {
			if l.Match(TypeDomain, "", name) {
				ignoredTypes[name] = "domain"
				return true
			}
			return false
		})
	out.CompositeTypes = filterNamed(out.CompositeTypes, func(c schema.CompositeType) string { return c.Name },
		func(name string) bool {
			if l.Match(TypeCompositeType, "", name) {
				ignoredTypes[name] = "composite type"
				return true
			}
			return false
		})
	out.Sequences = filterNamed(out.Sequences, func(sq schema.Sequence) string { return sq.Name },
		func(name string) bool {
			if l.Match(TypeSequence, "", name) {
				ignoredTypes[name] = "sequence"
				return true
			}
			return false
		})

	var tables []schema.Table
	for _, t := range out.Tables {
		if l.Match(TypeTable, "", t.Name) {
			continue
		}
		l.filterTable(&t)
		tables = append(tables, t)
	}
	out.Tables = tables

	var fns []schema.Function
	for _, f := range out.Functions {
		kind := TypeFunction
		if f.IsProcedure {
			kind = TypeProcedure
		}
		if !l.Match(kind, "", f.Name) {
			fns = append(fns, f)
		}
	}
	out.Functions = fns

	out.Triggers = filterNamed(out.Triggers, func(tr schema.Trigger) string { return tr.Name },
		func(name string) bool { return l.Match(TypeTrigger, "", name) })
	out.Views = filterNamed(out.Views, func(v schema.View) string { return v.Name },
		func(name string) bool { return l.Match(TypeView, "", name) })
	out.MaterializedViews = filterNamed(out.MaterializedViews, func(v schema.View) string { return v.Name },
		func(name string) bool { return l.Match(TypeMaterializedView, "", name) })
	out.ForeignTables = filterNamed(out.ForeignTables, func(ft schema.ForeignTable) string { return ft.Name },
		func(name string) bool { return l.Match(TypeForeignTable, "", name) })
	out.Extensions = filterNamed(out.Extensions, func(e schema.Extension) string { return e.Name },
		func(name string) bool { return l.Match(TypeExtension, "", name) })
	out.Collations = filterNamed(out.Collations, func(c schema.Collation) string { return c.Name },
		func(name string) bool { return l.Match(TypeCollation, "", name) })

	if err := checkDependencies(out, ignoredTypes); err != nil {
		return nil, err
	}
	return out, nil
}

func (l *List) filterTable(t *schema.Table) {
	var cols []schema.Column
	for _, c := range t.Columns {
		if !l.Match(TypeColumn, t.Name, c.Name) {
			cols = append(cols, c)
		}
	}
	t.Columns = cols

	var idxs []schema.Index
	for _, ix := range t.Indexes {
		if !l.Match(TypeIndex, t.Name, ix.Name) {
			idxs = append(idxs, ix)
		}
	}
	t.Indexes = idxs

	var cons []schema.Constraint
	for _, con := range t.Constraints {
		if !l.Match(constraintType(con.Kind), t.Name, con.Name) {
			cons = append(cons, con)
		}
	}
	t.Constraints = cons

	if p := t.Partitioning; p != nil {
		var kept []string
		for _, child := range p.ChildPartitions {
			if !l.Match(TypePartition, t.Name, child) {
				kept = append(kept, child)
			}
		}
		p.ChildPartitions = kept
	}
}

func constraintType(k schema.ConstraintKind) Type {
	switch k {
	case schema.Check:
		return TypeCheck
	case schema.PrimaryKey:
		return TypePrimaryKey
	case schema.ForeignKey:
		return TypeForeignKey
	case schema.Exclusion:
		return TypeExclusion
	case schema.Unique:
		return TypeUniqueConstraint
	}
	return TypeConstraint
}

func filterNamed[T any](in []T, name func(T) string, drop func(string) bool) []T {
	var out []T
	for _, e := range in {
		if !drop(name(e)) {
			out = append(out, e)
		}
	}
	return out
}

// checkDependencies scans surviving columns for references to ignored
// types. Sequences count as referenced through nextval defaults.
func checkDependencies(s *schema.Schema, ignoredTypes map[string]string) error {
	if len(ignoredTypes) == 0 {
		return nil
	}
	var offenders []string
	for ti := range s.Tables {
		t := &s.Tables[ti]
		for _, c := range t.Columns {
			if kind, ok := ignoredTypes[c.Type]; ok {
				offenders = append(offenders, fmt.Sprintf("%s.%s -> %s %q", t.Name, c.Name, kind, c.Type))
				continue
			}
			if c.Default == nil {
				continue
			}
			for name, kind := range ignoredTypes {
				if kind == "sequence" && strings.Contains(*c.Default, "nextval('"+name+"'") {
					offenders = append(offenders, fmt.Sprintf("%s.%s -> sequence %q", t.Name, c.Name, name))
				}
			}
		}
	}
	if len(offenders) == 0 {
		return nil
	}
	sort.Strings(offenders)
	return drifterr.New(drifterr.IgnoreDependency,
		"ignored types are still referenced by non-ignored columns (%s); un-ignore the type or ignore the column too",
		strings.Join(offenders, ", "))
}
