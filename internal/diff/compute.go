package diff

import (
	"sort"
	"strconv"
	"strings"

	"github.com/driftsql/drift/internal/schema"
)

// Compute diffs observed (what the database has) against desired (what the
// user wrote). The result describes the changes needed to move the database
// to the desired state.
func Compute(observed, desired *schema.Schema) *SchemaDiff {
	d := &SchemaDiff{}

	computeTables(observed, desired, d)
	computeEnums(observed, desired, d)
	computeDomains(observed, desired, d)
	computeSequences(observed, desired, d)
	computeCompositeTypes(observed, desired, d)
	computeExtensions(observed, desired, d)
	computeFunctions(observed, desired, d)
	computeTriggers(observed, desired, d)
	computeViews(observed, desired, d)

	return d
}

// pair holds a matched (observed, desired) entity.
type pair[T any] struct {
	old T
	new T
}

// matched is the outcome of three-pass identity resolution for one entity
// kind.
type matched[T any] struct {
	pairs   []pair[T] // same entity on both sides (possibly renamed)
	added   []T       // desired only
	removed []T       // observed only
}

// matchEntities resolves identity between the observed and desired entity
// lists. Tracking ids win over names; names win over structure; structural
// twins pair up only when the match is unambiguous in both directions.
func matchEntities[T any](observed, desired []T, name func(T) string, tid func(T) string, twin func(a, b T) bool) matched[T] {
	var m matched[T]
	usedOld := make([]bool, len(observed))
	usedNew := make([]bool, len(desired))

	// Pass 1: tracking ids.
	oldByTid := make(map[string]int)
	for i, e := range observed {
		if id := tid(e); id != "" {
			oldByTid[id] = i
		}
	}
	for j, e := range desired {
		id := tid(e)
		if id == "" {
			continue
		}
		if i, ok := oldByTid[id]; ok && !usedOld[i] {
			usedOld[i], usedNew[j] = true, true
			m.pairs = append(m.pairs, pair[T]{old: observed[i], new: desired[j]})
		}
	}

	// Pass 2: names.
	oldByName := make(map[string]int)
	for i, e := range observed {
		if !usedOld[i] {
			oldByName[name(e)] = i
		}
	}
	for j, e := range desired {
		if usedNew[j] {
			continue
		}
		if i, ok := oldByName[name(e)]; ok && !usedOld[i] {
			usedOld[i], usedNew[j] = true, true
			m.pairs = append(m.pairs, pair[T]{old: observed[i], new: desired[j]})
		}
	}

	// Pass 3: structural twins among the leftovers. A candidate rename is
	// accepted only when exactly one twin exists on each side, so an
	// ambiguous match degrades to added/removed instead of guessing.
	if twin != nil {
		for i, oldE := range observed {
			if usedOld[i] {
				continue
			}
			twinIdx := -1
			twinCount := 0
			for j, newE := range desired {
				if usedNew[j] {
					continue
				}
				if twin(oldE, newE) {
					twinIdx = j
					twinCount++
				}
			}
			if twinCount != 1 {
				continue
			}
			// Reverse direction: the chosen twin must match only this one.
			reverse := 0
			for i2, oldE2 := range observed {
				if !usedOld[i2] && twin(oldE2, desired[twinIdx]) {
					reverse++
				}
			}
			if reverse == 1 {
				usedOld[i], usedNew[twinIdx] = true, true
				m.pairs = append(m.pairs, pair[T]{old: oldE, new: desired[twinIdx]})
			}
		}
	}

	for j, e := range desired {
		if !usedNew[j] {
			m.added = append(m.added, e)
		}
	}
	for i, e := range observed {
		if !usedOld[i] {
			m.removed = append(m.removed, e)
		}
	}
	return m
}

func computeTables(observed, desired *schema.Schema, d *SchemaDiff) {
	m := matchEntities(observed.Tables, desired.Tables,
		func(t schema.Table) string { return t.Name },
		func(t schema.Table) string { return t.TrackingID },
		tablesAreTwins,
	)

	d.TablesAdded = append(d.TablesAdded, m.added...)
	d.TablesRemoved = append(d.TablesRemoved, m.removed...)

	sort.Slice(m.pairs, func(i, j int) bool { return m.pairs[i].new.Name < m.pairs[j].new.Name })
	for _, p := range m.pairs {
		if p.old.Name != p.new.Name {
			d.TablesRenamed = append(d.TablesRenamed, Rename{
				From: p.old.Name, To: p.new.Name, TrackingID: p.new.TrackingID,
			})
		}
		td := diffTable(&p.old, &p.new)
		if !td.Empty() {
			d.TablesModified = append(d.TablesModified, *td)
		}
	}
}

// tablesAreTwins reports structural identity: the same ordered list of
// (column name, type) pairs.
func tablesAreTwins(a, b schema.Table) bool {
	if len(a.Columns) != len(b.Columns) {
		return false
	}
	for i := range a.Columns {
		if a.Columns[i].Name != b.Columns[i].Name ||
			a.Columns[i].TypeString() != b.Columns[i].TypeString() {
			return false
		}
	}
	return true
}

func diffTable(old, new *schema.Table) *TableDiff {
	td := &TableDiff{Name: new.Name}
	if old.Name != new.Name {
		td.OldName = old.Name
	}

	cm := matchEntities(old.Columns, new.Columns,
		func(c schema.Column) string { return c.Name },
		func(c schema.Column) string { return c.TrackingID },
		nil,
	)
	td.ColumnsAdded = cm.added
	td.ColumnsRemoved = cm.removed
	for _, p := range cm.pairs {
		changes := diffColumn(p.old, p.new)
		if p.old.Name != p.new.Name {
			td.ColumnsRenamed = append(td.ColumnsRenamed, ColumnRename{
				From: p.old.Name, To: p.new.Name, Old: p.old, New: p.new, Changes: changes,
			})
			continue
		}
		if len(changes) > 0 {
			td.ColumnsModified = append(td.ColumnsModified, ColumnDiff{
				Name: p.new.Name, Old: p.old, New: p.new, Changes: changes,
			})
		}
	}

	im := matchEntities(old.Indexes, new.Indexes,
		func(i schema.Index) string { return i.Name },
		func(i schema.Index) string { return i.TrackingID },
		indexesAreTwins,
	)
	td.IndexesAdded = im.added
	td.IndexesRemoved = im.removed
	for _, p := range im.pairs {
		if p.old.Name != p.new.Name {
			td.IndexesRenamed = append(td.IndexesRenamed, Rename{
				From: p.old.Name, To: p.new.Name, TrackingID: p.new.TrackingID,
			})
		}
		if !indexEqual(p.old, p.new) {
			td.IndexesModified = append(td.IndexesModified, IndexDiff{
				Name: p.new.Name, Old: p.old, New: p.new,
			})
		}
	}

	km := matchEntities(old.Constraints, new.Constraints,
		func(c schema.Constraint) string { return c.Name },
		func(c schema.Constraint) string { return c.TrackingID },
		nil,
	)
	td.ConstraintsAdded = km.added
	td.ConstraintsRemoved = km.removed
	for _, p := range km.pairs {
		if !constraintEqual(p.old, p.new) {
			td.ConstraintsModified = append(td.ConstraintsModified, ConstraintDiff{
				Name: p.new.Name, Old: p.old, New: p.new,
			})
		}
	}

	if old.Comment != new.Comment {
		td.CommentChanged = &FieldChange{Field: "comment", From: old.Comment, To: new.Comment}
	}

	return td
}

// indexesAreTwins reports same covered columns and uniqueness.
func indexesAreTwins(a, b schema.Index) bool {
	if a.IsUnique != b.IsUnique || len(a.Columns) != len(b.Columns) {
		return false
	}
	for i := range a.Columns {
		if a.Columns[i] != b.Columns[i] {
			return false
		}
	}
	return a.Expression == b.Expression
}

func indexEqual(a, b schema.Index) bool {
	return indexesAreTwins(a, b) &&
		normalizeMethod(a.Method) == normalizeMethod(b.Method) &&
		a.Where == b.Where
}

func normalizeMethod(m string) string {
	if m == "" {
		return "btree"
	}
	return strings.ToLower(m)
}

func constraintEqual(a, b schema.Constraint) bool {
	if a.Kind != b.Kind || !stringsEqual(a.Columns, b.Columns) {
		return false
	}
	switch a.Kind {
	case schema.Check, schema.Exclusion:
		return normalizeExpr(a.CheckExpr) == normalizeExpr(b.CheckExpr)
	case schema.ForeignKey:
		return a.ReferencedTable == b.ReferencedTable &&
			stringsEqual(a.ReferencedColumns, b.ReferencedColumns) &&
			normalizeAction(a.OnDelete) == normalizeAction(b.OnDelete) &&
			normalizeAction(a.OnUpdate) == normalizeAction(b.OnUpdate)
	}
	return true
}

func normalizeAction(a string) string {
	a = strings.ToUpper(strings.TrimSpace(a))
	if a == "" {
		return "NO ACTION"
	}
	return a
}

func diffColumn(old, new schema.Column) []FieldChange {
	var changes []FieldChange
	add := func(field, from, to string) {
		changes = append(changes, FieldChange{Field: field, From: from, To: to})
	}

	if old.Type != new.Type || old.IsArray != new.IsArray {
		add("type", old.TypeString(), new.TypeString())
	} else {
		if !intPtrEqual(old.Length, new.Length) {
			add("length", intPtrString(old.Length), intPtrString(new.Length))
		}
		if !intPtrEqual(old.Precision, new.Precision) {
			add("precision", intPtrString(old.Precision), intPtrString(new.Precision))
		}
		if !intPtrEqual(old.Scale, new.Scale) {
			add("scale", intPtrString(old.Scale), intPtrString(new.Scale))
		}
	}
	if old.Nullable != new.Nullable {
		add("nullable", boolString(old.Nullable), boolString(new.Nullable))
	}
	if normalizeDefault(old.Default) != normalizeDefault(new.Default) {
		add("default", strPtrString(old.Default), strPtrString(new.Default))
	}
	if old.IsUnique != new.IsUnique {
		add("unique", boolString(old.IsUnique), boolString(new.IsUnique))
	}
	if old.IsPrimaryKey != new.IsPrimaryKey {
		add("primaryKey", boolString(old.IsPrimaryKey), boolString(new.IsPrimaryKey))
	}
	if old.Identity != new.Identity {
		add("identity", old.Identity, new.Identity)
	}
	if old.Comment != new.Comment {
		add("comment", old.Comment, new.Comment)
	}
	return changes
}

// normalizeDefault strips the cast suffix and quoting noise catalogs attach
// to default expressions, so "'active'::text" equals "active".
func normalizeDefault(d *string) string {
	if d == nil {
		return ""
	}
	s := strings.TrimSpace(*d)
	if i := strings.Index(s, "::"); i > 0 {
		s = s[:i]
	}
	s = strings.Trim(s, "()")
	s = strings.Trim(s, "'")
	return strings.ToLower(s)
}

func normalizeExpr(e string) string {
	return strings.ToLower(strings.Join(strings.Fields(e), " "))
}

func computeEnums(observed, desired *schema.Schema, d *SchemaDiff) {
	m := matchEntities(observed.Enums, desired.Enums,
		func(e schema.Enum) string { return e.Name },
		func(e schema.Enum) string { return e.TrackingID },
		nil,
	)
	d.EnumsAdded = m.added
	d.EnumsRemoved = m.removed
	for _, p := range m.pairs {
		if p.old.Name != p.new.Name {
			d.EnumsRenamed = append(d.EnumsRenamed, Rename{From: p.old.Name, To: p.new.Name, TrackingID: p.new.TrackingID})
		}
		ed := EnumDiff{Name: p.new.Name}
		oldSet := make(map[string]bool, len(p.old.Values))
		for _, v := range p.old.Values {
			oldSet[v] = true
		}
		newSet := make(map[string]bool, len(p.new.Values))
		for _, v := range p.new.Values {
			newSet[v] = true
			if !oldSet[v] {
				ed.ValuesAdded = append(ed.ValuesAdded, v)
			}
		}
		for _, v := range p.old.Values {
			if !newSet[v] {
				ed.ValuesRemoved = append(ed.ValuesRemoved, v)
			}
		}
		if len(ed.ValuesAdded) > 0 || len(ed.ValuesRemoved) > 0 {
			d.EnumsModified = append(d.EnumsModified, ed)
		}
	}
}

func computeDomains(observed, desired *schema.Schema, d *SchemaDiff) {
	m := matchEntities(observed.Domains, desired.Domains,
		func(e schema.Domain) string { return e.Name },
		func(e schema.Domain) string { return e.TrackingID },
		nil,
	)
	d.DomainsAdded = m.added
	d.DomainsRemoved = m.removed
	for _, p := range m.pairs {
		if p.old.BaseType != p.new.BaseType || p.old.NotNull != p.new.NotNull ||
			normalizeDefault(p.old.Default) != normalizeDefault(p.new.Default) ||
			normalizeExpr(p.old.CheckExpr) != normalizeExpr(p.new.CheckExpr) {
			// Domains change by drop+create; surface as remove+add.
			d.DomainsRemoved = append(d.DomainsRemoved, p.old)
			d.DomainsAdded = append(d.DomainsAdded, p.new)
		}
	}
}

func computeSequences(observed, desired *schema.Schema, d *SchemaDiff) {
	m := matchEntities(observed.Sequences, desired.Sequences,
		func(e schema.Sequence) string { return e.Name },
		func(e schema.Sequence) string { return e.TrackingID },
		nil,
	)
	d.SequencesAdded = m.added
	d.SequencesRemoved = m.removed
	for _, p := range m.pairs {
		if p.old.Name != p.new.Name {
			d.SequencesRenamed = append(d.SequencesRenamed, Rename{From: p.old.Name, To: p.new.Name, TrackingID: p.new.TrackingID})
		}
	}
}

func computeCompositeTypes(observed, desired *schema.Schema, d *SchemaDiff) {
	m := matchEntities(observed.CompositeTypes, desired.CompositeTypes,
		func(e schema.CompositeType) string { return e.Name },
		func(e schema.CompositeType) string { return e.TrackingID },
		nil,
	)
	d.CompositeTypesAdded = m.added
	d.CompositeTypesRemoved = m.removed
}

func computeExtensions(observed, desired *schema.Schema, d *SchemaDiff) {
	m := matchEntities(observed.Extensions, desired.Extensions,
		func(e schema.Extension) string { return e.Name },
		func(schema.Extension) string { return "" },
		nil,
	)
	d.ExtensionsAdded = m.added
	d.ExtensionsRemoved = m.removed
}

func computeFunctions(observed, desired *schema.Schema, d *SchemaDiff) {
	m := matchEntities(observed.Functions, desired.Functions,
		func(e schema.Function) string { return e.Name },
		func(e schema.Function) string { return e.TrackingID },
		nil,
	)
	d.FunctionsAdded = m.added
	d.FunctionsRemoved = m.removed
	for _, p := range m.pairs {
		if p.old.Name != p.new.Name {
			d.FunctionsRenamed = append(d.FunctionsRenamed, Rename{From: p.old.Name, To: p.new.Name, TrackingID: p.new.TrackingID})
		}
		if normalizeExpr(p.old.Body) != normalizeExpr(p.new.Body) ||
			p.old.Returns != p.new.Returns || p.old.Language != p.new.Language ||
			p.old.Volatility != p.new.Volatility {
			d.FunctionsModified = append(d.FunctionsModified, p.new)
		}
	}
}

func computeTriggers(observed, desired *schema.Schema, d *SchemaDiff) {
	m := matchEntities(observed.Triggers, desired.Triggers,
		func(e schema.Trigger) string { return e.Name },
		func(e schema.Trigger) string { return e.TrackingID },
		nil,
	)
	d.TriggersAdded = m.added
	d.TriggersRemoved = m.removed
	for _, p := range m.pairs {
		if p.old.Table != p.new.Table || p.old.Timing != p.new.Timing ||
			!stringsEqual(p.old.Events, p.new.Events) ||
			p.old.Function != p.new.Function ||
			normalizeExpr(p.old.When) != normalizeExpr(p.new.When) {
			d.TriggersModified = append(d.TriggersModified, p.new)
		}
	}
}

func computeViews(observed, desired *schema.Schema, d *SchemaDiff) {
	vm := matchEntities(observed.Views, desired.Views,
		func(e schema.View) string { return e.Name },
		func(e schema.View) string { return e.TrackingID },
		nil,
	)
	d.ViewsAdded = vm.added
	d.ViewsRemoved = vm.removed
	for _, p := range vm.pairs {
		if normalizeExpr(p.old.Definition) != normalizeExpr(p.new.Definition) {
			d.ViewsModified = append(d.ViewsModified, p.new)
		}
	}

	mm := matchEntities(observed.MaterializedViews, desired.MaterializedViews,
		func(e schema.View) string { return e.Name },
		func(e schema.View) string { return e.TrackingID },
		nil,
	)
	d.MatViewsAdded = mm.added
	d.MatViewsRemoved = mm.removed
}

func stringsEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func intPtrEqual(a, b *int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func intPtrString(p *int) string {
	if p == nil {
		return ""
	}
	return strconv.Itoa(*p)
}

func strPtrString(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

func boolString(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
