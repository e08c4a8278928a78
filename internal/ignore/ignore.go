// Package ignore filters schema objects out of drift's view. Patterns come
// from the repository's .driftignore file plus a built-in default set that
// hides internal bookkeeping tables.
//
// A pattern line has the form [TYPE:][parent.]pattern, optionally prefixed
// with ! to negate an earlier match. Matching is case-insensitive glob with
// * and ?, and the last matching pattern wins.
package ignore

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/driftsql/drift/internal/drifterr"
)

// Type is the object kind a pattern applies to. An empty Type matches any
// parentless kind by name.
type Type string

const (
	TypeTable            Type = "TABLE"
	TypeColumn           Type = "COLUMN"
	TypeIndex            Type = "INDEX"
	TypeConstraint       Type = "CONSTRAINT"
	TypeCheck            Type = "CHECK"
	TypePrimaryKey       Type = "PRIMARY_KEY"
	TypeForeignKey       Type = "FOREIGN_KEY"
	TypeExclusion        Type = "EXCLUSION"
	TypePartition        Type = "PARTITION"
	TypeEnum             Type = "ENUM"
	TypeDomain           Type = "DOMAIN"
	TypeSequence         Type = "SEQUENCE"
	TypeCompositeType    Type = "COMPOSITE_TYPE"
	TypeFunction         Type = "FUNCTION"
	TypeProcedure        Type = "PROCEDURE"
	TypeTrigger          Type = "TRIGGER"
	TypeView             Type = "VIEW"
	TypeMaterializedView Type = "MATERIALIZED_VIEW"
	TypeForeignTable     Type = "FOREIGN_TABLE"
	TypeExtension        Type = "EXTENSION"
	TypeCollation        Type = "COLLATION"
)

var knownTypes = map[Type]bool{
	TypeTable: true, TypeColumn: true, TypeIndex: true, TypeConstraint: true,
	TypeCheck: true, TypePrimaryKey: true, TypeForeignKey: true,
	TypeExclusion: true, TypePartition: true, TypeEnum: true, TypeDomain: true,
	TypeSequence: true, TypeCompositeType: true, TypeFunction: true,
	TypeProcedure: true, TypeTrigger: true, TypeView: true,
	TypeMaterializedView: true, TypeForeignTable: true, TypeExtension: true,
	TypeCollation: true,
}

// parentRequired lists the types whose objects only exist inside a table,
// so their patterns must name one.
var parentRequired = map[Type]bool{
	TypeColumn: true, TypeIndex: true, TypeConstraint: true, TypeCheck: true,
	TypePrimaryKey: true, TypeForeignKey: true, TypeExclusion: true,
	TypePartition: true,
}

// Pattern is one parsed ignore rule.
type Pattern struct {
	Type    Type   // empty means any type
	Parent  string // table glob for parented types
	Name    string // object glob
	Negated bool
	Line    int // 0 for built-ins
}

func (p Pattern) String() string {
	var b strings.Builder
	if p.Negated {
		b.WriteByte('!')
	}
	if p.Type != "" {
		b.WriteString(string(p.Type) + ":")
	}
	if p.Parent != "" {
		b.WriteString(p.Parent + ".")
	}
	b.WriteString(p.Name)
	return b.String()
}

// List is an ordered set of ignore patterns. The zero value ignores
// nothing; use Default or Load to include the built-in rules.
type List struct {
	patterns []Pattern
}

// defaults hide drift's own bookkeeping and common tool tables.
var defaults = []Pattern{
	{Type: TypeTable, Name: "_drift_migrations"},
	{Type: TypeTable, Name: "_drift_*"},
	{Type: TypeTable, Name: "sqlite_*"},
}

// Default returns a list holding only the built-in rules.
func Default() *List {
	return &List{patterns: append([]Pattern(nil), defaults...)}
}

// Load reads a .driftignore file and appends its rules after the built-in
// defaults. A missing file yields just the defaults.
func Load(path string) (*List, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return Default(), nil
	}
	if err != nil {
		return nil, drifterr.Wrap(drifterr.Configuration, err)
	}
	defer f.Close()
	return Parse(f)
}

// Parse reads ignore rules from r, prepending the built-in defaults.
func Parse(r io.Reader) (*List, error) {
	l := Default()
	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		p, err := parseLine(text, line)
		if err != nil {
			return nil, drifterr.Wrap(drifterr.Configuration, err)
		}
		l.patterns = append(l.patterns, p)
	}
	if err := sc.Err(); err != nil {
		return nil, drifterr.Wrap(drifterr.Configuration, err)
	}
	return l, nil
}

func parseLine(text string, line int) (Pattern, error) {
	p := Pattern{Line: line}
	if strings.HasPrefix(text, "!") {
		p.Negated = true
		text = strings.TrimSpace(text[1:])
	}
	if i := strings.Index(text, ":"); i >= 0 {
		t := Type(strings.ToUpper(strings.TrimSpace(text[:i])))
		if !knownTypes[t] {
			return p, fmt.Errorf("ignore: line %d: unknown type %q", line, text[:i])
		}
		p.Type = t
		text = strings.TrimSpace(text[i+1:])
	}
	if i := strings.Index(text, "."); i >= 0 {
		p.Parent = strings.TrimSpace(text[:i])
		p.Name = strings.TrimSpace(text[i+1:])
	} else {
		p.Name = text
	}
	if p.Name == "" {
		return p, fmt.Errorf("ignore: line %d: empty pattern", line)
	}
	if parentRequired[p.Type] && p.Parent == "" {
		return p, fmt.Errorf("ignore: line %d: %s pattern %q requires a parent table (table.%s)", line, p.Type, p.Name, p.Name)
	}
	if p.Parent != "" && p.Type != "" && !parentRequired[p.Type] {
		return p, fmt.Errorf("ignore: line %d: %s pattern must not carry a parent", line, p.Type)
	}
	return p, nil
}

// Add appends a rule programmatically.
func (l *List) Add(p Pattern) { l.patterns = append(l.patterns, p) }

// Patterns returns the rules in evaluation order.
func (l *List) Patterns() []Pattern { return l.patterns }

// Match reports whether an object of the given type, parent, and name is
// ignored. Parent is empty for top-level objects. The last matching rule
// decides.
func (l *List) Match(t Type, parent, name string) bool {
	ignored := false
	for _, p := range l.patterns {
		if p.Type != "" && !typeApplies(p.Type, t) {
			continue
		}
		if p.Parent != "" && !globMatch(p.Parent, parent) {
			continue
		}
		if p.Parent == "" && p.Type == "" && parent != "" {
			// Untyped, parentless patterns apply to top-level objects only.
			continue
		}
		if !globMatch(p.Name, name) {
			continue
		}
		ignored = !p.Negated
	}
	return ignored
}

// typeApplies widens CONSTRAINT to its specific kinds so a CONSTRAINT:
// pattern hides checks, primary keys, foreign keys, and exclusions alike.
func typeApplies(pattern, object Type) bool {
	if pattern == object {
		return true
	}
	if pattern == TypeConstraint {
		switch object {
		case TypeCheck, TypePrimaryKey, TypeForeignKey, TypeExclusion, TypeUniqueConstraint:
			return true
		}
	}
	if pattern == TypeFunction && object == TypeProcedure {
		return true
	}
	return false
}

// TypeUniqueConstraint is the internal kind for unique constraints; it is
// matched by CONSTRAINT: patterns.
const TypeUniqueConstraint Type = "UNIQUE"

// globMatch is case-insensitive glob matching with * and ?.
func globMatch(pattern, s string) bool {
	return matchFold(strings.ToLower(pattern), strings.ToLower(s))
}

func matchFold(p, s string) bool {
	for len(p) > 0 {
		switch p[0] {
		case '*':
			for len(p) > 0 && p[0] == '*' {
				p = p[1:]
			}
			if p == "" {
				return true
			}
			for i := 0; i <= len(s); i++ {
				if matchFold(p, s[i:]) {
					return true
				}
			}
			return false
		case '?':
			if s == "" {
				return false
			}
			p, s = p[1:], s[1:]
		default:
			if s == "" || p[0] != s[0] {
				return false
			}
			p, s = p[1:], s[1:]
		}
	}
	return s == ""
}
