// Package validate checks schemas and candidate DDL for dialect
// compatibility. Validation is two-layered: syntactic pattern checks
// against a per-dialect registry of forbidden constructs, and semantic
// checks against the schema model driven by the dialect's capability
// record. A best-effort transformer can rewrite PostgreSQL DDL for the
// MySQL and SQLite families; it is off unless requested.
package validate

import (
	"fmt"
	"strings"

	"github.com/driftsql/drift/internal/dialect"
	"github.com/driftsql/drift/internal/schema"
)

// Category classifies a validation finding.
type Category string

const (
	CategoryDataType   Category = "DATA_TYPE"
	CategoryDDL        Category = "DDL"
	CategoryIndex      Category = "INDEX"
	CategoryFunction   Category = "FUNCTION"
	CategoryConstraint Category = "CONSTRAINT"
	CategoryTrigger    Category = "TRIGGER"
	CategorySyntax     Category = "SYNTAX"
	CategoryTenant     Category = "TENANT"
	CategoryExtension  Category = "EXTENSION"
)

// Issue is one validation finding.
type Issue struct {
	Category    Category `json:"category"`
	Feature     string   `json:"feature"`
	Object      string   `json:"object,omitempty"`
	Statement   string   `json:"statement,omitempty"`
	Message     string   `json:"message"`
	Alternative string   `json:"alternative,omitempty"`
}

func (i Issue) String() string {
	s := fmt.Sprintf("[%s/%s] %s", i.Category, i.Feature, i.Message)
	if i.Alternative != "" {
		s += " (alternative: " + i.Alternative + ")"
	}
	return s
}

// Result is the outcome of a validation run.
type Result struct {
	Valid          bool     `json:"valid"`
	Errors         []Issue  `json:"errors,omitempty"`
	Warnings       []Issue  `json:"warnings,omitempty"`
	TransformedSQL []string `json:"transformed_sql,omitempty"`
	Skipped        []string `json:"skipped,omitempty"`
	CanTransform   bool     `json:"can_transform"`
}

// Options control a validation run.
type Options struct {
	// Transform enables the best-effort PostgreSQL-to-target rewrite for
	// MySQL and SQLite family targets.
	Transform bool
}

// Statements runs the syntactic pattern layer over candidate DDL.
func Statements(stmts []string, d *dialect.Dialect) *Result {
	r := &Result{}
	runPatterns(r, stmts, d)
	r.finish(stmts, d, Options{})
	return r
}

// Schema runs the semantic layer over a desired schema.
func Schema(s *schema.Schema, d *dialect.Dialect) *Result {
	r := &Result{}
	checkCapabilities(r, s, d)
	if d.Name == "nile" {
		checkTenancy(r, s)
	}
	r.finish(nil, d, Options{})
	return r
}

// Check runs both layers, and the transformer when requested.
func Check(s *schema.Schema, stmts []string, d *dialect.Dialect, opts Options) *Result {
	r := &Result{}
	if s != nil {
		checkCapabilities(r, s, d)
		if d.Name == "nile" {
			checkTenancy(r, s)
		}
	}
	runPatterns(r, stmts, d)
	r.finish(stmts, d, opts)
	return r
}

// runPatterns applies the dialect's pattern registry to each statement.
// Comment-only entries (caveats) are skipped, and a statement reports each
// feature at most once.
func runPatterns(r *Result, stmts []string, d *dialect.Dialect) {
	pats := patternsFor(d)
	for _, stmt := range stmts {
		if strings.HasPrefix(strings.TrimSpace(stmt), "--") {
			continue
		}
		seen := make(map[string]bool)
		for _, p := range pats {
			if seen[p.feature] || !p.re.MatchString(stmt) {
				continue
			}
			seen[p.feature] = true
			issue := Issue{
				Category:    p.category,
				Feature:     p.feature,
				Statement:   truncate(stmt, 120),
				Message:     fmt.Sprintf("%s is not supported by %s", p.feature, d.Name),
				Alternative: p.alternative,
			}
			if p.warn {
				r.Warnings = append(r.Warnings, issue)
			} else {
				r.Errors = append(r.Errors, issue)
			}
		}
	}
}

func (r *Result) finish(stmts []string, d *dialect.Dialect, opts Options) {
	r.Valid = len(r.Errors) == 0
	r.CanTransform = transformable(d)
	if opts.Transform && r.CanTransform && len(stmts) > 0 {
		r.TransformedSQL, r.Skipped = Transform(stmts, d)
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
