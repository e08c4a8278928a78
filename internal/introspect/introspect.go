// Package introspect defines the contract shared by the per-family catalog
// readers under postgres/, mysql/, and sqlite/. Adapters are read-only:
// they issue catalog queries one step at a time and assemble a canonical
// schema, sorted by name within each kind and by ordinal within each table.
package introspect

import (
	"github.com/driftsql/drift/internal/schema"
)

// Step identifies one introspection phase, for progress reporting.
type Step string

const (
	StepTables         Step = "tables"
	StepColumns        Step = "columns"
	StepConstraints    Step = "constraints"
	StepIndexes        Step = "indexes"
	StepChecks         Step = "checks"
	StepEnums          Step = "enums"
	StepDomains        Step = "domains"
	StepSequences      Step = "sequences"
	StepPartitions     Step = "partitions"
	StepExtensions     Step = "extensions"
	StepFunctions      Step = "functions"
	StepTriggers       Step = "triggers"
	StepCollations     Step = "collations"
	StepForeignServers Step = "foreign_servers"
	StepForeignTables  Step = "foreign_tables"
	StepCompositeTypes Step = "composite_types"
	StepViews          Step = "views"
	StepMatViews       Step = "materialized_views"
)

// Options controls what an adapter reads.
type Options struct {
	IncludeFunctions bool
	IncludeTriggers  bool
	IncludeViews     bool
	// ExcludePatterns are table-name globs elided at query-assembly time.
	// Full typed filtering happens later in the ignore engine; this only
	// keeps obviously unwanted tables out of the catalog roundtrips.
	ExcludePatterns []string
	// Progress, when non-nil, is called before each step runs.
	Progress func(Step)
}

// SkippedStep records a step the adapter skipped because the dialect's
// capability matrix flags the feature unsupported.
type SkippedStep struct {
	Step   Step
	Reason string
}

// Result is an adapter's output: the observed schema plus any steps that
// were skipped rather than failed.
type Result struct {
	Schema  *schema.Schema
	Skipped []SkippedStep
}

func (o Options) step(s Step) {
	if o.Progress != nil {
		o.Progress(s)
	}
}

// Report invokes the progress callback; adapters call it at the top of each
// step.
func (o Options) Report(s Step) { o.step(s) }
