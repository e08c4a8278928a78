// Package drifterr defines the structured error kinds that drift components
// return to the CLI boundary, where they are mapped onto exit codes.
package drifterr

import (
	"errors"
	"fmt"
)

// Kind classifies an error by what the user can do about it, not by which
// component raised it.
type Kind string

const (
	// Configuration means missing or invalid configuration; nothing was
	// attempted against the database.
	Configuration Kind = "configuration"
	// Connectivity means the database could not be reached or refused us.
	Connectivity Kind = "connectivity"
	// DialectIncompatibility means candidate DDL cannot run on the target
	// dialect; apply is blocked.
	DialectIncompatibility Kind = "dialect_incompatibility"
	// SchemaInvariant means the canonical model failed validation.
	SchemaInvariant Kind = "schema_invariant"
	// IgnoreDependency means an ignored type is still referenced by a
	// non-ignored column.
	IgnoreDependency Kind = "ignore_dependency"
	// Destructive means a destructive change is present without explicit
	// confirmation.
	Destructive Kind = "destructive"
	// Execution means a statement failed mid-apply.
	Execution Kind = "execution"
	// BookkeepingSoft means the apply succeeded but recording the restore
	// point failed; surfaced as a warning, not a failure.
	BookkeepingSoft Kind = "bookkeeping_soft"
	// NotManaged means the working directory is not a drift repository.
	NotManaged Kind = "not_managed"
)

// Error carries a kind alongside the wrapped cause.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// New creates a kinded error from a format string.
func New(kind Kind, format string, args ...any) error {
	return &Error{Kind: kind, Err: fmt.Errorf(format, args...)}
}

// Wrap attaches a kind to an existing error. Returns nil for a nil cause.
func Wrap(kind Kind, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Err: err}
}

// KindOf extracts the kind from an error chain. Unclassified errors report
// Execution, the conservative default at the CLI boundary.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Execution
}

// ExitCode maps an error to the process exit status: 0 success, 128 for
// operations outside a managed repository, 1 for everything else.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	if KindOf(err) == NotManaged {
		return 128
	}
	return 1
}
