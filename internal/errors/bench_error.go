// Package errors provides standardized error types for benchmark loading, execution and logging.
// BenchError carries the failure kind (usage, resource, definition, run) so a batch driver can
// decide per benchmark whether to continue, while keeping operation context and error wrapping.
package errors

import (
	"fmt"
)

// Kind classifies a benchmark failure.
type Kind int

const (
	// KindUsage is a malformed command line or configuration.
	KindUsage Kind = iota + 1
	// KindResource is a missing or unreadable dataset, benchmark file or results directory.
	KindResource
	// KindDefinition is a benchmark file that does not produce a well-formed definition.
	KindDefinition
	// KindRun is a failure raised by the timed operation itself.
	KindRun
)

// String returns the name of the kind.
func (k Kind) String() string {
	switch k {
	case KindUsage:
		return "usage"
	case KindResource:
		return "resource"
	case KindDefinition:
		return "definition"
	case KindRun:
		return "run"
	default:
		return "unknown"
	}
}

// BenchError represents standardized errors across the harness.
type BenchError struct {
	Kind    Kind   // Failure classification
	Op      string // Operation name (e.g., "load", "run", "append")
	Bench   string // Benchmark name or file if applicable
	Message string // Human-readable error description
	Cause   error  // Underlying error cause
}

// Error implements the error interface
func (e *BenchError) Error() string {
	msg := e.Message
	if e.Cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	if e.Bench != "" {
		return fmt.Sprintf("%s %s failed for '%s': %s", e.Kind, e.Op, e.Bench, msg)
	}
	return fmt.Sprintf("%s %s failed: %s", e.Kind, e.Op, msg)
}

// Unwrap returns the underlying cause for error wrapping support
func (e *BenchError) Unwrap() error {
	return e.Cause
}

// Is reports whether target is a BenchError of the same kind. Sentinels only set Kind,
// so errors.Is(err, ErrResource) matches any resource failure.
func (e *BenchError) Is(target error) bool {
	if be, ok := target.(*BenchError); ok {
		return e.Kind == be.Kind
	}
	return false
}

// Sentinels for errors.Is checks.
var (
	ErrUsage      = &BenchError{Kind: KindUsage}
	ErrResource   = &BenchError{Kind: KindResource}
	ErrDefinition = &BenchError{Kind: KindDefinition}
	ErrRun        = &BenchError{Kind: KindRun}
)

// NewUsageError creates an error for bad command line arguments
func NewUsageError(message string) *BenchError {
	return &BenchError{
		Kind:    KindUsage,
		Op:      "parse",
		Message: message,
	}
}

// NewResourceError creates an error for a missing or unreadable input
func NewResourceError(op, bench, message string, cause error) *BenchError {
	return &BenchError{
		Kind:    KindResource,
		Op:      op,
		Bench:   bench,
		Message: message,
		Cause:   cause,
	}
}

// NewDefinitionError creates an error for a malformed benchmark definition
func NewDefinitionError(bench, message string, cause error) *BenchError {
	return &BenchError{
		Kind:    KindDefinition,
		Op:      "load",
		Bench:   bench,
		Message: message,
		Cause:   cause,
	}
}

// NewRunError creates an error for a failed timed operation
func NewRunError(bench string, cause error) *BenchError {
	return &BenchError{
		Kind:    KindRun,
		Op:      "run",
		Bench:   bench,
		Message: "benchmark operation failed",
		Cause:   cause,
	}
}

// KindOf returns the kind of the first BenchError in err's chain, or 0.
func KindOf(err error) Kind {
	for err != nil {
		if be, ok := err.(*BenchError); ok {
			return be.Kind
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return 0
		}
		err = u.Unwrap()
	}
	return 0
}
