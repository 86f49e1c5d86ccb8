// Package errors provides standardized error types and helpers for the lectio codebase.
package errors

import (
	"errors"
	"fmt"
)

// Sentinel errors for the document-processing taxonomy
var (
	// ErrMalformedCitation indicates a citation marker that does not match the grammar
	ErrMalformedCitation = errors.New("malformed citation")
	// ErrUnresolvedCitation indicates citation inheritance with no prior coordinate
	ErrUnresolvedCitation = errors.New("unresolved citation")
	// ErrSentenceAssembly indicates an internal span-bookkeeping invariant violation
	ErrSentenceAssembly = errors.New("sentence assembly invariant violation")
	// ErrTaggingUnavailable indicates the external tagging capability failed or timed out
	ErrTaggingUnavailable = errors.New("tagging unavailable")
	// ErrInvalidInput indicates invalid input or validation failure
	ErrInvalidInput = errors.New("invalid input")
	// ErrInternal indicates an internal system error
	ErrInternal = errors.New("internal error")
)

// MalformedCitationError reports a marker string that could not be parsed.
// Citation integrity is load-bearing for all downstream lookups, so the
// default policy is to abort the document; callers may opt into skipping.
type MalformedCitationError struct {
	Marker  string // The literal marker substring as found in the source
	Ordinal int    // Running marker index within the document (0-based)
	Message string // Human-readable error detail
	Err     error  // Underlying error, if any
}

func (e *MalformedCitationError) Error() string {
	if e.Marker != "" {
		return fmt.Sprintf("malformed citation marker %q (marker #%d): %s", e.Marker, e.Ordinal, e.Message)
	}
	return fmt.Sprintf("malformed citation marker: %s", e.Message)
}

// Unwrap exposes both the sentinel and the underlying error, so
// errors.Is matches ErrMalformedCitation even when a cause is attached.
func (e *MalformedCitationError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrMalformedCitation, e.Err}
	}
	return []error{ErrMalformedCitation}
}

// UnresolvedCitationError reports inheritance requested with no prior state.
// Always fatal for the document being processed.
type UnresolvedCitationError struct {
	Level   string // Name of the level that could not be resolved
	Message string
}

func (e *UnresolvedCitationError) Error() string {
	if e.Level != "" {
		return fmt.Sprintf("unresolved citation level %q: %s", e.Level, e.Message)
	}
	return fmt.Sprintf("unresolved citation: %s", e.Message)
}

func (e *UnresolvedCitationError) Unwrap() error {
	return ErrUnresolvedCitation
}

// AssemblyError reports an internal invariant violation during sentence
// assembly. It indicates a bug, not a data condition, and is never retried.
type AssemblyError struct {
	Sentence int // Index of the sentence being assembled
	Message  string
}

func (e *AssemblyError) Error() string {
	return fmt.Sprintf("sentence assembly failed at sentence %d: %s", e.Sentence, e.Message)
}

func (e *AssemblyError) Unwrap() error {
	return ErrSentenceAssembly
}

// TaggingError reports a failure of the external tagging capability.
// Retryable by the caller with backoff; after retries are exhausted the
// whole document is marked failed, never partially loaded.
type TaggingError struct {
	Sentence int   // Index of the sentence that was being tagged
	Err      error // Underlying transport or capability error
}

func (e *TaggingError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("tagging failed for sentence %d: %v", e.Sentence, e.Err)
	}
	return fmt.Sprintf("tagging failed for sentence %d", e.Sentence)
}

func (e *TaggingError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrTaggingUnavailable, e.Err}
	}
	return []error{ErrTaggingUnavailable}
}

// ValidationError represents an input validation error with context
type ValidationError struct {
	Field   string // Field name that failed validation
	Value   string // Value that failed validation (may be redacted)
	Message string // Human-readable error message
	Err     error  // Underlying error, if any
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed for %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation failed: %s", e.Message)
}

func (e *ValidationError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return ErrInvalidInput
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// Wrap annotates err with a message while preserving the error chain.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf annotates err with a formatted message while preserving the error chain.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(fmt.Sprintf(format, args...)+": %w", err)
}
