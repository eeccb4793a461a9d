package model

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorKind classifies failures raised while resolving a descriptor.
type ErrorKind string

const (
	KindInvalidTimeSpec         ErrorKind = "INVALID_TIME_SPEC"
	KindUnresolvedVariable      ErrorKind = "UNRESOLVED_VARIABLE"
	KindCyclicVariableReference ErrorKind = "CYCLIC_VARIABLE_REFERENCE"
	KindTypeMismatch            ErrorKind = "TYPE_MISMATCH"
	KindInvalidTimestamp        ErrorKind = "INVALID_TIMESTAMP"
	KindUnknownPlaceholder      ErrorKind = "UNKNOWN_PLACEHOLDER"
	KindPlaceholderDepth        ErrorKind = "PLACEHOLDER_DEPTH_EXCEEDED"
	KindTemplateNotFound        ErrorKind = "TEMPLATE_NOT_FOUND"
	KindIOFailure               ErrorKind = "IO_FAILURE"
)

// String returns the string representation of the kind.
func (k ErrorKind) String() string {
	return string(k)
}

// ResolveError is a structured error carrying the failure kind and, where
// applicable, the variable name, path, or reference cycle involved.
type ResolveError struct {
	Kind  ErrorKind
	Name  string   // variable or placeholder name
	Path  string   // file path for template/IO failures
	Cycle []string // reference cycle for CYCLIC_VARIABLE_REFERENCE
	Msg   string
	Err   error // wrapped cause, if any
}

func (e *ResolveError) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Kind))
	if e.Name != "" {
		fmt.Fprintf(&b, " %q", e.Name)
	}
	if e.Path != "" {
		fmt.Fprintf(&b, " (%s)", e.Path)
	}
	if len(e.Cycle) > 0 {
		fmt.Fprintf(&b, " [%s]", strings.Join(e.Cycle, " -> "))
	}
	if e.Msg != "" {
		b.WriteString(": ")
		b.WriteString(e.Msg)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *ResolveError) Unwrap() error {
	return e.Err
}

// KindOf extracts the ErrorKind from err, or "" if err carries none.
func KindOf(err error) ErrorKind {
	var re *ResolveError
	if errors.As(err, &re) {
		return re.Kind
	}
	return ""
}

// ErrInvalidTimeSpec reports an inconsistent time specification.
func ErrInvalidTimeSpec(msg string) *ResolveError {
	return &ResolveError{Kind: KindInvalidTimeSpec, Msg: msg}
}

// ErrUnresolvedVariable reports a variable with no value in any source.
func ErrUnresolvedVariable(name string) *ResolveError {
	return &ResolveError{Kind: KindUnresolvedVariable, Name: name, Msg: "no source defines a value"}
}

// ErrCyclicReference reports a reference cycle between brace placeholders.
func ErrCyclicReference(cycle []string) *ResolveError {
	return &ResolveError{Kind: KindCyclicVariableReference, Cycle: cycle}
}

// ErrTypeMismatch reports a value that cannot be coerced to its declared format.
func ErrTypeMismatch(name, expected string, got any) *ResolveError {
	return &ResolveError{
		Kind: KindTypeMismatch, Name: name,
		Msg: fmt.Sprintf("expected %s, got %T (%v)", expected, got, got),
	}
}

// ErrInvalidTimestamp reports a timestamp variable that is missing or unparseable.
func ErrInvalidTimestamp(name string, err error) *ResolveError {
	return &ResolveError{Kind: KindInvalidTimestamp, Name: name, Err: err}
}

// ErrUnknownPlaceholder reports a brace reference to an undefined variable.
func ErrUnknownPlaceholder(name string) *ResolveError {
	return &ResolveError{Kind: KindUnknownPlaceholder, Name: name}
}

// ErrPlaceholderDepth reports brace expansion exceeding the maximum depth.
func ErrPlaceholderDepth(name string) *ResolveError {
	return &ResolveError{Kind: KindPlaceholderDepth, Name: name}
}

// ErrTemplateNotFound reports a missing namelist template file.
func ErrTemplateNotFound(path string) *ResolveError {
	return &ResolveError{Kind: KindTemplateNotFound, Path: path}
}

// ErrIO wraps a filesystem failure on path.
func ErrIO(path string, err error) *ResolveError {
	return &ResolveError{Kind: KindIOFailure, Path: path, Err: err}
}
