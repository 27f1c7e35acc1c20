// Package conferr defines the fatal error taxonomy of a configuration pass.
//
// Every fatal condition is reported as an *Error carrying one of the sentinel
// kinds below, the name of the failing entity (option, path, probe or file)
// and a human-readable reason. Callers match on the kind with errors.Is.
//
// A capability that is simply absent on the host is not an error at all; it
// is a normal probe outcome and never reaches this package.
package conferr

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrMandatoryUnsupported     = errors.New("mandatory option unsupported")
	ErrCycleDetected            = errors.New("cycle detected")
	ErrDuplicateDeclaration     = errors.New("duplicate declaration")
	ErrExternalProbeUnavailable = errors.New("external command unavailable")
	ErrUndeclaredReference      = errors.New("undeclared reference")
	ErrInvalidExpression        = errors.New("invalid expression")
	ErrInvalidOverride          = errors.New("invalid override")
	ErrInvalidPath              = errors.New("invalid path")
	ErrInvalidDeclaration       = errors.New("invalid declaration")
)

// Error is a fatal configuration error.
type Error struct {
	Kind   error
	Entity string
	Reason string
	// Err is an optional underlying cause (e.g. hcl.Diagnostics).
	Err error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	var b strings.Builder
	b.WriteString(e.Kind.Error())
	if e.Entity != "" {
		b.WriteString(": ")
		b.WriteString(e.Entity)
	}
	if e.Reason != "" {
		b.WriteString(": ")
		b.WriteString(e.Reason)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

// Unwrap exposes both the kind and the cause to errors.Is / errors.As.
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// New builds an *Error of the given kind.
func New(kind error, entity, format string, args ...any) error {
	return &Error{Kind: kind, Entity: entity, Reason: fmt.Sprintf(format, args...)}
}

// Wrap builds an *Error of the given kind around an underlying cause.
func Wrap(kind error, entity string, err error) error {
	return &Error{Kind: kind, Entity: entity, Err: err}
}

// Cycle reports a dependency cycle, naming the participants in cycle order.
func Cycle(graph string, path []string) error {
	return &Error{
		Kind:   ErrCycleDetected,
		Entity: graph,
		Reason: strings.Join(path, " -> "),
	}
}

// EntityOf returns the failing entity of a configuration error, or "" when
// err is not one.
func EntityOf(err error) string {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Entity
	}
	return ""
}
