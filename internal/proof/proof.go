// Package proof defines the shared diagnostic and proof-trace types
// produced by every pipeline component (subset linter, grammar
// builder, transducer builder, type-preservation validator, preimage
// and validity checker).
package proof

import (
	"fmt"
	"strings"
)

// Code identifies the kind of diagnostic, in the same spirit as a W3C
// XSD error code: stable, greppable, and independent of the message
// text.
type Code string

const (
	CodeMalformedInput     Code = "input-malformed"
	CodeSubsetViolation    Code = "subset-violation"
	CodeSchemaDefect       Code = "schema-defect"
	CodeSemanticMismatch   Code = "semantic-mismatch"
	CodeValidityGap        Code = "validity-gap"
	CodeStructuralCoverage Code = "structural-coverage"
	CodeOK                 Code = "ok"
)

// Level orders diagnostics by severity: info, ok, warn and error, where
// "ok" marks a proof-trace step that confirms rather than complains.
type Level int8

const (
	LevelInfo Level = iota
	LevelOK
	LevelWarn
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelInfo:
		return "info"
	case LevelOK:
		return "ok"
	case LevelWarn:
		return "warn"
	case LevelError:
		return "error"
	default:
		return "unknown"
	}
}

// Diagnostic is one entry in a component's ordered proof trace: a
// human message and a path or identifier locating its origin, tagged
// with a Code and Level so callers can filter mechanically without
// parsing Message.
type Diagnostic struct {
	Code    Code
	Level   Level
	Message string
	Path    string
}

func New(code Code, level Level, path, format string, args ...any) Diagnostic {
	return Diagnostic{
		Code:    code,
		Level:   level,
		Message: fmt.Sprintf(format, args...),
		Path:    path,
	}
}

func Info(path, format string, args ...any) Diagnostic {
	return New(CodeStructuralCoverage, LevelInfo, path, format, args...)
}

func OK(path, format string, args ...any) Diagnostic {
	return New(CodeOK, LevelOK, path, format, args...)
}

func Warn(code Code, path, format string, args ...any) Diagnostic {
	return New(code, LevelWarn, path, format, args...)
}

func Err(code Code, path, format string, args ...any) Diagnostic {
	return New(code, LevelError, path, format, args...)
}

func (d Diagnostic) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s", d.Code, d.Message)
	if d.Path != "" {
		fmt.Fprintf(&b, " at %s", d.Path)
	}
	return b.String()
}

func (d Diagnostic) Error() string {
	return d.String()
}

// Trace is an ordered, append-only proof trace. Order matters: later
// steps may reference earlier ones by index, and callers render the
// trace top to bottom as a proof.
type Trace []Diagnostic

func (t *Trace) Add(d Diagnostic) {
	*t = append(*t, d)
}

func (t *Trace) OK(path, format string, args ...any) {
	t.Add(OK(path, format, args...))
}

func (t *Trace) Info(path, format string, args ...any) {
	t.Add(Info(path, format, args...))
}

func (t *Trace) Warn(code Code, path, format string, args ...any) {
	t.Add(Warn(code, path, format, args...))
}

func (t *Trace) Err(code Code, path, format string, args ...any) {
	t.Add(Err(code, path, format, args...))
}

// HasErrors reports whether any diagnostic in the trace is at
// LevelError, the signal a pipeline stage uses to decide whether to
// short-circuit per the error-handling design.
func (t Trace) HasErrors() bool {
	for _, d := range t {
		if d.Level == LevelError {
			return true
		}
	}
	return false
}

func (t Trace) Errors() []Diagnostic {
	var out []Diagnostic
	for _, d := range t {
		if d.Level == LevelError {
			out = append(out, d)
		}
	}
	return out
}

func (t Trace) Warnings() []Diagnostic {
	var out []Diagnostic
	for _, d := range t {
		if d.Level == LevelWarn {
			out = append(out, d)
		}
	}
	return out
}

// List is a plain error aggregate for fatal, non-recoverable failures
// (a schema or stylesheet document with no root element) that must
// abort the pipeline stage immediately rather than accumulate in a
// Trace.
type List []error

func (l List) Error() string {
	switch len(l) {
	case 0:
		return "no errors"
	case 1:
		return l[0].Error()
	default:
		return fmt.Sprintf("%s (and %d more)", l[0].Error(), len(l)-1)
	}
}

func (l List) Unwrap() []error {
	return []error(l)
}
