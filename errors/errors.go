package errors

import (
	"fmt"
	"strings"
)

// Phase indicates where in a bridge call the error occurred
type Phase string

const (
	PhaseEncode   Phase = "encode"   // Go to engine memory
	PhaseDecode   Phase = "decode"   // engine memory to Go
	PhaseCallback Phase = "callback" // engine calling back into the host
	PhaseRegistry Phase = "registry" // callback token bookkeeping
	PhaseInvoke   Phase = "invoke"   // calling an engine entry point
	PhaseLoad     Phase = "load"     // loading and instantiating an engine
	PhaseConfig   Phase = "config"   // configuration rejected before compiling
)

// Kind categorizes the error
type Kind string

const (
	KindMalformedInput    Kind = "malformed_input"
	KindResourceExhausted Kind = "resource_exhausted"
	KindOutOfBounds       Kind = "out_of_bounds"
	KindInvalidData       Kind = "invalid_data"
	KindInvalidEnum       Kind = "invalid_enum"
	KindNilPointer        Kind = "nil_pointer"
	KindNotFound          Kind = "not_found"
	KindMissingExport     Kind = "missing_export"
	KindTrap              Kind = "trap"
	KindClosed            Kind = "closed"
	KindNullResult        Kind = "null_result"
	KindInstantiation     Kind = "instantiation"
	KindUnsupported       Kind = "unsupported"
	KindInvalidConfig     Kind = "invalid_config"
	KindInvalidFilter     Kind = "invalid_filter"
	KindHookOutsideSetup  Kind = "hook_outside_setup"
)

// Class is the error class a caller of a build reacts to.
// A Class is itself an error so it can be used as an errors.Is target:
//
//	if errors.Is(err, errors.Transport) { ... }
type Class string

const (
	// Transport errors come from buffer encoding, decoding or callback plumbing.
	// They indicate a bridge bug, never a user mistake.
	Transport Class = "transport"
	// System errors mean the engine entry point could not be invoked at all.
	System Class = "system"
	// Configuration errors mean the engine or a plugin rejected the configuration
	// before any compilation happened.
	Configuration Class = "configuration"
)

func (c Class) Error() string {
	return string(c) + " error"
}

// ClassOf returns the class a kind belongs to.
func ClassOf(kind Kind) Class {
	switch kind {
	case KindMissingExport, KindTrap, KindClosed, KindNullResult, KindInstantiation, KindUnsupported:
		return System
	case KindInvalidConfig, KindInvalidFilter, KindHookOutsideSetup:
		return Configuration
	default:
		return Transport
	}
}

// Error is the structured error type used throughout the bridge
type Error struct {
	Value  any
	Cause  error
	Phase  Phase
	Kind   Kind
	Detail string
	Path   []string
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if len(e.Path) > 0 {
		b.WriteString(" at ")
		b.WriteString(strings.Join(e.Path, "."))
	}

	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Class returns the error class derived from the kind
func (e *Error) Class() Class {
	return ClassOf(e.Kind)
}

// Is reports whether target matches this error.
// An *Error target matches on phase and kind, a Class target on class.
func (e *Error) Is(target error) bool {
	switch t := target.(type) {
	case *Error:
		return e.Phase == t.Phase && e.Kind == t.Kind
	case Class:
		return e.Class() == t
	}
	return false
}

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(phase Phase, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Phase: phase,
			Kind:  kind,
		},
	}
}

// Path sets the field path
func (b *Builder) Path(path ...string) *Builder {
	b.err.Path = path
	return b
}

// Value sets the offending value
func (b *Builder) Value(v any) *Builder {
	b.err.Value = v
	return b
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets the human-readable detail message
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed error
func (b *Builder) Build() *Error {
	return &b.err
}

// Convenience constructors for common error patterns

// MalformedInput reports a value that cannot be represented on the wire,
// such as a string with an embedded NUL byte.
func MalformedInput(phase Phase, path []string, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindMalformedInput,
		Path:   path,
		Detail: detail,
	}
}

// ResourceExhausted creates an allocation failure error
func ResourceExhausted(phase Phase, size, align uint32, cause error) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindResourceExhausted,
		Detail: fmt.Sprintf("failed to allocate %d bytes (align %d)", size, align),
		Cause:  cause,
	}
}

// OutOfBounds creates an out of bounds memory access error
func OutOfBounds(phase Phase, path []string, offset, length uint32) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindOutOfBounds,
		Path:   path,
		Detail: fmt.Sprintf("access at %d (length %d) outside linear memory", offset, length),
		Value:  offset,
	}
}

// InvalidEnum creates an invalid enum value error
func InvalidEnum(phase Phase, path []string, value any, enumType string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidEnum,
		Path:   path,
		Detail: fmt.Sprintf("invalid enum value %v for %s", value, enumType),
		Value:  value,
	}
}

// InvalidData creates an invalid data error
func InvalidData(phase Phase, path []string, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidData,
		Path:   path,
		Detail: detail,
	}
}

// NilPointer creates a nil pointer error
func NilPointer(phase Phase, path []string, what string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNilPointer,
		Path:   path,
		Detail: what + " is nil",
	}
}

// NotFound creates a not-found error
func NotFound(phase Phase, what, name string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNotFound,
		Detail: fmt.Sprintf("%s %q not found", what, name),
	}
}

// Wrap wraps an existing error with additional context
func Wrap(phase Phase, kind Kind, cause error, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   kind,
		Detail: detail,
		Cause:  cause,
	}
}

// Trap creates an error for an engine call that trapped or failed to run
func Trap(entry string, cause error) *Error {
	return &Error{
		Phase:  PhaseInvoke,
		Kind:   KindTrap,
		Detail: fmt.Sprintf("call %s", entry),
		Cause:  cause,
	}
}

// NullResult creates an error for an entry point that returned a null record
func NullResult(entry string) *Error {
	return &Error{
		Phase:  PhaseInvoke,
		Kind:   KindNullResult,
		Detail: fmt.Sprintf("%s returned no result", entry),
	}
}

// Closed creates an error for use of a closed engine
func Closed(what string) *Error {
	return &Error{
		Phase:  PhaseInvoke,
		Kind:   KindClosed,
		Detail: what + " is closed",
	}
}

// Instantiation creates an engine instantiation error
func Instantiation(cause error) *Error {
	return &Error{
		Phase:  PhaseLoad,
		Kind:   KindInstantiation,
		Detail: "instantiate engine module",
		Cause:  cause,
	}
}

// InvalidConfig creates a configuration error reported by the engine
func InvalidConfig(detail string) *Error {
	return &Error{
		Phase:  PhaseConfig,
		Kind:   KindInvalidConfig,
		Detail: detail,
	}
}

// MissingExportsError is returned when an engine module lacks required exports
type MissingExportsError struct {
	Exports []string
}

// NewMissingExportsError creates an error listing the missing export names
func NewMissingExportsError(exports []string) *MissingExportsError {
	return &MissingExportsError{Exports: exports}
}

func (e *MissingExportsError) Error() string {
	if len(e.Exports) == 0 {
		return "[load] missing_export: no exports specified"
	}

	var b strings.Builder
	b.WriteString(fmt.Sprintf("engine module is missing %d export(s):", len(e.Exports)))
	for _, name := range e.Exports {
		b.WriteString("\n  - ")
		b.WriteString(name)
	}
	return b.String()
}

// Is reports whether target matches this error type
func (e *MissingExportsError) Is(target error) bool {
	switch t := target.(type) {
	case *MissingExportsError:
		return true
	case Class:
		return t == System
	}
	return false
}
