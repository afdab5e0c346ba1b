package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
)

// Phase indicates where in processing the error occurred
type Phase string

const (
	PhaseLoad     Phase = "load"     // schema text to descriptors
	PhaseParse    Phase = "parse"    // expression text to syntax tree
	PhaseCompile  Phase = "compile"  // descriptors/expressions to artifacts
	PhaseFold     Phase = "fold"     // literal to constant
	PhaseEncode   Phase = "encode"   // record to bytes
	PhaseDecode   Phase = "decode"   // bytes to record
	PhaseResolve  Phase = "resolve"  // type identifier to class
	PhaseEvaluate Phase = "evaluate" // compiled expression execution
)

// Kind categorizes the error
type Kind string

const (
	KindTypeMismatch        Kind = "type_mismatch"
	KindIllegalAbstractType Kind = "illegal_abstract_type"
	KindOutOfRange          Kind = "out_of_range"
	KindUnsupported         Kind = "unsupported"
	KindUnknownType         Kind = "unknown_type"
	KindFieldMissing        Kind = "field_missing"
	KindFieldUnknown        Kind = "field_unknown"
	KindDuplicate           Kind = "duplicate"
	KindUnresolved          Kind = "unresolved"
	KindImmutable           Kind = "immutable"
	KindNilPointer          Kind = "nil_pointer"
	KindInvalidData         Kind = "invalid_data"
	KindInvalidUTF8         Kind = "invalid_utf8"
	KindSyntax              Kind = "syntax"
)

// Error is the structured error type used throughout the module.
// Errors raised while compiling carry the Span of the offending
// schema or expression text and double as diagnostics.
type Error struct {
	Value    any
	Cause    error
	Phase    Phase
	Kind     Kind
	GoType   string
	DataType string
	Detail   string
	Path     []string
	Span     Span
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	if e.Span.IsValid() {
		b.WriteString(e.Span.String())
		b.WriteString(": ")
	}

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if len(e.Path) > 0 {
		b.WriteString(" at ")
		b.WriteString(strings.Join(e.Path, "."))
	}

	if e.GoType != "" || e.DataType != "" {
		b.WriteString(": ")
		if e.GoType != "" && e.DataType != "" {
			b.WriteString("Go type ")
			b.WriteString(e.GoType)
			b.WriteString(", data type ")
			b.WriteString(e.DataType)
		} else if e.GoType != "" {
			b.WriteString("Go type ")
			b.WriteString(e.GoType)
		} else {
			b.WriteString("data type ")
			b.WriteString(e.DataType)
		}
	}

	if e.Detail != "" {
		if e.GoType != "" || e.DataType != "" {
			b.WriteString(" - ")
		} else {
			b.WriteString(": ")
		}
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

// Is reports whether target matches this error
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Phase == t.Phase && e.Kind == t.Kind
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

// GoType sets the Go type name
func (b *Builder) GoType(t string) *Builder {
	b.err.GoType = t
	return b
}

// DataType sets the schema data type or class name
func (b *Builder) DataType(t string) *Builder {
	b.err.DataType = t
	return b
}

// Span sets the source location
func (b *Builder) Span(s Span) *Builder {
	b.err.Span = s
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

// IsCompileFailure reports whether err is a diagnostic raised while
// loading, parsing, folding or compiling, as opposed to a failure of a
// finished artifact.
func IsCompileFailure(err error) bool {
	var e *Error
	if !stderrors.As(err, &e) {
		return false
	}
	switch e.Phase {
	case PhaseLoad, PhaseParse, PhaseCompile, PhaseFold:
		return true
	}
	return false
}

// As is errors.As for *Error.
func As(err error) (*Error, bool) {
	var e *Error
	if stderrors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// Convenience constructors for common error patterns

// IllegalAbstractType reports an abstract class used where a concrete,
// instantiable class is required.
func IllegalAbstractType(phase Phase, span Span, className string) *Error {
	return &Error{
		Phase:    phase,
		Kind:     KindIllegalAbstractType,
		DataType: className,
		Span:     span,
		Detail:   fmt.Sprintf("illegal abstract type: %s", className),
	}
}

// OutOfRange creates an out of range error for a value or literal that
// the target kind cannot represent.
func OutOfRange(phase Phase, span Span, value any, dataType string) *Error {
	return &Error{
		Phase:    phase,
		Kind:     KindOutOfRange,
		DataType: dataType,
		Span:     span,
		Value:    value,
		Detail:   fmt.Sprintf("value %v is out of range for %s", value, dataType),
	}
}

// TypeMismatch creates a type mismatch error
func TypeMismatch(phase Phase, path []string, goType, dataType string) *Error {
	return &Error{
		Phase:    phase,
		Kind:     KindTypeMismatch,
		Path:     path,
		GoType:   goType,
		DataType: dataType,
	}
}

// UnknownType creates an error for a type name that resolves to nothing.
func UnknownType(phase Phase, span Span, name string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindUnknownType,
		Span:   span,
		Detail: fmt.Sprintf("unknown type %q", name),
	}
}

// Unresolved creates a type loader resolution error.
func Unresolved(typeID string, cause error) *Error {
	return &Error{
		Phase:  PhaseResolve,
		Kind:   KindUnresolved,
		Value:  typeID,
		Detail: fmt.Sprintf("cannot resolve type %q", typeID),
		Cause:  cause,
	}
}

// Immutable creates an error for a write to a final variable.
func Immutable(name string) *Error {
	return &Error{
		Phase:  PhaseEvaluate,
		Kind:   KindImmutable,
		Detail: fmt.Sprintf("variable %s is final", name),
	}
}

// InvalidUTF8 creates an invalid UTF-8 error
func InvalidUTF8(phase Phase, path []string, data []byte) *Error {
	preview := data
	if len(preview) > 32 {
		preview = preview[:32]
	}
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidUTF8,
		Path:   path,
		Detail: fmt.Sprintf("invalid UTF-8 sequence: %x", preview),
	}
}

// FieldMissing creates a missing field error
func FieldMissing(phase Phase, path []string, fieldName string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindFieldMissing,
		Path:   path,
		Detail: fmt.Sprintf("required field %q not found", fieldName),
	}
}

// FieldUnknown creates an unknown field error
func FieldUnknown(phase Phase, path []string, fieldName string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindFieldUnknown,
		Path:   path,
		Detail: fmt.Sprintf("unknown field %q", fieldName),
	}
}

// Unsupported creates an unsupported operation error
func Unsupported(phase Phase, what string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindUnsupported,
		Detail: what,
	}
}

// NilPointer reports a null value where the data type forbids one.
func NilPointer(phase Phase, path []string, dataType string) *Error {
	return &Error{
		Phase:    phase,
		Kind:     KindNilPointer,
		Path:     path,
		DataType: dataType,
		Detail:   "null value for non-nullable type",
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

// Wrap wraps an existing error with additional context
func Wrap(phase Phase, kind Kind, cause error, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   kind,
		Detail: detail,
		Cause:  cause,
	}
}

// Syntax creates a parse error at span.
func Syntax(span Span, detail string, args ...any) *Error {
	return &Error{
		Phase:  PhaseParse,
		Kind:   KindSyntax,
		Span:   span,
		Detail: fmt.Sprintf(detail, args...),
	}
}
