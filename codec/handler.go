package codec

import (
	"github.com/wippyai/tickcodec/codec/internal/wire"
	"github.com/wippyai/tickcodec/errors"
	"github.com/wippyai/tickcodec/schema"
)

// Handler implements one kind of the type system.
//
// Handlers are stateless and shared by every compiler. Per-descriptor
// parameters (scale, enum class, element type, object classes) come from
// the DataType passed to each call; compile-time context comes from Env.
//
// Handlers should:
//   - Return the same FixedWidth for every descriptor of their kind
//   - Produce fragments that only see non-nil values; null handling is
//     spliced around them by the compiler
//   - Report literal problems with the literal's span
type Handler interface {
	Kind() schema.Kind

	// FixedWidth returns the wire width, or false for variable width.
	FixedWidth() (int, bool)

	// NullValue returns the in-memory null, which is nil for every kind.
	NullValue() any

	// Fold converts literal text to a native value at compile time.
	Fold(dt *schema.DataType, lit schema.Literal) (any, error)

	// Coerce converts a compatible Go value to the kind's native type,
	// checking range. v is never nil.
	Coerce(dt *schema.DataType, v any) (any, error)

	// Fragment returns the encode and decode routines for dt.
	Fragment(dt *schema.DataType, env *Env) (Fragment, error)
}

// Fragment is the compiled routine set for one descriptor. Encode never
// receives nil; EncodeNull writes the null form instead.
type Fragment struct {
	Encode     func(w *wire.Writer, v any) error
	EncodeNull func(w *wire.Writer)
	Decode     func(r *wire.Reader) (any, error)
}

// Env carries compile-time context into Handler.Fragment.
type Env struct {
	compiler *Compiler
	pending  map[*schema.RecordClass]*recordCodec
	// Path names the field being compiled, for error messages.
	Path []string
	// Span locates the field declaration.
	Span errors.Span
}

func (e *Env) at(elem string) *Env {
	path := make([]string, len(e.Path), len(e.Path)+1)
	copy(path, e.Path)
	return &Env{
		compiler: e.compiler,
		pending:  e.pending,
		Path:     append(path, elem),
		Span:     e.Span,
	}
}

var handlers = [schema.KindCount]Handler{
	schema.KindBool:      boolHandler{},
	schema.KindInt8:      intHandler{kind: schema.KindInt8, bits: 8, signed: true},
	schema.KindInt16:     intHandler{kind: schema.KindInt16, bits: 16, signed: true},
	schema.KindInt32:     intHandler{kind: schema.KindInt32, bits: 32, signed: true},
	schema.KindInt64:     intHandler{kind: schema.KindInt64, bits: 64, signed: true},
	schema.KindUInt8:     intHandler{kind: schema.KindUInt8, bits: 8},
	schema.KindUInt16:    intHandler{kind: schema.KindUInt16, bits: 16},
	schema.KindUInt32:    intHandler{kind: schema.KindUInt32, bits: 32},
	schema.KindUInt64:    intHandler{kind: schema.KindUInt64, bits: 64},
	schema.KindFloat32:   floatHandler{kind: schema.KindFloat32, bits: 32},
	schema.KindFloat64:   floatHandler{kind: schema.KindFloat64, bits: 64},
	schema.KindDecimal:   decimalHandler{},
	schema.KindTimestamp: timestampHandler{},
	schema.KindTimeOfDay: timeOfDayHandler{},
	schema.KindEnum:      enumHandler{},
	schema.KindString:    stringHandler{},
	schema.KindBinary:    binaryHandler{},
	schema.KindArray:     arrayHandler{},
	schema.KindObject:    objectHandler{},
}

// HandlerFor returns the handler of a kind, or nil for an invalid kind.
func HandlerFor(k schema.Kind) Handler {
	if !k.Valid() {
		return nil
	}
	return handlers[k]
}

// fragmentFor resolves dt's handler and splices null handling around its
// fragment: nil encodes as the null form when dt is nullable and fails
// otherwise.
func fragmentFor(dt *schema.DataType, env *Env) (Fragment, error) {
	h := HandlerFor(dt.Kind)
	if h == nil {
		return Fragment{}, errors.New(errors.PhaseCompile, errors.KindUnsupported).
			Path(env.Path...).
			Span(env.Span).
			Detail("unknown kind %d", dt.Kind).
			Build()
	}
	frag, err := h.Fragment(dt, env)
	if err != nil {
		return Fragment{}, err
	}

	encode := frag.Encode
	path := env.Path
	typeName := dt.String()
	if dt.Nullable {
		frag.Encode = func(w *wire.Writer, v any) error {
			if v == nil {
				frag.EncodeNull(w)
				return nil
			}
			return withPath(encode(w, v), path)
		}
	} else {
		frag.Encode = func(w *wire.Writer, v any) error {
			if v == nil {
				return errors.NilPointer(errors.PhaseEncode, path, typeName)
			}
			return withPath(encode(w, v), path)
		}
		decode := frag.Decode
		frag.Decode = func(r *wire.Reader) (any, error) {
			v, err := decode(r)
			if err == nil && v == nil {
				return nil, errors.NilPointer(errors.PhaseDecode, path, typeName)
			}
			return v, err
		}
	}
	return frag, nil
}

// Coerce converts v to dt's native representation. nil stays nil.
func Coerce(dt *schema.DataType, v any) (any, error) {
	if v == nil {
		if !dt.Nullable {
			return nil, errors.NilPointer(errors.PhaseEncode, nil, dt.String())
		}
		return nil, nil
	}
	h := HandlerFor(dt.Kind)
	if h == nil {
		return nil, errors.Unsupported(errors.PhaseEncode, "unknown kind "+dt.Kind.String())
	}
	return h.Coerce(dt, v)
}

// Fold converts literal text to dt's native representation. The literal
// null folds to nil and is rejected for non-nullable types.
func Fold(dt *schema.DataType, lit schema.Literal) (any, error) {
	if lit.IsNull() {
		if !dt.Nullable {
			return nil, errors.New(errors.PhaseFold, errors.KindNilPointer).
				DataType(dt.String()).
				Span(lit.Span).
				Detail("null literal for non-nullable type").
				Build()
		}
		return nil, nil
	}
	h := HandlerFor(dt.Kind)
	if h == nil {
		return nil, errors.New(errors.PhaseFold, errors.KindUnsupported).
			Span(lit.Span).
			Detail("unknown kind %d", dt.Kind).
			Build()
	}
	return h.Fold(dt, lit)
}

func mismatch(phase errors.Phase, dt *schema.DataType, v any) error {
	e := errors.TypeMismatch(phase, nil, goTypeName(v), dt.String())
	e.Value = v
	return e
}

func foldMismatch(dt *schema.DataType, lit schema.Literal, cause error) error {
	return errors.New(errors.PhaseFold, errors.KindTypeMismatch).
		DataType(dt.String()).
		Span(lit.Span).
		Value(lit.Text).
		Cause(cause).
		Detail("cannot read %q as %s", lit.Text, dt.String()).
		Build()
}

func foldRange(dt *schema.DataType, lit schema.Literal) error {
	return errors.OutOfRange(errors.PhaseFold, lit.Span, lit.Text, dt.String())
}

// withPath attaches path to structured errors raised below the field
// level, where the path is not known.
func withPath(err error, path []string) error {
	if e, ok := err.(*errors.Error); ok && len(e.Path) == 0 {
		e.Path = path
	}
	return err
}

func encodeRange(dt *schema.DataType, v any) error {
	return errors.OutOfRange(errors.PhaseEncode, errors.Span{}, v, dt.String())
}

func decodeErr(path []string, err error) error {
	if e, ok := errors.As(err); ok {
		return e
	}
	return errors.New(errors.PhaseDecode, errors.KindInvalidData).
		Path(path...).
		Cause(err).
		Detail("malformed input").
		Build()
}
