package codec

import (
	"encoding/hex"
	"reflect"
	"strconv"
	"strings"
	"unicode/utf8"

	"gopkg.in/yaml.v3"

	"github.com/wippyai/tickcodec/codec/internal/wire"
	"github.com/wippyai/tickcodec/errors"
	"github.com/wippyai/tickcodec/schema"
)

// Limits on variable-width values.
const (
	MaxStringSize  = 1 << 24
	MaxArrayLength = 1 << 20
)

type stringHandler struct{}

func (stringHandler) Kind() schema.Kind       { return schema.KindString }
func (stringHandler) FixedWidth() (int, bool) { return 0, false }
func (stringHandler) NullValue() any          { return nil }

func (stringHandler) Fold(dt *schema.DataType, lit schema.Literal) (any, error) {
	if !utf8.ValidString(lit.Text) {
		return nil, foldMismatch(dt, lit, nil)
	}
	return lit.Text, nil
}

func (stringHandler) Coerce(dt *schema.DataType, v any) (any, error) {
	var s string
	switch x := v.(type) {
	case string:
		s = x
	case []byte:
		s = string(x)
	default:
		return nil, mismatch(errors.PhaseEncode, dt, v)
	}
	if !utf8.ValidString(s) {
		return nil, errors.InvalidUTF8(errors.PhaseEncode, nil, []byte(s))
	}
	if len(s) > MaxStringSize {
		return nil, errors.New(errors.PhaseEncode, errors.KindOutOfRange).
			DataType(dt.String()).
			Detail("string size %d exceeds maximum %d", len(s), MaxStringSize).
			Build()
	}
	return s, nil
}

func (h stringHandler) Fragment(dt *schema.DataType, env *Env) (Fragment, error) {
	path := env.Path
	return Fragment{
		Encode: func(w *wire.Writer, v any) error {
			s, err := h.Coerce(dt, v)
			if err != nil {
				return err
			}
			w.Length(len(s.(string)))
			w.WriteString(s.(string))
			return nil
		},
		EncodeNull: func(w *wire.Writer) { w.Null() },
		Decode: func(r *wire.Reader) (any, error) {
			n, ok, err := r.Length()
			if err != nil {
				return nil, decodeErr(path, err)
			}
			if !ok {
				return nil, nil
			}
			data, err := r.ReadBytes(n)
			if err != nil {
				return nil, decodeErr(path, err)
			}
			if !utf8.Valid(data) {
				return nil, errors.InvalidUTF8(errors.PhaseDecode, path, data)
			}
			return string(data), nil
		},
	}, nil
}

type binaryHandler struct{}

func (binaryHandler) Kind() schema.Kind       { return schema.KindBinary }
func (binaryHandler) FixedWidth() (int, bool) { return 0, false }
func (binaryHandler) NullValue() any          { return nil }

// Fold reads hex digits, with or without a 0x prefix.
func (binaryHandler) Fold(dt *schema.DataType, lit schema.Literal) (any, error) {
	b, err := hex.DecodeString(strings.TrimPrefix(lit.Text, "0x"))
	if err != nil {
		return nil, foldMismatch(dt, lit, err)
	}
	return b, nil
}

func (binaryHandler) Coerce(dt *schema.DataType, v any) (any, error) {
	var b []byte
	switch x := v.(type) {
	case []byte:
		b = x
	case string:
		b = []byte(x)
	default:
		return nil, mismatch(errors.PhaseEncode, dt, v)
	}
	if len(b) > MaxStringSize {
		return nil, errors.New(errors.PhaseEncode, errors.KindOutOfRange).
			DataType(dt.String()).
			Detail("binary size %d exceeds maximum %d", len(b), MaxStringSize).
			Build()
	}
	return b, nil
}

func (h binaryHandler) Fragment(dt *schema.DataType, env *Env) (Fragment, error) {
	path := env.Path
	return Fragment{
		Encode: func(w *wire.Writer, v any) error {
			b, err := h.Coerce(dt, v)
			if err != nil {
				return err
			}
			w.Length(len(b.([]byte)))
			w.WriteBytes(b.([]byte))
			return nil
		},
		EncodeNull: func(w *wire.Writer) { w.Null() },
		Decode: func(r *wire.Reader) (any, error) {
			n, ok, err := r.Length()
			if err != nil {
				return nil, decodeErr(path, err)
			}
			if !ok {
				return nil, nil
			}
			data, err := r.ReadBytes(n)
			if err != nil {
				return nil, decodeErr(path, err)
			}
			out := make([]byte, n)
			copy(out, data)
			return out, nil
		},
	}, nil
}

// arrayHandler writes an item count code followed by the elements. The
// in-memory form is []any; other slice types are accepted on encode.
type arrayHandler struct{}

func (arrayHandler) Kind() schema.Kind       { return schema.KindArray }
func (arrayHandler) FixedWidth() (int, bool) { return 0, false }
func (arrayHandler) NullValue() any          { return nil }

// Fold reads a YAML flow sequence such as [1, 2, null].
func (arrayHandler) Fold(dt *schema.DataType, lit schema.Literal) (any, error) {
	var node yaml.Node
	if err := yaml.Unmarshal([]byte(lit.Text), &node); err != nil {
		return nil, foldMismatch(dt, lit, err)
	}
	if node.Kind == yaml.DocumentNode && len(node.Content) == 1 {
		node = *node.Content[0]
	}
	return foldSequence(dt, lit, &node)
}

func foldSequence(dt *schema.DataType, lit schema.Literal, node *yaml.Node) (any, error) {
	if node.Kind != yaml.SequenceNode {
		return nil, foldMismatch(dt, lit, nil)
	}
	out := make([]any, 0, len(node.Content))
	for _, item := range node.Content {
		if item.Kind == yaml.SequenceNode {
			if dt.Element.Kind != schema.KindArray {
				return nil, foldMismatch(dt, lit, nil)
			}
			v, err := foldSequence(dt.Element, lit, item)
			if err != nil {
				return nil, err
			}
			out = append(out, v)
			continue
		}
		elem := schema.Literal{
			Text:   item.Value,
			Span:   lit.Span,
			Quoted: item.Style&(yaml.DoubleQuotedStyle|yaml.SingleQuotedStyle) != 0,
		}
		if item.Tag == "!!null" && !elem.Quoted {
			elem.Text = "null"
		}
		v, err := Fold(dt.Element, elem)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func (arrayHandler) Coerce(dt *schema.DataType, v any) (any, error) {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, mismatch(errors.PhaseEncode, dt, v)
	}
	n := rv.Len()
	if n > MaxArrayLength {
		return nil, errors.New(errors.PhaseEncode, errors.KindOutOfRange).
			DataType(dt.String()).
			Detail("array length %d exceeds maximum %d", n, MaxArrayLength).
			Build()
	}
	out := make([]any, n)
	for i := 0; i < n; i++ {
		e, err := Coerce(dt.Element, rv.Index(i).Interface())
		if err != nil {
			return nil, withPath(err, []string{"[" + strconv.Itoa(i) + "]"})
		}
		out[i] = e
	}
	return out, nil
}

func (h arrayHandler) Fragment(dt *schema.DataType, env *Env) (Fragment, error) {
	if dt.Element == nil {
		return Fragment{}, errors.New(errors.PhaseCompile, errors.KindUnsupported).
			Path(env.Path...).
			Span(env.Span).
			Detail("array without element type").
			Build()
	}
	elem, err := fragmentFor(dt.Element, env.at("[]"))
	if err != nil {
		return Fragment{}, err
	}
	path := env.Path
	return Fragment{
		Encode: func(w *wire.Writer, v any) error {
			if items, ok := v.([]any); ok {
				if len(items) > MaxArrayLength {
					return h.tooLong(dt, len(items))
				}
				w.Length(len(items))
				for _, item := range items {
					if err := elem.Encode(w, item); err != nil {
						return err
					}
				}
				return nil
			}
			rv := reflect.ValueOf(v)
			if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
				return mismatch(errors.PhaseEncode, dt, v)
			}
			n := rv.Len()
			if n > MaxArrayLength {
				return h.tooLong(dt, n)
			}
			w.Length(n)
			for i := 0; i < n; i++ {
				if err := elem.Encode(w, rv.Index(i).Interface()); err != nil {
					return err
				}
			}
			return nil
		},
		EncodeNull: func(w *wire.Writer) { w.Null() },
		Decode: func(r *wire.Reader) (any, error) {
			n, ok, err := r.Length()
			if err != nil {
				return nil, decodeErr(path, err)
			}
			if !ok {
				return nil, nil
			}
			out := make([]any, n)
			for i := range out {
				if out[i], err = elem.Decode(r); err != nil {
					return nil, err
				}
			}
			return out, nil
		},
	}, nil
}

func (arrayHandler) tooLong(dt *schema.DataType, n int) error {
	return errors.New(errors.PhaseEncode, errors.KindOutOfRange).
		DataType(dt.String()).
		Detail("array length %d exceeds maximum %d", n, MaxArrayLength).
		Build()
}
