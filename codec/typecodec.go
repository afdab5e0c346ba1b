package codec

import (
	"github.com/wippyai/tickcodec/codec/internal/wire"
	"github.com/wippyai/tickcodec/errors"
	"github.com/wippyai/tickcodec/schema"
)

// TypeCodec is the compiled codec of a single descriptor: one value, no
// record around it.
type TypeCodec struct {
	dt   *schema.DataType
	h    Handler
	frag Fragment
}

// CompileType compiles dt with a fresh compiler. Object descriptors
// compile their classes; polymorphic ones consider only the named classes.
func CompileType(dt *schema.DataType) (*TypeCodec, error) {
	return NewCompiler().CompileType(dt)
}

// CompileType compiles dt using the compiler's set and loader.
func (c *Compiler) CompileType(dt *schema.DataType) (*TypeCodec, error) {
	h := HandlerFor(dt.Kind)
	if h == nil {
		return nil, errors.New(errors.PhaseCompile, errors.KindUnsupported).
			Span(dt.Span).
			Detail("unknown kind %d", dt.Kind).
			Build()
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	pending := make(map[*schema.RecordClass]*recordCodec)
	frag, err := fragmentFor(dt, &Env{compiler: c, pending: pending, Span: dt.Span})
	if err != nil {
		return nil, err
	}
	for k, v := range pending {
		c.classes[k] = v
	}
	return &TypeCodec{dt: dt, h: h, frag: frag}, nil
}

func (t *TypeCodec) Type() *schema.DataType {
	return t.dt
}

// FixedWidth returns the wire width, or false for variable width.
func (t *TypeCodec) FixedWidth() (int, bool) {
	return t.h.FixedWidth()
}

// NullValue returns the in-memory null.
func (t *TypeCodec) NullValue() any {
	return t.h.NullValue()
}

// Encode appends the wire form of v to dst. nil writes the null form.
func (t *TypeCodec) Encode(dst []byte, v any) ([]byte, error) {
	w := wire.NewWriter(dst)
	if err := t.frag.Encode(w, v); err != nil {
		return dst, err
	}
	return w.Bytes(), nil
}

// EncodeNull appends the null form to dst.
func (t *TypeCodec) EncodeNull(dst []byte) []byte {
	w := wire.NewWriter(dst)
	t.frag.EncodeNull(w)
	return w.Bytes()
}

// Decode reads one value and reports how many bytes it used.
func (t *TypeCodec) Decode(data []byte) (any, int, error) {
	r := wire.NewReader(data)
	v, err := t.frag.Decode(r)
	if err != nil {
		return nil, r.Position(), err
	}
	return v, r.Position(), nil
}

// Fold converts literal text to a native value.
func (t *TypeCodec) Fold(lit schema.Literal) (any, error) {
	return Fold(t.dt, lit)
}

// Coerce converts a Go value to the native representation.
func (t *TypeCodec) Coerce(v any) (any, error) {
	return Coerce(t.dt, v)
}
