package codec

import (
	"math"
	"strconv"

	"github.com/wippyai/tickcodec/codec/internal/coerce"
	"github.com/wippyai/tickcodec/codec/internal/wire"
	"github.com/wippyai/tickcodec/errors"
	"github.com/wippyai/tickcodec/schema"
)

const (
	boolNull = 0xFF

	// Canonical quiet NaNs. The all-ones patterns are the null sentinels.
	nan32 = 0x7FC00000
	nan64 = 0x7FF8000000000000
)

type boolHandler struct{}

func (boolHandler) Kind() schema.Kind       { return schema.KindBool }
func (boolHandler) FixedWidth() (int, bool) { return 1, true }
func (boolHandler) NullValue() any          { return nil }

func (boolHandler) Fold(dt *schema.DataType, lit schema.Literal) (any, error) {
	b, err := strconv.ParseBool(lit.Text)
	if err != nil {
		return nil, foldMismatch(dt, lit, err)
	}
	return b, nil
}

func (boolHandler) Coerce(dt *schema.DataType, v any) (any, error) {
	b, ok := v.(bool)
	if !ok {
		return nil, mismatch(errors.PhaseEncode, dt, v)
	}
	return b, nil
}

func (h boolHandler) Fragment(dt *schema.DataType, env *Env) (Fragment, error) {
	path := env.Path
	return Fragment{
		Encode: func(w *wire.Writer, v any) error {
			b, ok := v.(bool)
			if !ok {
				return mismatch(errors.PhaseEncode, dt, v)
			}
			if b {
				w.Byte(1)
			} else {
				w.Byte(0)
			}
			return nil
		},
		EncodeNull: func(w *wire.Writer) { w.Byte(boolNull) },
		Decode: func(r *wire.Reader) (any, error) {
			b, err := r.ReadByte()
			if err != nil {
				return nil, decodeErr(path, err)
			}
			switch b {
			case 0:
				return false, nil
			case 1:
				return true, nil
			case boolNull:
				return nil, nil
			}
			return nil, errors.InvalidData(errors.PhaseDecode, path, "invalid bool byte "+strconv.Itoa(int(b)))
		},
	}, nil
}

// intHandler covers signed and unsigned integers of 8 to 64 bits. Signed
// kinds reserve the minimum value as null, unsigned kinds the maximum.
type intHandler struct {
	kind   schema.Kind
	bits   int
	signed bool
}

func (h intHandler) Kind() schema.Kind       { return h.kind }
func (h intHandler) FixedWidth() (int, bool) { return h.bits / 8, true }
func (h intHandler) NullValue() any          { return nil }

// sentinel returns the raw wire bits of null.
func (h intHandler) sentinel() uint64 {
	if h.signed {
		return uint64(1) << (h.bits - 1)
	}
	if h.bits == 64 {
		return math.MaxUint64
	}
	return uint64(1)<<h.bits - 1
}

func (h intHandler) Fold(dt *schema.DataType, lit schema.Literal) (any, error) {
	if h.signed {
		n, err := strconv.ParseInt(lit.Text, 0, 64)
		if err != nil {
			if ne, ok := err.(*strconv.NumError); ok && ne.Err == strconv.ErrRange {
				return nil, foldRange(dt, lit)
			}
			return nil, foldMismatch(dt, lit, err)
		}
		v, err := h.Coerce(dt, n)
		if err != nil {
			return nil, foldRange(dt, lit)
		}
		return v, nil
	}
	n, err := strconv.ParseUint(lit.Text, 0, 64)
	if err != nil {
		if ne, ok := err.(*strconv.NumError); ok && ne.Err == strconv.ErrRange {
			return nil, foldRange(dt, lit)
		}
		if _, serr := strconv.ParseInt(lit.Text, 0, 64); serr == nil {
			return nil, foldRange(dt, lit)
		}
		return nil, foldMismatch(dt, lit, err)
	}
	v, err := h.Coerce(dt, n)
	if err != nil {
		return nil, foldRange(dt, lit)
	}
	return v, nil
}

func (h intHandler) Coerce(dt *schema.DataType, v any) (any, error) {
	var bits uint64
	if h.signed {
		n, ok := coerce.Int(v, h.bits)
		if !ok {
			if _, isNum := coerce.Float64(v); isNum {
				return nil, encodeRange(dt, v)
			}
			return nil, mismatch(errors.PhaseEncode, dt, v)
		}
		bits = uint64(n)
		if h.bits < 64 {
			bits &= uint64(1)<<h.bits - 1
		}
	} else {
		n, ok := coerce.Uint(v, h.bits)
		if !ok {
			if _, isNum := coerce.Float64(v); isNum {
				return nil, encodeRange(dt, v)
			}
			return nil, mismatch(errors.PhaseEncode, dt, v)
		}
		bits = n
	}
	if bits == h.sentinel() {
		return nil, encodeRange(dt, v)
	}
	return h.native(bits), nil
}

// native converts raw wire bits to the kind's Go type.
func (h intHandler) native(bits uint64) any {
	switch h.kind {
	case schema.KindInt8:
		return int8(bits)
	case schema.KindInt16:
		return int16(bits)
	case schema.KindInt32:
		return int32(bits)
	case schema.KindInt64:
		return int64(bits)
	case schema.KindUInt8:
		return uint8(bits)
	case schema.KindUInt16:
		return uint16(bits)
	case schema.KindUInt32:
		return uint32(bits)
	default:
		return bits
	}
}

// raw converts a native value back to wire bits.
func (h intHandler) raw(v any) uint64 {
	switch n := v.(type) {
	case int8:
		return uint64(uint8(n))
	case int16:
		return uint64(uint16(n))
	case int32:
		return uint64(uint32(n))
	case int64:
		return uint64(n)
	case uint8:
		return uint64(n)
	case uint16:
		return uint64(n)
	case uint32:
		return uint64(n)
	case uint64:
		return n
	}
	return h.sentinel()
}

func (h intHandler) Fragment(dt *schema.DataType, env *Env) (Fragment, error) {
	path := env.Path
	null := h.sentinel()
	put := func(w *wire.Writer, bits uint64) {
		switch h.bits {
		case 8:
			w.Byte(byte(bits))
		case 16:
			w.U16(uint16(bits))
		case 32:
			w.U32(uint32(bits))
		default:
			w.U64(bits)
		}
	}
	return Fragment{
		Encode: func(w *wire.Writer, v any) error {
			n, err := h.Coerce(dt, v)
			if err != nil {
				return err
			}
			put(w, h.raw(n))
			return nil
		},
		EncodeNull: func(w *wire.Writer) { put(w, null) },
		Decode: func(r *wire.Reader) (any, error) {
			var bits uint64
			switch h.bits {
			case 8:
				b, err := r.ReadByte()
				if err != nil {
					return nil, decodeErr(path, err)
				}
				bits = uint64(b)
			case 16:
				u, err := r.U16()
				if err != nil {
					return nil, decodeErr(path, err)
				}
				bits = uint64(u)
			case 32:
				u, err := r.U32()
				if err != nil {
					return nil, decodeErr(path, err)
				}
				bits = uint64(u)
			default:
				u, err := r.U64()
				if err != nil {
					return nil, decodeErr(path, err)
				}
				bits = u
			}
			if bits == null {
				return nil, nil
			}
			return h.native(bits), nil
		},
	}, nil
}

// floatHandler writes IEEE-754 bits. NaN is canonicalized so that the
// all-ones null pattern never appears for a present value.
type floatHandler struct {
	kind schema.Kind
	bits int
}

func (h floatHandler) Kind() schema.Kind       { return h.kind }
func (h floatHandler) FixedWidth() (int, bool) { return h.bits / 8, true }
func (h floatHandler) NullValue() any          { return nil }

func (h floatHandler) Fold(dt *schema.DataType, lit schema.Literal) (any, error) {
	f, err := strconv.ParseFloat(lit.Text, h.bits)
	if err != nil {
		if ne, ok := err.(*strconv.NumError); ok && ne.Err == strconv.ErrRange {
			return nil, foldRange(dt, lit)
		}
		return nil, foldMismatch(dt, lit, err)
	}
	return h.Coerce(dt, f)
}

func (h floatHandler) Coerce(dt *schema.DataType, v any) (any, error) {
	f, ok := coerce.Float64(v)
	if !ok {
		return nil, mismatch(errors.PhaseEncode, dt, v)
	}
	if h.bits == 32 {
		if !math.IsInf(f, 0) && !math.IsNaN(f) && math.Abs(f) > math.MaxFloat32 {
			return nil, encodeRange(dt, v)
		}
		return float32(f), nil
	}
	return f, nil
}

func (h floatHandler) Fragment(dt *schema.DataType, env *Env) (Fragment, error) {
	path := env.Path
	if h.bits == 32 {
		return Fragment{
			Encode: func(w *wire.Writer, v any) error {
				n, err := h.Coerce(dt, v)
				if err != nil {
					return err
				}
				f := n.(float32)
				if math.IsNaN(float64(f)) {
					w.U32(nan32)
				} else {
					w.U32(math.Float32bits(f))
				}
				return nil
			},
			EncodeNull: func(w *wire.Writer) { w.U32(math.MaxUint32) },
			Decode: func(r *wire.Reader) (any, error) {
				u, err := r.U32()
				if err != nil {
					return nil, decodeErr(path, err)
				}
				if u == math.MaxUint32 {
					return nil, nil
				}
				return math.Float32frombits(u), nil
			},
		}, nil
	}
	return Fragment{
		Encode: func(w *wire.Writer, v any) error {
			n, err := h.Coerce(dt, v)
			if err != nil {
				return err
			}
			f := n.(float64)
			if math.IsNaN(f) {
				w.U64(nan64)
			} else {
				w.U64(math.Float64bits(f))
			}
			return nil
		},
		EncodeNull: func(w *wire.Writer) { w.U64(math.MaxUint64) },
		Decode: func(r *wire.Reader) (any, error) {
			u, err := r.U64()
			if err != nil {
				return nil, decodeErr(path, err)
			}
			if u == math.MaxUint64 {
				return nil, nil
			}
			return math.Float64frombits(u), nil
		},
	}, nil
}
