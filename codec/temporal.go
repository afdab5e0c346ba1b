package codec

import (
	"math"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/wippyai/tickcodec/codec/internal/coerce"
	"github.com/wippyai/tickcodec/codec/internal/wire"
	"github.com/wippyai/tickcodec/errors"
	"github.com/wippyai/tickcodec/schema"
)

// decimalHandler stores a decimal as an int64 count of 10^-scale units.
type decimalHandler struct{}

func (decimalHandler) Kind() schema.Kind       { return schema.KindDecimal }
func (decimalHandler) FixedWidth() (int, bool) { return 8, true }
func (decimalHandler) NullValue() any          { return nil }

// unscaled rounds d to scale places (banker's rounding) and returns the
// unscaled integer, or false when it does not fit or hits the sentinel.
func unscaled(d decimal.Decimal, scale int32) (int64, bool) {
	bi := d.Shift(scale).RoundBank(0).BigInt()
	if !bi.IsInt64() {
		return 0, false
	}
	u := bi.Int64()
	if u == math.MinInt64 {
		return 0, false
	}
	return u, true
}

func (h decimalHandler) Fold(dt *schema.DataType, lit schema.Literal) (any, error) {
	d, err := decimal.NewFromString(lit.Text)
	if err != nil {
		return nil, foldMismatch(dt, lit, err)
	}
	u, ok := unscaled(d, dt.Scale)
	if !ok {
		return nil, foldRange(dt, lit)
	}
	return decimal.New(u, -dt.Scale), nil
}

func (h decimalHandler) Coerce(dt *schema.DataType, v any) (any, error) {
	var d decimal.Decimal
	switch x := v.(type) {
	case decimal.Decimal:
		d = x
	case *decimal.Decimal:
		if x == nil {
			return nil, mismatch(errors.PhaseEncode, dt, v)
		}
		d = *x
	case string:
		var err error
		if d, err = decimal.NewFromString(x); err != nil {
			return nil, mismatch(errors.PhaseEncode, dt, v)
		}
	case float64, float32:
		f, _ := coerce.Float64(x)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, encodeRange(dt, v)
		}
		d = decimal.NewFromFloat(f)
	default:
		n, ok := coerce.Int64(v)
		if !ok {
			return nil, mismatch(errors.PhaseEncode, dt, v)
		}
		d = decimal.NewFromInt(n)
	}
	u, ok := unscaled(d, dt.Scale)
	if !ok {
		return nil, encodeRange(dt, v)
	}
	return decimal.New(u, -dt.Scale), nil
}

func (h decimalHandler) Fragment(dt *schema.DataType, env *Env) (Fragment, error) {
	path := env.Path
	scale := dt.Scale
	return Fragment{
		Encode: func(w *wire.Writer, v any) error {
			n, err := h.Coerce(dt, v)
			if err != nil {
				return err
			}
			u, _ := unscaled(n.(decimal.Decimal), scale)
			w.U64(uint64(u))
			return nil
		},
		EncodeNull: func(w *wire.Writer) { w.U64(1 << 63) },
		Decode: func(r *wire.Reader) (any, error) {
			u, err := r.U64()
			if err != nil {
				return nil, decodeErr(path, err)
			}
			if int64(u) == math.MinInt64 {
				return nil, nil
			}
			return decimal.New(int64(u), -scale), nil
		},
	}, nil
}

var (
	minTimestamp = time.Unix(0, math.MinInt64+1).UTC()
	maxTimestamp = time.Unix(0, math.MaxInt64).UTC()
)

// timestampHandler stores nanoseconds since the Unix epoch.
type timestampHandler struct{}

func (timestampHandler) Kind() schema.Kind       { return schema.KindTimestamp }
func (timestampHandler) FixedWidth() (int, bool) { return 8, true }
func (timestampHandler) NullValue() any          { return nil }

func (h timestampHandler) Fold(dt *schema.DataType, lit schema.Literal) (any, error) {
	if n, err := strconv.ParseInt(lit.Text, 10, 64); err == nil {
		if n == math.MinInt64 {
			return nil, foldRange(dt, lit)
		}
		return time.Unix(0, n).UTC(), nil
	}
	t, err := time.Parse(time.RFC3339Nano, lit.Text)
	if err != nil {
		return nil, foldMismatch(dt, lit, err)
	}
	if t.Before(minTimestamp) || t.After(maxTimestamp) {
		return nil, foldRange(dt, lit)
	}
	return t.UTC(), nil
}

func (h timestampHandler) Coerce(dt *schema.DataType, v any) (any, error) {
	var t time.Time
	switch x := v.(type) {
	case time.Time:
		t = x
	case string:
		var err error
		if t, err = time.Parse(time.RFC3339Nano, x); err != nil {
			return nil, mismatch(errors.PhaseEncode, dt, v)
		}
	default:
		n, ok := coerce.Int64(v)
		if !ok {
			return nil, mismatch(errors.PhaseEncode, dt, v)
		}
		if n == math.MinInt64 {
			return nil, encodeRange(dt, v)
		}
		t = time.Unix(0, n)
	}
	if t.Before(minTimestamp) || t.After(maxTimestamp) {
		return nil, encodeRange(dt, v)
	}
	return t.Round(0).UTC(), nil
}

func (h timestampHandler) Fragment(dt *schema.DataType, env *Env) (Fragment, error) {
	path := env.Path
	return Fragment{
		Encode: func(w *wire.Writer, v any) error {
			t, err := h.Coerce(dt, v)
			if err != nil {
				return err
			}
			w.U64(uint64(t.(time.Time).UnixNano()))
			return nil
		},
		EncodeNull: func(w *wire.Writer) { w.U64(1 << 63) },
		Decode: func(r *wire.Reader) (any, error) {
			u, err := r.U64()
			if err != nil {
				return nil, decodeErr(path, err)
			}
			if int64(u) == math.MinInt64 {
				return nil, nil
			}
			return time.Unix(0, int64(u)).UTC(), nil
		},
	}, nil
}

// timeOfDayHandler stores minutes since midnight as an int32.
type timeOfDayHandler struct{}

func (timeOfDayHandler) Kind() schema.Kind       { return schema.KindTimeOfDay }
func (timeOfDayHandler) FixedWidth() (int, bool) { return 4, true }
func (timeOfDayHandler) NullValue() any          { return nil }

func (h timeOfDayHandler) Fold(dt *schema.DataType, lit schema.Literal) (any, error) {
	n, err := schema.ParseMinutes(lit.Text)
	if err != nil {
		return nil, foldMismatch(dt, lit, err)
	}
	if n < 0 || n >= schema.MinutesPerDay {
		return nil, foldRange(dt, lit)
	}
	return schema.TimeOfDay(n), nil
}

func (h timeOfDayHandler) Coerce(dt *schema.DataType, v any) (any, error) {
	var n int64
	switch x := v.(type) {
	case schema.TimeOfDay:
		n = int64(x)
	case string:
		var err error
		if n, err = schema.ParseMinutes(x); err != nil {
			return nil, mismatch(errors.PhaseEncode, dt, v)
		}
	default:
		var ok bool
		if n, ok = coerce.Int64(v); !ok {
			return nil, mismatch(errors.PhaseEncode, dt, v)
		}
	}
	if n < 0 || n >= schema.MinutesPerDay {
		return nil, encodeRange(dt, v)
	}
	return schema.TimeOfDay(n), nil
}

func (h timeOfDayHandler) Fragment(dt *schema.DataType, env *Env) (Fragment, error) {
	path := env.Path
	return Fragment{
		Encode: func(w *wire.Writer, v any) error {
			t, err := h.Coerce(dt, v)
			if err != nil {
				return err
			}
			w.U32(uint32(t.(schema.TimeOfDay)))
			return nil
		},
		EncodeNull: func(w *wire.Writer) { w.U32(math.MaxUint32) },
		Decode: func(r *wire.Reader) (any, error) {
			u, err := r.U32()
			if err != nil {
				return nil, decodeErr(path, err)
			}
			n := int32(u)
			if n == schema.NullTimeOfDay {
				return nil, nil
			}
			t := schema.TimeOfDay(n)
			if !t.Valid() {
				return nil, errors.InvalidData(errors.PhaseDecode, path, "time of day out of range: "+strconv.Itoa(int(n)))
			}
			return t, nil
		},
	}, nil
}

// enumHandler stores the int32 value of a symbol. Symbol values are
// non-negative, so -1 is free for null.
type enumHandler struct{}

func (enumHandler) Kind() schema.Kind       { return schema.KindEnum }
func (enumHandler) FixedWidth() (int, bool) { return 4, true }
func (enumHandler) NullValue() any          { return nil }

func (h enumHandler) Fold(dt *schema.DataType, lit schema.Literal) (any, error) {
	if dt.Enum == nil {
		return nil, errors.UnknownType(errors.PhaseFold, dt.Span, dt.String())
	}
	if _, ok := dt.Enum.Value(lit.Text); ok {
		return lit.Text, nil
	}
	if n, err := strconv.ParseInt(lit.Text, 10, 32); err == nil {
		if sym, ok := dt.Enum.Symbol(int32(n)); ok {
			return sym, nil
		}
	}
	return nil, foldRange(dt, lit)
}

func (h enumHandler) Coerce(dt *schema.DataType, v any) (any, error) {
	if dt.Enum == nil {
		return nil, errors.UnknownType(errors.PhaseEncode, dt.Span, dt.String())
	}
	if s, ok := v.(string); ok {
		if _, found := dt.Enum.Value(s); !found {
			return nil, encodeRange(dt, v)
		}
		return s, nil
	}
	n, ok := coerce.Int(v, 32)
	if !ok {
		return nil, mismatch(errors.PhaseEncode, dt, v)
	}
	sym, found := dt.Enum.Symbol(int32(n))
	if !found {
		return nil, encodeRange(dt, v)
	}
	return sym, nil
}

func (h enumHandler) Fragment(dt *schema.DataType, env *Env) (Fragment, error) {
	if dt.Enum == nil {
		return Fragment{}, errors.UnknownType(errors.PhaseCompile, env.Span, dt.String())
	}
	path := env.Path
	enum := dt.Enum
	return Fragment{
		Encode: func(w *wire.Writer, v any) error {
			s, err := h.Coerce(dt, v)
			if err != nil {
				return err
			}
			n, _ := enum.Value(s.(string))
			w.U32(uint32(n))
			return nil
		},
		EncodeNull: func(w *wire.Writer) { w.U32(math.MaxUint32) },
		Decode: func(r *wire.Reader) (any, error) {
			u, err := r.U32()
			if err != nil {
				return nil, decodeErr(path, err)
			}
			n := int32(u)
			if n == -1 {
				return nil, nil
			}
			sym, ok := enum.Symbol(n)
			if !ok {
				return nil, errors.InvalidData(errors.PhaseDecode, path, "unknown "+enum.Name+" value "+strconv.Itoa(int(n)))
			}
			return sym, nil
		},
	}, nil
}
