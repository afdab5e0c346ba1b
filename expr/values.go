package expr

import (
	"bytes"
	"math"
	"math/big"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/wippyai/tickcodec/schema"
)

// numClass is the representation arithmetic runs in. Integers compute as
// int64, floats as float64 and decimals as decimal.Decimal.
type numClass int

const (
	numNone numClass = iota
	numInt
	numFloat
	numDecimal
)

func classOf(dt *schema.DataType) numClass {
	switch {
	case dt == nil:
		return numNone
	case dt.Kind.IsInteger():
		return numInt
	case dt.Kind.IsFloat():
		return numFloat
	case dt.Kind == schema.KindDecimal:
		return numDecimal
	}
	return numNone
}

// arithType is the nullable result type of arithmetic over dt.
func arithType(dt *schema.DataType) *schema.DataType {
	switch classOf(dt) {
	case numInt:
		return schema.Of(schema.KindInt64)
	case numFloat:
		return schema.Of(schema.KindFloat64)
	case numDecimal:
		return schema.DecimalOf(dt.Scale)
	}
	return nil
}

// promote returns the arithmetic type covering a and b, or nil when
// either is not numeric.
func promote(a, b *schema.DataType) *schema.DataType {
	ca, cb := classOf(a), classOf(b)
	switch {
	case ca == numNone || cb == numNone:
		return nil
	case ca == numDecimal || cb == numDecimal:
		var scale int32
		if ca == numDecimal {
			scale = a.Scale
		}
		if cb == numDecimal && b.Scale > scale {
			scale = b.Scale
		}
		return schema.DecimalOf(scale)
	case ca == numFloat || cb == numFloat:
		return schema.Of(schema.KindFloat64)
	}
	return schema.Of(schema.KindInt64)
}

func nullable(dt *schema.DataType) *schema.DataType {
	if dt.Nullable {
		return dt
	}
	c := *dt
	c.Nullable = true
	return &c
}

func toInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int8:
		return int64(n), true
	case int16:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case int:
		return int64(n), true
	case uint8:
		return int64(n), true
	case uint16:
		return int64(n), true
	case uint32:
		return int64(n), true
	case uint64:
		if n > math.MaxInt64 {
			return 0, false
		}
		return int64(n), true
	}
	return 0, false
}

func toFloat64(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case decimal.Decimal:
		return n.InexactFloat64(), true
	}
	if i, ok := toInt64(v); ok {
		return float64(i), true
	}
	return 0, false
}

func toDecimal(v any) (decimal.Decimal, bool) {
	switch n := v.(type) {
	case decimal.Decimal:
		return n, true
	case float64:
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return decimal.Decimal{}, false
		}
		return decimal.NewFromFloat(n), true
	case float32:
		return toDecimal(float64(n))
	case uint64:
		return decimal.NewFromBigInt(new(big.Int).SetUint64(n), 0), true
	}
	if i, ok := toInt64(v); ok {
		return decimal.NewFromInt(i), true
	}
	return decimal.Decimal{}, false
}

// toClass converts a non-nil numeric value to class c.
func toClass(v any, c numClass) (any, bool) {
	switch c {
	case numInt:
		return toInt64(v)
	case numFloat:
		return toFloat64(v)
	case numDecimal:
		return toDecimal(v)
	}
	return nil, false
}

// comparer orders two non-nil values. ok is false when they are
// unordered, as NaN is with everything.
type comparer func(a, b any) (c int, ok bool)

func cmpOrdered[T int64 | float64 | string | int32](a, b T) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func numericComparer(c numClass) comparer {
	return func(a, b any) (int, bool) {
		switch c {
		case numInt:
			x, ok1 := toInt64(a)
			y, ok2 := toInt64(b)
			if !ok1 || !ok2 {
				return floatCompare(a, b)
			}
			return cmpOrdered(x, y), true
		case numFloat:
			return floatCompare(a, b)
		default:
			x, ok1 := toDecimal(a)
			y, ok2 := toDecimal(b)
			if !ok1 || !ok2 {
				return floatCompare(a, b)
			}
			return x.Cmp(y), true
		}
	}
}

func floatCompare(a, b any) (int, bool) {
	x, _ := toFloat64(a)
	y, _ := toFloat64(b)
	if math.IsNaN(x) || math.IsNaN(y) {
		return 0, false
	}
	return cmpOrdered(x, y), true
}

// comparerFor returns how values of a and b compare, or nil when they
// cannot be compared.
func comparerFor(a, b *schema.DataType) comparer {
	if t := promote(a, b); t != nil {
		return numericComparer(classOf(t))
	}
	if a.Kind != b.Kind {
		return nil
	}
	switch a.Kind {
	case schema.KindString:
		return func(x, y any) (int, bool) {
			return strings.Compare(x.(string), y.(string)), true
		}
	case schema.KindBool:
		return func(x, y any) (int, bool) {
			bx, by := x.(bool), y.(bool)
			switch {
			case bx == by:
				return 0, true
			case by:
				return -1, true
			}
			return 1, true
		}
	case schema.KindTimestamp:
		return func(x, y any) (int, bool) {
			return x.(time.Time).Compare(y.(time.Time)), true
		}
	case schema.KindTimeOfDay:
		return func(x, y any) (int, bool) {
			return cmpOrdered(int32(x.(schema.TimeOfDay)), int32(y.(schema.TimeOfDay))), true
		}
	case schema.KindBinary:
		return func(x, y any) (int, bool) {
			return bytes.Compare(x.([]byte), y.([]byte)), true
		}
	case schema.KindEnum:
		if a.Enum != b.Enum || a.Enum == nil {
			return nil
		}
		enum := a.Enum
		return func(x, y any) (int, bool) {
			vx, _ := enum.Value(x.(string))
			vy, _ := enum.Value(y.(string))
			return cmpOrdered(vx, vy), true
		}
	}
	return nil
}
