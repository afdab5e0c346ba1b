package coerce

import "math"

// Int64 handles every Go integer type and integral floats.
func Int64(value any) (int64, bool) {
	switch v := value.(type) {
	case int64:
		return v, true
	case int8:
		return int64(v), true
	case int16:
		return int64(v), true
	case int32:
		return int64(v), true
	case int:
		return int64(v), true
	case uint8:
		return int64(v), true
	case uint16:
		return int64(v), true
	case uint32:
		return int64(v), true
	case uint:
		if uint64(v) <= math.MaxInt64 {
			return int64(v), true
		}
	case uint64:
		if v <= math.MaxInt64 {
			return int64(v), true
		}
	case float64:
		if v >= math.MinInt64 && v < math.MaxInt64 && v == math.Trunc(v) {
			return int64(v), true
		}
	case float32:
		f := float64(v)
		if f >= math.MinInt64 && f < math.MaxInt64 && f == math.Trunc(f) {
			return int64(f), true
		}
	}
	return 0, false
}

// Uint64 handles every non-negative Go integer and integral float.
func Uint64(value any) (uint64, bool) {
	switch v := value.(type) {
	case uint64:
		return v, true
	case uint8:
		return uint64(v), true
	case uint16:
		return uint64(v), true
	case uint32:
		return uint64(v), true
	case uint:
		return uint64(v), true
	case float64:
		if v >= 0 && v < math.MaxUint64 && v == math.Trunc(v) {
			return uint64(v), true
		}
	case float32:
		f := float64(v)
		if f >= 0 && f < math.MaxUint64 && f == math.Trunc(f) {
			return uint64(f), true
		}
	default:
		if i, ok := Int64(value); ok && i >= 0 {
			return uint64(i), true
		}
	}
	return 0, false
}

// Int narrows value to a signed integer of the given bit width.
func Int(value any, bits int) (int64, bool) {
	v, ok := Int64(value)
	if !ok {
		return 0, false
	}
	if bits < 64 {
		limit := int64(1) << (bits - 1)
		if v < -limit || v >= limit {
			return 0, false
		}
	}
	return v, true
}

// Uint narrows value to an unsigned integer of the given bit width.
func Uint(value any, bits int) (uint64, bool) {
	v, ok := Uint64(value)
	if !ok {
		return 0, false
	}
	if bits < 64 && v >= uint64(1)<<bits {
		return 0, false
	}
	return v, true
}

// Float64 handles Go floats and integers. Integers beyond 2^53 lose
// precision, as they would in any float field.
func Float64(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case uint64:
		return float64(v), true
	case uint:
		return float64(v), true
	default:
		if i, ok := Int64(value); ok {
			return float64(i), true
		}
	}
	return 0, false
}
