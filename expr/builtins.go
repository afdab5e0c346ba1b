package expr

import (
	"math"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"github.com/wippyai/tickcodec/codegen"
	"github.com/wippyai/tickcodec/errors"
	"github.com/wippyai/tickcodec/schema"
)

func (c *checker) call(n *callNode) (*operand, error) {
	switch n.name {
	case "abs":
		return c.abs(n)
	case "coalesce":
		return c.coalesce(n)
	case "len":
		return c.length(n)
	case "hour", "minute":
		return c.clock(n)
	case "count", "sum", "avg", "min", "max", "first", "last":
		return c.aggregate(n)
	}
	return nil, diag(errors.KindUnsupported, n.nameSpan, "unknown function %q", n.name).Build()
}

func arity(n *callNode, min, max int) error {
	if len(n.args) >= min && (max < 0 || len(n.args) <= max) {
		return nil
	}
	want := "at least one argument"
	switch {
	case min == max && min == 1:
		want = "one argument"
	case min == max:
		want = "no arguments"
	case max == 1:
		want = "at most one argument"
	}
	return diag(errors.KindSyntax, n.sp, "%s takes %s, got %d", n.name, want, len(n.args)).Build()
}

// unary builds a stateless one-argument function. fn sees non-nil values
// only; null in gives null out.
func (c *checker) unary(n *callNode, x *operand, dt *schema.DataType, fn func(v any) (any, error)) (*operand, error) {
	dt = nullable(dt)
	if !x.dt.Nullable {
		dt = schema.NotNull(dt)
	}
	out, err := c.temp(dt, n.name)
	if err != nil {
		return nil, err
	}
	return &operand{
		dt:  dt,
		out: out,
		sp:  n.sp,
		run: func(fr *codegen.Frame) error {
			if err := prepare(fr, x); err != nil {
				return err
			}
			v := x.out.Load(fr)
			if v != nil {
				var err error
				if v, err = fn(v); err != nil {
					return err
				}
			}
			return out.Store(fr, v)
		},
	}, nil
}

func (c *checker) abs(n *callNode) (*operand, error) {
	if err := arity(n, 1, 1); err != nil {
		return nil, err
	}
	x, err := c.checkTyped(n.args[0])
	if err != nil {
		return nil, err
	}
	dt := arithType(x.dt)
	if dt == nil {
		return nil, mismatch(x.sp, x.dt, "abs needs a number, got %s", x.dt)
	}
	cls := classOf(dt)
	return c.unary(n, x, dt, func(v any) (any, error) {
		v, err := convert(v, cls, n.name, n.sp)
		if err != nil {
			return nil, err
		}
		switch r := v.(type) {
		case int64:
			if r < 0 {
				return -r, nil
			}
		case float64:
			return math.Abs(r), nil
		case decimal.Decimal:
			return r.Abs(), nil
		}
		return v, nil
	})
}

func (c *checker) length(n *callNode) (*operand, error) {
	if err := arity(n, 1, 1); err != nil {
		return nil, err
	}
	x, err := c.checkTyped(n.args[0])
	if err != nil {
		return nil, err
	}
	switch x.dt.Kind {
	case schema.KindString, schema.KindBinary, schema.KindArray:
	default:
		return nil, mismatch(x.sp, x.dt, "len needs a string, binary or array, got %s", x.dt)
	}
	return c.unary(n, x, schema.Of(schema.KindInt32), func(v any) (any, error) {
		switch s := v.(type) {
		case string:
			return int32(utf8.RuneCountInString(s)), nil
		case []byte:
			return int32(len(s)), nil
		case []any:
			return int32(len(s)), nil
		}
		return nil, nil
	})
}

// clock implements hour() and minute() over time-of-day and timestamp
// values. Timestamps are read in UTC.
func (c *checker) clock(n *callNode) (*operand, error) {
	if err := arity(n, 1, 1); err != nil {
		return nil, err
	}
	x, err := c.checkTyped(n.args[0])
	if err != nil {
		return nil, err
	}
	if x.dt.Kind != schema.KindTimeOfDay && x.dt.Kind != schema.KindTimestamp {
		return nil, mismatch(x.sp, x.dt, "%s needs a time_of_day or timestamp, got %s", n.name, x.dt)
	}
	hour := n.name == "hour"
	return c.unary(n, x, schema.Of(schema.KindInt32), func(v any) (any, error) {
		var h, m int
		switch t := v.(type) {
		case schema.TimeOfDay:
			h, m = t.Hour(), t.Minute()
		case time.Time:
			t = t.UTC()
			h, m = t.Hour(), t.Minute()
		}
		if hour {
			return int32(h), nil
		}
		return int32(m), nil
	})
}

// coalesce returns its first non-null argument. Every argument is
// evaluated.
func (c *checker) coalesce(n *callNode) (*operand, error) {
	if err := arity(n, 1, -1); err != nil {
		return nil, err
	}
	ops := make([]*operand, len(n.args))
	var target *schema.DataType
	for i, a := range n.args {
		o, err := c.check(a)
		if err != nil {
			return nil, err
		}
		if target == nil && o.typed() {
			target = o.dt
		}
		ops[i] = o
	}
	for i, o := range ops {
		var err error
		switch {
		case o.typed():
		case target == nil:
			o, err = c.settle(o, nil)
			target = o.dt
		default:
			o, err = c.settle(o, literalTarget(o.lit, target, false))
		}
		if err != nil {
			return nil, err
		}
		ops[i] = o
	}

	dt := ops[0].dt
	for _, o := range ops[1:] {
		switch {
		case sameType(dt, o.dt):
		case promote(dt, o.dt) != nil:
			dt = promote(dt, o.dt)
		default:
			return nil, mismatch(o.sp, dt, "coalesce mixes %s and %s", dt, o.dt)
		}
	}
	dt = nullable(dt)
	widen := make([]bool, len(ops))
	for i, o := range ops {
		if !o.dt.Nullable {
			dt = schema.NotNull(dt)
		}
		widen[i] = !sameType(dt, o.dt)
	}
	out, err := c.temp(dt, n.name)
	if err != nil {
		return nil, err
	}
	cls := classOf(dt)
	return &operand{
		dt:  dt,
		out: out,
		sp:  n.sp,
		run: func(fr *codegen.Frame) error {
			if err := prepare(fr, ops...); err != nil {
				return err
			}
			for i, o := range ops {
				v := o.out.Load(fr)
				if v == nil {
					continue
				}
				if widen[i] {
					var err error
					if v, err = convert(v, cls, n.name, n.sp); err != nil {
						return err
					}
				}
				return out.Store(fr, v)
			}
			return out.Store(fr, nil)
		},
	}, nil
}
