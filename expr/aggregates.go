package expr

import (
	"github.com/shopspring/decimal"

	"github.com/wippyai/tickcodec/codegen"
	"github.com/wippyai/tickcodec/errors"
	"github.com/wippyai/tickcodec/schema"
)

// Aggregates keep their running state in persistent variables, so it
// survives from one Evaluate call to the next until Instance.Reset.
// Null inputs are skipped.

func (c *checker) aggregate(n *callNode) (*operand, error) {
	if c.inAggregate {
		return nil, diag(errors.KindUnsupported, n.nameSpan, "aggregate %s inside another aggregate", n.name).Build()
	}
	if n.name == "count" {
		if err := arity(n, 0, 1); err != nil {
			return nil, err
		}
	} else if err := arity(n, 1, 1); err != nil {
		return nil, err
	}

	var x *operand
	if len(n.args) == 1 {
		c.inAggregate = true
		o, err := c.checkTyped(n.args[0])
		c.inAggregate = false
		if err != nil {
			return nil, err
		}
		x = o
	}

	var (
		dt   *schema.DataType
		step func(fr *codegen.Frame, v any) (any, error)
		err  error
	)
	switch n.name {
	case "count":
		dt, step, err = c.count(x)
	case "sum":
		dt, step, err = c.sum(x)
	case "avg":
		dt, step, err = c.avg(x)
	case "min", "max":
		dt, step, err = c.extreme(x, n.name == "min")
	case "first":
		dt, step, err = c.first(x)
	case "last":
		dt, step, err = c.last(x)
	}
	if err != nil {
		return nil, err
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
			var v any
			if x != nil {
				if err := prepare(fr, x); err != nil {
					return err
				}
				v = x.out.Load(fr)
			}
			r, err := step(fr, v)
			if err != nil {
				return err
			}
			return out.Store(fr, r)
		},
	}, nil
}

type stepFunc = func(fr *codegen.Frame, v any) (any, error)

func (c *checker) count(x *operand) (*schema.DataType, stepFunc, error) {
	dt := schema.NotNull(schema.Of(schema.KindInt64))
	n, err := c.state.AddVar("count", false, dt, int64(0))
	if err != nil {
		return nil, nil, err
	}
	return dt, func(fr *codegen.Frame, v any) (any, error) {
		total := n.Load(fr).(int64)
		if x == nil || v != nil {
			total++
			if err := n.Store(fr, total); err != nil {
				return nil, err
			}
		}
		return total, nil
	}, nil
}

func (c *checker) sum(x *operand) (*schema.DataType, stepFunc, error) {
	dt := arithType(x.dt)
	if dt == nil {
		return nil, nil, mismatch(x.sp, x.dt, "sum needs a number, got %s", x.dt)
	}
	acc, err := c.state.AddVar("sum", false, dt, nil)
	if err != nil {
		return nil, nil, err
	}
	cls, sp := classOf(dt), x.sp
	return dt, func(fr *codegen.Frame, v any) (any, error) {
		cur := acc.Load(fr)
		if v == nil {
			return cur, nil
		}
		if cur == nil {
			cv, err := convert(v, cls, "sum", sp)
			if err != nil {
				return nil, err
			}
			return cv, acc.Store(fr, cv)
		}
		next, err := arithmetic("+", cls, cur, v, sp)
		if err != nil {
			return nil, err
		}
		return next, acc.Store(fr, next)
	}, nil
}

// avg is float64 for binary numbers and keeps the scale for decimals.
func (c *checker) avg(x *operand) (*schema.DataType, stepFunc, error) {
	cls := classOf(x.dt)
	if cls == numNone {
		return nil, nil, mismatch(x.sp, x.dt, "avg needs a number, got %s", x.dt)
	}
	dt := schema.Of(schema.KindFloat64)
	if cls == numDecimal {
		dt = schema.DecimalOf(x.dt.Scale)
	} else {
		cls = numFloat
	}
	total, err := c.state.AddVar("avg sum", false, schema.NotNull(dt), zeroOf(cls))
	if err != nil {
		return nil, nil, err
	}
	n, err := c.state.AddVar("avg count", false, schema.NotNull(schema.Of(schema.KindInt64)), int64(0))
	if err != nil {
		return nil, nil, err
	}
	scale, sp := dt.Scale, x.sp
	return dt, func(fr *codegen.Frame, v any) (any, error) {
		count := n.Load(fr).(int64)
		sum := total.Load(fr)
		if v != nil {
			next, err := arithmetic("+", cls, sum, v, sp)
			if err != nil {
				return nil, err
			}
			count++
			if err := total.Store(fr, next); err != nil {
				return nil, err
			}
			if err := n.Store(fr, count); err != nil {
				return nil, err
			}
			sum = next
		}
		if count == 0 {
			return nil, nil
		}
		if d, ok := sum.(decimal.Decimal); ok {
			return d.DivRound(decimal.NewFromInt(count), scale), nil
		}
		return sum.(float64) / float64(count), nil
	}, nil
}

func zeroOf(cls numClass) any {
	if cls == numDecimal {
		return decimal.Zero
	}
	return float64(0)
}

func (c *checker) extreme(x *operand, lowest bool) (*schema.DataType, stepFunc, error) {
	name := "max"
	if lowest {
		name = "min"
	}
	cmp := comparerFor(x.dt, x.dt)
	if cmp == nil {
		return nil, nil, mismatch(x.sp, x.dt, "%s needs ordered values, got %s", name, x.dt)
	}
	dt := nullable(x.dt)
	cur, err := c.state.AddVar(name, false, dt, nil)
	if err != nil {
		return nil, nil, err
	}
	return dt, func(fr *codegen.Frame, v any) (any, error) {
		best := cur.Load(fr)
		if v == nil {
			return best, nil
		}
		if best != nil {
			r, ok := cmp(v, best)
			if !ok || lowest && r >= 0 || !lowest && r <= 0 {
				return best, nil
			}
		}
		return v, cur.Store(fr, v)
	}, nil
}

// first keeps its value in a final variable: the first non-null input is
// its only write until Reset.
func (c *checker) first(x *operand) (*schema.DataType, stepFunc, error) {
	dt := nullable(x.dt)
	val, err := c.state.AddVar("first", true, dt, nil)
	if err != nil {
		return nil, nil, err
	}
	seen, err := c.state.AddVar("first seen", false, schema.NotNull(schema.Of(schema.KindBool)), false)
	if err != nil {
		return nil, nil, err
	}
	return dt, func(fr *codegen.Frame, v any) (any, error) {
		if v != nil && !seen.Load(fr).(bool) {
			if err := val.Store(fr, v); err != nil {
				return nil, err
			}
			if err := seen.Store(fr, true); err != nil {
				return nil, err
			}
		}
		return val.Load(fr), nil
	}, nil
}

func (c *checker) last(x *operand) (*schema.DataType, stepFunc, error) {
	dt := nullable(x.dt)
	val, err := c.state.AddVar("last", false, dt, nil)
	if err != nil {
		return nil, nil, err
	}
	return dt, func(fr *codegen.Frame, v any) (any, error) {
		if v != nil {
			if err := val.Store(fr, v); err != nil {
				return nil, err
			}
		}
		return val.Load(fr), nil
	}, nil
}
