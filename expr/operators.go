package expr

import (
	"math"

	"github.com/shopspring/decimal"

	"github.com/wippyai/tickcodec/codegen"
	"github.com/wippyai/tickcodec/errors"
	"github.com/wippyai/tickcodec/schema"
)

func (c *checker) negate(n *unaryNode) (*operand, error) {
	x, err := c.check(n.x)
	if err != nil {
		return nil, err
	}
	if !x.typed() && x.lit.kind == litNumber {
		text := x.lit.text
		if text[0] == '-' {
			text = text[1:]
		} else {
			text = "-" + text
		}
		lit := &literalNode{kind: litNumber, text: text, sp: n.sp}
		return &operand{lit: lit, sp: n.sp}, nil
	}
	if x, err = c.settle(x, nil); err != nil {
		return nil, err
	}
	dt := arithType(x.dt)
	if dt == nil {
		return nil, mismatch(n.sp, x.dt, "cannot negate %s", x.dt)
	}
	out, err := c.temp(dt, "neg")
	if err != nil {
		return nil, err
	}
	cls := classOf(dt)
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
				if v, err = convert(v, cls, "-", n.sp); err != nil {
					return err
				}
				switch r := v.(type) {
				case int64:
					v = -r
				case float64:
					v = -r
				case decimal.Decimal:
					v = r.Neg()
				}
			}
			return out.Store(fr, v)
		},
	}, nil
}

func (c *checker) arith(n *binaryNode) (*operand, error) {
	x, err := c.check(n.x)
	if err != nil {
		return nil, err
	}
	y, err := c.check(n.y)
	if err != nil {
		return nil, err
	}
	if x, y, err = c.unify(x, y, true); err != nil {
		return nil, err
	}
	dt := promote(x.dt, y.dt)
	if dt == nil {
		return nil, mismatch(n.opSpan, nil, "operator %s needs numbers, got %s and %s", n.op, x.dt, y.dt)
	}
	if !x.dt.Nullable && !y.dt.Nullable {
		dt = schema.NotNull(dt)
	}
	out, err := c.temp(dt, n.op)
	if err != nil {
		return nil, err
	}
	cls, op, sp := classOf(dt), n.op, n.sp
	return &operand{
		dt:  dt,
		out: out,
		sp:  n.sp,
		run: func(fr *codegen.Frame) error {
			if err := prepare(fr, x, y); err != nil {
				return err
			}
			a, b := x.out.Load(fr), y.out.Load(fr)
			if a == nil || b == nil {
				return out.Store(fr, nil)
			}
			v, err := arithmetic(op, cls, a, b, sp)
			if err != nil {
				return err
			}
			return out.Store(fr, v)
		},
	}, nil
}

// convert is toClass for evaluation: a value the class cannot hold, such
// as a uint64 above MaxInt64 in integer arithmetic, is out of range.
func convert(v any, cls numClass, op string, sp errors.Span) (any, error) {
	cv, ok := toClass(v, cls)
	if !ok {
		return nil, errors.New(errors.PhaseEvaluate, errors.KindOutOfRange).
			Span(sp).
			Value(v).
			Detail("operand of %s out of range", op).
			Build()
	}
	return cv, nil
}

// arithmetic applies op to two non-nil values in class cls. Integer and
// decimal division by zero fail; float division follows IEEE 754.
func arithmetic(op string, cls numClass, a, b any, sp errors.Span) (any, error) {
	av, err := convert(a, cls, op, sp)
	if err != nil {
		return nil, err
	}
	bv, err := convert(b, cls, op, sp)
	if err != nil {
		return nil, err
	}
	zero := func() error {
		return errors.New(errors.PhaseEvaluate, errors.KindOutOfRange).
			Span(sp).
			Value(b).
			Detail("division by zero").
			Build()
	}
	switch x := av.(type) {
	case int64:
		y := bv.(int64)
		switch op {
		case "+":
			return x + y, nil
		case "-":
			return x - y, nil
		case "*":
			return x * y, nil
		case "/":
			if y == 0 {
				return nil, zero()
			}
			return x / y, nil
		default:
			if y == 0 {
				return nil, zero()
			}
			return x % y, nil
		}
	case float64:
		y := bv.(float64)
		switch op {
		case "+":
			return x + y, nil
		case "-":
			return x - y, nil
		case "*":
			return x * y, nil
		case "/":
			return x / y, nil
		default:
			return math.Mod(x, y), nil
		}
	case decimal.Decimal:
		y := bv.(decimal.Decimal)
		switch op {
		case "+":
			return x.Add(y), nil
		case "-":
			return x.Sub(y), nil
		case "*":
			return x.Mul(y), nil
		case "/":
			if y.IsZero() {
				return nil, zero()
			}
			return x.Div(y), nil
		default:
			if y.IsZero() {
				return nil, zero()
			}
			return x.Mod(y), nil
		}
	}
	return nil, errors.Unsupported(errors.PhaseEvaluate, "arithmetic on "+op)
}

func (c *checker) compare(n *binaryNode) (*operand, error) {
	x, err := c.check(n.x)
	if err != nil {
		return nil, err
	}
	y, err := c.check(n.y)
	if err != nil {
		return nil, err
	}
	if x, y, err = c.unify(x, y, false); err != nil {
		return nil, err
	}
	cmp := comparerFor(x.dt, y.dt)
	if cmp == nil {
		return nil, mismatch(n.opSpan, nil, "cannot compare %s with %s", x.dt, y.dt)
	}
	op := n.op
	switch op {
	case "=":
		op = "=="
	case "<>":
		op = "!="
	}
	dt := schema.Of(schema.KindBool)
	dt.Nullable = x.dt.Nullable || y.dt.Nullable
	out, err := c.temp(dt, op)
	if err != nil {
		return nil, err
	}
	return &operand{
		dt:  dt,
		out: out,
		sp:  n.sp,
		run: func(fr *codegen.Frame) error {
			if err := prepare(fr, x, y); err != nil {
				return err
			}
			a, b := x.out.Load(fr), y.out.Load(fr)
			if a == nil || b == nil {
				return out.Store(fr, nil)
			}
			r, ordered := cmp(a, b)
			return out.Store(fr, compareResult(op, r, ordered))
		},
	}, nil
}

func compareResult(op string, r int, ordered bool) bool {
	if !ordered {
		return op == "!="
	}
	switch op {
	case "==":
		return r == 0
	case "!=":
		return r != 0
	case "<":
		return r < 0
	case "<=":
		return r <= 0
	case ">":
		return r > 0
	}
	return r >= 0
}

func (c *checker) logic(n *binaryNode) (*operand, error) {
	x, err := c.boolOperand(n.x)
	if err != nil {
		return nil, err
	}
	y, err := c.boolOperand(n.y)
	if err != nil {
		return nil, err
	}
	dt := schema.Of(schema.KindBool)
	dt.Nullable = x.dt.Nullable || y.dt.Nullable
	out, err := c.temp(dt, n.op)
	if err != nil {
		return nil, err
	}
	and := n.op == "and"
	return &operand{
		dt:  dt,
		out: out,
		sp:  n.sp,
		// Both sides always run so aggregates see every record.
		run: func(fr *codegen.Frame) error {
			if err := prepare(fr, x, y); err != nil {
				return err
			}
			return out.Store(fr, logic3(and, x.out.Load(fr), y.out.Load(fr)))
		},
	}, nil
}

// logic3 is SQL three-valued and/or, with nil as unknown.
func logic3(and bool, a, b any) any {
	if and {
		if a == false || b == false {
			return false
		}
		if a == nil || b == nil {
			return nil
		}
		return true
	}
	if a == true || b == true {
		return true
	}
	if a == nil || b == nil {
		return nil
	}
	return false
}
