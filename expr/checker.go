package expr

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/wippyai/tickcodec/codec"
	"github.com/wippyai/tickcodec/codegen"
	"github.com/wippyai/tickcodec/errors"
	"github.com/wippyai/tickcodec/schema"
)

type evalFunc func(f *codegen.Frame) error

// operand is a checked subexpression. A typed operand leaves its value in
// out after run; constants have no run. An untyped operand is a literal
// that waits for its context to pick a type.
type operand struct {
	dt  *schema.DataType
	out *codegen.Variable
	run evalFunc
	lit *literalNode
	sp  errors.Span
}

func (o *operand) typed() bool {
	return o.dt != nil
}

// prepare runs the operands in order.
func prepare(f *codegen.Frame, ops ...*operand) error {
	for _, o := range ops {
		if o.run == nil {
			continue
		}
		if err := o.run(f); err != nil {
			return err
		}
	}
	return nil
}

// checker types a syntax tree and lowers it to closures over variables.
// It belongs to one Compile call.
type checker struct {
	class       *schema.RecordClass
	set         *schema.Set
	codecs      *codec.Compiler
	locals      *codegen.Allocator
	state       *codegen.Allocator
	log         *zap.Logger
	inAggregate bool
}

func diag(kind errors.Kind, sp errors.Span, format string, args ...any) *errors.Builder {
	return errors.New(errors.PhaseCompile, kind).Span(sp).Detail(format, args...)
}

func mismatch(sp errors.Span, dt *schema.DataType, format string, args ...any) error {
	b := diag(errors.KindTypeMismatch, sp, format, args...)
	if dt != nil {
		b = b.DataType(dt.String())
	}
	return b.Build()
}

func (c *checker) temp(dt *schema.DataType, comment string) (*codegen.Variable, error) {
	return c.locals.AddVar(comment, false, dt, nil)
}

// constant holds v in a final transient variable, so every evaluation
// starts with it in place.
func (c *checker) constant(dt *schema.DataType, v any, sp errors.Span) (*operand, error) {
	out, err := c.locals.AddVar("constant", true, dt, v)
	if err != nil {
		return nil, err
	}
	return &operand{dt: dt, out: out, sp: sp}, nil
}

func (c *checker) check(n node) (*operand, error) {
	switch n := n.(type) {
	case *literalNode:
		return &operand{lit: n, sp: n.sp}, nil
	case *identNode:
		return c.field(n)
	case *memberNode:
		return c.member(n)
	case *unaryNode:
		if n.op == "-" {
			return c.negate(n)
		}
		return c.not(n)
	case *binaryNode:
		switch n.op {
		case "and", "or":
			return c.logic(n)
		case "+", "-", "*", "/", "%":
			return c.arith(n)
		}
		return c.compare(n)
	case *isNullNode:
		return c.isNull(n)
	case *callNode:
		return c.call(n)
	case *newNode:
		return c.newRecord(n)
	}
	return nil, errors.Unsupported(errors.PhaseCompile, fmt.Sprintf("expression node %T", n))
}

// checkTyped checks n and gives an untyped literal its default type.
func (c *checker) checkTyped(n node) (*operand, error) {
	o, err := c.check(n)
	if err != nil {
		return nil, err
	}
	return c.settle(o, nil)
}

// settle folds an untyped literal against target, or against the
// literal's default type when target is nil. Typed operands pass through.
func (c *checker) settle(o *operand, target *schema.DataType) (*operand, error) {
	if o.typed() {
		return o, nil
	}
	if target == nil {
		target = defaultType(o.lit)
	}
	if !literalFits(o.lit.kind, target) {
		return nil, mismatch(o.sp, target, "%s literal %s cannot be %s", o.lit.kind, o.lit.text, target)
	}
	v, err := codec.Fold(target, schema.Literal{
		Text:   o.lit.text,
		Quoted: o.lit.kind == litString,
		Span:   o.sp,
	})
	if err != nil {
		return nil, err
	}
	dt := nullable(target)
	if v != nil {
		dt = schema.NotNull(target)
	}
	return c.constant(dt, v, o.sp)
}

func (k literalKind) String() string {
	switch k {
	case litNumber:
		return "number"
	case litString:
		return "string"
	case litBool:
		return "boolean"
	}
	return "null"
}

func integral(text string) bool {
	return !strings.ContainsAny(text, ".eE")
}

func defaultType(lit *literalNode) *schema.DataType {
	switch lit.kind {
	case litNumber:
		if integral(lit.text) {
			return schema.Of(schema.KindInt64)
		}
		return schema.Of(schema.KindFloat64)
	case litString:
		return schema.Of(schema.KindString)
	}
	return schema.Of(schema.KindBool)
}

func literalFits(k literalKind, dt *schema.DataType) bool {
	switch k {
	case litBool:
		return dt.Kind == schema.KindBool
	case litNumber:
		switch dt.Kind {
		case schema.KindTimeOfDay, schema.KindTimestamp, schema.KindEnum:
			return true
		}
		return dt.Kind.IsNumeric()
	case litString:
		return dt.Kind != schema.KindArray && dt.Kind != schema.KindObject
	}
	return true
}

// literalTarget picks the type an untyped literal folds against next to
// an operand of type other. Fractional numbers next to integers fold as
// float64, and arithmetic folds against the promoted type.
func literalTarget(lit *literalNode, other *schema.DataType, arith bool) *schema.DataType {
	if lit.kind == litNumber && !integral(lit.text) && classOf(other) == numInt {
		return schema.Of(schema.KindFloat64)
	}
	if arith {
		if t := arithType(other); t != nil {
			return t
		}
	}
	return nullable(other)
}

// unify types the untyped side of a binary operation from the typed one.
func (c *checker) unify(x, y *operand, arith bool) (*operand, *operand, error) {
	var err error
	switch {
	case !x.typed() && !y.typed() && x.lit.kind == litNull:
		if y, err = c.settle(y, nil); err != nil {
			return nil, nil, err
		}
		x, err = c.settle(x, nullable(y.dt))
	case !x.typed() && !y.typed():
		if x, err = c.settle(x, nil); err != nil {
			return nil, nil, err
		}
		y, err = c.settle(y, literalTarget(y.lit, x.dt, arith))
	case !x.typed():
		x, err = c.settle(x, literalTarget(x.lit, y.dt, arith))
	case !y.typed():
		y, err = c.settle(y, literalTarget(y.lit, x.dt, arith))
	}
	if err != nil {
		return nil, nil, err
	}
	return x, y, nil
}

func (c *checker) field(n *identNode) (*operand, error) {
	idx := c.class.FieldIndex(n.name)
	if idx < 0 {
		return nil, diag(errors.KindFieldUnknown, n.sp, "unknown field %q", n.name).
			DataType(c.class.Name).
			Build()
	}
	f := c.class.AllFields()[idx]
	if f.Static {
		v, err := codec.Fold(f.Type, f.Value)
		if err != nil {
			return nil, err
		}
		return c.constant(f.Type, v, n.sp)
	}
	out, err := c.temp(f.Type, n.name)
	if err != nil {
		return nil, err
	}
	return &operand{
		dt:  f.Type,
		out: out,
		sp:  n.sp,
		run: func(fr *codegen.Frame) error {
			v, err := native(f.Type, f.Name, fr.Record.Values[idx])
			if err != nil {
				return err
			}
			return out.Store(fr, v)
		},
	}, nil
}

// native converts a record value to the field type's native form. Values
// stored with Record.Set are kept as given, so they may be any Go value
// the type accepts.
func native(dt *schema.DataType, name string, v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	nv, err := codec.Coerce(dt, v)
	if err != nil {
		if e, ok := errors.As(err); ok {
			e.Phase = errors.PhaseEvaluate
			if len(e.Path) == 0 {
				e.Path = []string{name}
			}
		}
		return nil, err
	}
	return nv, nil
}

func (c *checker) member(n *memberNode) (*operand, error) {
	x, err := c.check(n.x)
	if err != nil {
		return nil, err
	}
	if !x.typed() || x.dt.Kind != schema.KindObject || len(x.dt.Classes) == 0 {
		return nil, mismatch(n.x.span(), x.dt, "no field %q: not an object", n.name)
	}
	classes := x.dt.Classes
	idx := classes[0].FieldIndex(n.name)
	for _, cl := range classes[1:] {
		if cl.FieldIndex(n.name) != idx {
			idx = -1
		}
	}
	if idx < 0 {
		return nil, diag(errors.KindFieldUnknown, n.nameSpan, "unknown field %q", n.name).
			DataType(x.dt.String()).
			Build()
	}
	fieldType := classes[0].AllFields()[idx].Type
	dt := fieldType
	if x.dt.Nullable {
		dt = nullable(dt)
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
			var v any
			if rec, ok := x.out.Load(fr).(*codec.Record); ok && idx < len(rec.Values) {
				var err error
				if v, err = native(fieldType, n.name, rec.Values[idx]); err != nil {
					return err
				}
			}
			return out.Store(fr, v)
		},
	}, nil
}

func (c *checker) boolOperand(n node) (*operand, error) {
	x, err := c.check(n)
	if err != nil {
		return nil, err
	}
	if x, err = c.settle(x, schema.Of(schema.KindBool)); err != nil {
		return nil, err
	}
	if x.dt.Kind != schema.KindBool {
		return nil, mismatch(n.span(), x.dt, "expected bool, got %s", x.dt)
	}
	return x, nil
}

func (c *checker) not(n *unaryNode) (*operand, error) {
	x, err := c.boolOperand(n.x)
	if err != nil {
		return nil, err
	}
	dt := schema.Of(schema.KindBool)
	dt.Nullable = x.dt.Nullable
	out, err := c.temp(dt, "not")
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
				v = !v.(bool)
			}
			return out.Store(fr, v)
		},
	}, nil
}

func (c *checker) isNull(n *isNullNode) (*operand, error) {
	x, err := c.checkTyped(n.x)
	if err != nil {
		return nil, err
	}
	out, err := c.temp(schema.NotNull(schema.Of(schema.KindBool)), "is null")
	if err != nil {
		return nil, err
	}
	not := n.not
	return &operand{
		dt:  out.Type,
		out: out,
		sp:  n.sp,
		run: func(fr *codegen.Frame) error {
			if err := prepare(fr, x); err != nil {
				return err
			}
			return out.Store(fr, (x.out.Load(fr) == nil) != not)
		},
	}, nil
}

func (c *checker) newRecord(n *newNode) (*operand, error) {
	var class *schema.RecordClass
	if c.set != nil {
		class = c.set.Class(n.class)
	}
	if class == nil && n.class == c.class.Name {
		class = c.class
	}
	if class == nil {
		return nil, errors.UnknownType(errors.PhaseCompile, n.classSpan, n.class)
	}
	if class.Abstract {
		return nil, errors.IllegalAbstractType(errors.PhaseCompile, n.classSpan, class.Name)
	}
	cdc, err := c.codecs.Compile(class)
	if err != nil {
		return nil, err
	}

	type assign struct {
		x     *operand
		field *schema.Field
		idx   int
	}
	assigns := make([]assign, 0, len(n.args))
	seen := make(map[string]bool, len(n.args))
	for _, a := range n.args {
		idx := class.FieldIndex(a.name)
		if idx < 0 {
			return nil, diag(errors.KindFieldUnknown, a.nameSpan, "unknown field %q", a.name).
				DataType(class.Name).
				Build()
		}
		f := class.AllFields()[idx]
		if f.Static {
			return nil, diag(errors.KindImmutable, a.nameSpan, "static field %q cannot be assigned", a.name).
				Path(class.Name, f.Name).
				Build()
		}
		if seen[a.name] {
			return nil, diag(errors.KindDuplicate, a.nameSpan, "field %q assigned twice", a.name).
				Path(class.Name, f.Name).
				Build()
		}
		seen[a.name] = true

		x, err := c.check(a.value)
		if err != nil {
			return nil, err
		}
		if x, err = c.settle(x, f.Type); err != nil {
			return nil, err
		}
		if !assignable(f.Type, x.dt) {
			return nil, mismatch(a.value.span(), f.Type, "cannot assign %s to %s.%s", x.dt, class.Name, f.Name)
		}
		assigns = append(assigns, assign{x: x, field: f, idx: idx})
	}

	dt := schema.NotNull(schema.EmbedOf(class))
	out, err := c.temp(dt, "new "+class.Name)
	if err != nil {
		return nil, err
	}
	return &operand{
		dt:  dt,
		out: out,
		sp:  n.sp,
		run: func(fr *codegen.Frame) error {
			rec := cdc.NewRecord()
			for _, a := range assigns {
				if err := prepare(fr, a.x); err != nil {
					return err
				}
				v := a.x.out.Load(fr)
				if v == nil {
					if !a.field.Type.Nullable {
						return errors.NilPointer(errors.PhaseEvaluate, []string{class.Name, a.field.Name}, a.field.Type.String())
					}
					rec.Values[a.idx] = nil
					continue
				}
				cv, err := codec.Coerce(a.field.Type, v)
				if err != nil {
					if e, ok := errors.As(err); ok && len(e.Path) == 0 {
						e.Path = []string{class.Name, a.field.Name}
					}
					return err
				}
				rec.Values[a.idx] = cv
			}
			return out.Store(fr, rec)
		},
	}, nil
}

// sameType compares types ignoring nullability.
func sameType(a, b *schema.DataType) bool {
	return a.Kind == b.Kind && a.String() == b.String()
}

func assignable(to, from *schema.DataType) bool {
	switch {
	case sameType(to, from):
		return true
	case classOf(to) != numNone && classOf(from) != numNone:
		return true
	case to.Kind == schema.KindObject && from.Kind == schema.KindObject:
		for _, fc := range from.Classes {
			ok := false
			for _, tc := range to.Classes {
				if fc.IsA(tc) {
					ok = true
				}
			}
			if !ok {
				return false
			}
		}
		return len(from.Classes) > 0
	}
	return false
}
