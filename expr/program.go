package expr

import (
	"go.uber.org/zap"

	"github.com/wippyai/tickcodec/codec"
	"github.com/wippyai/tickcodec/codegen"
	"github.com/wippyai/tickcodec/errors"
	"github.com/wippyai/tickcodec/schema"
)

// Program is a compiled expression over records of one class. It is
// immutable and may be shared; evaluation happens on Instances.
type Program struct {
	class  *schema.RecordClass
	codec  *codec.Codec
	result *schema.DataType
	locals *codegen.Container
	state  *codegen.Container
	out    *codegen.Variable
	run    evalFunc
	source string
}

// Compile type-checks src against class and lowers it to a Program. The
// first problem aborts compilation with a diagnostic carrying the span of
// the offending text.
func Compile(src string, class *schema.RecordClass, opts ...Option) (*Program, error) {
	cfg := config{source: "expr"}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.log == nil {
		cfg.log = Logger()
	}
	if cfg.codecs == nil {
		cfg.codecs = codec.NewCompiler(codec.WithSet(cfg.set), codec.WithLogger(cfg.log))
	}
	if cfg.set == nil {
		cfg.set = cfg.codecs.Set()
	}
	if class == nil {
		return nil, errors.New(errors.PhaseCompile, errors.KindNilPointer).
			Detail("class cannot be nil").
			Build()
	}

	tree, err := parse(src, cfg.source)
	if err != nil {
		return nil, err
	}

	locals := codegen.NewContainer()
	state := codegen.NewContainer()
	c := &checker{
		class:  class,
		set:    cfg.set,
		codecs: cfg.codecs,
		locals: codegen.NewAllocator(codegen.Transient, locals, nil, "t"),
		state:  codegen.NewAllocator(codegen.Persistent, state, nil, "s"),
		log:    cfg.log,
	}
	root, err := c.checkTyped(tree)
	if err != nil {
		return nil, err
	}

	p := &Program{
		class:  class,
		result: root.dt,
		locals: locals,
		state:  state,
		out:    root.out,
		run:    root.run,
		source: src,
	}
	if !class.Abstract {
		if p.codec, err = cfg.codecs.Compile(class); err != nil {
			return nil, err
		}
	}
	cfg.log.Debug("compiled expression",
		zap.String("source", cfg.source),
		zap.String("class", class.Name),
		zap.String("result", root.dt.String()),
		zap.Int("transient", locals.Len()),
		zap.Int("persistent", state.Len()))
	return p, nil
}

// MustCompile is Compile that panics on error.
func MustCompile(src string, class *schema.RecordClass, opts ...Option) *Program {
	p, err := Compile(src, class, opts...)
	if err != nil {
		panic(err)
	}
	return p
}

// ResultType returns the type of the expression's value.
func (p *Program) ResultType() *schema.DataType {
	return p.result
}

// Class returns the input record class.
func (p *Program) Class() *schema.RecordClass {
	return p.class
}

// Source returns the expression text.
func (p *Program) Source() string {
	return p.source
}

// Locals describes the transient variables, reset for every record.
func (p *Program) Locals() *codegen.Container {
	return p.locals
}

// State describes the persistent variables, kept across records.
func (p *Program) State() *codegen.Container {
	return p.state
}

// Stateful reports whether the program aggregates across records.
func (p *Program) Stateful() bool {
	return p.state.Len() > 0
}

// NewInstance returns fresh evaluation state.
func (p *Program) NewInstance() *Instance {
	return &Instance{
		prog: p,
		frame: codegen.Frame{
			Locals: p.locals.Instantiate(),
			State:  p.state.Instantiate(),
		},
	}
}

// Instance evaluates a Program record by record, carrying aggregate state
// between calls. An Instance is not safe for concurrent use; give each
// worker its own.
type Instance struct {
	prog   *Program
	result any
	frame  codegen.Frame
}

// Evaluate runs the program on rec, which must be of the program's class
// or a descendant, and returns the value.
func (i *Instance) Evaluate(rec *codec.Record) (any, error) {
	p := i.prog
	if rec == nil {
		return nil, errors.New(errors.PhaseEvaluate, errors.KindNilPointer).
			DataType(p.class.Name).
			Detail("record cannot be nil").
			Build()
	}
	if rec.Class == nil || !rec.Class.IsA(p.class) {
		name := "nil"
		if rec.Class != nil {
			name = rec.Class.Name
		}
		return nil, errors.New(errors.PhaseEvaluate, errors.KindTypeMismatch).
			GoType(name).
			DataType(p.class.Name).
			Detail("record is not a %s", p.class.Name).
			Build()
	}
	if len(rec.Values) < len(p.class.AllFields()) {
		return nil, errors.InvalidData(errors.PhaseEvaluate, []string{rec.Class.Name}, "record has fewer values than fields")
	}

	i.frame.Locals.Reset()
	i.frame.Record = rec
	defer func() { i.frame.Record = nil }()
	if p.run != nil {
		if err := p.run(&i.frame); err != nil {
			return nil, err
		}
	}
	i.result = p.out.Load(&i.frame)
	return i.result, nil
}

// EvaluateBytes decodes data with the class codec and evaluates the
// record. The program's class must be concrete.
func (i *Instance) EvaluateBytes(data []byte) (any, error) {
	p := i.prog
	if p.codec == nil {
		return nil, errors.IllegalAbstractType(errors.PhaseEvaluate, p.class.Span, p.class.Name)
	}
	rec, err := p.codec.Decode(data)
	if err != nil {
		return nil, err
	}
	return i.Evaluate(rec)
}

// Result returns the value of the last successful evaluation.
func (i *Instance) Result() any {
	return i.result
}

// Reset clears aggregate state and the last result.
func (i *Instance) Reset() {
	i.frame.State.Reset()
	i.frame.Locals.Reset()
	i.result = nil
}
