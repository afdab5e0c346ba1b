package codec

import (
	"sync"

	"go.uber.org/zap"

	"github.com/wippyai/tickcodec"
	"github.com/wippyai/tickcodec/codec/internal/layout"
	"github.com/wippyai/tickcodec/errors"
	"github.com/wippyai/tickcodec/schema"
)

// Compiler turns record classes into codecs. Compiled codecs are cached
// per class, so compiling the same class twice returns the same Codec.
type Compiler struct {
	set     *schema.Set
	loader  tickcodec.TypeLoader
	log     *zap.Logger
	classes map[*schema.RecordClass]*recordCodec
	cache   sync.Map // *schema.RecordClass -> *Codec
	mu      sync.Mutex
}

// Option configures a Compiler.
type Option func(*Compiler)

// WithSet supplies the class set used to expand polymorphic object
// fields to their concrete descendants. Without a set only the classes
// named by a field are candidates.
func WithSet(s *schema.Set) Option {
	return func(c *Compiler) { c.set = s }
}

// WithLoader injects the type loader consulted when decoding polymorphic
// objects. Without a loader, identifiers resolve against the field's
// precompiled targets.
func WithLoader(l tickcodec.TypeLoader) Option {
	return func(c *Compiler) { c.loader = l }
}

// WithLogger overrides the package logger for this compiler.
func WithLogger(l *zap.Logger) Option {
	return func(c *Compiler) { c.log = l }
}

func NewCompiler(opts ...Option) *Compiler {
	c := &Compiler{
		classes: make(map[*schema.RecordClass]*recordCodec),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.log == nil {
		c.log = Logger()
	}
	return c
}

// Set returns the compiler's class set, which may be nil.
func (c *Compiler) Set() *schema.Set {
	return c.set
}

// Compile builds the codec of a concrete class. Abstract classes, and
// embedded fields of abstract classes, fail with an illegal abstract type
// error and produce no codec. The first problem aborts compilation.
func (c *Compiler) Compile(class *schema.RecordClass) (*Codec, error) {
	if class == nil {
		return nil, errors.New(errors.PhaseCompile, errors.KindNilPointer).
			Detail("class cannot be nil").
			Build()
	}
	if cached, ok := c.cache.Load(class); ok {
		c.log.Debug("codec cache hit", zap.String("class", class.Name))
		return cached.(*Codec), nil
	}
	if class.Abstract {
		return nil, errors.IllegalAbstractType(errors.PhaseCompile, class.Span, class.Name)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	pending := make(map[*schema.RecordClass]*recordCodec)
	rc, err := c.classCodec(class, pending)
	if err != nil {
		c.log.Debug("compile failed", zap.String("class", class.Name), zap.Error(err))
		return nil, err
	}
	for k, v := range pending {
		c.classes[k] = v
	}

	codec := &Codec{rc: rc}
	actual, _ := c.cache.LoadOrStore(class, codec)
	c.log.Debug("compiled class",
		zap.String("class", class.Name),
		zap.String("guid", class.GUID()),
		zap.Int("fields", len(rc.fields)),
		zap.Int("fixed_prefix", rc.layout.Prefix),
		zap.Int("nested_classes", len(pending)-1),
	)
	return actual.(*Codec), nil
}

// MustCompile is Compile that panics on error, for static declarations.
func (c *Compiler) MustCompile(class *schema.RecordClass) *Codec {
	codec, err := c.Compile(class)
	if err != nil {
		panic(err)
	}
	return codec
}

// classCodec returns the body codec of class, compiling it on first use.
// c.mu must be held. The codec is registered in pending before its fields
// compile so recursive references resolve to it.
func (c *Compiler) classCodec(class *schema.RecordClass, pending map[*schema.RecordClass]*recordCodec) (*recordCodec, error) {
	if rc, ok := c.classes[class]; ok {
		return rc, nil
	}
	if rc, ok := pending[class]; ok {
		return rc, nil
	}

	all := class.AllFields()
	rc := &recordCodec{class: class, fields: make([]fieldCodec, len(all))}
	pending[class] = rc

	widths := make([]layout.Width, 0, len(all))
	for i, f := range all {
		env := &Env{
			compiler: c,
			pending:  pending,
			Path:     []string{class.Name, f.Name},
			Span:     f.Span,
		}
		fc := fieldCodec{field: f}
		if f.Static {
			v, err := Fold(f.Type, f.Value)
			if err != nil {
				return nil, withPath(err, env.Path)
			}
			fc.constant = v
		} else {
			frag, err := fragmentFor(f.Type, env)
			if err != nil {
				return nil, err
			}
			fc.frag = frag
			rc.wire = append(rc.wire, i)
			size, fixed := f.Type.FixedSize()
			widths = append(widths, layout.Width{Size: size, Fixed: fixed})
		}
		if f.Default != nil {
			v, err := Fold(f.Type, *f.Default)
			if err != nil {
				return nil, withPath(err, env.Path)
			}
			fc.def = v
		}
		rc.fields[i] = fc
	}
	rc.layout = layout.Calc(widths)
	return rc, nil
}
