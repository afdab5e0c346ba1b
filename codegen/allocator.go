package codegen

import (
	"strconv"

	"github.com/wippyai/tickcodec/codec"
	"github.com/wippyai/tickcodec/errors"
	"github.com/wippyai/tickcodec/schema"
)

// Storage selects where a variable lives.
type Storage uint8

const (
	// Transient variables live in Frame.Locals.
	Transient Storage = iota
	// Persistent variables live in a state object.
	Persistent
)

func (s Storage) String() string {
	if s == Persistent {
		return "persistent"
	}
	return "transient"
}

// Base locates the state object of persistent variables from a frame.
type Base func(f *Frame) *State

// Frame is the context a compiled program runs in.
type Frame struct {
	// Locals holds transient variables.
	Locals *State
	// State is the frame's own state object, used by persistent variables
	// allocated without a Base.
	State *State
	// Record is the input being evaluated.
	Record *codec.Record
}

// Variable is a handle to one allocated slot.
type Variable struct {
	container *Container
	base      Base
	Type      *schema.DataType
	Name      string
	Comment   string
	index     int
	Storage   Storage
	Final     bool
}

func (v *Variable) state(f *Frame) *State {
	var s *State
	switch {
	case v.Storage == Transient:
		s = f.Locals
	case v.base != nil:
		s = v.base(f)
	default:
		s = f.State
	}
	if s == nil || s.container != v.container {
		return nil
	}
	return s
}

// Load returns the variable's value in f. It returns nil when f does not
// carry the variable's container.
func (v *Variable) Load(f *Frame) any {
	s := v.state(f)
	if s == nil {
		return nil
	}
	return s.values[v.index]
}

// Store writes val to the variable in f. Values are stored as given;
// callers store native values of the variable's type. A final variable
// accepts one write, which its initializer uses up if it has one.
func (v *Variable) Store(f *Frame, val any) error {
	s := v.state(f)
	if s == nil {
		return errors.New(errors.PhaseEvaluate, errors.KindInvalidData).
			Path(v.Name).
			Detail("frame has no %s storage for %s", v.Storage, v.Name).
			Build()
	}
	if v.Final && s.written[v.index] {
		return errors.Immutable(v.Name)
	}
	s.values[v.index] = val
	s.written[v.index] = true
	return nil
}

func (v *Variable) String() string {
	return v.Name
}

// Allocator issues uniquely named variables in one container. It belongs
// to a single compile call and is not safe for concurrent use.
type Allocator struct {
	container *Container
	base      Base
	prefix    string
	counter   int
	storage   Storage
}

// NewAllocator returns an allocator for container. base locates the state
// object of persistent variables; nil means the frame's own State.
func NewAllocator(storage Storage, container *Container, base Base, prefix string) *Allocator {
	return &Allocator{
		storage:   storage,
		container: container,
		base:      base,
		prefix:    prefix,
		counter:   1,
	}
}

// Storage returns the storage class of issued variables.
func (a *Allocator) Storage() Storage {
	return a.storage
}

// Container returns the container variables are declared in.
func (a *Allocator) Container() *Container {
	return a.container
}

// AddVar declares a variable of type dt. init, if not nil, is converted to
// dt's native representation and applied whenever the container is
// instantiated or reset.
func (a *Allocator) AddVar(comment string, final bool, dt *schema.DataType, init any) (*Variable, error) {
	name := a.prefix + strconv.Itoa(a.counter)
	a.counter++

	if init != nil {
		v, err := codec.Coerce(dt, init)
		if err != nil {
			if e, ok := errors.As(err); ok && len(e.Path) == 0 {
				e.Path = []string{name}
			}
			return nil, err
		}
		init = v
	}
	idx, err := a.container.add(Slot{
		Type:    dt,
		Init:    init,
		Name:    name,
		Comment: comment,
		Final:   final,
	})
	if err != nil {
		return nil, err
	}
	return &Variable{
		container: a.container,
		base:      a.base,
		Type:      dt,
		Name:      name,
		Comment:   comment,
		index:     idx,
		Storage:   a.storage,
		Final:     final,
	}, nil
}

// AddListVar declares a variable holding a list of elem.
func (a *Allocator) AddListVar(comment string, final bool, elem *schema.DataType, init []any) (*Variable, error) {
	var v any
	if init != nil {
		v = init
	}
	return a.AddVar(comment, final, schema.NotNull(schema.ArrayOf(elem)), v)
}
