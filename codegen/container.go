package codegen

import (
	"github.com/wippyai/tickcodec/errors"
	"github.com/wippyai/tickcodec/schema"
)

// Slot declares one variable in a container.
type Slot struct {
	Type    *schema.DataType
	Init    any
	Name    string
	Comment string
	Final   bool
}

// Container collects slot declarations. It plays the part of a method body
// for transient variables and of a class for persistent ones.
type Container struct {
	index map[string]int
	slots []Slot
}

func NewContainer() *Container {
	return &Container{index: make(map[string]int)}
}

func (c *Container) add(s Slot) (int, error) {
	if _, dup := c.index[s.Name]; dup {
		return 0, errors.New(errors.PhaseCompile, errors.KindDuplicate).
			Path(s.Name).
			Detail("variable %s already declared", s.Name).
			Build()
	}
	i := len(c.slots)
	c.slots = append(c.slots, s)
	c.index[s.Name] = i
	return i, nil
}

// Len returns the number of declared slots.
func (c *Container) Len() int {
	return len(c.slots)
}

// Slots returns the declarations in allocation order.
func (c *Container) Slots() []Slot {
	return c.slots
}

// Lookup finds a slot by name.
func (c *Container) Lookup(name string) (Slot, bool) {
	i, ok := c.index[name]
	if !ok {
		return Slot{}, false
	}
	return c.slots[i], true
}

// Instantiate materializes a state object with every initializer applied.
func (c *Container) Instantiate() *State {
	s := &State{
		container: c,
		values:    make([]any, len(c.slots)),
		written:   make([]bool, len(c.slots)),
	}
	s.Reset()
	return s
}

// State holds the values of one container instance. It is not safe for
// concurrent use.
type State struct {
	container *Container
	values    []any
	written   []bool
}

// Container returns the declarations the state was built from.
func (s *State) Container() *Container {
	return s.container
}

// Reset restores every slot to its initializer. A final slot with an
// initializer counts as written.
func (s *State) Reset() {
	for i, slot := range s.container.slots {
		s.values[i] = copyInit(slot.Init)
		s.written[i] = slot.Final && slot.Init != nil
	}
}

// copyInit gives each instance its own copy of list initializers.
func copyInit(v any) any {
	if items, ok := v.([]any); ok {
		out := make([]any, len(items))
		copy(out, items)
		return out
	}
	return v
}
