package schema

import (
	"github.com/wippyai/tickcodec/errors"
)

// Set is a named collection of record and enum classes. A Set is built
// once, by Load or by the Add methods, and then only read.
type Set struct {
	classes map[string]*RecordClass
	byGUID  map[string]*RecordClass
	enums   map[string]*EnumClass
	order   []*RecordClass
}

func NewSet() *Set {
	return &Set{
		classes: make(map[string]*RecordClass),
		byGUID:  make(map[string]*RecordClass),
		enums:   make(map[string]*EnumClass),
	}
}

// Add registers finished classes. Names must be unique.
func (s *Set) Add(classes ...*RecordClass) error {
	for _, c := range classes {
		if err := c.finish(); err != nil {
			return err
		}
		if _, dup := s.classes[c.Name]; dup {
			return errors.New(errors.PhaseLoad, errors.KindDuplicate).
				DataType(c.Name).
				Span(c.Span).
				Detail("class %q declared twice", c.Name).
				Build()
		}
		s.classes[c.Name] = c
		s.byGUID[c.GUID()] = c
		s.order = append(s.order, c)
	}
	return nil
}

// AddEnum registers an enum class.
func (s *Set) AddEnum(e *EnumClass) error {
	if _, dup := s.enums[e.Name]; dup {
		return errors.New(errors.PhaseLoad, errors.KindDuplicate).
			DataType(e.Name).
			Span(e.Span).
			Detail("enum %q declared twice", e.Name).
			Build()
	}
	seen := make(map[string]bool, len(e.Symbols))
	for _, sym := range e.Symbols {
		if sym.Value < 0 {
			return errors.OutOfRange(errors.PhaseLoad, e.Span, sym.Value, "enum<"+e.Name+">")
		}
		if seen[sym.Name] {
			return errors.New(errors.PhaseLoad, errors.KindDuplicate).
				DataType(e.Name).
				Span(e.Span).
				Detail("symbol %q declared twice", sym.Name).
				Build()
		}
		seen[sym.Name] = true
	}
	s.enums[e.Name] = e
	return nil
}

func (s *Set) Class(name string) *RecordClass {
	return s.classes[name]
}

// ClassByGUID finds a class by its wire identifier.
func (s *Set) ClassByGUID(id string) *RecordClass {
	return s.byGUID[id]
}

func (s *Set) Enum(name string) *EnumClass {
	return s.enums[name]
}

// Classes returns all classes in declaration order.
func (s *Set) Classes() []*RecordClass {
	return s.order
}

// Descendants returns the classes that extend c, directly or not, in
// declaration order.
func (s *Set) Descendants(c *RecordClass) []*RecordClass {
	var out []*RecordClass
	for _, k := range s.order {
		if k != c && k.IsA(c) {
			out = append(out, k)
		}
	}
	return out
}

// ConcreteTargets expands static reference classes into the instantiable
// classes a polymorphic field may hold: each listed class and its
// descendants, without abstract classes and without duplicates. A nil
// Set only considers the listed classes.
func (s *Set) ConcreteTargets(static []*RecordClass) []*RecordClass {
	var out []*RecordClass
	seen := make(map[*RecordClass]bool)
	add := func(c *RecordClass) {
		if c.Abstract || seen[c] {
			return
		}
		seen[c] = true
		out = append(out, c)
	}
	for _, c := range static {
		add(c)
		if s != nil {
			for _, d := range s.Descendants(c) {
				add(d)
			}
		}
	}
	return out
}
