package schema

import (
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/google/uuid"

	"github.com/wippyai/tickcodec/errors"
)

// guidSpace namespaces class GUIDs.
var guidSpace = uuid.MustParse("6f1c2f0e-3b8a-5d4e-9c7a-2e5b8d1f0a93")

// Literal is constant text taken verbatim from a schema or expression,
// folded against a kind by the codec handlers.
type Literal struct {
	Text string
	Span errors.Span
	// Quoted literals were written as strings; "null" only means null when
	// it was not quoted.
	Quoted bool
}

// IsNull reports whether the literal spells null.
func (l Literal) IsNull() bool {
	return !l.Quoted && l.Text == "null"
}

// Field is one named, typed member of a record class.
type Field struct {
	Type    *DataType
	Default *Literal
	Name    string
	Title   string
	// Static fields are not written to the wire; their Value is folded at
	// compile time and restored on decode.
	Value  Literal
	Span   errors.Span
	Static bool
}

// EnumSymbol is one named value of an enum class.
type EnumSymbol struct {
	Name  string
	Value int32
}

// EnumClass is a named set of symbols with non-negative values.
type EnumClass struct {
	Name    string
	Symbols []EnumSymbol
	Span    errors.Span
}

// Value returns the wire value of a symbol.
func (e *EnumClass) Value(symbol string) (int32, bool) {
	for _, s := range e.Symbols {
		if s.Name == symbol {
			return s.Value, true
		}
	}
	return 0, false
}

// Symbol returns the symbol for a wire value.
func (e *EnumClass) Symbol(value int32) (string, bool) {
	for _, s := range e.Symbols {
		if s.Value == value {
			return s.Name, true
		}
	}
	return "", false
}

// RecordClass is an ordered set of fields, optionally extending a parent.
// Field order, parent fields first, is the wire layout. Abstract classes
// declare shape only and are never the concrete target of a codec.
type RecordClass struct {
	Parent   *RecordClass
	Name     string
	Title    string
	Fields   []*Field
	Span     errors.Span
	flat     []*Field
	guid     uuid.UUID
	finished bool
	Abstract bool
}

// NewClass builds a finished class. The parent, if any, must already be
// finished. Field names must be unique across the hierarchy.
func NewClass(name string, parent *RecordClass, abstract bool, fields ...*Field) (*RecordClass, error) {
	c := &RecordClass{
		Name:     name,
		Parent:   parent,
		Abstract: abstract,
		Fields:   fields,
	}
	if err := c.finish(); err != nil {
		return nil, err
	}
	return c, nil
}

// MustClass is NewClass that panics on error, for static declarations.
func MustClass(name string, parent *RecordClass, abstract bool, fields ...*Field) *RecordClass {
	c, err := NewClass(name, parent, abstract, fields...)
	if err != nil {
		panic(err)
	}
	return c
}

// NewField is a convenience for a non-static field.
func NewField(name string, dt *DataType) *Field {
	return &Field{Name: name, Type: dt}
}

func (c *RecordClass) finish() error {
	if c.finished {
		return nil
	}
	var flat []*Field
	if c.Parent != nil {
		if !c.Parent.finished {
			return errors.New(errors.PhaseLoad, errors.KindInvalidData).
				DataType(c.Name).
				Span(c.Span).
				Detail("parent %s is not finished", c.Parent.Name).
				Build()
		}
		flat = append(flat, c.Parent.flat...)
	}
	seen := make(map[string]bool, len(flat)+len(c.Fields))
	for _, f := range flat {
		seen[f.Name] = true
	}
	for _, f := range c.Fields {
		if f.Type == nil {
			return errors.New(errors.PhaseLoad, errors.KindInvalidData).
				Path(c.Name, f.Name).
				Span(f.Span).
				Detail("field has no type").
				Build()
		}
		if seen[f.Name] {
			return errors.New(errors.PhaseLoad, errors.KindDuplicate).
				Path(c.Name, f.Name).
				Span(f.Span).
				Detail("duplicate field %q", f.Name).
				Build()
		}
		seen[f.Name] = true
		flat = append(flat, f)
	}
	c.flat = flat
	c.guid = uuid.NewSHA1(guidSpace, []byte(c.canonical(true)))
	c.finished = true
	return nil
}

// AllFields returns inherited and own fields in wire order.
func (c *RecordClass) AllFields() []*Field {
	return c.flat
}

// FieldIndex returns the position of name in AllFields.
func (c *RecordClass) FieldIndex(name string) int {
	for i, f := range c.flat {
		if f.Name == name {
			return i
		}
	}
	return -1
}

// Field returns the named field from the whole hierarchy.
func (c *RecordClass) Field(name string) *Field {
	if i := c.FieldIndex(name); i >= 0 {
		return c.flat[i]
	}
	return nil
}

// GUID identifies the class on the wire for polymorphic references.
func (c *RecordClass) GUID() string {
	return c.guid.String()
}

// Fingerprint hashes the ordered wire layout. Reordering, retyping or
// renaming a non-static field changes it.
func (c *RecordClass) Fingerprint() uint64 {
	return xxhash.Sum64String(c.canonical(false))
}

// IsA reports whether c is other or extends it.
func (c *RecordClass) IsA(other *RecordClass) bool {
	for k := c; k != nil; k = k.Parent {
		if k == other {
			return true
		}
	}
	return false
}

func (c *RecordClass) String() string {
	return c.Name
}

func (c *RecordClass) canonical(withHeader bool) string {
	var b strings.Builder
	if withHeader {
		b.WriteString(c.Name)
		if c.Parent != nil {
			b.WriteString(":")
			b.WriteString(c.Parent.Name)
		}
		if c.Abstract {
			b.WriteString("!abstract")
		}
		b.WriteByte('{')
	}
	for _, f := range c.flat {
		if f.Static && !withHeader {
			continue
		}
		b.WriteString(f.Name)
		b.WriteByte(':')
		b.WriteString(f.Type.String())
		if !f.Type.Nullable {
			b.WriteByte('!')
		}
		if f.Static {
			b.WriteString("=")
			b.WriteString(strconv.Quote(f.Value.Text))
		}
		b.WriteByte(';')
	}
	if withHeader {
		b.WriteByte('}')
	}
	return b.String()
}
