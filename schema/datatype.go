package schema

import (
	"strconv"
	"strings"

	"github.com/wippyai/tickcodec/errors"
)

// DataType describes the semantic type of one field: its kind, whether it
// admits null, and the kind's parameters. A DataType is immutable once the
// Set that owns it is built.
type DataType struct {
	Enum     *EnumClass
	Element  *DataType
	Classes  []*RecordClass
	Span     errors.Span
	refNames []string
	Scale    int32
	Kind     Kind
	Nullable bool
	// Polymorphic object fields carry a type identifier on the wire and may
	// hold any concrete descendant of Classes. Embedded ones hold exactly
	// Classes[0].
	Polymorphic bool
}

// FixedSize returns the wire width, or false for variable-width types.
func (dt *DataType) FixedSize() (int, bool) {
	return dt.Kind.FixedSize()
}

// String renders the type the way schema text spells it.
func (dt *DataType) String() string {
	var b strings.Builder
	dt.write(&b)
	return b.String()
}

func (dt *DataType) write(b *strings.Builder) {
	switch dt.Kind {
	case KindDecimal:
		b.WriteString("decimal(")
		b.WriteString(strconv.Itoa(int(dt.Scale)))
		b.WriteByte(')')
	case KindEnum:
		b.WriteString("enum<")
		if dt.Enum != nil {
			b.WriteString(dt.Enum.Name)
		} else if len(dt.refNames) > 0 {
			b.WriteString(dt.refNames[0])
		}
		b.WriteByte('>')
	case KindArray:
		b.WriteString("array<")
		if dt.Element != nil {
			dt.Element.write(b)
			if !dt.Element.Nullable {
				b.WriteByte('!')
			}
		}
		b.WriteByte('>')
	case KindObject:
		if dt.Polymorphic {
			b.WriteString("object<")
		} else {
			b.WriteString("embed<")
		}
		names := dt.refNames
		if len(dt.Classes) > 0 {
			names = make([]string, len(dt.Classes))
			for i, c := range dt.Classes {
				names[i] = c.Name
			}
		}
		b.WriteString(strings.Join(names, "|"))
		b.WriteByte('>')
	default:
		b.WriteString(dt.Kind.String())
	}
}

// Of returns a nullable descriptor for a parameterless kind.
func Of(k Kind) *DataType {
	return &DataType{Kind: k, Nullable: true}
}

// NotNull returns a non-nullable copy of dt.
func NotNull(dt *DataType) *DataType {
	c := *dt
	c.Nullable = false
	return &c
}

// DecimalOf returns a nullable fixed-point decimal with the given scale.
func DecimalOf(scale int32) *DataType {
	return &DataType{Kind: KindDecimal, Scale: scale, Nullable: true}
}

// EnumOf returns a nullable enum descriptor.
func EnumOf(e *EnumClass) *DataType {
	return &DataType{Kind: KindEnum, Enum: e, Nullable: true}
}

// ArrayOf returns a nullable array of elem.
func ArrayOf(elem *DataType) *DataType {
	return &DataType{Kind: KindArray, Element: elem, Nullable: true}
}

// ObjectOf returns a nullable polymorphic object reference whose static
// type is any of classes.
func ObjectOf(classes ...*RecordClass) *DataType {
	return &DataType{Kind: KindObject, Classes: classes, Polymorphic: true, Nullable: true}
}

// EmbedOf returns a nullable embedded object of exactly one class.
func EmbedOf(class *RecordClass) *DataType {
	return &DataType{Kind: KindObject, Classes: []*RecordClass{class}, Nullable: true}
}
