package codec

import (
	"fmt"
	"strings"

	"github.com/wippyai/tickcodec/errors"
	"github.com/wippyai/tickcodec/schema"
)

// Record is one instance of a record class. Values follow
// Class.AllFields(), inherited fields first; nil is null.
type Record struct {
	Class  *schema.RecordClass
	Values []any
}

// NewRecord returns a record of class with every field null.
func NewRecord(class *schema.RecordClass) *Record {
	return &Record{Class: class, Values: make([]any, len(class.AllFields()))}
}

// Get returns the named field, or nil when the field is null or unknown.
func (r *Record) Get(name string) any {
	v, _ := r.Lookup(name)
	return v
}

// Lookup returns the named field and whether the class has it.
func (r *Record) Lookup(name string) (any, bool) {
	i := r.Class.FieldIndex(name)
	if i < 0 || i >= len(r.Values) {
		return nil, false
	}
	return r.Values[i], true
}

// Set stores v in the named field without conversion; Codec.Encode
// coerces and checks it.
func (r *Record) Set(name string, v any) error {
	i := r.Class.FieldIndex(name)
	if i < 0 || i >= len(r.Values) {
		return errors.FieldUnknown(errors.PhaseEncode, []string{r.Class.Name}, name)
	}
	r.Values[i] = v
	return nil
}

func (r *Record) String() string {
	if r == nil {
		return "null"
	}
	var b strings.Builder
	b.WriteString(r.Class.Name)
	b.WriteByte('{')
	for i, f := range r.Class.AllFields() {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(f.Name)
		b.WriteString(": ")
		if i < len(r.Values) {
			b.WriteString(FormatValue(r.Values[i]))
		}
	}
	b.WriteByte('}')
	return b.String()
}

// FormatValue renders a native value for display.
func FormatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return "null"
	case string:
		return fmt.Sprintf("%q", x)
	case []byte:
		return fmt.Sprintf("0x%x", x)
	case []any:
		parts := make([]string, len(x))
		for i, e := range x {
			parts[i] = FormatValue(e)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case *Record:
		return x.String()
	case fmt.Stringer:
		return x.String()
	default:
		return fmt.Sprint(x)
	}
}

func goTypeName(v any) string {
	if v == nil {
		return "nil"
	}
	return fmt.Sprintf("%T", v)
}
