package schema

import (
	"fmt"

	"go.bytecodealliance.org/wit"

	"github.com/wippyai/tickcodec/errors"
)

// ImportWIT adds a WIT record type definition to the set as a concrete
// class, together with the records and enums it references. WIT values
// are never null unless wrapped in option<T>, so plain fields come out
// non-nullable. list<u8> maps to binary; variants, results, tuples, flags
// and handles have no counterpart and are rejected.
func (s *Set) ImportWIT(td *wit.TypeDef) (*RecordClass, error) {
	rec, ok := td.Kind.(*wit.Record)
	if !ok {
		return nil, errors.Unsupported(errors.PhaseLoad, fmt.Sprintf("WIT %T is not a record", td.Kind))
	}
	name := witName(td)
	if name == "" {
		return nil, errors.Unsupported(errors.PhaseLoad, "anonymous WIT record")
	}
	if c := s.classes[name]; c != nil {
		return c, nil
	}

	fields := make([]*Field, 0, len(rec.Fields))
	for _, wf := range rec.Fields {
		dt, err := s.witType(wf.Type, []string{name, wf.Name})
		if err != nil {
			return nil, err
		}
		fields = append(fields, NewField(wf.Name, dt))
	}
	c, err := NewClass(name, nil, false, fields...)
	if err != nil {
		return nil, err
	}
	if err := s.Add(c); err != nil {
		return nil, err
	}
	return c, nil
}

func witName(td *wit.TypeDef) string {
	if td.Name != nil {
		return *td.Name
	}
	return ""
}

func (s *Set) witType(t wit.Type, path []string) (*DataType, error) {
	var k Kind
	switch v := t.(type) {
	case wit.Bool:
		k = KindBool
	case wit.U8:
		k = KindUInt8
	case wit.S8:
		k = KindInt8
	case wit.U16:
		k = KindUInt16
	case wit.S16:
		k = KindInt16
	case wit.U32:
		k = KindUInt32
	case wit.S32:
		k = KindInt32
	case wit.U64:
		k = KindUInt64
	case wit.S64:
		k = KindInt64
	case wit.F32:
		k = KindFloat32
	case wit.F64:
		k = KindFloat64
	case wit.String:
		k = KindString
	case *wit.TypeDef:
		return s.witTypeDef(v, path)
	default:
		return nil, errors.New(errors.PhaseLoad, errors.KindUnsupported).
			Path(path...).
			Detail("unsupported WIT type: %T", t).
			Build()
	}
	return NotNull(Of(k)), nil
}

func (s *Set) witTypeDef(td *wit.TypeDef, path []string) (*DataType, error) {
	switch kind := td.Kind.(type) {
	case *wit.Option:
		dt, err := s.witType(kind.Type, path)
		if err != nil {
			return nil, err
		}
		dt.Nullable = true
		return dt, nil
	case *wit.List:
		if _, bytes := kind.Type.(wit.U8); bytes {
			return NotNull(Of(KindBinary)), nil
		}
		elem, err := s.witType(kind.Type, append(path, "[elem]"))
		if err != nil {
			return nil, err
		}
		return NotNull(ArrayOf(elem)), nil
	case *wit.Enum:
		name := witName(td)
		if name == "" {
			name = path[len(path)-2] + "." + path[len(path)-1]
		}
		e := s.enums[name]
		if e == nil {
			e = &EnumClass{Name: name}
			for i, c := range kind.Cases {
				e.Symbols = append(e.Symbols, EnumSymbol{Name: c.Name, Value: int32(i)})
			}
			if err := s.AddEnum(e); err != nil {
				return nil, err
			}
		}
		return NotNull(EnumOf(e)), nil
	case *wit.Record:
		c, err := s.ImportWIT(td)
		if err != nil {
			return nil, err
		}
		return NotNull(EmbedOf(c)), nil
	case wit.Type:
		return s.witType(kind, path)
	default:
		return nil, errors.New(errors.PhaseLoad, errors.KindUnsupported).
			Path(path...).
			Detail("unsupported WIT type kind: %T", kind).
			Build()
	}
}
