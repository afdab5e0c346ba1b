package schema

import (
	"strconv"

	"github.com/wippyai/tickcodec/errors"
)

// DefaultDecimalScale applies to a bare "decimal".
const DefaultDecimalScale = 8

// maxDecimalScale keeps 10^scale inside int64.
const maxDecimalScale = 18

// ParseType parses schema type text such as "int32", "decimal(4)",
// "array<float64!>", "enum<Side>", "object<Trade|Quote>" or "embed<Leg>".
// A trailing "!" marks the type non-nullable. Class and enum names are
// left unresolved; Set.ParseType resolves them. span locates text in its
// source and is used for diagnostics.
func ParseType(text string, span errors.Span) (*DataType, error) {
	p := &typeParser{text: text, span: span}
	dt, err := p.parse()
	if err != nil {
		return nil, err
	}
	if p.pos != len(p.text) {
		return nil, p.errorf(p.pos, len(p.text)-p.pos, "unexpected %q", p.text[p.pos:])
	}
	return dt, nil
}

// ParseType parses and resolves type text against the set.
func (s *Set) ParseType(text string, span errors.Span) (*DataType, error) {
	dt, err := ParseType(text, span)
	if err != nil {
		return nil, err
	}
	if err := s.resolve(dt); err != nil {
		return nil, err
	}
	return dt, nil
}

type typeParser struct {
	text string
	span errors.Span
	pos  int
}

func (p *typeParser) errorf(off, n int, format string, args ...any) error {
	return errors.New(errors.PhaseLoad, errors.KindSyntax).
		Span(p.span.Sub(off, n)).
		Detail(format, args...).
		Build()
}

func (p *typeParser) skipSpace() {
	for p.pos < len(p.text) && (p.text[p.pos] == ' ' || p.text[p.pos] == '\t') {
		p.pos++
	}
}

func (p *typeParser) ident() (string, int) {
	p.skipSpace()
	start := p.pos
	for p.pos < len(p.text) {
		c := p.text[p.pos]
		if c == '_' || c == '.' || c == '$' || c >= '0' && c <= '9' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' {
			p.pos++
			continue
		}
		break
	}
	return p.text[start:p.pos], start
}

func (p *typeParser) accept(c byte) bool {
	p.skipSpace()
	if p.pos < len(p.text) && p.text[p.pos] == c {
		p.pos++
		return true
	}
	return false
}

func (p *typeParser) expect(c byte) error {
	if !p.accept(c) {
		return p.errorf(p.pos, 1, "expected %q", string(c))
	}
	return nil
}

func (p *typeParser) parse() (*DataType, error) {
	name, start := p.ident()
	if name == "" {
		return nil, p.errorf(start, 1, "expected type name")
	}
	dt := &DataType{Nullable: true, Span: p.span.Sub(start, len(name))}

	switch name {
	case "decimal":
		dt.Kind = KindDecimal
		dt.Scale = DefaultDecimalScale
		if p.accept('(') {
			digits, at := p.ident()
			n, err := strconv.Atoi(digits)
			if err != nil || n < 0 || n > maxDecimalScale {
				return nil, p.errorf(at, len(digits), "invalid decimal scale %q", digits)
			}
			dt.Scale = int32(n)
			if err := p.expect(')'); err != nil {
				return nil, err
			}
		}
	case "array":
		dt.Kind = KindArray
		if err := p.expect('<'); err != nil {
			return nil, err
		}
		elem, err := p.parse()
		if err != nil {
			return nil, err
		}
		dt.Element = elem
		if err := p.expect('>'); err != nil {
			return nil, err
		}
	case "enum", "object", "embed":
		dt.Kind = KindObject
		if name == "enum" {
			dt.Kind = KindEnum
		}
		dt.Polymorphic = name == "object"
		if err := p.expect('<'); err != nil {
			return nil, err
		}
		for {
			ref, at := p.ident()
			if ref == "" {
				return nil, p.errorf(at, 1, "expected class name")
			}
			dt.refNames = append(dt.refNames, ref)
			if !p.accept('|') {
				break
			}
		}
		if name != "object" && len(dt.refNames) != 1 {
			return nil, p.errorf(start, p.pos-start, "%s takes exactly one name", name)
		}
		if err := p.expect('>'); err != nil {
			return nil, err
		}
	default:
		k, ok := LookupKind(name)
		if !ok || !k.IsPrimitive() && k != KindString && k != KindBinary {
			return nil, errors.UnknownType(errors.PhaseLoad, dt.Span, name)
		}
		dt.Kind = k
	}

	if p.accept('!') {
		dt.Nullable = false
	}
	p.skipSpace()
	return dt, nil
}

func (s *Set) resolve(dt *DataType) error {
	switch dt.Kind {
	case KindEnum:
		if dt.Enum != nil {
			return nil
		}
		e := s.enums[dt.refNames[0]]
		if e == nil {
			return errors.UnknownType(errors.PhaseLoad, dt.Span, dt.refNames[0])
		}
		dt.Enum = e
	case KindArray:
		return s.resolve(dt.Element)
	case KindObject:
		if len(dt.Classes) > 0 {
			return nil
		}
		for _, name := range dt.refNames {
			c := s.classes[name]
			if c == nil {
				return errors.UnknownType(errors.PhaseLoad, dt.Span, name)
			}
			dt.Classes = append(dt.Classes, c)
		}
	}
	return nil
}
