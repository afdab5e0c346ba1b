package schema

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/wippyai/tickcodec/errors"
)

// Schema documents look like:
//
//	enums:
//	  - name: Side
//	    symbols: [BUY, SELL]
//	classes:
//	  - name: deltix.MarketMessage
//	    abstract: true
//	    fields:
//	      - {name: symbol, type: string}
//	  - name: deltix.Trade
//	    parent: deltix.MarketMessage
//	    fields:
//	      - {name: price, type: decimal(4), nullable: false}
//	      - {name: side, type: enum<Side>}
//	      - {name: session, type: time_of_day, default: "09:30"}
//	      - {name: venue, type: string, static: true, value: XNYS}
type documentDSL struct {
	Enums   []yaml.Node `yaml:"enums"`
	Classes []yaml.Node `yaml:"classes"`
}

type enumDSL struct {
	Name    string    `yaml:"name"`
	Symbols yaml.Node `yaml:"symbols"`
}

type classDSL struct {
	Name     string      `yaml:"name"`
	Title    string      `yaml:"title,omitempty"`
	Parent   yaml.Node   `yaml:"parent,omitempty"`
	Fields   []yaml.Node `yaml:"fields"`
	Abstract bool        `yaml:"abstract,omitempty"`
}

type fieldDSL struct {
	Name     string     `yaml:"name"`
	Title    string     `yaml:"title,omitempty"`
	Type     yaml.Node  `yaml:"type"`
	Default  yaml.Node `yaml:"default,omitempty"`
	Value    yaml.Node `yaml:"value,omitempty"`
	Nullable *bool     `yaml:"nullable,omitempty"`
	Static   bool      `yaml:"static,omitempty"`
}

// LoadFile reads a schema document from disk.
func LoadFile(path string) (*Set, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseLoad, errors.KindInvalidData, err, "read schema "+path)
	}
	return Load(data, path)
}

// Load parses a schema document. source names the document in spans.
// The first problem found aborts loading.
func Load(data []byte, source string) (*Set, error) {
	var doc documentDSL
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, errors.New(errors.PhaseLoad, errors.KindSyntax).
			Span(errors.Span{Source: source, Line: 1, Column: 1}).
			Cause(err).
			Detail("malformed schema document").
			Build()
	}

	l := &loader{source: source, set: NewSet(), parents: make(map[*RecordClass]yaml.Node)}
	for i := range doc.Enums {
		if err := l.loadEnum(&doc.Enums[i]); err != nil {
			return nil, err
		}
	}
	var classes []*RecordClass
	for i := range doc.Classes {
		c, err := l.loadClass(&doc.Classes[i])
		if err != nil {
			return nil, err
		}
		if _, dup := l.byName(classes, c.Name); dup {
			return nil, errors.New(errors.PhaseLoad, errors.KindDuplicate).
				DataType(c.Name).
				Span(c.Span).
				Detail("class %q declared twice", c.Name).
				Build()
		}
		classes = append(classes, c)
	}
	if err := l.link(classes); err != nil {
		return nil, err
	}
	return l.set, nil
}

type loader struct {
	set     *Set
	parents map[*RecordClass]yaml.Node
	source  string
}

func (l *loader) span(n *yaml.Node, text string) errors.Span {
	col := n.Column
	if n.Style&(yaml.DoubleQuotedStyle|yaml.SingleQuotedStyle) != 0 {
		col++
	}
	return errors.Span{Source: l.source, Line: n.Line, Column: col, Length: len(text)}
}

func (l *loader) decodeErr(n *yaml.Node, err error, what string) error {
	return errors.New(errors.PhaseLoad, errors.KindSyntax).
		Span(l.span(n, "")).
		Cause(err).
		Detail("malformed %s", what).
		Build()
}

func (l *loader) loadEnum(n *yaml.Node) error {
	var d enumDSL
	if err := n.Decode(&d); err != nil {
		return l.decodeErr(n, err, "enum")
	}
	e := &EnumClass{Name: d.Name, Span: l.span(n, d.Name)}
	switch d.Symbols.Kind {
	case yaml.SequenceNode:
		var names []string
		if err := d.Symbols.Decode(&names); err != nil {
			return l.decodeErr(&d.Symbols, err, "enum symbols")
		}
		for i, name := range names {
			e.Symbols = append(e.Symbols, EnumSymbol{Name: name, Value: int32(i)})
		}
	case yaml.MappingNode:
		for i := 0; i+1 < len(d.Symbols.Content); i += 2 {
			var v int32
			if err := d.Symbols.Content[i+1].Decode(&v); err != nil {
				return l.decodeErr(d.Symbols.Content[i+1], err, "enum value")
			}
			e.Symbols = append(e.Symbols, EnumSymbol{Name: d.Symbols.Content[i].Value, Value: v})
		}
	default:
		return errors.New(errors.PhaseLoad, errors.KindSyntax).
			Span(e.Span).
			Detail("enum %q has no symbols", d.Name).
			Build()
	}
	return l.set.AddEnum(e)
}

func (l *loader) loadClass(n *yaml.Node) (*RecordClass, error) {
	var d classDSL
	if err := n.Decode(&d); err != nil {
		return nil, l.decodeErr(n, err, "class")
	}
	if d.Name == "" {
		return nil, errors.New(errors.PhaseLoad, errors.KindSyntax).
			Span(l.span(n, "")).
			Detail("class without a name").
			Build()
	}
	c := &RecordClass{
		Name:     d.Name,
		Title:    d.Title,
		Abstract: d.Abstract,
		Span:     l.span(n, d.Name),
	}
	if d.Parent.Kind != 0 {
		l.parents[c] = d.Parent
	}
	for i := range d.Fields {
		f, err := l.loadField(&d.Fields[i])
		if err != nil {
			return nil, err
		}
		c.Fields = append(c.Fields, f)
	}
	return c, nil
}

func (l *loader) loadField(n *yaml.Node) (*Field, error) {
	var d fieldDSL
	if err := n.Decode(&d); err != nil {
		return nil, l.decodeErr(n, err, "field")
	}
	f := &Field{
		Name:   d.Name,
		Title:  d.Title,
		Static: d.Static,
		Span:   l.span(n, d.Name),
	}
	if d.Type.Kind != yaml.ScalarNode {
		return nil, errors.New(errors.PhaseLoad, errors.KindSyntax).
			Span(f.Span).
			Detail("field %q needs a type", d.Name).
			Build()
	}
	dt, err := ParseType(d.Type.Value, l.span(&d.Type, d.Type.Value))
	if err != nil {
		return nil, err
	}
	if d.Nullable != nil {
		dt.Nullable = *d.Nullable
	}
	f.Type = dt
	if d.Default.Kind != 0 {
		lit := l.literal(&d.Default)
		f.Default = &lit
	}
	if f.Static {
		if d.Value.Kind == 0 {
			e := errors.FieldMissing(errors.PhaseLoad, []string{d.Name}, "value")
			e.Span = f.Span
			e.Detail = fmt.Sprintf("static field %q needs a value", d.Name)
			return nil, e
		}
		f.Value = l.literal(&d.Value)
	}
	return f, nil
}

func (l *loader) literal(n *yaml.Node) Literal {
	quoted := n.Style&(yaml.DoubleQuotedStyle|yaml.SingleQuotedStyle) != 0
	text := n.Value
	if n.Tag == "!!null" && !quoted {
		text = "null"
	}
	return Literal{Text: text, Quoted: quoted, Span: l.span(n, n.Value)}
}

func (l *loader) byName(classes []*RecordClass, name string) (*RecordClass, bool) {
	for _, c := range classes {
		if c.Name == name {
			return c, true
		}
	}
	return nil, false
}

// link resolves parents, finishes classes parents-first and resolves
// field type references.
func (l *loader) link(classes []*RecordClass) error {
	for _, c := range classes {
		pn, ok := l.parents[c]
		if !ok {
			continue
		}
		p, found := l.byName(classes, pn.Value)
		if !found {
			return errors.UnknownType(errors.PhaseLoad, l.span(&pn, pn.Value), pn.Value)
		}
		c.Parent = p
	}

	state := make(map[*RecordClass]int) // 1 visiting, 2 done
	var visit func(c *RecordClass) error
	visit = func(c *RecordClass) error {
		switch state[c] {
		case 1:
			return errors.New(errors.PhaseLoad, errors.KindInvalidData).
				DataType(c.Name).
				Span(c.Span).
				Detail("class %q extends itself", c.Name).
				Build()
		case 2:
			return nil
		}
		state[c] = 1
		if c.Parent != nil {
			if err := visit(c.Parent); err != nil {
				return err
			}
		}
		state[c] = 2
		return c.finish()
	}
	for _, c := range classes {
		if err := visit(c); err != nil {
			return err
		}
	}
	if err := l.set.Add(classes...); err != nil {
		return err
	}
	for _, c := range classes {
		for _, f := range c.Fields {
			if err := l.set.resolve(f.Type); err != nil {
				return err
			}
		}
	}
	return nil
}
