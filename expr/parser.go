package expr

import (
	"strings"

	"github.com/wippyai/tickcodec/errors"
)

type parser struct {
	tokens []token
	pos    int
}

// parse turns expression text into a syntax tree.
func parse(src, source string) (node, error) {
	tokens, err := tokenize(src, source)
	if err != nil {
		return nil, err
	}
	p := &parser{tokens: tokens}
	n, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if t := p.peek(); t.Type != tokEOF {
		return nil, errors.Syntax(t.Span, "unexpected %s %q", t.Type, t.Value)
	}
	return n, nil
}

func (p *parser) peek() token {
	return p.tokens[p.pos]
}

func (p *parser) next() token {
	t := p.tokens[p.pos]
	if t.Type != tokEOF {
		p.pos++
	}
	return t
}

func (p *parser) accept(s string) (token, bool) {
	if t := p.peek(); t.is(s) {
		return p.next(), true
	}
	return token{}, false
}

func (p *parser) expect(typ tokenType) (token, error) {
	t := p.next()
	if t.Type != typ {
		if t.Type == tokEOF {
			return t, errors.Syntax(t.Span, "expected %s, got end of input", typ)
		}
		return t, errors.Syntax(t.Span, "expected %s, got %q", typ, t.Value)
	}
	return t, nil
}

func (p *parser) binary(op token, x, y node) node {
	return &binaryNode{
		x:      x,
		y:      y,
		op:     strings.ToLower(op.Value),
		opSpan: op.Span,
		sp:     errors.Join(x.span(), y.span()),
	}
}

func (p *parser) parseOr() (node, error) {
	x, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for {
		op, ok := p.accept("or")
		if !ok {
			return x, nil
		}
		y, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		x = p.binary(op, x, y)
	}
}

func (p *parser) parseAnd() (node, error) {
	x, err := p.parseNot()
	if err != nil {
		return nil, err
	}
	for {
		op, ok := p.accept("and")
		if !ok {
			return x, nil
		}
		y, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		x = p.binary(op, x, y)
	}
}

func (p *parser) parseNot() (node, error) {
	if op, ok := p.accept("not"); ok {
		x, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		return &unaryNode{x: x, op: "not", sp: errors.Join(op.Span, x.span())}, nil
	}
	return p.parseCmp()
}

func (p *parser) parseCmp() (node, error) {
	x, err := p.parseAdd()
	if err != nil {
		return nil, err
	}
	t := p.peek()
	switch {
	case t.Type == tokOp && isComparison(t.Value):
		p.next()
		y, err := p.parseAdd()
		if err != nil {
			return nil, err
		}
		return p.binary(t, x, y), nil
	case t.is("is"):
		p.next()
		_, not := p.accept("not")
		end, ok := p.accept("null")
		if !ok {
			nt := p.peek()
			return nil, errors.Syntax(nt.Span, "expected null after is")
		}
		return &isNullNode{x: x, not: not, sp: errors.Join(x.span(), end.Span)}, nil
	}
	return x, nil
}

func isComparison(op string) bool {
	switch op {
	case "==", "=", "!=", "<>", "<", "<=", ">", ">=":
		return true
	}
	return false
}

func (p *parser) parseAdd() (node, error) {
	x, err := p.parseMul()
	if err != nil {
		return nil, err
	}
	for {
		t := p.peek()
		if !t.is("+") && !t.is("-") {
			return x, nil
		}
		p.next()
		y, err := p.parseMul()
		if err != nil {
			return nil, err
		}
		x = p.binary(t, x, y)
	}
}

func (p *parser) parseMul() (node, error) {
	x, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for {
		t := p.peek()
		if !t.is("*") && !t.is("/") && !t.is("%") {
			return x, nil
		}
		p.next()
		y, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		x = p.binary(t, x, y)
	}
}

func (p *parser) parseUnary() (node, error) {
	if op, ok := p.accept("-"); ok {
		x, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &unaryNode{x: x, op: "-", sp: errors.Join(op.Span, x.span())}, nil
	}
	return p.parsePostfix()
}

func (p *parser) parsePostfix() (node, error) {
	x, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	for p.peek().Type == tokDot {
		p.next()
		name, err := p.expect(tokIdent)
		if err != nil {
			return nil, err
		}
		x = &memberNode{x: x, name: name.Value, nameSpan: name.Span, sp: errors.Join(x.span(), name.Span)}
	}
	return x, nil
}

func (p *parser) parsePrimary() (node, error) {
	t := p.next()
	switch t.Type {
	case tokNumber:
		return &literalNode{kind: litNumber, text: t.Value, sp: t.Span}, nil
	case tokString:
		return &literalNode{kind: litString, text: t.Value, sp: t.Span}, nil
	case tokLParen:
		x, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(tokRParen); err != nil {
			return nil, err
		}
		return x, nil
	case tokIdent:
		switch strings.ToLower(t.Value) {
		case "true", "false":
			return &literalNode{kind: litBool, text: strings.ToLower(t.Value), sp: t.Span}, nil
		case "null":
			return &literalNode{kind: litNull, text: "null", sp: t.Span}, nil
		case "new":
			return p.parseNew(t)
		}
		if isKeyword(t.Value) {
			return nil, errors.Syntax(t.Span, "unexpected keyword %q", t.Value)
		}
		if p.peek().Type == tokLParen {
			return p.parseCall(t)
		}
		return &identNode{name: t.Value, sp: t.Span}, nil
	case tokEOF:
		return nil, errors.Syntax(t.Span, "unexpected end of input")
	}
	return nil, errors.Syntax(t.Span, "unexpected %s %q", t.Type, t.Value)
}

func (p *parser) parseCall(name token) (node, error) {
	p.next()
	call := &callNode{name: strings.ToLower(name.Value), nameSpan: name.Span}
	if end, ok := p.acceptType(tokRParen); ok {
		call.sp = errors.Join(name.Span, end.Span)
		return call, nil
	}
	for {
		arg, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		call.args = append(call.args, arg)
		if _, ok := p.acceptType(tokComma); ok {
			continue
		}
		end, err := p.expect(tokRParen)
		if err != nil {
			return nil, err
		}
		call.sp = errors.Join(name.Span, end.Span)
		return call, nil
	}
}

func (p *parser) parseNew(kw token) (node, error) {
	class, err := p.parseClassName()
	if err != nil {
		return nil, err
	}
	n := &newNode{class: class.Value, classSpan: class.Span}
	if _, err := p.expect(tokLParen); err != nil {
		return nil, err
	}
	if end, ok := p.acceptType(tokRParen); ok {
		n.sp = errors.Join(kw.Span, end.Span)
		return n, nil
	}
	for {
		field, err := p.expect(tokIdent)
		if err != nil {
			return nil, err
		}
		if _, ok := p.accept("="); !ok {
			t := p.peek()
			return nil, errors.Syntax(t.Span, "expected '=' after field name %s", field.Value)
		}
		v, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		n.args = append(n.args, fieldArg{name: field.Value, nameSpan: field.Span, value: v})
		if _, ok := p.acceptType(tokComma); ok {
			continue
		}
		end, err := p.expect(tokRParen)
		if err != nil {
			return nil, err
		}
		n.sp = errors.Join(kw.Span, end.Span)
		return n, nil
	}
}

// parseClassName reads a possibly dotted class name as one token.
func (p *parser) parseClassName() (token, error) {
	t, err := p.expect(tokIdent)
	if err != nil {
		return t, err
	}
	for p.peek().Type == tokDot {
		p.next()
		part, err := p.expect(tokIdent)
		if err != nil {
			return t, err
		}
		t.Value += "." + part.Value
		t.Span = errors.Join(t.Span, part.Span)
	}
	return t, nil
}

func (p *parser) acceptType(typ tokenType) (token, bool) {
	if p.peek().Type == typ {
		return p.next(), true
	}
	return token{}, false
}
