package expr

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/wippyai/tickcodec/errors"
)

type tokenType int

const (
	tokEOF tokenType = iota
	tokIdent
	tokNumber
	tokString
	tokOp
	tokLParen
	tokRParen
	tokComma
	tokDot
)

func (t tokenType) String() string {
	switch t {
	case tokEOF:
		return "end of input"
	case tokIdent:
		return "identifier"
	case tokNumber:
		return "number"
	case tokString:
		return "string"
	case tokOp:
		return "operator"
	case tokLParen:
		return "'('"
	case tokRParen:
		return "')'"
	case tokComma:
		return "','"
	case tokDot:
		return "'.'"
	}
	return "unknown"
}

type token struct {
	// Value is the identifier, operator or number text, or the unquoted
	// string contents.
	Value string
	Span  errors.Span
	Type  tokenType
}

// is reports whether t is the operator or keyword s. Keywords match case
// insensitively.
func (t token) is(s string) bool {
	switch t.Type {
	case tokOp:
		return t.Value == s
	case tokIdent:
		return strings.EqualFold(t.Value, s)
	}
	return false
}

var keywords = map[string]bool{
	"and": true, "or": true, "not": true, "is": true,
	"null": true, "true": true, "false": true, "new": true,
}

func isKeyword(s string) bool {
	return keywords[strings.ToLower(s)]
}

type lexer struct {
	src    string
	source string
	pos    int
	line   int
	col    int
}

// tokenize splits expression text into tokens. The last token is always
// tokEOF.
func tokenize(src, source string) ([]token, error) {
	l := &lexer{src: src, source: source, line: 1, col: 1}
	var tokens []token
	for {
		t, err := l.next()
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, t)
		if t.Type == tokEOF {
			return tokens, nil
		}
	}
}

func (l *lexer) span(start, startLine, startCol int) errors.Span {
	return errors.Span{
		Source: l.source,
		Line:   startLine,
		Column: startCol,
		Offset: start,
		Length: l.pos - start,
	}
}

func (l *lexer) advance(n int) {
	for i := 0; i < n && l.pos < len(l.src); i++ {
		if l.src[l.pos] == '\n' {
			l.line++
			l.col = 1
		} else {
			l.col++
		}
		l.pos++
	}
}

func (l *lexer) peekRune() (rune, int) {
	if l.pos >= len(l.src) {
		return utf8.RuneError, 0
	}
	return utf8.DecodeRuneInString(l.src[l.pos:])
}

func (l *lexer) next() (token, error) {
	for l.pos < len(l.src) {
		r, size := l.peekRune()
		if !unicode.IsSpace(r) {
			break
		}
		l.advance(size)
	}
	start, line, col := l.pos, l.line, l.col
	if l.pos >= len(l.src) {
		return token{Type: tokEOF, Span: l.span(start, line, col)}, nil
	}

	c := l.src[l.pos]
	switch {
	case c == '(':
		l.advance(1)
		return token{Type: tokLParen, Value: "(", Span: l.span(start, line, col)}, nil
	case c == ')':
		l.advance(1)
		return token{Type: tokRParen, Value: ")", Span: l.span(start, line, col)}, nil
	case c == ',':
		l.advance(1)
		return token{Type: tokComma, Value: ",", Span: l.span(start, line, col)}, nil
	case c == '.' && !(l.pos+1 < len(l.src) && isDigit(l.src[l.pos+1])):
		l.advance(1)
		return token{Type: tokDot, Value: ".", Span: l.span(start, line, col)}, nil
	case c == '\'':
		return l.string(start, line, col)
	case isDigit(c) || c == '.':
		return l.number(start, line, col), nil
	}

	if op := l.operator(); op != "" {
		l.advance(len(op))
		return token{Type: tokOp, Value: op, Span: l.span(start, line, col)}, nil
	}

	r, size := l.peekRune()
	if r == '_' || r == '$' || unicode.IsLetter(r) {
		for l.pos < len(l.src) {
			r, size = l.peekRune()
			if r != '_' && r != '$' && !unicode.IsLetter(r) && !unicode.IsDigit(r) {
				break
			}
			l.advance(size)
		}
		return token{Type: tokIdent, Value: l.src[start:l.pos], Span: l.span(start, line, col)}, nil
	}

	l.advance(size)
	return token{}, errors.Syntax(l.span(start, line, col), "unexpected character %q", r)
}

var operators = []string{"==", "!=", "<=", ">=", "<>", "=", "<", ">", "+", "-", "*", "/", "%"}

func (l *lexer) operator() string {
	rest := l.src[l.pos:]
	for _, op := range operators {
		if strings.HasPrefix(rest, op) {
			return op
		}
	}
	return ""
}

// string reads a single-quoted literal; a doubled quote stands for one
// quote.
func (l *lexer) string(start, line, col int) (token, error) {
	l.advance(1)
	var b strings.Builder
	for {
		if l.pos >= len(l.src) {
			return token{}, errors.Syntax(l.span(start, line, col), "unterminated string")
		}
		c := l.src[l.pos]
		if c == '\'' {
			if l.pos+1 < len(l.src) && l.src[l.pos+1] == '\'' {
				b.WriteByte('\'')
				l.advance(2)
				continue
			}
			l.advance(1)
			return token{Type: tokString, Value: b.String(), Span: l.span(start, line, col)}, nil
		}
		b.WriteByte(c)
		l.advance(1)
	}
}

func (l *lexer) number(start, line, col int) token {
	for l.pos < len(l.src) && isDigit(l.src[l.pos]) {
		l.advance(1)
	}
	if l.pos < len(l.src) && l.src[l.pos] == '.' {
		l.advance(1)
		for l.pos < len(l.src) && isDigit(l.src[l.pos]) {
			l.advance(1)
		}
	}
	if l.pos < len(l.src) && (l.src[l.pos] == 'e' || l.src[l.pos] == 'E') {
		save, saveLine, saveCol := l.pos, l.line, l.col
		l.advance(1)
		if l.pos < len(l.src) && (l.src[l.pos] == '+' || l.src[l.pos] == '-') {
			l.advance(1)
		}
		if l.pos < len(l.src) && isDigit(l.src[l.pos]) {
			for l.pos < len(l.src) && isDigit(l.src[l.pos]) {
				l.advance(1)
			}
		} else {
			l.pos, l.line, l.col = save, saveLine, saveCol
		}
	}
	return token{Type: tokNumber, Value: l.src[start:l.pos], Span: l.span(start, line, col)}
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}
