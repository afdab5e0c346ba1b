package errors

import "strconv"

// Span locates a fragment of schema or expression text.
// Line and Column are 1-based; Offset and Length are byte based.
// The zero Span means "no location".
type Span struct {
	Source string
	Line   int
	Column int
	Offset int
	Length int
}

// IsValid reports whether the span points somewhere.
func (s Span) IsValid() bool {
	return s.Line > 0
}

// String renders source:line:column.
func (s Span) String() string {
	if !s.IsValid() {
		return ""
	}
	src := s.Source
	if src == "" {
		src = "<input>"
	}
	return src + ":" + strconv.Itoa(s.Line) + ":" + strconv.Itoa(s.Column)
}

// Sub returns the span of length n that starts off bytes into s on the
// same line.
func (s Span) Sub(off, n int) Span {
	if !s.IsValid() {
		return s
	}
	return Span{
		Source: s.Source,
		Line:   s.Line,
		Column: s.Column + off,
		Offset: s.Offset + off,
		Length: n,
	}
}

// Join returns the smallest span covering a and b. Both must come from
// the same source.
func Join(a, b Span) Span {
	if !a.IsValid() {
		return b
	}
	if !b.IsValid() {
		return a
	}
	if b.Offset < a.Offset {
		a, b = b, a
	}
	end := b.Offset + b.Length
	if a.Offset+a.Length > end {
		end = a.Offset + a.Length
	}
	a.Length = end - a.Offset
	return a
}
