package expr

import "github.com/wippyai/tickcodec/errors"

type node interface {
	span() errors.Span
}

type literalKind int

const (
	litNumber literalKind = iota
	litString
	litBool
	litNull
)

type literalNode struct {
	text string
	sp   errors.Span
	kind literalKind
}

type identNode struct {
	name string
	sp   errors.Span
}

type memberNode struct {
	x        node
	name     string
	nameSpan errors.Span
	sp       errors.Span
}

// unaryNode is "-x" or "not x".
type unaryNode struct {
	x  node
	op string
	sp errors.Span
}

type binaryNode struct {
	x, y   node
	op     string
	opSpan errors.Span
	sp     errors.Span
}

type isNullNode struct {
	x   node
	sp  errors.Span
	not bool
}

type callNode struct {
	name     string
	args     []node
	nameSpan errors.Span
	sp       errors.Span
}

type fieldArg struct {
	value    node
	name     string
	nameSpan errors.Span
}

type newNode struct {
	class     string
	args      []fieldArg
	classSpan errors.Span
	sp        errors.Span
}

func (n *literalNode) span() errors.Span { return n.sp }
func (n *identNode) span() errors.Span   { return n.sp }
func (n *memberNode) span() errors.Span  { return n.sp }
func (n *unaryNode) span() errors.Span   { return n.sp }
func (n *binaryNode) span() errors.Span  { return n.sp }
func (n *isNullNode) span() errors.Span  { return n.sp }
func (n *callNode) span() errors.Span    { return n.sp }
func (n *newNode) span() errors.Span     { return n.sp }
