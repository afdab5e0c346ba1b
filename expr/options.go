package expr

import (
	"go.uber.org/zap"

	"github.com/wippyai/tickcodec/codec"
	"github.com/wippyai/tickcodec/schema"
)

type config struct {
	set    *schema.Set
	codecs *codec.Compiler
	log    *zap.Logger
	source string
}

// Option configures Compile.
type Option func(*config)

// WithSet supplies the classes "new" expressions may instantiate.
func WithSet(s *schema.Set) Option {
	return func(c *config) { c.set = s }
}

// WithCompiler shares a codec compiler, and its cache, with the program.
// By default a compiler over the WithSet classes is created per call.
func WithCompiler(cc *codec.Compiler) Option {
	return func(c *config) { c.codecs = cc }
}

// WithLogger overrides the package logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *config) { c.log = l }
}

// WithSource names the expression text in diagnostic spans.
func WithSource(name string) Option {
	return func(c *config) { c.source = name }
}
