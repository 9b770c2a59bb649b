package dsl

import (
	"errors"
	"fmt"
	"strings"

	"github.com/alecthomas/participle/v2"
)

// ErrSyntax reports text that does not match the decoder spec grammar.
var ErrSyntax = errors.New("dsl: syntax error")

// ErrEmpty reports text with no decoder specs in it.
var ErrEmpty = errors.New("dsl: no decoder specs")

var parser = participle.MustBuild[File](
	participle.Lexer(SpecLexer),
	participle.Elide("Comment", "Whitespace"),
	participle.UseLookahead(2),
)

// Parse parses one or more semicolon-separated decoder specs.
func Parse(text string) ([]*Spec, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmpty
	}
	f, err := parser.ParseString("", text)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSyntax, err)
	}
	if len(f.Specs) == 0 {
		return nil, ErrEmpty
	}
	return f.Specs, nil
}

// ParseOne parses text that must hold exactly one spec.
func ParseOne(text string) (*Spec, error) {
	specs, err := Parse(text)
	if err != nil {
		return nil, err
	}
	if len(specs) != 1 {
		return nil, fmt.Errorf("%w: expected one decoder spec, got %d", ErrSyntax, len(specs))
	}
	return specs[0], nil
}
