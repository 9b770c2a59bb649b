package dsl

import (
	"strings"

	"github.com/alecthomas/participle/v2/lexer"
)

// File is a list of decoder specs separated by semicolons.
type File struct {
	Specs []*Spec `parser:"@@ ( Semicolon @@ )* Semicolon?"`
}

// Spec is one decoder: a protocol name followed by role bindings and
// option assignments.
// Example: spi ssn:0 sclk:1 mosi:2 miso:3 cpha=1 order=lsb
type Spec struct {
	Pos      lexer.Position
	Protocol string  `parser:"@Ident"`
	Items    []*Item `parser:"@@*"`
}

// Item is either a role binding (role:channel) or an option (name=value).
type Item struct {
	Pos     lexer.Position
	Key     string  `parser:"@Ident"`
	Channel *string `parser:"( Colon @Number"`
	Value   *string `parser:"| Equals @( Ident | Number ) )"`
}

// IsBinding reports whether the item binds a role to a channel.
func (it *Item) IsBinding() bool { return it.Channel != nil }

func (it *Item) String() string {
	if it.Channel != nil {
		return it.Key + ":" + *it.Channel
	}
	if it.Value != nil {
		return it.Key + "=" + *it.Value
	}
	return it.Key
}

// String renders the spec in canonical text form.
func (s *Spec) String() string {
	parts := make([]string, 0, len(s.Items)+1)
	parts = append(parts, s.Protocol)
	for _, it := range s.Items {
		parts = append(parts, it.String())
	}
	return strings.Join(parts, " ")
}
