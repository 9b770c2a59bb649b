package dsl

import (
	"github.com/alecthomas/participle/v2/lexer"
)

// SpecLexer tokenizes decoder spec strings such as
//
//	spi ssn:0 sclk:1 mosi:2 cpol=0 bits=8; i2c scl:4 sda:5
var SpecLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Comment", Pattern: `#[^\n]*`},
	{Name: "Whitespace", Pattern: `[\s\t\n\r]+`},
	{Name: "Number", Pattern: `0[xX][0-9a-fA-F]+|-?[0-9]+`},
	{Name: "Ident", Pattern: `[A-Za-z_][A-Za-z0-9_]*`},
	{Name: "Colon", Pattern: `:`},
	{Name: "Equals", Pattern: `=`},
	{Name: "Semicolon", Pattern: `;`},
})
