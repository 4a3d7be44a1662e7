package edmx

import (
	"github.com/alecthomas/participle/v2"
)

// connGrammar is the participle grammar for a connection string.
type connGrammar struct {
	Pairs []*connPair `( ";" | @@ )*`
}

type connPair struct {
	Key   []string   `@(Text | Whitespace)+ "="`
	Value *connValue `Whitespace? @@?`
}

type connValue struct {
	Quoted *string  `  @String Whitespace?`
	Raw    []string `| @(Text | Whitespace | "=")+`
}

var connParser = participle.MustBuild[connGrammar](
	participle.Lexer(connLexer),
	participle.UseLookahead(2),
)
