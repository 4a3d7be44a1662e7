package edmx

import (
	"strings"

	"github.com/alecthomas/participle/v2/lexer"
)

// connLexer tokenizes keyword/value connection strings.
//
// Whitespace is significant: keywords such as "provider connection string"
// span several Text tokens and unquoted values keep their inner spacing.
var connLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "String", Pattern: `"(?:[^"]|"")*"|'(?:[^']|'')*'`},
	{Name: "Punct", Pattern: `[;=]`},
	{Name: "Text", Pattern: `[^;="'\s]+`},
	{Name: "Whitespace", Pattern: `\s+`},
})

// unquote strips the surrounding quote and collapses doubled quotes.
func unquote(s string) string {
	if len(s) < 2 {
		return s
	}

	q := s[:1]

	return strings.ReplaceAll(s[1:len(s)-1], q+q, q)
}

// normalizeKeyword lowercases a keyword and collapses inner whitespace.
func normalizeKeyword(parts []string) string {
	return strings.ToLower(strings.Join(strings.Fields(strings.Join(parts, "")), " "))
}
