package parser

import (
	"fmt"

	"github.com/routlang/routc/internal/lexer"
)

// ParseError is a fatal syntax error: the offending token, what was
// expected, and its location. The parser aborts at the first one.
type ParseError struct {
	Message  string
	Expected string
	Got      lexer.Token
	Pos      lexer.Position
}

func (e *ParseError) Error() string {
	if e.Expected != "" {
		return fmt.Sprintf("%s: expected %s, got %s %q", e.Pos, e.Expected, e.Got.Type, e.Got.Literal)
	}
	return fmt.Sprintf("%s: %s", e.Pos, e.Message)
}
