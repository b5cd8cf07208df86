package lexer

import "fmt"

type TokenType int

const (
	// Special tokens
	Illegal TokenType = iota
	EOF

	// Identifiers and basic type literals
	// (these tokens stand for classes of literals)
	Symbol  // main
	Number  // 12345
	Literal // #t

	LParen          // (
	RParen          // )
	Dot             // .
	Quote           // '
	Quasiquote      // `
	Unquote         // ,
	UnquoteSplicing // ,@
)

func (ty TokenType) String() string {
	switch ty {
	case EOF:
		return "EOF"
	case Symbol:
		return "symbol"
	case Number:
		return "number"
	case Literal:
		return "literal"
	case LParen:
		return "'('"
	case RParen:
		return "')'"
	case Dot:
		return "'.'"
	case Quote:
		return "quote"
	case Quasiquote:
		return "quasiquote"
	case Unquote:
		return "unquote"
	case UnquoteSplicing:
		return "unquote-splicing"
	default:
		return "illegal"
	}
}

type Token struct {
	ty   TokenType
	text string
	span Span
	loc  Location
}

func (tok Token) Type() TokenType { return tok.ty }

func (tok Token) Text() string {
	return tok.text
}

func (tok Token) String() string {
	switch tok.ty {
	case EOF:
		return "EOF"
	}
	return fmt.Sprintf("%q", tok.text)
}

func (tok Token) Span() Span {
	return tok.span
}

// Location is the line and column where the token begins.
func (tok Token) Location() Location {
	return tok.loc
}

func (tok Token) IsEOF() bool {
	return tok.Type() == EOF
}

// Pos is a position withing the input, counted in runes
type Pos uint32

// Span is a region of the input
type Span struct {
	Begin Pos
	End   Pos
}

func (s Span) String() string {
	return fmt.Sprintf("%d-%d", s.Begin, s.End)
}

// Location is a human readable position, both fields count from 1.
type Location struct {
	Line   int
	Column int
}

func (l Location) String() string {
	return fmt.Sprintf("%d:%d", l.Line, l.Column)
}

// Error is a lexical error.
type Error struct {
	Msg  string
	Span Span
	Loc  Location
}

func (e *Error) Error() string {
	return fmt.Sprintf("%v: %s", e.Loc, e.Msg)
}
