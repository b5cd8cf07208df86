package parser

import (
	"errors"
	"fmt"
	"io"
	"iter"
	"strings"

	"ufork.dev/uscheme/crlf"
	"ufork.dev/uscheme/internal/ringbuf"
	"ufork.dev/uscheme/scheme/lexer"
)

type (
	Token = lexer.Token
	Pos   = lexer.Pos
	Node  = crlf.Node
)

// Span is the region covered by a form, and the spans of its elements.
// A dotted tail is the last child.
type Span struct {
	Bound    lexer.Span
	Loc      lexer.Location
	Children []Span
}

// Error is returned for all reader failures.
// Lexical errors wrap a *lexer.Error.
type Error struct {
	Msg  string
	Span lexer.Span
	Loc  lexer.Location
	// Cause is set for lexical errors.
	Cause error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%v: %s", e.Loc, e.Msg)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// IsLexical returns true if err was caused by a malformed token.
func IsLexical(err error) bool {
	var lexErr *lexer.Error
	return errors.As(err, &lexErr)
}

type Parser struct {
	lex   *lexer.Lexer
	inBuf ringbuf.RingBuf[Token]
	done  bool
}

func NewParser(r io.RuneReader) *Parser {
	return &Parser{
		lex:   lexer.NewLexer(r),
		inBuf: ringbuf.New[Token](1),
	}
}

// ParseSExpr reads the next top-level form.
// At the end of the input it returns a nil Node and no error.
func (p *Parser) ParseSExpr() (Span, Node, error) {
	if p.done {
		return Span{}, nil, nil
	}
	tok, err := p.peek()
	if err != nil {
		return Span{}, nil, err
	}
	if tok.IsEOF() {
		p.done = true
		return Span{}, nil, nil
	}
	return p.parseOneExpr()
}

func (p *Parser) parseOneExpr() (Span, Node, error) {
	tok, err := p.next()
	if err != nil {
		return Span{}, nil, err
	}
	leaf := Span{Bound: tok.Span(), Loc: tok.Location()}
	switch tok.Type() {
	case lexer.EOF:
		return Span{}, nil, syntaxErr(tok, "unexpected end of input")
	case lexer.Number:
		n, err := lexer.ParseNumber(tok.Text())
		if err != nil {
			return Span{}, nil, syntaxErr(tok, err.Error())
		}
		return leaf, crlf.Fixnum(n), nil
	case lexer.Literal:
		lit, _ := lexer.ParseLiteral(tok.Text())
		return leaf, lit, nil
	case lexer.Symbol:
		return leaf, crlf.Symbol(tok.Text()), nil
	case lexer.LParen:
		return p.parseList(tok)
	case lexer.Quote:
		return p.parseQuoted(tok, "quote")
	case lexer.Quasiquote:
		return p.parseQuoted(tok, "quasiquote")
	case lexer.Unquote:
		return p.parseQuoted(tok, "unquote")
	case lexer.UnquoteSplicing:
		return p.parseQuoted(tok, "unquote-splicing")
	case lexer.Dot:
		return Span{}, nil, syntaxErr(tok, "unexpected dot")
	case lexer.RParen:
		return Span{}, nil, syntaxErr(tok, "unexpected ')'")
	default:
		return Span{}, nil, syntaxErr(tok, fmt.Sprintf("unexpected token %v", tok))
	}
}

// parseQuoted expands a quote shorthand into (name x)
func (p *Parser) parseQuoted(tok Token, name string) (Span, Node, error) {
	span, x, err := p.parseOneExpr()
	if err != nil {
		return Span{}, nil, err
	}
	ret := Span{
		Bound:    lexer.Span{Begin: tok.Span().Begin, End: span.Bound.End},
		Loc:      tok.Location(),
		Children: []Span{{Bound: tok.Span(), Loc: tok.Location()}, span},
	}
	return ret, crlf.List(crlf.Symbol(name), x), nil
}

// parseList is called after the opening paren has been consumed
func (p *Parser) parseList(open Token) (Span, Node, error) {
	span := Span{Bound: open.Span(), Loc: open.Location()}
	var elems []Node
	var tail Node = crlf.Nil
	for {
		tok, err := p.next()
		if err != nil {
			return Span{}, nil, err
		}
		switch tok.Type() {
		case lexer.RParen:
			span.Bound.End = tok.Span().End
			return span, buildList(elems, tail), nil
		case lexer.EOF:
			return Span{}, nil, syntaxErr(tok, "unexpected end of input, expected ')'")
		case lexer.Dot:
			if len(elems) == 0 {
				return Span{}, nil, syntaxErr(tok, "unexpected dot")
			}
			tailSpan, x, err := p.parseOneExpr()
			if err != nil {
				return Span{}, nil, err
			}
			span.Children = append(span.Children, tailSpan)
			tail = x
			closeTok, err := p.next()
			if err != nil {
				return Span{}, nil, err
			}
			if closeTok.Type() != lexer.RParen {
				return Span{}, nil, syntaxErr(closeTok, "expected ')'")
			}
			span.Bound.End = closeTok.Span().End
			return span, buildList(elems, tail), nil
		default:
			p.back(tok)
			span2, x, err := p.parseOneExpr()
			if err != nil {
				return Span{}, nil, err
			}
			span.Children = append(span.Children, span2)
			elems = append(elems, x)
		}
	}
}

func buildList(elems []Node, tail Node) Node {
	for i := len(elems) - 1; i >= 0; i-- {
		tail = crlf.NewPair(elems[i], tail)
	}
	return tail
}

func (p *Parser) fill(n int) error {
	for p.inBuf.Len() < n {
		tok, err := p.lex.Next()
		if err != nil {
			var lexErr *lexer.Error
			if errors.As(err, &lexErr) {
				return &Error{Msg: lexErr.Msg, Span: lexErr.Span, Loc: lexErr.Loc, Cause: lexErr}
			}
			return err
		}
		p.inBuf.PushBack(tok)
	}
	return nil
}

func (p *Parser) next() (Token, error) {
	if err := p.fill(1); err != nil {
		return Token{}, err
	}
	return p.inBuf.PopFront(), nil
}

func (p *Parser) peek() (Token, error) {
	if err := p.fill(1); err != nil {
		return Token{}, err
	}
	return p.inBuf.At(0), nil
}

func (p *Parser) back(tok Token) {
	p.inBuf.PushFront(tok)
}

func syntaxErr(tok Token, msg string) *Error {
	return &Error{Msg: msg, Span: tok.Span(), Loc: tok.Location()}
}

// ReadAll parses every form from p.
// The root span has one child per form.
func ReadAll(p *Parser) (rootSpan Span, ret []Node, _ error) {
	for {
		span, e, err := p.ParseSExpr()
		if err != nil {
			return span, nil, err
		}
		if e == nil {
			break
		}
		rootSpan.Children = append(rootSpan.Children, span)
		ret = append(ret, e)
	}
	if len(rootSpan.Children) > 0 {
		rootSpan.Bound.Begin = rootSpan.Children[0].Bound.Begin
		rootSpan.Bound.End = rootSpan.Children[len(rootSpan.Children)-1].Bound.End
		rootSpan.Loc = rootSpan.Children[0].Loc
	}
	return rootSpan, ret, nil
}

// Forms returns the top-level forms of src, one at a time.
// The sequence stops after the first error.
func Forms(src string) iter.Seq2[Node, error] {
	return func(yield func(Node, error) bool) {
		p := NewParser(strings.NewReader(src))
		for {
			_, x, err := p.ParseSExpr()
			if err != nil {
				yield(nil, err)
				return
			}
			if x == nil {
				return
			}
			if !yield(x, nil) {
				return
			}
		}
	}
}
