package lexer

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"ufork.dev/uscheme/crlf"
)

type stateFunc func() stateFunc

type Lexer struct {
	r io.RuneReader

	peeking   []rune
	err       error
	state     stateFunc
	bufOffset Pos
	bufLoc    Location
	buf       []rune
	output    chan Token
}

func NewLexer(r io.RuneReader) *Lexer {
	l := &Lexer{
		r: r,

		bufLoc: Location{Line: 1, Column: 1},
		output: make(chan Token, 2),
	}
	l.state = l.lexInit
	return l
}

func (l *Lexer) Next() (Token, error) {
	for len(l.output) == 0 && l.err == nil {
		nextState := l.state()
		l.state = nextState
	}
	if len(l.output) > 0 {
		return <-l.output, nil
	}
	return Token{}, l.err
}

// emit creates a token from the current buffer with type ty and emits it.
// emit clears the buffer
func (l *Lexer) emit(ty TokenType) {
	if ty == EOF {
		l.buf = l.buf[:0]
	}
	tokSize := Pos(len(l.buf))
	l.output <- Token{
		ty: ty,
		span: Span{
			Begin: l.bufOffset,
			End:   l.bufOffset + tokSize,
		},
		loc:  l.bufLoc,
		text: string(l.buf),
	}
	l.discard()
}

// discard drops the buffer, advancing the position past it.
func (l *Lexer) discard() {
	for _, r := range l.buf {
		l.advance(r)
	}
	l.buf = l.buf[:0]
}

func (l *Lexer) advance(r rune) {
	l.bufOffset++
	if r == '\n' {
		l.bufLoc.Line++
		l.bufLoc.Column = 1
	} else {
		l.bufLoc.Column++
	}
}

// read consumes input
// if an error is encountered it sets l.err and returns eofRune
func (l *Lexer) read() rune {
	if len(l.peeking) > 0 {
		var r rune
		l.peeking, r = pop(l.peeking)
		l.buf = append(l.buf, r)
		return r
	}
	r, _, err := l.r.ReadRune()
	if err != nil {
		if err != io.EOF {
			l.err = err
		}
		r = eofRune
	}
	l.buf = append(l.buf, r)
	return r
}

// back puts the last rune read back into the input, ahead of everything.
func (l *Lexer) back() {
	var r rune
	l.buf, r = pop(l.buf)
	l.peeking = append(l.peeking, r)
}

// peek returns the result of the next call to read without affecting the lexer's position.
func (l *Lexer) peek() rune {
	if len(l.peeking) == 0 {
		l.read()
		l.back()
	}
	return l.peeking[len(l.peeking)-1]
}

// lexInit is the initial state of the lexer
func (l *Lexer) lexInit() stateFunc {
	r := l.read()
	switch {
	case r == eofRune:
		l.back()
		return l.lexEnd
	case isWhitespace(r):
		l.back()
		return l.skipWhitespace
	case r == ';':
		return l.skipComment
	case r == '(':
		l.emit(LParen)
	case r == ')':
		l.emit(RParen)
	case r == '.':
		l.emit(Dot)
	case r == '\'':
		l.emit(Quote)
	case r == '`':
		l.emit(Quasiquote)
	case r == ',':
		if l.peek() == '@' {
			l.read()
			l.emit(UnquoteSplicing)
		} else {
			l.emit(Unquote)
		}
	default:
		// anything else begins a name, even if it is not a name character
		return l.lexName
	}
	return l.lexInit
}

func (l *Lexer) lexName() stateFunc {
	l.accum(isNameRune)
	text := string(l.buf)
	switch {
	case strings.HasPrefix(text, "#"):
		if _, ok := ParseLiteral(text); !ok {
			return l.errorf("unknown literal %q", text)
		}
		l.emit(Literal)
	case IsNumeral(text):
		if _, err := ParseNumber(text); err != nil {
			return l.errorf("%v", err)
		}
		l.emit(Number)
	default:
		l.emit(Symbol)
	}
	return l.lexInit
}

func (l *Lexer) skipComment() stateFunc {
	l.accum(func(r rune) bool {
		return r != '\n' && r != eofRune
	})
	l.discard()
	return l.lexInit
}

// lexEnd is the terminal state of the lexer, indicating that it will only return EOF tokens.
func (l *Lexer) lexEnd() stateFunc {
	l.emit(EOF)
	return l.lexEnd
}

func (l *Lexer) accum(fn func(rune) bool) {
	for {
		r := l.read()
		if r == eofRune || !fn(r) {
			l.back()
			return
		}
	}
}

// skipWhitespace advances through the whitespace without emitting any tokens.
func (l *Lexer) skipWhitespace() stateFunc {
	l.accum(isWhitespace)
	l.discard()
	return l.lexInit
}

func (l *Lexer) errorf(fstr string, args ...any) stateFunc {
	l.err = &Error{
		Msg:  fmt.Sprintf(fstr, args...),
		Span: Span{Begin: l.bufOffset, End: l.bufOffset + Pos(len(l.buf))},
		Loc:  l.bufLoc,
	}
	return nil
}

// ParseLiteral returns the literal spelled by a # token.
func ParseLiteral(text string) (crlf.Literal, bool) {
	switch text {
	case "#?":
		return crlf.Undef, true
	case "#nil":
		return crlf.Nil, true
	case "#f":
		return crlf.False, true
	case "#t":
		return crlf.True, true
	case "#unit":
		return crlf.Unit, true
	default:
		return 0, false
	}
}

// IsNumeral returns true if text is shaped like an integer: an optional sign,
// then decimal digits, or digits after a 0x, 0o or 0b prefix.
func IsNumeral(text string) bool {
	_, digits, base := splitNumeral(text)
	if digits == "" {
		return false
	}
	for _, r := range digits {
		if digitVal(r) >= base {
			return false
		}
	}
	return true
}

// ParseNumber converts a numeral into an integer in the fixnum range.
func ParseNumber(text string) (int64, error) {
	neg, digits, base := splitNumeral(text)
	n, err := strconv.ParseInt(digits, base, 64)
	if err != nil {
		if numErr, ok := err.(*strconv.NumError); ok && numErr.Err == strconv.ErrRange {
			return 0, fmt.Errorf("number %s is out of range", text)
		}
		return 0, err
	}
	if neg {
		n = -n
	}
	if !crlf.InRange(n) {
		return 0, fmt.Errorf("number %s is out of range", text)
	}
	return n, nil
}

func splitNumeral(text string) (neg bool, digits string, base int) {
	switch {
	case strings.HasPrefix(text, "-"):
		neg, text = true, text[1:]
	case strings.HasPrefix(text, "+"):
		text = text[1:]
	}
	base = 10
	if len(text) > 2 && text[0] == '0' {
		switch text[1] {
		case 'x':
			base, text = 16, text[2:]
		case 'o':
			base, text = 8, text[2:]
		case 'b':
			base, text = 2, text[2:]
		}
	}
	return neg, text, base
}

func isWhitespace(ch rune) bool {
	return ch == ' ' || ('\t' <= ch && ch <= '\r')
}

func isNameRune(ch rune) bool {
	return isLetter(ch) || isDecimal(ch) || isOneOf(ch, `-+!#$%&*./:<=>?@\^_|~`)
}

func isLetter(ch rune) bool {
	return 'a' <= lower(ch) && lower(ch) <= 'z' || ch >= utf8.RuneSelf && unicode.IsLetter(ch)
}

func lower(ch rune) rune     { return ('a' - 'A') | ch } // returns lower-case ch iff ch is ASCII letter
func isDecimal(ch rune) bool { return '0' <= ch && ch <= '9' }

func isOneOf(ch rune, xs string) bool {
	return strings.ContainsRune(xs, ch)
}

func digitVal(ch rune) int {
	switch {
	case '0' <= ch && ch <= '9':
		return int(ch - '0')
	case 'a' <= lower(ch) && lower(ch) <= 'f':
		return int(lower(ch) - 'a' + 10)
	}
	return 16 // larger than any legal digit val
}

func pop[E any, S ~[]E](s S) (S, E) {
	l := len(s)
	return s[:l-1], s[l-1]
}

const eofRune = -1
