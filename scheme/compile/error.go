package compile

import (
	"errors"
	"fmt"
)

var (
	ErrUnableToInvoke   = errors.New("unable to invoke")
	ErrSymbolExpected   = errors.New("string (symbol) expected")
	ErrNotImplemented   = errors.New("not implemented")
	ErrListExpected     = errors.New("list expected")
	ErrAlreadyDefined   = errors.New("already defined")
	ErrCyclicDefinition = errors.New("cyclic definition")
	ErrNotAValue        = errors.New("primitive cannot be used as a value")
	ErrArity            = errors.New("missing operand")
)

// Error is a semantic error, positioned at a form in a SourceFile.
type Error struct {
	Source *SourceFile
	Loc    Loc
	Cause  error
}

func (e Error) Error() string {
	if e.Source == nil {
		return e.Cause.Error()
	}
	span := e.Source.Find(e.Loc)
	return fmt.Sprintf("%q:%v: %v", e.Source.Filename, span.Loc, e.Cause)
}

func (e Error) Unwrap() error {
	return e.Cause
}
