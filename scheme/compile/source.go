package compile

import (
	"bytes"
	"fmt"

	"ufork.dev/uscheme/crlf"
	"ufork.dev/uscheme/scheme/parser"
)

// Loc is a location in the source, as a path through the span tree.
type Loc []uint32

type SourceFile struct {
	// Filename is the name used in error messages.
	Filename string
	// Source is the raw bytes which make up this file
	Source []byte
	// Nodes is the parsed content of the file
	Nodes []crlf.Node
	// Span is the tree of spans for all the nodes in the file
	Span parser.Span
}

// NewSourceFile reads every form in src.
func NewSourceFile(filename string, src []byte) (*SourceFile, error) {
	p := parser.NewParser(bytes.NewReader(src))
	span, nodes, err := parser.ReadAll(p)
	if err != nil {
		return nil, fmt.Errorf("%q:%w", filename, err)
	}
	return &SourceFile{
		Filename: filename,
		Source:   src,
		Nodes:    nodes,
		Span:     span,
	}, nil
}

// Find returns the span at loc.
// It stops early if loc goes deeper than the tree.
func (sf *SourceFile) Find(loc Loc) parser.Span {
	span := sf.Span
	for _, i := range loc {
		if int(i) >= len(span.Children) {
			break
		}
		span = span.Children[i]
	}
	return span
}

func (sf *SourceFile) errorAt(loc Loc, err error) error {
	if e, ok := err.(Error); ok {
		if len(e.Loc) < len(loc) {
			e.Loc = loc
		}
		if e.Source == nil {
			e.Source = sf
		}
		return e
	}
	return Error{Source: sf, Loc: loc, Cause: err}
}
