// package scheme is the entry point to the compiler pipeline:
// source text is parsed into s-expressions, compiled into a CRLF module,
// and the module can be emitted as uFork assembly.
package scheme

import (
	"context"
	"fmt"
	"strings"

	"ufork.dev/uscheme"
	"ufork.dev/uscheme/crlf"
	"ufork.dev/uscheme/scheme/asm"
	"ufork.dev/uscheme/scheme/compile"
	"ufork.dev/uscheme/scheme/parser"
	"ufork.dev/uscheme/scheme/printer"
)

type (
	Node   = crlf.Node
	Module = crlf.Module
)

// compiler holds no mutable state, so it is shared.
var compiler = compile.New()

// Parse reads every top-level form in src.
func Parse(src string) ([]Node, error) {
	_, nodes, err := parser.ReadAll(parser.NewParser(strings.NewReader(src)))
	if err != nil {
		return nil, err
	}
	return nodes, nil
}

// Compile parses and compiles the source file.
// filename is only used in error messages.
func Compile(ctx context.Context, filename string, src []byte) (*Module, error) {
	if len(src) > uscheme.MaxSourceSize {
		return nil, fmt.Errorf("%q: source is %d bytes, the limit is %d", filename, len(src), uscheme.MaxSourceSize)
	}
	sf, err := compile.NewSourceFile(filename, src)
	if err != nil {
		return nil, err
	}
	return compiler.Compile(ctx, sf)
}

// CompileSource compiles src, which did not come from a file.
func CompileSource(ctx context.Context, src string) (*Module, error) {
	return Compile(ctx, "", []byte(src))
}

// ToAsm emits the module as assembly text.
func ToAsm(m *Module) (string, error) {
	return asm.ToAsm(m)
}

func PrintString(x Node) string {
	return printer.PrintString(x)
}
