package spcmd

import (
	"context"
	"io"

	"go.brendoncarroll.net/star"

	"ufork.dev/uscheme/crlf"
	"ufork.dev/uscheme/scheme"
)

var parseCmd = star.Command{
	Metadata: star.Metadata{
		Short: "parse a file and print each top-level form",
	},
	Pos: []star.IParam{fileParam},
	F: func(c star.Context) error {
		src, err := readSource(c, fileParam.Load(c))
		if err != nil {
			return err
		}
		forms, err := scheme.Parse(string(src))
		if err != nil {
			return err
		}
		for _, x := range forms {
			c.Printf("%s\n", scheme.PrintString(x))
		}
		return nil
	},
}

var compileCmd = star.Command{
	Metadata: star.Metadata{
		Short: "compile a file and write the module to stdout",
	},
	Flags: []star.IParam{formatParam},
	Pos:   []star.IParam{fileParam},
	F: func(c star.Context) error {
		ctx := newContext(c)
		p := fileParam.Load(c)
		src, err := readSource(c, p)
		if err != nil {
			return err
		}
		return compileTo(ctx, c.StdOut, formatParam.Load(c), p, src)
	},
}

var asmCmd = star.Command{
	Metadata: star.Metadata{
		Short: "compile a file and write the assembly to stdout",
	},
	Pos: []star.IParam{fileParam},
	F: func(c star.Context) error {
		ctx := newContext(c)
		p := fileParam.Load(c)
		src, err := readSource(c, p)
		if err != nil {
			return err
		}
		return compileTo(ctx, c.StdOut, FormatAsm, p, src)
	},
}

func compileTo(ctx context.Context, w io.Writer, f Format, filename string, src []byte) error {
	m, err := scheme.Compile(ctx, filename, src)
	if err != nil {
		return err
	}
	var out []byte
	switch f {
	case FormatJSON:
		if out, err = crlf.MarshalModule(m); err != nil {
			return err
		}
		out = append(out, '\n')
	default:
		text, err := scheme.ToAsm(m)
		if err != nil {
			return err
		}
		out = []byte(text)
	}
	_, err = w.Write(out)
	return err
}
