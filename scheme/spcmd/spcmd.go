// package spcmd implements the uscheme command line tool.
package spcmd

import (
	"context"
	"fmt"
	"io"
	"net"
	"os"
	"strconv"

	"github.com/jmoiron/sqlx"
	"go.brendoncarroll.net/star"
	"go.brendoncarroll.net/stdctx/logctx"
	"go.uber.org/zap"

	"ufork.dev/uscheme/internal/dbutil"
	"ufork.dev/uscheme/internal/sqlstores"
)

func Root() star.Command {
	return rootCmd
}

var rootCmd = star.NewDir(star.Metadata{
	Short: "compile scheme programs for the uFork actor machine",
}, map[star.Symbol]star.Command{
	"parse":   parseCmd,
	"compile": compileCmd,
	"asm":     asmCmd,
	"build":   buildCmd,
	"serve":   serveCmd,
})

// newContext adds a logger to the command's context.
func newContext(c star.Context) context.Context {
	l, err := zap.NewProduction()
	if err != nil {
		return c.Context
	}
	return logctx.NewContext(c.Context, l)
}

// readSource reads the file at p, or standard input if p is "-".
func readSource(c star.Context, p string) ([]byte, error) {
	if p == "-" {
		return io.ReadAll(c.StdIn)
	}
	return os.ReadFile(p)
}

var fileParam = star.Param[string]{
	Name:  "file",
	Parse: star.ParseString,
}

var dirParam = star.Param[string]{
	Name:    "dir",
	Default: star.Ptr("."),
	Parse:   star.ParseString,
}

var dbParam = star.Param[*sqlx.DB]{
	Name:    "db",
	Default: star.Ptr(":memory:"),
	Parse: func(x string) (*sqlx.DB, error) {
		db, err := dbutil.Open(x)
		if err != nil {
			return nil, err
		}
		if err := sqlstores.Setup(context.Background(), db); err != nil {
			db.Close()
			return nil, err
		}
		return db, nil
	},
}

var listenerParam = star.Param[net.Listener]{
	Name:    "l",
	Default: star.Ptr("127.0.0.1:6660"),
	Parse: func(x string) (net.Listener, error) {
		return net.Listen("tcp", x)
	},
}

// Format is an output format for compiled modules.
type Format string

const (
	FormatAsm  Format = "asm"
	FormatJSON Format = "json"
)

func ParseFormat(x string) (Format, error) {
	switch f := Format(x); f {
	case FormatAsm, FormatJSON:
		return f, nil
	default:
		return "", fmt.Errorf("unknown format %q, expected asm or json", x)
	}
}

var formatParam = star.Param[Format]{
	Name:    "format",
	Default: star.Ptr(string(FormatAsm)),
	Parse:   ParseFormat,
}

var outDirParam = star.Param[string]{
	Name:    "o",
	Default: star.Ptr(""),
	Parse:   star.ParseString,
}

var cacheParam = star.Param[int]{
	Name:    "cache",
	Default: star.Ptr("256"),
	Parse:   strconv.Atoi,
}
