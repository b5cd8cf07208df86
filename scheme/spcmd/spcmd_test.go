package spcmd

import (
	"bytes"
	"encoding/json"
	"strconv"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/require"

	"ufork.dev/uscheme/internal/dbutil"
	"ufork.dev/uscheme/internal/sqlstores"
	"ufork.dev/uscheme/internal/testutil"
	"ufork.dev/uscheme/scheme/build"
)

func TestParseFormat(t *testing.T) {
	type testCase struct {
		I   string
		O   Format
		Err bool
	}
	tcs := []testCase{
		{I: "asm", O: FormatAsm},
		{I: "json", O: FormatJSON},
		{I: "xml", Err: true},
		{I: "", Err: true},
	}
	for i, tc := range tcs {
		t.Run(strconv.Itoa(i), func(t *testing.T) {
			f, err := ParseFormat(tc.I)
			if tc.Err {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.O, f)
		})
	}
}

func TestCompileTo(t *testing.T) {
	ctx := testutil.Context(t)
	src := []byte("(define f (lambda (x) (+ x 1)))")

	var buf bytes.Buffer
	require.NoError(t, compileTo(ctx, &buf, FormatAsm, "f.scm", src))
	require.Contains(t, buf.String(), "\"f\":\n")

	buf.Reset()
	require.NoError(t, compileTo(ctx, &buf, FormatJSON, "f.scm", src))
	var doc struct {
		Lang string `json:"lang"`
		AST  struct {
			Kind   string         `json:"kind"`
			Define map[string]any `json:"define"`
			Export []string       `json:"export"`
		} `json:"ast"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &doc))
	require.Equal(t, "uFork", doc.Lang)
	require.Equal(t, "module", doc.AST.Kind)
	require.Contains(t, doc.AST.Define, "f")
	require.Equal(t, []string{"boot"}, doc.AST.Export)

	buf.Reset()
	require.Error(t, compileTo(ctx, &buf, FormatAsm, "bad.scm", []byte("(g 1)")))
	require.Zero(t, buf.Len())
}

func TestBuildDir(t *testing.T) {
	ctx := testutil.Context(t)
	db := dbutil.NewTestDB(t)
	require.NoError(t, sqlstores.Setup(ctx, db))
	fsys := fstest.MapFS{
		"a.scm":     {Data: []byte("(define a 1)")},
		"sub/b.scm": {Data: []byte("(define b (lambda () 'b))")},
		"README":    {Data: []byte("hello")},
	}
	bc, err := newBuildContext(fsys, db, build.DefaultConfig())
	require.NoError(t, err)
	arts, err := buildDir(ctx, bc)
	require.NoError(t, err)
	require.Len(t, arts, 2)
	require.Equal(t, "a.scm", arts[0].Path)
	require.Equal(t, "sub/b.scm", arts[1].Path)
	require.Contains(t, arts[1].Defs, "'b")
}
