package scheme

import (
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"ufork.dev/uscheme"
	"ufork.dev/uscheme/crlf"
	"ufork.dev/uscheme/internal/testutil"
	"ufork.dev/uscheme/scheme/compile"
	"ufork.dev/uscheme/spec"
)

func TestPrintRoundTrip(t *testing.T) {
	tcs := []string{
		"1",
		"-42",
		"#t",
		"#?",
		"#unit",
		"()",
		"foo",
		"(a b c)",
		"(a . b)",
		"(1 (2 (3 . 4)) () #f)",
		"'(x y)",
		"(define (f x) (if (null? x) 0 (f (cdr x))))",
	}
	for i, tc := range tcs {
		t.Run(strconv.Itoa(i), func(t *testing.T) {
			xs, err := Parse(tc)
			require.NoError(t, err)
			require.Len(t, xs, 1)
			printed := PrintString(xs[0])
			ys, err := Parse(printed)
			require.NoError(t, err, printed)
			require.Len(t, ys, 1)
			require.True(t, crlf.Equal(xs[0], ys[0]), "%s -> %s", tc, printed)
		})
	}
}

func TestCompile(t *testing.T) {
	ctx := testutil.Context(t)

	m, err := CompileSource(ctx, "(define z 0)")
	require.NoError(t, err)
	z, ok := m.Define.Get("z")
	require.True(t, ok)
	require.Equal(t, crlf.Fixnum(0), z)
	require.Equal(t, []string{"boot"}, m.Export)
	require.Empty(t, m.Import)

	m, err = CompileSource(ctx, "(+ 2 3)")
	require.NoError(t, err)
	boot, _ := m.Define.Get("boot")
	require.Zero(t, crlf.Count(boot, spec.Alu))
	require.NoError(t, crlf.Terminated(boot))

	_, err = CompileSource(ctx, "(foo 1 2)")
	require.ErrorIs(t, err, compile.ErrUnableToInvoke)

	_, err = Compile(ctx, "big.scm", make([]byte, uscheme.MaxSourceSize+1))
	require.Error(t, err)
}

func TestCompileParseError(t *testing.T) {
	ctx := testutil.Context(t)
	_, err := Compile(ctx, "bad.scm", []byte("(define x"))
	require.Error(t, err)
	require.Contains(t, err.Error(), `"bad.scm"`)
	require.Contains(t, err.Error(), "expected ')'")
}

func TestToAsm(t *testing.T) {
	ctx := testutil.Context(t)
	m, err := CompileSource(ctx, "(define id (lambda (x) x)) (id 7)")
	require.NoError(t, err)
	text, err := ToAsm(m)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(text, "\"symbol_t\":\n"), text)
	require.Contains(t, text, "\n\"id\":\n")
	require.Contains(t, text, "\n\"boot\":\n")
	require.True(t, strings.HasSuffix(text, ".export\n    \"boot\"\n"), text)
}

func TestConcurrentLabels(t *testing.T) {
	ctx := testutil.Context(t)
	srcs := []string{
		"(define f (lambda (x) (if x (g 1) (g 2))))",
		"(define h (lambda (x) (if (eq? x 0) 'a (cons x x))))",
	}
	expected := make([]string, len(srcs))
	for i, src := range srcs {
		m, err := CompileSource(ctx, src)
		require.NoError(t, err)
		expected[i], err = ToAsm(m)
		require.NoError(t, err)
	}
	var wg sync.WaitGroup
	for n := 0; n < 8; n++ {
		for i, src := range srcs {
			wg.Add(1)
			go func() {
				defer wg.Done()
				m, err := CompileSource(ctx, src)
				if !assertNoError(t, err) {
					return
				}
				text, err := ToAsm(m)
				if !assertNoError(t, err) {
					return
				}
				if text != expected[i] {
					t.Errorf("emission %d differs under concurrency", i)
				}
			}()
		}
	}
	wg.Wait()
}

func assertNoError(t testing.TB, err error) bool {
	if err != nil {
		t.Error(err)
		return false
	}
	return true
}
