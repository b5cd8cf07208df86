package compile

import (
	"errors"
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"ufork.dev/uscheme/crlf"
	"ufork.dev/uscheme/internal/testutil"
	"ufork.dev/uscheme/spec"
)

func compileString(t testing.TB, src string) (*crlf.Module, error) {
	sf, err := NewSourceFile("test.scm", []byte(src))
	require.NoError(t, err)
	return New().Compile(testutil.Context(t), sf)
}

func mustCompile(t testing.TB, src string) *crlf.Module {
	m, err := compileString(t, src)
	require.NoError(t, err)
	return m
}

func getDef(t testing.TB, m *crlf.Module, name string) crlf.Node {
	x, ok := m.Define.Get(name)
	require.True(t, ok, "no definition for %s", name)
	require.NotNil(t, x)
	return x
}

// closureCode returns the code of a closure defined with (define name (lambda ...))
func closureCode(t testing.TB, m *crlf.Module, name string) crlf.Node {
	q, ok := getDef(t, m, name).(*crlf.Quad)
	require.True(t, ok)
	require.True(t, crlf.Equal(closureT, q.T))
	require.True(t, crlf.Equal(emptyEnv, q.Y))
	return q.X
}

func push(x crlf.Node) step { return step{spec.Push, x} }
func msg(n int) step       { return step{spec.Msg, fix(n)} }
func ref(name string) step { return push(crlf.NewRef(name)) }

func TestPrelude(t *testing.T) {
	m := mustCompile(t, "")
	require.Equal(t, []string{"symbol_t", "closure_t", "~empty_env", "~cont_beh", "boot"}, m.Define.Names())
	require.Equal(t, []string{"boot"}, m.Export)
	require.Empty(t, m.Import)
	require.True(t, crlf.Equal(crlf.NewType(1), getDef(t, m, "symbol_t")))
	require.True(t, crlf.Equal(crlf.NewType(2), getDef(t, m, "closure_t")))
	require.True(t, crlf.Equal(bootTrailer, getDef(t, m, "boot")))
	require.NoError(t, crlf.Terminated(getDef(t, m, "~cont_beh")))
}

func TestTopLevel(t *testing.T) {
	type testCase struct {
		I string
		O crlf.Node
	}
	k := bootTrailer
	x := ref("x")
	tcs := []testCase{
		{I: "(define z 0)", O: k},
		{I: "1 2", O: chain(k, push(fix(1)), push(fix(2)))},
		{I: "(+ 2 3)", O: chain(k, push(fix(5)))},
		{I: "(+ 0 x)", O: chain(k, x)},
		{I: "(+ x 0)", O: chain(k, x)},
		{I: "(- x 0)", O: chain(k, x)},
		{I: "(- 0 x)", O: chain(k, push(fix(0)), x, step{spec.Alu, crlf.Sub})},
		{I: "(- 2 5)", O: chain(k, push(fix(-3)))},
		{I: "(* 1 x)", O: chain(k, x)},
		{I: "(* x 1)", O: chain(k, x)},
		{I: "(* 6 7)", O: chain(k, push(fix(42)))},
		{I: "(+ x 1)", O: chain(k, x, push(fix(1)), step{spec.Alu, crlf.Add})},
		{
			I: "(+ 9007199254740991 1)",
			O: chain(k, push(crlf.MaxFixnum), push(fix(1)), step{spec.Alu, crlf.Add}),
		},
		{I: "(eq? 1 1)", O: chain(k, push(crlf.True))},
		{I: "(= 1 2)", O: chain(k, push(crlf.False))},
		{I: "(eq? x 1)", O: chain(k, x, step{spec.Eq, fix(1)})},
		{I: "(eq? 1 x)", O: chain(k, x, step{spec.Eq, fix(1)})},
		{I: "(eq? x y)", O: chain(k, x, ref("y"), step{spec.Cmp, crlf.EqRel})},
		{I: "(< x 1)", O: chain(k, x, push(fix(1)), step{spec.Cmp, crlf.Lt})},
		{I: "(>= x 1)", O: chain(k, x, push(fix(1)), step{spec.Cmp, crlf.Ge})},
		{I: "(car x)", O: chain(k, x, step{spec.Nth, fix(1)})},
		{I: "(cddr x)", O: chain(k, x, step{spec.Nth, fix(-2)})},
		{I: "(cadar x)", O: chain(k, x, step{spec.Nth, fix(1)}, step{spec.Nth, fix(-1)}, step{spec.Nth, fix(1)})},
		{I: "(null? x)", O: chain(k, x, step{spec.Eq, crlf.Nil})},
		{I: "(pair? x)", O: chain(k, x, step{spec.Typeq, crlf.PairT})},
		{I: "(number? x)", O: chain(k, x, step{spec.Typeq, crlf.FixnumT})},
		{I: "(symbol? x)", O: chain(k, x, step{spec.Typeq, symbolT})},
		{I: "(cons 1 2)", O: chain(k, push(fix(2)), push(fix(1)), step{spec.Pair, fix(1)})},
		{I: "(list 1 2)", O: chain(k, push(crlf.Nil), push(fix(2)), push(fix(1)), step{spec.Pair, fix(2)})},
		{I: "(list)", O: chain(k, push(crlf.Nil), step{spec.Pair, fix(0)})},
		{I: "(SEND x 1)", O: chain(k, push(fix(1)), x, step{spec.Send, fix(-1)})},
		{
			I: "(if x 1 2)",
			O: chain(crlf.NewIf(chain(k, push(fix(1))), chain(k, push(fix(2)))), x),
		},
		{
			I: "(if x 1)",
			O: chain(crlf.NewIf(chain(k, push(fix(1))), chain(k, push(crlf.Undef))), x),
		},
		{
			I: "(not x)",
			O: chain(crlf.NewIf(chain(k, push(crlf.False)), chain(k, push(crlf.True))), x),
		},
		{
			I: "(boolean? x)",
			O: chain(
				crlf.NewIf(k, chain(crlf.NewIf(chain(k, push(crlf.True)), chain(k, push(crlf.False))), step{spec.Eq, crlf.False})),
				x, step{spec.Dup, fix(1)}, step{spec.Eq, crlf.True},
			),
		},
	}
	for i, tc := range tcs {
		t.Run(strconv.Itoa(i), func(t *testing.T) {
			m := mustCompile(t, tc.I)
			boot := getDef(t, m, "boot")
			require.True(t, crlf.Equal(tc.O, boot), "%s", tc.I)
			require.NoError(t, crlf.Terminated(boot))
		})
	}
}

func TestTailCall(t *testing.T) {
	m := mustCompile(t, `
(define fact
  (lambda (n acc)
    (if (= n 0)
        acc
        (fact (- n 1) (* n acc)))))
`)
	code := closureCode(t, m, "fact")
	expected := chain(
		crlf.NewIf(
			chain(custSend, msg(3)),
			chain(commit,
				msg(2), msg(3), step{spec.Alu, crlf.Mul},
				msg(2), push(fix(1)), step{spec.Alu, crlf.Sub},
				msg(1), ref("fact"),
				step{spec.New, fix(-2)},
				step{spec.Send, fix(3)},
			),
		),
		msg(2), step{spec.Eq, fix(0)},
	)
	require.True(t, crlf.Equal(expected, code))
	require.Zero(t, crlf.Count(code, spec.Beh))
	require.NoError(t, crlf.Terminated(code))
}

func TestNonTailCall(t *testing.T) {
	m := mustCompile(t, "(define f (lambda (x) (+ (g x) 1)))")
	code := closureCode(t, m, "f")
	resume := chain(custSend,
		step{spec.State, fix(1)},
		step{spec.Part, fix(-1)},
		push(fix(1)),
		step{spec.Alu, crlf.Add},
	)
	expected := chain(commit,
		msg(2),
		step{spec.My, crlf.Self},
		ref("g"),
		step{spec.New, fix(-2)},
		step{spec.Send, fix(2)},
		step{spec.Pair, fix(-1)},
		step{spec.State, fix(-1)},
		push(resume),
		msg(0),
		push(contBeh),
		step{spec.Beh, fix(4)},
	)
	require.True(t, crlf.Equal(expected, code))
	require.NoError(t, crlf.Terminated(code))
}

func TestLambda(t *testing.T) {
	type testCase struct {
		I string
		O crlf.Node
	}
	tcs := []testCase{
		{I: "(define f (lambda (x)))", O: chain(custSend, push(crlf.Unit))},
		{I: "(define f (lambda (x) x))", O: chain(custSend, msg(2))},
		{I: "(define f (lambda (_ y) y))", O: chain(custSend, msg(3))},
		{I: "(define f (lambda (x . rest) rest))", O: chain(custSend, msg(-2))},
		{I: "(define f (lambda args args))", O: chain(custSend, msg(-1))},
		{I: "(define f (lambda (x) 1 x))", O: chain(custSend, push(fix(1)), msg(2))},
		{
			// a parameter named like a primitive shadows it
			I: "(define f (lambda (car) (car 1)))",
			O: chain(commit, push(fix(1)), msg(1), msg(2), step{spec.New, fix(-2)}, step{spec.Send, fix(2)}),
		},
		{
			// a nested lambda reaches the outer parameters through its state
			I: "(define f (lambda (x) (lambda (y) x)))",
			O: chain(custSend,
				step{spec.State, fix(-1)},
				msg(0),
				push(crlf.Nil),
				step{spec.Pair, fix(2)},
				push(chain(custSend, step{spec.State, fix(2)}, step{spec.Nth, fix(2)})),
				push(closureT),
				step{spec.Quad, fix(3)},
			),
		},
	}
	for i, tc := range tcs {
		t.Run(strconv.Itoa(i), func(t *testing.T) {
			m := mustCompile(t, tc.I)
			code := closureCode(t, m, "f")
			require.True(t, crlf.Equal(tc.O, code), "%s", tc.I)
		})
	}
}

func TestBehavior(t *testing.T) {
	m := mustCompile(t, `
(define echo (lambda () (BEH (m) (SEND SELF m))))
(define fwd (lambda (x) (BEH (m) (SEND m x))))
`)
	require.True(t, crlf.Equal(
		chain(commit, msg(1), step{spec.My, crlf.Self}, step{spec.Send, fix(-1)}),
		closureCode(t, m, "echo"),
	))
	require.True(t, crlf.Equal(
		chain(commit, step{spec.State, fix(2)}, step{spec.Nth, fix(2)}, msg(1), step{spec.Send, fix(-1)}),
		closureCode(t, m, "fwd"),
	))
}

func TestSymbols(t *testing.T) {
	m := mustCompile(t, `
(define s 'hello)
(define l '(a b a . c))
`)
	require.True(t, crlf.Equal(crlf.NewRef("'hello"), getDef(t, m, "s")))
	require.True(t, crlf.Equal(
		crlf.NewQuad(symbolT, crlf.List(fix(104), fix(101), fix(108), fix(108), fix(111))),
		getDef(t, m, "'hello"),
	))
	a, b, c := crlf.NewRef("'a"), crlf.NewRef("'b"), crlf.NewRef("'c")
	require.True(t, crlf.Equal(crlf.NewPair(a, crlf.NewPair(b, crlf.NewPair(a, c))), getDef(t, m, "l")))
	// forms are compiled last to first, so l's symbols are interned before 'hello
	require.Equal(t, []string{
		"symbol_t", "closure_t", "~empty_env", "~cont_beh",
		"s", "l", "'a", "'b", "'c", "'hello", "boot",
	}, m.Define.Names())

	m = mustCompile(t, "(eq? 'a 'a) (eq? 'a 'b)")
	require.True(t, crlf.Equal(chain(bootTrailer, push(crlf.True), push(crlf.False)), getDef(t, m, "boot")))
}

func TestForwardReference(t *testing.T) {
	m := mustCompile(t, `
(f 1)
(define f (lambda (x) x))
(define g f)
`)
	require.True(t, crlf.Equal(crlf.NewRef("f"), getDef(t, m, "g")))
	require.NoError(t, crlf.Terminated(getDef(t, m, "boot")))
}

func TestErrors(t *testing.T) {
	type testCase struct {
		I   string
		Err error
		Loc Loc
	}
	tcs := []testCase{
		{I: "(foo 1 2)", Err: ErrUnableToInvoke, Loc: Loc{0}},
		{I: "1\n(define x (foo))", Err: ErrUnableToInvoke, Loc: Loc{1}},
		{I: "(define f (lambda () (BEH (m) (BEH (n) 1))))", Err: ErrNotImplemented, Loc: Loc{0}},
		{I: "(define 1 2)", Err: ErrSymbolExpected, Loc: Loc{0}},
		{I: "(define (f x) x)", Err: ErrSymbolExpected, Loc: Loc{0}},
		{I: "(define a 1)\n(define a 2)", Err: ErrAlreadyDefined, Loc: Loc{1}},
		{I: "(define symbol_t 1)", Err: ErrAlreadyDefined, Loc: Loc{0}},
		{I: "(define boot 1)", Err: ErrAlreadyDefined, Loc: Loc{0}},
		{I: "(define a a)", Err: ErrCyclicDefinition, Loc: Loc{0}},
		{I: "(define a b)\n(define b c)\n(define c a)", Err: ErrCyclicDefinition, Loc: Loc{0}},
		{I: "(define f car)", Err: ErrNotAValue, Loc: Loc{0}},
		{I: "(list car)", Err: ErrNotAValue, Loc: Loc{0}},
		{I: "(car)", Err: ErrArity, Loc: Loc{0}},
		{I: "(if #t)", Err: ErrArity, Loc: Loc{0}},
		{I: "(define x)", Err: ErrArity, Loc: Loc{0}},
		{I: "(list 1 . 2)", Err: ErrListExpected, Loc: Loc{0}},
		{I: "(define f (lambda (x) . 1))\n(define g (lambda (x) (BEH (m) . 2)))", Err: ErrListExpected, Loc: Loc{1}},
	}
	for i, tc := range tcs {
		t.Run(strconv.Itoa(i), func(t *testing.T) {
			m, err := compileString(t, tc.I)
			require.Nil(t, m)
			require.ErrorIs(t, err, tc.Err)
			var cerr Error
			require.True(t, errors.As(err, &cerr))
			require.Equal(t, tc.Loc, cerr.Loc)
		})
	}
}

func TestErrorMessage(t *testing.T) {
	_, err := compileString(t, "(define x 1)\n  (foo 1 2)")
	require.EqualError(t, err, `"test.scm":2:3: unable to invoke: foo`)
}

func TestAlias(t *testing.T) {
	m := mustCompile(t, "(define a b)\n(define b 1)")
	require.True(t, crlf.Equal(crlf.NewRef("b"), getDef(t, m, "a")))
	require.True(t, crlf.Equal(fix(1), getDef(t, m, "b")))
}

func TestConcurrentCompile(t *testing.T) {
	const src = `
(define count (lambda (n) (if (= n 0) '(done) (count (- n 1)))))
(count 10)
`
	sf, err := NewSourceFile("concurrent.scm", []byte(src))
	require.NoError(t, err)
	c := New()
	ctx := testutil.Context(t)
	mods := make([]*crlf.Module, 8)
	eg, ctx := errgroup.WithContext(ctx)
	for i := range mods {
		eg.Go(func() error {
			m, err := c.Compile(ctx, sf)
			mods[i] = m
			return err
		})
	}
	require.NoError(t, eg.Wait())
	for _, m := range mods[1:] {
		require.Equal(t, mods[0].Define.Names(), m.Define.Names())
		for name, x := range m.Define.All() {
			y, _ := mods[0].Define.Get(name)
			require.True(t, crlf.Equal(x, y), name)
		}
	}
}
