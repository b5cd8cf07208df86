package compile

import (
	"fmt"

	"ufork.dev/uscheme/crlf"
	"ufork.dev/uscheme/spec"
)

// xlatFunc translates an operator form into code which leaves its value on the stack and continues with k.
type xlatFunc = func(u *unit, sc *scope, args, k crlf.Node) (crlf.Node, error)

// evalFunc computes the value of an operator form in a definition.
type evalFunc = func(u *unit, sc *scope, args crlf.Node) (crlf.Node, error)

// primitives returns the operators shared by module and procedure code.
func primitives() map[string]xlatFunc {
	return map[string]xlatFunc{
		"lambda": xlatLambda,
		"quote":  xlatQuote,
		"if":     xlatIf,
		"not":    xlatNot,

		"car":    unary("car", step{spec.Nth, fix(1)}),
		"cdr":    unary("cdr", step{spec.Nth, fix(-1)}),
		"cadr":   unary("cadr", step{spec.Nth, fix(2)}),
		"caar":   unary("caar", step{spec.Nth, fix(1)}, step{spec.Nth, fix(1)}),
		"cdar":   unary("cdar", step{spec.Nth, fix(1)}, step{spec.Nth, fix(-1)}),
		"cddr":   unary("cddr", step{spec.Nth, fix(-2)}),
		"caddr":  unary("caddr", step{spec.Nth, fix(3)}),
		"cadar":  unary("cadar", step{spec.Nth, fix(1)}, step{spec.Nth, fix(-1)}, step{spec.Nth, fix(1)}),
		"cdddr":  unary("cdddr", step{spec.Nth, fix(-3)}),
		"cadddr": unary("cadddr", step{spec.Nth, fix(4)}),

		"cons": xlatCons,
		"list": xlatList,

		"eq?": xlatEq,
		"=":   xlatEq,

		"null?":    unary("null?", step{spec.Eq, crlf.Nil}),
		"pair?":    unary("pair?", step{spec.Typeq, crlf.PairT}),
		"boolean?": xlatBooleanP,
		"number?":  unary("number?", step{spec.Typeq, crlf.FixnumT}),
		"symbol?":  unary("symbol?", step{spec.Typeq, symbolT}),

		"<":  binary("<", spec.Cmp, crlf.Lt),
		"<=": binary("<=", spec.Cmp, crlf.Le),
		">=": binary(">=", spec.Cmp, crlf.Ge),
		">":  binary(">", spec.Cmp, crlf.Gt),

		"+": xlatAdd,
		"-": xlatSub,
		"*": xlatMul,

		"SEND": xlatSEND,
	}
}

// nth returns element n of a list for positive n, or the tail after -n elements for negative n.
func nth(x crlf.Node, n int) (crlf.Node, bool) {
	if n == 0 {
		return x, true
	}
	for {
		p, ok := x.(*crlf.Pair)
		if !ok {
			return nil, false
		}
		switch {
		case n == 1:
			return p.Head, true
		case n == -1:
			return p.Tail, true
		case n > 0:
			n--
		default:
			n++
		}
		x = p.Tail
	}
}

// operands returns the first n elements of args.
func operands(args crlf.Node, name string, n int) ([]crlf.Node, error) {
	ret := make([]crlf.Node, 0, n)
	for i := 1; i <= n; i++ {
		x, ok := nth(args, i)
		if !ok {
			return nil, fmt.Errorf("%w: %s expects %d operand(s)", ErrArity, name, n)
		}
		ret = append(ret, x)
	}
	return ret, nil
}

func listLen(x crlf.Node) (int, error) {
	var n int
	for {
		switch y := x.(type) {
		case *crlf.Pair:
			n++
			x = y.Tail
		case crlf.Literal:
			if y == crlf.Nil {
				return n, nil
			}
			return 0, ErrListExpected
		default:
			return 0, ErrListExpected
		}
	}
}

func unary(name string, steps ...step) xlatFunc {
	return func(u *unit, sc *scope, args, k crlf.Node) (crlf.Node, error) {
		ops, err := operands(args, name, 1)
		if err != nil {
			return nil, err
		}
		return u.translate(sc, ops[0], chain(k, steps...))
	}
}

func binary(name string, op spec.Op, imm crlf.Keyword) xlatFunc {
	return func(u *unit, sc *scope, args, k crlf.Node) (crlf.Node, error) {
		ops, err := operands(args, name, 2)
		if err != nil {
			return nil, err
		}
		return u.translate2(sc, ops[0], ops[1], crlf.NewInstr(op, imm, k))
	}
}

// translate2 pushes x and then y.
func (u *unit) translate2(sc *scope, x, y, k crlf.Node) (crlf.Node, error) {
	code, err := u.translate(sc, y, k)
	if err != nil {
		return nil, err
	}
	return u.translate(sc, x, code)
}

func xlatLambda(u *unit, sc *scope, args, k crlf.Node) (crlf.Node, error) {
	code, err := u.procedure(sc, args)
	if err != nil {
		return nil, err
	}
	return chain(k,
		step{spec.State, fix(-1)},
		step{spec.Msg, fix(0)},
		step{spec.Push, crlf.Nil},
		step{spec.Pair, fix(2)},
		step{spec.Push, code},
		step{spec.Push, closureT},
		step{spec.Quad, fix(3)},
	), nil
}

func xlatQuote(u *unit, sc *scope, args, k crlf.Node) (crlf.Node, error) {
	ops, err := operands(args, "quote", 1)
	if err != nil {
		return nil, err
	}
	v, err := u.quoted(ops[0])
	if err != nil {
		return nil, err
	}
	return crlf.NewInstr(spec.Push, v, k), nil
}

func xlatIf(u *unit, sc *scope, args, k crlf.Node) (crlf.Node, error) {
	ops, err := operands(args, "if", 2)
	if err != nil {
		return nil, err
	}
	altn, ok := nth(args, 3)
	if !ok {
		altn = crlf.Undef
	}
	t, err := u.translate(sc, ops[1], k)
	if err != nil {
		return nil, err
	}
	f, err := u.translate(sc, altn, k)
	if err != nil {
		return nil, err
	}
	return u.translate(sc, ops[0], crlf.NewIf(t, f))
}

func xlatNot(u *unit, sc *scope, args, k crlf.Node) (crlf.Node, error) {
	ops, err := operands(args, "not", 1)
	if err != nil {
		return nil, err
	}
	return u.translate(sc, ops[0], crlf.NewIf(
		crlf.NewInstr(spec.Push, crlf.False, k),
		crlf.NewInstr(spec.Push, crlf.True, k),
	))
}

func xlatCons(u *unit, sc *scope, args, k crlf.Node) (crlf.Node, error) {
	ops, err := operands(args, "cons", 2)
	if err != nil {
		return nil, err
	}
	return u.translate2(sc, ops[1], ops[0], crlf.NewInstr(spec.Pair, fix(1), k))
}

func xlatList(u *unit, sc *scope, args, k crlf.Node) (crlf.Node, error) {
	n, err := listLen(args)
	if err != nil {
		return nil, err
	}
	code, err := u.translateArgs(sc, args, crlf.NewInstr(spec.Pair, fix(n), k))
	if err != nil {
		return nil, err
	}
	return crlf.NewInstr(spec.Push, crlf.Nil, code), nil
}

func xlatEq(u *unit, sc *scope, args, k crlf.Node) (crlf.Node, error) {
	ops, err := operands(args, "eq?", 2)
	if err != nil {
		return nil, err
	}
	expect, actual := ops[0], ops[1]
	eConst, eok, err := u.constant(expect)
	if err != nil {
		return nil, err
	}
	aConst, aok, err := u.constant(actual)
	if err != nil {
		return nil, err
	}
	switch {
	case eok && aok:
		return crlf.NewInstr(spec.Push, crlf.Bool(crlf.Equal(eConst, aConst)), k), nil
	case eok:
		return u.translate(sc, actual, crlf.NewInstr(spec.Eq, eConst, k))
	case aok:
		return u.translate(sc, expect, crlf.NewInstr(spec.Eq, aConst, k))
	default:
		return u.translate2(sc, expect, actual, crlf.NewInstr(spec.Cmp, crlf.EqRel, k))
	}
}

func xlatBooleanP(u *unit, sc *scope, args, k crlf.Node) (crlf.Node, error) {
	ops, err := operands(args, "boolean?", 1)
	if err != nil {
		return nil, err
	}
	isFalse := crlf.NewInstr(spec.Eq, crlf.False, crlf.NewIf(
		crlf.NewInstr(spec.Push, crlf.True, k),
		crlf.NewInstr(spec.Push, crlf.False, k),
	))
	code := chain(crlf.NewIf(k, isFalse),
		step{spec.Dup, fix(1)},
		step{spec.Eq, crlf.True},
	)
	return u.translate(sc, ops[0], code)
}

// arith translates a binary fixnum operator.
// fold computes the result for two constants, and reports false if it cannot.
// A right operand equal to ident is elided, and so is a left one if leftIdent is set.
func arith(name string, imm crlf.Keyword, fold func(a, b int64) (int64, bool), ident int64, leftIdent bool) xlatFunc {
	return func(u *unit, sc *scope, args, k crlf.Node) (crlf.Node, error) {
		ops, err := operands(args, name, 2)
		if err != nil {
			return nil, err
		}
		n, m := ops[0], ops[1]
		nConst, nok, err := u.fixConst(n)
		if err != nil {
			return nil, err
		}
		mConst, mok, err := u.fixConst(m)
		if err != nil {
			return nil, err
		}
		if nok && mok {
			if x, ok := fold(nConst, mConst); ok && crlf.InRange(x) {
				return crlf.NewInstr(spec.Push, crlf.Fixnum(x), k), nil
			}
		}
		if leftIdent && nok && nConst == ident {
			return u.translate(sc, m, k)
		}
		if mok && mConst == ident {
			return u.translate(sc, n, k)
		}
		return u.translate2(sc, n, m, crlf.NewInstr(spec.Alu, imm, k))
	}
}

var (
	xlatAdd = arith("+", crlf.Add, func(a, b int64) (int64, bool) { return a + b, true }, 0, true)
	xlatSub = arith("-", crlf.Sub, func(a, b int64) (int64, bool) { return a - b, true }, 0, false)
	xlatMul = arith("*", crlf.Mul, func(a, b int64) (int64, bool) {
		p := a * b
		return p, a == 0 || p/a == b
	}, 1, true)
)

func xlatSEND(u *unit, sc *scope, args, k crlf.Node) (crlf.Node, error) {
	ops, err := operands(args, "SEND", 2)
	if err != nil {
		return nil, err
	}
	// the message is pushed before the target
	return u.translate2(sc, ops[1], ops[0], crlf.NewInstr(spec.Send, fix(-1), k))
}

func xlatBEH(u *unit, sc *scope, args, k crlf.Node) (crlf.Node, error) {
	ptrn, ok := nth(args, 1)
	if !ok {
		return nil, fmt.Errorf("%w: BEH expects a message pattern", ErrArity)
	}
	body, _ := nth(args, -1)
	child := &scope{
		mode:  modeBeh,
		outer: sc,
		funcs: u.c.behOps,
		frame: sc.frame.Child(patternMap(ptrn, 0)),
	}
	// a behavior ends its own transaction, so k is never reached
	return u.translateSeq(child, body, commit)
}

func xlatNestedBEH(u *unit, sc *scope, args, k crlf.Node) (crlf.Node, error) {
	return nil, fmt.Errorf("%w: BEH inside a behavior", ErrNotImplemented)
}

func xlatDefine(u *unit, sc *scope, args, k crlf.Node) (crlf.Node, error) {
	name, value, err := defineOperands(args)
	if err != nil {
		return nil, err
	}
	v, err := u.evaluate(u.defineScope(sc), value)
	if err != nil {
		return nil, err
	}
	if err := u.bind(name, v); err != nil {
		return nil, err
	}
	return k, nil
}

func defineOperands(args crlf.Node) (string, crlf.Node, error) {
	ops, err := operands(args, "define", 2)
	if err != nil {
		return "", nil, err
	}
	sym, ok := ops[0].(crlf.Symbol)
	if !ok {
		return "", nil, ErrSymbolExpected
	}
	return string(sym), ops[1], nil
}

func evalLambda(u *unit, sc *scope, args crlf.Node) (crlf.Node, error) {
	code, err := u.procedure(sc, args)
	if err != nil {
		return nil, err
	}
	return crlf.NewQuad(closureT, code, emptyEnv), nil
}

func evalQuote(u *unit, sc *scope, args crlf.Node) (crlf.Node, error) {
	ops, err := operands(args, "quote", 1)
	if err != nil {
		return nil, err
	}
	return u.quoted(ops[0])
}
