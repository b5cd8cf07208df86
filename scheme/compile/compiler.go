// package compile translates s-expressions into CRLF modules.
package compile

import (
	"context"
	"fmt"

	"go.brendoncarroll.net/stdctx/logctx"
	"go.uber.org/zap"
	"golang.org/x/exp/maps"

	"ufork.dev/uscheme/crlf"
	"ufork.dev/uscheme/scheme/printer"
	"ufork.dev/uscheme/spec"
)

// Compiler holds the operator tables for each kind of scope.
// It is never modified after New, so one Compiler may be used from many goroutines.
type Compiler struct {
	moduleOps map[string]xlatFunc
	procOps   map[string]xlatFunc
	behOps    map[string]xlatFunc
	defineOps map[string]evalFunc
}

func New() *Compiler {
	c := &Compiler{
		moduleOps: primitives(),
		procOps:   primitives(),
		behOps: map[string]xlatFunc{
			"BEH":  xlatNestedBEH,
			"SEND": xlatSEND,
		},
		defineOps: map[string]evalFunc{
			"lambda": evalLambda,
			"quote":  evalQuote,
		},
	}
	maps.Copy(c.moduleOps, map[string]xlatFunc{
		"define": xlatDefine,
	})
	maps.Copy(c.procOps, map[string]xlatFunc{
		"BEH": xlatBEH,
	})
	return c
}

// Compile produces a module from the forms in sf.
// The top-level expressions become the module's boot behavior, and each define adds a definition.
func (c *Compiler) Compile(ctx context.Context, sf *SourceFile) (*crlf.Module, error) {
	u := &unit{
		ctx:  ctx,
		c:    c,
		defs: crlf.NewDefs(),
	}
	putPrelude(u.defs)
	// names are reserved first, so that forward references are to bound names.
	for i, node := range sf.Nodes {
		if err := u.reserve(node); err != nil {
			return nil, sf.errorAt(Loc{uint32(i)}, err)
		}
	}
	top := &scope{mode: modeModule, funcs: c.moduleOps}
	var k crlf.Node = bootTrailer
	for i := len(sf.Nodes) - 1; i >= 0; i-- {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		var err error
		if k, err = u.translate(top, sf.Nodes[i], k); err != nil {
			return nil, sf.errorAt(Loc{uint32(i)}, err)
		}
	}
	u.defs.Put(bootName, k)
	return &crlf.Module{
		Import: map[string]string{},
		Define: u.defs,
		Export: []string{bootName},
	}, nil
}

// unit is the state of a single call to Compile.
type unit struct {
	ctx  context.Context
	c    *Compiler
	defs *crlf.Defs
}

// reserve allocates the slot for a top-level define.
func (u *unit) reserve(x crlf.Node) error {
	form, ok := x.(*crlf.Pair)
	if !ok || form.Head != crlf.Symbol("define") {
		return nil
	}
	name, _, err := defineOperands(form.Tail)
	if err != nil {
		return err
	}
	if name == bootName || !u.defs.Reserve(name) {
		return fmt.Errorf("%w: %s", ErrAlreadyDefined, name)
	}
	return nil
}

// bind gives a value to a module definition.
func (u *unit) bind(name string, v crlf.Node) error {
	if prev, exists := u.defs.Get(name); name == bootName || (exists && prev != nil) {
		return fmt.Errorf("%w: %s", ErrAlreadyDefined, name)
	}
	if err := u.checkAlias(name, v); err != nil {
		return err
	}
	logctx.Debug(u.ctx, "define", zap.String("symbol", name))
	u.defs.Put(name, v)
	return nil
}

// checkAlias follows the chain of definitions which are only references to other definitions.
// A chain which leads back to name, or which is longer than the table, is an error.
func (u *unit) checkAlias(name string, v crlf.Node) error {
	for i := 0; i <= u.defs.Len(); i++ {
		ref, ok := v.(*crlf.Ref)
		if !ok || ref.Module != "" {
			return nil
		}
		if ref.Name == name {
			return fmt.Errorf("%w: %s", ErrCyclicDefinition, name)
		}
		v, _ = u.defs.Get(ref.Name)
	}
	return fmt.Errorf("%w: %s", ErrCyclicDefinition, name)
}

func (u *unit) defineScope(outer *scope) *scope {
	return &scope{
		mode:  modeDefine,
		outer: outer,
		evals: u.c.defineOps,
	}
}

// translate produces code which pushes the value of x and continues with k.
func (u *unit) translate(sc *scope, x, k crlf.Node) (crlf.Node, error) {
	switch x := x.(type) {
	case crlf.Fixnum, crlf.Literal, crlf.Type:
		return crlf.NewInstr(spec.Push, x, k), nil
	case crlf.Symbol:
		return u.variable(sc, string(x), k)
	case *crlf.Pair:
		return u.invoke(sc, x, k)
	default:
		return nil, fmt.Errorf("cannot translate %s", crlf.Kind(x))
	}
}

func (u *unit) variable(sc *scope, name string, k crlf.Node) (crlf.Node, error) {
	if sc.mode == modeBeh && name == selfName {
		return crlf.NewInstr(spec.My, crlf.Self, k), nil
	}
	if off, depth, ok := sc.frame.find(name); ok {
		if depth == 0 {
			return crlf.NewInstr(spec.Msg, fix(off), k), nil
		}
		return chain(k, step{spec.State, fix(depth + 1)}, step{spec.Nth, fix(off)}), nil
	}
	if sc.isPrimitive(name) {
		return nil, fmt.Errorf("%w: %s", ErrNotAValue, name)
	}
	return crlf.NewInstr(spec.Push, crlf.NewRef(name), k), nil
}

func (u *unit) invoke(sc *scope, form *crlf.Pair, k crlf.Node) (crlf.Node, error) {
	if sym, ok := form.Head.(crlf.Symbol); ok {
		if op, ok := sc.operator(string(sym)); ok {
			return op(u, sc, form.Tail, k)
		}
		if sc.mode == modeModule && !u.defs.Has(string(sym)) {
			return nil, fmt.Errorf("%w: %s", ErrUnableToInvoke, sym)
		}
	}
	n, err := listLen(form.Tail)
	if err != nil {
		return nil, err
	}
	nargs := fix(n + 1)
	if crlf.Equal(k, custSend) {
		// tail call: the callee replies directly to our customer
		code, err := u.translate(sc, form.Head, chain(commit,
			step{spec.New, fix(-2)},
			step{spec.Send, nargs},
		))
		if err != nil {
			return nil, err
		}
		return u.translateArgs(sc, form.Tail, crlf.NewInstr(spec.Msg, fix(1), code))
	}
	resume := chain(k,
		step{spec.State, fix(1)},
		step{spec.Part, fix(-1)},
	)
	code, err := u.translate(sc, form.Head, chain(commit,
		step{spec.New, fix(-2)},
		step{spec.Send, nargs},
		step{spec.Pair, fix(-1)},
		step{spec.State, fix(-1)},
		step{spec.Push, resume},
		step{spec.Msg, fix(0)},
		step{spec.Push, contBeh},
		step{spec.Beh, fix(4)},
	))
	if err != nil {
		return nil, err
	}
	return u.translateArgs(sc, form.Tail, crlf.NewInstr(spec.My, crlf.Self, code))
}

// translateArgs pushes args from last to first, leaving the first on top.
func (u *unit) translateArgs(sc *scope, args, k crlf.Node) (crlf.Node, error) {
	for {
		switch x := args.(type) {
		case *crlf.Pair:
			var err error
			if k, err = u.translate(sc, x.Head, k); err != nil {
				return nil, err
			}
			args = x.Tail
		case crlf.Literal:
			if x != crlf.Nil {
				return nil, ErrListExpected
			}
			return k, nil
		default:
			return nil, ErrListExpected
		}
	}
}

// translateSeq evaluates each expression in body in order.
func (u *unit) translateSeq(sc *scope, body, k crlf.Node) (crlf.Node, error) {
	var xs []crlf.Node
	for x := body; x != crlf.Node(crlf.Nil); {
		p, ok := x.(*crlf.Pair)
		if !ok {
			return nil, ErrListExpected
		}
		xs = append(xs, p.Head)
		x = p.Tail
	}
	for i := len(xs) - 1; i >= 0; i-- {
		var err error
		if k, err = u.translate(sc, xs[i], k); err != nil {
			return nil, err
		}
	}
	return k, nil
}

// procedure compiles the body of a lambda, which replies to the customer in msg 1.
func (u *unit) procedure(sc *scope, args crlf.Node) (crlf.Node, error) {
	ptrn, ok := nth(args, 1)
	if !ok {
		return nil, fmt.Errorf("%w: lambda expects a parameter pattern", ErrArity)
	}
	body, _ := nth(args, -1)
	child := &scope{
		mode:  modeProc,
		funcs: u.c.procOps,
		frame: sc.frame.Child(patternMap(ptrn, 1)),
	}
	if _, ok := body.(*crlf.Pair); !ok {
		return crlf.NewInstr(spec.Push, crlf.Unit, custSend), nil
	}
	return u.translateSeq(child, body, custSend)
}

// evaluate computes the value of a definition at compile time.
func (u *unit) evaluate(sc *scope, x crlf.Node) (crlf.Node, error) {
	switch x := x.(type) {
	case crlf.Fixnum, crlf.Literal, crlf.Type:
		return x, nil
	case crlf.Symbol:
		if sc.isPrimitive(string(x)) {
			return nil, fmt.Errorf("%w: %s", ErrNotAValue, x)
		}
		return crlf.NewRef(string(x)), nil
	case *crlf.Pair:
		if sym, ok := x.Head.(crlf.Symbol); ok {
			if f, ok := sc.evals[string(sym)]; ok {
				return f(u, sc, x.Tail)
			}
		}
		return nil, fmt.Errorf("%w: %s", ErrUnableToInvoke, printer.PrintString(x.Head))
	default:
		return nil, fmt.Errorf("cannot evaluate %s", crlf.Kind(x))
	}
}

// quoted converts a quoted datum, interning its symbols.
func (u *unit) quoted(x crlf.Node) (crlf.Node, error) {
	switch x := x.(type) {
	case crlf.Fixnum, crlf.Literal, crlf.Type:
		return x, nil
	case crlf.Symbol:
		return u.intern(string(x)), nil
	case *crlf.Pair:
		var heads []crlf.Node
		var tail crlf.Node = x
		for p, ok := tail.(*crlf.Pair); ok; p, ok = tail.(*crlf.Pair) {
			h, err := u.quoted(p.Head)
			if err != nil {
				return nil, err
			}
			heads = append(heads, h)
			tail = p.Tail
		}
		ret, err := u.quoted(tail)
		if err != nil {
			return nil, err
		}
		for i := len(heads) - 1; i >= 0; i-- {
			ret = crlf.NewPair(heads[i], ret)
		}
		return ret, nil
	default:
		return nil, fmt.Errorf("cannot quote %s", crlf.Kind(x))
	}
}

// intern returns a reference to the definition of a symbol, creating it on first use.
func (u *unit) intern(s string) *crlf.Ref {
	name := "'" + s
	if !u.defs.Has(name) {
		var codes []crlf.Node
		for _, r := range s {
			codes = append(codes, crlf.Fixnum(r))
		}
		u.defs.Put(name, crlf.NewQuad(symbolT, crlf.List(codes...)))
	}
	return crlf.NewRef(name)
}

// constant returns the value of x if it is known at compile time.
func (u *unit) constant(x crlf.Node) (crlf.Node, bool, error) {
	switch x := x.(type) {
	case crlf.Fixnum, crlf.Literal, crlf.Type:
		return x, true, nil
	case *crlf.Pair:
		if x.Head != crlf.Symbol("quote") {
			return nil, false, nil
		}
		q, ok := nth(x, 2)
		if !ok {
			return nil, false, nil
		}
		v, err := u.quoted(q)
		return v, err == nil, err
	default:
		return nil, false, nil
	}
}

func (u *unit) fixConst(x crlf.Node) (int64, bool, error) {
	v, ok, err := u.constant(x)
	if err != nil || !ok {
		return 0, false, err
	}
	n, ok := v.(crlf.Fixnum)
	return int64(n), ok, nil
}
