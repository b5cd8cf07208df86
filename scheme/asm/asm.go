// package asm writes CRLF modules in the uFork assembler's text format.
package asm

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"ufork.dev/uscheme/crlf"
	"ufork.dev/uscheme/spec"
)

var (
	ErrDictKey     = errors.New("dict key must be asm leaf")
	ErrQuadType    = errors.New("quad type must be asm leaf")
	ErrUnknownNode = errors.New("unknown asm")
)

// Emitter accumulates assembly text.
// Labels are numbered per Emitter, so separate Emitters may be used concurrently.
type Emitter struct {
	sb    strings.Builder
	label int
	// names defined by the module being emitted
	names map[string]struct{}
}

func NewEmitter() *Emitter {
	return &Emitter{label: 1}
}

// ToAsm returns the assembly for a module.
func ToAsm(m *crlf.Module) (string, error) {
	e := NewEmitter()
	if err := e.Module(m); err != nil {
		return "", err
	}
	return e.String(), nil
}

// WriteModule writes the assembly for m to w.
func WriteModule(w io.Writer, m *crlf.Module) error {
	s, err := ToAsm(m)
	if err != nil {
		return err
	}
	_, err = io.WriteString(w, s)
	return err
}

func (e *Emitter) String() string {
	return e.sb.String()
}

// Module emits every definition of m under its name, then the export list.
// Label numbering restarts for each module.
func (e *Emitter) Module(m *crlf.Module) error {
	e.label = 1
	e.names = make(map[string]struct{}, m.Define.Len())
	for name := range m.Define.All() {
		e.names[name] = struct{}{}
	}
	for name, x := range m.Define.All() {
		if x == nil {
			return fmt.Errorf("definition %q has no value", name)
		}
		if err := e.labelled(name, x); err != nil {
			return fmt.Errorf("emitting %q: %w", name, err)
		}
	}
	if m.Export != nil {
		e.sb.WriteString(".export\n")
		for _, name := range m.Export {
			e.sb.WriteString("    " + quote(name) + "\n")
		}
	}
	return nil
}

// Node emits x as a labelled body would be emitted.
func (e *Emitter) Node(x crlf.Node) error {
	return e.body(x)
}

// labelPrefixes are the first characters of every generated label.
const labelPrefixes = "tfjikadvnxyz"

// nextLabel returns a fresh label number.
// Numbers which would produce the name of a definition are skipped.
func (e *Emitter) nextLabel() int {
	for {
		n := e.label
		e.label++
		if !e.taken(n) {
			return n
		}
	}
}

func (e *Emitter) taken(n int) bool {
	for i := 0; i < len(labelPrefixes); i++ {
		if _, exists := e.names[label(labelPrefixes[i], n)]; exists {
			return true
		}
	}
	return false
}

// labelled emits a label line followed by x.
func (e *Emitter) labelled(label string, x crlf.Node) error {
	e.sb.WriteString(`"` + label + `":` + "\n")
	return e.body(x)
}

// body emits x, using a ref line if x is a leaf.
func (e *Emitter) body(x crlf.Node) error {
	if isLeaf(x) {
		e.sb.WriteString("    ref " + leafText(x) + "\n")
		return nil
	}
	return e.node(x)
}

func (e *Emitter) node(x crlf.Node) error {
	for {
		switch y := x.(type) {
		case *crlf.Instr:
			next, err := e.instr(y)
			if err != nil || next == nil {
				return err
			}
			x = next
		case *crlf.If:
			return e.cond(y)
		case crlf.Type:
			e.sb.WriteString("    type_t " + strconv.Itoa(y.Arity) + "\n")
			return nil
		case *crlf.Pair:
			return e.pair(y)
		case *crlf.Dict:
			return e.dict(y)
		case *crlf.Quad:
			return e.quad(y)
		default:
			return fmt.Errorf("%w: %s", ErrUnknownNode, crlf.Kind(x))
		}
	}
}

// instr emits one instruction, and returns the continuation if it should follow inline.
func (e *Emitter) instr(x *crlf.Instr) (crlf.Node, error) {
	e.sb.WriteString("    " + x.Op.String())
	if !x.Op.Info().NoImm {
		if !isLeaf(x.Imm) {
			n := e.nextLabel()
			iLabel, kLabel := label('i', n), label('k', n)
			e.sb.WriteString(" " + quote(iLabel) + " " + quote(kLabel) + "\n")
			if err := e.labelled(iLabel, x.Imm); err != nil {
				return nil, err
			}
			return nil, e.labelled(kLabel, x.K)
		}
		e.sb.WriteString(" " + leafText(x.Imm))
	}
	e.sb.WriteString("\n")
	if x.Op == spec.End {
		return nil, nil
	}
	if isLeaf(x.K) {
		e.sb.WriteString("    ref " + leafText(x.K) + "\n")
		return nil, nil
	}
	return x.K, nil
}

func (e *Emitter) cond(x *crlf.If) error {
	n := e.nextLabel()
	tLabel, fLabel, jLabel := label('t', n), label('f', n), label('j', n)
	e.sb.WriteString("    if " + quote(tLabel) + " " + quote(fLabel) + "\n")
	t, f, shared, joined := join(x.T, x.F, jLabel)
	if err := e.labelled(tLabel, t); err != nil {
		return err
	}
	if err := e.labelled(fLabel, f); err != nil {
		return err
	}
	if joined {
		return e.labelled(jLabel, shared)
	}
	return nil
}

func (e *Emitter) pair(x *crlf.Pair) error {
	e.sb.WriteString("    pair_t ")
	if isLeaf(x.Head) {
		e.sb.WriteString(leafText(x.Head) + "\n")
		return e.body(x.Tail)
	}
	n := e.nextLabel()
	aLabel, dLabel := label('a', n), label('d', n)
	e.sb.WriteString(quote(aLabel) + " " + quote(dLabel) + "\n")
	if err := e.labelled(aLabel, x.Head); err != nil {
		return err
	}
	return e.labelled(dLabel, x.Tail)
}

func (e *Emitter) dict(x *crlf.Dict) error {
	if !isLeaf(x.Key) {
		return fmt.Errorf("%w: %s", ErrDictKey, crlf.Kind(x.Key))
	}
	e.sb.WriteString("    dict_t " + leafText(x.Key) + " ")
	if isLeaf(x.Value) {
		e.sb.WriteString(leafText(x.Value) + "\n")
		return e.body(x.Next)
	}
	n := e.nextLabel()
	vLabel, nLabel := label('v', n), label('n', n)
	e.sb.WriteString(quote(vLabel) + " " + quote(nLabel) + "\n")
	if err := e.labelled(vLabel, x.Value); err != nil {
		return err
	}
	return e.labelled(nLabel, x.Next)
}

// quad writes leaf fields inline. The last field, if it is not a leaf, follows the quad line.
// Any other structured field is emitted under its own label.
func (e *Emitter) quad(x *crlf.Quad) error {
	if !isLeaf(x.T) {
		return fmt.Errorf("%w: %s", ErrQuadType, crlf.Kind(x.T))
	}
	fields := x.Fields()
	var n int
	for _, f := range fields[:max(len(fields)-1, 0)] {
		if !isLeaf(f) {
			n = e.nextLabel()
			break
		}
	}
	type pending struct {
		label string
		x     crlf.Node
	}
	var later []pending
	var last crlf.Node
	e.sb.WriteString("    quad_" + strconv.Itoa(len(fields)+1) + " " + leafText(x.T))
	for i, f := range fields {
		switch {
		case isLeaf(f):
			e.sb.WriteString(" " + leafText(f))
		case i == len(fields)-1:
			last = f
		default:
			l := label("xyz"[i], n)
			e.sb.WriteString(" " + quote(l))
			later = append(later, pending{l, f})
		}
	}
	e.sb.WriteString("\n")
	if last != nil {
		if err := e.node(last); err != nil {
			return err
		}
	}
	for _, p := range later {
		if err := e.labelled(p.label, p.x); err != nil {
			return err
		}
	}
	return nil
}

// isLeaf returns true for the nodes which are written as a single token.
func isLeaf(x crlf.Node) bool {
	switch x := x.(type) {
	case crlf.Literal, *crlf.Ref, crlf.Fixnum, crlf.Symbol, crlf.Keyword:
		return true
	case crlf.Type:
		return x.IsNamed()
	default:
		return false
	}
}

func leafText(x crlf.Node) string {
	switch x := x.(type) {
	case crlf.Literal:
		switch x {
		case crlf.Undef:
			return "#?"
		case crlf.Nil:
			return "#nil"
		case crlf.False:
			return "#f"
		case crlf.True:
			return "#t"
		case crlf.Unit:
			return "#unit"
		}
	case *crlf.Ref:
		if x.Module != "" {
			return quote(x.Module + "." + x.Name)
		}
		return quote(x.Name)
	case crlf.Fixnum:
		return strconv.FormatInt(int64(x), 10)
	case crlf.Symbol:
		return string(x)
	case crlf.Keyword:
		return string(x)
	case crlf.Type:
		return "#" + x.Name() + "_t"
	}
	return ""
}

func label(prefix byte, n int) string {
	return string(prefix) + "~" + strconv.Itoa(n)
}

func quote(label string) string {
	return `"` + label + `"`
}
