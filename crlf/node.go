// package crlf implements the linked-record intermediate representation consumed by the uFork loader.
//
// Nodes are immutable once constructed, and may be shared freely between chains and modules.
package crlf

import (
	"fmt"

	"ufork.dev/uscheme/spec"
)

// Node is an IR value.
// The set of implementations is closed: Literal, Type, Fixnum, Symbol, Keyword,
// *Pair, *Dict, *Ref, *Instr, *If and *Quad.
type Node interface {
	isNode()
}

// Literal is one of the five constant values of the VM.
type Literal uint8

const (
	Undef Literal = iota
	Nil
	False
	True
	Unit
)

func (Literal) isNode() {}

func (l Literal) String() string {
	switch l {
	case Undef:
		return "undef"
	case Nil:
		return "nil"
	case False:
		return "false"
	case True:
		return "true"
	case Unit:
		return "unit"
	default:
		return fmt.Sprintf("Literal(%d)", uint8(l))
	}
}

// Bool returns True or False.
func Bool(x bool) Literal {
	if x {
		return True
	}
	return False
}

// Type is a type tag.
// Named primitive types have a Code other than spec.TC_Product.
// Anonymous product types have Code == spec.TC_Product and carry an Arity.
type Type struct {
	Code  spec.TypeCode
	Arity int
}

func (Type) isNode() {}

// NewType returns an anonymous product type with the given arity.
func NewType(arity int) Type {
	return Type{Code: spec.TC_Product, Arity: arity}
}

// IsNamed returns true for the primitive types which are referred to by name.
func (t Type) IsNamed() bool {
	return t.Code != spec.TC_Product
}

// Name is the name of a primitive type, or "" for an anonymous type.
func (t Type) Name() string {
	return t.Code.String()
}

var (
	LiteralT = Type{Code: spec.TC_Literal}
	TypeT    = Type{Code: spec.TC_Type}
	FixnumT  = Type{Code: spec.TC_Fixnum}
	ActorT   = Type{Code: spec.TC_Actor}
	InstrT   = Type{Code: spec.TC_Instr}
	PairT    = Type{Code: spec.TC_Pair}
	DictT    = Type{Code: spec.TC_Dict}
)

// Fixnum is a small signed integer.
type Fixnum int64

const (
	MaxFixnum Fixnum = 1<<53 - 1
	MinFixnum Fixnum = -MaxFixnum
)

func (Fixnum) isNode() {}

// InRange returns true if x can be represented as a Fixnum.
func InRange(x int64) bool {
	return x >= int64(MinFixnum) && x <= int64(MaxFixnum)
}

// Symbol is a name in an s-expression.
type Symbol string

func (Symbol) isNode() {}

// Keyword is a symbolic instruction immediate, like the "commit" in "end commit".
type Keyword string

func (Keyword) isNode() {}

const (
	Commit  Keyword = "commit"
	Stop    Keyword = "stop"
	Abort   Keyword = "abort"
	Release Keyword = "release"

	Self Keyword = "self"

	Get Keyword = "get"

	EqRel Keyword = "eq"
	Lt    Keyword = "lt"
	Le    Keyword = "le"
	Ge    Keyword = "ge"
	Gt    Keyword = "gt"

	Add Keyword = "add"
	Sub Keyword = "sub"
	Mul Keyword = "mul"
)

// Pair is a cons cell.
type Pair struct {
	Head, Tail Node
}

func (*Pair) isNode() {}

func NewPair(head, tail Node) *Pair {
	return &Pair{Head: head, Tail: tail}
}

// List builds a proper list ending in Nil.
func List(xs ...Node) Node {
	var ret Node = Nil
	for i := len(xs) - 1; i >= 0; i-- {
		ret = NewPair(xs[i], ret)
	}
	return ret
}

// Dict is one entry of an insertion-ordered dictionary.
// Next is another *Dict or Nil.
type Dict struct {
	Key, Value, Next Node
}

func (*Dict) isNode() {}

func NewDict(key, value, next Node) *Dict {
	if next == nil {
		next = Nil
	}
	return &Dict{Key: key, Value: value, Next: next}
}

// Ref is a symbolic reference to a definition.
// When Module is empty the reference is to the local module.
type Ref struct {
	Name   string
	Module string
}

func (*Ref) isNode() {}

func NewRef(name string) *Ref {
	return &Ref{Name: name}
}

// Instr is an instruction with an immediate and a continuation.
type Instr struct {
	Op  spec.Op
	Imm Node
	K   Node
}

func (*Instr) isNode() {}

// NewInstr returns an instruction.
// A nil imm or k is replaced with Undef.
func NewInstr(op spec.Op, imm Node, k Node) *Instr {
	if op == spec.If {
		panic("crlf: use NewIf for conditional instructions")
	}
	if imm == nil {
		imm = Undef
	}
	if k == nil {
		k = Undef
	}
	return &Instr{Op: op, Imm: imm, K: k}
}

// If is the conditional instruction. It continues with T or F.
type If struct {
	T, F Node
}

func (*If) isNode() {}

func NewIf(t, f Node) *If {
	return &If{T: t, F: f}
}

// Quad is a four field record. Absent fields are nil.
type Quad struct {
	T, X, Y, Z Node
}

func (*Quad) isNode() {}

// NewQuad creates a quad with up to three fields after the type.
func NewQuad(t Node, fields ...Node) *Quad {
	if len(fields) > 3 {
		panic("crlf: a quad has at most three fields after the type")
	}
	q := &Quad{T: t}
	dst := []*Node{&q.X, &q.Y, &q.Z}
	for i, f := range fields {
		*dst[i] = f
	}
	return q
}

// Fields returns the fields present after T.
func (q *Quad) Fields() []Node {
	var ret []Node
	for _, f := range []Node{q.X, q.Y, q.Z} {
		if f == nil {
			break
		}
		ret = append(ret, f)
	}
	return ret
}

// Arity is the number of fields present after T.
func (q *Quad) Arity() int {
	return len(q.Fields())
}

// Kind returns the name of the variant of x, as used in the JSON encoding.
func Kind(x Node) string {
	switch x.(type) {
	case Literal:
		return "literal"
	case Type:
		return "type"
	case Fixnum:
		return "fixnum"
	case Symbol, Keyword:
		return "string"
	case *Pair:
		return "pair"
	case *Dict:
		return "dict"
	case *Ref:
		return "ref"
	case *Instr, *If:
		return "instr"
	case *Quad:
		return "quad"
	case nil:
		return "nil"
	default:
		return fmt.Sprintf("%T", x)
	}
}
