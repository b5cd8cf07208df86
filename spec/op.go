// package spec contains the instruction set of the uFork virtual machine
package spec

import "strconv"

// Op is a uFork machine instruction
type Op uint8

const (
	Unknown Op = iota

	// Stack

	// Push: ( -- v )
	Push
	// Dup: ( v_n .. v_1 -- v_n .. v_1 v_n .. v_1 )
	Dup
	// Drop: ( v_n .. v_1 -- )
	Drop
	Pick
	Roll

	// Arithmetic and comparison

	// Alu performs a fixnum operation named by the immediate (add, sub, mul, ...)
	Alu
	// Eq compares the top of the stack with the immediate: ( v -- bool )
	Eq
	// Cmp compares two values with the relation named by the immediate: ( a b -- bool )
	Cmp

	// Control

	// If consumes a value and continues with one of two chains
	If
	Jump

	// Structures

	// Typeq tests the type of the top of the stack against the immediate
	Typeq
	Quad
	// Pair: ( rest first -- pair )
	Pair
	// Part: ( pair -- rest first )
	Part
	// Nth: positive extracts an element, negative extracts a tail
	Nth
	Dict
	Deque

	// Actors

	// Msg pushes part of the current message
	Msg
	// State pushes part of the current actor state
	State
	// My pushes self, beh or state
	My
	Send
	Signal
	New
	Beh
	// End terminates the transaction: commit, stop, abort or release
	End
	Sponsor

	// Debugging

	Assert
	Debug
)

var names = map[Op]string{
	Unknown: "unknown",
	Push:    "push",
	Dup:     "dup",
	Drop:    "drop",
	Pick:    "pick",
	Roll:    "roll",
	Alu:     "alu",
	Eq:      "eq",
	Cmp:     "cmp",
	If:      "if",
	Jump:    "jump",
	Typeq:   "typeq",
	Quad:    "quad",
	Pair:    "pair",
	Part:    "part",
	Nth:     "nth",
	Dict:    "dict",
	Deque:   "deque",
	Msg:     "msg",
	State:   "state",
	My:      "my",
	Send:    "send",
	Signal:  "signal",
	New:     "new",
	Beh:     "beh",
	End:     "end",
	Sponsor: "sponsor",
	Assert:  "assert",
	Debug:   "debug",
}

// String returns the assembler keyword for the instruction.
func (o Op) String() string {
	if s, ok := names[o]; ok {
		return s
	}
	return "op(" + strconv.Itoa(int(o)) + ")"
}

// ParseOp returns the Op spelled s in assembly.
func ParseOp(s string) (Op, bool) {
	for op, name := range names {
		if op != Unknown && name == s {
			return op, true
		}
	}
	return Unknown, false
}
