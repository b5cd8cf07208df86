package crlf

import (
	"fmt"

	"ufork.dev/uscheme/spec"
)

// Chain returns the straight-line instructions starting at x, in execution order.
// The walk stops at the first node which is not an *Instr, or after a terminal instruction.
// ok is false if the walk reached a conditional.
func Chain(x Node) (ret []*Instr, ok bool) {
	for {
		switch in := x.(type) {
		case *Instr:
			ret = append(ret, in)
			if in.Op.IsTerminal() {
				return ret, true
			}
			x = in.K
		case *If:
			return ret, false
		default:
			return ret, true
		}
	}
}

// Rechain builds a copy of the instructions in xs, linked in order, with k as the final continuation.
func Rechain(xs []*Instr, k Node) Node {
	for i := len(xs) - 1; i >= 0; i-- {
		k = NewInstr(xs[i].Op, xs[i].Imm, k)
	}
	return k
}

// Terminated checks that every path through the chain x ends in a terminal instruction.
func Terminated(x Node) error {
	for {
		switch in := x.(type) {
		case *Instr:
			if in.Op.IsTerminal() {
				return nil
			}
			x = in.K
		case *If:
			if err := Terminated(in.T); err != nil {
				return err
			}
			x = in.F
		case *Ref:
			// a jump to another definition, checked where it is defined
			return nil
		default:
			return fmt.Errorf("instruction chain ends in %s, not a terminal instruction", Kind(x))
		}
	}
}

// Count returns the number of instructions with op reachable from x, following both branches of conditionals.
func Count(x Node, op spec.Op) (n int) {
	for {
		switch in := x.(type) {
		case *Instr:
			if in.Op == op {
				n++
			}
			if in.Op.IsTerminal() {
				return n
			}
			x = in.K
		case *If:
			if op == spec.If {
				n++
			}
			n += Count(in.T, op)
			x = in.F
		default:
			return n
		}
	}
}
