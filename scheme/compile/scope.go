package compile

import "ufork.dev/uscheme/crlf"

type mode uint8

const (
	modeModule mode = iota
	modeDefine
	modeProc
	modeBeh
)

// Frame maps the parameter names of one pattern to message offsets.
// A positive offset selects an element, a negative one selects a tail.
type Frame struct {
	Parent *Frame
	NS     map[string]int
}

// find returns the offset of k and how many frames out it was found.
func (f *Frame) find(k string) (offset, depth int, ok bool) {
	for ; f != nil; f = f.Parent {
		if off, exists := f.NS[k]; exists {
			return off, depth, true
		}
		depth++
	}
	return 0, depth, false
}

func (f *Frame) Child(ns map[string]int) *Frame {
	return &Frame{Parent: f, NS: ns}
}

// patternMap numbers the names in a parameter pattern, starting after n.
// "_" binds nothing. A dotted tail name binds the remaining elements.
func patternMap(ptrn crlf.Node, n int) map[string]int {
	ns := make(map[string]int)
	for {
		p, ok := ptrn.(*crlf.Pair)
		if !ok {
			break
		}
		n++
		if s, ok := p.Head.(crlf.Symbol); ok && s != "_" {
			ns[string(s)] = n
		}
		ptrn = p.Tail
	}
	if s, ok := ptrn.(crlf.Symbol); ok && s != "_" {
		ns[string(s)] = -n
	}
	return ns
}

type scope struct {
	mode mode
	// outer is searched for operators not found in funcs.
	outer *scope
	funcs map[string]xlatFunc
	evals map[string]evalFunc
	frame *Frame
}

// operator returns the primitive named by name, unless a parameter shadows it.
func (s *scope) operator(name string) (xlatFunc, bool) {
	if s.mode == modeBeh && name == selfName {
		return nil, false
	}
	if _, _, ok := s.frame.find(name); ok {
		return nil, false
	}
	for sc := s; sc != nil; sc = sc.outer {
		if f, ok := sc.funcs[name]; ok {
			return f, true
		}
	}
	return nil, false
}

// isPrimitive returns true if name is an operator anywhere in s.
func (s *scope) isPrimitive(name string) bool {
	if _, ok := s.evals[name]; ok {
		return true
	}
	_, ok := s.operator(name)
	return ok
}
