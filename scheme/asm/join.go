package asm

import "ufork.dev/uscheme/crlf"

// join finds the instructions shared by the ends of two branches.
// If there are any, it returns copies of the branches which continue at a ref to label,
// and the shared suffix, which should be emitted once under label.
// Branches containing a conditional are never joined.
func join(t, f crlf.Node, label string) (t2, f2, shared crlf.Node, ok bool) {
	ts, tok := crlf.Chain(t)
	fs, fok := crlf.Chain(f)
	if !tok || !fok || len(ts) == 0 || len(fs) == 0 {
		return t, f, nil, false
	}
	tEnd, fEnd := ts[len(ts)-1], fs[len(fs)-1]
	if !crlf.Equal(tEnd.K, fEnd.K) {
		return t, f, nil, false
	}
	var n int
	for n < len(ts) && n < len(fs) {
		a, b := ts[len(ts)-1-n], fs[len(fs)-1-n]
		if a.Op != b.Op || !crlf.Equal(a.Imm, b.Imm) {
			break
		}
		n++
	}
	// each branch keeps at least one instruction of its own
	if n == len(ts) || n == len(fs) {
		n--
	}
	if n <= 0 {
		return t, f, nil, false
	}
	ref := crlf.NewRef(label)
	t2 = crlf.Rechain(ts[:len(ts)-n], ref)
	f2 = crlf.Rechain(fs[:len(fs)-n], ref)
	shared = crlf.Rechain(ts[len(ts)-n:], tEnd.K)
	return t2, f2, shared, true
}
