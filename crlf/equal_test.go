package crlf

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"

	"ufork.dev/uscheme/spec"
)

func TestEqual(t *testing.T) {
	type testCase struct {
		A, B  Node
		Equal bool
	}
	commit := NewInstr(spec.End, Commit, nil)
	tcs := []testCase{
		{Nil, Nil, true},
		{Nil, False, false},
		{Fixnum(1), Fixnum(1), true},
		{Fixnum(1), Fixnum(2), false},
		{Symbol("a"), Symbol("a"), true},
		{Symbol("a"), Keyword("a"), false},
		{PairT, PairT, true},
		{PairT, DictT, false},
		{NewType(1), NewType(1), true},
		{NewType(1), NewType(2), false},
		{NewRef("x"), NewRef("x"), true},
		{NewRef("x"), &Ref{Name: "x", Module: "m"}, false},
		{List(Fixnum(1), Fixnum(2)), List(Fixnum(1), Fixnum(2)), true},
		{List(Fixnum(1), Fixnum(2)), List(Fixnum(1)), false},
		{NewPair(Fixnum(1), Fixnum(2)), NewPair(Fixnum(1), Fixnum(2)), true},
		{
			NewInstr(spec.Push, Fixnum(1), commit),
			NewInstr(spec.Push, Fixnum(1), NewInstr(spec.End, Commit, nil)),
			true,
		},
		{
			NewInstr(spec.Push, Fixnum(1), commit),
			NewInstr(spec.Push, Fixnum(2), commit),
			false,
		},
		{
			NewInstr(spec.Push, Fixnum(1), commit),
			NewInstr(spec.Push, Fixnum(1), NewInstr(spec.End, Stop, nil)),
			false,
		},
		{NewIf(commit, commit), NewIf(commit, commit), true},
		{NewIf(commit, commit), commit, false},
		{NewQuad(PairT, Fixnum(1)), NewQuad(PairT, Fixnum(1)), true},
		{NewQuad(PairT, Fixnum(1)), NewQuad(PairT, Fixnum(1), Fixnum(2)), false},
		{NewDict(Fixnum(1), True, NewDict(Fixnum(2), False, Nil)), NewDict(Fixnum(1), True, NewDict(Fixnum(2), False, Nil)), true},
		{NewDict(Fixnum(1), True, Nil), NewDict(Fixnum(1), False, Nil), false},
	}
	for i, tc := range tcs {
		t.Run(strconv.Itoa(i), func(t *testing.T) {
			require.Equal(t, tc.Equal, Equal(tc.A, tc.B))
			require.Equal(t, tc.Equal, Equal(tc.B, tc.A))
		})
	}
}

func TestEqualDictOrder(t *testing.T) {
	a := NewDict(Symbol("x"), Fixnum(1), NewDict(Symbol("y"), Fixnum(2), Nil))
	b := NewDict(Symbol("y"), Fixnum(2), NewDict(Symbol("x"), Fixnum(1), Nil))
	require.False(t, Equal(a, b))
}

func TestEqualLongList(t *testing.T) {
	xs := make([]Node, 100_000)
	for i := range xs {
		xs[i] = Fixnum(i)
	}
	require.True(t, Equal(List(xs...), List(xs...)))
}
