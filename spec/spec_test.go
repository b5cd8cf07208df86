package spec

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOpNames(t *testing.T) {
	seen := map[string]bool{}
	for _, op := range All() {
		name := op.String()
		require.NotEmpty(t, name, "op %d", op)
		require.False(t, seen[name], "duplicate name %s", name)
		seen[name] = true
		op2, ok := ParseOp(name)
		require.True(t, ok, name)
		require.Equal(t, op, op2)
	}
	_, ok := ParseOp("nope")
	require.False(t, ok)
}

func TestOpInfo(t *testing.T) {
	require.True(t, End.IsTerminal())
	require.True(t, If.Info().Branch)
	require.True(t, Debug.Info().NoImm)
	for _, op := range All() {
		if op != End {
			require.False(t, op.IsTerminal(), op.String())
		}
	}
	for _, op := range AllActor() {
		require.Contains(t, All(), op)
	}
}

func TestTypeCodes(t *testing.T) {
	for tc := TC_Literal; tc <= TC_Dict; tc++ {
		tc2, ok := ParseTypeCode(tc.String())
		require.True(t, ok, tc.String())
		require.Equal(t, tc, tc2)
	}
	_, ok := ParseTypeCode("")
	require.False(t, ok)
	require.Equal(t, "", TypeCode(200).String())
}
