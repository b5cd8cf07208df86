package uscheme

import (
	"testing"

	"github.com/stretchr/testify/require"

	"ufork.dev/uscheme/internal/cadata"
)

func TestHash(t *testing.T) {
	var hf cadata.HashFunc = Hash
	a := []byte("(define x 1)")
	id := hf(a)
	require.Equal(t, id, Hash(append([]byte{}, a...)))
	require.NotEqual(t, id, Hash([]byte("(define x 2)")))
	require.NoError(t, cadata.Check(hf, &id, a))
}
