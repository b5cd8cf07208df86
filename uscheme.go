package uscheme

import (
	"lukechampine.com/blake3"

	"ufork.dev/uscheme/internal/cadata"
)

const (
	// MaxSourceSize is the largest source file which will be compiled.
	MaxSourceSize = 1 << 20
	// MaxArtifactSize is the largest compiled artifact which will be stored.
	MaxArtifactSize = 1 << 22
)

// Hash calculates the unkeyed blake3 hash of x.
// It is a cadata.HashFunc.
func Hash(x []byte) (ret cadata.ID) {
	h := blake3.New(32, nil)
	h.Write(x)
	h.Sum(ret[:0])
	return ret
}
