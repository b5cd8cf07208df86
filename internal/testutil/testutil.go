package testutil

import (
	"context"
	"net"
	"testing"

	"github.com/stretchr/testify/require"
	"go.brendoncarroll.net/stdctx/logctx"
	"go.uber.org/zap"

	"ufork.dev/uscheme"
	"ufork.dev/uscheme/internal/stores"
)

func Context(t testing.TB) context.Context {
	ctx := context.Background()
	ctx, cf := context.WithCancel(ctx)
	t.Cleanup(cf)
	l, err := zap.NewDevelopment()
	require.NoError(t, err)
	ctx = logctx.NewContext(ctx, l)
	return ctx
}

func NewStore(t testing.TB) *stores.Mem {
	return stores.NewMem(uscheme.Hash, uscheme.MaxArtifactSize)
}

func Listen(t testing.TB) net.Listener {
	l, err := net.Listen("tcp", "127.0.0.1:")
	require.NoError(t, err)
	t.Cleanup(func() { l.Close() })
	return l
}
