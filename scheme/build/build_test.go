package build

import (
	"encoding/json"
	"strconv"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/require"

	"ufork.dev/uscheme"
	"ufork.dev/uscheme/internal/dbutil"
	"ufork.dev/uscheme/internal/sqlstores"
	"ufork.dev/uscheme/internal/testutil"
	"ufork.dev/uscheme/scheme/compile"
)

const factSrc = `(define fact
  (lambda (n) (if (= n 0) 1 (* n (fact (- n 1))))))
(fact 5)
`

var testFS = fstest.MapFS{
	"fact.scm": {Data: []byte(factSrc)},
	"lib/list.scm": {Data: []byte(`
(define len (lambda (xs) (if (null? xs) 0 (+ 1 (len (cdr xs))))))
(define names '(a b c))
`)},
	"lib/notes.txt":  {Data: []byte("not a source")},
	"same/fact2.scm": {Data: []byte(factSrc)},
	"bad/unbound.scm": {Data: []byte(`(nope 1 2)`)},
}

func newTestContext(t testing.TB, cfg Config) *Context {
	c, err := NewContext(testFS, testutil.NewStore(t), NewMemIndex(), cfg)
	require.NoError(t, err)
	return c
}

func TestFind(t *testing.T) {
	c := newTestContext(t, DefaultConfig())
	ps, err := c.Find("")
	require.NoError(t, err)
	require.Equal(t, []string{"bad/unbound.scm", "fact.scm", "lib/list.scm", "same/fact2.scm"}, ps)

	ps, err = c.Find("lib")
	require.NoError(t, err)
	require.Equal(t, []string{"lib/list.scm"}, ps)

	_, err = c.Find("missing")
	require.Error(t, err)
}

func TestBuild(t *testing.T) {
	ctx := testutil.Context(t)
	c := newTestContext(t, DefaultConfig())

	a, err := c.Build(ctx, "fact.scm")
	require.NoError(t, err)
	require.Equal(t, "fact.scm", a.Path)
	require.Contains(t, a.Asm, "\"fact\":\n")
	require.True(t, json.Valid(a.Module))
	require.Equal(t, []string{"symbol_t", "closure_t", "~empty_env", "~cont_beh", "fact", "boot"}, a.Defs)
	require.Equal(t, 1, c.Len())

	// identical source under another name
	b, err := c.Build(ctx, "same/fact2.scm")
	require.NoError(t, err)
	require.Equal(t, "same/fact2.scm", b.Path)
	require.Equal(t, a.Asm, b.Asm)
	require.Equal(t, a.Source, b.Source)
	require.Equal(t, 1, c.Len())

	_, err = c.Build(ctx, "bad/unbound.scm")
	require.ErrorIs(t, err, compile.ErrUnableToInvoke)
	_, err = c.Build(ctx, "nothing.scm")
	require.Error(t, err)
}

func TestBuildFromStore(t *testing.T) {
	ctx := testutil.Context(t)
	store := testutil.NewStore(t)
	index := NewMemIndex()
	src := []byte("(define x 1)")

	fake, err := json.Marshal(Artifact{Asm: "from the store"})
	require.NoError(t, err)
	artID, err := store.Post(ctx, fake)
	require.NoError(t, err)
	require.NoError(t, index.Put(ctx, uscheme.Hash(src), artID))

	c, err := NewContext(testFS, store, index, DefaultConfig())
	require.NoError(t, err)
	a, err := c.BuildSource(ctx, "x.scm", src)
	require.NoError(t, err)
	require.Equal(t, "from the store", a.Asm)
	require.Equal(t, "x.scm", a.Path)
}

func TestBuildSaves(t *testing.T) {
	ctx := testutil.Context(t)
	store := testutil.NewStore(t)
	index := NewMemIndex()
	c1, err := NewContext(testFS, store, index, DefaultConfig())
	require.NoError(t, err)
	a1, err := c1.Build(ctx, "lib/list.scm")
	require.NoError(t, err)
	require.Equal(t, 1, store.Len())

	c2, err := NewContext(testFS, store, index, DefaultConfig())
	require.NoError(t, err)
	a2, err := c2.Build(ctx, "lib/list.scm")
	require.NoError(t, err)
	require.Equal(t, a1, a2)
	require.Equal(t, 1, store.Len())
}

func TestBuildAll(t *testing.T) {
	ctx := testutil.Context(t)
	c := newTestContext(t, DefaultConfig())
	ps := []string{"fact.scm", "lib/list.scm", "same/fact2.scm"}
	arts, err := c.BuildAll(ctx, ps)
	require.NoError(t, err)
	require.Len(t, arts, len(ps))
	for i, a := range arts {
		require.Equal(t, ps[i], a.Path)
		require.NotEmpty(t, a.Asm)
	}

	_, err = c.BuildAll(ctx, append(ps, "bad/unbound.scm"))
	require.Error(t, err)
}

func TestBuildSQL(t *testing.T) {
	ctx := testutil.Context(t)
	db := dbutil.NewTestDB(t)
	require.NoError(t, sqlstores.Setup(ctx, db))
	store := sqlstores.NewStore(db, uscheme.Hash, uscheme.MaxArtifactSize)
	index := sqlstores.NewIndex(db)

	c, err := NewContext(testFS, store, index, DefaultConfig())
	require.NoError(t, err)
	a1, err := c.Build(ctx, "fact.scm")
	require.NoError(t, err)
	n, err := index.Count(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 1, n)

	c, err = NewContext(testFS, store, index, DefaultConfig())
	require.NoError(t, err)
	a2, err := c.Build(ctx, "fact.scm")
	require.NoError(t, err)
	require.Equal(t, a1.Asm, a2.Asm)
}

func TestLimits(t *testing.T) {
	ctx := testutil.Context(t)
	cfg := DefaultConfig()
	cfg.MaxSourceSize = 10
	c := newTestContext(t, cfg)
	_, err := c.Build(ctx, "fact.scm")
	require.ErrorContains(t, err, "the limit is 10")

	cfg = DefaultConfig()
	cfg.CacheSize = 0
	_, err = NewContext(testFS, nil, nil, cfg)
	require.Error(t, err)
}

func TestCacheEviction(t *testing.T) {
	ctx := testutil.Context(t)
	cfg := DefaultConfig()
	cfg.CacheSize = 2
	c, err := NewContext(testFS, nil, nil, cfg)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		_, err := c.BuildSource(ctx, "n.scm", []byte("(define n "+strconv.Itoa(i)+")"))
		require.NoError(t, err)
	}
	require.Equal(t, 2, c.Len())
}

func TestOutputPath(t *testing.T) {
	cfg := DefaultConfig()
	require.Equal(t, "lib/list.asm", cfg.OutputPath("lib/list.scm"))

	written := map[string]string{}
	require.NoError(t, WriteAll(cfg, func(p string, data []byte) error {
		written[p] = string(data)
		return nil
	}, []*Artifact{{Path: "a.scm", Asm: "x"}, {Path: "b/c.scm", Asm: "y"}}))
	require.Equal(t, map[string]string{"a.asm": "x", "b/c.asm": "y"}, written)
}
