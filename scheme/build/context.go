// package build compiles directories of source files into assembly artifacts.
package build

import (
	"context"
	"fmt"
	"io/fs"
	"path"
	"strings"
	"sync"

	"github.com/hashicorp/golang-lru/v2/simplelru"
	"go.brendoncarroll.net/stdctx/logctx"
	"go.uber.org/zap"

	"ufork.dev/uscheme"
	"ufork.dev/uscheme/internal/cadata"
)

// Config holds the build settings.
type Config struct {
	// SourceExt is the extension of files which are compiled.
	SourceExt string `json:"source_ext"`
	// OutputExt replaces SourceExt when an artifact is written out.
	OutputExt string `json:"output_ext"`
	// CacheSize is the number of artifacts kept in memory.
	CacheSize int `json:"cache_size"`
	// MaxSourceSize is the largest file which will be read.
	MaxSourceSize int `json:"max_source_size"`
	// Parallel is the most files compiled at once by BuildAll.
	Parallel int `json:"parallel"`
}

func DefaultConfig() Config {
	return Config{
		SourceExt:     ".scm",
		OutputExt:     ".asm",
		CacheSize:     256,
		MaxSourceSize: uscheme.MaxSourceSize,
		Parallel:      8,
	}
}

// OutputPath is the path an artifact built from the source at p is written to.
func (cfg Config) OutputPath(p string) string {
	return strings.TrimSuffix(p, cfg.SourceExt) + cfg.OutputExt
}

// Context is a build context.
// It reads sources from an fs.FS and caches the artifacts built from them,
// first in memory and then in a store.
type Context struct {
	cfg   Config
	fsys  fs.FS
	store cadata.Store
	index Index

	mu    sync.Mutex
	cache *simplelru.LRU[cadata.ID, Artifact]
}

func NewContext(fsys fs.FS, store cadata.Store, index Index, cfg Config) (*Context, error) {
	cache, err := simplelru.NewLRU[cadata.ID, Artifact](cfg.CacheSize, nil)
	if err != nil {
		return nil, err
	}
	return &Context{
		cfg:   cfg,
		fsys:  fsys,
		store: store,
		index: index,
		cache: cache,
	}, nil
}

func (c *Context) Config() Config {
	return c.cfg
}

// Find lists the source files under dir, in lexical order.
func (c *Context) Find(dir string) ([]string, error) {
	if dir == "" {
		dir = "."
	}
	var ret []string
	if err := fs.WalkDir(c.fsys, dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || path.Ext(p) != c.cfg.SourceExt {
			return nil
		}
		ret = append(ret, p)
		return nil
	}); err != nil {
		return nil, err
	}
	return ret, nil
}

func (c *Context) cacheGet(ctx context.Context, id cadata.ID) (Artifact, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	a, ok := c.cache.Get(id)
	if ok {
		logctx.Debug(ctx, "cache hit", zap.Stringer("source", id))
	}
	return a, ok
}

func (c *Context) cacheAdd(id cadata.ID, a Artifact) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cache.Add(id, a)
}

// Len returns the number of artifacts cached in memory.
func (c *Context) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cache.Len()
}

func errTooLarge(p string, size, max int) error {
	return fmt.Errorf("source %q is %d bytes, the limit is %d", p, size, max)
}
