package build

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"go.brendoncarroll.net/exp/slices2"
	"go.brendoncarroll.net/stdctx/logctx"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"ufork.dev/uscheme"
	"ufork.dev/uscheme/crlf"
	"ufork.dev/uscheme/internal/cadata"
	"ufork.dev/uscheme/scheme"
)

// Artifact is the output of building one source file.
type Artifact struct {
	// Path is the path of the source in the build context.
	Path string `json:"path"`
	// Source is the hash of the source text.
	Source cadata.ID `json:"source"`
	// Asm is the assembly text.
	Asm string `json:"asm"`
	// Module is the CRLF encoding of the compiled module.
	Module json.RawMessage `json:"module"`
	// Defs are the names defined by the module, in order.
	Defs []string `json:"defs"`
}


// Build compiles the source file at p.
func (c *Context) Build(ctx context.Context, p string) (*Artifact, error) {
	f, err := c.fsys.Open(p)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	src, err := io.ReadAll(io.LimitReader(f, int64(c.cfg.MaxSourceSize)+1))
	if err != nil {
		return nil, err
	}
	if len(src) > c.cfg.MaxSourceSize {
		return nil, errTooLarge(p, len(src), c.cfg.MaxSourceSize)
	}
	return c.BuildSource(ctx, p, src)
}

// BuildSource compiles src, which was read from p.
// Artifacts are found by the hash of the source, so a source which has been built
// before is not compiled again.
func (c *Context) BuildSource(ctx context.Context, p string, src []byte) (*Artifact, error) {
	srcID := uscheme.Hash(src)
	if a, ok := c.cacheGet(ctx, srcID); ok {
		a.Path = p
		return &a, nil
	}
	a, err := c.load(ctx, srcID)
	if err != nil {
		return nil, err
	}
	if a == nil {
		logctx.Debug(ctx, "cache miss", zap.String("path", p), zap.Stringer("source", srcID))
		if a, err = c.compile(ctx, p, src); err != nil {
			return nil, err
		}
		if err := c.save(ctx, srcID, a); err != nil {
			return nil, err
		}
	}
	a.Path = p
	c.cacheAdd(srcID, *a)
	return a, nil
}

// BuildAll builds every path, at most Config.Parallel at a time.
// The artifacts are returned in the same order as paths.
func (c *Context) BuildAll(ctx context.Context, paths []string) ([]*Artifact, error) {
	ret := make([]*Artifact, len(paths))
	eg, ctx := errgroup.WithContext(ctx)
	if c.cfg.Parallel > 0 {
		eg.SetLimit(c.cfg.Parallel)
	}
	for i, p := range paths {
		eg.Go(func() error {
			a, err := c.Build(ctx, p)
			if err != nil {
				return err
			}
			ret[i] = a
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	logctx.Info(ctx, "built", zap.Strings("paths", slices2.Map(ret, func(a *Artifact) string {
		return a.Path
	})))
	return ret, nil
}

func (c *Context) compile(ctx context.Context, p string, src []byte) (*Artifact, error) {
	m, err := scheme.Compile(ctx, p, src)
	if err != nil {
		return nil, err
	}
	text, err := scheme.ToAsm(m)
	if err != nil {
		return nil, fmt.Errorf("emitting %q: %w", p, err)
	}
	data, err := crlf.MarshalModule(m)
	if err != nil {
		return nil, err
	}
	return &Artifact{
		Path:   p,
		Source: uscheme.Hash(src),
		Asm:    text,
		Module: data,
		Defs:   m.Define.Names(),
	}, nil
}

// load returns the artifact saved for the source, or nil if there is none.
func (c *Context) load(ctx context.Context, srcID cadata.ID) (*Artifact, error) {
	if c.index == nil || c.store == nil {
		return nil, nil
	}
	id, ok, err := c.index.Get(ctx, srcID)
	if err != nil || !ok {
		return nil, err
	}
	data, err := cadata.GetBytes(ctx, c.store, uscheme.Hash, id)
	if err != nil {
		if cadata.IsNotFound(err) {
			logctx.Warnf(ctx, "indexed artifact %v is missing from the store", id)
			return nil, nil
		}
		return nil, err
	}
	var a Artifact
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("decoding artifact %v: %w", id, err)
	}
	logctx.Debug(ctx, "store hit", zap.Stringer("source", srcID), zap.Stringer("artifact", id))
	return &a, nil
}

func (c *Context) save(ctx context.Context, srcID cadata.ID, a *Artifact) error {
	if c.index == nil || c.store == nil {
		return nil
	}
	data, err := json.Marshal(a)
	if err != nil {
		return err
	}
	id, err := c.store.Post(ctx, data)
	if err != nil {
		return err
	}
	return c.index.Put(ctx, srcID, id)
}

// WriteAll writes the assembly of each artifact to dst, next to where its source was.
func WriteAll(cfg Config, dst func(p string, data []byte) error, arts []*Artifact) error {
	for _, a := range arts {
		if err := dst(cfg.OutputPath(a.Path), []byte(a.Asm)); err != nil {
			return err
		}
	}
	return nil
}
