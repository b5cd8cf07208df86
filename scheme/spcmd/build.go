package spcmd

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/jmoiron/sqlx"
	"go.brendoncarroll.net/star"
	"go.brendoncarroll.net/stdctx/logctx"
	"golang.org/x/sync/errgroup"

	"ufork.dev/uscheme"
	"ufork.dev/uscheme/internal/sqlstores"
	"ufork.dev/uscheme/playground"
	"ufork.dev/uscheme/scheme/build"
)

var buildCmd = star.Command{
	Metadata: star.Metadata{
		Short: "compile every source file in a directory, writing an assembly file for each",
	},
	Flags: []star.IParam{dbParam, outDirParam, cacheParam},
	Pos:   []star.IParam{dirParam},
	F: func(c star.Context) error {
		ctx := newContext(c)
		dir := dirParam.Load(c)
		outDir := outDirParam.Load(c)
		if outDir == "" {
			outDir = dir
		}
		db := dbParam.Load(c)
		defer db.Close()
		cfg := build.DefaultConfig()
		cfg.CacheSize = cacheParam.Load(c)
		bc, err := newBuildContext(os.DirFS(dir), db, cfg)
		if err != nil {
			return err
		}
		arts, err := buildDir(ctx, bc)
		if err != nil {
			return err
		}
		if err := build.WriteAll(cfg, func(p string, data []byte) error {
			p = filepath.Join(outDir, filepath.FromSlash(p))
			if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
				return err
			}
			return os.WriteFile(p, data, 0o644)
		}, arts); err != nil {
			return err
		}
		for _, a := range arts {
			c.Printf("%s\t%v\n", cfg.OutputPath(a.Path), a.Source)
		}
		return nil
	},
}

func buildDir(ctx context.Context, bc *build.Context) ([]*build.Artifact, error) {
	ps, err := bc.Find(".")
	if err != nil {
		return nil, err
	}
	logctx.Infof(ctx, "building %d files", len(ps))
	return bc.BuildAll(ctx, ps)
}

var serveCmd = star.Command{
	Metadata: star.Metadata{
		Short: "serve the playground over HTTP",
	},
	Flags: []star.IParam{dbParam, listenerParam, cacheParam},
	F: func(c star.Context) error {
		ctx := newContext(c)
		db := dbParam.Load(c)
		defer db.Close()
		lis := listenerParam.Load(c)
		cfg := build.DefaultConfig()
		cfg.CacheSize = cacheParam.Load(c)
		wd, err := os.Getwd()
		if err != nil {
			return err
		}
		bc, err := newBuildContext(os.DirFS(wd), db, cfg)
		if err != nil {
			return err
		}
		eg, ctx := errgroup.WithContext(ctx)
		eg.Go(func() error { return playground.Serve(ctx, lis, bc) })
		return eg.Wait()
	},
}

func newBuildContext(fsys fs.FS, db *sqlx.DB, cfg build.Config) (*build.Context, error) {
	store := sqlstores.NewStore(db, uscheme.Hash, uscheme.MaxArtifactSize)
	return build.NewContext(fsys, store, sqlstores.NewIndex(db), cfg)
}

