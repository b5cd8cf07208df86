package build

import (
	"context"
	"sync"

	"ufork.dev/uscheme/internal/cadata"
)

// Index maps the ID of a source to the ID of the artifact built from it.
type Index interface {
	Get(ctx context.Context, sourceID cadata.ID) (cadata.ID, bool, error)
	Put(ctx context.Context, sourceID, artifactID cadata.ID) error
}

var _ Index = &MemIndex{}

type MemIndex struct {
	mu sync.RWMutex
	m  map[cadata.ID]cadata.ID
}

func NewMemIndex() *MemIndex {
	return &MemIndex{m: make(map[cadata.ID]cadata.ID)}
}

func (ix *MemIndex) Get(ctx context.Context, sourceID cadata.ID) (cadata.ID, bool, error) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	id, ok := ix.m[sourceID]
	return id, ok, nil
}

func (ix *MemIndex) Put(ctx context.Context, sourceID, artifactID cadata.ID) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.m[sourceID] = artifactID
	return nil
}
