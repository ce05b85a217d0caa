package resolve

import (
	"encoding/json"
	"sync"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"

	"github.com/mapstream/mapstream/api"
)

// IndexCache memoizes per-tier reverse-lookup indices. It is passed
// explicitly into resolution calls instead of living as a package singleton,
// so parallel audit passes each get their own view. A tier without an index
// (or with an unreadable one) caches nil — the resolver treats that as "no
// index" and falls back, it is not an error.
type IndexCache struct {
	fs   billy.Filesystem
	file string

	mu     sync.RWMutex
	byTier map[string]*api.TextureIndex
}

// NewIndexCache reads indices through fs; file is the per-tier index file
// name (e.g. "texture_index.json") resolved relative to each tier root.
func NewIndexCache(fs billy.Filesystem, file string) *IndexCache {
	return &IndexCache{fs: fs, file: file, byTier: make(map[string]*api.TextureIndex)}
}

// Tier returns the reverse-lookup index for a tier root ("" = base), loading
// it at most once. Safe for concurrent use.
func (c *IndexCache) Tier(root string) *api.TextureIndex {
	c.mu.RLock()
	idx, ok := c.byTier[root]
	c.mu.RUnlock()
	if ok {
		return idx
	}

	idx = c.load(root)
	c.mu.Lock()
	c.byTier[root] = idx
	c.mu.Unlock()
	return idx
}

func (c *IndexCache) load(root string) *api.TextureIndex {
	path := c.file
	if root != "" {
		path = c.fs.Join(root, c.file)
	}
	raw, err := util.ReadFile(c.fs, path)
	if err != nil {
		return nil
	}
	var idx api.TextureIndex
	if err := json.Unmarshal(raw, &idx); err != nil {
		return nil
	}
	if idx.Schema != api.SchemaTextureIndex {
		return nil
	}
	return &idx
}
