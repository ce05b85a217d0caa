package chunk

import (
	"fmt"
	"os"

	"github.com/go-git/go-billy/v5"
	"github.com/hashicorp/golang-lru/v2/simplelru"
)

// ChunkFileExt is the extension of the per-chunk NDJSON files.
const ChunkFileExt = ".jsonl"

// WriterPool hands out append-mode chunk file handles while bounding how
// many stay open at once. The least-recently-used handle is closed when the
// cap is exceeded; a later write to the same key reopens in append mode, so
// per-key write order is preserved across evictions.
//
// The pool never truncates. The builder clears the chunks directory before
// a run, which is what keeps re-runs from accumulating duplicates.
type WriterPool struct {
	fs       billy.Filesystem
	dir      string
	handles  *simplelru.LRU[string, billy.File]
	closeErr error
}

// NewWriterPool creates the chunks directory and an empty pool. Failure to
// create the directory is fatal to the whole build.
func NewWriterPool(fs billy.Filesystem, dir string, maxOpen int) (*WriterPool, error) {
	if err := fs.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create chunks dir %s: %w", dir, err)
	}
	p := &WriterPool{fs: fs, dir: dir}
	lru, err := simplelru.NewLRU(maxOpen, func(key string, f billy.File) {
		if err := f.Close(); err != nil && p.closeErr == nil {
			p.closeErr = fmt.Errorf("close chunk %s: %w", key, err)
		}
	})
	if err != nil {
		return nil, err
	}
	p.handles = lru
	return p, nil
}

// WriteLine appends line + "\n" to the chunk file for key, opening the file
// on first use and marking the key most-recently-used. Any open or write
// failure is fatal: a partially written chunk would break the index
// invariant, so the caller must abort the build.
func (p *WriterPool) WriteLine(key, line string) error {
	f, ok := p.handles.Get(key)
	if !ok {
		var err error
		f, err = p.fs.OpenFile(p.Path(key), os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("open chunk %s: %w", key, err)
		}
		p.handles.Add(key, f)
		if p.closeErr != nil {
			return p.closeErr
		}
	}
	if _, err := f.Write([]byte(line + "\n")); err != nil {
		return fmt.Errorf("write chunk %s: %w", key, err)
	}
	return nil
}

// Open reports how many handles are currently open.
func (p *WriterPool) Open() int {
	return p.handles.Len()
}

// Path returns the chunk file path for a key.
func (p *WriterPool) Path(key string) string {
	return p.fs.Join(p.dir, key+ChunkFileExt)
}

// CloseAll flushes and closes every still-open handle. It must run at the
// end of ingestion whether the build succeeded or not.
func (p *WriterPool) CloseAll() error {
	p.handles.Purge()
	return p.closeErr
}
