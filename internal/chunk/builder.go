package chunk

import (
	"encoding/json"
	"fmt"
	"log"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/RoaringBitmap/roaring"
	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"
	"github.com/ohler55/ojg/jp"
	"github.com/ohler55/ojg/oj"

	"github.com/mapstream/mapstream/api"
	"github.com/mapstream/mapstream/internal/fsutil"
)

// BuildOptions configures one full chunk build.
type BuildOptions struct {
	ChunkSize    float64
	ChunksDir    string
	IndexFile    string
	MaxOpenFiles int
	MaxPerChunk  int // 0 = unlimited; excess records are dropped, not queued
	MaxUnits     int // 0 = unlimited; debug/testing cap on map documents
}

// Builder ingests per-map JSON documents into chunk files and one index
// document. Every run is a full rebuild: prior chunk output is deleted
// first, never appended to.
type Builder struct {
	fs   billy.Filesystem
	opts BuildOptions

	entitiesPath jp.Expr
}

func NewBuilder(fs billy.Filesystem, opts BuildOptions) *Builder {
	return &Builder{
		fs:           fs,
		opts:         opts,
		entitiesPath: jp.MustParseString("$.entities[*]"),
	}
}

// Build walks inputDir for map documents (*.json, *.json.zst), streams every
// valid entity into its chunk file, and writes the index document. Malformed
// entities are skipped and counted; I/O failures on chunk output abort.
func (b *Builder) Build(inputDir string) (*api.ChunkIndex, error) {
	if err := util.RemoveAll(b.fs, b.opts.ChunksDir); err != nil {
		return nil, fmt.Errorf("clear chunks dir: %w", err)
	}
	pool, err := NewWriterPool(b.fs, b.opts.ChunksDir, b.opts.MaxOpenFiles)
	if err != nil {
		return nil, err
	}

	st := newBuildState()
	buildErr := b.ingestDir(inputDir, pool, st)
	if cerr := pool.CloseAll(); cerr != nil && buildErr == nil {
		buildErr = cerr
	}
	if buildErr != nil {
		return nil, buildErr
	}

	idx := st.index(b.opts)
	raw, err := json.MarshalIndent(idx, "", "  ")
	if err != nil {
		return nil, err
	}
	if err := util.WriteFile(b.fs, b.opts.IndexFile, append(raw, '\n'), 0o644); err != nil {
		return nil, fmt.Errorf("write index: %w", err)
	}
	log.Printf("chunks: %d units, %d entities into %d chunks (%d skipped, %d distinct archetypes)",
		idx.Stats.Units, idx.Stats.Entities, idx.Stats.Chunks, idx.Stats.Skipped, idx.Stats.DistinctArchetypes)
	return idx, nil
}

func (b *Builder) ingestDir(inputDir string, pool *WriterPool, st *buildState) error {
	var docs []string
	err := util.Walk(b.fs, inputDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() || !isMapDocument(path) {
			return nil // skip unsupported files
		}
		docs = append(docs, path)
		return nil
	})
	if err != nil {
		return fmt.Errorf("walk %s: %w", inputDir, err)
	}
	sort.Strings(docs)

	for _, path := range docs {
		if b.opts.MaxUnits > 0 && st.units >= b.opts.MaxUnits {
			break
		}
		if err := b.ingestDocument(path, pool, st); err != nil {
			return err
		}
		st.units++
	}
	return nil
}

func (b *Builder) ingestDocument(path string, pool *WriterPool, st *buildState) error {
	raw, err := fsutil.ReadMaybeZstd(b.fs, path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	doc, err := oj.Parse(raw)
	if err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}

	for _, ent := range b.entitiesPath.Get(doc) {
		rec, err := ParseEntity(ent)
		if err != nil {
			st.skipped++
			continue
		}
		key := Key(rec.Pos[0], rec.Pos[1], b.opts.ChunkSize)
		if b.opts.MaxPerChunk > 0 && st.counts[key] >= b.opts.MaxPerChunk {
			st.skipped++
			continue
		}
		if err := pool.WriteLine(key, EncodeLine(rec)); err != nil {
			return err
		}
		st.add(key, rec)
	}
	return nil
}

type buildState struct {
	units    int
	skipped  int
	entities int
	counts   map[string]int
	seen     *roaring.Bitmap
	min, max [3]float64
}

func newBuildState() *buildState {
	return &buildState{
		counts: make(map[string]int),
		seen:   roaring.New(),
		min:    [3]float64{math.Inf(1), math.Inf(1), math.Inf(1)},
		max:    [3]float64{math.Inf(-1), math.Inf(-1), math.Inf(-1)},
	}
}

func (st *buildState) add(key string, rec Record) {
	st.counts[key]++
	st.entities++
	st.seen.Add(rec.Archetype)
	for i := 0; i < 3; i++ {
		st.min[i] = math.Min(st.min[i], rec.Pos[i])
		st.max[i] = math.Max(st.max[i], rec.Pos[i])
	}
}

func (st *buildState) index(opts BuildOptions) *api.ChunkIndex {
	idx := &api.ChunkIndex{
		Schema:    api.SchemaChunkIndex,
		ChunkSize: opts.ChunkSize,
		ChunksDir: opts.ChunksDir,
		Chunks:    make(map[string]api.ChunkEntry, len(st.counts)),
		Stats: api.ChunkStats{
			Units:              st.units,
			Chunks:             len(st.counts),
			Entities:           st.entities,
			Skipped:            st.skipped,
			DistinctArchetypes: st.seen.GetCardinality(),
		},
	}
	if st.entities > 0 {
		idx.Bounds = api.Bounds{Min: st.min, Max: st.max}
	}
	for key, n := range st.counts {
		idx.Chunks[key] = api.ChunkEntry{File: key + ChunkFileExt, Count: n}
	}
	return idx
}

func isMapDocument(path string) bool {
	name := strings.ToLower(filepath.Base(path))
	return strings.HasSuffix(name, ".json") || strings.HasSuffix(name, ".json.zst")
}
