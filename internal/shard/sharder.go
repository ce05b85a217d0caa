// Package shard partitions the archetype manifest into a bounded set of
// smaller files keyed by the low bits of each archetype id. Membership is a
// pure function of (key, shard_bits), so resharding never moves a key
// between shards and run order is irrelevant.
package shard

import (
	"encoding/json"
	"fmt"
	"log"
	"strconv"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"
	"github.com/ohler55/ojg/oj"
	"github.com/spf13/cast"

	"github.com/mapstream/mapstream/api"
	"github.com/mapstream/mapstream/internal/fsutil"
)

// PartitionRule names the one partitioning scheme we emit. Readers check it
// before assuming low-bits addressing.
const PartitionRule = "low-bits"

// Options configures one sharding run.
type Options struct {
	Source    string // manifest file, *.json or *.json.zst
	ShardBits uint   // practical range 4 to 12
	ShardDir  string
	IndexFile string
	FileExt   string
}

// Result reports what a run did.
type Result struct {
	Index   api.ShardIndex
	Written int
	Skipped bool // source mtime and shard_bits matched the existing index
}

// Run shards the manifest unless the existing index already reflects the
// current source mtime and shard_bits, in which case it is a no-op. That
// check is what makes re-running cheap on an unchanged, possibly enormous
// manifest.
func Run(fs billy.Filesystem, opts Options) (*Result, error) {
	info, err := fs.Stat(opts.Source)
	if err != nil {
		return nil, fmt.Errorf("stat manifest: %w", err)
	}
	mtime := info.ModTime().Unix()

	if prev, err := readIndex(fs, opts.IndexFile); err == nil &&
		prev.SourceMtimeUnix == mtime && prev.ShardBits == opts.ShardBits {
		log.Printf("shard: %s unchanged (mtime %d, %d bits), nothing to do", opts.Source, mtime, opts.ShardBits)
		return &Result{Index: *prev, Skipped: true}, nil
	}

	entries, version, err := LoadManifest(fs, opts.Source)
	if err != nil {
		return nil, err
	}

	shardCount := uint32(1) << opts.ShardBits
	buckets := make(map[uint32]map[string]any)
	badKeys := 0
	for key, entry := range entries {
		id, err := strconv.ParseUint(key, 10, 32)
		if err != nil {
			badKeys++
			continue
		}
		sid := uint32(id) & (shardCount - 1)
		if buckets[sid] == nil {
			buckets[sid] = make(map[string]any)
		}
		buckets[sid][key] = entry
	}
	if badKeys > 0 {
		log.Printf("shard: %d manifest keys were not u32 and were skipped", badKeys)
	}

	if err := util.RemoveAll(fs, opts.ShardDir); err != nil {
		return nil, fmt.Errorf("clear shard dir: %w", err)
	}
	if err := fs.MkdirAll(opts.ShardDir, 0o755); err != nil {
		return nil, fmt.Errorf("create shard dir: %w", err)
	}

	res := &Result{}
	for sid, bucket := range buckets {
		doc := api.Shard{
			Schema:          api.SchemaShard,
			ManifestVersion: version,
			ShardBits:       opts.ShardBits,
			ShardID:         sid,
			Entries:         bucket,
		}
		raw, err := json.MarshalIndent(doc, "", "  ")
		if err != nil {
			return nil, err
		}
		name := ShardFileName(sid, opts.ShardBits) + opts.FileExt
		if err := util.WriteFile(fs, fs.Join(opts.ShardDir, name), append(raw, '\n'), 0o644); err != nil {
			return nil, fmt.Errorf("write shard %s: %w", name, err)
		}
		res.Written++
	}

	res.Index = api.ShardIndex{
		Schema:          api.SchemaShardIndex,
		Source:          opts.Source,
		SourceMtimeUnix: mtime,
		ManifestVersion: version,
		MeshCount:       len(entries) - badKeys,
		BadKeys:         badKeys,
		ShardBits:       opts.ShardBits,
		ShardCount:      shardCount,
		ShardDir:        opts.ShardDir,
		ShardFileExt:    opts.FileExt,
		Partition:       PartitionRule,
	}
	raw, err := json.MarshalIndent(res.Index, "", "  ")
	if err != nil {
		return nil, err
	}
	if err := util.WriteFile(fs, opts.IndexFile, append(raw, '\n'), 0o644); err != nil {
		return nil, fmt.Errorf("write shard index: %w", err)
	}
	log.Printf("shard: %d entries into %d files (%d bad keys)", res.Index.MeshCount, res.Written, badKeys)
	return res, nil
}

// ShardFileName is the lowercase hex shard id, zero-padded to one digit per
// four shard bits with a two-digit floor, so 16-shard and 256-shard layouts
// name their files identically.
func ShardFileName(id uint32, bits uint) string {
	digits := int(bits+3) / 4
	if digits < 2 {
		digits = 2
	}
	return fmt.Sprintf("%0*x", digits, id)
}

// ShardFor returns the shard id a manifest key belongs to.
func ShardFor(key string, bits uint) (uint32, error) {
	id, err := strconv.ParseUint(key, 10, 32)
	if err != nil {
		return 0, err
	}
	return uint32(id) & ((uint32(1) << bits) - 1), nil
}

func readIndex(fs billy.Filesystem, path string) (*api.ShardIndex, error) {
	raw, err := util.ReadFile(fs, path)
	if err != nil {
		return nil, err
	}
	var idx api.ShardIndex
	if err := json.Unmarshal(raw, &idx); err != nil {
		return nil, err
	}
	if idx.Schema != api.SchemaShardIndex {
		return nil, fmt.Errorf("unexpected shard index schema %q", idx.Schema)
	}
	return &idx, nil
}

// LoadManifest accepts either a bare {id: entry} map or a wrapper document
// {"version": ..., "meshes": {id: entry}}.
func LoadManifest(fs billy.Filesystem, path string) (map[string]any, string, error) {
	raw, err := fsutil.ReadMaybeZstd(fs, path)
	if err != nil {
		return nil, "", fmt.Errorf("read manifest: %w", err)
	}
	doc, err := oj.Parse(raw)
	if err != nil {
		return nil, "", fmt.Errorf("parse manifest: %w", err)
	}
	obj, ok := doc.(map[string]any)
	if !ok {
		return nil, "", fmt.Errorf("manifest %s is not an object", path)
	}
	if meshes, ok := obj["meshes"].(map[string]any); ok {
		version := cast.ToString(obj["version"])
		return meshes, version, nil
	}
	return obj, "", nil
}
