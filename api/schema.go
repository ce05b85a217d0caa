package api

// Schema tags carried by each emitted document kind. A reader checks the tag
// before trusting anything else in the file.
const (
	SchemaChunkIndex   = "mapstream.chunks/v1"
	SchemaShard        = "mapstream.shard/v1"
	SchemaShardIndex   = "mapstream.shard-index/v1"
	SchemaTextureIndex = "mapstream.texindex/v1"
)

// ChunkIndex is the single index document emitted by a chunk build. It is
// fully replaced on every run, never merged.
type ChunkIndex struct {
	Schema    string                `json:"schema"`
	ChunkSize float64               `json:"chunk_size"`
	ChunksDir string                `json:"chunks_dir"`
	Bounds    Bounds                `json:"bounds"`
	Stats     ChunkStats            `json:"stats"`
	Chunks    map[string]ChunkEntry `json:"chunks"`
}

// Bounds holds global min/max coordinates across every ingested record.
type Bounds struct {
	Min [3]float64 `json:"min"`
	Max [3]float64 `json:"max"`
}

// ChunkStats aggregates counters over one full build.
type ChunkStats struct {
	Units              int    `json:"units"`
	Chunks             int    `json:"chunks"`
	Entities           int    `json:"entities"`
	Skipped            int    `json:"skipped"`
	DistinctArchetypes uint64 `json:"distinct_archetypes"`
}

// ChunkEntry describes one chunk file. Count must equal the number of
// non-blank lines in the file; the verify pass recomputes this from scratch.
type ChunkEntry struct {
	File  string `json:"file"`
	Count int    `json:"count"`
}

// ShardIndex is the index document emitted next to the manifest shards.
type ShardIndex struct {
	Schema          string `json:"schema"`
	Source          string `json:"source"`
	SourceMtimeUnix int64  `json:"source_mtime_unix"`
	ManifestVersion string `json:"manifest_version,omitempty"`
	MeshCount       int    `json:"mesh_count"`
	BadKeys         int    `json:"bad_keys"`
	ShardBits       uint   `json:"shard_bits"`
	ShardCount      uint32 `json:"shard_count"`
	ShardDir        string `json:"shard_dir"`
	ShardFileExt    string `json:"shard_file_ext"`
	Partition       string `json:"partition"`
}

// Shard is one partition of the manifest map. Entries are carried as raw
// JSON values so unknown manifest fields survive resharding untouched.
type Shard struct {
	Schema          string         `json:"schema"`
	ManifestVersion string         `json:"manifest_version,omitempty"`
	ShardBits       uint           `json:"shard_bits"`
	ShardID         uint32         `json:"shard_id"`
	Entries         map[string]any `json:"entries"`
}

// TextureIndex is the reverse-lookup index for one tier (base or pack root).
// Stale entries are an expected steady state; the resolver falls through.
type TextureIndex struct {
	Schema      string                  `json:"schema"`
	GeneratedAt string                  `json:"generatedAt"`
	ByHash      map[string]TextureEntry `json:"byHash"`
}

// TextureEntry records what on-disk filenames exist for one texture hash.
type TextureEntry struct {
	HashOnly      bool     `json:"hashOnly"`
	PreferredFile string   `json:"preferredFile,omitempty"`
	Files         []string `json:"files"`
}

// PackConfig is the externally authored overlay pack list.
type PackConfig struct {
	Packs []Pack `json:"packs"`
}

// Pack is one optional overlay asset bundle. The resolver orders enabled
// packs by priority descending, ties broken by id.
type Pack struct {
	ID       string `json:"id"`
	RootRel  string `json:"rootRel"`
	Priority int    `json:"priority"`
	Enabled  bool   `json:"enabled"`
}
