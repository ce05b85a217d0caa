// Package config loads the pipeline configuration file. All paths are
// resolved relative to the dataset root unless absolute.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config drives every pipeline stage. Zero values are replaced by the
// documented defaults after decode, so a partial file is valid.
type Config struct {
	// Chunk build.
	ChunkSize    float64 `yaml:"chunk_size"`
	ChunksDir    string  `yaml:"chunks_dir"`
	IndexFile    string  `yaml:"index_file"`
	MaxOpenFiles int     `yaml:"max_open_files"`
	MaxPerChunk  int     `yaml:"max_per_chunk"` // 0 = unlimited
	MaxUnits     int     `yaml:"max_units"`     // 0 = unlimited, debug only

	// Binary encode.
	BinDir string `yaml:"bin_dir"`

	// Manifest sharding.
	ManifestFile string `yaml:"manifest_file"`
	ShardBits    uint   `yaml:"shard_bits"`
	ShardDir     string `yaml:"shard_dir"`
	ShardIndex   string `yaml:"shard_index"`
	ShardFileExt string `yaml:"shard_file_ext"`

	// Asset resolution.
	AssetsRoot  string `yaml:"assets_root"`
	PacksFile   string `yaml:"packs_file"`
	TextureDir  string `yaml:"texture_dir"`
	CatalogFile string `yaml:"catalog_file"`
}

// Default returns the configuration used when no file is supplied.
func Default() Config {
	return Config{
		ChunkSize:    512,
		ChunksDir:    "chunks",
		IndexFile:    "chunks_index.json",
		MaxOpenFiles: 64,
		BinDir:       "chunks_bin",
		ManifestFile: "manifest.json",
		ShardBits:    8,
		ShardDir:     "manifest_shards",
		ShardIndex:   "manifest_index.json",
		ShardFileExt: ".json",
		AssetsRoot:   "assets",
		PacksFile:    "packs.json",
		TextureDir:   "models_textures",
		CatalogFile:  "texture_catalog.db",
	}
}

// Load reads a YAML config file and fills in defaults for absent fields.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("config %s: %w", path, err)
	}
	if err := cfg.validate(); err != nil {
		return cfg, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.ChunkSize <= 0 {
		return fmt.Errorf("chunk_size must be > 0, got %v", c.ChunkSize)
	}
	if c.MaxOpenFiles < 1 {
		return fmt.Errorf("max_open_files must be >= 1, got %d", c.MaxOpenFiles)
	}
	if c.ShardBits < 4 || c.ShardBits > 12 {
		return fmt.Errorf("shard_bits must be in [4,12], got %d", c.ShardBits)
	}
	return nil
}
