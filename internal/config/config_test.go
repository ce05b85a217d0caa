package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 512.0, cfg.ChunkSize)
	assert.Equal(t, 64, cfg.MaxOpenFiles)
	assert.Equal(t, uint(8), cfg.ShardBits)
	assert.Equal(t, "chunks", cfg.ChunksDir)
}

func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mapstream.yaml")
	require.NoError(t, os.WriteFile(path, []byte("chunk_size: 256\nshard_bits: 6\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 256.0, cfg.ChunkSize)
	assert.Equal(t, uint(6), cfg.ShardBits)
	assert.Equal(t, "chunks_index.json", cfg.IndexFile)
}

func TestLoad_RejectsBadValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mapstream.yaml")
	require.NoError(t, os.WriteFile(path, []byte("chunk_size: -1\n"), 0o644))

	_, err := Load(path)
	assert.ErrorContains(t, err, "chunk_size")

	require.NoError(t, os.WriteFile(path, []byte("shard_bits: 20\n"), 0o644))
	_, err = Load(path)
	assert.ErrorContains(t, err, "shard_bits")
}
