package resolve

import (
	"testing"

	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mapstream/mapstream/api"
)

func TestLoadPacks(t *testing.T) {
	fs := memfs.New()
	require.NoError(t, util.WriteFile(fs, "packs.json", []byte(`{
		"packs": [
			{"id": "hd", "rootRel": "packs/hd", "priority": 20, "enabled": true},
			{"id": "winter", "rootRel": "packs/winter", "priority": 10, "enabled": false}
		]
	}`), 0o644))

	packs, err := LoadPacks(fs, "packs.json")
	require.NoError(t, err)
	require.Len(t, packs, 2)
	assert.Equal(t, "hd", packs[0].ID)
	assert.False(t, packs[1].Enabled)
}

func TestLoadPacks_MissingFileMeansNoPacks(t *testing.T) {
	packs, err := LoadPacks(memfs.New(), "packs.json")
	require.NoError(t, err)
	assert.Empty(t, packs)
}

func TestLoadPacks_RejectsInvalidDocument(t *testing.T) {
	fs := memfs.New()
	require.NoError(t, util.WriteFile(fs, "packs.json", []byte(`{
		"packs": [{"id": "", "rootRel": "x", "priority": 1, "enabled": true}]
	}`), 0o644))
	_, err := LoadPacks(fs, "packs.json")
	assert.ErrorContains(t, err, "validate")

	require.NoError(t, util.WriteFile(fs, "packs.json", []byte(`{"packs": "nope"}`), 0o644))
	_, err = LoadPacks(fs, "packs.json")
	assert.Error(t, err)
}

func TestIndexCache_LoadsOncePerTier(t *testing.T) {
	fs := memfs.New()
	require.NoError(t, util.WriteFile(fs, "texture_index.json", []byte(`{
		"schema": "mapstream.texindex/v1",
		"generatedAt": "2026-08-23T00:00:00Z",
		"byHash": {"77": {"hashOnly": false, "preferredFile": "77.dds", "files": ["77.dds"]}}
	}`), 0o644))

	cache := NewIndexCache(fs, "texture_index.json")
	base := cache.Tier("")
	require.NotNil(t, base)
	assert.Equal(t, "77.dds", base.ByHash["77"].PreferredFile)

	// A tier without an index caches nil; stale or absent indices are an
	// expected steady state, not an error.
	assert.Nil(t, cache.Tier("packs/hd"))
	assert.Same(t, base, cache.Tier(""))
}

func TestIndexCache_BadSchemaTag(t *testing.T) {
	fs := memfs.New()
	require.NoError(t, util.WriteFile(fs, "texture_index.json", []byte(`{"schema": "other/v9", "byHash": {}}`), 0o644))
	cache := NewIndexCache(fs, "texture_index.json")
	assert.Nil(t, cache.Tier(""))
}

func TestOrderPacks(t *testing.T) {
	got := orderPacks([]api.Pack{
		{ID: "b", Priority: 1, Enabled: true},
		{ID: "a", Priority: 1, Enabled: true},
		{ID: "c", Priority: 9, Enabled: true},
		{ID: "d", Priority: 99, Enabled: false},
	})
	require.Len(t, got, 3)
	assert.Equal(t, "c", got[0].ID)
	assert.Equal(t, "a", got[1].ID)
	assert.Equal(t, "b", got[2].ID)
}
