package texindex

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mapstream/mapstream/api"
)

func TestScanTier_BuildsIndex(t *testing.T) {
	fs := memfs.New()
	for _, name := range []string{
		"77.png", "77.dds", "901_fence.dds", "readme.txt", "brick.png",
	} {
		require.NoError(t, util.WriteFile(fs, "models_textures/"+name, []byte("x"), 0o644))
	}

	st, err := ScanTier(fs, "", "models_textures", nil)
	require.NoError(t, err)
	assert.Equal(t, 4, st.Files)
	assert.Equal(t, 3, st.Hashed)
	assert.Equal(t, 1, st.Skipped)

	raw, err := util.ReadFile(fs, "texture_index.json")
	require.NoError(t, err)
	var idx api.TextureIndex
	require.NoError(t, json.Unmarshal(raw, &idx))
	assert.Equal(t, api.SchemaTextureIndex, idx.Schema)

	e77 := idx.ByHash["77"]
	assert.True(t, e77.HashOnly)
	assert.Equal(t, "77.png", e77.PreferredFile)
	assert.Equal(t, []string{"77.dds", "77.png"}, e77.Files)

	e901 := idx.ByHash["901"]
	assert.False(t, e901.HashOnly)
	assert.Equal(t, "901_fence.dds", e901.PreferredFile)
}

func TestScanTier_PackTierWritesUnderRoot(t *testing.T) {
	fs := memfs.New()
	require.NoError(t, util.WriteFile(fs, "packs/hd/models_textures/5.png", []byte("x"), 0o644))

	st, err := ScanTier(fs, "packs/hd", "models_textures", nil)
	require.NoError(t, err)
	assert.Equal(t, 1, st.Files)

	raw, err := util.ReadFile(fs, "packs/hd/texture_index.json")
	require.NoError(t, err)
	var idx api.TextureIndex
	require.NoError(t, json.Unmarshal(raw, &idx))
	assert.Contains(t, idx.ByHash, "5")
}

func TestScanTier_MissingDirIsEmpty(t *testing.T) {
	st, err := ScanTier(memfs.New(), "packs/none", "models_textures", nil)
	require.NoError(t, err)
	assert.Zero(t, st.Files)
}

func TestCatalog_AddAndHas(t *testing.T) {
	cat, err := OpenCatalog(filepath.Join(t.TempDir(), "catalog.db"))
	require.NoError(t, err)
	defer func() { _ = cat.Close() }()

	require.NoError(t, cat.Add(File{
		Path: "models_textures/77.png", Tier: "", Name: "77.png", Hash: "77", Size: 10, MtimeUnix: 1,
	}))
	require.NoError(t, cat.Add(File{
		Path: "packs/hd/models_textures/77.dds", Tier: "packs/hd", Name: "77.dds", Hash: "77", Size: 20, MtimeUnix: 2,
	}))

	ok, err := cat.Has("models_textures/77.png")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = cat.Has("models_textures/nope.png")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCatalog_ClearTier(t *testing.T) {
	cat, err := OpenCatalog(filepath.Join(t.TempDir(), "catalog.db"))
	require.NoError(t, err)
	defer func() { _ = cat.Close() }()

	require.NoError(t, cat.Add(File{Path: "models_textures/1.png", Tier: "", Name: "1.png", Hash: "1"}))
	require.NoError(t, cat.Add(File{Path: "packs/hd/models_textures/2.png", Tier: "packs/hd", Name: "2.png", Hash: "2"}))
	require.NoError(t, cat.ClearTier(""))

	ok, err := cat.Has("models_textures/1.png")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = cat.Has("packs/hd/models_textures/2.png")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestScanTier_FillsCatalog(t *testing.T) {
	fs := memfs.New()
	require.NoError(t, util.WriteFile(fs, "models_textures/42_crate.png", []byte("x"), 0o644))

	cat, err := OpenCatalog(filepath.Join(t.TempDir(), "catalog.db"))
	require.NoError(t, err)
	defer func() { _ = cat.Close() }()

	_, err = ScanTier(fs, "", "models_textures", cat)
	require.NoError(t, err)

	ok, err := cat.Has("models_textures/42_crate.png")
	require.NoError(t, err)
	assert.True(t, ok)
}
