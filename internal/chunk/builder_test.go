package chunk

import (
	"fmt"
	"os"
	"testing"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testOpts() BuildOptions {
	return BuildOptions{
		ChunkSize:    512,
		ChunksDir:    "chunks",
		IndexFile:    "chunks_index.json",
		MaxOpenFiles: 4,
	}
}

func writeMap(t *testing.T, fs billy.Filesystem, name, body string) {
	t.Helper()
	require.NoError(t, util.WriteFile(fs, "maps/"+name, []byte(body), 0o644))
}

func TestBuilder_Build(t *testing.T) {
	fs := memfs.New()
	writeMap(t, fs, "downtown.json", `{"entities": [
		{"archetype": 1, "position": [10.0, -5.0, 3.0]},
		{"archetype": 2, "position": [600.0, 10.0, 0.0]},
		{"archetype": 2, "position": [610.0, 20.0, 7.0]},
		{"archetype": "bad"},
		{"position": [1, 2, 3]}
	]}`)

	idx, err := NewBuilder(fs, testOpts()).Build("maps")
	require.NoError(t, err)

	assert.Equal(t, 1, idx.Stats.Units)
	assert.Equal(t, 3, idx.Stats.Entities)
	assert.Equal(t, 2, idx.Stats.Skipped)
	assert.Equal(t, 2, idx.Stats.Chunks)
	assert.Equal(t, uint64(2), idx.Stats.DistinctArchetypes)

	assert.Equal(t, 1, idx.Chunks["0_-1"].Count)
	assert.Equal(t, 2, idx.Chunks["1_0"].Count)

	assert.Equal(t, [3]float64{10.0, -5.0, 0.0}, idx.Bounds.Min)
	assert.Equal(t, [3]float64{610.0, 20.0, 7.0}, idx.Bounds.Max)

	// Index counts must match the files line for line.
	res, err := Verify(fs, "chunks", "chunks_index.json")
	require.NoError(t, err)
	assert.True(t, res.OK(), "mismatches: %v", res.Mismatches)
}

func TestBuilder_RerunIsFullRebuild(t *testing.T) {
	fs := memfs.New()
	writeMap(t, fs, "a.json", `{"entities": [{"archetype": 1, "position": [1, 1, 1]}]}`)

	b := NewBuilder(fs, testOpts())
	first, err := b.Build("maps")
	require.NoError(t, err)
	second, err := b.Build("maps")
	require.NoError(t, err)

	// Identical input twice must not accumulate duplicate lines.
	assert.Equal(t, first.Chunks, second.Chunks)
	res, err := Verify(fs, "chunks", "chunks_index.json")
	require.NoError(t, err)
	assert.True(t, res.OK(), "mismatches: %v", res.Mismatches)
}

func TestBuilder_PerChunkCapDropsExcess(t *testing.T) {
	fs := memfs.New()
	var body string
	for i := 0; i < 5; i++ {
		body += fmt.Sprintf(`{"archetype": 1, "position": [%d, 0, 0]},`, i)
	}
	writeMap(t, fs, "a.json", `{"entities": [`+body[:len(body)-1]+`]}`)

	opts := testOpts()
	opts.MaxPerChunk = 3
	idx, err := NewBuilder(fs, opts).Build("maps")
	require.NoError(t, err)
	assert.Equal(t, 3, idx.Chunks["0_0"].Count)
	assert.Equal(t, 2, idx.Stats.Skipped)
}

func TestBuilder_MaxUnitsCap(t *testing.T) {
	fs := memfs.New()
	writeMap(t, fs, "a.json", `{"entities": [{"archetype": 1, "position": [0, 0, 0]}]}`)
	writeMap(t, fs, "b.json", `{"entities": [{"archetype": 2, "position": [0, 0, 0]}]}`)

	opts := testOpts()
	opts.MaxUnits = 1
	idx, err := NewBuilder(fs, opts).Build("maps")
	require.NoError(t, err)
	assert.Equal(t, 1, idx.Stats.Units)
	assert.Equal(t, 1, idx.Stats.Entities)
}

func TestVerify_DetectsTampering(t *testing.T) {
	fs := memfs.New()
	writeMap(t, fs, "a.json", `{"entities": [
		{"archetype": 1, "position": [0, 0, 0]},
		{"archetype": 1, "position": [1, 1, 1]}
	]}`)
	_, err := NewBuilder(fs, testOpts()).Build("maps")
	require.NoError(t, err)

	// Simulate a duplicated partial run by appending an extra line.
	f, err := fs.OpenFile("chunks/0_0.jsonl", os.O_WRONLY|os.O_APPEND, 0o644)
	require.NoError(t, err)
	_, err = f.Write([]byte(`{"archetype":1,"pos":[2,2,2]}` + "\n"))
	require.NoError(t, err)
	require.NoError(t, f.Close())

	res, err := Verify(fs, "chunks", "chunks_index.json")
	require.NoError(t, err)
	assert.False(t, res.OK())
	assert.Len(t, res.Mismatches, 1)

	// And a file the index has never heard of.
	require.NoError(t, util.WriteFile(fs, "chunks/9_9.jsonl", []byte("{}\n"), 0o644))
	res, err = Verify(fs, "chunks", "chunks_index.json")
	require.NoError(t, err)
	assert.Len(t, res.Mismatches, 2)
}
