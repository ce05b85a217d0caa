package chunk

import (
	"bufio"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"

	"github.com/mapstream/mapstream/api"
)

// VerifyResult is the outcome of an independent recount of the chunk set.
type VerifyResult struct {
	Checked    int
	Mismatches []string
}

// OK reports whether the chunk set matches its index exactly.
func (r *VerifyResult) OK() bool { return len(r.Mismatches) == 0 }

// Verify recomputes every per-chunk line count from the files themselves and
// compares against the index document. It deliberately trusts nothing the
// build self-reported, so silent corruption from partial or duplicated runs
// shows up here.
func Verify(fs billy.Filesystem, chunksDir, indexFile string) (*VerifyResult, error) {
	raw, err := util.ReadFile(fs, indexFile)
	if err != nil {
		return nil, fmt.Errorf("read index: %w", err)
	}
	var idx api.ChunkIndex
	if err := json.Unmarshal(raw, &idx); err != nil {
		return nil, fmt.Errorf("parse index: %w", err)
	}
	if idx.Schema != api.SchemaChunkIndex {
		return nil, fmt.Errorf("unexpected index schema %q", idx.Schema)
	}

	res := &VerifyResult{}

	onDisk := make(map[string]bool)
	infos, err := fs.ReadDir(chunksDir)
	if err != nil {
		return nil, fmt.Errorf("read chunks dir: %w", err)
	}
	for _, info := range infos {
		if info.IsDir() || !strings.HasSuffix(info.Name(), ChunkFileExt) {
			continue
		}
		onDisk[info.Name()] = true
	}

	for key, entry := range idx.Chunks {
		res.Checked++
		if !onDisk[entry.File] {
			res.Mismatches = append(res.Mismatches, fmt.Sprintf("chunk %s: file %s missing", key, entry.File))
			continue
		}
		delete(onDisk, entry.File)
		n, err := countLines(fs, fs.Join(chunksDir, entry.File))
		if err != nil {
			res.Mismatches = append(res.Mismatches, fmt.Sprintf("chunk %s: %v", key, err))
			continue
		}
		if n != entry.Count {
			res.Mismatches = append(res.Mismatches, fmt.Sprintf("chunk %s: index says %d lines, file has %d", key, entry.Count, n))
		}
	}
	for name := range onDisk {
		res.Mismatches = append(res.Mismatches, fmt.Sprintf("file %s not in index", name))
	}
	return res, nil
}

// countLines counts non-blank lines; blank lines are permitted and ignored.
func countLines(fs billy.Filesystem, path string) (int, error) {
	f, err := fs.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	n := 0
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for sc.Scan() {
		if strings.TrimSpace(sc.Text()) != "" {
			n++
		}
	}
	return n, sc.Err()
}
