package binenc

import (
	"bufio"
	"fmt"
	"log"
	"strings"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"

	"github.com/mapstream/mapstream/internal/chunk"
)

// Format selects which container a pass emits.
type Format string

const (
	FormatPositions Format = "positions"
	FormatInstances Format = "instances"
)

// Ext returns the output file extension for the format.
func (f Format) Ext() string {
	if f == FormatPositions {
		return ".cpos"
	}
	return ".cent"
}

// PassStats summarizes one encode pass.
type PassStats struct {
	Encoded    int
	UpToDate   int
	BadFiles   int
	BadRecords int
}

// EncodeDir re-encodes every chunk text file under chunksDir into binDir.
// Unlike the chunk build, this pass is incremental: a chunk whose binary
// output is at least as new as its text source is skipped. Unreadable source
// files are warned about and skipped; they never abort the pass.
func EncodeDir(fs billy.Filesystem, chunksDir, binDir string, format Format) (*PassStats, error) {
	if err := fs.MkdirAll(binDir, 0o755); err != nil {
		return nil, fmt.Errorf("create bin dir %s: %w", binDir, err)
	}
	infos, err := fs.ReadDir(chunksDir)
	if err != nil {
		return nil, fmt.Errorf("read chunks dir: %w", err)
	}

	st := &PassStats{}
	for _, info := range infos {
		if info.IsDir() || !strings.HasSuffix(info.Name(), chunk.ChunkFileExt) {
			continue
		}
		key := strings.TrimSuffix(info.Name(), chunk.ChunkFileExt)
		src := fs.Join(chunksDir, info.Name())
		dst := fs.Join(binDir, key+format.Ext())

		if out, err := fs.Stat(dst); err == nil && !out.ModTime().Before(info.ModTime()) {
			st.UpToDate++
			continue
		}

		recs, bad, err := readChunkRecords(fs, src)
		if err != nil {
			log.Printf("binenc: skipping unreadable chunk %s: %v", src, err)
			st.BadFiles++
			continue
		}
		st.BadRecords += bad

		var data []byte
		if format == FormatPositions {
			data = EncodePositions(recs)
		} else {
			data = EncodeInstances(recs)
		}
		if err := util.WriteFile(fs, dst, data, 0o644); err != nil {
			return st, fmt.Errorf("write %s: %w", dst, err)
		}
		st.Encoded++
	}
	log.Printf("binenc: %d encoded, %d up to date, %d bad files, %d bad records",
		st.Encoded, st.UpToDate, st.BadFiles, st.BadRecords)
	return st, nil
}

// readChunkRecords parses a chunk text file, skipping blank lines and
// counting (not failing on) malformed records.
func readChunkRecords(fs billy.Filesystem, path string) ([]chunk.Record, int, error) {
	f, err := fs.Open(path)
	if err != nil {
		return nil, 0, err
	}
	defer f.Close()

	var recs []chunk.Record
	bad := 0
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		rec, err := chunk.ParseLine([]byte(line))
		if err != nil {
			bad++
			continue
		}
		recs = append(recs, rec)
	}
	if err := sc.Err(); err != nil {
		return nil, bad, err
	}
	return recs, bad, nil
}
