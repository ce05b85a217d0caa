// Package fsutil holds small filesystem helpers shared by the pipeline
// stages.
package fsutil

import (
	"strings"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"
	"github.com/klauspost/compress/zstd"
)

// ReadMaybeZstd reads a file, transparently decompressing when the name ends
// in .zst. City-sized manifests and map dumps ship compressed; everything
// else passes through untouched.
func ReadMaybeZstd(fs billy.Filesystem, path string) ([]byte, error) {
	raw, err := util.ReadFile(fs, path)
	if err != nil {
		return nil, err
	}
	if !strings.HasSuffix(strings.ToLower(path), ".zst") {
		return raw, nil
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, err
	}
	defer dec.Close()
	return dec.DecodeAll(raw, nil)
}
