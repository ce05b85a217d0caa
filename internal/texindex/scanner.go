// Package texindex regenerates the per-tier texture reverse-lookup index by
// scanning the on-disk texture directories, and keeps a SQLite catalog of
// everything it saw for the audit pass. The index going stale between scans
// is expected; the resolver is built to fall through.
package texindex

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"

	"github.com/mapstream/mapstream/api"
	"github.com/mapstream/mapstream/internal/resolve"
)

// IndexFileName is the per-tier reverse-lookup index file.
const IndexFileName = "texture_index.json"

// File is one scanned texture file. Path is the candidate-form path relative
// to the assets root, i.e. exactly what the resolver emits, so catalog
// lookups are a single equality check.
type File struct {
	Path      string
	Tier      string // pack root, "" for base
	Name      string
	Hash      string // decimal u32 when the name is canonical, else ""
	Size      int64
	MtimeUnix int64
}

// ScanStats summarizes one tier scan.
type ScanStats struct {
	Files   int
	Hashed  int
	Skipped int
}

// ScanTier walks one tier's texture directory, records every image file in
// the catalog (when one is supplied), and rewrites the tier's reverse-lookup
// index. tierRoot is "" for the base tier.
func ScanTier(fs billy.Filesystem, tierRoot, textureDir string, cat *Catalog) (*ScanStats, error) {
	dir := textureDir
	if tierRoot != "" {
		dir = fs.Join(tierRoot, textureDir)
	}

	st := &ScanStats{}
	if _, err := fs.Stat(dir); errors.Is(err, os.ErrNotExist) {
		log.Printf("texindex: tier %q has no %s directory, nothing to scan", tierRoot, textureDir)
		return st, nil
	}

	if cat != nil {
		if err := cat.ClearTier(tierRoot); err != nil {
			return nil, err
		}
	}
	var files []File
	err := util.Walk(fs, dir, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() || !isImage(info.Name()) {
			if !info.IsDir() {
				st.Skipped++
			}
			return nil
		}
		f := File{
			Path:      p,
			Tier:      tierRoot,
			Name:      info.Name(),
			Size:      info.Size(),
			MtimeUnix: info.ModTime().Unix(),
		}
		if hash, _, _, ok := resolve.ParseName(info.Name()); ok {
			f.Hash = hash
			st.Hashed++
		}
		files = append(files, f)
		st.Files++
		if cat != nil {
			return cat.Add(f)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", dir, err)
	}

	idx := BuildIndex(files)
	raw, err := json.MarshalIndent(idx, "", "  ")
	if err != nil {
		return nil, err
	}
	out := IndexFileName
	if tierRoot != "" {
		out = fs.Join(tierRoot, IndexFileName)
	}
	if err := util.WriteFile(fs, out, append(raw, '\n'), 0o644); err != nil {
		return nil, fmt.Errorf("write %s: %w", out, err)
	}
	log.Printf("texindex: tier %q: %d files, %d hashed, %d skipped", tierRoot, st.Files, st.Hashed, st.Skipped)
	return st, nil
}

// BuildIndex groups canonical files by hash. The preferred file is the
// hash-only default-extension name when present, otherwise the
// lexicographically first file, so regeneration is order-independent.
func BuildIndex(files []File) *api.TextureIndex {
	byHash := make(map[string][]string)
	for _, f := range files {
		if f.Hash == "" {
			continue
		}
		byHash[f.Hash] = append(byHash[f.Hash], f.Name)
	}

	idx := &api.TextureIndex{
		Schema:      api.SchemaTextureIndex,
		GeneratedAt: time.Now().UTC().Format(time.RFC3339),
		ByHash:      make(map[string]api.TextureEntry, len(byHash)),
	}
	for hash, names := range byHash {
		sort.Strings(names)
		hashOnlyName := hash + "." + resolve.DefaultExt
		entry := api.TextureEntry{Files: names, PreferredFile: names[0]}
		for _, n := range names {
			if n == hashOnlyName {
				entry.HashOnly = true
				entry.PreferredFile = hashOnlyName
				break
			}
		}
		idx.ByHash[hash] = entry
	}
	return idx
}

func isImage(name string) bool {
	switch strings.ToLower(path.Ext(name)) {
	case ".png", ".dds", ".jpg", ".jpeg", ".bmp", ".tga":
		return true
	}
	return false
}
