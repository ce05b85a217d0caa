package cmd

import (
	"errors"
	"fmt"
	"log"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/RoaringBitmap/roaring"
	"github.com/go-git/go-billy/v5/util"
	"github.com/ohler55/ojg/jp"
	"github.com/spf13/cast"
	"github.com/spf13/cobra"

	"github.com/mapstream/mapstream/internal/binenc"
	"github.com/mapstream/mapstream/internal/config"
	"github.com/mapstream/mapstream/internal/resolve"
	"github.com/mapstream/mapstream/internal/shard"
	"github.com/mapstream/mapstream/internal/texindex"
)

// textureRefs plucks every "texture" value out of a manifest entry, however
// deeply the material metadata nests it.
var textureRefs = jp.MustParseString("$..texture")

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Cross-check placed archetypes and textures against the manifest",
	Long: `Compares the archetype set actually placed in the encoded chunks against
the manifest, both ways, then resolves every manifest texture reference and
reports the ones no tier can satisfy. Uses the SQLite catalog from a prior
scan when present, otherwise stats the filesystem per candidate.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		fs := datasetFS()

		placed, err := placedArchetypes(cfg.BinDir)
		if err != nil {
			return err
		}

		entries, _, err := shard.LoadManifest(fs, cfg.ManifestFile)
		if err != nil {
			return err
		}
		manifest := roaring.New()
		for key := range entries {
			if id, err := strconv.ParseUint(key, 10, 32); err == nil {
				manifest.Add(uint32(id))
			}
		}

		unmanifested := roaring.AndNot(placed, manifest)
		unplaced := roaring.AndNot(manifest, placed)
		fmt.Printf("Placed archetypes: %d, manifest entries: %d.\n",
			placed.GetCardinality(), manifest.GetCardinality())
		fmt.Printf("Placed but missing from manifest: %d.\n", unmanifested.GetCardinality())
		fmt.Printf("In manifest but never placed: %d.\n", unplaced.GetCardinality())
		printSome("  missing id", unmanifested)

		missing, checked, err := auditTextures(cfg, entries)
		if err != nil {
			return err
		}
		fmt.Printf("Texture references: %d checked, %d unresolved.\n", checked, len(missing))
		sort.Strings(missing)
		for i, ref := range missing {
			if i == 20 {
				fmt.Printf("  ... and %d more\n", len(missing)-20)
				break
			}
			fmt.Println("  unresolved:", ref)
		}
		return nil
	},
}

// placedArchetypes unions the archetype ids of every encoded instance
// container under binDir.
func placedArchetypes(binDir string) (*roaring.Bitmap, error) {
	fs := datasetFS()
	placed := roaring.New()
	err := util.Walk(fs, binDir, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() || !strings.HasSuffix(info.Name(), ".cent") {
			return nil
		}
		raw, err := util.ReadFile(fs, p)
		if err != nil {
			return fmt.Errorf("read %s: %w", p, err)
		}
		recs, err := binenc.DecodeInstances(raw)
		if err != nil {
			return fmt.Errorf("decode %s: %w", p, err)
		}
		for _, r := range recs {
			placed.Add(r.Archetype)
		}
		return nil
	})
	if errors.Is(err, os.ErrNotExist) {
		log.Printf("audit: no %s directory, run encode first for archetype coverage", binDir)
		return placed, nil
	}
	if err != nil {
		return nil, err
	}
	return placed, nil
}

// auditTextures resolves each distinct manifest texture reference and reports
// the ones with no existing candidate in any tier.
func auditTextures(cfg config.Config, entries map[string]any) (missing []string, checked int, err error) {
	assets, err := assetsFS(cfg)
	if err != nil {
		return nil, 0, err
	}
	packs, err := resolve.LoadPacks(assets, cfg.PacksFile)
	if err != nil {
		return nil, 0, err
	}
	r := resolve.NewResolver(packs)
	idx := resolve.NewIndexCache(assets, texindex.IndexFileName)

	exists := func(p string) bool {
		_, err := assets.Stat(p)
		return err == nil
	}
	if _, statErr := os.Stat(catalogPath(cfg)); statErr == nil {
		cat, openErr := texindex.OpenCatalog(catalogPath(cfg))
		if openErr != nil {
			return nil, 0, openErr
		}
		defer func() {
			if closeErr := cat.Close(); err == nil {
				err = closeErr
			}
		}()
		exists = func(p string) bool {
			ok, hasErr := cat.Has(p)
			return hasErr == nil && ok
		}
	}

	seen := make(map[string]bool)
	for _, entry := range entries {
		for _, v := range textureRefs.Get(entry) {
			ref := strings.TrimSpace(cast.ToString(v))
			if ref == "" || seen[ref] {
				continue
			}
			seen[ref] = true
			checked++
			candidates := r.Candidates(ref, idx)
			if _, ok := resolve.FirstExisting(candidates, exists); !ok {
				missing = append(missing, ref)
			}
		}
	}
	return missing, checked, nil
}

func printSome(label string, bm *roaring.Bitmap) {
	it := bm.Iterator()
	for i := 0; it.HasNext(); i++ {
		if i == 20 {
			fmt.Printf("  ... and %d more\n", bm.GetCardinality()-20)
			return
		}
		fmt.Printf("%s: %d\n", label, it.Next())
	}
}

func init() {
	rootCmd.AddCommand(auditCmd)
}
