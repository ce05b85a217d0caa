package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mapstream/mapstream/internal/resolve"
	"github.com/mapstream/mapstream/internal/texindex"
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan texture directories and rebuild the per-tier lookup indices",
	Long: `Walks the base tier and every enabled pack's texture directory, records
each image file in the SQLite catalog, and rewrites each tier's
texture_index.json. Run it after textures change; the audit command reads
the catalog it produces.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		assets, err := assetsFS(cfg)
		if err != nil {
			return err
		}
		packs, err := resolve.LoadPacks(assets, cfg.PacksFile)
		if err != nil {
			return err
		}

		cat, err := texindex.OpenCatalog(catalogPath(cfg))
		if err != nil {
			return err
		}

		tiers := []string{""}
		for _, p := range packs {
			if p.Enabled {
				tiers = append(tiers, p.RootRel)
			}
		}

		total := texindex.ScanStats{}
		for _, tier := range tiers {
			st, err := texindex.ScanTier(assets, tier, cfg.TextureDir, cat)
			if err != nil {
				_ = cat.Close()
				return err
			}
			total.Files += st.Files
			total.Hashed += st.Hashed
			total.Skipped += st.Skipped
		}
		if err := cat.Close(); err != nil {
			return err
		}
		fmt.Printf("Scanned %d tiers: %d files (%d hashed, %d skipped).\n",
			len(tiers), total.Files, total.Hashed, total.Skipped)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(scanCmd)
}
