package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mapstream/mapstream/internal/resolve"
	"github.com/mapstream/mapstream/internal/texindex"
)

var resolveCmd = &cobra.Command{
	Use:   "resolve [reference]",
	Short: "Print the candidate paths for one texture reference",
	Long: `Shows the exact ordered candidate list the renderer will try for a texture
reference, and which candidate actually exists on disk. This is the tool to
reach for when a texture loads from the wrong pack or not at all.`,
	Args: cobra.ExactArgs(1),
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

		r := resolve.NewResolver(packs)
		idx := resolve.NewIndexCache(assets, texindex.IndexFileName)
		candidates := r.Candidates(args[0], idx)
		if len(candidates) == 0 {
			fmt.Println("No usable reference; no candidates.")
			return nil
		}
		for i, c := range candidates {
			fmt.Printf("%2d. %s\n", i+1, c)
		}
		hit, ok := resolve.FirstExisting(candidates, func(p string) bool {
			_, err := assets.Stat(p)
			return err == nil
		})
		if ok {
			fmt.Println("-> exists:", hit)
		} else {
			fmt.Println("-> no candidate exists")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(resolveCmd)
}
