package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mapstream/mapstream/internal/shard"
)

var shardCmd = &cobra.Command{
	Use:   "shard",
	Short: "Partition the archetype manifest into hash-addressed shard files",
	Long: `Splits the (possibly huge) manifest map into 2^shard_bits files keyed by
the low bits of each archetype id. A no-op when the existing shard index
already records the manifest's mtime and the same shard_bits.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		res, err := shard.Run(datasetFS(), shard.Options{
			Source:    cfg.ManifestFile,
			ShardBits: cfg.ShardBits,
			ShardDir:  cfg.ShardDir,
			IndexFile: cfg.ShardIndex,
			FileExt:   cfg.ShardFileExt,
		})
		if err != nil {
			return err
		}
		if res.Skipped {
			fmt.Println("Manifest unchanged, shards left as-is.")
			return nil
		}
		fmt.Printf("Wrote %d shard files (%d entries, %d bad keys).\n",
			res.Written, res.Index.MeshCount, res.Index.BadKeys)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(shardCmd)
}
