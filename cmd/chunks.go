package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/mapstream/mapstream/internal/chunk"
)

var chunksCmd = &cobra.Command{
	Use:   "chunks [input-dir]",
	Short: "Full-rebuild the chunk files and streaming index from per-map JSON",
	Long: `Reads every map document under input-dir (relative to the dataset root),
buckets each entity into its world-space chunk and rewrites the chunk set
and chunks_index.json from scratch. Prior chunk output is always deleted
first; appending across runs is exactly the duplicate-accumulation bug the
verify command exists to catch.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		b := chunk.NewBuilder(datasetFS(), chunk.BuildOptions{
			ChunkSize:    cfg.ChunkSize,
			ChunksDir:    cfg.ChunksDir,
			IndexFile:    cfg.IndexFile,
			MaxOpenFiles: cfg.MaxOpenFiles,
			MaxPerChunk:  cfg.MaxPerChunk,
			MaxUnits:     cfg.MaxUnits,
		})

		start := time.Now()
		idx, err := b.Build(args[0])
		if err != nil {
			return err
		}
		fmt.Printf("Done in %v: %d entities in %d chunks, %d skipped.\n",
			time.Since(start).Round(time.Millisecond), idx.Stats.Entities, idx.Stats.Chunks, idx.Stats.Skipped)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(chunksCmd)
}
