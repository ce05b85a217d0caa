package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mapstream/mapstream/internal/binenc"
)

var encodeFormat string

var encodeCmd = &cobra.Command{
	Use:   "encode",
	Short: "Re-encode chunk text files into binary containers (incremental)",
	Long: `Converts each chunk's NDJSON into the renderer's binary container. A chunk
whose binary output is at least as new as its text source is skipped, so
re-running after a partial chunk rebuild only touches what changed.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		var format binenc.Format
		switch encodeFormat {
		case "instances":
			format = binenc.FormatInstances
		case "positions":
			format = binenc.FormatPositions
		default:
			return fmt.Errorf("unknown format %q (want instances or positions)", encodeFormat)
		}

		st, err := binenc.EncodeDir(datasetFS(), cfg.ChunksDir, cfg.BinDir, format)
		if err != nil {
			return err
		}
		fmt.Printf("Encoded %d chunks (%d up to date, %d bad files, %d bad records).\n",
			st.Encoded, st.UpToDate, st.BadFiles, st.BadRecords)
		return nil
	},
}

func init() {
	encodeCmd.Flags().StringVarP(&encodeFormat, "format", "f", "instances", "Container format: instances or positions")
	rootCmd.AddCommand(encodeCmd)
}
