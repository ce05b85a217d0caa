// Package cmd wires the pipeline stages into the mapstream CLI. Every
// subcommand operates on a dataset root and an optional YAML config; stages
// are independent so partial pipelines (e.g. reshard only) are normal.
package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/spf13/cobra"

	"github.com/mapstream/mapstream/internal/config"
)

var (
	configPath  string
	datasetRoot string
)

var rootCmd = &cobra.Command{
	Use:           "mapstream",
	Short:         "mapstream turns raw map placements into a streamable chunked dataset",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to a mapstream YAML config")
	rootCmd.PersistentFlags().StringVarP(&datasetRoot, "root", "r", ".", "Dataset root directory")
}

// datasetFS is the filesystem every stage reads and writes through, rooted
// at the dataset directory.
func datasetFS() billy.Filesystem {
	return osfs.New(datasetRoot)
}

// assetsFS scopes to the assets tree (packs, textures, indices).
func assetsFS(cfg config.Config) (billy.Filesystem, error) {
	return datasetFS().Chroot(cfg.AssetsRoot)
}

// catalogPath is an OS path: SQLite opens it directly, not through billy.
func catalogPath(cfg config.Config) string {
	return filepath.Join(datasetRoot, cfg.CatalogFile)
}

func loadConfig() (config.Config, error) {
	return config.Load(configPath)
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "mapstream:", err)
		os.Exit(1)
	}
}
