package main

import (
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/ironsheep/image-normalizer/internal/config"
)

var configFile string

var rootCmd = &cobra.Command{
	Use:   "image-normalizer",
	Short: "image-normalizer - trim borders, flatten and resize product images",
	Long: `image-normalizer cleans up product imagery in bulk: light borders are
detected and trimmed, transparency is flattened onto a background colour and
every image is resized to one canonical geometry and written as PNG.

Configuration is read from an optional YAML file (--config) and
IMAGE_NORMALIZER_* environment variables, e.g.
  IMAGE_NORMALIZER_LOG_LEVEL=debug       Enable debug logging
  IMAGE_NORMALIZER_BATCH_SIZE=8          Images processed concurrently
  IMAGE_NORMALIZER_MINIO_ENDPOINT=...    Upload results to MinIO`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig reads configuration and logs the build banner in debug mode.
func loadConfig() (*config.Config, error) {
	cfg, err := config.InitConfig(configFile)
	if err != nil {
		return nil, err
	}
	if cfg.Debug() {
		log.Printf("image-normalizer %s (built %s, commit %s)", Version, BuildTime, GitCommit)
	}
	return cfg, nil
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "path to a YAML config file")
	rootCmd.SetHelpCommand(&cobra.Command{Hidden: true})
}
