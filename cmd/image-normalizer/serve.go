package main

import (
	"github.com/spf13/cobra"

	"github.com/ironsheep/image-normalizer/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the MCP server over stdin/stdout",
	Long: `Run the MCP server over stdin/stdout.

Configure it in your MCP client; the server exposes image_normalize,
image_normalize_batch and image_border_analysis.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		if Version != "dev" {
			server.ServerVersion = Version
		}
		srv, err := server.NewFromConfig(cfg)
		if err != nil {
			return err
		}
		return srv.Run()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
