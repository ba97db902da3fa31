package main

import (
	"log"
	"os"

	"github.com/spf13/cobra"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "simple-data-server",
		Short: "Simple Data Server",
		Long:  "Simple Data Server stores the users, games, products and servers collections as JSON documents and serves them over HTTP.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(configPath)
		},
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (toml, yaml or json)")

	rootCmd.AddCommand(newServeCommand(&configPath))
	rootCmd.AddCommand(newExportCommand(&configPath))
	rootCmd.AddCommand(newImportCommand(&configPath))
	rootCmd.AddCommand(newVersionCommand())

	if err := rootCmd.Execute(); err != nil {
		log.Printf("Command execution failed: %v", err)
		os.Exit(1)
	}
}
