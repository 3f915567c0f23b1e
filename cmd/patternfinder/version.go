package main

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/dshills/patternfinder-mcp/internal/mcp"
	"github.com/dshills/patternfinder-mcp/internal/storage"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version and build information",
	Args:  cobra.NoArgs,
	RunE:  runVersion,
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

func runVersion(_ *cobra.Command, _ []string) error {
	fmt.Printf("%s\n", mcp.ServerName)
	fmt.Printf("Version:          %s\n", version)
	fmt.Printf("Build Time:       %s\n", buildTime)
	fmt.Printf("Build Mode:       %s\n", storage.BuildMode)
	fmt.Printf("SQLite Driver:    %s\n", storage.DriverName)
	fmt.Printf("Vector Extension: %v\n", storage.VectorExtensionAvailable)
	fmt.Printf("Schema Version:   %s\n", storage.CurrentSchemaVersion)
	fmt.Printf("Go Version:       %s\n", runtime.Version())
	return nil
}
