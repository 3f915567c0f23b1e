package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dshills/patternfinder-mcp/internal/catalog"
	"github.com/dshills/patternfinder-mcp/internal/indexer"
	"github.com/dshills/patternfinder-mcp/internal/storage"
)

var flagImportEmbed bool

var importCmd = &cobra.Command{
	Use:   "import <patterns.yaml>",
	Short: "Load patterns from a YAML catalog file",
	Args:  cobra.ExactArgs(1),
	RunE:  runImport,
}

func init() {
	importCmd.Flags().BoolVar(&flagImportEmbed, "embed", false, "Embed the imported patterns once they are stored")
	rootCmd.AddCommand(importCmd)
}

func runImport(cmd *cobra.Command, args []string) error {
	patterns, err := catalog.LoadFile(args[0])
	if err != nil {
		return err
	}

	env, err := loadEnv()
	if err != nil {
		return err
	}
	defer env.close()
	ctx := cmd.Context()

	if !flagImportEmbed {
		store, err := storage.Open(ctx, env.cfg.Storage, env.logger)
		if err != nil {
			return err
		}
		defer func() { _ = store.Close() }()

		n, err := catalog.Import(ctx, store, patterns)
		fmt.Printf("Imported %d of %d patterns from %s\n", n, len(patterns), args[0])
		return err
	}

	svc, err := env.services(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = svc.Close() }()

	n, err := catalog.Import(ctx, svc.Store, patterns)
	fmt.Printf("Imported %d of %d patterns from %s\n", n, len(patterns), args[0])
	if err != nil {
		return err
	}

	ids := make([]string, len(patterns))
	for i := range patterns {
		ids[i] = patterns[i].ID
	}
	stats, err := svc.Indexer.RegenerateAll(ctx, indexer.Options{Scope: indexer.ScopeStale, Patterns: ids})
	if stats != nil {
		printStatistics(stats)
	}
	return err
}
