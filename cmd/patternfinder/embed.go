package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dshills/patternfinder-mcp/internal/indexer"
)

var (
	flagEmbedScope    string
	flagEmbedPatterns []string
)

var embedCmd = &cobra.Command{
	Use:   "embed",
	Short: "Regenerate stored pattern embeddings",
	Long: `Embed catalog patterns with the active provider and store the vectors.

--scope stale (the default) embeds patterns that have no embedding or were
embedded by a different model; missing skips model changes; all re-embeds
everything.`,
	Args: cobra.NoArgs,
	RunE: runEmbed,
}

func init() {
	embedCmd.Flags().StringVar(&flagEmbedScope, "scope", string(indexer.ScopeStale), "Which patterns to embed: all, missing or stale")
	embedCmd.Flags().StringSliceVar(&flagEmbedPatterns, "pattern", nil, "Only embed these pattern IDs")
	rootCmd.AddCommand(embedCmd)
}

func runEmbed(cmd *cobra.Command, _ []string) error {
	scope, err := indexer.ParseScope(flagEmbedScope)
	if err != nil {
		return err
	}

	env, err := loadEnv()
	if err != nil {
		return err
	}
	defer env.close()

	svc, err := env.services(cmd.Context())
	if err != nil {
		return err
	}
	defer func() { _ = svc.Close() }()

	stats, err := svc.Indexer.RegenerateAll(cmd.Context(), indexer.Options{Scope: scope, Patterns: flagEmbedPatterns})
	if stats != nil {
		printStatistics(stats)
	}
	return err
}

func printStatistics(stats *indexer.Statistics) {
	fmt.Printf("Run:        %s\n", stats.RunID)
	fmt.Printf("Provider:   %s (%s, %d dimensions)\n", stats.Provider, stats.Model, stats.Dimension)
	fmt.Printf("Patterns:   %d\n", stats.Patterns)
	fmt.Printf("Embedded:   %d in %d batches\n", stats.Embedded, stats.Batches)
	fmt.Printf("Skipped:    %d\n", stats.Skipped)
	fmt.Printf("Duration:   %v\n", stats.Duration)
}
