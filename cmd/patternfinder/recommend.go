package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/dshills/patternfinder-mcp/internal/recommender"
	"github.com/dshills/patternfinder-mcp/pkg/types"
)

var (
	flagRecommendMax        int
	flagRecommendMinConf    float64
	flagRecommendCategories []string
	flagRecommendLanguage   string
	flagRecommendJSON       bool
)

var recommendCmd = &cobra.Command{
	Use:   "recommend <problem description>",
	Short: "Recommend design patterns for a problem",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runRecommend,
}

func init() {
	recommendCmd.Flags().IntVar(&flagRecommendMax, "max", 0, "Maximum recommendations (0 uses the configured value)")
	recommendCmd.Flags().Float64Var(&flagRecommendMinConf, "min-confidence", -1, "Minimum confidence (negative uses the configured value)")
	recommendCmd.Flags().StringSliceVar(&flagRecommendCategories, "category", nil, "Restrict to these categories")
	recommendCmd.Flags().StringVar(&flagRecommendLanguage, "language", "", "Target programming language")
	recommendCmd.Flags().BoolVar(&flagRecommendJSON, "json", false, "Print JSON instead of a table")
	rootCmd.AddCommand(recommendCmd)
}

func runRecommend(cmd *cobra.Command, args []string) error {
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

	q := svc.Recommender.NewQuery(strings.Join(args, " "))
	q.Categories = flagRecommendCategories
	q.Language = flagRecommendLanguage
	if flagRecommendMax > 0 {
		q.MaxResults = flagRecommendMax
	}
	if flagRecommendMinConf >= 0 {
		q.MinConfidence = flagRecommendMinConf
	}

	result, err := svc.Recommender.Recommend(cmd.Context(), q)
	if err != nil {
		return err
	}

	if flagRecommendJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}
	printRecommendations(result)
	return nil
}

func printRecommendations(result *types.RecommendationSet) {
	if result.Degraded {
		fmt.Println("Semantic search unavailable; ranked on keyword match only.")
	}
	recs := result.Recommendations
	if len(recs) == 0 {
		fmt.Println("No matching patterns.")
		return
	}

	for _, r := range recs {
		fmt.Printf("%d. %s (%s)  confidence %.2f\n", r.Rank, r.Pattern.Name, r.Pattern.Category, r.Scores.Confidence)
		fmt.Printf("   %s\n", r.Justification.PrimaryReason)
		for _, reason := range r.Justification.SupportingReasons {
			fmt.Printf("   - %s\n", reason)
		}
		if len(r.Justification.Benefits) > 0 {
			fmt.Printf("   Benefits:  %s\n", strings.Join(r.Justification.Benefits, "; "))
		}
		if len(r.Justification.Drawbacks) > 0 {
			fmt.Printf("   Drawbacks: %s\n", strings.Join(r.Justification.Drawbacks, "; "))
		}
		for _, a := range r.Alternatives {
			fmt.Printf("   Alternative: %s, %s\n", a.Name, a.Reason)
		}
		fmt.Println()
	}
}

var (
	flagSearchLimit      int
	flagSearchMode       string
	flagSearchCategories []string
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search the pattern catalog",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runSearch,
}

func init() {
	searchCmd.Flags().IntVar(&flagSearchLimit, "limit", 10, "Number of results to show (1-100)")
	searchCmd.Flags().StringVar(&flagSearchMode, "mode", "", "Search mode: hybrid, semantic or keyword (default from config)")
	searchCmd.Flags().StringSliceVar(&flagSearchCategories, "category", nil, "Restrict to these categories")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
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

	results, err := svc.Recommender.Search(cmd.Context(), recommender.SearchRequest{
		Query:      strings.Join(args, " "),
		Limit:      flagSearchLimit,
		Mode:       recommender.SearchMode(flagSearchMode),
		Categories: flagSearchCategories,
	})
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "RANK\tPATTERN\tCATEGORY\tSCORE\tSUMMARY")
	for _, r := range results {
		fmt.Fprintf(w, "%d\t%s\t%s\t%.2f\t%s\n", r.Rank, r.Name, r.Category, r.Score, r.Snippet)
	}
	return w.Flush()
}
