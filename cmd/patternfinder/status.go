package main

import (
	"fmt"
	"os"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/dshills/patternfinder-mcp/internal/storage"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show catalog and embedding status",
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, _ []string) error {
	env, err := loadEnv()
	if err != nil {
		return err
	}
	defer env.close()

	store, err := storage.Open(cmd.Context(), env.cfg.Storage, env.logger)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	st, err := store.Status(cmd.Context())
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "Driver:\t%s (%s)\n", st.Driver, st.BuildMode)
	fmt.Fprintf(w, "Schema:\t%s\n", st.SchemaVersion)
	if st.VectorExtension != "" {
		fmt.Fprintf(w, "sqlite-vec:\t%s\n", st.VectorExtension)
	}
	fmt.Fprintf(w, "Size:\t%.2f MB\n", st.SizeMB)
	fmt.Fprintf(w, "Patterns:\t%d\n", st.PatternCount)
	fmt.Fprintf(w, "Embeddings:\t%d (%d missing)\n", st.EmbeddingCount, st.Missing())
	if !st.LastEmbeddedAt.IsZero() {
		fmt.Fprintf(w, "Last embedded:\t%s\n", st.LastEmbeddedAt.Format(time.RFC3339))
	}

	models := make([]string, 0, len(st.Models))
	for m := range st.Models {
		models = append(models, m)
	}
	sort.Strings(models)
	for _, m := range models {
		fmt.Fprintf(w, "Model:\t%s (%d)\n", m, st.Models[m])
	}
	return w.Flush()
}
