package storage

import (
	"strings"

	sq "github.com/Masterminds/squirrel"
)

var patternColumnList = []string{
	"id", "name", "category", "description", "benefits", "drawbacks", "use_cases",
	"complexity", "tags", "languages", "created_at", "updated_at",
}

var embeddingColumnList = []string{"pattern_id", "vector", "dimension", "model", "strategy", "created_at"}

// selectByCategory builds a case-insensitive category filter. Categories are
// stored lower-cased, so only the arguments need folding.
func selectByCategory(format sq.PlaceholderFormat, categories []string) sq.SelectBuilder {
	lowered := make([]string, 0, len(categories))
	for _, c := range categories {
		if c = strings.ToLower(strings.TrimSpace(c)); c != "" {
			lowered = append(lowered, c)
		}
	}
	return sq.Select(patternColumnList...).
		From("patterns").
		Where(sq.Eq{"category": lowered}).
		OrderBy("id").
		PlaceholderFormat(format)
}
