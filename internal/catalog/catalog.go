// Package catalog loads pattern definitions from YAML files.
package catalog

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/dshills/patternfinder-mcp/pkg/types"
)

// Upserter is the write side of the pattern catalog
type Upserter interface {
	UpsertPattern(ctx context.Context, pattern *types.Pattern) error
}

// entry is the on-disk form of one pattern
type entry struct {
	ID          string   `yaml:"id"`
	Name        string   `yaml:"name"`
	Category    string   `yaml:"category"`
	Description string   `yaml:"description"`
	Benefits    []string `yaml:"benefits"`
	Drawbacks   []string `yaml:"drawbacks"`
	UseCases    []string `yaml:"use_cases"`
	Complexity  string   `yaml:"complexity"`
	Tags        []string `yaml:"tags"`
	Languages   []string `yaml:"languages"`
}

// file accepts either a top-level list or a "patterns:" key
type file struct {
	Patterns []entry `yaml:"patterns"`
}

// Parse decodes and validates patterns. IDs default to the slugified name
// and must be unique within the input.
func Parse(r io.Reader) ([]types.Pattern, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}

	var entries []entry
	var f file
	if err := yaml.Unmarshal(data, &f); err == nil && len(f.Patterns) > 0 {
		entries = f.Patterns
	} else if err := yaml.Unmarshal(data, &entries); err != nil {
		return nil, &types.ValidationError{Field: "catalog", Reason: fmt.Sprintf("invalid YAML: %v", err)}
	}

	seen := make(map[string]int, len(entries))
	patterns := make([]types.Pattern, 0, len(entries))
	for i, e := range entries {
		p := e.pattern()
		if err := p.Validate(); err != nil {
			return nil, &types.ValidationError{Field: fmt.Sprintf("patterns[%d]", i), Reason: err.Error()}
		}
		if prev, dup := seen[p.ID]; dup {
			return nil, &types.ValidationError{
				Field:  fmt.Sprintf("patterns[%d]", i),
				Reason: fmt.Sprintf("duplicate id %q (first at patterns[%d])", p.ID, prev),
			}
		}
		seen[p.ID] = i
		patterns = append(patterns, p)
	}
	return patterns, nil
}

// LoadFile parses the catalog at path
func LoadFile(path string) ([]types.Pattern, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog: %w", err)
	}
	defer func() { _ = f.Close() }()
	return Parse(f)
}

// Import upserts every pattern, stopping at the first failure.
// It returns how many patterns were written.
func Import(ctx context.Context, dst Upserter, patterns []types.Pattern) (int, error) {
	for i := range patterns {
		if err := dst.UpsertPattern(ctx, &patterns[i]); err != nil {
			return i, fmt.Errorf("failed to import pattern %s: %w", patterns[i].ID, err)
		}
	}
	return len(patterns), nil
}

func (e entry) pattern() types.Pattern {
	id := strings.TrimSpace(e.ID)
	if id == "" {
		id = Slug(e.Name)
	}
	return types.Pattern{
		ID:          id,
		Name:        strings.TrimSpace(e.Name),
		Category:    strings.ToLower(strings.TrimSpace(e.Category)),
		Description: strings.TrimSpace(e.Description),
		Benefits:    e.Benefits,
		Drawbacks:   e.Drawbacks,
		UseCases:    e.UseCases,
		Complexity:  types.Complexity(strings.ToLower(strings.TrimSpace(e.Complexity))),
		Tags:        e.Tags,
		Languages:   e.Languages,
	}
}

// Slug lower-cases name and joins its alphanumeric runs with hyphens
func Slug(name string) string {
	var b strings.Builder
	pendingDash := false
	for _, r := range strings.ToLower(name) {
		isWord := (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9')
		if !isWord {
			pendingDash = b.Len() > 0
			continue
		}
		if pendingDash {
			b.WriteByte('-')
			pendingDash = false
		}
		b.WriteRune(r)
	}
	return b.String()
}
