package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/patternfinder-mcp/pkg/types"
)

func TestDefaultIsValid(t *testing.T) {
	require.NoError(t, Default().Validate())
}

func TestDegradedModeIsOptIn(t *testing.T) {
	assert.False(t, Default().Recommendation.AllowDegraded)

	cfg := Default()
	require.NoError(t, cfg.applyEnv(func(k string) (string, bool) {
		if k == "PATTERNFINDER_ALLOW_DEGRADED" {
			return "true", true
		}
		return "", false
	}))
	assert.True(t, cfg.Recommendation.AllowDegraded)

	path := filepath.Join(t.TempDir(), "degraded.yaml")
	require.NoError(t, os.WriteFile(path, []byte("recommendation:\n  allow_degraded: true\n"), 0o600))
	loaded, err := Load(path)
	require.NoError(t, err)
	assert.True(t, loaded.Recommendation.AllowDegraded)
}

func TestValidateWeights(t *testing.T) {
	tests := []struct {
		name     string
		semantic float64
		keyword  float64
		wantErr  bool
	}{
		{"balanced", 0.5, 0.5, false},
		{"semantic heavy", 0.7, 0.3, false},
		{"keyword only", 0, 1, false},
		{"float rounding", 0.1 + 0.2, 0.7, false},
		{"sum below one", 0.5, 0.4, true},
		{"sum above one", 0.8, 0.3, true},
		{"negative weight", -0.2, 1.2, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateWeights(tt.semantic, tt.keyword)
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, errors.Is(err, types.ErrConfiguration))
			var cfgErr *types.ConfigurationError
			assert.True(t, errors.As(err, &cfgErr))
		})
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
		field  string
	}{
		{"weights", func(c *Config) { c.Recommendation.KeywordWeight = 0.5 }, "semantic_weight"},
		{"min confidence", func(c *Config) { c.Recommendation.MinConfidence = 1.5 }, "min_confidence"},
		{"threshold", func(c *Config) { c.Recommendation.SimilarityThreshold = -0.1 }, "similarity_threshold"},
		{"max results", func(c *Config) { c.Recommendation.MaxResults = 0 }, "max_results"},
		{"no search path", func(c *Config) {
			c.Recommendation.UseSemanticSearch = false
			c.Recommendation.UseKeywordSearch = false
		}, "use_semantic_search"},
		{"batch size", func(c *Config) { c.Embedding.BatchSize = 0 }, "batch_size"},
		{"retry attempts", func(c *Config) { c.Embedding.RetryAttempts = 0 }, "retry_attempts"},
		{"cache size", func(c *Config) { c.Cache.Size = 0 }, "cache.size"},
		{"driver", func(c *Config) { c.Storage.Driver = "mongo" }, "storage.driver"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)

			var cfgErr *types.ConfigurationError
			require.True(t, errors.As(err, &cfgErr))
			assert.Equal(t, tt.field, cfgErr.Field)
		})
	}
}

func TestDisabledCacheAllowsZeroSize(t *testing.T) {
	cfg := Default()
	cfg.Cache.Enabled = false
	cfg.Cache.Size = 0
	assert.NoError(t, cfg.Validate())
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		"PATTERNFINDER_MAX_RESULTS":        "7",
		"PATTERNFINDER_SEMANTIC_WEIGHT":    "0.6",
		"PATTERNFINDER_KEYWORD_WEIGHT":     "0.4",
		"PATTERNFINDER_RETRY_DELAY":        "2s",
		"PATTERNFINDER_CACHE_ENABLED":      "false",
		"PATTERNFINDER_EMBEDDING_PRIORITY": "OpenAI, local ,",
		"OPENAI_API_KEY":                   "sk-test",
	}
	lookup := func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}

	cfg := Default()
	require.NoError(t, cfg.applyEnv(lookup))

	assert.Equal(t, 7, cfg.Recommendation.MaxResults)
	assert.InDelta(t, 0.6, cfg.Recommendation.SemanticWeight, 1e-12)
	assert.InDelta(t, 0.4, cfg.Recommendation.KeywordWeight, 1e-12)
	assert.Equal(t, 2*time.Second, cfg.Embedding.RetryDelay)
	assert.False(t, cfg.Cache.Enabled)
	assert.Equal(t, []string{"openai", "local"}, cfg.Embedding.Priority)
	assert.Equal(t, "sk-test", cfg.Embedding.OpenAI.APIKey)
	assert.NoError(t, cfg.Validate())
}

func TestApplyEnvParseError(t *testing.T) {
	lookup := func(k string) (string, bool) {
		if k == "PATTERNFINDER_MAX_RESULTS" {
			return "lots", true
		}
		return "", false
	}

	err := Default().applyEnv(lookup)
	require.Error(t, err)
	assert.True(t, errors.Is(err, types.ErrConfiguration))
}

func TestLoadYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "patternfinder.yaml")
	content := `
recommendation:
  max_results: 3
  semantic_weight: 0.5
  keyword_weight: 0.5
  request_timeout: 5s
embedding:
  provider: local
  batch_size: 8
cache:
  ttl: 10m
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 3, cfg.Recommendation.MaxResults)
	assert.Equal(t, 5*time.Second, cfg.Recommendation.RequestTimeout)
	assert.Equal(t, "local", cfg.Embedding.Provider)
	assert.Equal(t, 8, cfg.Embedding.BatchSize)
	assert.Equal(t, 10*time.Minute, cfg.Cache.TTL)
	// Untouched defaults survive
	assert.Equal(t, 3, cfg.Embedding.RetryAttempts)
}

func TestLoadRejectsInvalidWeights(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("recommendation:\n  semantic_weight: 0.9\n  keyword_weight: 0.9\n"), 0o600))

	_, err := Load(path)
	require.Error(t, err)
	assert.True(t, errors.Is(err, types.ErrConfiguration))
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default().Recommendation.MaxResults, cfg.Recommendation.MaxResults)
}
