// Package config loads and validates patternfinder configuration.
//
// Values are resolved in three layers: built-in defaults, an optional YAML
// file, then environment variables (optionally seeded from a .env file).
// Validate runs before any component is constructed so weight and threshold
// mistakes fail fast with a *types.ConfigurationError.
package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/dshills/patternfinder-mcp/pkg/types"
)

// EnvPrefix prefixes every environment override
const EnvPrefix = "PATTERNFINDER_"

// DefaultPath is the configuration file read when none is named
const DefaultPath = "patternfinder.yaml"

// weightTolerance absorbs float rounding when checking semantic+keyword == 1
const weightTolerance = 1e-9

// Config holds all patternfinder configuration.
type Config struct {
	Recommendation RecommendationConfig `yaml:"recommendation"`
	Embedding      EmbeddingConfig      `yaml:"embedding"`
	Cache          CacheConfig          `yaml:"cache"`
	Storage        StorageConfig        `yaml:"storage"`
	Logging        LoggingConfig        `yaml:"logging"`
	Metrics        MetricsConfig        `yaml:"metrics"`
}

// RecommendationConfig configures ranking and merging.
type RecommendationConfig struct {
	MaxResults          int           `yaml:"max_results"`
	MinConfidence       float64       `yaml:"min_confidence"`
	SimilarityThreshold float64       `yaml:"similarity_threshold"`
	SemanticWeight      float64       `yaml:"semantic_weight"`
	KeywordWeight       float64       `yaml:"keyword_weight"`
	UseSemanticSearch   bool          `yaml:"use_semantic_search"`
	UseKeywordSearch    bool          `yaml:"use_keyword_search"`
	UseHybridSearch     bool          `yaml:"use_hybrid_search"`
	AllowDegraded       bool          `yaml:"allow_degraded"` // Keyword-only fallback when the provider fails
	Alternatives        int           `yaml:"alternatives"`
	RequestTimeout      time.Duration `yaml:"request_timeout"`
}

// EmbeddingConfig configures provider selection, batching and retries.
type EmbeddingConfig struct {
	// Provider pins a single provider; empty means walk Priority
	Provider string   `yaml:"provider"`
	Priority []string `yaml:"priority"`

	BatchSize     int           `yaml:"batch_size"`
	RetryAttempts int           `yaml:"retry_attempts"`
	RetryDelay    time.Duration `yaml:"retry_delay"`
	CallTimeout   time.Duration `yaml:"call_timeout"`
	BatchTimeout  time.Duration `yaml:"batch_timeout"`

	// Bulk regeneration
	BulkBatchSize   int `yaml:"bulk_batch_size"`
	BulkConcurrency int `yaml:"bulk_concurrency"`

	Local  LocalConfig  `yaml:"local"`
	Ollama OllamaConfig `yaml:"ollama"`
	OpenAI RemoteConfig `yaml:"openai"`
	Jina   RemoteConfig `yaml:"jina"`
	Gemini RemoteConfig `yaml:"gemini"`
}

// LocalConfig configures the in-process offline model.
type LocalConfig struct {
	Disabled  bool `yaml:"disabled"`
	Dimension int  `yaml:"dimension"`
}

// OllamaConfig configures a local Ollama server.
type OllamaConfig struct {
	Endpoint  string `yaml:"endpoint"`
	Model     string `yaml:"model"`
	Dimension int    `yaml:"dimension"`
}

// RemoteConfig configures an API-backed provider.
type RemoteConfig struct {
	APIKey    string `yaml:"api_key"`
	Model     string `yaml:"model"`
	BaseURL   string `yaml:"base_url"`
	Dimension int    `yaml:"dimension"`
}

// CacheConfig configures the memoization layer.
type CacheConfig struct {
	Enabled bool          `yaml:"enabled"`
	Size    int           `yaml:"size"`
	TTL     time.Duration `yaml:"ttl"`
}

// StorageConfig selects the catalog and embedding store backend.
type StorageConfig struct {
	Driver string `yaml:"driver"` // sqlite or postgres
	Path   string `yaml:"path"`   // SQLite database file
	DSN    string `yaml:"dsn"`    // Postgres connection string
}

// LoggingConfig configures zap.
type LoggingConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

// MetricsConfig configures the prometheus endpoint.
type MetricsConfig struct {
	Addr string `yaml:"addr"` // Empty disables the HTTP listener
}

// Default returns sensible defaults.
func Default() *Config {
	return &Config{
		Recommendation: RecommendationConfig{
			MaxResults:          5,
			MinConfidence:       0.2,
			SimilarityThreshold: 0.1,
			SemanticWeight:      0.7,
			KeywordWeight:       0.3,
			UseSemanticSearch:   true,
			UseKeywordSearch:    true,
			UseHybridSearch:     true,
			AllowDegraded:       false,
			Alternatives:        3,
			RequestTimeout:      30 * time.Second,
		},
		Embedding: EmbeddingConfig{
			Priority:        []string{"local", "ollama", "openai", "jina", "gemini"},
			BatchSize:       20,
			RetryAttempts:   3,
			RetryDelay:      500 * time.Millisecond,
			CallTimeout:     30 * time.Second,
			BatchTimeout:    60 * time.Second,
			BulkBatchSize:   50,
			BulkConcurrency: 2,
			Local:           LocalConfig{Dimension: 384},
			Ollama: OllamaConfig{
				Endpoint: "http://localhost:11434",
				Model:    "nomic-embed-text",
			},
			OpenAI: RemoteConfig{
				Model:   "text-embedding-3-small",
				BaseURL: "https://api.openai.com/v1",
			},
			Jina: RemoteConfig{
				Model:   "jina-embeddings-v3",
				BaseURL: "https://api.jina.ai/v1",
			},
			Gemini: RemoteConfig{
				Model: "gemini-embedding-001",
			},
		},
		Cache: CacheConfig{
			Enabled: true,
			Size:    10000,
			TTL:     time.Hour,
		},
		Storage: StorageConfig{
			Driver: "sqlite",
			Path:   "~/.patternfinder/patterns.db",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load builds a Config from defaults, the YAML file at path (if it exists),
// an optional .env file and PATTERNFINDER_* environment variables, then validates it.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
			}
		case errors.Is(err, os.ErrNotExist):
			// Optional file
		default:
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}

	// .env is optional; real environment variables win over it
	_ = godotenv.Load()

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks cross-field invariants. It must pass before any search runs.
func (c *Config) Validate() error {
	r := c.Recommendation
	if err := ValidateWeights(r.SemanticWeight, r.KeywordWeight); err != nil {
		return err
	}
	if r.MaxResults <= 0 {
		return &types.ConfigurationError{Field: "max_results", Reason: "must be positive"}
	}
	if !unit(r.MinConfidence) {
		return &types.ConfigurationError{Field: "min_confidence", Reason: "must be within [0,1]"}
	}
	if !unit(r.SimilarityThreshold) {
		return &types.ConfigurationError{Field: "similarity_threshold", Reason: "must be within [0,1]"}
	}
	if !r.UseSemanticSearch && !r.UseKeywordSearch {
		return &types.ConfigurationError{Field: "use_semantic_search", Reason: "at least one of semantic or keyword search must be enabled"}
	}
	if r.Alternatives < 0 {
		return &types.ConfigurationError{Field: "alternatives", Reason: "cannot be negative"}
	}

	e := c.Embedding
	if e.BatchSize <= 0 {
		return &types.ConfigurationError{Field: "batch_size", Reason: "must be positive"}
	}
	if e.BulkBatchSize <= 0 {
		return &types.ConfigurationError{Field: "bulk_batch_size", Reason: "must be positive"}
	}
	if e.BulkConcurrency <= 0 {
		return &types.ConfigurationError{Field: "bulk_concurrency", Reason: "must be positive"}
	}
	if e.RetryAttempts <= 0 {
		return &types.ConfigurationError{Field: "retry_attempts", Reason: "must be at least 1"}
	}
	if e.RetryDelay < 0 {
		return &types.ConfigurationError{Field: "retry_delay", Reason: "cannot be negative"}
	}
	if e.Provider == "" && len(e.Priority) == 0 {
		return &types.ConfigurationError{Field: "priority", Reason: "empty priority list with no pinned provider"}
	}

	if c.Cache.Enabled && c.Cache.Size <= 0 {
		return &types.ConfigurationError{Field: "cache.size", Reason: "must be positive when cache is enabled"}
	}
	if c.Cache.TTL < 0 {
		return &types.ConfigurationError{Field: "cache.ttl", Reason: "cannot be negative"}
	}

	switch c.Storage.Driver {
	case "sqlite", "postgres":
	default:
		return &types.ConfigurationError{Field: "storage.driver", Reason: fmt.Sprintf("unknown driver %q", c.Storage.Driver)}
	}
	return nil
}

// ValidateWeights checks both weights are within [0,1] and sum to 1.
func ValidateWeights(semantic, keyword float64) error {
	if !unit(semantic) {
		return &types.ConfigurationError{Field: "semantic_weight", Reason: "must be within [0,1]"}
	}
	if !unit(keyword) {
		return &types.ConfigurationError{Field: "keyword_weight", Reason: "must be within [0,1]"}
	}
	if math.Abs(semantic+keyword-1) > weightTolerance {
		return &types.ConfigurationError{
			Field:  "semantic_weight",
			Reason: fmt.Sprintf("semantic_weight + keyword_weight must equal 1 (got %.4f)", semantic+keyword),
		}
	}
	return nil
}

func unit(v float64) bool {
	return v >= 0 && v <= 1 && !math.IsNaN(v)
}

type lookupFunc func(string) (string, bool)

// applyEnv overrides fields from PATTERNFINDER_* variables and provider API keys.
func (c *Config) applyEnv(lookup lookupFunc) error {
	var firstErr error
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	num := func(key string, dst *int) {
		if v, ok := lookup(EnvPrefix + key); ok && v != "" {
			n, err := strconv.Atoi(v)
			if err != nil && firstErr == nil {
				firstErr = &types.ConfigurationError{Field: key, Reason: err.Error()}
				return
			}
			*dst = n
		}
	}
	flt := func(key string, dst *float64) {
		if v, ok := lookup(EnvPrefix + key); ok && v != "" {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil && firstErr == nil {
				firstErr = &types.ConfigurationError{Field: key, Reason: err.Error()}
				return
			}
			*dst = f
		}
	}
	boolean := func(key string, dst *bool) {
		if v, ok := lookup(EnvPrefix + key); ok && v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil && firstErr == nil {
				firstErr = &types.ConfigurationError{Field: key, Reason: err.Error()}
				return
			}
			*dst = b
		}
	}
	dur := func(key string, dst *time.Duration) {
		if v, ok := lookup(EnvPrefix + key); ok && v != "" {
			d, err := time.ParseDuration(v)
			if err != nil && firstErr == nil {
				firstErr = &types.ConfigurationError{Field: key, Reason: err.Error()}
				return
			}
			*dst = d
		}
	}

	r := &c.Recommendation
	num("MAX_RESULTS", &r.MaxResults)
	flt("MIN_CONFIDENCE", &r.MinConfidence)
	flt("SIMILARITY_THRESHOLD", &r.SimilarityThreshold)
	flt("SEMANTIC_WEIGHT", &r.SemanticWeight)
	flt("KEYWORD_WEIGHT", &r.KeywordWeight)
	boolean("USE_SEMANTIC_SEARCH", &r.UseSemanticSearch)
	boolean("USE_KEYWORD_SEARCH", &r.UseKeywordSearch)
	boolean("USE_HYBRID_SEARCH", &r.UseHybridSearch)
	boolean("ALLOW_DEGRADED", &r.AllowDegraded)
	dur("REQUEST_TIMEOUT", &r.RequestTimeout)

	e := &c.Embedding
	str(EnvPrefix+"EMBEDDING_PROVIDER", &e.Provider)
	if v, ok := lookup(EnvPrefix + "EMBEDDING_PRIORITY"); ok && v != "" {
		e.Priority = splitList(v)
	}
	num("BATCH_SIZE", &e.BatchSize)
	num("RETRY_ATTEMPTS", &e.RetryAttempts)
	dur("RETRY_DELAY", &e.RetryDelay)
	num("BULK_BATCH_SIZE", &e.BulkBatchSize)
	num("BULK_CONCURRENCY", &e.BulkConcurrency)
	str(EnvPrefix+"OLLAMA_ENDPOINT", &e.Ollama.Endpoint)
	str(EnvPrefix+"OLLAMA_MODEL", &e.Ollama.Model)
	str("OPENAI_API_KEY", &e.OpenAI.APIKey)
	str(EnvPrefix+"OPENAI_BASE_URL", &e.OpenAI.BaseURL)
	str("JINA_API_KEY", &e.Jina.APIKey)
	str("GEMINI_API_KEY", &e.Gemini.APIKey)

	boolean("CACHE_ENABLED", &c.Cache.Enabled)
	num("CACHE_SIZE", &c.Cache.Size)
	dur("CACHE_TTL", &c.Cache.TTL)

	str(EnvPrefix+"STORAGE_DRIVER", &c.Storage.Driver)
	str(EnvPrefix+"DB_PATH", &c.Storage.Path)
	str(EnvPrefix+"DB_DSN", &c.Storage.DSN)
	str(EnvPrefix+"LOG_LEVEL", &c.Logging.Level)
	str(EnvPrefix+"METRICS_ADDR", &c.Metrics.Addr)

	return firstErr
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(strings.ToLower(p)); p != "" {
			out = append(out, p)
		}
	}
	return out
}
