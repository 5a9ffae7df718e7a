// Package config loads and validates Pensieve configuration.
//
// Configuration is applied in order of increasing precedence:
//  1. Hardcoded defaults
//  2. Library config (.pensieve.yaml in the library root)
//  3. Environment variables (PENSIEVE_*)
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config represents the complete Pensieve configuration.
type Config struct {
	Version    int              `yaml:"version" json:"version"`
	Library    LibraryConfig    `yaml:"library" json:"library"`
	Chunking   ChunkingConfig   `yaml:"chunking" json:"chunking"`
	Search     SearchConfig     `yaml:"search" json:"search"`
	Embeddings EmbeddingsConfig `yaml:"embeddings" json:"embeddings"`
	Watch      WatchConfig      `yaml:"watch" json:"watch"`
	LogLevel   string           `yaml:"log_level" json:"log_level"`
}

// LibraryConfig locates the on-disk library.
type LibraryConfig struct {
	// DataDir is where the registry, raw texts, and indexes live.
	// Defaults to ~/.pensieve/library.
	DataDir string `yaml:"data_dir" json:"data_dir"`
}

// ChunkingConfig configures the semantic chunker.
type ChunkingConfig struct {
	// BreakpointPercentile controls breakpoint sensitivity (0-100).
	// Higher values produce more, smaller chunks.
	BreakpointPercentile float64 `yaml:"breakpoint_percentile" json:"breakpoint_percentile"`

	// MinChunkWords is the minimum chunk size in words.
	MinChunkWords int `yaml:"min_chunk_words" json:"min_chunk_words"`

	// MaxChunkWords is the maximum chunk size in words.
	MaxChunkWords int `yaml:"max_chunk_words" json:"max_chunk_words"`

	// WindowSize is the similarity smoothing window in sentences.
	WindowSize int `yaml:"window_size" json:"window_size"`
}

// SearchConfig configures hybrid retrieval.
type SearchConfig struct {
	// BM25K1 is the term frequency saturation parameter.
	BM25K1 float64 `yaml:"bm25_k1" json:"bm25_k1"`

	// BM25B is the length normalization parameter.
	BM25B float64 `yaml:"bm25_b" json:"bm25_b"`

	// RRFConstant is the RRF smoothing parameter (k).
	// Default 60 is the industry standard.
	RRFConstant int `yaml:"rrf_constant" json:"rrf_constant"`

	// MaxResults is the default top-k for queries.
	MaxResults int `yaml:"max_results" json:"max_results"`

	// MinScore drops dense results below this similarity (0 keeps all positive).
	MinScore float64 `yaml:"min_score" json:"min_score"`
}

// EmbeddingsConfig configures the embedding provider.
type EmbeddingsConfig struct {
	// Provider selects the embedder: "ollama", "static", or "" for
	// auto-detection (ollama if reachable, static otherwise).
	Provider string `yaml:"provider" json:"provider"`

	// Model is the embedding model name for remote providers.
	Model string `yaml:"model" json:"model"`

	// Host is the Ollama API endpoint (default http://localhost:11434).
	Host string `yaml:"host" json:"host"`

	// Dimensions is the embedding dimension; 0 auto-detects.
	Dimensions int `yaml:"dimensions" json:"dimensions"`

	// BatchSize is texts per embedding request.
	BatchSize int `yaml:"batch_size" json:"batch_size"`

	// CacheSize is the LRU embedding cache capacity.
	CacheSize int `yaml:"cache_size" json:"cache_size"`
}

// WatchConfig configures the drop-directory watcher.
type WatchConfig struct {
	// Debounce is the settle time after a file event (e.g. "500ms").
	Debounce string `yaml:"debounce" json:"debounce"`

	// Extensions are the file extensions ingested from the watch dir.
	Extensions []string `yaml:"extensions" json:"extensions"`
}

// NewConfig creates a Config with defaults.
func NewConfig() *Config {
	return &Config{
		Version: 1,
		Library: LibraryConfig{
			DataDir: defaultDataDir(),
		},
		Chunking: ChunkingConfig{
			BreakpointPercentile: 85,
			MinChunkWords:        80,
			MaxChunkWords:        400,
			WindowSize:           2,
		},
		Search: SearchConfig{
			BM25K1:      1.5,
			BM25B:       0.75,
			RRFConstant: 60,
			MaxResults:  6,
			MinScore:    0,
		},
		Embeddings: EmbeddingsConfig{
			Provider:   "", // auto-detect
			Model:      "nomic-embed-text",
			Host:       "",
			Dimensions: 0, // auto-detect from embedder
			BatchSize:  32,
			CacheSize:  1000,
		},
		Watch: WatchConfig{
			Debounce:   "500ms",
			Extensions: []string{".txt", ".md"},
		},
		LogLevel: "info",
	}
}

// defaultDataDir returns the default library data directory.
func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".pensieve", "library")
	}
	return filepath.Join(home, ".pensieve", "library")
}

// Load loads configuration from the given directory, merging
// .pensieve.yaml (if present) and PENSIEVE_* env vars over defaults.
func Load(dir string) (*Config, error) {
	cfg := NewConfig()

	if err := cfg.loadFromFile(dir); err != nil {
		return nil, err
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// loadFromFile attempts to load .pensieve.yaml or .pensieve.yml.
func (c *Config) loadFromFile(dir string) error {
	for _, name := range []string{".pensieve.yaml", ".pensieve.yml"} {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			return c.loadYAML(path)
		}
	}
	// No config file is fine - use defaults.
	return nil
}

// loadYAML loads and merges configuration from a YAML file.
func (c *Config) loadYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var parsed Config
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	c.mergeWith(&parsed)
	return nil
}

// mergeWith merges non-zero values from other into c.
func (c *Config) mergeWith(other *Config) {
	if other.Version != 0 {
		c.Version = other.Version
	}
	if other.Library.DataDir != "" {
		c.Library.DataDir = other.Library.DataDir
	}

	if other.Chunking.BreakpointPercentile != 0 {
		c.Chunking.BreakpointPercentile = other.Chunking.BreakpointPercentile
	}
	if other.Chunking.MinChunkWords != 0 {
		c.Chunking.MinChunkWords = other.Chunking.MinChunkWords
	}
	if other.Chunking.MaxChunkWords != 0 {
		c.Chunking.MaxChunkWords = other.Chunking.MaxChunkWords
	}
	if other.Chunking.WindowSize != 0 {
		c.Chunking.WindowSize = other.Chunking.WindowSize
	}

	if other.Search.BM25K1 != 0 {
		c.Search.BM25K1 = other.Search.BM25K1
	}
	if other.Search.BM25B != 0 {
		c.Search.BM25B = other.Search.BM25B
	}
	if other.Search.RRFConstant != 0 {
		c.Search.RRFConstant = other.Search.RRFConstant
	}
	if other.Search.MaxResults != 0 {
		c.Search.MaxResults = other.Search.MaxResults
	}
	if other.Search.MinScore != 0 {
		c.Search.MinScore = other.Search.MinScore
	}

	if other.Embeddings.Provider != "" {
		c.Embeddings.Provider = other.Embeddings.Provider
	}
	if other.Embeddings.Model != "" {
		c.Embeddings.Model = other.Embeddings.Model
	}
	if other.Embeddings.Host != "" {
		c.Embeddings.Host = other.Embeddings.Host
	}
	if other.Embeddings.Dimensions != 0 {
		c.Embeddings.Dimensions = other.Embeddings.Dimensions
	}
	if other.Embeddings.BatchSize != 0 {
		c.Embeddings.BatchSize = other.Embeddings.BatchSize
	}
	if other.Embeddings.CacheSize != 0 {
		c.Embeddings.CacheSize = other.Embeddings.CacheSize
	}

	if other.Watch.Debounce != "" {
		c.Watch.Debounce = other.Watch.Debounce
	}
	if len(other.Watch.Extensions) > 0 {
		c.Watch.Extensions = other.Watch.Extensions
	}

	if other.LogLevel != "" {
		c.LogLevel = other.LogLevel
	}
}

// applyEnvOverrides applies PENSIEVE_* environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("PENSIEVE_DATA_DIR"); v != "" {
		c.Library.DataDir = v
	}
	if v := os.Getenv("PENSIEVE_EMBEDDINGS_PROVIDER"); v != "" {
		c.Embeddings.Provider = v
	}
	if v := os.Getenv("PENSIEVE_EMBEDDINGS_MODEL"); v != "" {
		c.Embeddings.Model = v
	}
	if v := os.Getenv("PENSIEVE_OLLAMA_HOST"); v != "" {
		c.Embeddings.Host = v
	}
	if v := os.Getenv("PENSIEVE_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv("PENSIEVE_BREAKPOINT_PERCENTILE"); v != "" {
		if p, err := strconv.ParseFloat(v, 64); err == nil && p > 0 && p <= 100 {
			c.Chunking.BreakpointPercentile = p
		}
	}
	if v := os.Getenv("PENSIEVE_RRF_CONSTANT"); v != "" {
		if k, err := strconv.Atoi(v); err == nil && k > 0 {
			c.Search.RRFConstant = k
		}
	}
	if v := os.Getenv("PENSIEVE_MAX_RESULTS"); v != "" {
		if k, err := strconv.Atoi(v); err == nil && k > 0 {
			c.Search.MaxResults = k
		}
	}
}

// Validate validates the configuration and returns an error if invalid.
func (c *Config) Validate() error {
	if c.Chunking.BreakpointPercentile <= 0 || c.Chunking.BreakpointPercentile > 100 {
		return fmt.Errorf("chunking.breakpoint_percentile must be in (0, 100], got %.1f",
			c.Chunking.BreakpointPercentile)
	}
	if c.Chunking.MinChunkWords <= 0 {
		return fmt.Errorf("chunking.min_chunk_words must be positive, got %d", c.Chunking.MinChunkWords)
	}
	if c.Chunking.MaxChunkWords <= c.Chunking.MinChunkWords {
		return fmt.Errorf("chunking.max_chunk_words (%d) must exceed min_chunk_words (%d)",
			c.Chunking.MaxChunkWords, c.Chunking.MinChunkWords)
	}
	if c.Chunking.WindowSize < 1 {
		return fmt.Errorf("chunking.window_size must be at least 1, got %d", c.Chunking.WindowSize)
	}

	if c.Search.BM25K1 <= 0 {
		return fmt.Errorf("search.bm25_k1 must be positive, got %f", c.Search.BM25K1)
	}
	if c.Search.BM25B < 0 || c.Search.BM25B > 1 {
		return fmt.Errorf("search.bm25_b must be between 0 and 1, got %f", c.Search.BM25B)
	}
	if c.Search.RRFConstant <= 0 {
		return fmt.Errorf("search.rrf_constant must be positive, got %d", c.Search.RRFConstant)
	}
	if c.Search.MaxResults <= 0 {
		return fmt.Errorf("search.max_results must be positive, got %d", c.Search.MaxResults)
	}

	if c.Embeddings.Provider != "" {
		validProviders := map[string]bool{"ollama": true, "static": true}
		if !validProviders[strings.ToLower(c.Embeddings.Provider)] {
			return fmt.Errorf("embeddings.provider must be 'ollama', 'static', or empty (auto-detect), got %s",
				c.Embeddings.Provider)
		}
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.LogLevel)] {
		return fmt.Errorf("log_level must be 'debug', 'info', 'warn', or 'error', got %s", c.LogLevel)
	}

	return nil
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
