// Package config loads mailsearch settings from an optional YAML file and
// the environment. Environment variables win over the file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/dshills/mailsearch/internal/embedder"
	"github.com/dshills/mailsearch/internal/enrich"
	"github.com/dshills/mailsearch/internal/searcher"
)

// Environment variables
const (
	EnvConfigPath     = "MAILSEARCH_CONFIG"
	EnvDBPath         = "MAILSEARCH_DB_PATH"
	EnvLogLevel       = "MAILSEARCH_LOG_LEVEL"
	EnvMaxClusters    = "MAILSEARCH_MAX_CLUSTERS"
	EnvClassifierKey  = enrich.EnvHuggingFaceToken
	EnvClassifierKind = enrich.EnvClassifierProvider
)

// DefaultDBPath matches the layout produced by the ingestion pipeline
const DefaultDBPath = "db/emails.db"

// ErrInvalidConfig is returned by Validate
var ErrInvalidConfig = errors.New("invalid configuration")

type SearchConfig struct {
	LexicalLimit  int `yaml:"lexical_limit"`
	SemanticLimit int `yaml:"semantic_limit"`
}

type EnrichConfig struct {
	Labels           []string `yaml:"labels"`
	MaxClusters      int      `yaml:"max_clusters"`
	SummarySentences int      `yaml:"summary_sentences"`
}

type EmbeddingConfig struct {
	Provider  string `yaml:"provider"`
	APIKey    string `yaml:"api_key"`
	Host      string `yaml:"host"`
	Model     string `yaml:"model"`
	Dimension int    `yaml:"dimension"`
	CacheSize int    `yaml:"cache_size"`
}

type ClassifierConfig struct {
	Provider string `yaml:"provider"`
	APIKey   string `yaml:"api_key"`
	Model    string `yaml:"model"`
}

type Config struct {
	DBPath     string           `yaml:"db_path"`
	LogLevel   string           `yaml:"log_level"`
	Search     SearchConfig     `yaml:"search"`
	Enrich     EnrichConfig     `yaml:"enrich"`
	Embedding  EmbeddingConfig  `yaml:"embedding"`
	Classifier ClassifierConfig `yaml:"classifier"`
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		DBPath:   DefaultDBPath,
		LogLevel: "info",
		Search: SearchConfig{
			LexicalLimit:  searcher.DefaultLexicalLimit,
			SemanticLimit: searcher.DefaultSemanticLimit,
		},
		Enrich: EnrichConfig{
			Labels:           append([]string(nil), enrich.DefaultLabels...),
			MaxClusters:      enrich.DefaultMaxClusters,
			SummarySentences: enrich.DefaultSummarySentences,
		},
		Embedding: EmbeddingConfig{
			CacheSize: embedder.DefaultCacheSize,
		},
		Classifier: ClassifierConfig{
			Provider: enrich.ClassifierEmbedding,
		},
	}
}

// Load reads path over the defaults, applies environment overrides and
// validates the result. An empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open config file: %w", err)
		}
		defer func() { _ = f.Close() }()

		decoder := yaml.NewDecoder(f)
		decoder.KnownFields(true)
		if err := decoder.Decode(cfg); err != nil {
			return nil, fmt.Errorf("failed to decode config file: %w", err)
		}
	}

	if err := overrideFromEnv(cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func overrideFromEnv(cfg *Config) error {
	if v := os.Getenv(EnvDBPath); v != "" {
		cfg.DBPath = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv(EnvMaxClusters); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: %s must be an integer, got %q", ErrInvalidConfig, EnvMaxClusters, v)
		}
		cfg.Enrich.MaxClusters = n
	}

	// Embedding
	if v := os.Getenv(embedder.EnvProvider); v != "" {
		cfg.Embedding.Provider = v
	}
	if v := os.Getenv(embedder.EnvCompatHost); v != "" {
		cfg.Embedding.Host = v
	}
	if v := os.Getenv(embedder.EnvCompatModel); v != "" {
		cfg.Embedding.Model = v
	}

	// Classifier
	if v := os.Getenv(EnvClassifierKind); v != "" {
		cfg.Classifier.Provider = v
	}
	if v := os.Getenv(EnvClassifierKey); v != "" {
		cfg.Classifier.APIKey = v
	}
	return nil
}

// Validate checks limits and the label set
func (c *Config) Validate() error {
	if strings.TrimSpace(c.DBPath) == "" {
		return fmt.Errorf("%w: db_path is required", ErrInvalidConfig)
	}
	if c.Search.LexicalLimit < 1 || c.Search.SemanticLimit < 1 {
		return fmt.Errorf("%w: search limits must be positive", ErrInvalidConfig)
	}
	if c.Enrich.MaxClusters < 1 {
		return fmt.Errorf("%w: max_clusters must be positive", ErrInvalidConfig)
	}
	if c.Enrich.SummarySentences < 1 {
		return fmt.Errorf("%w: summary_sentences must be positive", ErrInvalidConfig)
	}
	if len(c.Enrich.Labels) == 0 {
		return fmt.Errorf("%w: at least one label is required", ErrInvalidConfig)
	}

	seen := make(map[string]bool, len(c.Enrich.Labels))
	for _, label := range c.Enrich.Labels {
		if strings.TrimSpace(label) == "" {
			return fmt.Errorf("%w: labels must not be blank", ErrInvalidConfig)
		}
		if seen[label] {
			return fmt.Errorf("%w: duplicate label %q", ErrInvalidConfig, label)
		}
		seen[label] = true
	}
	return nil
}

// EmbedderConfig converts to the embedder factory configuration
func (c *Config) EmbedderConfig() embedder.Config {
	return embedder.Config{
		Provider:  c.Embedding.Provider,
		APIKey:    c.Embedding.APIKey,
		Host:      c.Embedding.Host,
		Model:     c.Embedding.Model,
		Dimension: c.Embedding.Dimension,
		CacheSize: c.Embedding.CacheSize,
	}
}

// ClassifierConfig converts to the classifier factory configuration
func (c *Config) ClassifierConfig() enrich.ClassifierConfig {
	return enrich.ClassifierConfig{
		Provider: c.Classifier.Provider,
		APIKey:   c.Classifier.APIKey,
		Model:    c.Classifier.Model,
	}
}

// EnrichOptions converts to pipeline options
func (c *Config) EnrichOptions() enrich.Options {
	return enrich.Options{
		Labels:           c.Enrich.Labels,
		MaxClusters:      c.Enrich.MaxClusters,
		SummarySentences: c.Enrich.SummarySentences,
	}
}

// SearchOptions converts to searcher options
func (c *Config) SearchOptions() searcher.Options {
	return searcher.Options{
		LexicalLimit:  c.Search.LexicalLimit,
		SemanticLimit: c.Search.SemanticLimit,
	}
}
