package embedder

import (
	"fmt"
	"os"
	"strings"
)

// Config holds embedder configuration
type Config struct {
	Provider  string
	APIKey    string
	Host      string // compat provider only
	Model     string // compat provider only
	Dimension int    // compat provider only; 0 learns it from the first response
	CacheSize int
}

// NewFromEnv creates an embedder based on environment variables
// Priority:
// 1. MAILSEARCH_EMBEDDING_PROVIDER (jina, openai, compat, local)
// 2. Check for API keys: JINA_API_KEY, OPENAI_API_KEY
// 3. Default to local if no API keys found
func NewFromEnv() (Embedder, error) {
	return New(Config{
		Provider:  DetectProvider(),
		Host:      os.Getenv(EnvCompatHost),
		Model:     os.Getenv(EnvCompatModel),
		CacheSize: DefaultCacheSize,
	})
}

// New creates an embedder with explicit configuration.
// An empty provider falls back to environment detection.
func New(cfg Config) (Embedder, error) {
	var cache *Cache
	if cfg.CacheSize > 0 {
		cache = NewCache(cfg.CacheSize)
	}

	provider := strings.ToLower(cfg.Provider)
	if provider == "" {
		provider = DetectProvider()
	}

	switch provider {
	case ProviderJina:
		return NewJinaProvider(cfg.APIKey, cache)
	case ProviderOpenAI:
		return NewOpenAIProvider(cfg.APIKey, cache)
	case ProviderCompat:
		return NewCompatProvider(cfg.Host, cfg.Model, cfg.APIKey, cfg.Dimension, cache)
	case ProviderLocal:
		return NewLocalProvider(cache)
	default:
		return nil, fmt.Errorf("%w: unknown provider %s", ErrUnsupportedModel, cfg.Provider)
	}
}

// DetectProvider returns the provider that would be used based on current environment
func DetectProvider() string {
	provider := os.Getenv(EnvProvider)
	if provider != "" {
		return strings.ToLower(provider)
	}

	if os.Getenv(EnvJinaAPIKey) != "" {
		return ProviderJina
	}
	if os.Getenv(EnvOpenAIAPIKey) != "" {
		return ProviderOpenAI
	}

	return ProviderLocal
}
