package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/mailsearch/internal/embedder"
	"github.com/dshills/mailsearch/internal/enrich"
)

// clearEnv blanks every variable Load reads
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		EnvDBPath, EnvLogLevel, EnvMaxClusters, EnvClassifierKey, EnvClassifierKind,
		embedder.EnvProvider, embedder.EnvCompatHost, embedder.EnvCompatModel,
	} {
		t.Setenv(key, "")
	}
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "mailsearch.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, DefaultDBPath, cfg.DBPath)
	assert.Equal(t, 10, cfg.Search.LexicalLimit)
	assert.Equal(t, 10, cfg.Search.SemanticLimit)
	assert.Equal(t, 3, cfg.Enrich.MaxClusters)
	assert.Equal(t, 3, cfg.Enrich.SummarySentences)
	assert.Equal(t, enrich.DefaultLabels, cfg.Enrich.Labels)
	assert.Equal(t, enrich.ClassifierEmbedding, cfg.Classifier.Provider)
}

func TestLoad_File(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
db_path: /var/lib/mail/emails.db
log_level: debug
search:
  lexical_limit: 5
  semantic_limit: 20
enrich:
  labels: [urgent, later]
  max_clusters: 4
embedding:
  provider: compat
  host: http://localhost:11434/v1
  dimension: 768
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/var/lib/mail/emails.db", cfg.DBPath)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 5, cfg.Search.LexicalLimit)
	assert.Equal(t, 20, cfg.Search.SemanticLimit)
	assert.Equal(t, []string{"urgent", "later"}, cfg.Enrich.Labels)
	assert.Equal(t, 4, cfg.Enrich.MaxClusters)
	// Unset keys keep their defaults
	assert.Equal(t, 3, cfg.Enrich.SummarySentences)

	ec := cfg.EmbedderConfig()
	assert.Equal(t, "compat", ec.Provider)
	assert.Equal(t, 768, ec.Dimension)
	assert.Equal(t, embedder.DefaultCacheSize, ec.CacheSize)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, "db_path: from-file.db\n")

	t.Setenv(EnvDBPath, "from-env.db")
	t.Setenv(EnvMaxClusters, "2")
	t.Setenv(EnvClassifierKind, "huggingface")
	t.Setenv(EnvClassifierKey, "hf-token")
	t.Setenv(embedder.EnvProvider, "local")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "from-env.db", cfg.DBPath)
	assert.Equal(t, 2, cfg.EnrichOptions().MaxClusters)
	assert.Equal(t, enrich.ClassifierConfig{Provider: "huggingface", APIKey: "hf-token"}, cfg.ClassifierConfig())
	assert.Equal(t, "local", cfg.Embedding.Provider)
}

func TestLoad_MalformedMaxClusters(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvMaxClusters, "three")

	_, err := Load("")
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestLoad_Errors(t *testing.T) {
	clearEnv(t)

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, "unknown_key: 1\n"))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, "search:\n  lexical_limit: 0\n"))
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty db path", func(c *Config) { c.DBPath = " " }},
		{"zero semantic limit", func(c *Config) { c.Search.SemanticLimit = 0 }},
		{"zero clusters", func(c *Config) { c.Enrich.MaxClusters = 0 }},
		{"zero sentences", func(c *Config) { c.Enrich.SummarySentences = 0 }},
		{"no labels", func(c *Config) { c.Enrich.Labels = nil }},
		{"blank label", func(c *Config) { c.Enrich.Labels = []string{"legal", ""} }},
		{"duplicate label", func(c *Config) { c.Enrich.Labels = []string{"legal", "legal"} }},
	}

	assert.NoError(t, Default().Validate())

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)
		})
	}
}

func TestSearchOptions(t *testing.T) {
	cfg := Default()
	cfg.Search.LexicalLimit = 7

	opts := cfg.SearchOptions()
	assert.Equal(t, 7, opts.LexicalLimit)
	assert.Equal(t, 10, opts.SemanticLimit)
}
