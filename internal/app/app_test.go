package app

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/mailsearch/internal/config"
	"github.com/dshills/mailsearch/internal/embedder"
	"github.com/dshills/mailsearch/internal/storage"
	"github.com/dshills/mailsearch/pkg/types"
)

func localConfig(dbPath string) *config.Config {
	cfg := config.Default()
	cfg.DBPath = dbPath
	cfg.Embedding.Provider = embedder.ProviderLocal
	return cfg
}

func TestNew_MissingDatabase(t *testing.T) {
	_, err := New(localConfig(filepath.Join(t.TempDir(), "emails.db")), nil)
	assert.ErrorIs(t, err, types.ErrCorpusUnavailable)
}

func TestNew_SearchesExistingStore(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "db", "emails.db")

	seed, err := storage.InitSQLiteStorage(dbPath)
	require.NoError(t, err)
	require.NoError(t, seed.InsertEmail(ctx, &storage.Email{
		Subject: "Budget",
		Body:    "Quarterly budget review meeting notes.",
	}))
	require.NoError(t, seed.Close())

	a, err := New(localConfig(dbPath), nil)
	require.NoError(t, err)
	defer func() { _ = a.Close() }()

	assert.Equal(t, embedder.ProviderLocal, a.Embedder.Provider())

	results, err := a.Searcher.Search(ctx, "budget")
	require.NoError(t, err)
	require.Len(t, results.Semantic, 1)
	require.Len(t, results.Lexical, 1)
	assert.Greater(t, results.Semantic[0].SimilarityScore(), 0.0)
	assert.NotEmpty(t, results.Semantic[0].Classification)
}

func TestNewWithStorage_BadClassifier(t *testing.T) {
	store, err := storage.InitSQLiteStorage(storage.MemoryPath)
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	cfg := localConfig(storage.MemoryPath)
	cfg.Classifier.Provider = "bayes"

	_, err = NewWithStorage(cfg, store, nil)
	assert.Error(t, err)
}
