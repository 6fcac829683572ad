// Package app wires the search pipeline from configuration.
//
// Models are constructed once at startup and shared by every component, so
// the embedding cache is shared between corpus loading, query embedding,
// summary clustering and label matching.
package app

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/dshills/mailsearch/internal/config"
	"github.com/dshills/mailsearch/internal/corpus"
	"github.com/dshills/mailsearch/internal/embedder"
	"github.com/dshills/mailsearch/internal/enrich"
	"github.com/dshills/mailsearch/internal/searcher"
	"github.com/dshills/mailsearch/internal/storage"
)

// App holds the long-lived components of a mailsearch process
type App struct {
	Config   *config.Config
	Storage  storage.Storage
	Embedder embedder.Embedder
	Searcher *searcher.Searcher
	Logger   *zap.Logger
}

// New opens the email store and constructs every model handle.
// A missing database file fails with types.ErrCorpusUnavailable.
func New(cfg *config.Config, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	store, err := storage.NewSQLiteStorage(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open email store: %w", err)
	}

	a, err := NewWithStorage(cfg, store, logger)
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	return a, nil
}

// NewWithStorage builds the pipeline over an already open store
func NewWithStorage(cfg *config.Config, store storage.Storage, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	emb, err := embedder.New(cfg.EmbedderConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to initialize embedder: %w", err)
	}

	classifier, err := enrich.NewClassifier(cfg.ClassifierConfig(), emb)
	if err != nil {
		_ = emb.Close()
		return nil, fmt.Errorf("failed to initialize classifier: %w", err)
	}

	pipeline := enrich.NewPipeline(emb, enrich.NewKMeans(), classifier, cfg.EnrichOptions(), logger.Named("enrich"))
	cache := corpus.NewCache(store, emb, logger.Named("corpus"))
	srch := searcher.New(store, emb, cache, pipeline, cfg.SearchOptions(), logger.Named("searcher"))

	logger.Info("search pipeline ready",
		zap.String("db_path", cfg.DBPath),
		zap.String("embedder", emb.Provider()),
		zap.String("model", emb.Model()),
		zap.Int("dimension", emb.Dimension()),
		zap.String("classifier", cfg.Classifier.Provider),
	)

	return &App{
		Config:   cfg,
		Storage:  store,
		Embedder: emb,
		Searcher: srch,
		Logger:   logger,
	}, nil
}

// Close releases the model clients and the store
func (a *App) Close() error {
	_ = a.Embedder.Close()
	return a.Storage.Close()
}
