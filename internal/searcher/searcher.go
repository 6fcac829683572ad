package searcher

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/dshills/mailsearch/internal/corpus"
	"github.com/dshills/mailsearch/internal/embedder"
	"github.com/dshills/mailsearch/internal/storage"
	"github.com/dshills/mailsearch/pkg/types"
)

const (
	// DefaultLexicalLimit bounds full-text results per query
	DefaultLexicalLimit = 10

	// DefaultSemanticLimit bounds similarity results per query
	DefaultSemanticLimit = 10
)

// Enricher fills summary, cluster and classification fields in place
type Enricher interface {
	Enrich(ctx context.Context, items []types.ResultItem) error
}

// Options configures result limits. Zero values take the defaults.
type Options struct {
	LexicalLimit  int
	SemanticLimit int
}

// Searcher runs lexical and semantic search over the email corpus and
// enriches both result lists
type Searcher struct {
	storage  storage.Storage
	embedder embedder.Embedder
	corpus   *corpus.Cache
	enricher Enricher
	logger   *zap.Logger

	lexicalLimit  int
	semanticLimit int

	// indexMu serializes index rebuild and the lexical query that reads it
	indexMu sync.Mutex
}

// New creates a Searcher. A nil cache is replaced by a fresh corpus cache over store.
func New(store storage.Storage, emb embedder.Embedder, cache *corpus.Cache, enricher Enricher, opts Options, logger *zap.Logger) *Searcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cache == nil {
		cache = corpus.NewCache(store, emb, logger)
	}
	if opts.LexicalLimit <= 0 {
		opts.LexicalLimit = DefaultLexicalLimit
	}
	if opts.SemanticLimit <= 0 {
		opts.SemanticLimit = DefaultSemanticLimit
	}

	return &Searcher{
		storage:       store,
		embedder:      emb,
		corpus:        cache,
		enricher:      enricher,
		logger:        logger,
		lexicalLimit:  opts.LexicalLimit,
		semanticLimit: opts.SemanticLimit,
	}
}

// Corpus returns the cache backing semantic search, for invalidation after ingestion
func (s *Searcher) Corpus() *corpus.Cache {
	return s.corpus
}

// Search runs the full pipeline for query: rebuild the full-text index,
// lexical search, semantic search, then enrich each list independently.
// Any collaborator failure aborts the call and no partial results are returned.
func (s *Searcher) Search(ctx context.Context, query string) (*types.SearchResults, error) {
	startTime := time.Now()

	query, err := normalizeQuery(query)
	if err != nil {
		return nil, err
	}

	if err := s.checkCorpus(ctx); err != nil {
		return nil, err
	}

	lexical, err := s.SearchLexical(ctx, query)
	if err != nil {
		return nil, err
	}

	semantic, err := s.SearchSemantic(ctx, query)
	if err != nil {
		return nil, err
	}

	if s.enricher != nil {
		if err := s.enricher.Enrich(ctx, lexical); err != nil {
			return nil, fmt.Errorf("failed to enrich lexical results: %w", err)
		}
		if err := s.enricher.Enrich(ctx, semantic); err != nil {
			return nil, fmt.Errorf("failed to enrich semantic results: %w", err)
		}
		if err := validateItems("lexical", lexical); err != nil {
			return nil, err
		}
		if err := validateItems("semantic", semantic); err != nil {
			return nil, err
		}
	}

	s.logger.Info("search completed",
		zap.String("query", query),
		zap.Int("lexical", len(lexical)),
		zap.Int("semantic", len(semantic)),
		zap.Duration("duration", time.Since(startTime)),
	)

	return &types.SearchResults{
		Query:    query,
		Lexical:  lexical,
		Semantic: semantic,
	}, nil
}

// SearchLexical rebuilds the full-text index and returns AND-of-terms
// matches in the engine's native order. Results are not enriched.
func (s *Searcher) SearchLexical(ctx context.Context, query string) ([]types.ResultItem, error) {
	query, err := normalizeQuery(query)
	if err != nil {
		return nil, err
	}

	s.indexMu.Lock()
	defer s.indexMu.Unlock()

	if err := s.storage.RebuildTextIndex(ctx); err != nil {
		return nil, fmt.Errorf("failed to rebuild text index: %w", err)
	}

	emails, err := s.storage.SearchText(ctx, query, s.lexicalLimit)
	if err != nil {
		return nil, fmt.Errorf("lexical search failed: %w", err)
	}

	items := make([]types.ResultItem, len(emails))
	for i, email := range emails {
		items[i] = types.ResultItem{
			ID:      email.ID,
			Subject: email.Subject,
			Body:    email.Body,
		}
	}
	return items, nil
}

// SearchSemantic ranks the cached corpus by cosine similarity to the query
// embedding and returns the top results, highest first. Results are not enriched.
func (s *Searcher) SearchSemantic(ctx context.Context, query string) ([]types.ResultItem, error) {
	query, err := normalizeQuery(query)
	if err != nil {
		return nil, err
	}

	snap, err := s.corpus.EnsureLoaded(ctx)
	if err != nil {
		return nil, err
	}
	if snap.Len() == 0 {
		return []types.ResultItem{}, nil
	}

	embedding, err := s.embedder.GenerateEmbedding(ctx, embedder.EmbeddingRequest{Text: query})
	if err != nil {
		return nil, fmt.Errorf("failed to generate query embedding: %w", err)
	}

	ranked := storage.RankBySimilarity(embedding.Vector, snap.Vectors, s.semanticLimit)

	items := make([]types.ResultItem, len(ranked))
	for i, r := range ranked {
		score := r.SimilarityScore
		items[i] = types.ResultItem{
			ID:         snap.IDs[r.Index],
			Subject:    snap.Subjects[r.Index],
			Body:       snap.Bodies[r.Index],
			Similarity: &score,
		}
	}
	return items, nil
}

// checkCorpus fails with ErrCorpusUnavailable when the emails table is missing
func (s *Searcher) checkCorpus(ctx context.Context) error {
	exists, err := s.storage.CorpusExists(ctx)
	if err != nil {
		return fmt.Errorf("failed to check corpus: %w", err)
	}
	if !exists {
		return types.ErrCorpusUnavailable
	}
	return nil
}

// validateItems rejects enriched results with a missing label or an
// out-of-range similarity
func validateItems(list string, items []types.ResultItem) error {
	for i := range items {
		if err := items[i].Validate(); err != nil {
			return fmt.Errorf("invalid %s result for email %d: %w", list, items[i].ID, err)
		}
	}
	return nil
}

// normalizeQuery trims the query and rejects blank input
func normalizeQuery(query string) (string, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return "", types.ErrMalformedQuery
	}
	return query, nil
}
