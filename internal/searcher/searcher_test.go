package searcher

import (
	"context"
	"errors"
	"fmt"
	"math"
	"path/filepath"
	"sync"
	"testing"

	"github.com/dshills/mailsearch/internal/embedder"
	"github.com/dshills/mailsearch/internal/enrich"
	"github.com/dshills/mailsearch/internal/storage"
	"github.com/dshills/mailsearch/pkg/types"
)

// recordingClusterer counts invocations and delegates to k-means
type recordingClusterer struct {
	mu    sync.Mutex
	calls int
	inner enrich.Clusterer
}

func (r *recordingClusterer) Cluster(ctx context.Context, vectors [][]float32, k int) ([]int, error) {
	r.mu.Lock()
	r.calls++
	r.mu.Unlock()
	return r.inner.Cluster(ctx, vectors, k)
}

// failingEmbedder embeds the corpus but fails on single queries
type failingEmbedder struct {
	*embedder.LocalProvider
	err error
}

func (f *failingEmbedder) GenerateEmbedding(ctx context.Context, req embedder.EmbeddingRequest) (*embedder.Embedding, error) {
	return nil, f.err
}

// failingEnricher returns err without touching the items
type failingEnricher struct {
	err error
}

func (f *failingEnricher) Enrich(ctx context.Context, items []types.ResultItem) error {
	return f.err
}

func newLocalEmbedder(t *testing.T) *embedder.LocalProvider {
	t.Helper()
	emb, err := embedder.NewLocalProvider(embedder.NewCache(100))
	if err != nil {
		t.Fatalf("NewLocalProvider() error = %v", err)
	}
	return emb
}

// setupTestStorage creates an in-memory store with the given emails
func setupTestStorage(t *testing.T, emails ...*storage.Email) storage.Storage {
	t.Helper()
	store, err := storage.InitSQLiteStorage(storage.MemoryPath)
	if err != nil {
		t.Fatalf("InitSQLiteStorage() error = %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	for _, email := range emails {
		if err := store.InsertEmail(context.Background(), email); err != nil {
			t.Fatalf("InsertEmail() error = %v", err)
		}
	}
	return store
}

// setupTestSearcher wires a searcher with the local embedder and a k-means
// clusterer that records calls
func setupTestSearcher(t *testing.T, store storage.Storage) (*Searcher, *recordingClusterer) {
	t.Helper()
	emb := newLocalEmbedder(t)
	clusterer := &recordingClusterer{inner: enrich.NewKMeans()}
	pipeline := enrich.NewPipeline(emb, clusterer, enrich.NewEmbeddingClassifier(emb, enrich.DefaultLabelDescriptions), enrich.Options{}, nil)
	return New(store, emb, nil, pipeline, Options{}, nil), clusterer
}

func TestSearch_CorpusUnavailable(t *testing.T) {
	t.Run("missing emails table", func(t *testing.T) {
		store, err := storage.NewSQLiteStorage(storage.MemoryPath)
		if err != nil {
			t.Fatalf("NewSQLiteStorage() error = %v", err)
		}
		defer func() { _ = store.Close() }()

		s, _ := setupTestSearcher(t, store)
		_, err = s.Search(context.Background(), "invoice")
		if !errors.Is(err, types.ErrCorpusUnavailable) {
			t.Errorf("Search() error = %v, want ErrCorpusUnavailable", err)
		}
	})

	t.Run("missing database file", func(t *testing.T) {
		_, err := storage.NewSQLiteStorage(filepath.Join(t.TempDir(), "emails.db"))
		if !errors.Is(err, types.ErrCorpusUnavailable) {
			t.Errorf("NewSQLiteStorage() error = %v, want ErrCorpusUnavailable", err)
		}
	})
}

func TestSearch_MalformedQuery(t *testing.T) {
	s, _ := setupTestSearcher(t, setupTestStorage(t))

	for _, query := range []string{"", "   ", "\t\n"} {
		if _, err := s.Search(context.Background(), query); !errors.Is(err, types.ErrMalformedQuery) {
			t.Errorf("Search(%q) error = %v, want ErrMalformedQuery", query, err)
		}
	}
}

func TestSearch_SingleEmailBudget(t *testing.T) {
	store := setupTestStorage(t, &storage.Email{
		ID:      1,
		Subject: "Budget",
		Body:    "Quarterly budget review meeting notes.",
	})
	s, clusterer := setupTestSearcher(t, store)

	results, err := s.Search(context.Background(), "  budget ")
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}

	if results.Query != "budget" {
		t.Errorf("Query = %q, want %q", results.Query, "budget")
	}
	if len(results.Semantic) != 1 {
		t.Fatalf("len(Semantic) = %d, want 1", len(results.Semantic))
	}
	if len(results.Lexical) != 1 {
		t.Fatalf("len(Lexical) = %d, want 1", len(results.Lexical))
	}

	hit := results.Semantic[0]
	if hit.ID != 1 {
		t.Errorf("ID = %d, want 1", hit.ID)
	}
	if hit.Similarity == nil || *hit.Similarity <= 0 {
		t.Errorf("Similarity = %v, want > 0", hit.Similarity)
	}
	if results.Lexical[0].Similarity != nil {
		t.Error("lexical hits should not carry a similarity")
	}

	// Single-item lists skip clustering
	if clusterer.calls != 0 {
		t.Errorf("clusterer called %d times, want 0", clusterer.calls)
	}
	for _, item := range append(results.Lexical, results.Semantic...) {
		if item.Category != 0 {
			t.Errorf("Category = %d, want 0", item.Category)
		}
		if item.Summary != "Quarterly budget review meeting notes." {
			t.Errorf("Summary = %q", item.Summary)
		}
		if err := item.Validate(); err != nil {
			t.Errorf("Validate() error = %v", err)
		}
	}
}

func TestSearch_SelfSimilarity(t *testing.T) {
	body := "Quarterly budget review meeting notes."
	s, _ := setupTestSearcher(t, setupTestStorage(t, &storage.Email{Subject: "Budget", Body: body}))

	items, err := s.SearchSemantic(context.Background(), body)
	if err != nil {
		t.Fatalf("SearchSemantic() error = %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("len(items) = %d, want 1", len(items))
	}
	if got := items[0].SimilarityScore(); math.Abs(got-1) > 1e-6 {
		t.Errorf("similarity = %f, want 1.0", got)
	}
}

func TestSearch_LexicalAndSemantics(t *testing.T) {
	store := setupTestStorage(t,
		&storage.Email{ID: 1, Subject: "Sync", Body: "alice and bob will meet on Monday"},
		&storage.Email{ID: 2, Subject: "Solo", Body: "alice is out of office"},
	)
	s, _ := setupTestSearcher(t, store)

	results, err := s.Search(context.Background(), "alice bob")
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}

	if len(results.Lexical) != 1 {
		t.Fatalf("len(Lexical) = %d, want 1", len(results.Lexical))
	}
	if results.Lexical[0].ID != 1 {
		t.Errorf("Lexical[0].ID = %d, want 1", results.Lexical[0].ID)
	}
	if results.Lexical[0].Body != "alice and bob will meet on Monday" {
		t.Errorf("Lexical[0].Body = %q", results.Lexical[0].Body)
	}
}

func TestSearch_LimitsAndOrdering(t *testing.T) {
	emails := make([]*storage.Email, 15)
	for i := range emails {
		emails[i] = &storage.Email{
			Subject: fmt.Sprintf("Report %d", i),
			Body:    fmt.Sprintf("budget report %d with %d extra words", i, i),
		}
	}
	s, clusterer := setupTestSearcher(t, setupTestStorage(t, emails...))

	results, err := s.Search(context.Background(), "budget")
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}

	if len(results.Lexical) != DefaultLexicalLimit {
		t.Errorf("len(Lexical) = %d, want %d", len(results.Lexical), DefaultLexicalLimit)
	}
	if len(results.Semantic) != DefaultSemanticLimit {
		t.Errorf("len(Semantic) = %d, want %d", len(results.Semantic), DefaultSemanticLimit)
	}

	for i := 1; i < len(results.Semantic); i++ {
		if results.Semantic[i].SimilarityScore() > results.Semantic[i-1].SimilarityScore() {
			t.Errorf("semantic results not sorted at %d: %f > %f", i,
				results.Semantic[i].SimilarityScore(), results.Semantic[i-1].SimilarityScore())
		}
	}

	if clusterer.calls != 2 {
		t.Errorf("clusterer called %d times, want 2", clusterer.calls)
	}

	labels := make(map[string]bool)
	for _, l := range enrich.DefaultLabels {
		labels[l] = true
	}
	for _, item := range append(results.Lexical, results.Semantic...) {
		if !labels[item.Classification] {
			t.Errorf("Classification = %q, not in label set", item.Classification)
		}
		if item.Category < 0 || item.Category >= enrich.DefaultMaxClusters {
			t.Errorf("Category = %d, out of range", item.Category)
		}
	}
}

func TestSearch_SmallCorpus(t *testing.T) {
	s, _ := setupTestSearcher(t, setupTestStorage(t,
		&storage.Email{Subject: "a", Body: "first note"},
		&storage.Email{Subject: "b", Body: "second note"},
	))

	items, err := s.SearchSemantic(context.Background(), "note")
	if err != nil {
		t.Fatalf("SearchSemantic() error = %v", err)
	}
	if len(items) != 2 {
		t.Errorf("len(items) = %d, want 2", len(items))
	}
}

func TestSearch_EmptyCorpus(t *testing.T) {
	s, _ := setupTestSearcher(t, setupTestStorage(t))

	results, err := s.Search(context.Background(), "invoice")
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if results.Lexical == nil || results.Semantic == nil {
		t.Error("empty corpus should yield empty, non-nil lists")
	}
	if len(results.Lexical) != 0 || len(results.Semantic) != 0 {
		t.Errorf("got %d lexical and %d semantic results, want none",
			len(results.Lexical), len(results.Semantic))
	}
}

func TestSearch_EmbedderErrorPropagates(t *testing.T) {
	modelErr := errors.New("model offline")
	emb := &failingEmbedder{LocalProvider: newLocalEmbedder(t), err: modelErr}
	store := setupTestStorage(t, &storage.Email{Subject: "s", Body: "budget"})
	s := New(store, emb, nil, &failingEnricher{}, Options{}, nil)

	results, err := s.Search(context.Background(), "budget")
	if !errors.Is(err, modelErr) {
		t.Errorf("Search() error = %v, want %v", err, modelErr)
	}
	if results != nil {
		t.Error("expected no partial results")
	}
}

func TestSearch_EnrichErrorPropagates(t *testing.T) {
	enrichErr := errors.New("classifier down")
	store := setupTestStorage(t, &storage.Email{Subject: "s", Body: "budget"})
	s := New(store, newLocalEmbedder(t), nil, &failingEnricher{err: enrichErr}, Options{}, nil)

	results, err := s.Search(context.Background(), "budget")
	if !errors.Is(err, enrichErr) {
		t.Errorf("Search() error = %v, want %v", err, enrichErr)
	}
	if results != nil {
		t.Error("expected no partial results")
	}
}

func TestSearch_RejectsUnlabelledResults(t *testing.T) {
	store := setupTestStorage(t, &storage.Email{Subject: "s", Body: "budget"})
	s := New(store, newLocalEmbedder(t), nil, &failingEnricher{}, Options{}, nil)

	results, err := s.Search(context.Background(), "budget")
	if !errors.Is(err, types.ErrMissingClassification) {
		t.Errorf("Search() error = %v, want %v", err, types.ErrMissingClassification)
	}
	if results != nil {
		t.Error("expected no partial results")
	}
}

func TestSearch_CorpusStaleUntilInvalidated(t *testing.T) {
	ctx := context.Background()
	store := setupTestStorage(t, &storage.Email{Subject: "old", Body: "invoice for march"})
	s, _ := setupTestSearcher(t, store)

	if _, err := s.Search(ctx, "invoice"); err != nil {
		t.Fatalf("Search() error = %v", err)
	}

	if err := store.InsertEmail(ctx, &storage.Email{Subject: "new", Body: "invoice for april"}); err != nil {
		t.Fatalf("InsertEmail() error = %v", err)
	}

	results, err := s.Search(ctx, "invoice")
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	// Index is rebuilt every call, the corpus cache is not
	if len(results.Lexical) != 2 {
		t.Errorf("len(Lexical) = %d, want 2", len(results.Lexical))
	}
	if len(results.Semantic) != 1 {
		t.Errorf("len(Semantic) = %d, want 1 before invalidation", len(results.Semantic))
	}

	s.Corpus().Invalidate()

	results, err = s.Search(ctx, "invoice")
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(results.Semantic) != 2 {
		t.Errorf("len(Semantic) = %d, want 2 after invalidation", len(results.Semantic))
	}
}

func TestSearch_Concurrent(t *testing.T) {
	store := setupTestStorage(t,
		&storage.Email{Subject: "a", Body: "invoice overdue. please pay."},
		&storage.Email{Subject: "b", Body: "invoice paid. thanks."},
		&storage.Email{Subject: "c", Body: "lunch plans"},
	)
	s, _ := setupTestSearcher(t, store)

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results, err := s.Search(context.Background(), "invoice")
			if err != nil {
				errs <- err
				return
			}
			if len(results.Lexical) != 2 {
				errs <- fmt.Errorf("len(Lexical) = %d, want 2", len(results.Lexical))
			}
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Error(err)
	}
}

func TestNew_Defaults(t *testing.T) {
	s := New(setupTestStorage(t), newLocalEmbedder(t), nil, nil, Options{}, nil)

	if s.lexicalLimit != DefaultLexicalLimit {
		t.Errorf("lexicalLimit = %d, want %d", s.lexicalLimit, DefaultLexicalLimit)
	}
	if s.semanticLimit != DefaultSemanticLimit {
		t.Errorf("semanticLimit = %d, want %d", s.semanticLimit, DefaultSemanticLimit)
	}
	if s.Corpus() == nil {
		t.Error("expected a corpus cache")
	}
}
