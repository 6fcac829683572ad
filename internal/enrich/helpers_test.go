package enrich

import (
	"context"
	"strings"
	"sync/atomic"
	"unicode"

	"github.com/dshills/mailsearch/internal/embedder"
)

// keywordEmbedder maps each known word to its own dimension; unknown words
// share the last one. Vectors are raw counts.
type keywordEmbedder struct {
	vocab map[string]int
	calls atomic.Int32
}

func newKeywordEmbedder(words ...string) *keywordEmbedder {
	vocab := make(map[string]int, len(words))
	for i, w := range words {
		vocab[w] = i
	}
	return &keywordEmbedder{vocab: vocab}
}

func (k *keywordEmbedder) vector(text string) []float32 {
	v := make([]float32, k.Dimension())
	tokens := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r)
	})
	for _, tok := range tokens {
		if i, ok := k.vocab[tok]; ok {
			v[i]++
		} else {
			v[len(v)-1]++
		}
	}
	return v
}

func (k *keywordEmbedder) GenerateEmbedding(ctx context.Context, req embedder.EmbeddingRequest) (*embedder.Embedding, error) {
	if err := embedder.ValidateRequest(req); err != nil {
		return nil, err
	}
	k.calls.Add(1)
	return &embedder.Embedding{Vector: k.vector(req.Text), Dimension: k.Dimension()}, nil
}

func (k *keywordEmbedder) GenerateBatch(ctx context.Context, req embedder.BatchEmbeddingRequest) (*embedder.BatchEmbeddingResponse, error) {
	if err := embedder.ValidateBatchRequest(req); err != nil {
		return nil, err
	}
	k.calls.Add(1)
	out := make([]*embedder.Embedding, len(req.Texts))
	for i, text := range req.Texts {
		out[i] = &embedder.Embedding{Vector: k.vector(text), Dimension: k.Dimension()}
	}
	return &embedder.BatchEmbeddingResponse{Embeddings: out}, nil
}

func (k *keywordEmbedder) Dimension() int   { return len(k.vocab) + 1 }
func (k *keywordEmbedder) Provider() string { return "keyword" }
func (k *keywordEmbedder) Model() string    { return "keyword" }
func (k *keywordEmbedder) Close() error     { return nil }

// labelEmbedder knows one distinctive word per default label
func labelEmbedder() *keywordEmbedder {
	return newKeywordEmbedder("legal", "financial", "project", "discussion", "human", "resources", "operations", "general")
}

// fakeClusterer records calls and returns i % k for each vector
type fakeClusterer struct {
	calls  int
	lastK  int
	result []int
	err    error
}

func (f *fakeClusterer) Cluster(ctx context.Context, vectors [][]float32, k int) ([]int, error) {
	f.calls++
	f.lastK = k
	if f.err != nil {
		return nil, f.err
	}
	if f.result != nil {
		return f.result, nil
	}
	out := make([]int, len(vectors))
	for i := range out {
		out[i] = i % k
	}
	return out, nil
}

// fakeClassifier returns a fixed label and records the texts it saw
type fakeClassifier struct {
	label string
	err   error
	texts []string
}

func (f *fakeClassifier) Classify(ctx context.Context, text string, labels []string) (string, error) {
	f.texts = append(f.texts, text)
	if f.err != nil {
		return "", f.err
	}
	if f.label != "" {
		return f.label, nil
	}
	return labels[0], nil
}
