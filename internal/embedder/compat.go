package embedder

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/openai"
)

// DefaultCompatModel is used when no model is configured for the compat provider
const DefaultCompatModel = "nomic-embed-text"

// CompatProvider implements Embedder for OpenAI-compatible servers through langchaingo.
// Local servers usually need no token, so "none" is sent when the key is empty.
type CompatProvider struct {
	embedder  embeddings.Embedder
	model     string
	dimension atomic.Int64
	cache     *Cache
}

// NewCompatProvider creates an embedder for host (e.g. "http://localhost:11434/v1").
// dimension is the model's output size; pass 0 to learn it from the first response.
func NewCompatProvider(host, model, apiKey string, dimension int, cache *Cache) (*CompatProvider, error) {
	if host == "" {
		return nil, fmt.Errorf("%w: %s not set", ErrNoProviderEnabled, EnvCompatHost)
	}
	if model == "" {
		model = DefaultCompatModel
	}
	if apiKey == "" {
		apiKey = "none"
	}

	client, err := openai.New(
		openai.WithBaseURL(host),
		openai.WithToken(apiKey),
		openai.WithEmbeddingModel(model),
	)
	if err != nil {
		return nil, fmt.Errorf("create compat client: %w", err)
	}

	emb, err := embeddings.NewEmbedder(client,
		embeddings.WithStripNewLines(true),
		embeddings.WithBatchSize(DefaultBatchSize),
	)
	if err != nil {
		return nil, fmt.Errorf("create compat embedder: %w", err)
	}

	p := &CompatProvider{
		embedder: emb,
		model:    model,
		cache:    cache,
	}
	p.dimension.Store(int64(dimension))
	return p, nil
}

func (c *CompatProvider) GenerateEmbedding(ctx context.Context, req EmbeddingRequest) (*Embedding, error) {
	if err := ValidateRequest(req); err != nil {
		return nil, err
	}

	resp, err := c.GenerateBatch(ctx, BatchEmbeddingRequest{Texts: []string{req.Text}})
	if err != nil {
		return nil, err
	}
	return resp.Embeddings[0], nil
}

func (c *CompatProvider) GenerateBatch(ctx context.Context, req BatchEmbeddingRequest) (*BatchEmbeddingResponse, error) {
	if err := ValidateBatchRequest(req); err != nil {
		return nil, err
	}

	result, missing := splitCached(c.cache, req.Texts)
	if len(missing) > 0 {
		texts := make([]string, len(missing))
		for i, idx := range missing {
			texts[i] = req.Texts[idx]
		}

		vectors, err := c.embedder.EmbedDocuments(ctx, texts)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrProviderFailed, err)
		}
		if len(vectors) != len(texts) {
			return nil, fmt.Errorf("%w: got %d embeddings for %d texts", ErrProviderFailed, len(vectors), len(texts))
		}

		for i, idx := range missing {
			c.dimension.CompareAndSwap(0, int64(len(vectors[i])))
			emb := &Embedding{
				Vector:    vectors[i],
				Dimension: len(vectors[i]),
				Provider:  ProviderCompat,
				Model:     c.model,
				Hash:      ComputeHash(texts[i]),
			}
			if c.cache != nil {
				c.cache.Set(emb.Hash, emb)
			}
			result[idx] = emb
		}
	}

	return &BatchEmbeddingResponse{
		Embeddings: result,
		Provider:   ProviderCompat,
		Model:      c.model,
	}, nil
}

func (c *CompatProvider) Dimension() int {
	return int(c.dimension.Load())
}

func (c *CompatProvider) Provider() string {
	return ProviderCompat
}

func (c *CompatProvider) Model() string {
	return c.model
}

func (c *CompatProvider) Close() error {
	return nil
}
