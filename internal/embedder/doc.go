// Package embedder generates vector embeddings for email text using various providers.
//
// The embedder supports hosted providers (Jina AI, OpenAI), any OpenAI-compatible
// server through langchaingo (Ollama, vLLM), and an offline hashing embedder.
// It provides batching, caching, and retry for production use.
//
// # Basic Usage
//
//	emb, err := embedder.NewFromEnv()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer emb.Close()
//
//	result, err := emb.GenerateEmbedding(ctx, embedder.EmbeddingRequest{
//	    Text: "Quarterly budget review meeting notes.",
//	})
//	fmt.Printf("Vector dimension: %d\n", len(result.Vector))
//
// # Batch Processing
//
// EmbedTexts splits any number of texts into provider-sized batches and keeps
// their order. Blank texts become zero vectors without a provider call:
//
//	vectors, err := embedder.EmbedTexts(ctx, emb, bodies)
//
// # Provider Selection
//
//  1. If MAILSEARCH_EMBEDDING_PROVIDER is set → use specified provider
//  2. Else if JINA_API_KEY is set → use Jina AI
//  3. Else if OPENAI_API_KEY is set → use OpenAI
//  4. Else → local hashing provider (offline mode)
//
// The compat provider reads MAILSEARCH_EMBEDDING_HOST and MAILSEARCH_EMBEDDING_MODEL:
//
//	os.Setenv("MAILSEARCH_EMBEDDING_PROVIDER", "compat")
//	os.Setenv("MAILSEARCH_EMBEDDING_HOST", "http://localhost:11434/v1")
//	os.Setenv("MAILSEARCH_EMBEDDING_MODEL", "nomic-embed-text")
//
// # Provider Comparison
//
// Jina AI:
//   - Dimensions: 1024
//
// OpenAI:
//   - Dimensions: 1536
//
// Compat:
//   - Dimensions: model dependent
//
// Local (offline):
//   - Dimensions: 384
//   - Lexical overlap only; useful for tests and air-gapped installs
//
// # Caching
//
// Providers share an LRU cache keyed by the SHA-256 of the text. Only cache misses
// are sent to the remote API.
//
// # Error Handling
//
// Hosted providers retry transient failures with exponential backoff:
//
//	emb, err := embedder.GenerateBatch(ctx, req)
//	if errors.Is(err, embedder.ErrProviderFailed) {
//	    // API unavailable after retries
//	}
package embedder
