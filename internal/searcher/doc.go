// Package searcher orchestrates hybrid email search.
//
// A single call to Search runs, in order:
//
//  1. Query validation (blank queries fail with types.ErrMalformedQuery)
//  2. Corpus check (a missing emails table fails with types.ErrCorpusUnavailable)
//  3. Full rebuild of the FTS5 index, then an AND-of-terms lexical query
//  4. Semantic ranking of the cached corpus by cosine similarity
//  5. Enrichment of the lexical list, then of the semantic list
//
// # Basic Usage
//
//	pipeline := enrich.NewPipeline(emb, enrich.NewKMeans(), classifier, enrich.Options{}, logger)
//	s := searcher.New(store, emb, nil, pipeline, searcher.Options{}, logger)
//
//	results, err := s.Search(ctx, "quarterly budget")
//	if errors.Is(err, types.ErrCorpusUnavailable) {
//	    // run ingestion first
//	}
//
//	for _, item := range results.Semantic {
//	    fmt.Printf("%d %.3f [%s] %s\n",
//	        item.ID, item.SimilarityScore(), item.Classification, item.Summary)
//	}
//
// # Concurrency
//
// The index rebuild and the lexical query that follows it hold a mutex, so
// concurrent searches never read a half-built index. The corpus cache loads
// once per process (or per invalidation) however many searches race on it.
//
// # Staleness
//
// The lexical index is always rebuilt from the current table. Semantic search
// reads the corpus cache, which reflects the table as of its last load; call
// Corpus().Invalidate() after ingesting new mail.
package searcher
