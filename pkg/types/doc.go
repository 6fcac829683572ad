// Package types provides shared type definitions for the mailsearch service.
//
// This package defines the public result shape returned by a hybrid search and the
// domain errors callers are expected to match with errors.Is.
//
// # Core Types
//
// ResultItem is one enriched email hit:
//
//	item := types.ResultItem{
//	    ID:             42,
//	    Subject:        "Q3 budget",
//	    Body:           "Quarterly budget review meeting notes.",
//	    Summary:        "Quarterly budget review meeting notes.",
//	    Category:       0,
//	    Classification: "financial",
//	}
//
// Similarity is only set for semantic hits. Category is a cluster index assigned per
// result list; the same email may carry different categories in the lexical and
// semantic lists of one response, and across calls.
//
// SearchResults groups both lists with the original query:
//
//	results := &types.SearchResults{
//	    Query:    "invoice",
//	    Lexical:  lexicalItems,
//	    Semantic: semanticItems,
//	}
//
// # Errors
//
//	if errors.Is(err, types.ErrCorpusUnavailable) {
//	    // run ingestion first
//	}
//	if errors.Is(err, types.ErrMalformedQuery) {
//	    // empty query
//	}
package types
