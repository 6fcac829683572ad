package types

import "errors"

// Domain errors surfaced by the search pipeline
var (
	// ErrCorpusUnavailable is returned when the backing email store is missing.
	// The ingestion pipeline must run before searching.
	ErrCorpusUnavailable = errors.New("email store not found: run ingestion first")

	// ErrMalformedQuery is returned for empty or whitespace-only queries
	ErrMalformedQuery = errors.New("query cannot be empty")

	// Result validation errors
	ErrInvalidSimilarity     = errors.New("similarity must be between -1 and 1")
	ErrMissingClassification = errors.New("classification is required")
)
