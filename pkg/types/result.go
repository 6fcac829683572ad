package types

// ResultItem represents a single enriched search hit
type ResultItem struct {
	// Identification
	ID      int64  `json:"id"`
	Subject string `json:"subject"`
	Body    string `json:"body"`

	// Scoring (semantic results only)
	Similarity *float64 `json:"similarity,omitempty"`

	// Enrichment
	Summary        string `json:"summary"`
	Category       int    `json:"category"`       // Cluster index, only meaningful within one result list
	Classification string `json:"classification"` // One of the configured labels
}

// SearchResults holds both result lists for a single query
type SearchResults struct {
	Query    string       `json:"query"`
	Lexical  []ResultItem `json:"lexical"`
	Semantic []ResultItem `json:"semantic"`
}

// Validate checks if the result item is valid after enrichment
func (r *ResultItem) Validate() error {
	if r.Similarity != nil && (*r.Similarity < -1.0000001 || *r.Similarity > 1.0000001) {
		return ErrInvalidSimilarity
	}

	if r.Classification == "" {
		return ErrMissingClassification
	}

	return nil
}

// SimilarityScore returns the similarity or 0 for lexical hits
func (r *ResultItem) SimilarityScore() float64 {
	if r.Similarity == nil {
		return 0
	}
	return *r.Similarity
}
