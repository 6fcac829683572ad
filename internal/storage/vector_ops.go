package storage

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"sort"
	"strings"
	"unicode"
)

// searchText performs an AND-of-terms full-text search using FTS5
func searchText(ctx context.Context, db *sql.DB, query string, limit int) ([]*Email, error) {
	match := BuildMatchQuery(query)
	if match == "" {
		// Nothing the tokenizer could index, so nothing can match
		return []*Email{}, nil
	}

	if limit <= 0 {
		limit = DefaultTextLimit
	}

	sqlQuery := `
		SELECT e.id, COALESCE(e.subject, ''), COALESCE(e.body, '')
		FROM emails_fts
		INNER JOIN emails e ON e.id = emails_fts.rowid
		WHERE emails_fts MATCH ?
		LIMIT ?
	`
	rows, err := db.QueryContext(ctx, sqlQuery, match, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to execute FTS search: %w", err)
	}
	defer func() { _ = rows.Close() }()

	return scanEmails(rows)
}

// BuildMatchQuery turns a raw query into an FTS5 MATCH expression.
// Terms are split on whitespace and joined with AND; a single term stands alone.
// Each term is emitted as an FTS5 string so operators and punctuation in user
// input are matched literally. Terms without letters or digits are dropped.
func BuildMatchQuery(query string) string {
	fields := strings.Fields(query)
	terms := make([]string, 0, len(fields))
	for _, field := range fields {
		if !hasIndexableRune(field) {
			continue
		}
		terms = append(terms, quoteTerm(field))
	}

	if len(terms) == 1 {
		return terms[0]
	}
	return strings.Join(terms, " AND ")
}

// quoteTerm wraps a term in double quotes, doubling embedded quotes
func quoteTerm(term string) string {
	return `"` + strings.ReplaceAll(term, `"`, `""`) + `"`
}

func hasIndexableRune(s string) bool {
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return true
		}
	}
	return false
}

// RankBySimilarity scores every vector against the query with cosine similarity
// and returns the top limit, highest first. Ties keep input order.
func RankBySimilarity(queryVector []float32, vectors [][]float32, limit int) []VectorResult {
	candidates := make([]candidate, len(vectors))
	for i, vector := range vectors {
		candidates[i] = candidate{index: i, score: cosineSimilarity(queryVector, vector)}
	}

	sortCandidates(candidates)

	return buildVectorResults(candidates, limit)
}

// buildVectorResults creates VectorResult slice from candidates
func buildVectorResults(candidates []candidate, limit int) []VectorResult {
	// Handle negative or zero limit - return all candidates
	if limit <= 0 || limit > len(candidates) {
		limit = len(candidates)
	}

	results := make([]VectorResult, limit)
	for i := 0; i < limit; i++ {
		results[i] = VectorResult{
			Index:           candidates[i].index,
			SimilarityScore: candidates[i].score,
		}
	}
	return results
}

// cosineSimilarity computes the cosine similarity between two vectors.
// Mismatched dimensions and zero-norm vectors score 0.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}

	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
}

// candidate represents a corpus position with its similarity score
type candidate struct {
	index int
	score float64
}

// sortCandidates sorts candidates by score in descending order, keeping corpus order on ties
func sortCandidates(candidates []candidate) {
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].score > candidates[j].score
	})
}

// CosineSimilarity is an exported helper for callers ranking outside the store
func CosineSimilarity(a, b []float32) float64 {
	return cosineSimilarity(a, b)
}
