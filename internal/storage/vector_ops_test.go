package storage

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildMatchQuery(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  string
	}{
		{"single term", "invoice", `"invoice"`},
		{"two terms", "alice bob", `"alice" AND "bob"`},
		{"extra whitespace", "  alice \t bob\n", `"alice" AND "bob"`},
		{"operator word", "cats OR dogs", `"cats" AND "OR" AND "dogs"`},
		{"embedded quote", `say"hi`, `"say""hi"`},
		{"punctuation only dropped", "alice -- bob", `"alice" AND "bob"`},
		{"empty", "", ""},
		{"whitespace", "   ", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, BuildMatchQuery(tt.query))
		})
	}
}

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float64
	}{
		{"identical", []float32{1, 2, 3}, []float32{1, 2, 3}, 1},
		{"opposite", []float32{1, 0}, []float32{-1, 0}, -1},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 0},
		{"zero vector", []float32{0, 0}, []float32{1, 1}, 0},
		{"dimension mismatch", []float32{1, 2}, []float32{1, 2, 3}, 0},
		{"scaled", []float32{1, 1}, []float32{5, 5}, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CosineSimilarity(tt.a, tt.b)
			assert.InDelta(t, tt.want, got, 1e-6)
			assert.False(t, math.IsNaN(got))
		})
	}
}

func TestRankBySimilarity(t *testing.T) {
	query := []float32{1, 0}
	vectors := [][]float32{
		{0, 1},  // 0
		{1, 0},  // 1
		{1, 1},  // ~0.707
		{2, 0},  // 1, ties with index 1
		{0, 0},  // 0, zero norm
		{-1, 0}, // -1
	}

	results := RankBySimilarity(query, vectors, 10)
	require.Len(t, results, len(vectors))

	gotOrder := make([]int, len(results))
	for i, r := range results {
		gotOrder[i] = r.Index
	}
	assert.Equal(t, []int{1, 3, 2, 0, 4, 5}, gotOrder)

	for i := 1; i < len(results); i++ {
		assert.GreaterOrEqual(t, results[i-1].SimilarityScore, results[i].SimilarityScore)
	}
}

func TestRankBySimilarity_Limit(t *testing.T) {
	vectors := make([][]float32, 25)
	for i := range vectors {
		vectors[i] = []float32{float32(i), 1}
	}

	assert.Len(t, RankBySimilarity([]float32{1, 0}, vectors, 10), 10)
	assert.Len(t, RankBySimilarity([]float32{1, 0}, vectors[:3], 10), 3)
	assert.Empty(t, RankBySimilarity([]float32{1, 0}, nil, 10))
}
