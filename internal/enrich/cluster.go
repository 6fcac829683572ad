package enrich

import (
	"context"
	"errors"
	"fmt"

	"github.com/muesli/clusters"
	"github.com/muesli/kmeans"
)

// DefaultMaxClusters caps k for each enrichment call
const DefaultMaxClusters = 3

// ErrClusteringFailed wraps errors from the clustering backend
var ErrClusteringFailed = errors.New("clustering failed")

// Clusterer partitions vectors into k groups and returns one 0-based
// cluster index per input vector
type Clusterer interface {
	Cluster(ctx context.Context, vectors [][]float32, k int) ([]int, error)
}

// KMeans implements Clusterer with Lloyd's algorithm
type KMeans struct {
	km kmeans.Kmeans
}

// NewKMeans creates a k-means clusterer with default convergence settings
func NewKMeans() *KMeans {
	return &KMeans{km: kmeans.New()}
}

// Cluster runs k-means. k is clamped to the number of vectors.
// Vectors of differing length are zero-padded to the longest.
func (c *KMeans) Cluster(ctx context.Context, vectors [][]float32, k int) ([]int, error) {
	if k < 1 {
		return nil, fmt.Errorf("%w: k must be positive, got %d", ErrClusteringFailed, k)
	}
	if len(vectors) == 0 {
		return []int{}, nil
	}
	if k > len(vectors) {
		k = len(vectors)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	dim := 0
	for _, v := range vectors {
		if len(v) > dim {
			dim = len(v)
		}
	}

	dataset := make(clusters.Observations, len(vectors))
	for i, v := range vectors {
		coords := make(clusters.Coordinates, dim)
		for j, x := range v {
			coords[j] = float64(x)
		}
		dataset[i] = coords
	}

	partition, err := c.km.Partition(dataset, k)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrClusteringFailed, err)
	}

	labels := make([]int, len(dataset))
	for i, point := range dataset {
		labels[i] = partition.Nearest(point)
	}
	return labels, nil
}
