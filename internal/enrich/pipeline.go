package enrich

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/dshills/mailsearch/internal/embedder"
	"github.com/dshills/mailsearch/pkg/types"
)

// Options tunes the enrichment pipeline. Zero values take the defaults.
type Options struct {
	Labels           []string
	MaxClusters      int
	SummarySentences int
}

// Pipeline summarizes, clusters and classifies result lists
type Pipeline struct {
	embedder   embedder.Embedder
	clusterer  Clusterer
	classifier Classifier
	logger     *zap.Logger

	labels           []string
	maxClusters      int
	summarySentences int
}

// NewPipeline wires the collaborators used for enrichment
func NewPipeline(emb embedder.Embedder, clusterer Clusterer, classifier Classifier, opts Options, logger *zap.Logger) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	labels := opts.Labels
	if len(labels) == 0 {
		labels = DefaultLabels
	}
	maxClusters := opts.MaxClusters
	if maxClusters <= 0 {
		maxClusters = DefaultMaxClusters
	}
	sentences := opts.SummarySentences
	if sentences <= 0 {
		sentences = DefaultSummarySentences
	}

	return &Pipeline{
		embedder:         emb,
		clusterer:        clusterer,
		classifier:       classifier,
		logger:           logger,
		labels:           append([]string(nil), labels...),
		maxClusters:      maxClusters,
		summarySentences: sentences,
	}
}

// Labels returns a copy of the configured label set
func (p *Pipeline) Labels() []string {
	return append([]string(nil), p.labels...)
}

// Enrich fills Summary, Category and Classification on every item in place.
// Any collaborator error aborts the call; items may then be partially filled
// and must be discarded.
func (p *Pipeline) Enrich(ctx context.Context, items []types.ResultItem) error {
	if len(items) == 0 {
		return nil
	}

	for i := range items {
		items[i].Summary = Summarize(items[i].Body, p.summarySentences)
	}

	if err := p.assignClusters(ctx, items); err != nil {
		return err
	}

	for i := range items {
		label, err := p.classify(ctx, &items[i])
		if err != nil {
			return fmt.Errorf("failed to classify email %d: %w", items[i].ID, err)
		}
		items[i].Classification = label
	}

	p.logger.Debug("enriched results", zap.Int("items", len(items)))
	return nil
}

func (p *Pipeline) assignClusters(ctx context.Context, items []types.ResultItem) error {
	// Fewer than two points cannot be clustered
	if len(items) < 2 {
		for i := range items {
			items[i].Category = 0
		}
		return nil
	}

	summaries := make([]string, len(items))
	for i := range items {
		summaries[i] = items[i].Summary
	}

	vectors, err := embedder.EmbedTexts(ctx, p.embedder, summaries)
	if err != nil {
		return fmt.Errorf("failed to embed summaries: %w", err)
	}

	k := p.maxClusters
	if k > len(items) {
		k = len(items)
	}

	assignments, err := p.clusterer.Cluster(ctx, vectors, k)
	if err != nil {
		return err
	}
	if len(assignments) != len(items) {
		return fmt.Errorf("%w: got %d assignments for %d items", ErrClusteringFailed, len(assignments), len(items))
	}

	for i, cluster := range assignments {
		if cluster < 0 || cluster >= k {
			return fmt.Errorf("%w: cluster %d out of range [0,%d)", ErrClusteringFailed, cluster, k)
		}
		items[i].Category = cluster
	}
	return nil
}

func (p *Pipeline) classify(ctx context.Context, item *types.ResultItem) (string, error) {
	text := item.Body
	if strings.TrimSpace(text) == "" {
		text = item.Summary
	}
	if strings.TrimSpace(text) == "" {
		return p.labels[len(p.labels)-1], nil
	}

	label, err := p.classifier.Classify(ctx, text, p.labels)
	if err != nil {
		return "", err
	}
	if !containsLabel(p.labels, label) {
		return "", fmt.Errorf("%w: %q", ErrUnknownLabel, label)
	}
	return label, nil
}
